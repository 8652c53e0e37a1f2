package settlement

import (
	"time"

	"github.com/Tiel0043/projecthub/minipay/ledger"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Status represents the lifecycle state of a settlement.
//
// Transitions:
//
//	PENDING → COMPLETED (every share approved)
//	PENDING → CANCELLED (any share rejected)
type Status string

const (
	// StatusPending marks a settlement awaiting participant responses.
	StatusPending Status = "PENDING"
	// StatusCompleted marks a settlement every participant approved; terminal.
	StatusCompleted Status = "COMPLETED"
	// StatusCancelled marks a settlement with at least one rejection; terminal.
	StatusCancelled Status = "CANCELLED"
)

// ShareStatus represents a participant's response to their share.
type ShareStatus string

const (
	// SharePending marks a share awaiting the participant's response.
	SharePending ShareStatus = "PENDING"
	// ShareApproved marks a share the participant accepted; terminal.
	ShareApproved ShareStatus = "APPROVED"
	// ShareRejected marks a share the participant declined; terminal.
	ShareRejected ShareStatus = "REJECTED"
)

// Share is one participant's slice of a settlement. Shares are owned by the
// settlement and live and die with it.
type Share struct {
	ParticipantID uuid.UUID       `json:"participantId"`
	Amount        decimal.Decimal `json:"amount"`
	Status        ShareStatus     `json:"status"`
}

// Settlement is the aggregate produced by a split request. The share amounts
// always sum to TotalAmount exactly; Version is the optimistic-concurrency
// pivot for approve/reject races.
type Settlement struct {
	ID          uuid.UUID       `json:"id"`
	RequesterID uuid.UUID       `json:"requesterId"`
	TotalAmount decimal.Decimal `json:"totalAmount"`
	Policy      Policy          `json:"policy"`
	Status      Status          `json:"status"`
	Shares      []Share         `json:"shares"`
	Version     int64           `json:"version"`
	CreatedAt   time.Time       `json:"createdAt"`
}

// newSettlement assembles the aggregate from allocated share amounts.
func newSettlement(requesterID uuid.UUID, totalAmount decimal.Decimal, policy Policy, participantIDs []uuid.UUID, amounts []decimal.Decimal, clock ledger.Clock) Settlement {
	shares := make([]Share, len(participantIDs))
	for i, participantID := range participantIDs {
		shares[i] = Share{
			ParticipantID: participantID,
			Amount:        amounts[i],
			Status:        SharePending,
		}
	}

	return Settlement{
		ID:          uuid.New(),
		RequesterID: requesterID,
		TotalAmount: totalAmount,
		Policy:      policy,
		Status:      StatusPending,
		Shares:      shares,
		CreatedAt:   clock.Now(),
	}
}

// respond applies a participant's approval or rejection and settles the
// aggregate status once no share is pending.
func (s Settlement) respond(participantID uuid.UUID, status ShareStatus) (Settlement, error) {
	if s.Status != StatusPending {
		return Settlement{}, ledger.NewDomainError(ledger.ErrorInvalidStateTransition, "status", "settlement is no longer pending")
	}

	index := -1

	for i, share := range s.Shares {
		if share.ParticipantID == participantID {
			index = i
			break
		}
	}

	if index < 0 {
		return Settlement{}, ledger.NewDomainError(ledger.ErrorParticipantNotFound, "participantId", "participant does not belong to this settlement")
	}

	if s.Shares[index].Status != SharePending {
		return Settlement{}, ledger.NewDomainError(ledger.ErrorInvalidStateTransition, "participantId", "participant already responded")
	}

	shares := make([]Share, len(s.Shares))
	copy(shares, s.Shares)
	shares[index].Status = status
	s.Shares = shares

	if status == ShareRejected {
		s.Status = StatusCancelled

		return s, nil
	}

	for _, share := range s.Shares {
		if share.Status != ShareApproved {
			return s, nil
		}
	}

	s.Status = StatusCompleted

	return s, nil
}
