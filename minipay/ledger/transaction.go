package ledger

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TransactionKind classifies a movement of money.
type TransactionKind string

const (
	// KindDeposit credits a single account from outside the ledger.
	KindDeposit TransactionKind = "DEPOSIT"
	// KindWithdraw debits a single account toward outside the ledger.
	KindWithdraw TransactionKind = "WITHDRAW"
	// KindTransfer moves money between two ledger accounts.
	KindTransfer TransactionKind = "TRANSFER"
	// KindTopUp is the named auto-replenishment credit applied when a
	// transfer source cannot cover the amount. It is recorded explicitly
	// rather than hidden inside the transfer.
	KindTopUp TransactionKind = "TOPUP"
)

// TransactionStatus represents the lifecycle state of a transaction record.
//
// Transitions:
//
//	PENDING → COMPLETED | CANCELLED
type TransactionStatus string

const (
	// StatusPending marks a record as created but not yet settled.
	StatusPending TransactionStatus = "PENDING"
	// StatusCompleted marks a record as settled; terminal.
	StatusCompleted TransactionStatus = "COMPLETED"
	// StatusCancelled marks a record as rolled back; terminal.
	StatusCancelled TransactionStatus = "CANCELLED"
)

// TransactionRecord is the append-only log entry for a committed movement.
// Records are never mutated after creation except for the status transition
// and are never deleted.
type TransactionRecord struct {
	ID            uuid.UUID         `json:"id"`
	Kind          TransactionKind   `json:"kind"`
	FromAccountID uuid.UUID         `json:"fromAccountId,omitempty"`
	ToAccountID   uuid.UUID         `json:"toAccountId,omitempty"`
	Amount        decimal.Decimal   `json:"amount"`
	Description   string            `json:"description,omitempty"`
	Status        TransactionStatus `json:"status"`
	CreatedAt     time.Time         `json:"createdAt"`
}

// NewTransactionRecord creates a record in COMPLETED status. minipay appends
// records only after the guarded account writes have committed, so there is
// no observable PENDING window for the core operations.
func NewTransactionRecord(kind TransactionKind, from, to uuid.UUID, amount decimal.Decimal, description string, clock Clock) TransactionRecord {
	return TransactionRecord{
		ID:            uuid.New(),
		Kind:          kind,
		FromAccountID: from,
		ToAccountID:   to,
		Amount:        amount,
		Description:   description,
		Status:        StatusCompleted,
		CreatedAt:     clock.Now(),
	}
}

// Cancel transitions the record to CANCELLED. Only PENDING records can be
// cancelled.
func (r TransactionRecord) Cancel() (TransactionRecord, error) {
	if r.Status != StatusPending {
		return TransactionRecord{}, NewDomainError(ErrorInvalidStateTransition, "status", "only PENDING transactions can be cancelled")
	}

	r.Status = StatusCancelled

	return r, nil
}

// Complete transitions the record to COMPLETED. Only PENDING records can be
// completed.
func (r TransactionRecord) Complete() (TransactionRecord, error) {
	if r.Status != StatusPending {
		return TransactionRecord{}, NewDomainError(ErrorInvalidStateTransition, "status", "only PENDING transactions can be completed")
	}

	r.Status = StatusCompleted

	return r, nil
}
