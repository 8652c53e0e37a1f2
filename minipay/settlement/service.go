package settlement

import (
	"context"

	"github.com/Tiel0043/projecthub/minipay/ledger"
	"github.com/Tiel0043/projecthub/minipay/log"
	"github.com/Tiel0043/projecthub/minipay/optimistic"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Store is the persistence contract for settlement aggregates.
type Store interface {
	// Settlement loads a settlement by id, failing with
	// ErrorSettlementNotFound when it does not exist.
	Settlement(ctx context.Context, id uuid.UUID) (Settlement, error)
	// CreateSettlement persists a new aggregate with its shares.
	CreateSettlement(ctx context.Context, s Settlement) error
	// SaveSettlement persists a mutated aggregate only while the stored
	// version equals expectedVersion, returning ledger.ErrVersionConflict
	// otherwise.
	SaveSettlement(ctx context.Context, s Settlement, expectedVersion int64) error
}

// Service creates settlements and applies participant responses.
type Service struct {
	store  Store
	clock  ledger.Clock
	rand   ledger.Rand
	guard  *optimistic.Guard
	logger log.Logger
}

// NewService creates a settlement service. Nil clock and rand fall back to
// the system implementations.
func NewService(store Store, clock ledger.Clock, source ledger.Rand) *Service {
	if clock == nil {
		clock = ledger.SystemClock{}
	}

	if source == nil {
		source = ledger.SystemRand{}
	}

	return &Service{
		store:  store,
		clock:  clock,
		rand:   source,
		guard:  optimistic.NewGuard(optimistic.DefaultMaxAttempts),
		logger: log.NewNop(),
	}
}

// WithGuard configures the optimistic retry guard for response races.
func (s *Service) WithGuard(guard *optimistic.Guard) *Service {
	if guard != nil {
		s.guard = guard
	}

	return s
}

// WithLogger configures structured logging.
func (s *Service) WithLogger(logger log.Logger) *Service {
	s.logger = log.OrNop(logger)

	return s
}

// Create allocates shares for the participants under the policy and persists
// the settlement. The allocation itself is pure; persistence is a single
// create, so no retry loop is involved.
func (s *Service) Create(ctx context.Context, requesterID uuid.UUID, totalAmount decimal.Decimal, participantIDs []uuid.UUID, policy Policy) (Settlement, error) {
	if len(participantIDs) == 0 {
		return Settlement{}, ledger.NewDomainError(ledger.ErrorInvalidParticipantCount, "participantIds", "at least one participant is required")
	}

	seen := make(map[uuid.UUID]struct{}, len(participantIDs))
	for _, id := range participantIDs {
		if _, dup := seen[id]; dup {
			return Settlement{}, ledger.NewDomainError(ledger.ErrorInvalidInput, "participantIds", "duplicate participant")
		}

		seen[id] = struct{}{}
	}

	amounts, err := Allocate(totalAmount, len(participantIDs), policy, s.rand)
	if err != nil {
		return Settlement{}, err
	}

	created := newSettlement(requesterID, totalAmount, policy, participantIDs, amounts, s.clock)
	if err := s.store.CreateSettlement(ctx, created); err != nil {
		return Settlement{}, err
	}

	s.logger.Log(ctx, log.LevelInfo, "settlement created",
		log.String("settlement_id", created.ID.String()),
		log.String("policy", string(policy)),
		log.Int("participants", len(participantIDs)),
		log.String("total", totalAmount.String()),
	)

	return created, nil
}

// Get loads a settlement by id.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (Settlement, error) {
	return s.store.Settlement(ctx, id)
}

// ApproveShare records a participant's approval. When the last pending share
// is approved the settlement completes.
func (s *Service) ApproveShare(ctx context.Context, settlementID, participantID uuid.UUID) (Settlement, error) {
	return s.respond(ctx, settlementID, participantID, ShareApproved)
}

// RejectShare records a participant's rejection, cancelling the settlement.
func (s *Service) RejectShare(ctx context.Context, settlementID, participantID uuid.UUID) (Settlement, error) {
	return s.respond(ctx, settlementID, participantID, ShareRejected)
}

func (s *Service) respond(ctx context.Context, settlementID, participantID uuid.UUID, status ShareStatus) (Settlement, error) {
	type state struct {
		settlement Settlement
		loaded     int64
	}

	saved, err := optimistic.Execute(ctx, s.guard,
		func(ctx context.Context) (state, error) {
			current, err := s.store.Settlement(ctx, settlementID)
			if err != nil {
				return state{}, err
			}

			return state{settlement: current, loaded: current.Version}, nil
		},
		func(st state) (state, error) {
			mutated, err := st.settlement.respond(participantID, status)
			if err != nil {
				return state{}, err
			}

			st.settlement = mutated

			return st, nil
		},
		func(ctx context.Context, st state) error {
			return s.store.SaveSettlement(ctx, st.settlement, st.loaded)
		},
	)
	if err != nil {
		return Settlement{}, err
	}

	s.logger.Log(ctx, log.LevelInfo, "settlement share responded",
		log.String("settlement_id", settlementID.String()),
		log.String("participant_id", participantID.String()),
		log.String("response", string(status)),
		log.String("settlement_status", string(saved.settlement.Status)),
	)

	return saved.settlement, nil
}
