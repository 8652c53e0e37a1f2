package user

import (
	"context"
	"strings"
	"time"

	"github.com/Tiel0043/projecthub/minipay/ledger"
	"github.com/Tiel0043/projecthub/minipay/log"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// User owns one MAIN account and any number of SAVINGS accounts.
type User struct {
	ID        uuid.UUID `json:"id"`
	Username  string    `json:"username"`
	CreatedAt time.Time `json:"createdAt"`
}

// Store is the persistence contract for users and their accounts.
type Store interface {
	// User loads a user by id, failing with ErrorUserNotFound when it does
	// not exist.
	User(ctx context.Context, id uuid.UUID) (User, error)
	// CreateUser persists a new user.
	CreateUser(ctx context.Context, u User) error
	// CreateAccount persists a new account at version zero.
	CreateAccount(ctx context.Context, account ledger.Account) error
	// AccountsByUser returns the user's accounts.
	AccountsByUser(ctx context.Context, userID uuid.UUID) ([]ledger.Account, error)
}

// Service registers users and creates their accounts.
type Service struct {
	store      Store
	clock      ledger.Clock
	logger     log.Logger
	dailyLimit decimal.Decimal
}

// NewService creates a user service. A nil clock falls back to the system
// clock.
func NewService(store Store, clock ledger.Clock) *Service {
	if clock == nil {
		clock = ledger.SystemClock{}
	}

	return &Service{store: store, clock: clock, logger: log.NewNop(), dailyLimit: ledger.DefaultDailyLimit}
}

// WithLogger configures structured logging.
func (s *Service) WithLogger(logger log.Logger) *Service {
	s.logger = log.OrNop(logger)

	return s
}

// WithDailyLimit overrides the daily debit ceiling applied to new MAIN
// accounts.
func (s *Service) WithDailyLimit(max decimal.Decimal) *Service {
	if max.IsPositive() {
		s.dailyLimit = max
	}

	return s
}

// Register creates a user together with their MAIN account.
func (s *Service) Register(ctx context.Context, username string) (User, ledger.Account, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return User{}, ledger.Account{}, ledger.NewDomainError(ledger.ErrorInvalidInput, "username", "username is required")
	}

	created := User{ID: uuid.New(), Username: username, CreatedAt: s.clock.Now()}
	if err := s.store.CreateUser(ctx, created); err != nil {
		return User{}, ledger.Account{}, err
	}

	account := ledger.NewAccount(created.ID, ledger.KindMain, s.clock)
	account.Limit.Max = s.dailyLimit

	if err := s.store.CreateAccount(ctx, account); err != nil {
		return User{}, ledger.Account{}, err
	}

	s.logger.Log(ctx, log.LevelInfo, "user registered",
		log.String("user_id", created.ID.String()),
		log.String("main_account_id", account.ID.String()),
	)

	return created, account, nil
}

// CreateSavingsAccount creates an additional SAVINGS account for the user.
func (s *Service) CreateSavingsAccount(ctx context.Context, userID uuid.UUID) (ledger.Account, error) {
	if _, err := s.store.User(ctx, userID); err != nil {
		return ledger.Account{}, err
	}

	account := ledger.NewAccount(userID, ledger.KindSavings, s.clock)
	if err := s.store.CreateAccount(ctx, account); err != nil {
		return ledger.Account{}, err
	}

	s.logger.Log(ctx, log.LevelInfo, "savings account created",
		log.String("user_id", userID.String()),
		log.String("account_id", account.ID.String()),
	)

	return account, nil
}

// Accounts returns the user's accounts.
func (s *Service) Accounts(ctx context.Context, userID uuid.UUID) ([]ledger.Account, error) {
	if _, err := s.store.User(ctx, userID); err != nil {
		return nil, err
	}

	return s.store.AccountsByUser(ctx, userID)
}
