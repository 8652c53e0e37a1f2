package memory

import (
	"context"
	"sync"

	"github.com/Tiel0043/projecthub/minipay/ledger"
	"github.com/Tiel0043/projecthub/minipay/settlement"
	"github.com/Tiel0043/projecthub/minipay/user"
	"github.com/google/uuid"
)

// Store keeps all minipay state in process memory behind a single mutex.
type Store struct {
	mu          sync.RWMutex
	accounts    map[uuid.UUID]ledger.Account
	records     []ledger.TransactionRecord
	settlements map[uuid.UUID]settlement.Settlement
	users       map[uuid.UUID]user.User
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		accounts:    make(map[uuid.UUID]ledger.Account),
		settlements: make(map[uuid.UUID]settlement.Settlement),
		users:       make(map[uuid.UUID]user.User),
	}
}

// ---------------------------------------------------------------------------
// Accounts
// ---------------------------------------------------------------------------

// Account loads an account by id.
func (s *Store) Account(_ context.Context, id uuid.UUID) (ledger.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	account, ok := s.accounts[id]
	if !ok {
		return ledger.Account{}, ledger.NewDomainError(ledger.ErrorAccountNotFound, "id", "account not found")
	}

	return account, nil
}

// CreateAccount persists a new account at version zero.
func (s *Store) CreateAccount(_ context.Context, account ledger.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.accounts[account.ID]; exists {
		return ledger.NewDomainError(ledger.ErrorInvalidInput, "id", "account already exists")
	}

	account.Version = 0
	s.accounts[account.ID] = account

	return nil
}

// SaveAccounts applies all updates atomically under one lock: versions are
// checked first, then every account is written with its version incremented.
// A single stale version fails the whole batch.
func (s *Store) SaveAccounts(_ context.Context, updates ...ledger.AccountUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, update := range updates {
		current, ok := s.accounts[update.Account.ID]
		if !ok {
			return ledger.NewDomainError(ledger.ErrorAccountNotFound, "id", "account not found")
		}

		if current.Version != update.ExpectedVersion {
			return ledger.ErrVersionConflict
		}
	}

	for _, update := range updates {
		account := update.Account
		account.Version = update.ExpectedVersion + 1
		s.accounts[account.ID] = account
	}

	return nil
}

// AccountsByUser returns the user's accounts in unspecified order.
func (s *Store) AccountsByUser(_ context.Context, userID uuid.UUID) ([]ledger.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var accounts []ledger.Account

	for _, account := range s.accounts {
		if account.UserID == userID {
			accounts = append(accounts, account)
		}
	}

	return accounts, nil
}

// ---------------------------------------------------------------------------
// Transaction log
// ---------------------------------------------------------------------------

// Append adds a record to the log. Records are never mutated or removed.
func (s *Store) Append(_ context.Context, record ledger.TransactionRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records = append(s.records, record)

	return nil
}

// RecordsByAccount returns the records touching an account, oldest first.
func (s *Store) RecordsByAccount(_ context.Context, accountID uuid.UUID) ([]ledger.TransactionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var records []ledger.TransactionRecord

	for _, record := range s.records {
		if record.FromAccountID == accountID || record.ToAccountID == accountID {
			records = append(records, record)
		}
	}

	return records, nil
}

// ---------------------------------------------------------------------------
// Settlements
// ---------------------------------------------------------------------------

// Settlement loads a settlement by id.
func (s *Store) Settlement(_ context.Context, id uuid.UUID) (settlement.Settlement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stored, ok := s.settlements[id]
	if !ok {
		return settlement.Settlement{}, ledger.NewDomainError(ledger.ErrorSettlementNotFound, "id", "settlement not found")
	}

	return stored, nil
}

// CreateSettlement persists a new settlement aggregate at version zero.
func (s *Store) CreateSettlement(_ context.Context, stored settlement.Settlement) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.settlements[stored.ID]; exists {
		return ledger.NewDomainError(ledger.ErrorInvalidInput, "id", "settlement already exists")
	}

	stored.Version = 0
	s.settlements[stored.ID] = stored

	return nil
}

// SaveSettlement persists a mutated settlement conditionally on its version.
func (s *Store) SaveSettlement(_ context.Context, stored settlement.Settlement, expectedVersion int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.settlements[stored.ID]
	if !ok {
		return ledger.NewDomainError(ledger.ErrorSettlementNotFound, "id", "settlement not found")
	}

	if current.Version != expectedVersion {
		return ledger.ErrVersionConflict
	}

	stored.Version = expectedVersion + 1
	s.settlements[stored.ID] = stored

	return nil
}

// ---------------------------------------------------------------------------
// Users
// ---------------------------------------------------------------------------

// User loads a user by id.
func (s *Store) User(_ context.Context, id uuid.UUID) (user.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stored, ok := s.users[id]
	if !ok {
		return user.User{}, ledger.NewDomainError(ledger.ErrorUserNotFound, "id", "user not found")
	}

	return stored, nil
}

// CreateUser persists a new user.
func (s *Store) CreateUser(_ context.Context, stored user.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.users[stored.ID]; exists {
		return ledger.NewDomainError(ledger.ErrorInvalidInput, "id", "user already exists")
	}

	s.users[stored.ID] = stored

	return nil
}
