package transfer

import (
	"context"

	"github.com/Tiel0043/projecthub/minipay/ledger"
	"github.com/google/uuid"
)

// AccountStore is the persistence contract the engine mutates accounts
// through. Accounts are the only shared mutable state in the core and no
// other code path may write balance or limit fields.
type AccountStore interface {
	// Account loads an account by id, failing with ErrorAccountNotFound
	// when it does not exist.
	Account(ctx context.Context, id uuid.UUID) (ledger.Account, error)
	// CreateAccount persists a new account at version zero.
	CreateAccount(ctx context.Context, account ledger.Account) error
	// SaveAccounts applies the updates atomically: every account is
	// persisted with its version incremented, or none is. Any update whose
	// expected version no longer matches fails the whole batch with
	// ledger.ErrVersionConflict.
	SaveAccounts(ctx context.Context, updates ...ledger.AccountUpdate) error
}

// TransactionLog is the append-only movement log.
type TransactionLog interface {
	Append(ctx context.Context, record ledger.TransactionRecord) error
}
