package memory

import (
	"context"
	"testing"

	"github.com/Tiel0043/projecthub/minipay/ledger"
	"github.com/Tiel0043/projecthub/minipay/settlement"
	"github.com/Tiel0043/projecthub/minipay/user"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAccount(balance int64) ledger.Account {
	account := ledger.NewAccount(uuid.New(), ledger.KindMain, ledger.SystemClock{})
	account.Balance = decimal.NewFromInt(balance)

	return account
}

func TestAccountCRUD(t *testing.T) {
	ctx := context.Background()
	store := NewStore()

	t.Run("missing account", func(t *testing.T) {
		_, err := store.Account(ctx, uuid.New())
		require.Error(t, err)
		assert.Equal(t, ledger.ErrorAccountNotFound, ledger.CodeOf(err))
	})

	t.Run("create then load", func(t *testing.T) {
		account := newAccount(1_000)
		require.NoError(t, store.CreateAccount(ctx, account))

		loaded, err := store.Account(ctx, account.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(0), loaded.Version)
		assert.True(t, loaded.Balance.Equal(decimal.NewFromInt(1_000)))
	})

	t.Run("duplicate create rejected", func(t *testing.T) {
		account := newAccount(0)
		require.NoError(t, store.CreateAccount(ctx, account))

		err := store.CreateAccount(ctx, account)
		require.Error(t, err)
		assert.Equal(t, ledger.ErrorInvalidInput, ledger.CodeOf(err))
	})

	t.Run("accounts by user", func(t *testing.T) {
		userID := uuid.New()
		main := ledger.NewAccount(userID, ledger.KindMain, ledger.SystemClock{})
		savings := ledger.NewAccount(userID, ledger.KindSavings, ledger.SystemClock{})
		require.NoError(t, store.CreateAccount(ctx, main))
		require.NoError(t, store.CreateAccount(ctx, savings))

		accounts, err := store.AccountsByUser(ctx, userID)
		require.NoError(t, err)
		assert.Len(t, accounts, 2)
	})
}

func TestSaveAccountsVersioning(t *testing.T) {
	ctx := context.Background()

	t.Run("save increments the version", func(t *testing.T) {
		store := NewStore()
		account := newAccount(1_000)
		require.NoError(t, store.CreateAccount(ctx, account))

		account.Balance = decimal.NewFromInt(900)
		require.NoError(t, store.SaveAccounts(ctx, ledger.AccountUpdate{Account: account, ExpectedVersion: 0}))

		loaded, err := store.Account(ctx, account.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(1), loaded.Version)
		assert.True(t, loaded.Balance.Equal(decimal.NewFromInt(900)))
	})

	t.Run("stale version is rejected", func(t *testing.T) {
		store := NewStore()
		account := newAccount(1_000)
		require.NoError(t, store.CreateAccount(ctx, account))
		require.NoError(t, store.SaveAccounts(ctx, ledger.AccountUpdate{Account: account, ExpectedVersion: 0}))

		account.Balance = decimal.NewFromInt(1)
		err := store.SaveAccounts(ctx, ledger.AccountUpdate{Account: account, ExpectedVersion: 0})
		require.ErrorIs(t, err, ledger.ErrVersionConflict)

		loaded, err := store.Account(ctx, account.ID)
		require.NoError(t, err)
		assert.True(t, loaded.Balance.Equal(decimal.NewFromInt(1_000)))
	})

	t.Run("batch is all or nothing", func(t *testing.T) {
		store := NewStore()
		first := newAccount(500)
		second := newAccount(500)
		require.NoError(t, store.CreateAccount(ctx, first))
		require.NoError(t, store.CreateAccount(ctx, second))

		// Bump second so the batch carries one fresh and one stale version.
		require.NoError(t, store.SaveAccounts(ctx, ledger.AccountUpdate{Account: second, ExpectedVersion: 0}))

		first.Balance = decimal.Zero
		second.Balance = decimal.NewFromInt(1_000)

		err := store.SaveAccounts(ctx,
			ledger.AccountUpdate{Account: first, ExpectedVersion: 0},
			ledger.AccountUpdate{Account: second, ExpectedVersion: 0},
		)
		require.ErrorIs(t, err, ledger.ErrVersionConflict)

		// The valid half of the batch must not have been applied.
		loaded, err := store.Account(ctx, first.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(0), loaded.Version)
		assert.True(t, loaded.Balance.Equal(decimal.NewFromInt(500)))
	})

	t.Run("unknown account fails the batch", func(t *testing.T) {
		store := NewStore()
		ghost := newAccount(0)

		err := store.SaveAccounts(ctx, ledger.AccountUpdate{Account: ghost, ExpectedVersion: 0})
		require.Error(t, err)
		assert.Equal(t, ledger.ErrorAccountNotFound, ledger.CodeOf(err))
	})
}

func TestTransactionLog(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	clock := ledger.SystemClock{}

	a, b, c := uuid.New(), uuid.New(), uuid.New()

	first := ledger.NewTransactionRecord(ledger.KindTransfer, a, b, decimal.NewFromInt(100), "transfer", clock)
	second := ledger.NewTransactionRecord(ledger.KindTransfer, b, c, decimal.NewFromInt(50), "transfer", clock)
	third := ledger.NewTransactionRecord(ledger.KindDeposit, uuid.Nil, a, decimal.NewFromInt(10), "deposit", clock)

	require.NoError(t, store.Append(ctx, first))
	require.NoError(t, store.Append(ctx, second))
	require.NoError(t, store.Append(ctx, third))

	records, err := store.RecordsByAccount(ctx, a)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, first.ID, records[0].ID)
	assert.Equal(t, third.ID, records[1].ID)

	records, err = store.RecordsByAccount(ctx, b)
	require.NoError(t, err)
	assert.Len(t, records, 2)

	records, err = store.RecordsByAccount(ctx, uuid.New())
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestSettlementStore(t *testing.T) {
	ctx := context.Background()
	store := NewStore()

	svc := settlement.NewService(store, ledger.SystemClock{}, ledger.SystemRand{})
	created, err := svc.Create(ctx, uuid.New(), decimal.NewFromInt(900),
		[]uuid.UUID{uuid.New(), uuid.New(), uuid.New()}, settlement.PolicyEqual)
	require.NoError(t, err)

	t.Run("load", func(t *testing.T) {
		loaded, err := store.Settlement(ctx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(0), loaded.Version)
		assert.Len(t, loaded.Shares, 3)
	})

	t.Run("missing settlement", func(t *testing.T) {
		_, err := store.Settlement(ctx, uuid.New())
		require.Error(t, err)
		assert.Equal(t, ledger.ErrorSettlementNotFound, ledger.CodeOf(err))
	})

	t.Run("conditional save", func(t *testing.T) {
		loaded, err := store.Settlement(ctx, created.ID)
		require.NoError(t, err)

		require.NoError(t, store.SaveSettlement(ctx, loaded, 0))
		require.ErrorIs(t, store.SaveSettlement(ctx, loaded, 0), ledger.ErrVersionConflict)
	})
}

func TestUserStore(t *testing.T) {
	ctx := context.Background()
	store := NewStore()

	stored := user.User{ID: uuid.New(), Username: "mina"}
	require.NoError(t, store.CreateUser(ctx, stored))

	loaded, err := store.User(ctx, stored.ID)
	require.NoError(t, err)
	assert.Equal(t, "mina", loaded.Username)

	err = store.CreateUser(ctx, stored)
	require.Error(t, err)
	assert.Equal(t, ledger.ErrorInvalidInput, ledger.CodeOf(err))

	_, err = store.User(ctx, uuid.New())
	require.Error(t, err)
	assert.Equal(t, ledger.ErrorUserNotFound, ledger.CodeOf(err))
}
