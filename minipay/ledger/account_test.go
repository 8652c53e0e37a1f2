package ledger

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedClock struct {
	now time.Time
}

func (c fixedClock) Now() time.Time   { return c.now }
func (c fixedClock) Today() time.Time { return DateOf(c.now) }

// ---------------------------------------------------------------------------
// NewAccount
// ---------------------------------------------------------------------------

func TestNewAccount(t *testing.T) {
	clock := fixedClock{now: time.Date(2024, 6, 1, 10, 30, 0, 0, time.UTC)}
	userID := uuid.New()

	t.Run("main account carries the default daily limit", func(t *testing.T) {
		account := NewAccount(userID, KindMain, clock)

		assert.Equal(t, userID, account.UserID)
		assert.Equal(t, KindMain, account.Kind)
		assert.True(t, account.Balance.IsZero())
		assert.Equal(t, int64(0), account.Version)
		assert.True(t, account.Limit.Max.Equal(DefaultDailyLimit))
		assert.Equal(t, time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC), account.Limit.PeriodDate)
		assert.True(t, account.Limited())
	})

	t.Run("savings account has no daily limit", func(t *testing.T) {
		account := NewAccount(userID, KindSavings, clock)

		assert.Equal(t, KindSavings, account.Kind)
		assert.True(t, account.Limit.Max.IsZero())
		assert.False(t, account.Limited())
	})
}

// ---------------------------------------------------------------------------
// ApplyDeposit / ApplyWithdraw
// ---------------------------------------------------------------------------

func TestApplyDeposit(t *testing.T) {
	account := Account{Balance: decimal.NewFromInt(1_000)}

	tests := []struct {
		name      string
		amount    decimal.Decimal
		expected  decimal.Decimal
		errorCode ErrorCode
	}{
		{name: "credit increases balance", amount: decimal.NewFromInt(500), expected: decimal.NewFromInt(1_500)},
		{name: "zero amount rejected", amount: decimal.Zero, errorCode: ErrorInvalidInput},
		{name: "negative amount rejected", amount: decimal.NewFromInt(-1), errorCode: ErrorInvalidInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ApplyDeposit(account, tt.amount)

			if tt.errorCode != "" {
				require.Error(t, err)
				assert.Equal(t, tt.errorCode, CodeOf(err))

				return
			}

			require.NoError(t, err)
			assert.True(t, got.Balance.Equal(tt.expected))
			// Input value is untouched.
			assert.True(t, account.Balance.Equal(decimal.NewFromInt(1_000)))
		})
	}
}

func TestApplyWithdraw(t *testing.T) {
	account := Account{Balance: decimal.NewFromInt(1_000)}

	tests := []struct {
		name      string
		amount    decimal.Decimal
		expected  decimal.Decimal
		errorCode ErrorCode
	}{
		{name: "debit decreases balance", amount: decimal.NewFromInt(400), expected: decimal.NewFromInt(600)},
		{name: "exact balance drains to zero", amount: decimal.NewFromInt(1_000), expected: decimal.Zero},
		{name: "overdraft rejected", amount: decimal.NewFromInt(1_001), errorCode: ErrorInsufficientBalance},
		{name: "zero amount rejected", amount: decimal.Zero, errorCode: ErrorInvalidInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ApplyWithdraw(account, tt.amount)

			if tt.errorCode != "" {
				require.Error(t, err)
				assert.Equal(t, tt.errorCode, CodeOf(err))

				return
			}

			require.NoError(t, err)
			assert.True(t, got.Balance.Equal(tt.expected))
			assert.False(t, got.Balance.IsNegative())
		})
	}
}

// ---------------------------------------------------------------------------
// DomainError
// ---------------------------------------------------------------------------

func TestDomainError(t *testing.T) {
	t.Run("formats code, message, and field", func(t *testing.T) {
		err := NewDomainError(ErrorAccountNotFound, "fromId", "account not found")
		assert.Equal(t, "0001: account not found (fromId)", err.Error())
	})

	t.Run("omits empty field", func(t *testing.T) {
		err := NewDomainError(ErrorOptimisticConflict, "", "retries exhausted")
		assert.Equal(t, "0005: retries exhausted", err.Error())
	})

	t.Run("CodeOf unwraps nested errors", func(t *testing.T) {
		wrapped := errorsJoin(NewDomainError(ErrorDailyLimitExceeded, "amount", "ceiling reached"))
		assert.Equal(t, ErrorDailyLimitExceeded, CodeOf(wrapped))
		assert.Equal(t, ErrorCode(""), CodeOf(errors.New("plain")))
	})
}

func errorsJoin(err error) error {
	return errors.Join(errors.New("outer"), err)
}

// ---------------------------------------------------------------------------
// TransactionRecord lifecycle
// ---------------------------------------------------------------------------

func TestTransactionRecordLifecycle(t *testing.T) {
	clock := fixedClock{now: time.Date(2024, 6, 1, 10, 30, 0, 0, time.UTC)}

	record := NewTransactionRecord(KindTransfer, uuid.New(), uuid.New(), decimal.NewFromInt(500), "p2p", clock)
	assert.Equal(t, StatusCompleted, record.Status)
	assert.Equal(t, clock.now, record.CreatedAt)

	_, err := record.Cancel()
	require.Error(t, err)
	assert.Equal(t, ErrorInvalidStateTransition, CodeOf(err))

	record.Status = StatusPending

	cancelled, err := record.Cancel()
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, cancelled.Status)

	completed, err := record.Complete()
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, completed.Status)
}
