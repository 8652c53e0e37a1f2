package ledger

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AccountKind classifies accounts by business role.
type AccountKind string

const (
	// KindMain identifies the primary spending account, subject to the daily limit.
	KindMain AccountKind = "MAIN"
	// KindSavings identifies the secondary savings account.
	KindSavings AccountKind = "SAVINGS"
)

// DefaultDailyLimit is the daily usage ceiling applied to new MAIN accounts,
// in minor units.
var DefaultDailyLimit = decimal.NewFromInt(3_000_000)

// DailyLimit is the date-scoped usage state persisted together with its
// account. Used only ever increases within a period and resets to zero
// exactly once when PeriodDate falls behind the current date.
type DailyLimit struct {
	Used       decimal.Decimal `json:"used"`
	Max        decimal.Decimal `json:"max"`
	PeriodDate time.Time       `json:"periodDate"`
}

// Account is the versioned balance record. Balance never goes negative;
// Version increases by one on every committed store mutation and is the
// compare-and-swap pivot for optimistic concurrency.
type Account struct {
	ID        uuid.UUID       `json:"id"`
	UserID    uuid.UUID       `json:"userId"`
	Kind      AccountKind     `json:"kind"`
	Balance   decimal.Decimal `json:"balance"`
	Version   int64           `json:"version"`
	Limit     DailyLimit      `json:"limit"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

// NewAccount creates an account for a user with a zero balance and, for MAIN
// accounts, the default daily limit starting today.
func NewAccount(userID uuid.UUID, kind AccountKind, clock Clock) Account {
	now := clock.Now()

	account := Account{
		ID:        uuid.New(),
		UserID:    userID,
		Kind:      kind,
		Balance:   decimal.Zero,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if kind == KindMain {
		account.Limit = DailyLimit{
			Used:       decimal.Zero,
			Max:        DefaultDailyLimit,
			PeriodDate: clock.Today(),
		}
	}

	return account
}

// Limited reports whether the account kind is subject to the daily limit.
func (a Account) Limited() bool {
	return a.Kind == KindMain
}

// ApplyDeposit returns a copy of the account with amount credited.
func ApplyDeposit(account Account, amount decimal.Decimal) (Account, error) {
	if !amount.IsPositive() {
		return Account{}, NewDomainError(ErrorInvalidInput, "amount", "amount must be greater than zero")
	}

	account.Balance = account.Balance.Add(amount)

	return account, nil
}

// ApplyWithdraw returns a copy of the account with amount debited. It fails
// with ErrorInsufficientBalance when the debit would take the balance below
// zero; the input account is never mutated.
func ApplyWithdraw(account Account, amount decimal.Decimal) (Account, error) {
	if !amount.IsPositive() {
		return Account{}, NewDomainError(ErrorInvalidInput, "amount", "amount must be greater than zero")
	}

	remaining := account.Balance.Sub(amount)
	if remaining.IsNegative() {
		return Account{}, NewDomainError(ErrorInsufficientBalance, "amount", "withdrawal would result in negative balance")
	}

	account.Balance = remaining

	return account, nil
}

// AccountUpdate pairs a mutated account with the version observed at load
// time. Stores must apply every update in a batch atomically or none at all.
type AccountUpdate struct {
	Account         Account
	ExpectedVersion int64
}
