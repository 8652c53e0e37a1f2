package limits

import (
	"fmt"

	"github.com/Tiel0043/projecthub/minipay/ledger"
	"github.com/shopspring/decimal"
)

// Tracker checks and consumes daily usage against an account's ceiling.
type Tracker struct {
	clock ledger.Clock
}

// NewTracker creates a tracker reading dates from clock. A nil clock falls
// back to the system clock.
func NewTracker(clock ledger.Clock) *Tracker {
	if clock == nil {
		clock = ledger.SystemClock{}
	}

	return &Tracker{clock: clock}
}

// CheckAndConsume authorizes amount against the account's daily limit and
// returns the account with the usage consumed.
//
// When the stored period date falls behind the current date the usage is
// reset to zero before the check; the reset happens exactly once per day
// because the updated state only becomes visible through the same
// version-guarded write as the balance it accompanies.
//
// On rejection the returned error carries ErrorDailyLimitExceeded and the
// input account is returned unchanged.
func (t *Tracker) CheckAndConsume(account ledger.Account, amount decimal.Decimal) (ledger.Account, error) {
	if !amount.IsPositive() {
		return account, ledger.NewDomainError(ledger.ErrorInvalidInput, "amount", "amount must be greater than zero")
	}

	today := t.clock.Today()

	limit := account.Limit
	if limit.PeriodDate.Before(today) {
		limit.Used = decimal.Zero
		limit.PeriodDate = today
	}

	used := limit.Used.Add(amount)
	if used.GreaterThan(limit.Max) {
		return account, ledger.NewDomainError(
			ledger.ErrorDailyLimitExceeded,
			"amount",
			fmt.Sprintf("daily limit exceeded: used=%s requested=%s max=%s", limit.Used, amount, limit.Max),
		)
	}

	limit.Used = used
	account.Limit = limit

	return account, nil
}

// Remaining reports how much of the ceiling is still available today. A
// period date behind the current date counts as a full ceiling.
func (t *Tracker) Remaining(account ledger.Account) decimal.Decimal {
	limit := account.Limit
	if limit.PeriodDate.Before(t.clock.Today()) {
		return limit.Max
	}

	remaining := limit.Max.Sub(limit.Used)
	if remaining.IsNegative() {
		return decimal.Zero
	}

	return remaining
}
