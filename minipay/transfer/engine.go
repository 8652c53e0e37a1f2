package transfer

import (
	"context"
	"fmt"

	"github.com/Tiel0043/projecthub/minipay/ledger"
	"github.com/Tiel0043/projecthub/minipay/limits"
	"github.com/Tiel0043/projecthub/minipay/log"
	"github.com/Tiel0043/projecthub/minipay/optimistic"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PairingPolicy governs which account-kind pairings may transact.
//
// The historical rule was ambiguous (some revisions allowed only same-kind
// transfers, others only MAIN↔SAVINGS), so the policy is an explicit engine
// option rather than a hard-coded check.
type PairingPolicy string

const (
	// PairingAny allows transfers between any account kinds. Default.
	PairingAny PairingPolicy = "ANY"
	// PairingSameKind allows transfers only between accounts of the same kind.
	PairingSameKind PairingPolicy = "SAME_KIND"
)

// DefaultTopUpUnit is the replenishment granularity in minor units: a
// shortfall is covered by the smallest multiple of this unit that restores a
// sufficient balance.
var DefaultTopUpUnit = decimal.NewFromInt(10_000)

// Engine executes guarded balance mutations against the account store.
type Engine struct {
	accounts  AccountStore
	records   TransactionLog
	limiter   *limits.Tracker
	clock     ledger.Clock
	guard     *optimistic.Guard
	logger    log.Logger
	pairing   PairingPolicy
	topUpUnit decimal.Decimal
}

// NewEngine creates an engine with the default pairing policy, top-up unit,
// and retry bound. A nil clock falls back to the system clock.
func NewEngine(accounts AccountStore, records TransactionLog, clock ledger.Clock) *Engine {
	if clock == nil {
		clock = ledger.SystemClock{}
	}

	return &Engine{
		accounts:  accounts,
		records:   records,
		limiter:   limits.NewTracker(clock),
		clock:     clock,
		guard:     optimistic.NewGuard(optimistic.DefaultMaxAttempts),
		logger:    log.NewNop(),
		pairing:   PairingAny,
		topUpUnit: DefaultTopUpUnit,
	}
}

// WithGuard configures the optimistic retry guard.
func (e *Engine) WithGuard(guard *optimistic.Guard) *Engine {
	if guard != nil {
		e.guard = guard
	}

	return e
}

// WithLogger configures structured logging.
func (e *Engine) WithLogger(logger log.Logger) *Engine {
	e.logger = log.OrNop(logger)

	return e
}

// WithPairingPolicy configures which account-kind pairings may transact.
func (e *Engine) WithPairingPolicy(policy PairingPolicy) *Engine {
	e.pairing = policy

	return e
}

// WithTopUpUnit configures the auto-replenishment granularity.
func (e *Engine) WithTopUpUnit(unit decimal.Decimal) *Engine {
	if unit.IsPositive() {
		e.topUpUnit = unit
	}

	return e
}

// Account loads an account by id.
func (e *Engine) Account(ctx context.Context, id uuid.UUID) (ledger.Account, error) {
	return e.accounts.Account(ctx, id)
}

// transferState carries one attempt's working copies plus the versions the
// save is conditioned on.
type transferState struct {
	from       ledger.Account
	to         ledger.Account
	fromLoaded int64
	toLoaded   int64
	topUp      decimal.Decimal
}

// Transfer moves amount from one account to another with all-or-nothing
// semantics.
//
// When the source balance cannot cover the amount, an auto top-up of the
// smallest sufficient multiple of the top-up unit is credited first; the
// top-up plus the transfer amount together are consumed from the source's
// daily limit. The debit and credit commit in a single atomic
// version-conditioned batch; a conflict on either account restarts the whole
// operation up to the retry bound, after which ErrorOptimisticConflict (the
// transfer-conflict failure) is returned.
func (e *Engine) Transfer(ctx context.Context, fromID, toID uuid.UUID, amount decimal.Decimal) (ledger.TransactionRecord, error) {
	if !amount.IsPositive() {
		return ledger.TransactionRecord{}, ledger.NewDomainError(ledger.ErrorInvalidInput, "amount", "amount must be greater than zero")
	}

	if fromID == toID {
		return ledger.TransactionRecord{}, ledger.NewDomainError(ledger.ErrorInvalidInput, "toId", "cannot transfer to the same account")
	}

	saved, err := optimistic.Execute(ctx, e.guard,
		func(ctx context.Context) (transferState, error) {
			return e.loadPair(ctx, fromID, toID)
		},
		func(st transferState) (transferState, error) {
			return e.applyTransfer(st, amount)
		},
		func(ctx context.Context, st transferState) error {
			return e.accounts.SaveAccounts(ctx,
				ledger.AccountUpdate{Account: st.from, ExpectedVersion: st.fromLoaded},
				ledger.AccountUpdate{Account: st.to, ExpectedVersion: st.toLoaded},
			)
		},
	)
	if err != nil {
		return ledger.TransactionRecord{}, err
	}

	if saved.topUp.IsPositive() {
		topUpRecord := ledger.NewTransactionRecord(ledger.KindTopUp, uuid.Nil, fromID, saved.topUp, "auto top-up", e.clock)
		if err := e.records.Append(ctx, topUpRecord); err != nil {
			return ledger.TransactionRecord{}, fmt.Errorf("append top-up record: %w", err)
		}

		e.logger.Log(ctx, log.LevelInfo, "auto top-up applied",
			log.String("account_id", fromID.String()),
			log.String("amount", saved.topUp.String()),
		)
	}

	record := ledger.NewTransactionRecord(ledger.KindTransfer, fromID, toID, amount, "transfer", e.clock)
	if err := e.records.Append(ctx, record); err != nil {
		return ledger.TransactionRecord{}, fmt.Errorf("append transfer record: %w", err)
	}

	e.logger.Log(ctx, log.LevelInfo, "transfer completed",
		log.String("from_id", fromID.String()),
		log.String("to_id", toID.String()),
		log.String("amount", amount.String()),
	)

	return record, nil
}

func (e *Engine) loadPair(ctx context.Context, fromID, toID uuid.UUID) (transferState, error) {
	from, err := e.accounts.Account(ctx, fromID)
	if err != nil {
		return transferState{}, fmt.Errorf("load source account: %w", err)
	}

	to, err := e.accounts.Account(ctx, toID)
	if err != nil {
		return transferState{}, fmt.Errorf("load destination account: %w", err)
	}

	return transferState{
		from:       from,
		to:         to,
		fromLoaded: from.Version,
		toLoaded:   to.Version,
		topUp:      decimal.Zero,
	}, nil
}

// applyTransfer performs one attempt's in-memory mutation: pairing check,
// optional auto top-up, limit consumption, then debit and credit.
func (e *Engine) applyTransfer(st transferState, amount decimal.Decimal) (transferState, error) {
	if err := e.checkPairing(st.from, st.to); err != nil {
		return transferState{}, err
	}

	if st.from.Balance.LessThan(amount) {
		shortfall := amount.Sub(st.from.Balance)
		st.topUp = shortfall.Div(e.topUpUnit).Ceil().Mul(e.topUpUnit)

		topped, err := ledger.ApplyDeposit(st.from, st.topUp)
		if err != nil {
			return transferState{}, err
		}

		st.from = topped
	}

	totalDebited := amount.Add(st.topUp)

	if st.from.Limited() {
		checked, err := e.limiter.CheckAndConsume(st.from, totalDebited)
		if err != nil {
			return transferState{}, err
		}

		st.from = checked
	}

	debited, err := ledger.ApplyWithdraw(st.from, amount)
	if err != nil {
		return transferState{}, err
	}

	credited, err := ledger.ApplyDeposit(st.to, amount)
	if err != nil {
		return transferState{}, err
	}

	st.from = debited
	st.to = credited
	st.from.UpdatedAt = e.clock.Now()
	st.to.UpdatedAt = e.clock.Now()

	return st, nil
}

func (e *Engine) checkPairing(from, to ledger.Account) error {
	switch e.pairing {
	case PairingSameKind:
		if from.Kind != to.Kind {
			return ledger.NewDomainError(
				ledger.ErrorInvalidAccountPairing,
				"toId",
				fmt.Sprintf("transfers between %s and %s accounts are not allowed", from.Kind, to.Kind),
			)
		}

		return nil
	case PairingAny:
		return nil
	default:
		return ledger.NewDomainError(ledger.ErrorInvalidInput, "pairing", fmt.Sprintf("unknown pairing policy %q", string(e.pairing)))
	}
}

// singleState carries one attempt on a single account.
type singleState struct {
	account ledger.Account
	loaded  int64
}

// Deposit credits amount to an account. Deposits are not limit-checked; the
// daily limit is a debit ceiling.
func (e *Engine) Deposit(ctx context.Context, accountID uuid.UUID, amount decimal.Decimal) (ledger.TransactionRecord, error) {
	if !amount.IsPositive() {
		return ledger.TransactionRecord{}, ledger.NewDomainError(ledger.ErrorInvalidInput, "amount", "amount must be greater than zero")
	}

	_, err := e.mutateSingle(ctx, accountID, func(account ledger.Account) (ledger.Account, error) {
		return ledger.ApplyDeposit(account, amount)
	})
	if err != nil {
		return ledger.TransactionRecord{}, err
	}

	record := ledger.NewTransactionRecord(ledger.KindDeposit, uuid.Nil, accountID, amount, "deposit", e.clock)
	if err := e.records.Append(ctx, record); err != nil {
		return ledger.TransactionRecord{}, fmt.Errorf("append deposit record: %w", err)
	}

	return record, nil
}

// Withdraw debits amount from an account without consuming the daily limit.
func (e *Engine) Withdraw(ctx context.Context, accountID uuid.UUID, amount decimal.Decimal) (ledger.TransactionRecord, error) {
	return e.withdraw(ctx, accountID, amount, false)
}

// WithdrawLimited debits amount from an account, consuming the daily limit
// on limited accounts.
func (e *Engine) WithdrawLimited(ctx context.Context, accountID uuid.UUID, amount decimal.Decimal) (ledger.TransactionRecord, error) {
	return e.withdraw(ctx, accountID, amount, true)
}

func (e *Engine) withdraw(ctx context.Context, accountID uuid.UUID, amount decimal.Decimal, limited bool) (ledger.TransactionRecord, error) {
	if !amount.IsPositive() {
		return ledger.TransactionRecord{}, ledger.NewDomainError(ledger.ErrorInvalidInput, "amount", "amount must be greater than zero")
	}

	_, err := e.mutateSingle(ctx, accountID, func(account ledger.Account) (ledger.Account, error) {
		if limited && account.Limited() {
			checked, err := e.limiter.CheckAndConsume(account, amount)
			if err != nil {
				return ledger.Account{}, err
			}

			account = checked
		}

		return ledger.ApplyWithdraw(account, amount)
	})
	if err != nil {
		return ledger.TransactionRecord{}, err
	}

	record := ledger.NewTransactionRecord(ledger.KindWithdraw, accountID, uuid.Nil, amount, "withdrawal", e.clock)
	if err := e.records.Append(ctx, record); err != nil {
		return ledger.TransactionRecord{}, fmt.Errorf("append withdrawal record: %w", err)
	}

	return record, nil
}

func (e *Engine) mutateSingle(ctx context.Context, accountID uuid.UUID, mutate func(ledger.Account) (ledger.Account, error)) (singleState, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	return optimistic.Execute(ctx, e.guard,
		func(ctx context.Context) (singleState, error) {
			account, err := e.accounts.Account(ctx, accountID)
			if err != nil {
				return singleState{}, err
			}

			return singleState{account: account, loaded: account.Version}, nil
		},
		func(st singleState) (singleState, error) {
			mutated, err := mutate(st.account)
			if err != nil {
				return singleState{}, err
			}

			mutated.UpdatedAt = e.clock.Now()
			st.account = mutated

			return st, nil
		},
		func(ctx context.Context, st singleState) error {
			return e.accounts.SaveAccounts(ctx, ledger.AccountUpdate{Account: st.account, ExpectedVersion: st.loaded})
		},
	)
}
