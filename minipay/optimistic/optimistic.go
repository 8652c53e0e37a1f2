package optimistic

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Tiel0043/projecthub/minipay/ledger"
	"github.com/Tiel0043/projecthub/minipay/log"
)

const (
	// DefaultMaxAttempts bounds the retry loop under contention.
	DefaultMaxAttempts = 3
	// DefaultBaseDelay seeds the exponential backoff between attempts.
	DefaultBaseDelay = 5 * time.Millisecond
)

// LoadFunc loads fresh state, capturing the version the save will be
// conditioned on.
type LoadFunc[T any] func(ctx context.Context) (T, error)

// MutateFunc applies the business mutation to loaded state. It must be free
// of side effects outside the returned value, because it runs once per
// attempt.
type MutateFunc[T any] func(state T) (T, error)

// SaveFunc persists mutated state conditionally. It returns
// ledger.ErrVersionConflict when the stored version no longer matches the
// loaded one; any other error aborts the loop immediately.
type SaveFunc[T any] func(ctx context.Context, state T) error

// Guard bounds and paces the retry loop.
type Guard struct {
	maxAttempts int
	baseDelay   time.Duration
	logger      log.Logger
}

// NewGuard creates a guard with the given attempt bound. Non-positive bounds
// fall back to DefaultMaxAttempts.
func NewGuard(maxAttempts int) *Guard {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}

	return &Guard{
		maxAttempts: maxAttempts,
		baseDelay:   DefaultBaseDelay,
		logger:      log.NewNop(),
	}
}

// WithBaseDelay configures the backoff base between conflicting attempts.
func (g *Guard) WithBaseDelay(d time.Duration) *Guard {
	if d > 0 {
		g.baseDelay = d
	}

	return g
}

// WithLogger configures conflict observability.
func (g *Guard) WithLogger(logger log.Logger) *Guard {
	g.logger = log.OrNop(logger)

	return g
}

// MaxAttempts returns the configured attempt bound.
func (g *Guard) MaxAttempts() int {
	return g.maxAttempts
}

// Execute runs the load-mutate-save cycle under the guard and returns the
// state that was successfully saved.
//
// Version conflicts are the only recoverable failure: each one discards the
// attempt, sleeps a jittered exponential delay, and reloads. Every other
// error from load, mutate, or save propagates unchanged so callers keep the
// typed domain failure. Exhausting the bound yields ErrorOptimisticConflict.
func Execute[T any](ctx context.Context, guard *Guard, load LoadFunc[T], mutate MutateFunc[T], save SaveFunc[T]) (T, error) {
	var zero T

	if guard == nil {
		guard = NewGuard(DefaultMaxAttempts)
	}

	for attempt := 0; attempt < guard.maxAttempts; attempt++ {
		if attempt > 0 {
			if err := SleepWithContext(ctx, ExponentialWithJitter(guard.baseDelay, attempt-1)); err != nil {
				return zero, err
			}
		}

		state, err := load(ctx)
		if err != nil {
			return zero, err
		}

		mutated, err := mutate(state)
		if err != nil {
			return zero, err
		}

		err = save(ctx, mutated)
		if err == nil {
			return mutated, nil
		}

		if !errors.Is(err, ledger.ErrVersionConflict) {
			return zero, err
		}

		guard.logger.Log(ctx, log.LevelDebug, "optimistic save conflicted, retrying",
			log.Int("attempt", attempt+1),
			log.Int("max_attempts", guard.maxAttempts),
		)
	}

	return zero, ledger.NewDomainError(
		ledger.ErrorOptimisticConflict,
		"",
		fmt.Sprintf("concurrent modification persisted after %d attempts", guard.maxAttempts),
	)
}
