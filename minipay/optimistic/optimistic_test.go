package optimistic

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Tiel0043/projecthub/minipay/ledger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// versionedCell is a minimal CAS-guarded store standing in for the account
// stores in tests.
type versionedCell struct {
	mu      sync.Mutex
	value   int
	version int64
}

type cellState struct {
	value   int
	version int64
}

func (c *versionedCell) load(_ context.Context) (cellState, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	return cellState{value: c.value, version: c.version}, nil
}

func (c *versionedCell) save(_ context.Context, state cellState) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.version != state.version {
		return ledger.ErrVersionConflict
	}

	c.value = state.value
	c.version++

	return nil
}

func TestExecute(t *testing.T) {
	ctx := context.Background()

	t.Run("saves on first attempt without contention", func(t *testing.T) {
		cell := &versionedCell{value: 10}
		guard := NewGuard(3).WithBaseDelay(time.Microsecond)

		got, err := Execute(ctx, guard, cell.load,
			func(s cellState) (cellState, error) {
				s.value += 5
				return s, nil
			},
			cell.save,
		)

		require.NoError(t, err)
		assert.Equal(t, 15, got.value)
		assert.Equal(t, 15, cell.value)
		assert.Equal(t, int64(1), cell.version)
	})

	t.Run("retries through version conflicts", func(t *testing.T) {
		cell := &versionedCell{value: 10}
		guard := NewGuard(3).WithBaseDelay(time.Microsecond)

		conflicts := 0
		save := func(ctx context.Context, s cellState) error {
			// Simulate one interleaved writer before our first save lands.
			if conflicts == 0 {
				conflicts++

				cell.mu.Lock()
				cell.value += 100
				cell.version++
				cell.mu.Unlock()
			}

			return cell.save(ctx, s)
		}

		got, err := Execute(ctx, guard, cell.load,
			func(s cellState) (cellState, error) {
				s.value += 5
				return s, nil
			},
			save,
		)

		require.NoError(t, err)
		// The concurrent +100 is observed by the retried load, never lost.
		assert.Equal(t, 115, got.value)
		assert.Equal(t, 115, cell.value)
	})

	t.Run("exhausting the bound surfaces OptimisticConflict", func(t *testing.T) {
		cell := &versionedCell{}
		guard := NewGuard(3).WithBaseDelay(time.Microsecond)

		attempts := 0
		save := func(context.Context, cellState) error {
			attempts++
			return ledger.ErrVersionConflict
		}

		_, err := Execute(ctx, guard, cell.load,
			func(s cellState) (cellState, error) { return s, nil },
			save,
		)

		require.Error(t, err)
		assert.Equal(t, ledger.ErrorOptimisticConflict, ledger.CodeOf(err))
		assert.Equal(t, 3, attempts)
	})

	t.Run("non-conflict save errors abort immediately", func(t *testing.T) {
		cell := &versionedCell{}
		guard := NewGuard(5).WithBaseDelay(time.Microsecond)
		boom := errors.New("disk full")

		attempts := 0
		save := func(context.Context, cellState) error {
			attempts++
			return boom
		}

		_, err := Execute(ctx, guard, cell.load,
			func(s cellState) (cellState, error) { return s, nil },
			save,
		)

		require.ErrorIs(t, err, boom)
		assert.Equal(t, 1, attempts)
	})

	t.Run("mutate errors propagate typed", func(t *testing.T) {
		cell := &versionedCell{}
		guard := NewGuard(3)

		_, err := Execute(ctx, guard, cell.load,
			func(cellState) (cellState, error) {
				return cellState{}, ledger.NewDomainError(ledger.ErrorInsufficientBalance, "amount", "insufficient")
			},
			cell.save,
		)

		require.Error(t, err)
		assert.Equal(t, ledger.ErrorInsufficientBalance, ledger.CodeOf(err))
	})

	t.Run("cancelled context stops the backoff sleep", func(t *testing.T) {
		cell := &versionedCell{}
		guard := NewGuard(10).WithBaseDelay(time.Hour)

		cancelCtx, cancel := context.WithCancel(ctx)
		cancel()

		save := func(context.Context, cellState) error {
			return ledger.ErrVersionConflict
		}

		_, err := Execute(cancelCtx, guard, cell.load,
			func(s cellState) (cellState, error) { return s, nil },
			save,
		)

		require.ErrorIs(t, err, context.Canceled)
	})
}

func TestExecuteConcurrentWritersSerialize(t *testing.T) {
	ctx := context.Background()
	cell := &versionedCell{}

	const writers = 8

	var wg sync.WaitGroup

	for i := 0; i < writers; i++ {
		wg.Add(1)

		go func() {
			defer wg.Done()

			guard := NewGuard(writers * 4).WithBaseDelay(time.Microsecond)

			_, err := Execute(ctx, guard, cell.load,
				func(s cellState) (cellState, error) {
					s.value++
					return s, nil
				},
				cell.save,
			)
			assert.NoError(t, err)
		}()
	}

	wg.Wait()

	assert.Equal(t, writers, cell.value)
	assert.Equal(t, int64(writers), cell.version)
}

func TestExponential(t *testing.T) {
	tests := []struct {
		name     string
		base     time.Duration
		attempt  int
		expected time.Duration
	}{
		{name: "attempt zero returns base", base: 10 * time.Millisecond, attempt: 0, expected: 10 * time.Millisecond},
		{name: "doubles per attempt", base: 10 * time.Millisecond, attempt: 3, expected: 80 * time.Millisecond},
		{name: "negative attempt treated as zero", base: 10 * time.Millisecond, attempt: -5, expected: 10 * time.Millisecond},
		{name: "non-positive base returns zero", base: 0, attempt: 4, expected: 0},
		{name: "overflow clamps to max", base: time.Hour, attempt: maxShift, expected: time.Duration(1<<63 - 1)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Exponential(tt.base, tt.attempt))
		})
	}
}

func TestFullJitter(t *testing.T) {
	t.Run("stays within range", func(t *testing.T) {
		for i := 0; i < 100; i++ {
			d := FullJitter(time.Second)
			assert.GreaterOrEqual(t, d, time.Duration(0))
			assert.Less(t, d, time.Second)
		}
	})

	t.Run("zero delay returns zero", func(t *testing.T) {
		assert.Equal(t, time.Duration(0), FullJitter(0))
	})
}

func TestSleepWithContext(t *testing.T) {
	t.Run("returns immediately for non-positive duration", func(t *testing.T) {
		require.NoError(t, SleepWithContext(context.Background(), -time.Second))
	})

	t.Run("honours cancellation", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		err := SleepWithContext(ctx, time.Hour)
		require.ErrorIs(t, err, context.Canceled)
	})
}
