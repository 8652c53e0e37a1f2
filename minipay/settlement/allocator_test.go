package settlement

import (
	"math/rand/v2"
	"testing"

	"github.com/Tiel0043/projecthub/minipay/ledger"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedRand replays a fixed sequence of fractions.
type scriptedRand struct {
	fractions []float64
	next      int
}

func (r *scriptedRand) NextFraction() float64 {
	f := r.fractions[r.next%len(r.fractions)]
	r.next++

	return f
}

// seededRand wraps a deterministic PCG generator.
type seededRand struct {
	rng *rand.Rand
}

func newSeededRand(seed uint64) *seededRand {
	return &seededRand{rng: rand.New(rand.NewPCG(seed, 0))}
}

func (r *seededRand) NextFraction() float64 {
	return r.rng.Float64()
}

func sumShares(shares []decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, share := range shares {
		total = total.Add(share)
	}

	return total
}

// ---------------------------------------------------------------------------
// EQUAL policy
// ---------------------------------------------------------------------------

func TestAllocateEqual(t *testing.T) {
	tests := []struct {
		name     string
		total    int64
		count    int
		expected []int64
	}{
		{name: "1000 among 3", total: 1_000, count: 3, expected: []int64{333, 333, 334}},
		{name: "divides evenly", total: 900, count: 3, expected: []int64{300, 300, 300}},
		{name: "single participant takes everything", total: 777, count: 1, expected: []int64{777}},
		{name: "remainder lands on the last participant", total: 10, count: 4, expected: []int64{2, 2, 2, 4}},
		{name: "total smaller than count", total: 2, count: 3, expected: []int64{0, 0, 2}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			shares, err := Allocate(decimal.NewFromInt(tt.total), tt.count, PolicyEqual, nil)
			require.NoError(t, err)
			require.Len(t, shares, tt.count)

			for i, expected := range tt.expected {
				assert.True(t, shares[i].Equal(decimal.NewFromInt(expected)),
					"share %d: expected %d, got %s", i, expected, shares[i])
			}

			assert.True(t, sumShares(shares).Equal(decimal.NewFromInt(tt.total)))
		})
	}
}

// ---------------------------------------------------------------------------
// RANDOM policy
// ---------------------------------------------------------------------------

func TestAllocateRandom(t *testing.T) {
	t.Run("scripted draws are deterministic", func(t *testing.T) {
		// headroom for draw 1 is 1000-2=998: floor(0.5*998)=499;
		// headroom for draw 2 is 501-1=500: floor(0.25*500)=125; last takes 376.
		source := &scriptedRand{fractions: []float64{0.5, 0.25}}

		shares, err := Allocate(decimal.NewFromInt(1_000), 3, PolicyRandom, source)
		require.NoError(t, err)
		require.Len(t, shares, 3)

		assert.True(t, shares[0].Equal(decimal.NewFromInt(499)))
		assert.True(t, shares[1].Equal(decimal.NewFromInt(125)))
		assert.True(t, shares[2].Equal(decimal.NewFromInt(376)))
	})

	t.Run("greedy draws are clamped so later participants keep their floor", func(t *testing.T) {
		source := &scriptedRand{fractions: []float64{0.999999, 0.999999}}

		shares, err := Allocate(decimal.NewFromInt(1_000), 3, PolicyRandom, source)
		require.NoError(t, err)

		assert.True(t, sumShares(shares).Equal(decimal.NewFromInt(1_000)))

		for i, share := range shares {
			assert.True(t, share.GreaterThanOrEqual(decimal.NewFromInt(1)), "share %d below minimum: %s", i, share)
		}
	})

	t.Run("tiny draws are raised to the minimum share", func(t *testing.T) {
		source := &scriptedRand{fractions: []float64{0, 0}}

		shares, err := Allocate(decimal.NewFromInt(1_000), 3, PolicyRandom, source)
		require.NoError(t, err)

		assert.True(t, shares[0].Equal(decimal.NewFromInt(1)))
		assert.True(t, shares[1].Equal(decimal.NewFromInt(1)))
		assert.True(t, shares[2].Equal(decimal.NewFromInt(998)))
	})

	t.Run("total exactly count gives everyone one unit", func(t *testing.T) {
		source := newSeededRand(7)

		shares, err := Allocate(decimal.NewFromInt(5), 5, PolicyRandom, source)
		require.NoError(t, err)

		for _, share := range shares {
			assert.True(t, share.Equal(decimal.NewFromInt(1)))
		}
	})

	t.Run("total below count is rejected", func(t *testing.T) {
		_, err := Allocate(decimal.NewFromInt(2), 3, PolicyRandom, newSeededRand(1))
		require.Error(t, err)
		assert.Equal(t, ledger.ErrorInvalidInput, ledger.CodeOf(err))
	})
}

func TestAllocateRandomProperties(t *testing.T) {
	totals := []int64{3, 10, 1_000, 12_345, 1_000_000}
	counts := []int{1, 2, 3, 7, 10}

	for seed := uint64(0); seed < 20; seed++ {
		source := newSeededRand(seed)

		for _, total := range totals {
			for _, count := range counts {
				if total < int64(count) {
					continue
				}

				shares, err := Allocate(decimal.NewFromInt(total), count, PolicyRandom, source)
				require.NoError(t, err)
				require.Len(t, shares, count)

				assert.True(t, sumShares(shares).Equal(decimal.NewFromInt(total)),
					"seed=%d total=%d count=%d: shares do not sum", seed, total, count)

				for i, share := range shares {
					assert.True(t, share.GreaterThanOrEqual(decimal.NewFromInt(1)),
						"seed=%d total=%d count=%d share %d below minimum: %s", seed, total, count, i, share)
				}
			}
		}
	}
}

// ---------------------------------------------------------------------------
// Validation
// ---------------------------------------------------------------------------

func TestAllocateValidation(t *testing.T) {
	tests := []struct {
		name      string
		total     decimal.Decimal
		count     int
		policy    Policy
		errorCode ledger.ErrorCode
	}{
		{name: "zero participants", total: decimal.NewFromInt(100), count: 0, policy: PolicyEqual, errorCode: ledger.ErrorInvalidParticipantCount},
		{name: "negative participants", total: decimal.NewFromInt(100), count: -2, policy: PolicyRandom, errorCode: ledger.ErrorInvalidParticipantCount},
		{name: "zero total", total: decimal.Zero, count: 3, policy: PolicyEqual, errorCode: ledger.ErrorInvalidInput},
		{name: "negative total", total: decimal.NewFromInt(-10), count: 3, policy: PolicyEqual, errorCode: ledger.ErrorInvalidInput},
		{name: "unknown policy", total: decimal.NewFromInt(100), count: 3, policy: Policy("HALVES"), errorCode: ledger.ErrorUnsupportedPolicy},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Allocate(tt.total, tt.count, tt.policy, nil)
			require.Error(t, err)
			assert.Equal(t, tt.errorCode, ledger.CodeOf(err))
		})
	}
}
