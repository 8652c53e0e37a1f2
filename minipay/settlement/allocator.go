package settlement

import (
	"fmt"

	"github.com/Tiel0043/projecthub/minipay/ledger"
	"github.com/shopspring/decimal"
)

// Policy selects the share allocation strategy.
type Policy string

const (
	// PolicyEqual splits the total evenly, assigning the truncation
	// remainder to the last participant.
	PolicyEqual Policy = "EQUAL"
	// PolicyRandom splits the total randomly with a one-minor-unit floor
	// per participant.
	PolicyRandom Policy = "RANDOM"
)

var one = decimal.NewFromInt(1)

// Allocate splits totalAmount into participantCount ordered shares under the
// given policy. The shares always sum to totalAmount exactly.
//
// For PolicyRandom the source draws one fraction per non-final participant;
// a nil source falls back to the system generator. PolicyRandom additionally
// requires totalAmount >= participantCount so that the one-minor-unit floor
// can hold for every share.
func Allocate(totalAmount decimal.Decimal, participantCount int, policy Policy, source ledger.Rand) ([]decimal.Decimal, error) {
	if participantCount <= 0 {
		return nil, ledger.NewDomainError(
			ledger.ErrorInvalidParticipantCount,
			"participantCount",
			fmt.Sprintf("participant count must be positive, got %d", participantCount),
		)
	}

	if !totalAmount.IsPositive() {
		return nil, ledger.NewDomainError(ledger.ErrorInvalidInput, "totalAmount", "total amount must be greater than zero")
	}

	switch policy {
	case PolicyEqual:
		return allocateEqual(totalAmount, participantCount), nil
	case PolicyRandom:
		if source == nil {
			source = ledger.SystemRand{}
		}

		return allocateRandom(totalAmount, participantCount, source)
	default:
		return nil, ledger.NewDomainError(
			ledger.ErrorUnsupportedPolicy,
			"policy",
			fmt.Sprintf("unsupported allocation policy %q", string(policy)),
		)
	}
}

// allocateEqual gives every participant floor(total/count) and the last
// participant the rest, so shares differ by at most one minor unit.
func allocateEqual(totalAmount decimal.Decimal, participantCount int) []decimal.Decimal {
	count := decimal.NewFromInt(int64(participantCount))
	base := totalAmount.Div(count).Truncate(0)

	shares := make([]decimal.Decimal, participantCount)
	for i := 0; i < participantCount-1; i++ {
		shares[i] = base
	}

	shares[participantCount-1] = totalAmount.Sub(base.Mul(decimal.NewFromInt(int64(participantCount - 1))))

	return shares
}

// allocateRandom draws each share as floor(fraction * headroom) where the
// headroom is the remaining amount minus one minor unit per participant
// still to come. Draws are clamped to [1, headroom], and the final
// participant takes everything that remains.
func allocateRandom(totalAmount decimal.Decimal, participantCount int, source ledger.Rand) ([]decimal.Decimal, error) {
	countDec := decimal.NewFromInt(int64(participantCount))
	if totalAmount.LessThan(countDec) {
		return nil, ledger.NewDomainError(
			ledger.ErrorInvalidInput,
			"totalAmount",
			fmt.Sprintf("total %s cannot give every one of %d participants a minimum share", totalAmount, participantCount),
		)
	}

	shares := make([]decimal.Decimal, 0, participantCount)
	remaining := totalAmount

	for i := 0; i < participantCount-1; i++ {
		reserved := decimal.NewFromInt(int64(participantCount - i - 1))
		headroom := remaining.Sub(reserved)

		share := decimal.NewFromFloat(source.NextFraction()).Mul(headroom).Truncate(0)
		if share.LessThan(one) {
			share = one
		} else if share.GreaterThan(headroom) {
			share = headroom
		}

		shares = append(shares, share)
		remaining = remaining.Sub(share)
	}

	shares = append(shares, remaining)

	return shares, nil
}
