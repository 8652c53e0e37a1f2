package ledger

import (
	"math/rand/v2"
	"time"
)

// Clock supplies the current calendar date for daily-limit rollover.
// Implementations must return the date at midnight UTC so that two calls on
// the same calendar day compare equal.
type Clock interface {
	Today() time.Time
	Now() time.Time
}

// Rand supplies uniform random fractions for randomized settlement splits.
// Injecting it keeps allocation deterministic under test.
type Rand interface {
	// NextFraction returns a uniform value in [0, 1).
	NextFraction() float64
}

// DateOf truncates t to midnight UTC, the canonical period-date form.
func DateOf(t time.Time) time.Time {
	year, month, day := t.UTC().Date()

	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// SystemClock reads the wall clock.
type SystemClock struct{}

// Today returns the current date at midnight UTC.
func (SystemClock) Today() time.Time {
	return DateOf(time.Now())
}

// Now returns the current wall-clock time in UTC.
func (SystemClock) Now() time.Time {
	return time.Now().UTC()
}

// SystemRand draws fractions from math/rand/v2's shared generator.
type SystemRand struct{}

// NextFraction returns a uniform value in [0, 1).
func (SystemRand) NextFraction() float64 {
	return rand.Float64() // #nosec G404 -- settlement shares are not security sensitive
}
