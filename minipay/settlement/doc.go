// Package settlement splits a total amount into per-participant shares and
// manages the resulting settlement aggregate.
//
// Allocate is pure: given a total, a participant count, a policy, and an
// injected random source it produces an ordered list of shares that sum to
// the total exactly. The EQUAL policy gives everyone the truncated average
// and the remainder to the last participant; the RANDOM policy draws each
// share from the remaining amount while reserving one minor unit for every
// participant still to come, so every share is at least one minor unit.
//
// Service persists settlements and applies per-participant approve/reject
// transitions under the optimistic guard.
package settlement
