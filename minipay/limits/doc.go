// Package limits enforces the per-account daily usage ceiling.
//
// The tracker mutates the DailyLimit state embedded in an account: the first
// check of a new calendar day resets the used amount exactly once, and a
// successful check consumes the requested amount. Persisting the updated
// state atomically with the balance mutation is the caller's responsibility;
// both travel in the same version-guarded account write, which is what makes
// the rollover race-safe.
package limits
