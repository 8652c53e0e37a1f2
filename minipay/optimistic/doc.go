// Package optimistic implements the version check-and-retry loop protecting
// every account and settlement mutation.
//
// Execute loads current state (capturing its version), applies a mutation,
// and attempts a conditional save that only succeeds while the stored version
// is unchanged. On ledger.ErrVersionConflict the attempt is discarded, the
// loop backs off with exponential delay and full jitter, reloads fresh state,
// and retries up to a bounded attempt count. Exhausting the bound surfaces
// ErrorOptimisticConflict; concurrent writes are never merged or overwritten.
package optimistic
