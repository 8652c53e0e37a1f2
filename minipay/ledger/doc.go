// Package ledger defines the minipay domain model: accounts with versioned
// balances, daily-limit state, transaction records, and the typed domain
// errors shared by every minipay component.
//
// Core types:
//   - Account carries a fixed-point balance, an optimistic-concurrency
//     version, and the embedded DailyLimit state persisted with it.
//   - TransactionRecord is the append-only movement log entry.
//   - DomainError is the structured error type; every failure a caller can
//     act on carries an ErrorCode.
//
// The package is persistence-free. Mutations are expressed as pure functions
// returning a new Account value; stores are responsible for the
// compare-and-swap on Version.
package ledger
