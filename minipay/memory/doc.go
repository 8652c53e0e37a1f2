// Package memory provides in-memory implementations of the minipay store
// contracts: versioned accounts with atomic compare-and-swap batches, the
// append-only transaction log, settlements, and users.
//
// The store backs the test suite and the development server. All methods are
// safe for concurrent use; conditional saves fail with
// ledger.ErrVersionConflict exactly as a database-backed store would, which
// is what lets the optimistic retry paths be exercised in-process.
package memory
