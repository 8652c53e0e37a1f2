// Package postgres persists accounts, transaction records, settlements, and
// users in PostgreSQL.
//
// The connection hub multiplexes a read-write primary and a read-only replica
// behind a dbresolver handle and applies schema migrations on connect. All
// versioned writes are conditioned on the stored version and report
// ledger.ErrVersionConflict when the row moved underneath the writer.
package postgres
