// Package transfer orchestrates balance mutation: transfers between
// accounts, deposits, withdrawals, auto top-up, and daily-limit enforcement.
//
// Every mutation runs inside the optimistic guard: both accounts of a
// transfer are loaded, mutated as values, and saved in one atomic
// version-conditioned batch, so a transfer is never visible half-applied and
// a conflicting writer forces the whole operation to restart from a fresh
// load. A COMPLETED TransactionRecord is appended for every committed
// operation, with auto top-ups recorded as their own named entries.
package transfer
