// Package storage provides the BBolt ledger store for timevault.
//
// Database structure uses five buckets:
//   - config: version, creation time, clock offset, ledger ID
//   - accounts: address -> JSON account (lamports, deposit, owner, data)
//   - labels: identity name -> address, for the local address book
//   - receipts: sequence -> JSON invocation receipt, in execution order
//   - invocations: invocation ID -> receipt sequence, for replay protection
//
// Every invocation runs inside one BBolt write transaction, so a program
// call either commits all of its balance and account changes or none.
//
// BBolt provides ACID transactions, file locking, and corruption detection.
package storage
