// Package host is the local execution environment the vault program runs in.
//
// It plays the role a chain runtime would: it authenticates the caller of an
// invocation by its ed25519 signature, supplies the clock, charges and refunds
// allocation deposits, moves lamports, and commits every invocation as one
// BBolt transaction. Program log lines are collected into a receipt and
// emitted through the structured logger once the transaction has ended.
package host
