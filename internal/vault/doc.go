// Package vault implements the time-locked custody program.
//
// A depositor opens a vault by moving lamports into an account whose address
// is derived from the depositor's address and a fixed seed label. The account
// holds a small record (owner, unlock time, derivation bump) and the custody
// balance. Nobody can touch the balance until the unlock time has passed;
// after that only the owner can release it, which pays out everything and
// destroys the account in the same step.
//
// The package holds policy only. Clock, value transfer, account allocation and
// the event sink are supplied by the host through Env, which must run each
// call inside a single all-or-nothing commit.
package vault
