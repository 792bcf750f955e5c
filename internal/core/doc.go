// Package core provides the timevault client operations.
//
// A TimeVault is bound to the .timevault ledger directory of a working
// directory. Core operations include:
//   - Init: Create the ledger database and default config.yaml
//   - NewIdentity/ImportIdentity/ExportIdentity: Manage signing keys kept in the OS keyring
//   - Airdrop/Balance: Fund and inspect wallet accounts
//   - Open/Release: Sign and execute vault program invocations
//   - Simulate: Dry-run an invocation and diff the affected accounts
//   - Warp: Move the ledger clock forward
//
// Identity seeds never touch the ledger. Exported keys are sealed with a
// passphrase using PBKDF2 and AES-256-GCM.
package core
