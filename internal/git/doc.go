// Package git provides git integration status checks for timevault.
//
// Checks performed:
//   - Whether the ledger directory is tracked by git (should not be)
//   - Whether the ledger directory is in .gitignore (should be)
//   - Whether exported key files are tracked or unignored (should not be)
//
// Exported keys are sealed with a passphrase, but an offline guessing
// attack against a committed key file is still possible.
package git
