package cmd

import (
	"errors"
	"fmt"
	"math"
	"os"
	"strconv"
	"time"

	"github.com/illarion/timevault/internal/core"
	"github.com/illarion/timevault/internal/host"
	"github.com/illarion/timevault/internal/security"
	"github.com/illarion/timevault/internal/vault"
)

// openTimeVault binds to the ledger in the current directory or exits
func openTimeVault() *core.TimeVault {
	tv, err := core.New(".")
	if err != nil {
		HandleError(err)
	}
	return tv
}

// GetPassphrase retrieves the passphrase from the environment or prompts.
// With confirm set the prompt asks twice.
// The caller is responsible for calling crypto.ClearBytes on the result.
func GetPassphrase(confirm bool) ([]byte, error) {
	if passphrase := core.GetPassphraseFromEnv(); passphrase != nil {
		return passphrase, nil
	}
	if confirm {
		return core.ReadPassphraseConfirm()
	}
	return core.ReadPassphrase("Enter passphrase: ")
}

// GetPassphraseOrExit is like GetPassphrase but exits on error
func GetPassphraseOrExit(confirm bool) []byte {
	passphrase, err := GetPassphrase(confirm)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
	return passphrase
}

// parseDuration accepts Go durations ("90m", "24h") or plain seconds. The
// ledger clock counts whole seconds, so finer durations are refused.
func parseDuration(s string) (time.Duration, error) {
	if secs, err := strconv.ParseInt(s, 10, 64); err == nil {
		const maxSecs = int64(math.MaxInt64 / int64(time.Second))
		if secs > maxSecs || secs < -maxSecs {
			return 0, fmt.Errorf("duration %s is out of range", s)
		}
		return time.Duration(secs) * time.Second, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q", s)
	}
	if d%time.Second != 0 {
		return 0, fmt.Errorf("duration %q must be a whole number of seconds", s)
	}
	return d, nil
}

// parseAmount parses a SOL amount or exits
func parseAmount(s string) uint64 {
	lamports, err := core.ParseSOL(s)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
	return lamports
}

// formatLamports renders a balance as SOL with the exact lamport count
func formatLamports(lamports uint64) string {
	return fmt.Sprintf("%s SOL (%d lamports)", core.FormatSOL(lamports), lamports)
}

// formatSize formats a file size in human-readable form
func formatSize(size int64) string {
	const (
		KB = 1024
		MB = KB * 1024
		GB = MB * 1024
	)

	switch {
	case size >= GB:
		return fmt.Sprintf("%.1f GB", float64(size)/GB)
	case size >= MB:
		return fmt.Sprintf("%.1f MB", float64(size)/MB)
	case size >= KB:
		return fmt.Sprintf("%.1f KB", float64(size)/KB)
	default:
		return fmt.Sprintf("%d bytes", size)
	}
}

// HandleError handles common errors consistently
func HandleError(err error) {
	switch {
	case errors.Is(err, core.ErrNotInitialized):
		fmt.Fprintf(os.Stderr, "Error: timevault not initialized\n")
		fmt.Fprintf(os.Stderr, "Run 'timevault init' first\n")
	case errors.Is(err, core.ErrAlreadyExists):
		fmt.Fprintf(os.Stderr, "Error: %s already exists in this directory\n", core.LedgerDir)
	case errors.Is(err, core.ErrUnknownIdentity):
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		fmt.Fprintf(os.Stderr, "Use 'timevault keys ls' to see known identities\n")
	case errors.Is(err, core.ErrNoKey):
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		fmt.Fprintf(os.Stderr, "Use 'timevault keys import' to restore it from an exported key file\n")
	case errors.Is(err, core.ErrWrongPassphrase):
		fmt.Fprintf(os.Stderr, "Error: wrong passphrase\n")
	case errors.Is(err, vault.ErrVaultLocked):
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		fmt.Fprintf(os.Stderr, "Use 'timevault status' to see when it unlocks\n")
	case errors.Is(err, vault.ErrNotFound):
		fmt.Fprintf(os.Stderr, "Error: no vault found for this identity\n")
	case errors.Is(err, vault.ErrAlreadyExists):
		fmt.Fprintf(os.Stderr, "Error: this identity already has an open vault\n")
		fmt.Fprintf(os.Stderr, "Release it before opening a new one\n")
	case errors.Is(err, vault.ErrInsufficientFunds):
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		fmt.Fprintf(os.Stderr, "Opening a vault also costs an allocation deposit, refunded on release\n")
	case errors.Is(err, host.ErrNotWallet):
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
	case errors.Is(err, security.ErrFileExists):
		fmt.Fprintf(os.Stderr, "Error: %s (refusing to overwrite)\n", err)
	default:
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
	}
	os.Exit(1)
}
