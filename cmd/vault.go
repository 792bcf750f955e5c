package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/illarion/timevault/internal/host"
)

// Open locks SOL from an identity into its vault
func Open(ctx context.Context, name, duration, amount string) {
	d, err := parseDuration(duration)
	if err != nil {
		HandleError(err)
	}
	lamports := parseAmount(amount)

	tv := openTimeVault()
	defer tv.Close()

	receipt, err := tv.Open(ctx, name, d, lamports)
	if err != nil {
		HandleError(err)
	}

	printLogs(receipt)
	fmt.Printf("✓ Locked %s in vault %s\n", formatLamports(receipt.Amount), receipt.Vault)
	fmt.Printf("  unlocks at: %s\n", time.Unix(receipt.UnlockTime, 0).Format(time.RFC3339))
	fmt.Printf("  deposit:    %s (refunded on release)\n", formatLamports(receipt.Deposit))
}

// Release pays an unlocked vault back to its owner
func Release(ctx context.Context, name string) {
	tv := openTimeVault()
	defer tv.Close()

	receipt, err := tv.Release(ctx, name)
	if err != nil {
		HandleError(err)
	}

	printLogs(receipt)
	fmt.Printf("✓ Released %s\n", formatLamports(receipt.Amount))
	fmt.Printf("  deposit refunded: %s\n", formatLamports(receipt.Deposit))
}

// Status shows an identity's vault
func Status(ctx context.Context, name string) {
	tv := openTimeVault()
	defer tv.Close()

	status, err := tv.Status(ctx, name)
	if err != nil {
		HandleError(err)
	}

	pos := status.Position
	fmt.Printf("Vault of %s\n", status.Identity)
	fmt.Printf("  address:    %s\n", pos.Address)
	fmt.Printf("  owner:      %s\n", pos.Record.Owner())
	fmt.Printf("  balance:    %s\n", formatLamports(pos.Balance))
	fmt.Printf("  unlocks at: %s\n", status.UnlockTime.Format(time.RFC3339))
	fmt.Printf("  ledger now: %s\n", status.Now.Format(time.RFC3339))
	if pos.Unlocked {
		fmt.Println("  state:      unlocked (ready to release)")
	} else {
		fmt.Printf("  state:      locked for another %s\n", status.Remaining)
	}
}

// Simulate dry-runs an open or release and shows what would change
func Simulate(ctx context.Context, kind, name, duration, amount string) {
	var (
		d        time.Duration
		lamports uint64
		err      error
	)
	switch host.Kind(kind) {
	case host.KindOpen:
		if d, err = parseDuration(duration); err != nil {
			HandleError(err)
		}
		lamports = parseAmount(amount)
	case host.KindRelease:
	default:
		HandleError(fmt.Errorf("unknown operation %q (expected open or release)", kind))
	}

	tv := openTimeVault()
	defer tv.Close()

	report, err := tv.Simulate(ctx, name, host.Kind(kind), d, lamports)
	if err != nil {
		HandleError(err)
	}

	printLogs(report.Receipt)
	if report.Err != nil {
		fmt.Printf("✗ Would fail: %s\n", report.Err)
	} else {
		fmt.Println("✓ Would succeed")
	}
	fmt.Println()
	fmt.Print(report.Diff)
}

func printLogs(r *host.Receipt) {
	for _, line := range r.Logs {
		fmt.Printf("Program log: %s\n", line)
	}
}
