package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/illarion/timevault/internal/host"
)

// Warp moves the ledger clock forward
func Warp(ctx context.Context, duration string) {
	d, err := parseDuration(duration)
	if err != nil {
		HandleError(err)
	}

	tv := openTimeVault()
	defer tv.Close()

	now, err := tv.Warp(ctx, d)
	if err != nil {
		HandleError(err)
	}

	fmt.Printf("Ledger clock: %s\n", now.Format(time.RFC3339))
}

// History shows recent invocation receipts
func History(ctx context.Context, limit int) {
	tv := openTimeVault()
	defer tv.Close()

	receipts, err := tv.History(ctx, limit)
	if err != nil {
		HandleError(err)
	}

	if len(receipts) == 0 {
		fmt.Println("No invocations yet")
		return
	}

	for _, r := range receipts {
		fmt.Println(formatReceipt(&r))
	}
}

func formatReceipt(r *host.Receipt) string {
	when := time.Unix(r.Time, 0).Format(time.RFC3339)
	line := fmt.Sprintf("%s  %-7s  %-6s  %s", when, r.Kind, r.Status, r.Caller)
	if !r.OK() {
		return line + "  " + r.Error
	}
	return fmt.Sprintf("%s  %s", line, formatLamports(r.Amount))
}
