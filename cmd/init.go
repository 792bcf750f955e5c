package cmd

import (
	"context"
	"fmt"

	"github.com/illarion/timevault/internal/core"
	"github.com/illarion/timevault/internal/git"
)

// Init creates a new ledger in the current directory
func Init(ctx context.Context) {
	tv := openTimeVault()
	defer tv.Close()

	if err := tv.Init(ctx); err != nil {
		HandleError(err)
	}

	fmt.Printf("✓ Initialized %s\n", core.LedgerDir)

	if status, err := tv.GitStatus(nil); err == nil && status.HasWarnings() {
		fmt.Print(git.FormatGitStatus(status, core.LedgerDir))
	}
}
