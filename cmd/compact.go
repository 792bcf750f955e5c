package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/illarion/timevault/internal/core"
)

// Compact compacts the ledger database to reclaim unused space
func Compact(_ context.Context) {
	tv := openTimeVault()
	defer tv.Close()

	info, err := os.Stat(tv.LedgerPath())
	if os.IsNotExist(err) {
		HandleError(core.ErrNotInitialized)
	}
	if err != nil {
		HandleError(err)
	}
	sizeBefore := info.Size()

	if err := tv.Compact(); err != nil {
		HandleError(err)
	}

	info, err = os.Stat(tv.LedgerPath())
	if err != nil {
		HandleError(err)
	}
	sizeAfter := info.Size()

	fmt.Printf("Compacted: %s -> %s\n", formatSize(sizeBefore), formatSize(sizeAfter))
}
