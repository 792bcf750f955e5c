package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/illarion/timevault/internal/core"
	"github.com/illarion/timevault/internal/crypto"
	"github.com/illarion/timevault/internal/git"
)

// KeysNew creates a new identity with its key in the OS keyring
func KeysNew(ctx context.Context, name string) {
	tv := openTimeVault()
	defer tv.Close()

	addr, err := tv.NewIdentity(ctx, name)
	if err != nil {
		HandleError(err)
	}

	fmt.Printf("✓ Created identity %s\n", name)
	fmt.Printf("  address: %s\n", addr)
}

// KeysList shows all identities with balances and vaults
func KeysList(ctx context.Context) {
	tv := openTimeVault()
	defer tv.Close()

	ids, err := tv.Identities(ctx)
	if err != nil {
		HandleError(err)
	}

	if len(ids) == 0 {
		fmt.Println("No identities")
		fmt.Println("Run 'timevault keys new <name>' to create one")
		return
	}

	for _, id := range ids {
		marker := " "
		if !id.HasKey {
			marker = "!"
		}
		fmt.Printf("%s %-16s %s  %s\n", marker, id.Name, id.Address, formatLamports(id.Balance))
		if id.Vault != nil {
			state := "locked"
			if id.Vault.Unlocked {
				state = "unlocked"
			}
			fmt.Printf("    vault %s  %s (%s)\n", id.Vault.Address, formatLamports(id.Vault.Balance), state)
		}
	}

	for _, id := range ids {
		if !id.HasKey {
			fmt.Println()
			fmt.Println("Keys marked ! are missing from the OS keyring (restore with 'timevault keys import')")
			break
		}
	}
}

// KeysRemove forgets an identity and deletes its key
func KeysRemove(ctx context.Context, name string) {
	tv := openTimeVault()
	defer tv.Close()

	if err := tv.RemoveIdentity(ctx, name); err != nil {
		HandleError(err)
	}

	fmt.Printf("Removed identity %s\n", name)
}

// KeysExport writes a passphrase-sealed copy of an identity's key
func KeysExport(ctx context.Context, name, file string) {
	tv := openTimeVault()
	defer tv.Close()

	passphrase := GetPassphraseOrExit(true)
	defer crypto.ClearBytes(passphrase)

	if err := tv.ExportIdentity(ctx, name, file, passphrase); err != nil {
		HandleError(err)
	}

	fmt.Printf("✓ Exported %s to %s\n", name, file)

	status, err := tv.GitStatus([]string{file})
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: git check failed: %s\n", err)
		return
	}
	if status.HasWarnings() {
		fmt.Print(git.FormatGitStatus(status, core.LedgerDir))
	}
}

// KeysImport restores an identity from a sealed key file
func KeysImport(ctx context.Context, name, file string) {
	tv := openTimeVault()
	defer tv.Close()

	passphrase := GetPassphraseOrExit(false)
	defer crypto.ClearBytes(passphrase)

	addr, err := tv.ImportIdentity(ctx, name, file, passphrase)
	if err != nil {
		HandleError(err)
	}

	fmt.Printf("✓ Imported identity %s\n", name)
	fmt.Printf("  address: %s\n", addr)
}
