package cmd

import (
	"context"
	"fmt"
)

// Airdrop credits SOL from the local faucet
func Airdrop(ctx context.Context, target, amount string) {
	tv := openTimeVault()
	defer tv.Close()

	lamports := parseAmount(amount)
	balance, err := tv.Airdrop(ctx, target, lamports)
	if err != nil {
		HandleError(err)
	}

	fmt.Printf("Airdropped %s\n", formatLamports(lamports))
	fmt.Printf("Balance: %s\n", formatLamports(balance))
}

// Balance shows the spendable balance of an identity or address
func Balance(ctx context.Context, target string) {
	tv := openTimeVault()
	defer tv.Close()

	balance, err := tv.Balance(ctx, target)
	if err != nil {
		HandleError(err)
	}

	fmt.Println(formatLamports(balance))
}
