package storage

import (
	"github.com/illarion/timevault/internal/crypto"
)

// Account is the ledger entry stored for one address
type Account struct {
	// Lamports is the spendable balance
	Lamports uint64 `json:"lamports"`
	// Deposit is the allocation deposit held while Data is allocated
	Deposit uint64 `json:"deposit,omitempty"`
	// Owner is the program controlling the account; zero for wallets
	Owner crypto.Address `json:"owner"`
	Data  []byte         `json:"data,omitempty"`
}

// Total returns every lamport held at the account
func (a *Account) Total() uint64 {
	return a.Lamports + a.Deposit
}

// IsWallet reports whether the account is a plain wallet account
func (a *Account) IsWallet() bool {
	return a.Owner.IsZero() && len(a.Data) == 0
}

// IsEmpty reports whether the account holds nothing and can be dropped
func (a *Account) IsEmpty() bool {
	return a.Total() == 0 && len(a.Data) == 0 && a.Owner.IsZero()
}
