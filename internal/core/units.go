package core

import (
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"
)

// LamportsPerSOL is the number of lamports in one SOL
const LamportsPerSOL = 1_000_000_000

const solDecimals = 9

// ParseSOL converts a decimal SOL amount such as "1.5" to lamports
func ParseSOL(s string) (uint64, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("invalid SOL amount %q", s)
	}
	if d.Sign() < 0 {
		return 0, fmt.Errorf("negative SOL amount %q", s)
	}

	lamports := d.Shift(solDecimals)
	if !lamports.IsInteger() {
		return 0, fmt.Errorf("SOL amount %q is finer than one lamport", s)
	}
	n := lamports.BigInt()
	if !n.IsUint64() {
		return 0, fmt.Errorf("SOL amount %q is too large", s)
	}
	return n.Uint64(), nil
}

// FormatSOL renders lamports as a decimal SOL amount
func FormatSOL(lamports uint64) string {
	return decimal.NewFromBigInt(new(big.Int).SetUint64(lamports), -solDecimals).String()
}
