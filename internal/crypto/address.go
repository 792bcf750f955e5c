package crypto

import (
	"errors"
	"fmt"

	"filippo.io/edwards25519"
	"github.com/btcsuite/btcd/btcutil/base58"
)

// AddressSize is the length of an address in bytes
const AddressSize = 32

var ErrInvalidAddress = errors.New("invalid address")

// Address identifies an account on the ledger. For wallets it is the
// ed25519 public key; for program-derived accounts it is a hash that
// is not a valid curve point.
type Address [AddressSize]byte

// ParseAddress decodes a base58 address
func ParseAddress(s string) (Address, error) {
	var a Address
	raw := base58.Decode(s)
	if len(raw) != AddressSize {
		return a, fmt.Errorf("%w: %q", ErrInvalidAddress, s)
	}
	copy(a[:], raw)
	return a, nil
}

// String returns the base58 form
func (a Address) String() string {
	return base58.Encode(a[:])
}

// Bytes returns a copy of the raw address
func (a Address) Bytes() []byte {
	return append([]byte(nil), a[:]...)
}

// IsZero reports whether the address is all zeroes
func (a Address) IsZero() bool {
	return a == Address{}
}

// MarshalText implements encoding.TextMarshaler
func (a Address) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (a *Address) UnmarshalText(text []byte) error {
	parsed, err := ParseAddress(string(text))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// IsOnCurve reports whether the address decodes to a valid edwards25519
// point, i.e. whether it could be an ed25519 public key.
func IsOnCurve(b []byte) bool {
	_, err := new(edwards25519.Point).SetBytes(b)
	return err == nil
}

// OnCurve reports whether a could hold a private key
func (a Address) OnCurve() bool {
	return IsOnCurve(a[:])
}
