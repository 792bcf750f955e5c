package vault

import (
	"crypto/sha256"
	"errors"
	"fmt"

	"github.com/illarion/timevault/internal/crypto"
)

const (
	// SeedLabel is the fixed seed every vault address is derived from
	SeedLabel = "vault"

	MaxSeeds      = 16
	MaxSeedLength = 32

	derivationMarker = "ProgramDerivedAddress"
)

var (
	ErrSeedTooLong  = errors.New("derivation seed too long")
	ErrOnCurve      = errors.New("derived address is on the ed25519 curve")
	ErrNoViableBump = errors.New("unable to find a viable derivation bump")
)

// CreateAddress derives the program address for seeds and an explicit bump.
// It fails with ErrOnCurve when the result could have a private key.
func CreateAddress(program crypto.Address, bump uint8, seeds ...[]byte) (crypto.Address, error) {
	var addr crypto.Address
	if len(seeds) > MaxSeeds {
		return addr, fmt.Errorf("%w: %d seeds", ErrSeedTooLong, len(seeds))
	}

	h := sha256.New()
	for _, s := range seeds {
		if len(s) > MaxSeedLength {
			return addr, fmt.Errorf("%w: %d bytes", ErrSeedTooLong, len(s))
		}
		h.Write(s)
	}
	h.Write([]byte{bump})
	h.Write(program[:])
	h.Write([]byte(derivationMarker))
	copy(addr[:], h.Sum(nil))

	if addr.OnCurve() {
		return crypto.Address{}, ErrOnCurve
	}
	return addr, nil
}

// FindAddress searches bumps from 255 downwards and returns the first address
// that is off the curve together with the bump that produced it.
func FindAddress(program crypto.Address, seeds ...[]byte) (crypto.Address, uint8, error) {
	for bump := 255; bump >= 0; bump-- {
		addr, err := CreateAddress(program, uint8(bump), seeds...)
		if err == nil {
			return addr, uint8(bump), nil
		}
		if !errors.Is(err, ErrOnCurve) {
			return crypto.Address{}, 0, err
		}
	}
	return crypto.Address{}, 0, ErrNoViableBump
}

func vaultSeeds(owner crypto.Address) [][]byte {
	return [][]byte{[]byte(SeedLabel), owner[:]}
}
