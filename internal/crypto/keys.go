package crypto

import (
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"fmt"
)

// SeedSize is the size of an ed25519 private key seed
const SeedSize = ed25519.SeedSize

var ErrInvalidSeed = errors.New("invalid key seed")

// KeyPair is a signing identity
type KeyPair struct {
	priv ed25519.PrivateKey
	addr Address
}

// GenerateKeyPair creates a fresh random identity
func GenerateKeyPair() (*KeyPair, error) {
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("failed to generate key: %w", err)
	}
	return newKeyPair(priv), nil
}

// KeyPairFromSeed restores an identity from its 32-byte seed
func KeyPairFromSeed(seed []byte) (*KeyPair, error) {
	if len(seed) != SeedSize {
		return nil, fmt.Errorf("%w: expected %d bytes, got %d", ErrInvalidSeed, SeedSize, len(seed))
	}
	return newKeyPair(ed25519.NewKeyFromSeed(seed)), nil
}

func newKeyPair(priv ed25519.PrivateKey) *KeyPair {
	kp := &KeyPair{priv: priv}
	copy(kp.addr[:], priv.Public().(ed25519.PublicKey))
	return kp
}

// Address returns the public address of the key pair
func (k *KeyPair) Address() Address {
	return k.addr
}

// Seed returns a copy of the private seed. Callers must ClearBytes it.
func (k *KeyPair) Seed() []byte {
	return append([]byte(nil), k.priv.Seed()...)
}

// Sign signs msg
func (k *KeyPair) Sign(msg []byte) []byte {
	return ed25519.Sign(k.priv, msg)
}

// Destroy zeroes the private key
func (k *KeyPair) Destroy() {
	ClearBytes(k.priv)
}

// Verify checks an ed25519 signature made by addr
func Verify(addr Address, msg, sig []byte) bool {
	if len(sig) != ed25519.SignatureSize {
		return false
	}
	return ed25519.Verify(ed25519.PublicKey(addr[:]), msg, sig)
}
