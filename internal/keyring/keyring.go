// Package keyring keeps identity seeds in the OS keyring.
package keyring

import (
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/zalando/go-keyring"
)

const serviceName = "timevault"

// ErrNotFound is returned when no seed is stored for an identity
var ErrNotFound = keyring.ErrNotFound

// SaveSeed stores an identity seed in the OS keyring
func SaveSeed(name string, seed []byte) error {
	return keyring.Set(serviceName, name, base64.StdEncoding.EncodeToString(seed))
}

// GetSeed retrieves an identity seed from the OS keyring
func GetSeed(name string) ([]byte, error) {
	encoded, err := keyring.Get(serviceName, name)
	if err != nil {
		return nil, err
	}
	seed, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("corrupt keyring entry for %s: %w", name, err)
	}
	return seed, nil
}

// DeleteSeed removes an identity seed from the OS keyring.
// Deleting a missing entry is not an error.
func DeleteSeed(name string) error {
	err := keyring.Delete(serviceName, name)
	if errors.Is(err, keyring.ErrNotFound) {
		return nil
	}
	return err
}

// HasSeed checks if a seed is stored for name
func HasSeed(name string) bool {
	_, err := keyring.Get(serviceName, name)
	return err == nil
}
