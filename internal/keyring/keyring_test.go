package keyring

import (
	"bytes"
	"errors"
	"testing"

	"github.com/zalando/go-keyring"
)

func TestSeedRoundTrip(t *testing.T) {
	keyring.MockInit()

	if HasSeed("alice") {
		t.Fatal("Seed should not exist yet")
	}
	if _, err := GetSeed("alice"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}

	seed := []byte{0, 1, 2, 0xff, 0xfe}
	if err := SaveSeed("alice", seed); err != nil {
		t.Fatalf("Failed to save seed: %v", err)
	}
	got, err := GetSeed("alice")
	if err != nil {
		t.Fatalf("Failed to get seed: %v", err)
	}
	if !bytes.Equal(got, seed) {
		t.Errorf("Seed mismatch: got %x, want %x", got, seed)
	}
	if !HasSeed("alice") {
		t.Error("Seed should exist")
	}

	if err := DeleteSeed("alice"); err != nil {
		t.Fatalf("Failed to delete seed: %v", err)
	}
	if HasSeed("alice") {
		t.Error("Seed should be gone")
	}
	if err := DeleteSeed("alice"); err != nil {
		t.Errorf("Deleting a missing seed should succeed, got %v", err)
	}
}
