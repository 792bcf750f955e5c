package host

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/illarion/timevault/internal/crypto"
)

// Kind names a program entry point
type Kind string

const (
	KindOpen    Kind = "open"
	KindRelease Kind = "release"
)

const messageDomain = "timevault/invocation/v1"

var (
	ErrBadSignature        = errors.New("invalid caller signature")
	ErrDuplicateInvocation = errors.New("invocation already processed")
	ErrUnknownProgram      = errors.New("unknown program")
	ErrUnknownKind         = errors.New("unknown entry point")
	ErrInvalidInvocation   = errors.New("invalid invocation")
	ErrNotWallet           = errors.New("not a wallet account")
)

// Invocation is one call into the vault program
type Invocation struct {
	ID           uuid.UUID      `json:"id"`
	Program      crypto.Address `json:"program"`
	Kind         Kind           `json:"kind"`
	Caller       crypto.Address `json:"caller"`
	LockDuration int64          `json:"lock_duration,omitempty"`
	Amount       uint64         `json:"amount,omitempty"`
}

// NewOpen builds an open invocation with a fresh ID
func NewOpen(program, caller crypto.Address, lockDuration int64, amount uint64) *Invocation {
	return &Invocation{
		ID:           uuid.New(),
		Program:      program,
		Kind:         KindOpen,
		Caller:       caller,
		LockDuration: lockDuration,
		Amount:       amount,
	}
}

// NewRelease builds a release invocation with a fresh ID
func NewRelease(program, caller crypto.Address) *Invocation {
	return &Invocation{
		ID:      uuid.New(),
		Program: program,
		Kind:    KindRelease,
		Caller:  caller,
	}
}

// Message returns the canonical bytes the caller signs
func (inv *Invocation) Message() []byte {
	buf := make([]byte, 0, len(messageDomain)+16+32+1+len(inv.Kind)+32+8+8)
	buf = append(buf, messageDomain...)
	buf = append(buf, inv.ID[:]...)
	buf = append(buf, inv.Program[:]...)
	buf = append(buf, byte(len(inv.Kind)))
	buf = append(buf, inv.Kind...)
	buf = append(buf, inv.Caller[:]...)
	buf = binary.BigEndian.AppendUint64(buf, uint64(inv.LockDuration))
	buf = binary.BigEndian.AppendUint64(buf, inv.Amount)
	return buf
}

// Sign produces a signed invocation. The key must belong to the caller.
func (inv *Invocation) Sign(key *crypto.KeyPair) (*SignedInvocation, error) {
	if key.Address() != inv.Caller {
		return nil, fmt.Errorf("%w: signer %s is not caller %s", ErrInvalidInvocation, key.Address(), inv.Caller)
	}
	return &SignedInvocation{
		Invocation: *inv,
		Signature:  key.Sign(inv.Message()),
	}, nil
}

// SignedInvocation is an invocation with the caller's signature
type SignedInvocation struct {
	Invocation
	Signature []byte `json:"signature"`
}

// Verify checks the structure and the caller's signature
func (s *SignedInvocation) Verify() error {
	if s.ID == uuid.Nil {
		return fmt.Errorf("%w: missing id", ErrInvalidInvocation)
	}
	if len(s.Kind) == 0 || len(s.Kind) > 255 {
		return fmt.Errorf("%w: bad kind", ErrInvalidInvocation)
	}
	if !crypto.Verify(s.Caller, s.Message(), s.Signature) {
		return ErrBadSignature
	}
	return nil
}
