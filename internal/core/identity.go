package core

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/illarion/timevault/internal/crypto"
	"github.com/illarion/timevault/internal/keyring"
	"github.com/illarion/timevault/internal/storage"
	"github.com/illarion/timevault/internal/vault"
)

const maxNameLength = 64

var (
	ErrIdentityExists  = errors.New("identity already exists")
	ErrUnknownIdentity = errors.New("unknown identity")
	ErrNoKey           = errors.New("identity key not found in keyring")
	ErrInvalidName     = errors.New("invalid identity name")
	ErrVaultOpen       = errors.New("identity still has an open vault")
	ErrWrongPassphrase = errors.New("wrong passphrase")

	ErrPassphraseRequired = errors.New("passphrase required")
)

// Identity is a named signing key known to the ledger
type Identity struct {
	Name    string
	Address crypto.Address
	Balance uint64
	// HasKey is false when the keyring no longer holds the seed
	HasKey bool
	// Vault is nil when the identity has no open vault
	Vault *vault.Position
}

func validateName(name string) error {
	if name == "" || len(name) > maxNameLength {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	if strings.ContainsAny(name, ":/\\ \t\n") {
		return fmt.Errorf("%w: %q may not contain separators or whitespace", ErrInvalidName, name)
	}
	return nil
}

// seedKey scopes keyring entries to one ledger
func (s *session) seedKey(name string) string {
	return s.ledgerID + ":" + name
}

// identity resolves a name, falling back to the configured default
func (s *session) identity(name string) (string, crypto.Address, error) {
	if name == "" {
		name = s.cfg.DefaultIdentity
	}
	if name == "" {
		return "", crypto.Address{}, fmt.Errorf("%w: no identity given and no default_identity configured", ErrInvalidName)
	}
	addr, err := s.store.GetLabel(name)
	if errors.Is(err, storage.ErrLabelNotFound) {
		return name, addr, fmt.Errorf("%w: %s", ErrUnknownIdentity, name)
	}
	return name, addr, err
}

// resolve accepts an identity name or a base58 address
func (s *session) resolve(target string) (crypto.Address, error) {
	_, addr, err := s.identity(target)
	if err == nil || !errors.Is(err, ErrUnknownIdentity) {
		return addr, err
	}
	if parsed, perr := crypto.ParseAddress(target); perr == nil {
		return parsed, nil
	}
	return addr, err
}

// keyPair loads the named identity's key from the keyring
func (s *session) keyPair(name string) (*crypto.KeyPair, error) {
	name, addr, err := s.identity(name)
	if err != nil {
		return nil, err
	}

	seed, err := keyring.GetSeed(s.seedKey(name))
	if errors.Is(err, keyring.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrNoKey, name)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read keyring: %w", err)
	}
	defer crypto.ClearBytes(seed)

	kp, err := crypto.KeyPairFromSeed(seed)
	if err != nil {
		return nil, err
	}
	if kp.Address() != addr {
		kp.Destroy()
		return nil, fmt.Errorf("keyring entry for %s does not match address %s", name, addr)
	}
	return kp, nil
}

// register stores kp under name, refusing to replace an existing identity
func (s *session) register(name string, kp *crypto.KeyPair) error {
	if err := validateName(name); err != nil {
		return err
	}
	if _, err := s.store.GetLabel(name); err == nil {
		return fmt.Errorf("%w: %s", ErrIdentityExists, name)
	} else if !errors.Is(err, storage.ErrLabelNotFound) {
		return err
	}

	seed := kp.Seed()
	defer crypto.ClearBytes(seed)
	if err := keyring.SaveSeed(s.seedKey(name), seed); err != nil {
		return fmt.Errorf("failed to save key to keyring: %w", err)
	}
	if err := s.store.SetLabel(name, kp.Address()); err != nil {
		keyring.DeleteSeed(s.seedKey(name))
		return err
	}
	return nil
}

// NewIdentity generates a signing key, stores its seed in the OS keyring
// and records it under name
func (t *TimeVault) NewIdentity(ctx context.Context, name string) (crypto.Address, error) {
	if err := ctx.Err(); err != nil {
		return crypto.Address{}, err
	}
	s, err := t.open()
	if err != nil {
		return crypto.Address{}, err
	}
	defer s.Close()

	kp, err := crypto.GenerateKeyPair()
	if err != nil {
		return crypto.Address{}, err
	}
	defer kp.Destroy()

	if err := s.register(name, kp); err != nil {
		return crypto.Address{}, err
	}
	s.log.Info(ctx, "identity created", "name", name, "address", kp.Address())
	return kp.Address(), nil
}

// Identities lists every identity with its balance and vault
func (t *TimeVault) Identities(ctx context.Context) ([]Identity, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s, err := t.open()
	if err != nil {
		return nil, err
	}
	defer s.Close()

	labels, err := s.store.GetLabels()
	if err != nil {
		return nil, err
	}

	identities := make([]Identity, 0, len(labels))
	for _, l := range labels {
		id := Identity{
			Name:    l.Name,
			Address: l.Address,
			HasKey:  keyring.HasSeed(s.seedKey(l.Name)),
		}
		if id.Balance, err = s.host.Balance(l.Address); err != nil {
			return nil, err
		}
		pos, err := s.host.Vault(l.Address)
		switch {
		case err == nil:
			id.Vault = pos
		case !errors.Is(err, vault.ErrNotFound):
			return nil, err
		}
		identities = append(identities, id)
	}
	return identities, nil
}

// RemoveIdentity forgets an identity and deletes its key from the keyring.
// An identity with an open vault cannot be removed, since nobody else
// could ever release it.
func (t *TimeVault) RemoveIdentity(ctx context.Context, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s, err := t.open()
	if err != nil {
		return err
	}
	defer s.Close()

	if name == "" {
		return fmt.Errorf("%w: name required", ErrInvalidName)
	}
	_, addr, err := s.identity(name)
	if err != nil {
		return err
	}
	if _, err := s.host.Vault(addr); err == nil {
		return fmt.Errorf("%w: %s", ErrVaultOpen, name)
	} else if !errors.Is(err, vault.ErrNotFound) {
		return err
	}

	if err := keyring.DeleteSeed(s.seedKey(name)); err != nil {
		return fmt.Errorf("failed to delete key from keyring: %w", err)
	}
	if err := s.store.RemoveLabel(name); err != nil {
		return err
	}
	s.log.Info(ctx, "identity removed", "name", name, "address", addr)
	return nil
}

// ExportIdentity writes the identity's seed, sealed under passphrase, to a
// new file inside the working directory
func (t *TimeVault) ExportIdentity(ctx context.Context, name, file string, passphrase []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(passphrase) == 0 {
		return ErrPassphraseRequired
	}
	s, err := t.open()
	if err != nil {
		return err
	}
	defer s.Close()

	kp, err := s.keyPair(name)
	if err != nil {
		return err
	}
	defer kp.Destroy()

	seed := kp.Seed()
	defer crypto.ClearBytes(seed)
	sealed, err := crypto.Seal(seed, passphrase)
	if err != nil {
		return fmt.Errorf("failed to seal key: %w", err)
	}

	if err := t.validator.CreateFileInRoot(file, sealed, FilePermSecure); err != nil {
		return err
	}
	s.log.Info(ctx, "identity exported", "name", name, "file", file)
	return nil
}

// ImportIdentity reads a sealed key file from the working directory and
// records it under name
func (t *TimeVault) ImportIdentity(ctx context.Context, name, file string, passphrase []byte) (crypto.Address, error) {
	if err := ctx.Err(); err != nil {
		return crypto.Address{}, err
	}
	if len(passphrase) == 0 {
		return crypto.Address{}, ErrPassphraseRequired
	}
	s, err := t.open()
	if err != nil {
		return crypto.Address{}, err
	}
	defer s.Close()

	sealed, err := t.validator.ReadFileInRoot(file)
	if err != nil {
		return crypto.Address{}, err
	}
	seed, err := crypto.Open(sealed, passphrase)
	if errors.Is(err, crypto.ErrAuthFailed) {
		return crypto.Address{}, ErrWrongPassphrase
	}
	if err != nil {
		return crypto.Address{}, err
	}
	defer crypto.ClearBytes(seed)

	kp, err := crypto.KeyPairFromSeed(seed)
	if err != nil {
		return crypto.Address{}, err
	}
	defer kp.Destroy()

	if err := s.register(name, kp); err != nil {
		return crypto.Address{}, err
	}
	s.log.Info(ctx, "identity imported", "name", name, "address", kp.Address())
	return kp.Address(), nil
}
