package core

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/illarion/timevault/internal/config"
	"github.com/illarion/timevault/internal/git"
	"github.com/illarion/timevault/internal/host"
	"github.com/illarion/timevault/internal/logging"
	"github.com/illarion/timevault/internal/security"
	"github.com/illarion/timevault/internal/storage"
	"github.com/illarion/timevault/internal/vault"
)

const (
	LedgerDir      = ".timevault"
	LedgerFile     = "ledger.db"
	DirPermSecure  = 0700 // Directory: owner rwx only
	FilePermSecure = 0600 // File: owner rw only
)

var (
	ErrNotInitialized = errors.New("timevault not initialized")
	ErrAlreadyExists  = errors.New("timevault already exists")
)

// Option customizes a TimeVault
type Option func(*TimeVault)

// WithClock replaces the system clock
func WithClock(c host.Clock) Option {
	return func(t *TimeVault) { t.clock = c }
}

// WithLogger replaces the logger built from the ledger configuration
func WithLogger(l logging.Logger) Option {
	return func(t *TimeVault) { t.log = l }
}

// TimeVault manages identities and time-locked vaults on a local ledger
type TimeVault struct {
	workDir   string
	dir       string
	clock     host.Clock
	log       logging.Logger
	validator *security.PathValidator
}

// New creates a TimeVault bound to the ledger under workDir
func New(workDir string, opts ...Option) (*TimeVault, error) {
	validator, err := security.New(workDir)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize path validator: %w", err)
	}

	t := &TimeVault{
		workDir:   validator.Dir(),
		dir:       filepath.Join(validator.Dir(), LedgerDir),
		clock:     host.SystemClock{},
		validator: validator,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t, nil
}

// Close releases resources held by the TimeVault instance
func (t *TimeVault) Close() error {
	if t.validator != nil {
		return t.validator.Close()
	}
	return nil
}

// LedgerPath returns the path of the ledger database
func (t *TimeVault) LedgerPath() string {
	return filepath.Join(t.dir, LedgerFile)
}

// Init creates a new ledger directory with default configuration
func (t *TimeVault) Init(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := os.Stat(t.dir); err == nil {
		return ErrAlreadyExists
	}

	if err := os.Mkdir(t.dir, DirPermSecure); err != nil {
		return fmt.Errorf("failed to create ledger directory: %w", err)
	}

	db, err := storage.Open(t.LedgerPath())
	if err != nil {
		return fmt.Errorf("failed to create database: %w", err)
	}
	defer db.Close()

	if err := db.Initialize(); err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	if _, err := db.GetOrCreateLedgerID(); err != nil {
		return fmt.Errorf("failed to create ledger ID: %w", err)
	}

	if err := config.Save(t.dir, config.Default()); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// session is an open ledger with its host
type session struct {
	store    *storage.Storage
	cfg      config.Config
	host     *host.Host
	ledgerID string
	log      logging.Logger
}

func (s *session) Close() error {
	return s.store.Close()
}

// open loads configuration and opens the ledger. The caller must Close it.
func (t *TimeVault) open() (*session, error) {
	if _, err := os.Stat(t.LedgerPath()); err != nil {
		return nil, ErrNotInitialized
	}

	cfg, err := config.Load(t.dir)
	if err != nil {
		return nil, err
	}
	programID, err := cfg.ProgramAddress()
	if err != nil {
		return nil, err
	}

	log := t.log
	if log == nil {
		l, err := logging.New(os.Stderr, cfg.LogLevel, cfg.LogFormat)
		if err != nil {
			return nil, err
		}
		log = l
	}

	db, err := storage.Open(t.LedgerPath())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	ledgerID, err := db.GetOrCreateLedgerID()
	if err != nil {
		db.Close()
		return nil, err
	}

	h := host.New(db, vault.New(programID), host.Options{
		Clock:           t.clock,
		Logger:          log,
		LamportsPerByte: cfg.LamportsPerByte,
	})
	return &session{store: db, cfg: cfg, host: h, ledgerID: ledgerID, log: log}, nil
}

// Airdrop credits lamports from the local faucet to an identity or address
// and returns the new balance
func (t *TimeVault) Airdrop(ctx context.Context, target string, lamports uint64) (uint64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s, err := t.open()
	if err != nil {
		return 0, err
	}
	defer s.Close()

	addr, err := s.resolve(target)
	if err != nil {
		return 0, err
	}
	return s.host.Airdrop(ctx, addr, lamports)
}

// Balance returns the spendable lamports of an identity or address
func (t *TimeVault) Balance(ctx context.Context, target string) (uint64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s, err := t.open()
	if err != nil {
		return 0, err
	}
	defer s.Close()

	addr, err := s.resolve(target)
	if err != nil {
		return 0, err
	}
	return s.host.Balance(addr)
}

// Open locks lamports from the named identity for duration
func (t *TimeVault) Open(ctx context.Context, name string, duration time.Duration, lamports uint64) (*host.Receipt, error) {
	secs, err := lockSeconds(duration)
	if err != nil {
		return nil, err
	}
	return t.execute(ctx, name, func(inv *host.Invocation) {
		inv.Kind = host.KindOpen
		inv.LockDuration = secs
		inv.Amount = lamports
	})
}

// lockSeconds converts d to whole seconds, rounding a fraction up so the
// vault never unlocks before the requested time
func lockSeconds(d time.Duration) (int64, error) {
	if d < 0 {
		return 0, fmt.Errorf("%w: %s", vault.ErrInvalidLockDuration, d)
	}
	secs := int64(d / time.Second)
	if d%time.Second != 0 {
		secs++
	}
	return secs, nil
}

// Release returns the named identity's vault balance once it has unlocked
func (t *TimeVault) Release(ctx context.Context, name string) (*host.Receipt, error) {
	return t.execute(ctx, name, func(inv *host.Invocation) {
		inv.Kind = host.KindRelease
	})
}

func (t *TimeVault) execute(ctx context.Context, name string, build func(*host.Invocation)) (*host.Receipt, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s, err := t.open()
	if err != nil {
		return nil, err
	}
	defer s.Close()

	signed, err := s.sign(name, build)
	if err != nil {
		return nil, err
	}
	return s.host.Execute(ctx, signed)
}

// sign builds an invocation for the named identity and signs it with the
// identity's key from the keyring
func (s *session) sign(name string, build func(*host.Invocation)) (*host.SignedInvocation, error) {
	kp, err := s.keyPair(name)
	if err != nil {
		return nil, err
	}
	defer kp.Destroy()

	inv := &host.Invocation{
		ID:      uuid.New(),
		Program: s.host.Program().ID,
		Caller:  kp.Address(),
	}
	build(inv)
	return inv.Sign(kp)
}

// VaultStatus describes an identity's vault
type VaultStatus struct {
	Identity   string
	Position   *vault.Position
	UnlockTime time.Time
	Now        time.Time
	Remaining  time.Duration
}

// Status returns the named identity's vault without changing anything
func (t *TimeVault) Status(ctx context.Context, name string) (*VaultStatus, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s, err := t.open()
	if err != nil {
		return nil, err
	}
	defer s.Close()

	name, owner, err := s.identity(name)
	if err != nil {
		return nil, err
	}
	pos, err := s.host.Vault(owner)
	if err != nil {
		return nil, err
	}
	now, err := s.host.Now()
	if err != nil {
		return nil, err
	}

	status := &VaultStatus{
		Identity:   name,
		Position:   pos,
		UnlockTime: time.Unix(pos.Record.UnlockTime(), 0),
		Now:        time.Unix(now, 0),
	}
	if !pos.Unlocked {
		status.Remaining = time.Duration(pos.Record.UnlockTime()-now) * time.Second
	}
	return status, nil
}

// SimulationReport is the outcome of a dry run
type SimulationReport struct {
	Receipt *host.Receipt
	// Err is the refusal the invocation would meet, if any
	Err  error
	Diff string
}

// Simulate dry-runs an open or release for the named identity and renders
// the account changes it would make
func (t *TimeVault) Simulate(ctx context.Context, name string, kind host.Kind, duration time.Duration, lamports uint64) (*SimulationReport, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s, err := t.open()
	if err != nil {
		return nil, err
	}
	defer s.Close()

	secs, err := lockSeconds(duration)
	if err != nil {
		return nil, err
	}
	signed, err := s.sign(name, func(inv *host.Invocation) {
		inv.Kind = kind
		inv.LockDuration = secs
		inv.Amount = lamports
	})
	if err != nil {
		return nil, err
	}

	sim, err := s.host.Simulate(ctx, signed)
	if err != nil {
		return nil, err
	}
	return &SimulationReport{
		Receipt: sim.Receipt,
		Err:     sim.Err,
		Diff:    StateDiff(sim.Before, sim.After),
	}, nil
}

// Now returns the ledger clock
func (t *TimeVault) Now(ctx context.Context) (time.Time, error) {
	if err := ctx.Err(); err != nil {
		return time.Time{}, err
	}
	s, err := t.open()
	if err != nil {
		return time.Time{}, err
	}
	defer s.Close()

	now, err := s.host.Now()
	if err != nil {
		return time.Time{}, err
	}
	return time.Unix(now, 0), nil
}

// Warp moves the ledger clock forward by d and returns the new time
func (t *TimeVault) Warp(ctx context.Context, d time.Duration) (time.Time, error) {
	if err := ctx.Err(); err != nil {
		return time.Time{}, err
	}
	s, err := t.open()
	if err != nil {
		return time.Time{}, err
	}
	defer s.Close()

	now, err := s.host.Warp(d)
	if err != nil {
		return time.Time{}, err
	}
	s.log.Info(ctx, "clock warped", "by", d.String(), "now", now)
	return time.Unix(now, 0), nil
}

// History returns up to limit most recent receipts, newest first
func (t *TimeVault) History(ctx context.Context, limit int) ([]host.Receipt, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s, err := t.open()
	if err != nil {
		return nil, err
	}
	defer s.Close()

	return s.host.Receipts(limit)
}

// Compact compacts the ledger database to reclaim unused space
func (t *TimeVault) Compact() error {
	if _, err := os.Stat(t.LedgerPath()); err != nil {
		return ErrNotInitialized
	}
	db, err := storage.Open(t.LedgerPath())
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()
	return db.Compact()
}

// GitStatus reports whether the ledger and the given key files are kept
// out of git
func (t *TimeVault) GitStatus(keyFiles []string) (*git.GitStatus, error) {
	valid := make([]string, 0, len(keyFiles))
	for _, f := range keyFiles {
		p, err := t.validator.ValidateAndNormalize(f)
		if err != nil {
			continue
		}
		valid = append(valid, p)
	}
	return git.CheckGitIntegration(t.workDir, LedgerDir, valid)
}
