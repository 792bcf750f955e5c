package host

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/illarion/timevault/internal/crypto"
	"github.com/illarion/timevault/internal/logging"
	"github.com/illarion/timevault/internal/storage"
	"github.com/illarion/timevault/internal/vault"
)

// ErrInvalidWarp is returned for a warp that is negative or not a whole
// number of seconds
var ErrInvalidWarp = errors.New("invalid warp")

// Options configures a Host
type Options struct {
	Clock           Clock
	Logger          logging.Logger
	LamportsPerByte uint64
}

// Host executes vault program invocations against a ledger
type Host struct {
	store           *storage.Storage
	program         *vault.Program
	clock           Clock
	log             logging.Logger
	lamportsPerByte uint64
}

// New returns a host running program over store
func New(store *storage.Storage, program *vault.Program, opts Options) *Host {
	h := &Host{
		store:           store,
		program:         program,
		clock:           opts.Clock,
		log:             opts.Logger,
		lamportsPerByte: opts.LamportsPerByte,
	}
	if h.clock == nil {
		h.clock = SystemClock{}
	}
	if h.log == nil {
		h.log = logging.Discard()
	}
	return h
}

// Program returns the program this host runs
func (h *Host) Program() *vault.Program {
	return h.program
}

// Deposit returns the allocation deposit for size bytes of account data
func (h *Host) Deposit(size int) (uint64, error) {
	return Deposit(size, h.lamportsPerByte)
}

// Now returns the ledger clock in unix seconds
func (h *Host) Now() (int64, error) {
	offset, err := h.store.GetClockOffset()
	if err != nil {
		return 0, err
	}
	return h.clock.Now().Unix() + offset, nil
}

// Warp moves the ledger clock forward by d and returns the new time
func (h *Host) Warp(d time.Duration) (int64, error) {
	if d < 0 {
		return 0, fmt.Errorf("%w: cannot warp backwards by %s", ErrInvalidWarp, d)
	}
	if d%time.Second != 0 {
		return 0, fmt.Errorf("%w: %s is not a whole number of seconds", ErrInvalidWarp, d)
	}
	if _, err := h.store.AddClockOffset(int64(d / time.Second)); err != nil {
		return 0, fmt.Errorf("failed to warp clock: %w", err)
	}
	return h.Now()
}

// Execute authenticates and runs one invocation. Its effects commit together
// with a success receipt, or not at all. When the program refuses the call
// a failed receipt is stored and returned along with the error.
func (h *Host) Execute(ctx context.Context, inv *SignedInvocation) (*Receipt, error) {
	if err := h.admit(inv); err != nil {
		h.log.Warn(ctx, "invocation rejected", "id", inv.ID, "error", err)
		return nil, err
	}

	var receipt *Receipt
	runErr := h.store.Update(func(tx *storage.Tx) error {
		seen, err := tx.HasInvocation(inv.ID[:])
		if err != nil {
			return err
		}
		if seen {
			return fmt.Errorf("%w: %s", ErrDuplicateInvocation, inv.ID)
		}

		var runErr error
		receipt, runErr = h.run(tx, inv)
		if runErr != nil {
			return runErr
		}
		return putReceipt(tx, receipt)
	})

	if runErr != nil {
		if receipt == nil || errors.Is(runErr, ErrDuplicateInvocation) {
			h.log.Warn(ctx, "invocation rejected", "id", inv.ID, "error", runErr)
			return nil, runErr
		}
		receipt.Status = StatusFailed
		receipt.Error = runErr.Error()
		if !vault.IsPolicyError(runErr) {
			h.log.Error(ctx, "invocation aborted", "id", inv.ID, "error", runErr)
		}
		h.emit(ctx, receipt)

		if err := h.store.Update(func(tx *storage.Tx) error {
			return putReceipt(tx, receipt)
		}); err != nil {
			h.log.Error(ctx, "failed to record receipt", "id", inv.ID, "error", err)
		}
		return receipt, runErr
	}

	h.emit(ctx, receipt)
	return receipt, nil
}

// Simulation is the outcome of a dry run
type Simulation struct {
	Receipt *Receipt
	Err     error
	Before  []AccountState
	After   []AccountState
}

// AccountState is a snapshot of one address. Account is nil when nothing
// is allocated there.
type AccountState struct {
	Label   string
	Address crypto.Address
	Account *storage.Account
}

// Simulate runs inv in a transaction that is always discarded and reports
// the caller and vault accounts before and after it.
func (h *Host) Simulate(ctx context.Context, inv *SignedInvocation) (*Simulation, error) {
	if err := h.admit(inv); err != nil {
		return nil, err
	}
	vaultAddr, _, err := h.program.Address(inv.Caller)
	if err != nil {
		return nil, err
	}
	watch := []AccountState{
		{Label: "caller", Address: inv.Caller},
		{Label: "vault", Address: vaultAddr},
	}

	sim := &Simulation{}
	err = h.store.Rollback(func(tx *storage.Tx) error {
		before, err := snapshot(tx, watch)
		if err != nil {
			return err
		}
		sim.Before = before

		sim.Receipt, sim.Err = h.run(tx, inv)
		if sim.Err != nil {
			sim.Receipt.Status = StatusFailed
			sim.Receipt.Error = sim.Err.Error()
			return nil
		}

		after, err := snapshot(tx, watch)
		if err != nil {
			return err
		}
		sim.After = after
		return nil
	})
	if err != nil {
		return nil, err
	}
	if sim.After == nil {
		// Nothing changed when the program refused the call.
		sim.After = sim.Before
	}

	h.log.Debug(ctx, "invocation simulated", "id", inv.ID, "kind", inv.Kind, "status", sim.Receipt.Status)
	return sim, nil
}

// admit checks everything about inv that does not need the ledger
func (h *Host) admit(inv *SignedInvocation) error {
	if err := inv.Verify(); err != nil {
		return err
	}
	if inv.Program != h.program.ID {
		return fmt.Errorf("%w: %s", ErrUnknownProgram, inv.Program)
	}
	return nil
}

// run dispatches inv to the program inside tx. The receipt is never nil.
func (h *Host) run(tx *storage.Tx, inv *SignedInvocation) (*Receipt, error) {
	env := &txEnv{
		tx:              tx,
		program:         h.program.ID,
		signer:          inv.Caller,
		now:             h.clock.Now().Unix() + tx.ClockOffset(),
		lamportsPerByte: h.lamportsPerByte,
	}
	receipt := &Receipt{
		ID:     inv.ID,
		Kind:   inv.Kind,
		Caller: inv.Caller,
		Time:   env.now,
		Status: StatusOK,
	}
	if addr, _, err := h.program.Address(inv.Caller); err == nil {
		receipt.Vault = addr
	}

	var err error
	switch inv.Kind {
	case KindOpen:
		var opened *vault.Opened
		opened, err = h.program.Open(env, inv.Caller, inv.LockDuration, inv.Amount)
		if err == nil {
			receipt.UnlockTime = opened.Record.UnlockTime()
			receipt.Amount = opened.Amount
			receipt.Deposit, err = h.Deposit(vault.RecordSize)
		}
	case KindRelease:
		var released *vault.Released
		released, err = h.program.Release(env, inv.Caller)
		if err == nil {
			receipt.Amount = released.Amount
			receipt.Deposit = released.Refund
		}
	default:
		err = fmt.Errorf("%w: %q", ErrUnknownKind, inv.Kind)
	}

	receipt.Logs = env.logs
	return receipt, err
}

func (h *Host) emit(ctx context.Context, r *Receipt) {
	log := h.log.With("id", r.ID, "kind", r.Kind, "caller", r.Caller)
	for _, line := range r.Logs {
		log.Info(ctx, "program log", "line", line)
	}
	if r.OK() {
		log.Info(ctx, "invocation committed", "vault", r.Vault, "amount", r.Amount)
		return
	}
	log.Warn(ctx, "invocation failed", "error", r.Error)
}

func putReceipt(tx *storage.Tx, r *Receipt) error {
	data, err := json.Marshal(r)
	if err != nil {
		return err
	}
	_, err = tx.PutReceipt(r.ID[:], data)
	return err
}

func snapshot(tx *storage.Tx, watch []AccountState) ([]AccountState, error) {
	out := make([]AccountState, len(watch))
	for i, w := range watch {
		acc, err := tx.GetAccount(w.Address)
		if err != nil {
			return nil, err
		}
		out[i] = AccountState{Label: w.Label, Address: w.Address, Account: acc}
	}
	return out, nil
}

// Airdrop credits lamports to a wallet address from the local faucet and
// returns the new balance. Program-derived addresses are refused so that no
// one can occupy a vault location before its owner opens it.
func (h *Host) Airdrop(ctx context.Context, to crypto.Address, lamports uint64) (uint64, error) {
	if lamports == 0 {
		return 0, vault.ErrInvalidAmount
	}
	if !to.OnCurve() {
		return 0, fmt.Errorf("%w: %s is a program-derived address", ErrNotWallet, to)
	}

	var balance uint64
	err := h.store.Update(func(tx *storage.Tx) error {
		acc, err := tx.GetAccount(to)
		if err != nil {
			return err
		}
		if acc == nil {
			acc = &storage.Account{}
		}
		if !acc.IsWallet() {
			return fmt.Errorf("%w: %s", ErrNotWallet, to)
		}
		balance, err = SafeAdd(acc.Lamports, lamports)
		if err != nil {
			return err
		}
		acc.Lamports = balance
		return tx.PutAccount(to, acc)
	})
	if err != nil {
		return 0, err
	}

	h.log.Info(ctx, "airdrop", "to", to, "lamports", lamports, "balance", balance)
	return balance, nil
}

// Account returns the ledger entry at addr, or nil if none exists
func (h *Host) Account(addr crypto.Address) (*storage.Account, error) {
	var acc *storage.Account
	err := h.store.View(func(tx *storage.Tx) error {
		var err error
		acc, err = tx.GetAccount(addr)
		return err
	})
	return acc, err
}

// Balance returns the spendable lamports held at addr
func (h *Host) Balance(addr crypto.Address) (uint64, error) {
	acc, err := h.Account(addr)
	if err != nil || acc == nil {
		return 0, err
	}
	return acc.Lamports, nil
}

// Vault returns owner's vault as the program sees it
func (h *Host) Vault(owner crypto.Address) (*vault.Position, error) {
	var pos *vault.Position
	err := h.store.View(func(tx *storage.Tx) error {
		env := &txEnv{
			tx:      tx,
			program: h.program.ID,
			now:     h.clock.Now().Unix() + tx.ClockOffset(),
		}
		var err error
		pos, err = h.program.Inspect(env, owner)
		return err
	})
	return pos, err
}

// Receipts returns up to limit most recent receipts, newest first
func (h *Host) Receipts(limit int) ([]Receipt, error) {
	var raw [][]byte
	err := h.store.View(func(tx *storage.Tx) error {
		var err error
		raw, err = tx.Receipts(limit)
		return err
	})
	if err != nil {
		return nil, err
	}

	receipts := make([]Receipt, 0, len(raw))
	for _, data := range raw {
		var r Receipt
		if err := json.Unmarshal(data, &r); err != nil {
			return nil, fmt.Errorf("failed to decode receipt: %w", err)
		}
		receipts = append(receipts, r)
	}
	return receipts, nil
}
