package vault

import (
	"errors"
	"fmt"
	"math"

	"github.com/illarion/timevault/internal/crypto"
)

// AccountInfo is what the host reports about an account
type AccountInfo struct {
	// Owner is the program that controls the account data and balance.
	// Zero means a plain wallet account.
	Owner crypto.Address
	// Lamports is the spendable balance, excluding the allocation deposit.
	Lamports uint64
	Data     []byte
}

// Env is the host execution environment a single invocation runs in.
// Every effect made through Env must commit or roll back as one unit.
type Env interface {
	// Now returns the trusted clock in unix seconds.
	Now() int64
	// Account looks up addr. found is false when nothing is allocated there.
	Account(addr crypto.Address) (info AccountInfo, found bool, err error)
	// CreateAccount allocates addr for the running program with data,
	// charging the allocation deposit to payer. It fails with
	// ErrAlreadyExists if addr is occupied and ErrInsufficientFunds if
	// payer cannot cover the deposit.
	CreateAccount(addr, payer crypto.Address, data []byte) error
	// DestroyAccount moves every lamport held at addr, deposit included,
	// to refundTo and frees the account. It returns the amount moved.
	DestroyAccount(addr, refundTo crypto.Address) (uint64, error)
	// Transfer moves amount from a wallet account. It fails with
	// ErrInsufficientFunds when from cannot cover it.
	Transfer(from, to crypto.Address, amount uint64) error
	// Log records an informational message. Delivery is not guaranteed.
	Log(format string, args ...any)
}

// Program is the vault program deployed under ID
type Program struct {
	ID crypto.Address
}

// New returns the vault program for the given program ID
func New(id crypto.Address) *Program {
	return &Program{ID: id}
}

// Opened describes a freshly created vault
type Opened struct {
	Address crypto.Address
	Record  Record
	Amount  uint64
}

// Released describes a completed release
type Released struct {
	Address crypto.Address
	// Amount is the custody balance paid back to the owner.
	Amount uint64
	// Refund is the allocation deposit returned alongside it.
	Refund uint64
}

// Position is a read-only view of an existing vault
type Position struct {
	Address  crypto.Address
	Record   Record
	Balance  uint64
	Unlocked bool
}

// Address returns the vault address and canonical bump for owner
func (p *Program) Address(owner crypto.Address) (crypto.Address, uint8, error) {
	return FindAddress(p.ID, vaultSeeds(owner)...)
}

// Open locks amount lamports from caller until now+lockDuration.
// The caller must already be authenticated by the host.
func (p *Program) Open(env Env, caller crypto.Address, lockDuration int64, amount uint64) (*Opened, error) {
	if amount == 0 {
		return nil, ErrInvalidAmount
	}
	if lockDuration < 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidLockDuration, lockDuration)
	}

	addr, bump, err := p.Address(caller)
	if err != nil {
		return nil, fmt.Errorf("derive vault address: %w", err)
	}

	_, found, err := env.Account(addr)
	if err != nil {
		return nil, fmt.Errorf("load vault account: %w", err)
	}
	if found {
		return nil, fmt.Errorf("%w: %s", ErrAlreadyExists, addr)
	}

	now := env.Now()
	if now > 0 && lockDuration > math.MaxInt64-now {
		return nil, fmt.Errorf("%w: unlock time overflows", ErrInvalidLockDuration)
	}

	record := NewRecord(caller, now+lockDuration, bump)
	data, err := record.MarshalBinary()
	if err != nil {
		return nil, err
	}

	if err := env.CreateAccount(addr, caller, data); err != nil {
		return nil, fmt.Errorf("create vault account: %w", err)
	}
	if err := env.Transfer(caller, addr, amount); err != nil {
		return nil, fmt.Errorf("fund vault: %w", err)
	}

	env.Log("Vault initialized, locked until timestamp: %d", record.UnlockTime())
	return &Opened{Address: addr, Record: record, Amount: amount}, nil
}

// Release pays the whole custody balance back to caller and destroys the
// vault, provided the unlock time has been reached and caller owns it.
func (p *Program) Release(env Env, caller crypto.Address) (*Released, error) {
	addr, info, record, err := p.load(env, caller)
	if err != nil {
		return nil, err
	}

	if now := env.Now(); now < record.UnlockTime() {
		return nil, fmt.Errorf("%w: unlocks at %d, now %d", ErrVaultLocked, record.UnlockTime(), now)
	}
	if record.Owner() != caller {
		return nil, ErrUnauthorized
	}

	paid, err := env.DestroyAccount(addr, caller)
	if err != nil {
		return nil, fmt.Errorf("close vault account: %w", err)
	}

	env.Log("Time lock passed, released %d lamports", info.Lamports)
	return &Released{
		Address: addr,
		Amount:  info.Lamports,
		Refund:  paid - info.Lamports,
	}, nil
}

// Inspect returns owner's vault without changing anything
func (p *Program) Inspect(env Env, owner crypto.Address) (*Position, error) {
	addr, info, record, err := p.load(env, owner)
	if err != nil {
		return nil, err
	}
	return &Position{
		Address:  addr,
		Record:   record,
		Balance:  info.Lamports,
		Unlocked: record.Unlocked(env.Now()),
	}, nil
}

// load re-derives the vault address for owner and accepts only a record
// that this program owns and whose stored bump reproduces that address.
func (p *Program) load(env Env, owner crypto.Address) (crypto.Address, AccountInfo, Record, error) {
	addr, bump, err := p.Address(owner)
	if err != nil {
		return addr, AccountInfo{}, Record{}, fmt.Errorf("derive vault address: %w", err)
	}

	info, found, err := env.Account(addr)
	if err != nil {
		return addr, info, Record{}, fmt.Errorf("load vault account: %w", err)
	}
	if !found {
		return addr, info, Record{}, ErrNotFound
	}
	if info.Owner != p.ID {
		return addr, info, Record{}, fmt.Errorf("%w: account not owned by program", ErrNotFound)
	}

	record, err := DecodeRecord(info.Data)
	if err != nil {
		return addr, info, Record{}, fmt.Errorf("%w: %w", ErrNotFound, err)
	}
	if record.Bump() != bump {
		return addr, info, Record{}, fmt.Errorf("%w: derivation proof mismatch", ErrNotFound)
	}
	return addr, info, record, nil
}

// IsPolicyError reports whether err is a deterministic refusal by the
// program rather than a host failure.
func IsPolicyError(err error) bool {
	for _, target := range []error{
		ErrAlreadyExists, ErrVaultLocked, ErrUnauthorized, ErrNotFound,
		ErrInsufficientFunds, ErrInvalidAmount, ErrInvalidLockDuration,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
