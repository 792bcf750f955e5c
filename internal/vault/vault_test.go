package vault

import (
	"fmt"
	"maps"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/illarion/timevault/internal/crypto"
)

const testDeposit = 890

type memAccount struct {
	owner    crypto.Address
	lamports uint64
	deposit  uint64
	data     []byte
}

// memEnv is an in-memory host. invoke gives each call all-or-nothing
// semantics by restoring a snapshot when the call fails.
type memEnv struct {
	program  crypto.Address
	now      int64
	accounts map[crypto.Address]memAccount
	logs     []string
}

func newMemEnv(program crypto.Address) *memEnv {
	return &memEnv{program: program, accounts: map[crypto.Address]memAccount{}}
}

func (m *memEnv) invoke(fn func() error) error {
	snapshot := maps.Clone(m.accounts)
	logs := len(m.logs)
	if err := fn(); err != nil {
		m.accounts = snapshot
		m.logs = m.logs[:logs]
		return err
	}
	return nil
}

func (m *memEnv) Now() int64 { return m.now }

func (m *memEnv) Account(addr crypto.Address) (AccountInfo, bool, error) {
	a, ok := m.accounts[addr]
	if !ok {
		return AccountInfo{}, false, nil
	}
	return AccountInfo{Owner: a.owner, Lamports: a.lamports, Data: a.data}, true, nil
}

func (m *memEnv) CreateAccount(addr, payer crypto.Address, data []byte) error {
	if _, ok := m.accounts[addr]; ok {
		return ErrAlreadyExists
	}
	p := m.accounts[payer]
	if p.lamports < testDeposit {
		return ErrInsufficientFunds
	}
	p.lamports -= testDeposit
	m.accounts[payer] = p
	m.accounts[addr] = memAccount{owner: m.program, deposit: testDeposit, data: append([]byte(nil), data...)}
	return nil
}

func (m *memEnv) DestroyAccount(addr, refundTo crypto.Address) (uint64, error) {
	a, ok := m.accounts[addr]
	if !ok {
		return 0, ErrNotFound
	}
	total := a.lamports + a.deposit
	r := m.accounts[refundTo]
	r.lamports += total
	m.accounts[refundTo] = r
	delete(m.accounts, addr)
	return total, nil
}

func (m *memEnv) Transfer(from, to crypto.Address, amount uint64) error {
	f := m.accounts[from]
	if f.lamports < amount {
		return fmt.Errorf("%w: has %d, need %d", ErrInsufficientFunds, f.lamports, amount)
	}
	f.lamports -= amount
	m.accounts[from] = f
	t := m.accounts[to]
	t.lamports += amount
	m.accounts[to] = t
	return nil
}

func (m *memEnv) Log(format string, args ...any) {
	m.logs = append(m.logs, fmt.Sprintf(format, args...))
}

func (m *memEnv) fund(addr crypto.Address, lamports uint64) {
	a := m.accounts[addr]
	a.lamports += lamports
	m.accounts[addr] = a
}

func (m *memEnv) balance(addr crypto.Address) uint64 {
	return m.accounts[addr].lamports
}

type fixture struct {
	program *Program
	env     *memEnv
	alice   crypto.Address
	bob     crypto.Address
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	programKey, err := crypto.GenerateKeyPair()
	require.NoError(t, err)
	alice, err := crypto.GenerateKeyPair()
	require.NoError(t, err)
	bob, err := crypto.GenerateKeyPair()
	require.NoError(t, err)

	f := &fixture{
		program: New(programKey.Address()),
		env:     newMemEnv(programKey.Address()),
		alice:   alice.Address(),
		bob:     bob.Address(),
	}
	f.env.fund(f.alice, 10_000)
	f.env.fund(f.bob, 10_000)
	return f
}

func (f *fixture) open(caller crypto.Address, duration int64, amount uint64) (*Opened, error) {
	var opened *Opened
	err := f.env.invoke(func() error {
		var err error
		opened, err = f.program.Open(f.env, caller, duration, amount)
		return err
	})
	return opened, err
}

func (f *fixture) release(caller crypto.Address) (*Released, error) {
	var released *Released
	err := f.env.invoke(func() error {
		var err error
		released, err = f.program.Release(f.env, caller)
		return err
	})
	return released, err
}

func TestOpenReleaseScenario(t *testing.T) {
	f := newFixture(t)

	opened, err := f.open(f.alice, 3600, 1000)
	require.NoError(t, err)
	assert.Equal(t, int64(3600), opened.Record.UnlockTime())
	assert.Equal(t, f.alice, opened.Record.Owner())
	assert.Equal(t, uint64(10_000-1000-testDeposit), f.env.balance(f.alice))
	assert.Equal(t, uint64(1000), f.env.balance(opened.Address))
	assert.Contains(t, f.env.logs, "Vault initialized, locked until timestamp: 3600")

	f.env.now = 3599
	_, err = f.release(f.alice)
	require.ErrorIs(t, err, ErrVaultLocked)
	assert.Equal(t, uint64(1000), f.env.balance(opened.Address))

	f.env.now = 3600
	released, err := f.release(f.alice)
	require.NoError(t, err)
	assert.Equal(t, uint64(1000), released.Amount)
	assert.Equal(t, uint64(testDeposit), released.Refund)
	assert.Equal(t, uint64(10_000), f.env.balance(f.alice))

	_, found, err := f.env.Account(opened.Address)
	require.NoError(t, err)
	assert.False(t, found, "record must be destroyed on release")
}

func TestNoEarlyRelease(t *testing.T) {
	for _, duration := range []int64{1, 60, 3600, 86400 * 365} {
		t.Run(fmt.Sprint(duration), func(t *testing.T) {
			f := newFixture(t)
			f.env.now = 1_700_000_000
			opened, err := f.open(f.alice, duration, 500)
			require.NoError(t, err)

			for _, now := range []int64{f.env.now, opened.Record.UnlockTime() - 1} {
				f.env.now = now
				_, err := f.release(f.alice)
				require.ErrorIs(t, err, ErrVaultLocked)
				assert.Equal(t, uint64(500), f.env.balance(opened.Address))
			}
		})
	}
}

func TestReleaseByOtherCaller(t *testing.T) {
	f := newFixture(t)
	opened, err := f.open(f.alice, 10, 1000)
	require.NoError(t, err)

	for _, now := range []int64{0, 10, 1 << 40} {
		f.env.now = now
		_, err := f.release(f.bob)
		require.ErrorIs(t, err, ErrNotFound)
		assert.Equal(t, uint64(1000), f.env.balance(opened.Address))
	}
}

func TestReleaseForgedOwner(t *testing.T) {
	f := newFixture(t)
	addr, bump, err := f.program.Address(f.bob)
	require.NoError(t, err)

	// A record at bob's location that claims alice as owner.
	data, err := NewRecord(f.alice, 0, bump).MarshalBinary()
	require.NoError(t, err)
	f.env.accounts[addr] = memAccount{owner: f.program.ID, lamports: 700, data: data}

	_, err = f.release(f.bob)
	require.ErrorIs(t, err, ErrUnauthorized)
	assert.Equal(t, uint64(700), f.env.balance(addr))
}

func TestReleaseRejectsBadProof(t *testing.T) {
	f := newFixture(t)
	addr, bump, err := f.program.Address(f.alice)
	require.NoError(t, err)

	data, err := NewRecord(f.alice, 0, bump-1).MarshalBinary()
	require.NoError(t, err)
	f.env.accounts[addr] = memAccount{owner: f.program.ID, lamports: 700, data: data}

	_, err = f.release(f.alice)
	require.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, uint64(700), f.env.balance(addr))
}

func TestReleaseRejectsForeignOwnerProgram(t *testing.T) {
	f := newFixture(t)
	addr, bump, err := f.program.Address(f.alice)
	require.NoError(t, err)

	data, err := NewRecord(f.alice, 0, bump).MarshalBinary()
	require.NoError(t, err)
	f.env.accounts[addr] = memAccount{owner: f.bob, lamports: 700, data: data}

	_, err = f.release(f.alice)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestReleaseRejectsGarbageData(t *testing.T) {
	f := newFixture(t)
	addr, _, err := f.program.Address(f.alice)
	require.NoError(t, err)
	f.env.accounts[addr] = memAccount{owner: f.program.ID, lamports: 700, data: []byte("junk")}

	_, err = f.release(f.alice)
	require.ErrorIs(t, err, ErrNotFound)
	require.ErrorIs(t, err, ErrInvalidRecord)
}

func TestDoubleRelease(t *testing.T) {
	f := newFixture(t)
	_, err := f.open(f.alice, 0, 1000)
	require.NoError(t, err)

	_, err = f.release(f.alice)
	require.NoError(t, err)

	_, err = f.release(f.alice)
	require.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, uint64(10_000), f.env.balance(f.alice))
}

func TestReopenAfterRelease(t *testing.T) {
	f := newFixture(t)
	first, err := f.open(f.alice, 5, 1000)
	require.NoError(t, err)

	_, err = f.open(f.alice, 5, 1000)
	require.ErrorIs(t, err, ErrAlreadyExists)

	f.env.now = 5
	_, err = f.release(f.alice)
	require.NoError(t, err)

	f.env.now = 100
	second, err := f.open(f.alice, 50, 2000)
	require.NoError(t, err)
	assert.Equal(t, first.Address, second.Address)
	assert.Equal(t, int64(150), second.Record.UnlockTime())
	assert.Equal(t, uint64(2000), f.env.balance(second.Address))
}

func TestOpenValidation(t *testing.T) {
	f := newFixture(t)

	_, err := f.open(f.alice, 10, 0)
	require.ErrorIs(t, err, ErrInvalidAmount)

	_, err = f.open(f.alice, -1, 10)
	require.ErrorIs(t, err, ErrInvalidLockDuration)

	f.env.now = 10
	_, err = f.open(f.alice, 1<<62+(1<<62-1), 10)
	require.ErrorIs(t, err, ErrInvalidLockDuration)

	assert.Equal(t, uint64(10_000), f.env.balance(f.alice))
}

func TestOpenInsufficientFundsIsAtomic(t *testing.T) {
	f := newFixture(t)

	_, err := f.open(f.alice, 10, 20_000)
	require.ErrorIs(t, err, ErrInsufficientFunds)

	addr, _, err := f.program.Address(f.alice)
	require.NoError(t, err)
	_, found, err := f.env.Account(addr)
	require.NoError(t, err)
	assert.False(t, found, "failed open must not leave a record behind")
	assert.Equal(t, uint64(10_000), f.env.balance(f.alice))
}

func TestZeroDurationIsImmediatelyReleasable(t *testing.T) {
	f := newFixture(t)
	f.env.now = 42
	opened, err := f.open(f.alice, 0, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(42), opened.Record.UnlockTime())

	_, err = f.release(f.alice)
	require.NoError(t, err)
}

func TestInspect(t *testing.T) {
	f := newFixture(t)
	_, err := f.program.Inspect(f.env, f.alice)
	require.ErrorIs(t, err, ErrNotFound)

	_, err = f.open(f.alice, 100, 1234)
	require.NoError(t, err)

	pos, err := f.program.Inspect(f.env, f.alice)
	require.NoError(t, err)
	assert.Equal(t, uint64(1234), pos.Balance)
	assert.False(t, pos.Unlocked)

	f.env.now = 100
	pos, err = f.program.Inspect(f.env, f.alice)
	require.NoError(t, err)
	assert.True(t, pos.Unlocked)
}

func TestIsPolicyError(t *testing.T) {
	assert.True(t, IsPolicyError(fmt.Errorf("wrapped: %w", ErrVaultLocked)))
	assert.False(t, IsPolicyError(fmt.Errorf("disk on fire")))
}
