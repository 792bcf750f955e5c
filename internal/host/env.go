package host

import (
	"fmt"

	"github.com/illarion/timevault/internal/crypto"
	"github.com/illarion/timevault/internal/storage"
	"github.com/illarion/timevault/internal/vault"
)

// AccountOverhead is the per-account storage charged on top of its data
const AccountOverhead = 128

// depositYears is how many years of storage the allocation deposit prepays
const depositYears = 2

// Deposit returns the allocation deposit for size bytes of account data
func Deposit(size int, lamportsPerByte uint64) (uint64, error) {
	n, err := SafeMul(uint64(AccountOverhead+size), lamportsPerByte)
	if err != nil {
		return 0, err
	}
	return SafeMul(n, depositYears)
}

// txEnv runs one invocation against a ledger transaction
type txEnv struct {
	tx              *storage.Tx
	program         crypto.Address
	signer          crypto.Address
	now             int64
	lamportsPerByte uint64
	logs            []string
}

var _ vault.Env = (*txEnv)(nil)

func (e *txEnv) Now() int64 {
	return e.now
}

func (e *txEnv) Account(addr crypto.Address) (vault.AccountInfo, bool, error) {
	acc, err := e.tx.GetAccount(addr)
	if err != nil {
		return vault.AccountInfo{}, false, err
	}
	if acc == nil {
		return vault.AccountInfo{}, false, nil
	}
	return vault.AccountInfo{
		Owner:    acc.Owner,
		Lamports: acc.Lamports,
		Data:     append([]byte(nil), acc.Data...),
	}, true, nil
}

func (e *txEnv) CreateAccount(addr, payer crypto.Address, data []byte) error {
	existing, err := e.tx.GetAccount(addr)
	if err != nil {
		return err
	}
	if existing != nil {
		return fmt.Errorf("%w: %s", vault.ErrAlreadyExists, addr)
	}

	deposit, err := Deposit(len(data), e.lamportsPerByte)
	if err != nil {
		return err
	}
	if err := e.debit(payer, deposit); err != nil {
		return fmt.Errorf("allocation deposit: %w", err)
	}

	return e.tx.PutAccount(addr, &storage.Account{
		Deposit: deposit,
		Owner:   e.program,
		Data:    append([]byte(nil), data...),
	})
}

func (e *txEnv) DestroyAccount(addr, refundTo crypto.Address) (uint64, error) {
	acc, err := e.tx.GetAccount(addr)
	if err != nil {
		return 0, err
	}
	if acc == nil {
		return 0, fmt.Errorf("%w: %s", vault.ErrNotFound, addr)
	}
	if acc.Owner != e.program {
		return 0, fmt.Errorf("account %s is not owned by the running program", addr)
	}
	if addr == refundTo {
		return 0, fmt.Errorf("cannot refund account %s to itself", addr)
	}

	paid := acc.Total()
	if err := e.credit(refundTo, paid); err != nil {
		return 0, err
	}
	if err := e.tx.DeleteAccount(addr); err != nil {
		return 0, err
	}
	return paid, nil
}

func (e *txEnv) Transfer(from, to crypto.Address, amount uint64) error {
	if from != e.signer {
		return fmt.Errorf("transfer from %s requires its signature", from)
	}
	if from == to {
		return fmt.Errorf("transfer to self")
	}
	if err := e.debit(from, amount); err != nil {
		return err
	}
	return e.credit(to, amount)
}

func (e *txEnv) Log(format string, args ...any) {
	e.logs = append(e.logs, fmt.Sprintf(format, args...))
}

// debit takes amount from a signer-controlled wallet account
func (e *txEnv) debit(from crypto.Address, amount uint64) error {
	if from != e.signer {
		return fmt.Errorf("debit of %s requires its signature", from)
	}
	acc, err := e.tx.GetAccount(from)
	if err != nil {
		return err
	}
	if acc == nil {
		acc = &storage.Account{}
	}
	if !acc.IsWallet() {
		return fmt.Errorf("%w: %s", ErrNotWallet, from)
	}
	if acc.Lamports < amount {
		return fmt.Errorf("%w: have %d, need %d", vault.ErrInsufficientFunds, acc.Lamports, amount)
	}
	acc.Lamports -= amount
	return e.tx.PutAccount(from, acc)
}

func (e *txEnv) credit(to crypto.Address, amount uint64) error {
	acc, err := e.tx.GetAccount(to)
	if err != nil {
		return err
	}
	if acc == nil {
		acc = &storage.Account{}
	}
	total, err := SafeAdd(acc.Lamports, amount)
	if err != nil {
		return fmt.Errorf("credit %s: %w", to, err)
	}
	acc.Lamports = total
	return e.tx.PutAccount(to, acc)
}
