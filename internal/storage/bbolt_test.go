package storage

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/illarion/timevault/internal/crypto"
)

func openTestDB(t *testing.T) *Storage {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "ledger.db")

	db, err := Open(dbPath)
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := db.Initialize(); err != nil {
		t.Fatalf("Failed to initialize: %v", err)
	}
	return db
}

func TestOpenAndInitialize(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "ledger.db")

	db, err := Open(dbPath)
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	initialized, err := db.IsInitialized()
	if err != nil {
		t.Fatalf("Failed to check initialization: %v", err)
	}
	if initialized {
		t.Error("Fresh database should not be initialized")
	}

	if err := db.Initialize(); err != nil {
		t.Fatalf("Failed to initialize: %v", err)
	}

	initialized, err = db.IsInitialized()
	if err != nil {
		t.Fatalf("Failed to check initialization: %v", err)
	}
	if !initialized {
		t.Error("Database should be initialized")
	}

	if _, err := db.GetCreated(); err != nil {
		t.Errorf("Failed to get created time: %v", err)
	}
}

func TestClockOffset(t *testing.T) {
	db := openTestDB(t)

	offset, err := db.GetClockOffset()
	if err != nil {
		t.Fatalf("Failed to get clock offset: %v", err)
	}
	if offset != 0 {
		t.Errorf("Initial offset should be 0, got %d", offset)
	}

	if _, err := db.AddClockOffset(3600); err != nil {
		t.Fatalf("Failed to add clock offset: %v", err)
	}
	offset, err = db.AddClockOffset(1)
	if err != nil {
		t.Fatalf("Failed to add clock offset: %v", err)
	}
	if offset != 3601 {
		t.Errorf("Offset mismatch: got %d, want 3601", offset)
	}

	if _, err := db.AddClockOffset(-1); err == nil {
		t.Error("Expected error when moving clock backwards")
	}
}

func TestLedgerID(t *testing.T) {
	db := openTestDB(t)

	if _, err := db.GetLedgerID(); err == nil {
		t.Error("Expected error before ledger ID is created")
	}

	id, err := db.GetOrCreateLedgerID()
	if err != nil {
		t.Fatalf("Failed to create ledger ID: %v", err)
	}
	again, err := db.GetOrCreateLedgerID()
	if err != nil {
		t.Fatalf("Failed to get ledger ID: %v", err)
	}
	if id != again || len(id) != 32 {
		t.Errorf("Ledger ID unstable: %q vs %q", id, again)
	}
}

func TestLabels(t *testing.T) {
	db := openTestDB(t)
	addr := crypto.Address{1, 2, 3}

	if err := db.SetLabel("alice", addr); err != nil {
		t.Fatalf("Failed to set label: %v", err)
	}
	if err := db.SetLabel("bob", crypto.Address{4}); err != nil {
		t.Fatalf("Failed to set label: %v", err)
	}

	got, err := db.GetLabel("alice")
	if err != nil {
		t.Fatalf("Failed to get label: %v", err)
	}
	if got != addr {
		t.Errorf("Label mismatch: got %s, want %s", got, addr)
	}

	labels, err := db.GetLabels()
	if err != nil {
		t.Fatalf("Failed to list labels: %v", err)
	}
	if len(labels) != 2 || labels[0].Name != "alice" || labels[1].Name != "bob" {
		t.Errorf("Unexpected labels: %+v", labels)
	}

	if err := db.RemoveLabel("alice"); err != nil {
		t.Fatalf("Failed to remove label: %v", err)
	}
	if _, err := db.GetLabel("alice"); !errors.Is(err, ErrLabelNotFound) {
		t.Errorf("Expected ErrLabelNotFound, got %v", err)
	}
}

func TestAccounts(t *testing.T) {
	db := openTestDB(t)
	addr := crypto.Address{9}
	program := crypto.Address{7}

	err := db.Update(func(tx *Tx) error {
		acc, err := tx.GetAccount(addr)
		if err != nil {
			return err
		}
		if acc != nil {
			t.Error("Account should not exist yet")
		}
		return tx.PutAccount(addr, &Account{Lamports: 500, Deposit: 10, Owner: program, Data: []byte{1, 2}})
	})
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	err = db.View(func(tx *Tx) error {
		acc, err := tx.GetAccount(addr)
		if err != nil {
			return err
		}
		if acc == nil {
			t.Fatal("Account should exist")
		}
		if acc.Total() != 510 || acc.Owner != program || !bytes.Equal(acc.Data, []byte{1, 2}) {
			t.Errorf("Unexpected account: %+v", acc)
		}
		if acc.IsWallet() {
			t.Error("Program account reported as wallet")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("View failed: %v", err)
	}

	// Emptied wallet accounts disappear.
	err = db.Update(func(tx *Tx) error {
		return tx.PutAccount(addr, &Account{})
	})
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	err = db.View(func(tx *Tx) error {
		acc, err := tx.GetAccount(addr)
		if acc != nil {
			t.Error("Empty account should be deleted")
		}
		return err
	})
	if err != nil {
		t.Fatalf("View failed: %v", err)
	}
}

func TestUpdateErrorDiscardsChanges(t *testing.T) {
	db := openTestDB(t)
	addr := crypto.Address{5}
	boom := errors.New("boom")

	err := db.Update(func(tx *Tx) error {
		if err := tx.PutAccount(addr, &Account{Lamports: 1}); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("Expected boom, got %v", err)
	}

	db.View(func(tx *Tx) error {
		if acc, _ := tx.GetAccount(addr); acc != nil {
			t.Error("Failed transaction must not persist writes")
		}
		return nil
	})
}

func TestRollback(t *testing.T) {
	db := openTestDB(t)
	addr := crypto.Address{6}

	var seen uint64
	err := db.Rollback(func(tx *Tx) error {
		if err := tx.PutAccount(addr, &Account{Lamports: 42}); err != nil {
			return err
		}
		acc, err := tx.GetAccount(addr)
		if err != nil {
			return err
		}
		seen = acc.Lamports
		return nil
	})
	if err != nil {
		t.Fatalf("Rollback failed: %v", err)
	}
	if seen != 42 {
		t.Errorf("Write should be visible inside the transaction, saw %d", seen)
	}

	db.View(func(tx *Tx) error {
		if acc, _ := tx.GetAccount(addr); acc != nil {
			t.Error("Rollback must not persist writes")
		}
		return nil
	})
}

func TestReceipts(t *testing.T) {
	db := openTestDB(t)

	err := db.Update(func(tx *Tx) error {
		for i, id := range []string{"a", "b", "c"} {
			seq, err := tx.PutReceipt([]byte(id), []byte{byte(i)})
			if err != nil {
				return err
			}
			if seq != uint64(i+1) {
				t.Errorf("Sequence mismatch: got %d, want %d", seq, i+1)
			}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	db.View(func(tx *Tx) error {
		ok, err := tx.HasInvocation([]byte("b"))
		if err != nil || !ok {
			t.Errorf("Invocation b should be recorded: %v", err)
		}
		ok, _ = tx.HasInvocation([]byte("z"))
		if ok {
			t.Error("Invocation z should not be recorded")
		}

		latest, err := tx.Receipts(2)
		if err != nil {
			t.Fatalf("Receipts failed: %v", err)
		}
		if len(latest) != 2 || latest[0][0] != 2 || latest[1][0] != 1 {
			t.Errorf("Expected newest first, got %v", latest)
		}
		all, _ := tx.Receipts(0)
		if len(all) != 3 {
			t.Errorf("Expected 3 receipts, got %d", len(all))
		}
		return nil
	})
}

func TestCompact(t *testing.T) {
	db := openTestDB(t)
	addr := crypto.Address{8}

	err := db.Update(func(tx *Tx) error {
		if _, err := tx.PutReceipt([]byte("x"), []byte("r")); err != nil {
			return err
		}
		return tx.PutAccount(addr, &Account{Lamports: 77})
	})
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	if err := db.Compact(); err != nil {
		t.Fatalf("Compact failed: %v", err)
	}
	if _, err := os.Stat(db.Path() + ".backup"); !os.IsNotExist(err) {
		t.Error("Backup file should be removed after compaction")
	}

	err = db.Update(func(tx *Tx) error {
		acc, err := tx.GetAccount(addr)
		if err != nil {
			return err
		}
		if acc == nil || acc.Lamports != 77 {
			t.Errorf("Account lost during compaction: %+v", acc)
		}
		seq, err := tx.PutReceipt([]byte("y"), []byte("r"))
		if err != nil {
			return err
		}
		if seq != 2 {
			t.Errorf("Receipt sequence should survive compaction, got %d", seq)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
}
