package storage

import (
	"crypto/rand"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/illarion/timevault/internal/crypto"
)

// Bucket names
var (
	ConfigBucket      = []byte("config")      // version, timestamps, clock offset
	AccountsBucket    = []byte("accounts")    // address -> account
	LabelsBucket      = []byte("labels")      // identity name -> address
	ReceiptsBucket    = []byte("receipts")    // sequence -> receipt
	InvocationsBucket = []byte("invocations") // invocation ID -> sequence
)

// Config keys
var (
	ConfigVersion     = []byte("version")
	ConfigCreated     = []byte("created")
	ConfigClockOffset = []byte("clock_offset")
	ConfigLedgerID    = []byte("ledger_id")
)

var (
	ErrNotInitialized = errors.New("ledger not initialized")
	ErrLabelNotFound  = errors.New("label not found")
	errRollback       = errors.New("rollback")
)

// Storage provides BBolt-based storage for the ledger
type Storage struct {
	db *bolt.DB
}

// Open opens or creates a ledger database
func Open(path string) (*Storage, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	return &Storage{db: db}, nil
}

// Close closes the database
func (s *Storage) Close() error {
	return s.db.Close()
}

// Path returns the database file path
func (s *Storage) Path() string {
	return s.db.Path()
}

// Initialize creates the bucket structure for a new ledger
func (s *Storage) Initialize() error {
	return s.db.Update(func(tx *bolt.Tx) error {
		for _, bucket := range [][]byte{ConfigBucket, AccountsBucket, LabelsBucket, ReceiptsBucket, InvocationsBucket} {
			if _, err := tx.CreateBucketIfNotExists(bucket); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", bucket, err)
			}
		}

		config := tx.Bucket(ConfigBucket)
		if err := config.Put(ConfigVersion, []byte("1")); err != nil {
			return err
		}

		created, _ := time.Now().MarshalBinary()
		if err := config.Put(ConfigCreated, created); err != nil {
			return err
		}
		return config.Put(ConfigClockOffset, make([]byte, 8))
	})
}

// IsInitialized checks if the database has been initialized
func (s *Storage) IsInitialized() (bool, error) {
	var initialized bool
	err := s.db.View(func(tx *bolt.Tx) error {
		config := tx.Bucket(ConfigBucket)
		if config != nil && config.Get(ConfigVersion) != nil {
			initialized = true
		}
		return nil
	})
	return initialized, err
}

// GetCreated retrieves the ledger creation timestamp
func (s *Storage) GetCreated() (time.Time, error) {
	var created time.Time
	err := s.db.View(func(tx *bolt.Tx) error {
		config := tx.Bucket(ConfigBucket)
		if config == nil {
			return ErrNotInitialized
		}
		data := config.Get(ConfigCreated)
		if data == nil {
			return fmt.Errorf("created time not found")
		}
		return created.UnmarshalBinary(data)
	})
	return created, err
}

// GetClockOffset retrieves the seconds added to wall-clock time
func (s *Storage) GetClockOffset() (int64, error) {
	var offset int64
	err := s.db.View(func(tx *bolt.Tx) error {
		offset = readClockOffset(tx)
		return nil
	})
	return offset, err
}

// AddClockOffset moves the ledger clock forward by delta seconds
func (s *Storage) AddClockOffset(delta int64) (int64, error) {
	if delta < 0 {
		return 0, fmt.Errorf("clock can only move forward")
	}
	var offset int64
	err := s.db.Update(func(tx *bolt.Tx) error {
		config := tx.Bucket(ConfigBucket)
		if config == nil {
			return ErrNotInitialized
		}
		offset = readClockOffset(tx) + delta
		buf := make([]byte, 8)
		binary.BigEndian.PutUint64(buf, uint64(offset))
		return config.Put(ConfigClockOffset, buf)
	})
	return offset, err
}

func readClockOffset(tx *bolt.Tx) int64 {
	config := tx.Bucket(ConfigBucket)
	if config == nil {
		return 0
	}
	data := config.Get(ConfigClockOffset)
	if len(data) != 8 {
		return 0
	}
	return int64(binary.BigEndian.Uint64(data))
}

// GetLedgerID retrieves the ledger ID from config bucket
func (s *Storage) GetLedgerID() (string, error) {
	var id string
	err := s.db.View(func(tx *bolt.Tx) error {
		config := tx.Bucket(ConfigBucket)
		if config == nil {
			return ErrNotInitialized
		}
		data := config.Get(ConfigLedgerID)
		if data == nil {
			return fmt.Errorf("ledger_id not found")
		}
		id = string(data)
		return nil
	})
	return id, err
}

// GetOrCreateLedgerID retrieves existing ledger ID or generates a new one
func (s *Storage) GetOrCreateLedgerID() (string, error) {
	id, err := s.GetLedgerID()
	if err == nil {
		return id, nil
	}

	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate ledger ID: %w", err)
	}
	id = hex.EncodeToString(b)

	err = s.db.Update(func(tx *bolt.Tx) error {
		config := tx.Bucket(ConfigBucket)
		if config == nil {
			return ErrNotInitialized
		}
		return config.Put(ConfigLedgerID, []byte(id))
	})
	if err != nil {
		return "", err
	}

	return id, nil
}

// SetLabel maps an identity name to an address
func (s *Storage) SetLabel(name string, addr crypto.Address) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		labels := tx.Bucket(LabelsBucket)
		if labels == nil {
			return ErrNotInitialized
		}
		return labels.Put([]byte(name), addr[:])
	})
}

// GetLabel resolves an identity name
func (s *Storage) GetLabel(name string) (crypto.Address, error) {
	var addr crypto.Address
	err := s.db.View(func(tx *bolt.Tx) error {
		labels := tx.Bucket(LabelsBucket)
		if labels == nil {
			return ErrNotInitialized
		}
		data := labels.Get([]byte(name))
		if len(data) != crypto.AddressSize {
			return fmt.Errorf("%w: %s", ErrLabelNotFound, name)
		}
		copy(addr[:], data)
		return nil
	})
	return addr, err
}

// RemoveLabel removes an identity name
func (s *Storage) RemoveLabel(name string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		labels := tx.Bucket(LabelsBucket)
		if labels == nil {
			return ErrNotInitialized
		}
		return labels.Delete([]byte(name))
	})
}

// Label is a named address
type Label struct {
	Name    string
	Address crypto.Address
}

// GetLabels returns all identity names in key order
func (s *Storage) GetLabels() ([]Label, error) {
	var labels []Label
	err := s.db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(LabelsBucket)
		if bucket == nil {
			return ErrNotInitialized
		}
		return bucket.ForEach(func(k, v []byte) error {
			var l Label
			l.Name = string(k)
			copy(l.Address[:], v)
			labels = append(labels, l)
			return nil
		})
	})
	return labels, err
}

// Update runs fn in a read-write transaction. Returning an error from fn
// discards every change made through tx.
func (s *Storage) Update(fn func(*Tx) error) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return fn(&Tx{tx: tx})
	})
}

// View runs fn in a read-only transaction
func (s *Storage) View(fn func(*Tx) error) error {
	return s.db.View(func(tx *bolt.Tx) error {
		return fn(&Tx{tx: tx})
	})
}

// Rollback runs fn in a read-write transaction that is always discarded.
// It lets callers observe the effects of a change without keeping them.
func (s *Storage) Rollback(fn func(*Tx) error) error {
	err := s.db.Update(func(tx *bolt.Tx) error {
		if err := fn(&Tx{tx: tx}); err != nil {
			return err
		}
		return errRollback
	})
	if errors.Is(err, errRollback) {
		return nil
	}
	return err
}

// Compact creates a compacted copy of the database, removing unused space.
// Receipts and closed accounts leave free pages behind over time.
func (s *Storage) Compact() error {
	srcPath := s.db.Path()
	tmpPath := srcPath + ".compact"

	dst, err := bolt.Open(tmpPath, 0600, nil)
	if err != nil {
		return fmt.Errorf("failed to create compact database: %w", err)
	}

	err = s.db.View(func(srcTx *bolt.Tx) error {
		return dst.Update(func(dstTx *bolt.Tx) error {
			return srcTx.ForEach(func(name []byte, srcBucket *bolt.Bucket) error {
				dstBucket, err := dstTx.CreateBucketIfNotExists(name)
				if err != nil {
					return err
				}
				if err := dstBucket.SetSequence(srcBucket.Sequence()); err != nil {
					return err
				}
				return srcBucket.ForEach(func(k, v []byte) error {
					return dstBucket.Put(k, v)
				})
			})
		})
	})

	if err != nil {
		dst.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to copy data: %w", err)
	}

	if err := dst.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close compact database: %w", err)
	}

	if err := s.db.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close source database: %w", err)
	}

	// Atomic replace
	backupPath := srcPath + ".backup"
	if err := os.Rename(srcPath, backupPath); err != nil {
		return fmt.Errorf("failed to backup original: %w", err)
	}
	if err := os.Rename(tmpPath, srcPath); err != nil {
		os.Rename(backupPath, srcPath) // rollback
		return fmt.Errorf("failed to replace database: %w", err)
	}
	os.Remove(backupPath)

	s.db, err = bolt.Open(srcPath, 0600, nil)
	if err != nil {
		return fmt.Errorf("failed to reopen database: %w", err)
	}

	return nil
}

// Tx is a ledger transaction
type Tx struct {
	tx *bolt.Tx
}

func (t *Tx) bucket(name []byte) (*bolt.Bucket, error) {
	b := t.tx.Bucket(name)
	if b == nil {
		return nil, ErrNotInitialized
	}
	return b, nil
}

// ClockOffset returns the persisted clock offset
func (t *Tx) ClockOffset() int64 {
	return readClockOffset(t.tx)
}

// GetAccount returns the account at addr, or nil if none exists
func (t *Tx) GetAccount(addr crypto.Address) (*Account, error) {
	accounts, err := t.bucket(AccountsBucket)
	if err != nil {
		return nil, err
	}
	data := accounts.Get(addr[:])
	if data == nil {
		return nil, nil
	}
	acc := &Account{}
	if err := json.Unmarshal(data, acc); err != nil {
		return nil, fmt.Errorf("failed to decode account %s: %w", addr, err)
	}
	return acc, nil
}

// PutAccount stores acc at addr. Empty accounts are deleted instead.
func (t *Tx) PutAccount(addr crypto.Address, acc *Account) error {
	accounts, err := t.bucket(AccountsBucket)
	if err != nil {
		return err
	}
	if acc.IsEmpty() {
		return accounts.Delete(addr[:])
	}
	data, err := json.Marshal(acc)
	if err != nil {
		return err
	}
	return accounts.Put(addr[:], data)
}

// DeleteAccount removes the account at addr
func (t *Tx) DeleteAccount(addr crypto.Address) error {
	accounts, err := t.bucket(AccountsBucket)
	if err != nil {
		return err
	}
	return accounts.Delete(addr[:])
}

// HasInvocation reports whether a receipt for id was already stored
func (t *Tx) HasInvocation(id []byte) (bool, error) {
	invocations, err := t.bucket(InvocationsBucket)
	if err != nil {
		return false, err
	}
	return invocations.Get(id) != nil, nil
}

// PutReceipt appends a receipt and indexes it by invocation id
func (t *Tx) PutReceipt(id []byte, receipt []byte) (uint64, error) {
	receipts, err := t.bucket(ReceiptsBucket)
	if err != nil {
		return 0, err
	}
	invocations, err := t.bucket(InvocationsBucket)
	if err != nil {
		return 0, err
	}

	seq, err := receipts.NextSequence()
	if err != nil {
		return 0, err
	}
	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, seq)

	if err := receipts.Put(key, receipt); err != nil {
		return 0, err
	}
	if err := invocations.Put(id, key); err != nil {
		return 0, err
	}
	return seq, nil
}

// Receipts returns up to limit most recent receipts, newest first.
// A limit of zero returns all of them.
func (t *Tx) Receipts(limit int) ([][]byte, error) {
	receipts, err := t.bucket(ReceiptsBucket)
	if err != nil {
		return nil, err
	}
	var out [][]byte
	c := receipts.Cursor()
	for k, v := c.Last(); k != nil; k, v = c.Prev() {
		out = append(out, append([]byte(nil), v...))
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}
