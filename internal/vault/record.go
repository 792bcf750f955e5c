package vault

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"

	"github.com/illarion/timevault/internal/crypto"
)

// RecordSize is the encoded size of a vault record:
// discriminator(8) + owner(32) + unlock time(8) + bump(1).
const RecordSize = discriminatorSize + crypto.AddressSize + 8 + 1

const discriminatorSize = 8

var recordDiscriminator = func() [discriminatorSize]byte {
	var d [discriminatorSize]byte
	sum := sha256.Sum256([]byte("account:Vault"))
	copy(d[:], sum[:discriminatorSize])
	return d
}()

// Record is the persisted state of one vault. All fields are set once at
// creation and never change.
type Record struct {
	owner      crypto.Address
	unlockTime int64
	bump       uint8
}

// NewRecord builds a record value
func NewRecord(owner crypto.Address, unlockTime int64, bump uint8) Record {
	return Record{owner: owner, unlockTime: unlockTime, bump: bump}
}

// Owner is the depositor, the only address allowed to release
func (r Record) Owner() crypto.Address { return r.owner }

// UnlockTime is the unix second from which release is permitted (inclusive)
func (r Record) UnlockTime() int64 { return r.unlockTime }

// Bump is the derivation proof for the record's address
func (r Record) Bump() uint8 { return r.bump }

// Unlocked reports whether release is permitted at now
func (r Record) Unlocked(now int64) bool { return now >= r.unlockTime }

// MarshalBinary encodes the record in its fixed on-ledger layout
func (r Record) MarshalBinary() ([]byte, error) {
	buf := make([]byte, 0, RecordSize)
	buf = append(buf, recordDiscriminator[:]...)
	buf = append(buf, r.owner[:]...)
	buf = binary.LittleEndian.AppendUint64(buf, uint64(r.unlockTime))
	buf = append(buf, r.bump)
	return buf, nil
}

// DecodeRecord parses account data produced by MarshalBinary
func DecodeRecord(data []byte) (Record, error) {
	var r Record
	if len(data) != RecordSize {
		return r, fmt.Errorf("%w: size %d, want %d", ErrInvalidRecord, len(data), RecordSize)
	}
	if [discriminatorSize]byte(data[:discriminatorSize]) != recordDiscriminator {
		return r, fmt.Errorf("%w: bad discriminator", ErrInvalidRecord)
	}
	off := discriminatorSize
	copy(r.owner[:], data[off:off+crypto.AddressSize])
	off += crypto.AddressSize
	r.unlockTime = int64(binary.LittleEndian.Uint64(data[off : off+8]))
	off += 8
	r.bump = data[off]
	return r, nil
}
