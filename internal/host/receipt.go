package host

import (
	"github.com/google/uuid"

	"github.com/illarion/timevault/internal/crypto"
)

// Receipt statuses
const (
	StatusOK     = "ok"
	StatusFailed = "failed"
)

// Receipt records the outcome of one invocation
type Receipt struct {
	ID     uuid.UUID      `json:"id"`
	Kind   Kind           `json:"kind"`
	Caller crypto.Address `json:"caller"`
	Time   int64          `json:"time"`
	Status string         `json:"status"`
	Error  string         `json:"error,omitempty"`
	Logs   []string       `json:"logs,omitempty"`

	Vault      crypto.Address `json:"vault,omitempty"`
	UnlockTime int64          `json:"unlock_time,omitempty"`
	Amount     uint64         `json:"amount,omitempty"`
	// Deposit is the allocation deposit charged (open) or refunded (release)
	Deposit uint64 `json:"deposit,omitempty"`
}

// OK reports whether the invocation committed
func (r *Receipt) OK() bool {
	return r.Status == StatusOK
}
