package host

import "time"

// Clock is the wall-clock source. The ledger adds its persisted offset.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the local system time
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// FixedClock always returns the same instant
type FixedClock time.Time

func (c FixedClock) Now() time.Time { return time.Time(c) }
