package engine

import "sync/atomic"

// Clock is the logical clock that orders ledger records.
//
// Every recorded evaluation is stamped with a strictly increasing seq from
// this clock, never with wall-clock time, so a ledger lists the same way on
// every read and every host.
//
// Clock is safe for concurrent use, although only the engine's writer
// advances it.
type Clock struct {
	seq atomic.Int64
}

// NewClock creates a clock at 0; its first Next is 1.
func NewClock() *Clock {
	return &Clock{}
}

// NewClockAt creates a clock that resumes after start, typically the
// ledger's store.LastSeq.
func NewClockAt(start int64) *Clock {
	c := &Clock{}
	c.seq.Store(start)
	return c
}

// Next advances the clock and returns the new seq.
func (c *Clock) Next() int64 {
	return c.seq.Add(1)
}

// Current returns the last seq handed out.
func (c *Clock) Current() int64 {
	return c.seq.Load()
}
