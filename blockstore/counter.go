package blockstore

import "sync/atomic"

// Stats is a snapshot of block transfers.
type Stats struct {
	Reads  int64
	Writes int64
}

// Total returns the combined number of block reads and writes.
func (s Stats) Total() int64 {
	return s.Reads + s.Writes
}

// Sub returns the transfers made between o and s.
func (s Stats) Sub(o Stats) Stats {
	return Stats{Reads: s.Reads - o.Reads, Writes: s.Writes - o.Writes}
}

// Counter accumulates block transfers for one top-level invocation.
// Every Sequence opened through a Store charges the Store's Counter.
// It is safe for concurrent use, but sharing one Counter between
// concurrent sorts mixes their costs.
type Counter struct {
	reads  atomic.Int64
	writes atomic.Int64
}

// NewCounter returns a zeroed Counter
func NewCounter() *Counter {
	return &Counter{}
}

func (c *Counter) addRead() {
	c.reads.Add(1)
}

func (c *Counter) addWrite() {
	c.writes.Add(1)
}

// Snapshot returns the current totals.
func (c *Counter) Snapshot() Stats {
	return Stats{Reads: c.reads.Load(), Writes: c.writes.Load()}
}

// Reset zeroes the counter and returns the totals it held.
func (c *Counter) Reset() Stats {
	return Stats{Reads: c.reads.Swap(0), Writes: c.writes.Swap(0)}
}
