package emsort

import (
	"fmt"
	"strings"
	"time"

	"github.com/lanrat/emsort/blockstore"
)

// Mode selects the external sorting algorithm.
type Mode int

const (
	// MergeMode generates sorted runs and k-way merges them
	MergeMode Mode = iota
	// QuickMode partitions around sampled pivots, sorts each bucket and concatenates
	QuickMode
)

func (m Mode) String() string {
	switch m {
	case MergeMode:
		return "merge"
	case QuickMode:
		return "quick"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// ParseMode parses "merge"/"mergesort" or "quick"/"quicksort"
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "merge", "mergesort":
		return MergeMode, nil
	case "quick", "quicksort":
		return QuickMode, nil
	}
	return 0, NewUsageError("Mode", s, "expected merge or quick")
}

// Result describes one completed sort.
type Result struct {
	Elements int64
	Stats    blockstore.Stats
	Duration time.Duration
}

// TotalIO returns the number of block reads plus block writes
func (r Result) TotalIO() int64 {
	return r.Stats.Total()
}

// Recorder receives the cost of sorts and arity trials.
// The metrics package provides a Prometheus implementation.
type Recorder interface {
	ObserveSort(mode Mode, arity int, stats blockstore.Stats, d time.Duration)
	ObserveTrial(mode Mode, arity int, totalIO int64)
	ObserveBestArity(mode Mode, arity int, totalIO int64)
}
