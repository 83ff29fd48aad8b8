// Package emsort sorts files of fixed-width int64 values that do not fit in
// memory, counting every block read and write as the cost of the sort.
//
// Two algorithms are provided. MergeMode produces sorted runs and merges them
// through a min-priority queue. QuickMode partitions the input into Arity
// buckets around pivots sampled from one random block, sorts each bucket
// recursively and concatenates them. Both fall back to sorting in memory
// once a sub-problem fits the memory budget.
//
// FindBestArity treats Arity as a free parameter and searches for the value
// with the lowest total I/O.
package emsort

import (
	"context"
	"math/rand/v2"
	"path/filepath"
	"slices"
	"time"

	"github.com/lanrat/emsort/arena"
	"github.com/lanrat/emsort/blockstore"
)

// Sorter runs external sorts with one configuration. The Sorter owns the
// Counter its sorts are charged to and resets it at the start of each Sort,
// so a Sorter must not run two sorts at once.
type Sorter struct {
	config  Config
	counter *blockstore.Counter
	store   *blockstore.Store
	rng     *rand.Rand
}

// New returns a Sorter for config. config can be nil to use the defaults,
// or only set the non-default values desired.
func New(config *Config) (*Sorter, error) {
	c := mergeConfig(config)
	if err := c.validate(); err != nil {
		return nil, err
	}
	counter := blockstore.NewCounter()
	store, err := blockstore.New(c.Fs, c.BlockSize, counter)
	if err != nil {
		return nil, err
	}
	seed := c.Seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	return &Sorter{
		config:  *c,
		counter: counter,
		store:   store,
		rng:     rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
	}, nil
}

// Config returns the effective configuration, defaults included
func (s *Sorter) Config() Config {
	return s.config
}

// Sort sorts the first totalBytes of inputPath into outputPath, which is
// created or truncated and ends up sized to the sorted elements. A totalBytes
// of 0 sorts the whole input. Trailing bytes that do not form a whole element
// are ignored. Temporary sequences live in an arena that is removed before
// Sort returns, on success or failure.
func (s *Sorter) Sort(ctx context.Context, inputPath, outputPath string, totalBytes int64) (Result, error) {
	var res Result
	if totalBytes < 0 {
		return res, NewUsageError("totalBytes", totalBytes, "must not be negative")
	}
	if samePath(inputPath, outputPath) {
		return res, NewUsageError("outputPath", outputPath, "must differ from the input path")
	}

	s.counter.Reset()
	start := time.Now()
	log := s.config.Logger.With("mode", s.config.Mode.String(), "arity", s.config.Arity)

	in, err := s.store.Open(inputPath)
	if err != nil {
		return res, err
	}
	defer in.Close()
	if totalBytes > 0 {
		n := totalBytes / blockstore.ElementSize
		if n > in.Len() {
			return res, NewUsageError("totalBytes", totalBytes, "exceeds the input size")
		}
		in.Limit(n)
	}

	out, err := s.store.Create(outputPath)
	if err != nil {
		return res, err
	}
	defer out.Close()

	ar, err := arena.New(s.store, s.config.TempDir)
	if err != nil {
		return res, err
	}
	defer ar.Close()

	log.Debug("sort started", "input", inputPath, "output", outputPath,
		"elements", in.Len(), "memory_budget", s.config.MemoryBudget)

	if err := s.sortSequence(ctx, ar, arena.Root, in, out, s.config.Mode, 0); err != nil {
		return res, err
	}
	if err := out.Truncate(in.Len()); err != nil {
		return res, err
	}
	if err := out.Close(); err != nil {
		return res, err
	}
	if err := ar.Close(); err != nil {
		return res, err
	}

	res = Result{
		Elements: in.Len(),
		Stats:    s.counter.Snapshot(),
		Duration: time.Since(start),
	}
	log.Info("sort finished",
		"elements", res.Elements,
		"reads", res.Stats.Reads,
		"writes", res.Stats.Writes,
		"total_io", res.TotalIO(),
		"duration_ms", res.Duration.Milliseconds())
	if s.config.Metrics != nil {
		s.config.Metrics.ObserveSort(s.config.Mode, s.config.Arity, res.Stats, res.Duration)
	}
	return res, nil
}

// sortSequence writes the sorted contents of in to out starting at element 0.
// Sub-problems that fit the memory budget are sorted in memory.
func (s *Sorter) sortSequence(ctx context.Context, ar *arena.Arena, task arena.TaskID, in, out *blockstore.Sequence, mode Mode, depth int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	n := in.Len()
	if n == 0 {
		return nil
	}
	if n <= s.config.MemoryBudget {
		return s.sortInMemory(in, out)
	}
	s.config.Logger.Debug("external step", "mode", mode.String(), "depth", depth, "elements", n)
	if mode == QuickMode {
		return s.quickSort(ctx, ar, task, in, out, depth)
	}
	return s.mergeSort(ctx, ar, task, in, out)
}

// sortInMemory loads in fully, sorts it and writes it out: one read and one
// write, or one per block with PerBlockRunIO.
func (s *Sorter) sortInMemory(in, out *blockstore.Sequence) error {
	buf := make([]int64, in.Len())
	n, err := s.loadRun(in, 0, buf)
	if err != nil {
		return newStageError(err, "load")
	}
	buf = buf[:n]
	slices.Sort(buf)
	if err := s.storeRun(out, buf); err != nil {
		return newStageError(err, "store")
	}
	return nil
}

// loadRun reads a window of in that is held in memory at once
func (s *Sorter) loadRun(in *blockstore.Sequence, start int64, dst []int64) (int, error) {
	if s.config.PerBlockRunIO {
		return in.ReadElements(start, dst)
	}
	return in.ReadRun(start, dst)
}

// storeRun writes a sorted in-memory window to the start of out
func (s *Sorter) storeRun(out *blockstore.Sequence, elems []int64) error {
	if !s.config.PerBlockRunIO {
		return out.WriteRun(0, elems)
	}
	w := blockstore.NewWriter(out, 0)
	if err := w.Write(elems); err != nil {
		return err
	}
	return w.Flush()
}

// copySequences appends every element of srcs to out in order, one block at
// a time, releasing each source once copied.
func copySequences(ctx context.Context, ar *arena.Arena, srcs []*blockstore.Sequence, out *blockstore.Sequence) error {
	w := blockstore.NewWriter(out, 0)
	for _, src := range srcs {
		r := blockstore.NewReader(src)
		for {
			if err := ctx.Err(); err != nil {
				return err
			}
			block, err := r.NextBlock()
			if err != nil {
				return newStageError(err, "concatenate")
			}
			if len(block) == 0 {
				break
			}
			if err := w.Write(block); err != nil {
				return newStageError(err, "concatenate")
			}
		}
		if err := ar.Release(src); err != nil {
			return err
		}
	}
	if err := w.Flush(); err != nil {
		return newStageError(err, "concatenate")
	}
	return nil
}

func samePath(a, b string) bool {
	return filepath.Clean(a) == filepath.Clean(b)
}
