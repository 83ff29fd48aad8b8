package emsort

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"sync"

	"golang.org/x/sync/errgroup"
)

// SearchOptions controls FindBestArity.
type SearchOptions struct {
	Min int // smallest arity tried, default 2
	Max int // largest arity tried, default the block capacity
	// TotalBytes is passed to every Sort, 0 sorts the whole input
	TotalBytes int64
	// Parallelism is the number of trials run at once. Above 1, each
	// concurrent trial writes its own output next to the output path.
	Parallelism int
	// SkipFailedTrials counts a failed trial as infinitely expensive
	// instead of aborting the search
	SkipFailedTrials bool
}

// ArityResult is the outcome of an arity search
type ArityResult struct {
	Best   int
	MinIO  int64
	Trials map[int]int64 // total I/O of every arity evaluated
	Failed map[int]error // trials that failed when SkipFailedTrials is set
}

// arityTrials evaluates and memoizes total I/O per arity
type arityTrials struct {
	ctx    context.Context
	config Config
	input  string
	output string
	opts   SearchOptions

	mu     sync.Mutex
	io     map[int]int64
	failed map[int]error
}

// FindBestArity searches [opts.Min, opts.Max] for the arity minimizing the
// total I/O of sorting input into output with config. Every evaluation is a
// complete Sort with a freshly reset counter, and its output is removed
// afterwards.
//
// The search assumes total I/O is roughly U-shaped in the arity. Ternary
// search narrows the interval until it is at most 3 wide, then every
// remaining arity is tried. The reported arity is the cheapest of all values
// evaluated, ties going to the smaller arity.
func FindBestArity(ctx context.Context, config *Config, input, output string, opts SearchOptions) (ArityResult, error) {
	c := mergeConfig(config)
	if opts.Min == 0 {
		opts.Min = 2
	}
	if opts.Max == 0 {
		opts.Max = c.blockCapacity()
	}
	if opts.Parallelism < 1 {
		opts.Parallelism = 1
	}
	switch {
	case opts.Min < 2:
		return ArityResult{}, NewUsageError("Min", opts.Min, "must be at least 2")
	case opts.Max < opts.Min:
		return ArityResult{}, NewUsageError("Max", opts.Max, fmt.Sprintf("must be at least Min (%d)", opts.Min))
	}
	if err := c.validate(); err != nil {
		return ArityResult{}, err
	}

	t := &arityTrials{
		ctx:    ctx,
		config: *c,
		input:  input,
		output: output,
		opts:   opts,
		io:     make(map[int]int64),
		failed: make(map[int]error),
	}

	low, high := opts.Min, opts.Max
	for high-low > 3 {
		m1 := low + (high-low)/3
		m2 := high - (high-low)/3
		if err := t.eval(m1, m2); err != nil {
			return ArityResult{}, err
		}
		if t.cost(m1) < t.cost(m2) {
			high = m2
		} else {
			low = m1
		}
		c.Logger.Debug("arity interval narrowed", "low", low, "high", high)
	}
	rest := make([]int, 0, high-low+1)
	for a := low; a <= high; a++ {
		rest = append(rest, a)
	}
	if err := t.eval(rest...); err != nil {
		return ArityResult{}, err
	}

	res := ArityResult{Best: -1, MinIO: math.MaxInt64, Trials: t.io, Failed: t.failed}
	for a := opts.Min; a <= opts.Max; a++ {
		if io, ok := t.io[a]; ok && io < res.MinIO {
			res.Best, res.MinIO = a, io
		}
	}
	if res.Best < 0 {
		return res, errors.New("arity search: every trial failed")
	}
	c.Logger.Info("best arity found", "mode", c.Mode.String(), "arity", res.Best,
		"total_io", res.MinIO, "trials", len(res.Trials))
	if c.Metrics != nil {
		c.Metrics.ObserveBestArity(c.Mode, res.Best, res.MinIO)
	}
	return res, nil
}

// cost returns the memoized total I/O of arity a, MaxInt64 for a failed trial
func (t *arityTrials) cost(a int) int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	if io, ok := t.io[a]; ok {
		return io
	}
	return math.MaxInt64
}

// eval runs a trial for every arity in as that has not been evaluated yet
func (t *arityTrials) eval(as ...int) error {
	g, ctx := errgroup.WithContext(t.ctx)
	g.SetLimit(t.opts.Parallelism)
	for _, a := range as {
		t.mu.Lock()
		_, done := t.io[a]
		_, failed := t.failed[a]
		t.mu.Unlock()
		if done || failed {
			continue
		}
		g.Go(func() error {
			io, err := t.run(ctx, a)
			t.mu.Lock()
			defer t.mu.Unlock()
			if err != nil {
				if t.opts.SkipFailedTrials && ctx.Err() == nil {
					t.failed[a] = err
					t.config.Logger.Warn("arity trial failed", "arity", a, "error", err)
					return nil
				}
				return &TrialError{Arity: a, Err: err}
			}
			t.io[a] = io
			return nil
		})
	}
	return g.Wait()
}

// run performs one complete sort with arity a and discards its output
func (t *arityTrials) run(ctx context.Context, a int) (int64, error) {
	c := t.config
	c.Arity = a
	if c.Seed != 0 {
		// distinct but reproducible pivot streams per arity
		c.Seed += uint64(a)
	}
	s, err := New(&c)
	if err != nil {
		return 0, err
	}
	output := t.output
	if t.opts.Parallelism > 1 {
		output = fmt.Sprintf("%s.a%d", t.output, a)
	}
	res, err := s.Sort(ctx, t.input, output, t.opts.TotalBytes)
	if rmErr := s.store.Remove(output); rmErr != nil && err == nil && !errors.Is(rmErr, os.ErrNotExist) {
		err = rmErr
	}
	if err != nil {
		return 0, err
	}
	c.Logger.Info("arity trial", "mode", c.Mode.String(), "arity", a,
		"reads", res.Stats.Reads, "writes", res.Stats.Writes, "total_io", res.TotalIO())
	if c.Metrics != nil {
		c.Metrics.ObserveTrial(c.Mode, a, res.TotalIO())
	}
	return res.TotalIO(), nil
}
