package emsort

import (
	"log/slog"

	"github.com/spf13/afero"

	"github.com/lanrat/emsort/blockstore"
)

// Config holds configuration settings for a Sorter
type Config struct {
	BlockSize      int      // bytes per block, a multiple of 8
	MemoryBudget   int64    // elements that may be held in memory at once
	Arity          int      // merge fan-in or partition fan-out, at least 2
	Mode           Mode     // merge or quick
	MultiPassMerge bool     // merge at most Arity runs per pass instead of all runs at once
	PerBlockRunIO  bool     // charge run loads and stores per block instead of once per run
	MaxResample    int      // pivot resamples before a degenerate partition falls back to merging
	Seed           uint64   // pivot sampling seed, 0 seeds from the clock
	TempDir        string   // empty to pick a disk-backed temp dir
	Fs             afero.Fs // nil for the OS filesystem
	Logger         *slog.Logger
	Metrics        Recorder
}

// DefaultConfig returns the configuration used for any value left unset
func DefaultConfig() *Config {
	return &Config{
		BlockSize:    blockstore.DefaultBlockSize,
		MemoryBudget: 50 * 1024 * 1024 / blockstore.ElementSize, // 50MiB
		Arity:        2,
		Mode:         MergeMode,
		MaxResample:  3,
	}
}

// mergeConfig copies c and replaces any zero values with the defaults.
// Invalid non-zero values are kept so validate can report them.
func mergeConfig(c *Config) *Config {
	d := DefaultConfig()
	if c == nil {
		d.Fs = afero.NewOsFs()
		d.Logger = slog.New(slog.DiscardHandler)
		return d
	}
	out := *c
	if out.BlockSize == 0 {
		out.BlockSize = d.BlockSize
	}
	if out.MemoryBudget == 0 {
		out.MemoryBudget = d.MemoryBudget
	}
	if out.Arity == 0 {
		out.Arity = d.Arity
	}
	if out.MaxResample == 0 {
		out.MaxResample = d.MaxResample
	}
	if out.Fs == nil {
		out.Fs = afero.NewOsFs()
	}
	if out.Logger == nil {
		out.Logger = slog.New(slog.DiscardHandler)
	}
	// skipping TempDir as it is the empty string
	return &out
}

// validate reports the first invalid field as a UsageError
func (c *Config) validate() error {
	switch {
	case c.BlockSize < blockstore.ElementSize || c.BlockSize%blockstore.ElementSize != 0:
		return NewUsageError("BlockSize", c.BlockSize, "must be a positive multiple of 8")
	case c.MemoryBudget < 1:
		return NewUsageError("MemoryBudget", c.MemoryBudget, "must hold at least one element")
	case c.Arity < 2:
		return NewUsageError("Arity", c.Arity, "must be at least 2")
	case c.Mode != MergeMode && c.Mode != QuickMode:
		return NewUsageError("Mode", c.Mode, "unknown mode")
	case c.MaxResample < 0:
		return NewUsageError("MaxResample", c.MaxResample, "must not be negative")
	}
	return nil
}

// blockCapacity returns the number of elements in one block
func (c *Config) blockCapacity() int {
	return c.BlockSize / blockstore.ElementSize
}
