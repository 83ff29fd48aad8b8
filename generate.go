package emsort

import (
	"context"
	"math/rand/v2"

	"github.com/spf13/afero"

	"github.com/lanrat/emsort/blockstore"
)

// DefaultGenerateChunk is the number of values shuffled together by Generate (10MiB)
const DefaultGenerateChunk = 10 * 1024 * 1024 / blockstore.ElementSize

// Generate writes count values to path: the integers 0..count-1 in order,
// shuffled within consecutive windows of chunk values. rng may be nil to
// seed from the clock, chunk 0 uses DefaultGenerateChunk.
func Generate(ctx context.Context, fs afero.Fs, path string, count int64, chunk int, rng *rand.Rand) error {
	if count < 0 {
		return NewUsageError("count", count, "must not be negative")
	}
	if chunk <= 0 {
		chunk = DefaultGenerateChunk
	}
	if fs == nil {
		fs = afero.NewOsFs()
	}
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	store, err := blockstore.New(fs, blockstore.DefaultBlockSize, nil)
	if err != nil {
		return err
	}
	seq, err := store.Create(path)
	if err != nil {
		return err
	}
	defer seq.Close()

	w := blockstore.NewWriter(seq, 0)
	window := make([]int64, min(int64(chunk), count))
	for written := int64(0); written < count; {
		if err := ctx.Err(); err != nil {
			return err
		}
		n := min(int64(len(window)), count-written)
		block := window[:n]
		for i := range block {
			block[i] = written + int64(i)
		}
		rng.Shuffle(len(block), func(i, j int) {
			block[i], block[j] = block[j], block[i]
		})
		if err := w.Write(block); err != nil {
			return err
		}
		written += n
	}
	if err := w.Flush(); err != nil {
		return err
	}
	return seq.Close()
}
