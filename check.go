package emsort

import (
	"context"

	"github.com/spf13/afero"

	"github.com/lanrat/emsort/blockstore"
)

// CheckSorted reports whether the sequence at path is in ascending order.
// It scans forward once and stops at the first inversion. Empty and
// single-element files are sorted.
func CheckSorted(ctx context.Context, fs afero.Fs, path string) (bool, error) {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	store, err := blockstore.New(fs, blockstore.DefaultBlockSize, nil)
	if err != nil {
		return false, err
	}
	seq, err := store.Open(path)
	if err != nil {
		return false, err
	}
	defer seq.Close()

	r := blockstore.NewReader(seq)
	prev, ok, err := r.Next()
	if err != nil || !ok {
		return err == nil, err
	}
	for i := 1; ; i++ {
		if i%seq.BlockCapacity() == 0 {
			if err := ctx.Err(); err != nil {
				return false, err
			}
		}
		v, ok, err := r.Next()
		if err != nil {
			return false, err
		}
		if !ok {
			return true, nil
		}
		if v < prev {
			return false, nil
		}
		prev = v
	}
}
