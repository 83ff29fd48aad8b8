package emsort

import (
	"context"
	"errors"
	"io"
	"slices"
	"sort"

	"github.com/lanrat/emsort/arena"
	"github.com/lanrat/emsort/blockstore"
)

// bucket is one partition of the input, holding every element v with
// pivots[i-1] <= v < pivots[i]
type bucket struct {
	seq      *blockstore.Sequence
	task     arena.TaskID
	count    int64
	min, max int64
}

// quickSort partitions in into Arity buckets, sorts each bucket recursively
// with the same arity and memory budget, then concatenates the sorted
// buckets into out in pivot order.
//
// A partition that sends every element to one bucket makes no progress.
// If that bucket holds a single repeated value it is already sorted and is
// copied through. Otherwise pivots are resampled up to MaxResample times
// before the sub-problem is handed to mergeSort, so recursion always ends.
func (s *Sorter) quickSort(ctx context.Context, ar *arena.Arena, task arena.TaskID, in, out *blockstore.Sequence, depth int) error {
	var buckets []bucket
	for attempt := 0; ; attempt++ {
		pivots, err := s.samplePivots(in)
		if err != nil {
			return err
		}
		buckets, err = s.partition(ctx, ar, task, in, pivots)
		if err != nil {
			return err
		}
		full := slices.IndexFunc(buckets, func(b bucket) bool { return b.count == in.Len() })
		if full < 0 {
			break
		}
		if buckets[full].min == buckets[full].max {
			// every element is equal
			if err := releaseBuckets(ar, buckets, full); err != nil {
				return err
			}
			return copySequences(ctx, ar, []*blockstore.Sequence{buckets[full].seq}, out)
		}
		if err := releaseBuckets(ar, buckets, -1); err != nil {
			return err
		}
		if attempt >= s.config.MaxResample {
			s.config.Logger.Warn("degenerate partition, falling back to merge",
				"depth", depth, "elements", in.Len(), "attempts", attempt+1)
			return s.mergeSort(ctx, ar, task, in, out)
		}
		s.config.Logger.Debug("degenerate partition, resampling pivots",
			"depth", depth, "elements", in.Len(), "attempt", attempt+1)
	}

	sorted := make([]*blockstore.Sequence, 0, len(buckets))
	for i, b := range buckets {
		dst, _, err := ar.Alloc(task, len(buckets)+i)
		if err != nil {
			return err
		}
		if err := s.sortSequence(ctx, ar, b.task, b.seq, dst, QuickMode, depth+1); err != nil {
			return newStageError(err, "bucket")
		}
		if err := ar.Release(b.seq); err != nil {
			return err
		}
		sorted = append(sorted, dst)
		s.config.Logger.Debug("bucket sorted", "depth", depth, "bucket", i, "elements", b.count)
	}
	return copySequences(ctx, ar, sorted, out)
}

// samplePivots reads one uniformly chosen block of in and draws Arity-1
// pivots from it, without replacement when the block holds enough values.
// The pivots are returned sorted and may repeat.
func (s *Sorter) samplePivots(in *blockstore.Sequence) ([]int64, error) {
	buf := make([]int64, in.BlockCapacity())
	idx := s.rng.Int64N(in.Blocks())
	n, err := in.ReadBlock(idx, buf)
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, newStageError(err, "pivot sampling")
	}
	buf = buf[:n]

	want := s.config.Arity - 1
	pivots := make([]int64, want)
	if want <= n {
		// partial Fisher-Yates shuffle of the first want positions
		for i := range want {
			j := i + s.rng.IntN(n-i)
			buf[i], buf[j] = buf[j], buf[i]
		}
		copy(pivots, buf[:want])
	} else {
		for i := range pivots {
			pivots[i] = buf[s.rng.IntN(n)]
		}
	}
	slices.Sort(pivots)
	return pivots, nil
}

// bucketIndex returns k such that pivots[k-1] <= v < pivots[k]
func bucketIndex(pivots []int64, v int64) int {
	return sort.Search(len(pivots), func(i int) bool { return pivots[i] > v })
}

// partition streams in once and writes each element to the bucket its
// pivot range selects, holding one block per bucket.
func (s *Sorter) partition(ctx context.Context, ar *arena.Arena, task arena.TaskID, in *blockstore.Sequence, pivots []int64) ([]bucket, error) {
	buckets := make([]bucket, len(pivots)+1)
	writers := make([]*blockstore.Writer, len(buckets))
	for i := range buckets {
		seq, id, err := ar.Alloc(task, i)
		if err != nil {
			return nil, err
		}
		buckets[i] = bucket{seq: seq, task: id}
		writers[i] = blockstore.NewWriter(seq, 0)
	}

	r := blockstore.NewReader(in)
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		block, err := r.NextBlock()
		if err != nil {
			return nil, newStageError(err, "partition")
		}
		if len(block) == 0 {
			break
		}
		for _, v := range block {
			k := bucketIndex(pivots, v)
			b := &buckets[k]
			if b.count == 0 || v < b.min {
				b.min = v
			}
			if b.count == 0 || v > b.max {
				b.max = v
			}
			b.count++
			if err := writers[k].Append(v); err != nil {
				return nil, newStageError(err, "partition")
			}
		}
	}
	for _, w := range writers {
		if err := w.Flush(); err != nil {
			return nil, newStageError(err, "partition")
		}
	}
	return buckets, nil
}

// releaseBuckets releases every bucket except the one at keep
func releaseBuckets(ar *arena.Arena, buckets []bucket, keep int) error {
	var errs []error
	for i, b := range buckets {
		if i == keep {
			continue
		}
		if err := ar.Release(b.seq); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
