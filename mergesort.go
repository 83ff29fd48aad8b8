package emsort

import (
	"context"
	"errors"
	"slices"

	"github.com/lanrat/emsort/arena"
	"github.com/lanrat/emsort/blockstore"
	"github.com/lanrat/emsort/queue"
)

// runSize is the number of elements per run: Arity blocks, capped at the
// memory budget rounded down to whole blocks, and never below one block.
func (s *Sorter) runSize() int64 {
	bc := int64(s.config.blockCapacity())
	limit := max((s.config.MemoryBudget/bc)*bc, bc)
	return min(bc*int64(s.config.Arity), limit)
}

// mergeSort splits in into sorted runs and merges them into out.
// Without MultiPassMerge every run is merged in a single pass, however many
// there are. With it, passes of at most Arity runs repeat until one pass
// can produce out.
func (s *Sorter) mergeSort(ctx context.Context, ar *arena.Arena, task arena.TaskID, in, out *blockstore.Sequence) error {
	runs, err := s.produceRuns(ctx, ar, task, in)
	if err != nil {
		return err
	}
	fanIn := s.config.Arity
	child := len(runs)
	for s.config.MultiPassMerge && len(runs) > fanIn {
		next := make([]*blockstore.Sequence, 0, (len(runs)+fanIn-1)/fanIn)
		for i := 0; i < len(runs); i += fanIn {
			dst, _, err := ar.Alloc(task, child)
			if err != nil {
				return err
			}
			child++
			if err := mergeSequences(ctx, ar, runs[i:min(i+fanIn, len(runs))], dst, 0); err != nil {
				return err
			}
			next = append(next, dst)
		}
		s.config.Logger.Debug("merge pass", "runs_in", len(runs), "runs_out", len(next))
		runs = next
	}
	return mergeSequences(ctx, ar, runs, out, 0)
}

// produceRuns reads in one run at a time, sorts each run in memory and
// writes it to its own arena sequence. Each run costs one read and one write
// unless PerBlockRunIO is set.
func (s *Sorter) produceRuns(ctx context.Context, ar *arena.Arena, task arena.TaskID, in *blockstore.Sequence) ([]*blockstore.Sequence, error) {
	size := s.runSize()
	n := in.Len()
	runs := make([]*blockstore.Sequence, 0, (n+size-1)/size)
	buf := make([]int64, min(size, n))
	for start := int64(0); start < n; start += size {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		k, err := s.loadRun(in, start, buf[:min(size, n-start)])
		if err != nil {
			return nil, newStageError(err, "run generation")
		}
		chunk := buf[:k]
		slices.Sort(chunk)

		run, _, err := ar.Alloc(task, len(runs))
		if err != nil {
			return nil, err
		}
		if err := s.storeRun(run, chunk); err != nil {
			return nil, newStageError(err, "run generation")
		}
		runs = append(runs, run)
	}
	s.config.Logger.Debug("runs produced", "runs", len(runs), "run_size", size)
	return runs, nil
}

// mergeSource is one sorted input of a k-way merge and its current head
type mergeSource struct {
	head int64
	r    *blockstore.Reader
}

// mergeSequences merges the sorted srcs into out starting at element offset
// start, holding one block per source plus one output block. Ownership of
// srcs passes to the merge: each is released once the merge completes, so
// none may be used afterwards. Ties are broken arbitrarily.
func mergeSequences(ctx context.Context, ar *arena.Arena, srcs []*blockstore.Sequence, out *blockstore.Sequence, start int64) error {
	pq := queue.NewPriorityQueueSize(func(a, b *mergeSource) bool {
		return a.head < b.head
	}, len(srcs))

	for _, src := range srcs {
		ms := &mergeSource{r: blockstore.NewReader(src)}
		v, ok, err := ms.r.Next()
		if err != nil {
			return newStageError(err, "merge")
		}
		if !ok {
			continue
		}
		ms.head = v
		pq.Push(ms)
	}

	w := blockstore.NewWriter(out, start)
	check := out.BlockCapacity()
	for i := 0; pq.Len() > 0; i++ {
		if i%check == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		ms := pq.Peek()
		if err := w.Append(ms.head); err != nil {
			return newStageError(err, "merge")
		}
		v, ok, err := ms.r.Next()
		if err != nil {
			return newStageError(err, "merge")
		}
		if ok {
			ms.head = v
			pq.PeekUpdate()
		} else {
			pq.Pop()
		}
	}
	if err := w.Flush(); err != nil {
		return newStageError(err, "merge")
	}

	var errs []error
	for _, src := range srcs {
		if err := ar.Release(src); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
