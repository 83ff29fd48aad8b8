// Package arena owns the intermediate sequences of one sort invocation.
// Every sequence is addressed by the task that created it and its index
// among that task's children, and lives under a root directory unique to
// the arena, so concurrent sorts of the same input never share files.
package arena

import (
	"errors"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/google/uuid"

	"github.com/lanrat/emsort/blockstore"
)

// TaskID identifies the task that owns a group of child sequences.
type TaskID uint64

// Root is the task id of the top-level invocation.
const Root TaskID = 0

const rootPrefix = "emsort-"

// Arena allocates and tracks temporary sequences.
type Arena struct {
	store *blockstore.Store
	root  string

	mu     sync.Mutex
	nextID TaskID
	live   map[*blockstore.Sequence]struct{}
	closed bool
}

// New creates the arena root directory under TempDir(store.Fs(), dir).
func New(store *blockstore.Store, dir string) (*Arena, error) {
	root := filepath.Join(TempDir(store.Fs(), dir), rootPrefix+uuid.NewString())
	if err := store.Fs().MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("arena: create %s: %w", root, err)
	}
	return &Arena{
		store: store,
		root:  root,
		live:  make(map[*blockstore.Sequence]struct{}),
	}, nil
}

// Root returns the arena's directory.
func (a *Arena) Root() string {
	return a.root
}

// Alloc creates an empty sequence for child index child of parent. The
// returned TaskID names the new sequence when it becomes a parent itself.
func (a *Arena) Alloc(parent TaskID, child int) (*blockstore.Sequence, TaskID, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return nil, 0, errors.New("arena: closed")
	}
	a.nextID++
	id := a.nextID
	name := filepath.Join(a.root, fmt.Sprintf("t%d.p%d.c%d.seq", id, parent, child))
	seq, err := a.store.Create(name)
	if err != nil {
		return nil, 0, err
	}
	a.live[seq] = struct{}{}
	return seq, id, nil
}

// Release closes seq and deletes its file. Sequences not allocated by this
// arena are left alone.
func (a *Arena) Release(seq *blockstore.Sequence) error {
	a.mu.Lock()
	_, ok := a.live[seq]
	delete(a.live, seq)
	a.mu.Unlock()
	if !ok {
		return nil
	}
	return seq.Remove()
}

// Live returns the number of allocated sequences not yet released.
func (a *Arena) Live() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.live)
}

// Close closes any sequence still live and removes the root directory.
func (a *Arena) Close() error {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return nil
	}
	a.closed = true
	live := a.live
	a.live = nil
	a.mu.Unlock()

	var errs []error
	for seq := range live {
		if err := seq.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if err := a.store.Fs().RemoveAll(a.root); err != nil {
		errs = append(errs, fmt.Errorf("arena: remove %s: %w", a.root, err))
	}
	return errors.Join(errs...)
}
