package blockstore

import (
	"errors"
	"fmt"
)

// Kind classifies a block I/O failure.
type Kind int

// I/O failure kinds
const (
	KindOpen Kind = iota + 1
	KindRead
	KindWrite
	KindRemove
	KindClose
)

func (k Kind) String() string {
	switch k {
	case KindOpen:
		return "open"
	case KindRead:
		return "read"
	case KindWrite:
		return "write"
	case KindRemove:
		return "remove"
	case KindClose:
		return "close"
	default:
		return "unknown"
	}
}

// Error is returned for any failed file operation. Failures are never retried.
type Error struct {
	Kind Kind
	// Path is the file the operation targeted
	Path string
	// Block is the block index for reads and writes, -1 otherwise
	Block int64
	Err   error
}

func (e *Error) Error() string {
	if e.Block >= 0 {
		return fmt.Sprintf("blockstore: %s %s block %d: %v", e.Kind, e.Path, e.Block, e.Err)
	}
	return fmt.Sprintf("blockstore: %s %s: %v", e.Kind, e.Path, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(kind Kind, path string, block int64, err error) error {
	return &Error{Kind: kind, Path: path, Block: block, Err: err}
}

// IsKind reports whether err wraps a blockstore Error of the given kind.
func IsKind(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}
