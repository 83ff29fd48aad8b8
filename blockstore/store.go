// Package blockstore implements block-addressed sequences of int64 values on
// an afero filesystem. Every block transferred is charged to a Counter, which
// makes the Counter the cost of whatever algorithm drives the Store.
//
// The on-disk format is a flat run of 8-byte signed integers in native byte
// order with no header. A sequence's length is derived from the file size.
package blockstore

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/afero"
)

const (
	// ElementSize is the width in bytes of one stored value
	ElementSize = 8
	// DefaultBlockSize is the block size in bytes used when none is configured
	DefaultBlockSize = 4096
)

// Store opens and creates Sequences that share a block size and a Counter.
type Store struct {
	fs        afero.Fs
	blockSize int
	blockCap  int
	counter   *Counter
}

// New returns a Store over fs. blockSize must be a positive multiple of
// ElementSize. A nil counter is replaced with a fresh one.
func New(fs afero.Fs, blockSize int, counter *Counter) (*Store, error) {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	if blockSize < ElementSize || blockSize%ElementSize != 0 {
		return nil, fmt.Errorf("blockstore: block size %d is not a positive multiple of %d", blockSize, ElementSize)
	}
	if counter == nil {
		counter = NewCounter()
	}
	return &Store{
		fs:        fs,
		blockSize: blockSize,
		blockCap:  blockSize / ElementSize,
		counter:   counter,
	}, nil
}

// BlockCapacity returns the number of elements in a full block.
func (s *Store) BlockCapacity() int {
	return s.blockCap
}

// BlockSize returns the block size in bytes.
func (s *Store) BlockSize() int {
	return s.blockSize
}

// Counter returns the Counter charged by this Store's sequences.
func (s *Store) Counter() *Counter {
	return s.counter
}

// Fs returns the backing filesystem.
func (s *Store) Fs() afero.Fs {
	return s.fs
}

// Open opens an existing sequence for reading.
func (s *Store) Open(path string) (*Sequence, error) {
	return s.open(path, os.O_RDONLY)
}

// OpenRW opens an existing sequence for reading and block writes.
func (s *Store) OpenRW(path string) (*Sequence, error) {
	return s.open(path, os.O_RDWR)
}

// Create creates or truncates a sequence.
func (s *Store) Create(path string) (*Sequence, error) {
	return s.open(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC)
}

// Remove deletes the file at path.
func (s *Store) Remove(path string) error {
	if err := s.fs.Remove(path); err != nil {
		return newError(KindRemove, path, -1, err)
	}
	return nil
}

func (s *Store) open(path string, flag int) (*Sequence, error) {
	f, err := s.fs.OpenFile(path, flag, 0o644)
	if err != nil {
		return nil, newError(KindOpen, path, -1, err)
	}
	size, err := f.Seek(0, io.SeekEnd)
	if err != nil {
		_ = f.Close()
		return nil, newError(KindOpen, path, -1, err)
	}
	return &Sequence{
		store:    s,
		file:     f,
		path:     path,
		length:   size / ElementSize,
		readOnly: flag&(os.O_RDWR|os.O_WRONLY) == 0,
		scratch:  make([]byte, s.blockSize),
	}, nil
}
