package blockstore

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/afero"
)

var errReadOnly = errors.New("sequence is read-only")

// Sequence is an open block-structured file of int64 values.
// A Sequence is not safe for concurrent use.
type Sequence struct {
	store    *Store
	file     afero.File
	path     string
	length   int64
	readOnly bool
	closed   bool
	scratch  []byte
}

// Path returns the file path of the sequence.
func (q *Sequence) Path() string {
	return q.path
}

// Len returns the number of elements in the sequence.
func (q *Sequence) Len() int64 {
	return q.length
}

// Blocks returns the number of blocks holding Len elements, counting a
// trailing partial block.
func (q *Sequence) Blocks() int64 {
	c := int64(q.store.blockCap)
	return (q.length + c - 1) / c
}

// BlockCapacity returns the number of elements in a full block.
func (q *Sequence) BlockCapacity() int {
	return q.store.blockCap
}

// Limit caps the visible length at n elements. The file is not modified.
func (q *Sequence) Limit(n int64) {
	if n >= 0 && n < q.length {
		q.length = n
	}
}

// ReadBlock reads block idx into buf and returns the number of elements read.
// buf must hold at least BlockCapacity elements, or at least the size of the
// final partial block when idx is the last block. The returned error is io.EOF
// when the block is the last one of the sequence (n may be below capacity) or
// lies past the end (n is 0). Every call costs one read, including past-end calls.
func (q *Sequence) ReadBlock(idx int64, buf []int64) (int, error) {
	q.store.counter.addRead()
	if q.closed {
		return 0, newError(KindRead, q.path, idx, os.ErrClosed)
	}
	c := int64(q.store.blockCap)
	off := idx * c
	if idx < 0 || off >= q.length {
		return 0, io.EOF
	}
	n := min(c, q.length-off)
	if int64(len(buf)) < n {
		return 0, newError(KindRead, q.path, idx, fmt.Errorf("buffer holds %d elements, need %d", len(buf), n))
	}
	if err := q.readAt(off, buf[:n]); err != nil {
		return 0, err
	}
	if off+n >= q.length {
		return int(n), io.EOF
	}
	return int(n), nil
}

// WriteBlock writes elems as block idx. len(elems) must not exceed
// BlockCapacity; a short block is only meaningful as the last block.
// Every call costs one write.
func (q *Sequence) WriteBlock(idx int64, elems []int64) error {
	if len(elems) > q.store.blockCap {
		q.store.counter.addWrite()
		return newError(KindWrite, q.path, idx, fmt.Errorf("%d elements exceed block capacity %d", len(elems), q.store.blockCap))
	}
	return q.writeAt(idx*int64(q.store.blockCap), elems)
}

// writeAt performs one counted write of elems at element offset off.
func (q *Sequence) writeAt(off int64, elems []int64) error {
	q.store.counter.addWrite()
	c := int64(q.store.blockCap)
	if q.closed || q.readOnly {
		err := errReadOnly
		if q.closed {
			err = os.ErrClosed
		}
		return newError(KindWrite, q.path, off/c, err)
	}
	raw := q.buffer(len(elems))
	for i, v := range elems {
		binary.NativeEndian.PutUint64(raw[i*ElementSize:], uint64(v))
	}
	if _, err := q.file.WriteAt(raw, off*ElementSize); err != nil {
		return newError(KindWrite, q.path, off/c, err)
	}
	if end := off + int64(len(elems)); end > q.length {
		q.length = end
	}
	return nil
}

// readAt decodes len(dst) elements starting at element off. It is not counted.
func (q *Sequence) readAt(off int64, dst []int64) error {
	c := int64(q.store.blockCap)
	raw := q.buffer(len(dst))
	got, err := q.file.ReadAt(raw, off*ElementSize)
	if got < len(raw) {
		if err == nil || errors.Is(err, io.EOF) {
			err = io.ErrUnexpectedEOF
		}
		return newError(KindRead, q.path, off/c, err)
	}
	for i := range dst {
		dst[i] = int64(binary.NativeEndian.Uint64(raw[i*ElementSize:]))
	}
	return nil
}

// buffer returns a byte scratch buffer for n elements, growing it past one
// block only for run transfers.
func (q *Sequence) buffer(n int) []byte {
	if need := n * ElementSize; cap(q.scratch) < need {
		q.scratch = make([]byte, need)
	}
	return q.scratch[:n*ElementSize]
}

// ReadRun fills dst with consecutive elements starting at the block aligned
// element start in one multi-block transfer, charged as a single read. It
// returns the number of elements read, which is short only at the end of
// the sequence.
func (q *Sequence) ReadRun(start int64, dst []int64) (int, error) {
	q.store.counter.addRead()
	c := int64(q.store.blockCap)
	if q.closed {
		return 0, newError(KindRead, q.path, start/c, os.ErrClosed)
	}
	if start%c != 0 {
		return 0, newError(KindRead, q.path, start/c, fmt.Errorf("offset %d is not block aligned", start))
	}
	n := min(int64(len(dst)), q.length-start)
	if n <= 0 {
		return 0, nil
	}
	if err := q.readAt(start, dst[:n]); err != nil {
		return 0, err
	}
	return int(n), nil
}

// WriteRun writes elems at the block aligned element start in one
// multi-block transfer, charged as a single write.
func (q *Sequence) WriteRun(start int64, elems []int64) error {
	if c := int64(q.store.blockCap); start%c != 0 {
		q.store.counter.addWrite()
		return newError(KindWrite, q.path, start/c, fmt.Errorf("offset %d is not block aligned", start))
	}
	return q.writeAt(start, elems)
}

// ReadElements fills dst with consecutive elements starting at element start,
// one block read per block touched. start must be block aligned. It returns
// the number of elements read, which is short only at the end of the sequence.
// A block only partly covered by dst is still read, and charged, in full.
func (q *Sequence) ReadElements(start int64, dst []int64) (int, error) {
	c := q.store.blockCap
	if start%int64(c) != 0 {
		return 0, newError(KindRead, q.path, start/int64(c), fmt.Errorf("offset %d is not block aligned", start))
	}
	idx := start / int64(c)
	total := 0
	for total < len(dst) && start+int64(total) < q.length {
		end := min(total+c, len(dst))
		if want := q.length - start - int64(total); int64(end-total) > want {
			end = total + int(want)
		}
		var n int
		var err error
		if need := min(int64(c), q.length-start-int64(total)); int64(end-total) < need {
			tail := make([]int64, need)
			n, err = q.ReadBlock(idx, tail)
			n = copy(dst[total:end], tail[:n])
		} else {
			n, err = q.ReadBlock(idx, dst[total:end])
		}
		total += n
		idx++
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// Truncate resizes the file to n elements. This is a metadata operation and
// is not charged to the Counter.
func (q *Sequence) Truncate(n int64) error {
	if err := q.file.Truncate(n * ElementSize); err != nil {
		return newError(KindWrite, q.path, -1, err)
	}
	q.length = n
	return nil
}

// Close closes the underlying file.
func (q *Sequence) Close() error {
	if q.closed {
		return nil
	}
	q.closed = true
	if err := q.file.Close(); err != nil {
		return newError(KindClose, q.path, -1, err)
	}
	return nil
}

// Remove closes the sequence and deletes its file.
func (q *Sequence) Remove() error {
	if err := q.Close(); err != nil {
		return err
	}
	return q.store.Remove(q.path)
}
