package blockstore

import (
	"errors"
	"io"
)

// Reader iterates a Sequence element by element holding one block in memory.
// It never reads past the final block, so a full scan costs exactly Blocks() reads.
type Reader struct {
	seq   *Sequence
	buf   []int64
	pos   int
	n     int
	block int64
	done  bool
}

// NewReader returns a Reader positioned at the first element of seq.
func NewReader(seq *Sequence) *Reader {
	return &Reader{
		seq:  seq,
		buf:  make([]int64, seq.BlockCapacity()),
		done: seq.Len() == 0,
	}
}

// Next returns the next element. ok is false once the sequence is exhausted.
func (r *Reader) Next() (v int64, ok bool, err error) {
	if r.pos == r.n {
		if r.done {
			return 0, false, nil
		}
		n, err := r.seq.ReadBlock(r.block, r.buf)
		if err != nil && !errors.Is(err, io.EOF) {
			return 0, false, err
		}
		r.block++
		r.pos, r.n = 0, n
		if errors.Is(err, io.EOF) || n == 0 {
			r.done = true
		}
		if n == 0 {
			return 0, false, nil
		}
	}
	v = r.buf[r.pos]
	r.pos++
	return v, true, nil
}

// NextBlock returns the remaining elements of the current block, or the next
// block when the current one is consumed. The slice is only valid until the
// next call. An empty slice means the sequence is exhausted.
func (r *Reader) NextBlock() ([]int64, error) {
	if r.pos == r.n {
		if r.done {
			return nil, nil
		}
		n, err := r.seq.ReadBlock(r.block, r.buf)
		if err != nil && !errors.Is(err, io.EOF) {
			return nil, err
		}
		r.block++
		r.pos, r.n = 0, n
		if errors.Is(err, io.EOF) || n == 0 {
			r.done = true
		}
	}
	out := r.buf[r.pos:r.n]
	r.pos = r.n
	return out, nil
}

// Writer appends elements to a Sequence starting at a fixed element offset,
// writing once per full block and once more for a trailing partial block.
type Writer struct {
	seq *Sequence
	buf []int64
	off int64
}

// NewWriter returns a Writer that starts writing at element start of seq.
// start should be block aligned so writes land on block boundaries.
func NewWriter(seq *Sequence, start int64) *Writer {
	return &Writer{
		seq: seq,
		buf: make([]int64, 0, seq.BlockCapacity()),
		off: start,
	}
}

// Append buffers v and writes the buffer out when it reaches a full block.
func (w *Writer) Append(v int64) error {
	w.buf = append(w.buf, v)
	if len(w.buf) == cap(w.buf) {
		return w.Flush()
	}
	return nil
}

// Write appends every element of elems.
func (w *Writer) Write(elems []int64) error {
	for len(elems) > 0 {
		n := copy(w.buf[len(w.buf):cap(w.buf)], elems)
		w.buf = w.buf[:len(w.buf)+n]
		elems = elems[n:]
		if len(w.buf) == cap(w.buf) {
			if err := w.Flush(); err != nil {
				return err
			}
		}
	}
	return nil
}

// Flush writes any buffered elements as one block write.
func (w *Writer) Flush() error {
	if len(w.buf) == 0 {
		return nil
	}
	if err := w.seq.writeAt(w.off, w.buf); err != nil {
		return err
	}
	w.off += int64(len(w.buf))
	w.buf = w.buf[:0]
	return nil
}
