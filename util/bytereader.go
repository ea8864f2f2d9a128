// Package util provides the binary reader primitives the wasm decoder is
// built on: fixed-width reads, a position cursor for section bookkeeping,
// and the io.Reader/io.ByteReader conformance leb128 and encoding/binary
// need to operate directly against a decoded byte slice.
package util

import (
	"io"

	"github.com/pkg/errors"
)

// ErrEOF is the clean end-of-stream sentinel. It is only meaningful when
// returned from a read that started exactly at the end of the buffer; a
// partial read past that point is a genuine decode error, not Eof.
var ErrEOF = errors.New("util: end of stream")

// ByteReader is a cursor over an in-memory module binary. The decoder never
// owns file I/O (that is the caller's concern, out of scope for this
// package) — it only ever sees a byte slice with read+seek capability.
type ByteReader struct {
	buf []byte
	pos uint32
}

// NewByteReader wraps buf for sequential decoding starting at offset 0.
func NewByteReader(buf []byte) *ByteReader {
	return &ByteReader{buf: buf}
}

// Pos returns the current cursor offset, used by the section decoder to
// cross-check declared section sizes against bytes actually consumed.
func (r *ByteReader) Pos() uint32 {
	return r.pos
}

// Len returns the total buffer length.
func (r *ByteReader) Len() uint32 {
	return uint32(len(r.buf))
}

// ReadN reads exactly n bytes. A read that starts exactly at the end of the
// buffer returns ErrEOF (the clean termination case used at section
// boundaries); a read that would run past the end after starting mid-buffer
// is a malformed-input error.
func (r *ByteReader) ReadN(n uint32) ([]byte, error) {
	if n == 0 {
		return nil, nil
	}
	if r.pos == uint32(len(r.buf)) {
		return nil, ErrEOF
	}
	if r.pos+n > uint32(len(r.buf)) {
		return nil, errors.Errorf("util: short read at offset %d: wanted %d bytes, %d available", r.pos, n, uint32(len(r.buf))-r.pos)
	}
	b := r.buf[r.pos : r.pos+n]
	r.pos += n
	return b, nil
}

// ReadByte reads a single byte, satisfying io.ByteReader so leb128 readers
// can pull one byte at a time without their own buffering.
func (r *ByteReader) ReadByte() (byte, error) {
	b, err := r.ReadN(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

// Read satisfies io.Reader so encoding/binary and wagon's leb128 package can
// read directly off the cursor.
func (r *ByteReader) Read(p []byte) (int, error) {
	if r.pos == uint32(len(r.buf)) {
		return 0, io.EOF
	}
	n := copy(p, r.buf[r.pos:])
	r.pos += uint32(n)
	return n, nil
}

// Skip advances the cursor by n bytes without returning them, used to
// discard sections the decoder recognises but does not materialise
// (Custom, Table, Start, Element, Data).
func (r *ByteReader) Skip(n uint32) error {
	_, err := r.ReadN(n)
	return err
}
