// Package leb128 decodes the variable-length integers used throughout the
// wasm binary format (spec.md §4.1, §6). Decoding itself is delegated to
// wagon's leb128 package — the 7-bit-group accumulation has been correct in
// that library for years, and re-deriving it here by hand would just be a
// worse copy of the same few lines.
package leb128

import (
	"io"

	wagonleb128 "github.com/go-interpreter/wagon/wasm/leb128"
	"github.com/pkg/errors"

	"github.com/wasmlet/wasmlet/util"
)

// wrap turns a bare io.EOF/io.ErrUnexpectedEOF from the underlying reader
// into a proper decode error: running out of bytes in the middle of a
// multi-byte integer is never the clean Eof case, only a read that starts
// exactly at a section boundary is (util.ErrEOF already models that one).
func wrap(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, util.ErrEOF) {
		return err
	}
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return errors.Wrap(err, "leb128: truncated integer")
	}
	return err
}

// ReadUint32 reads an unsigned LEB128 integer of up to 32 bits.
func ReadUint32(r *util.ByteReader) (uint32, error) {
	v, err := wagonleb128.ReadVarUint32(r)
	if err != nil {
		return 0, wrap(err)
	}
	return v, nil
}

// ReadInt32 reads a signed LEB128 integer of up to 32 bits, sign-extended
// from the final group's sign bit.
func ReadInt32(r *util.ByteReader) (int32, error) {
	v, err := wagonleb128.ReadVarint32(r)
	if err != nil {
		return 0, wrap(err)
	}
	return v, nil
}

// ReadUint64 reads an unsigned LEB128 integer of up to 64 bits. Nothing in
// this module calls it yet — the core never exposes 64-bit values to
// execution per spec.md §1 — but it mirrors the teacher's full leb128 API
// surface rather than trimming it to only what's currently wired.
func ReadUint64(r *util.ByteReader) (uint64, error) {
	v, err := wagonleb128.ReadVarUint64(r)
	if err != nil {
		return 0, wrap(err)
	}
	return v, nil
}

// ReadInt64 reads a signed LEB128 integer of up to 64 bits.
func ReadInt64(r *util.ByteReader) (int64, error) {
	v, err := wagonleb128.ReadVarint64(r)
	if err != nil {
		return 0, wrap(err)
	}
	return v, nil
}
