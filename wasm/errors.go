package wasm

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/wasmlet/wasmlet/util"
)

// ErrEOF is the decoder-level re-export of the reader's clean end-of-stream
// sentinel (spec.md §4.1). Only the top-level section loop treats it
// specially — there, running out of bytes means "no more sections". Every
// other caller compares its raw error against ErrEOF directly (as the
// section loop does) before any wrapping happens; once an error reaches
// wrapf, a bare ErrEOF is treated the same as any other read failure and
// turned into a *DecodeError, since at that point it means "ran out of
// bytes in the middle of a structured element", which spec.md §7 requires
// to surface as a reported error, not as the clean end-of-module sentinel.
var ErrEOF = util.ErrEOF

// DecodeError is returned by Decode for any malformed-input condition:
// invalid magic/version, a section-size/position mismatch, an invalid
// value-type/mutability/descriptor byte, invalid UTF-8 in a Name, or an
// unknown opcode. Pos is the byte offset the error was detected at; Partial
// is populated only for unknown-opcode errors, holding the instructions
// already decoded in the enclosing body (spec.md §7).
type DecodeError struct {
	Pos     uint32
	Message string
	Partial []Instruction
}

func (e *DecodeError) Error() string {
	if len(e.Partial) > 0 {
		return fmt.Sprintf("wasm: %s (offset %#x, %d instructions decoded so far)", e.Message, e.Pos, len(e.Partial))
	}
	return fmt.Sprintf("wasm: %s (offset %#x)", e.Message, e.Pos)
}

func decodeErrf(r *util.ByteReader, format string, args ...interface{}) error {
	return errors.WithStack(&DecodeError{Pos: r.Pos(), Message: fmt.Sprintf(format, args...)})
}

func decodeOpcodeErr(r *util.ByteReader, opcode byte, decodedSoFar []Instruction) error {
	return errors.WithStack(&DecodeError{
		Pos:     r.Pos() - 1,
		Message: fmt.Sprintf("unknown opcode %#02x", opcode),
		Partial: decodedSoFar,
	})
}

// wrapf turns a lower-layer error (reader/leb128) into a *DecodeError
// carrying the position it was detected at and the context of what the
// decoder was trying to read. It always produces a DecodeError, including
// when the underlying failure is ErrEOF — by the time a read failure
// reaches wrapf it is never the clean "no more sections" case (the section
// loop checks for that directly on the unwrapped error first), so an EOF
// here means a structured element was truncated mid-read. When err already
// holds a *DecodeError, its Partial trace is carried over.
func wrapf(r *util.ByteReader, err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	var partial []Instruction
	var inner *DecodeError
	if errors.As(err, &inner) {
		partial = inner.Partial
	}
	return errors.WithStack(&DecodeError{
		Pos:     r.Pos(),
		Message: fmt.Sprintf("%s: %v", fmt.Sprintf(format, args...), err),
		Partial: partial,
	})
}
