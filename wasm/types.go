// Package wasm implements the module AST (spec.md §4.2) and the binary
// decoder (spec.md §4.3) for the restricted wasm subset this project loads:
// types, imports, function signatures, memories, globals, exports and
// function bodies, decoded into fully-materialised instruction trees rather
// than retained as raw bytecode (spec.md §9, "Instruction as a tagged tree,
// not a byte buffer").
package wasm

import "fmt"

// ValueType is one of the four wasm value types. Only I32 participates in
// execution (vm.Machine.Execute); F64 is decoded (global initialisers,
// constant expressions) but never computed on; I64 and F32 are carried as
// inert tags so FuncType/Code locals decode correctly even though nothing
// in this core reads or writes a value of that type.
type ValueType uint8

const (
	ValueTypeI32 ValueType = iota
	ValueTypeI64
	ValueTypeF32
	ValueTypeF64
)

func (t ValueType) String() string {
	switch t {
	case ValueTypeI32:
		return "i32"
	case ValueTypeI64:
		return "i64"
	case ValueTypeF32:
		return "f32"
	case ValueTypeF64:
		return "f64"
	default:
		return fmt.Sprintf("valuetype(%d)", uint8(t))
	}
}

// Index newtypes. They share uint32 as their representation but are
// distinct Go types, so a LabelIdx can never be passed where a FuncIdx is
// expected without an explicit conversion (spec.md §3, §9).
type (
	TypeIdx   uint32
	FuncIdx   uint32
	TableIdx  uint32
	MemIdx    uint32
	GlobalIdx uint32
	LocalIdx  uint32
	LabelIdx  uint32
)

// Limits describes a table's or memory's size bounds.
type Limits struct {
	Min uint32
	Max *uint32 // nil when no maximum was declared
}

// FuncType is a function signature: ordered parameter types and ordered
// result types.
type FuncType struct {
	ParamTypes  []ValueType
	ResultTypes []ValueType
}

// MemArg is the alignment/offset pair attached to load and store
// instructions. Alignment is retained after decoding but ignored by the
// interpreter (spec.md §3).
type MemArg struct {
	Align  uint32
	Offset uint32
}

// BlockType identifies a structured instruction's type annotation. Only the
// empty form is recognised by this core (spec.md §3).
type BlockType uint8

const BlockTypeEmpty BlockType = 0

// Mutability is a global's const/var flag.
type Mutability uint8

const (
	MutConst Mutability = iota
	MutVar
)

// GlobalType is a global's value type plus its mutability flag.
type GlobalType struct {
	ValueType  ValueType
	Mutability Mutability
}

// RefType is the element type of a table. Only funcref exists in wasm 1.0.
type RefType uint8

const RefTypeFuncRef RefType = 0

// TableType describes a table import/definition. The core never schedules
// a table for execution (spec.md §1); this exists purely so an import of
// kind Table can be decoded without desyncing the byte cursor (see
// SPEC_FULL.md §3).
type TableType struct {
	ElemType RefType
	Limits   Limits
}

// MemType describes a memory import.
type MemType struct {
	Limits Limits
}

// Name is a length-prefixed UTF-8 string, as used for import/export names.
type Name string

// ImportKind tags which component an Import describes.
type ImportKind uint8

const (
	ImportKindFunc ImportKind = iota
	ImportKindTable
	ImportKindMemory
	ImportKindGlobal
)

// ImportDescriptor is a tagged variant selecting one of {Func, Table,
// Memory, Global}, chosen by Kind. For Func the type index is held in Func
// and every pointer field is nil; for the other kinds exactly the pointer
// field matching Kind is non-nil.
type ImportDescriptor struct {
	Kind   ImportKind
	Func   TypeIdx
	Table  *TableType
	Memory *MemType
	Global *GlobalType
}

// Import is one entry of the import section: the two-part name it imports
// under, plus what kind of thing it expects to receive.
type Import struct {
	Module     Name
	Name       Name
	Descriptor ImportDescriptor
}

// ExportKind tags which component an Export refers to.
type ExportKind uint8

const (
	ExportKindFunc ExportKind = iota
	ExportKindTable
	ExportKindMemory
	ExportKindGlobal
)

// ExportDescriptor is a tagged variant selecting one of {Func, Table,
// Memory, Global} by index.
type ExportDescriptor struct {
	Kind   ExportKind
	Func   FuncIdx
	Table  TableIdx
	Mem    MemIdx
	Global GlobalIdx
}

// Export is one entry of the export section.
type Export struct {
	Name       Name
	Descriptor ExportDescriptor
}

// Global is a module-defined global: its type plus the constant
// initialiser expression that produces its starting value.
type Global struct {
	Type GlobalType
	Init []Instruction
}

// Code is one function body: its locally-declared variables (already
// expanded from (count, type) runs into one entry per local, spec.md §3)
// and its instruction tree.
type Code struct {
	Locals []ValueType
	Body   []Instruction
}

// Preamble is the module's fixed 8-byte header.
type Preamble struct {
	Magic   [4]byte
	Version [4]byte
}
