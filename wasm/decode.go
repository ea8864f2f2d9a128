package wasm

import (
	"encoding/binary"
	"math"
	"unicode/utf8"

	"github.com/wasmlet/wasmlet/leb128"
	"github.com/wasmlet/wasmlet/util"
)

// decodeF64LE interprets 8 little-endian bytes as an IEEE-754 double, the
// wire encoding f64.const immediates use (spec.md §6).
func decodeF64LE(b []byte) float64 {
	return math.Float64frombits(binary.LittleEndian.Uint64(b))
}

// Opcode bytes recognised by the instruction-tree parser (spec.md §4.3, §6).
const (
	opUnreachable byte = 0x00
	opBlock       byte = 0x02
	opLoop        byte = 0x03
	opIf          byte = 0x04
	opElse        byte = 0x05
	opEnd         byte = 0x0B
	opBranch      byte = 0x0C
	opBranchIf    byte = 0x0D
	opReturn      byte = 0x0F
	opCall        byte = 0x10

	opLocalGet  byte = 0x20
	opLocalSet  byte = 0x21
	opGlobalGet byte = 0x23
	opGlobalSet byte = 0x24

	opI32Load  byte = 0x28
	opI32Store byte = 0x36

	opI32Const   byte = 0x41
	opF64Const   byte = 0x44
	opI32Eq      byte = 0x46
	opI32GtS     byte = 0x4A
	opF64Lt      byte = 0x63
	opF64Gt      byte = 0x64
	opF64Ge      byte = 0x66
	opI32Add     byte = 0x6A
	opI32Sub     byte = 0x6B
	opI32Mul     byte = 0x6C
	opF64Add     byte = 0xA0
	opF64Sub     byte = 0xA1
	opF64Mul     byte = 0xA2
	opF64Div     byte = 0xA3
)

// Section ids (spec.md §4.3).
const (
	secCustom   byte = 0
	secType     byte = 1
	secImport   byte = 2
	secFunction byte = 3
	secTable    byte = 4
	secMemory   byte = 5
	secGlobal   byte = 6
	secExport   byte = 7
	secStart    byte = 8
	secElement  byte = 9
	secCode     byte = 10
	secData     byte = 11
)

var wasmMagic = [4]byte{0x00, 0x61, 0x73, 0x6D}
var wasmVersion = [4]byte{0x01, 0x00, 0x00, 0x00}

// Decode parses a complete wasm module binary out of r, materialising every
// section spec.md §4.3 names (skipping the unrecognised-but-valid ones by
// seeking past their declared size) and cross-checking, after each section
// and at the end, the invariants spec.md §3 calls out.
func Decode(r *util.ByteReader) (*Module, error) {
	preamble, err := decodePreamble(r)
	if err != nil {
		return nil, err
	}

	m := &Module{Preamble: preamble}

	for {
		id, err := r.ReadByte()
		if err != nil {
			if err == ErrEOF {
				break
			}
			return nil, wrapf(r, err, "reading section id")
		}

		size, err := leb128.ReadUint32(r)
		if err != nil {
			return nil, wrapf(r, err, "reading section size for section %d", id)
		}

		start := r.Pos()
		if err := decodeSection(m, id, size, r); err != nil {
			return nil, err
		}
		end := r.Pos()

		if end-start != size {
			return nil, decodeErrf(r, "section %d declared size %d but decoding consumed %d bytes", id, size, end-start)
		}
	}

	if len(m.Codes) != len(m.Functions) {
		return nil, decodeErrf(r, "function section has %d entries but code section has %d", len(m.Functions), len(m.Codes))
	}

	return m, nil
}

func decodePreamble(r *util.ByteReader) (Preamble, error) {
	var p Preamble

	magic, err := r.ReadN(4)
	if err != nil {
		return p, wrapf(r, err, "reading magic")
	}
	copy(p.Magic[:], magic)
	if p.Magic != wasmMagic {
		return p, decodeErrf(r, "invalid magic value %x", magic)
	}

	version, err := r.ReadN(4)
	if err != nil {
		return p, wrapf(r, err, "reading version")
	}
	copy(p.Version[:], version)
	if p.Version != wasmVersion {
		return p, decodeErrf(r, "invalid version %x", version)
	}

	return p, nil
}

func decodeSection(m *Module, id byte, size uint32, r *util.ByteReader) error {
	switch id {
	case secCustom, secTable, secStart, secElement, secData:
		if err := r.Skip(size); err != nil {
			return wrapf(r, err, "skipping section %d", id)
		}
		return nil
	case secType:
		types, err := decodeVector(r, decodeFuncType)
		if err != nil {
			return wrapf(r, err, "decoding type section")
		}
		m.Types = types
		return nil
	case secImport:
		imports, err := decodeVector(r, decodeImport)
		if err != nil {
			return wrapf(r, err, "decoding import section")
		}
		m.Imports = imports
		return nil
	case secFunction:
		fns, err := decodeVector(r, decodeTypeIdx)
		if err != nil {
			return wrapf(r, err, "decoding function section")
		}
		m.Functions = fns
		return nil
	case secMemory:
		mems, err := decodeVector(r, decodeLimits)
		if err != nil {
			return wrapf(r, err, "decoding memory section")
		}
		m.Memories = mems
		return nil
	case secGlobal:
		globals, err := decodeVector(r, decodeGlobal)
		if err != nil {
			return wrapf(r, err, "decoding global section")
		}
		m.Globals = globals
		return nil
	case secExport:
		exports, err := decodeVector(r, decodeExport)
		if err != nil {
			return wrapf(r, err, "decoding export section")
		}
		m.Exports = exports
		return nil
	case secCode:
		codes, err := decodeVector(r, decodeCode)
		if err != nil {
			return wrapf(r, err, "decoding code section")
		}
		m.Codes = codes
		return nil
	default:
		return decodeErrf(r, "unknown section id %d", id)
	}
}

// decodeVector reads an unsigned-LEB128-prefixed homogeneous vector
// (spec.md §4.1): one count, then that many parses of one.
func decodeVector[T any](r *util.ByteReader, one func(*util.ByteReader) (T, error)) ([]T, error) {
	n, err := leb128.ReadUint32(r)
	if err != nil {
		return nil, wrapf(r, err, "reading vector length")
	}
	out := make([]T, 0, n)
	for i := uint32(0); i < n; i++ {
		v, err := one(r)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func decodeValueType(r *util.ByteReader) (ValueType, error) {
	b, err := r.ReadByte()
	if err != nil {
		return 0, wrapf(r, err, "reading value type")
	}
	switch b {
	case 0x7f:
		return ValueTypeI32, nil
	case 0x7e:
		return ValueTypeI64, nil
	case 0x7d:
		return ValueTypeF32, nil
	case 0x7c:
		return ValueTypeF64, nil
	default:
		return 0, decodeErrf(r, "invalid value type byte %#02x", b)
	}
}

func decodeFuncType(r *util.ByteReader) (FuncType, error) {
	marker, err := r.ReadByte()
	if err != nil {
		return FuncType{}, wrapf(r, err, "reading functype marker")
	}
	if marker != 0x60 {
		return FuncType{}, decodeErrf(r, "invalid functype marker %#02x", marker)
	}

	params, err := decodeVector(r, decodeValueType)
	if err != nil {
		return FuncType{}, wrapf(r, err, "decoding functype parameters")
	}
	results, err := decodeVector(r, decodeValueType)
	if err != nil {
		return FuncType{}, wrapf(r, err, "decoding functype results")
	}
	return FuncType{ParamTypes: params, ResultTypes: results}, nil
}

func decodeTypeIdx(r *util.ByteReader) (TypeIdx, error) {
	v, err := leb128.ReadUint32(r)
	if err != nil {
		return 0, wrapf(r, err, "reading type index")
	}
	return TypeIdx(v), nil
}

func decodeFuncIdx(r *util.ByteReader) (FuncIdx, error) {
	v, err := leb128.ReadUint32(r)
	if err != nil {
		return 0, wrapf(r, err, "reading function index")
	}
	return FuncIdx(v), nil
}

func decodeName(r *util.ByteReader) (Name, error) {
	n, err := leb128.ReadUint32(r)
	if err != nil {
		return "", wrapf(r, err, "reading name length")
	}
	b, err := r.ReadN(n)
	if err != nil {
		return "", wrapf(r, err, "reading name bytes")
	}
	if !utf8.Valid(b) {
		return "", decodeErrf(r, "invalid UTF-8 in name")
	}
	return Name(b), nil
}

func decodeLimits(r *util.ByteReader) (Limits, error) {
	flag, err := r.ReadByte()
	if err != nil {
		return Limits{}, wrapf(r, err, "reading limits flag")
	}

	min, err := leb128.ReadUint32(r)
	if err != nil {
		return Limits{}, wrapf(r, err, "reading limits min")
	}

	switch flag {
	case 0:
		return Limits{Min: min}, nil
	case 1:
		max, err := leb128.ReadUint32(r)
		if err != nil {
			return Limits{}, wrapf(r, err, "reading limits max")
		}
		return Limits{Min: min, Max: &max}, nil
	default:
		return Limits{}, decodeErrf(r, "invalid limits flag %#02x", flag)
	}
}

func decodeRefType(r *util.ByteReader) (RefType, error) {
	b, err := r.ReadByte()
	if err != nil {
		return 0, wrapf(r, err, "reading reftype")
	}
	if b != 0x70 {
		return 0, decodeErrf(r, "invalid reftype byte %#02x", b)
	}
	return RefTypeFuncRef, nil
}

func decodeTableType(r *util.ByteReader) (TableType, error) {
	elemType, err := decodeRefType(r)
	if err != nil {
		return TableType{}, err
	}
	limits, err := decodeLimits(r)
	if err != nil {
		return TableType{}, err
	}
	return TableType{ElemType: elemType, Limits: limits}, nil
}

func decodeMutability(r *util.ByteReader) (Mutability, error) {
	b, err := r.ReadByte()
	if err != nil {
		return 0, wrapf(r, err, "reading mutability")
	}
	switch b {
	case 0x00:
		return MutConst, nil
	case 0x01:
		return MutVar, nil
	default:
		return 0, decodeErrf(r, "invalid mutability byte %#02x", b)
	}
}

func decodeGlobalType(r *util.ByteReader) (GlobalType, error) {
	vt, err := decodeValueType(r)
	if err != nil {
		return GlobalType{}, err
	}
	mut, err := decodeMutability(r)
	if err != nil {
		return GlobalType{}, err
	}
	return GlobalType{ValueType: vt, Mutability: mut}, nil
}

func decodeImport(r *util.ByteReader) (Import, error) {
	module, err := decodeName(r)
	if err != nil {
		return Import{}, wrapf(r, err, "decoding import module name")
	}
	name, err := decodeName(r)
	if err != nil {
		return Import{}, wrapf(r, err, "decoding import field name")
	}

	kind, err := r.ReadByte()
	if err != nil {
		return Import{}, wrapf(r, err, "reading import descriptor kind")
	}

	var desc ImportDescriptor
	switch kind {
	case 0x00:
		typeIdx, err := decodeTypeIdx(r)
		if err != nil {
			return Import{}, err
		}
		desc = ImportDescriptor{Kind: ImportKindFunc, Func: typeIdx}
	case 0x01:
		table, err := decodeTableType(r)
		if err != nil {
			return Import{}, err
		}
		desc = ImportDescriptor{Kind: ImportKindTable, Table: &table}
	case 0x02:
		limits, err := decodeLimits(r)
		if err != nil {
			return Import{}, err
		}
		mem := MemType{Limits: limits}
		desc = ImportDescriptor{Kind: ImportKindMemory, Memory: &mem}
	case 0x03:
		global, err := decodeGlobalType(r)
		if err != nil {
			return Import{}, err
		}
		desc = ImportDescriptor{Kind: ImportKindGlobal, Global: &global}
	default:
		return Import{}, decodeErrf(r, "invalid import descriptor kind %#02x", kind)
	}

	return Import{Module: module, Name: name, Descriptor: desc}, nil
}

func decodeExport(r *util.ByteReader) (Export, error) {
	name, err := decodeName(r)
	if err != nil {
		return Export{}, wrapf(r, err, "decoding export name")
	}

	kind, err := r.ReadByte()
	if err != nil {
		return Export{}, wrapf(r, err, "reading export descriptor kind")
	}

	idx, err := leb128.ReadUint32(r)
	if err != nil {
		return Export{}, wrapf(r, err, "reading export descriptor index")
	}

	var desc ExportDescriptor
	switch kind {
	case 0x00:
		desc = ExportDescriptor{Kind: ExportKindFunc, Func: FuncIdx(idx)}
	case 0x01:
		desc = ExportDescriptor{Kind: ExportKindTable, Table: TableIdx(idx)}
	case 0x02:
		desc = ExportDescriptor{Kind: ExportKindMemory, Mem: MemIdx(idx)}
	case 0x03:
		desc = ExportDescriptor{Kind: ExportKindGlobal, Global: GlobalIdx(idx)}
	default:
		return Export{}, decodeErrf(r, "invalid export descriptor kind %#02x", kind)
	}

	return Export{Name: name, Descriptor: desc}, nil
}

func decodeGlobal(r *util.ByteReader) (Global, error) {
	globalType, err := decodeGlobalType(r)
	if err != nil {
		return Global{}, err
	}
	init, err := decodeBody(r)
	if err != nil {
		return Global{}, wrapf(r, err, "decoding global initialiser")
	}
	return Global{Type: globalType, Init: init}, nil
}

type localsRun struct {
	Count uint32
	Type  ValueType
}

func decodeLocalsRun(r *util.ByteReader) (localsRun, error) {
	n, err := leb128.ReadUint32(r)
	if err != nil {
		return localsRun{}, wrapf(r, err, "reading locals run count")
	}
	t, err := decodeValueType(r)
	if err != nil {
		return localsRun{}, err
	}
	return localsRun{Count: n, Type: t}, nil
}

// decodeCode reads one Code entry: its own declared byte size, its locals
// (expanded from (n, t) runs into n copies of t), and its body, then checks
// the declared size against the bytes actually consumed (spec.md §4.3's
// Code parser, and the §8 round-trip property).
func decodeCode(r *util.ByteReader) (Code, error) {
	size, err := leb128.ReadUint32(r)
	if err != nil {
		return Code{}, wrapf(r, err, "reading code entry size")
	}
	start := r.Pos()

	runs, err := decodeVector(r, decodeLocalsRun)
	if err != nil {
		return Code{}, wrapf(r, err, "decoding code locals")
	}
	var locals []ValueType
	for _, run := range runs {
		for i := uint32(0); i < run.Count; i++ {
			locals = append(locals, run.Type)
		}
	}

	body, err := decodeBody(r)
	if err != nil {
		return Code{}, wrapf(r, err, "decoding code body")
	}

	end := r.Pos()
	if end-start != size {
		return Code{}, decodeErrf(r, "code entry declared size %d but decoding consumed %d bytes", size, end-start)
	}

	return Code{Locals: locals, Body: body}, nil
}

// decodeBody reads instructions until the end sentinel (0x0B), used for
// plain bodies (function/global bodies, Block/Loop contents). It is an
// error to hit the else sentinel (0x05) here — that only makes sense
// inside an If's then-branch, handled by decodeIfBranches.
func decodeBody(r *util.ByteReader) ([]Instruction, error) {
	var out []Instruction
	for {
		op, err := r.ReadByte()
		if err != nil {
			return nil, wrapf(r, err, "reading opcode")
		}
		if op == opEnd {
			return out, nil
		}
		if op == opElse {
			return nil, decodeErrf(r, "unexpected else outside an if-block")
		}

		instr, err := decodeInstruction(r, op, out)
		if err != nil {
			return nil, err
		}
		out = append(out, instr)
	}
}

// decodeIfBranches reads an If's then-body, stopping at either the else
// sentinel (in which case it goes on to read the else-body, terminated by
// end) or the end sentinel directly (in which case there is no else-body).
func decodeIfBranches(r *util.ByteReader) (thenBody, elseBody []Instruction, err error) {
	for {
		op, err := r.ReadByte()
		if err != nil {
			return nil, nil, wrapf(r, err, "reading opcode in if-then body")
		}
		if op == opElse {
			elseBody, err = decodeBody(r)
			if err != nil {
				return nil, nil, err
			}
			return thenBody, elseBody, nil
		}
		if op == opEnd {
			return thenBody, nil, nil
		}

		instr, err := decodeInstruction(r, op, thenBody)
		if err != nil {
			return nil, nil, err
		}
		thenBody = append(thenBody, instr)
	}
}

func decodeBlockType(r *util.ByteReader) (BlockType, error) {
	b, err := r.ReadByte()
	if err != nil {
		return 0, wrapf(r, err, "reading block type")
	}
	if b != 0x40 {
		return 0, decodeErrf(r, "unsupported block type byte %#02x (only the empty form is supported)", b)
	}
	return BlockTypeEmpty, nil
}

func decodeMemArg(r *util.ByteReader) (MemArg, error) {
	align, err := leb128.ReadUint32(r)
	if err != nil {
		return MemArg{}, wrapf(r, err, "reading memarg align")
	}
	offset, err := leb128.ReadUint32(r)
	if err != nil {
		return MemArg{}, wrapf(r, err, "reading memarg offset")
	}
	return MemArg{Align: align, Offset: offset}, nil
}

func decodeLocalIdx(r *util.ByteReader) (LocalIdx, error) {
	v, err := leb128.ReadUint32(r)
	if err != nil {
		return 0, wrapf(r, err, "reading local index")
	}
	return LocalIdx(v), nil
}

func decodeGlobalIdx(r *util.ByteReader) (GlobalIdx, error) {
	v, err := leb128.ReadUint32(r)
	if err != nil {
		return 0, wrapf(r, err, "reading global index")
	}
	return GlobalIdx(v), nil
}

func decodeLabelIdx(r *util.ByteReader) (LabelIdx, error) {
	v, err := leb128.ReadUint32(r)
	if err != nil {
		return 0, wrapf(r, err, "reading label index")
	}
	return LabelIdx(v), nil
}

// decodeInstruction decodes one instruction's immediates (and, for
// structured instructions, recursively its nested bodies) given its
// already-consumed opcode byte. decodedSoFar is only used to enrich an
// unknown-opcode error with the partial instruction trace spec.md §7 asks
// for; it is not otherwise part of this instruction's decoding.
func decodeInstruction(r *util.ByteReader, op byte, decodedSoFar []Instruction) (Instruction, error) {
	switch op {
	case opUnreachable:
		return Unreachable{}, nil
	case opBlock:
		bt, err := decodeBlockType(r)
		if err != nil {
			return nil, err
		}
		body, err := decodeBody(r)
		if err != nil {
			return nil, err
		}
		return Block{Type: bt, Body: body}, nil
	case opLoop:
		bt, err := decodeBlockType(r)
		if err != nil {
			return nil, err
		}
		body, err := decodeBody(r)
		if err != nil {
			return nil, err
		}
		return Loop{Type: bt, Body: body}, nil
	case opIf:
		bt, err := decodeBlockType(r)
		if err != nil {
			return nil, err
		}
		thenBody, elseBody, err := decodeIfBranches(r)
		if err != nil {
			return nil, err
		}
		return If{Type: bt, Then: thenBody, Else: elseBody}, nil
	case opBranch:
		label, err := decodeLabelIdx(r)
		if err != nil {
			return nil, err
		}
		return Branch{Label: label}, nil
	case opBranchIf:
		label, err := decodeLabelIdx(r)
		if err != nil {
			return nil, err
		}
		return BranchIf{Label: label}, nil
	case opReturn:
		return Return{}, nil
	case opCall:
		fn, err := decodeFuncIdx(r)
		if err != nil {
			return nil, err
		}
		return Call{Func: fn}, nil

	case opLocalGet:
		idx, err := decodeLocalIdx(r)
		if err != nil {
			return nil, err
		}
		return LocalGet{Local: idx}, nil
	case opLocalSet:
		idx, err := decodeLocalIdx(r)
		if err != nil {
			return nil, err
		}
		return LocalSet{Local: idx}, nil
	case opGlobalGet:
		idx, err := decodeGlobalIdx(r)
		if err != nil {
			return nil, err
		}
		return GlobalGet{Global: idx}, nil
	case opGlobalSet:
		idx, err := decodeGlobalIdx(r)
		if err != nil {
			return nil, err
		}
		return GlobalSet{Global: idx}, nil

	case opI32Load:
		arg, err := decodeMemArg(r)
		if err != nil {
			return nil, err
		}
		return I32Load{Arg: arg}, nil
	case opI32Store:
		arg, err := decodeMemArg(r)
		if err != nil {
			return nil, err
		}
		return I32Store{Arg: arg}, nil

	case opI32Const:
		v, err := leb128.ReadInt32(r)
		if err != nil {
			return nil, wrapf(r, err, "reading i32.const immediate")
		}
		return I32Const{Value: v}, nil
	case opF64Const:
		b, err := r.ReadN(8)
		if err != nil {
			return nil, wrapf(r, err, "reading f64.const immediate")
		}
		return F64Const{Value: decodeF64LE(b)}, nil

	case opI32Eq:
		return I32Eq{}, nil
	case opI32GtS:
		return I32GtSigned{}, nil
	case opF64Lt:
		return F64Lt{}, nil
	case opF64Gt:
		return F64Gt{}, nil
	case opF64Ge:
		return F64Ge{}, nil
	case opI32Add:
		return I32Add{}, nil
	case opI32Sub:
		return I32Sub{}, nil
	case opI32Mul:
		return I32Mul{}, nil
	case opF64Add:
		return F64Add{}, nil
	case opF64Sub:
		return F64Sub{}, nil
	case opF64Mul:
		return F64Mul{}, nil
	case opF64Div:
		return F64Div{}, nil

	default:
		return nil, decodeOpcodeErr(r, op, decodedSoFar)
	}
}
