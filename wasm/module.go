package wasm

// Module is the fully-decoded, immutable module description (spec.md §3).
// It is constructed once by Decode and then only ever read; the
// interpreter borrows its Codes/Types but never mutates them.
//
// Functions[i] is the TypeIdx of the i-th function defined by the module,
// and Codes[i] is that same function's locals+body — the two slices are
// kept parallel rather than merged into one []Function, mirroring how the
// function and code sections are two separate, independently-sized vectors
// on the wire (spec.md §4.3) until Decode cross-checks they ended up the
// same length.
type Module struct {
	Preamble Preamble

	Types     []FuncType
	Imports   []Import
	Functions []TypeIdx
	Memories  []Limits
	Globals   []Global
	Exports   []Export
	Codes     []Code
}

// FuncType returns the signature of the i-th module-defined function (i.e.
// module.Types[module.Functions[i]]), or false if i is out of range.
func (m *Module) FuncType(i int) (FuncType, bool) {
	if i < 0 || i >= len(m.Functions) {
		return FuncType{}, false
	}
	typeIdx := int(m.Functions[i])
	if typeIdx < 0 || typeIdx >= len(m.Types) {
		return FuncType{}, false
	}
	return m.Types[typeIdx], true
}

// ExportedFunc looks up a function export by name, returning its index into
// Functions/Codes.
func (m *Module) ExportedFunc(name string) (FuncIdx, bool) {
	for _, export := range m.Exports {
		if export.Descriptor.Kind == ExportKindFunc && string(export.Name) == name {
			return export.Descriptor.Func, true
		}
	}
	return 0, false
}
