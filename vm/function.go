package vm

import "github.com/wasmlet/wasmlet/wasm"

// ModuleFunction is a callable function defined by the module itself: its
// parameter count (needed to size the callee's locals frame, spec.md §4.4)
// and its instruction body.
type ModuleFunction struct {
	ParamCount int
	Body       []wasm.Instruction
}

// ExternFunction is a callable supplied by the host (spec.md §4.5). Func
// receives its arguments in the order they were originally pushed (not
// stack order), and may return a single i32 result or none.
type ExternFunction struct {
	ParamCount int
	Func       func(args []int32) *int32
}

// FunctionsFromModule adapts a decoded module's function and code sections
// into the ModuleFunction slice Execute's Call instruction indexes into.
// Import entries of kind Func occupy the low end of the function index
// space (spec.md §3, §4.5) and have no body of their own; this is only
// ever called on modules with no function imports, since those are
// resolved externally through a Registry instead.
func FunctionsFromModule(m *wasm.Module) ([]ModuleFunction, error) {
	fns := make([]ModuleFunction, len(m.Functions))
	for i := range m.Functions {
		sig, ok := m.FuncType(i)
		if !ok {
			return nil, newExecError("vm: function has no matching type entry")
		}
		fns[i] = ModuleFunction{
			ParamCount: len(sig.ParamTypes),
			Body:       m.Codes[i].Body,
		}
	}
	return fns, nil
}
