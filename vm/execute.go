package vm

import "github.com/wasmlet/wasmlet/wasm"

// Execute runs body to completion or until it hits a Return/Branch, per
// the contracts in spec.md §4.4. body is borrowed immutably; locals is
// borrowed mutably and never resized. moduleFunctions and externFunctions
// together form one contiguous callee index space (spec.md §4.5): Call's
// function index is first checked against moduleFunctions, then, past
// that range, against externFunctions.
//
// Only the instruction subset spec.md §4.4 gives a runtime contract for is
// executed. Unreachable panics with ErrUnreachable; everything else the
// decoder materialises — If, LocalSet, GlobalGet/GlobalSet, I32GtSigned,
// the F64 family — panics with ErrUnsupportedInstruction: this core decodes
// the full opcode table but only ever runs the subset above.
func (m *Machine) Execute(body []wasm.Instruction, moduleFunctions []ModuleFunction, externFunctions []ExternFunction, locals []int32) *ControlFlow {
	for _, instr := range body {
		m.trace("exec", "instr", instr, "locals", locals)

		switch ins := instr.(type) {
		case wasm.I32Const:
			m.push(ins.Value)

		case wasm.I32Load:
			m.push(m.loadCell(ins.Arg.Offset))

		case wasm.I32Store:
			v := m.pop()
			m.storeCell(ins.Arg.Offset, v)

		case wasm.I32Add:
			right, left := m.pop(), m.pop()
			m.push(left + right)

		case wasm.I32Sub:
			right, left := m.pop(), m.pop()
			m.push(left - right)

		case wasm.I32Mul:
			right, left := m.pop(), m.pop()
			m.push(left * right)

		case wasm.I32Eq:
			right, left := m.pop(), m.pop()
			m.push(boolToI32(left == right))

		case wasm.LocalGet:
			m.push(localAt(locals, uint32(ins.Local)))

		case wasm.Call:
			m.call(ins.Func, moduleFunctions, externFunctions)

		case wasm.Return:
			return controlFlowReturnSignal()

		case wasm.Branch:
			return controlFlowBranchSignal(uint32(ins.Label))

		case wasm.BranchIf:
			if m.pop() != 0 {
				return controlFlowBranchSignal(uint32(ins.Label))
			}

		case wasm.Block:
			result := m.Execute(ins.Body, moduleFunctions, externFunctions, locals)
			if result.IsReturn() {
				return result
			}
			if level, ok := result.BranchLevel(); ok {
				if level > 0 {
					return controlFlowBranchSignal(level - 1)
				}
				// Branch(0) completes this block; fall through to the
				// next instruction after it.
			}

		case wasm.Loop:
			for {
				result := m.Execute(ins.Body, moduleFunctions, externFunctions, locals)
				if result.IsReturn() {
					return result
				}
				if level, ok := result.BranchLevel(); ok {
					if level > 0 {
						return controlFlowBranchSignal(level - 1)
					}
					// Branch(0) re-enters the loop from the start.
					continue
				}
				// Falling off the end also re-enters the loop; only an
				// explicit Branch(k>0) or Return exits it.
				continue
			}

		case wasm.Unreachable:
			panic(ErrUnreachable)

		default:
			panic(ErrUnsupportedInstruction)
		}
	}

	return nil
}

// call dispatches a Call instruction's function index into either the
// module's own functions or, past that range, the host-supplied ones
// (spec.md §4.4, §4.5).
func (m *Machine) call(fi wasm.FuncIdx, moduleFunctions []ModuleFunction, externFunctions []ExternFunction) {
	idx := int(fi)

	if idx < len(moduleFunctions) {
		fn := moduleFunctions[idx]
		if fn.ParamCount < 0 {
			panic(ErrWrongNumberOfArgs)
		}
		args := m.popN(fn.ParamCount)
		// The callee's Return/Branch never escapes its own call frame:
		// a Call instruction is itself the structured boundary that
		// absorbs whatever control-flow result its body produces.
		_ = m.Execute(fn.Body, moduleFunctions, externFunctions, args)
		return
	}

	idx -= len(moduleFunctions)
	if idx < 0 || idx >= len(externFunctions) {
		panic(ErrInvalidFunctionIndex)
	}

	fn := externFunctions[idx]
	if fn.ParamCount < 0 {
		panic(ErrWrongNumberOfArgs)
	}
	args := m.popN(fn.ParamCount)
	if result := fn.Func(args); result != nil {
		m.push(*result)
	}
}

func boolToI32(b bool) int32 {
	if b {
		return 1
	}
	return 0
}
