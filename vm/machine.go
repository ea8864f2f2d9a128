package vm

import "go.uber.org/zap"

// memorySize is the fixed cell count of the core's linear memory (spec.md
// §4.4). Growth is out of scope; a Machine's memory never resizes.
const memorySize = 10

// Machine owns the operand stack and linear memory for one call chain
// (spec.md §4.4). It is never safe to share across concurrent Execute
// invocations — the stack and memory are mutated in place as a single
// sequential execution unwinds through nested calls.
type Machine struct {
	stack  []int32
	memory [memorySize]int32

	debugging bool
	logger    *zap.SugaredLogger
}

// NewMachine constructs a Machine with an empty stack and zero-initialised
// memory.
func NewMachine() *Machine {
	return &Machine{}
}

// NewDebugMachine constructs a Machine that logs every instruction it
// executes through logger, adapted from the teacher's verbose trace
// println calls but routed through a real structured logger instead of
// stdout.
func NewDebugMachine(logger *zap.SugaredLogger) *Machine {
	return &Machine{debugging: true, logger: logger}
}

// Stack returns the current operand stack, topmost entry last. Exposed for
// tests and drivers that need to assert on the final state of a run.
func (m *Machine) Stack() []int32 {
	return m.stack
}

// Memory returns the linear memory's current contents. Exposed for drivers
// that seed or inspect memory around a call.
func (m *Machine) Memory() [memorySize]int32 {
	return m.memory
}

// SetMemory overwrites one memory cell, used by drivers to seed state
// before a run (spec.md §6).
func (m *Machine) SetMemory(cell int, value int32) {
	if cell < 0 || cell >= memorySize {
		panic(ErrInvalidMemoryIndex)
	}
	m.memory[cell] = value
}

func (m *Machine) push(v int32) {
	m.stack = append(m.stack, v)
}

func (m *Machine) pop() int32 {
	if len(m.stack) == 0 {
		panic(ErrStackUnderflow)
	}
	v := m.stack[len(m.stack)-1]
	m.stack = m.stack[:len(m.stack)-1]
	return v
}

// popN pops n values off the stack and returns them in original push
// order (oldest first), not stack (LIFO) order — the representation both
// Call's callee-locals contract and the host-function contract need
// (spec.md §4.4, §4.5).
func (m *Machine) popN(n int) []int32 {
	if len(m.stack) < n {
		panic(ErrStackUnderflow)
	}
	args := make([]int32, n)
	copy(args, m.stack[len(m.stack)-n:])
	m.stack = m.stack[:len(m.stack)-n]
	return args
}

func (m *Machine) loadCell(addr uint32) int32 {
	if addr >= memorySize {
		panic(ErrInvalidMemoryIndex)
	}
	return m.memory[addr]
}

func (m *Machine) storeCell(addr uint32, v int32) {
	if addr >= memorySize {
		panic(ErrInvalidMemoryIndex)
	}
	m.memory[addr] = v
}

func localAt(locals []int32, i uint32) int32 {
	if int(i) >= len(locals) {
		panic(ErrInvalidLocalIndex)
	}
	return locals[i]
}

func (m *Machine) trace(what string, args ...interface{}) {
	if m.debugging && m.logger != nil {
		m.logger.Debugw(what, args...)
	}
}
