package vm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/wasmlet/wasmlet/wasm"
)

func TestNewMachineStartsEmpty(t *testing.T) {
	m := NewMachine()
	assert.Empty(t, m.Stack())
	assert.Equal(t, [10]int32{}, m.Memory())
}

func TestSetMemorySeedsACell(t *testing.T) {
	m := NewMachine()
	m.SetMemory(3, 99)
	assert.Equal(t, int32(99), m.Memory()[3])
}

func TestSetMemoryOutOfRangePanics(t *testing.T) {
	m := NewMachine()
	assert.PanicsWithValue(t, ErrInvalidMemoryIndex, func() {
		m.SetMemory(memorySize, 1)
	})
}

func TestDebugMachineTracesWithoutPanicking(t *testing.T) {
	logger := zap.NewNop().Sugar()
	m := NewDebugMachine(logger)
	result := m.Execute([]wasm.Instruction{wasm.I32Const{Value: 1}}, nil, nil, nil)
	assert.Nil(t, result)
	assert.Equal(t, []int32{1}, m.Stack())
}
