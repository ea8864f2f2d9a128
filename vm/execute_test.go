package vm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wasmlet/wasmlet/wasm"
)

func TestExecuteConstAdd(t *testing.T) {
	m := NewMachine()
	body := []wasm.Instruction{
		wasm.I32Const{Value: 1},
		wasm.I32Const{Value: 2},
		wasm.I32Add{},
	}
	result := m.Execute(body, nil, nil, nil)
	assert.Nil(t, result)
	assert.Equal(t, []int32{3}, m.Stack())
}

func TestExecuteConstSub(t *testing.T) {
	m := NewMachine()
	body := []wasm.Instruction{
		wasm.I32Const{Value: 5},
		wasm.I32Const{Value: 3},
		wasm.I32Sub{},
	}
	m.Execute(body, nil, nil, nil)
	assert.Equal(t, []int32{2}, m.Stack())
}

func TestExecuteEqChaining(t *testing.T) {
	m := NewMachine()
	body := []wasm.Instruction{
		wasm.I32Const{Value: 2},
		wasm.I32Const{Value: 3},
		wasm.I32Eq{},
		wasm.I32Const{Value: 3},
		wasm.I32Const{Value: 3},
		wasm.I32Eq{},
	}
	m.Execute(body, nil, nil, nil)
	assert.Equal(t, []int32{0, 1}, m.Stack())
}

func TestExecuteBlockBranchZeroCompletesBlock(t *testing.T) {
	m := NewMachine()
	body := []wasm.Instruction{
		wasm.I32Const{Value: 42},
		wasm.Block{Body: []wasm.Instruction{
			wasm.Branch{Label: 0},
			wasm.I32Const{Value: 43},
			wasm.I32Const{Value: 44},
		}},
		wasm.I32Const{Value: 45},
	}
	m.Execute(body, nil, nil, nil)
	assert.Equal(t, []int32{42, 45}, m.Stack())
}

func TestExecuteBlockBranchOnePropagates(t *testing.T) {
	m := NewMachine()
	body := []wasm.Instruction{
		wasm.I32Const{Value: 42},
		wasm.Block{Body: []wasm.Instruction{
			wasm.Branch{Label: 1},
			wasm.I32Const{Value: 43},
			wasm.I32Const{Value: 44},
		}},
		wasm.I32Const{Value: 45},
	}
	result := m.Execute(body, nil, nil, nil)
	level, ok := result.BranchLevel()
	require.True(t, ok)
	assert.Equal(t, uint32(0), level)
	assert.Equal(t, []int32{42}, m.Stack())
}

func TestExecuteLoopCountsToFour(t *testing.T) {
	m := NewMachine()
	body := []wasm.Instruction{
		wasm.I32Const{Value: 0},
		wasm.I32Store{Arg: wasm.MemArg{Offset: 0}},
		wasm.Loop{Body: []wasm.Instruction{
			wasm.I32Load{Arg: wasm.MemArg{Offset: 0}},
			wasm.I32Const{Value: 4},
			wasm.I32Eq{},
			wasm.BranchIf{Label: 1},
			wasm.I32Const{Value: 42},
			wasm.I32Load{Arg: wasm.MemArg{Offset: 0}},
			wasm.I32Const{Value: 1},
			wasm.I32Add{},
			wasm.I32Store{Arg: wasm.MemArg{Offset: 0}},
		}},
	}
	result := m.Execute(body, nil, nil, nil)
	// BranchIf 1 exits the loop and unwinds one level past it.
	level, ok := result.BranchLevel()
	require.True(t, ok)
	assert.Equal(t, uint32(0), level)
	assert.Equal(t, []int32{42, 42, 42, 42}, m.Stack())
	assert.Equal(t, int32(4), m.Memory()[0])
}

func TestExecuteCallModuleFunction(t *testing.T) {
	m := NewMachine()
	moduleFunctions := []ModuleFunction{
		{
			ParamCount: 2,
			Body: []wasm.Instruction{
				wasm.LocalGet{Local: 0},
				wasm.LocalGet{Local: 1},
				wasm.I32Sub{},
			},
		},
	}
	body := []wasm.Instruction{
		wasm.I32Const{Value: 5},
		wasm.I32Const{Value: 3},
		wasm.Call{Func: 0},
	}
	m.Execute(body, moduleFunctions, nil, nil)
	assert.Equal(t, []int32{2}, m.Stack())
}

func TestExecuteCallExternFunction(t *testing.T) {
	m := NewMachine()
	externFunctions := []ExternFunction{
		{
			ParamCount: 2,
			Func: func(args []int32) *int32 {
				v := args[0] - args[1]
				return &v
			},
		},
	}
	body := []wasm.Instruction{
		wasm.I32Const{Value: 5},
		wasm.I32Const{Value: 3},
		wasm.Call{Func: 0},
	}
	m.Execute(body, nil, externFunctions, nil)
	assert.Equal(t, []int32{2}, m.Stack())
}

func TestExecuteEmptyBodyIsNoop(t *testing.T) {
	m := NewMachine()
	result := m.Execute(nil, nil, nil, nil)
	assert.Nil(t, result)
	assert.Empty(t, m.Stack())
	assert.Equal(t, [10]int32{}, m.Memory())
}

func TestExecuteReturnOnlyBody(t *testing.T) {
	m := NewMachine()
	result := m.Execute([]wasm.Instruction{wasm.Return{}}, nil, nil, nil)
	assert.True(t, result.IsReturn())
	assert.Empty(t, m.Stack())
}

func TestExecuteBranchIfZeroIsNoop(t *testing.T) {
	m := NewMachine()
	result := m.Execute([]wasm.Instruction{
		wasm.I32Const{Value: 0},
		wasm.BranchIf{Label: 0},
		wasm.I32Const{Value: 7},
	}, nil, nil, nil)
	assert.Nil(t, result)
	assert.Equal(t, []int32{7}, m.Stack())
}

func TestExecuteBranchIfNonZeroBranches(t *testing.T) {
	m := NewMachine()
	result := m.Execute([]wasm.Instruction{
		wasm.I32Const{Value: 1},
		wasm.BranchIf{Label: 2},
		wasm.I32Const{Value: 7},
	}, nil, nil, nil)
	level, ok := result.BranchLevel()
	require.True(t, ok)
	assert.Equal(t, uint32(2), level)
	assert.Empty(t, m.Stack())
}

func TestExecuteStackUnderflowPanics(t *testing.T) {
	m := NewMachine()
	assert.PanicsWithValue(t, ErrStackUnderflow, func() {
		m.Execute([]wasm.Instruction{wasm.I32Add{}}, nil, nil, nil)
	})
}

func TestExecuteInvalidLocalIndexPanics(t *testing.T) {
	m := NewMachine()
	assert.PanicsWithValue(t, ErrInvalidLocalIndex, func() {
		m.Execute([]wasm.Instruction{wasm.LocalGet{Local: 3}}, nil, nil, []int32{1, 2})
	})
}

func TestExecuteInvalidMemoryIndexPanics(t *testing.T) {
	m := NewMachine()
	assert.PanicsWithValue(t, ErrInvalidMemoryIndex, func() {
		m.Execute([]wasm.Instruction{wasm.I32Load{Arg: wasm.MemArg{Offset: 999}}}, nil, nil, nil)
	})
}

func TestExecuteInvalidFunctionIndexPanics(t *testing.T) {
	m := NewMachine()
	assert.PanicsWithValue(t, ErrInvalidFunctionIndex, func() {
		m.Execute([]wasm.Instruction{wasm.Call{Func: 5}}, nil, nil, nil)
	})
}

func TestExecuteNegativeParamCountPanics(t *testing.T) {
	m := NewMachine()
	moduleFunctions := []ModuleFunction{{ParamCount: -1, Body: nil}}
	assert.PanicsWithValue(t, ErrWrongNumberOfArgs, func() {
		m.Execute([]wasm.Instruction{wasm.Call{Func: 0}}, moduleFunctions, nil, nil)
	})
}

func TestExecuteUnsupportedInstructionPanics(t *testing.T) {
	m := NewMachine()
	assert.PanicsWithValue(t, ErrUnsupportedInstruction, func() {
		m.Execute([]wasm.Instruction{wasm.GlobalGet{Global: 0}}, nil, nil, nil)
	})
}

func TestExecuteUnreachablePanics(t *testing.T) {
	m := NewMachine()
	assert.PanicsWithValue(t, ErrUnreachable, func() {
		m.Execute([]wasm.Instruction{wasm.Unreachable{}}, nil, nil, nil)
	})
}

func TestExecuteCallDecreasesCallerStackByParamCount(t *testing.T) {
	m := NewMachine()
	moduleFunctions := []ModuleFunction{
		{ParamCount: 2, Body: []wasm.Instruction{wasm.Return{}}},
	}
	body := []wasm.Instruction{
		wasm.I32Const{Value: 9},
		wasm.I32Const{Value: 1},
		wasm.I32Const{Value: 2},
		wasm.Call{Func: 0},
	}
	m.Execute(body, moduleFunctions, nil, nil)
	assert.Equal(t, []int32{9}, m.Stack())
}
