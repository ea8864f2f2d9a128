package vm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wasmlet/wasmlet/wasm"
)

func TestRegistryRegisterAndLookup(t *testing.T) {
	r := NewRegistry()
	r.Register("env", "sub", ExternFunction{ParamCount: 2, Func: func(args []int32) *int32 {
		v := args[0] - args[1]
		return &v
	}})

	fn, ok := r.Lookup("env", "sub")
	require.True(t, ok)
	result := fn.Func([]int32{5, 3})
	require.NotNil(t, result)
	assert.Equal(t, int32(2), *result)

	_, ok = r.Lookup("env", "missing")
	assert.False(t, ok)
}

func TestRegistryExternFunctionsPreservesRegistrationOrder(t *testing.T) {
	r := NewRegistry()
	r.Register("env", "a", ExternFunction{ParamCount: 0})
	r.Register("env", "b", ExternFunction{ParamCount: 1})
	r.Register("env", "a", ExternFunction{ParamCount: 2}) // overwrite, keeps original position

	fns := r.ExternFunctions()
	require.Len(t, fns, 2)
	assert.Equal(t, 2, fns[0].ParamCount)
	assert.Equal(t, 1, fns[1].ParamCount)
}

func TestRegistryResolveImportsReportsMissingHostFunction(t *testing.T) {
	r := NewRegistry()
	imports := []wasm.Import{
		{Module: "env", Name: "log", Descriptor: wasm.ImportDescriptor{Kind: wasm.ImportKindFunc}},
	}
	err := r.ResolveImports(imports)
	require.Error(t, err)

	r.Register("env", "log", ExternFunction{ParamCount: 1})
	assert.NoError(t, r.ResolveImports(imports))
}

func TestRegistryResolveImportsIgnoresNonFuncImports(t *testing.T) {
	r := NewRegistry()
	imports := []wasm.Import{
		{Module: "env", Name: "memory", Descriptor: wasm.ImportDescriptor{Kind: wasm.ImportKindMemory}},
	}
	assert.NoError(t, r.ResolveImports(imports))
}
