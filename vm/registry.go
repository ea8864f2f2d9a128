package vm

import (
	"fmt"

	"github.com/wasmlet/wasmlet/wasm"
)

// Registry maps a module's two-part import name ("module.field") to the
// host callback that satisfies it, adapted from the teacher's resolver
// switch in main.go into a reusable, driver-agnostic lookup table instead
// of a hardcoded set of cases.
type Registry struct {
	entries map[string]ExternFunction
	order   []string
}

// NewRegistry returns an empty Registry ready for Register calls.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]ExternFunction)}
}

func importKey(module, name string) string {
	return module + "." + name
}

// Register binds a host function under module.field. Registering the same
// pair twice replaces the earlier binding.
func (r *Registry) Register(module, name string, fn ExternFunction) {
	key := importKey(module, name)
	if _, exists := r.entries[key]; !exists {
		r.order = append(r.order, key)
	}
	r.entries[key] = fn
}

// Lookup resolves a module.field pair to its registered ExternFunction.
func (r *Registry) Lookup(module, name string) (ExternFunction, bool) {
	fn, ok := r.entries[importKey(module, name)]
	return fn, ok
}

// ExternFunctions returns the registered host functions in registration
// order, the ordering Call's extern-function index space is built from
// (spec.md §4.5: "len(module_functions) + position_in_extern_vector").
func (r *Registry) ExternFunctions() []ExternFunction {
	out := make([]ExternFunction, len(r.order))
	for i, key := range r.order {
		out[i] = r.entries[key]
	}
	return out
}

// ResolveImports checks that every Func-kind import a module declares has
// a matching registration, returning a descriptive error for the first
// one that doesn't (spec.md §4.5's host-function boundary is only
// well-formed once every func import is satisfiable).
func (r *Registry) ResolveImports(imports []wasm.Import) error {
	for _, imp := range imports {
		if imp.Descriptor.Kind != wasm.ImportKindFunc {
			continue
		}
		module, name := string(imp.Module), string(imp.Name)
		if _, ok := r.Lookup(module, name); !ok {
			return fmt.Errorf("vm: no host function registered for import %q", importKey(module, name))
		}
	}
	return nil
}
