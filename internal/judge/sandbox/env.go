package sandbox

import (
	"math/big"
	"sort"
	"strconv"
	"time"

	"codearena/internal/judge/canonical"
	appErr "codearena/pkg/errors"

	"github.com/dop251/goja"
)

// maxExportItems bounds the number of array elements or object keys visited
// while converting a result into host values.
const maxExportItems = 1 << 20

// Env is the view of a live sandbox handed to a Body.
type Env struct {
	vm       *goja.Runtime
	registry *Registry
}

// Registry returns the callables registered by the module.
func (e *Env) Registry() *Registry { return e.registry }

// Eval evaluates src as a script inside the sandbox.
func (e *Env) Eval(name, src string) (goja.Value, error) {
	v, err := e.vm.RunScript(name, src)
	if err != nil {
		return nil, classify(err)
	}
	return v, nil
}

// Call invokes fn with an undefined receiver.
func (e *Env) Call(fn goja.Callable, args ...goja.Value) (goja.Value, error) {
	v, err := fn(goja.Undefined(), args...)
	if err != nil {
		return nil, classify(err)
	}
	return v, nil
}

// Export converts a sandbox value into host values understood by the
// canonical package. Functions and symbols become canonical.Undefined,
// Dates become ISO-8601 strings. A cyclic structure, or one nested deeper
// than canonical.MaxDepth, is a SerializationError.
func (e *Env) Export(v goja.Value) (any, error) {
	x := &exporter{onPath: make(map[*goja.Object]struct{})}
	return x.export(v)
}

type exporter struct {
	onPath map[*goja.Object]struct{}
	depth  int
}

func (x *exporter) export(v goja.Value) (any, error) {
	if v == nil || goja.IsUndefined(v) {
		return canonical.Undefined, nil
	}
	if goja.IsNull(v) {
		return nil, nil
	}
	obj, ok := v.(*goja.Object)
	if !ok {
		return exportPrimitive(v.Export()), nil
	}
	if _, isFunc := goja.AssertFunction(obj); isFunc {
		return canonical.Undefined, nil
	}
	if _, seen := x.onPath[obj]; seen {
		return nil, appErr.New(appErr.SerializationError).WithMessage("result contains a cycle")
	}

	switch obj.ClassName() {
	case "Date":
		if t, ok := obj.Export().(time.Time); ok {
			return t.UTC().Format("2006-01-02T15:04:05.000Z"), nil
		}
		return nil, nil
	case "Number", "String", "Boolean", "BigInt":
		return exportPrimitive(obj.Export()), nil
	}

	if x.depth >= canonical.MaxDepth {
		return nil, canonical.DepthError()
	}
	x.depth++
	x.onPath[obj] = struct{}{}
	defer func() {
		delete(x.onPath, obj)
		x.depth--
	}()

	if obj.ClassName() == "Array" {
		n := obj.Get("length").ToInteger()
		if n > maxExportItems {
			return nil, appErr.Newf(appErr.SerializationError, "array of %d elements is too large", n)
		}
		out := make([]any, n)
		for i := int64(0); i < n; i++ {
			item, err := x.export(obj.Get(strconv.FormatInt(i, 10)))
			if err != nil {
				return nil, err
			}
			out[i] = item
		}
		return out, nil
	}

	keys := obj.Keys()
	if len(keys) > maxExportItems {
		return nil, appErr.Newf(appErr.SerializationError, "object with %d keys is too large", len(keys))
	}
	out := make(map[string]any, len(keys))
	for _, k := range keys {
		item, err := x.export(obj.Get(k))
		if err != nil {
			return nil, err
		}
		out[k] = item
	}
	return out, nil
}

func exportPrimitive(v any) any {
	switch p := v.(type) {
	case nil:
		return nil
	case bool, string, int64, float64:
		return p
	case *big.Int:
		return p
	default:
		return canonical.Undefined
	}
}

// Registry maps entry point names to callables defined by a module.
type Registry struct {
	entries map[string]goja.Callable
}

// Lookup returns the callable registered under name.
func (r *Registry) Lookup(name string) (goja.Callable, bool) {
	if r == nil {
		return nil, false
	}
	fn, ok := r.entries[name]
	return fn, ok
}

// Names returns the registered names in sorted order.
func (r *Registry) Names() []string {
	if r == nil {
		return nil
	}
	names := make([]string, 0, len(r.entries))
	for name := range r.entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of registered callables.
func (r *Registry) Len() int {
	if r == nil {
		return 0
	}
	return len(r.entries)
}

// buildRegistry resolves every top-level declaration plus any global the
// script created by assignment, keeping those whose value is callable.
func buildRegistry(vm *goja.Runtime, m *Module) *Registry {
	reg := &Registry{entries: make(map[string]goja.Callable)}
	add := func(name string, v goja.Value) {
		if v == nil {
			return
		}
		if fn, ok := goja.AssertFunction(v); ok {
			reg.entries[name] = fn
		}
	}

	for _, name := range m.declared {
		if v := vm.Get(name); v != nil {
			add(name, v)
			continue
		}
		// let, const and class bindings live in the global lexical scope,
		// not on the global object.
		if v, err := vm.RunString(name); err == nil {
			add(name, v)
		}
	}
	for _, name := range vm.GlobalObject().Keys() {
		if name == "console" {
			continue
		}
		if _, ok := reg.entries[name]; ok {
			continue
		}
		add(name, vm.Get(name))
	}
	return reg
}
