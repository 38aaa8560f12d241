package capability

import (
	"fmt"
	"strings"

	"github.com/dop251/goja"

	"github.com/rhuss/codeinterp/pkg/frame"
	"github.com/rhuss/codeinterp/pkg/ndarray"
)

// module is a plain script object whose members are native functions.
type module map[string]any

func (m module) object(vm *goja.Runtime) goja.Value {
	obj := vm.NewObject()
	for k, v := range m {
		_ = obj.Set(k, v)
	}
	return obj
}

// throwError raises a script Error with the given name and message.
func throwError(vm *goja.Runtime, name, msg string) {
	panic(newError(vm, name, msg))
}

func newError(vm *goja.Runtime, name, msg string) *goja.Object {
	obj, err := vm.New(vm.Get("Error"), vm.ToValue(msg))
	if err != nil {
		panic(vm.NewGoError(fmt.Errorf("%s: %s", name, msg)))
	}
	if name != "" && name != "Error" {
		_ = obj.Set("name", name)
	}
	return obj
}

// check throws err into the script as a plain Error.
func check(vm *goja.Runtime, err error) {
	if err != nil {
		throwError(vm, "Error", err.Error())
	}
}

func present(v goja.Value) bool {
	return v != nil && !goja.IsUndefined(v) && !goja.IsNull(v)
}

// floatsArg converts a script array, typed array or ndarray to a flat
// float slice.
func floatsArg(vm *goja.Runtime, fn string, v goja.Value) []float64 {
	if !present(v) {
		panic(vm.NewTypeError("%s: expected an array of numbers", fn))
	}
	out, err := toFloats(v.Export())
	if err != nil {
		panic(vm.NewTypeError("%s: %v", fn, err))
	}
	return out
}

func toFloats(x any) ([]float64, error) {
	switch s := x.(type) {
	case *ndarray.Array:
		return s.Flat(), nil
	case []float64:
		return append([]float64(nil), s...), nil
	case []float32:
		return convert(s), nil
	case []int8:
		return convert(s), nil
	case []int16:
		return convert(s), nil
	case []int32:
		return convert(s), nil
	case []uint8:
		return convert(s), nil
	case []uint16:
		return convert(s), nil
	case []uint32:
		return convert(s), nil
	case []any:
		out := make([]float64, len(s))
		for i, it := range s {
			f, ok := frame.ToFloat(it)
			if !ok {
				return nil, fmt.Errorf("element %d is not a number", i)
			}
			out[i] = f
		}
		return out, nil
	default:
		return nil, fmt.Errorf("expected an array of numbers, got %T", x)
	}
}

func convert[T float32 | int8 | int16 | int32 | uint8 | uint16 | uint32](s []T) []float64 {
	out := make([]float64, len(s))
	for i, v := range s {
		out[i] = float64(v)
	}
	return out
}

// arrayArg converts a script value to an ndarray.
func arrayArg(vm *goja.Runtime, fn string, v goja.Value) *ndarray.Array {
	if !present(v) {
		panic(vm.NewTypeError("%s: expected an array", fn))
	}
	x := v.Export()
	if flat, err := toFloats(x); err == nil {
		if a, ok := x.(*ndarray.Array); ok {
			return a
		}
		if _, nested := x.([]any); !nested {
			a, _ := ndarray.New([]int{len(flat)}, flat)
			return a
		}
	}
	a, err := ndarray.FromValue(x)
	if err != nil {
		panic(vm.NewTypeError("%s: %v", fn, err))
	}
	return a
}

func intsArgs(vm *goja.Runtime, fn string, args []goja.Value) []int {
	// np.zeros([2, 3]) and np.zeros(2, 3) are both accepted.
	if len(args) == 1 {
		if obj, ok := args[0].(*goja.Object); ok && obj.ClassName() == "Array" {
			var shape []int
			if err := vm.ExportTo(obj, &shape); err != nil {
				panic(vm.NewTypeError("%s: shape must be integers", fn))
			}
			return shape
		}
	}
	shape := make([]int, len(args))
	for i, a := range args {
		shape[i] = int(a.ToInteger())
	}
	return shape
}

// display renders a value the way print shows it.
func display(vm *goja.Runtime, v goja.Value) string {
	switch {
	case v == nil || goja.IsUndefined(v):
		return "undefined"
	case goja.IsNull(v):
		return "null"
	}
	if obj, ok := v.(*goja.Object); ok {
		if _, callable := goja.AssertFunction(obj); callable {
			return "[Function]"
		}
		switch obj.ClassName() {
		case "Error", "Date", "RegExp":
			return obj.String()
		}
		if s, ok := obj.Export().(fmt.Stringer); ok {
			return s.String()
		}
		if s, ok := stringify(vm, obj); ok {
			return s
		}
	}
	return v.String()
}

func stringify(vm *goja.Runtime, v goja.Value) (s string, ok bool) {
	defer func() {
		if recover() != nil {
			ok = false
		}
	}()
	json := vm.Get("JSON").ToObject(vm)
	fn, callable := goja.AssertFunction(json.Get("stringify"))
	if !callable {
		return "", false
	}
	out, err := fn(json, v)
	if err != nil || !present(out) {
		return "", false
	}
	return out.String(), true
}

func joinArgs(vm *goja.Runtime, args []goja.Value) string {
	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = display(vm, a)
	}
	return strings.Join(parts, " ")
}

func parseJSON(vm *goja.Runtime, text string) (v goja.Value, ok bool) {
	defer func() {
		if recover() != nil {
			ok = false
		}
	}()
	json := vm.Get("JSON").ToObject(vm)
	fn, callable := goja.AssertFunction(json.Get("parse"))
	if !callable {
		return nil, false
	}
	out, err := fn(json, vm.ToValue(text))
	if err != nil {
		return nil, false
	}
	return out, true
}
