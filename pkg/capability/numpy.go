package capability

import (
	"math"

	"github.com/dop251/goja"

	"github.com/rhuss/codeinterp/pkg/ndarray"
)

// bindNumpy exposes n-dimensional arrays. Arrays are host objects; their
// own methods (reshape, add, sum, ...) are reachable from scripts too.
func bindNumpy(e *env) goja.Value {
	vm := e.vm
	arr := func(v *ndarray.Array) goja.Value { return vm.ToValue(v) }

	elementwise := func(name string, fn func(float64) float64) func(goja.FunctionCall) goja.Value {
		return func(call goja.FunctionCall) goja.Value {
			x := call.Argument(0)
			if _, isObj := x.(*goja.Object); !isObj && present(x) {
				return vm.ToValue(fn(x.ToFloat()))
			}
			return arr(arrayArg(vm, "np."+name, x).Apply(fn))
		}
	}
	reduce := func(name string, fn func(*ndarray.Array) float64) func(goja.FunctionCall) goja.Value {
		return func(call goja.FunctionCall) goja.Value {
			return vm.ToValue(fn(arrayArg(vm, "np."+name, call.Argument(0))))
		}
	}
	binary := func(name string, fn func(a *ndarray.Array, other any) (*ndarray.Array, error)) func(goja.FunctionCall) goja.Value {
		return func(call goja.FunctionCall) goja.Value {
			a := arrayArg(vm, "np."+name, call.Argument(0))
			out, err := fn(a, call.Argument(1).Export())
			check(vm, err)
			return arr(out)
		}
	}

	return module{
		"pi": math.Pi,
		"e":  math.E,
		"array": func(call goja.FunctionCall) goja.Value {
			return arr(arrayArg(vm, "np.array", call.Argument(0)).Copy())
		},
		"zeros": func(call goja.FunctionCall) goja.Value {
			return arr(ndarray.Zeros(intsArgs(vm, "np.zeros", call.Arguments)...))
		},
		"ones": func(call goja.FunctionCall) goja.Value {
			return arr(ndarray.Ones(intsArgs(vm, "np.ones", call.Arguments)...))
		},
		"arange": func(call goja.FunctionCall) goja.Value {
			start, stop, step := 0.0, 0.0, 1.0
			switch len(call.Arguments) {
			case 0:
				panic(vm.NewTypeError("np.arange: expected at least one argument"))
			case 1:
				stop = call.Argument(0).ToFloat()
			default:
				start, stop = call.Argument(0).ToFloat(), call.Argument(1).ToFloat()
				if present(call.Argument(2)) {
					step = call.Argument(2).ToFloat()
				}
			}
			out, err := ndarray.Arange(start, stop, step)
			check(vm, err)
			return arr(out)
		},
		"linspace": func(call goja.FunctionCall) goja.Value {
			n := 50
			if present(call.Argument(2)) {
				n = int(call.Argument(2).ToInteger())
			}
			return arr(ndarray.Linspace(call.Argument(0).ToFloat(), call.Argument(1).ToFloat(), n))
		},
		"reshape": func(call goja.FunctionCall) goja.Value {
			a := arrayArg(vm, "np.reshape", call.Argument(0))
			out, err := a.Reshape(intsArgs(vm, "np.reshape", call.Arguments[1:])...)
			check(vm, err)
			return arr(out)
		},
		"transpose": func(call goja.FunctionCall) goja.Value {
			return arr(arrayArg(vm, "np.transpose", call.Argument(0)).T())
		},
		"dot": func(call goja.FunctionCall) goja.Value {
			out, err := ndarray.Dot(arrayArg(vm, "np.dot", call.Argument(0)), arrayArg(vm, "np.dot", call.Argument(1)))
			check(vm, err)
			if out.Size() == 1 && out.Ndim() == 0 {
				return vm.ToValue(out.Flat()[0])
			}
			return arr(out)
		},
		"inv": func(call goja.FunctionCall) goja.Value {
			out, err := ndarray.Inv(arrayArg(vm, "np.inv", call.Argument(0)))
			check(vm, err)
			return arr(out)
		},
		"add":      binary("add", (*ndarray.Array).Add),
		"subtract": binary("subtract", (*ndarray.Array).Sub),
		"multiply": binary("multiply", (*ndarray.Array).Mul),
		"divide":   binary("divide", (*ndarray.Array).Div),
		"sum":      reduce("sum", (*ndarray.Array).Sum),
		"mean":     reduce("mean", (*ndarray.Array).Mean),
		"std":      reduce("std", (*ndarray.Array).Std),
		"min":      reduce("min", (*ndarray.Array).Min),
		"max":      reduce("max", (*ndarray.Array).Max),
		"sqrt":     elementwise("sqrt", math.Sqrt),
		"exp":      elementwise("exp", math.Exp),
		"log":      elementwise("log", math.Log),
		"abs":      elementwise("abs", math.Abs),
		"sin":      elementwise("sin", math.Sin),
		"cos":      elementwise("cos", math.Cos),
		"round":    elementwise("round", math.Round),
	}.object(vm)
}
