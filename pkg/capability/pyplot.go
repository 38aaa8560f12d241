package capability

import (
	"github.com/dop251/goja"

	"github.com/rhuss/codeinterp/pkg/figure"
	"github.com/rhuss/codeinterp/pkg/frame"
)

// bindPyplot exposes the submission's drawing context. Everything drawn is
// captured as an image after a successful run.
func bindPyplot(e *env) goja.Value {
	vm := e.vm
	fc := e.ns.Figures

	add := func(name string, s figure.Series) {
		if err := fc.Current().Add(s); err != nil {
			panic(vm.NewTypeError("plt.%s: %v", name, err))
		}
	}
	// (y), (x, y), (x, y, label) and (x, y, {label}) are accepted.
	xy := func(name string, call goja.FunctionCall) ([]float64, []float64, string) {
		args := call.Arguments
		if len(args) == 0 {
			panic(vm.NewTypeError("plt.%s: expected data", name))
		}
		if len(args) == 1 || !isSeries(call.Argument(1)) {
			y := floatsArg(vm, "plt."+name, args[0])
			x := make([]float64, len(y))
			for i := range x {
				x[i] = float64(i)
			}
			return x, y, labelArg(call.Argument(1))
		}
		return floatsArg(vm, "plt."+name, args[0]), floatsArg(vm, "plt."+name, args[1]), labelArg(call.Argument(2))
	}
	text := func(set func(*figure.Figure, string)) func(goja.FunctionCall) goja.Value {
		return func(call goja.FunctionCall) goja.Value {
			set(fc.Current(), call.Argument(0).String())
			return goja.Undefined()
		}
	}

	return module{
		"figure": func(goja.FunctionCall) goja.Value {
			return vm.ToValue(fc.NewFigure().Num())
		},
		"plot": func(call goja.FunctionCall) goja.Value {
			x, y, label := xy("plot", call)
			add("plot", figure.Series{Kind: figure.Line, X: x, Y: y, Label: label})
			return goja.Undefined()
		},
		"scatter": func(call goja.FunctionCall) goja.Value {
			x, y, label := xy("scatter", call)
			add("scatter", figure.Series{Kind: figure.Scatter, X: x, Y: y, Label: label})
			return goja.Undefined()
		},
		"bar": func(call goja.FunctionCall) goja.Value {
			if len(call.Arguments) < 2 {
				panic(vm.NewTypeError("plt.bar: expected labels and heights"))
			}
			var labels []string
			for _, v := range cellsOf(vm, call.Argument(0)) {
				labels = append(labels, frame.FormatCell(v))
			}
			y := floatsArg(vm, "plt.bar", call.Argument(1))
			add("bar", figure.Series{Kind: figure.Bar, Y: y, Labels: labels, Label: labelArg(call.Argument(2))})
			return goja.Undefined()
		},
		"hist": func(call goja.FunctionCall) goja.Value {
			var binsArg goja.Value
			label := ""
			if v := call.Argument(1); present(v) && !isObject(v) {
				binsArg = v
			} else if obj, ok := v.(*goja.Object); ok {
				binsArg = obj.Get("bins")
				label = labelArg(obj)
			}
			bins := 10
			if present(binsArg) {
				n := binsArg.ToInteger()
				if n <= 0 {
					panic(vm.NewTypeError("plt.hist: bins must be a positive integer, got %s", binsArg.String()))
				}
				bins = int(min(n, figure.MaxBins))
			}
			y := floatsArg(vm, "plt.hist", call.Argument(0))
			add("hist", figure.Series{Kind: figure.Hist, Y: y, Bins: bins, Label: label})
			return goja.Undefined()
		},
		"title":  text((*figure.Figure).SetTitle),
		"xlabel": text((*figure.Figure).SetXLabel),
		"ylabel": text((*figure.Figure).SetYLabel),
		"legend": func(goja.FunctionCall) goja.Value {
			fc.Current().ShowLegend()
			return goja.Undefined()
		},
		"close": func(call goja.FunctionCall) goja.Value {
			if s := call.Argument(0); present(s) && s.String() == "all" {
				fc.CloseAll()
			} else {
				fc.Close()
			}
			return goja.Undefined()
		},
		// Figures are captured after the run; show is accepted and ignored.
		"show": func(goja.FunctionCall) goja.Value { return goja.Undefined() },
	}.object(vm)
}

func isObject(v goja.Value) bool {
	_, ok := v.(*goja.Object)
	return ok
}

// isSeries reports whether v looks like plottable data rather than options.
func isSeries(v goja.Value) bool {
	obj, ok := v.(*goja.Object)
	if !ok {
		return false
	}
	if obj.ClassName() == "Array" || obj.ClassName() == "Float64Array" {
		return true
	}
	_, err := toFloats(obj.Export())
	return err == nil
}

// labelArg reads a legend label from a string or an options object.
func labelArg(v goja.Value) string {
	if !present(v) {
		return ""
	}
	if obj, ok := v.(*goja.Object); ok {
		if l := obj.Get("label"); present(l) {
			return l.String()
		}
		return ""
	}
	return v.String()
}

