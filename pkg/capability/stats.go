package capability

import (
	"math"
	"sort"

	"github.com/dop251/goja"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// bindStats exposes descriptive statistics over numeric arrays.
func bindStats(e *env) goja.Value {
	vm := e.vm
	unary := func(name string, fn func([]float64) float64) func(goja.FunctionCall) goja.Value {
		return func(call goja.FunctionCall) goja.Value {
			xs := floatsArg(vm, "stats."+name, call.Argument(0))
			if len(xs) == 0 {
				return vm.ToValue(math.NaN())
			}
			return vm.ToValue(fn(xs))
		}
	}
	pair := func(name string, fn func(x, y []float64) float64) func(goja.FunctionCall) goja.Value {
		return func(call goja.FunctionCall) goja.Value {
			x := floatsArg(vm, "stats."+name, call.Argument(0))
			y := floatsArg(vm, "stats."+name, call.Argument(1))
			if len(x) != len(y) {
				panic(vm.NewTypeError("stats.%s: inputs differ in length (%d and %d)", name, len(x), len(y)))
			}
			if len(x) < 2 {
				return vm.ToValue(math.NaN())
			}
			return vm.ToValue(fn(x, y))
		}
	}

	return module{
		"sum":      unary("sum", floats.Sum),
		"min":      unary("min", floats.Min),
		"max":      unary("max", floats.Max),
		"mean":     unary("mean", func(xs []float64) float64 { return stat.Mean(xs, nil) }),
		"median":   unary("median", median),
		"variance": unary("variance", func(xs []float64) float64 { return stat.Variance(xs, nil) }),
		"std":      unary("std", func(xs []float64) float64 { return stat.StdDev(xs, nil) }),
		"skew":     unary("skew", func(xs []float64) float64 { return stat.Skew(xs, nil) }),
		"quantile": func(call goja.FunctionCall) goja.Value {
			xs := floatsArg(vm, "stats.quantile", call.Argument(0))
			p := call.Argument(1).ToFloat()
			if p < 0 || p > 1 || math.IsNaN(p) {
				panic(vm.NewTypeError("stats.quantile: p must be in [0, 1]"))
			}
			if len(xs) == 0 {
				return vm.ToValue(math.NaN())
			}
			return vm.ToValue(quantile(xs, p))
		},
		"correlation": pair("correlation", func(x, y []float64) float64 { return stat.Correlation(x, y, nil) }),
		"covariance":  pair("covariance", func(x, y []float64) float64 { return stat.Covariance(x, y, nil) }),
		"linregress": func(call goja.FunctionCall) goja.Value {
			x := floatsArg(vm, "stats.linregress", call.Argument(0))
			y := floatsArg(vm, "stats.linregress", call.Argument(1))
			if len(x) != len(y) || len(x) < 2 {
				panic(vm.NewTypeError("stats.linregress: need two equally long arrays of at least 2 points"))
			}
			alpha, beta := stat.LinearRegression(x, y, nil, false)
			obj := vm.NewObject()
			_ = obj.Set("intercept", alpha)
			_ = obj.Set("slope", beta)
			_ = obj.Set("r2", stat.RSquared(x, y, nil, alpha, beta))
			return obj
		},
		"describe": func(call goja.FunctionCall) goja.Value {
			xs := floatsArg(vm, "stats.describe", call.Argument(0))
			obj := vm.NewObject()
			_ = obj.Set("count", len(xs))
			if len(xs) == 0 {
				return obj
			}
			mean, std := stat.MeanStdDev(xs, nil)
			_ = obj.Set("mean", mean)
			_ = obj.Set("std", std)
			_ = obj.Set("min", floats.Min(xs))
			_ = obj.Set("25%", quantile(xs, 0.25))
			_ = obj.Set("50%", median(xs))
			_ = obj.Set("75%", quantile(xs, 0.75))
			_ = obj.Set("max", floats.Max(xs))
			return obj
		},
	}.object(vm)
}

// quantile returns the p-quantile of xs, interpolating linearly along the
// empirical CDF. xs must be non-empty and p within [0, 1].
func quantile(xs []float64, p float64) float64 {
	return stat.Quantile(p, stat.LinInterp, sorted(xs), nil)
}

// median returns the middle value of xs, or the mean of the two middle
// values when len(xs) is even.
func median(xs []float64) float64 {
	s := sorted(xs)
	n := len(s)
	if n%2 == 1 {
		return s[n/2]
	}
	return stat.Mean(s[n/2-1:n/2+1], nil)
}

func sorted(xs []float64) []float64 {
	s := append([]float64(nil), xs...)
	sort.Float64s(s)
	return s
}
