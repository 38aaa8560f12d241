package capability

import (
	"time"

	"github.com/dop251/goja"
)

// layouts tried by datetime.parse when no layout is given.
var layouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	time.DateOnly,
	time.RFC1123,
}

// bindDatetime exposes wall-clock time and duration arithmetic. Instants are
// exchanged as RFC 3339 strings; layouts use Go reference-time notation.
func bindDatetime(e *env) goja.Value {
	vm := e.vm
	iso := func(t time.Time) goja.Value { return vm.ToValue(t.Format(time.RFC3339Nano)) }
	parse := func(fn string, v goja.Value, layout string) time.Time {
		s := v.String()
		if layout != "" {
			t, err := time.Parse(layout, s)
			if err != nil {
				panic(vm.NewTypeError("%s: %v", fn, err))
			}
			return t
		}
		for _, l := range layouts {
			if t, err := time.Parse(l, s); err == nil {
				return t
			}
		}
		panic(vm.NewTypeError("%s: unrecognised time %q", fn, s))
	}
	layoutArg := func(v goja.Value) string {
		if present(v) {
			return v.String()
		}
		return ""
	}

	return module{
		"now": func(goja.FunctionCall) goja.Value {
			return iso(e.b.now())
		},
		"utcnow": func(goja.FunctionCall) goja.Value {
			return iso(e.b.now().UTC())
		},
		"parse": func(call goja.FunctionCall) goja.Value {
			return iso(parse("datetime.parse", call.Argument(0), layoutArg(call.Argument(1))))
		},
		"format": func(call goja.FunctionCall) goja.Value {
			t := parse("datetime.format", call.Argument(0), "")
			layout := layoutArg(call.Argument(1))
			if layout == "" {
				layout = time.RFC3339
			}
			return vm.ToValue(t.Format(layout))
		},
		"add": func(call goja.FunctionCall) goja.Value {
			t := parse("datetime.add", call.Argument(0), "")
			d, err := time.ParseDuration(call.Argument(1).String())
			if err != nil {
				panic(vm.NewTypeError("datetime.add: %v", err))
			}
			return iso(t.Add(d))
		},
		"addDays": func(call goja.FunctionCall) goja.Value {
			t := parse("datetime.addDays", call.Argument(0), "")
			return iso(t.AddDate(0, 0, int(call.Argument(1).ToInteger())))
		},
		"diff": func(call goja.FunctionCall) goja.Value {
			a := parse("datetime.diff", call.Argument(0), "")
			b := parse("datetime.diff", call.Argument(1), "")
			return vm.ToValue(a.Sub(b).Seconds())
		},
		"weekday": func(call goja.FunctionCall) goja.Value {
			return vm.ToValue(parse("datetime.weekday", call.Argument(0), "").Weekday().String())
		},
		"timestamp": func(call goja.FunctionCall) goja.Value {
			return vm.ToValue(float64(parse("datetime.timestamp", call.Argument(0), "").UnixMilli()) / 1000)
		},
	}.object(vm)
}
