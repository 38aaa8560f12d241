package capability

import (
	"github.com/dop251/goja"
)

// print writes its arguments to stdout separated by spaces, followed by a
// newline.
func bindPrint(e *env) goja.Value {
	return e.vm.ToValue(func(call goja.FunctionCall) goja.Value {
		e.ns.Stdout.WriteString(joinArgs(e.vm, call.Arguments) + "\n")
		return goja.Undefined()
	})
}

func bindConsole(e *env) goja.Value {
	out := func(call goja.FunctionCall) goja.Value {
		e.ns.Stdout.WriteString(joinArgs(e.vm, call.Arguments) + "\n")
		return goja.Undefined()
	}
	errOut := func(call goja.FunctionCall) goja.Value {
		e.ns.Stderr.WriteString(joinArgs(e.vm, call.Arguments) + "\n")
		return goja.Undefined()
	}
	return module{
		"log":   out,
		"info":  out,
		"debug": out,
		"warn":  errOut,
		"error": errOut,
	}.object(e.vm)
}
