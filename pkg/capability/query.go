package capability

import (
	"errors"

	"github.com/dop251/goja"

	"github.com/rhuss/codeinterp/pkg/warehouse"
)

// bindQuery wraps the bound query function. Failures are thrown as a
// QueryError carrying the upstream status when there is one.
func bindQuery(e *env, query warehouse.QueryFunc) goja.Value {
	vm := e.vm
	return vm.ToValue(func(call goja.FunctionCall) goja.Value {
		sql := call.Argument(0)
		if !present(sql) {
			panic(vm.NewTypeError("query: expected a SQL string"))
		}
		t, err := query(e.ns.Context(), sql.String())
		if err != nil {
			exc := newError(vm, "QueryError", err.Error())
			var qe *warehouse.QueryError
			if errors.As(err, &qe) {
				_ = exc.Set("target", qe.Target)
				if qe.Status != 0 {
					_ = exc.Set("status", qe.Status)
				}
			}
			panic(exc)
		}
		return vm.ToValue(t)
	})
}
