package capability

import (
	"strconv"
	"strings"

	"github.com/dop251/goja"

	"github.com/rhuss/codeinterp/pkg/frame"
)

// bindPandas exposes tabular frames. Tables are host objects with methods
// such as head, select, filter, sortBy, groupSum and toCSV.
func bindPandas(e *env) goja.Value {
	vm := e.vm
	return module{
		"DataFrame": func(call goja.FunctionCall) goja.Value {
			return vm.ToValue(tableArg(vm, call.Argument(0), call.Argument(1)))
		},
		"readCSV": func(call goja.FunctionCall) goja.Value {
			t, err := frame.ReadCSV(strings.NewReader(call.Argument(0).String()))
			check(vm, err)
			return vm.ToValue(t)
		},
		"concat": func(call goja.FunctionCall) goja.Value {
			var tables []*frame.Table
			args := call.Arguments
			if len(args) == 1 {
				if obj, ok := args[0].(*goja.Object); ok && obj.ClassName() == "Array" {
					args = arrayItems(obj)
				}
			}
			for i, a := range args {
				t, ok := a.Export().(*frame.Table)
				if !ok {
					panic(vm.NewTypeError("pd.concat: argument %d is not a DataFrame", i))
				}
				tables = append(tables, t)
			}
			return vm.ToValue(frame.Concat(tables...))
		},
	}.object(vm)
}

// tableArg builds a table from an array of records, an array of rows (with
// column names) or an object of columns.
func tableArg(vm *goja.Runtime, data, columns goja.Value) *frame.Table {
	if !present(data) {
		return frame.Empty()
	}
	if t, ok := data.Export().(*frame.Table); ok {
		return t
	}
	obj, ok := data.(*goja.Object)
	if !ok {
		panic(vm.NewTypeError("pd.DataFrame: expected an array or an object of columns"))
	}

	var names []string
	if present(columns) {
		if err := vm.ExportTo(columns, &names); err != nil {
			panic(vm.NewTypeError("pd.DataFrame: columns must be an array of strings"))
		}
	}

	if obj.ClassName() != "Array" {
		keys := obj.Keys()
		cols := make([][]any, len(keys))
		for i, k := range keys {
			cols[i] = cellsOf(vm, obj.Get(k))
		}
		return frame.FromColumns(keys, cols)
	}

	items := arrayItems(obj)
	if len(items) == 0 {
		return frame.New(names, nil)
	}
	if first, ok := items[0].(*goja.Object); ok && first.ClassName() == "Array" {
		rows := make([][]any, len(items))
		width := 0
		for i, it := range items {
			rows[i] = cellsOf(vm, it)
			width = max(width, len(rows[i]))
		}
		for len(names) < width {
			names = append(names, strconv.Itoa(len(names)))
		}
		return frame.New(names, rows)
	}

	records := make([]frame.Record, len(items))
	for i, it := range items {
		rec, ok := it.(*goja.Object)
		if !ok {
			panic(vm.NewTypeError("pd.DataFrame: row %d is not an object", i))
		}
		keys := rec.Keys()
		values := make([]any, len(keys))
		for j, k := range keys {
			values[j] = cell(rec.Get(k))
		}
		records[i] = frame.Record{Keys: keys, Values: values}
	}
	t := frame.FromRecords(records)
	if len(names) > 0 {
		sel, err := t.Select(names...)
		check(vm, err)
		return sel
	}
	return t
}

func arrayItems(obj *goja.Object) []goja.Value {
	n := int(obj.Get("length").ToInteger())
	out := make([]goja.Value, n)
	for i := range out {
		out[i] = obj.Get(strconv.Itoa(i))
	}
	return out
}

func cellsOf(vm *goja.Runtime, v goja.Value) []any {
	obj, ok := v.(*goja.Object)
	if !ok {
		panic(vm.NewTypeError("pd.DataFrame: column values must be arrays"))
	}
	if obj.ClassName() != "Array" {
		floats, err := toFloats(obj.Export())
		if err != nil {
			panic(vm.NewTypeError("pd.DataFrame: %v", err))
		}
		out := make([]any, len(floats))
		for i, f := range floats {
			out[i] = f
		}
		return out
	}
	items := arrayItems(obj)
	out := make([]any, len(items))
	for i, it := range items {
		out[i] = cell(it)
	}
	return out
}

// cell converts a script value to a table cell.
func cell(v goja.Value) any {
	if !present(v) {
		return nil
	}
	return v.Export()
}
