// Package preview turns the values a script left in its namespace into
// bounded, JSON-safe previews.
//
// Classify is pure: it never persists anything, so classifying the same
// value twice yields identical previews. The Capturer adds the side effect
// of persisting tables as CSV datasets.
package preview

import (
	"fmt"
	"math"
	"reflect"
	"strconv"
	"time"
	"unicode/utf8"

	"github.com/dop251/goja"

	"github.com/rhuss/codeinterp/pkg/api"
	"github.com/rhuss/codeinterp/pkg/frame"
	"github.com/rhuss/codeinterp/pkg/ndarray"
)

// Thresholds applied to every preview.
const (
	MaxSequenceItems = 100
	MaxMappingKeys   = 50
	MaxArrayElements = 100
	TableHeadRows    = 5
	MaxReprLength    = 500

	// maxDepth bounds nested conversion; deeper values (and cycles) are
	// rendered as text.
	maxDepth = 16
)

var (
	tableType      = reflect.TypeOf((*frame.Table)(nil))
	ndarrayType    = reflect.TypeOf((*ndarray.Array)(nil))
	listType       = reflect.TypeOf([]any(nil))
	mapEntriesType = reflect.TypeOf([][2]any(nil))
	objectType     = reflect.TypeOf(map[string]any(nil))
)

// KindOf returns the preview kind of v. It looks at export types only, so
// it never runs script code.
func KindOf(v goja.Value) api.PreviewKind {
	if v == nil || goja.IsUndefined(v) || goja.IsNull(v) {
		return api.PreviewScalar
	}
	obj, ok := v.(*goja.Object)
	if !ok {
		switch v.Export().(type) {
		case string, bool, int64, float64:
			return api.PreviewScalar
		}
		return api.PreviewOpaque
	}
	switch collection(obj) {
	case "Array", "Set":
		return api.PreviewSequence
	case "Map":
		return api.PreviewMapping
	}
	typ := obj.ExportType()
	switch {
	case typ == nil:
		return api.PreviewOpaque
	case typ == tableType:
		return api.PreviewTable
	case typ == ndarrayType, numericSlice(typ):
		return api.PreviewArray
	case typ == objectType && obj.ClassName() == "Object":
		return api.PreviewMapping
	}
	return api.PreviewOpaque
}

// collection names the built-in collection obj is: "Array", "Set", "Map"
// or "". Set and Map share the plain object class, so they are told apart
// by their export type and their toStringTag.
func collection(obj *goja.Object) string {
	switch obj.ExportType() {
	case listType:
		if obj.ClassName() == "Array" {
			return "Array"
		}
		if toStringTag(obj) == "Set" {
			return "Set"
		}
	case mapEntriesType:
		if toStringTag(obj) == "Map" {
			return "Map"
		}
	}
	return ""
}

func toStringTag(obj *goja.Object) string {
	tag := obj.GetSymbol(goja.SymToStringTag)
	if tag == nil || goja.IsUndefined(tag) {
		return ""
	}
	return tag.String()
}

func numericSlice(typ reflect.Type) bool {
	if typ.Kind() != reflect.Slice {
		return false
	}
	switch typ.Elem().Kind() {
	case reflect.Float64, reflect.Float32, reflect.Int8, reflect.Int16, reflect.Int32,
		reflect.Uint8, reflect.Uint16, reflect.Uint32:
		return true
	}
	return false
}

// Classify builds the preview of v. Tables carry no file reference; the
// Capturer attaches one after persisting.
func Classify(v goja.Value) api.Preview {
	switch kind := KindOf(v); kind {
	case api.PreviewScalar:
		return api.ScalarPreview(scalar(v))
	case api.PreviewSequence:
		return classifySequence(v.(*goja.Object))
	case api.PreviewMapping:
		return classifyMapping(v.(*goja.Object))
	case api.PreviewTable:
		return api.TablePreview(Summarize(v.Export().(*frame.Table)))
	case api.PreviewArray:
		return api.ArrayPreview(classifyArray(v.Export()))
	case api.PreviewOpaque:
		return api.OpaquePreview(typeName(v) + ": " + truncate(repr(v), MaxReprLength))
	default:
		panic(fmt.Sprintf("preview: unhandled kind %q", kind))
	}
}

func scalar(v goja.Value) any {
	if v == nil || goja.IsUndefined(v) || goja.IsNull(v) {
		return nil
	}
	return safe(v.Export(), 0)
}

func classifySequence(obj *goja.Object) api.Preview {
	name := collection(obj)
	var n int64
	if name == "Set" {
		n = obj.Get("size").ToInteger()
	} else {
		n = obj.Get("length").ToInteger()
	}
	if n > MaxSequenceItems {
		return api.SummaryPreview(api.PreviewSequence, fmt.Sprintf("%s with %d items", name, n))
	}
	items := []any{}
	if list, ok := obj.Export().([]any); ok {
		for _, it := range list {
			items = append(items, safe(it, 1))
		}
	}
	return api.SequencePreview(items)
}

func classifyMapping(obj *goja.Object) api.Preview {
	if collection(obj) == "Map" {
		n := obj.Get("size").ToInteger()
		if n > MaxMappingKeys {
			return api.SummaryPreview(api.PreviewMapping, fmt.Sprintf("Map with %d keys", n))
		}
		pairs := api.Object{}
		if entries, ok := obj.Export().([][2]any); ok {
			for _, e := range entries {
				pairs = append(pairs, api.Pair{Key: keyString(e[0]), Value: safe(e[1], 1)})
			}
		}
		return api.MappingPreview(pairs)
	}

	keys := obj.Keys()
	if len(keys) > MaxMappingKeys {
		return api.SummaryPreview(api.PreviewMapping, fmt.Sprintf("Object with %d keys", len(keys)))
	}
	pairs := make(api.Object, 0, len(keys))
	for _, k := range keys {
		var val any
		if v := obj.Get(k); v != nil && !goja.IsUndefined(v) {
			val = safe(v.Export(), 1)
		}
		pairs = append(pairs, api.Pair{Key: k, Value: val})
	}
	return api.MappingPreview(pairs)
}

// Summarize previews a table: its dimensions and the first rows.
func Summarize(t *frame.Table) *api.TableSummary {
	head := t.Head(TableHeadRows)
	data := make([]api.Object, 0, head.Len())
	for _, rec := range head.Records() {
		row := make(api.Object, len(rec.Keys))
		for i, k := range rec.Keys {
			row[i] = api.Pair{Key: k, Value: safe(rec.Values[i], 1)}
		}
		data = append(data, row)
	}
	return &api.TableSummary{
		Rows:        t.Len(),
		Columns:     t.Width(),
		ColumnNames: t.Columns(),
		Data:        data,
	}
}

func classifyArray(x any) *api.ArraySummary {
	var (
		shape []int
		dtype string
		flat  []any
	)
	if a, ok := x.(*ndarray.Array); ok {
		shape, dtype = a.Shape(), a.DType()
		if a.Size() <= MaxArrayElements {
			for _, f := range a.Flat() {
				flat = append(flat, safe(f, 1))
			}
		}
	} else {
		rv := reflect.ValueOf(x)
		shape, dtype = []int{rv.Len()}, rv.Type().Elem().Kind().String()
		if rv.Len() <= MaxArrayElements {
			for i := 0; i < rv.Len(); i++ {
				flat = append(flat, safe(rv.Index(i).Interface(), 1))
			}
		}
	}

	size := 1
	for _, d := range shape {
		size *= d
	}
	out := &api.ArraySummary{Shape: shape, DType: dtype}
	if size > MaxArrayElements {
		out.Summary = fmt.Sprintf("Array with %d elements", size)
	} else {
		if flat == nil {
			flat = []any{}
		}
		out.Data = flat
	}
	return out
}

// safe converts an exported value into something encoding/json accepts.
func safe(x any, depth int) any {
	if depth > maxDepth {
		return truncate(fmt.Sprint(x), MaxReprLength)
	}
	switch v := x.(type) {
	case nil, string, bool, int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return v
	case float64:
		return finite(v)
	case float32:
		return finite(float64(v))
	case time.Time:
		return v.Format(time.RFC3339Nano)
	case []byte:
		return string(v)
	case []any:
		out := make([]any, len(v))
		for i, it := range v {
			out[i] = safe(it, depth+1)
		}
		return out
	case [][2]any:
		out := make(api.Object, len(v))
		for i, e := range v {
			out[i] = api.Pair{Key: keyString(e[0]), Value: safe(e[1], depth+1)}
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(v))
		for k, it := range v {
			out[k] = safe(it, depth+1)
		}
		return out
	case fmt.Stringer:
		return truncate(v.String(), MaxReprLength)
	}

	rv := reflect.ValueOf(x)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		out := make([]any, rv.Len())
		for i := range out {
			out[i] = safe(rv.Index(i).Interface(), depth+1)
		}
		return out
	case reflect.Func:
		return "[Function]"
	}
	return truncate(fmt.Sprint(x), MaxReprLength)
}

// finite keeps finite numbers and spells out the others.
func finite(f float64) any {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	}
	return f
}

func keyString(k any) string {
	switch v := k.(type) {
	case string:
		return v
	case int64:
		return strconv.FormatInt(v, 10)
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64)
	}
	return fmt.Sprint(k)
}

func typeName(v goja.Value) string {
	obj, ok := v.(*goja.Object)
	if !ok {
		if _, sym := v.(*goja.Symbol); sym {
			return "Symbol"
		}
		if t := v.ExportType(); t != nil && t.Name() != "" {
			return t.Name()
		}
		return "value"
	}
	if t := hostType(obj); t != nil {
		for t.Kind() == reflect.Pointer {
			t = t.Elem()
		}
		if t.Name() != "" {
			return t.Name()
		}
	}
	if tag := toStringTag(obj); tag != "" {
		return tag
	}
	return obj.ClassName()
}

// hostType returns the Go type of a wrapped host value, or nil for script
// objects.
func hostType(obj *goja.Object) reflect.Type {
	t := obj.ExportType()
	if t == nil || obj.ClassName() != "Object" {
		return nil
	}
	switch t {
	case objectType, listType, mapEntriesType:
		return nil
	}
	return t
}

// repr may panic (a throwing toString, a faulty Stringer); the Capturer
// turns that into a per-binding error.
func repr(v goja.Value) string {
	if obj, ok := v.(*goja.Object); ok && hostType(obj) != nil {
		if st, ok := obj.Export().(fmt.Stringer); ok {
			return st.String()
		}
	}
	return v.String()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	s = s[:n]
	for !utf8.ValidString(s) {
		s = s[:len(s)-1]
	}
	return s
}
