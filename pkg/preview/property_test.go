package preview

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"testing"

	"github.com/dop251/goja"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/rhuss/codeinterp/pkg/api"
	"github.com/rhuss/codeinterp/pkg/frame"
)

func TestPreviewLaws(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 50
	properties := gopter.NewProperties(parameters)

	properties.Property("sequences are listed in full up to the bound, summarized beyond", prop.ForAll(
		func(n int) bool {
			vm := goja.New()
			items := make([]any, n)
			for i := range items {
				items[i] = i
			}
			p := Classify(vm.NewArray(items...))
			if n <= MaxSequenceItems {
				return p.Items != nil && len(p.Items) == n
			}
			return p.Items == nil && p.Summary == fmt.Sprintf("Array with %d items", n)
		},
		gen.IntRange(0, 2*MaxSequenceItems),
	))

	properties.Property("mappings keep insertion order up to the bound, summarized beyond", prop.ForAll(
		func(n int) bool {
			vm := goja.New()
			obj := vm.NewObject()
			for i := n - 1; i >= 0; i-- {
				_ = obj.Set("k"+strconv.Itoa(i), i)
			}
			p := Classify(obj)
			if n > MaxMappingKeys {
				return p.Pairs == nil && p.Summary == fmt.Sprintf("Object with %d keys", n)
			}
			if len(p.Pairs) != n {
				return false
			}
			for j, pair := range p.Pairs {
				if pair.Key != "k"+strconv.Itoa(n-1-j) {
					return false
				}
			}
			return true
		},
		gen.IntRange(0, 2*MaxMappingKeys),
	))

	properties.Property("tables preview at most the head rows and report the full size", prop.ForAll(
		func(rows int) bool {
			data := make([][]any, rows)
			for i := range data {
				data[i] = []any{int64(i)}
			}
			vm := goja.New()
			p := Classify(vm.ToValue(frame.New([]string{"n"}, data)))
			return p.Table.Rows == rows && len(p.Table.Data) == min(rows, TableHeadRows)
		},
		gen.IntRange(0, 30),
	))

	properties.Property("classification is deterministic", prop.ForAll(
		func(xs []int, s string) bool {
			vm := goja.New()
			obj := vm.NewObject()
			_ = obj.Set("xs", xs)
			_ = obj.Set("s", s)
			a, err1 := json.Marshal(Classify(obj))
			b, err2 := json.Marshal(Classify(obj))
			return err1 == nil && err2 == nil && string(a) == string(b)
		},
		gen.SliceOf(gen.Int()),
		gen.AlphaString(),
	))

	properties.Property("every preview is JSON encodable", prop.ForAll(
		func(f float64) bool {
			vm := goja.New()
			_, err := json.Marshal(Classify(vm.NewArray(f, -f)))
			return err == nil
		},
		gen.OneConstOf(0.0, 1.5, math.NaN(), math.Inf(1)),
	))

	properties.TestingRun(t)
}

func TestKindOfIsTotal(t *testing.T) {
	vm := goja.New()
	for _, code := range []string{`1`, `"s"`, `[]`, `({})`, `new Map()`, `new Set()`, `new Date()`, `Symbol()`, `new Uint8Array(2)`, `Promise.resolve(1)`} {
		v, err := vm.RunString(code)
		if err != nil {
			t.Fatal(err)
		}
		switch KindOf(v) {
		case api.PreviewScalar, api.PreviewSequence, api.PreviewMapping, api.PreviewTable, api.PreviewArray, api.PreviewOpaque:
		default:
			t.Errorf("KindOf(%s) = %q", code, KindOf(v))
		}
	}
}

