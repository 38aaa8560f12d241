package api

import (
	"bytes"
	"encoding/json"
)

// PreviewKind tags the variant held by a Preview.
type PreviewKind string

const (
	PreviewScalar   PreviewKind = "scalar"
	PreviewSequence PreviewKind = "sequence"
	PreviewMapping  PreviewKind = "mapping"
	PreviewTable    PreviewKind = "table"
	PreviewArray    PreviewKind = "array"
	PreviewOpaque   PreviewKind = "opaque"

	// previewRaw holds an already JSON-decoded value (client side only).
	previewRaw PreviewKind = "raw"
)

// Preview is a bounded, JSON-safe summary of one namespace binding.
//
// Exactly one group of fields is meaningful for each Kind:
//   - PreviewScalar: Value
//   - PreviewSequence: Items, or Summary when over the bound
//   - PreviewMapping: Pairs, or Summary when over the bound
//   - PreviewTable: Table
//   - PreviewArray: Array
//   - PreviewOpaque: Summary
type Preview struct {
	Kind    PreviewKind
	Value   any
	Items   []any
	Pairs   Object
	Summary string
	Table   *TableSummary
	Array   *ArraySummary
}

// Pair is one key/value entry of an insertion-ordered object.
type Pair struct {
	Key   string
	Value any
}

// Object is an insertion-ordered JSON object. It marshals its pairs in order,
// which a Go map cannot do.
type Object []Pair

// MarshalJSON writes the pairs as a JSON object in insertion order.
func (o Object) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, p := range o {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(p.Key)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		val, err := json.Marshal(p.Value)
		if err != nil {
			return nil, err
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// TableSummary previews a tabular value. The full table is persisted as a
// dataset artifact; File or FileError records the outcome.
type TableSummary struct {
	Rows        int      `json:"rows"`
	Columns     int      `json:"columns"`
	ColumnNames []string `json:"column_names"`
	Data        []Object `json:"data"`
	File        string   `json:"file,omitempty"`
	FileError   string   `json:"file_error,omitempty"`
}

// ArraySummary previews an n-dimensional numeric array. Data holds the
// flattened elements when the array is small enough, otherwise Summary
// names the element count.
type ArraySummary struct {
	Shape   []int
	DType   string
	Data    []any
	Summary string
}

// ScalarPreview wraps a JSON-safe scalar.
func ScalarPreview(v any) Preview {
	return Preview{Kind: PreviewScalar, Value: v}
}

// SequencePreview wraps the full item list of a small sequence.
func SequencePreview(items []any) Preview {
	if items == nil {
		items = []any{}
	}
	return Preview{Kind: PreviewSequence, Items: items}
}

// MappingPreview wraps the pairs of a small mapping.
func MappingPreview(pairs Object) Preview {
	if pairs == nil {
		pairs = Object{}
	}
	return Preview{Kind: PreviewMapping, Pairs: pairs}
}

// SummaryPreview wraps the one-line summary of an over-sized sequence or mapping.
func SummaryPreview(kind PreviewKind, summary string) Preview {
	return Preview{Kind: kind, Summary: summary}
}

// TablePreview wraps a table summary.
func TablePreview(t *TableSummary) Preview {
	return Preview{Kind: PreviewTable, Table: t}
}

// ArrayPreview wraps an array summary.
func ArrayPreview(a *ArraySummary) Preview {
	return Preview{Kind: PreviewArray, Array: a}
}

// OpaquePreview wraps the "<type>: <repr>" text of an unclassified value.
func OpaquePreview(text string) Preview {
	return Preview{Kind: PreviewOpaque, Summary: text}
}

// RawPreview wraps a value decoded from a report's JSON.
func RawPreview(v any) Preview {
	return Preview{Kind: previewRaw, Value: v}
}

// JSONValue returns the value the preview marshals to.
func (p Preview) JSONValue() any {
	switch p.Kind {
	case PreviewScalar, previewRaw:
		return p.Value
	case PreviewSequence:
		if p.Items == nil {
			return p.Summary
		}
		return p.Items
	case PreviewMapping:
		if p.Pairs == nil {
			return p.Summary
		}
		return p.Pairs
	case PreviewTable:
		if p.Table == nil {
			return nil
		}
		t := *p.Table
		if t.ColumnNames == nil {
			t.ColumnNames = []string{}
		}
		if t.Data == nil {
			t.Data = []Object{}
		}
		return struct {
			Type string `json:"type"`
			TableSummary
		}{Type: "Table", TableSummary: t}
	case PreviewArray:
		if p.Array == nil {
			return nil
		}
		var data any = p.Array.Summary
		if p.Array.Data != nil {
			data = p.Array.Data
		}
		shape := p.Array.Shape
		if shape == nil {
			shape = []int{}
		}
		return struct {
			Type  string `json:"type"`
			Shape []int  `json:"shape"`
			DType string `json:"dtype"`
			Data  any    `json:"data"`
		}{Type: "Array", Shape: shape, DType: p.Array.DType, Data: data}
	default:
		return p.Summary
	}
}

// MarshalJSON encodes the preview as its JSON-safe value.
func (p Preview) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.JSONValue())
}
