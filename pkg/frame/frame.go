package frame

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"gonum.org/v1/gonum/stat"
)

// ErrUnknownColumn is returned when an operation names a column the table
// does not have.
var ErrUnknownColumn = errors.New("unknown column")

// Table is an immutable, column-ordered table. Operations return new tables.
type Table struct {
	columns []string
	rows    [][]any
}

// New builds a table from column names and row-major cells. Short rows are
// padded with nil; long rows are truncated to the column count.
func New(columns []string, rows [][]any) *Table {
	cols := append([]string(nil), columns...)
	out := make([][]any, 0, len(rows))
	for _, r := range rows {
		row := make([]any, len(cols))
		copy(row, r)
		out = append(out, row)
	}
	return &Table{columns: cols, rows: out}
}

// Empty returns a table with no columns and no rows.
func Empty() *Table {
	return &Table{columns: []string{}, rows: [][]any{}}
}

// Record is one row keyed by column name, in column order.
type Record struct {
	Keys   []string
	Values []any
}

// FromRecords builds a table from ordered records. The column set is the
// union of all record keys in first-seen order; missing cells are nil.
func FromRecords(records []Record) *Table {
	index := map[string]int{}
	var columns []string
	for _, r := range records {
		for _, k := range r.Keys {
			if _, ok := index[k]; !ok {
				index[k] = len(columns)
				columns = append(columns, k)
			}
		}
	}
	rows := make([][]any, 0, len(records))
	for _, r := range records {
		row := make([]any, len(columns))
		for i, k := range r.Keys {
			if i < len(r.Values) {
				row[index[k]] = r.Values[i]
			}
		}
		rows = append(rows, row)
	}
	if columns == nil {
		columns = []string{}
	}
	return &Table{columns: columns, rows: rows}
}

// FromColumns builds a table from equally named column slices. Shorter
// columns are padded with nil.
func FromColumns(names []string, cols [][]any) *Table {
	n := 0
	for _, c := range cols {
		if len(c) > n {
			n = len(c)
		}
	}
	rows := make([][]any, n)
	for i := range rows {
		row := make([]any, len(names))
		for j := range names {
			if j < len(cols) && i < len(cols[j]) {
				row[j] = cols[j][i]
			}
		}
		rows[i] = row
	}
	return New(names, rows)
}

// Columns returns the column names in order.
func (t *Table) Columns() []string {
	return append([]string(nil), t.columns...)
}

// Len returns the number of rows.
func (t *Table) Len() int { return len(t.rows) }

// Width returns the number of columns.
func (t *Table) Width() int { return len(t.columns) }

// Shape returns [rows, columns].
func (t *Table) Shape() []int { return []int{len(t.rows), len(t.columns)} }

// Row returns a copy of row i, or nil when out of range.
func (t *Table) Row(i int) []any {
	if i < 0 || i >= len(t.rows) {
		return nil
	}
	return append([]any(nil), t.rows[i]...)
}

// Cell returns the value at row i of the named column.
func (t *Table) Cell(i int, column string) (any, error) {
	j, err := t.index(column)
	if err != nil {
		return nil, err
	}
	if i < 0 || i >= len(t.rows) {
		return nil, fmt.Errorf("row %d out of range", i)
	}
	return t.rows[i][j], nil
}

// Column returns a copy of the named column's cells.
func (t *Table) Column(name string) ([]any, error) {
	j, err := t.index(name)
	if err != nil {
		return nil, err
	}
	out := make([]any, len(t.rows))
	for i, r := range t.rows {
		out[i] = r[j]
	}
	return out, nil
}

// Floats returns the named column as float64, skipping cells that are not
// numeric.
func (t *Table) Floats(name string) ([]float64, error) {
	col, err := t.Column(name)
	if err != nil {
		return nil, err
	}
	out := make([]float64, 0, len(col))
	for _, v := range col {
		if f, ok := ToFloat(v); ok {
			out = append(out, f)
		}
	}
	return out, nil
}

// Head returns the first n rows.
func (t *Table) Head(n int) *Table {
	if n < 0 {
		n = 0
	}
	if n > len(t.rows) {
		n = len(t.rows)
	}
	return &Table{columns: t.columns, rows: t.rows[:n]}
}

// Tail returns the last n rows.
func (t *Table) Tail(n int) *Table {
	if n < 0 {
		n = 0
	}
	if n > len(t.rows) {
		n = len(t.rows)
	}
	return &Table{columns: t.columns, rows: t.rows[len(t.rows)-n:]}
}

// Select returns a table restricted to the named columns, in the given order.
func (t *Table) Select(names ...string) (*Table, error) {
	idx := make([]int, len(names))
	for k, name := range names {
		j, err := t.index(name)
		if err != nil {
			return nil, err
		}
		idx[k] = j
	}
	rows := make([][]any, len(t.rows))
	for i, r := range t.rows {
		row := make([]any, len(idx))
		for k, j := range idx {
			row[k] = r[j]
		}
		rows[i] = row
	}
	return &Table{columns: append([]string(nil), names...), rows: rows}, nil
}

// Filter keeps the rows for which keep returns true. The row is passed as a
// column-name map.
func (t *Table) Filter(keep func(row map[string]any) bool) *Table {
	var rows [][]any
	for _, r := range t.rows {
		if keep(t.rowMap(r)) {
			rows = append(rows, r)
		}
	}
	if rows == nil {
		rows = [][]any{}
	}
	return &Table{columns: t.columns, rows: rows}
}

// SortBy returns the rows ordered by the named column. Numbers sort before
// strings; nil sorts last. The sort is stable.
func (t *Table) SortBy(name string, ascending bool) (*Table, error) {
	j, err := t.index(name)
	if err != nil {
		return nil, err
	}
	rows := append([][]any(nil), t.rows...)
	sort.SliceStable(rows, func(a, b int) bool {
		x, y := rows[a][j], rows[b][j]
		if x == nil || y == nil {
			return x != nil && y == nil
		}
		if ascending {
			return less(x, y)
		}
		return less(y, x)
	})
	return &Table{columns: t.columns, rows: rows}, nil
}

// Records returns every row as an ordered record.
func (t *Table) Records() []Record {
	out := make([]Record, len(t.rows))
	for i, r := range t.rows {
		out[i] = Record{Keys: t.Columns(), Values: append([]any(nil), r...)}
	}
	return out
}

// Rows returns every row as a column-name map. Key order is lost; use
// Records when it matters.
func (t *Table) Rows() []map[string]any {
	out := make([]map[string]any, len(t.rows))
	for i, r := range t.rows {
		out[i] = t.rowMap(r)
	}
	return out
}

// Sum returns the sum of the numeric cells of a column.
func (t *Table) Sum(name string) (float64, error) {
	xs, err := t.Floats(name)
	if err != nil {
		return 0, err
	}
	var s float64
	for _, x := range xs {
		s += x
	}
	return s, nil
}

// Mean returns the mean of the numeric cells of a column, NaN when none.
func (t *Table) Mean(name string) (float64, error) {
	xs, err := t.Floats(name)
	if err != nil {
		return 0, err
	}
	if len(xs) == 0 {
		return math.NaN(), nil
	}
	return stat.Mean(xs, nil), nil
}

// GroupSum groups rows by key and sums the value column per group. Groups
// appear in first-seen order.
func (t *Table) GroupSum(key, value string) (*Table, error) {
	kj, err := t.index(key)
	if err != nil {
		return nil, err
	}
	vj, err := t.index(value)
	if err != nil {
		return nil, err
	}
	order := []any{}
	sums := map[string]float64{}
	for _, r := range t.rows {
		k := fmt.Sprint(r[kj])
		if _, ok := sums[k]; !ok {
			order = append(order, r[kj])
		}
		f, _ := ToFloat(r[vj])
		sums[k] += f
	}
	rows := make([][]any, len(order))
	for i, k := range order {
		rows[i] = []any{k, sums[fmt.Sprint(k)]}
	}
	return &Table{columns: []string{key, value}, rows: rows}, nil
}

// Concat appends the rows of others. Columns are unioned in first-seen order.
func Concat(tables ...*Table) *Table {
	var records []Record
	for _, t := range tables {
		if t == nil {
			continue
		}
		records = append(records, t.Records()...)
	}
	out := FromRecords(records)
	if len(records) == 0 && len(tables) > 0 && tables[0] != nil {
		out.columns = tables[0].Columns()
	}
	return out
}

// WriteCSV writes the header and every row as RFC 4180 CSV.
func (t *Table) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.columns); err != nil {
		return err
	}
	rec := make([]string, len(t.columns))
	for _, r := range t.rows {
		for j, v := range r {
			rec[j] = FormatCell(v)
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// CSV returns the table encoded as CSV.
func (t *Table) CSV() ([]byte, error) {
	var buf bytes.Buffer
	if err := t.WriteCSV(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// ToCSV returns the CSV encoding as a string.
func (t *Table) ToCSV() (string, error) {
	b, err := t.CSV()
	return string(b), err
}

// ReadCSV parses CSV text with a header row. Cells that parse as numbers
// become float64 or int64; empty cells become nil.
func ReadCSV(r io.Reader) (*Table, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	all, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading csv: %w", err)
	}
	if len(all) == 0 {
		return Empty(), nil
	}
	rows := make([][]any, 0, len(all)-1)
	for _, rec := range all[1:] {
		row := make([]any, len(rec))
		for j, s := range rec {
			row[j] = parseCell(s)
		}
		rows = append(rows, row)
	}
	return New(all[0], rows), nil
}

// String renders an aligned text view of up to 10 rows.
func (t *Table) String() string {
	const maxRows = 10
	view := t.Head(maxRows)
	widths := make([]int, len(t.columns))
	for j, c := range t.columns {
		widths[j] = len(c)
	}
	cells := make([][]string, len(view.rows))
	for i, r := range view.rows {
		cells[i] = make([]string, len(r))
		for j, v := range r {
			s := FormatCell(v)
			cells[i][j] = s
			if len(s) > widths[j] {
				widths[j] = len(s)
			}
		}
	}
	var b strings.Builder
	for j, c := range t.columns {
		if j > 0 {
			b.WriteString("  ")
		}
		fmt.Fprintf(&b, "%-*s", widths[j], c)
	}
	for _, r := range cells {
		b.WriteByte('\n')
		for j, s := range r {
			if j > 0 {
				b.WriteString("  ")
			}
			fmt.Fprintf(&b, "%-*s", widths[j], s)
		}
	}
	if len(t.rows) > maxRows {
		fmt.Fprintf(&b, "\n... (%d rows x %d columns)", len(t.rows), len(t.columns))
	}
	return b.String()
}

// FormatCell renders one cell as CSV text. nil is the empty string.
func FormatCell(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32)
	case bool:
		return strconv.FormatBool(x)
	case time.Time:
		return x.Format(time.RFC3339Nano)
	case []byte:
		return string(x)
	default:
		return fmt.Sprint(x)
	}
}

// ToFloat converts numeric cells to float64.
func ToFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case int:
		return float64(x), true
	case int8:
		return float64(x), true
	case int16:
		return float64(x), true
	case int32:
		return float64(x), true
	case int64:
		return float64(x), true
	case uint:
		return float64(x), true
	case uint8:
		return float64(x), true
	case uint16:
		return float64(x), true
	case uint32:
		return float64(x), true
	case uint64:
		return float64(x), true
	default:
		return 0, false
	}
}

func (t *Table) index(name string) (int, error) {
	for j, c := range t.columns {
		if c == name {
			return j, nil
		}
	}
	return -1, fmt.Errorf("%w: %q", ErrUnknownColumn, name)
}

func (t *Table) rowMap(r []any) map[string]any {
	m := make(map[string]any, len(t.columns))
	for j, c := range t.columns {
		m[c] = r[j]
	}
	return m
}

func parseCell(s string) any {
	if s == "" {
		return nil
	}
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	return s
}

func less(a, b any) bool {
	if a == nil {
		return false
	}
	if b == nil {
		return true
	}
	fa, aok := ToFloat(a)
	fb, bok := ToFloat(b)
	switch {
	case aok && bok:
		return fa < fb
	case aok:
		return true
	case bok:
		return false
	}
	return FormatCell(a) < FormatCell(b)
}
