package frame

import (
	"errors"
	"math"
	"strings"
	"testing"
)

func sample() *Table {
	return New([]string{"region", "amount", "note"}, [][]any{
		{"west", int64(10), "a"},
		{"east", 2.5, nil},
		{"west", int64(4), "x,y"},
	})
}

func TestNewPadsAndTruncates(t *testing.T) {
	tbl := New([]string{"a", "b"}, [][]any{{1}, {1, 2, 3}})
	if got := tbl.Row(0); len(got) != 2 || got[1] != nil {
		t.Errorf("Row(0) = %v, want [1 <nil>]", got)
	}
	if got := tbl.Row(1); len(got) != 2 {
		t.Errorf("Row(1) = %v, want 2 cells", got)
	}
	if got := tbl.Row(5); got != nil {
		t.Errorf("Row(5) = %v, want nil", got)
	}
}

func TestFromRecordsKeepsFirstSeenOrder(t *testing.T) {
	tbl := FromRecords([]Record{
		{Keys: []string{"z", "a"}, Values: []any{1, 2}},
		{Keys: []string{"a", "m"}, Values: []any{3, 4}},
	})
	want := []string{"z", "a", "m"}
	got := tbl.Columns()
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Fatalf("Columns() = %v, want %v", got, want)
	}
	if v, _ := tbl.Cell(1, "z"); v != nil {
		t.Errorf("Cell(1, z) = %v, want nil", v)
	}
	if v, _ := tbl.Cell(1, "m"); v != 4 {
		t.Errorf("Cell(1, m) = %v, want 4", v)
	}
}

func TestFromRecordsEmpty(t *testing.T) {
	tbl := FromRecords(nil)
	if tbl.Len() != 0 || tbl.Width() != 0 {
		t.Errorf("Shape() = %v, want [0 0]", tbl.Shape())
	}
}

func TestFromColumns(t *testing.T) {
	tbl := FromColumns([]string{"x", "y"}, [][]any{{1, 2, 3}, {"a"}})
	if got := tbl.Shape(); got[0] != 3 || got[1] != 2 {
		t.Fatalf("Shape() = %v, want [3 2]", got)
	}
	if v, _ := tbl.Cell(2, "y"); v != nil {
		t.Errorf("Cell(2, y) = %v, want nil", v)
	}
}

func TestHeadTail(t *testing.T) {
	tbl := sample()
	tests := []struct {
		name string
		got  *Table
		want int
	}{
		{"head 2", tbl.Head(2), 2},
		{"head past end", tbl.Head(10), 3},
		{"head negative", tbl.Head(-1), 0},
		{"tail 1", tbl.Tail(1), 1},
		{"tail past end", tbl.Tail(7), 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got.Len() != tt.want {
				t.Errorf("Len() = %d, want %d", tt.got.Len(), tt.want)
			}
		})
	}
	if v, _ := tbl.Tail(1).Cell(0, "amount"); v != int64(4) {
		t.Errorf("Tail(1) amount = %v, want 4", v)
	}
}

func TestSelectUnknownColumn(t *testing.T) {
	_, err := sample().Select("missing")
	if !errors.Is(err, ErrUnknownColumn) {
		t.Errorf("Select(missing) error = %v, want ErrUnknownColumn", err)
	}
}

func TestSelectReorders(t *testing.T) {
	tbl, err := sample().Select("note", "region")
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if got := tbl.Columns(); got[0] != "note" || got[1] != "region" {
		t.Errorf("Columns() = %v", got)
	}
}

func TestFilterAndSort(t *testing.T) {
	west := sample().Filter(func(r map[string]any) bool { return r["region"] == "west" })
	if west.Len() != 2 {
		t.Fatalf("Filter Len() = %d, want 2", west.Len())
	}
	sorted, err := sample().SortBy("amount", true)
	if err != nil {
		t.Fatalf("SortBy: %v", err)
	}
	col, _ := sorted.Column("amount")
	if col[0] != 2.5 || col[2] != int64(10) {
		t.Errorf("sorted amounts = %v", col)
	}
	desc, _ := sample().SortBy("note", false)
	notes, _ := desc.Column("note")
	if notes[2] != nil {
		t.Errorf("nil should sort last descending too, got %v", notes)
	}
}

func TestAggregates(t *testing.T) {
	tbl := sample()
	sum, err := tbl.Sum("amount")
	if err != nil || sum != 16.5 {
		t.Errorf("Sum(amount) = %v, %v; want 16.5", sum, err)
	}
	mean, _ := tbl.Mean("amount")
	if math.Abs(mean-5.5) > 1e-9 {
		t.Errorf("Mean(amount) = %v, want 5.5", mean)
	}
	empty, _ := tbl.Mean("note")
	if !math.IsNaN(empty) {
		t.Errorf("Mean(note) = %v, want NaN", empty)
	}
	g, err := tbl.GroupSum("region", "amount")
	if err != nil {
		t.Fatalf("GroupSum: %v", err)
	}
	if g.Len() != 2 {
		t.Fatalf("GroupSum Len() = %d, want 2", g.Len())
	}
	if v, _ := g.Cell(0, "amount"); v != 14.0 {
		t.Errorf("west sum = %v, want 14", v)
	}
}

func TestCSVRoundTrip(t *testing.T) {
	data, err := sample().CSV()
	if err != nil {
		t.Fatalf("CSV: %v", err)
	}
	want := "region,amount,note\nwest,10,a\neast,2.5,\nwest,4,\"x,y\"\n"
	if string(data) != want {
		t.Errorf("CSV() = %q, want %q", data, want)
	}

	back, err := ReadCSV(strings.NewReader(string(data)))
	if err != nil {
		t.Fatalf("ReadCSV: %v", err)
	}
	if back.Len() != 3 || back.Width() != 3 {
		t.Fatalf("Shape() = %v, want [3 3]", back.Shape())
	}
	if v, _ := back.Cell(0, "amount"); v != int64(10) {
		t.Errorf("amount = %#v, want int64(10)", v)
	}
	if v, _ := back.Cell(1, "note"); v != nil {
		t.Errorf("note = %#v, want nil", v)
	}
}

func TestConcat(t *testing.T) {
	a := New([]string{"x"}, [][]any{{1}})
	b := New([]string{"y", "x"}, [][]any{{2, 3}})
	c := Concat(a, b)
	if got := c.Columns(); strings.Join(got, ",") != "x,y" {
		t.Errorf("Columns() = %v, want [x y]", got)
	}
	if c.Len() != 2 {
		t.Errorf("Len() = %d, want 2", c.Len())
	}
	if got := Concat(New([]string{"q"}, nil)).Columns(); len(got) != 1 {
		t.Errorf("empty Concat columns = %v, want [q]", got)
	}
}

func TestString(t *testing.T) {
	s := sample().String()
	if !strings.HasPrefix(s, "region") || !strings.Contains(s, "east") {
		t.Errorf("String() = %q", s)
	}
}
