package model

import (
	"fmt"
	"math"
	"sort"
	"time"
)

// Frame is a time-indexed table of float64 columns plus optional text columns.
// Raw frames built from long building rows may repeat timestamps; every resampled frame
// has a strictly increasing, duplicate-free index, and Join requires one on its argument.
// Missing numeric values are NaN, missing text values are "".
type Frame struct {
	Index []time.Time

	columns []string
	values  map[string][]float64

	textColumns []string
	text        map[string][]string
}

// NewFrame returns an empty frame over index. The slice is not copied.
func NewFrame(index []time.Time) *Frame {
	return &Frame{
		Index:  index,
		values: map[string][]float64{},
		text:   map[string][]string{},
	}
}

// Len returns the number of rows.
func (f *Frame) Len() int {
	if f == nil {
		return 0
	}
	return len(f.Index)
}

// Empty reports whether the frame has no rows.
func (f *Frame) Empty() bool { return f.Len() == 0 }

// Columns returns the numeric column names in insertion order.
func (f *Frame) Columns() []string {
	if f == nil {
		return nil
	}
	return append([]string(nil), f.columns...)
}

// TextColumns returns the text column names in insertion order.
func (f *Frame) TextColumns() []string {
	if f == nil {
		return nil
	}
	return append([]string(nil), f.textColumns...)
}

// Has reports whether a numeric column exists.
func (f *Frame) Has(col string) bool {
	if f == nil {
		return false
	}
	_, ok := f.values[col]
	return ok
}

// Col returns the numeric column, or nil if it does not exist.
func (f *Frame) Col(col string) []float64 {
	if f == nil {
		return nil
	}
	return f.values[col]
}

// Text returns the text column, or nil if it does not exist.
func (f *Frame) Text(col string) []string {
	if f == nil {
		return nil
	}
	return f.text[col]
}

// Set adds or replaces a numeric column. vals must have one entry per row.
func (f *Frame) Set(col string, vals []float64) {
	if len(vals) != len(f.Index) {
		panic(fmt.Sprintf("frame: column %q has %d values for %d rows", col, len(vals), len(f.Index)))
	}
	if _, ok := f.values[col]; !ok {
		f.columns = append(f.columns, col)
	}
	f.values[col] = vals
}

// SetText adds or replaces a text column. vals must have one entry per row.
func (f *Frame) SetText(col string, vals []string) {
	if len(vals) != len(f.Index) {
		panic(fmt.Sprintf("frame: text column %q has %d values for %d rows", col, len(vals), len(f.Index)))
	}
	if _, ok := f.text[col]; !ok {
		f.textColumns = append(f.textColumns, col)
	}
	f.text[col] = vals
}

// Rename returns a copy with numeric column from renamed to to.
func (f *Frame) Rename(from, to string) *Frame {
	out := NewFrame(f.Index)
	for _, c := range f.columns {
		name := c
		if c == from {
			name = to
		}
		out.Set(name, f.values[c])
	}
	for _, c := range f.textColumns {
		out.SetText(c, f.text[c])
	}
	return out
}

// Select returns a frame with only the listed numeric columns that exist.
// Text columns are dropped. Column data is shared with f.
func (f *Frame) Select(cols ...string) *Frame {
	out := NewFrame(f.Index)
	for _, c := range cols {
		if v, ok := f.values[c]; ok {
			out.Set(c, v)
		}
	}
	return out
}

// Copy returns a deep copy of the frame.
func (f *Frame) Copy() *Frame {
	out := NewFrame(append([]time.Time(nil), f.Index...))
	for _, c := range f.columns {
		out.Set(c, append([]float64(nil), f.values[c]...))
	}
	for _, c := range f.textColumns {
		out.SetText(c, append([]string(nil), f.text[c]...))
	}
	return out
}

// Join left-joins other onto f by timestamp. Rows of f without a match get NaN
// (or "") in the joined columns. Columns already present in f are replaced.
func (f *Frame) Join(other *Frame) *Frame {
	out := f.Copy()
	if other == nil {
		return out
	}
	pos := make(map[int64]int, other.Len())
	for i, ts := range other.Index {
		pos[ts.UnixNano()] = i
	}
	for _, c := range other.columns {
		src := other.values[c]
		vals := make([]float64, out.Len())
		for i, ts := range out.Index {
			if j, ok := pos[ts.UnixNano()]; ok {
				vals[i] = src[j]
			} else {
				vals[i] = math.NaN()
			}
		}
		out.Set(c, vals)
	}
	for _, c := range other.textColumns {
		src := other.text[c]
		vals := make([]string, out.Len())
		for i, ts := range out.Index {
			if j, ok := pos[ts.UnixNano()]; ok {
				vals[i] = src[j]
			}
		}
		out.SetText(c, vals)
	}
	return out
}

// Table renders the frame with a leading timestamp column.
func (f *Frame) Table() Table {
	header := append([]string{"timestamp"}, f.columns...)
	header = append(header, f.textColumns...)
	t := Table{Header: header, Rows: make([][]any, 0, f.Len())}
	for i, ts := range f.Index {
		row := make([]any, 0, len(header))
		row = append(row, ts)
		for _, c := range f.columns {
			row = append(row, f.values[c][i])
		}
		for _, c := range f.textColumns {
			row = append(row, f.text[c][i])
		}
		t.Rows = append(t.Rows, row)
	}
	return t
}

// UnionIndex returns the sorted, de-duplicated union of the given indexes.
func UnionIndex(indexes ...[]time.Time) []time.Time {
	seen := map[int64]time.Time{}
	for _, idx := range indexes {
		for _, ts := range idx {
			seen[ts.UnixNano()] = ts
		}
	}
	out := make([]time.Time, 0, len(seen))
	for _, ts := range seen {
		out = append(out, ts)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out
}

// NaNs returns a slice of n NaN values.
func NaNs(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}
