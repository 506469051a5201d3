package model

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func hours(n int) []time.Time {
	start := time.Date(2018, 1, 1, 0, 0, 0, 0, time.UTC)
	out := make([]time.Time, n)
	for i := range out {
		out[i] = start.Add(time.Duration(i) * time.Hour)
	}
	return out
}

func TestFrameSetAndSelect(t *testing.T) {
	f := NewFrame(hours(3))
	f.Set("a", []float64{1, 2, 3})
	f.Set("b", []float64{4, 5, 6})
	f.SetText("label", []string{"x", "y", "z"})

	assert.Equal(t, []string{"a", "b"}, f.Columns())
	assert.Equal(t, []string{"label"}, f.TextColumns())
	assert.True(t, f.Has("a"))
	assert.False(t, f.Has("label"))

	s := f.Select("b", "missing")
	assert.Equal(t, []string{"b"}, s.Columns())
	assert.Empty(t, s.TextColumns())

	assert.Panics(t, func() { f.Set("c", []float64{1}) })
}

func TestFrameJoinFillsMissing(t *testing.T) {
	left := NewFrame(hours(3))
	left.Set("load", []float64{1, 2, 3})

	idx := hours(3)[1:]
	right := NewFrame(idx)
	right.Set("temp", []float64{10, 11})
	right.SetText("src", []string{"a", "b"})

	j := left.Join(right)
	require.Equal(t, 3, j.Len())
	assert.True(t, math.IsNaN(j.Col("temp")[0]))
	assert.Equal(t, 10.0, j.Col("temp")[1])
	assert.Equal(t, []string{"", "a", "b"}, j.Text("src"))
	// left is untouched
	assert.False(t, left.Has("temp"))
}

func TestFrameTable(t *testing.T) {
	f := NewFrame(hours(2))
	f.Set("Total", []float64{1, 2})
	tbl := f.Table()
	assert.Equal(t, []string{"timestamp", "Total"}, tbl.Header)
	require.Equal(t, 2, tbl.Len())
	assert.Equal(t, 2.0, tbl.Rows[1][1])
}

func TestUnionIndex(t *testing.T) {
	h := hours(4)
	u := UnionIndex([]time.Time{h[2], h[0]}, []time.Time{h[0], h[3]})
	assert.Equal(t, []time.Time{h[0], h[2], h[3]}, u)
}

func TestCharacteristicsLookup(t *testing.T) {
	c := NewCharacteristics("bldg_id", []string{"bldg_id", "type", "sqft"}, []Record{
		{"bldg_id": "1.0", "type": "A", "sqft": "900"},
		{"bldg_id": "2", "type": "B", "sqft": "n/a"},
		{"bldg_id": "3", "type": "A", "sqft": "1200"},
	})

	r, ok := c.Lookup("1")
	require.True(t, ok)
	v, ok := r.Float("sqft")
	assert.True(t, ok)
	assert.Equal(t, 900.0, v)

	r, _ = c.Lookup("2")
	_, ok = r.Float("sqft")
	assert.False(t, ok)

	assert.Equal(t, []string{"1", "3"}, c.IDsWhere("type", "A"))
	assert.True(t, c.HasColumn("sqft"))
	assert.False(t, c.HasColumn("units"))
}

func TestNormalizeID(t *testing.T) {
	assert.Equal(t, "123", NormalizeID(" 123.0 "))
	assert.Equal(t, "abc.0", NormalizeID("abc.0"))
	assert.Equal(t, "12.5", NormalizeID("12.5"))
}

func TestConcatUnionsColumns(t *testing.T) {
	a := &Timeseries{Columns: []string{"x"}, Rows: []TimeseriesRow{{BuildingID: "1"}}}
	b := &Timeseries{Columns: []string{"x", "y"}, Rows: []TimeseriesRow{{BuildingID: "2"}, {BuildingID: "2"}}}
	c := Concat(a, nil, b)
	assert.Equal(t, []string{"x", "y"}, c.Columns)
	assert.Equal(t, 3, c.Len())
}
