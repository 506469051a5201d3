// Package transform joins building timeseries to their characteristics and applies
// the per-building and per-run adjustments.
package transform

import (
	"sort"
	"time"

	"community-load/internal/model"
)

// MergedRow is a timeseries row with the characteristics of its building.
type MergedRow struct {
	model.TimeseriesRow
	// Attributes is nil when the building has no characteristics row.
	Attributes model.Record
}

// Merged is the left join of a timeseries to a characteristics table.
type Merged struct {
	IDColumn string
	Columns  []string
	Rows     []MergedRow
}

// Merge left-joins every timeseries row to its characteristics record by building id.
// Value maps are copied, so the result can be adjusted without touching ts.
func Merge(ts *model.Timeseries, chars *model.Characteristics) *Merged {
	m := &Merged{IDColumn: chars.IDColumn}
	if ts == nil {
		return m
	}
	m.Columns = append([]string(nil), ts.Columns...)
	m.Rows = make([]MergedRow, len(ts.Rows))
	for i, r := range ts.Rows {
		vals := make(map[string]float64, len(r.Values)+1)
		for k, v := range r.Values {
			vals[k] = v
		}
		attrs, _ := chars.Lookup(r.BuildingID)
		m.Rows[i] = MergedRow{
			TimeseriesRow: model.TimeseriesRow{BuildingID: r.BuildingID, Timestamp: r.Timestamp, Values: vals},
			Attributes:    attrs,
		}
	}
	return m
}

// Len returns the number of rows.
func (m *Merged) Len() int { return len(m.Rows) }

// HasColumn reports whether col is a value column.
func (m *Merged) HasColumn(col string) bool {
	for _, c := range m.Columns {
		if c == col {
			return true
		}
	}
	return false
}

// HasAttribute reports whether any matched characteristics row carries attr.
func (m *Merged) HasAttribute(attr string) bool {
	for _, r := range m.Rows {
		if r.Attributes == nil {
			continue
		}
		_, ok := r.Attributes[attr]
		return ok
	}
	return false
}

func (m *Merged) addColumn(col string) {
	if !m.HasColumn(col) {
		m.Columns = append(m.Columns, col)
	}
}

// Frame returns the rows as a raw time-indexed frame of the requested value columns
// (those that exist), ordered by timestamp. Timestamps repeat once per building.
func (m *Merged) Frame(cols ...string) *model.Frame {
	return frameOf(m.Rows, m.present(cols))
}

// FramesByAttribute splits the rows by the value of attr (for example the building type)
// and returns one raw frame per value. Rows without characteristics are skipped.
func (m *Merged) FramesByAttribute(attr string, cols ...string) map[string]*model.Frame {
	groups := map[string][]MergedRow{}
	for _, r := range m.Rows {
		if r.Attributes == nil {
			continue
		}
		v, ok := r.Attributes[attr]
		if !ok || v == "" {
			continue
		}
		groups[v] = append(groups[v], r)
	}
	present := m.present(cols)
	out := make(map[string]*model.Frame, len(groups))
	for k, rows := range groups {
		out[k] = frameOf(rows, present)
	}
	return out
}

func (m *Merged) present(cols []string) []string {
	var out []string
	for _, c := range cols {
		if m.HasColumn(c) {
			out = append(out, c)
		}
	}
	return out
}

func frameOf(rows []MergedRow, cols []string) *model.Frame {
	order := make([]int, len(rows))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return rows[order[a]].Timestamp.Before(rows[order[b]].Timestamp)
	})
	idx := make([]time.Time, len(rows))
	for i, j := range order {
		idx[i] = rows[j].Timestamp
	}
	f := model.NewFrame(idx)
	for _, c := range cols {
		vals := make([]float64, len(rows))
		for i, j := range order {
			vals[i] = rows[j].Values[c]
		}
		f.Set(c, vals)
	}
	return f
}
