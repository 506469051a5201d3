package model

import (
	"strconv"
	"strings"
	"time"
)

// Record is one characteristics row, keyed by column name.
type Record map[string]string

// Float parses a numeric attribute. ok is false when the column is absent or not numeric.
func (r Record) Float(col string) (v float64, ok bool) {
	s, present := r[col]
	if !present {
		return 0, false
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// Characteristics is a building characteristics table keyed by IDColumn.
type Characteristics struct {
	IDColumn string
	Columns  []string
	Records  []Record

	byID map[string]int
}

// NewCharacteristics indexes records by idCol. IDs are normalized with NormalizeID;
// the first record wins for a duplicated id.
func NewCharacteristics(idCol string, columns []string, records []Record) *Characteristics {
	c := &Characteristics{IDColumn: idCol, Columns: columns, Records: records, byID: map[string]int{}}
	for i, r := range records {
		id := NormalizeID(r[idCol])
		r[idCol] = id
		if _, ok := c.byID[id]; !ok {
			c.byID[id] = i
		}
	}
	return c
}

func (c *Characteristics) Len() int { return len(c.Records) }

func (c *Characteristics) HasColumn(col string) bool {
	for _, x := range c.Columns {
		if x == col {
			return true
		}
	}
	return false
}

// Lookup returns the record for a building id.
func (c *Characteristics) Lookup(id string) (Record, bool) {
	i, ok := c.byID[NormalizeID(id)]
	if !ok {
		return nil, false
	}
	return c.Records[i], true
}

// IDsWhere returns the ids of all rows whose col equals value, in table order.
func (c *Characteristics) IDsWhere(col, value string) []string {
	var out []string
	for _, r := range c.Records {
		if r[col] == value {
			out = append(out, r[c.IDColumn])
		}
	}
	return out
}

// NormalizeID trims whitespace and drops a trailing ".0" so ids read from spreadsheets
// ("123.0") match ids read from file names and parquet integers ("123").
func NormalizeID(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasSuffix(s, ".0") {
		if _, err := strconv.ParseInt(s[:len(s)-2], 10, 64); err == nil {
			return s[:len(s)-2]
		}
	}
	return s
}

// TimeseriesRow is one timestamped reading of one building.
type TimeseriesRow struct {
	BuildingID string
	Timestamp  time.Time
	Values     map[string]float64
}

// Timeseries is a long table of per-building readings. Columns lists the numeric value
// columns in source order.
type Timeseries struct {
	Columns []string
	Rows    []TimeseriesRow
}

// Len returns the number of rows.
func (t *Timeseries) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

// Concat appends the rows of each part in order. Columns are the union, first seen first.
func Concat(parts ...*Timeseries) *Timeseries {
	out := &Timeseries{}
	seen := map[string]bool{}
	for _, p := range parts {
		if p == nil {
			continue
		}
		for _, c := range p.Columns {
			if !seen[c] {
				seen[c] = true
				out.Columns = append(out.Columns, c)
			}
		}
		out.Rows = append(out.Rows, p.Rows...)
	}
	return out
}
