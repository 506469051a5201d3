package model

// Table is a rectangular, export-ready view of a result.
// Cells are time.Time, float64, int or string; NaN floats are written as blanks.
type Table struct {
	Header []string
	Rows   [][]any
}

// Len returns the number of data rows.
func (t Table) Len() int { return len(t.Rows) }
