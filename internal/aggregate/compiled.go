package aggregate

import (
	"fmt"
	"math"
	"strings"
	"time"

	"community-load/internal/model"

	"gonum.org/v1/gonum/stat"
)

const (
	ResidentialPrefix = "Residential"
	CommercialPrefix  = "Commercial"
)

// IndexMismatchError reports a run whose hourly index does not line up with run 0.
type IndexMismatchError struct {
	Run    int
	Sector string
	Want   int // rows in the compiled index
	Got    int
	// At is the first timestamp present on one side only. Zero when only lengths differ.
	At time.Time
}

func (e *IndexMismatchError) Error() string {
	if !e.At.IsZero() {
		return fmt.Sprintf("%s hourly index does not match run 0 at %s", e.Sector, e.At.Format(time.RFC3339))
	}
	return fmt.Sprintf("%s hourly index has %d rows, run 0 has %d", e.Sector, e.Got, e.Want)
}

// Compiled accumulates one Residential<i> and one Commercial<i> column per run on the
// hourly index established by the first run added.
type Compiled struct {
	frame *model.Frame
	runs  int
}

func NewCompiled() *Compiled { return &Compiled{} }

// Runs returns the number of runs added.
func (c *Compiled) Runs() int { return c.runs }

// Frame returns the compiled table. Nil before the first run.
func (c *Compiled) Frame() *model.Frame { return c.frame }

// AddRun appends run i. The first call fixes the index (residential, or commercial when
// the residential frame is empty). Later runs are joined by timestamp and must cover
// exactly the same index; anything else is an *IndexMismatchError. An empty sector frame
// (no buildings sampled) contributes an all-NaN column.
func (c *Compiled) AddRun(i int, res, com *model.Frame, resCol, comCol string) error {
	if c.frame == nil {
		idx := res.Index
		if res.Empty() {
			idx = com.Index
		}
		c.frame = model.NewFrame(append([]time.Time(nil), idx...))
	}
	resVals, err := c.align(i, "residential", res, resCol)
	if err != nil {
		return err
	}
	comVals, err := c.align(i, "commercial", com, comCol)
	if err != nil {
		return err
	}
	c.frame.Set(fmt.Sprintf("%s%d", ResidentialPrefix, i), resVals)
	c.frame.Set(fmt.Sprintf("%s%d", CommercialPrefix, i), comVals)
	c.runs++
	return nil
}

func (c *Compiled) align(run int, sector string, f *model.Frame, col string) ([]float64, error) {
	want := c.frame.Len()
	if f.Len() == 0 {
		return model.NaNs(want), nil
	}
	if !f.Has(col) {
		return nil, fmt.Errorf("%s hourly frame has no %q column", sector, col)
	}
	if f.Len() != want {
		return nil, &IndexMismatchError{Run: run, Sector: sector, Want: want, Got: f.Len()}
	}
	pos := make(map[int64]int, f.Len())
	for j, ts := range f.Index {
		pos[ts.UnixNano()] = j
	}
	src := f.Col(col)
	out := make([]float64, want)
	for j, ts := range c.frame.Index {
		k, ok := pos[ts.UnixNano()]
		if !ok {
			return nil, &IndexMismatchError{Run: run, Sector: sector, Want: want, Got: f.Len(), At: ts}
		}
		out[j] = src[k]
	}
	return out, nil
}

// Average returns the row mean of the Residential* and Commercial* columns, and their sum
// as Total. NaN cells are skipped; a side with no columns is NaN. Total treats a missing
// side as 0 and is NaN only when both are.
func (c *Compiled) Average() *model.Frame {
	if c.frame == nil {
		out := model.NewFrame(nil)
		out.Set(ResidentialPrefix, []float64{})
		out.Set(CommercialPrefix, []float64{})
		out.Set(TotalColumn, []float64{})
		return out
	}
	var resCols, comCols []string
	for _, col := range c.frame.Columns() {
		switch {
		case strings.HasPrefix(col, ResidentialPrefix):
			resCols = append(resCols, col)
		case strings.HasPrefix(col, CommercialPrefix):
			comCols = append(comCols, col)
		}
	}
	res := c.rowMean(resCols)
	com := c.rowMean(comCols)
	tot := make([]float64, len(res))
	for j := range tot {
		switch {
		case math.IsNaN(res[j]) && math.IsNaN(com[j]):
			tot[j] = math.NaN()
		case math.IsNaN(res[j]):
			tot[j] = com[j]
		case math.IsNaN(com[j]):
			tot[j] = res[j]
		default:
			tot[j] = res[j] + com[j]
		}
	}
	out := model.NewFrame(c.frame.Index)
	out.Set(ResidentialPrefix, res)
	out.Set(CommercialPrefix, com)
	out.Set(TotalColumn, tot)
	return out
}

func (c *Compiled) rowMean(cols []string) []float64 {
	n := c.frame.Len()
	if len(cols) == 0 {
		return model.NaNs(n)
	}
	out := make([]float64, n)
	row := make([]float64, 0, len(cols))
	for j := 0; j < n; j++ {
		row = row[:0]
		for _, col := range cols {
			if v := c.frame.Col(col)[j]; !math.IsNaN(v) {
				row = append(row, v)
			}
		}
		if len(row) == 0 {
			out[j] = math.NaN()
			continue
		}
		out[j] = stat.Mean(row, nil)
	}
	return out
}
