package analysis

import (
	"sort"

	"community-load/internal/model"
)

// LDCPoint is one interval of a load duration curve.
type LDCPoint struct {
	Rank               int
	ExceedanceFraction float64
	ExceedancePercent  float64
	Residential        float64
	Commercial         float64
	Total              float64
}

// LoadDurationCurve sorts intervals by residential + commercial load, highest first.
// Rank 1 is the peak interval and exceedance is rank/(N+1). Missing values count as 0.
func LoadDurationCurve(f *model.Frame, resCol, comCol string) []LDCPoint {
	n := f.Len()
	res, com := f.Col(resCol), f.Col(comCol)
	pts := make([]LDCPoint, n)
	for i := range pts {
		r, c := zeroIfNaN(at(res, i)), zeroIfNaN(at(com, i))
		pts[i] = LDCPoint{Residential: r, Commercial: c, Total: r + c}
	}
	sort.SliceStable(pts, func(i, j int) bool { return pts[i].Total > pts[j].Total })
	for i := range pts {
		pts[i].Rank = i + 1
		pts[i].ExceedanceFraction = float64(i+1) / float64(n+1)
		pts[i].ExceedancePercent = pts[i].ExceedanceFraction * 100
	}
	return pts
}

// LDCTable renders a load duration curve for export.
func LDCTable(pts []LDCPoint) model.Table {
	t := model.Table{
		Header: []string{"rank", "exceedance_fraction", "exceedance_percent", "residential", "commercial", "total"},
		Rows:   make([][]any, 0, len(pts)),
	}
	for _, p := range pts {
		t.Rows = append(t.Rows, []any{p.Rank, p.ExceedanceFraction, p.ExceedancePercent, p.Residential, p.Commercial, p.Total})
	}
	return t
}
