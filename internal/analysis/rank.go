package analysis

import (
	"fmt"
	"math"
	"sort"

	"community-load/internal/aggregate"
	"community-load/internal/model"
)

type RunPeak struct {
	Run int
	LoadSummary
}

// RankRunsByPeak summarizes each run's total (Residential<i> + Commercial<i>, missing as 0)
// of a compiled table and sorts descending by peak.
func RankRunsByPeak(compiled *model.Frame) []RunPeak {
	var out []RunPeak
	for i := 0; ; i++ {
		res := compiled.Col(fmt.Sprintf("%s%d", aggregate.ResidentialPrefix, i))
		com := compiled.Col(fmt.Sprintf("%s%d", aggregate.CommercialPrefix, i))
		if res == nil && com == nil {
			break
		}
		tot := model.NewFrame(compiled.Index)
		vals := make([]float64, compiled.Len())
		for j := range vals {
			vals[j] = zeroIfNaN(at(res, j)) + zeroIfNaN(at(com, j))
		}
		tot.Set("total", vals)
		out = append(out, RunPeak{Run: i, LoadSummary: Summarize(fmt.Sprintf("run %d", i), tot, "total")})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Max > out[j].Max
	})
	return out
}

func at(vals []float64, i int) float64 {
	if vals == nil {
		return math.NaN()
	}
	return vals[i]
}

func zeroIfNaN(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return v
}
