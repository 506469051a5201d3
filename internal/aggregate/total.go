package aggregate

import (
	"math"
	"time"

	"community-load/internal/model"
)

// TotalColumn names the combined residential + commercial column.
const TotalColumn = "Total"

// BuildTotal adds the residential and commercial energy columns over the union of their
// indexes, treating gaps as 0. A side whose column is absent is skipped; when both are
// absent the result is empty.
func BuildTotal(res, com *model.Frame, resCol, comCol string) *model.Frame {
	var parts []*model.Frame
	if res.Has(resCol) {
		parts = append(parts, res.Select(resCol).Rename(resCol, "part"))
	}
	if com.Has(comCol) {
		parts = append(parts, com.Select(comCol).Rename(comCol, "part"))
	}
	if len(parts) == 0 {
		return model.NewFrame(nil)
	}

	indexes := make([][]time.Time, len(parts))
	for i, p := range parts {
		indexes[i] = p.Index
	}
	out := model.NewFrame(model.UnionIndex(indexes...))
	total := make([]float64, out.Len())
	for _, p := range parts {
		aligned := out.Join(p).Col("part")
		for i, v := range aligned {
			if !math.IsNaN(v) {
				total[i] += v
			}
		}
	}
	out.Set(TotalColumn, total)
	return out
}
