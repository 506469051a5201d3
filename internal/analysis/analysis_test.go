package analysis

import (
	"math"
	"testing"
	"time"

	"community-load/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2018, 6, 1, 0, 0, 0, 0, time.UTC)

func frame(cols map[string][]float64, n int) *model.Frame {
	idx := make([]time.Time, n)
	for i := range idx {
		idx[i] = t0.Add(time.Duration(i) * time.Hour)
	}
	f := model.NewFrame(idx)
	for _, name := range []string{"Residential", "Commercial", "Residential0", "Commercial0", "Residential1", "Commercial1"} {
		if v, ok := cols[name]; ok {
			f.Set(name, v)
		}
	}
	return f
}

func TestLoadDurationCurve(t *testing.T) {
	f := frame(map[string][]float64{
		"Residential": {1, 5, 2},
		"Commercial":  {1, math.NaN(), 4},
	}, 3)

	pts := LoadDurationCurve(f, "Residential", "Commercial")
	require.Len(t, pts, 3)
	assert.Equal(t, []float64{6, 5, 2}, []float64{pts[0].Total, pts[1].Total, pts[2].Total})
	assert.Equal(t, 1, pts[0].Rank)
	assert.InDelta(t, 0.25, pts[0].ExceedanceFraction, 1e-12)
	assert.InDelta(t, 75.0, pts[2].ExceedancePercent, 1e-12)
	assert.Equal(t, 0.0, pts[1].Commercial)

	tbl := LDCTable(pts)
	assert.Equal(t, "exceedance_fraction", tbl.Header[1])
	assert.Equal(t, 3, tbl.Len())
}

func TestSummarize(t *testing.T) {
	f := frame(map[string][]float64{"Residential": {1, 2, math.NaN(), 4, 3}}, 5)
	s := Summarize("res", f, "Residential")
	assert.Equal(t, 4, s.Count)
	assert.Equal(t, 1.0, s.Min)
	assert.Equal(t, 4.0, s.Max)
	assert.Equal(t, 2.5, s.Mean)
	assert.Equal(t, 10.0, s.Sum)
	assert.Equal(t, t0.Add(3*time.Hour), s.PeakAt)
	assert.InDelta(t, 0.625, s.LoadFactor, 1e-12)
	assert.InDelta(t, 1.15, s.P05, 1e-12)

	empty := Summarize("none", f, "missing")
	assert.Equal(t, 0, empty.Count)
}

func TestRankRunsByPeak(t *testing.T) {
	f := frame(map[string][]float64{
		"Residential0": {1, 1},
		"Commercial0":  {1, 1},
		"Residential1": {5, 1},
		"Commercial1":  {math.NaN(), 1},
	}, 2)
	ranked := RankRunsByPeak(f)
	require.Len(t, ranked, 2)
	assert.Equal(t, 1, ranked[0].Run)
	assert.Equal(t, 5.0, ranked[0].Max)
	assert.Equal(t, 0, ranked[1].Run)
}
