package aggregate

import (
	"errors"
	"math"
	"testing"
	"time"

	"community-load/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2018, 1, 1, 0, 0, 0, 0, time.UTC)

func hourlyIndex(start time.Time, n int) []time.Time {
	out := make([]time.Time, n)
	for i := range out {
		out[i] = start.Add(time.Duration(i) * time.Hour)
	}
	return out
}

func constFrame(start time.Time, n int, col string, v float64) *model.Frame {
	f := model.NewFrame(hourlyIndex(start, n))
	vals := make([]float64, n)
	for i := range vals {
		vals[i] = v
	}
	f.Set(col, vals)
	return f
}

func TestDailyAndMonthlySum(t *testing.T) {
	f := constFrame(t0, 48, "kwh", 1.0)

	d := DailySum(f)
	require.Equal(t, 2, d.Len())
	assert.Equal(t, []float64{24, 24}, d.Col("kwh"))
	assert.Equal(t, t0, d.Index[0])
	assert.Equal(t, t0.AddDate(0, 0, 1), d.Index[1])

	m := MonthlySum(f)
	require.Equal(t, 1, m.Len())
	assert.Equal(t, []float64{48}, m.Col("kwh"))
	assert.Equal(t, time.Date(2018, 1, 31, 0, 0, 0, 0, time.UTC), m.Index[0])
}

func TestResampleHourlySumBuckets(t *testing.T) {
	// 15-minute readings from two buildings, with a gap hour and a NaN.
	idx := []time.Time{
		t0, t0, t0.Add(15 * time.Minute), t0.Add(45 * time.Minute),
		t0.Add(2 * time.Hour), t0.Add(2*time.Hour + 30*time.Minute),
	}
	f := model.NewFrame(idx)
	f.Set("kwh", []float64{1, 2, 3, 4, math.NaN(), 5})
	f.SetText("label", []string{"a", "b", "c", "d", "e", "f"})

	h := ResampleHourlySum(f)
	assert.Equal(t, hourlyIndex(t0, 3), h.Index)
	assert.Equal(t, []float64{10, 0, 5}, h.Col("kwh"))
	assert.Empty(t, h.TextColumns())
}

func TestMeansLeaveEmptyBucketsNaN(t *testing.T) {
	idx := []time.Time{t0, t0.AddDate(0, 0, 2)}
	f := model.NewFrame(idx)
	f.Set("temp", []float64{10, 20})

	d := DailyMean(f, "temp")
	require.Equal(t, 3, d.Len())
	assert.Equal(t, 10.0, d.Col("temp")[0])
	assert.True(t, math.IsNaN(d.Col("temp")[1]))
	assert.Equal(t, 20.0, d.Col("temp")[2])

	assert.True(t, DailyMean(f, "missing").Empty())
	assert.Equal(t, []float64{15}, MonthlyMean(f, "temp").Col("temp"))
}

func TestEmptyFramesPassThrough(t *testing.T) {
	f := model.NewFrame(nil)
	f.Set("kwh", []float64{})
	for _, out := range []*model.Frame{ResampleHourlySum(f), DailySum(f), MonthlySum(f)} {
		assert.True(t, out.Empty())
		assert.Equal(t, []string{"kwh"}, out.Columns())
	}
}

func TestMonthlyLabelsAcrossYearEnd(t *testing.T) {
	start := time.Date(2018, 12, 31, 22, 0, 0, 0, time.UTC)
	m := MonthlySum(constFrame(start, 4, "kwh", 1))
	require.Equal(t, 2, m.Len())
	assert.Equal(t, time.Date(2018, 12, 31, 0, 0, 0, 0, time.UTC), m.Index[0])
	assert.Equal(t, time.Date(2019, 1, 31, 0, 0, 0, 0, time.UTC), m.Index[1])
	assert.Equal(t, []float64{2, 2}, m.Col("kwh"))
}

func TestBuildTotalResidentialOnly(t *testing.T) {
	res := model.NewFrame(hourlyIndex(t0, 3))
	res.Set("res_kwh", []float64{1.5, 2.5, 3.5})
	com := model.NewFrame(hourlyIndex(t0, 3))

	tot := BuildTotal(res, com, "res_kwh", "com_kwh")
	assert.Equal(t, []string{TotalColumn}, tot.Columns())
	assert.Equal(t, res.Col("res_kwh"), tot.Col(TotalColumn))
}

func TestBuildTotalOuterAligns(t *testing.T) {
	res := constFrame(t0, 2, "r", 1)
	com := constFrame(t0.Add(time.Hour), 2, "c", 10)

	tot := BuildTotal(res, com, "r", "c")
	assert.Equal(t, hourlyIndex(t0, 3), tot.Index)
	assert.Equal(t, []float64{1, 11, 10}, tot.Col(TotalColumn))

	assert.True(t, BuildTotal(model.NewFrame(nil), model.NewFrame(nil), "r", "c").Empty())
}

func TestCompiledAverage(t *testing.T) {
	c := NewCompiled()
	require.NoError(t, c.AddRun(0, constFrame(t0, 24, "r", 2), constFrame(t0, 24, "c", 1), "r", "c"))
	require.NoError(t, c.AddRun(1, constFrame(t0, 24, "r", 4), constFrame(t0, 24, "c", 3), "r", "c"))

	assert.Equal(t, 2, c.Runs())
	assert.Equal(t, []string{"Residential0", "Commercial0", "Residential1", "Commercial1"}, c.Frame().Columns())

	avg := c.Average()
	require.Equal(t, 24, avg.Len())
	for i := 0; i < 24; i++ {
		assert.InDelta(t, 3.0, avg.Col("Residential")[i], 1e-12)
		assert.InDelta(t, 2.0, avg.Col("Commercial")[i], 1e-12)
		assert.InDelta(t, 5.0, avg.Col(TotalColumn)[i], 1e-12)
	}
}

func TestCompiledJoinsByTimestamp(t *testing.T) {
	c := NewCompiled()
	require.NoError(t, c.AddRun(0, constFrame(t0, 3, "r", 1), constFrame(t0, 3, "c", 1), "r", "c"))

	// Same timestamps in a different order still line up.
	idx := hourlyIndex(t0, 3)
	shuffled := model.NewFrame([]time.Time{idx[2], idx[0], idx[1]})
	shuffled.Set("r", []float64{30, 10, 20})
	require.NoError(t, c.AddRun(1, shuffled, constFrame(t0, 3, "c", 1), "r", "c"))
	assert.Equal(t, []float64{10, 20, 30}, c.Frame().Col("Residential1"))
}

func TestCompiledRejectsMisalignedRun(t *testing.T) {
	c := NewCompiled()
	require.NoError(t, c.AddRun(0, constFrame(t0, 3, "r", 1), constFrame(t0, 3, "c", 1), "r", "c"))

	err := c.AddRun(1, constFrame(t0, 2, "r", 1), constFrame(t0, 3, "c", 1), "r", "c")
	var mm *IndexMismatchError
	require.True(t, errors.As(err, &mm))
	assert.Equal(t, "residential", mm.Sector)
	assert.Equal(t, 3, mm.Want)
	assert.Equal(t, 2, mm.Got)

	err = c.AddRun(1, constFrame(t0, 3, "r", 1), constFrame(t0.Add(time.Hour), 3, "c", 1), "r", "c")
	require.True(t, errors.As(err, &mm))
	assert.Equal(t, "commercial", mm.Sector)
	assert.Equal(t, t0, mm.At)
	assert.Equal(t, 1, c.Runs())
}

func TestCompiledEmptyResidentialFrame(t *testing.T) {
	c := NewCompiled()
	require.NoError(t, c.AddRun(0, model.NewFrame(nil), constFrame(t0, 4, "c", 3), "r", "c"))
	require.NoError(t, c.AddRun(1, model.NewFrame(nil), constFrame(t0, 4, "c", 5), "r", "c"))

	assert.Equal(t, 2, c.Runs())
	assert.Equal(t, hourlyIndex(t0, 4), c.Frame().Index)
	for _, v := range c.Frame().Col("Residential1") {
		assert.True(t, math.IsNaN(v))
	}

	avg := c.Average()
	require.Equal(t, 4, avg.Len())
	for i := 0; i < 4; i++ {
		assert.True(t, math.IsNaN(avg.Col("Residential")[i]))
		assert.InDelta(t, 4.0, avg.Col("Commercial")[i], 1e-12)
		assert.InDelta(t, 4.0, avg.Col(TotalColumn)[i], 1e-12)
	}
}

func TestCompiledErrorsOmitRunNumber(t *testing.T) {
	c := NewCompiled()
	require.NoError(t, c.AddRun(0, constFrame(t0, 3, "r", 1), constFrame(t0, 3, "c", 1), "r", "c"))

	err := c.AddRun(1, constFrame(t0, 3, "other", 1), constFrame(t0, 3, "c", 1), "r", "c")
	require.Error(t, err)
	assert.Equal(t, `residential hourly frame has no "r" column`, err.Error())

	err = c.AddRun(1, constFrame(t0, 2, "r", 1), constFrame(t0, 3, "c", 1), "r", "c")
	require.Error(t, err)
	assert.Equal(t, "residential hourly index has 2 rows, run 0 has 3", err.Error())
	assert.NotContains(t, err.Error(), "run 1")
}

func TestAverageWithoutCommercialColumns(t *testing.T) {
	c := NewCompiled()
	require.NoError(t, c.AddRun(0, constFrame(t0, 2, "r", 2), constFrame(t0, 2, "c", math.NaN()), "r", "c"))
	avg := c.Average()
	assert.True(t, math.IsNaN(avg.Col("Commercial")[0]))
	assert.Equal(t, 2.0, avg.Col(TotalColumn)[0])
}

func TestTypicalDayMonthly(t *testing.T) {
	f := constFrame(t0, 240, "Total", 1.0)
	td := TypicalDayMonthly(f, "Total", "total")

	long := td.LongTable()
	assert.Equal(t, []string{"sector", "month", "hour", "mean_kwh"}, long.Header)
	require.Len(t, td.Rows, 24)
	for i, r := range td.Rows {
		assert.Equal(t, "total", r.Sector)
		assert.Equal(t, 1, r.Month)
		assert.Equal(t, i, r.Hour)
		assert.Equal(t, 1.0, r.MeanKWh)
	}

	p := td.Pivot()
	require.Len(t, p.Hours, 24)
	assert.Equal(t, 0, p.Hours[0])
	assert.Equal(t, 23, p.Hours[23])
	assert.Equal(t, []int{1}, p.Months)
	assert.Equal(t, []string{"hour", "1"}, p.Table().Header)
}

func TestTypicalDayAveragesPerHour(t *testing.T) {
	f := model.NewFrame([]time.Time{t0, t0.AddDate(0, 0, 1), t0.AddDate(0, 1, 0)})
	f.Set("kwh", []float64{2, 4, 10})
	td := TypicalDayMonthly(f, "kwh", "residential")
	require.Len(t, td.Rows, 2)
	assert.Equal(t, ProfileRow{Sector: "residential", Month: 1, Hour: 0, MeanKWh: 3}, td.Rows[0])
	assert.Equal(t, 2, td.Rows[1].Month)
}

func TestCombineProfilesSortsBySector(t *testing.T) {
	f := constFrame(t0, 2, "kwh", 1)
	combined := CombineProfiles(
		TypicalDayMonthly(f, "kwh", "total"),
		TypicalDayMonthlyByType(f, "kwh", "commercial", "Warehouse"),
	)
	require.Len(t, combined.Rows, 4)
	assert.Equal(t, "commercial", combined.Rows[0].Sector)
	assert.Equal(t, "Warehouse", combined.Rows[0].BuildingType)
	assert.Equal(t, "building_type", combined.LongTable().Header[1])
}

func TestQuantile(t *testing.T) {
	assert.Equal(t, 11.0, Median([]float64{12, 10}))
	assert.Equal(t, 2.0, Median([]float64{3, math.NaN(), 1, 2}))
	assert.True(t, math.IsNaN(Median(nil)))
	assert.InDelta(t, 1.2, Quantile([]float64{1, 2, 3, 4, 5}, 0.05), 1e-12)
}
