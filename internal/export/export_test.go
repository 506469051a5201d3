package export

import (
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"community-load/internal/analysis"
	"community-load/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"gonum.org/v1/plot/plotter"
)

func hourlyFrame(n int, vals ...float64) *model.Frame {
	start := time.Date(2018, 1, 1, 0, 0, 0, 0, time.UTC)
	idx := make([]time.Time, n)
	for i := range idx {
		idx[i] = start.Add(time.Duration(i) * time.Hour)
	}
	f := model.NewFrame(idx)
	col := make([]float64, n)
	for i := range col {
		col[i] = vals[i%len(vals)]
	}
	f.Set("Total", col)
	return f
}

func TestWriteCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "out.csv")
	tbl := model.Table{
		Header: []string{"timestamp", "value", "label", "n"},
		Rows: [][]any{
			{time.Date(2018, 1, 1, 5, 0, 0, 0, time.UTC), 1.5, "a", 3},
			{time.Date(2018, 1, 1, 6, 0, 0, 0, time.UTC), math.NaN(), "", 4},
		},
	}
	require.NoError(t, WriteCSV(path, tbl))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(raw)), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "timestamp,value,label,n", lines[0])
	assert.Equal(t, "2018-01-01 05:00:00,1.500000,a,3", lines[1])
	assert.Equal(t, "2018-01-01 06:00:00,,,4", lines[2])
}

func TestWriteText(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a", "b.txt")
	require.NoError(t, WriteText(path, "hello\n"))
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "hello\n", string(raw))
}

func TestWorkbookSave(t *testing.T) {
	path := filepath.Join(t.TempDir(), "excel", "summary.xlsx")
	var wb Workbook
	wb.Add("compiled_runs", model.Table{
		Header: []string{"hour", "value"},
		Rows:   [][]any{{0, 1.5}, {1, 2.5}},
	})
	wb.Add("avg_hourly", model.Table{Header: []string{"x"}, Rows: [][]any{{"a"}}})
	wb.Add("avg_hourly", model.Table{Header: []string{"y"}, Rows: [][]any{{"b"}}})
	assert.Equal(t, 2, wb.Len())
	require.NoError(t, wb.Save(path))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{"compiled_runs", "avg_hourly"}, f.GetSheetList())
	rows, err := f.GetRows("compiled_runs")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"hour", "value"}, rows[0])
	assert.Equal(t, []string{"1", "2.5"}, rows[2])

	rows, err = f.GetRows("avg_hourly")
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"y"}, {"b"}}, rows)
}

func TestWorkbookTruncatesLongNames(t *testing.T) {
	var wb Workbook
	wb.Add(strings.Repeat("s", 40), model.Table{Header: []string{"a"}})
	assert.Len(t, wb.sheets[0].name, maxSheetName)
}

func TestWorkbookEmpty(t *testing.T) {
	var wb Workbook
	assert.Error(t, wb.Save(filepath.Join(t.TempDir(), "x.xlsx")))
}

func TestPlotLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plots", "run_00_hourly.png")
	f := hourlyFrame(48, 1, 2, math.NaN(), 4)
	require.NoError(t, PlotLines(path, "Run 0", f, "Total", "missing"))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))
}

func TestPlotLinesNoData(t *testing.T) {
	f := hourlyFrame(4, math.NaN())
	assert.Error(t, PlotLines(filepath.Join(t.TempDir(), "x.png"), "empty", f, "Total"))
}

func TestPlotLoadDuration(t *testing.T) {
	f := hourlyFrame(24, 1, 3, 2)
	f.Set("Residential", f.Col("Total"))
	f.Set("Commercial", f.Col("Total"))
	pts := analysis.LoadDurationCurve(f, "Residential", "Commercial")

	path := filepath.Join(t.TempDir(), "ldc.png")
	require.NoError(t, PlotLoadDuration(path, "LDC", pts))
	_, err := os.Stat(path)
	require.NoError(t, err)

	assert.Error(t, PlotLoadDuration(path, "LDC", nil))
}

func TestBand(t *testing.T) {
	upper := plotter.XYs{{X: 1, Y: 3}, {X: 2, Y: 2}}
	lower := plotter.XYs{{X: 1, Y: 1}, {X: 2, Y: 1}}
	pts := band(upper, lower)
	require.Len(t, pts, 4)
	assert.Equal(t, []float64{3, 2, 1, 1}, []float64{pts[0].Y, pts[1].Y, pts[2].Y, pts[3].Y})
	assert.Equal(t, []float64{1, 2, 2, 1}, []float64{pts[0].X, pts[1].X, pts[2].X, pts[3].X})

	base := band(upper, nil)
	assert.Equal(t, 0.0, base[3].Y)
}

func TestOverviewString(t *testing.T) {
	o := Overview{RunID: "r1", State: "CO", Upgrade: 0, Seed: 42}
	assert.Equal(t, "Run ID: r1\nState: CO\nUpgrade: 0\nSeed: 42\n", o.String())

	o.Runs = 2
	o.Multipliers = []float64{1.1, 0.9}
	o.Summaries = []analysis.LoadSummary{{Series: "Total", Max: 10, Mean: 5, PeakAt: time.Date(2018, 7, 1, 17, 0, 0, 0, time.UTC)}}
	o.Peaks = []analysis.RunPeak{{Run: 1, LoadSummary: analysis.LoadSummary{Max: 12}}}
	s := o.String()
	assert.True(t, strings.HasPrefix(s, "Run ID: r1\nState: CO\nUpgrade: 0\nSeed: 42\n"))
	assert.Contains(t, s, "Sample runs: 2")
	assert.Contains(t, s, "1.1000 0.9000")
	assert.Contains(t, s, "2018-07-01 17:00:00")
	assert.Contains(t, s, "Run-1  peak 12.000 kWh at -")
}
