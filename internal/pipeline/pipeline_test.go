package pipeline

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"community-load/internal/aggregate"
	"community-load/internal/config"
	"community-load/internal/data"
	"community-load/internal/demo"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

var quiet = WithLogger(log.New(io.Discard, "", 0))

func demoScenario(t *testing.T, mutate func(*demo.Options)) (*demo.Dataset, *config.ScenarioConfig) {
	t.Helper()
	opts := demo.DefaultOptions()
	opts.Days = 3
	opts.PerType = 2
	if mutate != nil {
		mutate(&opts)
	}
	ds, err := demo.Generate(t.TempDir(), opts)
	require.NoError(t, err)
	cfg, err := config.Load(ds.ScenarioPath)
	require.NoError(t, err)
	return ds, cfg
}

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	return rows
}

func TestRunWritesScenarioLayout(t *testing.T) {
	_, cfg := demoScenario(t, nil)

	res, err := New(cfg, quiet).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "demo", res.RunID)
	require.Len(t, res.Runs, 2)
	require.Len(t, res.Multipliers, 2)

	dir := res.ScenarioDir
	assert.Equal(t, filepath.Join(cfg.OutputRoot, "scenario_runs", "demo"), dir)

	expected := []string{
		"compiled_runs.csv",
		"residential_load_profile_total.csv",
		"commercial_load_profile_total.csv",
		"total_load_profile_total.csv",
		"merged_community_load_profile_daily_average.csv",
		"merged_community_load_profile_monthly_average.csv",
		"typical_day_monthly_average_long.csv",
		"typical_day_monthly_average_pivot.csv",
		"load_duration_curve.csv",
		"demo-overview.txt",
		"excel/summary.xlsx",
		"plots/run_00_hourly.png",
		"plots/run_01_hourly.png",
		"plots/average_total_hourly.png",
		"plots/average_load_duration_curve.png",
	}
	for i := 0; i < 2; i++ {
		run := fmt.Sprintf("Run-%d", i)
		for _, sector := range []string{"residential", "commercial", "total"} {
			for _, freq := range []string{"hourly", "daily", "monthly"} {
				expected = append(expected, filepath.Join(run, sector+"_community_load_profile_"+freq+".csv"))
			}
		}
		for _, name := range []string{
			"typical_day_monthly_residential_long.csv",
			"typical_day_monthly_commercial_long.csv",
			"typical_day_monthly_residential_pivot.csv",
			"typical_day_monthly_commercial_pivot.csv",
			"typical_day_monthly_by_building_type_long.csv",
			"typical_day_monthly_sector_comparison_long.csv",
		} {
			expected = append(expected, filepath.Join(run, name))
		}
	}
	for _, rel := range expected {
		_, err := os.Stat(filepath.Join(dir, rel))
		assert.NoError(t, err, rel)
	}
	assert.Len(t, res.Files, len(expected))
}

func TestRunProfiles(t *testing.T) {
	_, cfg := demoScenario(t, nil)
	res, err := New(cfg, quiet).Run(context.Background())
	require.NoError(t, err)

	// 3 days of 15 minute readings resample to 72 hourly rows.
	require.NotNil(t, res.Average)
	assert.Equal(t, 72, res.Average.Len())
	assert.Equal(t, []string{"Residential", "Commercial", "Total"}, res.Average.Columns())

	for _, run := range res.Runs {
		assert.Equal(t, 72, run.Hours)
		assert.Len(t, run.Residential.IDs, 10)
		assert.Len(t, run.Commercial.IDs, 29)
		assert.Equal(t, 10*3*96, run.ResidentialRows)
		assert.Equal(t, "adjusted", run.Adjustment.Status.String())
		assert.True(t, run.MultiplierApplied)
	}

	compiled := readCSV(t, filepath.Join(res.ScenarioDir, "compiled_runs.csv"))
	assert.Equal(t, []string{"timestamp", "Residential0", "Commercial0", "Residential1", "Commercial1"}, compiled[0])
	assert.Len(t, compiled, 73)
	assert.Equal(t, "2018-01-01 00:00:00", compiled[1][0])

	hourly := readCSV(t, filepath.Join(res.ScenarioDir, "Run-0", "total_community_load_profile_hourly.csv"))
	assert.Equal(t, []string{"timestamp", "Total", "outdoor_air_temperature", "weather_source"}, hourly[0])
	assert.Equal(t, "demo_station", hourly[1][3])

	daily := readCSV(t, filepath.Join(res.ScenarioDir, "Run-0", "total_community_load_profile_daily.csv"))
	assert.Equal(t, []string{"timestamp", "Total", "outdoor_air_temperature"}, daily[0])
	assert.Len(t, daily, 4)

	monthly := readCSV(t, filepath.Join(res.ScenarioDir, "Run-0", "residential_community_load_profile_monthly.csv"))
	require.Len(t, monthly, 2)
	assert.Equal(t, "2018-01-31 00:00:00", monthly[1][0])

	long := readCSV(t, filepath.Join(res.ScenarioDir, "Run-0", "typical_day_monthly_residential_long.csv"))
	assert.Equal(t, []string{"sector", "month", "hour", "mean_kwh"}, long[0])
	assert.Len(t, long, 25)

	byType := readCSV(t, filepath.Join(res.ScenarioDir, "Run-0", "typical_day_monthly_by_building_type_long.csv"))
	assert.Equal(t, []string{"sector", "building_type", "month", "hour", "mean_kwh"}, byType[0])

	ldc := readCSV(t, filepath.Join(res.ScenarioDir, "load_duration_curve.csv"))
	require.Len(t, ldc, 73)
	assert.Equal(t, "1", ldc[1][0])
	assert.Equal(t, "72", ldc[72][0])

	overview, err := os.ReadFile(filepath.Join(res.ScenarioDir, "demo-overview.txt"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(overview), "Run ID: demo\nState: CO\nUpgrade: 0\nSeed: 7\n"))

	wb, err := excelize.OpenFile(filepath.Join(res.ScenarioDir, "excel", "summary.xlsx"))
	require.NoError(t, err)
	defer wb.Close()
	assert.Equal(t, []string{
		"run0_total_hourly", "run0_total_daily", "run0_total_monthly",
		"compiled_runs", "avg_hourly", "avg_daily", "avg_monthly",
	}, wb.GetSheetList())

	require.Len(t, res.Summaries, 3)
	assert.Equal(t, "Total", res.Summaries[2].Series)
	assert.Greater(t, res.Summaries[2].Max, res.Summaries[0].Max)
	require.Len(t, res.Peaks, 2)
	assert.GreaterOrEqual(t, res.Peaks[0].Max, res.Peaks[1].Max)
}

func TestRunIsDeterministic(t *testing.T) {
	_, cfg := demoScenario(t, nil)

	a, err := New(cfg.WithRunID("a"), quiet).Run(context.Background())
	require.NoError(t, err)
	b, err := New(cfg.WithRunID("b"), quiet).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, a.Multipliers, b.Multipliers)
	for i := range a.Runs {
		assert.Equal(t, a.Runs[i].Residential.IDs, b.Runs[i].Residential.IDs)
		assert.Equal(t, a.Runs[i].Commercial.IDs, b.Runs[i].Commercial.IDs)
	}
	assert.Equal(t,
		readCSV(t, filepath.Join(a.ScenarioDir, "compiled_runs.csv")),
		readCSV(t, filepath.Join(b.ScenarioDir, "compiled_runs.csv")))
}

func TestRunFastIOMatchesSequential(t *testing.T) {
	_, cfg := demoScenario(t, func(o *demo.Options) { o.Parquet = true })
	cfg.Outputs = config.OutputOptions{}

	seq, err := New(cfg.WithRunID("seq"), quiet).Run(context.Background())
	require.NoError(t, err)

	perf := cfg.Performance
	perf.FastIO = true
	perf.MaxWorkers = 4
	cache := data.NewFileCache()
	fast, err := New(cfg.WithPerformance(perf).WithRunID("fast"), quiet, WithCache(cache)).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, seq.Average.Col("Total"), fast.Average.Col("Total"))
	files, hits := cache.Stats()
	assert.Greater(t, files, 0)
	assert.Greater(t, hits, 0)
}

func TestRunWithOutputsDisabled(t *testing.T) {
	_, cfg := demoScenario(t, nil)
	cfg.Outputs = config.OutputOptions{}

	res, err := New(cfg, quiet).Run(context.Background())
	require.NoError(t, err)
	assert.Empty(t, res.Files)
	assert.NotNil(t, res.Average)

	_, err = os.Stat(filepath.Join(res.ScenarioDir, "Run-1"))
	assert.NoError(t, err)
}

func TestRunWithoutWeather(t *testing.T) {
	_, cfg := demoScenario(t, func(o *demo.Options) { o.Weather = false })
	cfg.Outputs = config.OutputOptions{WriteCSV: true}

	res, err := New(cfg, quiet).Run(context.Background())
	require.NoError(t, err)
	daily := readCSV(t, filepath.Join(res.ScenarioDir, "Run-0", "total_community_load_profile_daily.csv"))
	assert.Equal(t, []string{"timestamp", "Total"}, daily[0])
}

func TestRunZeroSampleRuns(t *testing.T) {
	_, cfg := demoScenario(t, nil)
	cfg.SampleRuns = 0

	res, err := New(cfg, quiet).Run(context.Background())
	require.NoError(t, err)
	assert.Nil(t, res.Average)
	assert.Empty(t, res.Runs)
	assert.Empty(t, res.Files)
}

func TestRunWithoutResidentialBuildings(t *testing.T) {
	_, cfg := demoScenario(t, func(o *demo.Options) { o.TotalBuildings = 0 })
	require.Equal(t, 0, cfg.Neighborhood.TotalBuildings)

	res, err := New(cfg, quiet).Run(context.Background())
	require.NoError(t, err)
	require.Len(t, res.Runs, 2)
	for _, rec := range res.Runs {
		assert.Empty(t, rec.Residential.IDs)
		assert.Zero(t, rec.ResidentialRows)
		assert.NotZero(t, rec.CommercialRows)
	}

	avg := res.Average
	require.NotNil(t, avg)
	require.NotZero(t, avg.Len())
	for i := 0; i < avg.Len(); i++ {
		assert.True(t, math.IsNaN(avg.Col(aggregate.ResidentialPrefix)[i]))
		assert.Equal(t, avg.Col(aggregate.CommercialPrefix)[i], avg.Col(aggregate.TotalColumn)[i])
	}
}

func TestRunReportsProgress(t *testing.T) {
	_, cfg := demoScenario(t, nil)
	cfg.Outputs = config.OutputOptions{}

	var got []Progress
	_, err := New(cfg, quiet, WithProgress(func(p Progress) { got = append(got, p) })).Run(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, Progress{Current: 1, Total: 3, Message: "run 1 of 2 complete"}, got[0])
	assert.Equal(t, 3, got[2].Current)
	assert.Equal(t, "done", got[2].Message)
}

func TestRunGeneratesRunID(t *testing.T) {
	_, cfg := demoScenario(t, nil)
	cfg.RunID = ""
	cfg.SampleRuns = 0
	clock := func() time.Time { return time.Date(2024, 3, 5, 14, 7, 9, 0, time.UTC) }

	res, err := New(cfg, quiet, WithClock(clock)).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "2024-03-05T140709", res.RunID)
	_, err = os.Stat(filepath.Join(cfg.OutputRoot, "scenario_runs", "2024-03-05T140709"))
	assert.NoError(t, err)
}

func TestRunInvalidConfigDoesNoIO(t *testing.T) {
	_, cfg := demoScenario(t, nil)
	cfg.Neighborhood.MultifamilyFraction = 0.9

	_, err := New(cfg, quiet).Run(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, config.ErrConfiguration))
	_, statErr := os.Stat(cfg.OutputRoot)
	assert.True(t, os.IsNotExist(statErr))
}

func TestRunMissingInputs(t *testing.T) {
	t.Run("characteristics", func(t *testing.T) {
		_, cfg := demoScenario(t, nil)
		cfg.ComstockCharacteristicsXLSX = "comstock/missing.xlsx"
		_, err := New(cfg, quiet).Run(context.Background())
		require.Error(t, err)
		assert.True(t, errors.Is(err, data.ErrInputNotFound))

		var nf *data.NotFoundError
		require.True(t, errors.As(err, &nf))
		assert.Equal(t, "characteristics", nf.Kind)
	})

	t.Run("timeseries", func(t *testing.T) {
		ds, cfg := demoScenario(t, nil)
		require.NoError(t, os.RemoveAll(filepath.Join(ds.InputRoot, "comstock", "CO", "up0", "timeseries")))
		_, err := New(cfg, quiet).Run(context.Background())
		require.Error(t, err)
		assert.True(t, errors.Is(err, data.ErrInputNotFound))
		assert.Contains(t, err.Error(), "run 0")
	})

	t.Run("weather", func(t *testing.T) {
		_, cfg := demoScenario(t, nil)
		w := cfg.Weather
		w.Files = []string{filepath.Join(t.TempDir(), "nope.csv")}
		_, err := New(cfg.WithWeather(w), quiet).Run(context.Background())
		require.Error(t, err)
		assert.True(t, errors.Is(err, data.ErrInputNotFound))
	})
}

func TestRunCancelled(t *testing.T) {
	_, cfg := demoScenario(t, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New(cfg, quiet).Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewClonesConfig(t *testing.T) {
	_, cfg := demoScenario(t, nil)
	p := New(cfg, quiet)
	cfg.SampleRuns = 99
	assert.Equal(t, 2, p.cfg.SampleRuns)
}
