package pipeline

import (
	"context"
	"fmt"
	"math/rand/v2"
	"path/filepath"
	"sort"

	"community-load/internal/aggregate"
	"community-load/internal/analysis"
	"community-load/internal/config"
	"community-load/internal/data"
	"community-load/internal/export"
	"community-load/internal/model"
	"community-load/internal/paths"
	"community-load/internal/selection"
	"community-load/internal/transform"
	"community-load/internal/weather"
)

const (
	sectorResidential = "residential"
	sectorCommercial  = "commercial"
	sectorTotal       = "total"
)

// scenario is the state of one Pipeline.Run.
type scenario struct {
	p     *Pipeline
	cfg   *config.ScenarioConfig
	paths paths.Resolved

	resChars *model.Characteristics
	comChars *model.Characteristics
	rng      *rand.Rand
	weather  *model.Frame

	resReader *data.Reader
	comReader *data.Reader

	compiled *aggregate.Compiled
	workbook export.Workbook
	result   *Result
}

// hourlyRun holds one run's hourly profiles after the weather join, plus the energy-only
// frames the daily and monthly sums are taken from.
type hourlyRun struct {
	res, com, tot          *model.Frame
	resKWh, comKWh, totKWh *model.Frame
}

func (s *scenario) run(ctx context.Context, i int, multiplier float64) (RunRecord, error) {
	cfg, cols := s.cfg, s.cfg.Columns
	rec := RunRecord{Index: i, Multiplier: multiplier}

	runDir := s.paths.RunDir(i)
	if err := paths.EnsureDir(runDir); err != nil {
		return rec, fmt.Errorf("failed to create run dir: %w", err)
	}

	rec.Residential = selection.Residential(cfg, s.resChars, s.rng)
	rec.Commercial = selection.Commercial(cfg, s.comChars, s.rng)
	s.p.logger.Printf("[Pipeline] Run %d: selected %d residential, %d commercial buildings",
		i, len(rec.Residential.IDs), len(rec.Commercial.IDs))

	resTS, err := s.resReader.ReadAll(ctx, requests(s.paths.ResstockTimeseriesDir, rec.Residential.IDs))
	if err != nil {
		return rec, err
	}
	comTS, err := s.comReader.ReadAll(ctx, requests(s.paths.ComstockTimeseriesDir, rec.Commercial.IDs))
	if err != nil {
		return rec, err
	}
	rec.ResidentialRows, rec.CommercialRows = resTS.Len(), comTS.Len()

	resM := transform.Merge(resTS, s.resChars)
	comM := transform.Merge(comTS, s.comChars)

	rec.Adjustment = transform.AdjustMultifamily(cols, cfg.MultifamilyFilter, resM)
	switch {
	case rec.Adjustment.Status == transform.Skipped:
		s.p.logger.Printf("[Pipeline] Run %d: multifamily adjustment skipped: %s", i, rec.Adjustment.Reason)
	case rec.Adjustment.Reason != "":
		s.p.logger.Printf("[Pipeline] Run %d: multifamily adjustment %s", i, rec.Adjustment.Reason)
	}
	rec.MultiplierApplied = transform.ApplyMultiplier(resM, cols.ResstockElectricityKWh, multiplier)
	if !rec.MultiplierApplied {
		s.p.logger.Printf("[Pipeline] Run %d: multiplier skipped, no %q column", i, cols.ResstockElectricityKWh)
	}

	h := s.hourly(resM, comM)
	rec.Hours = h.tot.Len()

	if err := s.compiled.AddRun(i, h.res, h.com, cols.ResstockElectricityKWh, cols.ComstockElectricityKWh); err != nil {
		return rec, err
	}

	if err := s.writeRunProfiles(i, runDir, h); err != nil {
		return rec, err
	}
	if err := s.writeRunTypicalDays(runDir, h, resM, comM); err != nil {
		return rec, err
	}
	if cfg.Outputs.WritePlots && h.tot.Has(aggregate.TotalColumn) {
		path := filepath.Join(s.paths.PlotsDir(), fmt.Sprintf("run_%02d_hourly.png", i))
		title := fmt.Sprintf("Run %d Total Community Hourly Profile", i)
		if err := export.PlotLines(path, title, h.tot, aggregate.TotalColumn); err != nil {
			return rec, fmt.Errorf("failed to plot run %d: %w", i, err)
		}
		s.wrote(path)
	}
	return rec, nil
}

func requests(dir string, ids []string) []data.Request {
	out := make([]data.Request, len(ids))
	for i, id := range ids {
		out[i] = data.Request{BuildingID: id, Path: paths.BuildingFile(dir, id)}
	}
	return out
}

// hourly resamples both sectors to hourly sums of their energy column (every value column
// when the energy column is absent), builds the total and joins the weather.
func (s *scenario) hourly(resM, comM *transform.Merged) hourlyRun {
	cols := s.cfg.Columns
	var h hourlyRun
	h.resKWh = sectorHourly(resM, cols.ResstockElectricityKWh)
	h.comKWh = sectorHourly(comM, cols.ComstockElectricityKWh)
	h.totKWh = aggregate.BuildTotal(h.resKWh, h.comKWh, cols.ResstockElectricityKWh, cols.ComstockElectricityKWh)

	h.res, h.com, h.tot = h.resKWh, h.comKWh, h.totKWh
	if s.weather != nil {
		h.res = h.res.Join(s.weather)
		h.com = h.com.Join(s.weather)
		h.tot = h.tot.Join(s.weather)
	}
	return h
}

func sectorHourly(m *transform.Merged, col string) *model.Frame {
	if m.HasColumn(col) {
		return aggregate.ResampleHourlySum(m.Frame(col))
	}
	return aggregate.ResampleHourlySum(m.Frame(m.Columns...))
}

func (s *scenario) writeRunProfiles(i int, runDir string, h hourlyRun) error {
	resD, comD, totD := aggregate.DailySum(h.resKWh), aggregate.DailySum(h.comKWh), aggregate.DailySum(h.totKWh)
	resMo, comMo, totMo := aggregate.MonthlySum(h.resKWh), aggregate.MonthlySum(h.comKWh), aggregate.MonthlySum(h.totKWh)

	// Temperature is carried to daily and monthly frames as a mean, never a sum.
	if h.tot.Has(weather.TemperatureColumn) {
		tD := aggregate.DailyMean(h.tot, weather.TemperatureColumn)
		tM := aggregate.MonthlyMean(h.tot, weather.TemperatureColumn)
		resD, comD, totD = resD.Join(tD), comD.Join(tD), totD.Join(tD)
		resMo, comMo, totMo = resMo.Join(tM), comMo.Join(tM), totMo.Join(tM)
	}

	if s.cfg.Outputs.WriteXLSX && s.cfg.Profiles.WorkbookIncludeRun0 && i == 0 {
		s.workbook.Add("run0_total_hourly", h.tot.Table())
		s.workbook.Add("run0_total_daily", totD.Table())
		s.workbook.Add("run0_total_monthly", totMo.Table())
	}

	if !s.cfg.Outputs.WriteCSV {
		return nil
	}
	files := []struct {
		name string
		f    *model.Frame
	}{
		{"residential_community_load_profile_hourly.csv", h.res},
		{"commercial_community_load_profile_hourly.csv", h.com},
		{"total_community_load_profile_hourly.csv", h.tot},
		{"residential_community_load_profile_daily.csv", resD},
		{"commercial_community_load_profile_daily.csv", comD},
		{"total_community_load_profile_daily.csv", totD},
		{"residential_community_load_profile_monthly.csv", resMo},
		{"commercial_community_load_profile_monthly.csv", comMo},
		{"total_community_load_profile_monthly.csv", totMo},
	}
	for _, out := range files {
		if err := s.writeCSV(filepath.Join(runDir, out.name), out.f.Table()); err != nil {
			return err
		}
	}
	return nil
}

func (s *scenario) writeRunTypicalDays(runDir string, h hourlyRun, resM, comM *transform.Merged) error {
	cfg, cols := s.cfg, s.cfg.Columns
	prof := cfg.Profiles
	if !prof.WriteTypicalDayByMonth || !cfg.Outputs.WriteCSV {
		return nil
	}
	if !h.res.Has(cols.ResstockElectricityKWh) || !h.com.Has(cols.ComstockElectricityKWh) {
		return nil
	}
	resTD := aggregate.TypicalDayMonthly(h.res, cols.ResstockElectricityKWh, sectorResidential)
	comTD := aggregate.TypicalDayMonthly(h.com, cols.ComstockElectricityKWh, sectorCommercial)

	if prof.WriteLongCSV {
		if err := s.writeCSV(filepath.Join(runDir, "typical_day_monthly_residential_long.csv"), resTD.LongTable()); err != nil {
			return err
		}
		if err := s.writeCSV(filepath.Join(runDir, "typical_day_monthly_commercial_long.csv"), comTD.LongTable()); err != nil {
			return err
		}
	}
	if prof.WritePivotCSV {
		if err := s.writeCSV(filepath.Join(runDir, "typical_day_monthly_residential_pivot.csv"), resTD.Pivot().Table()); err != nil {
			return err
		}
		if err := s.writeCSV(filepath.Join(runDir, "typical_day_monthly_commercial_pivot.csv"), comTD.Pivot().Table()); err != nil {
			return err
		}
	}
	if !prof.WriteLongCSV {
		return nil
	}

	if prof.IncludeByBuildingType {
		byType := aggregate.CombineProfiles(
			typicalDaysByType(resM, cols.ResstockBuildingType, cols.ResstockElectricityKWh, sectorResidential),
			typicalDaysByType(comM, cols.ComstockBuildingType, cols.ComstockElectricityKWh, sectorCommercial),
		)
		if len(byType.Rows) > 0 {
			if err := s.writeCSV(filepath.Join(runDir, "typical_day_monthly_by_building_type_long.csv"), byType.LongTable()); err != nil {
				return err
			}
		}
	}
	if prof.IncludeSectorComparison {
		cmp := aggregate.CombineProfiles(resTD, comTD,
			aggregate.TypicalDayMonthly(h.tot, aggregate.TotalColumn, sectorTotal))
		if err := s.writeCSV(filepath.Join(runDir, "typical_day_monthly_sector_comparison_long.csv"), cmp.LongTable()); err != nil {
			return err
		}
	}
	return nil
}

// typicalDaysByType resamples each building type's rows to hourly sums and computes its
// typical day by month.
func typicalDaysByType(m *transform.Merged, typeCol, col, sector string) aggregate.TypicalDay {
	groups := m.FramesByAttribute(typeCol, col)
	types := make([]string, 0, len(groups))
	for t := range groups {
		types = append(types, t)
	}
	sort.Strings(types)

	parts := make([]aggregate.TypicalDay, 0, len(types))
	for _, t := range types {
		hourly := aggregate.ResampleHourlySum(groups[t])
		parts = append(parts, aggregate.TypicalDayMonthlyByType(hourly, col, sector, t))
	}
	return aggregate.CombineProfiles(parts...)
}

// finish writes the cross-run outputs.
func (s *scenario) finish() error {
	cfg := s.cfg
	dir := s.paths.ScenarioDir
	compiled := s.compiled.Frame()

	avg := s.compiled.Average()
	avgD := aggregate.DailySum(avg)
	avgMo := aggregate.MonthlySum(avg)
	s.result.Average = avg

	s.result.Summaries = []analysis.LoadSummary{
		analysis.Summarize(aggregate.ResidentialPrefix, avg, aggregate.ResidentialPrefix),
		analysis.Summarize(aggregate.CommercialPrefix, avg, aggregate.CommercialPrefix),
		analysis.Summarize(aggregate.TotalColumn, avg, aggregate.TotalColumn),
	}
	s.result.Peaks = analysis.RankRunsByPeak(compiled)
	ldc := analysis.LoadDurationCurve(avg, aggregate.ResidentialPrefix, aggregate.CommercialPrefix)

	if cfg.Outputs.WriteCSV {
		outputs := []struct {
			name string
			t    model.Table
		}{
			{"compiled_runs.csv", compiled.Table()},
			{"residential_load_profile_total.csv", avg.Select(aggregate.ResidentialPrefix).Table()},
			{"commercial_load_profile_total.csv", avg.Select(aggregate.CommercialPrefix).Table()},
			{"total_load_profile_total.csv", avg.Select(aggregate.TotalColumn).Table()},
			{"merged_community_load_profile_daily_average.csv", avgD.Table()},
			{"merged_community_load_profile_monthly_average.csv", avgMo.Table()},
			{"load_duration_curve.csv", analysis.LDCTable(ldc)},
		}
		for _, out := range outputs {
			if err := s.writeCSV(filepath.Join(dir, out.name), out.t); err != nil {
				return err
			}
		}
		if err := s.writeAverageTypicalDay(avg); err != nil {
			return err
		}
	}

	if cfg.Outputs.WriteTXT {
		ov := export.Overview{
			RunID:       s.result.RunID,
			State:       cfg.State,
			Upgrade:     cfg.UpgradeNum,
			Seed:        cfg.Seed,
			Runs:        s.compiled.Runs(),
			Multipliers: s.result.Multipliers,
			Summaries:   s.result.Summaries,
			Peaks:       s.result.Peaks,
		}
		path := filepath.Join(dir, s.result.RunID+"-overview.txt")
		if err := export.WriteText(path, ov.String()); err != nil {
			return fmt.Errorf("failed to write overview: %w", err)
		}
		s.wrote(path)
	}

	if cfg.Outputs.WriteXLSX {
		s.workbook.Add("compiled_runs", compiled.Table())
		s.workbook.Add("avg_hourly", avg.Table())
		s.workbook.Add("avg_daily", avgD.Table())
		s.workbook.Add("avg_monthly", avgMo.Table())
		path := filepath.Join(s.paths.ExcelDir(), "summary.xlsx")
		if err := s.workbook.Save(path); err != nil {
			return fmt.Errorf("failed to write workbook: %w", err)
		}
		s.wrote(path)
	}

	if cfg.Outputs.WritePlots && avg.Len() > 0 {
		path := filepath.Join(s.paths.PlotsDir(), "average_total_hourly.png")
		if err := export.PlotLines(path, "Average Total Community Hourly Profile", avg, aggregate.TotalColumn); err != nil {
			return fmt.Errorf("failed to plot average: %w", err)
		}
		s.wrote(path)

		path = filepath.Join(s.paths.PlotsDir(), "average_load_duration_curve.png")
		if err := export.PlotLoadDuration(path, "Average Load Duration Curve", ldc); err != nil {
			return fmt.Errorf("failed to plot load duration curve: %w", err)
		}
		s.wrote(path)
	}
	return nil
}

func (s *scenario) writeAverageTypicalDay(avg *model.Frame) error {
	prof := s.cfg.Profiles
	if !prof.WriteTypicalDayByMonth || !prof.AverageAcrossRuns {
		return nil
	}
	dir := s.paths.ScenarioDir
	if prof.WriteLongCSV {
		long := aggregate.CombineProfiles(
			aggregate.TypicalDayMonthly(avg, aggregate.ResidentialPrefix, sectorResidential),
			aggregate.TypicalDayMonthly(avg, aggregate.CommercialPrefix, sectorCommercial),
			aggregate.TypicalDayMonthly(avg, aggregate.TotalColumn, sectorTotal),
		)
		if err := s.writeCSV(filepath.Join(dir, "typical_day_monthly_average_long.csv"), long.LongTable()); err != nil {
			return err
		}
	}
	if prof.WritePivotCSV {
		pivot := aggregate.TypicalDayMonthly(avg, aggregate.TotalColumn, sectorTotal).Pivot()
		if err := s.writeCSV(filepath.Join(dir, "typical_day_monthly_average_pivot.csv"), pivot.Table()); err != nil {
			return err
		}
	}
	return nil
}

func (s *scenario) writeCSV(path string, t model.Table) error {
	if err := export.WriteCSV(path, t); err != nil {
		return fmt.Errorf("failed to write %s: %w", filepath.Base(path), err)
	}
	s.wrote(path)
	return nil
}

func (s *scenario) wrote(path string) {
	s.result.Files = append(s.result.Files, path)
}
