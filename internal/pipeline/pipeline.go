// Package pipeline runs a scenario end to end: select buildings, read and adjust their
// timeseries, aggregate per run, and write per-run and cross-run outputs.
package pipeline

import (
	"context"
	"fmt"
	"log"
	"time"

	"community-load/internal/aggregate"
	"community-load/internal/config"
	"community-load/internal/data"
	"community-load/internal/model"
	"community-load/internal/paths"
	"community-load/internal/selection"
	"community-load/internal/transform"
	"community-load/internal/weather"
)

// RunIDLayout formats the run id generated when the config does not set one.
const RunIDLayout = "2006-01-02T150405"

// Progress is reported after each sample run and once more when the outputs are written.
type Progress struct {
	Current int
	Total   int
	Message string
}

type ProgressFunc func(Progress)

type Option func(*Pipeline)

// WithLogger sends pipeline logs to l instead of the standard logger.
func WithLogger(l *log.Logger) Option {
	return func(p *Pipeline) {
		if l != nil {
			p.logger = l
		}
	}
}

func WithProgress(fn ProgressFunc) Option {
	return func(p *Pipeline) { p.progress = fn }
}

// WithClock replaces time.Now when generating a run id.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) { p.now = now }
}

// WithCache supplies the decoded-file cache. Without it each Run starts a fresh one. It
// is used only when performance.fast_io is set.
func WithCache(c *data.FileCache) Option {
	return func(p *Pipeline) { p.cache = c }
}

type Pipeline struct {
	cfg      *config.ScenarioConfig
	logger   *log.Logger
	progress ProgressFunc
	now      func() time.Time
	cache    *data.FileCache
}

func New(cfg *config.ScenarioConfig, opts ...Option) *Pipeline {
	p := &Pipeline{
		cfg:    cfg.Clone(),
		logger: log.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run executes every sample run in order and writes the scenario outputs. The first
// failure aborts the whole execution.
func (p *Pipeline) Run(ctx context.Context) (*Result, error) {
	cfg := p.cfg
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	runID := cfg.RunID
	if runID == "" {
		runID = p.now().Format(RunIDLayout)
	}
	resolved := paths.Resolve(cfg, runID)
	if err := paths.EnsureDir(resolved.ScenarioDir); err != nil {
		return nil, fmt.Errorf("failed to create scenario dir: %w", err)
	}
	p.logger.Printf("[Pipeline] Scenario %s: %d run(s) -> %s", runID, cfg.SampleRuns, resolved.ScenarioDir)

	cols := cfg.Columns
	resChars, err := data.ReadCharacteristics(resolved.ResstockCharacteristics, cols.BuildingIDResstock)
	if err != nil {
		return nil, err
	}
	comChars, err := data.ReadCharacteristics(resolved.ComstockCharacteristics, cols.BuildingIDComstock)
	if err != nil {
		return nil, err
	}
	p.logger.Printf("[Pipeline] Characteristics: %d residential, %d commercial", resChars.Len(), comChars.Len())

	cache := p.cache
	if cache == nil {
		cache = data.NewFileCache()
	}

	rng := selection.NewRand(cfg.Seed)
	multipliers := transform.Multipliers(rng, cfg.SampleRuns, cfg.AdjustmentMultiplierOff)

	var wx *model.Frame
	if cfg.Weather.Enabled && len(cfg.Weather.Files) > 0 {
		series, err := weather.Load(cfg.Weather.Files, cfg.Weather.SourceLabels, cfg.Weather.PreferredUnits)
		if err != nil {
			return nil, fmt.Errorf("failed to load weather: %w", err)
		}
		if series != nil {
			wx = series.Frame
			p.logger.Printf("[Pipeline] Weather: %d hourly rows from %d file(s)", wx.Len(), len(cfg.Weather.Files))
		}
	}

	s := &scenario{
		p:        p,
		cfg:      cfg,
		paths:    resolved,
		resChars: resChars,
		comChars: comChars,
		rng:      rng,
		weather:  wx,
		compiled: aggregate.NewCompiled(),
		resReader: p.reader(cache, data.ReadOptions{
			IDColumn: cols.BuildingIDResstock,
			Columns:  p.pruned(cols.ElectricityKWh, cols.ResstockElectricityKWh),
		}),
		comReader: p.reader(cache, data.ReadOptions{
			IDColumn: cols.BuildingIDComstock,
			Columns:  p.pruned(cols.ElectricityKWh, cols.ComstockElectricityKWh),
		}),
		result: &Result{
			RunID:       runID,
			ScenarioDir: resolved.ScenarioDir,
			Multipliers: multipliers,
		},
	}

	total := cfg.SampleRuns + 1
	for i := 0; i < cfg.SampleRuns; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		p.logger.Printf("[Pipeline] Run %d of %d", i, cfg.SampleRuns)
		rec, err := s.run(ctx, i, multipliers[i])
		if err != nil {
			return nil, fmt.Errorf("run %d: %w", i, err)
		}
		s.result.Runs = append(s.result.Runs, rec)
		p.report(i+1, total, fmt.Sprintf("run %d of %d complete", i+1, cfg.SampleRuns))
	}

	if s.compiled.Runs() == 0 {
		p.logger.Printf("[Pipeline] No runs requested, nothing to compile")
		p.report(total, total, "done")
		return s.result, nil
	}
	if err := s.finish(); err != nil {
		return nil, err
	}
	p.report(total, total, "done")
	p.logger.Printf("[Pipeline] Done: %d file(s) written to %s", len(s.result.Files), resolved.ScenarioDir)
	return s.result, nil
}

func (p *Pipeline) reader(cache *data.FileCache, opts data.ReadOptions) *data.Reader {
	r := &data.Reader{Options: opts, Workers: 1}
	if p.cfg.Performance.FastIO {
		r.Workers = p.cfg.Performance.MaxWorkers
		r.Cache = cache
	}
	return r
}

// pruned returns the columns to decode, or nil for all of them.
func (p *Pipeline) pruned(cols ...string) []string {
	if !p.cfg.Performance.FastIO || !p.cfg.Performance.PruneParquetColumns {
		return nil
	}
	return cols
}

func (p *Pipeline) report(current, total int, msg string) {
	if p.progress != nil {
		p.progress(Progress{Current: current, Total: total, Message: msg})
	}
}
