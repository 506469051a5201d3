// Package runner executes queued runs in process: it claims the oldest queued run from
// the store, runs the pipeline with the stored config and records progress, log and
// outcome.
package runner

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"community-load/internal/config"
	"community-load/internal/paths"
	"community-load/internal/pipeline"
	"community-load/internal/store"
)

const (
	ModePipeline = "pipeline"
	// ModeMock completes every run in three synthetic steps without reading any data.
	ModeMock = "mock"

	mockSteps = 3
)

type Options struct {
	Mode string
	// RunsRoot resolves relative input_root and output_root of submitted configs.
	RunsRoot     string
	PollInterval time.Duration
	// MockStepDelay is the pause between mock steps.
	MockStepDelay time.Duration
}

type Runner struct {
	store   store.Store
	hub     *Hub
	metrics *Metrics
	opts    Options
}

// New returns a runner. hub and metrics may be nil.
func New(s store.Store, hub *Hub, metrics *Metrics, opts Options) *Runner {
	if opts.Mode == "" {
		opts.Mode = ModePipeline
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = time.Second
	}
	if opts.MockStepDelay <= 0 {
		opts.MockStepDelay = 10 * time.Millisecond
	}
	return &Runner{store: s, hub: hub, metrics: metrics, opts: opts}
}

// Run polls for queued runs until ctx is cancelled.
func (r *Runner) Run(ctx context.Context) {
	log.Printf("[Runner] Started in %s mode, polling every %s", r.opts.Mode, r.opts.PollInterval)
	for {
		processed, err := r.ProcessNext(ctx)
		if err != nil && ctx.Err() == nil {
			log.Printf("[Runner] %v", err)
		}
		if processed {
			continue
		}
		select {
		case <-ctx.Done():
			log.Printf("[Runner] Stopped")
			return
		case <-time.After(r.opts.PollInterval):
		}
	}
}

// ProcessNext claims and executes the oldest queued run. It reports whether a run was
// found. A failed run is recorded in the store and is not an error here.
func (r *Runner) ProcessNext(ctx context.Context) (bool, error) {
	run, err := r.store.ClaimNextRun(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to claim run: %w", err)
	}
	if run == nil {
		return false, nil
	}
	return true, r.execute(ctx, run)
}

func (r *Runner) execute(ctx context.Context, run *store.Run) error {
	start := time.Now()
	if r.metrics != nil {
		r.metrics.RunsActive.Inc()
		defer r.metrics.RunsActive.Dec()
	}
	log.Printf("[Runner] Run %s (config %d) started", run.ID, run.ConfigID)
	r.publish(Message{Type: TypeStatus, RunID: run.ID, Status: string(store.StatusRunning)})

	w := &runLog{ctx: ctx, runID: run.ID, store: r.store, hub: r.hub, metrics: r.metrics}
	logger := log.New(w, "", log.LstdFlags)

	var runErr error
	if r.opts.Mode == ModeMock {
		runErr = r.runMock(ctx, run, logger)
	} else {
		runErr = r.runPipeline(ctx, run, logger)
	}
	if runErr != nil {
		logger.Printf("[Runner] Run failed: %v", runErr)
	}
	w.Flush()

	status, msg := store.StatusSucceeded, ""
	if runErr != nil {
		status, msg = store.StatusFailed, runErr.Error()
	}
	// The run's own context may be cancelled; the outcome is still recorded.
	finishCtx := context.WithoutCancel(ctx)
	if err := r.store.FinishRun(finishCtx, run.ID, status, msg); err != nil {
		return fmt.Errorf("failed to finish run %s: %w", run.ID, err)
	}
	elapsed := time.Since(start)
	if r.metrics != nil {
		r.metrics.RunsTotal.WithLabelValues(string(status)).Inc()
		r.metrics.RunDuration.WithLabelValues(string(status)).Observe(elapsed.Seconds())
	}
	log.Printf("[Runner] Run %s %s in %s", run.ID, status, elapsed.Round(time.Millisecond))

	if r.hub != nil {
		r.hub.CloseRun(Message{Type: TypeStatus, RunID: run.ID, Status: string(status), Error: msg})
	}
	return nil
}

func (r *Runner) runMock(ctx context.Context, run *store.Run, logger *log.Logger) error {
	for i := 1; i <= mockSteps; i++ {
		msg := fmt.Sprintf("mock step %d/%d", i, mockSteps)
		logger.Print(msg)
		r.progress(ctx, run.ID, pipeline.Progress{Current: i, Total: mockSteps, Message: msg})
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(r.opts.MockStepDelay):
		}
	}
	return nil
}

func (r *Runner) runPipeline(ctx context.Context, run *store.Run, logger *log.Logger) error {
	stored, err := r.store.GetConfig(ctx, run.ConfigID)
	if err != nil {
		return err
	}
	cfg, err := config.Parse([]byte(stored.YAMLText))
	if err != nil {
		return fmt.Errorf("invalid config %d: %w", run.ConfigID, err)
	}
	cfg = cfg.WithRunID(run.ID)
	cfg.InputRoot = r.rooted(cfg.InputRoot)
	cfg.OutputRoot = r.rooted(cfg.OutputRoot)

	dir := paths.Resolve(cfg, run.ID).ScenarioDir
	if err := paths.EnsureDir(dir); err != nil {
		return fmt.Errorf("failed to create run dir: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(stored.YAMLText), 0o644); err != nil {
		return fmt.Errorf("failed to write config.yaml: %w", err)
	}

	p := pipeline.New(cfg,
		pipeline.WithLogger(logger),
		pipeline.WithProgress(func(pr pipeline.Progress) { r.progress(ctx, run.ID, pr) }),
	)
	res, err := p.Run(ctx)
	if err != nil {
		return err
	}
	logger.Printf("[Runner] Outputs in %s", res.ScenarioDir)
	return nil
}

func (r *Runner) rooted(p string) string {
	if p == "" || filepath.IsAbs(p) || r.opts.RunsRoot == "" {
		return p
	}
	return filepath.Join(r.opts.RunsRoot, p)
}

func (r *Runner) progress(ctx context.Context, runID string, p pipeline.Progress) {
	err := r.store.UpdateProgress(ctx, runID, store.Progress{Current: p.Current, Total: p.Total, Message: p.Message})
	if err != nil && !errors.Is(err, context.Canceled) {
		log.Printf("[Runner] progress for run %s: %v", runID, err)
	}
	r.publish(Message{Type: TypeProgress, RunID: runID, Current: p.Current, Total: p.Total, Line: p.Message})
}

func (r *Runner) publish(msg Message) {
	if r.hub != nil {
		r.hub.Publish(msg)
	}
}
