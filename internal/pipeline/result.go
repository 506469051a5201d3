package pipeline

import (
	"community-load/internal/analysis"
	"community-load/internal/model"
	"community-load/internal/selection"
	"community-load/internal/transform"
)

// RunRecord is what happened in one sample run.
type RunRecord struct {
	Index      int
	Multiplier float64

	Residential selection.Selection
	Commercial  selection.Selection

	// Rows read from the building files, counting a building sampled twice twice.
	ResidentialRows int
	CommercialRows  int

	Adjustment transform.Outcome
	// MultiplierApplied is false when the residential energy column was absent.
	MultiplierApplied bool

	// Hourly rows in the run's total profile.
	Hours int
}

type Result struct {
	RunID       string
	ScenarioDir string
	Multipliers []float64
	Runs        []RunRecord

	// Average is the cross-run hourly average (Residential, Commercial, Total).
	// Nil when no runs were requested.
	Average   *model.Frame
	Summaries []analysis.LoadSummary
	Peaks     []analysis.RunPeak

	// Files lists every artifact written, in write order.
	Files []string
}
