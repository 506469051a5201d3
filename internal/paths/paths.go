// Package paths turns scenario path templates into concrete input and output locations.
package paths

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"community-load/internal/config"
)

// Resolved holds the concrete filesystem paths used by one pipeline execution.
type Resolved struct {
	ResstockCharacteristics string
	ComstockCharacteristics string
	ResstockTimeseriesDir   string
	ComstockTimeseriesDir   string
	ScenarioDir             string
}

// Resolve substitutes {state} and {upgrade_num} in the path templates and joins them
// under input_root. Absolute templates are used as-is.
func Resolve(cfg *config.ScenarioConfig, runID string) Resolved {
	r := strings.NewReplacer("{state}", cfg.State, "{upgrade_num}", strconv.Itoa(cfg.UpgradeNum))
	in := func(tmpl string) string {
		p := r.Replace(tmpl)
		if filepath.IsAbs(p) {
			return p
		}
		return filepath.Join(cfg.InputRoot, p)
	}
	return Resolved{
		ResstockCharacteristics: in(cfg.ResstockCharacteristicsXLSX),
		ComstockCharacteristics: in(cfg.ComstockCharacteristicsXLSX),
		ResstockTimeseriesDir:   in(cfg.ResstockTimeseriesDir),
		ComstockTimeseriesDir:   in(cfg.ComstockTimeseriesDir),
		ScenarioDir:             filepath.Join(cfg.OutputRoot, "scenario_runs", runID),
	}
}

// RunDir is the per-run subdirectory, e.g. Run-0.
func (r Resolved) RunDir(i int) string {
	return filepath.Join(r.ScenarioDir, fmt.Sprintf("Run-%d", i))
}

func (r Resolved) PlotsDir() string { return filepath.Join(r.ScenarioDir, "plots") }

func (r Resolved) ExcelDir() string { return filepath.Join(r.ScenarioDir, "excel") }

// EnsureDir creates path and any parents.
func EnsureDir(path string) error {
	return os.MkdirAll(path, 0o755)
}

// BuildingFile returns the timeseries file for a building id: <id>-0.parquet, or
// <id>-0.csv when only the CSV variant exists.
func BuildingFile(dir, id string) string {
	pq := filepath.Join(dir, id+"-0.parquet")
	if _, err := os.Stat(pq); err == nil {
		return pq
	}
	csv := filepath.Join(dir, id+"-0.csv")
	if _, err := os.Stat(csv); err == nil {
		return csv
	}
	return pq
}
