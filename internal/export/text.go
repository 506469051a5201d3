package export

import (
	"fmt"
	"strings"
	"time"

	"community-load/internal/analysis"
)

// Overview is the plain-text summary written next to a scenario's outputs.
type Overview struct {
	RunID   string
	State   string
	Upgrade int
	Seed    int64

	Runs        int
	Multipliers []float64
	Summaries   []analysis.LoadSummary
	Peaks       []analysis.RunPeak
}

// String renders the overview. The first four lines are fixed; the sections after them
// are omitted when empty.
func (o Overview) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Run ID: %s\n", o.RunID)
	fmt.Fprintf(&b, "State: %s\n", o.State)
	fmt.Fprintf(&b, "Upgrade: %d\n", o.Upgrade)
	fmt.Fprintf(&b, "Seed: %d\n", o.Seed)

	if o.Runs > 0 {
		fmt.Fprintf(&b, "\nSample runs: %d\n", o.Runs)
	}
	if len(o.Multipliers) > 0 {
		b.WriteString("Residential multipliers:")
		for _, m := range o.Multipliers {
			fmt.Fprintf(&b, " %.4f", m)
		}
		b.WriteString("\n")
	}

	if len(o.Summaries) > 0 {
		b.WriteString("\nAverage hourly profile (kWh)\n")
		fmt.Fprintf(&b, "%-12s %12s %12s %12s %12s %12s %14s  %s\n",
			"series", "min", "mean", "p95", "max", "load_factor", "sum", "peak_at")
		for _, s := range o.Summaries {
			fmt.Fprintf(&b, "%-12s %12.3f %12.3f %12.3f %12.3f %12.3f %14.1f  %s\n",
				s.Series, s.Min, s.Mean, s.P95, s.Max, s.LoadFactor, s.Sum, fmtPeak(s.PeakAt))
		}
	}

	if len(o.Peaks) > 0 {
		b.WriteString("\nRuns by peak total load\n")
		for i, p := range o.Peaks {
			fmt.Fprintf(&b, "%2d. Run-%d  peak %.3f kWh at %s, mean %.3f\n",
				i+1, p.Run, p.Max, fmtPeak(p.PeakAt), p.Mean)
		}
	}
	return b.String()
}

func fmtPeak(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.UTC().Format(TimeLayout)
}
