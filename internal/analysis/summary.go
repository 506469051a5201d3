// Package analysis summarizes finished load profiles.
package analysis

import (
	"time"

	"community-load/internal/aggregate"
	"community-load/internal/model"

	"gonum.org/v1/gonum/floats"
)

// LoadSummary is a profile-level summary written into the run overview.
type LoadSummary struct {
	Series string

	Start time.Time
	End   time.Time

	// Count is the number of non-missing values.
	Count int

	Min  float64
	Max  float64
	Mean float64
	P05  float64
	P95  float64
	Sum  float64

	PeakAt time.Time
	// LoadFactor is Mean/Max, the share of peak the profile sustains on average.
	LoadFactor float64
}

// Summarize computes a LoadSummary of col. NaN values are ignored.
func Summarize(name string, f *model.Frame, col string) LoadSummary {
	s := LoadSummary{Series: name}
	vals := f.Col(col)
	if len(vals) == 0 {
		return s
	}
	s.Start = f.Index[0]
	s.End = f.Index[len(f.Index)-1]

	sorted := aggregate.SortedFinite(vals)
	s.Count = len(sorted)
	if s.Count == 0 {
		return s
	}
	s.Min = sorted[0]
	s.Max = sorted[s.Count-1]
	s.Sum = floats.Sum(sorted)
	s.Mean = s.Sum / float64(s.Count)
	s.P05 = aggregate.Quantile(sorted, 0.05)
	s.P95 = aggregate.Quantile(sorted, 0.95)
	// First occurrence of the peak.
	for i, v := range vals {
		if v == s.Max {
			s.PeakAt = f.Index[i]
			break
		}
	}
	if s.Max > 0 {
		s.LoadFactor = s.Mean / s.Max
	}
	return s
}
