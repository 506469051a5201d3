package transform

import (
	"fmt"
	"math"
	"math/rand/v2"
	"strings"

	"community-load/internal/config"

	"gonum.org/v1/gonum/stat/distuv"
)

// SqftAdjustColumn holds square footage scaled by unit count for multifamily buildings.
const SqftAdjustColumn = "in.sqft_adjust"

// Status tells whether an adjustment ran.
type Status int

const (
	Adjusted Status = iota
	Skipped
)

func (s Status) String() string {
	if s == Adjusted {
		return "adjusted"
	}
	return "skipped"
}

// Outcome reports what AdjustMultifamily did. Reason explains a skip, or a partial
// adjustment when only one of the two steps could run.
type Outcome struct {
	Status Status
	Reason string
	// Rows is the number of multifamily rows that matched the filter.
	Rows int
}

// AdjustMultifamily scales cols.ElectricityKWh by the unit count for rows whose building
// type is in filter, and sets SqftAdjustColumn to sqft*units for those rows (sqft for
// the rest). Steps whose columns are absent are skipped and the rows left unchanged.
func AdjustMultifamily(cols config.ColumnConfig, filter []string, m *Merged) Outcome {
	if !m.HasAttribute(cols.ResstockBuildingType) {
		return Outcome{Status: Skipped, Reason: fmt.Sprintf("missing column %q", cols.ResstockBuildingType)}
	}
	hasUnits := m.HasAttribute(cols.ResstockUnitsMF)
	scaleEnergy := hasUnits && m.HasColumn(cols.ElectricityKWh)
	adjustSqft := hasUnits && m.HasAttribute(cols.ResstockSqft)

	var missing []string
	if !hasUnits {
		missing = append(missing, cols.ResstockUnitsMF)
	}
	if !m.HasColumn(cols.ElectricityKWh) {
		missing = append(missing, cols.ElectricityKWh)
	}
	if !m.HasAttribute(cols.ResstockSqft) {
		missing = append(missing, cols.ResstockSqft)
	}
	if !scaleEnergy && !adjustSqft {
		return Outcome{Status: Skipped, Reason: "missing columns " + quoteAll(missing)}
	}

	inFilter := make(map[string]bool, len(filter))
	for _, f := range filter {
		inFilter[f] = true
	}
	out := Outcome{Status: Adjusted}
	if len(missing) > 0 {
		out.Reason = "partial: missing columns " + quoteAll(missing)
	}
	if adjustSqft {
		m.addColumn(SqftAdjustColumn)
	}
	for i := range m.Rows {
		r := &m.Rows[i]
		if r.Attributes == nil {
			if adjustSqft {
				r.Values[SqftAdjustColumn] = math.NaN()
			}
			continue
		}
		mf := inFilter[r.Attributes[cols.ResstockBuildingType]]
		units, ok := r.Attributes.Float(cols.ResstockUnitsMF)
		if !ok {
			units = math.NaN()
		}
		if mf {
			out.Rows++
		}
		if scaleEnergy && mf {
			r.Values[cols.ElectricityKWh] *= units
		}
		if adjustSqft {
			sqft, ok := r.Attributes.Float(cols.ResstockSqft)
			if !ok {
				sqft = math.NaN()
			}
			if mf {
				sqft *= units
			}
			r.Values[SqftAdjustColumn] = sqft
		}
	}
	return out
}

func quoteAll(cols []string) string {
	q := make([]string, len(cols))
	for i, c := range cols {
		q[i] = fmt.Sprintf("%q", c)
	}
	return strings.Join(q, ", ")
}

// ApplyMultiplier scales col by factor on every row. It reports false when col is absent.
func ApplyMultiplier(m *Merged, col string, factor float64) bool {
	if !m.HasColumn(col) {
		return false
	}
	for i := range m.Rows {
		m.Rows[i].Values[col] *= factor
	}
	return true
}

// Multiplier distribution of the per-run residential adjustment factor.
const (
	MultiplierMean  = 1.0
	MultiplierSigma = 0.2
)

// Multipliers draws one factor per run from Normal(1.0, 0.2), or returns ones when off.
// All draws happen up front so the selection sequence depends only on the seed.
func Multipliers(rng *rand.Rand, runs int, off bool) []float64 {
	out := make([]float64, runs)
	if off {
		for i := range out {
			out[i] = 1.0
		}
		return out
	}
	dist := distuv.Normal{Mu: MultiplierMean, Sigma: MultiplierSigma, Src: rng}
	for i := range out {
		out[i] = dist.Rand()
	}
	return out
}
