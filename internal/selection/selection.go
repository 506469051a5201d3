// Package selection samples building ids for a synthetic neighborhood.
package selection

import (
	"math"
	"math/rand/v2"
	"sort"

	"community-load/internal/config"
	"community-load/internal/model"
)

// TypeCount is the number of distinct characteristics rows of one building type that
// appear in a selection.
type TypeCount struct {
	Type  string
	Count int
}

// Selection is the sampled building ids (with duplicates) plus counts by type.
type Selection struct {
	IDs    []string
	Counts []TypeCount
}

// PlanEntry is a building type and how many buildings of it to draw.
type PlanEntry struct {
	Type  string
	Count int
}

// CommercialPlan is the fixed commercial mix. It does not scale with total_buildings.
var CommercialPlan = []PlanEntry{
	{"LargeOffice", 5},
	{"MediumOffice", 3},
	{"RetailStandalone", 6},
	{"RetailStripmall", 4},
	{"Warehouse", 7},
}

// PublicPlan is appended to CommercialPlan when include_public is set.
var PublicPlan = []PlanEntry{
	{"SmallHotel", 1},
	{"Hospital", 1},
	{"PrimarySchool", 1},
	{"SecondarySchool", 1},
}

// NewRand returns the generator threaded through selection and multiplier draws.
func NewRand(seed int64) *rand.Rand {
	s := uint64(seed)
	return rand.New(rand.NewPCG(s, s))
}

// Residential draws round(total * multifamily_fraction) multifamily buildings, split
// across multifamily_building_names by round(mf * pct[name]). Rounding is half-to-even,
// so the drawn total can differ slightly from the requested one.
func Residential(cfg *config.ScenarioConfig, chars *model.Characteristics, rng *rand.Rand) Selection {
	n := cfg.Neighborhood
	mf := int(math.RoundToEven(float64(n.TotalBuildings) * n.MultifamilyFraction))

	var plan []PlanEntry
	for _, name := range n.MultifamilyBuildingNames {
		k := int(math.RoundToEven(float64(mf) * n.MultifamilyPercentages[name]))
		plan = append(plan, PlanEntry{Type: name, Count: k})
	}
	return fromPlan(plan, chars, cfg.Columns.ResstockBuildingType, rng)
}

// Commercial draws the fixed CommercialPlan, plus PublicPlan when include_public is set.
func Commercial(cfg *config.ScenarioConfig, chars *model.Characteristics, rng *rand.Rand) Selection {
	plan := append([]PlanEntry(nil), CommercialPlan...)
	if cfg.IncludePublic {
		plan = append(plan, PublicPlan...)
	}
	return fromPlan(plan, chars, cfg.Columns.ComstockBuildingType, rng)
}

func fromPlan(plan []PlanEntry, chars *model.Characteristics, typeCol string, rng *rand.Rand) Selection {
	var ids []string
	for _, p := range plan {
		ids = append(ids, Sample(rng, chars.IDsWhere(typeCol, p.Type), p.Count)...)
	}
	return Selection{IDs: ids, Counts: countByType(ids, chars, typeCol)}
}

// Sample draws k items with replacement. An empty pool or k <= 0 yields nothing.
func Sample(rng *rand.Rand, items []string, k int) []string {
	if k <= 0 || len(items) == 0 {
		return nil
	}
	out := make([]string, k)
	for i := range out {
		out[i] = items[rng.IntN(len(items))]
	}
	return out
}

// countByType counts the distinct characteristics rows whose id was drawn, by type,
// most frequent first.
func countByType(ids []string, chars *model.Characteristics, typeCol string) []TypeCount {
	drawn := make(map[string]bool, len(ids))
	for _, id := range ids {
		drawn[id] = true
	}
	counts := map[string]int{}
	for _, r := range chars.Records {
		if drawn[r[chars.IDColumn]] {
			counts[r[typeCol]]++
		}
	}
	out := make([]TypeCount, 0, len(counts))
	for t, n := range counts {
		out = append(out, TypeCount{Type: t, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Type < out[j].Type
	})
	return out
}
