package selection

import (
	"fmt"
	"testing"

	"community-load/internal/config"
	"community-load/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testChars(typeCol string, perType map[string]int) *model.Characteristics {
	var recs []model.Record
	id := 0
	for _, t := range []string{"MF24", "MF5", "SF", "LargeOffice", "MediumOffice", "RetailStandalone", "RetailStripmall", "Warehouse", "Hospital"} {
		for i := 0; i < perType[t]; i++ {
			id++
			recs = append(recs, model.Record{"bldg_id": fmt.Sprint(id), typeCol: t})
		}
	}
	return model.NewCharacteristics("bldg_id", []string{"bldg_id", typeCol}, recs)
}

func testConfig() *config.ScenarioConfig {
	cfg := config.Default()
	cfg.Columns.ResstockBuildingType = "type"
	cfg.Columns.ComstockBuildingType = "type"
	cfg.Neighborhood.TotalBuildings = 100
	cfg.Neighborhood.MultifamilyFraction = 0.3
	cfg.Neighborhood.SingleFamilyFraction = 0.7
	cfg.Neighborhood.MultifamilyBuildingNames = []string{"MF24", "MF5"}
	cfg.Neighborhood.MultifamilyPercentages = map[string]float64{"MF24": 0.4, "MF5": 0.6}
	return &cfg
}

func TestSampleMembershipAndCount(t *testing.T) {
	pool := []string{"a", "b", "c"}
	rng := NewRand(7)
	got := Sample(rng, pool, 50)
	require.Len(t, got, 50)
	for _, id := range got {
		assert.Contains(t, pool, id)
	}

	assert.Empty(t, Sample(rng, nil, 5))
	assert.Empty(t, Sample(rng, pool, 0))
}

func TestSampleDeterministic(t *testing.T) {
	pool := []string{"a", "b", "c", "d", "e"}
	a := Sample(NewRand(42), pool, 20)
	b := Sample(NewRand(42), pool, 20)
	c := Sample(NewRand(43), pool, 20)
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
}

func TestResidentialMix(t *testing.T) {
	chars := testChars("type", map[string]int{"MF24": 4, "MF5": 6, "SF": 10})
	cfg := testConfig()

	sel := Residential(cfg, chars, NewRand(1))
	// mf = 30; MF24 = 12, MF5 = 18
	require.Len(t, sel.IDs, 30)
	byType := map[string]int{}
	for _, id := range sel.IDs {
		r, ok := chars.Lookup(id)
		require.True(t, ok)
		byType[r["type"]]++
	}
	assert.Equal(t, map[string]int{"MF24": 12, "MF5": 18}, byType)

	for _, c := range sel.Counts {
		assert.Contains(t, []string{"MF24", "MF5"}, c.Type)
		assert.LessOrEqual(t, c.Count, map[string]int{"MF24": 4, "MF5": 6}[c.Type])
	}

	again := Residential(cfg, chars, NewRand(1))
	assert.Equal(t, sel.IDs, again.IDs)
}

func TestResidentialRoundsHalfToEven(t *testing.T) {
	chars := testChars("type", map[string]int{"MF24": 2, "MF5": 2})
	cfg := testConfig()
	cfg.Neighborhood.TotalBuildings = 5
	cfg.Neighborhood.MultifamilyFraction = 0.5
	cfg.Neighborhood.SingleFamilyFraction = 0.5
	cfg.Neighborhood.MultifamilyPercentages = map[string]float64{"MF24": 0.5, "MF5": 0.5}

	// mf = round(2.5) = 2, each type round(1.0) = 1
	sel := Residential(cfg, chars, NewRand(3))
	assert.Len(t, sel.IDs, 2)
}

func TestResidentialEmptyPool(t *testing.T) {
	chars := testChars("type", map[string]int{"MF5": 3})
	sel := Residential(testConfig(), chars, NewRand(1))
	assert.Len(t, sel.IDs, 18)
	require.Len(t, sel.Counts, 1)
	assert.Equal(t, "MF5", sel.Counts[0].Type)
}

func TestCommercialPlan(t *testing.T) {
	chars := testChars("type", map[string]int{
		"LargeOffice": 2, "MediumOffice": 2, "RetailStandalone": 2, "RetailStripmall": 2, "Warehouse": 2, "Hospital": 1,
	})
	cfg := testConfig()

	sel := Commercial(cfg, chars, NewRand(9))
	assert.Len(t, sel.IDs, 25)

	cfg.IncludePublic = true
	// SmallHotel and the schools have no candidates and contribute nothing.
	withPublic := Commercial(cfg, chars, NewRand(9))
	assert.Len(t, withPublic.IDs, 26)
}
