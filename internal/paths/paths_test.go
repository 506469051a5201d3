package paths

import (
	"os"
	"path/filepath"
	"testing"

	"community-load/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveSubstitutesTemplates(t *testing.T) {
	cfg := &config.ScenarioConfig{
		State:                       "CO",
		UpgradeNum:                  2,
		InputRoot:                   "/data",
		OutputRoot:                  "/out",
		ResstockCharacteristicsXLSX: "res/{state}/up{upgrade_num}.xlsx",
		ComstockCharacteristicsXLSX: "/abs/com_{state}.xlsx",
		ResstockTimeseriesDir:       "res/{state}/ts",
		ComstockTimeseriesDir:       "com/{state}/up{upgrade_num}",
	}
	r := Resolve(cfg, "abc")

	assert.Equal(t, filepath.Join("/data", "res/CO/up2.xlsx"), r.ResstockCharacteristics)
	assert.Equal(t, "/abs/com_CO.xlsx", r.ComstockCharacteristics)
	assert.Equal(t, filepath.Join("/data", "res/CO/ts"), r.ResstockTimeseriesDir)
	assert.Equal(t, filepath.Join("/data", "com/CO/up2"), r.ComstockTimeseriesDir)
	assert.Equal(t, filepath.Join("/out", "scenario_runs", "abc"), r.ScenarioDir)
	assert.Equal(t, filepath.Join("/out", "scenario_runs", "abc", "Run-3"), r.RunDir(3))
	assert.Equal(t, filepath.Join("/out", "scenario_runs", "abc", "plots"), r.PlotsDir())
	assert.Equal(t, filepath.Join("/out", "scenario_runs", "abc", "excel"), r.ExcelDir())
}

func TestBuildingFilePrefersParquet(t *testing.T) {
	dir := t.TempDir()
	assert.Equal(t, filepath.Join(dir, "7-0.parquet"), BuildingFile(dir, "7"))

	require.NoError(t, os.WriteFile(filepath.Join(dir, "7-0.csv"), []byte("x"), 0o644))
	assert.Equal(t, filepath.Join(dir, "7-0.csv"), BuildingFile(dir, "7"))

	require.NoError(t, os.WriteFile(filepath.Join(dir, "7-0.parquet"), []byte("x"), 0o644))
	assert.Equal(t, filepath.Join(dir, "7-0.parquet"), BuildingFile(dir, "7"))
}

func TestEnsureDirIsIdempotent(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "a", "b")
	require.NoError(t, EnsureDir(dir))
	require.NoError(t, EnsureDir(dir))
	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}
