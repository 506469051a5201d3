package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// RatioTolerance is the allowed deviation from 1.0 for mix fractions.
const RatioTolerance = 1e-6

// ScenarioConfig is the on-disk scenario shape (YAML). Treat it as immutable after Load;
// the With* helpers return modified copies.
type ScenarioConfig struct {
	State      string `yaml:"state"`
	UpgradeNum int    `yaml:"upgrade_num"`
	InputRoot  string `yaml:"input_root"`
	OutputRoot string `yaml:"output_root"`
	// Optional; the pipeline generates a timestamp id when empty.
	RunID                   string `yaml:"run_id"`
	Seed                    int64  `yaml:"seed"`
	SampleRuns              int    `yaml:"sample_runs"`
	IncludePublic           bool   `yaml:"include_public"`
	AdjustmentMultiplierOff bool   `yaml:"adjustment_multiplier_off"`

	Outputs     OutputOptions     `yaml:"outputs"`
	Performance PerformanceConfig `yaml:"performance"`
	Weather     WeatherConfig     `yaml:"weather"`
	Profiles    ProfilesConfig    `yaml:"profiles"`

	// Path templates relative to InputRoot. {state} and {upgrade_num} are substituted.
	ResstockCharacteristicsXLSX string `yaml:"resstock_characteristics_xlsx"`
	ComstockCharacteristicsXLSX string `yaml:"comstock_characteristics_xlsx"`
	ResstockTimeseriesDir       string `yaml:"resstock_timeseries_dir"`
	ComstockTimeseriesDir       string `yaml:"comstock_timeseries_dir"`

	Columns           ColumnConfig `yaml:"columns"`
	MultifamilyFilter []string     `yaml:"multifamily_filter"`

	Neighborhood NeighborhoodConfig `yaml:",inline"`
}

type OutputOptions struct {
	WriteCSV   bool `yaml:"write_csv"`
	WriteTXT   bool `yaml:"write_txt"`
	WriteXLSX  bool `yaml:"write_xlsx"`
	WritePlots bool `yaml:"write_plots"`
}

type PerformanceConfig struct {
	FastIO              bool `yaml:"fast_io"`
	MaxWorkers          int  `yaml:"max_workers"`
	PruneParquetColumns bool `yaml:"prune_parquet_columns"`
}

type WeatherConfig struct {
	Enabled        bool     `yaml:"enabled"`
	PreferredUnits string   `yaml:"preferred_units"`
	Files          []string `yaml:"files"`
	SourceLabels   []string `yaml:"source_labels"`
}

type ProfilesConfig struct {
	WriteTypicalDayByMonth  bool `yaml:"write_typical_day_by_month"`
	IncludeByBuildingType   bool `yaml:"include_by_building_type"`
	IncludeSectorComparison bool `yaml:"include_sector_comparison"`
	AverageAcrossRuns       bool `yaml:"average_across_runs"`
	WriteLongCSV            bool `yaml:"write_long_csv"`
	WritePivotCSV           bool `yaml:"write_pivot_csv"`
	WorkbookIncludeRun0     bool `yaml:"workbook_include_run0"`
}

// ColumnConfig maps logical fields to the column names of the upstream datasets.
type ColumnConfig struct {
	BuildingIDResstock     string `yaml:"building_id_resstock"`
	BuildingIDComstock     string `yaml:"building_id_comstock"`
	ResstockBuildingType   string `yaml:"resstock_building_type"`
	ResstockUnitsMF        string `yaml:"resstock_units_mf"`
	ResstockSqft           string `yaml:"resstock_sqft"`
	ResstockElectricityKWh string `yaml:"resstock_electricity_kwh"`
	ComstockBuildingType   string `yaml:"comstock_building_type"`
	ComstockSqft           string `yaml:"comstock_sqft"`
	ComstockElectricityKWh string `yaml:"comstock_electricity_kwh"`
	// Energy column as named in the per-building timeseries files.
	ElectricityKWh string `yaml:"electricity_kwh"`
}

// NeighborhoodConfig holds the population mix. Its keys live at the top level of the YAML.
type NeighborhoodConfig struct {
	TotalBuildings           int                `yaml:"total_buildings"`
	MultifamilyFraction      float64            `yaml:"multifamily_buildings_percent_of_total"`
	SingleFamilyFraction     float64            `yaml:"single_family_buildings_percent_of_total"`
	MultifamilyBuildingNames []string           `yaml:"multifamily_building_names"`
	MultifamilyPercentages   map[string]float64 `yaml:"multifamily_buildings_percentages"`
	SingleFamily             SingleFamilyConfig `yaml:"single_family"`
}

type SingleFamilyConfig struct {
	MaxFootprintArea  float64 `yaml:"max_footprint_area"`
	ElectricHPPercent float64 `yaml:"electric_hp_percent"`
}

var requiredKeys = []string{
	"state",
	"upgrade_num",
	"input_root",
	"output_root",
	"seed",
	"sample_runs",
	"include_public",
	"adjustment_multiplier_off",
	"resstock_characteristics_xlsx",
	"comstock_characteristics_xlsx",
	"resstock_timeseries_dir",
	"comstock_timeseries_dir",
	"columns",
	"multifamily_filter",
	"total_buildings",
	"multifamily_buildings_percent_of_total",
	"single_family_buildings_percent_of_total",
	"multifamily_building_names",
	"multifamily_buildings_percentages",
}

var requiredColumnKeys = []string{
	"building_id_resstock",
	"building_id_comstock",
	"resstock_building_type",
	"resstock_units_mf",
	"resstock_sqft",
	"resstock_electricity_kwh",
	"comstock_building_type",
	"comstock_sqft",
	"comstock_electricity_kwh",
	"electricity_kwh",
}

// Default returns a config with every optional section at its default value.
func Default() ScenarioConfig {
	return ScenarioConfig{
		Outputs: OutputOptions{WriteCSV: true, WriteTXT: true, WriteXLSX: true, WritePlots: true},
		Performance: PerformanceConfig{
			MaxWorkers:          8,
			PruneParquetColumns: true,
		},
		Weather: WeatherConfig{PreferredUnits: "C"},
		Profiles: ProfilesConfig{
			WriteTypicalDayByMonth:  true,
			IncludeByBuildingType:   true,
			IncludeSectorComparison: true,
			AverageAcrossRuns:       true,
			WriteLongCSV:            true,
			WritePivotCSV:           true,
			WorkbookIncludeRun0:     true,
		},
		Neighborhood: NeighborhoodConfig{
			SingleFamily: SingleFamilyConfig{MaxFootprintArea: 3000, ElectricHPPercent: 0.4},
		},
	}
}

func Load(path string) (*ScenarioConfig, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	c, err := Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

// Parse decodes and validates a YAML scenario document.
func Parse(raw []byte) (*ScenarioConfig, error) {
	c, err := ParseUnchecked(raw)
	if err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// ParseUnchecked checks required keys and decodes with defaults, but does not validate values.
func ParseUnchecked(raw []byte) (*ScenarioConfig, error) {
	var keys map[string]any
	if err := yaml.Unmarshal(raw, &keys); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfiguration, err)
	}
	if err := checkRequired(keys); err != nil {
		return nil, err
	}
	c := Default()
	if err := yaml.Unmarshal(raw, &c); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfiguration, err)
	}
	if c.Performance.MaxWorkers == 0 {
		c.Performance.MaxWorkers = 8
	}
	if c.Weather.PreferredUnits == "" {
		c.Weather.PreferredUnits = "C"
	}
	return &c, nil
}

func checkRequired(keys map[string]any) error {
	for _, k := range requiredKeys {
		if _, ok := keys[k]; !ok {
			return &ConfigError{Key: k}
		}
	}
	cols, ok := keys["columns"].(map[string]any)
	if !ok {
		return &ConfigError{Key: "columns", Message: "must be a mapping"}
	}
	for _, k := range requiredColumnKeys {
		if _, ok := cols[k]; !ok {
			return &ConfigError{Key: "columns." + k}
		}
	}
	return nil
}

func (c *ScenarioConfig) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}
	if err := ValidatePercentages(c.Neighborhood); err != nil {
		return err
	}
	if c.SampleRuns < 0 {
		return &ConfigError{Key: "sample_runs", Message: "must be >= 0"}
	}
	if c.Neighborhood.TotalBuildings < 0 {
		return &ConfigError{Key: "total_buildings", Message: "must be >= 0"}
	}
	if c.Performance.MaxWorkers < 1 {
		return &ConfigError{Key: "performance.max_workers", Message: "must be >= 1"}
	}
	switch strings.ToUpper(c.Weather.PreferredUnits) {
	case "C", "F":
	default:
		return &ConfigError{Key: "weather.preferred_units", Message: fmt.Sprintf("must be C or F, got %q", c.Weather.PreferredUnits)}
	}
	if n := len(c.Weather.SourceLabels); n > 0 && n != len(c.Weather.Files) {
		return &ConfigError{Key: "weather.source_labels", Message: "must match weather.files in length"}
	}
	return nil
}

// ValidatePercentages checks that both mix ratios sum to 1.0 within RatioTolerance.
func ValidatePercentages(n NeighborhoodConfig) error {
	var mfSum float64
	for _, v := range n.MultifamilyPercentages {
		mfSum += v
	}
	if math.Abs(mfSum-1.0) > RatioTolerance {
		return &RatioError{Field: "multifamily_buildings_percentages", Sum: mfSum}
	}
	total := n.MultifamilyFraction + n.SingleFamilyFraction
	if math.Abs(total-1.0) > RatioTolerance {
		return &RatioError{
			Field: "multifamily_buildings_percent_of_total + single_family_buildings_percent_of_total",
			Sum:   total,
		}
	}
	return nil
}

// Clone returns a deep copy.
func (c ScenarioConfig) Clone() *ScenarioConfig {
	out := c
	out.Weather.Files = append([]string(nil), c.Weather.Files...)
	out.Weather.SourceLabels = append([]string(nil), c.Weather.SourceLabels...)
	out.MultifamilyFilter = append([]string(nil), c.MultifamilyFilter...)
	out.Neighborhood.MultifamilyBuildingNames = append([]string(nil), c.Neighborhood.MultifamilyBuildingNames...)
	if c.Neighborhood.MultifamilyPercentages != nil {
		out.Neighborhood.MultifamilyPercentages = make(map[string]float64, len(c.Neighborhood.MultifamilyPercentages))
		for k, v := range c.Neighborhood.MultifamilyPercentages {
			out.Neighborhood.MultifamilyPercentages[k] = v
		}
	}
	return &out
}

func (c ScenarioConfig) WithPerformance(p PerformanceConfig) *ScenarioConfig {
	out := c.Clone()
	out.Performance = p
	return out
}

func (c ScenarioConfig) WithWeather(w WeatherConfig) *ScenarioConfig {
	out := c.Clone()
	w.Files = append([]string(nil), w.Files...)
	w.SourceLabels = append([]string(nil), w.SourceLabels...)
	out.Weather = w
	return out
}

func (c ScenarioConfig) WithProfiles(p ProfilesConfig) *ScenarioConfig {
	out := c.Clone()
	out.Profiles = p
	return out
}

// WithRunID is used by the run service, which names scenario directories after run ids.
func (c ScenarioConfig) WithRunID(id string) *ScenarioConfig {
	out := c.Clone()
	out.RunID = id
	return out
}
