// Package demo writes a small synthetic ResStock/ComStock dataset and a scenario that
// runs against it.
package demo

import (
	"encoding/csv"
	"fmt"
	"math"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/parquet-go/parquet-go"
	"gopkg.in/yaml.v3"
)

// Column names used by the generated files.
const (
	IDColumn         = "bldg_id"
	ResTypeColumn    = "in.geometry_building_type_recs"
	ResUnitsColumn   = "in.geometry_building_number_units_mf"
	SqftColumn       = "in.sqft"
	ComTypeColumn    = "in.comstock_building_type"
	EnergyColumn     = "out.electricity.total.energy_consumption"
	WeatherDateCol   = "DATE"
	WeatherTempCol   = "HourlyDryBulbTemperature"
	ScenarioFileName = "scenario.yaml"
)

// ResidentialTypes are the multifamily types written into the residential table.
var ResidentialTypes = []string{"Multi-Family with 2 - 4 Units", "Multi-Family with 5+ Units"}

// CommercialTypes covers the fixed commercial plan and the public buildings.
var CommercialTypes = []string{
	"LargeOffice", "MediumOffice", "RetailStandalone", "RetailStripmall", "Warehouse",
	"SmallHotel", "Hospital", "PrimarySchool", "SecondarySchool",
}

type Options struct {
	State   string
	Upgrade int
	Start   time.Time
	Days    int
	// Interval between readings in the building files. Sub-hourly intervals exercise
	// the hourly resample.
	Interval time.Duration
	// Buildings per type in each characteristics table.
	PerType    int
	Seed       int64
	SampleRuns int
	// TotalBuildings drives the residential sample size.
	TotalBuildings int
	Parquet        bool
	Weather        bool
}

func DefaultOptions() Options {
	return Options{
		State:          "CO",
		Upgrade:        0,
		Start:          time.Date(2018, 1, 1, 0, 0, 0, 0, time.UTC),
		Days:           14,
		Interval:       15 * time.Minute,
		PerType:        4,
		Seed:           7,
		SampleRuns:     2,
		TotalBuildings: 20,
		Weather:        true,
	}
}

// Dataset locates what Generate wrote.
type Dataset struct {
	Root         string
	InputRoot    string
	OutputRoot   string
	ScenarioPath string
	WeatherPath  string
	Buildings    int
}

// Generate writes inputs under root/input, a weather file and root/scenario.yaml whose
// outputs go to root/output.
func Generate(root string, opts Options) (*Dataset, error) {
	if opts.Days <= 0 || opts.Interval <= 0 || opts.PerType <= 0 {
		return nil, fmt.Errorf("days, interval and per-type count must be positive")
	}
	ds := &Dataset{
		Root:       root,
		InputRoot:  filepath.Join(root, "input"),
		OutputRoot: filepath.Join(root, "output"),
	}
	rng := rand.New(rand.NewPCG(uint64(opts.Seed), uint64(opts.Seed)))

	resDir := filepath.Join(ds.InputRoot, "resstock", opts.State, fmt.Sprintf("up%d", opts.Upgrade))
	comDir := filepath.Join(ds.InputRoot, "comstock", opts.State, fmt.Sprintf("up%d", opts.Upgrade))

	var resRows, comRows [][]string
	id := 100
	for _, typ := range ResidentialTypes {
		units := 3
		if typ == ResidentialTypes[1] {
			units = 12
		}
		for k := 0; k < opts.PerType; k++ {
			id++
			bid := strconv.Itoa(id)
			sqft := 700 + rng.IntN(600)
			resRows = append(resRows, []string{bid, typ, strconv.Itoa(units), strconv.Itoa(sqft)})
			if err := writeBuilding(filepath.Join(resDir, "timeseries"), bid, opts, residentialLoad(rng), opts.Parquet); err != nil {
				return nil, err
			}
		}
	}
	for _, typ := range CommercialTypes {
		for k := 0; k < opts.PerType; k++ {
			id++
			bid := strconv.Itoa(id)
			sqft := 10000 + rng.IntN(90000)
			comRows = append(comRows, []string{bid, typ, strconv.Itoa(sqft)})
			if err := writeBuilding(filepath.Join(comDir, "timeseries"), bid, opts, commercialLoad(rng, float64(sqft)), opts.Parquet); err != nil {
				return nil, err
			}
		}
	}
	ds.Buildings = len(resRows) + len(comRows)

	if err := writeCSV(filepath.Join(resDir, "characteristics.csv"),
		[]string{IDColumn, ResTypeColumn, ResUnitsColumn, SqftColumn}, resRows); err != nil {
		return nil, err
	}
	if err := writeCSV(filepath.Join(comDir, "characteristics.csv"),
		[]string{IDColumn, ComTypeColumn, SqftColumn}, comRows); err != nil {
		return nil, err
	}

	if opts.Weather {
		ds.WeatherPath = filepath.Join(ds.InputRoot, "weather", "station.csv")
		if err := writeWeather(ds.WeatherPath, opts); err != nil {
			return nil, err
		}
	}

	ds.ScenarioPath = filepath.Join(root, ScenarioFileName)
	if err := writeScenario(ds, opts); err != nil {
		return nil, err
	}
	return ds, nil
}

type loadShape func(t time.Time) float64

func residentialLoad(rng *rand.Rand) loadShape {
	base := 0.2 + 0.2*rng.Float64()
	peak := 0.5 + 0.5*rng.Float64()
	return func(t time.Time) float64 {
		h := float64(t.Hour()) + float64(t.Minute())/60
		evening := math.Exp(-math.Pow(h-19, 2) / 6)
		morning := 0.5 * math.Exp(-math.Pow(h-7, 2)/3)
		return (base + peak*(evening+morning)) / 4
	}
}

func commercialLoad(rng *rand.Rand, sqft float64) loadShape {
	scale := sqft / 10000 * (0.8 + 0.4*rng.Float64())
	return func(t time.Time) float64 {
		h := float64(t.Hour()) + float64(t.Minute())/60
		open := 0.2
		if t.Weekday() != time.Saturday && t.Weekday() != time.Sunday && h >= 8 && h < 18 {
			open = 1
		}
		return scale * open / 4
	}
}

type parquetReading struct {
	Timestamp int64   `parquet:"timestamp"`
	BldgID    int64   `parquet:"bldg_id"`
	Energy    float64 `parquet:"out.electricity.total.energy_consumption"`
}

func writeBuilding(dir, id string, opts Options, load loadShape, asParquet bool) error {
	n := int(time.Duration(opts.Days) * 24 * time.Hour / opts.Interval)
	if asParquet {
		bid, err := strconv.ParseInt(id, 10, 64)
		if err != nil {
			return err
		}
		rows := make([]parquetReading, n)
		for i := range rows {
			ts := opts.Start.Add(time.Duration(i) * opts.Interval)
			rows[i] = parquetReading{Timestamp: ts.UnixMilli(), BldgID: bid, Energy: load(ts)}
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
		return parquet.WriteFile(filepath.Join(dir, id+"-0.parquet"), rows)
	}

	rows := make([][]string, n)
	for i := range rows {
		ts := opts.Start.Add(time.Duration(i) * opts.Interval)
		rows[i] = []string{ts.Format("2006-01-02 15:04:05"), id, strconv.FormatFloat(load(ts), 'f', 6, 64)}
	}
	return writeCSV(filepath.Join(dir, id+"-0.csv"), []string{"timestamp", IDColumn, EnergyColumn}, rows)
}

// writeWeather writes an hourly Fahrenheit series, which the pipeline converts to Celsius.
func writeWeather(path string, opts Options) error {
	hours := opts.Days * 24
	rows := make([][]string, hours)
	for i := range rows {
		ts := opts.Start.Add(time.Duration(i) * time.Hour)
		temp := 50 + 15*math.Sin(2*math.Pi*(float64(ts.Hour())-9)/24)
		rows[i] = []string{ts.Format("2006-01-02T15:04:05"), strconv.FormatFloat(temp, 'f', 1, 64)}
	}
	return writeCSV(path, []string{WeatherDateCol, WeatherTempCol}, rows)
}

func writeCSV(path string, header []string, rows [][]string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		return err
	}
	if err := w.WriteAll(rows); err != nil {
		return err
	}
	return w.Error()
}

func writeScenario(ds *Dataset, opts Options) error {
	doc := map[string]any{
		"state":                         opts.State,
		"upgrade_num":                   opts.Upgrade,
		"input_root":                    ds.InputRoot,
		"output_root":                   ds.OutputRoot,
		"run_id":                        "demo",
		"seed":                          opts.Seed,
		"sample_runs":                   opts.SampleRuns,
		"include_public":                true,
		"adjustment_multiplier_off":     false,
		"resstock_characteristics_xlsx": "resstock/{state}/up{upgrade_num}/characteristics.csv",
		"comstock_characteristics_xlsx": "comstock/{state}/up{upgrade_num}/characteristics.csv",
		"resstock_timeseries_dir":       "resstock/{state}/up{upgrade_num}/timeseries",
		"comstock_timeseries_dir":       "comstock/{state}/up{upgrade_num}/timeseries",
		"columns": map[string]string{
			"building_id_resstock":     IDColumn,
			"building_id_comstock":     IDColumn,
			"resstock_building_type":   ResTypeColumn,
			"resstock_units_mf":        ResUnitsColumn,
			"resstock_sqft":            SqftColumn,
			"resstock_electricity_kwh": EnergyColumn,
			"comstock_building_type":   ComTypeColumn,
			"comstock_sqft":            SqftColumn,
			"comstock_electricity_kwh": EnergyColumn,
			"electricity_kwh":          EnergyColumn,
		},
		"multifamily_filter":                       []string{ResidentialTypes[1]},
		"total_buildings":                          opts.TotalBuildings,
		"multifamily_buildings_percent_of_total":   0.5,
		"single_family_buildings_percent_of_total": 0.5,
		"multifamily_building_names":               ResidentialTypes,
		"multifamily_buildings_percentages": map[string]float64{
			ResidentialTypes[0]: 0.5,
			ResidentialTypes[1]: 0.5,
		},
	}
	if opts.Weather {
		doc["weather"] = map[string]any{
			"enabled":         true,
			"preferred_units": "C",
			"files":           []string{ds.WeatherPath},
			"source_labels":   []string{"demo_station"},
		}
	}
	raw, err := yaml.Marshal(doc)
	if err != nil {
		return err
	}
	return os.WriteFile(ds.ScenarioPath, raw, 0o644)
}
