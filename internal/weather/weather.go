// Package weather normalizes heterogeneous weather CSVs into an hourly outdoor
// air temperature series.
package weather

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"community-load/internal/aggregate"
	"community-load/internal/data"
	"community-load/internal/model"
)

const (
	// TemperatureColumn is the canonical output column.
	TemperatureColumn = "outdoor_air_temperature"
	// SourceColumn carries the provenance label of each temperature value.
	SourceColumn = "weather_source"
)

// Candidate column names, first match wins.
var (
	DatetimeCandidates    = []string{"DATE", "Date", "datetime", "timestamp", "time"}
	TemperatureCandidates = []string{
		"HourlyDryBulbTemperature",
		"TEMP",
		"Temp",
		"temperature",
		"Temperature",
		"TAVG",
		"DryBulbCelsius",
		"DryBulbFahrenheit",
	}
)

// Unit heuristic thresholds on the median of the parsed values. Series close to a
// threshold can be misclassified.
const (
	fahrenheitMedianAbove = 45.0
	celsiusMedianBelow    = 35.0
)

// ErrDataShape matches every weather shape failure via errors.Is.
var ErrDataShape = errors.New("unexpected weather data shape")

// ShapeError reports a weather file that cannot be interpreted.
type ShapeError struct {
	Path   string
	Reason string
}

func (e *ShapeError) Error() string {
	if e.Path == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.Path, e.Reason)
}

func (e *ShapeError) Is(target error) bool { return target == ErrDataShape }

// Series is an hourly temperature frame with TemperatureColumn and, when a label was
// given, SourceColumn.
type Series struct {
	Frame *model.Frame
	// Converted is "F->C", "C->F" or "" when values were kept as read.
	Converted string
}

type reading struct {
	at   time.Time
	temp float64
}

// ReadCSV reads a weather CSV and normalizes it to hourly mean temperature in units
// ("C" or "F"). Rows with an unparseable datetime or a non-numeric temperature are dropped.
func ReadCSV(path, units, label string) (*Series, error) {
	target := strings.ToUpper(strings.TrimSpace(units))
	if target != "C" && target != "F" {
		return nil, &ShapeError{Reason: fmt.Sprintf("preferred_units must be C or F, got %q", units)}
	}
	if err := data.RequireFile("weather", path); err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	cr := csv.NewReader(f)
	cr.FieldsPerRecord = -1
	header, err := cr.Read()
	if err != nil {
		return nil, &ShapeError{Path: path, Reason: fmt.Sprintf("reading CSV header: %v", err)}
	}
	dtIdx := firstColumn(header, DatetimeCandidates)
	if dtIdx < 0 {
		return nil, &ShapeError{Path: path, Reason: "no datetime column found"}
	}
	tIdx := firstColumn(header, TemperatureCandidates)
	if tIdx < 0 {
		return nil, &ShapeError{Path: path, Reason: "no temperature column found"}
	}

	var rows []reading
	lineNum := 1
	for {
		lineNum++
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading %s line %d: %w", path, lineNum, err)
		}
		if dtIdx >= len(record) || tIdx >= len(record) {
			continue
		}
		at, err := data.ParseTimestamp(record[dtIdx])
		if err != nil {
			continue
		}
		v, err := parseTemperature(record[tIdx])
		if err != nil {
			continue
		}
		rows = append(rows, reading{at: at, temp: v})
	}
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].at.Before(rows[j].at) })

	idx := make([]time.Time, len(rows))
	temps := make([]float64, len(rows))
	for i, r := range rows {
		idx[i] = r.at
		temps[i] = r.temp
	}
	converted := convertUnits(temps, target)

	raw := model.NewFrame(idx)
	raw.Set(TemperatureColumn, temps)
	hourly := aggregate.ResampleHourlyMean(raw)
	if label != "" {
		labels := make([]string, hourly.Len())
		for i := range labels {
			labels[i] = label
		}
		hourly.SetText(SourceColumn, labels)
	}
	return &Series{Frame: hourly, Converted: converted}, nil
}

// parseTemperature accepts plain numbers and the NOAA LCD style suffixes ("72s", "-3V").
func parseTemperature(s string) (float64, error) {
	s = strings.TrimSpace(s)
	v, err := strconv.ParseFloat(s, 64)
	if err == nil {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return 0, fmt.Errorf("non-finite temperature %q", s)
		}
		return v, nil
	}
	trimmed := strings.TrimRight(s, "sVM*")
	if trimmed != s && trimmed != "" {
		return strconv.ParseFloat(trimmed, 64)
	}
	return 0, err
}

func firstColumn(header []string, candidates []string) int {
	for _, c := range candidates {
		for i, h := range header {
			if strings.TrimSpace(h) == c {
				return i
			}
		}
	}
	return -1
}

// convertUnits converts temps in place when the median looks like the other unit system.
func convertUnits(temps []float64, target string) string {
	med := aggregate.Median(temps)
	if math.IsNaN(med) {
		return ""
	}
	switch {
	case target == "C" && med > fahrenheitMedianAbove:
		for i, v := range temps {
			temps[i] = (v - 32.0) * (5.0 / 9.0)
		}
		return "F->C"
	case target == "F" && med < celsiusMedianBelow:
		for i, v := range temps {
			temps[i] = v*(9.0/5.0) + 32.0
		}
		return "C->F"
	}
	return ""
}

// Compose merges several hourly series: at each timestamp the first series with a
// temperature wins, and its label follows the value. The result covers the union of
// all indexes.
func Compose(series ...*Series) *Series {
	var frames []*model.Frame
	var indexes [][]time.Time
	for _, s := range series {
		if s == nil || s.Frame == nil {
			continue
		}
		frames = append(frames, s.Frame)
		indexes = append(indexes, s.Frame.Index)
	}
	if len(frames) == 0 {
		return nil
	}
	if len(frames) == 1 {
		return &Series{Frame: frames[0].Copy()}
	}

	base := model.NewFrame(model.UnionIndex(indexes...))
	temps := model.NaNs(base.Len())
	labels := make([]string, base.Len())
	hasLabels := false
	for _, f := range frames {
		aligned := base.Join(f)
		vals := aligned.Col(TemperatureColumn)
		src := aligned.Text(SourceColumn)
		if src != nil {
			hasLabels = true
		}
		for i, v := range vals {
			if !math.IsNaN(temps[i]) || math.IsNaN(v) {
				continue
			}
			temps[i] = v
			if src != nil {
				labels[i] = src[i]
			}
		}
	}
	base.Set(TemperatureColumn, temps)
	if hasLabels {
		base.SetText(SourceColumn, labels)
	}
	return &Series{Frame: base}
}

// Load reads every file with its label (default weather_<i>) and composes them.
func Load(files, labels []string, units string) (*Series, error) {
	parts := make([]*Series, 0, len(files))
	for i, fp := range files {
		label := fmt.Sprintf("weather_%d", i)
		if i < len(labels) && labels[i] != "" {
			label = labels[i]
		}
		s, err := ReadCSV(fp, units, label)
		if err != nil {
			return nil, err
		}
		parts = append(parts, s)
	}
	return Compose(parts...), nil
}
