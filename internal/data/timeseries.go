package data

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"community-load/internal/model"
)

// TimestampColumn is the time column of per-building timeseries files.
const TimestampColumn = "timestamp"

// ReadOptions controls how a per-building file is decoded.
type ReadOptions struct {
	// IDColumn is copied into TimeseriesRow.BuildingID when the file carries it.
	IDColumn string
	// Columns restricts the value columns that are decoded. Nil keeps every numeric column.
	Columns []string
}

func (o ReadOptions) keep(col string) bool {
	if col == TimestampColumn || col == o.IDColumn {
		return false
	}
	if o.Columns == nil {
		return true
	}
	for _, c := range o.Columns {
		if c == col {
			return true
		}
	}
	return false
}

// ReadBuildingFile decodes one building's timeseries from a .parquet or .csv file.
// Rows without an id column are attributed to buildingID.
func ReadBuildingFile(path, buildingID string, opts ReadOptions) (*model.Timeseries, error) {
	if err := RequireFile("timeseries", path); err != nil {
		return nil, err
	}
	var (
		ts  *model.Timeseries
		err error
	)
	if strings.EqualFold(filepath.Ext(path), ".csv") {
		ts, err = readTimeseriesCSV(path, buildingID, opts)
	} else {
		ts, err = readTimeseriesParquet(path, buildingID, opts)
	}
	if err != nil {
		return nil, fmt.Errorf("reading timeseries %s: %w", path, err)
	}
	return ts, nil
}

func readTimeseriesCSV(path, buildingID string, opts ReadOptions) (*model.Timeseries, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	cr := csv.NewReader(f)
	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("reading CSV header: %w", err)
	}
	tsIdx, idIdx := -1, -1
	var valueIdx []int
	out := &model.Timeseries{}
	for i, h := range header {
		h = strings.TrimSpace(h)
		header[i] = h
		switch {
		case h == TimestampColumn:
			tsIdx = i
		case opts.IDColumn != "" && h == opts.IDColumn:
			idIdx = i
		case opts.keep(h):
			valueIdx = append(valueIdx, i)
			out.Columns = append(out.Columns, h)
		}
	}
	if tsIdx < 0 {
		return nil, fmt.Errorf("missing %q column", TimestampColumn)
	}

	lineNum := 1
	for {
		lineNum++
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading CSV line %d: %w", lineNum, err)
		}
		at, err := ParseTimestamp(record[tsIdx])
		if err != nil {
			// Skip rows with an unreadable timestamp
			continue
		}
		row := model.TimeseriesRow{BuildingID: buildingID, Timestamp: at, Values: make(map[string]float64, len(valueIdx))}
		if idIdx >= 0 && strings.TrimSpace(record[idIdx]) != "" {
			row.BuildingID = model.NormalizeID(record[idIdx])
		}
		for _, i := range valueIdx {
			row.Values[header[i]] = parseFloatOrNaN(record[i])
		}
		out.Rows = append(out.Rows, row)
	}
	return out, nil
}

func parseFloatOrNaN(s string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return math.NaN()
	}
	return v
}
