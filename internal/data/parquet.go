package data

import (
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"community-load/internal/model"

	"github.com/parquet-go/parquet-go"
)

// readTimeseriesParquet decodes a flat parquet file column by column. Only the timestamp,
// id and kept value columns are read from disk.
func readTimeseriesParquet(path, buildingID string, opts ReadOptions) (*model.Timeseries, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return nil, err
	}
	pf, err := parquet.OpenFile(f, info.Size())
	if err != nil {
		return nil, err
	}

	schema := pf.Schema()
	tsIdx, idIdx := -1, -1
	var valueIdx []int
	var names []string
	out := &model.Timeseries{}
	for i, p := range schema.Columns() {
		name := strings.Join(p, ".")
		names = append(names, name)
		switch {
		case name == TimestampColumn:
			tsIdx = i
		case opts.IDColumn != "" && name == opts.IDColumn:
			idIdx = i
		case opts.keep(name):
			valueIdx = append(valueIdx, i)
			out.Columns = append(out.Columns, name)
		}
	}
	if tsIdx < 0 {
		return nil, fmt.Errorf("missing %q column", TimestampColumn)
	}
	unit := timestampUnit(schema, names[tsIdx])

	for _, rg := range pf.RowGroups() {
		chunks := rg.ColumnChunks()
		stamps, err := readColumn(chunks[tsIdx])
		if err != nil {
			return nil, fmt.Errorf("column %s: %w", TimestampColumn, err)
		}
		var ids []parquet.Value
		if idIdx >= 0 {
			if ids, err = readColumn(chunks[idIdx]); err != nil {
				return nil, fmt.Errorf("column %s: %w", opts.IDColumn, err)
			}
		}
		values := make([][]parquet.Value, len(valueIdx))
		for j, ci := range valueIdx {
			if values[j], err = readColumn(chunks[ci]); err != nil {
				return nil, fmt.Errorf("column %s: %w", names[ci], err)
			}
		}

		for r, sv := range stamps {
			at, ok := valueTime(sv, unit)
			if !ok {
				continue
			}
			row := model.TimeseriesRow{BuildingID: buildingID, Timestamp: at, Values: make(map[string]float64, len(valueIdx))}
			if ids != nil && r < len(ids) && !ids[r].IsNull() {
				row.BuildingID = model.NormalizeID(valueString(ids[r]))
			}
			for j, ci := range valueIdx {
				v := math.NaN()
				if r < len(values[j]) {
					v = valueFloat(values[j][r])
				}
				row.Values[names[ci]] = v
			}
			out.Rows = append(out.Rows, row)
		}
	}
	return out, nil
}

func readColumn(chunk parquet.ColumnChunk) ([]parquet.Value, error) {
	pages := chunk.Pages()
	defer pages.Close()

	var out []parquet.Value
	for {
		page, err := pages.ReadPage()
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return nil, err
		}
		buf := make([]parquet.Value, page.NumValues())
		n, err := page.Values().ReadValues(buf)
		if err != nil && err != io.EOF {
			return nil, err
		}
		out = append(out, buf[:n]...)
	}
}

// timestampUnit reads the logical TIMESTAMP unit of a column. Zero means unknown.
func timestampUnit(schema *parquet.Schema, column string) time.Duration {
	leaf, ok := schema.Lookup(column)
	if !ok {
		return 0
	}
	lt := leaf.Node.Type().LogicalType()
	if lt == nil || lt.Timestamp == nil {
		return 0
	}
	switch {
	case lt.Timestamp.Unit.Nanos != nil:
		return time.Nanosecond
	case lt.Timestamp.Unit.Micros != nil:
		return time.Microsecond
	case lt.Timestamp.Unit.Millis != nil:
		return time.Millisecond
	}
	return 0
}

func valueTime(v parquet.Value, unit time.Duration) (time.Time, bool) {
	if v.IsNull() {
		return time.Time{}, false
	}
	switch v.Kind() {
	case parquet.Int64:
		n := v.Int64()
		if unit == 0 {
			unit = guessEpochUnit(n)
		}
		switch unit {
		case time.Nanosecond:
			return time.Unix(0, n).UTC(), true
		case time.Microsecond:
			return time.UnixMicro(n).UTC(), true
		case time.Millisecond:
			return time.UnixMilli(n).UTC(), true
		default:
			return time.Unix(n, 0).UTC(), true
		}
	case parquet.ByteArray, parquet.FixedLenByteArray:
		t, err := ParseTimestamp(string(v.ByteArray()))
		return t, err == nil
	}
	return time.Time{}, false
}

// guessEpochUnit infers the unit of an integer epoch timestamp from its magnitude.
func guessEpochUnit(n int64) time.Duration {
	if n < 0 {
		n = -n
	}
	switch {
	case n > 1e17:
		return time.Nanosecond
	case n > 1e14:
		return time.Microsecond
	case n > 1e11:
		return time.Millisecond
	}
	return time.Second
}

func valueFloat(v parquet.Value) float64 {
	if v.IsNull() {
		return math.NaN()
	}
	switch v.Kind() {
	case parquet.Double:
		return v.Double()
	case parquet.Float:
		return float64(v.Float())
	case parquet.Int32:
		return float64(v.Int32())
	case parquet.Int64:
		return float64(v.Int64())
	case parquet.Boolean:
		if v.Boolean() {
			return 1
		}
		return 0
	case parquet.ByteArray:
		return parseFloatOrNaN(string(v.ByteArray()))
	}
	return math.NaN()
}

func valueString(v parquet.Value) string {
	switch v.Kind() {
	case parquet.Int32:
		return strconv.FormatInt(int64(v.Int32()), 10)
	case parquet.Int64:
		return strconv.FormatInt(v.Int64(), 10)
	case parquet.ByteArray, parquet.FixedLenByteArray:
		return string(v.ByteArray())
	}
	return v.String()
}
