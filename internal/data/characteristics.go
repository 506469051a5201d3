package data

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"community-load/internal/model"

	"github.com/xuri/excelize/v2"
)

// ReadCharacteristics loads a building characteristics table from the first sheet of an
// .xlsx workbook, or from a .csv file. idCol names the building identifier column.
func ReadCharacteristics(path, idCol string) (*model.Characteristics, error) {
	if err := RequireFile("characteristics", path); err != nil {
		return nil, err
	}
	var rows [][]string
	var err error
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		rows, err = readCSVRows(path)
	default:
		rows, err = readXLSXRows(path)
	}
	if err != nil {
		return nil, fmt.Errorf("reading characteristics %s: %w", path, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("characteristics %s: no header row", path)
	}

	header := make([]string, len(rows[0]))
	for i, h := range rows[0] {
		header[i] = strings.TrimSpace(h)
	}
	hasID := false
	for _, h := range header {
		if h == idCol {
			hasID = true
		}
	}
	if !hasID {
		return nil, fmt.Errorf("characteristics %s: id column %q not found", path, idCol)
	}

	records := make([]model.Record, 0, len(rows)-1)
	for _, row := range rows[1:] {
		if len(row) == 0 {
			continue
		}
		r := make(model.Record, len(header))
		for i, h := range header {
			if i < len(row) {
				r[h] = strings.TrimSpace(row[i])
			} else {
				r[h] = ""
			}
		}
		if r[idCol] == "" {
			continue
		}
		records = append(records, r)
	}
	return model.NewCharacteristics(idCol, header, records), nil
}

func readXLSXRows(path string) ([][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	sheet := f.GetSheetName(0)
	if sheet == "" {
		return nil, fmt.Errorf("workbook has no sheets")
	}
	return f.GetRows(sheet)
}

func readCSVRows(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	cr := csv.NewReader(f)
	cr.FieldsPerRecord = -1
	var rows [][]string
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		rows = append(rows, rec)
	}
	return rows, nil
}
