package export

import (
	"fmt"
	"math"
	"os"
	"path/filepath"

	"community-load/internal/model"

	"github.com/xuri/excelize/v2"
)

// maxSheetName is Excel's limit on sheet name length.
const maxSheetName = 31

type sheet struct {
	name  string
	table model.Table
}

// Workbook collects named tables and writes them as one .xlsx file, one sheet per table,
// in the order added.
type Workbook struct {
	sheets []sheet
}

// Add appends a sheet. Names are truncated to Excel's 31 characters; a repeated name
// replaces the earlier sheet.
func (w *Workbook) Add(name string, t model.Table) {
	if len(name) > maxSheetName {
		name = name[:maxSheetName]
	}
	for i := range w.sheets {
		if w.sheets[i].name == name {
			w.sheets[i].table = t
			return
		}
	}
	w.sheets = append(w.sheets, sheet{name: name, table: t})
}

// Len returns the number of sheets.
func (w *Workbook) Len() int { return len(w.sheets) }

// Save writes the workbook to path, creating parent directories as needed.
func (w *Workbook) Save(path string) error {
	if len(w.sheets) == 0 {
		return fmt.Errorf("workbook %s: no sheets", path)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f := excelize.NewFile()
	defer f.Close()

	defaultSheet := f.GetSheetName(0)
	for _, s := range w.sheets {
		if _, err := f.NewSheet(s.name); err != nil {
			return fmt.Errorf("sheet %s: %w", s.name, err)
		}
		if err := writeSheet(f, s.name, s.table); err != nil {
			return fmt.Errorf("sheet %s: %w", s.name, err)
		}
	}
	if !w.has(defaultSheet) {
		if err := f.DeleteSheet(defaultSheet); err != nil {
			return err
		}
	}
	f.SetActiveSheet(0)
	return f.SaveAs(path)
}

func (w *Workbook) has(name string) bool {
	for _, s := range w.sheets {
		if s.name == name {
			return true
		}
	}
	return false
}

func writeSheet(f *excelize.File, name string, t model.Table) error {
	header := make([]interface{}, len(t.Header))
	for i, h := range t.Header {
		header[i] = h
	}
	if err := f.SetSheetRow(name, "A1", &header); err != nil {
		return err
	}
	for r, row := range t.Rows {
		cells := make([]interface{}, len(row))
		for i, v := range row {
			switch x := v.(type) {
			case float64:
				if math.IsNaN(x) {
					cells[i] = nil
				} else {
					cells[i] = x
				}
			default:
				cells[i] = x
			}
		}
		cell, err := excelize.CoordinatesToCellName(1, r+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(name, cell, &cells); err != nil {
			return err
		}
	}
	return nil
}
