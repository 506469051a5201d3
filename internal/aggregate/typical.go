package aggregate

import (
	"math"
	"sort"
	"strconv"

	"community-load/internal/model"

	"gonum.org/v1/gonum/stat"
)

// ProfileRow is the mean load at one hour of day within one calendar month.
type ProfileRow struct {
	Sector       string
	BuildingType string // set only for per-building-type profiles
	Month        int
	Hour         int
	MeanKWh      float64
}

// TypicalDay is the typical day by month of one or more series, in long form sorted by
// (sector, building type, month, hour).
type TypicalDay struct {
	Rows []ProfileRow
}

// TypicalDayMonthly groups col of an hourly frame by (month, hour of day) and averages.
// NaN values are skipped. An absent column or empty frame yields no rows.
func TypicalDayMonthly(f *model.Frame, col, sector string) TypicalDay {
	return typicalDay(f, col, sector, "")
}

// TypicalDayMonthlyByType is TypicalDayMonthly with a building type label on every row.
func TypicalDayMonthlyByType(f *model.Frame, col, sector, buildingType string) TypicalDay {
	return typicalDay(f, col, sector, buildingType)
}

func typicalDay(f *model.Frame, col, sector, buildingType string) TypicalDay {
	if !f.Has(col) {
		return TypicalDay{}
	}
	type key struct{ month, hour int }
	groups := map[key][]float64{}
	for i, ts := range f.Index {
		v := f.Col(col)[i]
		if math.IsNaN(v) {
			continue
		}
		ts = ts.UTC()
		k := key{int(ts.Month()), ts.Hour()}
		groups[k] = append(groups[k], v)
	}
	td := TypicalDay{Rows: make([]ProfileRow, 0, len(groups))}
	for k, vals := range groups {
		td.Rows = append(td.Rows, ProfileRow{
			Sector:       sector,
			BuildingType: buildingType,
			Month:        k.month,
			Hour:         k.hour,
			MeanKWh:      stat.Mean(vals, nil),
		})
	}
	td.sort()
	return td
}

func (td *TypicalDay) sort() {
	sort.SliceStable(td.Rows, func(i, j int) bool {
		a, b := td.Rows[i], td.Rows[j]
		if a.Sector != b.Sector {
			return a.Sector < b.Sector
		}
		if a.BuildingType != b.BuildingType {
			return a.BuildingType < b.BuildingType
		}
		if a.Month != b.Month {
			return a.Month < b.Month
		}
		return a.Hour < b.Hour
	})
}

// CombineProfiles concatenates profiles and restores the long-form ordering.
func CombineProfiles(parts ...TypicalDay) TypicalDay {
	var out TypicalDay
	for _, p := range parts {
		out.Rows = append(out.Rows, p.Rows...)
	}
	out.sort()
	return out
}

// Pivot is a typical day with hours as rows and months as columns.
type Pivot struct {
	Hours  []int
	Months []int
	// Values[h][m] is NaN where the (hour, month) pair had no data.
	Values [][]float64
}

// Pivot averages rows by (hour, month). Hours and months are sorted ascending.
func (td TypicalDay) Pivot() Pivot {
	type key struct{ hour, month int }
	groups := map[key][]float64{}
	hours, months := map[int]bool{}, map[int]bool{}
	for _, r := range td.Rows {
		k := key{r.Hour, r.Month}
		groups[k] = append(groups[k], r.MeanKWh)
		hours[r.Hour] = true
		months[r.Month] = true
	}
	p := Pivot{Hours: sortedKeys(hours), Months: sortedKeys(months)}
	p.Values = make([][]float64, len(p.Hours))
	for i, h := range p.Hours {
		p.Values[i] = make([]float64, len(p.Months))
		for j, m := range p.Months {
			if vals, ok := groups[key{h, m}]; ok {
				p.Values[i][j] = stat.Mean(vals, nil)
			} else {
				p.Values[i][j] = math.NaN()
			}
		}
	}
	return p
}

func sortedKeys(m map[int]bool) []int {
	out := make([]int, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Ints(out)
	return out
}

// LongTable renders sector, [building_type,] month, hour, mean_kwh.
func (td TypicalDay) LongTable() model.Table {
	withType := false
	for _, r := range td.Rows {
		if r.BuildingType != "" {
			withType = true
			break
		}
	}
	header := []string{"sector", "month", "hour", "mean_kwh"}
	if withType {
		header = []string{"sector", "building_type", "month", "hour", "mean_kwh"}
	}
	t := model.Table{Header: header, Rows: make([][]any, 0, len(td.Rows))}
	for _, r := range td.Rows {
		if withType {
			t.Rows = append(t.Rows, []any{r.Sector, r.BuildingType, r.Month, r.Hour, r.MeanKWh})
		} else {
			t.Rows = append(t.Rows, []any{r.Sector, r.Month, r.Hour, r.MeanKWh})
		}
	}
	return t
}

// Table renders hour followed by one column per month number.
func (p Pivot) Table() model.Table {
	header := []string{"hour"}
	for _, m := range p.Months {
		header = append(header, strconv.Itoa(m))
	}
	t := model.Table{Header: header, Rows: make([][]any, 0, len(p.Hours))}
	for i, h := range p.Hours {
		row := []any{h}
		for _, v := range p.Values[i] {
			row = append(row, v)
		}
		t.Rows = append(t.Rows, row)
	}
	return t
}
