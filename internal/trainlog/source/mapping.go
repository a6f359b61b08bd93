package source

import (
	"fmt"
	"strings"

	"github.com/bellonet/BroAnalytics/internal/trainlog"
)

// canonical column names, keyed by the header aliases people actually
// type into the sheet
var headerAliases = map[string]string{
	"date":      "date",
	"day":       "date",
	"activity":  "activity",
	"what":      "activity",
	"sport":     "activity",
	"duration":  "duration",
	"time":      "duration",
	"length":    "length",
	"distance":  "length",
	"reps":      "reps",
	"sets":      "sets",
	"weight":    "weight",
	"elevation": "elevation",
	"where":     "where",
	"location":  "where",
	"comment":   "comment",
	"comments":  "comment",
	"notes":     "comment",
}

func canonicalColumn(header string) (string, bool) {
	col, ok := headerAliases[strings.ToLower(strings.TrimSpace(header))]
	return col, ok
}

// BuildTable maps a header row plus data rows onto the raw dataset.
// Unknown header cells are ignored. Date, activity and duration are
// required; a sheet without them is rejected as a whole.
func BuildTable(header []string, rows [][]string) (trainlog.Table, error) {
	colIndex := make(map[string]int)
	for i, h := range header {
		col, ok := canonicalColumn(h)
		if !ok {
			continue
		}
		if _, taken := colIndex[col]; taken {
			continue
		}
		colIndex[col] = i
	}

	for _, required := range []string{"date", "activity", "duration"} {
		if _, ok := colIndex[required]; !ok {
			return trainlog.Table{}, fmt.Errorf("required column %q not found in header %v", required, header)
		}
	}

	cell := func(row []string, col string) string {
		i, ok := colIndex[col]
		if !ok || i >= len(row) {
			return ""
		}
		return row[i]
	}

	table := trainlog.Table{
		Columns: trainlog.Columns{
			Length:    has(colIndex, "length"),
			Reps:      has(colIndex, "reps"),
			Sets:      has(colIndex, "sets"),
			Weight:    has(colIndex, "weight"),
			Elevation: has(colIndex, "elevation"),
			Where:     has(colIndex, "where"),
			Comment:   has(colIndex, "comment"),
		},
	}

	for _, row := range rows {
		if emptyRow(row) {
			continue
		}
		table.Rows = append(table.Rows, trainlog.RawRecord{
			Date:      cell(row, "date"),
			Activity:  cell(row, "activity"),
			Duration:  cell(row, "duration"),
			Length:    cell(row, "length"),
			Reps:      cell(row, "reps"),
			Sets:      cell(row, "sets"),
			Weight:    cell(row, "weight"),
			Elevation: cell(row, "elevation"),
			Where:     cell(row, "where"),
			Comment:   cell(row, "comment"),
		})
	}

	return table, nil
}

func has(colIndex map[string]int, col string) bool {
	_, ok := colIndex[col]
	return ok
}

func emptyRow(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

func mergeColumns(a, b trainlog.Columns) trainlog.Columns {
	return trainlog.Columns{
		Length:    a.Length || b.Length,
		Reps:      a.Reps || b.Reps,
		Sets:      a.Sets || b.Sets,
		Weight:    a.Weight || b.Weight,
		Elevation: a.Elevation || b.Elevation,
		Where:     a.Where || b.Where,
		Comment:   a.Comment || b.Comment,
	}
}
