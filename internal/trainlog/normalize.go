package trainlog

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// day-first layouts tried in order; the ISO form is last so that
// unambiguous sheet exports still parse.
var dateLayouts = []string{
	"2/1/2006",
	"2/1/06",
	"2-1-2006",
	"2.1.2006",
	"2 Jan 2006",
	"2006-01-02",
}

// ParseDate parses a day-first free-text date. ok is false when no
// layout matches; callers keep the record and mark the date unknown.
func ParseDate(text string) (time.Time, bool) {
	d := strings.TrimSpace(text)
	if d == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, d); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func parseNumeric(text string) float64 {
	v := strings.TrimSpace(text)
	if v == "" {
		return 0
	}
	val, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0
	}
	return val
}

// Normalize turns raw rows into Records. It is a pure batch transform:
// every input row maps to exactly one output record, rows never fail
// individually, and the result is sorted ascending by date with
// unknown-date records last (input order preserved among them).
func Normalize(raw []RawRecord) []Record {
	records := make([]Record, 0, len(raw))
	for _, row := range raw {
		rec := Record{
			Activity:     strings.ToLower(strings.TrimSpace(row.Activity)),
			DurationMins: ParseDuration(row.Duration),
			LengthKm:     ParseLength(row.Length),
			Reps:         parseNumeric(row.Reps),
			Sets:         parseNumeric(row.Sets),
			Weight:       parseNumeric(row.Weight),
			Elevation:    parseNumeric(row.Elevation),
			Where:        strings.TrimSpace(row.Where),
			Comment:      strings.TrimSpace(row.Comment),
			RawDuration:  strings.TrimSpace(row.Duration),
			RawLength:    strings.TrimSpace(row.Length),
		}

		if date, ok := ParseDate(row.Date); ok {
			rec.Date = &date
			rec.Month = fmt.Sprintf("%04d-%02d", date.Year(), date.Month())
			_, rec.Week = date.ISOWeek()
		}

		records = append(records, rec)
	}

	sort.SliceStable(records, func(i, j int) bool {
		di, dj := records[i].Date, records[j].Date
		switch {
		case di == nil:
			return false
		case dj == nil:
			return true
		default:
			return di.Before(*dj)
		}
	})

	return records
}

// Activities returns the sorted distinct activity names of a record set.
func Activities(records []Record) []string {
	seen := make(map[string]struct{})
	var names []string
	for _, rec := range records {
		if rec.Activity == "" {
			continue
		}
		if _, ok := seen[rec.Activity]; !ok {
			seen[rec.Activity] = struct{}{}
			names = append(names, rec.Activity)
		}
	}
	sort.Strings(names)
	return names
}
