package trainlog

import "time"

// FilterParams narrows a record set to an activity subset and a date
// range. Empty Activities means all activities; nil From/To mean the
// full range. Records with an unknown date fail any date bound.
type FilterParams struct {
	Activities []string
	From       *time.Time
	To         *time.Time
}

// Filter applies the params to a record set, preserving order. It never
// mutates the input.
func Filter(records []Record, params FilterParams) []Record {
	var wanted map[string]struct{}
	if len(params.Activities) > 0 {
		wanted = make(map[string]struct{}, len(params.Activities))
		for _, a := range params.Activities {
			wanted[a] = struct{}{}
		}
	}

	out := make([]Record, 0, len(records))
	for _, rec := range records {
		if wanted != nil {
			if _, ok := wanted[rec.Activity]; !ok {
				continue
			}
		}
		if params.From != nil || params.To != nil {
			day, ok := rec.Day()
			if !ok {
				continue
			}
			if params.From != nil && day.Before(*params.From) {
				continue
			}
			if params.To != nil && day.After(*params.To) {
				continue
			}
		}
		out = append(out, rec)
	}
	return out
}

// DateRange returns the min and max known dates of a record set, or
// ok=false when no record has a known date.
func DateRange(records []Record) (min, max time.Time, ok bool) {
	for _, rec := range records {
		day, hasDay := rec.Day()
		if !hasDay {
			continue
		}
		if !ok {
			min, max, ok = day, day, true
			continue
		}
		if day.Before(min) {
			min = day
		}
		if day.After(max) {
			max = day
		}
	}
	return min, max, ok
}
