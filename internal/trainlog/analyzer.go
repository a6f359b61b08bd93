package trainlog

import (
	"fmt"
	"math"
	"sort"
	"time"
)

// Per-record derived metrics. The zero-value defaults differ on purpose:
// an unset "sets" always means one set, but unset "reps" means zero work
// for the reps count and one rep for the weight/time products - matching
// how the log has always been read.

// RepsVolume is sets x reps, with sets defaulting to 1 and reps to 0.
func (r Record) RepsVolume() float64 {
	sets := r.Sets
	if sets <= 0 {
		sets = 1
	}
	reps := r.Reps
	if reps <= 0 {
		reps = 0
	}
	return sets * reps
}

// WeightVolume (tonnage) is sets x reps x weight, with sets and reps
// both defaulting to 1. Without a weight value the product means
// nothing, so weight <= 0 yields 0 regardless of sets/reps.
func (r Record) WeightVolume() float64 {
	if r.Weight <= 0 {
		return 0
	}
	sets := r.Sets
	if sets <= 0 {
		sets = 1
	}
	reps := r.Reps
	if reps <= 0 {
		reps = 1
	}
	return sets * reps * r.Weight
}

// TimeVolume is duration x sets x reps (sets and reps defaulting to 1),
// for interval-style activities logged with time and reps but no
// weight or distance.
func (r Record) TimeVolume() float64 {
	sets := r.Sets
	if sets <= 0 {
		sets = 1
	}
	reps := r.Reps
	if reps <= 0 {
		reps = 1
	}
	return r.DurationMins * sets * reps
}

// Shape classifies an activity by the metric dimensions it actually
// uses, which decides the deep-dive layout.
type Shape string

const (
	ShapeNone     Shape = "none"
	ShapeReps     Shape = "reps-based"
	ShapeDistance Shape = "distance-based"
	ShapeTime     Shape = "time-based"
	ShapeMixed    Shape = "mixed"
)

// Secondary deep-dive metric selected by the profile. Weight volume wins
// when both weight and duration are present; time volume only applies
// when there is no weight and no distance to rank by.
const (
	SecondaryNone         = ""
	SecondaryWeightVolume = "weight-volume"
	SecondaryTimeVolume   = "time-volume"
)

// ActivityProfile describes which dimensions an activity's records carry
// (each flag true when at least one record has a positive value) and the
// resulting classification. Recomputed on every filter change, never
// stored.
type ActivityProfile struct {
	Activity    string `json:"activity"`
	HasRepsSets bool   `json:"hasRepsSets"`
	HasWeight   bool   `json:"hasWeight"`
	HasDuration bool   `json:"hasDuration"`
	HasLength   bool   `json:"hasLength"`
	Shape       Shape  `json:"shape"`
	Secondary   string `json:"secondaryMetric,omitempty"`
}

// ProfileOf classifies one activity from its records. Columns absent
// from the source produce all-zero fields, so an absent dimension can
// never classify as present.
func ProfileOf(activity string, records []Record) ActivityProfile {
	p := ActivityProfile{Activity: activity}
	for _, rec := range records {
		if rec.Activity != activity {
			continue
		}
		if rec.Reps > 0 || rec.Sets > 0 {
			p.HasRepsSets = true
		}
		if rec.Weight > 0 {
			p.HasWeight = true
		}
		if rec.DurationMins > 0 {
			p.HasDuration = true
		}
		if rec.LengthKm > 0 {
			p.HasLength = true
		}
	}

	switch {
	case p.HasRepsSets && (p.HasWeight || p.HasDuration || p.HasLength):
		p.Shape = ShapeMixed
	case p.HasRepsSets:
		p.Shape = ShapeReps
	case p.HasLength:
		p.Shape = ShapeDistance
	case p.HasDuration:
		p.Shape = ShapeTime
	default:
		p.Shape = ShapeNone
	}

	if p.HasRepsSets {
		switch {
		case p.HasWeight:
			p.Secondary = SecondaryWeightVolume
		case p.HasDuration && !p.HasLength:
			p.Secondary = SecondaryTimeVolume
		}
	}

	return p
}

// Profiles classifies every activity in the record set.
func Profiles(records []Record) map[string]ActivityProfile {
	profiles := make(map[string]ActivityProfile)
	for _, activity := range Activities(records) {
		profiles[activity] = ProfileOf(activity, records)
	}
	return profiles
}

// ActiveDays counts distinct calendar days with at least one record.
// Duplicate same-day rows count once; unknown dates never count.
func ActiveDays(records []Record) int {
	days := make(map[time.Time]struct{})
	for _, rec := range records {
		if day, ok := rec.Day(); ok {
			days[day] = struct{}{}
		}
	}
	return len(days)
}

// ActivityCount is one activity's active-day count.
type ActivityCount struct {
	Activity string `json:"activity"`
	Days     int    `json:"days"`
}

// Distribution returns per-activity active-day counts, descending by
// count with ties broken by name - the session-distribution view.
func Distribution(records []Record) []ActivityCount {
	perActivity := make(map[string]map[time.Time]struct{})
	for _, rec := range records {
		day, ok := rec.Day()
		if !ok || rec.Activity == "" {
			continue
		}
		if perActivity[rec.Activity] == nil {
			perActivity[rec.Activity] = make(map[time.Time]struct{})
		}
		perActivity[rec.Activity][day] = struct{}{}
	}

	counts := make([]ActivityCount, 0, len(perActivity))
	for activity, days := range perActivity {
		counts = append(counts, ActivityCount{Activity: activity, Days: len(days)})
	}
	sort.Slice(counts, func(i, j int) bool {
		if counts[i].Days != counts[j].Days {
			return counts[i].Days > counts[j].Days
		}
		return counts[i].Activity < counts[j].Activity
	})
	return counts
}

// RollupCell is one month x activity aggregate value.
type RollupCell struct {
	Month    string  `json:"month"`
	Activity string  `json:"activity"`
	Value    float64 `json:"value"`
}

// Rollup is a month x activity aggregate table. Months ascend;
// Activities are ordered by descending total (ties by name) so chart
// legends stay stable across filters.
type Rollup struct {
	Months     []string     `json:"months"`
	Activities []string     `json:"activities"`
	Cells      []RollupCell `json:"cells"`
}

func rollup(records []Record, value func(Record) float64) Rollup {
	type key struct{ month, activity string }
	sums := make(map[key]float64)
	totals := make(map[string]float64)
	monthSet := make(map[string]struct{})

	for _, rec := range records {
		if rec.Month == "" || rec.Activity == "" {
			continue
		}
		v := value(rec)
		sums[key{rec.Month, rec.Activity}] += v
		totals[rec.Activity] += v
		monthSet[rec.Month] = struct{}{}
	}

	months := make([]string, 0, len(monthSet))
	for m := range monthSet {
		months = append(months, m)
	}
	sort.Strings(months)

	activities := make([]string, 0, len(totals))
	for a := range totals {
		activities = append(activities, a)
	}
	sort.Slice(activities, func(i, j int) bool {
		if totals[activities[i]] != totals[activities[j]] {
			return totals[activities[i]] > totals[activities[j]]
		}
		return activities[i] < activities[j]
	})

	var cells []RollupCell
	for _, m := range months {
		for _, a := range activities {
			if v, ok := sums[key{m, a}]; ok {
				cells = append(cells, RollupCell{Month: m, Activity: a, Value: v})
			}
		}
	}

	return Rollup{Months: months, Activities: activities, Cells: cells}
}

// MonthlyDurationHours sums training hours per month and activity.
func MonthlyDurationHours(records []Record) Rollup {
	return rollup(records, func(r Record) float64 { return r.DurationMins / 60 })
}

// MonthlyRepsVolume sums reps volume per month and activity.
func MonthlyRepsVolume(records []Record) Rollup {
	return rollup(records, func(r Record) float64 { return r.RepsVolume() })
}

// Overview holds the KPI card values for the filtered record set.
// Sums use every row; only ActiveDays deduplicates same-day entries.
type Overview struct {
	ActiveDays    int     `json:"activeDays"`
	RangeDays     int     `json:"rangeDays"`
	DaysLabel     string  `json:"daysLabel"`
	RepsVolume    float64 `json:"repsVolume"`
	TonnageKg     float64 `json:"tonnageKg"`
	TonnageLabel  string  `json:"tonnageLabel"`
	DistanceKm    float64 `json:"distanceKm"`
	DistanceLabel string  `json:"distanceLabel"`
	DurationMins  float64 `json:"durationMins"`
	DurationLabel string  `json:"durationLabel"`
}

// ComputeOverview derives the KPI values. from/to bound the "x/y days"
// denominator; pass the dataset's own range for the unfiltered view.
func ComputeOverview(records []Record, from, to time.Time) Overview {
	o := Overview{ActiveDays: ActiveDays(records)}

	if !from.IsZero() && !to.IsZero() && !to.Before(from) {
		o.RangeDays = int(to.Sub(from).Hours()/24) + 1
	}
	if o.RangeDays > 0 {
		o.DaysLabel = fmt.Sprintf("%d/%d", o.ActiveDays, o.RangeDays)
	} else {
		o.DaysLabel = "0/0"
	}

	for _, rec := range records {
		o.RepsVolume += rec.RepsVolume()
		o.TonnageKg += rec.WeightVolume()
		o.DistanceKm += rec.LengthKm
		o.DurationMins += rec.DurationMins
	}

	o.TonnageLabel = fmt.Sprintf("%.1f t", o.TonnageKg/1000)
	o.DistanceLabel = fmt.Sprintf("%.1f km", math.Round(o.DistanceKm*10)/10)
	hours := int(o.DurationMins) / 60
	mins := int(o.DurationMins) % 60
	o.DurationLabel = fmt.Sprintf("%dh %dm", hours, mins)

	return o
}

// DayValue is one per-day aggregate point of a deep-dive series.
type DayValue struct {
	Day   time.Time `json:"day"`
	Value float64   `json:"value"`
}

// LocationCount is the session count at one logged location.
type LocationCount struct {
	Where string `json:"where"`
	Count int    `json:"count"`
}

// DeepDive is the single-activity analysis: the profile plus the per-day
// series the profile makes meaningful. Series the profile rules out stay
// nil so the view can skip them.
type DeepDive struct {
	Profile           ActivityProfile `json:"profile"`
	DailyRepsVolume   []DayValue      `json:"dailyRepsVolume,omitempty"`
	DailySecondary    []DayValue      `json:"dailySecondary,omitempty"`
	DailyDistance     []DayValue      `json:"dailyDistance,omitempty"`
	DailyDuration     []DayValue      `json:"dailyDuration,omitempty"`
	Locations         []LocationCount `json:"locations,omitempty"`
	MultipleLocations bool            `json:"multipleLocations"`
}

func dailySeries(records []Record, value func(Record) float64) []DayValue {
	sums := make(map[time.Time]float64)
	for _, rec := range records {
		day, ok := rec.Day()
		if !ok {
			continue
		}
		sums[day] += value(rec)
	}
	if len(sums) == 0 {
		return nil
	}
	series := make([]DayValue, 0, len(sums))
	for day, v := range sums {
		series = append(series, DayValue{Day: day, Value: v})
	}
	sort.Slice(series, func(i, j int) bool { return series[i].Day.Before(series[j].Day) })
	return series
}

// AnalyzeActivity builds the deep dive for one activity. The records
// passed in should already be filtered to that activity and date range.
func AnalyzeActivity(activity string, records []Record) DeepDive {
	profile := ProfileOf(activity, records)
	dive := DeepDive{Profile: profile}

	if profile.HasRepsSets {
		dive.DailyRepsVolume = dailySeries(records, func(r Record) float64 { return r.RepsVolume() })
		switch profile.Secondary {
		case SecondaryWeightVolume:
			dive.DailySecondary = dailySeries(records, func(r Record) float64 { return r.WeightVolume() })
		case SecondaryTimeVolume:
			dive.DailySecondary = dailySeries(records, func(r Record) float64 { return r.TimeVolume() })
		}
	} else {
		// distance/duration activities fall back to plain logs
		if profile.HasLength {
			dive.DailyDistance = dailySeries(records, func(r Record) float64 { return r.LengthKm })
		}
		if profile.HasDuration {
			dive.DailyDuration = dailySeries(records, func(r Record) float64 { return r.DurationMins })
		}
	}

	locCounts := make(map[string]int)
	for _, rec := range records {
		if rec.Where == "" {
			continue
		}
		locCounts[rec.Where]++
	}
	if len(locCounts) > 0 {
		dive.Locations = make([]LocationCount, 0, len(locCounts))
		for where, count := range locCounts {
			dive.Locations = append(dive.Locations, LocationCount{Where: where, Count: count})
		}
		sort.Slice(dive.Locations, func(i, j int) bool {
			if dive.Locations[i].Count != dive.Locations[j].Count {
				return dive.Locations[i].Count > dive.Locations[j].Count
			}
			return dive.Locations[i].Where < dive.Locations[j].Where
		})
		dive.MultipleLocations = len(dive.Locations) > 1
	}

	return dive
}
