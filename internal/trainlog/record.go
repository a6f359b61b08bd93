package trainlog

import "time"

// RawRecord is one spreadsheet row exactly as entered: every field is the
// original free text. Missing columns come through as empty strings.
type RawRecord struct {
	Date      string `json:"date"`
	Activity  string `json:"activity"`
	Duration  string `json:"duration"`
	Length    string `json:"length"`
	Reps      string `json:"reps"`
	Sets      string `json:"sets"`
	Weight    string `json:"weight"`
	Elevation string `json:"elevation"`
	Where     string `json:"where"`
	Comment   string `json:"comment"`
}

// Columns reports which optional source columns were found in the header.
// Resolved once at ingestion, so metric code never re-checks the source.
// Date, activity and duration are required and have no flag; a source
// without them fails to load as a whole.
type Columns struct {
	Length    bool `json:"length"`
	Reps      bool `json:"reps"`
	Sets      bool `json:"sets"`
	Weight    bool `json:"weight"`
	Elevation bool `json:"elevation"`
	Where     bool `json:"where"`
	Comment   bool `json:"comment"`
}

// Table is the raw tabular dataset: rows plus the optional-column
// presence resolved from the header.
type Table struct {
	Rows    []RawRecord `json:"rows"`
	Columns Columns     `json:"columns"`
}

// Record is the normalized form of a RawRecord. Immutable once produced.
//
// Date is nil when the raw date could not be parsed; such records are
// kept (the row count invariant holds) but carry no month/week and sort
// after all dated records.
type Record struct {
	Date         *time.Time `json:"date,omitempty"`
	Activity     string     `json:"activity"`
	DurationMins float64    `json:"durationMins"`
	LengthKm     float64    `json:"lengthKm"`
	Reps         float64    `json:"reps"`
	Sets         float64    `json:"sets"`
	Weight       float64    `json:"weight"`
	Elevation    float64    `json:"elevation"`
	Where        string     `json:"where,omitempty"`
	Comment      string     `json:"comment,omitempty"`

	// Month is the "2006-01" bucket, Week the ISO week number; both are
	// zero values for records with an unknown date.
	Month string `json:"month,omitempty"`
	Week  int    `json:"week,omitempty"`

	// RawDuration/RawLength keep the original text for hover/detail views.
	RawDuration string `json:"rawDuration,omitempty"`
	RawLength   string `json:"rawLength,omitempty"`
}

// Day returns the record date truncated to midnight UTC, for
// once-per-day grouping. ok is false when the date is unknown.
func (r Record) Day() (day time.Time, ok bool) {
	if r.Date == nil {
		return time.Time{}, false
	}
	d := r.Date.UTC()
	return time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC), true
}
