package trainlog

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/bellonet/BroAnalytics/internal/telemetry/tracing"
	"github.com/bellonet/BroAnalytics/pkg"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
)

// Handler exposes the pipeline output as the JSON API the dashboard
// frontend consumes. It derives no metrics itself beyond calling the
// analyzer on the filtered snapshot.
type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func (handler *Handler) SetupRoutes(router *mux.Router) {
	router.HandleFunc("/trainlog/overview", handler.handleOverview).Methods("GET", "OPTIONS").Name("trainlog-overview")
	router.HandleFunc("/trainlog/records", handler.handleRecords).Methods("GET", "OPTIONS").Name("trainlog-records")
	router.HandleFunc("/trainlog/activities", handler.handleActivities).Methods("GET", "OPTIONS").Name("trainlog-activities")
	router.HandleFunc("/trainlog/calendar", handler.handleCalendar).Methods("GET", "OPTIONS").Name("trainlog-calendar")
	router.HandleFunc("/trainlog/distribution", handler.handleDistribution).Methods("GET", "OPTIONS").Name("trainlog-distribution")
	router.HandleFunc("/trainlog/monthly/hours", handler.handleMonthlyHours).Methods("GET", "OPTIONS").Name("trainlog-monthly-hours")
	router.HandleFunc("/trainlog/monthly/reps", handler.handleMonthlyReps).Methods("GET", "OPTIONS").Name("trainlog-monthly-reps")
	router.HandleFunc("/trainlog/activity/{activity}/deepdive", handler.handleDeepDive).Methods("GET", "OPTIONS").Name("trainlog-deepdive")
	router.HandleFunc("/trainlog/refresh", handler.handleRefresh).Methods("POST", "OPTIONS").Name("trainlog-refresh")
}

// filterFromRequest reads the shared query params: activity (repeatable,
// empty = all) and from/to as YYYY-MM-DD (absent = full range).
func filterFromRequest(r *http.Request) (FilterParams, error) {
	var params FilterParams
	for _, a := range r.URL.Query()["activity"] {
		a = strings.ToLower(strings.TrimSpace(a))
		if a != "" {
			params.Activities = append(params.Activities, a)
		}
	}
	if fromStr := r.URL.Query().Get("from"); fromStr != "" {
		from, err := time.Parse("2006-01-02", fromStr)
		if err != nil {
			return params, err
		}
		params.From = &from
	}
	if toStr := r.URL.Query().Get("to"); toStr != "" {
		to, err := time.Parse("2006-01-02", toStr)
		if err != nil {
			return params, err
		}
		params.To = &to
	}
	return params, nil
}

func (handler *Handler) filtered(r *http.Request) (*Dataset, []Record, FilterParams, bool) {
	params, err := filterFromRequest(r)
	if err != nil {
		return nil, nil, params, false
	}
	dataset := handler.service.Dataset()
	return dataset, Filter(dataset.Records, params), params, true
}

func writeJSON(w http.ResponseWriter, payload any) {
	respJson, err := json.Marshal(payload)
	if err != nil {
		log.Errorf("marshal response: %s", err)
		http.Error(w, "failed to marshal response", http.StatusInternalServerError)
		return
	}
	pkg.WriteJSONResponseOK(w, string(respJson))
}

type overviewResponse struct {
	Overview  Overview   `json:"overview"`
	From      *time.Time `json:"from,omitempty"`
	To        *time.Time `json:"to,omitempty"`
	FetchedAt time.Time  `json:"fetchedAt"`
}

func (handler *Handler) handleOverview(w http.ResponseWriter, r *http.Request) {
	_, span := tracing.GlobalTracer.Start(r.Context(), "handler.trainlog.overview")
	defer span.End()

	dataset, records, params, ok := handler.filtered(r)
	if !ok {
		http.Error(w, "invalid from/to date (expected YYYY-MM-DD)", http.StatusBadRequest)
		return
	}

	// the x/y days denominator defaults to the dataset's own range
	from, to := params.From, params.To
	if from == nil || to == nil {
		if min, max, ok := DateRange(dataset.Records); ok {
			if from == nil {
				from = &min
			}
			if to == nil {
				to = &max
			}
		}
	}

	var rangeFrom, rangeTo time.Time
	if from != nil {
		rangeFrom = *from
	}
	if to != nil {
		rangeTo = *to
	}

	writeJSON(w, overviewResponse{
		Overview:  ComputeOverview(records, rangeFrom, rangeTo),
		From:      from,
		To:        to,
		FetchedAt: dataset.FetchedAt,
	})
}

func (handler *Handler) handleRecords(w http.ResponseWriter, r *http.Request) {
	_, span := tracing.GlobalTracer.Start(r.Context(), "handler.trainlog.records")
	defer span.End()

	_, records, _, ok := handler.filtered(r)
	if !ok {
		http.Error(w, "invalid from/to date (expected YYYY-MM-DD)", http.StatusBadRequest)
		return
	}

	writeJSON(w, struct {
		Records []Record `json:"records"`
		Total   int      `json:"total"`
	}{Records: records, Total: len(records)})
}

func (handler *Handler) handleActivities(w http.ResponseWriter, r *http.Request) {
	_, span := tracing.GlobalTracer.Start(r.Context(), "handler.trainlog.activities")
	defer span.End()

	dataset := handler.service.Dataset()
	writeJSON(w, struct {
		Activities []string                   `json:"activities"`
		Colors     map[string]string          `json:"colors"`
		Profiles   map[string]ActivityProfile `json:"profiles"`
		Columns    Columns                    `json:"columns"`
	}{
		Activities: dataset.Activities,
		Colors:     dataset.Colors,
		Profiles:   Profiles(dataset.Records),
		Columns:    dataset.Columns,
	})
}

// CalendarEvent is one calendar cell entry: an activity on a day,
// colored by the activity. Duplicate same-day rows collapse into one.
type CalendarEvent struct {
	Title string `json:"title"`
	Start string `json:"start"`
	End   string `json:"end"`
	Color string `json:"color"`
}

func (handler *Handler) handleCalendar(w http.ResponseWriter, r *http.Request) {
	_, span := tracing.GlobalTracer.Start(r.Context(), "handler.trainlog.calendar")
	defer span.End()

	dataset, records, _, ok := handler.filtered(r)
	if !ok {
		http.Error(w, "invalid from/to date (expected YYYY-MM-DD)", http.StatusBadRequest)
		return
	}

	type dayActivity struct {
		day      time.Time
		activity string
	}
	seen := make(map[dayActivity]struct{})
	events := make([]CalendarEvent, 0, len(records))
	for _, rec := range records {
		day, hasDay := rec.Day()
		if !hasDay || rec.Activity == "" {
			continue
		}
		key := dayActivity{day: day, activity: rec.Activity}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}

		color, hasColor := dataset.Colors[rec.Activity]
		if !hasColor {
			color = "gray"
		}
		dayStr := day.Format("2006-01-02")
		events = append(events, CalendarEvent{
			Title: rec.Activity,
			Start: dayStr,
			End:   dayStr,
			Color: color,
		})
	}

	writeJSON(w, struct {
		Events []CalendarEvent `json:"events"`
	}{Events: events})
}

func (handler *Handler) handleDistribution(w http.ResponseWriter, r *http.Request) {
	_, span := tracing.GlobalTracer.Start(r.Context(), "handler.trainlog.distribution")
	defer span.End()

	_, records, _, ok := handler.filtered(r)
	if !ok {
		http.Error(w, "invalid from/to date (expected YYYY-MM-DD)", http.StatusBadRequest)
		return
	}

	writeJSON(w, struct {
		Counts []ActivityCount `json:"counts"`
	}{Counts: Distribution(records)})
}

func (handler *Handler) handleMonthlyHours(w http.ResponseWriter, r *http.Request) {
	_, span := tracing.GlobalTracer.Start(r.Context(), "handler.trainlog.monthly.hours")
	defer span.End()

	_, records, _, ok := handler.filtered(r)
	if !ok {
		http.Error(w, "invalid from/to date (expected YYYY-MM-DD)", http.StatusBadRequest)
		return
	}
	writeJSON(w, MonthlyDurationHours(records))
}

func (handler *Handler) handleMonthlyReps(w http.ResponseWriter, r *http.Request) {
	_, span := tracing.GlobalTracer.Start(r.Context(), "handler.trainlog.monthly.reps")
	defer span.End()

	_, records, _, ok := handler.filtered(r)
	if !ok {
		http.Error(w, "invalid from/to date (expected YYYY-MM-DD)", http.StatusBadRequest)
		return
	}
	writeJSON(w, MonthlyRepsVolume(records))
}

func (handler *Handler) handleDeepDive(w http.ResponseWriter, r *http.Request) {
	_, span := tracing.GlobalTracer.Start(r.Context(), "handler.trainlog.deepdive")
	defer span.End()

	activity := strings.ToLower(strings.TrimSpace(mux.Vars(r)["activity"]))
	if activity == "" {
		http.Error(w, "activity empty", http.StatusBadRequest)
		return
	}

	params, err := filterFromRequest(r)
	if err != nil {
		http.Error(w, "invalid from/to date (expected YYYY-MM-DD)", http.StatusBadRequest)
		return
	}
	params.Activities = []string{activity}

	dataset := handler.service.Dataset()
	records := Filter(dataset.Records, params)

	writeJSON(w, AnalyzeActivity(activity, records))
}

func (handler *Handler) handleRefresh(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.trainlog.refresh")
	defer span.End()

	dataset, err := handler.service.ForceRefresh(ctx)

	resp := struct {
		Rows      int       `json:"rows"`
		FetchedAt time.Time `json:"fetchedAt"`
		Error     string    `json:"error,omitempty"`
	}{
		Rows:      len(dataset.Records),
		FetchedAt: dataset.FetchedAt,
	}
	if err != nil {
		// degrade-to-empty: the snapshot is already swapped to empty,
		// the client decides what to show
		resp.Error = err.Error()
		respJson, marshalErr := json.Marshal(resp)
		if marshalErr != nil {
			http.Error(w, "failed to marshal response", http.StatusInternalServerError)
			return
		}
		pkg.WriteResponseBytes(w, pkg.ContentType.JSON, respJson, http.StatusBadGateway)
		return
	}

	writeJSON(w, resp)
}
