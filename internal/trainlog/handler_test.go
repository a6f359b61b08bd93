package trainlog_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/bellonet/BroAnalytics/internal/telemetry/metrics"
	"github.com/bellonet/BroAnalytics/internal/trainlog"

	"github.com/golang/mock/gomock"
	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type handlerTestSetup struct {
	router     *mux.Router
	loaderMock *MockLoader
	service    *trainlog.Service
}

func newHandlerTestSetup(t *testing.T) *handlerTestSetup {
	t.Helper()
	ctrl := gomock.NewController(t)
	loaderMock := NewMockLoader(ctrl)
	service := trainlog.NewService(loaderMock, metrics.NewTestManager())

	router := mux.NewRouter()
	trainlog.NewHandler(service).SetupRoutes(router)

	return &handlerTestSetup{
		router:     router,
		loaderMock: loaderMock,
		service:    service,
	}
}

func (s *handlerTestSetup) loadDataset(t *testing.T, table trainlog.Table) {
	t.Helper()
	s.loaderMock.EXPECT().Load(gomock.Any()).Return(table, nil).Times(1)
	_, err := s.service.Refresh(context.Background())
	require.NoError(t, err)
}

func (s *handlerTestSetup) get(t *testing.T, path string, expectedStatus int, target any) {
	t.Helper()
	req := httptest.NewRequest("GET", path, nil)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	require.Equal(t, expectedStatus, rec.Code, rec.Body.String())
	if target != nil {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), target))
	}
}

func TestHandler_Overview(t *testing.T) {
	setup := newHandlerTestSetup(t)
	setup.loadDataset(t, testTable())

	var resp struct {
		Overview trainlog.Overview `json:"overview"`
	}
	setup.get(t, "/trainlog/overview", http.StatusOK, &resp)

	// 1/3 and 2/3 are active days; the yoga row has no parseable date
	assert.Equal(t, 2, resp.Overview.ActiveDays)
	assert.Equal(t, 2, resp.Overview.RangeDays)
	assert.Equal(t, "2/2", resp.Overview.DaysLabel)
	assert.Equal(t, float64(30), resp.Overview.RepsVolume)
	// 45 min run + 60 min yoga (undated rows still count in sums)
	assert.Equal(t, float64(105), resp.Overview.DurationMins)
}

func TestHandler_Overview_filtered(t *testing.T) {
	setup := newHandlerTestSetup(t)
	setup.loadDataset(t, testTable())

	var resp struct {
		Overview trainlog.Overview `json:"overview"`
	}
	setup.get(t, "/trainlog/overview?activity=run&from=2024-03-01&to=2024-03-31", http.StatusOK, &resp)

	assert.Equal(t, 1, resp.Overview.ActiveDays)
	assert.Equal(t, 31, resp.Overview.RangeDays)
	assert.Equal(t, float64(5), resp.Overview.DistanceKm)
}

func TestHandler_Overview_badDate(t *testing.T) {
	setup := newHandlerTestSetup(t)
	setup.loadDataset(t, testTable())
	setup.get(t, "/trainlog/overview?from=01-03-2024", http.StatusBadRequest, nil)
}

func TestHandler_Records(t *testing.T) {
	setup := newHandlerTestSetup(t)
	setup.loadDataset(t, testTable())

	var resp struct {
		Records []trainlog.Record `json:"records"`
		Total   int               `json:"total"`
	}
	setup.get(t, "/trainlog/records", http.StatusOK, &resp)
	assert.Equal(t, 3, resp.Total)

	setup.get(t, "/trainlog/records?activity=PULLUPS", http.StatusOK, &resp)
	require.Equal(t, 1, resp.Total)
	assert.Equal(t, "pullups", resp.Records[0].Activity)
}

func TestHandler_Activities(t *testing.T) {
	setup := newHandlerTestSetup(t)
	setup.loadDataset(t, testTable())

	var resp struct {
		Activities []string                            `json:"activities"`
		Colors     map[string]string                   `json:"colors"`
		Profiles   map[string]trainlog.ActivityProfile `json:"profiles"`
		Columns    trainlog.Columns                    `json:"columns"`
	}
	setup.get(t, "/trainlog/activities", http.StatusOK, &resp)

	assert.Equal(t, []string{"pullups", "run", "yoga"}, resp.Activities)
	assert.Len(t, resp.Colors, 3)
	assert.Equal(t, trainlog.ShapeReps, resp.Profiles["pullups"].Shape)
	assert.Equal(t, trainlog.ShapeDistance, resp.Profiles["run"].Shape)
	assert.Equal(t, trainlog.ShapeTime, resp.Profiles["yoga"].Shape)
	assert.True(t, resp.Columns.Length)
	assert.False(t, resp.Columns.Weight)
}

func TestHandler_Calendar(t *testing.T) {
	setup := newHandlerTestSetup(t)
	setup.loadDataset(t, trainlog.Table{Rows: []trainlog.RawRecord{
		{Date: "1/3/2024", Activity: "run", Duration: "30m"},
		{Date: "1/3/2024", Activity: "run", Duration: "20m"}, // same day, one event
		{Date: "1/3/2024", Activity: "pullups", Duration: "10m"},
		{Date: "junk", Activity: "yoga", Duration: "1h"}, // no date, no event
	}})

	var resp struct {
		Events []trainlog.CalendarEvent `json:"events"`
	}
	setup.get(t, "/trainlog/calendar", http.StatusOK, &resp)

	require.Len(t, resp.Events, 2)
	for _, event := range resp.Events {
		assert.Equal(t, "2024-03-01", event.Start)
		assert.Equal(t, event.Start, event.End)
		assert.NotEmpty(t, event.Color)
		assert.NotEqual(t, "gray", event.Color)
	}
}

func TestHandler_Distribution(t *testing.T) {
	setup := newHandlerTestSetup(t)
	setup.loadDataset(t, trainlog.Table{Rows: []trainlog.RawRecord{
		{Date: "1/3/2024", Activity: "run", Duration: "30m"},
		{Date: "2/3/2024", Activity: "run", Duration: "30m"},
		{Date: "2/3/2024", Activity: "pullups", Duration: "10m"},
	}})

	var resp struct {
		Counts []trainlog.ActivityCount `json:"counts"`
	}
	setup.get(t, "/trainlog/distribution", http.StatusOK, &resp)

	require.Len(t, resp.Counts, 2)
	assert.Equal(t, trainlog.ActivityCount{Activity: "run", Days: 2}, resp.Counts[0])
	assert.Equal(t, trainlog.ActivityCount{Activity: "pullups", Days: 1}, resp.Counts[1])
}

func TestHandler_MonthlyRollups(t *testing.T) {
	setup := newHandlerTestSetup(t)
	setup.loadDataset(t, trainlog.Table{Rows: []trainlog.RawRecord{
		{Date: "1/3/2024", Activity: "run", Duration: "2h"},
		{Date: "1/4/2024", Activity: "run", Duration: "1h"},
		{Date: "2/3/2024", Activity: "pullups", Reps: "10", Sets: "3"},
	}})

	var hours trainlog.Rollup
	setup.get(t, "/trainlog/monthly/hours", http.StatusOK, &hours)
	assert.Equal(t, []string{"2024-03", "2024-04"}, hours.Months)

	var reps trainlog.Rollup
	setup.get(t, "/trainlog/monthly/reps", http.StatusOK, &reps)
	require.NotEmpty(t, reps.Cells)
	assert.Equal(t, "pullups", reps.Activities[0])
}

func TestHandler_DeepDive(t *testing.T) {
	setup := newHandlerTestSetup(t)
	setup.loadDataset(t, testTable())

	var dive trainlog.DeepDive
	setup.get(t, "/trainlog/activity/pullups/deepdive", http.StatusOK, &dive)

	assert.Equal(t, "pullups", dive.Profile.Activity)
	assert.Equal(t, trainlog.ShapeReps, dive.Profile.Shape)
	require.Len(t, dive.DailyRepsVolume, 1)
	assert.Equal(t, float64(30), dive.DailyRepsVolume[0].Value)

	// unknown activity still answers, with an empty profile
	setup.get(t, "/trainlog/activity/ghost/deepdive", http.StatusOK, &dive)
	assert.Equal(t, trainlog.ShapeNone, dive.Profile.Shape)
}

func TestHandler_Refresh(t *testing.T) {
	setup := newHandlerTestSetup(t)

	setup.loaderMock.EXPECT().Load(gomock.Any()).Return(testTable(), nil).Times(1)

	req := httptest.NewRequest("POST", "/trainlog/refresh", nil)
	rec := httptest.NewRecorder()
	setup.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Rows int `json:"rows"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 3, resp.Rows)
}

func TestHandler_Refresh_sourceFails(t *testing.T) {
	setup := newHandlerTestSetup(t)
	setup.loadDataset(t, testTable())

	setup.loaderMock.EXPECT().
		Load(gomock.Any()).
		Return(trainlog.Table{}, errors.New("source down")).
		Times(1)

	req := httptest.NewRequest("POST", "/trainlog/refresh", nil)
	rec := httptest.NewRecorder()
	setup.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadGateway, rec.Code)
	var resp struct {
		Rows  int    `json:"rows"`
		Error string `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Zero(t, resp.Rows)
	assert.Contains(t, resp.Error, "source down")

	// the snapshot degraded to empty
	assert.Empty(t, setup.service.Dataset().Records)
}
