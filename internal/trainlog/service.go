package trainlog

import (
	"context"
	"sync"
	"time"

	"github.com/bellonet/BroAnalytics/internal/telemetry/metrics"
	"github.com/bellonet/BroAnalytics/internal/telemetry/tracing"

	log "github.com/sirupsen/logrus"
)

//go:generate mockgen -source=$GOFILE -destination=service_mocks_test.go -package=trainlog_test

// Loader fetches the raw training log table from wherever it lives
// (sheets API, CSV export, local file). Implementations live in the
// source subpackage.
type Loader interface {
	Load(ctx context.Context) (Table, error)
}

// Invalidator is implemented by loaders that keep a cached copy of the
// source, so an explicit refresh can drop it and hit the source again.
type Invalidator interface {
	Invalidate()
}

// Dataset is one immutable snapshot of the pipeline output: normalized
// records plus everything derived from the full (unfiltered) set.
// Replaced wholesale on refresh, never mutated.
type Dataset struct {
	Records    []Record          `json:"records"`
	Columns    Columns           `json:"columns"`
	Activities []string          `json:"activities"`
	Colors     map[string]string `json:"colors"`
	FetchedAt  time.Time         `json:"fetchedAt"`
}

// Service owns the current dataset snapshot and rebuilds it on refresh.
// All read paths get the same snapshot pointer, so a refresh mid-request
// never tears a view.
type Service struct {
	loader  Loader
	metrics *metrics.Manager

	mu      sync.RWMutex
	dataset *Dataset
}

func NewService(loader Loader, metricsManager *metrics.Manager) *Service {
	return &Service{
		loader:  loader,
		metrics: metricsManager,
		dataset: &Dataset{Colors: map[string]string{}},
	}
}

// Dataset returns the current snapshot. Never nil; before the first
// successful refresh it is empty.
func (s *Service) Dataset() *Dataset {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dataset
}

// Refresh re-fetches the source and swaps in a freshly built snapshot.
// A load failure installs an empty snapshot and returns the error: the
// views degrade to empty rather than serving stale or partial data, and
// the caller decides the user-visible messaging.
func (s *Service) Refresh(ctx context.Context) (_ *Dataset, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "trainlog.service.refresh")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	started := time.Now()
	table, err := s.loader.Load(ctx)
	if err != nil {
		log.Errorf("trainlog refresh: load source: %s", err)
		s.metrics.CounterRefreshErrors.Inc()
		empty := &Dataset{Colors: map[string]string{}, FetchedAt: time.Now()}
		s.swap(empty)
		return empty, err
	}

	records := Normalize(table.Rows)
	activities := Activities(records)

	dataset := &Dataset{
		Records:    records,
		Columns:    table.Columns,
		Activities: activities,
		Colors:     AssignColors(activities),
		FetchedAt:  time.Now(),
	}
	s.swap(dataset)

	s.metrics.CounterRefreshes.Inc()
	s.metrics.GaugeDatasetRows.Set(float64(len(records)))
	s.metrics.HistRefreshDuration.Observe(time.Since(started).Seconds())
	log.Debugf("trainlog refresh: %d rows, %d activities", len(records), len(activities))

	return dataset, nil
}

// ForceRefresh drops any cached source data before refreshing, so the
// new snapshot is guaranteed to come from the live source.
func (s *Service) ForceRefresh(ctx context.Context) (*Dataset, error) {
	if invalidator, ok := s.loader.(Invalidator); ok {
		invalidator.Invalidate()
	}
	return s.Refresh(ctx)
}

func (s *Service) swap(dataset *Dataset) {
	s.mu.Lock()
	s.dataset = dataset
	s.mu.Unlock()
}
