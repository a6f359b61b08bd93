package internal

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/bellonet/BroAnalytics/internal/config"
	"github.com/bellonet/BroAnalytics/internal/middleware"
	"github.com/bellonet/BroAnalytics/internal/telemetry/metrics"
	"github.com/bellonet/BroAnalytics/internal/telemetry/tracing"
	"github.com/bellonet/BroAnalytics/internal/trainlog"
	"github.com/bellonet/BroAnalytics/internal/trainlog/source"
	"github.com/bellonet/BroAnalytics/pkg"

	"github.com/getsentry/sentry-go"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gorilla/mux/otelmux"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

type Server struct {
	httpServer        *http.Server
	metricsHttpServer *http.Server
	versionInfo       string

	config   *config.Config
	service  *trainlog.Service
	cronJobs *cron.Cron

	// telemetry
	metricsManager *metrics.Manager
	promRegistry   *prometheus.Registry
	otelShutdown   func()
}

type NewServerParams struct {
	Config      *config.Config
	VersionInfo string
}

func NewServer(ctx context.Context, params NewServerParams) (*Server, error) {
	promRegistry := metrics.SetupPrometheus()
	metricsManager := metrics.NewManager("broanalytics", "main", promRegistry)
	metricsManager.GaugeLifeSignal.Set(0)

	// use honeycomb distro to setup OpenTelemetry SDK
	otelShutdown, err := tracing.HoneycombSetup(params.Config.HoneycombEnabled, "broanalytics-backend")
	if err != nil {
		return nil, err
	}

	tracedHttpClient := &http.Client{
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	}

	loader, err := newDatasetLoader(ctx, params.Config, tracedHttpClient)
	if err != nil {
		return nil, err
	}
	cachedLoader := source.NewCachedLoader(loader, params.Config.CacheTTL())

	s := &Server{
		config:      params.Config,
		service:     trainlog.NewService(cachedLoader, metricsManager),
		versionInfo: params.VersionInfo,

		metricsManager: metricsManager,
		promRegistry:   promRegistry,
		otelShutdown:   otelShutdown,
	}

	if schedule := params.Config.RefreshSchedule; schedule != "" {
		s.cronJobs = cron.New()
		_, err := s.cronJobs.AddFunc(schedule, func() {
			refreshCtx, cancel := context.WithTimeout(context.Background(), time.Minute)
			defer cancel()
			if _, err := s.service.ForceRefresh(refreshCtx); err != nil {
				log.Errorf("scheduled dataset refresh failed: %s", err)
			}
		})
		if err != nil {
			return nil, fmt.Errorf("add refresh cron job [%s]: %w", schedule, err)
		}
	}

	return s, nil
}

// newDatasetLoader assembles the loader chain: the sheets api when
// credentials are configured, the csv export as fallback. At least one
// of the two must be configured.
func newDatasetLoader(ctx context.Context, conf *config.Config, httpClient *http.Client) (trainlog.Loader, error) {
	var loaders []trainlog.Loader

	if conf.CredentialsPath != "" && conf.SpreadsheetID != "" {
		sheetsLoader, err := source.NewSheetsLoader(ctx, conf.CredentialsPath, conf.SpreadsheetID)
		if err != nil {
			log.Errorf("failed to create sheets loader, skipping it: %s", err)
		} else {
			loaders = append(loaders, sheetsLoader)
		}
	}

	if conf.SheetCSVURL != "" {
		loaders = append(loaders, source.NewCSVLoader(conf.SheetCSVURL, httpClient))
	}

	switch len(loaders) {
	case 0:
		return nil, errors.New("no training log source configured")
	case 1:
		return loaders[0], nil
	default:
		return source.NewFallbackLoader(loaders...), nil
	}
}

func (s *Server) routerSetup() *mux.Router {
	r := mux.NewRouter()
	r.Use(otelmux.Middleware("main-router"))

	trainlogHandler := trainlog.NewHandler(s.service)
	trainlogHandler.SetupRoutes(r)

	r.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		pkg.WriteTextResponseOK(w, fmt.Sprintf("ok [%s]", s.versionInfo))
	}).Methods("GET", "OPTIONS").Name("healthz")

	// all the rest - unhandled paths
	r.HandleFunc("/{unknown}", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}).Methods("GET", "POST", "PUT", "OPTIONS").Name("unknown")

	r.Use(middleware.PanicRecovery(s.metricsManager))
	r.Use(middleware.LogRequest())
	r.Use(middleware.RequestMetrics(s.metricsManager))
	r.Use(middleware.Cors())
	r.Use(middleware.DrainAndCloseRequest())

	return r
}

func (s *Server) Serve(ctx context.Context, host string, port int) {
	router := s.routerSetup()

	ipAndPort := net.JoinHostPort(host, strconv.Itoa(port))
	s.httpServer = &http.Server{
		Handler:      router,
		Addr:         ipAndPort,
		WriteTimeout: time.Minute,
		ReadTimeout:  time.Minute,
		ConnState:    s.connStateMetrics,
	}

	metricsRouter := mux.NewRouter()
	metricsRouter.Handle("/metrics", promhttp.HandlerFor(
		s.promRegistry,
		promhttp.HandlerOpts{},
	))
	metricsAddr := net.JoinHostPort(s.config.PrometheusMetricsHost, strconv.Itoa(s.config.PrometheusMetricsPort))
	s.metricsHttpServer = &http.Server{
		Addr:    metricsAddr,
		Handler: metricsRouter,
	}

	// load the dataset before accepting traffic; a failing source is
	// not fatal, the service starts with an empty dataset instead
	if _, err := s.service.Refresh(ctx); err != nil {
		log.Errorf("initial dataset load failed, starting with empty dataset: %s", err)
	}

	if s.cronJobs != nil {
		s.cronJobs.Start()
		log.Debugf("dataset refresh scheduled: [%s]", s.config.RefreshSchedule)
	}

	go func() {
		log.Infof(" > server listening on: [%s]", ipAndPort)
		err := s.httpServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("main service, listen and serve: %s", err)
		}
	}()

	go func() {
		log.Debugf(" > metrics listening on: [%s]", metricsAddr)
		err := s.metricsHttpServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("metrics service, listen and serve: %s", err)
		}
	}()

	s.metricsManager.GaugeLifeSignal.Set(1)
}

func (s *Server) GracefulShutdown() {
	log.Debug("graceful shutdown initiated ...")

	s.metricsManager.GaugeLifeSignal.Set(0)

	if s.cronJobs != nil {
		cronCtx := s.cronJobs.Stop()
		<-cronCtx.Done()
		log.Trace("cron jobs stopped ...")
	}

	s.otelShutdown()
	log.Trace("otel shut down ...")

	if ok := sentry.Flush(5 * time.Second); ok {
		log.Debugf("sentry flush ok: %t", ok)
	}

	maxWaitDuration := time.Second * 15
	ctx, timeoutCancel := context.WithTimeout(context.Background(), maxWaitDuration)
	defer timeoutCancel()

	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(ctx); err != nil {
			log.Error(" >>> failed to gracefully shutdown http server")
		}
		log.Warnln("server shut down")
	}

	if s.metricsHttpServer != nil {
		if err := s.metricsHttpServer.Shutdown(ctx); err != nil {
			log.Error(" >>> failed to gracefully shutdown metrics http server")
		}
		log.Warnln("metrics server shut down")
	}
}

func (s *Server) connStateMetrics(_ net.Conn, state http.ConnState) {
	switch state {
	case http.StateNew:
		s.metricsManager.GaugeRequests.Add(1)
	case http.StateClosed:
		s.metricsManager.GaugeRequests.Sub(1)
	}
}
