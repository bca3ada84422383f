package server

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/pkg/errors"
	"github.com/rs/cors"
	"github.com/sirupsen/logrus"

	"pulse/internal/domain/filters"
	"pulse/internal/domain/views"
	"pulse/internal/platform/backend"
	"pulse/internal/platform/config"
	"pulse/internal/platform/jobs"
	"pulse/internal/platform/logging"
	"pulse/internal/platform/metrics"
	corehandler "pulse/internal/transport/http/handlers/core"
	performancehandler "pulse/internal/transport/http/handlers/performance"
	reportshandler "pulse/internal/transport/http/handlers/reports"
	"pulse/internal/transport/http/middleware"
)

type App struct {
	Config   config.Config
	Log      *logrus.Logger
	Backend  *backend.Client
	Sessions *views.Registry
	Metrics  *metrics.Collector
	Jobs     *jobs.Service
	Router   http.Handler

	stop context.CancelFunc
}

// New wires the gateway. Background jobs start immediately and stop on Close.
func New(cfg config.Config, log *logrus.Logger) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid config")
	}

	collector := metrics.New()
	client, err := backend.New(cfg.BackendBaseURL, cfg.BackendTimeout, backend.WithObserver(collector.UpstreamCall))
	if err != nil {
		return nil, errors.Wrap(err, "backend client")
	}

	registry := views.NewRegistry(client, views.Config{
		AlertTTL:       cfg.AlertTTL,
		SearchDebounce: cfg.SearchDebounce,
		ReportYear:     cfg.DefaultReportYear,
		IdleTimeout:    cfg.SessionIdleTimeout,
	}, views.Hooks{
		StaleResponse: func(kind filters.Kind, field string) {
			collector.StaleResponse(string(kind), field)
		},
		SessionsChanged: collector.SetActiveSessions,
	}, log)

	generateLimit, err := middleware.RateLimit(cfg.GenerateRateLimit, log, nil)
	if err != nil {
		return nil, errors.Wrap(err, "generate rate limit")
	}

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Logger(log, collector))
	router.Use(middleware.Recoverer(log))
	router.Use(cors.New(cors.Options{
		AllowedOrigins:   cfg.CORSAllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Content-Type", middleware.SessionHeader, middleware.RequestIDHeader},
		ExposedHeaders:   []string{middleware.RequestIDHeader, "Content-Disposition", "X-RateLimit-Remaining"},
		AllowCredentials: true,
		MaxAge:           300,
	}).Handler)
	router.Use(middleware.SecureHeaders(cfg.IsProduction()))
	router.Use(middleware.BodyLimit(cfg.MaxBodyBytes))

	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	router.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := client.Ping(ctx); err != nil {
			log.WithError(err).Warn("backend not ready")
			http.Error(w, "backend not ready", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	if cfg.MetricsEnabled {
		router.Handle(cfg.MetricsPath, collector.Handler())
	}

	router.Route("/api/v1", func(r chi.Router) {
		corehandler.NewHandler(registry).RegisterRoutes(r)
		reportshandler.NewHandler(registry, log).RegisterRoutes(r)
		performancehandler.NewHandler(registry, generateLimit).RegisterRoutes(r)
	})

	ctx, stop := context.WithCancel(context.Background())
	jobSvc := jobs.New(log)
	jobSvc.Every(jobs.JobSessionSweep, cfg.SessionSweepInterval, func(context.Context) (any, error) {
		return map[string]int{"expired": registry.Sweep(), "active": registry.Len()}, nil
	})
	jobSvc.Start(ctx)

	return &App{
		Config:   cfg,
		Log:      log,
		Backend:  client,
		Sessions: registry,
		Metrics:  collector,
		Jobs:     jobSvc,
		Router:   router,
		stop:     stop,
	}, nil
}

// Close stops background jobs and tears down every session.
func (a *App) Close() {
	a.stop()
	a.Jobs.Wait()
	a.Sessions.Close()
}

func Run() {
	bootLog := logging.New("info", "production")
	cfg, err := config.Load()
	if err != nil {
		bootLog.WithError(err).Fatal("load config")
	}
	log := logging.New(cfg.LogLevel, cfg.Environment)

	app, err := New(cfg, log)
	if err != nil {
		log.WithError(err).Fatal("start gateway")
	}
	defer app.Close()

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           app.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	go func() {
		<-ctx.Done()
		shutdownCtx, done := context.WithTimeout(context.Background(), 15*time.Second)
		defer done()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.WithError(err).Warn("graceful shutdown failed")
		}
	}()

	log.WithField("addr", cfg.Addr).WithField("backend", cfg.BackendBaseURL).Info("pulse gateway listening")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.WithError(err).Fatal("server failed")
	}
}
