package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/kjstillabower/weathernow/internal/advice"
	"github.com/kjstillabower/weathernow/internal/bus"
	"github.com/kjstillabower/weathernow/internal/cache"
	"github.com/kjstillabower/weathernow/internal/circuitbreaker"
	"github.com/kjstillabower/weathernow/internal/client"
	"github.com/kjstillabower/weathernow/internal/config"
	httphandler "github.com/kjstillabower/weathernow/internal/http"
	"github.com/kjstillabower/weathernow/internal/lifecycle"
	"github.com/kjstillabower/weathernow/internal/models"
	"github.com/kjstillabower/weathernow/internal/observability"
	"github.com/kjstillabower/weathernow/internal/service"
	"github.com/kjstillabower/weathernow/internal/sse"
	"github.com/kjstillabower/weathernow/internal/views"
)

// app is the wired service: providers, orchestrator, panels and router.
type app struct {
	router    http.Handler
	refresher *cache.Refresher
	hub       *sse.Hub
	stop      func()
}

func newApp(cfg *config.Config, logger *zap.Logger) (*app, error) {
	var breakers []*circuitbreaker.CircuitBreaker
	opts := func(name string, p config.Provider) client.Options {
		cb := circuitbreaker.New(circuitbreaker.Config{
			Name:             name,
			FailureThreshold: cfg.BreakerFailureThreshold,
			SuccessThreshold: cfg.BreakerSuccessThreshold,
			Timeout:          cfg.BreakerTimeout,
			OnStateChange:    client.ObserveBreaker(logger),
		})
		observability.CircuitBreakerState.WithLabelValues(name).Set(float64(circuitbreaker.StateClosed))
		breakers = append(breakers, cb)
		return client.Options{BaseURL: p.URL, APIKey: p.APIKey, Timeout: p.Timeout, Breaker: cb, Logger: logger}
	}

	geocoder, err := client.NewGeocodeClient(opts("geocode", cfg.Geocode))
	if err != nil {
		return nil, err
	}
	forecast, err := client.NewForecastClient(opts("forecast", cfg.Forecast))
	if err != nil {
		return nil, err
	}
	daily, err := client.NewDailyClient(opts("daily", cfg.Daily))
	if err != nil {
		return nil, err
	}
	country, err := client.NewCountryClient(opts("country", cfg.Country))
	if err != nil {
		return nil, err
	}
	population, err := client.NewPopulationClient(opts("population", cfg.Population))
	if err != nil {
		return nil, err
	}
	if cfg.Country.APIKey == "" {
		logger.Warn("API_NINJAS_KEY not set; country and population will report unavailable")
	}
	if cfg.Daily.APIKey == "" {
		logger.Warn("OPENWEATHER_DAILY_KEY not set; daily forecast will report unavailable")
	}

	store := cache.NewStore()
	snapshots := bus.NewTopic("snapshot", models.Snapshot.Clone, logger)
	times := bus.NewTopic[advice.TimeUpdate]("time", nil, logger)

	hub := sse.NewHub(logger)
	picker := advice.RandomPicker()
	today := views.NewToday(hub, times, logger)
	hourly := views.NewHourly(hub, picker, logger)
	dailyPanel := views.NewDaily(hub, logger)
	advicePanel := views.NewAdvice(hub, today, picker, logger)
	today.Start(snapshots)
	hourly.Start(snapshots)
	dailyPanel.Start(snapshots)
	advicePanel.Start(snapshots, times)

	orch := service.NewOrchestrator(service.Clients{
		Geocoder:   geocoder,
		Forecast:   forecast,
		Daily:      daily,
		Country:    country,
		Population: population,
	}, store, snapshots, service.Options{
		MinLocationLen: cfg.MinLocationLen,
		MaxLocationLen: cfg.MaxLocationLen,
	}, logger)

	var limiter *rate.Limiter
	if cfg.RateLimitRPS > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimitRPS), cfg.RateLimitBurst)
	}
	healthConfig := &httphandler.HealthConfig{
		OverloadWindow:       cfg.OverloadWindow,
		OverloadThresholdPct: cfg.OverloadThresholdPct,
		RateLimitRPS:         cfg.RateLimitRPS,
		RateLimitBurst:       cfg.RateLimitBurst,
		DegradedWindow:       cfg.DegradedWindow,
		DegradedErrorPct:     cfg.DegradedErrorPct,
		RequireWarm:          true,
		Breakers:             breakers,
	}
	panels := []views.Panel{today, hourly, dailyPanel, advicePanel}
	handler := httphandler.NewHandler(orch, store, panels, healthConfig, logger)
	router := httphandler.NewRouter(handler, httphandler.RouterConfig{
		RequestTimeout: cfg.RequestTimeout,
		Limiter:        limiter,
		Events:         sse.Handler(hub, 0),
	}, logger)

	observability.RegisterWindowGauges(cfg.OverloadWindow)
	if len(cfg.TrackedLocations) > 0 {
		observability.SetTrackedLocations(cfg.TrackedLocations)
	}

	return &app{
		router:    router,
		refresher: cache.NewRefresher(orch, store, logger),
		hub:       hub,
		stop: func() {
			advicePanel.Stop()
			dailyPanel.Stop()
			hourly.Stop()
			today.Stop()
		},
	}, nil
}

// warm fetches the default location and marks the service warmed whether or not it
// succeeded; a failed warm-up leaves the error snapshot on display.
func (a *app) warm(ctx context.Context, cfg *config.Config, logger *zap.Logger) {
	warmCtx, cancel := context.WithTimeout(ctx, cfg.RequestTimeout)
	defer cancel()
	if err := a.refresher.WarmDefault(warmCtx, cfg.DefaultLocation); err != nil {
		logger.Warn("default location warm-up failed", zap.String("location", cfg.DefaultLocation), zap.Error(err))
	}
	lifecycle.SetWarmed(true)
}

func main() {
	lifecycle.MarkStarted(time.Now())

	logger, err := observability.NewLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("config", zap.Error(err))
	}

	a, err := newApp(cfg, logger)
	if err != nil {
		logger.Fatal("wiring", zap.Error(err))
	}

	srv := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           a.router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      cfg.RequestTimeout + 5*time.Second,
	}

	go func() {
		logger.Info("server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go a.warm(ctx, cfg, logger)
	if cfg.RefreshInterval > 0 {
		go func() {
			if err := a.refresher.RefreshPeriodic(ctx, cfg.RefreshInterval); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("periodic refresh stopped", zap.Error(err))
			}
		}()
	}

	<-ctx.Done()
	stop()

	logger.Info("graceful shutdown triggered")
	lifecycle.SetShuttingDown(true)
	a.hub.Close()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}

	inFlight := httphandler.InFlightCount()
	logger.Info("waiting for in-flight requests", zap.Int64("count", inFlight))
	observability.RecordShutdownInFlight(inFlight)
	waitCtx, waitCancel := context.WithTimeout(context.Background(), cfg.ShutdownDrainTimeout)
	defer waitCancel()
	if err := httphandler.WaitForInFlight(waitCtx, 50*time.Millisecond); err != nil {
		logger.Warn("in-flight requests not completed", zap.Error(err), zap.Int64("remaining", httphandler.InFlightCount()))
	}
	a.stop()

	if err := observability.FlushTelemetry(context.Background(), logger); err != nil {
		logger.Error("telemetry flush", zap.Error(err))
	}
	logger.Info("shutdown complete")
}
