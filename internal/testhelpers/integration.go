//go:build integration

// Package testhelpers builds the live provider pipeline for integration tests.
package testhelpers

import (
	"os"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"github.com/kjstillabower/weathernow/internal/bus"
	"github.com/kjstillabower/weathernow/internal/cache"
	"github.com/kjstillabower/weathernow/internal/client"
	"github.com/kjstillabower/weathernow/internal/models"
	"github.com/kjstillabower/weathernow/internal/service"
)

// IntegrationConfig holds provider keys for integration tests. Open-Meteo needs no key;
// the country, population and daily sources report unavailable without theirs.
type IntegrationConfig struct {
	NinjasKey string
	DailyKey  string
	Timeout   time.Duration
}

// GetIntegrationConfig reads keys from the environment. Skips the test unless
// WEATHERNOW_INTEGRATION is set, since every test calls live providers.
func GetIntegrationConfig(t *testing.T) IntegrationConfig {
	t.Helper()
	if os.Getenv("WEATHERNOW_INTEGRATION") == "" {
		t.Skip("WEATHERNOW_INTEGRATION not set, skipping integration test")
	}
	return IntegrationConfig{
		NinjasKey: os.Getenv("API_NINJAS_KEY"),
		DailyKey:  os.Getenv("OPENWEATHER_DAILY_KEY"),
		Timeout:   10 * time.Second,
	}
}

// Pipeline is a live orchestrator with its store and snapshot topic.
type Pipeline struct {
	Orchestrator *service.Orchestrator
	Store        *cache.Store
	Snapshots    *bus.Topic[models.Snapshot]
	Logger       *zap.Logger
}

// SetupPipeline wires every provider client at its default URL.
func SetupPipeline(t *testing.T, cfg IntegrationConfig) Pipeline {
	t.Helper()
	logger := zaptest.NewLogger(t)

	geocoder, err := client.NewGeocodeClient(client.Options{Timeout: cfg.Timeout, Logger: logger})
	if err != nil {
		t.Fatalf("NewGeocodeClient() error = %v", err)
	}
	forecast, err := client.NewForecastClient(client.Options{Timeout: cfg.Timeout, Logger: logger})
	if err != nil {
		t.Fatalf("NewForecastClient() error = %v", err)
	}
	daily, err := client.NewDailyClient(client.Options{APIKey: cfg.DailyKey, Timeout: cfg.Timeout, Logger: logger})
	if err != nil {
		t.Fatalf("NewDailyClient() error = %v", err)
	}
	country, err := client.NewCountryClient(client.Options{APIKey: cfg.NinjasKey, Timeout: cfg.Timeout, Logger: logger})
	if err != nil {
		t.Fatalf("NewCountryClient() error = %v", err)
	}
	population, err := client.NewPopulationClient(client.Options{APIKey: cfg.NinjasKey, Timeout: cfg.Timeout, Logger: logger})
	if err != nil {
		t.Fatalf("NewPopulationClient() error = %v", err)
	}

	store := cache.NewStore()
	snapshots := bus.NewTopic("snapshot", models.Snapshot.Clone, logger)
	orch := service.NewOrchestrator(service.Clients{
		Geocoder:   geocoder,
		Forecast:   forecast,
		Daily:      daily,
		Country:    country,
		Population: population,
	}, store, snapshots, service.Options{MinLocationLen: 2, MaxLocationLen: 100}, logger)

	return Pipeline{Orchestrator: orch, Store: store, Snapshots: snapshots, Logger: logger}
}
