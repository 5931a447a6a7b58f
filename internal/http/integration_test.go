//go:build integration

package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/kjstillabower/weathernow/internal/advice"
	"github.com/kjstillabower/weathernow/internal/bus"
	"github.com/kjstillabower/weathernow/internal/models"
	"github.com/kjstillabower/weathernow/internal/testhelpers"
	"github.com/kjstillabower/weathernow/internal/views"
)

func setupIntegrationServer(t *testing.T) (*httptest.Server, testhelpers.Pipeline) {
	t.Helper()
	resetState(t)
	p := testhelpers.SetupPipeline(t, testhelpers.GetIntegrationConfig(t))

	renderer := views.RendererFunc(func(string, any) {})
	times := bus.NewTopic[advice.TimeUpdate]("time", nil, p.Logger)
	today := views.NewToday(renderer, times, p.Logger)
	today.Start(p.Snapshots)
	t.Cleanup(today.Stop)

	h := NewHandler(p.Orchestrator, p.Store, []views.Panel{today}, nil, p.Logger)
	srv := httptest.NewServer(NewRouter(h, RouterConfig{RequestTimeout: 30 * time.Second}, p.Logger))
	t.Cleanup(srv.Close)
	return srv, p
}

// TestIntegration_GetWeather_Paris verifies a live lookup commits a snapshot with
// coordinates and weather and renders the today panel.
func TestIntegration_GetWeather_Paris(t *testing.T) {
	srv, p := setupIntegrationServer(t)

	resp, err := http.Get(srv.URL + "/weather/Paris")
	if err != nil {
		t.Fatalf("GET /weather/Paris error = %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	var snap models.Snapshot
	if err := json.NewDecoder(resp.Body).Decode(&snap); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if snap.Coordinates == nil || snap.Coordinates.CountryCode != "FR" {
		t.Errorf("coordinates = %+v, want a French match", snap.Coordinates)
	}
	if snap.Weather == nil || len(snap.Weather.Hourly.Time) == 0 {
		t.Error("weather missing hourly series")
	}
	if got := p.Store.Snapshot(); got.Seq != snap.Seq {
		t.Errorf("store seq = %d, want %d", got.Seq, snap.Seq)
	}

	panel, err := http.Get(srv.URL + "/panels/today")
	if err != nil {
		t.Fatalf("GET /panels/today error = %v", err)
	}
	defer panel.Body.Close()
	var state views.TodayState
	if err := json.NewDecoder(panel.Body).Decode(&state); err != nil {
		t.Fatalf("decode panel: %v", err)
	}
	if !state.Ready || state.Seq != snap.Seq {
		t.Errorf("today panel = ready %v seq %d, want ready seq %d", state.Ready, state.Seq, snap.Seq)
	}
}

// TestIntegration_GetWeather_NotFound verifies an unmatched query returns 404 and
// commits an error snapshot.
func TestIntegration_GetWeather_NotFound(t *testing.T) {
	srv, p := setupIntegrationServer(t)

	resp, err := http.Get(srv.URL + "/weather/Qxzzyqvplorth")
	if err != nil {
		t.Fatalf("GET error = %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", resp.StatusCode)
	}
	if !p.Store.Snapshot().Failed() {
		t.Error("store snapshot not marked failed")
	}
}
