package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/kjstillabower/weathernow/internal/circuitbreaker"
	"github.com/kjstillabower/weathernow/internal/lifecycle"
	"github.com/kjstillabower/weathernow/internal/models"
	"github.com/kjstillabower/weathernow/internal/observability"
	"github.com/kjstillabower/weathernow/internal/service"
	"github.com/kjstillabower/weathernow/internal/traffic"
	"github.com/kjstillabower/weathernow/internal/views"
)

// Fetcher runs a fetch cycle. Implemented by service.Orchestrator.
type Fetcher interface {
	FetchAll(ctx context.Context, query string) (models.Snapshot, error)
}

// SnapshotReader returns the current snapshot. Implemented by cache.Store.
type SnapshotReader interface {
	Snapshot() models.Snapshot
}

// HealthConfig holds lifecycle thresholds for the health handler.
type HealthConfig struct {
	OverloadWindow       time.Duration
	OverloadThresholdPct int
	RateLimitRPS         int
	RateLimitBurst       int // 0 when rate limiter disabled
	DegradedWindow       time.Duration
	DegradedErrorPct     int
	// RequireWarm reports "starting" until the default location has been fetched once.
	RequireWarm bool
	// Breakers are reported per provider; an open breaker degrades health.
	Breakers []*circuitbreaker.CircuitBreaker
}

// Handler holds dependencies for HTTP handlers.
type Handler struct {
	fetcher          Fetcher
	store            SnapshotReader
	panels           map[string]views.Panel
	healthConfig     *HealthConfig
	logger           *zap.Logger
	healthStatusMu   sync.Mutex
	healthStatusPrev string
}

// NewHandler returns a new Handler.
func NewHandler(
	fetcher Fetcher,
	store SnapshotReader,
	panels []views.Panel,
	healthConfig *HealthConfig,
	logger *zap.Logger,
) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	byName := make(map[string]views.Panel, len(panels))
	for _, p := range panels {
		byName[p.Name()] = p
	}
	return &Handler{
		fetcher:      fetcher,
		store:        store,
		panels:       byName,
		healthConfig: healthConfig,
		logger:       logger,
	}
}

// GetWeather handles GET /weather/{location}.
func (h *Handler) GetWeather(w http.ResponseWriter, r *http.Request) {
	h.lookup(w, r, mux.Vars(r)["location"])
}

// PostLookup handles POST /lookup with body {"location": "..."}.
func (h *Handler) PostLookup(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Location string `json:"location"`
	}
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 4096)).Decode(&body); err != nil {
		writeError(w, r, http.StatusBadRequest, "INVALID_BODY", "expected JSON body with a location field")
		return
	}
	h.lookup(w, r, body.Location)
}

func (h *Handler) lookup(w http.ResponseWriter, r *http.Request, location string) {
	observability.RecordLookup(location)

	snap, err := h.fetcher.FetchAll(r.Context(), location)
	switch {
	case err == nil:
		traffic.Record(traffic.Success)
		writeJSON(w, http.StatusOK, snap)
	case errors.Is(err, service.ErrInvalidLocation):
		writeError(w, r, http.StatusBadRequest, "INVALID_LOCATION", err.Error())
	case errors.Is(err, service.ErrLocationNotFound):
		traffic.Record(traffic.Success)
		writeError(w, r, http.StatusNotFound, "LOCATION_NOT_FOUND", "no match for "+location)
	case errors.Is(err, service.ErrSuperseded):
		traffic.Record(traffic.Success)
		writeError(w, r, http.StatusConflict, "SUPERSEDED", "a newer lookup replaced this one")
	default:
		traffic.Record(traffic.Failure)
		writeServiceError(w, r, err)
	}
}

// GetSnapshot handles GET /snapshot.
func (h *Handler) GetSnapshot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.store.Snapshot())
}

// GetPanel handles GET /panels/{name}.
func (h *Handler) GetPanel(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	p, ok := h.panels[name]
	if !ok {
		writeError(w, r, http.StatusNotFound, "UNKNOWN_PANEL", "unknown panel: "+name)
		return
	}
	writeJSON(w, http.StatusOK, p.Current())
}

// healthResult holds the computed health status and metadata for logging.
type healthResult struct {
	status     string
	statusCode int
	reason     string
}

// GetHealth handles GET /health.
func (h *Handler) GetHealth(w http.ResponseWriter, r *http.Request) {
	result := h.computeHealthStatus()

	h.healthStatusMu.Lock()
	prev := h.healthStatusPrev
	if prev != "" && prev != result.status {
		h.logger.Info("health status transition",
			zap.String("previous_status", prev),
			zap.String("current_status", result.status),
			zap.String("reason", result.reason))
	}
	h.healthStatusPrev = result.status
	h.healthStatusMu.Unlock()

	checks := make(map[string]string)
	if h.healthConfig != nil {
		for _, cb := range h.healthConfig.Breakers {
			if cb.State() == circuitbreaker.StateOpen {
				checks[cb.Name()] = "unhealthy"
			} else {
				checks[cb.Name()] = "healthy"
			}
		}
	}
	now := time.Now()
	resp := map[string]interface{}{
		"status":    result.status,
		"service":   "weathernow",
		"version":   "dev",
		"checks":    checks,
		"uptime":    lifecycle.Uptime(now).Round(time.Second).String(),
		"timestamp": now.UTC().Format(time.RFC3339),
	}
	if result.reason != "" {
		resp["reason"] = result.reason
	}
	writeJSON(w, result.statusCode, resp)
}

// computeHealthStatus evaluates conditions in priority order:
// shutting-down > starting > overloaded > degraded (error rate, open breaker) > healthy.
func (h *Handler) computeHealthStatus() healthResult {
	if lifecycle.IsShuttingDown() {
		return healthResult{"shutting-down", http.StatusServiceUnavailable, "signal"}
	}
	if h.healthConfig == nil {
		return healthResult{"healthy", http.StatusOK, ""}
	}
	if h.healthConfig.RequireWarm && !lifecycle.IsWarmed() {
		return healthResult{"starting", http.StatusServiceUnavailable, "warming"}
	}
	// Overload: denials in the window exceed the configured share of what the limiter admits.
	if h.healthConfig.RateLimitRPS > 0 && h.healthConfig.OverloadWindow > 0 {
		threshold := float64(h.healthConfig.RateLimitRPS) * h.healthConfig.OverloadWindow.Seconds() * float64(h.healthConfig.OverloadThresholdPct) / 100
		if float64(traffic.DenialCount(h.healthConfig.OverloadWindow)) > threshold {
			return healthResult{"overloaded", http.StatusServiceUnavailable, "overload_threshold"}
		}
	}
	if h.healthConfig.DegradedWindow > 0 && h.healthConfig.DegradedErrorPct > 0 {
		failures, total := traffic.FailureRate(h.healthConfig.DegradedWindow)
		if total > 0 {
			pct := float64(failures) * 100 / float64(total)
			if pct >= float64(h.healthConfig.DegradedErrorPct) {
				return healthResult{"degraded", http.StatusServiceUnavailable, "error_rate_breach"}
			}
		}
	}
	for _, cb := range h.healthConfig.Breakers {
		if cb.State() == circuitbreaker.StateOpen {
			return healthResult{"degraded", http.StatusServiceUnavailable, "circuit_open:" + cb.Name()}
		}
	}
	return healthResult{"healthy", http.StatusOK, ""}
}

// writeJSON writes a JSON response with the specified HTTP status code.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError writes an error response in the standard error format with code, message,
// and requestId (correlation ID) if available in request context.
func writeError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	writeJSON(w, status, map[string]interface{}{
		"error": map[string]string{
			"code":      code,
			"message":   message,
			"requestId": observability.CorrelationID(r.Context()),
		},
	})
}

// writeServiceError writes a 503 for failed fetch cycles and logs the cause at DEBUG.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	writeError(w, r, http.StatusServiceUnavailable, "UPSTREAM_UNAVAILABLE", "Unable to fetch location data")
	observability.LoggerFrom(r.Context(), nil).Debug("fetch cycle error", zap.Error(err))
}
