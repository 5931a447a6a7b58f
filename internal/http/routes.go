package http

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/kjstillabower/weathernow/internal/observability"
)

// RouterConfig configures NewRouter.
type RouterConfig struct {
	RequestTimeout time.Duration
	Limiter        *rate.Limiter
	// Events serves GET /events. Omitted when nil.
	Events http.Handler
}

// NewRouter wires every route and middleware. Lookups are rate limited and bounded by
// RequestTimeout; reads, health, metrics and the event stream are not.
func NewRouter(h *Handler, cfg RouterConfig, logger *zap.Logger) *mux.Router {
	router := mux.NewRouter()
	router.Use(CorrelationIDMiddleware(logger))
	router.Use(MetricsMiddleware)

	router.HandleFunc("/health", h.GetHealth).Methods(http.MethodGet)
	router.Handle("/metrics", observability.MetricsHandler()).Methods(http.MethodGet)
	router.HandleFunc("/snapshot", h.GetSnapshot).Methods(http.MethodGet)
	router.HandleFunc("/panels/{name}", h.GetPanel).Methods(http.MethodGet)
	if cfg.Events != nil {
		router.Handle("/events", cfg.Events).Methods(http.MethodGet)
	}

	lookups := router.NewRoute().Subrouter()
	lookups.Use(RateLimitMiddleware(cfg.Limiter))
	if cfg.RequestTimeout > 0 {
		lookups.Use(TimeoutMiddleware(cfg.RequestTimeout))
	}
	lookups.HandleFunc("/weather/{location}", h.GetWeather).Methods(http.MethodGet)
	lookups.HandleFunc("/lookup", h.PostLookup).Methods(http.MethodPost)
	return router
}
