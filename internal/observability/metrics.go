package observability

import (
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kjstillabower/weathernow/internal/traffic"
)

var (
	registry *prometheus.Registry

	// HTTP request rate. Watch for: sudden drops (service down) or spikes (traffic surge).
	HTTPRequestsTotal *prometheus.CounterVec

	// HTTP request latency per request. Watch for: p95/p99 latency increases.
	HTTPRequestDuration *prometheus.HistogramVec

	// Concurrent requests in flight.
	HTTPRequestsInFlight prometheus.Gauge

	// Provider call rate by provider and status class. Watch for: error vs success ratio per source.
	ProviderCallsTotal *prometheus.CounterVec

	// Provider latency. Watch for: p95 close to the configured client timeout.
	ProviderDuration *prometheus.HistogramVec

	// Provider failures collapsed into sentinels, by failure category.
	ProviderFailuresTotal *prometheus.CounterVec

	// Fetch cycles by outcome (success, location_not_found, batch_failed, superseded, invalid).
	FetchCyclesTotal *prometheus.CounterVec

	// End-to-end fetch cycle latency, geocode through commit.
	FetchCycleDuration prometheus.Histogram

	// Commits rejected because a newer cycle already committed.
	SupersededCommitsTotal prometheus.Counter

	// Cycles started while another cycle was in flight, and how many were in flight.
	// Watch for: sustained overlap, which means lookups outpace the slowest provider.
	OverlappingCyclesTotal  prometheus.Counter
	CycleOverlapConcurrency prometheus.Histogram

	// Publishes per topic.
	PublishesTotal *prometheus.CounterVec

	// Listener failures (error or panic) per topic. Watch for: a panel that keeps failing.
	ListenerFailuresTotal *prometheus.CounterVec

	// Connected server-sent-event clients.
	SSEClients prometheus.Gauge

	// Circuit breaker state per provider (0=closed, 1=open, 2=half_open).
	CircuitBreakerState *prometheus.GaugeVec

	// Refresh runs and failures.
	RefreshRunsTotal       prometheus.Counter
	RefreshErrorsTotal     prometheus.Counter
	RefreshDurationSeconds prometheus.Histogram

	// Total lookups. Watch for: traffic volume, rate() for QPS.
	LookupsTotal prometheus.Counter

	// Per-location lookup count (allow-list; others go to "other").
	LookupsByLocationTotal *prometheus.CounterVec

	// Rate limit denials.
	RateLimitDeniedTotal prometheus.Counter

	// Requests still in flight when shutdown began.
	ShutdownInFlightRequests prometheus.Gauge

	trackedLocationsMu sync.RWMutex
	trackedLocations   map[string]struct{}

	windowGaugesOnce sync.Once
)

func init() {
	registry = prometheus.NewRegistry()

	registry.MustRegister(
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewGoCollector(),
	)

	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "httpRequestsTotal",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "statusCode"},
	)
	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "httpRequestDurationSeconds",
			Help:    "HTTP request latency in seconds (per request)",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
	HTTPRequestsInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "httpRequestsInFlight",
			Help: "Number of HTTP requests currently being served",
		},
	)
	ProviderCallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "providerCallsTotal",
			Help: "Total number of outbound provider calls",
		},
		[]string{"provider", "status"},
	)
	ProviderDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "providerDurationSeconds",
			Help:    "Provider latency in seconds (per request)",
			Buckets: []float64{.1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"provider", "status"},
	)
	ProviderFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "providerFailuresTotal",
			Help: "Provider failures converted to sentinel values, by category",
		},
		[]string{"provider", "category"},
	)
	FetchCyclesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fetchCyclesTotal",
			Help: "Fetch cycles by outcome",
		},
		[]string{"outcome"},
	)
	FetchCycleDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "fetchCycleDurationSeconds",
			Help:    "Fetch cycle latency in seconds, geocode through commit",
			Buckets: []float64{.1, .25, .5, 1, 2.5, 5, 10, 20},
		},
	)
	SupersededCommitsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "supersededCommitsTotal",
			Help: "Snapshot commits rejected because a newer cycle had already committed",
		},
	)
	OverlappingCyclesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "overlappingCyclesTotal",
			Help: "Fetch cycles started while another cycle was still in flight",
		},
	)
	CycleOverlapConcurrency = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "cycleOverlapConcurrency",
			Help:    "Number of in-flight fetch cycles observed when an overlap starts",
			Buckets: []float64{2, 3, 5, 10, 20},
		},
	)
	PublishesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "publishesTotal",
			Help: "Messages published per topic",
		},
		[]string{"topic"},
	)
	ListenerFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "listenerFailuresTotal",
			Help: "Listener errors and recovered panics per topic",
		},
		[]string{"topic"},
	)
	SSEClients = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "sseClients",
			Help: "Number of connected event-stream clients",
		},
	)
	CircuitBreakerState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuitBreakerState",
			Help: "Circuit breaker state per provider (0=closed, 1=open, 2=half_open)",
		},
		[]string{"provider"},
	)
	RefreshRunsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "refreshRunsTotal",
			Help: "Total number of background refresh runs",
		},
	)
	RefreshErrorsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "refreshErrorsTotal",
			Help: "Background refresh runs that ended in an error",
		},
	)
	RefreshDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "refreshDurationSeconds",
			Help:    "Background refresh duration in seconds",
			Buckets: []float64{.1, .25, .5, 1, 2.5, 5, 10, 20},
		},
	)
	LookupsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "lookupsTotal",
			Help: "Total number of location lookups",
		},
	)
	LookupsByLocationTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lookupsByLocationTotal",
			Help: "Lookups by location (allow-list; others use location=other)",
		},
		[]string{"location"},
	)
	RateLimitDeniedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "rateLimitDeniedTotal",
			Help: "Total number of requests denied by rate limiter (429)",
		},
	)
	ShutdownInFlightRequests = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "shutdownInFlightRequests",
			Help: "Requests in flight when graceful shutdown began",
		},
	)

	registry.MustRegister(
		HTTPRequestsTotal, HTTPRequestDuration, HTTPRequestsInFlight,
		ProviderCallsTotal, ProviderDuration, ProviderFailuresTotal,
		FetchCyclesTotal, FetchCycleDuration, SupersededCommitsTotal,
		OverlappingCyclesTotal, CycleOverlapConcurrency,
		PublishesTotal, ListenerFailuresTotal, SSEClients,
		CircuitBreakerState,
		RefreshRunsTotal, RefreshErrorsTotal, RefreshDurationSeconds,
		LookupsTotal, LookupsByLocationTotal,
		RateLimitDeniedTotal, ShutdownInFlightRequests,
	)
}

// RegisterWindowGauges registers sliding-window gauges fed by the traffic tracker.
// Call from main after config load; uses the same window as the health check.
func RegisterWindowGauges(window time.Duration) {
	windowGaugesOnce.Do(func() {
		registry.MustRegister(
			prometheus.NewGaugeFunc(
				prometheus.GaugeOpts{
					Name: "lookupsInWindow",
					Help: "Lookup outcomes in sliding window; load/capacity planning",
				},
				func() float64 { return float64(traffic.RequestCount(window)) },
			),
			prometheus.NewGaugeFunc(
				prometheus.GaugeOpts{
					Name: "rateLimitRejectsInWindow",
					Help: "429 responses in sliding window",
				},
				func() float64 { return float64(traffic.DenialCount(window)) },
			),
		)
	})
}

// SetTrackedLocations sets the allow-list for location metrics. Non-tracked locations increment "other".
func SetTrackedLocations(locations []string) {
	trackedLocationsMu.Lock()
	defer trackedLocationsMu.Unlock()
	trackedLocations = make(map[string]struct{}, len(locations))
	for _, loc := range locations {
		trackedLocations[normalizeLocationForMetrics(loc)] = struct{}{}
	}
}

// RecordLookup records a lookup for the given location.
func RecordLookup(location string) {
	LookupsTotal.Inc()
	loc := normalizeLocationForMetrics(location)
	trackedLocationsMu.RLock()
	_, ok := trackedLocations[loc]
	trackedLocationsMu.RUnlock()
	if ok {
		LookupsByLocationTotal.WithLabelValues(loc).Inc()
	} else {
		LookupsByLocationTotal.WithLabelValues("other").Inc()
	}
}

func normalizeLocationForMetrics(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// RecordShutdownInFlight records the in-flight count observed at shutdown.
func RecordShutdownInFlight(n int64) {
	ShutdownInFlightRequests.Set(float64(n))
}

// MetricsHandler returns an http.Handler that serves application and runtime metrics.
func MetricsHandler() http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}
