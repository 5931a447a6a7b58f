// Package client talks to the external data providers. Every client turns a
// source-level failure (network, status, payload, open breaker) into its sentinel
// value and only returns an error when its own input is unusable.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/kjstillabower/weathernow/internal/circuitbreaker"
	"github.com/kjstillabower/weathernow/internal/models"
	"github.com/kjstillabower/weathernow/internal/observability"
)

// Input errors. These are the only errors the provider clients return.
var (
	ErrMissingLocation    = errors.New("location name not provided")
	ErrInvalidCoordinates = errors.New("invalid coordinates")
	ErrMissingCountry     = errors.New("country name not provided")
)

// Source-level failures. They never leave this package; they are logged, counted and
// replaced by the caller-facing sentinel.
var (
	ErrUnauthorized    = errors.New("provider rejected credentials")
	ErrNotFound        = errors.New("provider returned not found")
	ErrRateLimited     = errors.New("rate limited")
	ErrUpstreamFailure = errors.New("upstream failure")
	ErrEmptyPayload    = errors.New("empty payload")
)

// Provider names, used as metric and log labels.
const (
	ProviderGeocode    = "geocode"
	ProviderForecast   = "forecast"
	ProviderDaily      = "daily"
	ProviderCountry    = "country"
	ProviderPopulation = "population"
)

// Geocoder resolves a place name. A nil result means the place is unknown or the
// source failed.
type Geocoder interface {
	Geocode(ctx context.Context, name string) (*models.Coordinates, error)
}

// ForecastFetcher returns current and hourly weather, or nil when the source failed.
type ForecastFetcher interface {
	CurrentAndHourly(ctx context.Context, lat, lon float64) (*models.Weather, error)
}

// DailyFetcher returns the extended daily forecast, or nil when the source failed.
type DailyFetcher interface {
	Daily(ctx context.Context, lat, lon float64) (*models.DailyForecast, error)
}

// CountryFetcher returns the country record, or nil when the source failed.
type CountryFetcher interface {
	Country(ctx context.Context, name string) (*models.CountryInfo, error)
}

// PopulationFetcher returns population history. On source failure it returns
// models.PopulationUnavailable rather than an empty value.
type PopulationFetcher interface {
	Population(ctx context.Context, name string) (models.Population, error)
}

// Options configures one provider client.
type Options struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
	// Breaker is optional. When set, an open breaker counts as a source failure.
	Breaker *circuitbreaker.CircuitBreaker
	Logger  *zap.Logger
	// HTTPClient overrides the default client built from Timeout.
	HTTPClient *http.Client
}

// endpoint holds the request plumbing shared by every provider client.
type endpoint struct {
	provider string
	baseURL  *url.URL
	apiKey   string
	http     *http.Client
	breaker  *circuitbreaker.CircuitBreaker
	logger   *zap.Logger
}

func newEndpoint(provider string, opts Options) (*endpoint, error) {
	u, err := url.Parse(opts.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("%s: invalid base URL %q", provider, opts.BaseURL)
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	hc := opts.HTTPClient
	if hc == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		hc = &http.Client{Timeout: timeout}
	}
	return &endpoint{
		provider: provider,
		baseURL:  u,
		apiKey:   opts.APIKey,
		http:     hc,
		breaker:  opts.Breaker,
		logger:   logger.With(zap.String("provider", provider)),
	}, nil
}

// getJSON issues a GET with params and headers and decodes a 2xx body into out.
func (e *endpoint) getJSON(ctx context.Context, params url.Values, headers http.Header, out any) error {
	call := func() error { return e.do(ctx, params, headers, out) }
	if e.breaker == nil {
		return call()
	}
	return e.breaker.Call(ctx, call)
}

func (e *endpoint) do(ctx context.Context, params url.Values, headers http.Header, out any) error {
	start := time.Now()

	req, err := e.buildRequest(ctx, params, headers)
	if err != nil {
		observability.ProviderCallsTotal.WithLabelValues(e.provider, "error").Inc()
		return fmt.Errorf("build request: %w", err)
	}

	resp, err := e.http.Do(req)
	if err != nil {
		observability.ProviderCallsTotal.WithLabelValues(e.provider, "error").Inc()
		observability.ProviderDuration.WithLabelValues(e.provider, "error").Observe(time.Since(start).Seconds())
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return fmt.Errorf("request timeout: %w", err)
		}
		return fmt.Errorf("http request failed: %w", err)
	}
	defer resp.Body.Close()

	status := statusLabel(resp.StatusCode)
	observability.ProviderCallsTotal.WithLabelValues(e.provider, status).Inc()
	observability.ProviderDuration.WithLabelValues(e.provider, status).Observe(time.Since(start).Seconds())

	if err := handleErrorResponse(resp); err != nil {
		return err
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response body: %w", err)
	}
	if len(body) == 0 {
		return ErrEmptyPayload
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("parse response: %w", err)
	}
	return nil
}

func (e *endpoint) buildRequest(ctx context.Context, params url.Values, headers http.Header) (*http.Request, error) {
	u := *e.baseURL
	q := u.Query()
	for k, vs := range params {
		for _, v := range vs {
			q.Add(k, v)
		}
	}
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	for k, vs := range headers {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	if corrID := observability.CorrelationID(ctx); corrID != "" {
		req.Header.Set("X-Correlation-ID", corrID)
	}
	return req, nil
}

// sourceFailed logs and counts a failure that is about to be replaced by a sentinel.
func (e *endpoint) sourceFailed(ctx context.Context, input string, err error) {
	category := CategorizeError(err)
	observability.ProviderFailuresTotal.WithLabelValues(e.provider, string(category)).Inc()
	observability.LoggerFrom(ctx, e.logger).Warn("provider unavailable",
		zap.String("provider", e.provider),
		zap.String("input", input),
		zap.String("category", string(category)),
		zap.Error(err))
}

func handleErrorResponse(resp *http.Response) error {
	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("%w: HTTP %d", ErrUnauthorized, resp.StatusCode)
	case http.StatusNotFound:
		return fmt.Errorf("%w", ErrNotFound)
	case http.StatusTooManyRequests:
		return fmt.Errorf("%w", ErrRateLimited)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: HTTP %d", ErrUpstreamFailure, resp.StatusCode)
	}
	return nil
}

func statusLabel(statusCode int) string {
	if statusCode >= 200 && statusCode < 300 {
		return "success"
	}
	if statusCode == 429 {
		return "rate_limited"
	}
	if statusCode >= 400 && statusCode < 500 {
		return "client_error"
	}
	if statusCode >= 500 {
		return "server_error"
	}
	return "error"
}

// ObserveBreaker is a circuitbreaker.Config.OnStateChange hook that exports the state
// as a gauge and logs the transition.
func ObserveBreaker(logger *zap.Logger) func(name string, from, to circuitbreaker.State) {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(name string, from, to circuitbreaker.State) {
		observability.CircuitBreakerState.WithLabelValues(name).Set(float64(to))
		logger.Info("circuit breaker state change",
			zap.String("provider", name),
			zap.String("from", from.String()),
			zap.String("to", to.String()))
	}
}

func validCoordinates(lat, lon float64) bool {
	// NaN fails both comparisons.
	return lat >= -90 && lat <= 90 && lon >= -180 && lon <= 180
}
