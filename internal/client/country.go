package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"github.com/kjstillabower/weathernow/internal/models"
)

// Default api-ninjas endpoints.
const (
	DefaultCountryURL    = "https://api.api-ninjas.com/v1/country"
	DefaultPopulationURL = "https://api.api-ninjas.com/v1/population"
)

func apiKeyHeader(key string) http.Header {
	h := http.Header{}
	h.Set("X-Api-Key", key)
	return h
}

// CountryClient fetches country facts from api-ninjas.
type CountryClient struct {
	ep *endpoint
}

// NewCountryClient creates a CountryClient.
func NewCountryClient(opts Options) (*CountryClient, error) {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultCountryURL
	}
	ep, err := newEndpoint(ProviderCountry, opts)
	if err != nil {
		return nil, err
	}
	if ep.apiKey == "" {
		ep.logger.Warn("api-ninjas key not set; country data will be unavailable")
	}
	return &CountryClient{ep: ep}, nil
}

// Country returns the first record for the country name, or nil when there is none or the
// source failed.
func (c *CountryClient) Country(ctx context.Context, name string) (*models.CountryInfo, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("country: %w", ErrMissingCountry)
	}

	var resp []models.CountryInfo
	if err := c.ep.getJSON(ctx, url.Values{"name": {name}}, apiKeyHeader(c.ep.apiKey), &resp); err != nil {
		c.ep.sourceFailed(ctx, name, err)
		return nil, nil
	}
	if len(resp) == 0 {
		c.ep.logger.Info("no country record", zap.String("input", name))
		return nil, nil
	}
	return &resp[0], nil
}
