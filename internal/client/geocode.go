package client

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"github.com/kjstillabower/weathernow/internal/models"
)

// DefaultGeocodeURL is the Open-Meteo geocoding search endpoint.
const DefaultGeocodeURL = "https://geocoding-api.open-meteo.com/v1/search"

type geocodeResponse struct {
	Results []struct {
		Name        string  `json:"name"`
		Latitude    float64 `json:"latitude"`
		Longitude   float64 `json:"longitude"`
		CountryCode string  `json:"country_code"`
		Country     string  `json:"country"`
	} `json:"results"`
}

// GeocodeClient resolves place names with the Open-Meteo geocoding API.
type GeocodeClient struct {
	ep *endpoint
}

// NewGeocodeClient creates a GeocodeClient.
func NewGeocodeClient(opts Options) (*GeocodeClient, error) {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultGeocodeURL
	}
	ep, err := newEndpoint(ProviderGeocode, opts)
	if err != nil {
		return nil, err
	}
	return &GeocodeClient{ep: ep}, nil
}

// Geocode returns the first match for name, or nil when there is no match or the
// source failed. Only an empty name is an error.
func (c *GeocodeClient) Geocode(ctx context.Context, name string) (*models.Coordinates, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("geocode: %w", ErrMissingLocation)
	}

	var resp geocodeResponse
	if err := c.ep.getJSON(ctx, url.Values{"name": {name}}, nil, &resp); err != nil {
		c.ep.sourceFailed(ctx, name, err)
		return nil, nil
	}
	if len(resp.Results) == 0 {
		c.ep.logger.Info("location not found", zap.String("input", name))
		return nil, nil
	}

	r := resp.Results[0]
	return &models.Coordinates{
		Name:        r.Name,
		Lat:         r.Latitude,
		Lon:         r.Longitude,
		CountryCode: r.CountryCode,
		Country:     r.Country,
	}, nil
}
