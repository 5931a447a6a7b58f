package client

import (
	"context"
	"fmt"
	"net/url"

	"github.com/kjstillabower/weathernow/internal/models"
)

// DefaultDailyURL is the OpenWeather extended daily forecast endpoint.
const DefaultDailyURL = "https://pro.openweathermap.org/data/2.5/forecast/daily"

// DailyDays is the number of forecast days requested.
const DailyDays = 7

// DailyClient fetches the 7-day forecast from OpenWeather.
type DailyClient struct {
	ep *endpoint
}

// NewDailyClient creates a DailyClient. A missing API key is logged, not rejected; every
// call will then fail at the source and yield nil.
func NewDailyClient(opts Options) (*DailyClient, error) {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultDailyURL
	}
	ep, err := newEndpoint(ProviderDaily, opts)
	if err != nil {
		return nil, err
	}
	if ep.apiKey == "" {
		ep.logger.Warn("daily forecast API key not set; daily forecast will be unavailable")
	}
	return &DailyClient{ep: ep}, nil
}

// Daily returns the daily forecast for the coordinates, or nil when the source failed.
func (c *DailyClient) Daily(ctx context.Context, lat, lon float64) (*models.DailyForecast, error) {
	if !validCoordinates(lat, lon) {
		return nil, fmt.Errorf("daily: %w: %v,%v", ErrInvalidCoordinates, lat, lon)
	}

	params := url.Values{
		"lat":   {formatCoord(lat)},
		"lon":   {formatCoord(lon)},
		"cnt":   {fmt.Sprint(DailyDays)},
		"units": {"metric"},
		"appid": {c.ep.apiKey},
	}
	var d models.DailyForecast
	if err := c.ep.getJSON(ctx, params, nil, &d); err != nil {
		c.ep.sourceFailed(ctx, coordInput(lat, lon), err)
		return nil, nil
	}
	return &d, nil
}
