package client

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/kjstillabower/weathernow/internal/models"
)

// DefaultForecastURL is the Open-Meteo forecast endpoint.
const DefaultForecastURL = "https://api.open-meteo.com/v1/forecast"

// HourlyVariables are the hourly series requested from the forecast API.
var HourlyVariables = []string{
	"temperature_2m",
	"apparent_temperature",
	"relative_humidity_2m",
	"precipitation_probability",
	"precipitation",
	"weather_code",
	"cloud_cover",
	"wind_speed_10m",
	"wind_direction_10m",
	"uv_index",
	"visibility",
	"dew_point_2m",
	"pressure_msl",
}

// ForecastClient fetches current and hourly weather from Open-Meteo.
type ForecastClient struct {
	ep *endpoint
}

// NewForecastClient creates a ForecastClient.
func NewForecastClient(opts Options) (*ForecastClient, error) {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultForecastURL
	}
	ep, err := newEndpoint(ProviderForecast, opts)
	if err != nil {
		return nil, err
	}
	return &ForecastClient{ep: ep}, nil
}

// CurrentAndHourly returns today's forecast in the location's own timezone, or nil when
// the source failed.
func (c *ForecastClient) CurrentAndHourly(ctx context.Context, lat, lon float64) (*models.Weather, error) {
	if !validCoordinates(lat, lon) {
		return nil, fmt.Errorf("forecast: %w: %v,%v", ErrInvalidCoordinates, lat, lon)
	}

	params := url.Values{
		"latitude":        {formatCoord(lat)},
		"longitude":       {formatCoord(lon)},
		"hourly":          {strings.Join(HourlyVariables, ",")},
		"timezone":        {"auto"},
		"forecast_days":   {"1"},
		"current_weather": {"true"},
	}
	var w models.Weather
	if err := c.ep.getJSON(ctx, params, nil, &w); err != nil {
		c.ep.sourceFailed(ctx, coordInput(lat, lon), err)
		return nil, nil
	}
	if w.CurrentWeather.Time == "" {
		c.ep.sourceFailed(ctx, coordInput(lat, lon), fmt.Errorf("%w: no current_weather", ErrEmptyPayload))
		return nil, nil
	}
	return &w, nil
}

func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func coordInput(lat, lon float64) string {
	return formatCoord(lat) + "," + formatCoord(lon)
}
