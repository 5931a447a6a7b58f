package views

import (
	"fmt"
	"math"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kjstillabower/weathernow/internal/advice"
	"github.com/kjstillabower/weathernow/internal/bus"
	"github.com/kjstillabower/weathernow/internal/models"
)

// TimeTopic carries TimeUpdate values from the today panel to anyone interested.
type TimeTopic = bus.Topic[advice.TimeUpdate]

// Indicator is the headline temperature and condition.
type Indicator struct {
	Temperature string `json:"temperature"`
	Label       string `json:"label"`
	Code        int    `json:"code"`
}

// Details are the weather readings for the current hour, formatted for display.
type Details struct {
	Description   string `json:"description"`
	Temperature   string `json:"temperature"`
	FeelsLike     string `json:"feelsLike"`
	Humidity      string `json:"humidity"`
	RainChance    string `json:"rainChance"`
	RainAmount    string `json:"rainAmount"`
	CloudCover    string `json:"cloudCover"`
	WindSpeed     string `json:"windSpeed"`
	WindDirection string `json:"windDirection"`
	UVIndex       string `json:"uvIndex"`
	Visibility    string `json:"visibility"`
	DewPoint      string `json:"dewPoint"`
	Pressure      string `json:"pressure"`
}

// CountryBlock is the country summary. Every missing figure reads "N/A".
type CountryBlock struct {
	Country        string `json:"country"`
	CountryCode    string `json:"countryCode"`
	Capital        string `json:"capital"`
	Region         string `json:"region"`
	Area           string `json:"area"`
	PopulationYear string `json:"populationYear"`
	Population     string `json:"population"`
	WorldShare     string `json:"worldPopulationPercentage"`
	GDP            string `json:"gdp"`
	Currency       string `json:"currency"`
	Timezone       string `json:"timezone"`
	LocalTime      string `json:"localTime"`
}

// TodayState is the derived state of the today panel.
type TodayState struct {
	Ready     bool              `json:"ready"`
	Reason    string            `json:"reason,omitempty"`
	Seq       uint64            `json:"seq"`
	Location  string            `json:"location,omitempty"`
	Indicator Indicator         `json:"indicator"`
	Details   Details           `json:"details"`
	Country   CountryBlock      `json:"country"`
	Time      advice.TimeUpdate `json:"time"`
}

// Today shows the current conditions and the country summary. It is also the source
// of the location's time category, which it publishes on the time topic.
type Today struct {
	renderer Renderer
	times    *TimeTopic
	logger   *zap.Logger
	now      func() time.Time

	subs subscriptions

	mu      sync.RWMutex
	state   TodayState
	current *advice.TimeUpdate
}

// NewToday creates the today panel. times may be nil when nothing listens for time updates.
func NewToday(renderer Renderer, times *TimeTopic, logger *zap.Logger) *Today {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Today{
		renderer: renderer,
		times:    times,
		logger:   logger.With(zap.String("panel", PanelToday)),
		now:      time.Now,
		state:    TodayState{Reason: "waiting for data"},
	}
}

// Name implements Panel.
func (p *Today) Name() string { return PanelToday }

// Start subscribes to snapshots. Later calls are no-ops.
func (p *Today) Start(snapshots *SnapshotTopic) {
	p.subs.start(func() []*bus.Subscription {
		return []*bus.Subscription{snapshots.Subscribe(p.onSnapshot)}
	})
}

// Stop unsubscribes from every topic.
func (p *Today) Stop() { p.subs.stop() }

// State returns a copy of the current state.
func (p *Today) State() TodayState {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.state
}

// Current implements Panel.
func (p *Today) Current() any { return p.State() }

// CurrentTime returns the last published time update, for listeners that subscribed
// to the time topic after it was sent.
func (p *Today) CurrentTime() (advice.TimeUpdate, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.current == nil {
		return advice.TimeUpdate{}, false
	}
	return *p.current, true
}

func (p *Today) onSnapshot(snap models.Snapshot) error {
	state, update := p.derive(snap)

	p.mu.Lock()
	p.state = state
	if update != nil {
		p.current = update
	}
	p.mu.Unlock()

	if !state.Ready {
		p.logger.Info("panel not ready", zap.Uint64("seq", snap.Seq), zap.String("reason", state.Reason))
	}
	render(p.renderer, PanelToday, state)

	if update != nil && p.times != nil {
		if err := p.times.Publish(*update); err != nil {
			p.logger.Warn("time update delivery failed", zap.Error(err))
		}
	}
	return nil
}

func (p *Today) derive(snap models.Snapshot) (TodayState, *advice.TimeUpdate) {
	state := TodayState{Seq: snap.Seq}
	switch {
	case snap.Failed():
		state.Reason = snap.Error
		return state, nil
	case snap.Weather == nil:
		state.Reason = "weather unavailable"
		return state, nil
	}

	now := p.now()
	w := snap.Weather
	cur, _ := advice.ParseToday(w, now)

	cat, err := advice.CategoryFromTime(cur.Time)
	if err != nil {
		cat = advice.CategoryFromHour(cur.HourIndex)
	}
	update := &advice.TimeUpdate{Category: cat, Time: cur.Time}

	state.Ready = true
	state.Time = *update
	if snap.Coordinates != nil {
		state.Location = snap.Coordinates.Name
	}
	state.Indicator = Indicator{
		Temperature: fmt.Sprintf("%.0f°C", math.Round(w.CurrentWeather.Temperature)),
		Label:       advice.IndicatorLabel(w.CurrentWeather.WeatherCode),
		Code:        w.CurrentWeather.WeatherCode,
	}
	state.Details = details(cur)
	state.Country = countryBlock(snap.Country, snap.Population, w, now)
	return state, update
}

func details(t advice.Today) Details {
	vis := models.NotAvailable
	if t.VisibilityKm != nil {
		vis = fmt.Sprintf("%.0f km", math.Round(*t.VisibilityKm))
	}
	return Details{
		Description:   advice.Description(t.Code),
		Temperature:   fmt.Sprintf("%.0f°C", math.Round(t.Temperature)),
		FeelsLike:     fmt.Sprintf("%.0f°C", math.Round(t.FeelsLike)),
		Humidity:      fmt.Sprintf("%g%%", t.Humidity),
		RainChance:    fmt.Sprintf("%g%%", t.RainChance),
		RainAmount:    fmt.Sprintf("%g mm", t.RainAmount),
		CloudCover:    fmt.Sprintf("%g%%", t.CloudCover),
		WindSpeed:     fmt.Sprintf("%.0f km/h", math.Round(t.WindSpeed)),
		WindDirection: fmt.Sprintf("%g°", t.WindDirection),
		UVIndex:       fmt.Sprintf("%g", t.UV),
		Visibility:    vis,
		DewPoint:      fmt.Sprintf("%.0f°C", math.Round(t.DewPoint)),
		Pressure:      fmt.Sprintf("%.0f hPa", math.Round(t.Pressure)),
	}
}

func countryBlock(c *models.CountryInfo, pop *models.Population, w *models.Weather, now time.Time) CountryBlock {
	na := models.NotAvailable
	b := CountryBlock{
		Country: na, CountryCode: na, Capital: na, Region: na, Area: na,
		PopulationYear: na, Population: na, WorldShare: na, GDP: na, Currency: na,
	}
	if c != nil {
		b.Country = orNA(c.Name)
		b.CountryCode = orNA(c.ISO2)
		b.Capital = orNA(c.Capital)
		b.Region = orNA(c.Region)
		b.Currency = orNA(c.Currency.Name)
		if c.SurfaceArea != 0 {
			b.Area = formatNumber(c.SurfaceArea) + " km²"
		}
		if c.GDP != 0 {
			b.GDP = "$" + formatNumber(c.GDP)
		}
	}
	if latest, ok := pop.Latest(); ok {
		b.PopulationYear = orNA(string(latest.Year))
		if v, ok := latest.Population.Float(); ok {
			b.Population = formatNumber(v)
		}
		if latest.PercentageOfWorldPopulation != "" {
			b.WorldShare = string(latest.PercentageOfWorldPopulation) + "%"
		}
	}

	loc := location(w)
	b.Timezone = loc.String()
	local := now.In(loc)
	b.LocalTime = local.Format("03:04:05 PM") + " " + local.Format("MST")
	return b
}

// location resolves the forecast's IANA zone, falling back to its fixed UTC offset.
func location(w *models.Weather) *time.Location {
	if w.Timezone != "" {
		if loc, err := time.LoadLocation(w.Timezone); err == nil {
			return loc
		}
	}
	if w.UTCOffsetSeconds != 0 {
		return time.FixedZone(fmt.Sprintf("UTC%+d", w.UTCOffsetSeconds/3600), w.UTCOffsetSeconds)
	}
	return time.UTC
}
