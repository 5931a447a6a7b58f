package views

import (
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/kjstillabower/weathernow/internal/advice"
	"github.com/kjstillabower/weathernow/internal/bus"
	"github.com/kjstillabower/weathernow/internal/models"
)

type rendered struct {
	panel string
	state any
}

type recordingRenderer struct {
	mu    sync.Mutex
	calls []rendered
}

func (r *recordingRenderer) Render(panel string, state any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, rendered{panel, state})
}

func (r *recordingRenderer) panels() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.calls))
	for i, c := range r.calls {
		out[i] = c.panel
	}
	return out
}

func newTopics() (*SnapshotTopic, *TimeTopic) {
	return bus.NewTopic("snapshot", models.Snapshot.Clone, nil), bus.NewTopic[advice.TimeUpdate]("time", nil, nil)
}

func fullSnapshot(seq uint64) models.Snapshot {
	return models.Snapshot{
		Seq:         seq,
		Query:       "Paris",
		Coordinates: &models.Coordinates{Name: "Paris", Lat: 48.85, Lon: 2.35, CountryCode: "FR", Country: "France"},
		Weather: &models.Weather{
			Timezone:         "UTC",
			UTCOffsetSeconds: 0,
			CurrentWeather:   models.CurrentWeather{Temperature: 21.6, WeatherCode: 2, Time: "2024-06-01T15:00"},
			Hourly: models.HourlySeries{
				Time:                     []string{"2024-06-01T00:00", "2024-06-01T15:00"},
				Temperature:              []float64{14.2, 21.6},
				ApparentTemperature:      []float64{13, 22.4},
				RelativeHumidity:         []float64{80, 55},
				PrecipitationProbability: []float64{0, 60},
				Precipitation:            []float64{0, 1.2},
				WeatherCode:              []int{0, 61},
				CloudCover:               []float64{10, 70},
				WindSpeed:                []float64{5, 12.4},
				WindDirection:            []float64{90, 200},
				UVIndex:                  []float64{0, 6},
				Visibility:               []float64{30000, 12600},
				DewPoint:                 []float64{10, 12.4},
				PressureMSL:              []float64{1012, 1015.6},
			},
		},
		Daily: &models.DailyForecast{
			City: models.DailyCity{Name: "Paris", Country: "FR", Timezone: 7200},
			List: []models.DailyEntry{
				{Dt: time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC).Unix(), Temp: models.DailyTemp{Min: 12, Max: 24}, Pop: 0.1,
					Weather: []models.DailyCondition{{ID: 800, Description: "clear sky"}}},
				{Dt: time.Date(2024, 6, 2, 10, 0, 0, 0, time.UTC).Unix(), Temp: models.DailyTemp{Min: 14, Max: 34}, Pop: 0.9, Rain: 7.5,
					Weather: []models.DailyCondition{{ID: 502, Description: "heavy intensity rain"}}},
			},
		},
		Country: &models.CountryInfo{
			Name: "France", ISO2: "FR", Capital: "Paris", Region: "Western Europe",
			SurfaceArea: 551500, GDP: 2715518, Currency: models.Currency{Code: "EUR", Name: "Euro"},
		},
		Population: &models.Population{HistoricalPopulation: []models.PopulationYear{
			{Year: "2023", Population: "64756584", PercentageOfWorldPopulation: "0.8"},
		}},
	}
}

func fixedNow() time.Time { return time.Date(2024, 6, 1, 15, 4, 5, 0, time.UTC) }

// TestToday_DerivesState verifies the indicator, details and country block derived
// from a complete snapshot.
func TestToday_DerivesState(t *testing.T) {
	snaps, times := newTopics()
	r := &recordingRenderer{}
	p := NewToday(r, times, nil)
	p.now = fixedNow
	p.Start(snaps)

	if err := snaps.Publish(fullSnapshot(1)); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}
	s := p.State()
	if !s.Ready || s.Seq != 1 || s.Location != "Paris" {
		t.Fatalf("State() = %+v", s)
	}
	if s.Indicator.Temperature != "22°C" || s.Indicator.Label != "Partly Cloudy" {
		t.Errorf("Indicator = %+v", s.Indicator)
	}
	d := s.Details
	if d.FeelsLike != "22°C" || d.RainChance != "60%" || d.Visibility != "13 km" || d.Pressure != "1016 hPa" || d.Description != "Partly Cloudy" {
		t.Errorf("Details = %+v", d)
	}
	c := s.Country
	if c.Area != "551,500 km²" || c.GDP != "$2,715,518" || c.Population != "64,756,584" || c.WorldShare != "0.8%" || c.PopulationYear != "2023" {
		t.Errorf("Country = %+v", c)
	}
	if c.LocalTime != "03:04:05 PM UTC" {
		t.Errorf("LocalTime = %q", c.LocalTime)
	}
	if s.Time.Category != advice.Afternoon || s.Time.Time != "2024-06-01T15:00" {
		t.Errorf("Time = %+v", s.Time)
	}
	if got := r.panels(); len(got) != 1 || got[0] != PanelToday {
		t.Errorf("rendered %v", got)
	}
}

// TestToday_CountryFallbacks verifies that missing country and unavailable population
// read "N/A" without failing the panel.
func TestToday_CountryFallbacks(t *testing.T) {
	snaps, _ := newTopics()
	p := NewToday(nil, nil, nil)
	p.now = fixedNow
	p.Start(snaps)

	snap := fullSnapshot(2)
	snap.Country = nil
	pop := models.PopulationUnavailable()
	snap.Population = &pop
	_ = snaps.Publish(snap)

	c := p.State().Country
	for name, v := range map[string]string{
		"country": c.Country, "capital": c.Capital, "area": c.Area, "gdp": c.GDP,
		"population": c.Population, "year": c.PopulationYear, "share": c.WorldShare,
	} {
		if v != models.NotAvailable {
			t.Errorf("%s = %q, want N/A", name, v)
		}
	}
	if !p.State().Ready {
		t.Error("panel should stay ready without country data")
	}
}

// TestToday_ErrorSnapshot verifies that a failed cycle clears the panel with a reason.
func TestToday_ErrorSnapshot(t *testing.T) {
	snaps, times := newTopics()
	var got []advice.TimeUpdate
	times.Subscribe(func(u advice.TimeUpdate) error { got = append(got, u); return nil })
	p := NewToday(nil, times, nil)
	p.Start(snaps)

	_ = snaps.Publish(models.Snapshot{Seq: 3, Error: "batch failed"})
	s := p.State()
	if s.Ready || s.Reason != "batch failed" {
		t.Errorf("State() = %+v", s)
	}
	if len(got) != 0 {
		t.Errorf("time updates = %v, want none", got)
	}
	if _, ok := p.CurrentTime(); ok {
		t.Error("CurrentTime() ok = true before any weather")
	}
}

// TestToday_PublishesTime verifies the time topic carries the category and
// CurrentTime answers late listeners.
func TestToday_PublishesTime(t *testing.T) {
	snaps, times := newTopics()
	var got []advice.TimeUpdate
	times.Subscribe(func(u advice.TimeUpdate) error { got = append(got, u); return nil })
	p := NewToday(nil, times, nil)
	p.now = fixedNow
	p.Start(snaps)

	_ = snaps.Publish(fullSnapshot(1))
	if len(got) != 1 || got[0].Category != advice.Afternoon {
		t.Fatalf("time updates = %v", got)
	}
	cur, ok := p.CurrentTime()
	if !ok || cur != got[0] {
		t.Errorf("CurrentTime() = %v, %v", cur, ok)
	}
}

// TestStart_Once verifies a second Start does not add a second subscription and Stop
// detaches the panel.
func TestStart_Once(t *testing.T) {
	snaps, _ := newTopics()
	r := &recordingRenderer{}
	p := NewDaily(r, nil)
	p.Start(snaps)
	p.Start(snaps)
	if snaps.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", snaps.Len())
	}
	_ = snaps.Publish(fullSnapshot(1))
	p.Stop()
	p.Stop()
	_ = snaps.Publish(fullSnapshot(2))
	if got := r.panels(); len(got) != 1 {
		t.Errorf("renders = %d, want 1", len(got))
	}
	if p.State().Seq != 1 {
		t.Errorf("Seq = %d, want 1", p.State().Seq)
	}
}

func TestHourly_Records(t *testing.T) {
	snaps, _ := newTopics()
	p := NewHourly(nil, advice.First, nil)
	p.Start(snaps)
	_ = snaps.Publish(fullSnapshot(1))

	s := p.State()
	if !s.Ready || len(s.Hours) != 2 {
		t.Fatalf("State() = %+v", s)
	}
	h0, h1 := s.Hours[0], s.Hours[1]
	if h0.Label != "12 am" || h1.Label != "3 pm" {
		t.Errorf("labels = %q, %q", h0.Label, h1.Label)
	}
	if h1.WindDirection != "200°" || h1.WindSpeed != "12.4 km/h" || h1.Condition != "Rain" {
		t.Errorf("hour 1 = %+v", h1)
	}
	if h1.Advice != "This afternoon: Rain likely - bring an umbrella." {
		t.Errorf("advice = %q", h1.Advice)
	}

	s.Hours[0].Label = "changed"
	if p.State().Hours[0].Label != "12 am" {
		t.Error("State() returned shared slice")
	}
}

func TestHourly_MissingWeather(t *testing.T) {
	snaps, _ := newTopics()
	p := NewHourly(nil, advice.First, nil)
	p.Start(snaps)
	snap := fullSnapshot(1)
	snap.Weather = nil
	_ = snaps.Publish(snap)
	if s := p.State(); s.Ready || s.Reason != "weather unavailable" || len(s.Hours) != 0 {
		t.Errorf("State() = %+v", s)
	}
}

func TestDaily_Records(t *testing.T) {
	snaps, _ := newTopics()
	p := NewDaily(nil, nil)
	p.Start(snaps)
	_ = snaps.Publish(fullSnapshot(1))

	s := p.State()
	if !s.Ready || s.City != "Paris" || len(s.Days) != 2 {
		t.Fatalf("State() = %+v", s)
	}
	d0, d1 := s.Days[0], s.Days[1]
	if d0.Weekday != "Sat" || d0.DateLabel != "Jun 1" || d0.Advice != "Saturday: Normal weather expected." {
		t.Errorf("day 0 = %+v", d0)
	}
	if d1.Code != 61 || d1.RainChance != 90 || !strings.HasPrefix(d1.Advice, "Sunday: Severe weather") {
		t.Errorf("day 1 = %+v", d1)
	}
}

// TestAdvice_WaitsForMatchingTime verifies the advice text is composed only when the
// weather context and the time update describe the same moment, regardless of
// subscription order.
func TestAdvice_WaitsForMatchingTime(t *testing.T) {
	snaps, times := newTopics()
	r := &recordingRenderer{}
	a := NewAdvice(r, nil, advice.First, nil)
	a.Start(snaps, times)
	today := NewToday(nil, times, nil)
	today.now = fixedNow
	today.Start(snaps)

	_ = snaps.Publish(fullSnapshot(1))

	s := a.State()
	if !s.Ready || s.Category != advice.Afternoon || s.Seq != 1 {
		t.Fatalf("State() = %+v", s)
	}
	want := "This afternoon: This afternoon: Rain likely - bring an umbrella."
	if s.Text != want {
		t.Errorf("Text = %q, want %q", s.Text, want)
	}
	if got := r.panels(); len(got) != 1 {
		t.Errorf("advice renders = %v, want exactly one", got)
	}
}

// TestAdvice_LateStartUsesClock verifies an advice panel started after the time was
// published picks it up from the clock.
func TestAdvice_LateStartUsesClock(t *testing.T) {
	snaps, times := newTopics()
	today := NewToday(nil, times, nil)
	today.now = fixedNow
	today.Start(snaps)
	_ = snaps.Publish(fullSnapshot(1))

	a := NewAdvice(nil, today, advice.First, nil)
	a.Start(snaps, times)
	if a.State().Ready {
		t.Fatal("advice ready without weather context")
	}
	a.mu.RLock()
	cat := a.category
	a.mu.RUnlock()
	if cat == nil || cat.Category != advice.Afternoon {
		t.Errorf("category from clock = %v", cat)
	}

	_ = snaps.Publish(fullSnapshot(2))
	if s := a.State(); !s.Ready || s.Seq != 2 {
		t.Errorf("State() after next snapshot = %+v", s)
	}
}

// TestAdvice_ErrorSnapshot verifies a failed cycle clears the advice.
func TestAdvice_ErrorSnapshot(t *testing.T) {
	snaps, times := newTopics()
	today := NewToday(nil, times, nil)
	today.now = fixedNow
	today.Start(snaps)
	a := NewAdvice(nil, today, advice.First, nil)
	a.Start(snaps, times)

	_ = snaps.Publish(fullSnapshot(1))
	_ = snaps.Publish(models.Snapshot{Seq: 2, Error: "location not found"})
	s := a.State()
	if s.Ready || s.Reason != "location not found" || s.Text != "" {
		t.Errorf("State() = %+v", s)
	}
}

func TestHourLabel(t *testing.T) {
	tests := map[string]string{
		"2024-06-01T00:00": "12 am",
		"2024-06-01T09:00": "9 am",
		"2024-06-01T12:00": "12 pm",
		"2024-06-01T23:00": "11 pm",
		"garbage":          "garbage",
	}
	for in, want := range tests {
		if got := hourLabel(in); got != want {
			t.Errorf("hourLabel(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestFormatNumber(t *testing.T) {
	tests := map[float64]string{
		0:          "0",
		999:        "999",
		1234567:    "1,234,567",
		2715518.25: "2,715,518.25",
	}
	for in, want := range tests {
		if got := formatNumber(in); got != want {
			t.Errorf("formatNumber(%v) = %q, want %q", in, got, want)
		}
	}
}
