package views

import (
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/kjstillabower/weathernow/internal/advice"
	"github.com/kjstillabower/weathernow/internal/bus"
	"github.com/kjstillabower/weathernow/internal/models"
)

// HourRecord is one hour of the hourly strip.
type HourRecord struct {
	Time          string  `json:"time"`
	Label         string  `json:"label"`
	Temperature   float64 `json:"temperature"`
	RainChance    float64 `json:"rainChance"`
	Precipitation float64 `json:"precipitation"`
	UVIndex       float64 `json:"uvIndex"`
	Humidity      float64 `json:"humidity"`
	WindDirection string  `json:"windDirection"`
	WindSpeed     string  `json:"windSpeed"`
	Code          int     `json:"code"`
	Condition     string  `json:"condition"`
	Advice        string  `json:"advice"`
}

// HourlyState is the derived state of the hourly panel.
type HourlyState struct {
	Ready  bool         `json:"ready"`
	Reason string       `json:"reason,omitempty"`
	Seq    uint64       `json:"seq"`
	Hours  []HourRecord `json:"hours"`
}

// Hourly shows the per-hour forecast with a short advice line per hour.
type Hourly struct {
	renderer Renderer
	picker   advice.Picker
	logger   *zap.Logger
	subs     subscriptions

	mu    sync.RWMutex
	state HourlyState
}

// NewHourly creates the hourly panel. A nil picker uses advice.RandomPicker.
func NewHourly(renderer Renderer, picker advice.Picker, logger *zap.Logger) *Hourly {
	if picker == nil {
		picker = advice.RandomPicker()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hourly{
		renderer: renderer,
		picker:   picker,
		logger:   logger.With(zap.String("panel", PanelHourly)),
		state:    HourlyState{Reason: "waiting for data"},
	}
}

// Name implements Panel.
func (p *Hourly) Name() string { return PanelHourly }

// Start subscribes to snapshots. Later calls are no-ops.
func (p *Hourly) Start(snapshots *SnapshotTopic) {
	p.subs.start(func() []*bus.Subscription {
		return []*bus.Subscription{snapshots.Subscribe(p.onSnapshot)}
	})
}

// Stop unsubscribes.
func (p *Hourly) Stop() { p.subs.stop() }

// State returns a copy of the current state.
func (p *Hourly) State() HourlyState {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := p.state
	out.Hours = append([]HourRecord(nil), p.state.Hours...)
	return out
}

// Current implements Panel.
func (p *Hourly) Current() any { return p.State() }

func (p *Hourly) onSnapshot(snap models.Snapshot) error {
	state := HourlyState{Seq: snap.Seq}
	switch {
	case snap.Failed():
		state.Reason = snap.Error
	case snap.Weather == nil:
		state.Reason = "weather unavailable"
	default:
		h := snap.Weather.Hourly
		state.Ready = true
		state.Hours = make([]HourRecord, 0, len(h.Time))
		for i := range h.Time {
			hr, _ := advice.HourAt(h, i)
			state.Hours = append(state.Hours, HourRecord{
				Time:          hr.Time,
				Label:         hourLabel(hr.Time),
				Temperature:   hr.Temperature,
				RainChance:    hr.RainChance,
				Precipitation: hr.RainAmount,
				UVIndex:       hr.UV,
				Humidity:      hr.Humidity,
				WindDirection: fmt.Sprintf("%g°", hr.WindDirection),
				WindSpeed:     fmt.Sprintf("%g km/h", hr.WindSpeed),
				Code:          hr.Code,
				Condition:     hr.Condition,
				Advice:        advice.ComposeHourly(hr, p.picker),
			})
		}
	}

	p.mu.Lock()
	p.state = state
	p.mu.Unlock()

	if !state.Ready {
		p.logger.Info("panel not ready", zap.Uint64("seq", snap.Seq), zap.String("reason", state.Reason))
	}
	render(p.renderer, PanelHourly, p.State())
	return nil
}

// hourLabel turns "2024-06-01T15:00" into "3 pm".
func hourLabel(ts string) string {
	t, err := advice.ParseLocal(ts)
	if err != nil {
		return ts
	}
	h := t.Hour()
	period := "am"
	if h >= 12 {
		period = "pm"
	}
	if h%12 == 0 {
		return fmt.Sprintf("12 %s", period)
	}
	return fmt.Sprintf("%d %s", h%12, period)
}

// DayRecord is one day of the extended forecast.
type DayRecord struct {
	Date        string  `json:"date"`
	Weekday     string  `json:"weekday"`
	DateLabel   string  `json:"dateLabel"`
	Code        int     `json:"code"`
	Condition   string  `json:"condition"`
	Description string  `json:"description"`
	Min         float64 `json:"min"`
	Max         float64 `json:"max"`
	RainChance  float64 `json:"rainChance"`
	RainVolume  float64 `json:"rainVolume"`
	Advice      string  `json:"advice"`
}

// DailyState is the derived state of the daily panel.
type DailyState struct {
	Ready  bool        `json:"ready"`
	Reason string      `json:"reason,omitempty"`
	Seq    uint64      `json:"seq"`
	City   string      `json:"city,omitempty"`
	Days   []DayRecord `json:"days"`
}

// Daily shows the extended forecast.
type Daily struct {
	renderer Renderer
	logger   *zap.Logger
	subs     subscriptions

	mu    sync.RWMutex
	state DailyState
}

// NewDaily creates the daily panel.
func NewDaily(renderer Renderer, logger *zap.Logger) *Daily {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Daily{
		renderer: renderer,
		logger:   logger.With(zap.String("panel", PanelDaily)),
		state:    DailyState{Reason: "waiting for data"},
	}
}

// Name implements Panel.
func (p *Daily) Name() string { return PanelDaily }

// Start subscribes to snapshots. Later calls are no-ops.
func (p *Daily) Start(snapshots *SnapshotTopic) {
	p.subs.start(func() []*bus.Subscription {
		return []*bus.Subscription{snapshots.Subscribe(p.onSnapshot)}
	})
}

// Stop unsubscribes.
func (p *Daily) Stop() { p.subs.stop() }

// State returns a copy of the current state.
func (p *Daily) State() DailyState {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := p.state
	out.Days = append([]DayRecord(nil), p.state.Days...)
	return out
}

// Current implements Panel.
func (p *Daily) Current() any { return p.State() }

func (p *Daily) onSnapshot(snap models.Snapshot) error {
	state := DailyState{Seq: snap.Seq}
	switch {
	case snap.Failed():
		state.Reason = snap.Error
	case snap.Daily == nil:
		state.Reason = "daily forecast unavailable"
	default:
		d := snap.Daily
		state.Ready = true
		state.City = d.City.Name
		state.Days = make([]DayRecord, 0, len(d.List))
		for _, e := range d.List {
			day := advice.DayFrom(e, d.City.Timezone)
			state.Days = append(state.Days, DayRecord{
				Date:        day.Date.Format("2006-01-02"),
				Weekday:     day.Date.Format("Mon"),
				DateLabel:   day.Date.Format("Jan 2"),
				Code:        day.Code,
				Condition:   day.Condition,
				Description: day.Description,
				Min:         day.Min,
				Max:         day.Max,
				RainChance:  day.RainChance,
				RainVolume:  day.RainVolume,
				Advice:      advice.ComposeDaily(day),
			})
		}
	}

	p.mu.Lock()
	p.state = state
	p.mu.Unlock()

	if !state.Ready {
		p.logger.Info("panel not ready", zap.Uint64("seq", snap.Seq), zap.String("reason", state.Reason))
	}
	render(p.renderer, PanelDaily, p.State())
	return nil
}
