// Package views holds the display panels. Each panel subscribes to the snapshot topic,
// derives its own state from the snapshot it receives and hands that state to a
// Renderer. Panels never write back to the store and know nothing of each other; the
// only cross-panel traffic is the time topic.
package views

import (
	"sync"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"

	"github.com/kjstillabower/weathernow/internal/bus"
	"github.com/kjstillabower/weathernow/internal/models"
)

// Panel names, used as render event names and in the /panels route.
const (
	PanelToday  = "today"
	PanelHourly = "hourly"
	PanelDaily  = "daily"
	PanelAdvice = "advice"
)

// Renderer receives the derived state of a panel after every update.
type Renderer interface {
	Render(panel string, state any)
}

// RendererFunc adapts a function to Renderer.
type RendererFunc func(panel string, state any)

// Render calls f.
func (f RendererFunc) Render(panel string, state any) { f(panel, state) }

// Panel is the read side shared by every panel.
type Panel interface {
	Name() string
	// Current returns a copy of the panel state.
	Current() any
}

// SnapshotTopic is the topic panels subscribe to.
type SnapshotTopic = bus.Topic[models.Snapshot]

// subscriptions tracks the handles a panel holds. start runs at most once per panel.
type subscriptions struct {
	once sync.Once
	mu   sync.Mutex
	subs []*bus.Subscription
}

func (s *subscriptions) start(subscribe func() []*bus.Subscription) {
	s.once.Do(func() {
		subs := subscribe()
		s.mu.Lock()
		s.subs = subs
		s.mu.Unlock()
	})
}

func (s *subscriptions) stop() {
	s.mu.Lock()
	subs := s.subs
	s.subs = nil
	s.mu.Unlock()
	for _, sub := range subs {
		sub.Unsubscribe()
	}
}

func render(r Renderer, panel string, state any) {
	if r != nil {
		r.Render(panel, state)
	}
}

var printer = message.NewPrinter(language.English)

// formatNumber groups thousands the way the panels display figures: 1234567.5 -> "1,234,567.5".
func formatNumber(v float64) string {
	return printer.Sprint(number.Decimal(v, number.MaxFractionDigits(3)))
}

func orNA(s string) string {
	if s == "" {
		return models.NotAvailable
	}
	return s
}
