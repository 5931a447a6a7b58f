package views

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kjstillabower/weathernow/internal/advice"
	"github.com/kjstillabower/weathernow/internal/bus"
	"github.com/kjstillabower/weathernow/internal/models"
)

// Clock answers the last known time update. The today panel implements it.
type Clock interface {
	CurrentTime() (advice.TimeUpdate, bool)
}

// AdviceState is the derived state of the advice panel.
type AdviceState struct {
	Ready    bool            `json:"ready"`
	Reason   string          `json:"reason,omitempty"`
	Seq      uint64          `json:"seq"`
	Category advice.Category `json:"category,omitempty"`
	Time     string          `json:"time,omitempty"`
	Text     string          `json:"text,omitempty"`
}

// Advice shows the advice sentence for the current hour. It needs both the weather of
// a snapshot and the time category published for that same snapshot; until both have
// arrived it waits.
type Advice struct {
	renderer Renderer
	clock    Clock
	picker   advice.Picker
	logger   *zap.Logger
	now      func() time.Time
	subs     subscriptions

	mu       sync.RWMutex
	state    AdviceState
	context  *advice.Today
	category *advice.TimeUpdate
}

// NewAdvice creates the advice panel. clock may be nil; a nil picker uses
// advice.RandomPicker.
func NewAdvice(renderer Renderer, clock Clock, picker advice.Picker, logger *zap.Logger) *Advice {
	if picker == nil {
		picker = advice.RandomPicker()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Advice{
		renderer: renderer,
		clock:    clock,
		picker:   picker,
		logger:   logger.With(zap.String("panel", PanelAdvice)),
		now:      time.Now,
		state:    AdviceState{Reason: "waiting for data"},
	}
}

// Name implements Panel.
func (p *Advice) Name() string { return PanelAdvice }

// Start subscribes to both topics, then asks the clock for a time update that may
// have been published before this panel existed. Later calls are no-ops.
func (p *Advice) Start(snapshots *SnapshotTopic, times *TimeTopic) {
	p.subs.start(func() []*bus.Subscription {
		return []*bus.Subscription{
			snapshots.Subscribe(p.onSnapshot),
			times.Subscribe(p.onTime),
		}
	})
	if p.clock == nil {
		return
	}
	if update, ok := p.clock.CurrentTime(); ok {
		_ = p.onTime(update)
	}
}

// Stop unsubscribes from both topics.
func (p *Advice) Stop() { p.subs.stop() }

// State returns a copy of the current state.
func (p *Advice) State() AdviceState {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.state
}

// Current implements Panel.
func (p *Advice) Current() any { return p.State() }

func (p *Advice) onSnapshot(snap models.Snapshot) error {
	p.mu.Lock()
	if snap.Failed() || snap.Weather == nil {
		reason := snap.Error
		if reason == "" {
			reason = "weather unavailable"
		}
		p.context = nil
		p.state = AdviceState{Seq: snap.Seq, Reason: reason}
		state := p.state
		p.mu.Unlock()
		render(p.renderer, PanelAdvice, state)
		return nil
	}
	t, _ := advice.ParseToday(snap.Weather, p.now())
	p.context = &t
	p.state.Seq = snap.Seq
	state, changed := p.composeLocked()
	p.mu.Unlock()

	if changed {
		render(p.renderer, PanelAdvice, state)
	}
	return nil
}

func (p *Advice) onTime(update advice.TimeUpdate) error {
	p.mu.Lock()
	p.category = &update
	state, changed := p.composeLocked()
	p.mu.Unlock()

	if changed {
		render(p.renderer, PanelAdvice, state)
	}
	return nil
}

// composeLocked builds the sentence when the weather context and the time update
// describe the same moment. Callers hold p.mu.
func (p *Advice) composeLocked() (AdviceState, bool) {
	if p.context == nil || p.category == nil || p.context.Time != p.category.Time {
		return p.state, false
	}
	p.state = AdviceState{
		Ready:    true,
		Seq:      p.state.Seq,
		Category: p.category.Category,
		Time:     p.category.Time,
		Text:     advice.ComposeToday(*p.context, p.category.Category, p.picker),
	}
	return p.state, true
}
