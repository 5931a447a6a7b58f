// Package bus is a small synchronous publish/subscribe layer. Each Topic carries one
// message type; the snapshot and time topics are separate instances.
package bus

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/kjstillabower/weathernow/internal/observability"
)

// ErrListenerPanic wraps a panic recovered from a listener.
var ErrListenerPanic = errors.New("listener panicked")

// Listener receives one published value. A returned error is reported to the publisher
// but does not stop delivery to other listeners.
type Listener[T any] func(T) error

// Subscription is the handle returned by Subscribe. Unsubscribe is idempotent.
type Subscription struct {
	once   sync.Once
	active atomic.Bool
	cancel func()
}

// Unsubscribe removes the listener. Calling it more than once is a no-op.
func (s *Subscription) Unsubscribe() {
	if s == nil {
		return
	}
	s.once.Do(func() {
		s.active.Store(false)
		s.cancel()
	})
}

// Active reports whether the subscription still receives messages.
func (s *Subscription) Active() bool {
	return s != nil && s.active.Load()
}

type entry[T any] struct {
	id  uint64
	fn  Listener[T]
	sub *Subscription
}

// Topic delivers values to its listeners synchronously, in subscription order. Each
// listener gets its own copy of the value produced by the topic's clone function.
type Topic[T any] struct {
	name   string
	clone  func(T) T
	logger *zap.Logger

	mu      sync.Mutex
	nextID  uint64
	entries []entry[T]
}

// NewTopic creates a topic. clone may be nil for value types that need no deep copy.
func NewTopic[T any](name string, clone func(T) T, logger *zap.Logger) *Topic[T] {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Topic[T]{
		name:   name,
		clone:  clone,
		logger: logger.With(zap.String("topic", name)),
	}
}

// Name returns the topic name.
func (t *Topic[T]) Name() string {
	return t.name
}

// Subscribe registers fn for every value published after this call.
func (t *Topic[T]) Subscribe(fn Listener[T]) *Subscription {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.nextID++
	id := t.nextID
	sub := &Subscription{}
	sub.active.Store(true)
	sub.cancel = func() { t.remove(id) }
	t.entries = append(t.entries, entry[T]{id: id, fn: fn, sub: sub})
	return sub
}

// Len returns the number of active listeners.
func (t *Topic[T]) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}

func (t *Topic[T]) remove(id uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for i, e := range t.entries {
		if e.id == id {
			t.entries = append(t.entries[:i:i], t.entries[i+1:]...)
			return
		}
	}
}

// Publish delivers v to every listener registered at the time of the call. Listeners
// run on the caller's goroutine without the topic lock held, so they may subscribe or
// unsubscribe. A listener unsubscribed during delivery is skipped. Errors and panics
// from listeners are collected and returned together after every listener has run.
func (t *Topic[T]) Publish(v T) error {
	t.mu.Lock()
	entries := make([]entry[T], len(t.entries))
	copy(entries, t.entries)
	t.mu.Unlock()

	observability.PublishesTotal.WithLabelValues(t.name).Inc()

	var errs error
	for _, e := range entries {
		if !e.sub.Active() {
			continue
		}
		msg := v
		if t.clone != nil {
			msg = t.clone(v)
		}
		if err := t.deliver(e, msg); err != nil {
			observability.ListenerFailuresTotal.WithLabelValues(t.name).Inc()
			t.logger.Warn("listener failed", zap.Uint64("listener", e.id), zap.Error(err))
			errs = multierr.Append(errs, err)
		}
	}
	return errs
}

func (t *Topic[T]) deliver(e entry[T], msg T) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("listener %d on %s: %w: %v", e.id, t.name, ErrListenerPanic, r)
		}
	}()
	if lerr := e.fn(msg); lerr != nil {
		return fmt.Errorf("listener %d on %s: %w", e.id, t.name, lerr)
	}
	return nil
}
