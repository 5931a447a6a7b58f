package circuitbreaker

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrOpen is returned by Call while the circuit is open.
var ErrOpen = errors.New("circuit breaker open")

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

// State is the circuit breaker state (Closed, Open, HalfOpen).
type State int

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half_open"
	default:
		return "unknown"
	}
}

// CircuitBreaker isolates one provider: after repeated failures it rejects calls for a
// cool-down period, then lets probe calls through in half-open state.
// It never retries a call.
type CircuitBreaker struct {
	mu               sync.Mutex
	state            State
	failureCount     int
	successCount     int
	openedAt         time.Time
	failureThreshold int
	successThreshold int
	timeout          time.Duration
	name             string
	onStateChange    func(name string, from, to State)
	now              func() time.Time
}

// Config holds circuit breaker parameters.
type Config struct {
	FailureThreshold int
	SuccessThreshold int
	Timeout          time.Duration
	// Name identifies the protected provider in state-change callbacks.
	Name          string
	OnStateChange func(name string, from, to State)
}

// New creates a CircuitBreaker. Zero thresholds fall back to 5 failures, 2 successes and
// a 30s open period.
func New(cfg Config) *CircuitBreaker {
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = 5
	}
	if cfg.SuccessThreshold <= 0 {
		cfg.SuccessThreshold = 2
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &CircuitBreaker{
		state:            StateClosed,
		failureThreshold: cfg.FailureThreshold,
		successThreshold: cfg.SuccessThreshold,
		timeout:          cfg.Timeout,
		name:             cfg.Name,
		onStateChange:    cfg.OnStateChange,
		now:              time.Now,
	}
}

// Name returns the configured provider name.
func (cb *CircuitBreaker) Name() string {
	return cb.name
}

// Call runs fn when the circuit allows it and returns ErrOpen otherwise. A context
// that is already done is returned without touching the counters.
func (cb *CircuitBreaker) Call(ctx context.Context, fn func() error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	var transitions [][2]State
	cb.mu.Lock()
	if cb.state == StateOpen {
		if cb.now().Sub(cb.openedAt) < cb.timeout {
			cb.mu.Unlock()
			return ErrOpen
		}
		transitions = append(transitions, cb.setStateLocked(StateHalfOpen))
	}
	cb.mu.Unlock()
	cb.notify(transitions)
	transitions = transitions[:0]

	err := fn()

	cb.mu.Lock()
	if err != nil {
		cb.failureCount++
		if cb.state == StateHalfOpen || cb.failureCount >= cb.failureThreshold {
			cb.openedAt = cb.now()
			transitions = append(transitions, cb.setStateLocked(StateOpen))
		}
	} else {
		cb.failureCount = 0
		if cb.state == StateHalfOpen {
			cb.successCount++
			if cb.successCount >= cb.successThreshold {
				transitions = append(transitions, cb.setStateLocked(StateClosed))
			}
		}
	}
	cb.mu.Unlock()
	cb.notify(transitions)
	return err
}

// State returns the current state.
func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

func (cb *CircuitBreaker) setStateLocked(to State) [2]State {
	from := cb.state
	cb.state = to
	cb.failureCount = 0
	cb.successCount = 0
	return [2]State{from, to}
}

func (cb *CircuitBreaker) notify(transitions [][2]State) {
	if cb.onStateChange == nil {
		return
	}
	for _, t := range transitions {
		if t[0] != t[1] {
			cb.onStateChange(cb.name, t[0], t[1])
		}
	}
}
