package service

import "sync"

// cycleTracker counts fetch cycles in flight so overlapping lookups can be observed.
// begin returns the count after incrementing; end decrements.
type cycleTracker struct {
	mu       sync.Mutex
	inFlight int
}

func newCycleTracker() *cycleTracker {
	return &cycleTracker{}
}

func (t *cycleTracker) begin() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.inFlight++
	return t.inFlight
}

func (t *cycleTracker) end() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.inFlight > 0 {
		t.inFlight--
	}
}
