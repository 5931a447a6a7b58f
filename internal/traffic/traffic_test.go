package traffic

import (
	"testing"
	"time"
)

// TestRequestCount_Empty verifies that RequestCount returns 0 when no
// outcomes have been recorded within the time window.
func TestRequestCount_Empty(t *testing.T) {
	Reset()
	if n := RequestCount(time.Minute); n != 0 {
		t.Errorf("RequestCount() = %d, want 0", n)
	}
}

// TestRecord_CountsEveryOutcome verifies that RequestCount includes successes,
// failures and denials.
func TestRecord_CountsEveryOutcome(t *testing.T) {
	Reset()
	Record(Success)
	Record(Failure)
	Record(Denied)
	if n := RequestCount(time.Minute); n != 3 {
		t.Errorf("RequestCount() = %d, want 3", n)
	}
	if n := DenialCount(time.Minute); n != 1 {
		t.Errorf("DenialCount() = %d, want 1", n)
	}
}

// TestFailureRate_DeniedExcluded verifies that denials do not count toward the
// failure-rate denominator.
func TestFailureRate_DeniedExcluded(t *testing.T) {
	Reset()
	Record(Success)
	Record(Success)
	Record(Failure)
	Record(Denied)
	failures, total := FailureRate(time.Minute)
	if failures != 1 || total != 3 {
		t.Errorf("FailureRate() = (%d, %d), want (1, 3)", failures, total)
	}
}

// TestRecord_UnknownOutcomeIgnored verifies that out-of-range outcomes are dropped.
func TestRecord_UnknownOutcomeIgnored(t *testing.T) {
	var tr Tracker
	tr.Record(Outcome(42))
	if n := tr.RequestCount(time.Minute); n != 0 {
		t.Errorf("RequestCount() = %d, want 0", n)
	}
}

// TestTracker_WindowAndPrune verifies that outcomes fall out of the window as the
// clock advances and are pruned after the retention period.
func TestTracker_WindowAndPrune(t *testing.T) {
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	now := base
	tr := Tracker{now: func() time.Time { return now }}

	tr.Record(Failure)
	now = base.Add(30 * time.Second)
	tr.Record(Success)

	if f, total := tr.FailureRate(time.Minute); f != 1 || total != 2 {
		t.Errorf("FailureRate(1m) = (%d, %d), want (1, 2)", f, total)
	}
	if f, total := tr.FailureRate(10 * time.Second); f != 0 || total != 1 {
		t.Errorf("FailureRate(10s) = (%d, %d), want (0, 1)", f, total)
	}

	now = base.Add(retention + time.Minute)
	tr.Record(Success)
	tr.mu.Lock()
	failures := len(tr.times[Failure])
	tr.mu.Unlock()
	if failures != 0 {
		t.Errorf("failure timestamps after retention = %d, want 0", failures)
	}
}

// TestTracker_Reset verifies that Reset clears every window.
func TestTracker_Reset(t *testing.T) {
	var tr Tracker
	tr.Record(Success)
	tr.Record(Denied)
	tr.Reset()
	if n := tr.RequestCount(time.Hour); n != 0 {
		t.Errorf("RequestCount() after Reset = %d, want 0", n)
	}
}
