package resilience

import (
	"testing"
	"time"
)

func newTestCB(t *testing.T) *CircuitBreaker {
	t.Helper()
	return NewCircuitBreaker("test-sensor", DefaultSensorBreakerConfig())
}

func newTestCBWithClock(t *testing.T, now func() time.Time) *CircuitBreaker {
	t.Helper()
	cb := NewCircuitBreaker("test-sensor", CircuitBreakerConfig{
		FailureThreshold: 3,
		ResetTimeout:     1 * time.Second,
		HalfOpenMax:      2,
	})
	cb.now = now
	return cb
}

func TestCBStateString(t *testing.T) {
	tests := []struct {
		state CBState
		want  string
	}{
		{CBClosed, "CLOSED"},
		{CBOpen, "OPEN"},
		{CBHalfOpen, "HALF_OPEN"},
		{CBState(99), "UNKNOWN"},
	}
	for _, tt := range tests {
		if got := tt.state.String(); got != tt.want {
			t.Errorf("CBState(%d).String() = %q, want %q", tt.state, got, tt.want)
		}
	}
}

func TestCircuitBreakerStartsClosed(t *testing.T) {
	cb := newTestCB(t)
	if cb.State() != CBClosed {
		t.Errorf("initial state = %s, want CLOSED", cb.State())
	}
}

func TestCircuitBreakerClosedAllowsRequests(t *testing.T) {
	cb := newTestCB(t)
	if err := cb.Allow(); err != nil {
		t.Errorf("Allow() in CLOSED state should succeed, got %v", err)
	}
}

func TestCircuitBreakerTripsToOpen(t *testing.T) {
	clock := time.Now()
	cb := newTestCBWithClock(t, func() time.Time { return clock })

	for i := 0; i < 3; i++ {
		cb.RecordFailure()
	}
	if cb.State() != CBOpen {
		t.Errorf("state after 3 failures = %s, want OPEN", cb.State())
	}
}

func TestCircuitBreakerOpenBlocksRequests(t *testing.T) {
	clock := time.Now()
	cb := newTestCBWithClock(t, func() time.Time { return clock })

	for i := 0; i < 3; i++ {
		cb.RecordFailure()
	}
	if err := cb.Allow(); err == nil {
		t.Error("Allow() in OPEN state should return error")
	}
}

func TestCircuitBreakerOpenTransitionsToHalfOpen(t *testing.T) {
	clock := time.Now()
	cb := newTestCBWithClock(t, func() time.Time { return clock })

	for i := 0; i < 3; i++ {
		cb.RecordFailure()
	}
	clock = clock.Add(2 * time.Second)
	cb.now = func() time.Time { return clock }

	if cb.State() != CBHalfOpen {
		t.Errorf("state after timeout = %s, want HALF_OPEN", cb.State())
	}
}

func TestCircuitBreakerHalfOpenAllowsProbes(t *testing.T) {
	clock := time.Now()
	cb := newTestCBWithClock(t, func() time.Time { return clock })

	for i := 0; i < 3; i++ {
		cb.RecordFailure()
	}
	clock = clock.Add(2 * time.Second)
	cb.now = func() time.Time { return clock }

	if err := cb.Allow(); err != nil {
		t.Errorf("Allow() in HALF_OPEN should succeed, got %v", err)
	}
}

func TestCircuitBreakerHalfOpenSuccessCloses(t *testing.T) {
	clock := time.Now()
	cb := newTestCBWithClock(t, func() time.Time { return clock })

	for i := 0; i < 3; i++ {
		cb.RecordFailure()
	}
	clock = clock.Add(2 * time.Second)
	cb.now = func() time.Time { return clock }

	cb.Allow()
	cb.RecordSuccess()
	cb.RecordSuccess()

	if cb.State() != CBClosed {
		t.Errorf("state after 2 successes in HALF_OPEN = %s, want CLOSED", cb.State())
	}
}

func TestCircuitBreakerHalfOpenFailureReopens(t *testing.T) {
	clock := time.Now()
	cb := newTestCBWithClock(t, func() time.Time { return clock })

	for i := 0; i < 3; i++ {
		cb.RecordFailure()
	}
	clock = clock.Add(2 * time.Second)
	cb.now = func() time.Time { return clock }

	cb.Allow()
	cb.RecordFailure()

	if cb.State() != CBOpen {
		t.Errorf("state after failure in HALF_OPEN = %s, want OPEN", cb.State())
	}
}

func TestCircuitBreakerClosedSuccessDecaysFailures(t *testing.T) {
	cb := newTestCB(t)
	cb.RecordFailure()
	cb.RecordFailure()
	cb.RecordSuccess()
	snap := cb.Snapshot()
	if snap.Failures != 1 {
		t.Errorf("Failures after 2 failures + 1 success = %d, want 1", snap.Failures)
	}
}

func TestCircuitBreakerSnapshot(t *testing.T) {
	cb := newTestCB(t)
	snap := cb.Snapshot()
	if snap.Name != "test-sensor" {
		t.Errorf("Name = %q, want %q", snap.Name, "test-sensor")
	}
	if snap.State != CBClosed {
		t.Errorf("State = %s, want CLOSED", snap.State)
	}
	if snap.TotalTrips != 0 {
		t.Errorf("TotalTrips = %d, want 0", snap.TotalTrips)
	}
}

func TestCircuitBreakerSnapshotCountsTrips(t *testing.T) {
	clock := time.Now()
	cb := newTestCBWithClock(t, func() time.Time { return clock })

	for i := 0; i < 3; i++ {
		cb.RecordFailure()
	}
	snap := cb.Snapshot()
	if snap.TotalTrips != 1 {
		t.Errorf("TotalTrips = %d, want 1", snap.TotalTrips)
	}
}

func TestCircuitBreakerReset(t *testing.T) {
	cb := newTestCB(t)
	for i := 0; i < 5; i++ {
		cb.RecordFailure()
	}
	cb.Reset()
	if cb.State() != CBClosed {
		t.Errorf("State after Reset() = %s, want CLOSED", cb.State())
	}
	if err := cb.Allow(); err != nil {
		t.Errorf("Allow() after Reset() = %v, want nil", err)
	}
}
