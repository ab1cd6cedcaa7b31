package health_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/anima-project/anima/internal/domain"
	"github.com/anima-project/anima/internal/health"
)

func TestSweepMissingBeforeFirstBeat(t *testing.T) {
	r := health.New()
	r.Register("sensor", 0, nil)

	statuses := r.Sweep(context.Background(), time.Now())
	if statuses["sensor"] != domain.HealthMissing {
		t.Errorf("status = %v, want missing", statuses["sensor"])
	}
}

func TestSweepOKAfterRecentBeat(t *testing.T) {
	r := health.New()
	now := time.Now()
	r.Register("sensor", 0, nil)
	r.Beat("sensor", now)

	statuses := r.Sweep(context.Background(), now.Add(time.Second))
	if statuses["sensor"] != domain.HealthOK {
		t.Errorf("status = %v, want ok", statuses["sensor"])
	}
}

func TestSweepStaleAfterThresholdElapses(t *testing.T) {
	r := health.New()
	now := time.Now()
	r.Register("display", 30*time.Second, nil)
	r.Beat("display", now)

	statuses := r.Sweep(context.Background(), now.Add(time.Minute))
	if statuses["display"] != domain.HealthStale {
		t.Errorf("status = %v, want stale", statuses["display"])
	}
}

func TestSweepDegradedOnProbeError(t *testing.T) {
	r := health.New()
	now := time.Now()
	r.Register("identity", 0, func(ctx context.Context) error {
		return errors.New("db unreachable")
	})
	r.Beat("identity", now)

	statuses := r.Sweep(context.Background(), now.Add(time.Second))
	if statuses["identity"] != domain.HealthDegraded {
		t.Errorf("status = %v, want degraded", statuses["identity"])
	}
	if r.LastError("identity") == "" {
		t.Error("expected LastError to capture the probe error")
	}
}

func TestGrowthSubsystemHasNinetySecondThreshold(t *testing.T) {
	if health.Thresholds["growth"] != 90*time.Second {
		t.Errorf("growth threshold = %v, want 90s", health.Thresholds["growth"])
	}
	if health.Thresholds["shared_memory"] != 45*time.Second {
		t.Errorf("shared_memory threshold = %v, want 45s", health.Thresholds["shared_memory"])
	}
}

func TestOverallReturnsWorstStatus(t *testing.T) {
	statuses := map[string]domain.HealthStatus{
		"a": domain.HealthOK,
		"b": domain.HealthStale,
		"c": domain.HealthDegraded,
	}
	if got := health.Overall(statuses); got != domain.HealthDegraded {
		t.Errorf("Overall() = %v, want degraded", got)
	}
}

func TestOverallEmptyIsOK(t *testing.T) {
	if got := health.Overall(nil); got != domain.HealthOK {
		t.Errorf("Overall(nil) = %v, want ok", got)
	}
}
