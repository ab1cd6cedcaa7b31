package tension_test

import (
	"testing"
	"time"

	"github.com/anima-project/anima/internal/domain"
	"github.com/anima-project/anima/internal/tension"
)

func TestStructuralConflictsAreFixedPairs(t *testing.T) {
	conflicts := tension.StructuralConflicts()
	if len(conflicts) != 2 {
		t.Fatalf("len(conflicts) = %d, want 2", len(conflicts))
	}
	for _, c := range conflicts {
		if c.Category != domain.ConflictStructural {
			t.Errorf("Category = %v, want structural", c.Category)
		}
	}
}

func TestConflictRateIsZeroForUnusedAction(t *testing.T) {
	d := tension.NewDetector()
	if rate := d.ConflictRate("rest"); rate != 0 {
		t.Errorf("ConflictRate() = %v, want 0", rate)
	}
}

func TestVolitionalConflictDetectedAcrossActionBoundary(t *testing.T) {
	d := tension.NewDetector()
	now := time.Now()

	d.Observe(now, domain.Anima{Warmth: 0.5, Clarity: 0.5, Stability: 0.5, Presence: 0.5}, "focus_attention")
	events := d.Observe(now.Add(2*time.Second), domain.Anima{Warmth: 0.7, Clarity: 0.5, Stability: 0.5, Presence: 0.2}, "explore")

	found := false
	for _, ev := range events {
		if ev.Category == domain.ConflictVolitional {
			found = true
		}
	}
	if !found {
		t.Errorf("expected a volitional conflict, got %+v", events)
	}
	if rate := d.ConflictRate("explore"); rate <= 0 {
		t.Errorf("ConflictRate(explore) = %v, want > 0 after a detected conflict", rate)
	}
}

func TestNoVolitionalConflictWithinSameAction(t *testing.T) {
	d := tension.NewDetector()
	now := time.Now()
	d.Observe(now, domain.Anima{Warmth: 0.5, Presence: 0.5}, "rest")
	events := d.Observe(now.Add(time.Second), domain.Anima{Warmth: 0.9, Presence: 0.1}, "rest")
	for _, ev := range events {
		if ev.Category == domain.ConflictVolitional {
			t.Error("expected no volitional conflict within the same action")
		}
	}
}
