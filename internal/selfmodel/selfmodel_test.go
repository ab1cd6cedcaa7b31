package selfmodel_test

import (
	"testing"
	"time"

	"github.com/anima-project/anima/internal/selfmodel"
)

func TestObserveEvidenceRaisesConfidenceWithSupport(t *testing.T) {
	m := selfmodel.New()
	now := time.Now()
	m.ObserveEvidence("warmth", true, now)
	m.ObserveEvidence("warmth", true, now)
	b := m.ObserveEvidence("warmth", true, now)
	if b.Confidence != 1 {
		t.Errorf("Confidence = %v, want 1", b.Confidence)
	}
	if b.Value <= 0 {
		t.Errorf("Value = %v, want > 0 after all-supporting evidence", b.Value)
	}
}

func TestObserveEvidenceMixedLowersConfidence(t *testing.T) {
	m := selfmodel.New()
	now := time.Now()
	m.ObserveEvidence("clarity", true, now)
	b := m.ObserveEvidence("clarity", false, now)
	if b.Confidence != 0.5 {
		t.Errorf("Confidence = %v, want 0.5", b.Confidence)
	}
}

func TestStabilityEpisodeOpensAndClosesOnThresholds(t *testing.T) {
	m := selfmodel.New()
	now := time.Now()
	m.ObserveStability("stability", 0.2, now) // opens
	m.ObserveStability("stability", 0.1, now.Add(5*time.Second)) // deepens
	m.ObserveStability("stability", 0.55, now.Add(20*time.Second)) // closes

	profile := m.GetRecoveryProfile()
	if _, ok := profile["stability"]; !ok {
		t.Fatal("expected a recovery profile entry for stability")
	}
	if profile["stability"] <= 0 {
		t.Errorf("tau = %v, want > 0", profile["stability"])
	}
}

func TestStabilityEpisodeNotClosedUntilRecovered(t *testing.T) {
	m := selfmodel.New()
	now := time.Now()
	m.ObserveStability("presence", 0.25, now)
	m.ObserveStability("presence", 0.4, now.Add(time.Second)) // below close threshold
	profile := m.GetRecoveryProfile()
	if _, ok := profile["presence"]; ok {
		t.Error("expected no recovery profile entry until episode closes")
	}
}

func TestGetBeliefSignatureWeightsByConfidence(t *testing.T) {
	m := selfmodel.New()
	now := time.Now()
	m.ObserveEvidence("warmth", true, now)
	sig := m.GetBeliefSignature()
	if sig["warmth"] <= 0 {
		t.Errorf("signature[warmth] = %v, want > 0", sig["warmth"])
	}
}
