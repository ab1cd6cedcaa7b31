package neural_test

import (
	"testing"

	"github.com/anima-project/anima/internal/domain"
	"github.com/anima-project/anima/internal/neural"
)

func TestDeriveBoundsAllBandsToUnitInterval(t *testing.T) {
	cpu, mem, io := 100.0, 100.0, 100.0
	readings := domain.SensorReadings{CPUPct: &cpu, MemPct: &mem, IOWaitPct: &io}
	bands := neural.Derive(readings)
	for _, v := range []float64{bands.Delta, bands.Theta, bands.Alpha, bands.Beta, bands.Gamma} {
		if v < 0 || v > 1 {
			t.Errorf("band out of [0,1]: %v", v)
		}
	}
}

func TestDeriveMissingMetricsFallBackToMidpoint(t *testing.T) {
	bands := neural.Derive(domain.SensorReadings{})
	if bands.Beta != 0.5 {
		t.Errorf("expected beta=0.5 fallback with no cpu_pct, got %v", bands.Beta)
	}
}

func TestBlendIs40PercentCreative60PercentHardware(t *testing.T) {
	hardware := domain.BandPowers{Delta: 1, Theta: 1, Alpha: 1, Beta: 1, Gamma: 1}
	creative := domain.BandPowers{Delta: 0, Theta: 0, Alpha: 0, Beta: 0, Gamma: 0}
	blended := neural.Blend(hardware, creative)
	if blended.Delta < 0.59 || blended.Delta > 0.61 {
		t.Errorf("expected ~0.6 hardware weight, got %v", blended.Delta)
	}
}
