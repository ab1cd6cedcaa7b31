package anima_test

import (
	"math"
	"math/rand"
	"testing"

	"github.com/anima-project/anima/internal/anima"
	"github.com/anima-project/anima/internal/calibration"
	"github.com/anima-project/anima/internal/domain"
)

func defaultCalibration() domain.Calibration {
	return calibration.FromConfigValues(35, 70, 18, 28, 1013.25, 45, 300)
}

// Invariant 1: for all readings and calibrations, every anima value is in
// [0,1], via randomized property testing.
func TestSenseSelfAlwaysInUnitInterval(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	calib := defaultCalibration()
	for i := 0; i < 2000; i++ {
		cpuTemp := rng.Float64()*150 - 20
		cpuPct := rng.Float64() * 150
		ambient := rng.Float64()*60 - 10
		humidity := rng.Float64() * 150
		pressure := rng.Float64()*400 + 800
		world := rng.Float64() * 5000
		memPct := rng.Float64() * 150

		in := anima.Inputs{
			Readings: domain.SensorReadings{
				CPUTempC: &cpuTemp, CPUPct: &cpuPct, AmbientTempC: &ambient,
				HumidityPct: &humidity, PressureHPa: &pressure,
				WorldLightLux: &world, MemPct: &memPct,
			},
			Calibration: calib,
			Bands: domain.BandPowers{
				Delta: rng.Float64(), Theta: rng.Float64(), Alpha: rng.Float64(),
				Beta: rng.Float64(), Gamma: rng.Float64(),
			},
			InteractionRecency: rng.Float64()*2 - 0.5,
		}
		a := anima.SenseSelf(in)
		for _, v := range []float64{a.Warmth, a.Clarity, a.Stability, a.Presence} {
			if math.IsNaN(v) || v < 0 || v > 1 {
				t.Fatalf("anima value out of bounds: %v (iteration %d)", v, i)
			}
		}
	}
}

func TestSenseSelfWithNoReadingsNeverNaN(t *testing.T) {
	a := anima.SenseSelf(anima.Inputs{Calibration: defaultCalibration()})
	for _, v := range []float64{a.Warmth, a.Clarity, a.Stability, a.Presence} {
		if math.IsNaN(v) {
			t.Fatalf("expected no NaN with zero readings, got %v", a)
		}
	}
}

func TestDriftShiftsRangeCentre(t *testing.T) {
	calib := defaultCalibration()
	cpuTemp := 52.5 // exact midpoint of [35,70]
	base := anima.SenseSelf(anima.Inputs{
		Readings:    domain.SensorReadings{CPUTempC: &cpuTemp},
		Calibration: calib,
	})
	shifted := anima.SenseSelf(anima.Inputs{
		Readings:       domain.SensorReadings{CPUTempC: &cpuTemp},
		Calibration:    calib,
		DriftMidpoints: map[string]float64{"warmth": 0.65},
	})
	if shifted.Warmth <= base.Warmth {
		t.Errorf("expected drift midpoint 0.65 to raise warmth above baseline, base=%v shifted=%v", base.Warmth, shifted.Warmth)
	}
}

// Spec S3: world_light uses the LED-corrected value for clarity, not raw.
func TestClarityUsesWorldLightNotRawLux(t *testing.T) {
	calib := defaultCalibration()
	raw := 500.0
	world := 12.0
	withWorld := anima.SenseSelf(anima.Inputs{
		Readings:    domain.SensorReadings{LightLux: &raw, WorldLightLux: &world},
		Calibration: calib,
	})
	withoutWorld := anima.SenseSelf(anima.Inputs{
		Readings:    domain.SensorReadings{LightLux: &raw},
		Calibration: calib,
	})
	if withWorld.Clarity == withoutWorld.Clarity {
		t.Errorf("expected world_light presence to change clarity computation")
	}
}
