// Package neural derives five "EEG-like" band powers from system metrics.
// It has no hardware EEG: the bands exist so anima-sensing has a uniform
// "neural" contribution alongside the physical sensors.
package neural

import (
	"math"

	"github.com/anima-project/anima/internal/domain"
)

// Derive computes BandPowers from readings. A missing cpu_pct or mem_pct
// is treated as its midpoint (50% utilization) and a missing io_wait as
// 2%, so a single absent metric never zeroes out a band.
func Derive(readings domain.SensorReadings) domain.BandPowers {
	cpuPct := orElse(readings.CPUPct, 50)
	memPct := orElse(readings.MemPct, 50)
	ioWait := orElse(readings.IOWaitPct, 2)

	lowCPU := 1 - cpuPct/100
	lowMem := 1 - memPct/100

	return domain.BandPowers{
		Delta: clamp01((lowCPU + lowMem) / 2),
		Theta: clamp01(ioWait / 20), // io_wait rarely exceeds ~20% in practice
		Alpha: clamp01(1 - memPct/100),
		Beta:  clamp01(cpuPct / 100),
		Gamma: clamp01(cpuPct / 100 * (0.5 + 0.5*lowMem)), // cpu_pct modulated by headroom, stands in for cpu_freq
	}
}

// Blend mixes hardware-derived bands with creative-phase-derived bands
// while the drawing engine is active: 40% creative, 60% hardware.
func Blend(hardware, creative domain.BandPowers) domain.BandPowers {
	const wCreative = 0.4
	const wHardware = 0.6
	mix := func(h, c float64) float64 {
		return clamp01(wHardware*h + wCreative*c)
	}
	return domain.BandPowers{
		Delta: mix(hardware.Delta, creative.Delta),
		Theta: mix(hardware.Theta, creative.Theta),
		Alpha: mix(hardware.Alpha, creative.Alpha),
		Beta:  mix(hardware.Beta, creative.Beta),
		Gamma: mix(hardware.Gamma, creative.Gamma),
	}
}

// FromDrawingSignals derives a creative-phase BandPowers from the drawing
// engine's attention signals, used as the "creative" operand to Blend.
func FromDrawingSignals(curiosity, engagement, fatigue, intentionality float64) domain.BandPowers {
	return domain.BandPowers{
		Delta: clamp01(1 - fatigue),
		Theta: clamp01(curiosity),
		Alpha: clamp01(1 - curiosity),
		Beta:  clamp01(engagement),
		Gamma: clamp01(intentionality),
	}
}

func orElse(v *float64, fallback float64) float64 {
	if v == nil {
		return fallback
	}
	return *v
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) {
		return 0.5
	}
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
