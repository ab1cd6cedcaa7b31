// Package anima implements the anima-sensing pipeline: a
// weighted, normalized mapping from sensor readings and neural bands to
// the four-scalar self-state.
package anima

import (
	"math"

	"github.com/anima-project/anima/internal/domain"
)

// Inputs bundles everything sense_self needs beyond the static
// calibration: the tick's readings, neural bands, drifted midpoints, and
// the interaction-recency signal, which the broker derives from
// joystick/button timestamps and owns — anima-sensing only consumes it.
type Inputs struct {
	Readings           domain.SensorReadings
	Calibration        domain.Calibration
	DriftMidpoints     map[string]float64 // dimension -> current_midpoint, may be nil
	Bands              domain.BandPowers
	InteractionRecency float64 // [0,1], 1 = just interacted
}

// SenseSelf computes Anima from Inputs. Missing sensor inputs substitute
// 0.5 for their own normalized component and reduce sensor_coverage,
// which is clarity's confidence contribution. NaN never surfaces —
// domain.Anima.Clamp() is applied as the final step.
func SenseSelf(in Inputs) domain.Anima {
	present, total := 0, 0

	normPhysical := func(v *float64, min, max float64) float64 {
		total++
		if v == nil {
			return 0.5
		}
		present++
		return normalizeRange(*v, min, max)
	}
	devPhysical := func(v *float64, ideal, tolerance float64) float64 {
		total++
		if v == nil {
			return 0.5
		}
		present++
		return 1 - clamp01(math.Abs(*v-ideal)/tolerance)
	}

	c := in.Calibration
	warmthCenter := driftShift(in.DriftMidpoints, "warmth")
	clarityCenter := driftShift(in.DriftMidpoints, "clarity")
	stabilityCenter := driftShift(in.DriftMidpoints, "stability")
	presenceCenter := driftShift(in.DriftMidpoints, "presence")

	// Warmth: {cpu_temp 0.3, cpu_pct 0.25, ambient_temp 0.25, neural_beta 0.2}
	cpuTempNorm := normPhysical(in.Readings.CPUTempC, c.CPUTempMin, c.CPUTempMax)
	cpuPctNorm := normPhysical(in.Readings.CPUPct, 0, 100)
	ambientNorm := normPhysical(in.Readings.AmbientTempC, c.AmbientTempMin, c.AmbientTempMax)
	warmth := 0.3*cpuTempNorm + 0.25*cpuPctNorm + 0.25*ambientNorm + 0.2*in.Bands.Beta
	warmth = clamp01(warmth + warmthCenter)

	// Stability deviations are computed here, before sensor_coverage, so
	// that missing humidity/pressure/temperature also lower coverage.
	humidityDev := devPhysical(in.Readings.HumidityPct, c.HumidityIdeal, 30)
	pressureDev := devPhysical(in.Readings.PressureHPa, c.PressureIdeal, 20)
	tempTolerance := (c.AmbientTempMax - c.AmbientTempMin) / 2
	if tempTolerance <= 0 {
		tempTolerance = 5
	}
	tempDev := devPhysical(in.Readings.AmbientTempC, (c.AmbientTempMin+c.AmbientTempMax)/2, tempTolerance)

	// Clarity: {log-mapped world_light 0.4, sensor_coverage 0.3, neural_alpha 0.3}
	lightComponent := 0.5
	total++
	if in.Readings.WorldLightLux != nil {
		present++
		lightComponent = logLightMap(*in.Readings.WorldLightLux, c.LightReference)
	}
	// sensor_coverage is computed after the physical components above and
	// the light component, since all of them feed into it.
	coverage := 1.0
	if total > 0 {
		coverage = float64(present) / float64(total)
	}
	clarity := 0.4*lightComponent + 0.3*coverage + 0.3*in.Bands.Alpha
	clarity = clamp01(clarity + clarityCenter)

	// Stability: {humidity_dev 0.25, pressure_dev 0.25, temp_dev 0.2, neural_delta 0.3}
	stability := 0.25*humidityDev + 0.25*pressureDev + 0.2*tempDev + 0.3*in.Bands.Delta
	stability = clamp01(stability + stabilityCenter)

	// Presence: {resource_headroom 0.35, interaction_trend 0.35, neural_gamma 0.3}
	headroom := 0.5
	if in.Readings.CPUPct != nil && in.Readings.MemPct != nil {
		headroom = clamp01(1 - (*in.Readings.CPUPct+*in.Readings.MemPct)/200)
	}
	presence := 0.35*headroom + 0.35*clamp01(in.InteractionRecency) + 0.3*in.Bands.Gamma
	presence = clamp01(presence + presenceCenter)

	return domain.Anima{Warmth: warmth, Clarity: clarity, Stability: stability, Presence: presence}.Clamp()
}

// normalizeRange maps value into [0,1] given a calibration range.
func normalizeRange(value, min, max float64) float64 {
	if max <= min {
		return 0.5
	}
	return clamp01((value - min) / (max - min))
}

// logLightMap applies a Weber-Fechner log mapping: perceived brightness
// grows with the log of physical lux, scaled against the calibration's
// light reference so reference lux maps to ~0.5.
func logLightMap(lux, reference float64) float64 {
	if reference <= 0 {
		reference = 300
	}
	return clamp01(math.Log1p(lux) / (2 * math.Log1p(reference)))
}

// driftShift returns the drift offset to apply as an additive centre
// shift for dimension, or 0 when no drift midpoint is known yet.
func driftShift(midpoints map[string]float64, dimension string) float64 {
	if midpoints == nil {
		return 0
	}
	mid, ok := midpoints[dimension]
	if !ok {
		return 0
	}
	return mid - 0.5
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
