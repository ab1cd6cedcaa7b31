// Package calibration holds the static calibration (ranges + weights) and
// the endogenous drift state that slowly shifts calibration midpoints
// from experience. Calibration itself is loaded from YAML at startup
// (internal/config). SaveDrift/LoadDrift persist drift state atomically,
// but the broker keeps drift in memory and does not call them, so drift
// does not survive a restart.
package calibration

import (
	"fmt"

	"github.com/anima-project/anima/internal/domain"
)

// FromConfigValues builds a domain.Calibration from the static config
// values plus the default component weights for each anima dimension.
func FromConfigValues(cpuTempMin, cpuTempMax, ambientMin, ambientMax, pressureIdeal, humidityIdeal, lightRef float64) domain.Calibration {
	return domain.Calibration{
		CPUTempMin:     cpuTempMin,
		CPUTempMax:     cpuTempMax,
		AmbientTempMin: ambientMin,
		AmbientTempMax: ambientMax,
		PressureIdeal:  pressureIdeal,
		HumidityIdeal:  humidityIdeal,
		LightReference: lightRef,
		WarmthWeights: domain.ComponentWeights{
			"cpu_temp":     0.3,
			"cpu_pct":      0.25,
			"ambient_temp": 0.25,
			"neural_beta":  0.2,
		},
		ClarityWeights: domain.ComponentWeights{
			"world_light":      0.4,
			"sensor_coverage":  0.3,
			"neural_alpha":     0.3,
		},
		StabilityWeights: domain.ComponentWeights{
			"humidity_dev": 0.25,
			"pressure_dev": 0.25,
			"temp_dev":     0.2,
			"neural_delta": 0.3,
		},
		PresenceWeights: domain.ComponentWeights{
			"resource_headroom": 0.35,
			"interaction_trend": 0.35,
			"neural_gamma":      0.3,
		},
	}
}

// Validate enforces the core calibration invariants: all weights are
// non-negative and each dimension's weights sum to 1 (within tolerance).
// Used by set_calibration to reject an invalid partial update without
// mutating state.
func Validate(c domain.Calibration) error {
	if c.CPUTempMin >= c.CPUTempMax {
		return fmt.Errorf("%w: cpu_temp_min must be < cpu_temp_max", domain.ErrCalibrationInvalid)
	}
	if c.AmbientTempMin >= c.AmbientTempMax {
		return fmt.Errorf("%w: ambient_temp_min must be < ambient_temp_max", domain.ErrCalibrationInvalid)
	}
	for name, weights := range map[string]domain.ComponentWeights{
		"warmth": c.WarmthWeights, "clarity": c.ClarityWeights,
		"stability": c.StabilityWeights, "presence": c.PresenceWeights,
	} {
		sum := 0.0
		for k, w := range weights {
			if w < 0 {
				return fmt.Errorf("%w: %s.%s weight negative", domain.ErrCalibrationInvalid, name, k)
			}
			sum += w
		}
		if sum < 0.98 || sum > 1.02 {
			return fmt.Errorf("%w: %s weights sum to %.3f, want ~1.0", domain.ErrCalibrationInvalid, name, sum)
		}
	}
	return nil
}

// Merge applies a sparse partial update (by field name) over base and
// validates the result, returning the unmodified base on any error —
// set_calibration never partially applies.
func Merge(base domain.Calibration, partial map[string]float64) (domain.Calibration, error) {
	merged := base
	for k, v := range partial {
		switch k {
		case "cpu_temp_min":
			merged.CPUTempMin = v
		case "cpu_temp_max":
			merged.CPUTempMax = v
		case "ambient_temp_min":
			merged.AmbientTempMin = v
		case "ambient_temp_max":
			merged.AmbientTempMax = v
		case "pressure_ideal":
			merged.PressureIdeal = v
		case "humidity_ideal":
			merged.HumidityIdeal = v
		case "light_reference":
			merged.LightReference = v
		default:
			return base, fmt.Errorf("%w: unknown field %q", domain.ErrCalibrationInvalid, k)
		}
	}
	if err := Validate(merged); err != nil {
		return base, err
	}
	return merged, nil
}
