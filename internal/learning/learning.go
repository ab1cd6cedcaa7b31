// Package learning derives calibration adjustments from accumulated state
// history: once enough recent observations exist, it computes robust
// percentiles of ambient temperature, pressure, and humidity and blends
// them a small fraction toward the live calibration each cycle.
package learning

import (
	"encoding/json"
	"sort"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/anima-project/anima/internal/calibration"
	"github.com/anima-project/anima/internal/domain"
)

// MinObservations is the fewest state_history rows within Window required
// before adaptation runs at all.
const MinObservations = 50

// Window is how far back RecentStates must look to gather the learning
// sample.
const Window = 7 * 24 * time.Hour

// BlendFraction is how far each cycle moves the live calibration toward
// the freshly observed percentiles, never the full distance.
const BlendFraction = 0.15

// lowPercentile and highPercentile bound the robust ambient-temperature
// range estimate; the ideal targets use the median.
const (
	lowPercentile    = 0.10
	highPercentile   = 0.90
	medianPercentile = 0.50
)

// CanLearn reports whether rows (already filtered to Window by the
// caller) contains enough observations to adapt calibration from.
func CanLearn(rows []domain.StateHistoryRow) bool {
	return len(rows) >= MinObservations
}

// AdaptCalibration computes robust percentiles of ambient temperature,
// pressure, and humidity from rows and conservatively blends them into
// current, returning the updated calibration. rows with unparsable or
// missing sensor fields are skipped rather than aborting the whole
// adaptation.
func AdaptCalibration(current domain.Calibration, rows []domain.StateHistoryRow) (domain.Calibration, error) {
	var ambient, pressure, humidity []float64
	for _, row := range rows {
		var r domain.SensorReadings
		if err := json.Unmarshal([]byte(row.SensorJSON), &r); err != nil {
			continue
		}
		if r.AmbientTempC != nil {
			ambient = append(ambient, *r.AmbientTempC)
		}
		if r.PressureHPa != nil {
			pressure = append(pressure, *r.PressureHPa)
		}
		if r.HumidityPct != nil {
			humidity = append(humidity, *r.HumidityPct)
		}
	}

	partial := map[string]float64{}
	if lo, hi, ok := robustRange(ambient); ok {
		partial["ambient_temp_min"] = blend(current.AmbientTempMin, lo)
		partial["ambient_temp_max"] = blend(current.AmbientTempMax, hi)
	}
	if ideal, ok := robustMedian(pressure); ok {
		partial["pressure_ideal"] = blend(current.PressureIdeal, ideal)
	}
	if ideal, ok := robustMedian(humidity); ok {
		partial["humidity_ideal"] = blend(current.HumidityIdeal, ideal)
	}
	if len(partial) == 0 {
		return current, nil
	}

	return calibration.Merge(current, partial)
}

func blend(from, to float64) float64 {
	return from + BlendFraction*(to-from)
}

func robustRange(samples []float64) (lo, hi float64, ok bool) {
	if len(samples) < MinObservations {
		return 0, 0, false
	}
	sorted := append([]float64(nil), samples...)
	sort.Float64s(sorted)
	weights := make([]float64, len(sorted))
	for i := range weights {
		weights[i] = 1
	}
	lo = stat.Quantile(lowPercentile, stat.Empirical, sorted, weights)
	hi = stat.Quantile(highPercentile, stat.Empirical, sorted, weights)
	return lo, hi, true
}

func robustMedian(samples []float64) (median float64, ok bool) {
	if len(samples) < MinObservations {
		return 0, false
	}
	sorted := append([]float64(nil), samples...)
	sort.Float64s(sorted)
	weights := make([]float64, len(sorted))
	for i := range weights {
		weights[i] = 1
	}
	return stat.Quantile(medianPercentile, stat.Empirical, sorted, weights), true
}
