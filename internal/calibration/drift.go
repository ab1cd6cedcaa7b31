package calibration

import (
	"math"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/anima-project/anima/internal/domain"
)

// Bound is a per-dimension asymmetric offset bound, in units of the
// normalized [0,1] anima scale (warmth −10/+20%, clarity
// −5/+15%, stability ±15%, presence ±10%).
type Bound struct{ Low, High float64 }

// Bounds holds the asymmetric offset bound for each anima dimension.
var Bounds = map[string]Bound{
	"warmth":    {Low: -0.10, High: 0.20},
	"clarity":   {Low: -0.05, High: 0.15},
	"stability": {Low: -0.15, High: 0.15},
	"presence":  {Low: -0.10, High: 0.10},
}

// TotalBudget is the maximum sum of |offset| across all four dimensions.
const TotalBudget = 0.4

const (
	innerAlpha        = 0.05
	outerAlpha        = 0.001
	surpriseStreak    = 100
	surpriseDuration  = 50
	surpriseMultiplier = 10
	surpriseDecay      = 0.98
	gapHalfLife        = 24 * time.Hour
	recentInnerWindow  = 50
)

// NewDriftState creates a drift state parked at its hardware default.
func NewDriftState(dimension string, hardwareDefault float64, now time.Time) domain.DriftState {
	return domain.DriftState{
		Dimension:        dimension,
		HardwareDefault:  hardwareDefault,
		InnerEMA:         hardwareDefault,
		OuterEMA:         hardwareDefault,
		CurrentMidpoint:  hardwareDefault,
		LastHealthy:      hardwareDefault,
		LastHealthyAt:    now,
		OuterAlpha:       outerAlpha,
		SurpriseMultiply: 1,
	}
}

// Update advances one dimension's drift state given the centre value for
// that dimension (the broker passes the dimension's current anima value)
// and the current trajectory_health. Call once per trajectory computation.
func Update(ds domain.DriftState, center float64, trajectoryHealth float64, now time.Time) domain.DriftState {
	ds.InnerEMA += innerAlpha * (center - ds.InnerEMA)

	ds.RecentInner = append(ds.RecentInner, ds.InnerEMA)
	if len(ds.RecentInner) > recentInnerWindow {
		ds.RecentInner = ds.RecentInner[len(ds.RecentInner)-recentInnerWindow:]
	}

	// Surprise acceleration: sustained >3 sigma deviation for >=100
	// consecutive updates multiplies the outer alpha by 10 for at most 50
	// updates, the multiplier decaying ×0.98 on each of those updates.
	if len(ds.RecentInner) >= 2 {
		sigma := stat.StdDev(ds.RecentInner, nil)
		if sigma > 0 && math.Abs(ds.InnerEMA-ds.CurrentMidpoint) > 3*sigma {
			ds.SurpriseStreak++
		} else {
			ds.SurpriseStreak = 0
		}
	}
	if ds.SurpriseStreak >= surpriseStreak && ds.SurpriseMultiply <= 1 {
		ds.SurpriseMultiply = surpriseMultiplier
		ds.SurpriseRemaining = surpriseDuration
	}

	effectiveAlpha := ds.OuterAlpha * ds.SurpriseMultiply
	ds.OuterEMA += effectiveAlpha * (ds.InnerEMA - ds.OuterEMA)

	if ds.SurpriseMultiply > 1 {
		ds.SurpriseMultiply *= surpriseDecay
		ds.SurpriseRemaining--
		if ds.SurpriseMultiply < 1 || ds.SurpriseRemaining <= 0 {
			ds.SurpriseMultiply = 1
			ds.SurpriseRemaining = 0
		}
	}

	bound := Bounds[ds.Dimension]
	offset := clampOffset(ds.OuterEMA-ds.HardwareDefault, bound)
	ds.CurrentMidpoint = ds.HardwareDefault + offset

	if trajectoryHealth > 0.7 {
		ds.LastHealthy = ds.CurrentMidpoint
		ds.LastHealthyAt = now
	}

	return ds
}

// ApplyGapDecay half-life decays current_midpoint toward last_healthy
// midpoint after a gap greater than 24h, with h=24h.
func ApplyGapDecay(ds domain.DriftState, gap time.Duration) domain.DriftState {
	if gap <= 24*time.Hour {
		return ds
	}
	factor := math.Pow(0.5, gap.Hours()/gapHalfLife.Hours())
	ds.CurrentMidpoint = ds.LastHealthy + (ds.CurrentMidpoint-ds.LastHealthy)*factor
	ds.OuterEMA = ds.CurrentMidpoint
	return ds
}

// RescaleToBudget rescales every dimension's offset (current_midpoint -
// hardware_default) proportionally so that the sum of absolute offsets
// across all dimensions never exceeds TotalBudget.
func RescaleToBudget(states map[string]domain.DriftState) map[string]domain.DriftState {
	total := 0.0
	for _, ds := range states {
		total += math.Abs(ds.CurrentMidpoint - ds.HardwareDefault)
	}
	if total <= TotalBudget || total == 0 {
		return states
	}
	scale := TotalBudget / total
	out := make(map[string]domain.DriftState, len(states))
	for dim, ds := range states {
		offset := (ds.CurrentMidpoint - ds.HardwareDefault) * scale
		ds.CurrentMidpoint = ds.HardwareDefault + offset
		out[dim] = ds
	}
	return out
}

func clampOffset(offset float64, b Bound) float64 {
	if offset < b.Low {
		return b.Low
	}
	if offset > b.High {
		return b.High
	}
	return offset
}

// Midpoints extracts current_midpoint per dimension as a plain map, the
// shape domain.CalibrationSource.Midpoints() returns to anima-sensing.
func Midpoints(states map[string]domain.DriftState) map[string]float64 {
	out := make(map[string]float64, len(states))
	for dim, ds := range states {
		out[dim] = ds.CurrentMidpoint
	}
	return out
}
