package schema

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/anima-project/anima/internal/domain"
)

// recomputeTrajectory derives attractor center/variance over the
// history's anima nodes and injects traj_* nodes.
func (h *Hub) recomputeTrajectory() []domain.SchemaNode {
	var warmth, clarity, stability, presence []float64
	for _, s := range h.history {
		a := lastAnima(s)
		warmth = append(warmth, a.Warmth)
		clarity = append(clarity, a.Clarity)
		stability = append(stability, a.Stability)
		presence = append(presence, a.Presence)
	}

	center := [4]float64{
		meanOf(warmth), meanOf(clarity), meanOf(stability), meanOf(presence),
	}
	variance := [4]float64{
		varianceOf(warmth), varianceOf(clarity), varianceOf(stability), varianceOf(presence),
	}
	var sumVariance float64
	for _, v := range variance {
		sumVariance += v
	}

	identityMaturity := math.Min(1, float64(len(h.history))/50)
	attractorPosition := meanOfSlice(center[:]) / 4
	trajStability := math.Max(0, 1-10*sumVariance)

	return []domain.SchemaNode{
		{ID: "traj_identity_maturity", Type: domain.NodeTrajectory, Value: identityMaturity, RawValue: float64(len(h.history))},
		{ID: "traj_attractor_position", Type: domain.NodeTrajectory, Value: clamp01(attractorPosition), RawValue: attractorPosition},
		{ID: "traj_stability_score", Type: domain.NodeTrajectory, Value: trajStability, RawValue: sumVariance},
	}
}

func meanOf(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	return stat.Mean(xs, nil)
}

func varianceOf(xs []float64) float64 {
	if len(xs) < 2 {
		return 0
	}
	return stat.Variance(xs, nil)
}

func meanOfSlice(xs []float64) float64 {
	var sum float64
	for _, v := range xs {
		sum += v
	}
	return sum
}
