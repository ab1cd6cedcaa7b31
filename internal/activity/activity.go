// Package activity implements the deterministic ACTIVE/DROWSY/RESTING
// state machine.
package activity

import (
	"time"

	"github.com/anima-project/anima/internal/domain"
)

const (
	drowsyIdle    = 30 * time.Minute
	restingIdle   = 60 * time.Minute
	restingMaxLux = 20.0 // "dark" threshold for world_light

	activeMultiplier  = 1.0
	drowsyMultiplier  = 0.6
	restingMultiplier = 0.35
)

// Inputs bundles everything Update needs to decide the next level.
type Inputs struct {
	Now               time.Time
	LastInteractionAt time.Time
	WorldLightLux     float64
	IsNight           bool
}

// Update derives the activity state from idle duration, ambient light,
// and time of day.
func Update(in Inputs) domain.ActivityState {
	idle := in.Now.Sub(in.LastInteractionAt)

	dark := in.IsNight && in.WorldLightLux < restingMaxLux
	switch {
	case idle >= restingIdle && dark:
		return domain.ActivityState{Level: domain.ActivityResting, Reason: "idle >= 60m and dark", ActivityMultiplier: restingMultiplier}
	case idle >= drowsyIdle:
		return domain.ActivityState{Level: domain.ActivityDrowsy, Reason: "idle >= 30m", ActivityMultiplier: drowsyMultiplier}
	default:
		return domain.ActivityState{Level: domain.ActivityActive, Reason: "recent interaction", ActivityMultiplier: activeMultiplier}
	}
}
