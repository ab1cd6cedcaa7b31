// Package tension detects value conflicts between anima dimensions —
// structural (baked into the weight matrices), environmental (opposing
// smoothed gradients), and volitional (opposing deltas across an action
// boundary) — and feeds per-action conflict rates back to agency. The
// adaptive-threshold-over-a-bounded-window shape mirrors
// internal/calibration/drift.go's own use of gonum's stat.StdDev over a
// capped recent-sample slice.
package tension

import (
	"math"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/anima-project/anima/internal/domain"
)

const (
	gradientSmoothWindow  = 5
	thresholdHistoryWindow = 100
	environmentalStreak    = 3
	volitionalDeltaLimit   = 0.08
)

// structuralPairs names the two structurally-coupled dimension pairs:
// warmth↔presence through shared CPU load, clarity↔stability through
// memory load, which drives both neural alpha (clarity) and neural delta
// (stability).
var structuralPairs = [][2]string{
	{"warmth", "presence"},
	{"clarity", "stability"},
}

// StructuralConflicts returns the fixed, precomputed structural
// conflicts. They don't vary at runtime — they are a property of the
// anima weight matrices, not of any particular history.
func StructuralConflicts() []domain.ConflictEvent {
	out := make([]domain.ConflictEvent, len(structuralPairs))
	for i, pair := range structuralPairs {
		out[i] = domain.ConflictEvent{DimA: pair[0], DimB: pair[1], Category: domain.ConflictStructural}
	}
	return out
}

// Detector tracks rolling anima history to detect environmental
// conflicts, and per-action history to detect volitional ones.
type Detector struct {
	rawWindow      []domain.Anima // last gradientSmoothWindow raw samples
	gradientHist   [4][]float64   // last thresholdHistoryWindow gradients, per dimension
	envStreak      int

	lastAction     string
	lastActionAnima domain.Anima
	haveLastAction bool

	conflicts  map[string]int
	totalUses  map[string]int
}

// NewDetector returns an empty Detector.
func NewDetector() *Detector {
	return &Detector{
		conflicts: make(map[string]int),
		totalUses: make(map[string]int),
	}
}

// Observe feeds one tick's raw (pre-drift) anima and the action taken
// this tick, returning any conflict events detected.
func (d *Detector) Observe(now time.Time, raw domain.Anima, actionType string) []domain.ConflictEvent {
	var events []domain.ConflictEvent

	if ev, ok := d.observeEnvironmental(now, raw); ok {
		events = append(events, ev)
	}
	if ev, ok := d.observeVolitional(now, raw, actionType); ok {
		events = append(events, ev)
	}

	d.totalUses[actionType]++
	for _, ev := range events {
		d.conflicts[ev.ActionType]++
	}
	return events
}

func (d *Detector) observeEnvironmental(now time.Time, raw domain.Anima) (domain.ConflictEvent, bool) {
	d.rawWindow = append(d.rawWindow, raw)
	if len(d.rawWindow) > gradientSmoothWindow {
		d.rawWindow = d.rawWindow[len(d.rawWindow)-gradientSmoothWindow:]
	}
	if len(d.rawWindow) < 2 {
		return domain.ConflictEvent{}, false
	}

	gradients := smoothedGradients(d.rawWindow)
	for i := range gradients {
		d.gradientHist[i] = append(d.gradientHist[i], gradients[i])
		if len(d.gradientHist[i]) > thresholdHistoryWindow {
			d.gradientHist[i] = d.gradientHist[i][len(d.gradientHist[i])-thresholdHistoryWindow:]
		}
	}

	for a := 0; a < 4; a++ {
		for b := a + 1; b < 4; b++ {
			thA := adaptiveThreshold(d.gradientHist[a])
			thB := adaptiveThreshold(d.gradientHist[b])
			opposite := gradients[a]*gradients[b] < 0
			exceeds := math.Abs(gradients[a]) > thA && math.Abs(gradients[b]) > thB
			if opposite && exceeds {
				d.envStreak++
			} else {
				d.envStreak = 0
			}
			if d.envStreak >= environmentalStreak {
				d.envStreak = 0
				return domain.ConflictEvent{
					Timestamp: now,
					DimA:      domain.DimensionNames[a],
					DimB:      domain.DimensionNames[b],
					GradientA: gradients[a],
					GradientB: gradients[b],
					Category:  domain.ConflictEnvironmental,
				}, true
			}
		}
	}
	return domain.ConflictEvent{}, false
}

func (d *Detector) observeVolitional(now time.Time, raw domain.Anima, actionType string) (domain.ConflictEvent, bool) {
	if !d.haveLastAction {
		d.lastAction = actionType
		d.lastActionAnima = raw
		d.haveLastAction = true
		return domain.ConflictEvent{}, false
	}
	if actionType == d.lastAction {
		return domain.ConflictEvent{}, false
	}

	delta := [4]float64{
		raw.Warmth - d.lastActionAnima.Warmth,
		raw.Clarity - d.lastActionAnima.Clarity,
		raw.Stability - d.lastActionAnima.Stability,
		raw.Presence - d.lastActionAnima.Presence,
	}
	d.lastAction = actionType
	d.lastActionAnima = raw

	for a := 0; a < 4; a++ {
		for b := a + 1; b < 4; b++ {
			if math.Abs(delta[a]) > volitionalDeltaLimit && math.Abs(delta[b]) > volitionalDeltaLimit && delta[a]*delta[b] < 0 {
				return domain.ConflictEvent{
					Timestamp:  now,
					DimA:       domain.DimensionNames[a],
					DimB:       domain.DimensionNames[b],
					GradientA:  delta[a],
					GradientB:  delta[b],
					Category:   domain.ConflictVolitional,
					ActionType: actionType,
				}, true
			}
		}
	}
	return domain.ConflictEvent{}, false
}

// ConflictRate returns conflicts/total_uses for actionType, 0 if the
// action has never been used. Consumed by agency to discount values.
func (d *Detector) ConflictRate(actionType string) float64 {
	total := d.totalUses[actionType]
	if total == 0 {
		return 0
	}
	return float64(d.conflicts[actionType]) / float64(total)
}

func smoothedGradients(window []domain.Anima) [4]float64 {
	n := len(window)
	first, last := window[0].Dims(), window[n-1].Dims()
	var out [4]float64
	for i := 0; i < 4; i++ {
		out[i] = (last[i] - first[i]) / float64(n-1)
	}
	return out
}

// adaptiveThreshold is 2σ of the retained gradient history, or a small
// floor when too little history exists to estimate variance.
func adaptiveThreshold(history []float64) float64 {
	if len(history) < 5 {
		return 0.05
	}
	sigma := stat.StdDev(history, nil)
	if sigma <= 0 {
		return 0.05
	}
	return 2 * sigma
}
