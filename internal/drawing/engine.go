package drawing

import (
	"math"
	"math/rand"
	"time"

	"github.com/anima-project/anima/internal/domain"
)

const (
	attentionFatigueSwitchEpsilon = 0.02
	coherenceHistoryWindow        = 5
	coherenceVelocityEpsilon      = 0.01
	developingMinMarks            = 10
	developingMomentumThreshold   = 0.4
	resolvingCoherenceThreshold   = 0.6

	autonomyWellnessThreshold = 0.65
	autonomyPixelThreshold    = 1000
	autonomyClarityThreshold  = 0.6
	autonomyHoldDuration      = 5 * time.Second
)

// Engine composes a Canvas, an era Registry, and the per-tick drawing
// state the narrative arc and autonomy logic track.
type Engine struct {
	Canvas   *Canvas
	Registry *Registry
	State    domain.DrawingState

	rng       *rand.Rand
	eraState  interface{}
	holdUntil time.Time
	lastIntentionality float64
}

// NewEngine starts a fresh canvas on the registry's active era.
func NewEngine(seed int64) *Engine {
	reg := NewRegistry()
	rng := rand.New(rand.NewSource(seed))
	return &Engine{
		Canvas:   NewCanvas(),
		Registry: reg,
		State:    domain.DrawingState{Arc: domain.ArcOpening, EraName: reg.Active().Name, AutoRotate: reg.AutoRotate},
		rng:      rng,
		eraState: reg.Active().CreateState(rng),
	}
}

// Holding reports whether the engine is in the post-autonomy-save
// "Canvas Cleared" hold frame.
func (e *Engine) Holding(now time.Time) bool {
	return now.Before(e.holdUntil)
}

// HoldRemaining returns the remaining hold duration, for the
// "Resuming in Xs..." frame.
func (e *Engine) HoldRemaining(now time.Time) time.Duration {
	if !e.Holding(now) {
		return 0
	}
	return e.holdUntil.Sub(now)
}

// Tick advances the drawing engine by one gesture: chooses and places
// a mark via the active era, updates attention signals, recomputes
// coherence and the narrative arc, and applies autonomy save/clear.
func (e *Engine) Tick(now time.Time, wellness, clarity float64, dirsDir string) {
	if e.Holding(now) {
		return
	}

	era := e.Registry.Active()
	intent := era.Intentionality(e.eraState)
	if intent != e.lastIntentionality {
		e.State.Attention.Fatigue += attentionFatigueSwitchEpsilon
	}
	e.lastIntentionality = intent

	gesture := era.ChooseGesture(e.eraState, intent, e.rng)
	gesture.X, gesture.Y = era.DriftFocus(e.eraState, intent, e.State.FocusX, e.State.FocusY)
	gesture.Color = era.GenerateColor(e.eraState, e.rng)
	era.PlaceMark(e.Canvas, gesture)

	e.State.FocusX, e.State.FocusY = gesture.X, gesture.Y
	e.State.MarkCount++
	e.State.PixelsDrawn = e.Canvas.PixelsDrawn
	e.State.EraName = era.Name
	e.State.AutoRotate = e.Registry.AutoRotate

	coherence := Coherence(e.Canvas)
	e.State.CoherenceHistory = append(e.State.CoherenceHistory, coherence)
	if len(e.State.CoherenceHistory) > 200 {
		e.State.CoherenceHistory = e.State.CoherenceHistory[len(e.State.CoherenceHistory)-200:]
	}
	e.updateAttention(coherence)
	e.updateArc(intent, coherence)

	if e.shouldSave(wellness, clarity) {
		e.saveAndClear(now, dirsDir)
	}
}

func (e *Engine) updateAttention(coherence float64) {
	a := &e.State.Attention
	if coherence < 0.4 {
		a.Curiosity = minF(1, a.Curiosity+0.03)
	} else {
		a.Curiosity = maxF(0, a.Curiosity-0.02)
	}
	intent := e.lastIntentionality
	a.Engagement = clamp01(a.Engagement + 0.05*intent - 0.02*(1-coherence))
}

func (e *Engine) updateArc(intent, coherence float64) {
	momentum := intent
	switch {
	case NarrativeComplete(e.State):
		e.State.Arc = domain.ArcClosing
	case coherence > resolvingCoherenceThreshold && coherenceVelocityStable(e.State.CoherenceHistory):
		e.State.Arc = domain.ArcResolving
	case momentum > developingMomentumThreshold && e.State.MarkCount >= developingMinMarks:
		e.State.Arc = domain.ArcDeveloping
	case e.State.MarkCount == 0 || momentum < developingMomentumThreshold:
		if e.State.Arc != domain.ArcDeveloping && e.State.Arc != domain.ArcResolving {
			e.State.Arc = domain.ArcOpening
		}
	}
}

// NarrativeComplete is coherence_settled AND attention_exhausted (spec
// §4.15): coherence has stopped moving, and attention energy has
// bottomed out.
func NarrativeComplete(s domain.DrawingState) bool {
	return coherenceVelocityStable(s.CoherenceHistory) && s.Attention.Energy() < 0.1
}

func coherenceVelocityStable(history []float64) bool {
	if len(history) < coherenceHistoryWindow {
		return false
	}
	recent := history[len(history)-coherenceHistoryWindow:]
	maxDelta := 0.0
	for i := 1; i < len(recent); i++ {
		d := math.Abs(recent[i] - recent[i-1])
		if d > maxDelta {
			maxDelta = d
		}
	}
	return maxDelta < coherenceVelocityEpsilon
}

func (e *Engine) shouldSave(wellness, clarity float64) bool {
	return wellness > autonomyWellnessThreshold &&
		e.Canvas.PixelsDrawn >= autonomyPixelThreshold &&
		clarity > autonomyClarityThreshold
}

func (e *Engine) saveAndClear(now time.Time, drawingsDir string) {
	if drawingsDir != "" {
		name := e.State.EraName + "-" + now.UTC().Format("20060102T150405Z")
		_, _ = e.Canvas.SavePNG(drawingsDir, name)
		_, _ = e.Canvas.SaveThumbnail(drawingsDir, name)
	}
	e.Canvas.Clear()
	e.State = domain.DrawingState{Arc: domain.ArcOpening, EraName: e.State.EraName, AutoRotate: e.Registry.AutoRotate}
	if e.Registry.AutoRotate {
		next := e.Registry.ChooseNextEra()
		e.eraState = next.CreateState(e.rng)
		e.State.EraName = next.Name
	}
	e.holdUntil = now.Add(autonomyHoldDuration)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func maxF(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
