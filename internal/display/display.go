// Package display derives face mood and micro-expression timing from
// anima, and implements joystick-driven screen navigation with
// auto-return-to-face.
package display

import (
	"time"

	"github.com/anima-project/anima/internal/domain"
)

// Screen enumerates the navigable screens, in joystick cycle order.
type Screen string

const (
	ScreenFace         Screen = "face"
	ScreenStatus       Screen = "status"
	ScreenSensors      Screen = "sensors"
	ScreenNeural       Screen = "neural"
	ScreenNotepad      Screen = "notepad"
	ScreenVisitors     Screen = "visitors"
	ScreenQA           Screen = "qa"
	ScreenGrowth       Screen = "growth"
	ScreenHealth       Screen = "health"
	ScreenArchitecture Screen = "architecture"
)

// screenOrder is the joystick left/right cycle order.
var screenOrder = []Screen{
	ScreenFace, ScreenStatus, ScreenSensors, ScreenNeural, ScreenNotepad,
	ScreenVisitors, ScreenQA, ScreenGrowth, ScreenHealth, ScreenArchitecture,
}

// autoReturnAfter is how long on a non-face screen before auto-return.
const autoReturnAfter = 10 * time.Second

// Mood enumerates face moods derived from anima.
type Mood string

const (
	MoodContent    Mood = "content"
	MoodAlert      Mood = "alert"
	MoodSleepy     Mood = "sleepy"
	MoodStressed   Mood = "stressed"
	MoodOverheated Mood = "overheated"
	MoodNeutral    Mood = "neutral"
)

// DeriveMood maps anima to a face mood. Overheated takes priority (a
// hardware-distress signal), then stress (low stability), sleepiness
// (low presence), alertness (high clarity+presence), contentment (high
// warmth+stability), falling back to neutral.
func DeriveMood(a domain.Anima) Mood {
	switch {
	case a.Warmth > 0.9:
		return MoodOverheated
	case a.Stability < 0.3:
		return MoodStressed
	case a.Presence < 0.3:
		return MoodSleepy
	case a.Clarity > 0.7 && a.Presence > 0.6:
		return MoodAlert
	case a.Warmth > 0.5 && a.Stability > 0.6:
		return MoodContent
	default:
		return MoodNeutral
	}
}

// BlinkCadence returns the blink interval for mood (3-5s
// normal, 1-2s stressed, 4-6s content), keyed off the low/high end of
// each named band; callers jitter within the band themselves.
func BlinkCadence(m Mood) (min, max time.Duration) {
	switch m {
	case MoodStressed, MoodAlert:
		return time.Second, 2 * time.Second
	case MoodContent:
		return 4 * time.Second, 6 * time.Second
	default:
		return 3 * time.Second, 5 * time.Second
	}
}

// EyeOpenness scales with activity: full brightness keeps eyes fully
// open, drowsier activity narrows them.
func EyeOpenness(activityMultiplier float64) float64 {
	if activityMultiplier < 0 {
		return 0
	}
	if activityMultiplier > 1 {
		return 1
	}
	return activityMultiplier
}

// maxTintStep is the per-frame cap on tint transition magnitude (spec
// §4.13: "tint transitions capped to 20% per frame").
const maxTintStep = 0.2

// StepTint advances current toward target by at most maxTintStep.
func StepTint(current, target float64) float64 {
	delta := target - current
	if delta > maxTintStep {
		delta = maxTintStep
	}
	if delta < -maxTintStep {
		delta = -maxTintStep
	}
	return current + delta
}

// Navigator tracks the active screen and when it was last changed, to
// implement edge-triggered joystick cycling and 10s auto-return.
type Navigator struct {
	Current    Screen
	ChangedAt  time.Time
	prevLeft   bool
	prevRight  bool
	prevButton bool
}

// NewNavigator starts on the face screen.
func NewNavigator(now time.Time) *Navigator {
	return &Navigator{Current: ScreenFace, ChangedAt: now}
}

// JoystickInput is one tick's raw joystick state.
type JoystickInput struct {
	Left, Right   bool
	NextButton    bool
	ReturnButton  bool
}

// Update applies one tick of joystick input (edge-triggered: a held
// direction only cycles once per press) and the 10s auto-return timer.
func (n *Navigator) Update(now time.Time, in JoystickInput) Screen {
	if in.ReturnButton {
		n.setScreen(ScreenFace, now)
		n.latch(in)
		return n.Current
	}

	leftEdge := in.Left && !n.prevLeft
	rightEdge := in.Right && !n.prevRight
	nextEdge := in.NextButton && !n.prevButton

	switch {
	case leftEdge:
		n.cycle(-1, now)
	case rightEdge, nextEdge:
		n.cycle(1, now)
	case n.Current != ScreenFace && now.Sub(n.ChangedAt) >= autoReturnAfter:
		n.setScreen(ScreenFace, now)
	}

	n.latch(in)
	return n.Current
}

func (n *Navigator) latch(in JoystickInput) {
	n.prevLeft = in.Left
	n.prevRight = in.Right
	n.prevButton = in.NextButton
}

func (n *Navigator) cycle(dir int, now time.Time) {
	idx := indexOf(n.Current)
	idx = (idx + dir + len(screenOrder)) % len(screenOrder)
	n.setScreen(screenOrder[idx], now)
}

func (n *Navigator) setScreen(s Screen, now time.Time) {
	if s != n.Current {
		n.Current = s
		n.ChangedAt = now
	}
}

func indexOf(s Screen) int {
	for i, sc := range screenOrder {
		if sc == s {
			return i
		}
	}
	return 0
}
