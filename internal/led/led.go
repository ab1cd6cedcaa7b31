// Package led drives the three-DotStar "lighthouse" indicator: a
// warm-only palette, manual-only brightness, and ramped transitions.
package led

import (
	"fmt"
	"math"
	"time"
)

// DistressColor is the fixed steady color for genuine hardware
// distress — the palette's one exception to "warm only, no red".
var DistressColor = Color{R: 180, G: 30, B: 0}

const (
	breathPeriod       = 12 * time.Second
	rampMinimum        = 2 * time.Second
	breathAmplitudeCap = 0.005
	breathScale        = 0.08
)

// Color is an RGB triple in [0,255]. Valid returns false for anything
// that isn't warm (R >= G >= B), except DistressColor itself.
type Color struct{ R, G, B uint8 }

// Valid reports whether c satisfies the warm-only invariant R >= G >= B,
// or is the reserved distress color.
func (c Color) Valid() bool {
	if c == DistressColor {
		return true
	}
	return c.R >= c.G && c.G >= c.B
}

// Driver tracks the current manual brightness, the active color ramp,
// and the breathing phase.
type Driver struct {
	brightness    float64
	rampFrom      Color
	rampTo        Color
	rampStartedAt time.Time
	rampDuration  time.Duration
	distress      bool
}

// New returns a Driver parked at defaultBrightness with no active ramp.
func New(defaultBrightness float64) *Driver {
	return &Driver{brightness: defaultBrightness}
}

// SetBrightness stores a new manual brightness, returning an error and
// leaving the brightness unchanged when v is outside [0, ceiling]. Auto
// brightness does not exist in this driver — every call is an explicit
// manual instruction.
func (d *Driver) SetBrightness(v, ceiling float64) error {
	if v < 0 || v > ceiling {
		return fmt.Errorf("led: brightness %v outside [0,%v]", v, ceiling)
	}
	d.brightness = v
	return nil
}

// KnownBrightness is the stable manual brightness exposed to the
// proprioceptive predictor, so sensor-read prediction uses a fixed
// value rather than a fluctuating breathing estimate.
func (d *Driver) KnownBrightness() float64 {
	return d.brightness
}

// SetDistress latches the driver into (or out of) the fixed distress
// color, overriding any active ramp.
func (d *Driver) SetDistress(active bool) {
	d.distress = active
}

// TransitionTo starts a ramp to target over at least rampMinimum,
// starting now. Requesting a shorter duration is silently raised to the
// minimum ("all color changes ramp over >= 2s").
func (d *Driver) TransitionTo(target Color, duration time.Duration, now time.Time) error {
	if !target.Valid() {
		return fmt.Errorf("led: color %+v violates warm-only palette (R>=G>=B)", target)
	}
	if duration < rampMinimum {
		duration = rampMinimum
	}
	d.rampFrom = d.currentRampColor(now)
	d.rampTo = target
	d.rampStartedAt = now
	d.rampDuration = duration
	return nil
}

func (d *Driver) currentRampColor(now time.Time) Color {
	if d.rampDuration == 0 {
		return d.rampTo
	}
	t := float64(now.Sub(d.rampStartedAt)) / float64(d.rampDuration)
	if t >= 1 {
		return d.rampTo
	}
	if t < 0 {
		t = 0
	}
	return Color{
		R: lerp(d.rampFrom.R, d.rampTo.R, t),
		G: lerp(d.rampFrom.G, d.rampTo.G, t),
		B: lerp(d.rampFrom.B, d.rampTo.B, t),
	}
}

func lerp(a, b uint8, t float64) uint8 {
	return uint8(math.Round(float64(a) + (float64(b)-float64(a))*t))
}

// Render returns the color and effective brightness to emit at now,
// applying the breathing modulation on top of the ramped color unless
// distress is latched.
func (d *Driver) Render(now time.Time) (Color, float64) {
	if d.distress {
		return DistressColor, d.brightness
	}
	amplitude := math.Min(breathAmplitudeCap, d.brightness*breathScale)
	phase := 2 * math.Pi * float64(now.UnixNano()) / float64(breathPeriod)
	breath := d.brightness + amplitude*math.Sin(phase)
	return d.currentRampColor(now), math.Max(0, breath)
}
