package drawing

import (
	"image/color"
	"math"
	"math/rand"
)

// Gesture is one placed mark: where, what color, and how large.
type Gesture struct {
	X, Y   float64
	Color  color.Color
	Radius float64
}

// Era is a function bundle, not a subclass: "era is a set of six pure
// functions; the registry holds function bundles rather than
// subclasses" — equal-peer substitution with no shared base type.
type Era struct {
	Name           string
	CreateState    func(rng *rand.Rand) interface{}
	ChooseGesture  func(state interface{}, intent float64, rng *rand.Rand) Gesture
	PlaceMark      func(c *Canvas, g Gesture)
	DriftFocus     func(state interface{}, intent float64, focusX, focusY float64) (x, y float64)
	GenerateColor  func(state interface{}, rng *rand.Rand) color.Color
	Intentionality func(state interface{}) float64
}

// gesturalState tracks the last stroke direction so strokes can
// continue in roughly the same direction, the defining trait of a
// gestural era.
type gesturalState struct {
	headingX, headingY float64
	strokeCount        int
}

// Gestural favors long, directionally-committed strokes.
var Gestural = Era{
	Name: "gestural",
	CreateState: func(rng *rand.Rand) interface{} {
		return &gesturalState{headingX: 1, headingY: 0}
	},
	ChooseGesture: func(state interface{}, intent float64, rng *rand.Rand) Gesture {
		s := state.(*gesturalState)
		s.strokeCount++
		jitter := (1 - intent) * 0.6
		s.headingX += (rng.Float64()*2 - 1) * jitter
		s.headingY += (rng.Float64()*2 - 1) * jitter
		norm := math.Hypot(s.headingX, s.headingY)
		if norm > 0 {
			s.headingX /= norm
			s.headingY /= norm
		}
		return Gesture{Radius: 2 + 4*intent}
	},
	PlaceMark: func(c *Canvas, g Gesture) {
		drawLine(c, g.X, g.Y, g.Color, int(g.Radius)+3)
	},
	DriftFocus: func(state interface{}, intent float64, fx, fy float64) (float64, float64) {
		s := state.(*gesturalState)
		step := 3 + 5*intent
		return clampCoord(fx + s.headingX*step), clampCoord(fy + s.headingY*step)
	},
	GenerateColor: func(state interface{}, rng *rand.Rand) color.Color {
		return warmColor(rng, 0.5, 0.9)
	},
	Intentionality: func(state interface{}) float64 {
		s := state.(*gesturalState)
		return minF(1, float64(s.strokeCount)/200)
	},
}

// pointillistState counts dots placed.
type pointillistState struct{ dots int }

// Pointillist favors many small, independently-placed dots.
var Pointillist = Era{
	Name: "pointillist",
	CreateState: func(rng *rand.Rand) interface{} {
		return &pointillistState{}
	},
	ChooseGesture: func(state interface{}, intent float64, rng *rand.Rand) Gesture {
		state.(*pointillistState).dots++
		return Gesture{Radius: 1}
	},
	PlaceMark: func(c *Canvas, g Gesture) {
		c.SetPixel(int(g.X), int(g.Y), g.Color)
	},
	DriftFocus: func(state interface{}, intent float64, fx, fy float64) (float64, float64) {
		return clampCoord(fx + (rand.Float64()*2-1)*6), clampCoord(fy + (rand.Float64()*2-1)*6)
	},
	GenerateColor: func(state interface{}, rng *rand.Rand) color.Color {
		return warmColor(rng, 0.3, 1.0)
	},
	Intentionality: func(state interface{}) float64 {
		s := state.(*pointillistState)
		return minF(1, float64(s.dots)/2000)
	},
}

// fieldState tracks a slowly-drifting color field center.
type fieldState struct{ centerShift float64 }

// Field lays down broad, softly overlapping washes.
var Field = Era{
	Name: "field",
	CreateState: func(rng *rand.Rand) interface{} {
		return &fieldState{}
	},
	ChooseGesture: func(state interface{}, intent float64, rng *rand.Rand) Gesture {
		return Gesture{Radius: 10 + 20*intent}
	},
	PlaceMark: func(c *Canvas, g Gesture) {
		drawDisc(c, g.X, g.Y, g.Radius, g.Color)
	},
	DriftFocus: func(state interface{}, intent float64, fx, fy float64) (float64, float64) {
		s := state.(*fieldState)
		s.centerShift += 0.05
		return clampCoord(fx + math.Sin(s.centerShift)*4), clampCoord(fy + math.Cos(s.centerShift)*4)
	},
	GenerateColor: func(state interface{}, rng *rand.Rand) color.Color {
		return warmColor(rng, 0.1, 0.5)
	},
	Intentionality: func(state interface{}) float64 {
		return 0.5
	},
}

// geometricState tracks the active shape's angle step.
type geometricState struct{ angle float64 }

// Geometric lays down crisp radial segments.
var Geometric = Era{
	Name: "geometric",
	CreateState: func(rng *rand.Rand) interface{} {
		return &geometricState{}
	},
	ChooseGesture: func(state interface{}, intent float64, rng *rand.Rand) Gesture {
		s := state.(*geometricState)
		s.angle += math.Pi / 6
		return Gesture{Radius: 6}
	},
	PlaceMark: func(c *Canvas, g Gesture) {
		drawDisc(c, g.X, g.Y, g.Radius, g.Color)
	},
	DriftFocus: func(state interface{}, intent float64, fx, fy float64) (float64, float64) {
		s := state.(*geometricState)
		step := 8 + 12*intent
		return clampCoord(fx + math.Cos(s.angle)*step), clampCoord(fy + math.Sin(s.angle)*step)
	},
	GenerateColor: func(state interface{}, rng *rand.Rand) color.Color {
		return warmColor(rng, 0.6, 0.8)
	},
	Intentionality: func(state interface{}) float64 {
		return 0.7
	},
}

func warmColor(rng *rand.Rand, minV, maxV float64) color.Color {
	v := minV + rng.Float64()*(maxV-minV)
	r := uint8(255 * v)
	g := uint8(255 * v * (0.4 + 0.3*rng.Float64()))
	b := uint8(255 * v * 0.15 * rng.Float64())
	return color.RGBA{R: r, G: g, B: b, A: 255}
}

func drawLine(c *Canvas, cx, cy float64, col color.Color, radius int) {
	x0, y0 := int(cx), int(cy)
	for dy := -radius; dy <= radius; dy++ {
		for dx := -radius; dx <= radius; dx++ {
			if dx*dx+dy*dy <= radius*radius {
				c.SetPixel(x0+dx, y0+dy, col)
			}
		}
	}
}

func drawDisc(c *Canvas, cx, cy, radius float64, col color.Color) {
	r := int(radius)
	x0, y0 := int(cx), int(cy)
	for dy := -r; dy <= r; dy++ {
		for dx := -r; dx <= r; dx++ {
			if float64(dx*dx+dy*dy) <= radius*radius {
				c.SetPixel(x0+dx, y0+dy, col)
			}
		}
	}
}

func clampCoord(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > CanvasSize-1 {
		return CanvasSize - 1
	}
	return v
}

func minF(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

// Registry holds the fixed, equal-peer set of registered eras and the
// auto-rotate toggle. No general plug-in ecosystem beyond this small
// registered set.
type Registry struct {
	eras       []Era
	active     int
	AutoRotate bool
}

// NewRegistry returns a Registry seeded with the four spec-named eras,
// starting on gestural.
func NewRegistry() *Registry {
	return &Registry{
		eras:       []Era{Gestural, Pointillist, Field, Geometric},
		AutoRotate: true,
	}
}

// Active returns the currently active era.
func (r *Registry) Active() Era {
	return r.eras[r.active]
}

// ChooseNextEra rotates to the next era in registration order, called
// on canvas clear when AutoRotate is on.
func (r *Registry) ChooseNextEra() Era {
	r.active = (r.active + 1) % len(r.eras)
	return r.Active()
}

// ByName looks up a registered era, for era name persisted in canvas JSON.
func (r *Registry) ByName(name string) (Era, bool) {
	for _, e := range r.eras {
		if e.Name == name {
			return e, true
		}
	}
	return Era{}, false
}

// SetActive switches to a registered era by name, used when restoring
// persisted canvas state.
func (r *Registry) SetActive(name string) bool {
	for i, e := range r.eras {
		if e.Name == name {
			r.active = i
			return true
		}
	}
	return false
}
