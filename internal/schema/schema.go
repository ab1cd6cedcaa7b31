// Package schema composes the unified SelfSchema graph each tick and
// periodically recomputes a trajectory over its bounded history. The
// ring-buffer-plus-interval-counter shape avoids what would otherwise
// be a cyclic schema<->trajectory dependency.
package schema

import (
	"math"
	"sort"
	"time"

	"github.com/anima-project/anima/internal/domain"
)

// DefaultHistoryCapacity bounds the schema deque (spec: default 100).
const DefaultHistoryCapacity = 100

// DefaultTrajectoryInterval is how many schemas between trajectory
// recomputations (spec: default 20).
const DefaultTrajectoryInterval = 20

// gapThreshold is how long a sleep must last before on_wake records a
// gap delta ("if > 60 s").
const gapThreshold = 60 * time.Second

// Inputs bundles everything compose_schema needs.
type Inputs struct {
	Identity  domain.Identity
	Anima     domain.Anima
	Readings  domain.SensorReadings
	Beliefs   map[string]domain.SelfBelief
	Preferences map[string]*domain.Preference
	Now       time.Time
}

// Hub holds the bounded schema history and the trajectory-recompute
// interval counter.
type Hub struct {
	history          []domain.SelfSchema
	capacity         int
	trajectoryEvery  int
	sinceTrajectory  int
	generation       int

	persistedAt time.Time
	gapPending  *gapDelta
}

// gapDelta is the pending wake-gap adjustment injected into the next
// real compose after a sleep longer than gapThreshold.
type gapDelta struct {
	duration   time.Duration
	animaDelta domain.Anima
}

// New returns an empty Hub with spec defaults.
func New() *Hub {
	return &Hub{capacity: DefaultHistoryCapacity, trajectoryEvery: DefaultTrajectoryInterval}
}

// OnWake computes the gap since the schema was last persisted (if any)
// and, if it exceeds gapThreshold, arms a gap-delta injection for the
// next ComposeSchema call.
func (h *Hub) OnWake(now time.Time) {
	if h.persistedAt.IsZero() {
		return
	}
	gap := now.Sub(h.persistedAt)
	if gap > gapThreshold {
		h.gapPending = &gapDelta{duration: gap}
	}
}

// ComposeSchema runs the compose_schema pipeline: base extraction,
// identity enrichment, gap texture, append to history, and — every
// trajectoryEvery schemas — a trajectory recompute injected as traj_*
// nodes.
func (h *Hub) ComposeSchema(in Inputs) domain.SelfSchema {
	s := domain.SelfSchema{ComposedAt: in.Now}

	s.Nodes = append(s.Nodes, identityNodes(in.Identity, in.Now)...)
	s.Nodes = append(s.Nodes, animaNodes(in.Anima)...)
	s.Nodes = append(s.Nodes, sensorNodes(in.Readings)...)
	s.Nodes = append(s.Nodes, beliefNodes(in.Beliefs)...)
	s.Nodes = append(s.Nodes, preferenceNodes(in.Preferences)...)

	if h.gapPending != nil && len(h.history) > 0 {
		prevAnima := lastAnima(h.history[len(h.history)-1])
		delta := domain.Anima{
			Warmth:    in.Anima.Warmth - prevAnima.Warmth,
			Clarity:   in.Anima.Clarity - prevAnima.Clarity,
			Stability: in.Anima.Stability - prevAnima.Stability,
			Presence:  in.Anima.Presence - prevAnima.Presence,
		}
		s.Nodes = append(s.Nodes,
			domain.SchemaNode{ID: "meta_gap_duration", Type: domain.NodeMeta, Value: normalizeGap(h.gapPending.duration), RawValue: h.gapPending.duration.Seconds()},
			domain.SchemaNode{ID: "meta_state_delta", Type: domain.NodeMeta, Value: vectorMagnitude(delta), RawValue: vectorMagnitude(delta)},
		)
		h.gapPending = nil
	}

	h.append(s)
	h.sinceTrajectory++
	if h.sinceTrajectory >= h.trajectoryEvery {
		h.sinceTrajectory = 0
		h.generation++
		s.Nodes = append(s.Nodes, h.recomputeTrajectory()...)
		s.Edges = append(s.Edges, domain.SchemaEdge{SourceID: "traj_stability_score", TargetID: "anima_stability", Weight: 1})
	}

	return s
}

func (h *Hub) append(s domain.SelfSchema) {
	h.history = append(h.history, s)
	if len(h.history) > h.capacity {
		h.history = h.history[len(h.history)-h.capacity:]
	}
}

// History returns a copy of the retained schema history.
func (h *Hub) History() []domain.SelfSchema {
	out := make([]domain.SelfSchema, len(h.history))
	copy(out, h.history)
	return out
}

// PersistSchema records now as the "last persisted at" time, called on
// sleep; the caller is responsible for writing h.History()'s latest
// entry to last_schema.json.
func (h *Hub) PersistSchema(now time.Time) {
	h.persistedAt = now
}

func identityNodes(id domain.Identity, now time.Time) []domain.SchemaNode {
	ageDays := now.Sub(id.BirthAt).Hours() / 24
	existenceRatio := id.AliveRatio(now)
	awakeningCount := math.Log10(math.Max(1, float64(id.Awakenings))) / 2
	return []domain.SchemaNode{
		{ID: "identity", Type: domain.NodeIdentity, Label: id.Name},
		{ID: "meta_existence_ratio", Type: domain.NodeMeta, Value: clamp01(existenceRatio), RawValue: existenceRatio},
		{ID: "meta_awakening_count", Type: domain.NodeMeta, Value: clamp01(awakeningCount), RawValue: float64(id.Awakenings)},
		{ID: "meta_age_days", Type: domain.NodeMeta, Value: clamp01(math.Min(1, ageDays/100)), RawValue: ageDays},
	}
}

func animaNodes(a domain.Anima) []domain.SchemaNode {
	return []domain.SchemaNode{
		{ID: "anima_warmth", Type: domain.NodeAnima, Value: a.Warmth, RawValue: a.Warmth},
		{ID: "anima_clarity", Type: domain.NodeAnima, Value: a.Clarity, RawValue: a.Clarity},
		{ID: "anima_stability", Type: domain.NodeAnima, Value: a.Stability, RawValue: a.Stability},
		{ID: "anima_presence", Type: domain.NodeAnima, Value: a.Presence, RawValue: a.Presence},
	}
}

func sensorNodes(r domain.SensorReadings) []domain.SchemaNode {
	var nodes []domain.SchemaNode
	add := func(id string, v *float64) {
		if v == nil {
			return
		}
		nodes = append(nodes, domain.SchemaNode{ID: id, Type: domain.NodeSensor, Value: *v, RawValue: *v})
	}
	add("sensor_cpu_temp_c", r.CPUTempC)
	add("sensor_ambient_temp_c", r.AmbientTempC)
	add("sensor_humidity_pct", r.HumidityPct)
	add("sensor_pressure_hpa", r.PressureHPa)
	add("sensor_world_light_lux", r.WorldLightLux)
	return nodes
}

func beliefNodes(beliefs map[string]domain.SelfBelief) []domain.SchemaNode {
	dims := make([]string, 0, len(beliefs))
	for dim := range beliefs {
		dims = append(dims, dim)
	}
	sort.Strings(dims)

	nodes := make([]domain.SchemaNode, 0, len(beliefs))
	for _, dim := range dims {
		b := beliefs[dim]
		nodes = append(nodes, domain.SchemaNode{ID: "belief_" + dim, Type: domain.NodeBelief, Value: (b.Value + 1) / 2, RawValue: b.Value})
	}
	return nodes
}

func preferenceNodes(prefs map[string]*domain.Preference) []domain.SchemaNode {
	keys := make([]string, 0, len(prefs))
	for key := range prefs {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	nodes := make([]domain.SchemaNode, 0, len(prefs))
	for _, key := range keys {
		p := prefs[key]
		nodes = append(nodes, domain.SchemaNode{ID: "preference_" + key, Type: domain.NodePreference, Value: clamp01((p.Value + 1) / 2), RawValue: p.Value})
	}
	return nodes
}

func lastAnima(s domain.SelfSchema) domain.Anima {
	var a domain.Anima
	for _, n := range s.Nodes {
		switch n.ID {
		case "anima_warmth":
			a.Warmth = n.RawValue
		case "anima_clarity":
			a.Clarity = n.RawValue
		case "anima_stability":
			a.Stability = n.RawValue
		case "anima_presence":
			a.Presence = n.RawValue
		}
	}
	return a
}

func vectorMagnitude(a domain.Anima) float64 {
	d := a.Dims()
	var sum float64
	for _, v := range d {
		sum += v * v
	}
	return math.Sqrt(sum)
}

func normalizeGap(d time.Duration) float64 {
	return clamp01(d.Hours() / 24)
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
