// Package domain holds the types, sentinel errors, and service ports shared
// across Anima's components. Types are pure — no infrastructure dependency.
package domain

import "time"

// SensorReadings is a typed snapshot taken once per broker tick. Any field
// may be nil when its backing sensor failed or is unavailable; readers must
// treat a nil field as "missing", never as zero.
type SensorReadings struct {
	Timestamp time.Time

	CPUTempC      *float64
	AmbientTempC  *float64
	HumidityPct   *float64
	PressureHPa   *float64
	LightLux      *float64 // raw, uncorrected
	WorldLightLux *float64 // corrected for LED self-glow, smoothed
	LEDBrightness *float64 // known manual brightness at read time

	CPUPct    *float64
	MemPct    *float64
	IOWaitPct *float64

	Bands BandPowers
}

// Available returns the set of field names that were successfully read.
func (r SensorReadings) Available() map[string]bool {
	avail := make(map[string]bool, 9)
	avail["cpu_temp_c"] = r.CPUTempC != nil
	avail["ambient_temp_c"] = r.AmbientTempC != nil
	avail["humidity_pct"] = r.HumidityPct != nil
	avail["pressure_hpa"] = r.PressureHPa != nil
	avail["light_lux"] = r.LightLux != nil
	avail["world_light_lux"] = r.WorldLightLux != nil
	avail["led_brightness"] = r.LEDBrightness != nil
	avail["cpu_pct"] = r.CPUPct != nil
	avail["mem_pct"] = r.MemPct != nil
	return avail
}

// BandPowers holds the five "EEG-like" band powers derived from system
// metrics, each in [0,1].
type BandPowers struct {
	Delta float64
	Theta float64
	Alpha float64
	Beta  float64
	Gamma float64
}

// Anima is the four-scalar proprioceptive self-state. Every value is always
// clamped to [0,1]; NaN must never surface.
type Anima struct {
	Warmth    float64
	Clarity   float64
	Stability float64
	Presence  float64
}

// Clamp returns a with every dimension clamped to [0,1].
func (a Anima) Clamp() Anima {
	return Anima{
		Warmth:    clamp01(a.Warmth),
		Clarity:   clamp01(a.Clarity),
		Stability: clamp01(a.Stability),
		Presence:  clamp01(a.Presence),
	}
}

func clamp01(v float64) float64 {
	if v != v { // NaN
		return 0.5
	}
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// Dims returns the four anima dimensions as a fixed-order slice, used by
// components that iterate homogeneously (history, tension, trajectory).
func (a Anima) Dims() [4]float64 {
	return [4]float64{a.Warmth, a.Clarity, a.Stability, a.Presence}
}

// AnimaFromDims is the inverse of Dims.
func AnimaFromDims(d [4]float64) Anima {
	return Anima{Warmth: d[0], Clarity: d[1], Stability: d[2], Presence: d[3]}
}

// DimensionNames is the canonical order used wherever anima dimensions are
// iterated positionally.
var DimensionNames = [4]string{"warmth", "clarity", "stability", "presence"}

// ComponentWeights is a single dimension's weighted inputs; weights must sum
// to the dimension's constant (enforced by calibration validation).
type ComponentWeights map[string]float64

// Calibration holds tunable ranges and per-dimension weights. All weights
// are non-negative and each dimension's weights sum to a constant.
type Calibration struct {
	CPUTempMin     float64
	CPUTempMax     float64
	AmbientTempMin float64
	AmbientTempMax float64
	PressureIdeal  float64
	HumidityIdeal  float64
	LightReference float64

	WarmthWeights    ComponentWeights
	ClarityWeights   ComponentWeights
	StabilityWeights ComponentWeights
	PresenceWeights  ComponentWeights
}

// DriftState is the per-dimension endogenous calibration-midpoint drift.
type DriftState struct {
	Dimension        string
	HardwareDefault  float64
	InnerEMA         float64
	OuterEMA         float64
	CurrentMidpoint  float64
	LastHealthy      float64
	LastHealthyAt    time.Time
	OuterAlpha       float64
	SurpriseMultiply float64 // >1 while surprise acceleration active, decays toward 1
	RecentInner      []float64
	SurpriseStreak   int
	SurpriseRemaining int // updates left in the current acceleration window
}

// Identity is the creature's persistent identity.
type Identity struct {
	BirthUUID        string
	Name             string
	NameHistory      []NameChange
	Awakenings       int
	AliveSeconds     float64
	BirthAt          time.Time
	SessionStartedAt time.Time
}

// NameChange records a historical rename.
type NameChange struct {
	Name      string
	ChangedAt time.Time
}

// AliveRatio returns alive-seconds over age-seconds, 0 when age is 0.
func (id Identity) AliveRatio(now time.Time) float64 {
	age := now.Sub(id.BirthAt).Seconds()
	if age <= 0 {
		return 0
	}
	return id.AliveSeconds / age
}

// StateHistoryRow is one append-only row of recorded state.
type StateHistoryRow struct {
	Timestamp  time.Time
	Anima      Anima
	SensorJSON string
}

// SelfBelief is a Bayesian-updated belief about a dimension.
type SelfBelief struct {
	ID                string
	Dimension         string
	Value             float64 // [-1,1]
	Confidence        float64 // [0,1]
	SupportingCount   int
	ContradictingCount int
	LastEvidenceAt    time.Time
}

// StabilityEpisode tracks a stability drop/recovery window.
type StabilityEpisode struct {
	OpenedAt       time.Time
	ClosedAt       time.Time
	MinStability   float64
	RecoverySeconds float64
	Closed         bool
}

// Preference is a learned liking over an anima dimension or category.
type Preference struct {
	Key              string
	Value            float64
	Confidence       float64
	ObservationCount int
	InfluenceWeight  float64
}

// GoalSource enumerates where a goal originated.
type GoalSource string

const (
	GoalSourcePreference  GoalSource = "preference"
	GoalSourceCuriosity   GoalSource = "curiosity"
	GoalSourceMilestone   GoalSource = "milestone"
	GoalSourceBeliefTest  GoalSource = "belief-test"
	GoalSourceWellness    GoalSource = "wellness"
)

// GoalStatus enumerates a goal's lifecycle state.
type GoalStatus string

const (
	GoalActive    GoalStatus = "active"
	GoalComplete  GoalStatus = "complete"
	GoalAbandoned GoalStatus = "abandoned"
)

// Goal is a self-directed objective.
type Goal struct {
	ID          string
	Source      GoalSource
	Description string
	TargetDate  time.Time
	Progress    float64
	Status      GoalStatus
	CreatedAt   time.Time
}

// MemoryEntry is an append-only autobiographical record.
type MemoryEntry struct {
	ID        string
	CreatedAt time.Time
	Kind      string
	Text      string
}

// Insight is a derived observation surfaced during reflection.
type Insight struct {
	ID        string
	CreatedAt time.Time
	Text      string
	Strength  float64
}

// Observation is a raw, retention-capped note about the environment.
type Observation struct {
	ID        string
	CreatedAt time.Time
	Text      string
}

// Question is an open question the creature has posed.
type Question struct {
	ID        string
	CreatedAt time.Time
	Text      string
	Answered  bool
	Answer    string
	AnsweredBy string
}

// VisitorRecord is an append-only note about an external visitor.
type VisitorRecord struct {
	ID        string
	CreatedAt time.Time
	Text      string
}

// AgentNote is an append-only note left by a collaborating agent.
type AgentNote struct {
	ID        string
	CreatedAt time.Time
	Author    string
	Text      string
}

// ActivityLevel enumerates the activity state machine's states.
type ActivityLevel string

const (
	ActivityActive  ActivityLevel = "active"
	ActivityDrowsy  ActivityLevel = "drowsy"
	ActivityResting ActivityLevel = "resting"
)

// ActivityState is the current activity-manager output.
type ActivityState struct {
	Level             ActivityLevel
	Reason            string
	ActivityMultiplier float64
}

// ConflictCategory enumerates value-tension classifications.
type ConflictCategory string

const (
	ConflictStructural   ConflictCategory = "structural"
	ConflictEnvironmental ConflictCategory = "environmental"
	ConflictVolitional    ConflictCategory = "volitional"
)

// ConflictEvent is one recorded value-tension event.
type ConflictEvent struct {
	Timestamp  time.Time
	DimA       string
	DimB       string
	GradientA  float64
	GradientB  float64
	Duration   time.Duration
	Category   ConflictCategory
	ActionType string
}

// HealthStatus enumerates the status of a monitored subsystem.
type HealthStatus string

const (
	HealthOK       HealthStatus = "ok"
	HealthStale    HealthStatus = "stale"
	HealthDegraded HealthStatus = "degraded"
	HealthMissing  HealthStatus = "missing"
)

// SchemaNodeType enumerates schema node kinds.
type SchemaNodeType string

const (
	NodeIdentity   SchemaNodeType = "identity"
	NodeAnima      SchemaNodeType = "anima"
	NodeSensor     SchemaNodeType = "sensor"
	NodeBelief     SchemaNodeType = "belief"
	NodePreference SchemaNodeType = "preference"
	NodeMeta       SchemaNodeType = "meta"
	NodeTrajectory SchemaNodeType = "trajectory"
	NodeDrift      SchemaNodeType = "drift"
)

// SchemaNode is one node of a SelfSchema graph.
type SchemaNode struct {
	ID       string
	Type     SchemaNodeType
	Label    string
	Value    float64
	RawValue float64
}

// SchemaEdge is one directed, weighted edge of a SelfSchema graph.
type SchemaEdge struct {
	SourceID string
	TargetID string
	Weight   float64
}

// SelfSchema is the composed graph of the unified self-understanding.
type SelfSchema struct {
	ComposedAt time.Time
	Nodes      []SchemaNode
	Edges      []SchemaEdge
}

// AnimaSample is one entry of the anima history deque.
type AnimaSample struct {
	Timestamp time.Time
	Anima     Anima
}

// AttractorBasin is the mean and covariance of anima samples over a
// trailing window.
type AttractorBasin struct {
	Mean       [4]float64
	Covariance [4][4]float64
	Window     int
}

// RecoveryProfile holds the median recovery time constant τ per
// dimension, estimated from closed stability episodes.
type RecoveryProfile map[string]float64

// NarrativeArc enumerates the drawing engine's narrative phases.
type NarrativeArc string

const (
	ArcOpening    NarrativeArc = "opening"
	ArcDeveloping NarrativeArc = "developing"
	ArcResolving  NarrativeArc = "resolving"
	ArcClosing    NarrativeArc = "closing"
)

// AttentionSignals are the drawing engine's per-tick attention scalars.
type AttentionSignals struct {
	Curiosity  float64
	Engagement float64
	Fatigue    float64
}

// Energy is the composite attention-energy scalar.
func (a AttentionSignals) Energy() float64 {
	return (0.6*a.Curiosity + 0.4*a.Engagement) * (1 - 0.5*a.Fatigue)
}

// DrawingState is the drawing engine's full per-tick state.
type DrawingState struct {
	FocusX, FocusY    float64
	MarkCount         int
	PixelsDrawn       int
	Attention         AttentionSignals
	CoherenceHistory  []float64
	Arc               NarrativeArc
	EraName           string
	AutoRotate        bool
}

// TrajectorySignature Σ combines five component signatures: preference
// profile Π, belief signature Β, attractor basin Α, recovery profile Ρ,
// and relational disposition Δ.
type TrajectorySignature struct {
	Preferences  map[string]float64
	Beliefs      map[string]float64
	Attractor    AttractorBasin
	Recovery     RecoveryProfile
	Relational   map[string]float64
	ObservationN int
}
