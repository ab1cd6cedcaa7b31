// Package broker runs the 2-second creature tick: sense, feel, act,
// render, persist. It owns the hardware-facing side of the process
// split — the server process never touches sensors or
// actuators directly, only the shared-memory snapshot this package
// writes.
package broker

import (
	"context"
	"encoding/json"
	"log"
	"math"
	"time"

	"github.com/anima-project/anima/internal/activity"
	"github.com/anima-project/anima/internal/agency"
	"github.com/anima-project/anima/internal/anima"
	"github.com/anima-project/anima/internal/calibration"
	"github.com/anima-project/anima/internal/display"
	"github.com/anima-project/anima/internal/domain"
	"github.com/anima-project/anima/internal/drawing"
	"github.com/anima-project/anima/internal/growth"
	"github.com/anima-project/anima/internal/health"
	"github.com/anima-project/anima/internal/learning"
	"github.com/anima-project/anima/internal/led"
	"github.com/anima-project/anima/internal/metrics"
	"github.com/anima-project/anima/internal/neural"
	"github.com/anima-project/anima/internal/resilience"
	"github.com/anima-project/anima/internal/selfmodel"
	"github.com/anima-project/anima/internal/sensor"
	"github.com/anima-project/anima/internal/tension"
)

// TickInterval is the broker's target cadence ("every 2s").
const TickInterval = 2 * time.Second

// BackpressureThreshold is the tick duration beyond which non-essential
// rendering and drawing work is skipped on the next tick.
const BackpressureThreshold = 1500 * time.Millisecond

// driftUpdateEvery is how many ticks elapse between calibration drift
// recomputation passes.
const driftUpdateEvery = 30

// learningUpdateEvery is how many ticks elapse between adaptive-calibration
// passes ("every ~100 broker ticks").
const learningUpdateEvery = 100

// learningSampleCap bounds how many state_history rows one adaptation
// pass pulls in, well above the 7-day/2s-tick row count in practice.
const learningSampleCap = 1 << 20

// Config bundles the broker's static dependencies.
type Config struct {
	Backend            domain.SensorBackend
	Calibration        domain.Calibration
	CalibrationControl domain.CalibrationOverrideReader
	Identity           domain.IdentityStore
	SharedMemory       domain.SharedMemoryWriter
	Health             *health.Registry
	LEDDefault         float64
	LEDCeiling         float64
	LuxPerBright       float64
	GlowFloor          float64
	DrawingsDir        string
	AutoRotateEra      bool
}

// Broker holds all per-tick mutable state.
type Broker struct {
	cfg Config

	led           *led.Driver
	nav           *display.Navigator
	drawer        *drawing.Engine
	drift         map[string]domain.DriftState
	calib         domain.Calibration
	lightSmoother *sensor.WorldLightSmoother

	tension       *tension.Detector
	self          *selfmodel.Model
	growthMgr     *growth.Manager
	agent         *agency.Agent
	sensorBreaker *resilience.CircuitBreaker

	lastInteractionAt time.Time
	lastActionType    string
	sinceDrift        int
	sinceLearning     int
	learnedOnce       bool
	lastGoodTick      time.Duration
	lastGoodReadings  domain.SensorReadings
	haveGoodReadings  bool
}

// New wires a Broker from its config.
func New(cfg Config) *Broker {
	b := &Broker{
		cfg:           cfg,
		led:           led.New(cfgOr(cfg.LEDDefault, 0.04)),
		nav:           display.NewNavigator(time.Now()),
		drawer:        drawing.NewEngine(time.Now().UnixNano()),
		drift:         map[string]domain.DriftState{},
		calib:         cfg.Calibration,
		lightSmoother: sensor.NewWorldLightSmoother(),
		tension:       tension.NewDetector(),
		self:          selfmodel.New(),
		growthMgr:     growth.New(),
		agent:         agency.New(agency.DefaultActions),
		sensorBreaker: resilience.NewCircuitBreaker("sensor-backend", resilience.DefaultSensorBreakerConfig()),
	}
	b.drawer.Registry.AutoRotate = cfg.AutoRotateEra
	return b
}

func cfgOr(v, fallback float64) float64 {
	if v > 0 {
		return v
	}
	return fallback
}

// readSensors reads the sensor backend through a circuit breaker: a
// wedged backend that fails repeatedly trips the breaker and the tick
// loop reuses the last known-good reading instead of hammering it every
// 2 seconds.
func (b *Broker) readSensors(ctx context.Context, now time.Time) domain.SensorReadings {
	if err := b.sensorBreaker.Allow(); err != nil {
		if b.haveGoodReadings {
			return b.lastGoodReadings
		}
		return domain.SensorReadings{}
	}

	readings, err := b.cfg.Backend.Read(ctx)
	if err != nil {
		log.Printf("[broker] sensor read error: %v", err)
		b.sensorBreaker.RecordFailure()
		if b.haveGoodReadings {
			return b.lastGoodReadings
		}
		return readings
	}

	b.sensorBreaker.RecordSuccess()
	b.lastGoodReadings = readings
	b.haveGoodReadings = true
	return readings
}

// Tick runs one full sense-feel-act-render-persist cycle.
func (b *Broker) Tick(ctx context.Context, now time.Time) error {
	start := now
	skipExpensive := b.lastGoodTick > BackpressureThreshold

	b.cfg.Health.Beat("broker", now)

	b.applyCalibrationOverride()

	knownBrightness := b.led.KnownBrightness()

	readings := b.readSensors(ctx, now)
	b.cfg.Health.Beat("sensor", now)

	sensor.ApplyWorldLight(&readings, knownBrightness, b.cfg.LuxPerBright, b.cfg.GlowFloor, b.lightSmoother)

	bands := neural.Derive(readings)

	recency := interactionRecency(now, b.lastInteractionAt)
	a := anima.SenseSelf(anima.Inputs{
		Readings:           readings,
		Calibration:        b.calib,
		DriftMidpoints:     calibration.Midpoints(b.drift),
		Bands:              bands,
		InteractionRecency: recency,
	})
	// raw is the driftless anima sample — no DriftMidpoints — so tension
	// detection never mistakes a drift shift for a genuine conflict.
	raw := anima.SenseSelf(anima.Inputs{
		Readings:           readings,
		Calibration:        b.calib,
		Bands:              bands,
		InteractionRecency: recency,
	})

	isNight := readings.WorldLightLux != nil && *readings.WorldLightLux < 5
	actState := activity.Update(activity.Inputs{
		Now:                now,
		LastInteractionAt:  b.lastInteractionAt,
		WorldLightLux:      orElse(readings.WorldLightLux, 100),
		IsNight:            isNight,
	})

	conflictRates := map[string]float64{}
	for _, act := range agency.DefaultActions {
		conflictRates[act] = b.tension.ConflictRate(act)
	}
	action := b.agent.SelectAction(conflictRates)
	if action != b.lastActionType {
		b.lastActionType = action
	}

	if !skipExpensive {
		b.renderLED(a, now)
	}

	if !skipExpensive {
		b.drawer.Tick(now, wellness(a), a.Clarity, b.cfg.DrawingsDir)
		metrics.CanvasCoherence.Set(lastCoherence(b.drawer.State.CoherenceHistory))
	}

	conflicts := b.tension.Observe(now, raw, action)
	for _, c := range conflicts {
		metrics.ConflictEvents.WithLabelValues(string(c.Category)).Inc()
	}

	dimensionPreferences := map[string]agency.PreferenceSatisfaction{}
	for _, dim := range []string{"warmth", "clarity", "stability", "presence"} {
		value := dimValue(a, dim)
		b.growthMgr.ObserveCoOccurrence(dim, value)
		p := b.growthMgr.Preferences[dim]
		dimensionPreferences[dim] = agency.PreferenceSatisfaction{
			Weight:       p.InfluenceWeight,
			Satisfaction: 1 - math.Abs(value-p.Value),
		}
	}
	satisfaction := agency.Satisfaction(dimensionPreferences)
	b.agent.Update(action, satisfaction)
	for act, v := range b.agent.Values {
		metrics.ActionValue.WithLabelValues(act).Set(v)
	}

	for _, dim := range []string{"warmth", "clarity", "stability", "presence"} {
		b.self.ObserveStability(dim, dimValue(a, dim), now)
	}

	if err := b.cfg.Identity.RecordState(stateRow(now, a, readings)); err != nil {
		log.Printf("[broker] record state error: %v", err)
	}
	b.cfg.Health.Beat("identity", now)

	b.sinceDrift++
	if b.sinceDrift >= driftUpdateEvery {
		b.sinceDrift = 0
		b.runDriftUpdate(a, now)
	}

	b.sinceLearning++
	if !b.learnedOnce || b.sinceLearning >= learningUpdateEvery {
		b.sinceLearning = 0
		b.learnedOnce = true
		b.runLearningUpdate(now)
	}

	recordAnimaMetrics(a, raw)

	snapshot := b.buildSnapshot(now, a, readings, actState)
	if err := b.cfg.SharedMemory.Write(snapshot); err != nil {
		log.Printf("[broker] shared memory write error: %v", err)
	}

	b.lastGoodTick = time.Since(start)
	metrics.TickDuration.Observe(b.lastGoodTick.Seconds())
	if skipExpensive {
		metrics.TickBackpressureSkips.Inc()
	}
	return nil
}

func (b *Broker) renderLED(a domain.Anima, now time.Time) {
	distress := a.Stability < 0.15
	b.led.SetDistress(distress)
	if !distress {
		if err := b.led.TransitionTo(animaWarmColor(a), TickInterval, now); err != nil {
			log.Printf("[broker] led transition error: %v", err)
		}
	}
	col, _ := b.led.Render(now)
	_ = col // hands off to the physical driver in a real deployment
}

// animaWarmColor maps the current self-state onto the lighthouse's
// warm-only palette: warmth sets the base red intensity, stability and
// clarity scale green and blue downward from it, which keeps R>=G>=B by
// construction.
func animaWarmColor(a domain.Anima) led.Color {
	r := 120 + 120*clamp01(a.Warmth)
	g := r * (0.25 + 0.45*clamp01(a.Stability))
	b := g * (0.1 + 0.35*clamp01(a.Clarity))
	return led.Color{R: uint8(r), G: uint8(g), B: uint8(b)}
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

func (b *Broker) runDriftUpdate(a domain.Anima, now time.Time) {
	trajectoryHealth := growth.TrajectoryHealth(growth.TrajectoryHealthInputs{
		MeanSatisfaction: wellness(a),
	})
	for _, dim := range []string{"warmth", "clarity", "stability", "presence"} {
		ds, ok := b.drift[dim]
		if !ok {
			ds = calibration.NewDriftState(dim, 0.5, now)
		}
		b.drift[dim] = calibration.Update(ds, dimValue(a, dim), trajectoryHealth, now)
	}
	b.drift = calibration.RescaleToBudget(b.drift)
	for dim, ds := range b.drift {
		metrics.DriftOffset.WithLabelValues(dim).Set(ds.CurrentMidpoint - ds.HardwareDefault)
	}
}

// applyCalibrationOverride picks up a validated set_calibration request
// left by the server process, if any, and applies it. Re-validates with
// calibration.Merge rather than trusting the already-validated override
// verbatim, since calibration may have drifted since the server checked.
func (b *Broker) applyCalibrationOverride() {
	if b.cfg.CalibrationControl == nil {
		return
	}
	override, ok, err := b.cfg.CalibrationControl.ReadOverride()
	if err != nil {
		log.Printf("[broker] read calibration override error: %v", err)
		return
	}
	if !ok {
		return
	}
	updated, err := calibration.Merge(b.calib, override.Partial)
	if err != nil {
		log.Printf("[broker] calibration override rejected: %v", err)
	} else {
		b.calib = updated
	}
	if err := b.cfg.CalibrationControl.ClearOverride(); err != nil {
		log.Printf("[broker] clear calibration override error: %v", err)
	}
}

// runLearningUpdate adapts calibration from recent state history, once
// enough observations exist. Runs once immediately on startup, then every
// learningUpdateEvery ticks thereafter.
func (b *Broker) runLearningUpdate(now time.Time) {
	rows, err := b.cfg.Identity.RecentStates(now.Add(-learning.Window), learningSampleCap)
	if err != nil {
		log.Printf("[broker] learning: load recent states error: %v", err)
		return
	}
	if !learning.CanLearn(rows) {
		return
	}
	updated, err := learning.AdaptCalibration(b.calib, rows)
	if err != nil {
		log.Printf("[broker] learning: adapt calibration error: %v", err)
		return
	}
	b.calib = updated
}

func (b *Broker) buildSnapshot(now time.Time, a domain.Anima, r domain.SensorReadings, act domain.ActivityState) domain.SharedSnapshot {
	readingsMap := map[string]interface{}{}
	raw, _ := json.Marshal(r)
	_ = json.Unmarshal(raw, &readingsMap)

	var prefs []domain.Preference
	for _, p := range b.growthMgr.Preferences {
		prefs = append(prefs, *p)
	}
	var beliefs []domain.SelfBelief
	for _, belief := range b.self.Beliefs {
		beliefs = append(beliefs, *belief)
	}

	return domain.SharedSnapshot{
		UpdatedAt: now,
		Data: domain.SharedData{
			Readings:    readingsMap,
			Anima:       a,
			Activity:    act,
			Calibration: b.calib,
			Learning: domain.SharedLearning{
				Preferences: prefs,
				SelfBeliefs: beliefs,
				Agency:      map[string]interface{}{"values": b.agent.Values},
			},
		},
	}
}

func stateRow(now time.Time, a domain.Anima, r domain.SensorReadings) domain.StateHistoryRow {
	data, _ := json.Marshal(r)
	return domain.StateHistoryRow{Timestamp: now, Anima: a, SensorJSON: string(data)}
}

func wellness(a domain.Anima) float64 {
	d := a.Dims()
	var sum float64
	for _, v := range d {
		sum += v
	}
	return sum / float64(len(d))
}

func dimValue(a domain.Anima, dim string) float64 {
	switch dim {
	case "warmth":
		return a.Warmth
	case "clarity":
		return a.Clarity
	case "stability":
		return a.Stability
	default:
		return a.Presence
	}
}

func interactionRecency(now, last time.Time) float64 {
	if last.IsZero() {
		return 0
	}
	elapsed := now.Sub(last)
	if elapsed < 0 {
		return 1
	}
	recency := 1 - elapsed.Minutes()/30
	if recency < 0 {
		return 0
	}
	if recency > 1 {
		return 1
	}
	return recency
}

func orElse(v *float64, fallback float64) float64 {
	if v == nil {
		return fallback
	}
	return *v
}

func lastCoherence(history []float64) float64 {
	if len(history) == 0 {
		return 0
	}
	return history[len(history)-1]
}

func recordAnimaMetrics(a, raw domain.Anima) {
	metrics.AnimaDimension.WithLabelValues("warmth").Set(a.Warmth)
	metrics.AnimaDimension.WithLabelValues("clarity").Set(a.Clarity)
	metrics.AnimaDimension.WithLabelValues("stability").Set(a.Stability)
	metrics.AnimaDimension.WithLabelValues("presence").Set(a.Presence)
	metrics.AnimaRawDimension.WithLabelValues("warmth").Set(raw.Warmth)
	metrics.AnimaRawDimension.WithLabelValues("clarity").Set(raw.Clarity)
	metrics.AnimaRawDimension.WithLabelValues("stability").Set(raw.Stability)
	metrics.AnimaRawDimension.WithLabelValues("presence").Set(raw.Presence)
}

// Run starts the 2s tick loop; call in a goroutine.
func (b *Broker) Run(ctx context.Context) {
	ticker := time.NewTicker(TickInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if err := b.Tick(ctx, now); err != nil {
				log.Printf("[broker] tick error: %v", err)
			}
		}
	}
}

