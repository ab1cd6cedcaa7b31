// Package server runs the non-hardware-facing half of the creature
// process split: it polls the broker's shared-memory
// snapshot every 2s, composes the self-schema, runs the slower
// cadences (reflection, goal review, metacognition), and exposes all
// of it over HTTP.
package server

import (
	"context"
	"encoding/json"
	"log"
	"math"
	"time"

	"github.com/robfig/cron/v3"
	"gonum.org/v1/gonum/stat"

	"github.com/anima-project/anima/internal/domain"
	"github.com/anima-project/anima/internal/growth"
	"github.com/anima-project/anima/internal/health"
	"github.com/anima-project/anima/internal/history"
	"github.com/anima-project/anima/internal/schema"
	"github.com/anima-project/anima/internal/selfmodel"
)

// PollInterval matches the broker's tick cadence.
const PollInterval = 2 * time.Second

// Cadences, expressed in ticks at PollInterval for documentation (spec
// §4.20); the cron schedules below are the same intervals in wall time.
const (
	ReflectEveryTicks        = 720  // ~24 minutes
	GoalCheckEveryTicks      = 300  // ~10 minutes
	GoalSuggestEveryTicks    = 3600 // ~2 hours
	PredictionErrorThreshold = 0.2
)

// Cron schedules for the slow cadences: the same intervals as the
// *EveryTicks constants above, expressed in wall time.
const (
	goalCheckSchedule     = "@every 10m"
	goalSuggestSchedule   = "@every 2h"
	reflectSchedule       = "@every 24m"
	metaWeightingSchedule = "@every 24h"
)

// metaWeightingMinSamples is the fewest retained anima samples needed
// before a lagged correlation against future trajectory health is
// meaningful.
const metaWeightingMinSamples = 20

// Deps bundles everything the server orchestrator needs.
type Deps struct {
	SharedMemory       domain.SharedMemoryReader
	Identity           domain.IdentityStore
	Schema             *schema.Hub
	Growth             *growth.Manager
	SelfModel          *selfmodel.Model
	History            *history.History
	Health             *health.Registry
	CalibrationControl domain.CalibrationOverrideWriter
}

// Server is the polling orchestrator; Handler() exposes it over HTTP.
type Server struct {
	deps Deps
	cron *cron.Cron

	lastPrediction domain.Anima
	havePrediction bool
	lastSnapshot   domain.SharedSnapshot
	haveSnapshot   bool
}

// New wires a Server from its dependencies and schedules the slow
// cadences (goal review, goal suggestion, reflection) on a cron runner
// rather than counting ticks, since they run far slower than the 2s
// poll and don't need poll-loop precision.
func New(deps Deps) *Server {
	s := &Server{deps: deps, cron: cron.New()}
	s.cron.AddFunc(goalCheckSchedule, func() { s.deps.Growth.AutoAbandonStale(time.Now()) })
	s.cron.AddFunc(goalSuggestSchedule, func() { s.maybeSuggestGoal(time.Now()) })
	s.cron.AddFunc(reflectSchedule, func() { s.reflect(time.Now()) })
	s.cron.AddFunc(metaWeightingSchedule, func() { s.metaWeighting(time.Now()) })
	return s
}

// Poll runs one read-compose-cadence cycle. Call this every PollInterval.
func (s *Server) Poll(ctx context.Context, now time.Time) {
	s.deps.Health.Beat("governance", now)

	snap, err := s.deps.SharedMemory.Read()
	if err != nil {
		log.Printf("[server] shared memory read error: %v", err)
		return
	}
	fresh := s.deps.SharedMemory.Fresh(snap)
	s.deps.Health.Beat("shared_memory", now)
	if !fresh {
		log.Printf("[server] shared memory stale at %s", now.Format(time.RFC3339))
	}
	s.lastSnapshot = snap
	s.haveSnapshot = true

	s.checkPredictionError(snap.Data.Anima, now)

	identity, err := s.deps.Identity.Current()
	if err != nil {
		identity = domain.Identity{}
	}

	readings := decodeReadings(snap.Data.Readings)
	beliefs := s.deps.SelfModel.GetBeliefSummary()
	prefs := s.deps.Growth.Preferences

	s.deps.Schema.ComposeSchema(schema.Inputs{
		Identity:    identity,
		Anima:       snap.Data.Anima,
		Readings:    readings,
		Beliefs:     beliefs,
		Preferences: prefs,
		Now:         now,
	})
	s.deps.History.Append(now, snap.Data.Anima)
}

// checkPredictionError compares the current anima against the last
// tick's prediction (naively, the prior tick's anima) and emits a
// metacognition event when the drift exceeds PredictionErrorThreshold.
// Checked every poll rather than on its own cadence: the broker's own
// drift surprise-acceleration already handles the fast path, so this
// one is purely diagnostic.
func (s *Server) checkPredictionError(current domain.Anima, now time.Time) {
	if !s.havePrediction {
		s.lastPrediction = current
		s.havePrediction = true
		return
	}
	err := animaDistance(current, s.lastPrediction)
	if err > PredictionErrorThreshold {
		s.deps.Growth.RecordObservation("prediction error exceeded threshold", now)
	}
	s.lastPrediction = current
}

func (s *Server) maybeSuggestGoal(now time.Time) {
	s.deps.Growth.SuggestGoal(
		"wellness-"+now.Format("20060102150405"),
		domain.GoalSourceWellness,
		"maintain stable anima trajectory",
		now.Add(7*24*time.Hour),
		now,
	)
}

func (s *Server) reflect(now time.Time) {
	beliefs := s.deps.SelfModel.GetBeliefSignature()
	relational := map[string]float64{}
	recovery := s.deps.SelfModel.GetRecoveryProfile()
	sig := s.deps.History.ComputeTrajectorySignature(preferenceSignature(s.deps.Growth), beliefs, relational, recovery)
	s.deps.History.SnapshotGenesis(sig)
	s.deps.Growth.RecordInsight("periodic reflection composed a trajectory signature", 0.5, now)
}

// metaWeighting runs the daily preference-rebalancing cycle: each
// anima-dimension preference's influence weight is nudged by its lagged
// correlation with future trajectory health (approximated here by
// overall anima wellness one sample later), then renormalized.
func (s *Server) metaWeighting(now time.Time) {
	samples := s.deps.History.Samples()
	if len(samples) < metaWeightingMinSamples {
		return
	}

	dims := []string{"warmth", "clarity", "stability", "presence"}
	series := make(map[string][]float64, len(dims))
	wellness := make([]float64, len(samples))
	for i, smp := range samples {
		d := smp.Anima.Dims()
		wellness[i] = (d[0] + d[1] + d[2] + d[3]) / 4
		for j, dim := range dims {
			series[dim] = append(series[dim], d[j])
		}
	}
	future := wellness[1:]

	lagged := make(map[string]float64, len(dims))
	for _, dim := range dims {
		past := series[dim][:len(series[dim])-1]
		corr := stat.Correlation(past, future, nil)
		if math.IsNaN(corr) {
			corr = 0
		}
		lagged[dim] = corr
	}

	s.deps.Growth.MetaWeightingCycle(lagged)
	s.deps.Growth.RecordInsight("meta-weighting cycle rebalanced preference influence", 0.3, now)
}

func preferenceSignature(m *growth.Manager) map[string]float64 {
	out := make(map[string]float64, len(m.Preferences))
	for k, p := range m.Preferences {
		out[k] = p.Value
	}
	return out
}

func decodeReadings(m map[string]interface{}) domain.SensorReadings {
	var r domain.SensorReadings
	data, err := json.Marshal(m)
	if err != nil {
		return r
	}
	_ = json.Unmarshal(data, &r)
	return r
}

func animaDistance(a, b domain.Anima) float64 {
	da, db := a.Dims(), b.Dims()
	var sum float64
	for i := range da {
		d := da[i] - db[i]
		sum += d * d
	}
	return math.Sqrt(sum)
}

// Run starts the polling loop and the slow-cadence cron runner; call in
// a goroutine.
func (s *Server) Run(ctx context.Context) {
	s.cron.Start()
	defer s.cron.Stop()

	ticker := time.NewTicker(PollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			s.Poll(ctx, now)
		}
	}
}
