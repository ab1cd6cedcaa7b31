// Package history maintains the rolling anima-sample deque and derives
// the attractor basin and trajectory signature from it: a bounded
// window of samples with a derived statistic recomputed on each
// observation.
package history

import (
	"math"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/anima-project/anima/internal/domain"
)

// DefaultCapacity is the default deque length (default 1000).
const DefaultCapacity = 1000

// DefaultBasinWindow is get_attractor_basin's default window (spec:
// window=100).
const DefaultBasinWindow = 100

// History is the bounded anima-sample deque.
type History struct {
	capacity int
	samples  []domain.AnimaSample
	genesis  *domain.TrajectorySignature
}

// New creates a History with the given capacity; a capacity of zero or
// less selects DefaultCapacity.
func New(capacity int) *History {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &History{capacity: capacity}
}

// Append records one anima sample, evicting the oldest when at capacity.
func (h *History) Append(ts time.Time, a domain.Anima) {
	h.samples = append(h.samples, domain.AnimaSample{Timestamp: ts, Anima: a})
	if len(h.samples) > h.capacity {
		h.samples = h.samples[len(h.samples)-h.capacity:]
	}
}

// Len returns the number of retained samples.
func (h *History) Len() int { return len(h.samples) }

// Samples returns a copy of the retained samples, oldest first.
func (h *History) Samples() []domain.AnimaSample {
	out := make([]domain.AnimaSample, len(h.samples))
	copy(out, h.samples)
	return out
}

// AttractorBasin computes the mean vector and covariance matrix of the
// most recent window samples.
func (h *History) AttractorBasin(window int) domain.AttractorBasin {
	if window <= 0 {
		window = DefaultBasinWindow
	}
	n := len(h.samples)
	if n == 0 {
		return domain.AttractorBasin{Window: 0}
	}
	if window > n {
		window = n
	}
	recent := h.samples[n-window:]

	cols := make([][]float64, 4)
	for d := 0; d < 4; d++ {
		cols[d] = make([]float64, len(recent))
		for i, s := range recent {
			cols[d][i] = s.Anima.Dims()[d]
		}
	}

	var basin domain.AttractorBasin
	basin.Window = window
	for d := 0; d < 4; d++ {
		basin.Mean[d] = stat.Mean(cols[d], nil)
	}
	for i := 0; i < 4; i++ {
		for j := 0; j < 4; j++ {
			basin.Covariance[i][j] = stat.Covariance(cols[i], cols[j], nil)
		}
	}
	return basin
}

// ComputeTrajectorySignature assembles Σ from the independently
// computed component signatures that selfmodel and growth own, plus
// this package's own attractor basin.
func (h *History) ComputeTrajectorySignature(preferences, beliefs, relational map[string]float64, recovery domain.RecoveryProfile) domain.TrajectorySignature {
	return domain.TrajectorySignature{
		Preferences:  preferences,
		Beliefs:      beliefs,
		Attractor:    h.AttractorBasin(DefaultBasinWindow),
		Recovery:     recovery,
		Relational:   relational,
		ObservationN: len(h.samples),
	}
}

// SnapshotGenesis records sig as the creature's genesis signature, once.
// Subsequent calls are no-ops, matching "a genesis signature is
// snapshotted once".
func (h *History) SnapshotGenesis(sig domain.TrajectorySignature) {
	if h.genesis != nil {
		return
	}
	cp := sig
	h.genesis = &cp
}

// Genesis returns the genesis signature and whether one has been taken.
func (h *History) Genesis() (domain.TrajectorySignature, bool) {
	if h.genesis == nil {
		return domain.TrajectorySignature{}, false
	}
	return *h.genesis, true
}

// LineageSimilarity is Similarity(current, genesis).
func (h *History) LineageSimilarity(current domain.TrajectorySignature) float64 {
	genesis, ok := h.Genesis()
	if !ok {
		return 0
	}
	return Similarity(current, genesis)
}

// Similarity combines component similarities into a single [0,1] score:
// attractor-mean proximity, preference-vector cosine, and belief-vector
// cosine, weighted equally. Any component with no data contributes its
// neutral midpoint rather than skewing the average.
func Similarity(a, b domain.TrajectorySignature) float64 {
	meanSim := vectorProximity(a.Attractor.Mean[:], b.Attractor.Mean[:])
	prefSim := mapCosine(a.Preferences, b.Preferences)
	beliefSim := mapCosine(a.Beliefs, b.Beliefs)
	return clamp01((meanSim + prefSim + beliefSim) / 3)
}

func vectorProximity(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0.5
	}
	var sumSq float64
	for i := range a {
		d := a[i] - b[i]
		sumSq += d * d
	}
	dist := math.Sqrt(sumSq)
	maxDist := math.Sqrt(float64(len(a))) // max distance across a unit hypercube
	return clamp01(1 - dist/maxDist)
}

func mapCosine(a, b map[string]float64) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0.5
	}
	keys := make(map[string]bool, len(a)+len(b))
	for k := range a {
		keys[k] = true
	}
	for k := range b {
		keys[k] = true
	}
	var dot, magA, magB float64
	for k := range keys {
		va, vb := a[k], b[k]
		dot += va * vb
		magA += va * va
		magB += vb * vb
	}
	if magA == 0 || magB == 0 {
		return 0.5
	}
	cos := dot / (math.Sqrt(magA) * math.Sqrt(magB))
	return clamp01((cos + 1) / 2)
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) {
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
