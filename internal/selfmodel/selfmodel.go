// Package selfmodel maintains Bayesian-updated beliefs about the
// creature's own dimensions and tracks stability episodes, the
// drop-and-recovery windows used to estimate per-dimension recovery
// time constants. Plain counters mutated in place, persisted by the
// caller.
package selfmodel

import (
	"math"
	"sort"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/anima-project/anima/internal/domain"
)

// Thresholds for opening and closing a stability episode.
const (
	episodeOpenBelow  = 0.3
	episodeCloseAbove = 0.5
)

// Model holds beliefs and stability episodes in memory; the caller owns
// persistence (schema/state_history already capture most of this
// history, so selfmodel itself does not own a SQLite table).
type Model struct {
	Beliefs  map[string]*domain.SelfBelief
	episodes map[string][]domain.StabilityEpisode // dimension -> episodes, most recent last
	open     map[string]*domain.StabilityEpisode
}

// New returns an empty Model.
func New() *Model {
	return &Model{
		Beliefs:  make(map[string]*domain.SelfBelief),
		episodes: make(map[string][]domain.StabilityEpisode),
		open:     make(map[string]*domain.StabilityEpisode),
	}
}

// ObserveEvidence updates (or creates) the belief for dimension with one
// piece of evidence. supporting=true increments SupportingCount,
// otherwise ContradictingCount; Confidence is the Bayesian-style ratio
// supporting/(supporting+contradicting), and Value nudges toward +1/-1
// scaled by the resulting confidence.
func (m *Model) ObserveEvidence(dimension string, supporting bool, now time.Time) domain.SelfBelief {
	b, ok := m.Beliefs[dimension]
	if !ok {
		b = &domain.SelfBelief{ID: dimension, Dimension: dimension}
		m.Beliefs[dimension] = b
	}
	if supporting {
		b.SupportingCount++
	} else {
		b.ContradictingCount++
	}
	total := b.SupportingCount + b.ContradictingCount
	b.Confidence = float64(b.SupportingCount) / float64(total)
	b.Value = clamp(2*b.Confidence-1, -1, 1)
	b.LastEvidenceAt = now
	return *b
}

// GetBeliefSummary returns a snapshot of every belief, keyed by
// dimension.
func (m *Model) GetBeliefSummary() map[string]domain.SelfBelief {
	out := make(map[string]domain.SelfBelief, len(m.Beliefs))
	for k, v := range m.Beliefs {
		out[k] = *v
	}
	return out
}

// GetBeliefSignature is the belief-signature component Β of the
// trajectory signature: each dimension's signed, confidence-weighted
// value.
func (m *Model) GetBeliefSignature() map[string]float64 {
	out := make(map[string]float64, len(m.Beliefs))
	for k, v := range m.Beliefs {
		out[k] = v.Value * v.Confidence
	}
	return out
}

// ObserveStability opens or closes a stability episode for dimension as
// its stability value crosses the open/close thresholds.
func (m *Model) ObserveStability(dimension string, stability float64, now time.Time) {
	ep, isOpen := m.open[dimension]
	if !isOpen {
		if stability < episodeOpenBelow {
			m.open[dimension] = &domain.StabilityEpisode{OpenedAt: now, MinStability: stability}
		}
		return
	}
	if stability < ep.MinStability {
		ep.MinStability = stability
	}
	if stability >= episodeCloseAbove {
		ep.ClosedAt = now
		ep.RecoverySeconds = now.Sub(ep.OpenedAt).Seconds()
		ep.Closed = true
		m.episodes[dimension] = append(m.episodes[dimension], *ep)
		delete(m.open, dimension)
	}
}

// GetRecoveryProfile returns the median recovery time constant τ per
// dimension across closed episodes, via τ = −t / ln(1 − fraction) where
// fraction is the share of the distance from MinStability to full
// recovery (1.0) covered by reaching the close threshold.
func (m *Model) GetRecoveryProfile() domain.RecoveryProfile {
	profile := make(domain.RecoveryProfile, len(m.episodes))
	for dim, episodes := range m.episodes {
		var taus []float64
		for _, ep := range episodes {
			denom := 1.0 - ep.MinStability
			if denom <= 0 || ep.RecoverySeconds <= 0 {
				continue
			}
			fraction := (episodeCloseAbove - ep.MinStability) / denom
			if fraction <= 0 || fraction >= 1 {
				continue
			}
			tau := -ep.RecoverySeconds / math.Log(1-fraction)
			if !math.IsNaN(tau) && !math.IsInf(tau, 0) {
				taus = append(taus, tau)
			}
		}
		if len(taus) == 0 {
			continue
		}
		sort.Float64s(taus)
		profile[dim] = stat.Quantile(0.5, stat.Empirical, taus, nil)
	}
	return profile
}

func clamp(v, min, max float64) float64 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
