// Package agency implements temporal-difference action-value learning
// over a small discrete action set, and conflict-discounted selection.
package agency

import (
	"math"
	"sort"
)

// DefaultActions is the default discrete action set.
var DefaultActions = []string{"focus_attention", "explore", "rest"}

const tdLearningRate = 0.1

// Agent holds per-action values, updated by temporal-difference
// learning on an observed satisfaction signal.
type Agent struct {
	Values map[string]float64
}

// New returns an Agent with every action initialized to 0.5 (neutral).
func New(actions []string) *Agent {
	a := &Agent{Values: make(map[string]float64, len(actions))}
	for _, act := range actions {
		a.Values[act] = 0.5
	}
	return a
}

// PreferenceSatisfaction bundles a preference weight with how satisfied
// it currently is by the corresponding anima dimension value.
type PreferenceSatisfaction struct {
	Weight      float64
	Satisfaction float64 // [0,1], 1 = fully satisfied
}

// Satisfaction computes the weighted satisfaction signal
// Σ w_dim·pref_satisfaction(anima_dim) / Σ w_dim.
func Satisfaction(components map[string]PreferenceSatisfaction) float64 {
	var weighted, totalWeight float64
	for _, c := range components {
		weighted += c.Weight * c.Satisfaction
		totalWeight += c.Weight
	}
	if totalWeight == 0 {
		return 0.5
	}
	return weighted / totalWeight
}

// Update applies one TD step to action's value toward the observed
// satisfaction signal.
func (a *Agent) Update(action string, satisfaction float64) {
	v, ok := a.Values[action]
	if !ok {
		v = 0.5
	}
	a.Values[action] = v + tdLearningRate*(satisfaction-v)
}

// SelectAction picks argmax(value · 0.9^conflict_rate[action]), with
// lexicographic tie-break on action id. conflictRates may
// omit actions, which are treated as conflict_rate 0.
func (a *Agent) SelectAction(conflictRates map[string]float64) string {
	actions := make([]string, 0, len(a.Values))
	for act := range a.Values {
		actions = append(actions, act)
	}
	sort.Strings(actions)

	best := ""
	bestScore := math.Inf(-1)
	for _, act := range actions {
		rate := conflictRates[act]
		score := a.Values[act] * math.Pow(0.9, rate)
		if score > bestScore {
			bestScore = score
			best = act
		}
	}
	return best
}
