// Package growth owns preferences, goals, and the append-only
// autobiographical record (memories, insights, observations, questions,
// visitor records, agent notes), plus the daily meta-weighting cycle
// that re-balances preference influence. Retention-capped slices and a
// KV-like map of named counters keep this in-memory and JSON-persisted
// (preferences.json, insights.json, messages.json, knowledge.json)
// rather than backed by a database.
package growth

import (
	"time"

	"github.com/anima-project/anima/internal/domain"
)

const (
	preferenceLearningRate = 0.05
	maxActiveGoals         = 2
	goalStaleProgress      = 0.1

	// influenceWeightSum is Σw across the four anima-dimension
	// preferences after meta-weighting renormalization; category
	// preferences (non-dimension keys) are left out of this budget.
	influenceWeightSum   = 4.0
	influenceWeightFloor = 0.3

	memoryRetention       = 500
	insightRetention     = 200
	observationRetention = 300
	questionRetention    = 100
	visitorRetention     = 200
	agentNoteRetention   = 200
)

// Manager holds every growth collection in memory; the caller persists
// it via Save/Load.
type Manager struct {
	Preferences map[string]*domain.Preference
	Goals       []domain.Goal
	Memories    []domain.MemoryEntry
	Insights    []domain.Insight
	Observations []domain.Observation
	Questions   []domain.Question
	Visitors    []domain.VisitorRecord
	AgentNotes  []domain.AgentNote
}

// New returns an empty Manager.
func New() *Manager {
	return &Manager{Preferences: make(map[string]*domain.Preference)}
}

// ObserveCoOccurrence nudges the preference at key toward observed
// value with the fixed 0.05 learning rate, growing its confidence with
// observation count.
func (m *Manager) ObserveCoOccurrence(key string, value float64) domain.Preference {
	p, ok := m.Preferences[key]
	if !ok {
		p = &domain.Preference{Key: key, InfluenceWeight: 1.0}
		m.Preferences[key] = p
	}
	p.Value += preferenceLearningRate * (value - p.Value)
	p.ObservationCount++
	p.Confidence = 1 - 1/(1+float64(p.ObservationCount)/10)
	return *p
}

// SuggestGoal appends a new active goal for source if fewer than
// maxActiveGoals are already active (max 2 active goals).
func (m *Manager) SuggestGoal(id string, source domain.GoalSource, description string, targetDate, now time.Time) (domain.Goal, bool) {
	if m.activeGoalCount() >= maxActiveGoals {
		return domain.Goal{}, false
	}
	g := domain.Goal{
		ID:          id,
		Source:      source,
		Description: description,
		TargetDate:  targetDate,
		Status:      domain.GoalActive,
		CreatedAt:   now,
	}
	m.Goals = append(m.Goals, g)
	return g, true
}

func (m *Manager) activeGoalCount() int {
	n := 0
	for _, g := range m.Goals {
		if g.Status == domain.GoalActive {
			n++
		}
	}
	return n
}

// UpdateGoalProgress sets a goal's progress, completing it once
// progress reaches 1.
func (m *Manager) UpdateGoalProgress(id string, progress float64, now time.Time) {
	for i := range m.Goals {
		if m.Goals[i].ID != id || m.Goals[i].Status != domain.GoalActive {
			continue
		}
		m.Goals[i].Progress = progress
		if progress >= 1 {
			m.Goals[i].Status = domain.GoalComplete
			m.RecordMemory("achievement", "completed goal: "+m.Goals[i].Description, now)
		}
	}
}

// AutoAbandonStale marks goals past their target date with negligible
// progress as abandoned.
func (m *Manager) AutoAbandonStale(now time.Time) {
	for i := range m.Goals {
		g := &m.Goals[i]
		if g.Status != domain.GoalActive {
			continue
		}
		if !g.TargetDate.IsZero() && now.After(g.TargetDate) && g.Progress < goalStaleProgress {
			g.Status = domain.GoalAbandoned
		}
	}
}

// RecordMemory appends a memory entry, then prunes beyond retention.
func (m *Manager) RecordMemory(kind, text string, now time.Time) {
	m.Memories = append(m.Memories, domain.MemoryEntry{CreatedAt: now, Kind: kind, Text: text})
	if len(m.Memories) > memoryRetention {
		m.Memories = m.Memories[len(m.Memories)-memoryRetention:]
	}
}

// RecordInsight appends an insight, then prunes beyond retention.
func (m *Manager) RecordInsight(text string, strength float64, now time.Time) {
	m.Insights = append(m.Insights, domain.Insight{CreatedAt: now, Text: text, Strength: strength})
	if len(m.Insights) > insightRetention {
		m.Insights = m.Insights[len(m.Insights)-insightRetention:]
	}
}

// RecordObservation appends an observation, then prunes beyond retention.
func (m *Manager) RecordObservation(text string, now time.Time) {
	m.Observations = append(m.Observations, domain.Observation{CreatedAt: now, Text: text})
	if len(m.Observations) > observationRetention {
		m.Observations = m.Observations[len(m.Observations)-observationRetention:]
	}
}

// AskQuestion appends an open question, then prunes beyond retention.
func (m *Manager) AskQuestion(id, text string, now time.Time) {
	m.Questions = append(m.Questions, domain.Question{ID: id, CreatedAt: now, Text: text})
	if len(m.Questions) > questionRetention {
		m.Questions = m.Questions[len(m.Questions)-questionRetention:]
	}
}

// AnswerQuestion marks a question answered, which auto-completes any
// curiosity goal that was waiting on it.
func (m *Manager) AnswerQuestion(id, answer, answeredBy string, now time.Time) {
	for i := range m.Questions {
		if m.Questions[i].ID == id {
			m.Questions[i].Answered = true
			m.Questions[i].Answer = answer
			m.Questions[i].AnsweredBy = answeredBy
		}
	}
	for i := range m.Goals {
		g := &m.Goals[i]
		if g.Source == domain.GoalSourceCuriosity && g.Status == domain.GoalActive && g.Description == id {
			g.Progress = 1
			g.Status = domain.GoalComplete
			m.RecordMemory("achievement", "curiosity answered: "+id, now)
		}
	}
}

// RecordVisitor appends a visitor record, then prunes beyond retention.
func (m *Manager) RecordVisitor(text string, now time.Time) {
	m.Visitors = append(m.Visitors, domain.VisitorRecord{CreatedAt: now, Text: text})
	if len(m.Visitors) > visitorRetention {
		m.Visitors = m.Visitors[len(m.Visitors)-visitorRetention:]
	}
}

// LeaveAgentNote appends a collaborating agent's note, then prunes
// beyond retention.
func (m *Manager) LeaveAgentNote(author, text string, now time.Time) {
	m.AgentNotes = append(m.AgentNotes, domain.AgentNote{CreatedAt: now, Author: author, Text: text})
	if len(m.AgentNotes) > agentNoteRetention {
		m.AgentNotes = m.AgentNotes[len(m.AgentNotes)-agentNoteRetention:]
	}
}

// TrajectoryHealthInputs bundles the meta-weighting cycle's four
// weighted components.
type TrajectoryHealthInputs struct {
	MeanSatisfaction float64
	Variance         float64
	ActionEfficacy   float64
	PredictionTrend  float64 // in [-0.5, 0.5]
}

// TrajectoryHealth computes the weighted composite used both to drive
// the meta-weighting cycle and fed to calibration drift as a health
// gate:
// 0.30·mean_satisfaction + 0.25·(1−min(1,4·var)) + 0.25·action_efficacy + 0.20·(prediction_trend+0.5).
func TrajectoryHealth(in TrajectoryHealthInputs) float64 {
	return 0.30*in.MeanSatisfaction +
		0.25*(1-min1(4*in.Variance)) +
		0.25*in.ActionEfficacy +
		0.20*(in.PredictionTrend+0.5)
}

// MetaWeightingCycle updates every preference's influence weight from
// its lagged correlation with future trajectory health, then
// renormalizes so the weights sum to influenceWeightSum with a floor of
// influenceWeightFloor. Run ~daily by the server cadence.
func (m *Manager) MetaWeightingCycle(laggedCorrelation map[string]float64) {
	for key, corr := range laggedCorrelation {
		p, ok := m.Preferences[key]
		if !ok {
			continue
		}
		p.InfluenceWeight *= 1 + 0.005*corr
		if p.InfluenceWeight < influenceWeightFloor {
			p.InfluenceWeight = influenceWeightFloor
		}
	}
	m.renormalizeInfluenceWeights()
}

// dimensionPreferenceKeys are the only preferences the Σ=4.0 influence
// budget applies to; category preferences (media tastes, interaction
// styles, anything keyed outside the four anima dimensions) carry their
// own weight and are left out of this renormalization.
var dimensionPreferenceKeys = map[string]bool{
	"warmth": true, "clarity": true, "stability": true, "presence": true,
}

func (m *Manager) renormalizeInfluenceWeights() {
	total := 0.0
	for key, p := range m.Preferences {
		if dimensionPreferenceKeys[key] {
			total += p.InfluenceWeight
		}
	}
	if total <= 0 {
		return
	}
	scale := influenceWeightSum / total
	for key, p := range m.Preferences {
		if !dimensionPreferenceKeys[key] {
			continue
		}
		p.InfluenceWeight *= scale
		if p.InfluenceWeight < influenceWeightFloor {
			p.InfluenceWeight = influenceWeightFloor
		}
	}
}

func min1(v float64) float64 {
	if v > 1 {
		return 1
	}
	return v
}
