package growth

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/anima-project/anima/internal/domain"
)

func atomicWriteJSON(path string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", filepath.Base(path), err)
	}
	tmp := path + ".tmp"
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("mkdir: %w", err)
	}
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write %s temp: %w", filepath.Base(path), err)
	}
	return os.Rename(tmp, path)
}

func readJSONIfExists(path string, v interface{}) (bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("read %s: %w", filepath.Base(path), err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, fmt.Errorf("parse %s: %w", filepath.Base(path), err)
	}
	return true, nil
}

// Paths names the four persisted files growth spans.
type Paths struct {
	Preferences string // preferences.json
	Insights    string // insights.json
	Messages    string // messages.json — visitor records + agent notes
	Knowledge   string // knowledge.json — memories, observations, questions, goals
}

type messagesDoc struct {
	Visitors   []domain.VisitorRecord `json:"visitors"`
	AgentNotes []domain.AgentNote     `json:"agent_notes"`
}

type knowledgeDoc struct {
	Memories     []domain.MemoryEntry  `json:"memories"`
	Observations []domain.Observation  `json:"observations"`
	Questions    []domain.Question     `json:"questions"`
	Goals        []domain.Goal         `json:"goals"`
}

// Save atomically persists every collection across its named file.
func (m *Manager) Save(p Paths) error {
	if err := atomicWriteJSON(p.Preferences, m.Preferences); err != nil {
		return err
	}
	if err := atomicWriteJSON(p.Insights, m.Insights); err != nil {
		return err
	}
	if err := atomicWriteJSON(p.Messages, messagesDoc{Visitors: m.Visitors, AgentNotes: m.AgentNotes}); err != nil {
		return err
	}
	return atomicWriteJSON(p.Knowledge, knowledgeDoc{
		Memories: m.Memories, Observations: m.Observations, Questions: m.Questions, Goals: m.Goals,
	})
}

// Load restores every collection from its named file. A missing file
// leaves that collection empty rather than erroring, matching the rest
// of the module's first-run behavior.
func Load(p Paths) (*Manager, error) {
	m := New()

	if _, err := readJSONIfExists(p.Preferences, &m.Preferences); err != nil {
		return nil, err
	}
	if m.Preferences == nil {
		m.Preferences = make(map[string]*domain.Preference)
	}

	var insights []domain.Insight
	if _, err := readJSONIfExists(p.Insights, &insights); err != nil {
		return nil, err
	}
	m.Insights = insights

	var msgs messagesDoc
	if _, err := readJSONIfExists(p.Messages, &msgs); err != nil {
		return nil, err
	}
	m.Visitors = msgs.Visitors
	m.AgentNotes = msgs.AgentNotes

	var kd knowledgeDoc
	if _, err := readJSONIfExists(p.Knowledge, &kd); err != nil {
		return nil, err
	}
	m.Memories = kd.Memories
	m.Observations = kd.Observations
	m.Questions = kd.Questions
	m.Goals = kd.Goals

	return m, nil
}
