package schema

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/anima-project/anima/internal/domain"
)

// PersistLatest writes the most recently composed schema to
// last_schema.json. Call Hub.PersistSchema separately to
// record the persist time for the next on_wake gap calculation.
func (h *Hub) PersistLatest(path string) error {
	if len(h.history) == 0 {
		return nil
	}
	latest := h.history[len(h.history)-1]
	data, err := json.MarshalIndent(latest, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal schema: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("mkdir: %w", err)
	}
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write schema temp: %w", err)
	}
	return os.Rename(tmp, path)
}

// LoadLatest reads last_schema.json into a standalone SelfSchema, which a
// caller can pass to SeedFrom. Hub.OnWake does not call it, and nothing
// in the module outside the tests does.
// Returns false, not an error, if the file does not yet exist.
func LoadLatest(path string) (domain.SelfSchema, bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return domain.SelfSchema{}, false, nil
		}
		return domain.SelfSchema{}, false, fmt.Errorf("read schema: %w", err)
	}
	var s domain.SelfSchema
	if err := json.Unmarshal(data, &s); err != nil {
		return domain.SelfSchema{}, false, fmt.Errorf("parse schema: %w", err)
	}
	return s, true, nil
}

// SeedFrom primes the hub's history with a single previously-persisted
// schema, so the first real compose after wake has a baseline for gap
// deltas.
func (h *Hub) SeedFrom(s domain.SelfSchema) {
	h.history = append(h.history, s)
}
