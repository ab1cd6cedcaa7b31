package calibration

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/anima-project/anima/internal/domain"
)

// driftFile is the on-disk shape for calibration_drift.json.
type driftFile struct {
	States map[string]domain.DriftState `json:"states"`
}

// SaveDrift atomically persists drift state via write-then-rename, so a
// crash mid-write never leaves a partially written drift file.
func SaveDrift(path string, states map[string]domain.DriftState) error {
	data, err := json.MarshalIndent(driftFile{States: states}, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal drift: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("mkdir: %w", err)
	}
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write drift temp: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("rename drift: %w", err)
	}
	return nil
}

// LoadDrift loads persisted drift state, returning an empty map (not an
// error) if the file does not yet exist.
func LoadDrift(path string) (map[string]domain.DriftState, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]domain.DriftState{}, nil
		}
		return nil, fmt.Errorf("read drift: %w", err)
	}
	var f driftFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse drift: %w", err)
	}
	if f.States == nil {
		f.States = map[string]domain.DriftState{}
	}
	return f.States, nil
}

// SaveCalibration atomically persists a derived calibration. Nothing in
// the module calls it: the broker keeps the calibration returned by
// internal/learning.AdaptCalibration in memory only.
func SaveCalibration(path string, c domain.Calibration) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal calibration: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("mkdir: %w", err)
	}
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write calibration temp: %w", err)
	}
	return os.Rename(tmp, path)
}
