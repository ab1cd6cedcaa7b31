// Package shm bridges the broker and server processes through a single
// JSON document on tmpfs, written atomically (write-then-rename) so the
// reader never observes a half-written file.
package shm

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/anima-project/anima/internal/domain"
)

// DefaultFreshness is the staleness window applied to the snapshot as a
// whole; Governance carries its own, longer window (spec: governance
// updates less often than the 2s broker tick).
const (
	DefaultFreshness    = 30 * time.Second
	GovernanceFreshness = 45 * time.Second
)

// Bridge implements both domain.SharedMemoryWriter and
// domain.SharedMemoryReader against a single file path.
type Bridge struct {
	path string
}

// New returns a Bridge writing/reading path.
func New(path string) *Bridge {
	return &Bridge{path: path}
}

// Write atomically persists snapshot. The caller sets UpdatedAt; a zero
// UpdatedAt is rejected with an error.
func (b *Bridge) Write(snapshot domain.SharedSnapshot) error {
	if snapshot.UpdatedAt.IsZero() {
		return fmt.Errorf("shm: snapshot UpdatedAt must be set by the caller")
	}
	data, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(b.path), 0o700); err != nil {
		return fmt.Errorf("mkdir: %w", err)
	}
	tmp := b.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write temp: %w", err)
	}
	return os.Rename(tmp, b.path)
}

// Read loads the current snapshot. A missing file is reported as
// ErrNoSnapshot, distinguishable from a decode failure.
func (b *Bridge) Read() (domain.SharedSnapshot, error) {
	data, err := os.ReadFile(b.path)
	if err != nil {
		if os.IsNotExist(err) {
			return domain.SharedSnapshot{}, ErrNoSnapshot
		}
		return domain.SharedSnapshot{}, fmt.Errorf("read snapshot: %w", err)
	}
	var snap domain.SharedSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return domain.SharedSnapshot{}, fmt.Errorf("parse snapshot: %w", err)
	}
	return snap, nil
}

// Fresh reports whether snapshot's top-level UpdatedAt is within
// DefaultFreshness of now, and — if Governance is present — whether its
// own GovernanceAt is within GovernanceFreshness independently.
func (b *Bridge) Fresh(snapshot domain.SharedSnapshot) bool {
	return FreshAt(snapshot, time.Now())
}

// FreshAt is Fresh with an explicit reference time, for deterministic
// tests.
func FreshAt(snapshot domain.SharedSnapshot, now time.Time) bool {
	if now.Sub(snapshot.UpdatedAt) > DefaultFreshness {
		return false
	}
	if snapshot.Data.Governance != nil {
		if now.Sub(snapshot.Data.Governance.GovernanceAt) > GovernanceFreshness {
			return false
		}
	}
	return true
}

// ErrNoSnapshot is returned by Read when the shared-memory file does
// not exist yet (broker has not written a first snapshot).
var ErrNoSnapshot = fmt.Errorf("shm: no snapshot written yet")
