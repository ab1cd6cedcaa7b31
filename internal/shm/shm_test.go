package shm_test

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/anima-project/anima/internal/domain"
	"github.com/anima-project/anima/internal/shm"
)

func TestWriteThenReadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "anima_shared.json")
	b := shm.New(path)

	snap := domain.SharedSnapshot{
		UpdatedAt: time.Now(),
		Data: domain.SharedData{
			Anima: domain.Anima{Warmth: 0.6, Clarity: 0.5, Stability: 0.7, Presence: 0.4},
		},
	}
	if err := b.Write(snap); err != nil {
		t.Fatalf("Write() error: %v", err)
	}

	got, err := b.Read()
	if err != nil {
		t.Fatalf("Read() error: %v", err)
	}
	if got.Data.Anima.Warmth != 0.6 {
		t.Errorf("Warmth = %v, want 0.6", got.Data.Anima.Warmth)
	}
}

func TestReadMissingFileReturnsErrNoSnapshot(t *testing.T) {
	b := shm.New(filepath.Join(t.TempDir(), "missing.json"))
	_, err := b.Read()
	if err != shm.ErrNoSnapshot {
		t.Errorf("err = %v, want ErrNoSnapshot", err)
	}
}

func TestWriteRejectsZeroUpdatedAt(t *testing.T) {
	b := shm.New(filepath.Join(t.TempDir(), "snap.json"))
	err := b.Write(domain.SharedSnapshot{})
	if err == nil {
		t.Error("expected error for zero UpdatedAt")
	}
}

func TestFreshAtRejectsStaleSnapshot(t *testing.T) {
	now := time.Now()
	snap := domain.SharedSnapshot{UpdatedAt: now.Add(-time.Minute)}
	if shm.FreshAt(snap, now) {
		t.Error("expected stale snapshot to be unfresh")
	}
}

func TestFreshAtAcceptsRecentSnapshot(t *testing.T) {
	now := time.Now()
	snap := domain.SharedSnapshot{UpdatedAt: now.Add(-time.Second)}
	if !shm.FreshAt(snap, now) {
		t.Error("expected recent snapshot to be fresh")
	}
}

func TestFreshAtRejectsStaleGovernanceIndependently(t *testing.T) {
	now := time.Now()
	snap := domain.SharedSnapshot{
		UpdatedAt: now,
		Data: domain.SharedData{
			Governance: &domain.SharedGovernance{GovernanceAt: now.Add(-time.Minute)},
		},
	}
	if shm.FreshAt(snap, now) {
		t.Error("expected stale governance sub-document to mark the whole snapshot unfresh")
	}
}
