package identity

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/anima-project/anima/internal/domain"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dir := t.TempDir()
	s, err := Open(dir)
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestOpenCreatesDatabaseFile(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(dir)
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	defer s.Close()
	if _, err := os.Stat(filepath.Join(dir, "identity.db")); os.IsNotExist(err) {
		t.Error("identity.db should exist")
	}
}

func TestBeginSessionAssignsBirthUUIDOnce(t *testing.T) {
	s := newTestStore(t)
	now := time.Now()

	first, err := s.BeginSession(now)
	if err != nil {
		t.Fatalf("BeginSession() error: %v", err)
	}
	if first.BirthUUID == "" {
		t.Fatal("expected non-empty birth UUID")
	}
	if first.Awakenings != 1 {
		t.Errorf("Awakenings = %d, want 1", first.Awakenings)
	}

	second, err := s.BeginSession(now.Add(10 * time.Hour))
	if err != nil {
		t.Fatalf("BeginSession() error: %v", err)
	}
	if second.BirthUUID != first.BirthUUID {
		t.Error("birth UUID changed across sessions")
	}
}

// Spec S4: a restart within the dedup window is a reconnect, not a new
// awakening.
func TestBeginSessionWithinDedupWindowDoesNotCountNewAwakening(t *testing.T) {
	s := newTestStore(t)
	now := time.Now()

	first, err := s.BeginSession(now)
	if err != nil {
		t.Fatalf("BeginSession() error: %v", err)
	}
	reconnect, err := s.BeginSession(now.Add(30 * time.Second))
	if err != nil {
		t.Fatalf("BeginSession() error: %v", err)
	}
	if reconnect.Awakenings != first.Awakenings {
		t.Errorf("Awakenings = %d, want %d (within dedup window)", reconnect.Awakenings, first.Awakenings)
	}

	later, err := s.BeginSession(now.Add(2 * time.Minute))
	if err != nil {
		t.Fatalf("BeginSession() error: %v", err)
	}
	if later.Awakenings != first.Awakenings+1 {
		t.Errorf("Awakenings = %d, want %d (outside dedup window)", later.Awakenings, first.Awakenings+1)
	}
}

func TestRenameAppendsNameHistory(t *testing.T) {
	s := newTestStore(t)
	now := time.Now()
	if _, err := s.BeginSession(now); err != nil {
		t.Fatalf("BeginSession() error: %v", err)
	}
	if err := s.Rename("Pip", now); err != nil {
		t.Fatalf("Rename() error: %v", err)
	}
	if err := s.Rename("Pip II", now.Add(time.Hour)); err != nil {
		t.Fatalf("Rename() error: %v", err)
	}

	id, err := s.Current()
	if err != nil {
		t.Fatalf("Current() error: %v", err)
	}
	if id.Name != "Pip II" {
		t.Errorf("Name = %q, want %q", id.Name, "Pip II")
	}
	if len(id.NameHistory) != 2 {
		t.Fatalf("len(NameHistory) = %d, want 2", len(id.NameHistory))
	}
}

func TestRecordStateAndRecentStates(t *testing.T) {
	s := newTestStore(t)
	now := time.Now()
	if _, err := s.BeginSession(now); err != nil {
		t.Fatalf("BeginSession() error: %v", err)
	}

	row := domain.StateHistoryRow{
		Timestamp:  now,
		Anima:      domain.Anima{Warmth: 0.6, Clarity: 0.5, Stability: 0.7, Presence: 0.4},
		SensorJSON: `{"cpu_temp_c":42}`,
	}
	if err := s.RecordState(row); err != nil {
		t.Fatalf("RecordState() error: %v", err)
	}

	got, err := s.RecentStates(now.Add(-time.Minute), 10)
	if err != nil {
		t.Fatalf("RecentStates() error: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("len(got) = %d, want 1", len(got))
	}
	if got[0].Anima.Warmth != 0.6 {
		t.Errorf("Warmth = %v, want 0.6", got[0].Anima.Warmth)
	}
}

func TestRecordStatePrunesOlderThanRetention(t *testing.T) {
	s := newTestStore(t)
	now := time.Now()
	if _, err := s.BeginSession(now); err != nil {
		t.Fatalf("BeginSession() error: %v", err)
	}

	old := domain.StateHistoryRow{Timestamp: now.Add(-8 * 24 * time.Hour), Anima: domain.Anima{Warmth: 0.5}}
	if err := s.RecordState(old); err != nil {
		t.Fatalf("RecordState(old) error: %v", err)
	}
	fresh := domain.StateHistoryRow{Timestamp: now, Anima: domain.Anima{Warmth: 0.5}}
	if err := s.RecordState(fresh); err != nil {
		t.Fatalf("RecordState(fresh) error: %v", err)
	}

	got, err := s.RecentStates(now.Add(-30*24*time.Hour), 10)
	if err != nil {
		t.Fatalf("RecentStates() error: %v", err)
	}
	if len(got) != 1 {
		t.Errorf("len(got) = %d, want 1 (old row should be pruned)", len(got))
	}
}

func TestAccrueAliveAccumulates(t *testing.T) {
	s := newTestStore(t)
	now := time.Now()
	if _, err := s.BeginSession(now); err != nil {
		t.Fatalf("BeginSession() error: %v", err)
	}
	if err := s.AccrueAlive(2 * time.Second); err != nil {
		t.Fatalf("AccrueAlive() error: %v", err)
	}
	if err := s.AccrueAlive(3 * time.Second); err != nil {
		t.Fatalf("AccrueAlive() error: %v", err)
	}
	id, err := s.Current()
	if err != nil {
		t.Fatalf("Current() error: %v", err)
	}
	if id.AliveSeconds != 5 {
		t.Errorf("AliveSeconds = %v, want 5", id.AliveSeconds)
	}
}

func TestCurrentBeforeAnySessionReturnsNotFound(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.Current(); err != domain.ErrIdentityNotFound {
		t.Errorf("err = %v, want ErrIdentityNotFound", err)
	}
}
