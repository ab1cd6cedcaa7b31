// Package identity persists the creature's birth identity, awakening
// history, and append-only state history in SQLite: WAL mode, a
// single-writer connection pool, and an idempotent migrate() run on
// every open.
package identity

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // pure-Go SQLite driver, no CGO

	"github.com/anima-project/anima/internal/domain"
)

// awakeningDedupWindow is how close two session starts must be to count
// as the same awakening rather than a fresh one (spec S4 scenario: a
// broker restart within the window is a reconnect, not a new awakening).
const awakeningDedupWindow = 60 * time.Second

// stateHistoryRetention is how long state_history rows are kept before
// being pruned on write.
const stateHistoryRetention = 7 * 24 * time.Hour

// Store is the SQLite-backed domain.IdentityStore.
type Store struct {
	db *sql.DB
}

// Open creates or opens the identity database at dir/identity.db,
// enabling WAL mode and a single-writer connection pool.
func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create identity dir: %w", err)
	}

	dsn := filepath.Join(dir, "identity.db") + "?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open identity db: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping identity db: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate identity db: %w", err)
	}
	return s, nil
}

// Close shuts down the underlying connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS identity (
			id                   INTEGER PRIMARY KEY CHECK (id = 1),
			birth_uuid           TEXT NOT NULL,
			name                 TEXT NOT NULL DEFAULT '',
			birth_at             INTEGER NOT NULL,
			total_alive_seconds  REAL NOT NULL DEFAULT 0,
			awakenings           INTEGER NOT NULL DEFAULT 0
		)`,
		`CREATE TABLE IF NOT EXISTS name_history (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			name       TEXT NOT NULL,
			changed_at INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS awakenings (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			started_at INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS state_history (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp   INTEGER NOT NULL,
			warmth      REAL NOT NULL,
			clarity     REAL NOT NULL,
			stability   REAL NOT NULL,
			presence    REAL NOT NULL,
			sensor_json TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE INDEX IF NOT EXISTS idx_state_history_ts ON state_history(timestamp)`,
		`CREATE INDEX IF NOT EXISTS idx_awakenings_started ON awakenings(started_at)`,
	}
	for _, m := range migrations {
		if _, err := s.db.Exec(m); err != nil {
			return fmt.Errorf("migration failed: %w\nSQL: %s", err, m)
		}
	}
	return nil
}

// BeginSession loads (or creates) the identity row, then registers an
// awakening unless one already started within awakeningDedupWindow —
// matching spec S4: a broker crash-and-restart inside the window is the
// same awakening, not a new one.
func (s *Store) BeginSession(now time.Time) (domain.Identity, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return domain.Identity{}, fmt.Errorf("begin session tx: %w", err)
	}
	defer tx.Rollback()

	var birthUUID, name string
	var birthAtUnix int64
	var aliveSeconds float64
	var awakenings int
	err = tx.QueryRow(`SELECT birth_uuid, name, birth_at, total_alive_seconds, awakenings FROM identity WHERE id = 1`).
		Scan(&birthUUID, &name, &birthAtUnix, &aliveSeconds, &awakenings)
	switch {
	case err == sql.ErrNoRows:
		birthUUID = uuid.New().String()
		birthAtUnix = now.Unix()
		if _, err := tx.Exec(
			`INSERT INTO identity (id, birth_uuid, name, birth_at, total_alive_seconds, awakenings) VALUES (1, ?, '', ?, 0, 0)`,
			birthUUID, birthAtUnix,
		); err != nil {
			return domain.Identity{}, fmt.Errorf("insert identity: %w", err)
		}
	case err != nil:
		return domain.Identity{}, fmt.Errorf("load identity: %w", err)
	}

	var lastAwakening sql.NullInt64
	if err := tx.QueryRow(`SELECT started_at FROM awakenings ORDER BY started_at DESC LIMIT 1`).Scan(&lastAwakening); err != nil && err != sql.ErrNoRows {
		return domain.Identity{}, fmt.Errorf("load last awakening: %w", err)
	}

	newAwakening := !lastAwakening.Valid || now.Sub(time.Unix(lastAwakening.Int64, 0)) > awakeningDedupWindow
	if newAwakening {
		if _, err := tx.Exec(`INSERT INTO awakenings (started_at) VALUES (?)`, now.Unix()); err != nil {
			return domain.Identity{}, fmt.Errorf("insert awakening: %w", err)
		}
		awakenings++
		if _, err := tx.Exec(`UPDATE identity SET awakenings = ? WHERE id = 1`, awakenings); err != nil {
			return domain.Identity{}, fmt.Errorf("update awakenings: %w", err)
		}
	}

	names, err := queryNameHistory(tx)
	if err != nil {
		return domain.Identity{}, err
	}

	if err := tx.Commit(); err != nil {
		return domain.Identity{}, fmt.Errorf("commit session: %w", err)
	}

	return domain.Identity{
		BirthUUID:        birthUUID,
		Name:             name,
		NameHistory:      names,
		Awakenings:       awakenings,
		AliveSeconds:     aliveSeconds,
		BirthAt:          time.Unix(birthAtUnix, 0),
		SessionStartedAt: now,
	}, nil
}

// Rename appends a name change and updates the identity row's current
// name in one transaction.
func (s *Store) Rename(name string, at time.Time) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`UPDATE identity SET name = ? WHERE id = 1`, name); err != nil {
		return fmt.Errorf("update name: %w", err)
	}
	if _, err := tx.Exec(`INSERT INTO name_history (name, changed_at) VALUES (?, ?)`, name, at.Unix()); err != nil {
		return fmt.Errorf("insert name history: %w", err)
	}
	return tx.Commit()
}

// AccrueAlive adds delta to total_alive_seconds. Nothing in the module
// calls it: the broker reaches the store through domain.IdentityStore,
// which has no such method, so the broker does not accrue alive time and
// total_alive_seconds changes only through direct calls.
func (s *Store) AccrueAlive(delta time.Duration) error {
	_, err := s.db.Exec(`UPDATE identity SET total_alive_seconds = total_alive_seconds + ? WHERE id = 1`, delta.Seconds())
	return err
}

// RecordState appends one state_history row, then prunes rows older
// than stateHistoryRetention.
func (s *Store) RecordState(row domain.StateHistoryRow) error {
	if _, err := s.db.Exec(
		`INSERT INTO state_history (timestamp, warmth, clarity, stability, presence, sensor_json) VALUES (?, ?, ?, ?, ?, ?)`,
		row.Timestamp.Unix(), row.Anima.Warmth, row.Anima.Clarity, row.Anima.Stability, row.Anima.Presence, row.SensorJSON,
	); err != nil {
		return fmt.Errorf("insert state history: %w", err)
	}
	cutoff := row.Timestamp.Add(-stateHistoryRetention).Unix()
	if _, err := s.db.Exec(`DELETE FROM state_history WHERE timestamp < ?`, cutoff); err != nil {
		return fmt.Errorf("prune state history: %w", err)
	}
	return nil
}

// RecentStates returns state_history rows newer than since, most recent
// first, capped at limit.
func (s *Store) RecentStates(since time.Time, limit int) ([]domain.StateHistoryRow, error) {
	rows, err := s.db.Query(
		`SELECT timestamp, warmth, clarity, stability, presence, sensor_json
		 FROM state_history WHERE timestamp >= ? ORDER BY timestamp DESC LIMIT ?`,
		since.Unix(), limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query state history: %w", err)
	}
	defer rows.Close()

	var out []domain.StateHistoryRow
	for rows.Next() {
		var ts int64
		var row domain.StateHistoryRow
		if err := rows.Scan(&ts, &row.Anima.Warmth, &row.Anima.Clarity, &row.Anima.Stability, &row.Anima.Presence, &row.SensorJSON); err != nil {
			return nil, fmt.Errorf("scan state history: %w", err)
		}
		row.Timestamp = time.Unix(ts, 0)
		out = append(out, row)
	}
	return out, rows.Err()
}

// Current returns the identity row as it stands without registering a
// new awakening.
func (s *Store) Current() (domain.Identity, error) {
	var birthUUID, name string
	var birthAtUnix int64
	var aliveSeconds float64
	var awakenings int
	err := s.db.QueryRow(`SELECT birth_uuid, name, birth_at, total_alive_seconds, awakenings FROM identity WHERE id = 1`).
		Scan(&birthUUID, &name, &birthAtUnix, &aliveSeconds, &awakenings)
	if err == sql.ErrNoRows {
		return domain.Identity{}, domain.ErrIdentityNotFound
	}
	if err != nil {
		return domain.Identity{}, fmt.Errorf("load identity: %w", err)
	}

	names, err := queryNameHistory(s.db)
	if err != nil {
		return domain.Identity{}, err
	}

	return domain.Identity{
		BirthUUID:    birthUUID,
		Name:         name,
		NameHistory:  names,
		Awakenings:   awakenings,
		AliveSeconds: aliveSeconds,
		BirthAt:      time.Unix(birthAtUnix, 0),
	}, nil
}

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	Query(query string, args ...any) (*sql.Rows, error)
}

func queryNameHistory(q querier) ([]domain.NameChange, error) {
	rows, err := q.Query(`SELECT name, changed_at FROM name_history ORDER BY changed_at ASC`)
	if err != nil {
		return nil, fmt.Errorf("query name history: %w", err)
	}
	defer rows.Close()

	var out []domain.NameChange
	for rows.Next() {
		var nc domain.NameChange
		var changedAt int64
		if err := rows.Scan(&nc.Name, &changedAt); err != nil {
			return nil, fmt.Errorf("scan name history: %w", err)
		}
		nc.ChangedAt = time.Unix(changedAt, 0)
		out = append(out, nc)
	}
	return out, rows.Err()
}
