package sqlite

import (
	"database/sql"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/ridetally/ridetally/internal/domain"
)

// timeLayout is RFC3339 with fixed-width nanoseconds, so stored text sorts
// in time order.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// execer is satisfied by both *sql.DB and *sql.Tx.
type execer interface {
	Exec(query string, args ...any) (sql.Result, error)
}

// ─── Schema ─────────────────────────────────────────────────────────────────

// Migrations returns the schema statements.
// Each string is a single SQL statement (SQLite executes one at a time).
func Migrations() []string {
	return []string{
		// The whole State as one JSON record, versioned by key name
		`CREATE TABLE IF NOT EXISTS state_records (
			key        TEXT PRIMARY KEY,
			payload    TEXT NOT NULL,
			updated_at TEXT NOT NULL DEFAULT (datetime('now'))
		)`,

		// The ride in progress (at most one)
		`CREATE TABLE IF NOT EXISTS open_ride (
			slot       INTEGER PRIMARY KEY CHECK (slot = 1),
			started_at TEXT NOT NULL
		)`,

		// Closed weeks
		`CREATE TABLE IF NOT EXISTS week_archives (
			id              TEXT PRIMARY KEY,
			archived_at     TEXT NOT NULL,
			week_start      TEXT NOT NULL,
			week_end        TEXT NOT NULL,
			total_trips     INTEGER NOT NULL DEFAULT 0,
			total_hours     REAL NOT NULL DEFAULT 0,
			total_fare      REAL NOT NULL DEFAULT 0,
			total_incentive REAL NOT NULL DEFAULT 0,
			status          TEXT NOT NULL,
			payload         TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_week_archives_at ON week_archives(archived_at)`,
	}
}

// ─── State Record Operations ────────────────────────────────────────────────

// GetStateRecord returns the raw payload stored under key, or nil if none.
func (db *DB) GetStateRecord(key string) ([]byte, error) {
	var payload string
	err := db.db.QueryRow(`SELECT payload FROM state_records WHERE key = ?`, key).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return []byte(payload), nil
}

// PutStateRecord replaces the payload stored under key.
func (db *DB) PutStateRecord(key string, payload []byte) error {
	return putStateRecord(db.db, key, payload)
}

func putStateRecord(x execer, key string, payload []byte) error {
	_, err := x.Exec(`
		INSERT INTO state_records (key, payload, updated_at)
		VALUES (?, ?, datetime('now'))
		ON CONFLICT(key) DO UPDATE SET
			payload    = excluded.payload,
			updated_at = datetime('now')
	`, key, string(payload))
	return err
}

// ─── Open Ride Operations ───────────────────────────────────────────────────

// GetOpenRide returns the start of the ride in progress, or nil.
func (db *DB) GetOpenRide() (*time.Time, error) {
	var startedStr string
	err := db.db.QueryRow(`SELECT started_at FROM open_ride WHERE slot = 1`).Scan(&startedStr)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	t, err := time.Parse(time.RFC3339Nano, startedStr)
	if err != nil {
		return nil, fmt.Errorf("parse open ride start %q: %w", startedStr, err)
	}
	return &t, nil
}

// PutOpenRide records the start of the ride in progress.
func (db *DB) PutOpenRide(start time.Time) error {
	_, err := db.db.Exec(`
		INSERT INTO open_ride (slot, started_at) VALUES (1, ?)
		ON CONFLICT(slot) DO UPDATE SET started_at = excluded.started_at
	`, start.Format(timeLayout))
	return err
}

// ClearOpenRide removes the ride in progress.
func (db *DB) ClearOpenRide() error {
	_, err := db.db.Exec(`DELETE FROM open_ride`)
	return err
}

// ─── Week Archive Operations ────────────────────────────────────────────────

// insertWeekArchive saves a closed week.
func insertWeekArchive(x execer, a domain.WeekArchive) error {
	_, err := x.Exec(`
		INSERT INTO week_archives (id, archived_at, week_start, week_end, total_trips, total_hours, total_fare, total_incentive, status, payload)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, a.ID, a.ArchivedAt.UTC().Format(timeLayout),
		a.Week.Start.Format(timeLayout), a.Week.End.Format(timeLayout),
		a.TotalTrips, a.TotalHours, a.TotalFare, a.TotalIncentive, string(a.Status), string(a.Payload))
	return err
}

// CloseWeekRecord inserts the archive (when not nil) and replaces the state
// record in one transaction.
func (db *DB) CloseWeekRecord(key string, a *domain.WeekArchive, payload []byte) error {
	tx, err := db.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if a != nil {
		if err := insertWeekArchive(tx, *a); err != nil {
			return fmt.Errorf("insert archive: %w", err)
		}
	}
	if err := putStateRecord(tx, key, payload); err != nil {
		return fmt.Errorf("put state record: %w", err)
	}
	return tx.Commit()
}

// ListWeekArchives returns closed weeks, newest first.
func (db *DB) ListWeekArchives(limit int) ([]domain.WeekArchive, error) {
	if limit <= 0 {
		limit = -1 // SQLite: no limit
	}
	rows, err := db.db.Query(`
		SELECT id, archived_at, week_start, week_end, total_trips, total_hours, total_fare, total_incentive, status, payload
		FROM week_archives ORDER BY archived_at DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.WeekArchive
	for rows.Next() {
		var (
			a                             domain.WeekArchive
			archivedStr, startStr, endStr string
			status, payload               string
		)
		if err := rows.Scan(&a.ID, &archivedStr, &startStr, &endStr, &a.TotalTrips, &a.TotalHours, &a.TotalFare, &a.TotalIncentive, &status, &payload); err != nil {
			return nil, err
		}
		if a.ArchivedAt, err = time.Parse(time.RFC3339Nano, archivedStr); err != nil {
			return nil, fmt.Errorf("archive %s: parse archived_at %q: %w", a.ID, archivedStr, err)
		}
		if a.Week.Start, err = time.Parse(time.RFC3339Nano, startStr); err != nil {
			return nil, fmt.Errorf("archive %s: parse week_start %q: %w", a.ID, startStr, err)
		}
		if a.Week.End, err = time.Parse(time.RFC3339Nano, endStr); err != nil {
			return nil, fmt.Errorf("archive %s: parse week_end %q: %w", a.ID, endStr, err)
		}
		a.Status = domain.EligibilityStatus(status)
		a.Payload = []byte(payload)
		result = append(result, a)
	}
	return result, rows.Err()
}

// ─── Store ──────────────────────────────────────────────────────────────────

// DefaultStateKey names the state record. Bump the version suffix when the
// record's shape changes.
const DefaultStateKey = "ridetally-state-v3"

// Store implements domain.StateStore on top of DB.
type Store struct {
	db  *DB
	key string
}

var _ domain.StateStore = (*Store)(nil)

// NewStore returns a state store keyed by key (DefaultStateKey if empty).
func NewStore(db *DB, key string) *Store {
	if key == "" {
		key = DefaultStateKey
	}
	return &Store{db: db, key: key}
}

// LoadState reads the state record. A missing record yields defaults; an
// unreadable one is logged and also yields defaults, so the user is never
// blocked by a corrupt file.
func (s *Store) LoadState() (domain.State, error) {
	payload, err := s.db.GetStateRecord(s.key)
	if err != nil {
		return domain.State{}, fmt.Errorf("load state: %w", err)
	}
	if payload == nil {
		return domain.DefaultState(), nil
	}
	state, err := domain.DecodeState(payload)
	if err != nil {
		log.Printf("[store] state record %q partly unreadable, using defaults: %v", s.key, err)
	}
	return state, nil
}

// SaveState writes the whole State as one record.
func (s *Store) SaveState(state domain.State) error {
	payload, err := domain.EncodeState(state)
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}
	if err := s.db.PutStateRecord(s.key, payload); err != nil {
		return fmt.Errorf("save state: %w", err)
	}
	return nil
}

// LoadOpenRide returns the ride in progress, or nil.
func (s *Store) LoadOpenRide() (*domain.OpenRide, error) {
	start, err := s.db.GetOpenRide()
	if err != nil {
		return nil, fmt.Errorf("load open ride: %w", err)
	}
	if start == nil {
		return nil, nil
	}
	return &domain.OpenRide{Start: *start}, nil
}

// SaveOpenRide stores or (with nil) clears the ride in progress.
func (s *Store) SaveOpenRide(r *domain.OpenRide) error {
	if r == nil {
		return s.db.ClearOpenRide()
	}
	return s.db.PutOpenRide(r.Start)
}

// CloseWeek stores the archive (nil for an empty week) together with the
// next State. Either both are written or neither is.
func (s *Store) CloseWeek(a *domain.WeekArchive, next domain.State) error {
	payload, err := domain.EncodeState(next)
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}
	if err := s.db.CloseWeekRecord(s.key, a, payload); err != nil {
		return fmt.Errorf("close week: %w", err)
	}
	return nil
}

// ListArchives returns closed weeks, newest first.
func (s *Store) ListArchives(limit int) ([]domain.WeekArchive, error) {
	return s.db.ListWeekArchives(limit)
}
