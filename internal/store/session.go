package store

import (
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
)

// SessionCounters are the per-run tick statistics.
type SessionCounters struct {
	Ticks              uint64 `json:"ticks"`
	Dispatched         uint64 `json:"dispatched"`
	SkippedBusy        uint64 `json:"skipped_busy"`
	SkippedUnavailable uint64 `json:"skipped_unavailable"`
	InferenceFailures  uint64 `json:"inference_failures"`
	Publishes          uint64 `json:"publishes"`
}

// SessionRecord is one processing run.
type SessionRecord struct {
	ID         string
	Mode       string
	Gestures   bool
	Decimation int
	StartedAt  time.Time
	StoppedAt  *time.Time
	Counters   SessionCounters
}

// SessionRepository records processing runs.
type SessionRepository struct {
	db *sql.DB
}

// Sessions returns the session repository for this store.
func (s *Store) Sessions() *SessionRepository {
	return &SessionRepository{db: s.db}
}

// Begin inserts a new run. An empty ID is filled with a new UUID and a zero
// StartedAt with the current time.
func (r *SessionRepository) Begin(rec *SessionRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.StartedAt.IsZero() {
		rec.StartedAt = time.Now()
	}

	_, err := r.db.Exec(
		`INSERT INTO sessions (id, mode, gestures, decimation, started_at) VALUES (?, ?, ?, ?, ?)`,
		rec.ID, rec.Mode, rec.Gestures, rec.Decimation, rec.StartedAt,
	)
	return err
}

// Finish stores the final counters and stop time of a run.
func (r *SessionRepository) Finish(id string, stoppedAt time.Time, c SessionCounters) error {
	result, err := r.db.Exec(
		`UPDATE sessions SET stopped_at = ?, ticks = ?, dispatched = ?, skipped_busy = ?,
		 skipped_unavailable = ?, inference_failures = ?, publishes = ? WHERE id = ?`,
		stoppedAt, c.Ticks, c.Dispatched, c.SkippedBusy, c.SkippedUnavailable,
		c.InferenceFailures, c.Publishes, id,
	)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

const sessionColumns = `id, mode, gestures, decimation, started_at, stopped_at, ticks, dispatched,
	skipped_busy, skipped_unavailable, inference_failures, publishes`

type scanner interface {
	Scan(dest ...any) error
}

func scanSession(s scanner) (*SessionRecord, error) {
	rec := &SessionRecord{}
	var stopped sql.NullTime
	err := s.Scan(
		&rec.ID, &rec.Mode, &rec.Gestures, &rec.Decimation, &rec.StartedAt, &stopped,
		&rec.Counters.Ticks, &rec.Counters.Dispatched, &rec.Counters.SkippedBusy,
		&rec.Counters.SkippedUnavailable, &rec.Counters.InferenceFailures, &rec.Counters.Publishes,
	)
	if err != nil {
		return nil, err
	}
	if stopped.Valid {
		t := stopped.Time
		rec.StoppedAt = &t
	}
	return rec, nil
}

// GetByID retrieves a run.
func (r *SessionRepository) GetByID(id string) (*SessionRecord, error) {
	rec, err := scanSession(r.db.QueryRow(`SELECT `+sessionColumns+` FROM sessions WHERE id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return rec, nil
}

// List returns the most recent runs first, at most limit of them. A
// non-positive limit returns all runs.
func (r *SessionRepository) List(limit int) ([]*SessionRecord, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := r.db.Query(`SELECT `+sessionColumns+` FROM sessions ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*SessionRecord
	for rows.Next() {
		rec, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}
