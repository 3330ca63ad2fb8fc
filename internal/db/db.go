// Package db stores control-loop telemetry in sqlite. The schema is managed
// by golang-migrate from migrations embedded in the binary.
package db

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// DB is a telemetry database.
type DB struct {
	*sql.DB
}

var pragmas = []string{
	"PRAGMA journal_mode=WAL",
	"PRAGMA busy_timeout=5000",
	"PRAGMA synchronous=NORMAL",
	"PRAGMA temp_store=MEMORY",
	"PRAGMA foreign_keys=ON",
}

// OpenDB opens the sqlite database at path, applies pragmas and runs all
// pending migrations.
func OpenDB(path string) (*DB, error) {
	sqlDB, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// A single connection keeps pragmas and migration state consistent.
	sqlDB.SetMaxOpenConns(1)

	for _, pragma := range pragmas {
		if _, err := sqlDB.Exec(pragma); err != nil {
			sqlDB.Close()
			return nil, fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}

	db := &DB{sqlDB}
	if err := db.MigrateUp(); err != nil {
		sqlDB.Close()
		return nil, err
	}
	return db, nil
}

// Session is one run of the control loop.
type Session struct {
	ID           string
	TrackName    string
	Width        float64
	SectionCount int
	StartedAt    time.Time
}

// Sample is one control-loop iteration.
type Sample struct {
	SessionID    string
	Seq          int
	SimTime      float64
	X            float64
	Y            float64
	Heading      float64
	Speed        float64
	SectionIndex int
	SectionName  string
	Offset       float64
	HeadingError float64
	Status       string
	Steering     float64
	Throttle     float64
	Brake        float64
}

// CreateSession inserts a new session and returns its generated ID.
func (db *DB) CreateSession(trackName string, width float64, sectionCount int, startedAt time.Time) (string, error) {
	id := uuid.NewString()
	_, err := db.Exec(`
		INSERT INTO sessions (session_id, track_name, width, section_count, started_at_ns)
		VALUES (?, ?, ?, ?, ?)`,
		id, trackName, width, sectionCount, startedAt.UnixNano())
	if err != nil {
		return "", fmt.Errorf("failed to insert session: %w", err)
	}
	return id, nil
}

// RecordSample stores one sample.
func (db *DB) RecordSample(s Sample) error {
	_, err := db.Exec(`
		INSERT INTO samples (
			session_id, seq, sim_time, x, y, heading, speed,
			section_index, section_name, lateral_offset, heading_error, status,
			steering, throttle, brake
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.SessionID, s.Seq, s.SimTime, s.X, s.Y, s.Heading, s.Speed,
		s.SectionIndex, s.SectionName, s.Offset, s.HeadingError, s.Status,
		s.Steering, s.Throttle, s.Brake)
	if err != nil {
		return fmt.Errorf("failed to insert sample %d: %w", s.Seq, err)
	}
	return nil
}

// Sessions returns all sessions, oldest first.
func (db *DB) Sessions() ([]Session, error) {
	rows, err := db.Query(`
		SELECT session_id, track_name, width, section_count, started_at_ns
		FROM sessions ORDER BY started_at_ns, session_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query sessions: %w", err)
	}
	defer rows.Close()

	var sessions []Session
	for rows.Next() {
		var s Session
		var startedNs int64
		if err := rows.Scan(&s.ID, &s.TrackName, &s.Width, &s.SectionCount, &startedNs); err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		s.StartedAt = time.Unix(0, startedNs)
		sessions = append(sessions, s)
	}
	return sessions, rows.Err()
}

// Samples returns the samples of a session in sequence order.
func (db *DB) Samples(sessionID string) ([]Sample, error) {
	rows, err := db.Query(`
		SELECT session_id, seq, sim_time, x, y, heading, speed,
			section_index, section_name, lateral_offset, heading_error, status,
			steering, throttle, brake
		FROM samples WHERE session_id = ? ORDER BY seq`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query samples: %w", err)
	}
	defer rows.Close()

	var samples []Sample
	for rows.Next() {
		var s Sample
		if err := rows.Scan(&s.SessionID, &s.Seq, &s.SimTime, &s.X, &s.Y, &s.Heading, &s.Speed,
			&s.SectionIndex, &s.SectionName, &s.Offset, &s.HeadingError, &s.Status,
			&s.Steering, &s.Throttle, &s.Brake); err != nil {
			return nil, fmt.Errorf("failed to scan sample: %w", err)
		}
		samples = append(samples, s)
	}
	return samples, rows.Err()
}
