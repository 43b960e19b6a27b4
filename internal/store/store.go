// Package store persists demo requests and observed intrusion events in
// SQLite.
package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// Store handles SQLite database operations.
type Store struct {
	db *sql.DB
}

// DemoRequest is an accepted demo-request form submission.
type DemoRequest struct {
	ID        string
	Email     string
	Phone     string
	CreatedAt time.Time
}

// IntrusionEvent is one backend-reported intrusion observed by a session.
type IntrusionEvent struct {
	ID         string
	SessionID  string
	SourceKind string
	Timestamp  time.Time
}

// Open opens the database and enables WAL mode.
func Open(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// WAL mode for better concurrent access
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Migrate runs database migrations.
func (s *Store) Migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS demo_requests (
			id TEXT PRIMARY KEY,
			email TEXT NOT NULL,
			phone TEXT NOT NULL,
			created_at DATETIME NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS intrusion_events (
			id TEXT PRIMARY KEY,
			session_id TEXT NOT NULL,
			source_kind TEXT,
			timestamp DATETIME NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_intrusions_session ON intrusion_events(session_id, timestamp DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_intrusions_time ON intrusion_events(timestamp DESC)`,
	}

	for _, migration := range migrations {
		if _, err := s.db.Exec(migration); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}
	return nil
}

// SaveDemoRequest persists a demo request. A missing ID or timestamp is
// filled in.
func (s *Store) SaveDemoRequest(req *DemoRequest) error {
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	if req.CreatedAt.IsZero() {
		req.CreatedAt = time.Now().UTC()
	}

	query := `INSERT INTO demo_requests (id, email, phone, created_at) VALUES (?, ?, ?, ?)`
	if _, err := s.db.Exec(query, req.ID, req.Email, req.Phone, req.CreatedAt); err != nil {
		return fmt.Errorf("failed to save demo request: %w", err)
	}
	return nil
}

// ListDemoRequests returns demo requests, newest first.
func (s *Store) ListDemoRequests(limit int) ([]*DemoRequest, error) {
	query := `SELECT id, email, phone, created_at FROM demo_requests ORDER BY created_at DESC`
	args := []interface{}{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list demo requests: %w", err)
	}
	defer rows.Close()

	var requests []*DemoRequest
	for rows.Next() {
		var req DemoRequest
		if err := rows.Scan(&req.ID, &req.Email, &req.Phone, &req.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan demo request: %w", err)
		}
		requests = append(requests, &req)
	}
	return requests, nil
}

// SaveIntrusionEvent persists an intrusion event. A missing ID or
// timestamp is filled in.
func (s *Store) SaveIntrusionEvent(event *IntrusionEvent) error {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	query := `INSERT INTO intrusion_events (id, session_id, source_kind, timestamp) VALUES (?, ?, ?, ?)`
	if _, err := s.db.Exec(query, event.ID, event.SessionID, event.SourceKind, event.Timestamp); err != nil {
		return fmt.Errorf("failed to save intrusion event: %w", err)
	}
	return nil
}

// RecentIntrusionEvents returns intrusion events since the given time,
// newest first.
func (s *Store) RecentIntrusionEvents(since time.Time, limit int) ([]*IntrusionEvent, error) {
	query := `SELECT id, session_id, source_kind, timestamp FROM intrusion_events
		WHERE timestamp >= ? ORDER BY timestamp DESC`
	args := []interface{}{since}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list intrusion events: %w", err)
	}
	defer rows.Close()

	var events []*IntrusionEvent
	for rows.Next() {
		var event IntrusionEvent
		if err := rows.Scan(&event.ID, &event.SessionID, &event.SourceKind, &event.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan intrusion event: %w", err)
		}
		events = append(events, &event)
	}
	return events, nil
}
