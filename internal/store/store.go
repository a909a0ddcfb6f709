// Package store persists alerts to SQLite. It implements the persist-alert
// boundary: the surrounding web application reads these rows for dashboards.
package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"drowsisense/internal/alert"
)

// Store handles SQLite database operations
type Store struct {
	db *sql.DB
}

// AlertRecord represents an alert stored in the database
type AlertRecord struct {
	ID          string
	DriverID    string
	Kind        string
	Severity    string
	Confidence  float64
	Description string
	CreatedAt   time.Time
	Notified    bool
}

// New creates a new database connection
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Enable WAL mode for better concurrent access
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// Migrate runs database migrations
func (s *Store) Migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS alerts (
			id TEXT PRIMARY KEY,
			driver_id TEXT NOT NULL,
			kind TEXT NOT NULL,
			severity TEXT NOT NULL,
			confidence REAL,
			description TEXT,
			created_at DATETIME NOT NULL,
			notified INTEGER DEFAULT 0
		)`,
		`CREATE INDEX IF NOT EXISTS idx_alerts_driver_time ON alerts(driver_id, created_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_alerts_time ON alerts(created_at DESC)`,
	}

	for _, migration := range migrations {
		if _, err := s.db.Exec(migration); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}
	return nil
}

// SaveAlert persists one alert event and returns its generated ID
func (s *Store) SaveAlert(ev alert.Event) (string, error) {
	id := uuid.New().String()

	_, err := s.db.Exec(
		`INSERT INTO alerts (id, driver_id, kind, severity, confidence, description, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		id, ev.DriverID, string(ev.Kind), string(ev.Severity),
		ev.Confidence, ev.Description, ev.CreatedAt,
	)
	if err != nil {
		return "", fmt.Errorf("failed to save alert: %w", err)
	}
	return id, nil
}

// MarkNotified flags an alert as delivered by email
func (s *Store) MarkNotified(alertID string) error {
	_, err := s.db.Exec(`UPDATE alerts SET notified = 1 WHERE id = ?`, alertID)
	if err != nil {
		return fmt.Errorf("failed to mark alert notified: %w", err)
	}
	return nil
}

// ListAlerts returns the most recent alerts for a driver
func (s *Store) ListAlerts(driverID string, limit int) ([]AlertRecord, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.db.Query(
		`SELECT id, driver_id, kind, severity, confidence, description, created_at, notified
		 FROM alerts WHERE driver_id = ? ORDER BY created_at DESC LIMIT ?`,
		driverID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list alerts: %w", err)
	}
	defer rows.Close()

	var records []AlertRecord
	for rows.Next() {
		var r AlertRecord
		var notified int
		if err := rows.Scan(&r.ID, &r.DriverID, &r.Kind, &r.Severity,
			&r.Confidence, &r.Description, &r.CreatedAt, &notified); err != nil {
			return nil, fmt.Errorf("failed to scan alert: %w", err)
		}
		r.Notified = notified != 0
		records = append(records, r)
	}
	return records, rows.Err()
}

// CountSince returns how many alerts a driver accumulated after the cutoff
func (s *Store) CountSince(driverID string, since time.Time) (int, error) {
	var count int
	err := s.db.QueryRow(
		`SELECT COUNT(*) FROM alerts WHERE driver_id = ? AND created_at >= ?`,
		driverID, since,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count alerts: %w", err)
	}
	return count, nil
}
