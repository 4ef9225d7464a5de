// Package history keeps a permanent sqlite archive of every pipeline
// attempt. The bounded JSON ledger is the rate limiter's source of truth;
// this archive exists for long-term statistics and audit.
package history

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

var (
	db *sql.DB
)

// Attempt represents one archived pipeline run
type Attempt struct {
	ID          int64
	Site        string
	Success     bool
	Error       string
	DurationMs  int64
	AttemptedAt time.Time
}

// InitDB initializes the database connection and creates tables
func InitDB(dbPath string) error {
	var err error
	db, err = sql.Open("sqlite", dbPath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}

	// Test connection
	if err := db.Ping(); err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}

	// Create tables
	if err := createTables(); err != nil {
		return fmt.Errorf("failed to create tables: %w", err)
	}

	return nil
}

// createTables creates the required database tables
func createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS attempts (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		site TEXT NOT NULL,
		success BOOLEAN NOT NULL,
		error TEXT,
		duration_ms INTEGER NOT NULL DEFAULT 0,
		attempted_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_attempts_site ON attempts(site);
	CREATE INDEX IF NOT EXISTS idx_attempts_attempted_at ON attempts(attempted_at);
	`

	_, err := db.Exec(schema)
	return err
}

// Close closes the database connection
func Close() error {
	if db != nil {
		return db.Close()
	}
	return nil
}

// RecordAttempt archives one pipeline run
func RecordAttempt(site string, success bool, errMsg string, duration time.Duration) error {
	if db == nil {
		return fmt.Errorf("history database not initialized")
	}

	query := `
		INSERT INTO attempts (site, success, error, duration_ms, attempted_at)
		VALUES (?, ?, ?, ?, ?)
	`

	_, err := db.Exec(query, site, success, errMsg, duration.Milliseconds(), time.Now())
	if err != nil {
		return fmt.Errorf("failed to record attempt: %w", err)
	}

	return nil
}

// GetAttempts returns the archived attempts for a site, newest first
func GetAttempts(site string, limit int) ([]Attempt, error) {
	if db == nil {
		return nil, fmt.Errorf("history database not initialized")
	}

	query := `
		SELECT id, site, success, COALESCE(error, ''), duration_ms, attempted_at
		FROM attempts
		WHERE site = ?
		ORDER BY attempted_at DESC
		LIMIT ?
	`

	rows, err := db.Query(query, site, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query attempts: %w", err)
	}
	defer rows.Close()

	var attempts []Attempt
	for rows.Next() {
		var a Attempt
		if err := rows.Scan(&a.ID, &a.Site, &a.Success, &a.Error, &a.DurationMs, &a.AttemptedAt); err != nil {
			return nil, fmt.Errorf("failed to scan attempt: %w", err)
		}
		attempts = append(attempts, a)
	}

	return attempts, rows.Err()
}

// GetStats returns statistics about the archived attempts
func GetStats() (map[string]int, error) {
	if db == nil {
		return nil, fmt.Errorf("history database not initialized")
	}

	stats := make(map[string]int)

	var totalAttempts int
	err := db.QueryRow("SELECT COUNT(*) FROM attempts").Scan(&totalAttempts)
	if err != nil {
		return nil, err
	}
	stats["total_attempts"] = totalAttempts

	var successfulEntries int
	err = db.QueryRow("SELECT COUNT(*) FROM attempts WHERE success = TRUE").Scan(&successfulEntries)
	if err != nil {
		return nil, err
	}
	stats["successful_entries"] = successfulEntries

	var attemptsToday int
	err = db.QueryRow("SELECT COUNT(*) FROM attempts WHERE DATE(attempted_at) = DATE('now')").Scan(&attemptsToday)
	if err != nil {
		return nil, err
	}
	stats["attempts_today"] = attemptsToday

	return stats, nil
}

// CleanupOldAttempts removes attempts older than 90 days
func CleanupOldAttempts() error {
	if db == nil {
		return fmt.Errorf("history database not initialized")
	}

	query := `
		DELETE FROM attempts
		WHERE attempted_at < datetime('now', '-90 days')
	`

	_, err := db.Exec(query)
	if err != nil {
		return fmt.Errorf("failed to cleanup old attempts: %w", err)
	}

	return nil
}
