// Package ledger persists the history of submission attempts and enforces
// the one-successful-entry-per-site-per-day rule.
package ledger

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/yourusername/sweeps-automation/internal/logger"
)

const (
	// DefaultRetention is how many records the ledger file keeps. Older
	// records are evicted on every append.
	DefaultRetention = 100

	dayFormat = "2006-01-02"
)

// SubmissionRecord is one attempted entry. Immutable once appended.
type SubmissionRecord struct {
	Site      string    `json:"site"`
	Success   bool      `json:"success"`
	Error     *string   `json:"error"`
	Timestamp time.Time `json:"timestamp"`
}

// Ledger is the persisted attempt history. All reads and writes of the
// backing file go through one mutex so concurrent site runs cannot lose
// updates.
type Ledger struct {
	mu        sync.Mutex
	path      string
	retention int
	loc       *time.Location
}

// New creates a ledger backed by the file at path. The timezone fixes the
// calendar-day boundary used by Allowed; retention <= 0 selects the default.
func New(path, timezone string, retention int) (*Ledger, error) {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid ledger timezone %q: %w", timezone, err)
	}
	if retention <= 0 {
		retention = DefaultRetention
	}
	return &Ledger{path: path, retention: retention, loc: loc}, nil
}

// Allowed reports whether a run for site may proceed today. It is true
// unless a successful record for the site already carries today's date in
// the reference timezone. Read or parse failures allow the run: the ledger
// is a duplicate-entry guard, not a safety property, so it fails open.
func (l *Ledger) Allowed(site string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	records, err := l.load()
	if err != nil {
		logger.Warn("Ledger unreadable, allowing run", "site", site, "error", err)
		return true
	}

	var last *SubmissionRecord
	for i := range records {
		r := &records[i]
		if r.Site != site || !r.Success {
			continue
		}
		if last == nil || r.Timestamp.After(last.Timestamp) {
			last = r
		}
	}
	if last == nil {
		return true
	}

	lastDay := last.Timestamp.In(l.loc).Format(dayFormat)
	today := time.Now().In(l.loc).Format(dayFormat)
	return lastDay != today
}

// Record appends the outcome of a run and truncates the ledger to the
// retention bound. The whole document is rewritten on every append.
func (l *Ledger) Record(site string, success bool, errMsg string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	records, err := l.load()
	if err != nil {
		logger.Warn("Ledger unreadable, starting fresh", "error", err)
		records = nil
	}

	rec := SubmissionRecord{
		Site:      site,
		Success:   success,
		Timestamp: time.Now(),
	}
	if errMsg != "" {
		rec.Error = &errMsg
	}
	records = append(records, rec)

	if len(records) > l.retention {
		records = records[len(records)-l.retention:]
	}

	return l.save(records)
}

// Records returns a copy of the persisted records, oldest first.
func (l *Ledger) Records() ([]SubmissionRecord, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.load()
}

// load reads the ledger file. A missing file is an empty ledger.
func (l *Ledger) load() ([]SubmissionRecord, error) {
	data, err := os.ReadFile(l.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read ledger file: %w", err)
	}

	var records []SubmissionRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("failed to parse ledger file: %w", err)
	}
	return records, nil
}

func (l *Ledger) save(records []SubmissionRecord) error {
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal ledger: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(l.path), 0755); err != nil {
		return fmt.Errorf("failed to create ledger directory: %w", err)
	}

	if err := os.WriteFile(l.path, data, 0644); err != nil {
		return fmt.Errorf("failed to write ledger file: %w", err)
	}
	return nil
}
