// Package healing persists learned selector mappings so the resolver can
// substitute a working selector when a hard-coded hint goes stale. Mappings
// and their success/failure history live in a local sqlite database.
package healing

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// Store is the sqlite-backed record of learned selectors and outcomes.
type Store struct {
	db *sql.DB
}

// Mapping is one learned hint-to-selector association with its track record.
type Mapping struct {
	Hint         string
	Selector     string
	SuccessCount int
	FailureCount int
	LastSeenURL  string
	UpdatedAt    time.Time
}

// SuccessRate reports how often the mapping worked once it has any history.
func (m Mapping) SuccessRate() float64 {
	total := m.SuccessCount + m.FailureCount
	if total == 0 {
		return 0
	}
	return float64(m.SuccessCount) / float64(total)
}

func NewStore(dbPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	s := &Store{db: db}
	if err := s.ensureSchema(context.Background()); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) ensureSchema(ctx context.Context) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS selector_mappings (
  hint TEXT PRIMARY KEY,
  selector TEXT NOT NULL,
  success_count INTEGER NOT NULL DEFAULT 0,
  failure_count INTEGER NOT NULL DEFAULT 0,
  last_seen_url TEXT NOT NULL DEFAULT '',
  updated_at TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS selector_events (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  hint TEXT NOT NULL,
  selector TEXT NOT NULL DEFAULT '',
  url TEXT NOT NULL DEFAULT '',
  outcome TEXT NOT NULL,
  reason TEXT NOT NULL DEFAULT '',
  recorded_at TEXT NOT NULL
);
`
	if _, err := s.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("create healing tables: %w", err)
	}
	return nil
}

// Learn records that hint now resolves via selector, replacing any earlier
// mapping. Counters reset because the old track record no longer applies.
func (s *Store) Learn(ctx context.Context, hint, selector string) error {
	const stmt = `
INSERT INTO selector_mappings (hint, selector, updated_at)
VALUES (?, ?, ?)
ON CONFLICT(hint) DO UPDATE SET
  selector=excluded.selector,
  success_count=0,
  failure_count=0,
  updated_at=excluded.updated_at;
`
	_, err := s.db.ExecContext(ctx, stmt, hint, selector, now())
	if err != nil {
		return fmt.Errorf("learn mapping: %w", err)
	}
	return nil
}

// Lookup returns the learned mapping for hint, or ok=false when none exists.
func (s *Store) Lookup(ctx context.Context, hint string) (Mapping, bool, error) {
	const query = `
SELECT hint, selector, success_count, failure_count, last_seen_url, updated_at
FROM selector_mappings WHERE hint = ?;
`
	var m Mapping
	var updatedAt string
	err := s.db.QueryRowContext(ctx, query, hint).Scan(
		&m.Hint, &m.Selector, &m.SuccessCount, &m.FailureCount, &m.LastSeenURL, &updatedAt,
	)
	if err == sql.ErrNoRows {
		return Mapping{}, false, nil
	}
	if err != nil {
		return Mapping{}, false, fmt.Errorf("lookup mapping: %w", err)
	}
	m.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	return m, true, nil
}

// RecordSuccess bumps the mapping's success counter and appends an event.
// The mapping row is created on first sight so outcomes for selectors that
// were never explicitly learned still accumulate history.
func (s *Store) RecordSuccess(ctx context.Context, hint, usedSelector, url string) error {
	const stmt = `
INSERT INTO selector_mappings (hint, selector, success_count, last_seen_url, updated_at)
VALUES (?, ?, 1, ?, ?)
ON CONFLICT(hint) DO UPDATE SET
  success_count=success_count+1,
  last_seen_url=excluded.last_seen_url,
  updated_at=excluded.updated_at;
`
	if _, err := s.db.ExecContext(ctx, stmt, hint, usedSelector, url, now()); err != nil {
		return fmt.Errorf("record success: %w", err)
	}
	return s.appendEvent(ctx, hint, usedSelector, url, "success", "")
}

// RecordFailure bumps the failure counter and appends an event.
func (s *Store) RecordFailure(ctx context.Context, hint, url, reason string) error {
	const stmt = `
INSERT INTO selector_mappings (hint, selector, failure_count, last_seen_url, updated_at)
VALUES (?, ?, 1, ?, ?)
ON CONFLICT(hint) DO UPDATE SET
  failure_count=failure_count+1,
  last_seen_url=excluded.last_seen_url,
  updated_at=excluded.updated_at;
`
	if _, err := s.db.ExecContext(ctx, stmt, hint, hint, url, now()); err != nil {
		return fmt.Errorf("record failure: %w", err)
	}
	return s.appendEvent(ctx, hint, "", url, "failure", reason)
}

func (s *Store) appendEvent(ctx context.Context, hint, selector, url, outcome, reason string) error {
	const stmt = `
INSERT INTO selector_events (hint, selector, url, outcome, reason, recorded_at)
VALUES (?, ?, ?, ?, ?, ?);
`
	if _, err := s.db.ExecContext(ctx, stmt, hint, selector, url, outcome, reason, now()); err != nil {
		return fmt.Errorf("append selector event: %w", err)
	}
	return nil
}

// Health returns the success rate per hint for every mapping with history.
// Health-check reporting folds this into its selector summary.
func (s *Store) Health(ctx context.Context) (map[string]float64, error) {
	const query = `
SELECT hint, success_count, failure_count FROM selector_mappings
WHERE success_count + failure_count > 0;
`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("selector health: %w", err)
	}
	defer rows.Close()

	health := make(map[string]float64)
	for rows.Next() {
		var hint string
		var successes, failures int
		if err := rows.Scan(&hint, &successes, &failures); err != nil {
			return nil, fmt.Errorf("scan selector health: %w", err)
		}
		health[hint] = float64(successes) / float64(successes+failures)
	}
	return health, rows.Err()
}

func (s *Store) Close() error {
	return s.db.Close()
}

func now() string {
	return time.Now().UTC().Format(time.RFC3339)
}
