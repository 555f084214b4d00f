// Package history keeps a local SQLite log of catalogsync runs: which
// catalog was compared against which source, and what changed.
package history

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

const createTableSQL = `CREATE TABLE IF NOT EXISTS runs (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	command      TEXT NOT NULL,
	catalog      TEXT,
	source       TEXT,
	stored       TEXT,
	executed_at  DATETIME DEFAULT CURRENT_TIMESTAMP,
	duration_ms  INTEGER,
	has_changes  BOOLEAN DEFAULT FALSE,
	added        INTEGER DEFAULT 0,
	removed      INTEGER DEFAULT 0,
	modified     INTEGER DEFAULT 0,
	statements   INTEGER DEFAULT 0,
	is_error     BOOLEAN DEFAULT FALSE
)`

const selectColumns = `id, command, catalog, source, stored, executed_at, duration_ms,
	has_changes, added, removed, modified, statements, is_error`

// Run is a single recorded command invocation.
type Run struct {
	ID         int64
	Command    string
	Catalog    string
	Source     string // display form of the live source, never a raw DSN
	Stored     string // stored snapshot directory
	ExecutedAt time.Time
	DurationMS int64
	HasChanges bool
	Added      int
	Removed    int
	Modified   int
	Statements int
	IsError    bool
}

// History provides SQLite-backed run history storage.
type History struct {
	db *sql.DB
}

// Open opens (or creates) the history database at path and ensures the
// schema exists.
func Open(path string) (*History, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("history: create dir: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("history: open db: %w", err)
	}

	if _, err := db.Exec(createTableSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("history: create table: %w", err)
	}

	return &History{db: db}, nil
}

// Add inserts a new run. A zero ExecutedAt is recorded as now.
func (h *History) Add(r Run) error {
	if r.ExecutedAt.IsZero() {
		r.ExecutedAt = time.Now().UTC()
	}
	_, err := h.db.Exec(
		`INSERT INTO runs (command, catalog, source, stored, executed_at, duration_ms,
			has_changes, added, removed, modified, statements, is_error)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.Command,
		r.Catalog,
		r.Source,
		r.Stored,
		r.ExecutedAt,
		r.DurationMS,
		r.HasChanges,
		r.Added,
		r.Removed,
		r.Modified,
		r.Statements,
		r.IsError,
	)
	if err != nil {
		return fmt.Errorf("history add: %w", err)
	}
	return nil
}

// Search returns runs whose command, catalog or source matches the given
// SQL LIKE pattern, most recent first, limited to limit rows.
func (h *History) Search(pattern string, limit int) ([]Run, error) {
	rows, err := h.db.Query(
		`SELECT `+selectColumns+`
		 FROM runs
		 WHERE command LIKE ? OR catalog LIKE ? OR source LIKE ?
		 ORDER BY executed_at DESC, id DESC
		 LIMIT ?`,
		pattern, pattern, pattern, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("history search: %w", err)
	}
	defer rows.Close()

	return scanRuns(rows)
}

// Recent returns the most recent runs, limited to limit rows.
func (h *History) Recent(limit int) ([]Run, error) {
	rows, err := h.db.Query(
		`SELECT `+selectColumns+`
		 FROM runs
		 ORDER BY executed_at DESC, id DESC
		 LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("history recent: %w", err)
	}
	defer rows.Close()

	return scanRuns(rows)
}

// Clear deletes all runs.
func (h *History) Clear() error {
	if _, err := h.db.Exec(`DELETE FROM runs`); err != nil {
		return fmt.Errorf("history clear: %w", err)
	}
	return nil
}

// Close closes the underlying database connection.
func (h *History) Close() error {
	return h.db.Close()
}

func scanRuns(rows *sql.Rows) ([]Run, error) {
	var runs []Run
	for rows.Next() {
		var (
			r               Run
			catalog, source sql.NullString
			stored          sql.NullString
		)
		if err := rows.Scan(
			&r.ID,
			&r.Command,
			&catalog,
			&source,
			&stored,
			&r.ExecutedAt,
			&r.DurationMS,
			&r.HasChanges,
			&r.Added,
			&r.Removed,
			&r.Modified,
			&r.Statements,
			&r.IsError,
		); err != nil {
			return nil, fmt.Errorf("history scan: %w", err)
		}
		r.Catalog, r.Source, r.Stored = catalog.String, source.String, stored.String
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("history rows: %w", err)
	}
	return runs, nil
}
