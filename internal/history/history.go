// Package history keeps a local, append-only ledger of past migration
// runs in a SQLite database. The ledger is a convenience index for
// `funcport history`; progress.json inside each migration directory
// remains the authoritative record, and ledger failures never change a
// run's outcome.
package history

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/funcport/funcport/internal/progress"
)

// Entry is one recorded run.
type Entry struct {
	ID            string
	SourceRoot    string
	MigrationRoot string
	StartedAt     time.Time
	FinishedAt    time.Time
	Result        string
	UnitCount     int
}

// Ledger wraps the backing database.
type Ledger struct {
	db *sql.DB
}

const schema = `CREATE TABLE IF NOT EXISTS runs (
	id TEXT PRIMARY KEY,
	source_root TEXT NOT NULL,
	migration_root TEXT NOT NULL,
	started_at TEXT NOT NULL,
	finished_at TEXT NOT NULL,
	result TEXT NOT NULL,
	unit_count INTEGER NOT NULL
)`

// Open opens (creating if needed) the ledger at path.
func Open(path string) (*Ledger, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating ledger directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening ledger: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing ledger schema: %w", err)
	}
	return &Ledger{db: db}, nil
}

func (l *Ledger) Close() error {
	return l.db.Close()
}

// Record upserts the run's final summary. Re-recording after a resume
// replaces the earlier row for the same run ID.
func (l *Ledger) Record(st *progress.RunState) error {
	result := "SUCCEEDED"
	switch {
	case st.Fatal():
		result = "FAILED"
	case st.Degraded():
		result = "DEGRADED"
	}

	_, err := l.db.Exec(`INSERT INTO runs
		(id, source_root, migration_root, started_at, finished_at, result, unit_count)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			finished_at = excluded.finished_at,
			result = excluded.result,
			unit_count = excluded.unit_count`,
		st.ID, st.SourceRoot, st.MigrationRoot,
		st.StartedAt.UTC().Format(time.RFC3339),
		st.FinishedAt.UTC().Format(time.RFC3339),
		result, len(st.Units))
	if err != nil {
		return fmt.Errorf("recording run: %w", err)
	}
	return nil
}

// List returns all recorded runs, most recent first.
func (l *Ledger) List() ([]Entry, error) {
	rows, err := l.db.Query(`SELECT id, source_root, migration_root, started_at, finished_at, result, unit_count
		FROM runs ORDER BY started_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var started, finished string
		if err := rows.Scan(&e.ID, &e.SourceRoot, &e.MigrationRoot, &started, &finished, &e.Result, &e.UnitCount); err != nil {
			return nil, fmt.Errorf("scanning run row: %w", err)
		}
		e.StartedAt, _ = time.Parse(time.RFC3339, started)
		e.FinishedAt, _ = time.Parse(time.RFC3339, finished)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
