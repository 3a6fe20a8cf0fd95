// Package journal keeps a SQLite record of every commit attempt made by the
// commit reactor, so automatic commits can be audited after the fact.
package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// openDB is a package-level var to allow test injection.
var openDB = sql.Open

// ErrClosed indicates the journal has been closed.
var ErrClosed = errors.New("journal is closed")

// Entry is one commit attempt.
type Entry struct {
	ID             int64     `json:"id"`
	RunID          string    `json:"run_id"`
	CreatedAt      time.Time `json:"created_at"`
	Classification string    `json:"classification"`
	Message        string    `json:"message"`
	Hash           string    `json:"hash,omitempty"`
	Branch         string    `json:"branch,omitempty"`
	Fallback       bool      `json:"fallback"`
	Committed      bool      `json:"committed"`
	Error          string    `json:"error,omitempty"`
}

// Journal is a SQLite-backed append-only log of Entries.
type Journal struct {
	db *sql.DB
}

// Open opens (creating if needed) the journal database at path.
func Open(path string) (*Journal, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("journal: create data dir: %w", err)
	}

	db, err := openDB("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("journal: open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("journal: %s: %w", p, err)
		}
	}

	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS commits (
			id             INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id         TEXT    NOT NULL,
			created_at     TEXT    NOT NULL,
			classification TEXT    NOT NULL DEFAULT '',
			message        TEXT    NOT NULL DEFAULT '',
			hash           TEXT    NOT NULL DEFAULT '',
			branch         TEXT    NOT NULL DEFAULT '',
			fallback       INTEGER NOT NULL DEFAULT 0,
			committed      INTEGER NOT NULL DEFAULT 0,
			error          TEXT    NOT NULL DEFAULT ''
		);
		CREATE INDEX IF NOT EXISTS idx_commits_created ON commits(created_at);
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("journal: migrate: %w", err)
	}

	return &Journal{db: db}, nil
}

// Record appends entry.
func (j *Journal) Record(ctx context.Context, entry Entry) error {
	if j.db == nil {
		return ErrClosed
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}

	_, err := j.db.ExecContext(ctx, `
		INSERT INTO commits (run_id, created_at, classification, message, hash, branch, fallback, committed, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.RunID,
		entry.CreatedAt.UTC().Format(time.RFC3339Nano),
		entry.Classification,
		entry.Message,
		entry.Hash,
		entry.Branch,
		boolToInt(entry.Fallback),
		boolToInt(entry.Committed),
		entry.Error,
	)
	if err != nil {
		return fmt.Errorf("journal: record: %w", err)
	}
	return nil
}

// Recent returns up to limit entries, newest first.
func (j *Journal) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if j.db == nil {
		return nil, ErrClosed
	}
	if limit <= 0 {
		limit = 20
	}

	rows, err := j.db.QueryContext(ctx, `
		SELECT id, run_id, created_at, classification, message, hash, branch, fallback, committed, error
		FROM commits
		ORDER BY id DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("journal: query: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			e         Entry
			createdAt string
			fallback  int
			committed int
		)
		if err := rows.Scan(&e.ID, &e.RunID, &createdAt, &e.Classification, &e.Message,
			&e.Hash, &e.Branch, &fallback, &committed, &e.Error); err != nil {
			return nil, fmt.Errorf("journal: scan: %w", err)
		}
		e.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
		e.Fallback = fallback != 0
		e.Committed = committed != 0
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Close closes the database. Safe to call multiple times.
func (j *Journal) Close() error {
	if j.db == nil {
		return nil
	}
	err := j.db.Close()
	j.db = nil
	return err
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
