// Package state records an operational audit of question traversals in
// SQLite: what was asked, what SQL ran, and how the traversal ended. It is
// not a conversation transcript; no model output is stored.
package state

import (
	"database/sql"
	_ "embed"
	"fmt"
	"log/slog"
	"time"

	_ "modernc.org/sqlite" // sqlite driver (pure Go)
)

//go:embed schema.sql
var schemaSQL string

// Traversal is one recorded question traversal.
type Traversal struct {
	ID            string
	Question      string
	Status        string // completed | blocked
	BlockReason   string
	SQL           string
	RowCount      int
	VerdictStatus string
	Error         string
	StartedAt     time.Time
	DurationMS    int64
}

// Store is the SQLite-backed audit store.
type Store struct {
	db     *sql.DB
	path   string
	logger *slog.Logger
}

// NewStore creates an unopened store. A nil logger discards output.
func NewStore(logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Store{logger: logger}
}

// Open opens the SQLite database and initializes the schema. Use
// ":memory:" for an in-memory store.
func (s *Store) Open(path string) error {
	dsn := path
	if path != ":memory:" {
		dsn = fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)", path)
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return fmt.Errorf("failed to open audit database: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping audit database: %w", err)
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to initialize audit schema: %w", err)
	}

	s.db = db
	s.path = path
	return nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Record inserts one traversal row.
func (s *Store) Record(tr *Traversal) error {
	if s.db == nil {
		return fmt.Errorf("audit database not opened")
	}

	_, err := s.db.Exec(
		`INSERT INTO traversals
		 (id, question, status, block_reason, sql_text, row_count, verdict_status, error, started_at, duration_ms)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		tr.ID, tr.Question, tr.Status, tr.BlockReason, tr.SQL,
		tr.RowCount, tr.VerdictStatus, tr.Error, tr.StartedAt.UTC(), tr.DurationMS,
	)
	if err != nil {
		return fmt.Errorf("failed to record traversal: %w", err)
	}
	return nil
}

// Recent returns the most recent traversals, newest first.
func (s *Store) Recent(limit int) ([]Traversal, error) {
	if s.db == nil {
		return nil, fmt.Errorf("audit database not opened")
	}
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.Query(
		`SELECT id, question, status, block_reason, sql_text, row_count, verdict_status, error, started_at, duration_ms
		 FROM traversals ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query traversals: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []Traversal
	for rows.Next() {
		var tr Traversal
		if err := rows.Scan(&tr.ID, &tr.Question, &tr.Status, &tr.BlockReason, &tr.SQL,
			&tr.RowCount, &tr.VerdictStatus, &tr.Error, &tr.StartedAt, &tr.DurationMS); err != nil {
			return nil, fmt.Errorf("failed to scan traversal: %w", err)
		}
		out = append(out, tr)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating traversals: %w", err)
	}
	return out, nil
}
