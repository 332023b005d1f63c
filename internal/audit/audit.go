// Package audit persists finalized pipeline turns to a local sqlite
// log. Recording is best effort: the pipeline logs failures and moves
// on, a broken audit store never fails a turn.
package audit

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"

	"github.com/askdb-labs/askdb/internal/convo"
)

//go:embed migrations/*.sql
var migrations embed.FS

// Entry is one recorded turn.
type Entry struct {
	ID                   string
	SessionID            string
	RawQuestion          string
	ReformulatedQuestion string
	GeneratedSQL         string
	Validation           string
	RejectionReason      string
	Error                string
	VizMode              string
	RowCount             int
	CreatedAt            time.Time
}

// Store is the sqlite-backed audit log.
type Store struct {
	db *sql.DB
}

// Open opens the audit database, creating parent directories and
// running pending migrations. Use ":memory:" for tests.
func Open(path string) (*Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create audit directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open audit database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping audit database: %w", err)
	}

	goose.SetBaseFS(migrations)
	if err := goose.SetDialect("sqlite"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set dialect: %w", err)
	}
	if err := goose.Up(db, "migrations"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run audit migrations: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the audit database.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Record appends one finalized turn.
func (s *Store) Record(ctx context.Context, sessionID string, turn convo.Turn) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO turns (id, session_id, raw_question, reformulated_question, generated_sql,
			validation, rejection_reason, error, viz_mode, row_count, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		turn.ID, sessionID, turn.RawQuestion, turn.ReformulatedQuestion, turn.GeneratedSQL,
		string(turn.Validation), turn.RejectionReason, turn.Error, string(turn.VizMode),
		turn.RowCount, turn.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to record turn: %w", err)
	}
	return nil
}

// List returns the most recent entries, newest first. A limit of zero
// or less returns everything.
func (s *Store) List(ctx context.Context, limit int) ([]Entry, error) {
	query := `SELECT id, session_id, raw_question, reformulated_question, generated_sql,
			validation, rejection_reason, error, viz_mode, row_count, created_at
		FROM turns ORDER BY created_at DESC, id`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list turns: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.SessionID, &e.RawQuestion, &e.ReformulatedQuestion,
			&e.GeneratedSQL, &e.Validation, &e.RejectionReason, &e.Error, &e.VizMode,
			&e.RowCount, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan turn: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// ListSession returns a session's entries, oldest first.
func (s *Store) ListSession(ctx context.Context, sessionID string) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, session_id, raw_question, reformulated_question, generated_sql,
			validation, rejection_reason, error, viz_mode, row_count, created_at
		FROM turns WHERE session_id = ? ORDER BY created_at, id`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list session turns: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.SessionID, &e.RawQuestion, &e.ReformulatedQuestion,
			&e.GeneratedSQL, &e.Validation, &e.RejectionReason, &e.Error, &e.VizMode,
			&e.RowCount, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan turn: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// PurgeSession deletes a session's entries.
func (s *Store) PurgeSession(ctx context.Context, sessionID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM turns WHERE session_id = ?`, sessionID); err != nil {
		return fmt.Errorf("failed to purge session turns: %w", err)
	}
	return nil
}
