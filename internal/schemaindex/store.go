// Package schemaindex stores embedded schema documentation fragments in
// a local sqlite database and retrieves the fragments most similar to a
// question. The index is rebuilt by `askdb ingest` and read by the
// pipeline on every turn.
package schemaindex

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"

	"github.com/askdb-labs/askdb/internal/embedding"
)

//go:embed migrations/*.sql
var migrations embed.FS

// Fragment is one embedded schema documentation entry, one per table.
type Fragment struct {
	ID        string
	TableName string
	Content   string
	Embedding []float32
	CreatedAt time.Time
}

// Match pairs a fragment with its similarity to a query vector.
type Match struct {
	Fragment Fragment
	Score    float64
}

// Store is the sqlite-backed fragment index.
type Store struct {
	db   *sql.DB
	path string
}

// Open opens the index database, creating parent directories and
// running pending migrations. Use ":memory:" for tests.
func Open(path string) (*Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create index directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open index database: %w", err)
	}

	// A single connection keeps :memory: databases coherent and is
	// plenty for an index this size.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping index database: %w", err)
	}

	s := &Store{db: db, path: path}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) migrate() error {
	goose.SetBaseFS(migrations)
	if err := goose.SetDialect("sqlite"); err != nil {
		return fmt.Errorf("failed to set dialect: %w", err)
	}
	if err := goose.Up(s.db, "migrations"); err != nil {
		return fmt.Errorf("failed to run index migrations: %w", err)
	}
	return nil
}

// Close closes the index database.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Replace atomically swaps the full fragment set for a new one.
func (s *Store) Replace(ctx context.Context, fragments []Fragment) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM schema_fragments`); err != nil {
		return fmt.Errorf("failed to clear fragments: %w", err)
	}

	for _, f := range fragments {
		vec, err := json.Marshal(f.Embedding)
		if err != nil {
			return fmt.Errorf("failed to encode embedding for %s: %w", f.TableName, err)
		}

		id := f.ID
		if id == "" {
			id = uuid.New().String()
		}
		createdAt := f.CreatedAt
		if createdAt.IsZero() {
			createdAt = time.Now().UTC()
		}

		_, err = tx.ExecContext(ctx,
			`INSERT INTO schema_fragments (id, table_name, content, embedding, created_at) VALUES (?, ?, ?, ?, ?)`,
			id, f.TableName, f.Content, string(vec), createdAt,
		)
		if err != nil {
			return fmt.Errorf("failed to insert fragment for %s: %w", f.TableName, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit fragments: %w", err)
	}
	return nil
}

// Count returns the number of indexed fragments.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM schema_fragments`).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count fragments: %w", err)
	}
	return n, nil
}

// Search returns the topK fragments most similar to the query vector,
// best match first. An empty index yields an empty result, not an error.
func (s *Store) Search(ctx context.Context, query []float32, topK int) ([]Match, error) {
	if topK <= 0 {
		return nil, nil
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, table_name, content, embedding, created_at FROM schema_fragments`)
	if err != nil {
		return nil, fmt.Errorf("failed to load fragments: %w", err)
	}
	defer rows.Close()

	var matches []Match
	for rows.Next() {
		var f Fragment
		var vec string
		if err := rows.Scan(&f.ID, &f.TableName, &f.Content, &vec, &f.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan fragment: %w", err)
		}
		if err := json.Unmarshal([]byte(vec), &f.Embedding); err != nil {
			return nil, fmt.Errorf("failed to decode embedding for %s: %w", f.TableName, err)
		}

		score, err := embedding.CosineSimilarity(query, f.Embedding)
		if err != nil {
			// Dimension mismatch means the index was built with a
			// different model. Skip rather than fail the turn.
			continue
		}
		matches = append(matches, Match{Fragment: f, Score: score})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate fragments: %w", err)
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})
	if len(matches) > topK {
		matches = matches[:topK]
	}
	return matches, nil
}
