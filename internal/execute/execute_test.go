package execute

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/askdb-labs/askdb/internal/adapter"
	"github.com/askdb-labs/askdb/internal/safety"
)

// mockAdapter runs statements against a sqlmock-backed *sql.DB.
type mockAdapter struct {
	db *sql.DB
}

func (m *mockAdapter) Connect(ctx context.Context, cfg adapter.Config) error { return nil }
func (m *mockAdapter) Close() error                                          { return m.db.Close() }
func (m *mockAdapter) Query(ctx context.Context, stmt string) (*adapter.Rows, error) {
	rows, err := m.db.QueryContext(ctx, stmt)
	if err != nil {
		return nil, err
	}
	return &adapter.Rows{Rows: rows}, nil
}
func (m *mockAdapter) ListTables(ctx context.Context) ([]string, error) { return nil, nil }
func (m *mockAdapter) GetTableMetadata(ctx context.Context, table string) (*adapter.Metadata, error) {
	return nil, fmt.Errorf("not implemented")
}
func (m *mockAdapter) DialectName() string { return "sqlite" }

func accepted(stmt string) safety.Result {
	return safety.Result{Outcome: safety.Accepted, NormalizedStatement: stmt}
}

func TestExecuteRefusesUnvalidatedStatements(t *testing.T) {
	e := New(&mockAdapter{}, time.Second, 10, nil)

	_, err := e.Execute(context.Background(), safety.Result{
		Outcome: safety.Rejected,
		Reason:  safety.ReasonForbiddenKeyword,
	})
	assert.ErrorIs(t, err, ErrNotValidated)

	// An accepted outcome without a statement is just as invalid.
	_, err = e.Execute(context.Background(), safety.Result{Outcome: safety.Accepted})
	assert.ErrorIs(t, err, ErrNotValidated)
}

func TestExecuteRowCap(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	defer db.Close()

	rows := sqlmock.NewRows([]string{"name"})
	for i := 0; i < 5; i++ {
		rows.AddRow(fmt.Sprintf("artist %d", i))
	}
	mock.ExpectQuery("SELECT name FROM artists LIMIT 500").WillReturnRows(rows)

	e := New(&mockAdapter{db: db}, time.Second, 3, nil)
	result, err := e.Execute(context.Background(), accepted("SELECT name FROM artists LIMIT 500"))
	require.NoError(t, err)

	assert.Equal(t, 3, result.RowCount())
	assert.True(t, result.Truncated)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExecuteTimeout(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT 1").
		WillDelayFor(time.Second).
		WillReturnRows(sqlmock.NewRows([]string{"1"}).AddRow(1))

	e := New(&mockAdapter{db: db}, 20*time.Millisecond, 10, nil)
	_, err = e.Execute(context.Background(), accepted("SELECT 1"))
	assert.ErrorIs(t, err, ErrTimeout)
}

func TestExecuteQueryError(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT nope FROM missing LIMIT 500").
		WillReturnError(fmt.Errorf("no such table: missing"))

	e := New(&mockAdapter{db: db}, time.Second, 10, nil)
	_, err = e.Execute(context.Background(), accepted("SELECT nope FROM missing LIMIT 500"))
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrTimeout)
	assert.Contains(t, err.Error(), "no such table")
}

func TestExecuteAgainstSQLite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	// Seed through a writable connection, then query through the
	// read-only adapter.
	seed, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	_, err = seed.Exec(`CREATE TABLE artists (ArtistId INTEGER PRIMARY KEY, Name TEXT);
		INSERT INTO artists (Name) VALUES ('AC/DC'), ('Accept'), ('Aerosmith');`)
	require.NoError(t, err)
	require.NoError(t, seed.Close())

	a, err := adapter.New(adapter.Config{Type: "sqlite", Path: path}, nil)
	require.NoError(t, err)
	require.NoError(t, a.Connect(context.Background(), adapter.Config{Type: "sqlite", Path: path}))
	defer a.Close()

	e := New(a, time.Second, 10, nil)
	result, err := e.Execute(context.Background(), accepted("SELECT Name FROM artists ORDER BY Name LIMIT 2"))
	require.NoError(t, err)

	require.Equal(t, 2, result.RowCount())
	assert.Equal(t, []string{"Name"}, result.Columns)
	assert.Equal(t, "AC/DC", result.Rows[0]["Name"])
	assert.False(t, result.Truncated)
}
