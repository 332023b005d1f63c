package adapter

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
)

// seedSQLiteDB creates a database file through a writable connection so
// the adapter under test can open it read-only.
func seedSQLiteDB(t *testing.T) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "target.db")
	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("failed to open seed connection: %v", err)
	}
	defer db.Close()

	stmts := []string{
		`CREATE TABLE artists (ArtistId INTEGER PRIMARY KEY, Name TEXT NOT NULL)`,
		`CREATE TABLE albums (
			AlbumId INTEGER PRIMARY KEY,
			Title TEXT NOT NULL,
			ArtistId INTEGER NOT NULL,
			FOREIGN KEY (ArtistId) REFERENCES artists (ArtistId)
		)`,
		`INSERT INTO artists VALUES (1, 'AC/DC'), (2, 'Accept')`,
		`INSERT INTO albums VALUES (1, 'High Voltage', 1)`,
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			t.Fatalf("failed to seed database: %v", err)
		}
	}
	return path
}

func TestSQLiteAdapter_ConnectMissingPath(t *testing.T) {
	a := NewSQLiteAdapter(nil)
	if err := a.Connect(context.Background(), Config{}); err == nil {
		t.Error("expected error for empty path")
	}
}

func TestSQLiteAdapter_ListTables(t *testing.T) {
	ctx := context.Background()
	a := NewSQLiteAdapter(nil)

	if err := a.Connect(ctx, Config{Path: seedSQLiteDB(t)}); err != nil {
		t.Fatalf("failed to connect: %v", err)
	}
	defer a.Close()

	tables, err := a.ListTables(ctx)
	if err != nil {
		t.Fatalf("failed to list tables: %v", err)
	}

	want := []string{"albums", "artists"}
	if len(tables) != len(want) {
		t.Fatalf("expected %v, got %v", want, tables)
	}
	for i := range want {
		if tables[i] != want[i] {
			t.Errorf("table %d: expected %s, got %s", i, want[i], tables[i])
		}
	}
}

func TestSQLiteAdapter_GetTableMetadata(t *testing.T) {
	ctx := context.Background()
	a := NewSQLiteAdapter(nil)

	if err := a.Connect(ctx, Config{Path: seedSQLiteDB(t)}); err != nil {
		t.Fatalf("failed to connect: %v", err)
	}
	defer a.Close()

	meta, err := a.GetTableMetadata(ctx, "albums")
	if err != nil {
		t.Fatalf("failed to get metadata: %v", err)
	}

	if meta.Name != "albums" {
		t.Errorf("expected table name albums, got %s", meta.Name)
	}
	if len(meta.Columns) != 3 {
		t.Fatalf("expected 3 columns, got %d", len(meta.Columns))
	}
	if !meta.Columns[0].PrimaryKey {
		t.Error("AlbumId should be marked as primary key")
	}
	if meta.Columns[1].Name != "Title" || meta.Columns[1].Type != "TEXT" {
		t.Errorf("unexpected second column: %+v", meta.Columns[1])
	}

	if len(meta.ForeignKeys) != 1 {
		t.Fatalf("expected 1 foreign key, got %d", len(meta.ForeignKeys))
	}
	fk := meta.ForeignKeys[0]
	if fk.Column != "ArtistId" || fk.RefTable != "artists" || fk.RefColumn != "ArtistId" {
		t.Errorf("unexpected foreign key: %+v", fk)
	}
}

func TestSQLiteAdapter_GetTableMetadataMissingTable(t *testing.T) {
	ctx := context.Background()
	a := NewSQLiteAdapter(nil)

	if err := a.Connect(ctx, Config{Path: seedSQLiteDB(t)}); err != nil {
		t.Fatalf("failed to connect: %v", err)
	}
	defer a.Close()

	if _, err := a.GetTableMetadata(ctx, "no_such_table"); err == nil {
		t.Error("expected error for missing table")
	}
}

func TestSQLiteAdapter_ReadOnlyConnection(t *testing.T) {
	ctx := context.Background()
	a := NewSQLiteAdapter(nil)

	if err := a.Connect(ctx, Config{Path: seedSQLiteDB(t)}); err != nil {
		t.Fatalf("failed to connect: %v", err)
	}
	defer a.Close()

	rows, err := a.Query(ctx, `INSERT INTO artists (ArtistId, Name) VALUES (99, 'Mutant')`)
	if rows != nil {
		defer rows.Close()
	}
	if err == nil {
		t.Error("write through a read-only connection should fail")
	}
}

func TestSQLiteAdapter_Query(t *testing.T) {
	ctx := context.Background()
	a := NewSQLiteAdapter(nil)

	if err := a.Connect(ctx, Config{Path: seedSQLiteDB(t)}); err != nil {
		t.Fatalf("failed to connect: %v", err)
	}
	defer a.Close()

	rows, err := a.Query(ctx, `SELECT Name FROM artists ORDER BY Name`)
	if err != nil {
		t.Fatalf("failed to query: %v", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			t.Fatalf("failed to scan: %v", err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		t.Fatalf("rows error: %v", err)
	}

	if len(names) != 2 || names[0] != "AC/DC" || names[1] != "Accept" {
		t.Errorf("unexpected result: %v", names)
	}
}
