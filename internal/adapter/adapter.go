// Package adapter provides read-only database adapters for the askdb
// query pipeline. Adapters open connections with read-only credentials
// or flags where the driver supports it, as a second layer of defense
// beneath the SQL safety validator.
package adapter

import (
	"context"
	"database/sql"
)

// Config holds the configuration for connecting to a database.
type Config struct {
	// Type specifies the database type (e.g., "sqlite", "duckdb", "postgres")
	Type string

	// Path is the file path for file-based databases (SQLite, DuckDB).
	// Use ":memory:" for an in-memory database.
	Path string

	// Host is the hostname for network-based databases
	Host string

	// Port is the port number for network-based databases
	Port int

	// Database is the database name
	Database string

	// Username for authentication
	Username string

	// Password for authentication
	Password string

	// Schema is the default schema to use
	Schema string

	// Options contains additional driver-specific options
	Options map[string]string
}

// Column represents a column in a database table.
type Column struct {
	// Name is the column name
	Name string

	// Type is the declared data type of the column
	Type string

	// Nullable indicates whether the column allows NULL values
	Nullable bool

	// PrimaryKey indicates whether the column is part of the primary key
	PrimaryKey bool

	// Position is the ordinal position of the column in the table
	Position int
}

// ForeignKey describes a foreign key relationship, used to enrich the
// schema documentation fed to the SQL generator.
type ForeignKey struct {
	Column    string
	RefTable  string
	RefColumn string
}

// Metadata holds metadata about a database table.
type Metadata struct {
	// Schema is the schema containing the table
	Schema string

	// Name is the table name
	Name string

	// Columns contains metadata for each column
	Columns []Column

	// ForeignKeys lists outgoing foreign key relationships
	ForeignKeys []ForeignKey
}

// Rows wraps sql.Rows to provide a consistent interface across adapters.
type Rows struct {
	*sql.Rows
}

// Adapter defines the interface that all database adapters must implement.
// Connections are read-only: adapters must refuse or neuter writes at the
// driver level independently of statement validation.
type Adapter interface {
	// Connect establishes a read-only connection using the provided config.
	Connect(ctx context.Context, cfg Config) error

	// Close closes the database connection and releases resources.
	Close() error

	// Query executes a SQL statement that returns rows.
	Query(ctx context.Context, sql string) (*Rows, error)

	// ListTables returns the names of user tables in the default schema.
	ListTables(ctx context.Context) ([]string, error)

	// GetTableMetadata retrieves metadata for a specified table.
	GetTableMetadata(ctx context.Context, table string) (*Metadata, error)

	// DialectName returns the SQL dialect name for this adapter.
	DialectName() string
}
