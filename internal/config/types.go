// Package config provides shared configuration types for askdb.
// This package is decoupled from CLI concerns so the server and tests
// can construct configuration directly.
package config

import (
	"fmt"
	"strings"
	"time"
)

// TargetConfig holds the connection settings for the database being queried.
type TargetConfig struct {
	Type string `koanf:"type"` // sqlite, duckdb, postgres

	// File-based databases (SQLite, DuckDB)
	Database string `koanf:"database"` // file path or database name

	// Network databases
	Host     string `koanf:"host"`
	Port     int    `koanf:"port"`
	User     string `koanf:"user"`
	Password string `koanf:"password"`

	Schema string `koanf:"schema"`

	// Additional driver-specific options
	Options map[string]string `koanf:"options"`
}

// Validate checks if the target configuration is valid.
func (t *TargetConfig) Validate() error {
	if t.Type == "" {
		return fmt.Errorf("target type is required")
	}
	switch strings.ToLower(t.Type) {
	case "sqlite", "duckdb", "postgres":
		return nil
	}
	return fmt.Errorf("unknown target type %q (available: sqlite, duckdb, postgres)", t.Type)
}

// LLMConfig holds settings for the generative capability.
type LLMConfig struct {
	Provider string `koanf:"provider"` // gemini
	APIKey   string `koanf:"api_key"`
	Model    string `koanf:"model"`

	// Timeout bounds a single completion call.
	Timeout time.Duration `koanf:"timeout"`

	// HistoryTurns bounds how many prior turns feed reformulation.
	HistoryTurns int `koanf:"history_turns"`
}

// EmbeddingConfig holds settings for the embedding engine.
type EmbeddingConfig struct {
	Provider string `koanf:"provider"` // gemini, ollama
	APIKey   string `koanf:"api_key"`
	Model    string `koanf:"model"`

	// BaseURL is used by the ollama provider.
	BaseURL string `koanf:"base_url"`
}

// IndexConfig holds settings for the schema vector index.
type IndexConfig struct {
	// Path is the sqlite file backing the index. ":memory:" for tests.
	Path string `koanf:"path"`

	// TopK is the number of schema fragments retrieved per question.
	TopK int `koanf:"top_k"`

	// DocsFile optionally points to a YAML file with per-table
	// description overrides merged during ingestion.
	DocsFile string `koanf:"docs_file"`
}

// SafetyConfig holds the validator policy.
type SafetyConfig struct {
	// MaxRows caps result size; statements without a LIMIT get one
	// injected, larger LIMITs are clamped.
	MaxRows int `koanf:"max_rows"`

	// AllowedSystemTables whitelists catalog tables that may be queried.
	AllowedSystemTables []string `koanf:"allowed_system_tables"`
}

// ExecConfig holds execution bounds.
type ExecConfig struct {
	Timeout time.Duration `koanf:"timeout"`
}

// VizConfig holds visualization selection policy.
type VizConfig struct {
	// PieMaxCategories is the categorical cardinality at or below which
	// a one-category/one-measure result renders as a pie chart.
	PieMaxCategories int `koanf:"pie_max_categories"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port          int    `koanf:"port"`
	SessionSecret string `koanf:"session_secret"`

	// Watch re-ingests the schema index when the docs file changes.
	Watch bool `koanf:"watch"`
}

// Config is the full askdb configuration.
type Config struct {
	Target    TargetConfig    `koanf:"target"`
	LLM       LLMConfig       `koanf:"llm"`
	Embedding EmbeddingConfig `koanf:"embedding"`
	Index     IndexConfig     `koanf:"index"`
	Safety    SafetyConfig    `koanf:"safety"`
	Exec      ExecConfig      `koanf:"exec"`
	Viz       VizConfig       `koanf:"viz"`
	Server    ServerConfig    `koanf:"server"`

	// AuditPath is the sqlite file recording finalized turns.
	AuditPath string `koanf:"audit_path"`

	Verbose      bool   `koanf:"verbose"`
	OutputFormat string `koanf:"output"`
}

// Validate checks the full configuration.
func (c *Config) Validate() error {
	if err := c.Target.Validate(); err != nil {
		return err
	}
	if c.Safety.MaxRows <= 0 {
		return fmt.Errorf("safety.max_rows must be positive, got %d", c.Safety.MaxRows)
	}
	if c.Viz.PieMaxCategories <= 0 {
		return fmt.Errorf("viz.pie_max_categories must be positive, got %d", c.Viz.PieMaxCategories)
	}
	return nil
}
