package config

import "time"

// Default configuration values.
const (
	DefaultIndexPath     = ".askdb/index.db"
	DefaultAuditPath     = ".askdb/audit.db"
	DefaultTopK          = 4
	DefaultMaxRows       = 500
	DefaultPieMax        = 8
	DefaultHistoryTurns  = 6
	DefaultLLMTimeout    = 60 * time.Second
	DefaultExecTimeout   = 30 * time.Second
	DefaultServerPort    = 8080
	DefaultLLMModel      = "gemini-2.5-flash"
	DefaultEmbedModel    = "gemini-embedding-001"
	DefaultOllamaBaseURL = "http://localhost:11434"
)

// ApplyDefaults fills zero-valued fields with defaults.
func (c *Config) ApplyDefaults() {
	if c.Index.Path == "" {
		c.Index.Path = DefaultIndexPath
	}
	if c.Index.TopK <= 0 {
		c.Index.TopK = DefaultTopK
	}
	if c.Safety.MaxRows <= 0 {
		c.Safety.MaxRows = DefaultMaxRows
	}
	if c.Viz.PieMaxCategories <= 0 {
		c.Viz.PieMaxCategories = DefaultPieMax
	}
	if c.LLM.Provider == "" {
		c.LLM.Provider = "gemini"
	}
	if c.LLM.Model == "" {
		c.LLM.Model = DefaultLLMModel
	}
	if c.LLM.Timeout <= 0 {
		c.LLM.Timeout = DefaultLLMTimeout
	}
	if c.LLM.HistoryTurns <= 0 {
		c.LLM.HistoryTurns = DefaultHistoryTurns
	}
	if c.Embedding.Provider == "" {
		c.Embedding.Provider = "gemini"
	}
	if c.Embedding.Model == "" && c.Embedding.Provider == "gemini" {
		c.Embedding.Model = DefaultEmbedModel
	}
	if c.Embedding.BaseURL == "" {
		c.Embedding.BaseURL = DefaultOllamaBaseURL
	}
	if c.Exec.Timeout <= 0 {
		c.Exec.Timeout = DefaultExecTimeout
	}
	if c.Server.Port == 0 {
		c.Server.Port = DefaultServerPort
	}
	if c.AuditPath == "" {
		c.AuditPath = DefaultAuditPath
	}
	if c.Target.Type == "postgres" && c.Target.Port == 0 {
		c.Target.Port = 5432
	}
	if c.Target.Schema == "" {
		switch c.Target.Type {
		case "postgres":
			c.Target.Schema = "public"
		default:
			c.Target.Schema = "main"
		}
	}
}
