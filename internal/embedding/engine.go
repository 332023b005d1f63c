// Package embedding generates vector embeddings for schema retrieval.
// Two backends are supported: the Gemini API and a local Ollama server.
package embedding

import (
	"context"
	"fmt"
	"math"
)

// Engine generates vector embeddings for text.
type Engine interface {
	// Embed generates an embedding for a single text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch generates embeddings for multiple texts.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Name returns the engine name for logging and diagnostics.
	Name() string
}

// Config holds embedding engine settings.
type Config struct {
	Provider string `koanf:"provider"`

	APIKey string `koanf:"api_key"`
	Model  string `koanf:"model"`

	OllamaEndpoint string `koanf:"ollama_endpoint"`
}

// NewEngine creates an embedding engine for the configured provider.
func NewEngine(ctx context.Context, cfg Config) (Engine, error) {
	switch cfg.Provider {
	case "", "genai", "gemini":
		return NewGenAIEngine(ctx, cfg.APIKey, cfg.Model)
	case "ollama":
		return NewOllamaEngine(cfg.OllamaEndpoint, cfg.Model), nil
	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s (use 'gemini' or 'ollama')", cfg.Provider)
	}
}

// CosineSimilarity returns the cosine similarity of two vectors, in
// [-1, 1]. Zero-magnitude vectors compare as orthogonal.
func CosineSimilarity(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("vector dimension mismatch: %d != %d", len(a), len(b))
	}

	var dot, magA, magB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		magA += float64(a[i]) * float64(a[i])
		magB += float64(b[i]) * float64(b[i])
	}

	if magA == 0 || magB == 0 {
		return 0, nil
	}
	return dot / (math.Sqrt(magA) * math.Sqrt(magB)), nil
}
