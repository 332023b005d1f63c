package schemaindex

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/askdb-labs/askdb/internal/embedding"
)

// Retriever embeds a question and finds the schema fragments most
// relevant to it.
type Retriever struct {
	engine embedding.Engine
	store  *Store
	topK   int
	logger *slog.Logger
}

// NewRetriever creates a retriever over an open store.
func NewRetriever(engine embedding.Engine, store *Store, topK int, logger *slog.Logger) *Retriever {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Retriever{engine: engine, store: store, topK: topK, logger: logger}
}

// Retrieve returns the fragment texts most similar to the question,
// best match first. An error here means retrieval is unavailable for
// this turn; callers degrade to schema-free generation rather than
// failing the turn.
func (r *Retriever) Retrieve(ctx context.Context, question string) ([]string, error) {
	vec, err := r.engine.Embed(ctx, question)
	if err != nil {
		return nil, fmt.Errorf("failed to embed question: %w", err)
	}

	matches, err := r.store.Search(ctx, vec, r.topK)
	if err != nil {
		return nil, err
	}

	texts := make([]string, len(matches))
	for i, m := range matches {
		texts[i] = m.Fragment.Content
		r.logger.Debug("schema fragment retrieved", "table", m.Fragment.TableName, "score", m.Score)
	}
	return texts, nil
}
