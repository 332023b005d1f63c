package schemaindex

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/askdb-labs/askdb/internal/adapter"
	"github.com/askdb-labs/askdb/internal/embedding"
)

// DocOverrides supplies human-written descriptions that are merged into
// the generated fragments. Loaded from an optional YAML file.
type DocOverrides struct {
	Tables map[string]TableDoc `yaml:"tables"`
}

// TableDoc describes one table in the overrides file.
type TableDoc struct {
	Description string            `yaml:"description"`
	Columns     map[string]string `yaml:"columns"`
}

// LoadDocOverrides reads a YAML overrides file. A missing file is not
// an error; it returns empty overrides.
func LoadDocOverrides(path string) (DocOverrides, error) {
	var docs DocOverrides
	if path == "" {
		return docs, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return docs, nil
		}
		return docs, fmt.Errorf("failed to read schema docs file: %w", err)
	}

	if err := yaml.Unmarshal(data, &docs); err != nil {
		return docs, fmt.Errorf("failed to parse schema docs file: %w", err)
	}
	return docs, nil
}

// Ingester rebuilds the fragment index from a live database catalog.
type Ingester struct {
	adapter adapter.Adapter
	engine  embedding.Engine
	store   *Store
	logger  *slog.Logger
}

// NewIngester creates an ingester. A nil logger discards output.
func NewIngester(a adapter.Adapter, engine embedding.Engine, store *Store, logger *slog.Logger) *Ingester {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Ingester{adapter: a, engine: engine, store: store, logger: logger}
}

// Ingest extracts table metadata from the target database, renders one
// documentation fragment per table, embeds them, and replaces the index
// contents. Returns the number of fragments written.
func (in *Ingester) Ingest(ctx context.Context, docs DocOverrides) (int, error) {
	tables, err := in.adapter.ListTables(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list tables: %w", err)
	}
	if len(tables) == 0 {
		return 0, fmt.Errorf("target database has no tables")
	}

	fragments := make([]Fragment, 0, len(tables))
	texts := make([]string, 0, len(tables))
	for _, table := range tables {
		meta, err := in.adapter.GetTableMetadata(ctx, table)
		if err != nil {
			return 0, fmt.Errorf("failed to read metadata for %s: %w", table, err)
		}

		content := RenderFragment(meta, docs.Tables[table])
		fragments = append(fragments, Fragment{TableName: table, Content: content})
		texts = append(texts, content)

		in.logger.Debug("rendered schema fragment", "table", table, "columns", len(meta.Columns))
	}

	vecs, err := in.engine.EmbedBatch(ctx, texts)
	if err != nil {
		return 0, fmt.Errorf("failed to embed schema fragments: %w", err)
	}
	if len(vecs) != len(fragments) {
		return 0, fmt.Errorf("embedding count mismatch: %d vectors for %d fragments", len(vecs), len(fragments))
	}
	for i := range fragments {
		fragments[i].Embedding = vecs[i]
	}

	if err := in.store.Replace(ctx, fragments); err != nil {
		return 0, err
	}

	in.logger.Info("schema index rebuilt", "tables", len(fragments), "engine", in.engine.Name())
	return len(fragments), nil
}

// RenderFragment formats one table's metadata as the text that gets
// embedded and later pasted into the SQL generation prompt.
func RenderFragment(meta *adapter.Metadata, doc TableDoc) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Table: %s\n", meta.Name)
	if doc.Description != "" {
		fmt.Fprintf(&b, "Description: %s\n", doc.Description)
	}

	b.WriteString("Columns:\n")
	for _, col := range meta.Columns {
		fmt.Fprintf(&b, "  - %s (%s)", col.Name, col.Type)
		if col.PrimaryKey {
			b.WriteString(" [primary key]")
		}
		if desc := doc.Columns[col.Name]; desc != "" {
			fmt.Fprintf(&b, ": %s", desc)
		}
		b.WriteString("\n")
	}

	if len(meta.ForeignKeys) > 0 {
		b.WriteString("Foreign keys:\n")
		for _, fk := range meta.ForeignKeys {
			fmt.Fprintf(&b, "  - %s references %s.%s\n", fk.Column, fk.RefTable, fk.RefColumn)
		}
	}

	return b.String()
}
