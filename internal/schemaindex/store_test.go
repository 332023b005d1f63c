package schemaindex

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/askdb-labs/askdb/internal/adapter"
)

// fakeEngine returns fixed vectors keyed by exact text, or a fallback.
type fakeEngine struct {
	vectors  map[string][]float32
	fallback []float32
}

func (f *fakeEngine) Embed(ctx context.Context, text string) ([]float32, error) {
	if v, ok := f.vectors[text]; ok {
		return v, nil
	}
	return f.fallback, nil
}

func (f *fakeEngine) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, err := f.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (f *fakeEngine) Name() string { return "fake" }

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSearchOrdersByScore(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)

	err := store.Replace(ctx, []Fragment{
		{TableName: "invoices", Content: "Table: invoices", Embedding: []float32{1, 0, 0}},
		{TableName: "tracks", Content: "Table: tracks", Embedding: []float32{0, 1, 0}},
		{TableName: "artists", Content: "Table: artists", Embedding: []float32{0.9, 0.1, 0}},
	})
	require.NoError(t, err)

	matches, err := store.Search(ctx, []float32{1, 0, 0}, 2)
	require.NoError(t, err)
	require.Len(t, matches, 2)
	assert.Equal(t, "invoices", matches[0].Fragment.TableName)
	assert.Equal(t, "artists", matches[1].Fragment.TableName)
	assert.Greater(t, matches[0].Score, matches[1].Score)
}

func TestSearchEmptyIndex(t *testing.T) {
	store := openTestStore(t)

	matches, err := store.Search(context.Background(), []float32{1, 0}, 4)
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestReplaceSwapsContents(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)

	require.NoError(t, store.Replace(ctx, []Fragment{
		{TableName: "old", Content: "Table: old", Embedding: []float32{1}},
	}))
	require.NoError(t, store.Replace(ctx, []Fragment{
		{TableName: "new_a", Content: "Table: new_a", Embedding: []float32{1}},
		{TableName: "new_b", Content: "Table: new_b", Embedding: []float32{1}},
	}))

	n, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	matches, err := store.Search(ctx, []float32{1}, 10)
	require.NoError(t, err)
	for _, m := range matches {
		assert.NotEqual(t, "old", m.Fragment.TableName)
	}
}

func TestSearchSkipsMismatchedDimensions(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)

	require.NoError(t, store.Replace(ctx, []Fragment{
		{TableName: "good", Content: "c", Embedding: []float32{1, 0}},
		{TableName: "stale", Content: "c", Embedding: []float32{1, 0, 0}},
	}))

	matches, err := store.Search(ctx, []float32{1, 0}, 10)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "good", matches[0].Fragment.TableName)
}

func TestRetrieverReturnsFragmentTexts(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)

	require.NoError(t, store.Replace(ctx, []Fragment{
		{TableName: "invoices", Content: "Table: invoices", Embedding: []float32{1, 0}},
		{TableName: "tracks", Content: "Table: tracks", Embedding: []float32{0, 1}},
	}))

	engine := &fakeEngine{
		vectors:  map[string][]float32{"revenue by month": {1, 0}},
		fallback: []float32{0, 1},
	}

	r := NewRetriever(engine, store, 1, nil)
	texts, err := r.Retrieve(ctx, "revenue by month")
	require.NoError(t, err)
	require.Len(t, texts, 1)
	assert.Equal(t, "Table: invoices", texts[0])
}

func TestRenderFragment(t *testing.T) {
	meta := &adapter.Metadata{
		Name: "invoices",
		Columns: []adapter.Column{
			{Name: "InvoiceId", Type: "INTEGER", PrimaryKey: true},
			{Name: "Total", Type: "NUMERIC"},
		},
		ForeignKeys: []adapter.ForeignKey{
			{Column: "CustomerId", RefTable: "customers", RefColumn: "CustomerId"},
		},
	}
	doc := TableDoc{
		Description: "One row per customer invoice.",
		Columns:     map[string]string{"Total": "invoice total in USD"},
	}

	got := RenderFragment(meta, doc)
	assert.Contains(t, got, "Table: invoices")
	assert.Contains(t, got, "Description: One row per customer invoice.")
	assert.Contains(t, got, "InvoiceId (INTEGER) [primary key]")
	assert.Contains(t, got, "Total (NUMERIC): invoice total in USD")
	assert.Contains(t, got, "CustomerId references customers.CustomerId")
}

func TestIngestBuildsOneFragmentPerTable(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)

	fake := &stubAdapter{
		tables: []string{"artists", "albums"},
		meta: map[string]*adapter.Metadata{
			"artists": {Name: "artists", Columns: []adapter.Column{{Name: "ArtistId", Type: "INTEGER", PrimaryKey: true}}},
			"albums":  {Name: "albums", Columns: []adapter.Column{{Name: "AlbumId", Type: "INTEGER", PrimaryKey: true}}},
		},
	}
	engine := &fakeEngine{fallback: []float32{0.5, 0.5}}

	n, err := NewIngester(fake, engine, store, nil).Ingest(ctx, DocOverrides{})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

// stubAdapter serves canned catalog metadata.
type stubAdapter struct {
	tables []string
	meta   map[string]*adapter.Metadata
}

func (s *stubAdapter) Connect(ctx context.Context, cfg adapter.Config) error { return nil }
func (s *stubAdapter) Close() error                                          { return nil }
func (s *stubAdapter) Query(ctx context.Context, sql string) (*adapter.Rows, error) {
	return nil, fmt.Errorf("not implemented")
}
func (s *stubAdapter) ListTables(ctx context.Context) ([]string, error) { return s.tables, nil }
func (s *stubAdapter) GetTableMetadata(ctx context.Context, table string) (*adapter.Metadata, error) {
	m, ok := s.meta[table]
	if !ok {
		return nil, fmt.Errorf("unknown table %s", table)
	}
	return m, nil
}
func (s *stubAdapter) DialectName() string { return "sqlite" }
