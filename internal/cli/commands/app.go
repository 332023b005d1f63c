// Package commands implements the askdb subcommands.
package commands

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/askdb-labs/askdb/internal/adapter"
	"github.com/askdb-labs/askdb/internal/audit"
	"github.com/askdb-labs/askdb/internal/config"
	"github.com/askdb-labs/askdb/internal/embedding"
	"github.com/askdb-labs/askdb/internal/execute"
	"github.com/askdb-labs/askdb/internal/llm"
	"github.com/askdb-labs/askdb/internal/pipeline"
	"github.com/askdb-labs/askdb/internal/reformulate"
	"github.com/askdb-labs/askdb/internal/safety"
	"github.com/askdb-labs/askdb/internal/schemaindex"
	"github.com/askdb-labs/askdb/internal/sqlgen"
	"github.com/askdb-labs/askdb/internal/viz"
)

// adapterConfig maps the target section onto an adapter config.
func adapterConfig(cfg *config.Config) adapter.Config {
	return adapter.Config{
		Type:     cfg.Target.Type,
		Path:     cfg.Target.Database,
		Database: cfg.Target.Database,
		Host:     cfg.Target.Host,
		Port:     cfg.Target.Port,
		Username: cfg.Target.User,
		Password: cfg.Target.Password,
		Schema:   cfg.Target.Schema,
		Options:  cfg.Target.Options,
	}
}

// dataApp holds the components ingest needs: the target connection, the
// embedding engine, and the index store. No LLM involved.
type dataApp struct {
	cfg     *config.Config
	logger  *slog.Logger
	adapter adapter.Adapter
	engine  embedding.Engine
	index   *schemaindex.Store
}

func buildDataApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*dataApp, error) {
	ad, err := adapter.New(adapterConfig(cfg), logger)
	if err != nil {
		return nil, err
	}
	if err := ad.Connect(ctx, adapterConfig(cfg)); err != nil {
		return nil, fmt.Errorf("failed to connect to target database: %w", err)
	}

	engine, err := embedding.NewEngine(ctx, embedding.Config{
		Provider:       cfg.Embedding.Provider,
		APIKey:         cfg.Embedding.APIKey,
		Model:          cfg.Embedding.Model,
		OllamaEndpoint: cfg.Embedding.BaseURL,
	})
	if err != nil {
		ad.Close()
		return nil, err
	}

	index, err := schemaindex.Open(cfg.Index.Path)
	if err != nil {
		ad.Close()
		return nil, err
	}

	return &dataApp{cfg: cfg, logger: logger, adapter: ad, engine: engine, index: index}, nil
}

func (d *dataApp) Close() {
	_ = d.index.Close()
	_ = d.adapter.Close()
}

// ingest rebuilds the schema index from the target catalog and the
// optional docs overrides file.
func (d *dataApp) ingest(ctx context.Context) (int, error) {
	docs, err := schemaindex.LoadDocOverrides(d.cfg.Index.DocsFile)
	if err != nil {
		return 0, err
	}
	return schemaindex.NewIngester(d.adapter, d.engine, d.index, d.logger).Ingest(ctx, docs)
}

// app is the full question-answering stack.
type app struct {
	*dataApp
	pipeline *pipeline.Pipeline
	audit    *audit.Store
}

func buildApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*app, error) {
	data, err := buildDataApp(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	client, err := llm.NewGeminiClient(ctx, llm.GeminiConfig{
		APIKey:  cfg.LLM.APIKey,
		Model:   cfg.LLM.Model,
		Timeout: cfg.LLM.Timeout,
	})
	if err != nil {
		data.Close()
		return nil, err
	}

	auditStore, err := audit.Open(cfg.AuditPath)
	if err != nil {
		// The audit log is best effort all the way down.
		logger.Warn("audit log unavailable", "path", cfg.AuditPath, "error", err)
		auditStore = nil
	}

	p := pipeline.New(pipeline.Config{
		Retriever:    schemaindex.NewRetriever(data.engine, data.index, cfg.Index.TopK, logger),
		Reformulator: reformulate.New(client, cfg.LLM.HistoryTurns, logger),
		Generator:    sqlgen.New(client, logger),
		Validator: safety.NewValidator(safety.Policy{
			MaxRows:             cfg.Safety.MaxRows,
			AllowedSystemTables: cfg.Safety.AllowedSystemTables,
		}),
		Executor:     execute.New(data.adapter, cfg.Exec.Timeout, cfg.Safety.MaxRows, logger),
		Selector:     viz.NewSelector(cfg.Viz.PieMaxCategories),
		Audit:        auditStore,
		Dialect:      data.adapter.DialectName(),
		HistoryTurns: cfg.LLM.HistoryTurns,
		Logger:       logger,
	})

	return &app{dataApp: data, pipeline: p, audit: auditStore}, nil
}

func (a *app) Close() {
	if a.audit != nil {
		_ = a.audit.Close()
	}
	a.dataApp.Close()
}
