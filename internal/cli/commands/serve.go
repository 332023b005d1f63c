package commands

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	cliconfig "github.com/askdb-labs/askdb/internal/cli/config"
	"github.com/askdb-labs/askdb/internal/server"
)

// NewServeCommand creates the serve command.
func NewServeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the question pipeline over HTTP",
		Long: `Start the HTTP API server.

Endpoints:
  POST   /chat     ask a question (session follows the cookie)
  GET    /history  list this session's turns
  DELETE /history  clear this session's conversation
  GET    /health   liveness check`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			cfg := cliconfig.GetCurrent()
			logger := cliconfig.GetLogger(cmd.Context())

			if port, _ := cmd.Flags().GetInt("port"); port != 0 {
				cfg.Server.Port = port
			}
			if cmd.Flags().Changed("watch") {
				cfg.Server.Watch, _ = cmd.Flags().GetBool("watch")
			}

			app, err := buildApp(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer app.Close()

			secret := cfg.Server.SessionSecret
			if secret == "" {
				// Sessions won't survive a restart without a configured
				// secret; fine for local use.
				secret = uuid.New().String()
				logger.Warn("server.session_secret not set, using an ephemeral secret")
			}

			srv := server.New(server.Config{
				Pipeline:      app.pipeline,
				Port:          cfg.Server.Port,
				SessionSecret: secret,
				Watch:         cfg.Server.Watch,
				WatchPath:     cfg.Index.DocsFile,
				Reingest: func(ctx context.Context) error {
					_, err := app.ingest(ctx)
					return err
				},
				Logger: logger,
			})

			return srv.Serve(ctx)
		},
	}

	cmd.Flags().Int("port", 0, "Port to listen on")
	cmd.Flags().Bool("watch", false, "Re-ingest the schema index when the docs file changes")
	return cmd
}
