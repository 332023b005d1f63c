package commands

import (
	"strings"

	"github.com/spf13/cobra"

	cliconfig "github.com/askdb-labs/askdb/internal/cli/config"
	"github.com/askdb-labs/askdb/internal/convo"
)

// NewAskCommand creates the ask command.
func NewAskCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "ask <question>",
		Short: "Ask the database a single question",
		Long: `Ask a one-shot natural-language question about the target database.

The question is answered without conversation history; use "askdb chat"
for multi-turn follow-ups.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg := cliconfig.GetCurrent()
			logger := cliconfig.GetLogger(ctx)

			app, err := buildApp(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer app.Close()

			session := convo.NewSession()
			resp, err := app.pipeline.Ask(ctx, session, strings.Join(args, " "))
			if err != nil {
				return err
			}

			return renderResponse(cmd.OutOrStdout(), resp, cfg.OutputFormat)
		},
	}
}
