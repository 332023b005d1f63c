package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	cliconfig "github.com/askdb-labs/askdb/internal/cli/config"
)

// NewIngestCommand creates the ingest command.
func NewIngestCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Build or rebuild the schema index",
		Long: `Extract the target database's catalog, render one documentation
fragment per table, embed the fragments, and replace the schema index.

Descriptions from the --schema-docs YAML file are merged into the
fragments when present:

  tables:
    invoices:
      description: One row per customer invoice.
      columns:
        Total: invoice total in USD`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			cfg := cliconfig.GetCurrent()
			logger := cliconfig.GetLogger(ctx)

			if docs, _ := cmd.Flags().GetString("schema-docs"); docs != "" {
				cfg.Index.DocsFile = docs
			}

			data, err := buildDataApp(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer data.Close()

			n, err := data.ingest(ctx)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Indexed %d tables into %s\n", n, cfg.Index.Path)
			return nil
		},
	}

	cmd.Flags().String("schema-docs", "", "YAML file with table/column description overrides")
	return cmd
}
