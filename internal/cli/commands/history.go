package commands

import (
	"encoding/json"
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/askdb-labs/askdb/internal/audit"
	cliconfig "github.com/askdb-labs/askdb/internal/cli/config"
)

// NewHistoryCommand creates the history command.
func NewHistoryCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show the audit log of past questions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := cliconfig.GetCurrent()

			limit, _ := cmd.Flags().GetInt("limit")

			store, err := audit.Open(cfg.AuditPath)
			if err != nil {
				return err
			}
			defer store.Close()

			entries, err := store.List(cmd.Context(), limit)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if cfg.OutputFormat == "json" {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(entries)
			}

			if len(entries) == 0 {
				fmt.Fprintln(out, "No recorded questions.")
				return nil
			}

			t := table.NewWriter()
			t.SetOutputMirror(out)
			t.SetStyle(table.StyleLight)
			t.AppendHeader(table.Row{"When", "Question", "SQL", "Status", "Rows"})

			for _, e := range entries {
				status := e.Validation
				if e.Error != "" {
					status = e.Error
				}
				if e.RejectionReason != "" {
					status = fmt.Sprintf("%s (%s)", status, e.RejectionReason)
				}
				t.AppendRow(table.Row{
					e.CreatedAt.Local().Format("2006-01-02 15:04"),
					truncate(e.RawQuestion, 40),
					truncate(e.GeneratedSQL, 50),
					status,
					e.RowCount,
				})
			}

			t.Render()
			return nil
		},
	}

	cmd.Flags().Int("limit", 50, "Maximum entries to show (0 for all)")
	return cmd
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
