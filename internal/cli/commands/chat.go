package commands

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	cliconfig "github.com/askdb-labs/askdb/internal/cli/config"
	"github.com/askdb-labs/askdb/internal/convo"
)

// NewChatCommand creates the chat command.
func NewChatCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Start an interactive multi-turn session",
		Long: `Start a readline chat session against the target database.

Follow-up questions are rewritten using the conversation so far, so
"only the ones from Germany" keeps the topic of the previous answer.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !term.IsTerminal(int(os.Stdin.Fd())) {
				return fmt.Errorf("chat needs an interactive terminal; use 'askdb ask' for scripted questions")
			}

			ctx := cmd.Context()
			cfg := cliconfig.GetCurrent()
			logger := cliconfig.GetLogger(ctx)

			app, err := buildApp(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer app.Close()

			historyFile := filepath.Join(filepath.Dir(cfg.Index.Path), "chat_history")

			rl, err := readline.NewEx(&readline.Config{
				Prompt:          "askdb> ",
				HistoryFile:     historyFile,
				AutoComplete:    newChatCompleter(cmd, app),
				InterruptPrompt: "^C",
				EOFPrompt:       ".quit",
			})
			if err != nil {
				return fmt.Errorf("failed to initialize chat: %w", err)
			}
			defer func() { _ = rl.Close() }()

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "askdb chat (%s: %s)\n", app.adapter.DialectName(), cfg.Target.Database)
			fmt.Fprintln(out, "Ask questions in plain language. Type .help for commands, .quit to exit")
			fmt.Fprintln(out)

			session := convo.NewSession()
			for {
				line, err := rl.Readline()
				if errors.Is(err, readline.ErrInterrupt) {
					continue
				}
				if errors.Is(err, io.EOF) {
					break
				}

				line = strings.TrimSpace(line)
				if line == "" {
					continue
				}

				if strings.HasPrefix(line, ".") {
					if quit := handleChatCommand(cmd, session, line); quit {
						break
					}
					continue
				}

				resp, err := app.pipeline.Ask(ctx, session, line)
				if err != nil {
					fmt.Fprintf(cmd.ErrOrStderr(), "Error: %v\n", err)
					continue
				}
				if err := renderResponse(out, resp, cfg.OutputFormat); err != nil {
					fmt.Fprintf(cmd.ErrOrStderr(), "Error: %v\n", err)
				}
				fmt.Fprintln(out)
			}

			return nil
		},
	}
}

// handleChatCommand processes dot-commands; returns true to exit.
func handleChatCommand(cmd *cobra.Command, session *convo.Session, line string) bool {
	out := cmd.OutOrStdout()

	switch strings.ToLower(strings.Fields(line)[0]) {
	case ".quit", ".exit":
		return true

	case ".help":
		fmt.Fprint(out, `
Commands:
  .help       Show this help message
  .reset      Forget the conversation so far
  .history    Show the questions asked this session
  .quit       Exit

Tips:
  - Follow-ups like "only in 2013" or "what about their emails" use
    the previous answers as context
  - Use .reset before switching topics if answers look confused
`)

	case ".reset":
		session.Reset()
		fmt.Fprintln(out, "Conversation cleared.")

	case ".history":
		turns := session.History(session.Len())
		if len(turns) == 0 {
			fmt.Fprintln(out, "No questions yet.")
			break
		}
		for i, turn := range turns {
			status := string(turn.Validation)
			if turn.Error != "" {
				status = turn.Error
			}
			if status == "" {
				status = "-"
			}
			fmt.Fprintf(out, "%2d. %s [%s]\n", i+1, turn.RawQuestion, status)
		}

	default:
		fmt.Fprintf(cmd.ErrOrStderr(), "Unknown command: %s (type .help for commands)\n", line)
	}
	return false
}

// newChatCompleter completes dot-commands and table names.
func newChatCompleter(cmd *cobra.Command, app *app) *readline.PrefixCompleter {
	items := []readline.PrefixCompleterInterface{
		readline.PcItem(".help"),
		readline.PcItem(".reset"),
		readline.PcItem(".history"),
		readline.PcItem(".quit"),
		readline.PcItem(".exit"),
	}

	if tables, err := app.adapter.ListTables(cmd.Context()); err == nil {
		for _, name := range tables {
			items = append(items, readline.PcItem(name))
		}
	}

	return readline.NewPrefixCompleter(items...)
}
