// Package sqlgen turns a standalone question plus retrieved schema
// fragments into a candidate SQL statement via the LLM. The output here
// is untrusted; it goes to the safety validator before anything
// executes it.
package sqlgen

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/askdb-labs/askdb/internal/llm"
)

// NoQueryMarker is the distinguished prefix the model returns when the
// question cannot be answered from the database.
const NoQueryMarker = "NO_QUERY:"

// NoQueryError reports that the model declined to produce SQL. Message
// is the model's explanation, suitable for showing the user.
type NoQueryError struct {
	Message string
}

func (e *NoQueryError) Error() string {
	return fmt.Sprintf("no query generated: %s", e.Message)
}

const basePrompt = `You are an expert SQL assistant skilled in business analysis and comparisons.
Use the schema below to answer the user's question by writing a correct SQL query.

Rules:
- Generate ONLY read-only SQL starting with SELECT or WITH. Never generate INSERT, UPDATE, DELETE, DROP, CREATE, ALTER, or PRAGMA statements.
- Only use columns and tables that exist in the schema.
- Do not assume columns like "total" exist. Calculate them if needed.
- Use JOINs based on the foreign keys defined in the schema.
- Use sensible table aliases for clarity.
- When the user compares periods or groups, show both sides with clear aliases and calculate differences or growth when asked.
- If the user asks for "best" or "top" without a metric, assume total sales or count, with clear aliases.
- If the question cannot be answered from this database, respond with exactly one line starting with ` + NoQueryMarker + ` followed by a short explanation, and no SQL.
- Otherwise return ONLY the SQL query inside a ` + "```sql" + ` code block, nothing else.`

// dialectRules holds per-dialect prompt guidance, keyed by
// Adapter.DialectName values.
var dialectRules = map[string]string{
	"sqlite": `- Dialect: SQLite. Do NOT use TOP n; use LIMIT n at the end of the query.
- For year/month extraction use strftime('%Y', col) and strftime('%Y-%m', col), and use strftime for all date comparisons.`,
	"duckdb": `- Dialect: DuckDB. Use LIMIT n, and date_trunc('month', col) style functions for date handling.`,
	"postgres": `- Dialect: PostgreSQL. Use LIMIT n, and date_trunc('month', col) style functions for date handling.`,
}

// Generator produces candidate SQL from questions.
type Generator struct {
	client llm.Client
	logger *slog.Logger
}

// New creates a generator. A nil logger discards output.
func New(client llm.Client, logger *slog.Logger) *Generator {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Generator{client: client, logger: logger}
}

// Request carries the inputs for one generation.
type Request struct {
	// Question is the standalone (reformulated) question.
	Question string

	// SchemaFragments are the retrieved schema docs, best match first.
	// May be empty when retrieval is unavailable.
	SchemaFragments []string

	// Dialect selects dialect-specific prompt rules.
	Dialect string
}

// Generate returns the extracted candidate SQL. A *NoQueryError means
// the model declined; any other error is a generation failure.
func (g *Generator) Generate(ctx context.Context, req Request) (string, error) {
	system := basePrompt
	if rules, ok := dialectRules[req.Dialect]; ok {
		system += "\n" + rules
	}

	var b strings.Builder
	if len(req.SchemaFragments) > 0 {
		b.WriteString("Schema:\n")
		b.WriteString(strings.Join(req.SchemaFragments, "\n\n"))
		b.WriteString("\n\n")
	} else {
		b.WriteString("Schema: (unavailable; rely on standard naming and state assumptions in aliases)\n\n")
	}
	fmt.Fprintf(&b, "User Question:\n%s\n", req.Question)

	raw, err := g.client.Complete(ctx, system, b.String())
	if err != nil {
		return "", fmt.Errorf("sql generation failed: %w", err)
	}

	raw = strings.TrimSpace(raw)
	if msg, ok := noQueryMessage(raw); ok {
		return "", &NoQueryError{Message: msg}
	}

	sql := ExtractSQL(raw)
	if sql == "" {
		return "", fmt.Errorf("model response contained no SQL")
	}

	g.logger.Debug("sql generated", "question", req.Question, "sql", sql)
	return sql, nil
}

var sqlFence = regexp.MustCompile("(?s)```sql\\s*(.*?)```")

// ExtractSQL pulls the statement out of a ```sql fence, falling back to
// the bare text when it already looks like a statement.
func ExtractSQL(text string) string {
	if m := sqlFence.FindStringSubmatch(text); m != nil {
		return strings.TrimSpace(m[1])
	}

	text = strings.TrimSpace(text)
	upper := strings.ToUpper(text)
	if strings.HasPrefix(upper, "SELECT") || strings.HasPrefix(upper, "WITH") {
		return text
	}
	return ""
}

// noQueryMessage checks for the NO_QUERY marker on the first line.
func noQueryMessage(text string) (string, bool) {
	first, _, _ := strings.Cut(text, "\n")
	first = strings.TrimSpace(first)
	if !strings.HasPrefix(first, NoQueryMarker) {
		return "", false
	}

	msg := strings.TrimSpace(strings.TrimPrefix(first, NoQueryMarker))
	if msg == "" {
		msg = "the question cannot be answered from this database"
	}
	return msg, true
}
