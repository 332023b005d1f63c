// Package reformulate rewrites follow-up questions into standalone
// questions using the conversation history, so schema retrieval and SQL
// generation never depend on pronouns or elided context.
package reformulate

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/askdb-labs/askdb/internal/convo"
	"github.com/askdb-labs/askdb/internal/llm"
)

const systemPrompt = `You are a helpful assistant rewriting questions to be standalone, understanding context and comparisons.

Rewrite the latest user question into a single standalone question that:
1. Captures context from the history, especially previously generated SQL.
2. Resolves pronouns: "their" means the entities from the previous query, "it" means the previous metric.
3. Keeps every filter and column the conversation has accumulated, and adds any the latest question introduces.
4. For comparisons, names BOTH items being compared.

If the latest question is unrelated to the history, return it verbatim.
Output ONLY the reformulated question, no explanations.`

// comparisonKeywords maps trigger phrases to a comparison category that
// is fed back into the prompt as guidance.
var comparisonKeywords = []struct {
	keyword string
	kind    string
}{
	{"vs", "versus"},
	{"versus", "versus"},
	{"compared to", "comparison"},
	{"compared with", "comparison"},
	{"difference", "difference"},
	{"growth", "growth"},
	{"change", "change"},
	{"increased", "trend"},
	{"decreased", "trend"},
	{"higher", "comparison"},
	{"lower", "comparison"},
	{"improvement", "trend"},
	{"decline", "trend"},
	{"quarter", "time_period"},
	{"month", "time_period"},
	{"year", "time_period"},
	{"last", "time_reference"},
	{"previous", "time_reference"},
}

// DetectComparison reports whether the question asks for a comparison
// and which kind. Matching is on lowercase substrings.
func DetectComparison(question string) (bool, string) {
	lower := strings.ToLower(question)
	for _, kw := range comparisonKeywords {
		if strings.Contains(lower, kw.keyword) {
			return true, kw.kind
		}
	}
	return false, ""
}

// Reformulator rewrites follow-up questions via the LLM.
type Reformulator struct {
	client       llm.Client
	historyTurns int
	logger       *slog.Logger
}

// New creates a reformulator. historyTurns bounds how many prior turns
// are included in the prompt. A nil logger discards output.
func New(client llm.Client, historyTurns int, logger *slog.Logger) *Reformulator {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Reformulator{client: client, historyTurns: historyTurns, logger: logger}
}

// Reformulate returns a standalone version of question. With no history
// the question is returned unchanged and the LLM is never called. If
// the LLM fails, the raw question is used and the failure is logged;
// a degraded rewrite beats a failed turn.
func (r *Reformulator) Reformulate(ctx context.Context, question string, history []convo.Turn) (string, error) {
	if len(history) == 0 {
		return question, nil
	}

	var b strings.Builder
	b.WriteString("Context History:\n")
	b.WriteString(formatHistory(history, r.historyTurns))
	fmt.Fprintf(&b, "\nLatest User Question: %s\n", question)

	if isComparison, kind := DetectComparison(question); isComparison {
		fmt.Fprintf(&b, "\nIMPORTANT: The user is asking for a COMPARISON (type: %s).\n", kind)
		b.WriteString(`Identify what is being compared and include BOTH the current state AND the comparison baseline.
Examples:
  "vs last quarter" means current quarter AND previous quarter
  "how much higher" means compare the two values
  "growth vs last year" means a year-over-year comparison
`)
	}

	rewritten, err := r.client.Complete(ctx, systemPrompt, b.String())
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		r.logger.Warn("question reformulation failed, using raw question", "error", err)
		return question, nil
	}

	rewritten = strings.TrimSpace(rewritten)
	if rewritten == "" {
		return question, nil
	}

	r.logger.Debug("question reformulated", "raw", question, "standalone", rewritten)
	return rewritten, nil
}

// formatHistory renders the most recent turns oldest first. Failed
// turns are labelled so the model does not treat them as established
// context.
func formatHistory(history []convo.Turn, maxTurns int) string {
	if maxTurns > 0 && len(history) > maxTurns {
		history = history[len(history)-maxTurns:]
	}

	var b strings.Builder
	for _, turn := range history {
		question := turn.ReformulatedQuestion
		if question == "" {
			question = turn.RawQuestion
		}
		fmt.Fprintf(&b, "User: %s\n", question)

		switch {
		case turn.Validation == convo.ValidationAccepted && turn.Error == "":
			fmt.Fprintf(&b, "(Context SQL: %s)\n", turn.GeneratedSQL)
		case turn.Validation == convo.ValidationRejected:
			fmt.Fprintf(&b, "(Previous attempt rejected: %s)\n", turn.RejectionReason)
		case turn.Error != "":
			fmt.Fprintf(&b, "(Previous attempt failed: %s)\n", turn.Error)
		}
	}
	return b.String()
}
