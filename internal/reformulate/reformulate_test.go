package reformulate

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/askdb-labs/askdb/internal/convo"
	"github.com/askdb-labs/askdb/internal/llm"
)

func TestNoHistorySkipsLLM(t *testing.T) {
	client := &llm.ScriptedClient{Responses: []string{"should never be used"}}
	r := New(client, 6, nil)

	got, err := r.Reformulate(context.Background(), "top 5 artists by sales", nil)
	require.NoError(t, err)
	assert.Equal(t, "top 5 artists by sales", got)
	assert.Empty(t, client.Calls, "no history must mean no LLM call")
}

func TestReformulateUsesHistory(t *testing.T) {
	client := &llm.ScriptedClient{
		Responses: []string{"What are the total sales for the top 5 artists in 2013?"},
	}
	r := New(client, 6, nil)

	prior := convo.NewTurn("top 5 artists by sales")
	prior.ReformulatedQuestion = "top 5 artists by sales"
	prior.GeneratedSQL = "SELECT Name FROM artists LIMIT 5"
	prior.Validation = convo.ValidationAccepted

	got, err := r.Reformulate(context.Background(), "only in 2013", []convo.Turn{prior})
	require.NoError(t, err)
	assert.Equal(t, "What are the total sales for the top 5 artists in 2013?", got)

	require.Len(t, client.Calls, 1)
	assert.Contains(t, client.Calls[0].UserPrompt, "Context SQL: SELECT Name FROM artists LIMIT 5")
	assert.Contains(t, client.Calls[0].UserPrompt, "Latest User Question: only in 2013")
}

func TestComparisonAugmentsPrompt(t *testing.T) {
	client := &llm.ScriptedClient{Responses: []string{"rewritten"}}
	r := New(client, 6, nil)

	_, err := r.Reformulate(context.Background(), "how does that compare to last quarter?",
		[]convo.Turn{convo.NewTurn("show Q4 revenue")})
	require.NoError(t, err)

	require.Len(t, client.Calls, 1)
	assert.Contains(t, client.Calls[0].UserPrompt, "COMPARISON")
}

func TestFailedTurnsAreLabelled(t *testing.T) {
	client := &llm.ScriptedClient{Responses: []string{"rewritten"}}
	r := New(client, 6, nil)

	rejected := convo.NewTurn("drop the users table")
	rejected.Validation = convo.ValidationRejected
	rejected.RejectionReason = "forbidden_keyword"

	_, err := r.Reformulate(context.Background(), "ok then just show them", []convo.Turn{rejected})
	require.NoError(t, err)

	require.Len(t, client.Calls, 1)
	assert.Contains(t, client.Calls[0].UserPrompt, "Previous attempt rejected: forbidden_keyword")
	assert.NotContains(t, client.Calls[0].UserPrompt, "Context SQL:")
}

func TestHistoryWindowIsBounded(t *testing.T) {
	client := &llm.ScriptedClient{Responses: []string{"rewritten"}}
	r := New(client, 2, nil)

	history := []convo.Turn{
		convo.NewTurn("question one"),
		convo.NewTurn("question two"),
		convo.NewTurn("question three"),
	}

	_, err := r.Reformulate(context.Background(), "and them?", history)
	require.NoError(t, err)

	require.Len(t, client.Calls, 1)
	assert.NotContains(t, client.Calls[0].UserPrompt, "question one")
	assert.Contains(t, client.Calls[0].UserPrompt, "question two")
	assert.Contains(t, client.Calls[0].UserPrompt, "question three")
}

func TestLLMFailureFallsBackToRawQuestion(t *testing.T) {
	client := &llm.ScriptedClient{Err: errors.New("rate limited")}
	r := New(client, 6, nil)

	got, err := r.Reformulate(context.Background(), "and in 2012?",
		[]convo.Turn{convo.NewTurn("sales by year")})
	require.NoError(t, err)
	assert.Equal(t, "and in 2012?", got)
}

func TestCancelledContextPropagates(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	client := &llm.ScriptedClient{Err: context.Canceled}
	r := New(client, 6, nil)

	_, err := r.Reformulate(ctx, "and in 2012?", []convo.Turn{convo.NewTurn("sales by year")})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDetectComparison(t *testing.T) {
	tests := []struct {
		question string
		want     bool
		kind     string
	}{
		{"north vs south", true, "versus"},
		{"how much did we grow? growth please", true, "growth"},
		{"revenue for last quarter", true, "time_period"},
		{"top 5 artists", false, ""},
	}

	for _, tt := range tests {
		t.Run(tt.question, func(t *testing.T) {
			got, kind := DetectComparison(tt.question)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.kind, kind)
		})
	}
}
