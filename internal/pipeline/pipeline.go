// Package pipeline orchestrates one conversational turn: reformulate
// the question from history, retrieve schema context, generate SQL,
// validate it, execute it, and pick a visualization. Every terminal
// state produces a well-formed Response and an appended, immutable
// turn; only cancellation leaves the session untouched.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/askdb-labs/askdb/internal/audit"
	"github.com/askdb-labs/askdb/internal/convo"
	"github.com/askdb-labs/askdb/internal/execute"
	"github.com/askdb-labs/askdb/internal/safety"
	"github.com/askdb-labs/askdb/internal/sqlgen"
	"github.com/askdb-labs/askdb/internal/viz"
)

// Outcome classifies how a turn ended.
type Outcome string

const (
	// OutcomeAnswered means SQL executed and results are attached.
	OutcomeAnswered Outcome = "answered"
	// OutcomeNoQuery means the model judged the question out of scope.
	OutcomeNoQuery Outcome = "no_query"
	// OutcomeRejected means the safety validator refused the SQL.
	OutcomeRejected Outcome = "rejected"
	// OutcomeExecutionError means the database refused a validated statement.
	OutcomeExecutionError Outcome = "execution_error"
	// OutcomeTimeout means a generative or database call ran out of budget.
	OutcomeTimeout Outcome = "timeout"
	// OutcomeGenerationError means the model failed to produce usable SQL.
	OutcomeGenerationError Outcome = "generation_error"
)

// Response is the caller-facing result of one turn. Message is set for
// every non-answered outcome and for empty results; callers render it
// instead of (or alongside) the table or chart.
type Response struct {
	SessionID string `json:"session_id"`
	TurnID    string `json:"turn_id"`

	Question             string  `json:"question"`
	ReformulatedQuestion string  `json:"reformulated_question,omitempty"`
	GeneratedSQL         string  `json:"generated_sql,omitempty"`
	Outcome              Outcome `json:"outcome"`
	Message              string  `json:"message,omitempty"`

	ViewMode  viz.Mode         `json:"view_mode"`
	Columns   []string         `json:"columns,omitempty"`
	Rows      []map[string]any `json:"rows,omitempty"`
	RowCount  int              `json:"row_count"`
	Truncated bool             `json:"truncated,omitempty"`
}

// Retriever finds schema fragments for a question. Failures degrade the
// turn, they never fail it.
type Retriever interface {
	Retrieve(ctx context.Context, question string) ([]string, error)
}

// Reformulator rewrites a follow-up question into a standalone one.
type Reformulator interface {
	Reformulate(ctx context.Context, question string, history []convo.Turn) (string, error)
}

// Generator produces candidate SQL for a standalone question.
type Generator interface {
	Generate(ctx context.Context, req sqlgen.Request) (string, error)
}

// Executor runs validated statements.
type Executor interface {
	Execute(ctx context.Context, validation safety.Result) (*execute.Result, error)
}

// Config wires a pipeline together.
type Config struct {
	Retriever    Retriever
	Reformulator Reformulator
	Generator    Generator
	Validator    *safety.Validator
	Executor     Executor
	Selector     *viz.Selector

	// Audit receives finalized turns, best effort. May be nil.
	Audit *audit.Store

	// Dialect is passed to the generator's prompt contract.
	Dialect string

	// HistoryTurns bounds reformulation context.
	HistoryTurns int

	Logger *slog.Logger
}

// Pipeline processes questions for sessions. A Pipeline is safe for
// concurrent use across sessions; turns within one session must be
// serialized by the caller.
type Pipeline struct {
	cfg    Config
	logger *slog.Logger
}

// New creates a pipeline.
func New(cfg Config) *Pipeline {
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.DiscardHandler)
	}
	if cfg.HistoryTurns <= 0 {
		cfg.HistoryTurns = 6
	}
	return &Pipeline{cfg: cfg, logger: cfg.Logger}
}

// Ask processes one question for a session. The returned error is
// non-nil only for cancellation; in that case nothing was appended to
// the session. All other failures finalize the turn and come back as a
// Response with the matching outcome.
func (p *Pipeline) Ask(ctx context.Context, session *convo.Session, question string) (*Response, error) {
	turn := convo.NewTurn(question)

	resp := &Response{
		SessionID: session.ID(),
		TurnID:    turn.ID,
		Question:  question,
		ViewMode:  viz.ModeTable,
	}

	history := session.History(p.cfg.HistoryTurns)

	reformulated, err := p.cfg.Reformulator.Reformulate(ctx, question, history)
	if err != nil {
		// The reformulator degrades internally; an error here is
		// cancellation.
		return nil, err
	}
	turn.ReformulatedQuestion = reformulated
	resp.ReformulatedQuestion = reformulated

	fragments, err := p.cfg.Retriever.Retrieve(ctx, reformulated)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		p.logger.Warn("schema retrieval unavailable, continuing without context",
			"session", session.ID(), "error", err)
		fragments = nil
	}

	statement, err := p.cfg.Generator.Generate(ctx, sqlgen.Request{
		Question:        reformulated,
		SchemaFragments: fragments,
		Dialect:         p.cfg.Dialect,
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		var noQuery *sqlgen.NoQueryError
		if errors.As(err, &noQuery) {
			resp.Outcome = OutcomeNoQuery
			resp.Message = noQuery.Message
			turn.Error = string(OutcomeNoQuery)
			return p.finalize(ctx, session, turn, resp), nil
		}

		resp.Outcome = OutcomeGenerationError
		resp.Message = "could not generate a query for that question, please rephrase"
		turn.Error = string(OutcomeGenerationError)
		p.logger.Warn("sql generation failed", "session", session.ID(), "error", err)
		return p.finalize(ctx, session, turn, resp), nil
	}
	turn.GeneratedSQL = statement
	resp.GeneratedSQL = statement

	validation := p.cfg.Validator.Validate(statement)
	if validation.Outcome != safety.Accepted {
		turn.Validation = convo.ValidationRejected
		turn.RejectionReason = string(validation.Reason)
		resp.Outcome = OutcomeRejected
		resp.Message = validation.Message
		p.logger.Warn("statement rejected",
			"session", session.ID(), "reason", validation.Reason, "sql", statement)
		return p.finalize(ctx, session, turn, resp), nil
	}
	turn.Validation = convo.ValidationAccepted
	turn.GeneratedSQL = validation.NormalizedStatement
	resp.GeneratedSQL = validation.NormalizedStatement

	result, err := p.cfg.Executor.Execute(ctx, validation)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(ctx.Err(), context.Canceled) {
			return nil, context.Canceled
		}

		if errors.Is(err, execute.ErrTimeout) {
			resp.Outcome = OutcomeTimeout
			resp.Message = "the query timed out, it is safe to try again"
			turn.Error = string(OutcomeTimeout)
		} else {
			resp.Outcome = OutcomeExecutionError
			resp.Message = fmt.Sprintf("the database rejected the query (%v), try rephrasing the question", err)
			turn.Error = string(OutcomeExecutionError)
		}
		return p.finalize(ctx, session, turn, resp), nil
	}

	shape := viz.InferShape(result.Columns, result.DBTypes, result.Rows)
	mode := p.cfg.Selector.Select(shape)

	turn.Shape = shape
	turn.VizMode = mode
	turn.RowCount = result.RowCount()

	resp.Outcome = OutcomeAnswered
	resp.ViewMode = mode
	resp.Columns = result.Columns
	resp.Rows = result.Rows
	resp.RowCount = result.RowCount()
	resp.Truncated = result.Truncated
	if result.RowCount() == 0 {
		resp.Message = "no results"
	}

	return p.finalize(ctx, session, turn, resp), nil
}

// finalize appends the turn and mirrors it to the audit log.
func (p *Pipeline) finalize(ctx context.Context, session *convo.Session, turn convo.Turn, resp *Response) *Response {
	session.Append(turn)

	if p.cfg.Audit != nil {
		// Audit writes should survive a cancelled request context.
		if err := p.cfg.Audit.Record(context.WithoutCancel(ctx), session.ID(), turn); err != nil {
			p.logger.Warn("failed to record turn in audit log", "turn", turn.ID, "error", err)
		}
	}

	p.logger.Info("turn finalized",
		"session", session.ID(), "turn", turn.ID, "outcome", resp.Outcome, "rows", resp.RowCount)
	return resp
}
