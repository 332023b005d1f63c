// Package execute runs validated statements against a target database
// with a deadline and a hard row cap. It refuses anything that did not
// pass the safety validator; the read-only connection underneath is the
// last line of defense, not the first.
package execute

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/askdb-labs/askdb/internal/adapter"
	"github.com/askdb-labs/askdb/internal/safety"
)

// ErrNotValidated is returned when a statement arrives without an
// accepting validation result.
var ErrNotValidated = errors.New("statement was not accepted by the validator")

// ErrTimeout is returned when execution exceeds the configured deadline.
var ErrTimeout = errors.New("query execution timed out")

// Result holds the rows from one executed statement.
type Result struct {
	Columns []string
	DBTypes []string
	Rows    []map[string]any

	// Truncated is set when the scan stopped at the row cap.
	Truncated bool

	Duration time.Duration
}

// RowCount returns the number of scanned rows.
func (r *Result) RowCount() int {
	return len(r.Rows)
}

// Executor runs accepted statements with bounded time and rows.
type Executor struct {
	adapter adapter.Adapter
	timeout time.Duration
	maxRows int
	logger  *slog.Logger
}

// New creates an executor. A nil logger discards output.
func New(a adapter.Adapter, timeout time.Duration, maxRows int, logger *slog.Logger) *Executor {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Executor{adapter: a, timeout: timeout, maxRows: maxRows, logger: logger}
}

// Execute runs the normalized statement carried by an accepting
// validation result. The row cap applies regardless of the statement's
// LIMIT clause.
func (e *Executor) Execute(ctx context.Context, validation safety.Result) (*Result, error) {
	if validation.Outcome != safety.Accepted || validation.NormalizedStatement == "" {
		return nil, ErrNotValidated
	}

	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	start := time.Now()
	rows, err := e.adapter.Query(ctx, validation.NormalizedStatement)
	if err != nil {
		return nil, e.classify(ctx, err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to read columns: %w", err)
	}

	dbTypes := make([]string, len(columns))
	if colTypes, err := rows.ColumnTypes(); err == nil {
		for i, ct := range colTypes {
			dbTypes[i] = ct.DatabaseTypeName()
		}
	}

	result := &Result{Columns: columns, DBTypes: dbTypes}
	for rows.Next() {
		if e.maxRows > 0 && len(result.Rows) >= e.maxRows {
			result.Truncated = true
			break
		}

		values := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		row := make(map[string]any, len(columns))
		for i, col := range columns {
			if b, ok := values[i].([]byte); ok {
				values[i] = string(b)
			}
			row[col] = values[i]
		}
		result.Rows = append(result.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return nil, e.classify(ctx, err)
	}

	result.Duration = time.Since(start)
	e.logger.Debug("statement executed",
		"rows", result.RowCount(), "truncated", result.Truncated, "duration", result.Duration)
	return result, nil
}

// classify maps a driver error to the pipeline's taxonomy: deadline
// expiry becomes ErrTimeout, everything else stays an execution error.
func (e *Executor) classify(ctx context.Context, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return ErrTimeout
	}
	return fmt.Errorf("query execution failed: %w", err)
}
