// Package convo tracks conversation state for one pipeline session.
// A session owns an ordered, append-only list of turns; turns are
// immutable once appended and are only read back as reformulation
// context for later questions.
//
// A Session is not safe for concurrent use. Callers that serve one
// session from multiple goroutines (the HTTP server does) must
// serialize access externally; independent sessions share nothing.
package convo

import (
	"time"

	"github.com/askdb-labs/askdb/internal/viz"
	"github.com/google/uuid"
)

// Validation records the safety gate's decision for a turn.
type Validation string

const (
	// ValidationNone means no SQL was produced, so nothing was validated.
	ValidationNone Validation = ""
	// ValidationAccepted means the statement passed the safety gate.
	ValidationAccepted Validation = "accepted"
	// ValidationRejected means the statement was rejected before execution.
	ValidationRejected Validation = "rejected"
)

// Turn is one finalized question/answer exchange. Failed turns are
// recorded too, so later reformulation knows the prior attempt failed
// instead of treating it as established context.
type Turn struct {
	ID                   string
	RawQuestion          string
	ReformulatedQuestion string
	GeneratedSQL         string
	Validation           Validation
	RejectionReason      string

	// Error holds the terminal error kind for failed turns
	// ("no_query", "execution_error", "timeout"), empty on success.
	Error string

	Shape    viz.ResultShape
	VizMode  viz.Mode
	RowCount int

	CreatedAt time.Time
}

// NewTurn creates a turn for a raw question with a fresh ID.
func NewTurn(rawQuestion string) Turn {
	return Turn{
		ID:          uuid.New().String(),
		RawQuestion: rawQuestion,
		CreatedAt:   time.Now().UTC(),
	}
}

// Session owns the ordered turn list for one conversation.
type Session struct {
	id    string
	turns []Turn
}

// NewSession creates an empty session with a fresh ID.
func NewSession() *Session {
	return &Session{id: uuid.New().String()}
}

// NewSessionWithID creates an empty session with a caller-supplied ID
// (the HTTP server derives session IDs from cookies).
func NewSessionWithID(id string) *Session {
	return &Session{id: id}
}

// ID returns the session identifier.
func (s *Session) ID() string {
	return s.id
}

// Append adds a finalized turn. Turns are never reordered or mutated
// after this point.
func (s *Session) Append(turn Turn) {
	s.turns = append(s.turns, turn)
}

// Len returns the number of recorded turns.
func (s *Session) Len() int {
	return len(s.turns)
}

// History returns up to maxTurns of the most recent turns in
// chronological order (oldest first). The returned slice is a copy;
// mutating it does not affect the session.
func (s *Session) History(maxTurns int) []Turn {
	if maxTurns <= 0 || len(s.turns) == 0 {
		return nil
	}

	start := len(s.turns) - maxTurns
	if start < 0 {
		start = 0
	}

	out := make([]Turn, len(s.turns)-start)
	copy(out, s.turns[start:])
	return out
}

// Reset clears all turns, starting a fresh conversation.
func (s *Session) Reset() {
	s.turns = nil
}
