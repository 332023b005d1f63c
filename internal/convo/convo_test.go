package convo

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHistoryOrderAndBounds(t *testing.T) {
	s := NewSession()
	for i := 0; i < 10; i++ {
		s.Append(NewTurn(fmt.Sprintf("question %d", i)))
	}

	require.Equal(t, 10, s.Len())

	recent := s.History(3)
	require.Len(t, recent, 3)
	assert.Equal(t, "question 7", recent[0].RawQuestion)
	assert.Equal(t, "question 9", recent[2].RawQuestion)

	all := s.History(100)
	require.Len(t, all, 10)
	assert.Equal(t, "question 0", all[0].RawQuestion)

	assert.Nil(t, s.History(0))
}

func TestHistoryReturnsCopies(t *testing.T) {
	s := NewSession()
	s.Append(NewTurn("original"))

	h := s.History(1)
	h[0].RawQuestion = "mutated"

	again := s.History(1)
	assert.Equal(t, "original", again[0].RawQuestion,
		"appended turns must be immutable")
}

func TestReset(t *testing.T) {
	s := NewSession()
	s.Append(NewTurn("a"))
	s.Append(NewTurn("b"))

	s.Reset()
	assert.Equal(t, 0, s.Len())
	assert.Nil(t, s.History(5))
}

func TestSessionIDs(t *testing.T) {
	a := NewSession()
	b := NewSession()
	assert.NotEqual(t, a.ID(), b.ID())

	c := NewSessionWithID("fixed")
	assert.Equal(t, "fixed", c.ID())
}

func TestTurnCreation(t *testing.T) {
	turn := NewTurn("show top artists")
	assert.NotEmpty(t, turn.ID)
	assert.Equal(t, "show top artists", turn.RawQuestion)
	assert.False(t, turn.CreatedAt.IsZero())
	assert.Equal(t, ValidationNone, turn.Validation)
}
