package safety

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLexerSkipsCommentsAndStrings(t *testing.T) {
	l := NewLexer("SELECT 'a;b' -- trailing\n/* block ; */ FROM t;")
	tokens := l.Tokens()
	require.NoError(t, l.Err())

	var literals []string
	var types []TokenType
	for _, tok := range tokens {
		literals = append(literals, tok.Literal)
		types = append(types, tok.Type)
	}

	assert.Equal(t, []TokenType{
		TokenIdent, TokenString, TokenIdent, TokenIdent, TokenSemicolon, TokenEOF,
	}, types)
	assert.Equal(t, "SELECT", literals[0])
	assert.Equal(t, "'a;b'", literals[1])
	assert.Equal(t, "FROM", literals[2])
}

func TestLexerOffsets(t *testing.T) {
	input := "SELECT x LIMIT 42"
	l := NewLexer(input)
	tokens := l.Tokens()
	require.NoError(t, l.Err())

	last := tokens[len(tokens)-2] // before EOF
	assert.Equal(t, TokenNumber, last.Type)
	assert.Equal(t, "42", last.Literal)
	assert.Equal(t, "42", input[last.Offset:last.Offset+len(last.Literal)])
}

func TestLexerErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		err   error
	}{
		{"unterminated string", "SELECT 'abc", ErrUnterminatedString},
		{"unterminated comment", "SELECT 1 /* oops", ErrUnterminatedComment},
		{"unterminated quoted ident", `SELECT "col`, ErrUnterminatedIdent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := NewLexer(tt.input)
			l.Tokens()
			assert.ErrorIs(t, l.Err(), tt.err)
		})
	}
}

func TestLexerQuotedIdentIsNeverKeyword(t *testing.T) {
	l := NewLexer(`SELECT "drop" FROM t`)
	tokens := l.Tokens()
	require.NoError(t, l.Err())

	assert.Equal(t, TokenIdent, tokens[1].Type)
	assert.True(t, tokens[1].Quoted)
	assert.Equal(t, "drop", tokens[1].Literal)
}
