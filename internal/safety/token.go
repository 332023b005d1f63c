package safety

import "fmt"

// TokenType identifies the lexical class of a token.
type TokenType int

const (
	// TokenEOF marks the end of input.
	TokenEOF TokenType = iota
	// TokenIllegal marks a byte the lexer cannot classify.
	TokenIllegal
	// TokenIdent is an identifier (quoted or unquoted, keywords included).
	TokenIdent
	// TokenNumber is a numeric literal.
	TokenNumber
	// TokenString is a single-quoted string literal.
	TokenString
	// TokenSemicolon is a statement terminator.
	TokenSemicolon
	// TokenLParen and TokenRParen track nesting depth.
	TokenLParen
	TokenRParen
	// TokenDot joins qualified names (schema.table).
	TokenDot
	// TokenComma separates list items.
	TokenComma
	// TokenOperator covers all remaining operators and punctuation.
	TokenOperator
)

// Token is one lexical unit of a SQL statement.
type Token struct {
	Type    TokenType
	Literal string

	// Offset is the byte offset of the token's first character in the
	// original statement. Used for in-place limit rewriting.
	Offset int

	// Quoted is true for identifiers that were double-quoted, which
	// exempts them from keyword classification.
	Quoted bool
}

// String returns a readable form for error messages.
func (t Token) String() string {
	switch t.Type {
	case TokenEOF:
		return "<eof>"
	case TokenIllegal:
		return fmt.Sprintf("<illegal %q>", t.Literal)
	default:
		return t.Literal
	}
}
