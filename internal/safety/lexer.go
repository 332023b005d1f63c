package safety

import (
	"errors"
	"unicode"
)

// Lexing errors. Any lexing error means the statement cannot be analyzed
// and must be rejected (fail-safe).
var (
	ErrUnterminatedString  = errors.New("unterminated string literal")
	ErrUnterminatedComment = errors.New("unterminated block comment")
	ErrUnterminatedIdent   = errors.New("unterminated quoted identifier")
)

// Lexer tokenizes a SQL statement for static safety analysis.
// It does not interpret the statement; it only classifies bytes so the
// validator can reason about real tokens instead of raw text (comments
// and string contents never produce keyword tokens).
type Lexer struct {
	input   string
	pos     int  // current position in input
	readPos int  // reading position (after current char)
	ch      byte // current char under examination

	err error // first lexing error encountered
}

// NewLexer creates a new Lexer for the given input.
func NewLexer(input string) *Lexer {
	l := &Lexer{input: input}
	l.readChar()
	return l
}

// Err returns the first lexing error encountered, if any.
func (l *Lexer) Err() error {
	return l.err
}

// readChar advances to the next character.
func (l *Lexer) readChar() {
	if l.readPos >= len(l.input) {
		l.ch = 0 // ASCII NUL = EOF
	} else {
		l.ch = l.input[l.readPos]
	}
	l.pos = l.readPos
	l.readPos++
}

// peekChar returns the next character without advancing.
func (l *Lexer) peekChar() byte {
	if l.readPos >= len(l.input) {
		return 0
	}
	return l.input[l.readPos]
}

// Tokens lexes the entire input. The final token is TokenEOF unless a
// lexing error occurred, in which case Err() reports it.
func (l *Lexer) Tokens() []Token {
	var tokens []Token
	for {
		tok := l.NextToken()
		tokens = append(tokens, tok)
		if tok.Type == TokenEOF || l.err != nil {
			return tokens
		}
	}
}

// NextToken returns the next token.
func (l *Lexer) NextToken() Token {
	l.skipWhitespaceAndComments()
	if l.err != nil {
		return Token{Type: TokenEOF, Offset: l.pos}
	}

	offset := l.pos

	var tok Token
	tok.Offset = offset

	switch l.ch {
	case 0:
		tok.Type = TokenEOF
	case ';':
		tok.Type = TokenSemicolon
		tok.Literal = ";"
	case '(':
		tok.Type = TokenLParen
		tok.Literal = "("
	case ')':
		tok.Type = TokenRParen
		tok.Literal = ")"
	case '.':
		tok.Type = TokenDot
		tok.Literal = "."
	case ',':
		tok.Type = TokenComma
		tok.Literal = ","
	case '\'':
		tok.Type = TokenString
		tok.Literal = l.readString()
		return tok
	case '"':
		// Quoted identifier (ANSI style); never a keyword
		tok.Type = TokenIdent
		tok.Quoted = true
		tok.Literal = l.readQuoted('"')
		return tok
	case '`':
		// Backtick identifier (MySQL style)
		tok.Type = TokenIdent
		tok.Quoted = true
		tok.Literal = l.readQuoted('`')
		return tok
	case '[':
		// Bracket identifier (T-SQL style)
		tok.Type = TokenIdent
		tok.Quoted = true
		tok.Literal = l.readBracketIdent()
		return tok
	default:
		switch {
		case isLetter(l.ch) || l.ch == '_':
			tok.Type = TokenIdent
			tok.Literal = l.readIdentifier()
			return tok
		case isDigit(l.ch):
			tok.Type = TokenNumber
			tok.Literal = l.readNumber()
			return tok
		case isOperatorChar(l.ch):
			tok.Type = TokenOperator
			tok.Literal = string(l.ch)
		default:
			tok.Type = TokenIllegal
			tok.Literal = string(l.ch)
		}
	}

	l.readChar()
	return tok
}

// skipWhitespaceAndComments skips whitespace, line comments (-- ...) and
// block comments (/* ... */). An unterminated block comment is an error.
func (l *Lexer) skipWhitespaceAndComments() {
	for {
		for l.ch == ' ' || l.ch == '\t' || l.ch == '\n' || l.ch == '\r' {
			l.readChar()
		}

		if l.ch == '-' && l.peekChar() == '-' {
			for l.ch != '\n' && l.ch != 0 {
				l.readChar()
			}
			continue
		}

		if l.ch == '/' && l.peekChar() == '*' {
			l.readChar() // skip '/'
			l.readChar() // skip '*'
			closed := false
			for l.ch != 0 {
				if l.ch == '*' && l.peekChar() == '/' {
					l.readChar() // skip '*'
					l.readChar() // skip '/'
					closed = true
					break
				}
				l.readChar()
			}
			if !closed {
				l.err = ErrUnterminatedComment
				return
			}
			continue
		}

		break
	}
}

// readString reads a single-quoted string literal.
// Handles doubled single quotes as escape: 'it''s' -> it's
func (l *Lexer) readString() string {
	start := l.pos
	l.readChar() // skip opening quote

	for {
		switch {
		case l.ch == 0:
			l.err = ErrUnterminatedString
			return l.input[start:l.pos]
		case l.ch == '\'' && l.peekChar() == '\'':
			l.readChar()
			l.readChar()
		case l.ch == '\'':
			l.readChar() // skip closing quote
			return l.input[start:l.pos]
		default:
			l.readChar()
		}
	}
}

// readQuoted reads an identifier delimited by the given quote character.
// Doubled quotes escape the delimiter.
func (l *Lexer) readQuoted(quote byte) string {
	l.readChar() // skip opening quote

	start := l.pos
	for {
		switch {
		case l.ch == 0:
			l.err = ErrUnterminatedIdent
			return l.input[start:l.pos]
		case l.ch == quote && l.peekChar() == quote:
			l.readChar()
			l.readChar()
		case l.ch == quote:
			ident := l.input[start:l.pos]
			l.readChar() // skip closing quote
			return ident
		default:
			l.readChar()
		}
	}
}

// readBracketIdent reads a [bracketed] identifier.
func (l *Lexer) readBracketIdent() string {
	l.readChar() // skip '['

	start := l.pos
	for l.ch != ']' {
		if l.ch == 0 {
			l.err = ErrUnterminatedIdent
			return l.input[start:l.pos]
		}
		l.readChar()
	}
	ident := l.input[start:l.pos]
	l.readChar() // skip ']'
	return ident
}

// readIdentifier reads an unquoted identifier.
func (l *Lexer) readIdentifier() string {
	start := l.pos
	for isLetter(l.ch) || isDigit(l.ch) || l.ch == '_' || l.ch == '$' {
		l.readChar()
	}
	return l.input[start:l.pos]
}

// readNumber reads a numeric literal (integer, decimal, or scientific).
func (l *Lexer) readNumber() string {
	start := l.pos

	for isDigit(l.ch) {
		l.readChar()
	}

	if l.ch == '.' && isDigit(l.peekChar()) {
		l.readChar() // skip '.'
		for isDigit(l.ch) {
			l.readChar()
		}
	}

	if l.ch == 'e' || l.ch == 'E' {
		l.readChar()
		if l.ch == '+' || l.ch == '-' {
			l.readChar()
		}
		for isDigit(l.ch) {
			l.readChar()
		}
	}

	return l.input[start:l.pos]
}

func isLetter(ch byte) bool {
	return unicode.IsLetter(rune(ch))
}

func isDigit(ch byte) bool {
	return ch >= '0' && ch <= '9'
}

func isOperatorChar(ch byte) bool {
	switch ch {
	case '+', '-', '*', '/', '%', '=', '<', '>', '!', '|', '&', '~', '^', '?', ':', '@', '#':
		return true
	}
	return false
}
