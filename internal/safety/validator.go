// Package safety is the security gate of the query pipeline. It performs
// deterministic token-level static analysis of candidate SQL before any
// execution. It never calls a language model, and it rejects on any
// ambiguity: a statement that cannot be cleanly lexed is never executed.
package safety

import (
	"fmt"
	"strconv"
	"strings"
)

// Outcome is the validation decision.
type Outcome int

const (
	// Rejected means the statement must not reach the database.
	Rejected Outcome = iota
	// Accepted means the normalized statement may be executed.
	Accepted
)

// Reason classifies why a statement was rejected.
type Reason string

const (
	ReasonNone              Reason = ""
	ReasonStatementStacking Reason = "statement_stacking"
	ReasonForbiddenKeyword  Reason = "forbidden_keyword"
	ReasonRestrictedTable   Reason = "restricted_table"
	ReasonParseFailure      Reason = "parse_failure"
)

// Result is the outcome of validating one candidate statement.
type Result struct {
	Outcome Outcome
	Reason  Reason

	// Message is a user-visible explanation for rejections.
	Message string

	// NormalizedStatement is the accepted statement with a row limit
	// injected or clamped. Empty when rejected.
	NormalizedStatement string
}

// Policy configures the validator.
type Policy struct {
	// MaxRows caps result size. Statements without a top-level LIMIT get
	// one injected; larger limits are clamped down.
	MaxRows int

	// AllowedSystemTables whitelists catalog tables (lowercase names)
	// that generated queries may reference.
	AllowedSystemTables []string
}

// forbiddenKeywords are rejected wherever they appear as a real token:
// in subqueries, after separators, anywhere. String literals and quoted
// identifiers never match, so data containing these words passes.
var forbiddenKeywords = map[string]struct{}{
	"insert": {}, "update": {}, "delete": {}, "drop": {}, "alter": {},
	"create": {}, "replace": {}, "truncate": {}, "grant": {}, "revoke": {},
	"attach": {}, "detach": {}, "pragma": {}, "vacuum": {}, "reindex": {},
	"begin": {}, "commit": {}, "rollback": {}, "savepoint": {}, "release": {},
	"copy": {}, "call": {}, "merge": {}, "exec": {}, "execute": {},
	"set": {}, "load": {}, "install": {},
}

// restrictedPrefixes mark database catalog namespaces whose tables leak
// schema or credentials beyond the intended dataset.
var restrictedPrefixes = []string{"sqlite_", "pg_", "duckdb_"}

const restrictedSchema = "information_schema"

// Validator performs static safety analysis of candidate SQL.
type Validator struct {
	maxRows int
	allowed map[string]struct{}
}

// NewValidator creates a validator with the given policy.
func NewValidator(policy Policy) *Validator {
	maxRows := policy.MaxRows
	if maxRows <= 0 {
		maxRows = 500
	}
	allowed := make(map[string]struct{}, len(policy.AllowedSystemTables))
	for _, t := range policy.AllowedSystemTables {
		allowed[strings.ToLower(t)] = struct{}{}
	}
	return &Validator{maxRows: maxRows, allowed: allowed}
}

// MaxRows returns the configured row cap.
func (v *Validator) MaxRows() int {
	return v.maxRows
}

// Validate analyzes one candidate statement and returns the decision.
// Validation is idempotent: re-validating an accepted normalized
// statement yields the same normalized statement.
func (v *Validator) Validate(statement string) Result {
	trimmed := strings.TrimSpace(statement)
	if trimmed == "" {
		return reject(ReasonParseFailure, "empty statement")
	}

	lexer := NewLexer(trimmed)
	tokens := lexer.Tokens()
	if err := lexer.Err(); err != nil {
		return reject(ReasonParseFailure, err.Error())
	}
	for _, tok := range tokens {
		if tok.Type == TokenIllegal {
			return reject(ReasonParseFailure, fmt.Sprintf("unexpected character %q", tok.Literal))
		}
	}

	// Strip EOF for the scans below.
	tokens = tokens[:len(tokens)-1]
	if len(tokens) == 0 {
		return reject(ReasonParseFailure, "empty statement")
	}

	if r := v.checkForbiddenKeywords(tokens); r != nil {
		return *r
	}
	if r := v.checkStatementType(tokens); r != nil {
		return *r
	}
	if r := v.checkStacking(tokens); r != nil {
		return *r
	}
	if r := v.checkRestrictedTables(tokens); r != nil {
		return *r
	}

	normalized, ok := v.normalizeLimit(trimmed, tokens)
	if !ok {
		return reject(ReasonParseFailure, "could not determine row limit")
	}

	return Result{Outcome: Accepted, NormalizedStatement: normalized}
}

func reject(reason Reason, detail string) Result {
	return Result{
		Outcome: Rejected,
		Reason:  reason,
		Message: rejectionMessage(reason, detail),
	}
}

func rejectionMessage(reason Reason, detail string) string {
	switch reason {
	case ReasonStatementStacking:
		return "query rejected: multiple statements are not allowed (" + detail + ")"
	case ReasonForbiddenKeyword:
		return "query rejected: only read-only SELECT statements are allowed (" + detail + ")"
	case ReasonRestrictedTable:
		return "query rejected: access to system tables is not allowed (" + detail + ")"
	default:
		return "query rejected: statement could not be analyzed (" + detail + ")"
	}
}

// checkForbiddenKeywords rejects any DDL/DML/transaction keyword token.
// REPLACE is allowed only in function-call form, REPLACE(...), since its
// statement form is always REPLACE INTO.
func (v *Validator) checkForbiddenKeywords(tokens []Token) *Result {
	for i, tok := range tokens {
		if tok.Type != TokenIdent || tok.Quoted {
			continue
		}
		word := strings.ToLower(tok.Literal)
		if _, bad := forbiddenKeywords[word]; !bad {
			continue
		}
		if word == "replace" && i+1 < len(tokens) && tokens[i+1].Type == TokenLParen {
			continue
		}
		r := reject(ReasonForbiddenKeyword, strings.ToUpper(word))
		return &r
	}
	return nil
}

// checkStatementType requires the statement to start with SELECT or WITH.
func (v *Validator) checkStatementType(tokens []Token) *Result {
	first := tokens[0]
	if first.Type == TokenIdent && !first.Quoted {
		switch strings.ToLower(first.Literal) {
		case "select", "with":
			return nil
		}
	}
	r := reject(ReasonForbiddenKeyword, "statement must start with SELECT or WITH")
	return &r
}

// checkStacking allows at most one terminating semicolon. A semicolon
// followed by anything else means a second statement was stacked on.
func (v *Validator) checkStacking(tokens []Token) *Result {
	for i, tok := range tokens {
		if tok.Type != TokenSemicolon {
			continue
		}
		if i != len(tokens)-1 {
			r := reject(ReasonStatementStacking, "content after statement terminator")
			return &r
		}
	}
	return nil
}

// checkRestrictedTables rejects references to catalog namespaces. The
// scan is deliberately broad: every identifier is checked on its own,
// so qualified forms (main.sqlite_master) cannot hide a catalog table.
// Whitelisting is by bare lowercase name.
func (v *Validator) checkRestrictedTables(tokens []Token) *Result {
	for _, tok := range tokens {
		if tok.Type != TokenIdent {
			continue
		}
		name := strings.ToLower(tok.Literal)
		if !v.isRestricted(name) {
			continue
		}
		if _, ok := v.allowed[name]; ok {
			continue
		}
		r := reject(ReasonRestrictedTable, name)
		return &r
	}
	return nil
}

func (v *Validator) isRestricted(name string) bool {
	if name == restrictedSchema {
		return true
	}
	for _, prefix := range restrictedPrefixes {
		if strings.HasPrefix(name, prefix) {
			return true
		}
	}
	return false
}

// normalizeLimit injects a top-level LIMIT when absent and clamps
// existing limits to the policy maximum. Rewrites happen by byte offset
// so the rest of the statement text is preserved exactly.
func (v *Validator) normalizeLimit(statement string, tokens []Token) (string, bool) {
	type clampEdit struct {
		offset int
		length int
		value  int
	}

	var edits []clampEdit
	depth := 0
	sawLimit := false

	for i, tok := range tokens {
		switch tok.Type {
		case TokenLParen:
			depth++
		case TokenRParen:
			depth--
		case TokenIdent:
			if depth != 0 || tok.Quoted || !strings.EqualFold(tok.Literal, "limit") {
				continue
			}
			if i+1 >= len(tokens) || tokens[i+1].Type != TokenNumber {
				// LIMIT with a non-literal bound cannot be clamped
				// deterministically; fail safe.
				return "", false
			}
			sawLimit = true

			// LIMIT <offset>, <count>: the second number is the row
			// bound. Otherwise the first number is.
			bound := tokens[i+1]
			if i+2 < len(tokens) && tokens[i+2].Type == TokenComma {
				if i+3 >= len(tokens) || tokens[i+3].Type != TokenNumber {
					return "", false
				}
				bound = tokens[i+3]
			}

			n, err := strconv.Atoi(bound.Literal)
			if err != nil || n < 0 {
				return "", false
			}
			if n > v.maxRows {
				edits = append(edits, clampEdit{
					offset: bound.Offset,
					length: len(bound.Literal),
					value:  v.maxRows,
				})
			}
		}
	}

	if sawLimit {
		// Apply clamps back to front so offsets stay valid.
		out := statement
		for i := len(edits) - 1; i >= 0; i-- {
			e := edits[i]
			out = out[:e.offset] + strconv.Itoa(e.value) + out[e.offset+e.length:]
		}
		return out, true
	}

	// No limit present: inject one before the trailing terminator.
	clause := " LIMIT " + strconv.Itoa(v.maxRows)
	if last := tokens[len(tokens)-1]; last.Type == TokenSemicolon {
		return statement[:last.Offset] + clause + statement[last.Offset:], true
	}
	return statement + clause, true
}
