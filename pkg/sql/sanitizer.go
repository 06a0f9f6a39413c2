// Package sql contains the sanitizer that stands between the query generator
// and the database. Generator output is untrusted text: it may carry code
// fences, multiple statements, destructive keywords, or tables that do not
// exist. Each gate here rejects on first failure with a typed reason.
//
// The defense is lexical and allow-list based. The allow-list is the actual
// security boundary, not the generator's good behavior.
package sql

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/propfolio/insight-engine/pkg/apperrors"
)

// Reason categorizes why the sanitizer rejected a candidate statement.
// Reasons are safe to surface to callers; the offending SQL never is.
type Reason string

const (
	ReasonEmpty              Reason = "empty_statement"
	ReasonMultipleStatements Reason = "multiple_statements"
	ReasonNotReadOnly        Reason = "not_read_only"
	ReasonForbiddenKeyword   Reason = "forbidden_keyword"
	ReasonUnknownTable       Reason = "unknown_table"
)

// RejectionError reports a sanitizer gate failure. It unwraps to
// apperrors.ErrValidationRejected so callers can classify without importing
// this package's reasons.
type RejectionError struct {
	Reason Reason
}

func (e *RejectionError) Error() string {
	return fmt.Sprintf("%v: %s", apperrors.ErrValidationRejected, e.Reason)
}

func (e *RejectionError) Unwrap() error {
	return apperrors.ErrValidationRejected
}

// TableAllowList is the contract surface the sanitizer checks referenced
// tables against. Satisfied by *schema.Contract.
type TableAllowList interface {
	HasTable(name string) bool
}

// Statement is generator output that passed every gate. It carries the
// normalized text and the tables it touches, for audit logging.
type Statement struct {
	SQL    string
	Tables []string
}

// forbidden lists keywords that must never appear as standalone tokens in a
// generated statement, regardless of position.
var forbidden = map[string]bool{
	"INSERT": true, "UPDATE": true, "DELETE": true, "DROP": true,
	"ALTER": true, "TRUNCATE": true, "GRANT": true, "CREATE": true,
}

// modifyingCTEPattern matches CTEs that wrap data-modifying operations,
// e.g. WITH gone AS (DELETE FROM ...) SELECT * FROM gone. The forbidden-token
// gate catches these too; the pattern keeps WITH handling explicit.
var modifyingCTEPattern = regexp.MustCompile(`(?i)\bAS\s*\(\s*(INSERT|UPDATE|DELETE|MERGE)\b`)

// ctePattern captures CTE names so they are not mistaken for real tables,
// e.g. WITH monthly AS (SELECT ...) SELECT * FROM monthly.
var ctePattern = regexp.MustCompile(`(?i)\b([A-Za-z_][A-Za-z0-9_]*)\s+AS\s*\(`)

// Sanitize runs raw generator output through every gate in order and returns
// a validated Statement or a RejectionError. Sanitize is idempotent: feeding
// a validated statement back in yields the same decision and text.
func Sanitize(raw string, allow TableAllowList) (*Statement, error) {
	text := stripFences(raw)
	if text == "" {
		return nil, &RejectionError{Reason: ReasonEmpty}
	}

	normalized, ok := normalizeSingleStatement(text)
	if !ok {
		return nil, &RejectionError{Reason: ReasonMultipleStatements}
	}

	if !isReadOnlyForm(normalized) {
		return nil, &RejectionError{Reason: ReasonNotReadOnly}
	}

	for _, token := range wordTokens(normalized) {
		if forbidden[strings.ToUpper(token)] {
			return nil, &RejectionError{Reason: ReasonForbiddenKeyword}
		}
	}

	tables := referencedTables(normalized)
	for _, table := range tables {
		if !allow.HasTable(table) {
			return nil, &RejectionError{Reason: ReasonUnknownTable}
		}
	}

	return &Statement{SQL: normalized, Tables: tables}, nil
}

// stripFences removes markdown code-fence markers and surrounding whitespace.
// Generators routinely wrap SQL in ```sql ... ``` despite instructions not to.
func stripFences(raw string) string {
	text := strings.TrimSpace(raw)

	if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```")
		// Drop a language tag such as "sql" on the fence line.
		if idx := strings.IndexByte(text, '\n'); idx >= 0 {
			first := strings.TrimSpace(text[:idx])
			if len(first) <= 10 && !strings.ContainsAny(first, " \t") {
				text = text[idx+1:]
			}
		}
	}
	if idx := strings.LastIndex(text, "```"); idx >= 0 {
		text = text[:idx]
	}

	return strings.TrimSpace(text)
}

// normalizeSingleStatement strips one trailing semicolon and reports whether
// the remainder is a single statement. Any semicolon left outside string
// literals after normalization means a multi-statement attempt; the whole
// input is rejected rather than silently executing only the first statement.
func normalizeSingleStatement(text string) (string, bool) {
	text = strings.TrimRight(text, " \t\n\r")
	if strings.HasSuffix(text, ";") {
		text = strings.TrimRight(strings.TrimSuffix(text, ";"), " \t\n\r")
	}
	if hasSemicolonOutsideStrings(text) {
		return "", false
	}
	return text, true
}

// isReadOnlyForm accepts only SELECT and WITH ... SELECT statements.
func isReadOnlyForm(text string) bool {
	upper := strings.ToUpper(strings.TrimSpace(text))
	switch {
	case strings.HasPrefix(upper, "SELECT"):
		return true
	case strings.HasPrefix(upper, "WITH"):
		return !modifyingCTEPattern.MatchString(text)
	default:
		return false
	}
}

const (
	scanNormal = iota
	scanSingleQuote
	scanDoubleQuote
)

// hasSemicolonOutsideStrings scans the statement with quote tracking so that
// semicolons inside string literals or quoted identifiers do not count.
// Handles both backslash escapes (\') and SQL standard doubling ('').
func hasSemicolonOutsideStrings(text string) bool {
	state := scanNormal
	prev := rune(0)

	for _, ch := range text {
		switch state {
		case scanNormal:
			switch ch {
			case ';':
				return true
			case '\'':
				state = scanSingleQuote
			case '"':
				state = scanDoubleQuote
			}
		case scanSingleQuote:
			// A doubled quote ('') exits and immediately re-enters on the
			// next quote, which keeps us inside the literal.
			if ch == '\'' && prev != '\\' {
				state = scanNormal
			}
		case scanDoubleQuote:
			if ch == '"' && prev != '\\' {
				state = scanNormal
			}
		}
		prev = ch
	}

	return false
}

// wordTokens returns the bare word tokens of the statement, excluding the
// contents of string literals and quoted identifiers. Skipping literals keeps
// a vendor named 'DROP SHIPPING LLC' from tripping the keyword gate.
func wordTokens(text string) []string {
	var tokens []string
	var current strings.Builder
	state := scanNormal
	prev := rune(0)

	flush := func() {
		if current.Len() > 0 {
			tokens = append(tokens, current.String())
			current.Reset()
		}
	}

	for _, ch := range text {
		switch state {
		case scanNormal:
			switch {
			case ch == '\'':
				flush()
				state = scanSingleQuote
			case ch == '"':
				flush()
				state = scanDoubleQuote
			case isWordRune(ch):
				current.WriteRune(ch)
			default:
				flush()
			}
		case scanSingleQuote:
			if ch == '\'' && prev != '\\' {
				state = scanNormal
			}
		case scanDoubleQuote:
			if ch == '"' && prev != '\\' {
				state = scanNormal
			}
		}
		prev = ch
	}
	flush()

	return tokens
}

func isWordRune(ch rune) bool {
	return ch == '_' || ch == '$' ||
		(ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z') || (ch >= '0' && ch <= '9')
}
