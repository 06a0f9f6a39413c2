package sql

import (
	"regexp"
	"strings"
)

var asAliasPattern = regexp.MustCompile(`(?i)\s+as\s+("?)([A-Za-z_][A-Za-z0-9_]*)"?\s*$`)

// OutputColumns extracts the result column names of a SELECT statement with a
// simple lexical pass. It resolves AS aliases and strips table qualifiers,
// folding names the way PostgreSQL does: unquoted identifiers and bare
// function names lowercase, quoted identifiers keep their case. Used to
// cross-check canned catalog column contracts; returns nil for SELECT * or
// anything it cannot read.
func OutputColumns(sqlText string) []string {
	lower := strings.ToLower(sqlText)
	start := strings.Index(lower, "select")
	if start == -1 {
		return nil
	}
	start += len("select")

	// The list ends at the first FROM outside parentheses; a FROM inside
	// EXTRACT(... FROM ...) or a subquery does not count.
	end := topLevelFrom(lower, start)

	list := strings.TrimSpace(sqlText[start:end])
	if list == "" || strings.HasPrefix(list, "*") {
		return nil
	}

	var names []string
	for _, expr := range splitTopLevel(list) {
		expr = strings.TrimSpace(expr)
		if expr == "" {
			continue
		}
		names = append(names, columnName(expr))
	}
	return names
}

// topLevelFrom returns the index of the first FROM keyword at paren depth
// zero after start, or len(lower) when none exists.
func topLevelFrom(lower string, start int) int {
	depth := 0
	for i := start; i < len(lower); i++ {
		switch lower[i] {
		case '(':
			depth++
		case ')':
			depth--
		case 'f':
			if depth == 0 && strings.HasPrefix(lower[i:], "from") &&
				i > 0 && isSpaceByte(lower[i-1]) &&
				(i+4 == len(lower) || isSpaceByte(lower[i+4])) {
				return i
			}
		}
	}
	return len(lower)
}

func isSpaceByte(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r'
}

// splitTopLevel splits a SELECT list on commas outside parentheses.
func splitTopLevel(list string) []string {
	var parts []string
	var current strings.Builder
	depth := 0

	for _, ch := range list {
		switch ch {
		case '(':
			depth++
			current.WriteRune(ch)
		case ')':
			depth--
			current.WriteRune(ch)
		case ',':
			if depth == 0 {
				parts = append(parts, current.String())
				current.Reset()
			} else {
				current.WriteRune(ch)
			}
		default:
			current.WriteRune(ch)
		}
	}
	if current.Len() > 0 {
		parts = append(parts, current.String())
	}
	return parts
}

func columnName(expr string) string {
	if m := asAliasPattern.FindStringSubmatch(expr); m != nil {
		if m[1] == `"` {
			return m[2]
		}
		return strings.ToLower(m[2])
	}

	// Bare function call: PostgreSQL labels it with the function name.
	if idx := strings.IndexByte(expr, '('); idx >= 0 {
		return strings.ToLower(strings.TrimSpace(expr[:idx]))
	}

	// Table-qualified or quoted plain column.
	name := expr
	if idx := strings.LastIndexByte(name, '.'); idx >= 0 {
		name = name[idx+1:]
	}
	if strings.HasPrefix(name, `"`) {
		return strings.Trim(name, `"`)
	}
	return strings.ToLower(name)
}
