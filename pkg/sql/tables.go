package sql

import "strings"

// referencedTables performs a best-effort lexical scan for table identifiers
// in FROM and JOIN positions. CTE names declared in a WITH clause are excluded
// so that WITH monthly AS (...) SELECT ... FROM monthly does not read as a
// reference to an unknown table. Schema qualifiers are dropped; the contract
// speaks in bare table names.
func referencedTables(text string) []string {
	ctes := cteNames(text)
	tokens := tokenize(text)

	seen := make(map[string]bool)
	var tables []string

	record := func(name string) {
		key := strings.ToLower(name)
		if ctes[key] || seen[key] {
			return
		}
		seen[key] = true
		tables = append(tables, name)
	}

	// Tracks the word preceding each unclosed paren, so a FROM inside
	// EXTRACT(MONTH FROM ...) or SUBSTRING(... FROM 2) is not mistaken for a
	// table position. Subqueries still scan normally: their opening paren
	// follows IN, EXISTS, or nothing tabular.
	var parenFuncs []string

	for i := 0; i < len(tokens); i++ {
		t := tokens[i]
		if t.kind == tokenPunct {
			switch t.text {
			case "(":
				fn := ""
				if i > 0 && tokens[i-1].kind == tokenWord {
					fn = strings.ToUpper(tokens[i-1].text)
				}
				parenFuncs = append(parenFuncs, fn)
			case ")":
				if len(parenFuncs) > 0 {
					parenFuncs = parenFuncs[:len(parenFuncs)-1]
				}
			}
			continue
		}
		if t.kind != tokenWord {
			continue
		}
		switch strings.ToUpper(t.text) {
		case "FROM":
			if len(parenFuncs) > 0 && fromTakingFuncs[parenFuncs[len(parenFuncs)-1]] {
				continue
			}
			i = consumeTableRefs(tokens, i+1, true, record)
		case "JOIN":
			i = consumeTableRefs(tokens, i+1, false, record)
		}
	}

	return tables
}

// fromTakingFuncs are SQL functions whose argument syntax uses the FROM
// keyword positionally.
var fromTakingFuncs = map[string]bool{
	"EXTRACT": true, "SUBSTRING": true, "TRIM": true, "OVERLAY": true,
}

// cteNames collects the names bound by a WITH clause, lowercased.
func cteNames(text string) map[string]bool {
	names := make(map[string]bool)
	if !strings.HasPrefix(strings.ToUpper(strings.TrimSpace(text)), "WITH") {
		return names
	}
	for _, m := range ctePattern.FindAllStringSubmatch(text, -1) {
		names[strings.ToLower(m[1])] = true
	}
	return names
}

// aliasStoppers are keywords that terminate a table reference; a bare word
// after a table name that is not one of these is treated as an alias.
var aliasStoppers = map[string]bool{
	"ON": true, "USING": true, "WHERE": true, "GROUP": true, "ORDER": true,
	"HAVING": true, "LIMIT": true, "OFFSET": true, "UNION": true,
	"INTERSECT": true, "EXCEPT": true, "JOIN": true, "LEFT": true,
	"RIGHT": true, "INNER": true, "OUTER": true, "FULL": true, "CROSS": true,
	"NATURAL": true, "WINDOW": true, "FETCH": true, "FOR": true,
}

// consumeTableRefs reads one table reference (and, for FROM lists, any
// comma-separated continuation) starting at index j. It returns the index of
// the last consumed token. A leading parenthesis means a subquery; scanning
// simply resumes inside it on the next outer-loop pass.
func consumeTableRefs(tokens []token, j int, fromList bool, record func(string)) int {
	for {
		if j >= len(tokens) {
			return j - 1
		}
		if tokens[j].kind == tokenPunct {
			// Subquery or something non-tabular; let the outer scan proceed.
			return j - 1
		}

		name := tokens[j].text
		j++

		// Schema qualification: keep the final segment.
		for j+1 < len(tokens) && tokens[j].kind == tokenPunct && tokens[j].text == "." {
			name = tokens[j+1].text
			j += 2
		}
		record(name)

		// Optional AS and/or alias word.
		if j < len(tokens) && tokens[j].kind == tokenWord && strings.EqualFold(tokens[j].text, "AS") {
			j++
		}
		if j < len(tokens) && tokens[j].kind == tokenWord && !aliasStoppers[strings.ToUpper(tokens[j].text)] {
			j++
		}

		// FROM lists may continue with a comma; JOIN clauses never do.
		if fromList && j < len(tokens) && tokens[j].kind == tokenPunct && tokens[j].text == "," {
			j++
			continue
		}
		return j - 1
	}
}

type tokenKind int

const (
	tokenWord tokenKind = iota
	tokenQuoted
	tokenPunct
)

type token struct {
	kind tokenKind
	text string
}

// tokenize splits the statement into word, quoted-identifier, and punctuation
// tokens. String literal contents are skipped entirely.
func tokenize(text string) []token {
	var tokens []token
	var current strings.Builder
	state := scanNormal
	prev := rune(0)

	flushWord := func() {
		if current.Len() > 0 {
			tokens = append(tokens, token{kind: tokenWord, text: current.String()})
			current.Reset()
		}
	}

	for _, ch := range text {
		switch state {
		case scanNormal:
			switch {
			case ch == '\'':
				flushWord()
				state = scanSingleQuote
			case ch == '"':
				flushWord()
				state = scanDoubleQuote
			case isWordRune(ch):
				current.WriteRune(ch)
			case ch == ' ' || ch == '\t' || ch == '\n' || ch == '\r':
				flushWord()
			default:
				flushWord()
				tokens = append(tokens, token{kind: tokenPunct, text: string(ch)})
			}
		case scanSingleQuote:
			if ch == '\'' && prev != '\\' {
				state = scanNormal
			}
		case scanDoubleQuote:
			if ch == '"' && prev != '\\' {
				tokens = append(tokens, token{kind: tokenQuoted, text: current.String()})
				current.Reset()
				state = scanNormal
			} else {
				current.WriteRune(ch)
			}
		}
		prev = ch
	}
	flushWord()

	return tokens
}
