// Package query guards LLM-translated Cypher before it reaches the graph.
// The guard is deliberately conservative: any statement containing a write
// clause outside a string literal is rejected, even though queries also run
// in a read-mode session.
package query

import (
	"strings"
	"unicode"

	"github.com/ontomap/ontomap-backend/internal/domain"
)

// Clauses that mutate the graph or its schema. CALL is handled separately
// because read procedures are legitimate.
var writeClauses = map[string]struct{}{
	"CREATE":  {},
	"MERGE":   {},
	"DELETE":  {},
	"DETACH":  {},
	"SET":     {},
	"REMOVE":  {},
	"DROP":    {},
	"FOREACH": {},
	"LOAD":    {},
}

// Procedure prefixes that perform writes or administration.
var unsafeProcedurePrefixes = []string{
	"db.create",
	"db.index",
	"db.constraints",
	"dbms.",
	"apoc.create",
	"apoc.merge",
	"apoc.refactor",
	"apoc.periodic",
	"apoc.load",
	"apoc.trigger",
	"apoc.export",
	"apoc.import",
}

// EnsureReadOnly scans a Cypher statement token by token, skipping string
// literals and comments, and returns a domain.UnsafeQueryError naming the
// first offending clause. An empty statement is rejected outright.
func EnsureReadOnly(cypher string) error {
	if strings.TrimSpace(cypher) == "" {
		return domain.NewUnsafeQueryError("empty statement")
	}

	tokens := tokenize(cypher)
	for i, tok := range tokens {
		upper := strings.ToUpper(tok)
		if _, bad := writeClauses[upper]; bad {
			return domain.NewUnsafeQueryError(upper)
		}
		if upper == "CALL" {
			proc := ""
			if i+1 < len(tokens) {
				proc = strings.ToLower(tokens[i+1])
			}
			for _, prefix := range unsafeProcedurePrefixes {
				if strings.HasPrefix(proc, prefix) {
					return domain.NewUnsafeQueryError("CALL " + proc)
				}
			}
		}
	}
	return nil
}

// tokenize splits a statement into bare word tokens, dropping the contents
// of single-quoted strings, double-quoted strings, backtick identifiers, and
// both comment forms so keywords inside literals cannot trip the guard.
func tokenize(s string) []string {
	var tokens []string
	var cur strings.Builder
	runes := []rune(s)

	flush := func() {
		if cur.Len() > 0 {
			tokens = append(tokens, cur.String())
			cur.Reset()
		}
	}

	for i := 0; i < len(runes); i++ {
		c := runes[i]
		switch {
		case c == '\'' || c == '"' || c == '`':
			flush()
			quote := c
			i++
			for i < len(runes) {
				if runes[i] == '\\' {
					i += 2
					continue
				}
				if runes[i] == quote {
					break
				}
				i++
			}
		case c == '/' && i+1 < len(runes) && runes[i+1] == '/':
			flush()
			for i < len(runes) && runes[i] != '\n' {
				i++
			}
		case c == '/' && i+1 < len(runes) && runes[i+1] == '*':
			flush()
			i += 2
			for i+1 < len(runes) && !(runes[i] == '*' && runes[i+1] == '/') {
				i++
			}
			i++
		case unicode.IsLetter(c) || unicode.IsDigit(c) || c == '_' || c == '.':
			cur.WriteRune(c)
		default:
			flush()
		}
	}
	flush()
	return tokens
}
