package strtable

import (
	"strings"

	"jarstrings/internal/strkind"
)

// Query selects rows from a table.
type Query struct {
	Text          string   // whitespace separated tokens; all must match
	HideEmpty     bool     // drop rows whose trimmed value is empty
	CaseSensitive bool
	Kinds         []string // if set, rows must carry one of these kinds
}

// Tokens splits the query text on whitespace.
func (q Query) Tokens() []string {
	return strings.Fields(q.Text)
}

// Filter returns the rows matching q in their original order. With a
// non-empty query every returned row carries the tokens in Highlight.
func Filter(rows []FoundString, q Query) []FoundString {
	tokens := q.Tokens()
	needles := tokens
	if !q.CaseSensitive {
		needles = make([]string, len(tokens))
		for i, tok := range tokens {
			needles[i] = strings.ToLower(tok)
		}
	}

	var out []FoundString
	for _, r := range rows {
		if q.HideEmpty && strings.TrimSpace(r.Value) == "" {
			continue
		}
		if len(q.Kinds) > 0 && !strkind.Has(r.Kinds, q.Kinds...) {
			continue
		}
		r.Highlight = nil
		if len(tokens) == 0 {
			out = append(out, r)
			continue
		}
		hay := r.Value
		if !q.CaseSensitive {
			hay = strings.ToLower(hay)
		}
		if containsAll(hay, needles) {
			r.Highlight = tokens
			out = append(out, r)
		}
	}
	return out
}

func containsAll(s string, tokens []string) bool {
	for _, tok := range tokens {
		if !strings.Contains(s, tok) {
			return false
		}
	}
	return true
}
