package strtable

import "strings"

func trimmed(s string) string { return strings.TrimSpace(s) }

func contains(s, tok string, caseSensitive bool) bool {
	if caseSensitive {
		return strings.Contains(s, tok)
	}
	return strings.Contains(strings.ToLower(s), strings.ToLower(tok))
}
