// Package strkind classifies string literals so that technical strings
// (URLs, paths, keys, identifiers) can be told apart from user-facing text.
package strkind

import (
	"math"
	"regexp"
	"slices"
	"strings"
	"unicode"
)

// Kinds assigned by Classify.
const (
	KindEmpty      = "empty"
	KindURL        = "url"
	KindHost       = "host"
	KindFile       = "file"
	KindFormat     = "format"     // printf verbs or MessageFormat placeholders
	KindIdentifier = "identifier" // class, member, key or constant names
	KindBase64     = "base64"
	KindMarkup     = "markup"
	KindSQL        = "sql"
	KindText       = "text" // natural-language text
)

var (
	reURL       = regexp.MustCompile(`(?i)\b(https?|wss?|ftp|file|jar|mailto):`)
	reIPLiteral = regexp.MustCompile(`\b\d{1,3}\.\d{1,3}\.\d{1,3}\.\d{1,3}\b`)
	reHost      = regexp.MustCompile(`(?i)^[a-z0-9-]+(\.[a-z0-9-]+)*\.(com|net|org|io|dev|app|edu|gov|co|de|fr|uk|jp|cn|ru)(:\d+)?$`)
	reBase64    = regexp.MustCompile(`^[A-Za-z0-9+/_-]{16,}={0,2}$`)
	reFormat    = regexp.MustCompile(`%(\d+\$)?[-#+ 0,(]*\d*(\.\d+)?[sdfxXcbeEgGnoh%]|\{\d+(,[^}]*)?\}`)
	reMarkup    = regexp.MustCompile(`</?[a-zA-Z][a-zA-Z0-9]*(\s[^<>]*)?/?>`)
	reSQL       = regexp.MustCompile(`(?i)^\s*(select\s.+\sfrom|insert\s+into|update\s+\S+\s+set|delete\s+from|create\s+(table|index))\b`)
	reIdent     = regexp.MustCompile(`^[A-Za-z_$][A-Za-z0-9_$]*([./:#-][A-Za-z_$<][A-Za-z0-9_$>]*)*$`)
	rePath      = regexp.MustCompile(`^(/|[A-Za-z]:\\|\./|\.\./|~/)?([\w.$-]+[/\\])+[\w.$-]*$`)

	fileExtensions = []string{
		".class", ".jar", ".java", ".properties", ".xml", ".json", ".yaml", ".yml",
		".png", ".jpg", ".gif", ".svg", ".ico", ".wav", ".mp3", ".ttf",
		".txt", ".html", ".css", ".js", ".so", ".dll", ".dylib",
		".db", ".sqlite", ".key", ".pem", ".crt", ".p12", ".jks",
	}
)

// Classify returns the kinds that apply to s, in a fixed order. A string
// gets KindText only when it looks like prose and nothing more specific
// applies.
func Classify(s string) []string {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return []string{KindEmpty}
	}

	var kinds []string
	if reURL.MatchString(trimmed) {
		kinds = append(kinds, KindURL)
	}
	if reIPLiteral.MatchString(trimmed) || reHost.MatchString(trimmed) {
		kinds = append(kinds, KindHost)
	}
	if isFile(trimmed) && !slices.Contains(kinds, KindURL) {
		kinds = append(kinds, KindFile)
	}
	if reFormat.MatchString(s) {
		kinds = append(kinds, KindFormat)
	}
	if reMarkup.MatchString(trimmed) {
		kinds = append(kinds, KindMarkup)
	}
	if reSQL.MatchString(trimmed) {
		kinds = append(kinds, KindSQL)
	}
	if looksLikeKey(trimmed) {
		kinds = append(kinds, KindBase64)
	} else if len(kinds) == 0 && reIdent.MatchString(trimmed) && !isWord(trimmed) {
		kinds = append(kinds, KindIdentifier)
	}

	technical := slices.ContainsFunc(kinds, func(k string) bool {
		return k != KindFormat && k != KindMarkup
	})
	if !technical && isProse(trimmed) {
		kinds = append(kinds, KindText)
	}
	return kinds
}

// Has reports whether kinds contains any of want.
func Has(kinds []string, want ...string) bool {
	for _, w := range want {
		if slices.Contains(kinds, w) {
			return true
		}
	}
	return false
}

func isFile(s string) bool {
	if strings.ContainsAny(s, " \t\n") {
		return false
	}
	lower := strings.ToLower(s)
	for _, ext := range fileExtensions {
		if strings.HasSuffix(lower, ext) && len(lower) > len(ext) {
			return true
		}
	}
	return rePath.MatchString(s) && strings.ContainsAny(s, "/\\")
}

// looksLikeKey flags long high-entropy tokens such as keys and hashes.
func looksLikeKey(s string) bool {
	if !reBase64.MatchString(s) || isCamelCase(s) && entropy(s) < 4.5 {
		return false
	}
	hasDigit := strings.ContainsFunc(s, unicode.IsDigit)
	return hasDigit && entropy(s) >= 3.5
}

// isWord reports whether s is a single word with no internal structure,
// like "Cancel", "ok" or "OK".
func isWord(s string) bool {
	upper, lowerAfterFirst := 0, false
	for i, r := range s {
		if !unicode.IsLetter(r) {
			return false
		}
		if unicode.IsUpper(r) {
			upper++
			if i > 0 && lowerAfterFirst {
				return false
			}
		} else if i > 0 {
			lowerAfterFirst = true
		}
	}
	return upper <= 1 || !lowerAfterFirst
}

// isProse: letters dominate and the string has either whitespace or is a
// plain word.
func isProse(s string) bool {
	letters, others := 0, 0
	for _, r := range s {
		switch {
		case unicode.IsLetter(r):
			letters++
		case unicode.IsSpace(r), unicode.IsPunct(r), unicode.IsDigit(r), unicode.IsSymbol(r):
			others++
		}
	}
	if letters == 0 {
		return false
	}
	if strings.ContainsFunc(s, unicode.IsSpace) {
		return letters*2 >= letters+others
	}
	return isWord(strings.TrimRight(s, ".!?:…"))
}

// isCamelCase returns true if the string has a lowercase-to-uppercase
// transition (e.g. "checkSimCard").
func isCamelCase(s string) bool {
	for i := 1; i < len(s); i++ {
		if s[i-1] >= 'a' && s[i-1] <= 'z' && s[i] >= 'A' && s[i] <= 'Z' {
			return true
		}
	}
	return false
}

// entropy computes Shannon entropy of a string in bits per character.
func entropy(s string) float64 {
	if len(s) == 0 {
		return 0
	}
	freq := make(map[byte]int)
	for i := 0; i < len(s); i++ {
		freq[s[i]]++
	}
	n := float64(len(s))
	var ent float64
	for _, count := range freq {
		p := float64(count) / n
		ent -= p * math.Log2(p)
	}
	return ent
}
