// Package ingredient holds the canonical-name normalization shared by the
// store and the search engine. Matching against the ingredients table only
// works when both sides apply the same normalization.
package ingredient

import (
	"regexp"
	"strings"
)

var (
	parenthetical = regexp.MustCompile(`\(.*?\)`)
	punctuation   = regexp.MustCompile(`[^a-z0-9\s]`)
	whitespace    = regexp.MustCompile(`\s+`)
)

// Normalize converts an ingredient name to its canonical matching form:
// lowercased, parentheticals removed, punctuation stripped, whitespace
// collapsed. "Vitamin B-12 (as Cyanocobalamin)" becomes "vitamin b12".
func Normalize(name string) string {
	if name == "" {
		return ""
	}
	name = strings.ToLower(name)
	name = parenthetical.ReplaceAllString(name, "")
	name = punctuation.ReplaceAllString(name, "")
	name = whitespace.ReplaceAllString(name, " ")
	return strings.TrimSpace(name)
}

// NormalizeAll normalizes a list of names, preserving order
func NormalizeAll(names []string) []string {
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = Normalize(n)
	}
	return out
}
