package search

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// Normalize folds a display name or query into its canonical comparable
// form: lowercase, diacritics stripped (NFD decomposition with combining
// marks removed), every run of non-alphanumeric characters collapsed to a
// single space, surrounding whitespace trimmed. The result is idempotent.
func Normalize(s string) string {
	s = norm.NFD.String(strings.ToLower(s))

	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case unicode.Is(unicode.Mn, r):
			// Combining mark left over from decomposition.
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		default:
			b.WriteByte(' ')
		}
	}

	return strings.Join(strings.Fields(b.String()), " ")
}

// Tokens splits a normalized string into its whitespace-separated words.
func Tokens(s string) []string {
	return strings.Fields(s)
}
