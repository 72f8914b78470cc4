// Package textutil prepares extracted document text for similarity comparison.
package textutil

import (
	"strings"
	"unicode"
)

// MaxStoredTextLength bounds how much normalized text is persisted per
// submission, which in turn bounds the cost of later comparisons.
const MaxStoredTextLength = 50000

// Normalize lower-cases the text, replaces every run of punctuation or
// symbols with a single space and collapses whitespace runs. The result is
// stable: normalizing already-normalized text returns it unchanged.
func Normalize(text string) string {
	var b strings.Builder
	b.Grow(len(text))

	lastSpace := false
	for _, r := range strings.ToLower(text) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_':
			b.WriteRune(r)
			lastSpace = false
		default:
			if !lastSpace {
				b.WriteByte(' ')
				lastSpace = true
			}
		}
	}

	return strings.TrimSpace(b.String())
}

// Truncate caps the text at limit runes. A non-positive limit leaves the
// text untouched.
func Truncate(text string, limit int) string {
	if limit <= 0 {
		return text
	}

	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}

	return string(runes[:limit])
}
