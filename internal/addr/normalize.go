package addr

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// Normalize prepares a raw address string for classification: Unicode NFC
// (user spreadsheets often carry decomposed Hangul), unsupported
// characters replaced with spaces, and whitespace collapsed.
func Normalize(raw string) string {
	s := norm.NFC.String(raw)

	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if supported(r) {
			b.WriteRune(r)
		} else {
			b.WriteRune(' ')
		}
	}

	return strings.Join(strings.Fields(b.String()), " ")
}

// supported reports whether a rune may appear in a classifiable address.
// Letters and digits (Hangul included), plus the punctuation that occurs
// in Korean addresses: lot hyphens, middle dots, commas, parentheses.
func supported(r rune) bool {
	if unicode.IsLetter(r) || unicode.IsDigit(r) || r == ' ' {
		return true
	}
	switch r {
	case '-', '·', ',', '.', '(', ')':
		return true
	}
	return false
}
