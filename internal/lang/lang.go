// Package lang implements the Tamil-script heuristics used to decide
// whether generated or translated text is actually in Tamil.
package lang

import (
	"strings"
	"unicode"
)

// DefaultLanguage is the language articles are summarized into.
const DefaultLanguage = "ta"

// Supported lists the language codes the read path will serve.
// Codes outside this set fall back to the default language.
var Supported = []string{"ta", "en", "hi"}

// IsSupported reports whether code is a serveable language code.
func IsSupported(code string) bool {
	for _, c := range Supported {
		if c == code {
			return true
		}
	}
	return false
}

func isTamilRune(r rune) bool {
	return r >= 0x0B80 && r <= 0x0BFF
}

func isLatinLetter(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}

// IsTamil classifies text as sufficiently Tamil: at least 30% of the
// non-whitespace runes must be in the Tamil block and at most 25% may be
// Latin letters. Empty or whitespace-only text is not Tamil.
func IsTamil(s string) bool {
	var tamil, latin, total int
	for _, r := range s {
		if unicode.IsSpace(r) {
			continue
		}
		total++
		switch {
		case isTamilRune(r):
			tamil++
		case isLatinLetter(r):
			latin++
		}
	}
	if total == 0 {
		return false
	}
	return tamil*10 >= total*3 && latin*4 <= total
}

// FilterTamil strips every rune that is not Tamil script, a digit,
// whitespace, or common punctuation. Used as the last-resort cleanup when
// a summary cannot be translated back into Tamil.
func FilterTamil(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case isTamilRune(r), unicode.IsDigit(r), unicode.IsSpace(r):
			b.WriteRune(r)
		case strings.ContainsRune(".,:;!?()'\"-–—%₹", r):
			b.WriteRune(r)
		}
	}
	return strings.TrimSpace(b.String())
}
