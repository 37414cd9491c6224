package playback

import (
	"strings"
	"unicode"
)

// Normalize keeps only the letters and numbers of name, lowercased, so that
// spacing, punctuation and case do not matter when matching playlist names.
func Normalize(name string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsNumber(r) {
			return unicode.ToLower(r)
		}
		return -1
	}, name)
}
