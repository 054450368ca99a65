package utils

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Truncate shortens s to at most n characters. Multi-byte characters are never split.
func Truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}

	if utf8.RuneCountInString(s) <= n {
		return s
	}

	runes := []rune(s)
	return string(runes[:n])
}

// Slugify lowercases s and replaces every run of characters outside [a-z0-9]
// with a single underscore. Leading and trailing underscores are removed.
//
// Examples:
//   - "Add users table" -> "add_users_table"
//   - "  drop -- legacy  " -> "drop_legacy"
//   - "!!!" -> ""
func Slugify(s string) string {
	var b strings.Builder
	pending := false

	for _, r := range strings.ToLower(s) {
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
			if pending && b.Len() > 0 {
				b.WriteByte('_')
			}
			b.WriteRune(r)
			pending = false
			continue
		}

		pending = true
	}

	return b.String()
}
