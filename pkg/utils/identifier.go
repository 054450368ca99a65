package utils

import (
	"regexp"
	"strings"

	"github.com/jackc/pgx/v5"
)

var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// IsIdentifier reports whether name is a plain, optionally schema qualified,
// identifier made of letters, digits and underscores.
//
// Examples:
//   - "migrations" -> true
//   - "public.migrations" -> true
//   - "1migrations" -> false
//   - "db.public.migrations" -> false
//   - "migrations; DROP TABLE users" -> false
//   - "" -> false
func IsIdentifier(name string) bool {
	parts := strings.Split(name, ".")
	if name == "" || len(parts) > 2 {
		return false
	}

	for _, part := range parts {
		if !identifierPattern.MatchString(part) {
			return false
		}
	}

	return true
}

// QuoteIdentifier double quotes an identifier, quoting each part of a schema
// qualified name separately.
//
// Examples:
//   - "migrations" -> "\"migrations\""
//   - "public.migrations" -> "\"public\".\"migrations\""
//   - "" -> ""
func QuoteIdentifier(name string) string {
	if name == "" {
		return ""
	}

	return pgx.Identifier(strings.Split(name, ".")).Sanitize()
}

// UnqualifiedName returns the last part of a schema qualified identifier.
//
// Examples:
//   - "public.migrations" -> "migrations"
//   - "migrations" -> "migrations"
func UnqualifiedName(name string) string {
	if i := strings.LastIndex(name, "."); i >= 0 {
		return name[i+1:]
	}

	return name
}
