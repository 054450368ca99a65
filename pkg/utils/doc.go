// Package utils provides small helpers shared by the migrator packages.
//
// # Identifier Utilities (identifier.go)
//
// The identifier utilities validate and quote PostgreSQL identifiers, such as the
// configurable bookkeeping table name, before they are interpolated into DDL:
//
//	if !utils.IsIdentifier(table) {
//		return errors.Errorf("invalid table name: %q", table)
//	}
//
//	quoted := utils.QuoteIdentifier("public.migrations")
//	// Result: "public"."migrations"
//
// # Text Utilities (text.go)
//
// The text utilities deal with user supplied strings that end up in the database or
// on disk:
//
//	// Truncate to a column width counted in characters, not bytes
//	author := utils.Truncate("Zażółć gęślą jaźń", 6)
//	// Result: Zażółć
//
//	// Turn a free-text description into a file name fragment
//	slug := utils.Slugify("Add users table!")
//	// Result: add_users_table
package utils
