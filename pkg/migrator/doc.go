// Package migrator applies versioned, YAML defined SQL migrations to a database
// exactly once.
//
// The package handles the core migration lifecycle:
//   - Discovering migration files in a directory and ordering them by the date and
//     sequence number encoded in their names
//   - Validating and parsing migration files into forward and rollback scripts
//   - Splitting scripts into individually executable statements
//   - Tracking applied migrations and their content fingerprints in a bookkeeping table
//   - Reverting the migrations applied by a batch when the batch fails
//
// # Migration Files
//
// Each migration is a single file named YYYY-MM-DD_NNNNN_<description>.yml:
//
//	author: jane
//	sql: |
//	  CREATE TABLE users (id BIGINT PRIMARY KEY);
//	  CREATE INDEX users_id_idx ON users (id);
//	rollback: |
//	  DROP TABLE users;
//
// Files lacking one of the sections, or with an empty section, are skipped with a
// warning. Statements are separated by ';'. The splitter does not understand SQL,
// so semicolons must not appear inside string literals or comments.
//
// # Bookkeeping
//
// Applied migrations are recorded with their author, UTC application time, base
// directory and the MD5 fingerprint of the raw file. Applied migrations are never
// re-applied; editing one only produces warnings on later runs.
//
// # Transactions
//
// A Migrator issues statements against a connection owned by the caller, usually
// a pgx.Tx, and never commits or rolls it back itself. Each migration runs inside a
// savepoint so that a failing statement leaves the transaction usable for
// ExecuteRevertMigrations.
package migrator
