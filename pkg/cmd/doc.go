// Package cmd provides the CLI commands of db-migrator.
//
// Commands are built on urfave/cli/v3 and provided to the root command through
// the fx "commands" value group. Every command works on a named pipeline, a
// directory of YAML migration files resolved through the project configuration.
//
// # Available Commands
//
//   - migrate: Apply the pending migrations of a pipeline in one transaction
//   - status: Report applied, pending, modified, skipped and missing migrations
//   - new: Scaffold the next migration file of a pipeline
//   - pipelines: List the pipelines of the project
//   - sandbox: Apply a pipeline to a disposable PostgreSQL container
//
// # Global Options
//
// All commands support global flags:
//   - --dir, -d: Specify project directory (defaults to current directory)
//   - --config, -c: The configuration file (defaults to migrator.yaml)
//   - --verbose: Enable debug logging
//   - --help, -h: Display command help
//   - --version: Display version information
//
// # Database Connection
//
// The migrate and status commands connect with the --dsn flag when given.
// Otherwise the connection parameters are read from the V_DB_* secrets stored in
// Vault under the backend and path named in the configuration, authenticating
// with --vault-token or with --vault-username and --vault-password.
//
// # Example Usage
//
//	db-migrator pipelines
//	db-migrator new core "create users table" --author jane
//	db-migrator migrate core --dry-run
//	db-migrator migrate core
//	db-migrator status core
//	db-migrator --dir /srv/jwizard sandbox core --keep
package cmd
