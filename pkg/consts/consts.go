package consts

import "os"

const (
	// ModeDir is the standard file mode for creating directories
	ModeDir = os.FileMode(0o755)

	// ModeFile is the standard file mode for creating files
	ModeFile = os.FileMode(0o644)

	// DefaultConfigFile is the project configuration file looked up in the project directory
	DefaultConfigFile = "migrator.yaml"

	// DefaultMigrationsDir is the root directory holding one subdirectory per pipeline
	DefaultMigrationsDir = "db/migrations"

	// DefaultTable is the bookkeeping table recording applied migrations
	DefaultTable = "migrations"

	// MigrationExt is the extension of migration definition files
	MigrationExt = ".yml"

	// DefaultVaultAddress is the Vault server used when none is configured
	DefaultVaultAddress = "http://localhost:8761"

	// DefaultVaultBackend is the KV mount holding the database secrets
	DefaultVaultBackend = "jwizard"

	// DefaultVaultPath is the path inside the KV mount holding the database secrets
	DefaultVaultPath = "common"

	// DefaultPostgresVersion is the PostgreSQL image tag used for disposable containers
	DefaultPostgresVersion = "16"
)
