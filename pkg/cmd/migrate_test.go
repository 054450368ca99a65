package cmd

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jwizard/dbmigrator/pkg/cmd/testutil"
	"github.com/jwizard/dbmigrator/pkg/database"
	"github.com/stretchr/testify/require"
)

func tableExists(t *testing.T, dsn, table string) bool {
	t.Helper()

	conn, err := database.Connect(context.Background(), dsn)
	require.NoError(t, err)
	defer func() { _ = conn.Close(context.Background()) }()

	var exists bool
	err = conn.QueryRow(context.Background(), "SELECT to_regclass($1) IS NOT NULL", table).Scan(&exists)
	require.NoError(t, err)
	return exists
}

func countRecords(t *testing.T, dsn, table string) int {
	t.Helper()

	conn, err := database.Connect(context.Background(), dsn)
	require.NoError(t, err)
	defer func() { _ = conn.Close(context.Background()) }()

	var n int
	err = conn.QueryRow(context.Background(), "SELECT count(*) FROM "+pgx.Identifier{table}.Sanitize()).Scan(&n)
	require.NoError(t, err)
	return n
}

func TestMigrateCommand_Integration(t *testing.T) {
	_, dsn := testutil.StartPostgresContainer(t)

	fixture := testutil.TestProject(t).WithMigrations("core",
		testutil.Migration{
			Name:     "2024-01-10_00001_create_users.yml",
			SQL:      "CREATE TABLE users (id BIGINT PRIMARY KEY); CREATE INDEX users_id_idx ON users (id);",
			Rollback: "DROP TABLE users;",
		},
		testutil.Migration{
			Name:     "2024-01-11_00002_add_email.yml",
			SQL:      "ALTER TABLE users ADD COLUMN email TEXT;",
			Rollback: "ALTER TABLE users DROP COLUMN email;",
		},
	)
	t.Chdir(fixture.Dir)

	t.Run("dry run applies nothing", func(t *testing.T) {
		output, err := testutil.RunCommand(t, migrate(testParams(nil)), "--dsn", dsn, "--dry-run", "core")
		require.NoError(t, err)
		require.Contains(t, output, "-- 2024-01-10_00001_create_users.yml (author: tester)")
		require.Contains(t, output, "CREATE INDEX users_id_idx ON users (id);")
		require.Contains(t, output, "2 pending migration(s), nothing applied (dry run)")

		require.False(t, tableExists(t, dsn, "users"))
		require.False(t, tableExists(t, dsn, "migrations"))
	})

	t.Run("applies pending migrations", func(t *testing.T) {
		output, err := testutil.RunCommand(t, migrate(testParams(nil)), "--dsn", dsn, "core")
		require.NoError(t, err)
		require.Equal(t, "Applied 2 migration(s)\n", output)

		require.True(t, tableExists(t, dsn, "users"))
		require.Equal(t, 2, countRecords(t, dsn, "migrations"))
	})

	t.Run("second run applies nothing", func(t *testing.T) {
		output, err := testutil.RunCommand(t, migrate(testParams(nil)), "--dsn", dsn, "core")
		require.NoError(t, err)
		require.Equal(t, "Applied 0 migration(s)\n", output)
		require.Equal(t, 2, countRecords(t, dsn, "migrations"))
	})

	t.Run("failure reverts the run", func(t *testing.T) {
		fixture.WithMigrations("core",
			testutil.Migration{
				Name:     "2024-01-12_00003_create_orders.yml",
				SQL:      "CREATE TABLE orders (id BIGINT PRIMARY KEY);",
				Rollback: "DROP TABLE orders;",
			},
			testutil.Migration{
				Name:     "2024-01-13_00004_broken.yml",
				SQL:      "ALTER TABLE does_not_exist ADD COLUMN x INT;",
				Rollback: "SELECT 1;",
			},
		)

		_, err := testutil.RunCommand(t, migrate(testParams(nil)), "--dsn", dsn, "core")
		testutil.RequireError(t, err, "pipeline core failed", "2024-01-13_00004_broken.yml")

		require.False(t, tableExists(t, dsn, "orders"))
		require.Equal(t, 2, countRecords(t, dsn, "migrations"))
	})

	t.Run("status reports every file", func(t *testing.T) {
		output, err := testutil.RunCommand(t, status(testParams(nil)), "--dsn", dsn, "core")
		require.NoError(t, err)
		require.Contains(t, output, "Summary: 2 applied, 0 modified, 2 pending, 0 skipped, 0 missing")
	})
}

func TestMigrateCommand_RequiresPipeline(t *testing.T) {
	fixture := testutil.TestProject(t)
	t.Chdir(fixture.Dir)

	_, err := testutil.RunCommand(t, migrate(testParams(nil)), "--dsn", "postgres://localhost/none")
	testutil.RequireError(t, err, "a pipeline name is required")
}

func TestMigrateCommand_UnreachableDatabase(t *testing.T) {
	fixture := testutil.TestProject(t).WithMigrations("core",
		testutil.Migration{Name: "2024-01-10_00001_a.yml", SQL: "SELECT 1;", Rollback: "SELECT 1;"},
	)
	t.Chdir(fixture.Dir)

	_, err := testutil.RunCommand(t, migrate(testParams(nil)), "--dsn", "postgres://app@127.0.0.1:1/none?connect_timeout=1", "core")
	testutil.RequireError(t, err, "failed to connect to database")
}
