package cmd

import (
	"testing"

	"github.com/jwizard/dbmigrator/pkg/cmd/testutil"
	"github.com/stretchr/testify/require"
)

func TestPipelinesCommand(t *testing.T) {
	fixture := testutil.TestProject(t).
		WithPipeline("legacy", "scripts/legacy").
		WithMigrations("core",
			testutil.Migration{Name: "2024-01-10_00001_create_users.yml", SQL: "SELECT 1;", Rollback: "SELECT 1;"},
			testutil.Migration{Name: "2024-01-11_00002_add_email.yml", SQL: "SELECT 1;", Rollback: "SELECT 1;"},
		).
		WithFile("core", "readme.yml", "not a migration")
	t.Chdir(fixture.Dir)

	output, err := testutil.RunCommand(t, pipelines(testParams(nil)))
	require.NoError(t, err)
	require.Equal(t, ""+
		"PIPELINE  FILES  DIRECTORY\n"+
		"core      2      db/migrations/core\n"+
		"legacy    -      scripts/legacy\n",
		output,
	)
}

func TestPipelinesCommand_Empty(t *testing.T) {
	fixture := testutil.TestProject(t)
	t.Chdir(fixture.Dir)

	output, err := testutil.RunCommand(t, pipelines(testParams(nil)))
	require.NoError(t, err)
	require.Equal(t, "No pipelines found in db/migrations\n", output)
}
