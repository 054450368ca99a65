package migrator_test

import (
	"embed"
	"io/fs"
	"path/filepath"
	"strings"
	"testing"

	. "github.com/jwizard/dbmigrator/pkg/migrator"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

//go:embed testdata/statements/*.yaml
var statementsFS embed.FS

type StatementsTestCase struct {
	Description string   `yaml:"description"`
	SQL         string   `yaml:"sql"`
	Expected    []string `yaml:"expected"`
}

func TestExtractSubqueries(t *testing.T) {
	yamlFiles, err := fs.Glob(statementsFS, "testdata/statements/*.yaml")
	require.NoError(t, err)
	require.NotEmpty(t, yamlFiles)

	for _, yamlPath := range yamlFiles {
		testName := strings.TrimSuffix(filepath.Base(yamlPath), ".yaml")

		t.Run(testName, func(t *testing.T) {
			data, err := statementsFS.ReadFile(yamlPath)
			require.NoError(t, err)

			var tc StatementsTestCase
			require.NoError(t, yaml.Unmarshal(data, &tc))

			stmts, err := ExtractSubqueries(tc.SQL)
			require.NoError(t, err)

			if len(tc.Expected) == 0 {
				require.Empty(t, stmts, tc.Description)
				return
			}

			require.Equal(t, tc.Expected, stmts, tc.Description)
		})
	}
}

func TestMigrationFileStatements(t *testing.T) {
	file := &MigrationFile{
		SQL:      "CREATE TABLE a (id INT);\nCREATE TABLE b (id INT);",
		Rollback: "DROP TABLE b;\nDROP TABLE a;",
	}

	stmts, err := file.Statements()
	require.NoError(t, err)
	require.Equal(t, []string{"CREATE TABLE a (id INT)", "CREATE TABLE b (id INT)"}, stmts)

	rollback, err := file.RollbackStatements()
	require.NoError(t, err)
	require.Equal(t, []string{"DROP TABLE b", "DROP TABLE a"}, rollback)
}

func TestExtractSubqueriesDropsNonASCIIWhitespaceFragments(t *testing.T) {
	for _, sql := range []string{"SELECT 1;\v;", "SELECT 1;\u00a0;", "SELECT 1;\u3000\t;"} {
		stmts, err := ExtractSubqueries(sql)
		require.NoError(t, err)
		require.Equal(t, []string{"SELECT 1"}, stmts, "%q", sql)
	}
}
