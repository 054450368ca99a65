package config_test

import (
	_ "embed"
	"os"
	"path/filepath"
	"strings"
	"testing"

	. "github.com/jwizard/dbmigrator/pkg/config"
	"github.com/jwizard/dbmigrator/pkg/consts"
	"github.com/stretchr/testify/require"
)

//go:embed testdata/migrator.yaml
var testConfigYAML string

func TestLoadConfig(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		config, err := LoadConfig(strings.NewReader(testConfigYAML))
		require.NoError(t, err)
		validateTestConfig(t, config)
	})

	t.Run("error", func(t *testing.T) {
		// Invalid YAML
		config, err := LoadConfig(strings.NewReader("invalid: yaml: ["))
		require.Error(t, err)
		require.Nil(t, config)
		require.Contains(t, err.Error(), "failed to unmarshal migrator config")

		// Empty input
		config, err = LoadConfig(strings.NewReader(""))
		require.Error(t, err)
		require.Nil(t, config)

		// Valid YAML with no known fields
		config, err = LoadConfig(strings.NewReader("other_key: value"))
		require.NoError(t, err)
		require.Equal(t, Defaults(), config)
	})
}

func TestDefaults(t *testing.T) {
	config := Defaults()
	require.Equal(t, consts.DefaultMigrationsDir, config.Migrations)
	require.Equal(t, consts.DefaultTable, config.Table)
	require.Equal(t, "http://localhost:8761", config.Vault.Address)
	require.Equal(t, "jwizard", config.Vault.Backend)
	require.Equal(t, "common", config.Vault.Path)
	require.Empty(t, config.Pipelines)
}

func TestLoadConfigFile(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), consts.DefaultConfigFile)
		require.NoError(t, os.WriteFile(path, []byte(testConfigYAML), consts.ModeFile))

		config, err := LoadConfigFile(path)
		require.NoError(t, err)
		validateTestConfig(t, config)
	})

	t.Run("error", func(t *testing.T) {
		config, err := LoadConfigFile("nonexistent.yaml")
		require.Error(t, err)
		require.Nil(t, config)
		require.Contains(t, err.Error(), "failed to open file")
	})
}

func TestLoadOrDefault(t *testing.T) {
	dir := t.TempDir()

	config, err := LoadOrDefault(filepath.Join(dir, consts.DefaultConfigFile))
	require.NoError(t, err)
	require.Equal(t, Defaults(), config)

	path := filepath.Join(dir, consts.DefaultConfigFile)
	require.NoError(t, os.WriteFile(path, []byte(testConfigYAML), consts.ModeFile))

	config, err = LoadOrDefault(path)
	require.NoError(t, err)
	validateTestConfig(t, config)

	require.NoError(t, os.WriteFile(path, []byte("table: ["), consts.ModeFile))
	_, err = LoadOrDefault(path)
	require.Error(t, err)
}

func TestPipelineDir(t *testing.T) {
	config, err := LoadConfig(strings.NewReader(testConfigYAML))
	require.NoError(t, err)

	tests := []struct {
		name     string
		pipeline string
		expected string
		err      bool
	}{
		{name: "conventional", pipeline: "core", expected: "database/migrations/core"},
		{name: "trimmed", pipeline: "  core ", expected: "database/migrations/core"},
		{name: "explicit", pipeline: "legacy", expected: "scripts/legacy-sql"},
		{name: "empty", pipeline: "", err: true},
		{name: "blank", pipeline: "   ", err: true},
		{name: "parent", pipeline: "..", err: true},
		{name: "nested", pipeline: "core/extra", err: true},
		{name: "escape", pipeline: "../etc", err: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir, err := config.PipelineDir(tt.pipeline)
			if tt.err {
				require.ErrorIs(t, err, ErrUnknownPipeline)
				return
			}

			require.NoError(t, err)
			require.Equal(t, tt.expected, dir)
		})
	}
}

func TestListPipelines(t *testing.T) {
	dir := t.TempDir()

	config := Defaults()
	config.Migrations = filepath.Join(dir, "migrations")
	config.Pipelines = map[string]string{"legacy": "scripts/legacy"}

	names, err := config.ListPipelines()
	require.NoError(t, err)
	require.Equal(t, []string{"legacy"}, names)

	for _, name := range []string{"core", "audit", "legacy"} {
		require.NoError(t, os.MkdirAll(filepath.Join(config.Migrations, name), consts.ModeDir))
	}
	require.NoError(t, os.WriteFile(filepath.Join(config.Migrations, "README.md"), nil, consts.ModeFile))

	names, err = config.ListPipelines()
	require.NoError(t, err)
	require.Equal(t, []string{"audit", "core", "legacy"}, names)
}

// validateTestConfig validates that a config contains the expected test data
func validateTestConfig(t *testing.T, config *Config) {
	t.Helper()
	require.NotNil(t, config)
	require.Equal(t, "database/migrations", config.Migrations)
	require.Equal(t, "public.schema_history", config.Table)
	require.Equal(t, map[string]string{"legacy": "scripts/legacy-sql"}, config.Pipelines)
	require.Equal(t, "https://vault.jwizard.pl", config.Vault.Address)
	require.Equal(t, "jwizard-prod", config.Vault.Backend)
	require.Equal(t, "db", config.Vault.Path)
}
