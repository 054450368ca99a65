package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// RequireFileExists asserts that a file exists and optionally checks its content
func RequireFileExists(t *testing.T, path string, checks ...func(content string)) {
	t.Helper()

	require.FileExists(t, path, "File should exist: %s", path)

	if len(checks) > 0 {
		content, err := os.ReadFile(path)
		require.NoError(t, err, "Failed to read file: %s", path)

		for _, check := range checks {
			check(string(content))
		}
	}
}

// RequireFileContains returns a check function that verifies file contains text
func RequireFileContains(t *testing.T, expected string) func(string) {
	return func(content string) {
		require.Contains(t, content, expected, "File should contain: %s", expected)
	}
}

// RequireMigrationCount asserts the number of *.yml files in a pipeline directory
func RequireMigrationCount(t *testing.T, dir string, expectedCount int) {
	t.Helper()

	files, err := filepath.Glob(filepath.Join(dir, "*.yml"))
	require.NoError(t, err, "Failed to list migration files")
	require.Len(t, files, expectedCount, "Unexpected number of migration files in %s", dir)
}

// RequireError asserts that an error occurred and optionally checks the message
func RequireError(t *testing.T, err error, msgContains ...string) {
	t.Helper()

	require.Error(t, err)
	for _, msg := range msgContains {
		require.Contains(t, err.Error(), msg)
	}
}
