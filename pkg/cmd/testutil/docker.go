package testutil

import (
	"context"
	"os/exec"
	"testing"
	"time"

	"github.com/jwizard/dbmigrator/pkg/docker"
	"github.com/stretchr/testify/require"
)

// SkipIfNoDocker skips the test if Docker is not available
func SkipIfNoDocker(t *testing.T) {
	t.Helper()

	// Check if Docker binary exists
	if _, err := exec.LookPath("docker"); err != nil {
		t.Skip("Docker not available")
	}

	// Check if Docker daemon is running
	cmd := exec.CommandContext(t.Context(), "docker", "ps")
	if err := cmd.Run(); err != nil {
		t.Skip("Docker daemon not running")
	}
}

// StartPostgresContainer starts a PostgreSQL container and returns it with its DSN.
// The container is stopped when the test finishes.
func StartPostgresContainer(t *testing.T) (*docker.Container, string) {
	t.Helper()

	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}
	SkipIfNoDocker(t)

	container := docker.New()
	t.Cleanup(func() {
		_ = container.Stop(context.Background())
	})

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()

	require.NoError(t, container.Start(ctx), "Failed to start PostgreSQL container")

	dsn, err := container.GetDSN(ctx)
	require.NoError(t, err, "Failed to get container DSN")

	return container, dsn
}
