package docker

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/docker/go-connections/nat"
	"github.com/jwizard/dbmigrator/pkg/consts"
	"github.com/pkg/errors"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

const (
	// DefaultPostgresPort is the default port for the PostgreSQL server
	DefaultPostgresPort = 5432

	// DefaultDatabase is the database created in the container
	DefaultDatabase = "migrator"

	// DefaultUsername is the superuser created in the container
	DefaultUsername = "migrator"

	// DefaultPassword is the password of DefaultUsername
	DefaultPassword = "migrator"
)

type (
	// Options represents options for running PostgreSQL in Docker
	Options struct {
		// Version is the PostgreSQL image version to run (default: consts.DefaultPostgresVersion)
		Version string

		// Database is the database to create (default: DefaultDatabase)
		Database string

		// Username is the superuser to create (default: DefaultUsername)
		Username string

		// Password is the superuser password (default: DefaultPassword)
		Password string

		// InitScripts are SQL or shell files run once the server starts (relative
		// paths will be converted to absolute)
		InitScripts []string
	}

	// Container manages a disposable PostgreSQL Docker container for trying out
	// migrations and for integration tests
	Container struct {
		options   Options
		container *postgres.PostgresContainer
	}
)

// New creates a new Docker container with default options
//
// Example:
//
//	container := docker.New()
//
//	// Start PostgreSQL container
//	if err := container.Start(ctx); err != nil {
//		log.Fatal(err)
//	}
//	defer container.Stop(ctx)
func New() *Container {
	return NewWithOptions(Options{})
}

// NewWithOptions creates a new Docker container with custom options
//
// Example:
//
//	container := docker.NewWithOptions(docker.Options{
//		Version:     "16",
//		Database:    "jwizard",
//		InitScripts: []string{"testdata/roles.sql"},
//	})
//
//	if err := container.Start(ctx); err != nil {
//		log.Fatal(err)
//	}
//	defer container.Stop(ctx)
func NewWithOptions(opts Options) *Container {
	if opts.Version == "" {
		opts.Version = consts.DefaultPostgresVersion
	}
	if opts.Database == "" {
		opts.Database = DefaultDatabase
	}
	if opts.Username == "" {
		opts.Username = DefaultUsername
	}
	if opts.Password == "" {
		opts.Password = DefaultPassword
	}

	return &Container{options: opts}
}

// Options returns the effective container options.
func (c *Container) Options() Options {
	return c.options
}

// Start starts a PostgreSQL Docker container with the configured version
func (c *Container) Start(ctx context.Context) error {
	if c.container != nil {
		return errors.New("container is already running")
	}

	customizers := []testcontainers.ContainerCustomizer{
		postgres.WithDatabase(c.options.Database),
		postgres.WithUsername(c.options.Username),
		postgres.WithPassword(c.options.Password),
		testcontainers.WithWaitStrategyAndDeadline(
			2*time.Minute,
			// the server restarts once after the init scripts ran
			wait.ForLog("database system is ready to accept connections").WithOccurrence(2),
			wait.ForListeningPort(nat.Port(fmt.Sprintf("%d/tcp", DefaultPostgresPort))),
		),
	}

	if len(c.options.InitScripts) > 0 {
		scripts := make([]string, 0, len(c.options.InitScripts))
		for _, script := range c.options.InitScripts {
			abs, err := filepath.Abs(script)
			if err != nil {
				return errors.Wrapf(err, "failed to get absolute path for init script: %s", script)
			}
			scripts = append(scripts, abs)
		}

		customizers = append(customizers, postgres.WithInitScripts(scripts...))
	}

	container, err := postgres.Run(ctx,
		fmt.Sprintf("postgres:%s-alpine", c.options.Version),
		customizers...,
	)
	if err != nil {
		return errors.Wrap(err, "failed to start PostgreSQL container")
	}

	c.container = container
	return nil
}

// Stop stops and removes the PostgreSQL Docker container
func (c *Container) Stop(ctx context.Context) error {
	if c.container == nil {
		return nil // Already stopped
	}

	err := c.container.Terminate(ctx)
	c.container = nil

	if err != nil {
		return errors.Wrap(err, "failed to stop PostgreSQL container")
	}

	return nil
}

// GetDSN returns the DSN for connecting to the Docker PostgreSQL instance
func (c *Container) GetDSN(ctx context.Context) (string, error) {
	if c.container == nil {
		return "", errors.New("container is not running")
	}

	dsn, err := c.container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		return "", errors.Wrap(err, "failed to get connection string")
	}

	return dsn, nil
}

// IsRunning returns true if the container is currently running
func (c *Container) IsRunning() bool {
	return c.container != nil
}
