package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/jwizard/dbmigrator/pkg/consts"
	"github.com/urfave/cli/v3"
	"go.uber.org/fx"
)

type (
	Params struct {
		fx.In

		Args       []string
		Commands   []*cli.Command `group:"commands"`
		Ctx        context.Context
		Lifecycle  fx.Lifecycle
		Shutdowner fx.Shutdowner
		Version    *Version
		Logger     *slog.Logger
		Level      *slog.LevelVar
	}

	Version struct {
		Version   string
		Commit    string
		Timestamp string
	}
)

// Run creates and executes the main db-migrator CLI application with the given
// command-line arguments. This function serves as the main entry point for all
// CLI operations and handles global configuration.
//
// The function creates a CLI application with:
//   - Global --dir flag for specifying the project directory
//   - Global --config flag naming the project configuration file
//   - Global --verbose flag enabling debug logging
//   - Command registration and routing
//   - Context propagation for cancellation support
//
// The CLI runs once the fx application has started. The application is shut
// down with exit code 1 when the command fails and 0 otherwise, and stopping the
// application waits for the running command to return.
//
// Example usage:
//
//	# Apply the core pipeline
//	db-migrator migrate core
//
//	# Run in a specific project directory
//	db-migrator --dir /path/to/project status core
func Run(p Params) {
	cli.VersionPrinter = func(cmd *cli.Command) {
		fmt.Fprintln(cmd.Writer, "Version:", p.Version.Version)
		fmt.Fprintln(cmd.Writer, "Commit:", p.Version.Commit)
		fmt.Fprintln(cmd.Writer, "Date:", p.Version.Timestamp)
	}

	app := newApp(p)

	done := make(chan struct{})
	p.Lifecycle.Append(fx.Hook{
		OnStart: func(context.Context) error {
			// migrations can outlast the fx start timeout
			go func() {
				defer close(done)

				code := 0
				if err := app.Run(p.Ctx, p.Args); err != nil {
					p.Logger.Error("Error running command", "err", err)
					code = 1
				}

				_ = p.Shutdowner.Shutdown(fx.ExitCode(code))
			}()

			return nil
		},
		// an interrupted command still releases its transaction or container
		OnStop: func(ctx context.Context) error {
			select {
			case <-done:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		},
	})
}

func newApp(p Params) *cli.Command {
	return &cli.Command{
		Name:  "db-migrator",
		Usage: "Apply versioned SQL migrations to PostgreSQL exactly once",
		Description: `db-migrator applies the YAML migration files of a pipeline to a PostgreSQL
database in a single transaction. Applied migrations are recorded together with
a fingerprint of their file, so they are never applied twice and later edits are
reported. When a migration fails, the migrations applied before it in the same
run are reverted with their rollback scripts.`,
		Version: p.Version.Version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "dir",
				Aliases:     []string{"d"},
				Usage:       "the project directory",
				Value:       ".",
				DefaultText: "Current directory",
				Config: cli.StringConfig{
					TrimSpace: true,
				},
			},
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "the project configuration file, relative to the project directory",
				Sources: cli.EnvVars("DB_MIGRATOR_CONFIG"),
				Value:   consts.DefaultConfigFile,
			},
			&cli.BoolFlag{
				Name:  "verbose",
				Usage: "enable debug logging",
			},
		},
		Before: func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
			if cmd.Bool("verbose") {
				p.Level.Set(slog.LevelDebug)
			}

			// Change to project directory first
			if err := os.Chdir(cmd.String("dir")); err != nil {
				return ctx, err
			}

			return ctx, nil
		},
		Commands: p.Commands,
	}
}
