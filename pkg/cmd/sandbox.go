package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/jwizard/dbmigrator/pkg/consts"
	"github.com/jwizard/dbmigrator/pkg/database"
	"github.com/jwizard/dbmigrator/pkg/docker"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v3"
)

// sandbox creates the sandbox command applying a pipeline to a disposable
// PostgreSQL container.
//
// The command starts a PostgreSQL container, applies the pipeline exactly like
// migrate does and prints the resulting status. With --keep the container keeps
// running, and its connection URL stays usable, until the command is interrupted.
//
// Example usage:
//
//	# Check that the core pipeline applies cleanly
//	db-migrator sandbox core
//
//	# Apply to PostgreSQL 15 and keep the container for manual inspection
//	db-migrator sandbox core --postgres-version 15 --keep
func sandbox(p commandParams) *cli.Command {
	return &cli.Command{
		Name:      "sandbox",
		Usage:     "Apply a pipeline to a disposable PostgreSQL container",
		ArgsUsage: "<pipeline>",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "postgres-version",
				Usage: "the postgres image version to run",
				Value: consts.DefaultPostgresVersion,
			},
			&cli.BoolFlag{
				Name:  "keep",
				Usage: "keep the container running until interrupted",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, err := p.loadConfig(cmd)
			if err != nil {
				return err
			}

			pl, err := p.resolvePipeline(cmd, cfg)
			if err != nil {
				return err
			}

			container := docker.NewWithOptions(docker.Options{Version: cmd.String("postgres-version")})

			pl.logger.Info("Starting PostgreSQL container", "version", container.Options().Version)
			if err := container.Start(ctx); err != nil {
				return errors.Wrap(err, "failed to start sandbox")
			}
			defer func() {
				stopCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
				defer cancel()

				if err := container.Stop(stopCtx); err != nil {
					pl.logger.Warn("Failed to stop PostgreSQL container", "err", err)
				}
			}()

			dsn, err := container.GetDSN(ctx)
			if err != nil {
				return err
			}

			conn, err := database.Connect(ctx, dsn)
			if err != nil {
				return err
			}
			defer func() { _ = conn.Close(context.Background()) }()

			w := cmd.Root().Writer
			applied, err := runPipeline(ctx, conn, pl, false, w)
			if err != nil {
				return err
			}

			inspections, err := inspectPipeline(ctx, conn, pl)
			if err != nil {
				return err
			}

			fmt.Fprintf(w, "Applied %d migration(s)\n\n", applied)
			if err := renderStatus(w, pl.name, pl.dir, inspections); err != nil {
				return err
			}

			if !cmd.Bool("keep") {
				return nil
			}

			fmt.Fprintf(w, "\nSandbox running at %s\nPress Ctrl+C to stop it.\n", dsn)
			<-ctx.Done()
			return nil
		},
	}
}
