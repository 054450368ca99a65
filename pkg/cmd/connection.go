package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jwizard/dbmigrator/pkg/config"
	"github.com/jwizard/dbmigrator/pkg/consts"
	"github.com/jwizard/dbmigrator/pkg/database"
	"github.com/jwizard/dbmigrator/pkg/migrator"
	"github.com/jwizard/dbmigrator/pkg/secrets"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v3"
	"go.uber.org/fx"
)

var (
	// errDryRun and errReadOnly discard the transaction of a run that must not
	// leave any changes behind
	errDryRun   = errors.New("dry run")
	errReadOnly = errors.New("read only")
)

type (
	// SecretsOpener opens the secret store holding the database connection parameters.
	SecretsOpener func(ctx context.Context, cfg secrets.VaultConfig) (secrets.Store, error)

	commandParams struct {
		fx.In

		Loader  config.Loader
		Logger  *slog.Logger
		Secrets SecretsOpener
	}

	// pipeline is a resolved pipeline name and directory with the settings needed
	// to run it.
	pipeline struct {
		name   string
		dir    string
		table  string
		logger *slog.Logger
	}
)

func openVault(ctx context.Context, cfg secrets.VaultConfig) (secrets.Store, error) {
	store, err := secrets.NewVault(ctx, cfg)
	if err != nil {
		return nil, err
	}

	return store, nil
}

// connectionFlags returns new instances of the flags locating the database. Each
// command gets its own instances so flag state is never shared.
func connectionFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "dsn",
			Usage:   "PostgreSQL connection URL, bypasses the secret store",
			Sources: cli.EnvVars("DB_MIGRATOR_DSN"),
		},
		&cli.StringFlag{
			Name:        "vault-address",
			Usage:       "the Vault server holding the database secrets",
			Sources:     cli.EnvVars("VAULT_ADDR"),
			DefaultText: "vault.address from the config file",
		},
		&cli.StringFlag{
			Name:    "vault-token",
			Usage:   "the Vault token",
			Sources: cli.EnvVars("VAULT_TOKEN"),
		},
		&cli.StringFlag{
			Name:    "vault-username",
			Usage:   "log in to Vault with the userpass method as this user",
			Sources: cli.EnvVars("VAULT_USERNAME"),
		},
		&cli.StringFlag{
			Name:    "vault-password",
			Usage:   "the password of --vault-username",
			Sources: cli.EnvVars("VAULT_PASSWORD"),
		},
	}
}

// loadConfig loads the project configuration named by the global --config flag.
func (p commandParams) loadConfig(cmd *cli.Command) (*config.Config, error) {
	path := cmd.String("config")
	if path == "" {
		path = consts.DefaultConfigFile
	}

	cfg, err := p.Loader(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to load config: %s", path)
	}

	return cfg, nil
}

// resolvePipeline reads the pipeline argument and resolves its directory.
func (p commandParams) resolvePipeline(cmd *cli.Command, cfg *config.Config) (pipeline, error) {
	name := cmd.Args().First()
	if name == "" {
		return pipeline{}, errors.New("a pipeline name is required")
	}

	dir, err := cfg.PipelineDir(name)
	if err != nil {
		return pipeline{}, err
	}

	return pipeline{
		name:   name,
		dir:    dir,
		table:  cfg.Table,
		logger: p.Logger.With("pipeline", name),
	}, nil
}

// resolveDSN returns the --dsn flag when set, otherwise assembles the DSN from
// the database secrets stored in Vault.
func (p commandParams) resolveDSN(ctx context.Context, cmd *cli.Command, cfg *config.Config) (string, error) {
	if dsn := cmd.String("dsn"); dsn != "" {
		p.Logger.Debug("Using connection URL from --dsn")
		return dsn, nil
	}

	address := cmd.String("vault-address")
	if address == "" {
		address = cfg.Vault.Address
	}

	store, err := p.Secrets(ctx, secrets.VaultConfig{
		Address:  address,
		Token:    cmd.String("vault-token"),
		Username: cmd.String("vault-username"),
		Password: cmd.String("vault-password"),
		Logger:   p.Logger,
	})
	if err != nil {
		return "", err
	}

	values, err := store.Secrets(ctx, cfg.Vault.Backend, cfg.Vault.Path)
	if err != nil {
		return "", errors.Wrap(err, "failed to read database secrets")
	}

	params, err := database.ParamsFromSecrets(values)
	if err != nil {
		return "", err
	}

	p.Logger.Info("Resolved database connection", "dsn", params.Redacted())
	return params.DSN(), nil
}

// connect resolves the DSN and opens a connection. The caller closes it.
func (p commandParams) connect(ctx context.Context, cmd *cli.Command, cfg *config.Config) (*pgx.Conn, error) {
	dsn, err := p.resolveDSN(ctx, cmd, cfg)
	if err != nil {
		return nil, err
	}

	return database.Connect(ctx, dsn)
}

func (pl pipeline) newMigrator(tx pgx.Tx) (*migrator.Migrator, error) {
	return migrator.New(migrator.Config{
		DB:     tx,
		Parser: migrator.NewFileParser(pl.dir, pl.logger),
		Table:  pl.table,
		Logger: pl.logger,
	})
}

// runPipeline applies the pending migrations of a pipeline in one transaction
// and returns the number of migrations applied.
//
// When a migration fails, the migrations applied before it in this run are
// reverted and the transaction is rolled back. With dryRun set, the pending
// migrations are written to out and the transaction is always rolled back.
func runPipeline(ctx context.Context, db database.Beginner, pl pipeline, dryRun bool, out io.Writer) (int64, error) {
	var applied int64
	err := database.WithTx(ctx, db, func(tx pgx.Tx) error {
		m, err := pl.newMigrator(tx)
		if err != nil {
			return err
		}

		if err := m.ExtractAppliedMigrations(ctx); err != nil {
			return err
		}

		if dryRun {
			pending, err := m.Pending(ctx)
			if err != nil {
				return err
			}

			if err := renderPending(out, pending); err != nil {
				return err
			}

			return errDryRun
		}

		n, err := m.ExecuteMigrations(ctx)
		if err != nil {
			if revertErr := m.ExecuteRevertMigrations(ctx); revertErr != nil {
				pl.logger.Error("Failed to revert migrations", "err", revertErr)
				return errors.Wrapf(err, "failed to revert migrations (%v)", revertErr)
			}

			return err
		}

		applied = n
		return nil
	})

	if errors.Is(err, errDryRun) {
		return 0, nil
	}

	if err != nil {
		return 0, errors.Wrapf(err, "pipeline %s failed", pl.name)
	}

	return applied, nil
}

// inspectPipeline reports the status of every migration of a pipeline. The
// transaction it runs in is always rolled back.
func inspectPipeline(ctx context.Context, db database.Beginner, pl pipeline) ([]*migrator.Inspection, error) {
	var inspections []*migrator.Inspection
	err := database.WithTx(ctx, db, func(tx pgx.Tx) error {
		m, err := pl.newMigrator(tx)
		if err != nil {
			return err
		}

		if err := m.ExtractAppliedMigrations(ctx); err != nil {
			return err
		}

		if inspections, err = m.Inspect(ctx); err != nil {
			return err
		}

		return errReadOnly
	})

	if errors.Is(err, errReadOnly) {
		return inspections, nil
	}

	return nil, errors.Wrapf(err, "failed to inspect pipeline %s", pl.name)
}

func renderPending(w io.Writer, pending []*migrator.MigrationFile) error {
	if len(pending) == 0 {
		_, err := fmt.Fprintln(w, "No pending migrations.")
		return err
	}

	for _, file := range pending {
		stmts, err := file.Statements()
		if err != nil {
			return err
		}

		fmt.Fprintf(w, "-- %s (author: %s)\n", file.FileName, file.Author)
		for _, stmt := range stmts {
			fmt.Fprintf(w, "%s;\n", stmt)
		}
		fmt.Fprintln(w)
	}

	_, err := fmt.Fprintf(w, "%d pending migration(s), nothing applied (dry run)\n", len(pending))
	return err
}
