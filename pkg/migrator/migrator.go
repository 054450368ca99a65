package migrator

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jwizard/dbmigrator/pkg/consts"
	"github.com/pkg/errors"
)

// stepSavepoint scopes the statements of the migration being applied so that a
// failure leaves the surrounding transaction usable for reverting earlier ones.
const stepSavepoint = "db_migrator_step"

// State values describe where a Migrator is in the lifecycle of one batch.
const (
	// StateUninitialized is the state of a new Migrator
	StateUninitialized State = iota

	// StateLoaded means the applied migrations have been read from the bookkeeping table
	StateLoaded

	// StateApplying means ExecuteMigrations is running or has failed
	StateApplying

	// StateApplied means every pending migration was applied; the caller may commit
	StateApplied

	// StateRollingBack means ExecuteRevertMigrations is running or has failed
	StateRollingBack

	// StateRolledBack means every migration applied in this batch was reverted
	StateRolledBack
)

// ErrInvalidTableName is returned when the bookkeeping table name is not a plain identifier.
var ErrInvalidTableName = errors.New("invalid bookkeeping table name")

type (
	// DB defines the database operations the Migrator issues. It is satisfied by
	// pgx.Tx, which is how the Migrator is used: the caller owns the transaction
	// and decides whether to commit it.
	DB interface {
		Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
		Query(context.Context, string, ...any) (pgx.Rows, error)
		QueryRow(context.Context, string, ...any) pgx.Row
	}

	// State is the lifecycle state of a Migrator.
	State int

	// Config contains the collaborators of a Migrator.
	Config struct {
		// DB is the connection, normally a transaction, statements are issued against
		DB DB

		// Parser discovers and reads the migration files of one directory
		Parser *FileParser

		// Table is the bookkeeping table name (defaults to consts.DefaultTable)
		Table string

		// Logger receives progress, skip and tamper messages (defaults to discarding)
		Logger *slog.Logger

		// Now returns the current time (defaults to time.Now)
		Now func() time.Time
	}

	// Migrator applies the migrations of one directory exactly once.
	//
	// A Migrator handles a single batch inside a transaction it does not own:
	//
	//   - ExtractAppliedMigrations creates the bookkeeping table on first use, or
	//     loads the fingerprints of previously applied migrations
	//   - ExecuteMigrations applies pending migrations in file name order, records
	//     each one and warns when an applied file has been edited since
	//   - ExecuteRevertMigrations runs the rollback scripts of the migrations
	//     applied by this batch when anything after them failed
	//
	// The Migrator never commits or rolls back the transaction. Migrations apply
	// strictly sequentially and a Migrator must not be shared between goroutines.
	//
	// Example usage:
	//
	//	err := pgx.BeginFunc(ctx, conn, func(tx pgx.Tx) error {
	//		m, err := migrator.New(migrator.Config{
	//			DB:     tx,
	//			Parser: migrator.NewFileParser("db/migrations/core", logger),
	//			Logger: logger,
	//		})
	//		if err != nil {
	//			return err
	//		}
	//
	//		if err := m.ExtractAppliedMigrations(ctx); err != nil {
	//			return err
	//		}
	//
	//		applied, err := m.ExecuteMigrations(ctx)
	//		if err != nil {
	//			if revertErr := m.ExecuteRevertMigrations(ctx); revertErr != nil {
	//				logger.Error("Failed to revert migrations", "err", revertErr)
	//			}
	//			return err
	//		}
	//
	//		logger.Info("Finished", "applied", applied)
	//		return nil
	//	})
	Migrator struct {
		db      DB
		parser  *FileParser
		ledger  *ledger
		logger  *slog.Logger
		now     func() time.Time
		state   State
		records []*Record

		// applied maps <base dir>/<file name> to the stored content hash
		applied map[string]string

		// reverts holds rollback scripts in the order their migrations were applied
		reverts []revertEntry
	}

	revertEntry struct {
		fileName string
		rollback string

		// undone is set when the forward statements failed and were already
		// discarded by rolling back to the step savepoint
		undone bool
	}
)

// String returns a human readable state name.
func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateLoaded:
		return "loaded"
	case StateApplying:
		return "applying"
	case StateApplied:
		return "applied"
	case StateRollingBack:
		return "rolling back"
	case StateRolledBack:
		return "rolled back"
	default:
		return "unknown"
	}
}

// New creates a Migrator from the provided configuration.
//
// Returns ErrInvalidTableName when the table name is not a plain, optionally
// schema qualified, identifier.
func New(cfg Config) (*Migrator, error) {
	if cfg.DB == nil {
		return nil, errors.New("migrator requires a database connection")
	}

	if cfg.Parser == nil {
		return nil, errors.New("migrator requires a file parser")
	}

	table := cfg.Table
	if table == "" {
		table = consts.DefaultTable
	}

	l, err := newLedger(cfg.DB, table)
	if err != nil {
		return nil, err
	}

	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	return &Migrator{
		db:      cfg.DB,
		parser:  cfg.Parser,
		ledger:  l,
		logger:  loggerOrDiscard(cfg.Logger),
		now:     now,
		applied: make(map[string]string),
	}, nil
}

// State returns the current lifecycle state.
func (m *Migrator) State() State {
	return m.state
}

// Applied returns a copy of the applied migration fingerprints keyed by
// <base dir>/<file name>, across every migration directory.
func (m *Migrator) Applied() map[string]string {
	applied := make(map[string]string, len(m.applied))
	for k, v := range m.applied {
		applied[k] = v
	}

	return applied
}

// ExtractAppliedMigrations loads the fingerprints of previously applied migrations.
//
// When the bookkeeping table does not exist yet it is created and the applied
// set stays empty. Concurrent first runs against the same database race on the
// table creation; callers must serialize migrator runs per database.
func (m *Migrator) ExtractAppliedMigrations(ctx context.Context) error {
	if m.state != StateUninitialized {
		return errors.Errorf("cannot load applied migrations in state: %s", m.state)
	}

	exists, err := m.ledger.exists(ctx)
	if err != nil {
		return err
	}

	if !exists {
		if err := m.ledger.create(ctx); err != nil {
			return err
		}

		m.logger.Warn("Unable to find bookkeeping table, created it", "table", m.ledger.table)
		m.state = StateLoaded
		return nil
	}

	m.logger.Info("Bookkeeping table exists, retrieving applied migrations", "table", m.ledger.table)

	records, err := m.ledger.load(ctx)
	if err != nil {
		return err
	}

	for _, r := range records {
		m.applied[r.Key()] = r.ContentHash
	}

	m.records = records
	m.state = StateLoaded
	m.logger.Info("Already executed migrations", "count", len(m.applied))

	return nil
}

// ExecuteMigrations applies every pending migration in order and returns the
// number of bookkeeping rows written.
//
// For each migration file, in (year, month, day, sequence) order:
//   - invalid or empty files are skipped
//   - files already recorded are never re-applied; when their content hash
//     changed a warning is logged and processing continues
//   - otherwise the rollback script is remembered for this batch, every forward
//     statement is executed and a bookkeeping row is inserted
//
// The returned count sums the rows reported by each insert rather than counting
// files, so an insert that unexpectedly writes nothing shows up as a shortfall.
// Any error stops the batch; the caller is expected to call
// ExecuteRevertMigrations and discard the transaction.
func (m *Migrator) ExecuteMigrations(ctx context.Context) (int64, error) {
	if m.state != StateLoaded {
		return 0, errors.Errorf("cannot execute migrations in state: %s", m.state)
	}

	m.state = StateApplying

	paths, err := m.parser.ListMigrationFiles()
	if err != nil {
		return 0, err
	}

	var applied int64
	for _, path := range paths {
		file, err := m.parser.ReadFile(path)
		if err != nil {
			return applied, err
		}

		if file == nil {
			continue
		}

		if stored, ok := m.applied[file.Key()]; ok {
			m.checkAppliedFileHash(file, stored)
			continue
		}

		n, err := m.apply(ctx, file)
		applied += n
		if err != nil {
			return applied, err
		}
	}

	m.state = StateApplied
	return applied, nil
}

// apply runs one migration and records it, all inside the step savepoint.
func (m *Migrator) apply(ctx context.Context, file *MigrationFile) (int64, error) {
	m.reverts = append(m.reverts, revertEntry{fileName: file.FileName, rollback: file.Rollback})

	stmts, err := file.Statements()
	if err != nil {
		m.reverts[len(m.reverts)-1].undone = true
		return 0, errors.Wrapf(err, "failed to split migration: %s", file.FileName)
	}

	if _, err := m.db.Exec(ctx, "SAVEPOINT "+stepSavepoint); err != nil {
		m.reverts[len(m.reverts)-1].undone = true
		return 0, errors.Wrapf(err, "failed to open savepoint for migration: %s", file.FileName)
	}

	inserted, err := m.applyStep(ctx, file, stmts)
	if err != nil {
		m.reverts[len(m.reverts)-1].undone = true
		if _, rbErr := m.db.Exec(ctx, "ROLLBACK TO SAVEPOINT "+stepSavepoint); rbErr != nil {
			return 0, errors.Wrapf(err, "failed to roll back to savepoint (%v)", rbErr)
		}
		return 0, err
	}

	if _, err := m.db.Exec(ctx, "RELEASE SAVEPOINT "+stepSavepoint); err != nil {
		return inserted, errors.Wrapf(err, "failed to release savepoint for migration: %s", file.FileName)
	}

	m.logger.Info("Executed migration",
		"file", file.FileName,
		"author", file.Author,
		"statements", len(stmts),
	)

	return inserted, nil
}

func (m *Migrator) applyStep(ctx context.Context, file *MigrationFile, stmts []string) (int64, error) {
	for i, stmt := range stmts {
		if _, err := m.db.Exec(ctx, stmt); err != nil {
			return 0, errors.Wrapf(err, "failed to execute statement %d of migration %s: %s", i+1, file.FileName, stmt)
		}
	}

	return m.ledger.insert(ctx, file, m.now())
}

// checkAppliedFileHash warns when an applied migration file has been edited.
// It never fails the batch.
func (m *Migrator) checkAppliedFileHash(file *MigrationFile, stored string) {
	if file.ContentHash == stored {
		return
	}

	m.logger.Warn("Applied migration file has a different hash",
		"file", file.FileName,
		"calculated", file.ContentHash,
		"persisted", stored,
	)
	m.logger.Warn("Changing already applied migration files is strictly prohibited", "file", file.FileName)
}

// ExecuteRevertMigrations reverts the migrations applied during this batch.
//
// Rollback scripts run in the order the migrations were applied (first applied,
// first reverted), and each migration's bookkeeping row is deleted afterwards.
// The migration whose forward statements failed has already been discarded
// through its savepoint, so only its bookkeeping row is cleared. The first
// failing statement aborts the remaining reverts and is returned.
func (m *Migrator) ExecuteRevertMigrations(ctx context.Context) error {
	m.state = StateRollingBack

	baseDir := m.parser.BaseDir()
	for len(m.reverts) > 0 {
		entry := m.reverts[0]

		var stmts []string
		if !entry.undone {
			var err error
			if stmts, err = ExtractSubqueries(entry.rollback); err != nil {
				return errors.Wrapf(err, "failed to split rollback of migration: %s", entry.fileName)
			}
		}

		for i, stmt := range stmts {
			if _, err := m.db.Exec(ctx, stmt); err != nil {
				return errors.Wrapf(err, "failed to execute rollback statement %d of migration %s: %s", i+1, entry.fileName, stmt)
			}
		}

		deleted, err := m.ledger.delete(ctx, baseDir, entry.fileName)
		if err != nil {
			return err
		}

		m.reverts = m.reverts[1:]
		m.logger.Warn("Reverted migration",
			"file", entry.fileName,
			"statements", len(stmts)+int(deleted),
		)
	}

	m.state = StateRolledBack
	return nil
}

func loggerOrDiscard(logger *slog.Logger) *slog.Logger {
	if logger != nil {
		return logger
	}

	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
