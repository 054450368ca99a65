package migrator

import (
	"context"
	"fmt"
	"time"

	"github.com/jwizard/dbmigrator/pkg/utils"
	"github.com/pkg/errors"
)

// maxColumnLength is the width of the textual bookkeeping columns.
const maxColumnLength = 255

type (
	// Record is one row of the bookkeeping table, written once a migration has
	// been applied successfully.
	Record struct {
		// ID is the auto-incremented primary key
		ID uint64

		// FileName is the migration file base name, truncated to 255 characters
		FileName string

		// Author is the migration author, truncated to 255 characters
		Author string

		// AppliedAt is the UTC time the migration was applied
		AppliedAt time.Time

		// BaseDir is the migration directory the file was found in
		BaseDir string

		// ContentHash is the MD5 fingerprint of the file at the time it was applied
		ContentHash string
	}

	// ledger issues the bookkeeping table statements for a single table.
	ledger struct {
		db    DB
		table string
	}
)

// Key identifies the record: <base dir>/<file name>.
func (r *Record) Key() string {
	return recordKey(r.BaseDir, r.FileName)
}

func newLedger(db DB, table string) (*ledger, error) {
	if !utils.IsIdentifier(table) {
		return nil, errors.Wrapf(ErrInvalidTableName, "%q", table)
	}

	return &ledger{db: db, table: table}, nil
}

func (l *ledger) quoted() string {
	return utils.QuoteIdentifier(l.table)
}

// exists checks the catalog for the bookkeeping table.
func (l *ledger) exists(ctx context.Context) (bool, error) {
	var exists bool
	err := l.db.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM information_schema.tables
			WHERE table_name = $1
			AND table_schema = COALESCE(NULLIF($2::text, ''), current_schema())
		)
	`, utils.UnqualifiedName(l.table), l.schema()).Scan(&exists)
	if err != nil {
		return false, errors.Wrapf(err, "failed to check for %s table", l.table)
	}

	return exists, nil
}

func (l *ledger) schema() string {
	if name := utils.UnqualifiedName(l.table); len(name) < len(l.table) {
		return l.table[:len(l.table)-len(name)-1]
	}

	return ""
}

// create creates the bookkeeping table.
func (l *ledger) create(ctx context.Context) error {
	stmt := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id BIGINT GENERATED BY DEFAULT AS IDENTITY PRIMARY KEY,
			file_name VARCHAR(%d) NOT NULL,
			author VARCHAR(%d) NOT NULL,
			applied_at TIMESTAMPTZ NOT NULL,
			base_dir VARCHAR(%d) NOT NULL,
			file_md5 CHAR(32) NOT NULL
		)
	`, l.quoted(), maxColumnLength, maxColumnLength, maxColumnLength)

	if _, err := l.db.Exec(ctx, stmt); err != nil {
		return errors.Wrapf(err, "failed to create %s table", l.table)
	}

	return nil
}

// load returns every record in insertion order.
func (l *ledger) load(ctx context.Context) ([]*Record, error) {
	rows, err := l.db.Query(ctx, fmt.Sprintf(`
		SELECT id, file_name, author, applied_at, base_dir, file_md5
		FROM %s
		ORDER BY id ASC
	`, l.quoted()))
	if err != nil {
		return nil, errors.Wrapf(err, "failed to load %s", l.table)
	}
	defer rows.Close()

	var records []*Record
	for rows.Next() {
		var (
			r  Record
			id int64
		)

		if err := rows.Scan(&id, &r.FileName, &r.Author, &r.AppliedAt, &r.BaseDir, &r.ContentHash); err != nil {
			return nil, errors.Wrapf(err, "failed to scan %s row", l.table)
		}

		r.ID = uint64(id) // nolint: gosec
		records = append(records, &r)
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Wrapf(err, "failed to iterate %s rows", l.table)
	}

	return records, nil
}

// insert records an applied migration and returns the number of rows written.
func (l *ledger) insert(ctx context.Context, file *MigrationFile, appliedAt time.Time) (int64, error) {
	tag, err := l.db.Exec(ctx, fmt.Sprintf(`
		INSERT INTO %s (file_name, author, applied_at, base_dir, file_md5)
		VALUES ($1, $2, $3, $4, $5)
	`, l.quoted()),
		utils.Truncate(file.FileName, maxColumnLength),
		utils.Truncate(file.Author, maxColumnLength),
		appliedAt.UTC(),
		file.BaseDir,
		file.ContentHash,
	)
	if err != nil {
		return 0, errors.Wrapf(err, "failed to record migration: %s", file.FileName)
	}

	return tag.RowsAffected(), nil
}

// delete removes the record of a migration and returns the number of rows removed.
func (l *ledger) delete(ctx context.Context, baseDir, fileName string) (int64, error) {
	tag, err := l.db.Exec(ctx, fmt.Sprintf(`
		DELETE FROM %s WHERE file_name = $1 AND base_dir = $2
	`, l.quoted()),
		utils.Truncate(fileName, maxColumnLength),
		baseDir,
	)
	if err != nil {
		return 0, errors.Wrapf(err, "failed to delete record of migration: %s", fileName)
	}

	return tag.RowsAffected(), nil
}
