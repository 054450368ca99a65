package migrator

import (
	"context"
	"path/filepath"

	"github.com/pkg/errors"
)

// FileStatus values describe a migration file relative to the bookkeeping table.
const (
	// StatusPending means the file is valid and has not been applied
	StatusPending FileStatus = "pending"

	// StatusApplied means the file has been applied and is unchanged
	StatusApplied FileStatus = "applied"

	// StatusModified means the file has been applied but its content hash changed since
	StatusModified FileStatus = "modified"

	// StatusSkipped means the file is empty or lacks a required section
	StatusSkipped FileStatus = "skipped"

	// StatusMissing means a bookkeeping row exists for a file no longer on disk
	StatusMissing FileStatus = "missing"
)

type (
	// FileStatus classifies a migration file.
	FileStatus string

	// Inspection is the status of one migration file or bookkeeping row.
	Inspection struct {
		// FileName is the migration file base name
		FileName string

		// Status classifies the file
		Status FileStatus

		// File is the parsed migration, nil for skipped and missing files
		File *MigrationFile

		// Record is the bookkeeping row, nil for pending and skipped files
		Record *Record
	}
)

// Inspect reports the status of every migration file in the parser's directory
// without changing anything, followed by bookkeeping rows of that directory whose
// file no longer exists. ExtractAppliedMigrations must have been called first.
//
// Example usage:
//
//	inspections, err := m.Inspect(ctx)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	for _, i := range inspections {
//		fmt.Printf("%-10s %s\n", i.Status, i.FileName)
//	}
func (m *Migrator) Inspect(ctx context.Context) ([]*Inspection, error) {
	if m.state == StateUninitialized {
		return nil, errors.New("applied migrations have not been loaded")
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	paths, err := m.parser.ListMigrationFiles()
	if err != nil {
		return nil, err
	}

	records := make(map[string]*Record, len(m.records))
	for _, r := range m.records {
		records[r.Key()] = r
	}

	seen := make(map[string]bool, len(paths))
	inspections := make([]*Inspection, 0, len(paths))

	for _, path := range paths {
		file, err := m.parser.ReadFile(path)
		if err != nil {
			return nil, err
		}

		name := filepath.Base(path)
		key := recordKey(m.parser.BaseDir(), name)
		seen[key] = true

		inspection := &Inspection{FileName: name, File: file, Record: records[key]}
		switch {
		case file == nil:
			inspection.Status = StatusSkipped
		case inspection.Record == nil:
			inspection.Status = StatusPending
		case inspection.Record.ContentHash != file.ContentHash:
			inspection.Status = StatusModified
		default:
			inspection.Status = StatusApplied
		}

		inspections = append(inspections, inspection)
	}

	for _, r := range m.records {
		if r.BaseDir != m.parser.BaseDir() || seen[r.Key()] {
			continue
		}

		inspections = append(inspections, &Inspection{
			FileName: r.FileName,
			Status:   StatusMissing,
			Record:   r,
		})
	}

	return inspections, nil
}

// Pending returns the valid migration files that ExecuteMigrations would apply.
func (m *Migrator) Pending(ctx context.Context) ([]*MigrationFile, error) {
	inspections, err := m.Inspect(ctx)
	if err != nil {
		return nil, err
	}

	var pending []*MigrationFile
	for _, i := range inspections {
		if i.Status == StatusPending {
			pending = append(pending, i.File)
		}
	}

	return pending, nil
}
