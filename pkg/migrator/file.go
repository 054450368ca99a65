package migrator

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/jwizard/dbmigrator/pkg/consts"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

const (
	authorSection   = "author"
	sqlSection      = "sql"
	rollbackSection = "rollback"
)

// fileNamePattern matches YYYY-MM-DD_NNNNN_<description>.yml
var fileNamePattern = regexp.MustCompile(`^(\d{4})-(\d{2})-(\d{2})_(\d{5})_(.+)\.yml$`)

type (
	// FileName is the ordering information encoded in a migration file name.
	//
	// Migration files are named YYYY-MM-DD_NNNNN_<description>.yml, for example
	// 2024-01-10_00001_create_users.yml. Files are ordered by the tuple
	// (Year, Month, Day, Sequence) rather than by the raw file name, so that the
	// description never influences ordering.
	FileName struct {
		Year        int
		Month       int
		Day         int
		Sequence    int
		Description string
	}

	// MigrationFile is a single parsed and validated migration definition.
	//
	// A MigrationFile is produced by FileParser.ReadFile and carries the parsed
	// sections together with the raw bytes they were parsed from and the content
	// fingerprint of those bytes. Keeping the fingerprint on the value means it
	// always belongs to the file it describes.
	//
	// Example file:
	//
	//	author: jane
	//	sql: |
	//	  CREATE TABLE users (id BIGINT PRIMARY KEY);
	//	  CREATE INDEX users_id_idx ON users (id);
	//	rollback: |
	//	  DROP TABLE users;
	MigrationFile struct {
		// Path is the location the file was read from
		Path string

		// FileName is the base name of the file, e.g. 2024-01-10_00001_create_users.yml
		FileName string

		// BaseDir is the migration directory the file was found in
		BaseDir string

		// Author identifies who wrote the migration
		Author string

		// SQL is the forward migration script
		SQL string

		// Rollback is the script reverting SQL
		Rollback string

		// Raw holds the unparsed file content
		Raw []byte

		// ContentHash is the MD5 fingerprint of Raw as 32 lowercase hex characters
		ContentHash string
	}

	// FileParser discovers, orders and reads migration files in a single directory.
	FileParser struct {
		baseDir string
		logger  *slog.Logger
	}
)

// ParseFileName extracts the ordering tuple from a migration file base name.
// It returns false when the name does not follow the YYYY-MM-DD_NNNNN_<description>.yml pattern.
func ParseFileName(name string) (FileName, bool) {
	m := fileNamePattern.FindStringSubmatch(name)
	if m == nil {
		return FileName{}, false
	}

	// NB: the pattern guarantees the numeric groups are digits only.
	year, _ := strconv.Atoi(m[1])
	month, _ := strconv.Atoi(m[2])
	day, _ := strconv.Atoi(m[3])
	seq, _ := strconv.Atoi(m[4])

	return FileName{
		Year:        year,
		Month:       month,
		Day:         day,
		Sequence:    seq,
		Description: m[5],
	}, true
}

// Compare orders two file names by (Year, Month, Day, Sequence).
func (f FileName) Compare(other FileName) int {
	switch {
	case f.Year != other.Year:
		return f.Year - other.Year
	case f.Month != other.Month:
		return f.Month - other.Month
	case f.Day != other.Day:
		return f.Day - other.Day
	default:
		return f.Sequence - other.Sequence
	}
}

// String renders the file name back into its on-disk form.
func (f FileName) String() string {
	return fmt.Sprintf("%04d-%02d-%02d_%05d_%s%s", f.Year, f.Month, f.Day, f.Sequence, f.Description, consts.MigrationExt)
}

// NewFileParser creates a FileParser for the given migration directory. The
// directory is cleaned and stored with forward slashes since it is persisted in
// the bookkeeping table as part of each migration's identity.
func NewFileParser(baseDir string, logger *slog.Logger) *FileParser {
	return &FileParser{
		baseDir: filepath.ToSlash(filepath.Clean(baseDir)),
		logger:  loggerOrDiscard(logger),
	}
}

// BaseDir returns the migration directory this parser reads from.
func (p *FileParser) BaseDir() string {
	return p.baseDir
}

// ListMigrationFiles returns the paths of all migration files directly inside
// the base directory, ordered by (year, month, day, sequence).
//
// Every *.yml file counts as found. Files whose names do not follow the
// YYYY-MM-DD_NNNNN_<description>.yml pattern are left out of the result and
// therefore never applied.
//
// Example:
//
//	parser := migrator.NewFileParser("db/migrations/core", logger)
//	paths, err := parser.ListMigrationFiles()
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	// 2024-01-01_00002_b.yml sorts before 2024-01-10_00001_a.yml
//	for _, path := range paths {
//		fmt.Println(path)
//	}
func (p *FileParser) ListMigrationFiles() ([]string, error) {
	entries, err := os.ReadDir(filepath.FromSlash(p.baseDir))
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read migration directory: %s", p.baseDir)
	}

	type candidate struct {
		path string
		name FileName
	}

	var (
		found      int
		candidates []candidate
	)

	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != consts.MigrationExt {
			continue
		}

		found++
		name, ok := ParseFileName(entry.Name())
		if !ok {
			p.logger.Debug("Ignoring file not matching migration naming pattern", "file", entry.Name())
			continue
		}

		candidates = append(candidates, candidate{
			path: filepath.Join(filepath.FromSlash(p.baseDir), entry.Name()),
			name: name,
		})
	}

	slices.SortStableFunc(candidates, func(a, b candidate) int {
		if c := a.name.Compare(b.name); c != 0 {
			return c
		}
		// NB: equal tuples fall back to the file name to keep runs deterministic.
		return strings.Compare(filepath.Base(a.path), filepath.Base(b.path))
	})

	p.logger.Info("Found migration files",
		"dir", p.baseDir,
		"found", found,
		"matching", len(candidates),
	)

	paths := make([]string, 0, len(candidates))
	for _, c := range candidates {
		paths = append(paths, c.path)
	}

	return paths, nil
}

// ReadFile reads and validates a migration file.
//
// A nil MigrationFile with a nil error means the file must be skipped: it is
// empty, its top level is not a mapping, it lacks one of the author, sql and
// rollback sections, or one of those sections is empty. A warning is logged in each of these cases. Errors are
// returned only when the file cannot be read or is not valid YAML.
func (p *FileParser) ReadFile(path string) (*MigrationFile, error) {
	name := filepath.Base(path)

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read migration: %s", name)
	}

	if len(raw) == 0 {
		p.logger.Warn("Migration file is empty, skipping migration", "file", name)
		return nil, nil
	}

	var decoded any
	if err := yaml.Unmarshal(raw, &decoded); err != nil {
		return nil, errors.Wrapf(err, "failed to parse migration: %s", name)
	}

	content, ok := decoded.(map[string]any)
	if !ok {
		p.logger.Warn("Migration file has inappropriate structure, skipping migration",
			"file", name,
			"missing", authorSection,
		)
		return nil, nil
	}

	for _, section := range []string{authorSection, sqlSection, rollbackSection} {
		if _, ok := content[section]; !ok {
			p.logger.Warn("Migration file has inappropriate structure, skipping migration",
				"file", name,
				"missing", section,
			)
			return nil, nil
		}
	}

	author := sectionValue(content[authorSection])
	sql := sectionValue(content[sqlSection])
	rollback := sectionValue(content[rollbackSection])

	if author == "" || sql == "" || rollback == "" {
		p.logger.Warn("Migration file has an empty section, skipping migration", "file", name)
		return nil, nil
	}

	return &MigrationFile{
		Path:        path,
		FileName:    name,
		BaseDir:     p.baseDir,
		Author:      author,
		SQL:         sql,
		Rollback:    rollback,
		Raw:         raw,
		ContentHash: ContentHash(raw),
	}, nil
}

// ContentHash returns the MD5 fingerprint of content as 32 lowercase hex
// characters. It detects edits to applied migrations and is not a security boundary.
func ContentHash(content []byte) string {
	sum := md5.Sum(content)
	return hex.EncodeToString(sum[:])
}

// Key identifies the migration in the bookkeeping table: <base dir>/<file name>.
func (m *MigrationFile) Key() string {
	return recordKey(m.BaseDir, m.FileName)
}

// Statements splits the forward script into executable statements.
func (m *MigrationFile) Statements() ([]string, error) {
	return ExtractSubqueries(m.SQL)
}

// RollbackStatements splits the rollback script into executable statements.
func (m *MigrationFile) RollbackStatements() ([]string, error) {
	return ExtractSubqueries(m.Rollback)
}

func recordKey(baseDir, fileName string) string {
	return baseDir + "/" + fileName
}

// sectionValue renders a decoded YAML value as text. Missing values, false and
// zero numbers are treated as empty.
func sectionValue(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case bool:
		if !val {
			return ""
		}
	case int:
		if val == 0 {
			return ""
		}
	case float64:
		if val == 0 {
			return ""
		}
	case []any:
		if len(val) == 0 {
			return ""
		}
	case map[string]any:
		if len(val) == 0 {
			return ""
		}
	}

	return fmt.Sprint(v)
}
