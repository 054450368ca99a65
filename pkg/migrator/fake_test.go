package migrator_test

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

type (
	// fakeDB emulates the bookkeeping table plus a set of user tables, with
	// savepoint support, so that batches can be observed end to end.
	fakeDB struct {
		tableExists bool
		records     []fakeRecord
		tables      []string
		execs       []string
		nextID      int64

		// execErr returns an error for a statement (normalized whitespace) when set
		execErr func(stmt string) error

		// insertTag overrides the command tag returned for bookkeeping inserts
		insertTag string

		savepoint *fakeSnapshot
	}

	fakeRecord struct {
		id        int64
		fileName  string
		author    string
		appliedAt time.Time
		baseDir   string
		md5       string
	}

	fakeSnapshot struct {
		records []fakeRecord
		tables  []string
	}

	fakeRow struct {
		scan func(dest ...any) error
	}

	fakeRows struct {
		records []fakeRecord
		index   int
	}
)

func normalize(sql string) string {
	return strings.Join(strings.Fields(sql), " ")
}

func (f *fakeDB) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	stmt := normalize(sql)
	f.execs = append(f.execs, stmt)

	if f.execErr != nil {
		if err := f.execErr(stmt); err != nil {
			return pgconn.CommandTag{}, err
		}
	}

	switch {
	case strings.HasPrefix(stmt, "CREATE TABLE IF NOT EXISTS"):
		f.tableExists = true
		return pgconn.NewCommandTag("CREATE TABLE"), nil

	case strings.HasPrefix(stmt, "INSERT INTO \"migrations\""):
		if f.insertTag != "" {
			return pgconn.NewCommandTag(f.insertTag), nil
		}

		f.nextID++
		f.records = append(f.records, fakeRecord{
			id:        f.nextID,
			fileName:  args[0].(string),
			author:    args[1].(string),
			appliedAt: args[2].(time.Time),
			baseDir:   args[3].(string),
			md5:       args[4].(string),
		})
		return pgconn.NewCommandTag("INSERT 0 1"), nil

	case strings.HasPrefix(stmt, "DELETE FROM \"migrations\""):
		before := len(f.records)
		f.records = slices.DeleteFunc(f.records, func(r fakeRecord) bool {
			return r.fileName == args[0].(string) && r.baseDir == args[1].(string)
		})
		return pgconn.NewCommandTag(fmt.Sprintf("DELETE %d", before-len(f.records))), nil

	case strings.HasPrefix(stmt, "SAVEPOINT"):
		f.savepoint = &fakeSnapshot{
			records: slices.Clone(f.records),
			tables:  slices.Clone(f.tables),
		}
		return pgconn.NewCommandTag("SAVEPOINT"), nil

	case strings.HasPrefix(stmt, "ROLLBACK TO SAVEPOINT"):
		f.records = f.savepoint.records
		f.tables = f.savepoint.tables
		return pgconn.NewCommandTag("ROLLBACK"), nil

	case strings.HasPrefix(stmt, "RELEASE SAVEPOINT"):
		f.savepoint = nil
		return pgconn.NewCommandTag("RELEASE"), nil

	case strings.HasPrefix(stmt, "CREATE TABLE "):
		f.tables = append(f.tables, strings.Fields(stmt)[2])
		return pgconn.NewCommandTag("CREATE TABLE"), nil

	case strings.HasPrefix(stmt, "DROP TABLE "):
		name := strings.Fields(stmt)[2]
		f.tables = slices.DeleteFunc(f.tables, func(t string) bool { return t == name })
		return pgconn.NewCommandTag("DROP TABLE"), nil
	}

	return pgconn.NewCommandTag("SELECT 0"), nil
}

func (f *fakeDB) Query(_ context.Context, sql string, _ ...any) (pgx.Rows, error) {
	f.execs = append(f.execs, normalize(sql))
	return &fakeRows{records: slices.Clone(f.records), index: -1}, nil
}

func (f *fakeDB) QueryRow(_ context.Context, sql string, _ ...any) pgx.Row {
	f.execs = append(f.execs, normalize(sql))
	return &fakeRow{scan: func(dest ...any) error {
		*dest[0].(*bool) = f.tableExists
		return nil
	}}
}

// statements returns the executed user statements, leaving out bookkeeping and savepoint traffic.
func (f *fakeDB) statements() []string {
	var stmts []string
	for _, stmt := range f.execs {
		switch {
		case strings.Contains(stmt, "\"migrations\""),
			strings.Contains(stmt, "information_schema"),
			strings.Contains(stmt, "SAVEPOINT"):
			continue
		}
		stmts = append(stmts, stmt)
	}

	return stmts
}

func (r *fakeRow) Scan(dest ...any) error {
	return r.scan(dest...)
}

func (r *fakeRows) Close()                                       {}
func (r *fakeRows) Err() error                                   { return nil }
func (r *fakeRows) CommandTag() pgconn.CommandTag                { return pgconn.NewCommandTag("SELECT") }
func (r *fakeRows) FieldDescriptions() []pgconn.FieldDescription { return nil }
func (r *fakeRows) Values() ([]any, error)                       { return nil, nil }
func (r *fakeRows) RawValues() [][]byte                          { return nil }
func (r *fakeRows) Conn() *pgx.Conn                              { return nil }

func (r *fakeRows) Next() bool {
	r.index++
	return r.index < len(r.records)
}

func (r *fakeRows) Scan(dest ...any) error {
	rec := r.records[r.index]
	*dest[0].(*int64) = rec.id
	*dest[1].(*string) = rec.fileName
	*dest[2].(*string) = rec.author
	*dest[3].(*time.Time) = rec.appliedAt
	*dest[4].(*string) = rec.baseDir
	*dest[5].(*string) = rec.md5
	return nil
}
