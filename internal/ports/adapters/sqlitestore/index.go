// Package sqlitestore keeps the annotation index in a SQLite database instead
// of metadata/annotations.csv. Converted segment files stay on disk.
package sqlitestore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/forPelevin/annoset/internal/domain/records"
	"github.com/forPelevin/annoset/internal/domain/schema"
	"github.com/forPelevin/annoset/internal/ports"
	"github.com/forPelevin/annoset/internal/types"
)

const sqliteBusyCode = 5

// Index is an IndexStore backed by one SQLite table.
type Index struct {
	db   *sql.DB
	path string
}

var _ ports.IndexStore = (*Index)(nil)

type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// Open creates or connects to the database at path. busy_timeout is zero so a
// second writer fails immediately rather than queueing behind the first.
func Open(path string) (*Index, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("ensure index directory: %w", err)
	}
	q := url.Values{}
	q.Add("_pragma", "journal_mode(WAL)")
	q.Add("_pragma", "busy_timeout(0)")
	db, err := sql.Open("sqlite", "file:"+path+"?"+q.Encode())
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	x := &Index{db: db, path: path}
	if err := x.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return x, nil
}

func (x *Index) Close() error { return x.db.Close() }

func columnList() string {
	names := schema.Names(schema.IndexColumns)
	quoted := make([]string, len(names))
	for i, n := range names {
		quoted[i] = `"` + n + `"`
	}
	return strings.Join(quoted, ", ")
}

func (x *Index) initSchema(ctx context.Context) error {
	names := schema.Names(schema.IndexColumns)
	defs := make([]string, 0, len(names)+1)
	defs = append(defs, "position INTEGER PRIMARY KEY")
	for _, n := range names {
		defs = append(defs, `"`+n+`" TEXT NOT NULL DEFAULT ''`)
	}
	stmt := "CREATE TABLE IF NOT EXISTS annotations (" + strings.Join(defs, ", ") + ")"
	if _, err := x.db.ExecContext(ctx, stmt); err != nil {
		return fmt.Errorf("init schema: %w", err)
	}
	return nil
}

func (x *Index) Load(ctx context.Context) ([]types.Record, schema.Report, error) {
	return load(ctx, x.db, x.path)
}

func load(ctx context.Context, q querier, source string) ([]types.Record, schema.Report, error) {
	header := schema.Names(schema.IndexColumns)
	rows, err := q.QueryContext(ctx, "SELECT "+columnList()+" FROM annotations ORDER BY position")
	if err != nil {
		return nil, schema.Report{}, fmt.Errorf("query index: %w", err)
	}
	defer rows.Close()

	var table [][]string
	for rows.Next() {
		row := make([]string, len(header))
		dest := make([]any, len(header))
		for i := range row {
			dest[i] = &row[i]
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, schema.Report{}, fmt.Errorf("scan index row: %w", err)
		}
		table = append(table, row)
	}
	if err := rows.Err(); err != nil {
		return nil, schema.Report{}, fmt.Errorf("read index: %w", err)
	}
	rep := schema.Validate(source, schema.IndexColumns, header, table)
	recs := records.Decode(header, table)
	rep.Merge(records.Duplicates(recs))
	return recs, rep, nil
}

// Update replaces the whole table inside one IMMEDIATE transaction.
func (x *Index) Update(ctx context.Context, fn func([]types.Record) ([]types.Record, error)) (err error) {
	conn, err := x.db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Close()

	if _, err := conn.ExecContext(ctx, "BEGIN IMMEDIATE"); err != nil {
		if isSQLiteBusy(err) {
			return fmt.Errorf("%w: %s", ports.ErrLocked, x.path)
		}
		return fmt.Errorf("begin: %w", err)
	}
	defer func() {
		if err != nil {
			_, _ = conn.ExecContext(context.Background(), "ROLLBACK")
		}
	}()

	current, _, err := load(ctx, conn, x.path)
	if err != nil {
		return err
	}
	next, err := fn(current)
	if err != nil {
		return err
	}
	if _, err = conn.ExecContext(ctx, "DELETE FROM annotations"); err != nil {
		return fmt.Errorf("clear index: %w", err)
	}
	names := schema.Names(schema.IndexColumns)
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(names)), ", ")
	insert := "INSERT INTO annotations (" + columnList() + ") VALUES (" + placeholders + ")"
	for _, row := range records.Encode(next) {
		args := make([]any, len(row))
		for i, v := range row {
			args[i] = v
		}
		if _, err = conn.ExecContext(ctx, insert, args...); err != nil {
			return fmt.Errorf("insert index row: %w", err)
		}
	}
	if _, err = conn.ExecContext(ctx, "COMMIT"); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code()&0xff == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}
