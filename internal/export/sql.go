package export

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	_ "modernc.org/sqlite" // pure go sqlite driver

	"github.com/JonMunkholm/gendb/internal/synth"
)

// DefaultSQLTable is the table SQL destinations write into.
const DefaultSQLTable = "people"

var identifierRegex = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]{0,62}$`)

type dialect int

const (
	dialectPostgres dialect = iota
	dialectSQLite
)

// SQLSink appends table rows to a database table, creating it when absent.
// The destination is a connection string: postgres:// or postgresql:// for
// PostgreSQL, sqlite://path, file:path or a *.db / *.sqlite path for SQLite.
type SQLSink struct {
	table string
}

// NewSQLSink returns a sink writing into the named table.
func NewSQLSink(table string) *SQLSink {
	return &SQLSink{table: table}
}

// Table returns the target table name.
func (s *SQLSink) Table() string { return s.table }

// Write appends every row of t in a single transaction.
func (s *SQLSink) Write(ctx context.Context, dsn string, t *synth.Table) error {
	if !identifierRegex.MatchString(s.table) {
		return fmt.Errorf("invalid table name %q", s.table)
	}
	d, conn, err := parseDSN(dsn)
	if err != nil {
		return err
	}
	switch d {
	case dialectPostgres:
		return s.writePostgres(ctx, conn, t)
	default:
		return s.writeSQLite(ctx, conn, t)
	}
}

func parseDSN(dsn string) (dialect, string, error) {
	lower := strings.ToLower(dsn)
	switch {
	case strings.HasPrefix(lower, "postgres://"), strings.HasPrefix(lower, "postgresql://"):
		return dialectPostgres, dsn, nil
	case strings.HasPrefix(lower, "sqlite://"):
		return dialectSQLite, dsn[len("sqlite://"):], nil
	case strings.HasPrefix(lower, "sqlite:"):
		return dialectSQLite, dsn[len("sqlite:"):], nil
	case strings.HasPrefix(lower, "file:"):
		return dialectSQLite, dsn, nil
	}
	switch strings.ToLower(filepath.Ext(dsn)) {
	case ".db", ".sqlite", ".sqlite3":
		return dialectSQLite, dsn, nil
	}
	return 0, "", fmt.Errorf("%w: %s", ErrUnsupportedDatabase, redact(dsn))
}

// createTableSQL builds the DDL for the output columns.
func createTableSQL(table string, d dialect) string {
	var b strings.Builder
	b.WriteString("CREATE TABLE IF NOT EXISTS ")
	b.WriteString(quoteIdentifier(table))
	b.WriteString(" (")
	for i, c := range synth.Columns() {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(quoteIdentifier(c.Name))
		b.WriteByte(' ')
		switch {
		case c.Kind == synth.KindDate && d == dialectPostgres:
			b.WriteString("DATE")
		case c.Kind == synth.KindInt && d == dialectPostgres:
			b.WriteString("BIGINT")
		case c.Kind == synth.KindInt:
			b.WriteString("INTEGER")
		default:
			b.WriteString("TEXT")
		}
		if !c.Nullable {
			b.WriteString(" NOT NULL")
		}
	}
	b.WriteString(")")
	return b.String()
}

func quoteIdentifier(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func (s *SQLSink) writePostgres(ctx context.Context, dsn string, t *synth.Table) error {
	conn, err := pgx.Connect(ctx, dsn)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer conn.Close(context.Background())

	tx, err := conn.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, createTableSQL(s.table, dialectPostgres)); err != nil {
		return fmt.Errorf("create table: %w", err)
	}

	rows := pgx.CopyFromSlice(t.Len(), func(i int) ([]any, error) {
		if err := checkCtx(ctx, i); err != nil {
			return nil, err
		}
		return pgRow(t, i), nil
	})
	if _, err := tx.CopyFrom(ctx, pgx.Identifier{s.table}, synth.ColumnNames(), rows); err != nil {
		return fmt.Errorf("copy rows: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// pgRow converts row i to pgtype values; nil cells become invalid (NULL).
func pgRow(t *synth.Table, i int) []any {
	values := t.Values(i)
	out := make([]any, len(values))
	for c, v := range values {
		switch v := v.(type) {
		case time.Time:
			out[c] = pgtype.Date{Time: v, Valid: true}
		case int64:
			out[c] = pgtype.Int8{Int64: v, Valid: true}
		case string:
			out[c] = pgtype.Text{String: v, Valid: true}
		default:
			out[c] = pgtype.Text{}
		}
	}
	return out
}

func (s *SQLSink) writeSQLite(ctx context.Context, dsn string, t *synth.Table) error {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return fmt.Errorf("open sqlite: %w", err)
	}
	defer db.Close()

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, createTableSQL(s.table, dialectSQLite)); err != nil {
		return fmt.Errorf("create table: %w", err)
	}

	names := synth.ColumnNames()
	quoted := make([]string, len(names))
	for i, n := range names {
		quoted[i] = quoteIdentifier(n)
	}
	insert := fmt.Sprintf("INSERT INTO %s (%s) VALUES (?%s)",
		quoteIdentifier(s.table), strings.Join(quoted, ", "), strings.Repeat(", ?", len(names)-1))

	stmt, err := tx.PrepareContext(ctx, insert)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for i := range t.Len() {
		if err := checkCtx(ctx, i); err != nil {
			return err
		}
		values := t.Values(i)
		values[0] = t.Persons[i].BirthDate.Format(synth.DateLayout)
		if _, err := stmt.ExecContext(ctx, values...); err != nil {
			return fmt.Errorf("insert row %d: %w", i+1, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}
