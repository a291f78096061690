package uow

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	"companyapp/pkg/platform/sentinel"
	txcontext "companyapp/pkg/platform/tx"
)

// Dialect covers the SQL differences between supported engines.
type Dialect interface {
	Name() string
	Placeholder(n int) string
}

type sqliteDialect struct{}

func (sqliteDialect) Name() string            { return "sqlite" }
func (sqliteDialect) Placeholder(int) string { return "?" }

type postgresDialect struct{}

func (postgresDialect) Name() string              { return "postgres" }
func (postgresDialect) Placeholder(n int) string { return "$" + strconv.Itoa(n) }

var (
	SQLite   Dialect = sqliteDialect{}
	Postgres Dialect = postgresDialect{}
)

// DialectFor maps a driver name to its dialect.
func DialectFor(driver string) (Dialect, error) {
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case "sqlite", "sqlite3":
		return SQLite, nil
	case "postgres", "postgresql":
		return Postgres, nil
	default:
		return nil, fmt.Errorf("uow: unsupported driver %q", driver)
	}
}

// SQLWriter applies entries with plain INSERT/UPDATE/DELETE statements. It
// uses the transaction bound to the context when there is one.
type SQLWriter struct {
	db      *sql.DB
	dialect Dialect
}

// NewSQLWriter constructs a writer for db.
func NewSQLWriter(db *sql.DB, dialect Dialect) *SQLWriter {
	return &SQLWriter{db: db, dialect: dialect}
}

// Apply writes every mutated entry in order. Unchanged and detached entries
// are skipped. Update and delete statements that touch no row fail with
// sentinel.ErrNotFound.
func (w *SQLWriter) Apply(ctx context.Context, entries []*Entry) error {
	for _, e := range entries {
		var err error
		switch e.state {
		case Added:
			err = w.insert(ctx, e)
		case Modified:
			err = w.update(ctx, e)
		case Deleted:
			err = w.delete(ctx, e)
		default:
			continue
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (w *SQLWriter) insert(ctx context.Context, e *Entry) error {
	var (
		cols      []string
		marks     []string
		args      []any
		returning []*property
	)
	for _, p := range e.props {
		if e.isTemporary(p) {
			returning = append(returning, p)
			continue
		}
		args = append(args, p.Current)
		cols = append(cols, quoteIdent(p.Column))
		marks = append(marks, w.dialect.Placeholder(len(args)))
	}

	var q strings.Builder
	q.WriteString("INSERT INTO ")
	q.WriteString(quoteIdent(e.table))
	if len(cols) == 0 {
		q.WriteString(" DEFAULT VALUES")
	} else {
		fmt.Fprintf(&q, " (%s) VALUES (%s)", strings.Join(cols, ", "), strings.Join(marks, ", "))
	}

	if len(returning) == 0 {
		if _, err := txcontext.Execer(ctx, w.db).ExecContext(ctx, q.String(), args...); err != nil {
			return fmt.Errorf("insert %s: %w", e.kind, err)
		}
		return nil
	}

	names := make([]string, len(returning))
	for i, p := range returning {
		names[i] = quoteIdent(p.Column)
	}
	q.WriteString(" RETURNING ")
	q.WriteString(strings.Join(names, ", "))

	values := make([]any, len(returning))
	dest := make([]any, len(returning))
	for i := range values {
		dest[i] = &values[i]
	}
	if err := txcontext.Execer(ctx, w.db).QueryRowContext(ctx, q.String(), args...).Scan(dest...); err != nil {
		return fmt.Errorf("insert %s: %w", e.kind, err)
	}
	for i, p := range returning {
		if err := e.Assign(p.Name, values[i]); err != nil {
			return err
		}
	}
	return nil
}

func (w *SQLWriter) update(ctx context.Context, e *Entry) error {
	var (
		sets []string
		args []any
	)
	for _, p := range e.props {
		if p.Key || Equal(p.Original, p.Current) {
			continue
		}
		args = append(args, p.Current)
		sets = append(sets, quoteIdent(p.Column)+" = "+w.dialect.Placeholder(len(args)))
	}
	if len(sets) == 0 {
		return nil
	}

	where, args := w.keyClause(e, args)
	q := fmt.Sprintf("UPDATE %s SET %s WHERE %s", quoteIdent(e.table), strings.Join(sets, ", "), where)
	res, err := txcontext.Execer(ctx, w.db).ExecContext(ctx, q, args...)
	if err != nil {
		return fmt.Errorf("update %s: %w", e.kind, err)
	}
	return requireRow(res, e)
}

func (w *SQLWriter) delete(ctx context.Context, e *Entry) error {
	where, args := w.keyClause(e, nil)
	q := fmt.Sprintf("DELETE FROM %s WHERE %s", quoteIdent(e.table), where)
	res, err := txcontext.Execer(ctx, w.db).ExecContext(ctx, q, args...)
	if err != nil {
		return fmt.Errorf("delete %s: %w", e.kind, err)
	}
	return requireRow(res, e)
}

// keyClause matches on the original key values so a key change in the same
// batch still targets the loaded row.
func (w *SQLWriter) keyClause(e *Entry, args []any) (string, []any) {
	var conds []string
	for _, p := range e.props {
		if !p.Key {
			continue
		}
		args = append(args, p.Original)
		conds = append(conds, quoteIdent(p.Column)+" = "+w.dialect.Placeholder(len(args)))
	}
	return strings.Join(conds, " AND "), args
}

func requireRow(res sql.Result, e *Entry) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s rows affected: %w", e.kind, err)
	}
	if n == 0 {
		return fmt.Errorf("%s %s: %w", strings.ToLower(e.state.String()), e.kind, sentinel.ErrNotFound)
	}
	return nil
}
