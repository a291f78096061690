// Package sqlite stores the audit trail in an audit_logs table.
package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	audit "companyapp/pkg/platform/audit"
	txcontext "companyapp/pkg/platform/tx"
)

//go:embed schema.sql
var schemaSQL string

// timeLayout has a fixed width so text ordering matches time ordering.
const timeLayout = "2006-01-02T15:04:05.000000Z"

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// Migrate creates the audit_logs table if it does not exist.
func Migrate(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("failed to initialize audit schema: %w", err)
	}
	return nil
}

// Append inserts records and sets their IDs. It joins the transaction bound
// to ctx.
func (s *Store) Append(ctx context.Context, records []audit.Record) error {
	const q = `
INSERT INTO audit_logs (user_id, user_name, entity_name, action, timestamp, key_values, changes)
VALUES (?, ?, ?, ?, ?, ?, ?)
RETURNING id;
`
	exec := txcontext.Execer(ctx, s.db)
	for i := range records {
		r := &records[i]
		err := exec.QueryRowContext(ctx, q,
			r.ActorID,
			r.ActorName,
			r.EntityKind,
			string(r.Action),
			r.Timestamp.UTC().Format(timeLayout),
			r.KeyValues,
			r.Changes,
		).Scan(&r.ID)
		if err != nil {
			return fmt.Errorf("insert audit record: %w", err)
		}
	}
	return nil
}

// Query returns matching records, newest first.
func (s *Store) Query(ctx context.Context, filter audit.Filter, limit int) ([]audit.Record, error) {
	var (
		conds []string
		args  []any
	)
	if filter.ActorID != "" {
		conds = append(conds, "user_id = ?")
		args = append(args, filter.ActorID)
	}
	if filter.EntityKind != "" {
		conds = append(conds, "entity_name = ?")
		args = append(args, filter.EntityKind)
	}
	if !filter.Since.IsZero() {
		conds = append(conds, "timestamp >= ?")
		args = append(args, filter.Since.UTC().Format(timeLayout))
	}
	if !filter.Until.IsZero() {
		conds = append(conds, "timestamp < ?")
		args = append(args, filter.Until.UTC().Format(timeLayout))
	}

	var q strings.Builder
	q.WriteString(`SELECT id, user_id, user_name, entity_name, action, timestamp, key_values, changes FROM audit_logs`)
	if len(conds) > 0 {
		q.WriteString(" WHERE ")
		q.WriteString(strings.Join(conds, " AND "))
	}
	q.WriteString(" ORDER BY timestamp DESC, id DESC LIMIT ?")
	args = append(args, audit.NormalizeLimit(limit))

	rows, err := txcontext.Execer(ctx, s.db).QueryContext(ctx, q.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("query audit records: %w", err)
	}
	defer rows.Close()

	var out []audit.Record
	for rows.Next() {
		var (
			r      audit.Record
			action string
			ts     string
		)
		if err := rows.Scan(&r.ID, &r.ActorID, &r.ActorName, &r.EntityKind, &action, &ts, &r.KeyValues, &r.Changes); err != nil {
			return nil, fmt.Errorf("scan audit record: %w", err)
		}
		r.Action = audit.Action(action)
		if r.Timestamp, err = time.Parse(timeLayout, ts); err != nil {
			return nil, fmt.Errorf("parse audit timestamp %q: %w", ts, err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit records: %w", err)
	}
	return out, nil
}
