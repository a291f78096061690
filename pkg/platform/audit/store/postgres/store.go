package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/lib/pq"

	audit "companyapp/pkg/platform/audit"
	"companyapp/pkg/platform/sentinel"
	txcontext "companyapp/pkg/platform/tx"
)

// Schema creates the audit_logs table. Timestamps are timestamptz; key values
// and changes stay text so the stored JSON is byte-for-byte what was built.
const Schema = `
CREATE TABLE IF NOT EXISTS audit_logs (
	id BIGSERIAL PRIMARY KEY,
	user_id TEXT NOT NULL,
	user_name TEXT NOT NULL,
	entity_name TEXT NOT NULL,
	action TEXT NOT NULL,
	timestamp TIMESTAMPTZ NOT NULL,
	key_values TEXT NOT NULL,
	changes TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_audit_logs_timestamp ON audit_logs (timestamp DESC, id DESC);
CREATE INDEX IF NOT EXISTS idx_audit_logs_user_id ON audit_logs (user_id);
CREATE INDEX IF NOT EXISTS idx_audit_logs_entity_name ON audit_logs (entity_name);
`

// Store implements audit.Store on PostgreSQL.
type Store struct {
	db *sql.DB
}

// New creates a new PostgreSQL audit store.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// Migrate creates the audit_logs table if it does not exist.
func Migrate(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("create audit schema: %w", mapError(err))
	}
	return nil
}

// Append inserts records inside the transaction bound to ctx and sets their IDs.
func (s *Store) Append(ctx context.Context, records []audit.Record) error {
	query := `
		INSERT INTO audit_logs (user_id, user_name, entity_name, action, timestamp, key_values, changes)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`
	exec := txcontext.Execer(ctx, s.db)
	for i := range records {
		r := &records[i]
		err := exec.QueryRowContext(ctx, query,
			r.ActorID,
			r.ActorName,
			r.EntityKind,
			string(r.Action),
			r.Timestamp.UTC(),
			r.KeyValues,
			r.Changes,
		).Scan(&r.ID)
		if err != nil {
			return fmt.Errorf("insert audit record: %w", mapError(err))
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
	next := func(v any) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}
	if filter.ActorID != "" {
		conds = append(conds, "user_id = "+next(filter.ActorID))
	}
	if filter.EntityKind != "" {
		conds = append(conds, "entity_name = "+next(filter.EntityKind))
	}
	if !filter.Since.IsZero() {
		conds = append(conds, "timestamp >= "+next(filter.Since.UTC()))
	}
	if !filter.Until.IsZero() {
		conds = append(conds, "timestamp < "+next(filter.Until.UTC()))
	}

	query := `
		SELECT id, user_id, user_name, entity_name, action, timestamp, key_values, changes
		FROM audit_logs`
	if len(conds) > 0 {
		query += "\n\t\tWHERE " + strings.Join(conds, " AND ")
	}
	query += "\n\t\tORDER BY timestamp DESC, id DESC\n\t\tLIMIT " + next(audit.NormalizeLimit(limit))

	rows, err := txcontext.Execer(ctx, s.db).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query audit records: %w", mapError(err))
	}
	defer rows.Close()

	return scanRecords(rows)
}

func scanRecords(rows *sql.Rows) ([]audit.Record, error) {
	var records []audit.Record
	for rows.Next() {
		var (
			r      audit.Record
			action string
		)
		err := rows.Scan(
			&r.ID,
			&r.ActorID,
			&r.ActorName,
			&r.EntityKind,
			&action,
			&r.Timestamp,
			&r.KeyValues,
			&r.Changes,
		)
		if err != nil {
			return nil, fmt.Errorf("scan audit record: %w", err)
		}
		r.Action = audit.Action(action)
		r.Timestamp = r.Timestamp.UTC()
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit records: %w", err)
	}
	return records, nil
}

// mapError translates driver errors into sentinel errors, keeping the
// original in the chain.
func mapError(err error) error {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return err
	}
	switch {
	case pqErr.Code == "23505":
		return fmt.Errorf("%w: %w", sentinel.ErrConflict, err)
	case pqErr.Code.Class() == "08", pqErr.Code.Class() == "57":
		return fmt.Errorf("%w: %w", sentinel.ErrUnavailable, err)
	default:
		return err
	}
}
