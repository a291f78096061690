// Package database opens the SQL database backing both the records and the
// audit trail.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"companyapp/pkg/platform/uow"
)

const defaultBusyTimeout = 5 * time.Second

// Options selects and tunes the database.
type Options struct {
	Driver     string // "sqlite" or "postgres"
	DSN        string // postgres connection string
	SQLitePath string
	MaxOpen    int
}

// DB is an open database together with its SQL dialect.
type DB struct {
	*sql.DB
	Dialect uow.Dialect
}

// Open connects and verifies the connection.
func Open(ctx context.Context, opts Options) (*DB, error) {
	dialect, err := uow.DialectFor(opts.Driver)
	if err != nil {
		return nil, err
	}

	var db *sql.DB
	switch dialect {
	case uow.Postgres:
		if strings.TrimSpace(opts.DSN) == "" {
			return nil, fmt.Errorf("postgres DSN is required")
		}
		db, err = sql.Open("postgres", opts.DSN)
		if err != nil {
			return nil, fmt.Errorf("failed to open postgres db: %w", err)
		}
		if opts.MaxOpen > 0 {
			db.SetMaxOpenConns(opts.MaxOpen)
		}
	default:
		db, err = OpenSQLite(opts.SQLitePath)
		if err != nil {
			return nil, err
		}
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping %s db: %w", dialect.Name(), err)
	}
	return &DB{DB: db, Dialect: dialect}, nil
}

// OpenSQLite opens a SQLite file with foreign keys, WAL and a busy timeout.
// A single connection serializes writers, matching SQLite's locking model.
func OpenSQLite(path string) (*sql.DB, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("sqlite path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create sqlite directory: %w", err)
	}

	q := url.Values{}
	q.Add("_pragma", "foreign_keys(1)")
	q.Add("_pragma", fmt.Sprintf("busy_timeout(%d)", defaultBusyTimeout.Milliseconds()))
	q.Add("_pragma", "journal_mode(WAL)")
	q.Set("_time_format", "sqlite")
	db, err := sql.Open("sqlite", "file:"+path+"?"+q.Encode())
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite db: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)
	return db, nil
}
