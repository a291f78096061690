package database

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"companyapp/pkg/platform/uow"
)

func TestOpenSQLiteCreatesDirectoryAndEnablesForeignKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "app.db")
	db, err := Open(context.Background(), Options{Driver: "sqlite", SQLitePath: path})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	assert.Equal(t, uow.SQLite, db.Dialect)

	var fk int
	require.NoError(t, db.QueryRow(`PRAGMA foreign_keys`).Scan(&fk))
	assert.Equal(t, 1, fk)

	var mode string
	require.NoError(t, db.QueryRow(`PRAGMA journal_mode`).Scan(&mode))
	assert.Equal(t, "wal", mode)
}

func TestOpenValidatesOptions(t *testing.T) {
	_, err := Open(context.Background(), Options{Driver: "sqlite"})
	assert.ErrorContains(t, err, "sqlite path is required")

	_, err = Open(context.Background(), Options{Driver: "postgres"})
	assert.ErrorContains(t, err, "postgres DSN is required")

	_, err = Open(context.Background(), Options{Driver: "oracle"})
	assert.Error(t, err)
}
