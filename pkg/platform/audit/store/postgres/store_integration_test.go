//go:build integration

package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	audit "companyapp/pkg/platform/audit"
	"companyapp/pkg/platform/audit/store/storetest"
	txcontext "companyapp/pkg/platform/tx"
	"companyapp/pkg/testutil/containers"
)

func TestPostgresStore(t *testing.T) {
	pg := containers.NewPostgresContainer(t)
	require.NoError(t, Migrate(context.Background(), pg.DB))

	storetest.Run(t, func(t *testing.T) audit.Store {
		_, err := pg.DB.ExecContext(context.Background(), `TRUNCATE audit_logs RESTART IDENTITY`)
		require.NoError(t, err)
		return New(pg.DB)
	})
}

func TestPostgresAppendRollsBackWithTransaction(t *testing.T) {
	pg := containers.NewPostgresContainer(t)
	ctx := context.Background()
	require.NoError(t, Migrate(ctx, pg.DB))
	s := New(pg.DB)

	boom := errors.New("boom")
	err := txcontext.Run(ctx, pg.DB, func(ctx context.Context) error {
		records := []audit.Record{{
			ActorID: "u1", ActorName: "Ada", EntityKind: "Company",
			Action: audit.ActionAdded, Timestamp: time.Now(), KeyValues: "{}", Changes: "{}",
		}}
		if err := s.Append(ctx, records); err != nil {
			return err
		}
		require.Positive(t, records[0].ID)
		return boom
	})
	require.ErrorIs(t, err, boom)

	out, err := s.Query(ctx, audit.Filter{}, 10)
	require.NoError(t, err)
	require.Empty(t, out)
}
