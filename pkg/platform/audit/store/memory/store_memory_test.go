package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	audit "companyapp/pkg/platform/audit"
	"companyapp/pkg/platform/audit/store/storetest"
)

func TestInMemoryStore(t *testing.T) {
	storetest.Run(t, func(t *testing.T) audit.Store {
		return NewInMemoryStore()
	})
}

func TestAppendRespectsCancellation(t *testing.T) {
	s := NewInMemoryStore()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := s.Append(ctx, []audit.Record{{EntityKind: "Company", Timestamp: time.Now()}})
	require.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, s.Len())
}

func TestAppendKeepsEarlierRecords(t *testing.T) {
	s := NewInMemoryStore()
	first := []audit.Record{{EntityKind: "Company", Timestamp: time.Now()}}
	require.NoError(t, s.Append(context.Background(), first))
	second := []audit.Record{{EntityKind: "Mission", Timestamp: time.Now()}}
	require.NoError(t, s.Append(context.Background(), second))

	assert.Equal(t, 2, s.Len())
	assert.Equal(t, int64(2), second[0].ID)
	assert.Zero(t, NewInMemoryStore().Len(), "a new store starts empty")
}
