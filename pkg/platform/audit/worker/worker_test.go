package worker

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	audit "companyapp/pkg/platform/audit"
	"companyapp/pkg/platform/audit/store/memory"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func sample(id int64) []audit.Record {
	return []audit.Record{{ID: id, ActorID: "u1", EntityKind: "Company", Action: audit.ActionAdded, Timestamp: time.Now()}}
}

func TestWorkerMirrorsPublishedRecords(t *testing.T) {
	store := memory.NewInMemoryStore()
	w := NewWorker(store, WithLogger(quietLogger()))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	w.Publish(ctx, sample(1))
	w.Publish(ctx, sample(2))
	require.Eventually(t, func() bool { return store.Len() == 2 }, 2*time.Second, 10*time.Millisecond)

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}

func TestPublishCopiesRecords(t *testing.T) {
	store := memory.NewInMemoryStore()
	w := NewWorker(store, WithLogger(quietLogger()))

	records := sample(5)
	w.Publish(context.Background(), records)
	records[0].ActorID = "mutated"

	batch := <-w.inbox
	assert.Equal(t, "u1", batch[0].ActorID)
}

func TestPublishDropsWhenFull(t *testing.T) {
	store := memory.NewInMemoryStore()
	w := NewWorker(store, WithLogger(quietLogger()), WithBuffer(1))

	w.Publish(context.Background(), sample(1))
	w.Publish(context.Background(), sample(2))
	assert.Len(t, w.inbox, 1)
}

func TestRunDrainsOnShutdown(t *testing.T) {
	store := memory.NewInMemoryStore()
	w := NewWorker(store, WithLogger(quietLogger()), WithBuffer(4))
	w.Publish(context.Background(), sample(1))
	w.Publish(context.Background(), sample(2))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_ = w.Run(ctx)

	assert.Equal(t, 2, store.Len())
}

type failingStore struct {
	audit.Store
	calls atomic.Int32
}

func (f *failingStore) Append(context.Context, []audit.Record) error {
	f.calls.Add(1)
	return errors.New("mirror down")
}

func TestMirrorFailureDoesNotStopWorker(t *testing.T) {
	store := &failingStore{}
	w := NewWorker(store, WithLogger(quietLogger()))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = w.Run(ctx) }()

	w.Publish(ctx, sample(1))
	w.Publish(ctx, sample(2))
	require.Eventually(t, func() bool { return store.calls.Load() == 2 }, 2*time.Second, 10*time.Millisecond)
}

// flappingStore fails while down is set.
type flappingStore struct {
	audit.Store
	down atomic.Bool
}

func (f *flappingStore) Append(ctx context.Context, records []audit.Record) error {
	if f.down.Load() {
		return errors.New("mirror down")
	}
	return f.Store.Append(ctx, records)
}

func TestMirrorHealthFollowsFailures(t *testing.T) {
	store := &flappingStore{Store: memory.NewInMemoryStore()}
	w := NewWorker(store, WithLogger(quietLogger()))
	ctx := context.Background()

	store.down.Store(true)
	for i := 0; i < mirrorFailureThreshold-1; i++ {
		w.mirror(ctx, sample(int64(i)))
	}
	assert.True(t, w.Healthy())
	w.mirror(ctx, sample(9))
	assert.False(t, w.Healthy())

	store.down.Store(false)
	w.mirror(ctx, sample(10))
	assert.False(t, w.Healthy(), "one success is not enough to recover")
	w.mirror(ctx, sample(11))
	assert.True(t, w.Healthy())
}
