package worker

import (
	"context"
	"log/slog"
	"time"

	audit "companyapp/pkg/platform/audit"
	"companyapp/pkg/platform/circuit"
)

const (
	defaultBuffer = 256
	drainTimeout  = 5 * time.Second

	mirrorFailureThreshold = 3
)

// Worker copies persisted audit records into a secondary store in the
// background. It is an audit.Sink; Publish never blocks the commit path and
// drops batches when the buffer is full.
//
// While the mirror keeps failing, errors are logged once when the circuit
// opens and again when it recovers.
type Worker struct {
	store   audit.Store
	inbox   chan []audit.Record
	breaker *circuit.Breaker
	logger  *slog.Logger
}

type Option func(*Worker)

func WithLogger(logger *slog.Logger) Option {
	return func(w *Worker) {
		w.logger = logger
	}
}

func WithBuffer(n int) Option {
	return func(w *Worker) {
		if n > 0 {
			w.inbox = make(chan []audit.Record, n)
		}
	}
}

func NewWorker(store audit.Store, opts ...Option) *Worker {
	w := &Worker{
		store:   store,
		inbox:   make(chan []audit.Record, defaultBuffer),
		breaker: circuit.New("audit-mirror", circuit.WithFailureThreshold(mirrorFailureThreshold)),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Publish queues a copy of records for mirroring.
func (w *Worker) Publish(ctx context.Context, records []audit.Record) {
	batch := append([]audit.Record(nil), records...)
	select {
	case w.inbox <- batch:
	default:
		w.logger.WarnContext(ctx, "audit mirror buffer full, dropping records", "records", len(batch))
	}
}

// Run mirrors queued batches until ctx is done, then drains what is already
// queued. Mirror failures are logged and do not stop the worker.
func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			w.drain()
			return ctx.Err()
		case batch := <-w.inbox:
			// a batch already dequeued is written even if shutdown began
			w.mirror(context.WithoutCancel(ctx), batch)
		}
	}
}

func (w *Worker) drain() {
	ctx, cancel := context.WithTimeout(context.Background(), drainTimeout)
	defer cancel()
	for {
		select {
		case batch := <-w.inbox:
			w.mirror(ctx, batch)
		default:
			return
		}
	}
}

// Healthy reports whether recent mirror writes succeeded.
func (w *Worker) Healthy() bool {
	return !w.breaker.IsOpen()
}

func (w *Worker) mirror(ctx context.Context, batch []audit.Record) {
	err := w.store.Append(ctx, batch)
	if err == nil {
		if _, change := w.breaker.RecordSuccess(); change.Closed {
			w.logger.InfoContext(ctx, "audit mirror recovered")
		}
		return
	}

	degraded, change := w.breaker.RecordFailure()
	switch {
	case change.Opened:
		w.logger.ErrorContext(ctx, "audit mirror unavailable, suppressing further errors", "records", len(batch), "error", err)
	case degraded:
		w.logger.DebugContext(ctx, "audit mirror still unavailable", "records", len(batch), "error", err)
	default:
		w.logger.ErrorContext(ctx, "failed to mirror audit records", "records", len(batch), "error", err)
	}
}
