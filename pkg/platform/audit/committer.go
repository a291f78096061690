package audit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"companyapp/pkg/platform/tx"
	"companyapp/pkg/platform/uow"
	"companyapp/pkg/requestcontext"
)

// Writer applies unit-of-work entries to storage inside the transaction
// bound to ctx, writing storage-generated values back into the entries.
type Writer interface {
	Apply(ctx context.Context, entries []*uow.Entry) error
}

// Sink receives records after they are durably persisted.
type Sink interface {
	Publish(ctx context.Context, records []Record)
}

// Plan is a classified batch ready to commit.
type Plan struct {
	Changes   []PendingChange
	Immediate []Record
	Deferred  []DeferredRecord
}

// Result describes an audited commit. Committed is true once the business
// mutations are durable, even when the call also returned a
// *FinalizationError.
type Result struct {
	Committed bool
	Records   []Record
}

// Committer wraps the raw commit primitive with audit capture.
type Committer struct {
	txr     tx.Transactor
	writer  Writer
	store   Store
	clock   *Clock
	redact  Redactor
	sink    Sink
	logger  *slog.Logger
	metrics *Metrics
	tracer  trace.Tracer
}

// Option configures the Committer.
type Option func(*Committer)

func WithLogger(logger *slog.Logger) Option {
	return func(c *Committer) {
		c.logger = logger
	}
}

func WithMetrics(m *Metrics) Option {
	return func(c *Committer) {
		c.metrics = m
	}
}

// WithClock replaces the process-wide monotonic clock.
func WithClock(clock *Clock) Option {
	return func(c *Committer) {
		if clock != nil {
			c.clock = clock
		}
	}
}

func WithTracer(tracer trace.Tracer) Option {
	return func(c *Committer) {
		if tracer != nil {
			c.tracer = tracer
		}
	}
}

// WithRedactor masks property values before they are encoded.
func WithRedactor(r Redactor) Option {
	return func(c *Committer) {
		c.redact = r
	}
}

// WithSink publishes persisted records, e.g. to a read mirror.
func WithSink(s Sink) Option {
	return func(c *Committer) {
		c.sink = s
	}
}

// NewCommitter builds a committer. store must join the transaction bound to
// the context by txr for phase one to be atomic with the business writes.
func NewCommitter(txr tx.Transactor, writer Writer, store Store, opts ...Option) *Committer {
	c := &Committer{
		txr:    txr,
		writer: writer,
		store:  store,
		clock:  processClock,
		logger: slog.Default(),
		tracer: otel.Tracer("companyapp/audit"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Prepare classifies the batch and builds its records without touching
// storage.
func (c *Committer) Prepare(ctx context.Context, batch *uow.Batch, actor Actor) Plan {
	changes := Classify(batch.Entries())
	for _, ch := range changes {
		if ch.Operation == OperationUpdate && ch.Empty() {
			c.metrics.IncEmptyDiffs()
			c.logger.DebugContext(ctx, "audit classification anomaly: modified entity without changes",
				"entity", ch.EntityKind,
				"keys", ch.KeyValues,
			)
		}
	}
	immediate, deferred := build(changes, actor, c.clock.Now, c.redact)
	return Plan{Changes: changes, Immediate: immediate, Deferred: deferred}
}

// CommitWithAudit commits batch and its audit trail.
//
// Phase one applies the batch and appends the records whose keys are known in
// a single transaction; its error is returned unchanged and nothing is
// audited. Phase two appends the records of inserts with storage-generated
// keys in a separate transaction. A phase two failure leaves the business
// data committed and returns a *FinalizationError with Result.Committed set.
func (c *Committer) CommitWithAudit(ctx context.Context, batch *uow.Batch, actor Actor) (Result, error) {
	ctx, span := c.tracer.Start(ctx, "audit.commit")
	defer span.End()
	start := time.Now()
	defer func() {
		c.metrics.ObserveCommitDuration(time.Since(start).Seconds())
	}()

	actor = actor.normalized()
	if batch == nil || !batch.HasChanges() {
		return Result{Committed: true}, nil
	}

	plan := c.Prepare(ctx, batch, actor)
	span.SetAttributes(
		attribute.Int("audit.immediate", len(plan.Immediate)),
		attribute.Int("audit.deferred", len(plan.Deferred)),
	)

	if err := c.commitPrimary(ctx, batch, plan.Immediate); err != nil {
		batch.DiscardGenerated()
		c.metrics.IncPrimaryFailures()
		span.RecordError(err)
		span.SetStatus(codes.Error, "primary commit failed")
		c.logger.ErrorContext(ctx, "audited commit failed",
			"actor_id", actor.ID,
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		return Result{}, err
	}
	res := Result{Committed: true, Records: plan.Immediate}
	c.metrics.AddPersisted(phasePrimary, len(plan.Immediate))
	c.publish(ctx, plan.Immediate)

	if len(plan.Deferred) == 0 {
		batch.AcceptChanges()
		return res, nil
	}

	records, err := Finalize(plan.Deferred)
	batch.AcceptChanges()
	if err == nil {
		err = c.commitDeferred(ctx, records)
	}
	if err != nil {
		ferr := &FinalizationError{Records: records, Err: err}
		c.metrics.IncFinalizationFailures()
		span.RecordError(ferr)
		span.SetStatus(codes.Error, "deferred audit commit failed")
		c.logger.ErrorContext(ctx, "CRITICAL: audit trail lost for committed inserts",
			"actor_id", actor.ID,
			"request_id", requestcontext.RequestID(ctx),
			"records", len(plan.Deferred),
			"error", err,
		)
		return res, ferr
	}

	c.metrics.AddPersisted(phaseDeferred, len(records))
	c.publish(ctx, records)
	res.Records = append(res.Records, records...)
	return res, nil
}

func (c *Committer) commitPrimary(ctx context.Context, batch *uow.Batch, records []Record) error {
	ctx, span := c.tracer.Start(ctx, "audit.commit.primary")
	defer span.End()

	return c.txr.RunInTx(ctx, func(ctx context.Context) error {
		if err := c.writer.Apply(ctx, batch.Entries()); err != nil {
			return err
		}
		if len(records) == 0 {
			return nil
		}
		if err := c.store.Append(ctx, records); err != nil {
			return fmt.Errorf("append audit records: %w", err)
		}
		return nil
	})
}

func (c *Committer) commitDeferred(ctx context.Context, records []Record) error {
	ctx, span := c.tracer.Start(ctx, "audit.commit.deferred")
	defer span.End()

	if len(records) == 0 {
		return nil
	}
	return c.txr.RunInTx(ctx, func(ctx context.Context) error {
		return c.store.Append(ctx, records)
	})
}

// QueryAuditTrail returns records matching filter, newest first. A
// non-positive limit returns at most DefaultQueryLimit records.
func (c *Committer) QueryAuditTrail(ctx context.Context, filter Filter, limit int) ([]Record, error) {
	records, err := c.store.Query(ctx, filter, NormalizeLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("query audit trail: %w", err)
	}
	return records, nil
}

// Log appends a record that does not come from a unit of work, e.g. an
// import summary. It joins the transaction bound to ctx, if any.
func (c *Committer) Log(ctx context.Context, actor Actor, kind string, action Action, keys, changes map[string]any) (Record, error) {
	if kind == "" || action == "" {
		return Record{}, errors.New("audit: manual entry requires kind and action")
	}
	actor = actor.normalized()
	rec := Record{
		ActorID:    actor.ID,
		ActorName:  actor.Name,
		EntityKind: kind,
		Action:     action,
		Timestamp:  c.clock.Now(),
		KeyValues:  encodeValues(keys),
		Changes:    encodeValues(redactMap(c.redact, kind, changes)),
	}
	records := []Record{rec}
	if err := c.store.Append(ctx, records); err != nil {
		return Record{}, fmt.Errorf("append audit record: %w", err)
	}
	c.metrics.AddPersisted(phaseManual, 1)
	c.publish(ctx, records)
	return records[0], nil
}

func (c *Committer) publish(ctx context.Context, records []Record) {
	if c.sink == nil || len(records) == 0 {
		return
	}
	c.sink.Publish(ctx, records)
}
