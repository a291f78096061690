// Package audit captures an immutable change trail for unit-of-work commits.
//
// A commit runs in two phases. Phase one applies the business mutations and
// appends every audit record whose key is already known in one transaction.
// Records for inserts whose key the storage engine assigns are finalized once
// phase one has committed and are appended in a second, separate transaction.
// A failure in that second phase leaves business data durable and is reported
// as a *FinalizationError.
package audit

import (
	"context"
	"time"

	"companyapp/pkg/platform/uow"
)

// RecordKind is the entity kind of the audit log's own rows. Entries of this
// kind are never classified.
const RecordKind = "AuditLog"

// DefaultQueryLimit caps trail queries that do not specify a limit.
const DefaultQueryLimit = 50

// Fallback identity used when no principal is bound to the context.
const (
	UnknownActorID   = "Unknown"
	UnknownActorName = "Anonymous"
)

// Operation is the classified kind of mutation.
type Operation int

const (
	OperationInsert Operation = iota + 1
	OperationUpdate
	OperationDelete
)

// Action is the persisted form of an operation.
type Action string

const (
	ActionAdded    Action = "Added"
	ActionModified Action = "Modified"
	ActionDeleted  Action = "Deleted"
)

// Action returns the persisted form of op.
func (op Operation) Action() Action {
	switch op {
	case OperationInsert:
		return ActionAdded
	case OperationUpdate:
		return ActionModified
	case OperationDelete:
		return ActionDeleted
	default:
		return ""
	}
}

func (op Operation) String() string {
	switch op {
	case OperationInsert:
		return "Insert"
	case OperationUpdate:
		return "Update"
	case OperationDelete:
		return "Delete"
	default:
		return "Unknown"
	}
}

// PendingChange is the classified diff of one mutated entity.
type PendingChange struct {
	EntityKind     string
	Operation      Operation
	KeyValues      map[string]any
	OldValues      map[string]any
	NewValues      map[string]any
	HasDeferredKey bool

	// PendingSlots lists the storage-generated properties that had no value
	// at classification time.
	PendingSlots []string

	entry *uow.Entry
}

// Entry is the unit-of-work entry the change was classified from.
func (c PendingChange) Entry() *uow.Entry { return c.entry }

// Empty reports whether the change carries no property values.
func (c PendingChange) Empty() bool {
	return len(c.OldValues) == 0 && len(c.NewValues) == 0
}

// Actor identifies who performed a mutation.
type Actor struct {
	ID   string
	Name string
}

// Record is one persisted row of the audit trail. KeyValues and Changes hold
// JSON text. Records are append-only.
type Record struct {
	ID         int64     `json:"id"`
	ActorID    string    `json:"userId"`
	ActorName  string    `json:"userName"`
	EntityKind string    `json:"entityName"`
	Action     Action    `json:"action"`
	Timestamp  time.Time `json:"timestamp"`
	KeyValues  string    `json:"keyValues"`
	Changes    string    `json:"changes"`
}

// DeferredRecord is a record still waiting for storage-generated values. It
// cannot be appended to a Store; Finalize turns it into a Record.
type DeferredRecord struct {
	actor     Actor
	timestamp time.Time
	change    PendingChange
	redact    Redactor
}

// EntityKind is the kind of the entity the record describes.
func (d DeferredRecord) EntityKind() string { return d.change.EntityKind }

// PendingSlots lists the properties Finalize will read back.
func (d DeferredRecord) PendingSlots() []string {
	return append([]string(nil), d.change.PendingSlots...)
}

// Filter narrows a trail query. Zero fields match everything.
type Filter struct {
	ActorID    string
	EntityKind string
	Since      time.Time
	Until      time.Time
}

// Matches reports whether r passes the filter. Since is inclusive, Until
// exclusive.
func (f Filter) Matches(r Record) bool {
	if f.ActorID != "" && r.ActorID != f.ActorID {
		return false
	}
	if f.EntityKind != "" && r.EntityKind != f.EntityKind {
		return false
	}
	if !f.Since.IsZero() && r.Timestamp.Before(f.Since) {
		return false
	}
	if !f.Until.IsZero() && !r.Timestamp.Before(f.Until) {
		return false
	}
	return true
}

// Store persists audit records. Append assigns IDs in place and joins the
// transaction bound to ctx when there is one. There is no update or delete.
type Store interface {
	Append(ctx context.Context, records []Record) error
	Query(ctx context.Context, filter Filter, limit int) ([]Record, error)
}

// NormalizeLimit applies DefaultQueryLimit to non-positive limits.
func NormalizeLimit(limit int) int {
	if limit <= 0 {
		return DefaultQueryLimit
	}
	return limit
}
