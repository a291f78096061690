package audit

import (
	"time"
)

// Build converts pending changes into records. Changes whose key is known
// become immediate Records; changes with pending storage-generated slots
// become DeferredRecords for Finalize. A nil now uses the process clock.
func Build(changes []PendingChange, actor Actor, now func() time.Time) ([]Record, []DeferredRecord) {
	return build(changes, actor, now, nil)
}

func build(changes []PendingChange, actor Actor, now func() time.Time, redact Redactor) ([]Record, []DeferredRecord) {
	if now == nil {
		now = processClock.Now
	}
	actor = actor.normalized()

	var (
		immediate []Record
		deferred  []DeferredRecord
	)
	for _, c := range changes {
		ts := now().UTC()
		if c.HasDeferredKey {
			deferred = append(deferred, DeferredRecord{
				actor:     actor,
				timestamp: ts,
				change:    c,
				redact:    redact,
			})
			continue
		}
		immediate = append(immediate, newRecord(actor, ts, c, redact))
	}
	return immediate, deferred
}

func newRecord(actor Actor, ts time.Time, c PendingChange, redact Redactor) Record {
	return Record{
		ActorID:    actor.ID,
		ActorName:  actor.Name,
		EntityKind: c.EntityKind,
		Action:     c.Operation.Action(),
		Timestamp:  ts,
		KeyValues:  encodeValues(c.KeyValues),
		Changes: encodeChanges(c.Operation,
			redactMap(redact, c.EntityKind, c.OldValues),
			redactMap(redact, c.EntityKind, c.NewValues)),
	}
}
