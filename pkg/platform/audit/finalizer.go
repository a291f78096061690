package audit

import (
	"fmt"
	"maps"
)

// Finalize resolves the pending slots of deferred records from their entries
// and returns complete records. Call it only after the commit that assigned
// the values has succeeded and before the batch accepts its changes. Key
// slots go to the record's key values, other generated slots (column
// defaults) join the inserted values.
//
// Nothing is returned unless every slot of every record resolved.
func Finalize(deferred []DeferredRecord) ([]Record, error) {
	records := make([]Record, 0, len(deferred))
	for _, d := range deferred {
		e := d.change.entry
		if e == nil {
			return nil, fmt.Errorf("%w: %s has no entry", ErrUnresolvedKey, d.change.EntityKind)
		}

		c := d.change
		c.KeyValues = maps.Clone(c.KeyValues)
		c.NewValues = maps.Clone(c.NewValues)
		if c.KeyValues == nil {
			c.KeyValues = map[string]any{}
		}
		if c.NewValues == nil {
			c.NewValues = map[string]any{}
		}

		for _, slot := range c.PendingSlots {
			// a zero value the writer assigned (DEFAULT 0, DEFAULT '') is resolved
			v, ok := e.Value(slot)
			if !ok || e.IsTemporary(slot) {
				return nil, fmt.Errorf("%w: %s.%s", ErrUnresolvedKey, c.EntityKind, slot)
			}
			if e.IsKey(slot) {
				c.KeyValues[slot] = v
				continue
			}
			c.NewValues[slot] = v
		}
		c.PendingSlots = nil
		c.HasDeferredKey = false
		records = append(records, newRecord(d.actor, d.timestamp, c, d.redact))
	}
	return records, nil
}
