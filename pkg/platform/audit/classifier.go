package audit

import (
	"companyapp/pkg/platform/uow"
)

// Classify turns the mutated entries of a batch into pending changes, in
// entry order. Unchanged and detached entries are skipped, as are entries of
// the audit log's own kind.
//
// Storage-generated properties still waiting for a value are listed in
// PendingSlots instead of the value maps and set HasDeferredKey. Updates carry
// only the properties that differ; an update with no differing property is
// still returned, with empty maps.
func Classify(entries []*uow.Entry) []PendingChange {
	var changes []PendingChange
	for _, e := range entries {
		if e == nil || e.Kind() == RecordKind {
			continue
		}

		var op Operation
		switch e.State() {
		case uow.Added:
			op = OperationInsert
		case uow.Modified:
			op = OperationUpdate
		case uow.Deleted:
			op = OperationDelete
		default:
			continue
		}

		c := PendingChange{
			EntityKind: e.Kind(),
			Operation:  op,
			KeyValues:  map[string]any{},
			OldValues:  map[string]any{},
			NewValues:  map[string]any{},
			entry:      e,
		}

		for _, p := range e.Properties() {
			if e.IsTemporary(p.Name) {
				c.HasDeferredKey = true
				c.PendingSlots = append(c.PendingSlots, p.Name)
				continue
			}
			if p.Key {
				if op == OperationUpdate {
					c.KeyValues[p.Name] = p.Original
				} else {
					c.KeyValues[p.Name] = p.Current
				}
			}

			switch op {
			case OperationInsert:
				c.NewValues[p.Name] = p.Current
			case OperationDelete:
				c.OldValues[p.Name] = p.Original
			case OperationUpdate:
				if !uow.Equal(p.Original, p.Current) {
					c.OldValues[p.Name] = p.Original
					c.NewValues[p.Name] = p.Current
				}
			}
		}
		changes = append(changes, c)
	}
	return changes
}
