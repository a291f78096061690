package uow

import (
	"fmt"
	"reflect"

	"companyapp/pkg/platform/sentinel"
)

// Property is a point-in-time view of one persisted field of an entry.
type Property struct {
	Name      string // audit name, PascalCase of the column
	Column    string
	Key       bool
	Generated bool
	Original  any
	Current   any
}

type property struct {
	Property
	index    []int
	assigned bool
	before   any // Current prior to Assign, restored by DiscardGenerated
}

// Entry is one entity registered in a batch.
type Entry struct {
	kind   string
	table  string
	state  State
	props  []*property
	target reflect.Value // addressable struct; invalid when registered by value
}

// NewEntry snapshots entity into an entry with the given state.
//
// For Modified entries original supplies the loaded snapshot and entity the
// desired one; both must be the same struct type. For every other state
// original is ignored. Passing a pointer lets generated values be written back
// into the caller's struct after the insert.
func NewEntry(entity any, original any, state State) (*Entry, error) {
	if state < Detached || state > Deleted {
		return nil, fmt.Errorf("uow: state %d: %w", int(state), sentinel.ErrInvalidState)
	}
	cur, err := structValue(entity)
	if err != nil {
		return nil, err
	}
	meta, err := metaFor(cur.Type())
	if err != nil {
		return nil, err
	}

	var orig reflect.Value
	if state == Modified {
		orig, err = structValue(original)
		if err != nil {
			return nil, err
		}
		if orig.Type() != cur.Type() {
			return nil, fmt.Errorf("%w: original %v does not match %v", ErrInvalidEntity, orig.Type(), cur.Type())
		}
	}

	e := &Entry{kind: meta.kind, table: meta.table, state: state}
	if cur.CanAddr() {
		e.target = cur
	}
	for _, f := range meta.fields {
		p := &property{
			Property: Property{
				Name:      f.name,
				Column:    f.column,
				Key:       f.key,
				Generated: f.generated,
				Current:   fieldValue(cur.FieldByIndex(f.index)),
			},
			index: f.index,
		}
		switch state {
		case Added:
			p.Original = nil
		case Modified:
			p.Original = fieldValue(orig.FieldByIndex(f.index))
		default:
			p.Original = p.Current
		}
		e.props = append(e.props, p)
	}
	return e, nil
}

// Kind is the entity kind, the struct name unless the type implements Kinder.
func (e *Entry) Kind() string { return e.kind }

// Table is the storage table name.
func (e *Entry) Table() string { return e.table }

// State is the current tracking state.
func (e *Entry) State() State { return e.state }

// Properties returns copies of the entry's properties in declaration order.
func (e *Entry) Properties() []Property {
	out := make([]Property, len(e.props))
	for i, p := range e.props {
		out[i] = p.Property
	}
	return out
}

// Value returns the current value of the named property.
func (e *Entry) Value(name string) (any, bool) {
	p := e.lookup(name)
	if p == nil {
		return nil, false
	}
	return p.Current, true
}

// IsKey reports whether name is a primary-key property.
func (e *Entry) IsKey(name string) bool {
	p := e.lookup(name)
	return p != nil && p.Key
}

// IsTemporary reports whether name is storage-generated and still waiting
// for its value. Only Added entries can hold temporary values; a generated
// property the caller filled in explicitly is inserted as given.
func (e *Entry) IsTemporary(name string) bool {
	p := e.lookup(name)
	return p != nil && e.isTemporary(p)
}

func (e *Entry) isTemporary(p *property) bool {
	return e.state == Added && p.Generated && !p.assigned && isZero(p.Current)
}

// Assign stores a storage-generated value for the named property and writes
// it back into the entity struct when the entry was registered by pointer.
func (e *Entry) Assign(name string, value any) error {
	p := e.lookup(name)
	if p == nil {
		return fmt.Errorf("uow: %s has no property %q", e.kind, name)
	}
	if !p.assigned {
		p.before = p.Current
	}
	if e.target.IsValid() {
		field := e.target.FieldByIndex(p.index)
		if err := setField(field, value); err != nil {
			return fmt.Errorf("uow: assign %s.%s: %w", e.kind, name, err)
		}
		p.Current = fieldValue(field)
	} else {
		p.Current = value
	}
	p.assigned = true
	return nil
}

// AcceptChanges marks the entry as persisted: Added and Modified entries
// become Unchanged with their current values as the new originals, Deleted
// entries become Detached.
func (e *Entry) AcceptChanges() {
	switch e.state {
	case Added, Modified:
		for _, p := range e.props {
			p.Original = p.Current
			p.assigned = false
			p.before = nil
		}
		e.state = Unchanged
	case Deleted:
		e.state = Detached
	}
}

// DiscardGenerated reverts values assigned during a commit attempt that did
// not complete, so the entry can be retried with its keys still temporary.
func (e *Entry) DiscardGenerated() {
	for _, p := range e.props {
		if !p.assigned {
			continue
		}
		if e.target.IsValid() {
			field := e.target.FieldByIndex(p.index)
			_ = setField(field, p.before)
		}
		p.Current = p.before
		p.assigned = false
		p.before = nil
	}
}

// Detach removes the entry from tracking without persisting anything.
func (e *Entry) Detach() {
	e.state = Detached
}

func (e *Entry) lookup(name string) *property {
	for _, p := range e.props {
		if p.Name == name || p.Column == name {
			return p
		}
	}
	return nil
}
