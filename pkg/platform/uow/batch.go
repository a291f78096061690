package uow

// Batch is the set of entries committed together.
// A batch belongs to one caller; it is not safe for concurrent use.
type Batch struct {
	entries []*Entry
}

// NewBatch returns an empty batch.
func NewBatch() *Batch {
	return &Batch{}
}

// Add registers entity for insertion. Pass a pointer to receive
// storage-generated values after the commit.
func (b *Batch) Add(entity any) (*Entry, error) {
	return b.track(entity, nil, Added)
}

// Update registers current as the desired state of a row loaded as original.
func (b *Batch) Update(current, original any) (*Entry, error) {
	return b.track(current, original, Modified)
}

// Delete registers entity for removal.
func (b *Batch) Delete(entity any) (*Entry, error) {
	return b.track(entity, nil, Deleted)
}

// Attach registers entity as loaded and unchanged.
func (b *Batch) Attach(entity any) (*Entry, error) {
	return b.track(entity, nil, Unchanged)
}

func (b *Batch) track(entity, original any, state State) (*Entry, error) {
	e, err := NewEntry(entity, original, state)
	if err != nil {
		return nil, err
	}
	b.entries = append(b.entries, e)
	return e, nil
}

// Entries returns the tracked entries in registration order.
func (b *Batch) Entries() []*Entry {
	out := make([]*Entry, len(b.entries))
	copy(out, b.entries)
	return out
}

// Len returns the number of tracked entries.
func (b *Batch) Len() int {
	return len(b.entries)
}

// HasChanges reports whether any entry would write to storage.
func (b *Batch) HasChanges() bool {
	for _, e := range b.entries {
		if e.state.IsMutation() {
			return true
		}
	}
	return false
}

// AcceptChanges marks every entry as persisted.
func (b *Batch) AcceptChanges() {
	for _, e := range b.entries {
		e.AcceptChanges()
	}
}

// DiscardGenerated reverts generated values assigned by a failed commit.
func (b *Batch) DiscardGenerated() {
	for _, e := range b.entries {
		e.DiscardGenerated()
	}
}
