// Package uow is the unit of work that application code hands to the audit
// pipeline.
//
// Callers describe a commit explicitly: every entity is registered with the
// state it should reach (Added, Modified, Deleted) together with the snapshot
// it was loaded as. Nothing is tracked implicitly. SQLWriter applies the
// entries inside a transaction and writes storage-generated values (identity
// keys, column defaults) back into both the entry and the entity struct.
//
// Entities are plain structs whose persisted fields carry a db tag:
//
//	type Company struct {
//		ID   int64  `db:"id,key,generated"`
//		Name string `db:"name"`
//	}
//
// The tag's first element is the column; "key" marks primary-key columns and
// "generated" marks values the storage engine assigns on insert.
package uow

// State is the tracking state of an entry in a batch.
type State int

const (
	Detached State = iota
	Unchanged
	Added
	Modified
	Deleted
)

func (s State) String() string {
	switch s {
	case Detached:
		return "Detached"
	case Unchanged:
		return "Unchanged"
	case Added:
		return "Added"
	case Modified:
		return "Modified"
	case Deleted:
		return "Deleted"
	default:
		return "Unknown"
	}
}

// IsMutation reports whether committing the state writes to storage.
func (s State) IsMutation() bool {
	return s == Added || s == Modified || s == Deleted
}
