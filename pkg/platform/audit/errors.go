package audit

import (
	"errors"
	"fmt"
)

var (
	// ErrFinalizationFailed matches every *FinalizationError.
	ErrFinalizationFailed = errors.New("audit: deferred records not persisted")

	// ErrUnresolvedKey is returned by Finalize when a pending slot still has
	// no storage-assigned value.
	ErrUnresolvedKey = errors.New("audit: unresolved storage-generated value")
)

// FinalizationError reports that business data was committed but the audit
// records for its inserts were not. Records holds what was lost; it is empty
// when the records could not even be built.
type FinalizationError struct {
	Records []Record
	Err     error
}

func (e *FinalizationError) Error() string {
	return fmt.Sprintf("%s (%d records): %v", ErrFinalizationFailed, len(e.Records), e.Err)
}

func (e *FinalizationError) Unwrap() error { return e.Err }

func (e *FinalizationError) Is(target error) bool {
	return target == ErrFinalizationFailed
}
