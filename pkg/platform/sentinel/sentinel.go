package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores, the unit-of-work writer
// and the audit pipeline return these (optionally wrapped) so services can
// translate them into domain errors.
//
//   - ErrNotFound: the targeted row does not exist (update/delete touched no rows)
//   - ErrConflict: a uniqueness or foreign-key constraint rejected the write
//   - ErrInvalidState: an entry is in the wrong tracking state for the request
//   - ErrUnavailable: the backing store could not be reached
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrInvalidState = errors.New("invalid state")
	ErrUnavailable  = errors.New("unavailable")
)
