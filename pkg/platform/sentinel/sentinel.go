package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores return these (optionally
// wrapped) so services can translate them into coded domain errors.
//
// These represent factual states about records, not policy decisions:
// - ErrNotFound: record does not exist in the store
// - ErrConflict: a uniqueness constraint rejected the write
// - ErrInvalidState: record in wrong state for the requested operation
// - ErrUnavailable: store timed out or is temporarily unreachable
//
// Whether a missing record surfaces as NotFound or Forbidden to a caller is
// decided by the service layer, never here.
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrInvalidState = errors.New("invalid state")
	ErrUnavailable  = errors.New("unavailable")
)
