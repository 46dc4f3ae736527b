package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores and infrastructure layers return
// these (optionally wrapped) so services can translate them into domain errors.
//
//   - ErrNotFound: record does not exist in the store, or a transaction is unknown to the chain
//   - ErrConflict: a uniqueness rule rejected the write (live domain, reused tx hash)
//   - ErrInvalidState: the record moved to another status before a compare-and-set write
//   - ErrUnavailable: store or upstream temporarily unavailable
//
// For validation errors (bad input, missing fields), use pkg/domain-errors directly.
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrInvalidState = errors.New("invalid state")
	ErrUnavailable  = errors.New("unavailable")
)
