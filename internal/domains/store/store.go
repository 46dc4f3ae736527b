// Package store persists DomainRecords.
//
// Every implementation enforces the same contract atomically at the storage
// layer, because the service's per-domain lock only covers one process:
//   - Create fails with sentinel.ErrConflict if the domain already has a live
//     record or the tx hash was used before
//   - Update is compare-and-set on the record's previous status and fails with
//     sentinel.ErrInvalidState if another writer moved it first
//   - lookups return sentinel.ErrNotFound, never nil records
package store

import "time"

const (
	defaultRecentLimit = 10
	maxListLimit       = 100
)

// ClampLimit applies the default and maximum page sizes.
func ClampLimit(limit int) int {
	if limit <= 0 {
		return defaultRecentLimit
	}
	if limit > maxListLimit {
		return maxListLimit
	}
	return limit
}

func olderFirst(a, b *time.Time) bool {
	switch {
	case a == nil && b == nil:
		return false
	case a == nil:
		return true
	case b == nil:
		return false
	default:
		return a.Before(*b)
	}
}
