// Package dedupe remembers which (intent, tx) pairs were already applied so
// re-delivered confirmations are no-ops.
//
// The set is bounded and advisory: forgetting a key only costs one extra
// verification, because store writes are compare-and-set.
package dedupe

import "context"

// Deduper is a bounded recently-processed set.
type Deduper interface {
	Seen(ctx context.Context, key string) (bool, error)
	Mark(ctx context.Context, key string) error
}

// Nop never remembers anything.
type Nop struct{}

func (Nop) Seen(context.Context, string) (bool, error) { return false, nil }
func (Nop) Mark(context.Context, string) error         { return nil }
