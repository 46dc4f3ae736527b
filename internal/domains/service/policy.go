package service

import (
	"fmt"
	"time"
)

// InvalidClaimPolicy decides what reconciliation does with a pending claim
// whose transaction is confirmed-invalid or failed.
type InvalidClaimPolicy string

const (
	// KeepPending records the reason and leaves the claim pending, so the
	// owner can replace it with a valid transaction.
	KeepPending InvalidClaimPolicy = "keep_pending"
	// RejectClaim ends the claim and frees the name.
	RejectClaim InvalidClaimPolicy = "reject"
)

// DeletionFailurePolicy decides what happens to a deletion whose transaction
// fails verification or never resolves.
type DeletionFailurePolicy string

const (
	RevertDeletion DeletionFailurePolicy = "revert"
	ReviewDeletion DeletionFailurePolicy = "review"
)

// Policy tunes reconciliation.
type Policy struct {
	InvalidClaim    InvalidClaimPolicy
	DeletionFailure DeletionFailurePolicy
	// PendingTimeout is how long a claim whose transaction never confirms
	// may hold its name, counted from CreatedAt.
	PendingTimeout time.Duration
	// DeletionTimeout is how long an unresolved deletion may stay deleting.
	DeletionTimeout time.Duration
	// AwaitWindow bounds AwaitConfirmation.
	AwaitWindow time.Duration
}

func DefaultPolicy() Policy {
	return Policy{
		InvalidClaim:    KeepPending,
		DeletionFailure: RevertDeletion,
		PendingTimeout:  time.Hour,
		DeletionTimeout: time.Hour,
		AwaitWindow:     5 * time.Minute,
	}
}

// ParsePolicy builds a Policy from configuration strings.
func ParsePolicy(invalidClaim, deletionFailure string, pendingTimeout, deletionTimeout, awaitWindow time.Duration) (Policy, error) {
	p := DefaultPolicy()
	switch InvalidClaimPolicy(invalidClaim) {
	case KeepPending, RejectClaim:
		p.InvalidClaim = InvalidClaimPolicy(invalidClaim)
	default:
		return Policy{}, fmt.Errorf("unknown invalid claim policy %q", invalidClaim)
	}
	switch DeletionFailurePolicy(deletionFailure) {
	case RevertDeletion, ReviewDeletion:
		p.DeletionFailure = DeletionFailurePolicy(deletionFailure)
	default:
		return Policy{}, fmt.Errorf("unknown deletion failure policy %q", deletionFailure)
	}
	if pendingTimeout > 0 {
		p.PendingTimeout = pendingTimeout
	}
	if deletionTimeout > 0 {
		p.DeletionTimeout = deletionTimeout
	}
	if awaitWindow > 0 {
		p.AwaitWindow = awaitWindow
	}
	return p, nil
}
