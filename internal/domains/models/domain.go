package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	dErrors "ons/pkg/domain-errors"
)

// DomainRecord maps a domain to the address that paid for it.
//
// Invariants:
//   - At most one live record (see Status.IsLive) exists per Domain; older rows stay as history
//   - TxHash is the registration transaction and is unique across all rows
//   - DeletionTxHash is only set while deleting, in review, or once deleted
//   - CreatedAt is immutable after construction
//   - Status only moves along Status.CanTransitionTo
type DomainRecord struct {
	ID                  uuid.UUID  `json:"id"`
	Domain              string     `json:"domain"`
	OwnerAddress        string     `json:"address"`
	TxHash              string     `json:"tx_hash"`
	DeletionTxHash      string     `json:"deletion_tx_hash,omitempty"`
	Status              Status     `json:"status"`
	Reason              string     `json:"reason,omitempty"`
	CreatedAt           time.Time  `json:"created_at"`
	UpdatedAt           time.Time  `json:"updated_at"`
	LastVerifiedAt      *time.Time `json:"last_verified_at,omitempty"`
	DeletionRequestedAt *time.Time `json:"deletion_requested_at,omitempty"`
}

// NewPendingRecord builds an optimistic, unverified claim.
func NewPendingRecord(domain, owner, txHash string, now time.Time) *DomainRecord {
	return newRecord(domain, owner, txHash, StatusPending, now)
}

// NewActiveRecord builds a record from an already verified registration.
func NewActiveRecord(domain, owner, txHash string, now time.Time) *DomainRecord {
	rec := newRecord(domain, owner, txHash, StatusActive, now)
	rec.LastVerifiedAt = &now
	return rec
}

func newRecord(domain, owner, txHash string, status Status, now time.Time) *DomainRecord {
	return &DomainRecord{
		ID:           uuid.New(),
		Domain:       domain,
		OwnerAddress: owner,
		TxHash:       txHash,
		Status:       status,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func (r *DomainRecord) IsActive() bool  { return r.Status == StatusActive }
func (r *DomainRecord) IsPending() bool { return r.Status == StatusPending }
func (r *DomainRecord) IsLive() bool    { return r.Status.IsLive() }

// FullName is the domain with its suffix.
func (r *DomainRecord) FullName() string { return FullName(r.Domain) }

// Clone returns a deep copy; stores hand out copies so callers cannot mutate shared state.
func (r *DomainRecord) Clone() *DomainRecord {
	if r == nil {
		return nil
	}
	c := *r
	if r.LastVerifiedAt != nil {
		t := *r.LastVerifiedAt
		c.LastVerifiedAt = &t
	}
	if r.DeletionRequestedAt != nil {
		t := *r.DeletionRequestedAt
		c.DeletionRequestedAt = &t
	}
	return &c
}

// ApplyActivation promotes a verified claim. txHash replaces the claim's hash
// when a different, valid transaction was supplied for the same owner.
func (r *DomainRecord) ApplyActivation(txHash string, now time.Time) {
	r.Status = StatusActive
	r.TxHash = txHash
	r.Reason = ""
	r.touch(now)
	r.LastVerifiedAt = &now
}

// CanRequestDeletion allows deletion only from active.
func (r *DomainRecord) CanRequestDeletion() error {
	if r.Status != StatusActive {
		return dErrors.New(dErrors.CodeInvalidState,
			fmt.Sprintf("%s is %s; only active domains can be deleted", r.FullName(), r.Status))
	}
	return nil
}

// ApplyDeletionRequest moves the record to deleting optimistically.
func (r *DomainRecord) ApplyDeletionRequest(deletionTxHash string, now time.Time) {
	r.Status = StatusDeleting
	r.DeletionTxHash = deletionTxHash
	r.Reason = ""
	r.DeletionRequestedAt = &now
	r.touch(now)
}

// ApplyDeleted finalizes a verified deletion.
func (r *DomainRecord) ApplyDeleted(now time.Time) {
	r.Status = StatusDeleted
	r.Reason = ""
	r.touch(now)
	r.LastVerifiedAt = &now
}

// ApplyRestore reverts a failed deletion back to active.
// The deletion hash is dropped; the reason keeps why.
func (r *DomainRecord) ApplyRestore(reason string, now time.Time) {
	r.Status = StatusActive
	r.DeletionTxHash = ""
	r.DeletionRequestedAt = nil
	r.Reason = reason
	r.touch(now)
	r.LastVerifiedAt = &now
}

// ApplyReview parks a failed deletion for an operator.
func (r *DomainRecord) ApplyReview(reason string, now time.Time) {
	r.Status = StatusReview
	r.Reason = reason
	r.touch(now)
	r.LastVerifiedAt = &now
}

// ApplyRejection ends a claim that can never verify.
func (r *DomainRecord) ApplyRejection(reason string, now time.Time) {
	r.Status = StatusRejected
	r.Reason = reason
	r.touch(now)
	r.LastVerifiedAt = &now
}

// MarkChecked records a reconciliation attempt that changed nothing.
func (r *DomainRecord) MarkChecked(now time.Time) {
	r.LastVerifiedAt = &now
	r.UpdatedAt = now
}

// MarkInvalid records why a pending claim failed verification without ending it.
func (r *DomainRecord) MarkInvalid(reason string, now time.Time) {
	r.Reason = reason
	r.MarkChecked(now)
}

// ReplaceClaim swaps the transaction behind a pending claim.
func (r *DomainRecord) ReplaceClaim(txHash string, now time.Time) {
	r.TxHash = txHash
	r.Reason = ""
	r.touch(now)
}

func (r *DomainRecord) touch(now time.Time) {
	r.UpdatedAt = now
}
