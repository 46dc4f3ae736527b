package store

import (
	"time"

	"github.com/google/uuid"

	"ons/internal/domains/models"
)

// Wire types of the registry HTTP surface, shared by Remote and the registry API.

// CreateRecordRequest is the body of POST /domains. Only domain, address,
// tx_hash and status are required; the rest lets a resolver replicate its
// own record identity and timestamps.
type CreateRecordRequest struct {
	ID             *uuid.UUID `json:"id,omitempty"`
	Domain         string     `json:"domain"`
	Address        string     `json:"address"`
	TxHash         string     `json:"tx_hash"`
	Status         string     `json:"status"`
	Reason         string     `json:"reason,omitempty"`
	CreatedAt      *time.Time `json:"created_at,omitempty"`
	LastVerifiedAt *time.Time `json:"last_verified_at,omitempty"`
}

// UpdateStatusRequest is the body of PUT /domains/{domain}/status.
// ExpectedStatus turns the write into a compare-and-set.
type UpdateStatusRequest struct {
	Status              string     `json:"status"`
	DeletionTxHash      *string    `json:"deletion_tx_hash,omitempty"`
	ID                  *uuid.UUID `json:"id,omitempty"`
	TxHash              string     `json:"tx_hash,omitempty"`
	Reason              *string    `json:"reason,omitempty"`
	ExpectedStatus      string     `json:"expected_status,omitempty"`
	LastVerifiedAt      *time.Time `json:"last_verified_at,omitempty"`
	DeletionRequestedAt *time.Time `json:"deletion_requested_at,omitempty"`
	ClearDeletion       bool       `json:"clear_deletion,omitempty"`
}

// UpdateStatusResponse reports how many rows changed.
type UpdateStatusResponse struct {
	Success bool `json:"success"`
	Updated int  `json:"updated"`
}

// RecordList wraps list responses.
type RecordList struct {
	Domains []*models.DomainRecord `json:"domains"`
}

// StatusUpdateFor builds the compare-and-set body that replicates rec.
func StatusUpdateFor(rec *models.DomainRecord, from models.Status) UpdateStatusRequest {
	id := rec.ID
	reason := rec.Reason
	deletion := rec.DeletionTxHash
	return UpdateStatusRequest{
		Status:              string(rec.Status),
		DeletionTxHash:      &deletion,
		ID:                  &id,
		TxHash:              rec.TxHash,
		Reason:              &reason,
		ExpectedStatus:      string(from),
		LastVerifiedAt:      rec.LastVerifiedAt,
		DeletionRequestedAt: rec.DeletionRequestedAt,
		ClearDeletion:       rec.DeletionRequestedAt == nil,
	}
}

// Apply copies the request's fields onto rec.
func (r UpdateStatusRequest) Apply(rec *models.DomainRecord, now time.Time) {
	rec.Status = models.Status(r.Status)
	if r.TxHash != "" {
		rec.TxHash = r.TxHash
	}
	if r.DeletionTxHash != nil {
		rec.DeletionTxHash = *r.DeletionTxHash
	}
	if r.Reason != nil {
		rec.Reason = *r.Reason
	}
	if r.LastVerifiedAt != nil {
		t := *r.LastVerifiedAt
		rec.LastVerifiedAt = &t
	}
	switch {
	case r.DeletionRequestedAt != nil:
		t := *r.DeletionRequestedAt
		rec.DeletionRequestedAt = &t
	case r.ClearDeletion:
		rec.DeletionRequestedAt = nil
	case rec.Status == models.StatusDeleting && rec.DeletionRequestedAt == nil:
		rec.DeletionRequestedAt = &now
	}
	rec.UpdatedAt = now
}
