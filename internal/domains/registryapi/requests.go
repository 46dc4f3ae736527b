package registryapi

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"ons/internal/domains/models"
	"ons/internal/domains/store"
	dErrors "ons/pkg/domain-errors"
)

type createRequest struct {
	store.CreateRecordRequest
	status models.Status
}

// Validate implements httputil.Validatable.
func (r *createRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	r.Address = strings.TrimSpace(r.Address)
	r.TxHash = strings.TrimSpace(r.TxHash)
	if strings.TrimSpace(r.Domain) == "" || r.Address == "" || r.TxHash == "" {
		return dErrors.New(dErrors.CodeValidation, "domain, address and tx_hash are required")
	}
	name, err := models.ParseName(r.Domain)
	if err != nil {
		return err
	}
	r.Domain = name
	if r.Status == "" {
		r.status = models.StatusActive
		return nil
	}
	r.status, err = models.ParseStatus(r.Status)
	return err
}

func (r *createRequest) toRecord(now time.Time) *models.DomainRecord {
	id := uuid.New()
	if r.ID != nil {
		id = *r.ID
	}
	created := now
	if r.CreatedAt != nil {
		created = *r.CreatedAt
	}
	rec := &models.DomainRecord{
		ID:           id,
		Domain:       r.Domain,
		OwnerAddress: r.Address,
		TxHash:       r.TxHash,
		Status:       r.status,
		Reason:       r.Reason,
		CreatedAt:    created,
		UpdatedAt:    now,
	}
	if r.LastVerifiedAt != nil {
		t := *r.LastVerifiedAt
		rec.LastVerifiedAt = &t
	}
	return rec
}

type updateRequest struct {
	store.UpdateStatusRequest
}

// Validate implements httputil.Validatable.
func (r *updateRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	if _, err := models.ParseStatus(r.Status); err != nil {
		return err
	}
	if r.ExpectedStatus != "" {
		if _, err := models.ParseStatus(r.ExpectedStatus); err != nil {
			return err
		}
	}
	return nil
}
