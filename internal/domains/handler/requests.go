package handler

import (
	"strings"

	"ons/internal/domains/models"
	dErrors "ons/pkg/domain-errors"
)

var errInvalidLimit = dErrors.New(dErrors.CodeBadRequest, "limit must be an integer")

// ClaimRequest is the body of POST /domains/register and POST /domains/pending.
type ClaimRequest struct {
	Domain  string `json:"domain"`
	Address string `json:"address"`
	TxHash  string `json:"tx_hash"`
}

// Validate normalizes and validates the claim.
// Implements the Validatable interface for httputil.DecodeAndPrepare.
func (r *ClaimRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	r.Domain = strings.TrimSpace(r.Domain)
	r.Address = strings.TrimSpace(r.Address)
	r.TxHash = strings.TrimSpace(r.TxHash)
	if r.Domain == "" || r.Address == "" || r.TxHash == "" {
		return dErrors.New(dErrors.CodeValidation, "domain, address and tx_hash are required")
	}
	name, err := models.ParseName(r.Domain)
	if err != nil {
		return err
	}
	r.Domain = name
	if err := models.ValidateAddress(r.Address); err != nil {
		return err
	}
	return models.ValidateTxHash(r.TxHash)
}

// DeleteRequest is the body of POST /domains/{domain}/delete. Address must be
// the domain's owner and the sender of the deletion transaction.
type DeleteRequest struct {
	Address string `json:"address"`
	TxHash  string `json:"tx_hash"`
}

func (r *DeleteRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	r.Address = strings.TrimSpace(r.Address)
	r.TxHash = strings.TrimSpace(r.TxHash)
	if r.Address == "" || r.TxHash == "" {
		return dErrors.New(dErrors.CodeValidation, "address and tx_hash are required")
	}
	if err := models.ValidateAddress(r.Address); err != nil {
		return err
	}
	return models.ValidateTxHash(r.TxHash)
}

// ProcessRequest is the optional body of POST /transactions/{tx_hash}/process.
type ProcessRequest struct {
	Address string `json:"address"`
}

func (r *ProcessRequest) Validate() error {
	if r == nil {
		return nil
	}
	r.Address = strings.TrimSpace(r.Address)
	if r.Address == "" {
		return nil
	}
	return models.ValidateAddress(r.Address)
}
