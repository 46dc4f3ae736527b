package handler

import (
	"time"

	"ons/internal/domains/models"
	"ons/internal/domains/service"
)

// DomainResponse is the public view of a DomainRecord.
type DomainResponse struct {
	Domain         string     `json:"domain"`
	FullName       string     `json:"full_name"`
	Address        string     `json:"address"`
	TxHash         string     `json:"tx_hash"`
	DeletionTxHash string     `json:"deletion_tx_hash,omitempty"`
	Status         string     `json:"status"`
	Reason         string     `json:"reason,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
	LastVerifiedAt *time.Time `json:"last_verified_at,omitempty"`
}

type DomainListResponse struct {
	Domains []*DomainResponse `json:"domains"`
}

type SyncResponse struct {
	Records []*DomainResponse `json:"records"`
}

type AvailabilityResponse struct {
	Domain    string `json:"domain"`
	Available bool   `json:"available"`
}

// BalanceResponse carries amounts as decimal strings so no precision is lost in JSON.
type BalanceResponse struct {
	Balance     string `json:"balance"`
	BalanceRaw  string `json:"balance_raw"`
	CanRegister bool   `json:"can_register"`
	CanDelete   bool   `json:"can_delete"`
}

func FromRecord(rec *models.DomainRecord) *DomainResponse {
	return &DomainResponse{
		Domain:         rec.Domain,
		FullName:       rec.FullName(),
		Address:        rec.OwnerAddress,
		TxHash:         rec.TxHash,
		DeletionTxHash: rec.DeletionTxHash,
		Status:         string(rec.Status),
		Reason:         rec.Reason,
		CreatedAt:      rec.CreatedAt,
		UpdatedAt:      rec.UpdatedAt,
		LastVerifiedAt: rec.LastVerifiedAt,
	}
}

func FromRecords(recs []*models.DomainRecord) []*DomainResponse {
	out := make([]*DomainResponse, 0, len(recs))
	for _, rec := range recs {
		out = append(out, FromRecord(rec))
	}
	return out
}

func FromBalance(view *service.BalanceView) *BalanceResponse {
	return &BalanceResponse{
		Balance:     view.Balance.String(),
		BalanceRaw:  view.BalanceRaw,
		CanRegister: view.CanRegister,
		CanDelete:   view.CanDelete,
	}
}
