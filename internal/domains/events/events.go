// Package events carries typed notifications about domain lifecycle changes.
//
// Notifications are informational: a failed or dropped delivery never fails
// the operation that produced it.
package events

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"ons/internal/domains/models"
)

// Type names a notification.
type Type string

const (
	DomainPending   Type = "domain.pending"
	DomainActivated Type = "domain.activated"
	DomainDeleting  Type = "domain.deleting"
	DomainDeleted   Type = "domain.deleted"
	DomainRejected  Type = "domain.rejected"
	DomainRestored  Type = "domain.restored"
	DomainReview    Type = "domain.review"
	StatsChanged    Type = "stats.changed"
)

// Event is one notification.
type Event struct {
	ID      uuid.UUID     `json:"id"`
	Type    Type          `json:"type"`
	Domain  string        `json:"domain,omitempty"`
	Address string        `json:"address,omitempty"`
	TxHash  string        `json:"tx_hash,omitempty"`
	Status  models.Status `json:"status,omitempty"`
	Reason  string        `json:"reason,omitempty"`
	At      time.Time     `json:"at"`
}

// ForRecord builds an event describing rec's current state.
func ForRecord(t Type, rec *models.DomainRecord, at time.Time) Event {
	tx := rec.TxHash
	if rec.Status == models.StatusDeleting || rec.Status == models.StatusDeleted || rec.Status == models.StatusReview {
		tx = rec.DeletionTxHash
	}
	return Event{
		ID:      uuid.New(),
		Type:    t,
		Domain:  rec.Domain,
		Address: rec.OwnerAddress,
		TxHash:  tx,
		Status:  rec.Status,
		Reason:  rec.Reason,
		At:      at,
	}
}

// TypeForStatus maps the status a record just entered to its notification.
func TypeForStatus(s models.Status, from models.Status) Type {
	switch s {
	case models.StatusPending:
		return DomainPending
	case models.StatusActive:
		if from == models.StatusDeleting || from == models.StatusReview {
			return DomainRestored
		}
		return DomainActivated
	case models.StatusDeleting:
		return DomainDeleting
	case models.StatusDeleted:
		return DomainDeleted
	case models.StatusRejected:
		return DomainRejected
	default:
		return DomainReview
	}
}

// Publisher delivers notifications.
type Publisher interface {
	Publish(ctx context.Context, evt Event) error
}

// Multi fans out to every publisher and joins their errors.
type Multi []Publisher

func (m Multi) Publish(ctx context.Context, evt Event) error {
	var errs []error
	for _, p := range m {
		if p == nil {
			continue
		}
		if err := p.Publish(ctx, evt); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
