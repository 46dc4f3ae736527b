package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"ons/internal/domains/models"
	"ons/pkg/platform/sentinel"
)

// InMemory is a map-backed store for tests and single-process development.
type InMemory struct {
	mu       sync.RWMutex
	rows     map[uuid.UUID]*models.DomainRecord
	byDomain map[string][]uuid.UUID
	byTx     map[string]uuid.UUID
}

func NewInMemory() *InMemory {
	return &InMemory{
		rows:     make(map[uuid.UUID]*models.DomainRecord),
		byDomain: make(map[string][]uuid.UUID),
		byTx:     make(map[string]uuid.UUID),
	}
}

func (s *InMemory) Create(_ context.Context, rec *models.DomainRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.rows[rec.ID]; ok {
		return fmt.Errorf("record %s exists: %w", rec.ID, sentinel.ErrConflict)
	}
	if rec.Status.IsLive() {
		if live := s.liveLocked(rec.Domain); live != nil {
			return fmt.Errorf("domain %s is held: %w", rec.Domain, sentinel.ErrConflict)
		}
	}
	if _, used := s.byTx[rec.TxHash]; used {
		return fmt.Errorf("tx %s already used: %w", rec.TxHash, sentinel.ErrConflict)
	}

	s.rows[rec.ID] = rec.Clone()
	s.byDomain[rec.Domain] = append(s.byDomain[rec.Domain], rec.ID)
	s.byTx[rec.TxHash] = rec.ID
	return nil
}

func (s *InMemory) FindByDomain(_ context.Context, domain string) (*models.DomainRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := s.byDomain[domain]
	if len(ids) == 0 {
		return nil, sentinel.ErrNotFound
	}
	return s.rows[ids[len(ids)-1]].Clone(), nil
}

func (s *InMemory) Update(_ context.Context, rec *models.DomainRecord, from models.Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.rows[rec.ID]
	if !ok {
		return sentinel.ErrNotFound
	}
	if cur.Status != from {
		return fmt.Errorf("%s moved from %s to %s: %w", rec.Domain, from, cur.Status, sentinel.ErrInvalidState)
	}
	if rec.TxHash != cur.TxHash {
		if _, used := s.byTx[rec.TxHash]; used {
			return fmt.Errorf("tx %s already used: %w", rec.TxHash, sentinel.ErrConflict)
		}
		delete(s.byTx, cur.TxHash)
		s.byTx[rec.TxHash] = rec.ID
	}
	s.rows[rec.ID] = rec.Clone()
	return nil
}

func (s *InMemory) Resolve(_ context.Context, domain string) (*models.DomainRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if live := s.liveLocked(domain); live != nil && live.Status == models.StatusActive {
		return live.Clone(), nil
	}
	return nil, sentinel.ErrNotFound
}

func (s *InMemory) ListByAddress(_ context.Context, address string) ([]*models.DomainRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*models.DomainRecord, 0)
	for _, rec := range s.rows {
		if rec.OwnerAddress == address {
			out = append(out, rec.Clone())
		}
	}
	sortNewestFirst(out)
	return out, nil
}

func (s *InMemory) Recent(_ context.Context, limit int) ([]*models.DomainRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*models.DomainRecord, 0)
	for _, rec := range s.rows {
		if rec.Status == models.StatusActive {
			out = append(out, rec.Clone())
		}
	}
	sortNewestFirst(out)
	if limit = ClampLimit(limit); len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *InMemory) ListByStatus(_ context.Context, limit int, statuses ...models.Status) ([]*models.DomainRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	want := make(map[models.Status]bool, len(statuses))
	for _, st := range statuses {
		want[st] = true
	}
	out := make([]*models.DomainRecord, 0)
	for _, rec := range s.rows {
		if want[rec.Status] {
			out = append(out, rec.Clone())
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return olderFirst(out[i].LastVerifiedAt, out[j].LastVerifiedAt)
	})
	if limit = ClampLimit(limit); len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *InMemory) Stats(_ context.Context, since time.Time) (*models.Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := &models.Stats{}
	owners := make(map[string]struct{})
	for _, rec := range s.rows {
		if rec.Status != models.StatusActive {
			continue
		}
		stats.TotalDomains++
		owners[rec.OwnerAddress] = struct{}{}
		if !rec.CreatedAt.Before(since) {
			stats.RecentRegistrations++
		}
	}
	stats.TotalOwners = len(owners)
	return stats, nil
}

// liveLocked returns the live record for domain, if any. Caller holds mu.
func (s *InMemory) liveLocked(domain string) *models.DomainRecord {
	ids := s.byDomain[domain]
	for i := len(ids) - 1; i >= 0; i-- {
		if rec := s.rows[ids[i]]; rec.Status.IsLive() {
			return rec
		}
	}
	return nil
}

func sortNewestFirst(recs []*models.DomainRecord) {
	sort.SliceStable(recs, func(i, j int) bool {
		return recs[i].CreatedAt.After(recs[j].CreatedAt)
	})
}
