package service

import (
	"context"
	"errors"

	"ons/internal/domains/models"
	dErrors "ons/pkg/domain-errors"
	"ons/pkg/platform/sentinel"
	"ons/pkg/requestcontext"

	"github.com/shopspring/decimal"
)

// ResolveDomain returns the active record for domain.
func (s *Service) ResolveDomain(ctx context.Context, domain string) (*models.DomainRecord, error) {
	name, err := models.ParseName(domain)
	if err != nil {
		return nil, err
	}
	rec, err := s.store.Resolve(ctx, name)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.Newf(dErrors.CodeNotFound, "%s does not resolve", models.FullName(name))
	}
	if err != nil {
		return nil, storeError(err, "failed to resolve domain")
	}
	return rec, nil
}

// CheckAvailability reports whether no live record holds domain.
func (s *Service) CheckAvailability(ctx context.Context, domain string) (bool, error) {
	name, err := models.ParseName(domain)
	if err != nil {
		return false, err
	}
	current, err := s.current(ctx, name)
	if err != nil {
		return false, err
	}
	return current == nil || !current.IsLive(), nil
}

// DomainsByAddress lists every record owned by address, newest first.
func (s *Service) DomainsByAddress(ctx context.Context, address string) ([]*models.DomainRecord, error) {
	if err := models.ValidateAddress(address); err != nil {
		return nil, err
	}
	recs, err := s.store.ListByAddress(ctx, address)
	if err != nil {
		return nil, storeError(err, "failed to list domains")
	}
	return recs, nil
}

// RecentDomains lists the newest active registrations.
func (s *Service) RecentDomains(ctx context.Context, limit int) ([]*models.DomainRecord, error) {
	recs, err := s.store.Recent(ctx, limit)
	if err != nil {
		return nil, storeError(err, "failed to list recent domains")
	}
	return recs, nil
}

func (s *Service) Stats(ctx context.Context) (*models.Stats, error) {
	since := requestcontext.Now(ctx).Add(-models.RecentWindow)
	stats, err := s.store.Stats(ctx, since)
	if err != nil {
		return nil, storeError(err, "failed to load stats")
	}
	return stats, nil
}

// BalanceView is an address balance with the affordability gates a wallet
// shows before sending a protocol transaction.
type BalanceView struct {
	Balance     decimal.Decimal
	BalanceRaw  string
	CanRegister bool
	CanDelete   bool
}

func (s *Service) Balance(ctx context.Context, address string) (*BalanceView, error) {
	if err := models.ValidateAddress(address); err != nil {
		return nil, err
	}
	bal, err := s.gateway.GetBalance(ctx, address)
	if err != nil {
		return nil, gatewayError(err)
	}
	p := s.Protocol()
	return &BalanceView{
		Balance:     bal.Balance,
		BalanceRaw:  bal.BalanceRaw,
		CanRegister: bal.Balance.GreaterThanOrEqual(p.Fee(models.IntentRegister)),
		CanDelete:   bal.Balance.GreaterThanOrEqual(p.Fee(models.IntentDelete)),
	}, nil
}
