// Package service reconciles the registry with the chain.
//
// Every mutation runs under a per-domain lock around its read-verify-write
// sequence. The lock only serializes one process; the store's
// compare-and-set updates and unique indexes arbitrate between instances.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"ons/internal/chain"
	"ons/internal/domains/dedupe"
	"ons/internal/domains/events"
	"ons/internal/domains/metrics"
	"ons/internal/domains/models"
	"ons/internal/domains/verify"
	dErrors "ons/pkg/domain-errors"
	"ons/pkg/platform/sentinel"
	"ons/pkg/requestcontext"
)

// Store is the registry persistence port.
type Store interface {
	Create(ctx context.Context, rec *models.DomainRecord) error
	FindByDomain(ctx context.Context, domain string) (*models.DomainRecord, error)
	Update(ctx context.Context, rec *models.DomainRecord, from models.Status) error
	Resolve(ctx context.Context, domain string) (*models.DomainRecord, error)
	ListByAddress(ctx context.Context, address string) ([]*models.DomainRecord, error)
	Recent(ctx context.Context, limit int) ([]*models.DomainRecord, error)
	ListByStatus(ctx context.Context, limit int, statuses ...models.Status) ([]*models.DomainRecord, error)
	Stats(ctx context.Context, since time.Time) (*models.Stats, error)
}

// Gateway is the chain read port.
type Gateway interface {
	GetTransaction(ctx context.Context, hash string) (*chain.Transaction, error)
	GetBalance(ctx context.Context, address string) (*chain.Balance, error)
	ListTransactions(ctx context.Context, address string, limit int) ([]chain.Transaction, error)
}

// Notifier receives lifecycle notifications. Failures are logged, never returned.
type Notifier interface {
	Publish(ctx context.Context, evt events.Event) error
}

type Service struct {
	store    Store
	gateway  Gateway
	verifier *verify.Verifier
	deduper  dedupe.Deduper
	notifier Notifier
	locks    *domainLocker
	policy   Policy
	logger   *slog.Logger
	metrics  *metrics.Metrics
	tracer   trace.Tracer

	awaitInterval time.Duration
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithMetrics enables prometheus metrics. Without it the service records nothing.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithNotifier(n Notifier) Option {
	return func(s *Service) {
		s.notifier = n
	}
}

func WithDeduper(d dedupe.Deduper) Option {
	return func(s *Service) {
		s.deduper = d
	}
}

func WithPolicy(p Policy) Option {
	return func(s *Service) {
		s.policy = p
	}
}

// WithLockTimeout bounds how long a mutation waits for its domain lock when
// the caller's context has no deadline.
func WithLockTimeout(d time.Duration) Option {
	return func(s *Service) {
		s.locks.timeout = d
	}
}

func New(store Store, gateway Gateway, protocol verify.Protocol, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, errors.New("registry store is required")
	}
	if gateway == nil {
		return nil, errors.New("chain gateway is required")
	}
	svc := &Service{
		store:    store,
		gateway:  gateway,
		verifier: verify.New(gateway, protocol),
		deduper:  dedupe.Nop{},
		locks:    newDomainLocker(defaultLockTimeout),
		policy:   DefaultPolicy(),
		logger:   slog.Default(),
		tracer:   otel.Tracer("ons/internal/domains/service"),

		awaitInterval: awaitInitialInterval,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// Protocol exposes the constants claims are verified against.
func (s *Service) Protocol() verify.Protocol {
	return s.verifier.Protocol()
}

// current returns the newest record for domain, or nil when there is none.
func (s *Service) current(ctx context.Context, domain string) (*models.DomainRecord, error) {
	rec, err := s.store.FindByDomain(ctx, domain)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, storeError(err, "failed to load domain")
	}
	return rec, nil
}

// save writes a transition computed from a record whose status was from.
func (s *Service) save(ctx context.Context, next *models.DomainRecord, from models.Status) error {
	if err := from.Guard(next.Status); err != nil {
		return err
	}
	if err := s.store.Update(ctx, next, from); err != nil {
		return storeError(err, "failed to update domain")
	}
	if next.Status != from {
		s.transitioned(ctx, next, from)
	}
	return nil
}

// transitioned emits the audit log, metric and notification for a status change.
func (s *Service) transitioned(ctx context.Context, rec *models.DomainRecord, from models.Status) {
	if s.metrics != nil {
		s.metrics.IncrementTransition(string(from), string(rec.Status))
	}
	s.logger.InfoContext(ctx, "domain transitioned",
		"request_id", requestcontext.RequestID(ctx),
		"domain", rec.FullName(),
		"address", rec.OwnerAddress,
		"from", from,
		"to", rec.Status,
		"reason", rec.Reason,
	)
	now := requestcontext.Now(ctx)
	s.notify(ctx, events.ForRecord(events.TypeForStatus(rec.Status, from), rec, now))
	if changesStats(from, rec.Status) {
		s.notify(ctx, events.Event{ID: uuid.New(), Type: events.StatsChanged, At: now})
	}
}

// changesStats reports whether a transition moves the active-domain counts.
func changesStats(from, to models.Status) bool {
	return (from == models.StatusActive) != (to == models.StatusActive)
}

func (s *Service) created(ctx context.Context, rec *models.DomainRecord) {
	if s.metrics != nil {
		s.metrics.IncrementTransition("", string(rec.Status))
	}
	s.logger.InfoContext(ctx, "domain recorded",
		"request_id", requestcontext.RequestID(ctx),
		"domain", rec.FullName(),
		"address", rec.OwnerAddress,
		"status", rec.Status,
		"tx_hash", rec.TxHash,
	)
	now := requestcontext.Now(ctx)
	s.notify(ctx, events.ForRecord(events.TypeForStatus(rec.Status, ""), rec, now))
	if rec.IsActive() {
		s.notify(ctx, events.Event{ID: uuid.New(), Type: events.StatsChanged, At: now})
	}
}

func (s *Service) notify(ctx context.Context, evt events.Event) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Publish(ctx, evt); err != nil {
		if s.metrics != nil {
			s.metrics.IncrementNotifyFailure()
		}
		s.logger.WarnContext(ctx, "failed to publish notification",
			"type", evt.Type,
			"domain", evt.Domain,
			"error", err,
		)
	}
}

// markApplied remembers a verified (intent, tx) pair. The store already holds
// the transition, so a failure here only costs a later re-verification.
func (s *Service) markApplied(ctx context.Context, intent models.Intent, txHash string) {
	if err := s.deduper.Mark(ctx, models.DedupeKey(intent, txHash)); err != nil {
		s.logger.WarnContext(ctx, "failed to mark transaction applied",
			"intent", intent,
			"tx_hash", txHash,
			"error", err,
		)
	}
}

func (s *Service) alreadyApplied(ctx context.Context, intent models.Intent, txHash string) bool {
	seen, err := s.deduper.Seen(ctx, models.DedupeKey(intent, txHash))
	if err != nil {
		s.logger.WarnContext(ctx, "dedupe lookup failed",
			"intent", intent,
			"tx_hash", txHash,
			"error", err,
		)
		return false
	}
	if seen && s.metrics != nil {
		s.metrics.IncrementDedupeHit()
	}
	return seen
}

func (s *Service) observeVerification(intent models.Intent, res verify.Result) {
	if s.metrics != nil {
		s.metrics.IncrementVerification(string(intent), string(res.Outcome))
	}
}

// storeError translates store sentinels into domain errors.
func storeError(err error, msg string) error {
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.Wrap(err, dErrors.CodeNotFound, "domain not found")
	case errors.Is(err, sentinel.ErrConflict):
		return dErrors.Wrap(err, dErrors.CodeConflict, msg)
	case errors.Is(err, sentinel.ErrInvalidState):
		return dErrors.Wrap(err, dErrors.CodeInvalidState, "domain changed concurrently")
	case errors.Is(err, sentinel.ErrUnavailable):
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "registry store unavailable")
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, msg)
	}
}

// unresolvedError maps a not-yet-decidable verification to a retryable error.
func unresolvedError(res verify.Result) error {
	if res.Reason == verify.ReasonGateway {
		return dErrors.Wrap(res.Err, dErrors.CodeUnavailable, "chain gateway unavailable")
	}
	return dErrors.New(dErrors.CodeTxPending, "transaction is not confirmed yet")
}

func validateClaim(domain, address, txHash string) (string, error) {
	name, err := models.ParseName(domain)
	if err != nil {
		return "", err
	}
	if err := models.ValidateAddress(address); err != nil {
		return "", err
	}
	if err := models.ValidateTxHash(txHash); err != nil {
		return "", err
	}
	return name, nil
}
