package service

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"ons/internal/domains/models"
	"ons/internal/domains/verify"
	dErrors "ons/pkg/domain-errors"
	"ons/pkg/requestcontext"
)

const (
	// reasonDeletionTimeout is recorded when a deletion never resolved in time.
	reasonDeletionTimeout = "deletion_timeout"
	// reasonPendingTimeout is recorded when a claim's transaction never confirmed in time.
	reasonPendingTimeout = "pending_timeout"
)

// Reconcile re-verifies the newest record for domain against the chain and
// applies whatever transition the chain now justifies. Unresolved checks
// leave the status alone; every attempt stamps LastVerifiedAt, including
// records in a status that has nothing left to verify.
func (s *Service) Reconcile(ctx context.Context, domain string) (*models.DomainRecord, error) {
	name, err := models.ParseName(domain)
	if err != nil {
		return nil, err
	}
	ctx, span := s.tracer.Start(ctx, "domains.Reconcile")
	defer span.End()
	span.SetAttributes(attribute.String("domain", name))
	if s.metrics != nil {
		defer s.metrics.ObserveReconcile(time.Now())
	}

	var out *models.DomainRecord
	err = s.withDomainLock(ctx, name, func(ctx context.Context) error {
		current, err := s.current(ctx, name)
		if err != nil {
			return err
		}
		if current == nil {
			return dErrors.Newf(dErrors.CodeNotFound, "%s is not registered", models.FullName(name))
		}
		out, err = s.reconcile(ctx, current)
		return err
	})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	span.SetAttributes(attribute.String("status", string(out.Status)))
	return out, nil
}

func (s *Service) reconcile(ctx context.Context, rec *models.DomainRecord) (*models.DomainRecord, error) {
	switch rec.Status {
	case models.StatusPending:
		if s.alreadyApplied(ctx, models.IntentRegister, rec.TxHash) {
			return s.stamp(ctx, rec)
		}
		return s.reconcilePending(ctx, rec)
	case models.StatusDeleting, models.StatusReview:
		if s.alreadyApplied(ctx, models.IntentDelete, rec.DeletionTxHash) {
			return s.stamp(ctx, rec)
		}
		return s.reconcileDeletion(ctx, rec)
	default:
		return s.stamp(ctx, rec)
	}
}

// stamp records a reconciliation attempt that had nothing to ask the chain.
func (s *Service) stamp(ctx context.Context, rec *models.DomainRecord) (*models.DomainRecord, error) {
	next := rec.Clone()
	next.MarkChecked(requestcontext.Now(ctx))
	if err := s.save(ctx, next, rec.Status); err != nil {
		return s.afterRace(ctx, rec, err)
	}
	return next, nil
}

func (s *Service) reconcilePending(ctx context.Context, rec *models.DomainRecord) (*models.DomainRecord, error) {
	now := requestcontext.Now(ctx)
	next := rec.Clone()

	// A claim already found invalid keeps its verdict for this hash; only its age can still change it.
	if verify.IsPermanentReason(rec.Reason) {
		if s.pendingExpired(rec, now) {
			next.ApplyRejection(reasonPendingTimeout, now)
		} else {
			next.MarkChecked(now)
		}
		if err := s.save(ctx, next, rec.Status); err != nil {
			return s.afterRace(ctx, rec, err)
		}
		return next, nil
	}

	res := s.verifier.CheckRegistration(ctx, rec.TxHash, rec.Domain, rec.OwnerAddress)
	s.observeVerification(models.IntentRegister, res)

	switch res.Outcome {
	case verify.Verified:
		next.ApplyActivation(rec.TxHash, now)
	case verify.Unresolved:
		if res.Reason != verify.ReasonGateway && s.pendingExpired(rec, now) {
			next.ApplyRejection(reasonPendingTimeout, now)
			break
		}
		s.logUnresolved(ctx, rec, res)
		next.MarkChecked(now)
	default:
		if s.policy.InvalidClaim == RejectClaim {
			next.ApplyRejection(res.Reason, now)
		} else {
			next.MarkInvalid(res.Reason, now)
		}
	}

	if err := s.save(ctx, next, rec.Status); err != nil {
		return s.afterRace(ctx, rec, err)
	}
	if next.IsActive() {
		s.markApplied(ctx, models.IntentRegister, next.TxHash)
	}
	return next, nil
}

func (s *Service) reconcileDeletion(ctx context.Context, rec *models.DomainRecord) (*models.DomainRecord, error) {
	res := s.verifier.CheckDeletion(ctx, rec.DeletionTxHash, rec.Domain, rec.OwnerAddress)
	s.observeVerification(models.IntentDelete, res)

	now := requestcontext.Now(ctx)
	next := rec.Clone()
	switch {
	case res.Verified():
		next.ApplyDeleted(now)
	case rec.Status == models.StatusReview:
		next.MarkChecked(now)
	case res.Permanent():
		s.failDeletion(next, res.Reason, now)
	case s.deletionExpired(rec, now):
		s.failDeletion(next, reasonDeletionTimeout, now)
	default:
		s.logUnresolved(ctx, rec, res)
		next.MarkChecked(now)
	}

	if err := s.save(ctx, next, rec.Status); err != nil {
		return s.afterRace(ctx, rec, err)
	}
	if next.Status == models.StatusDeleted {
		s.markApplied(ctx, models.IntentDelete, next.DeletionTxHash)
	}
	return next, nil
}

func (s *Service) failDeletion(rec *models.DomainRecord, reason string, now time.Time) {
	if s.policy.DeletionFailure == ReviewDeletion {
		rec.ApplyReview(reason, now)
		return
	}
	rec.ApplyRestore(reason, now)
}

// pendingExpired reports whether a claim has held its name past PendingTimeout.
func (s *Service) pendingExpired(rec *models.DomainRecord, now time.Time) bool {
	if s.policy.PendingTimeout <= 0 {
		return false
	}
	return now.Sub(rec.CreatedAt) > s.policy.PendingTimeout
}

func (s *Service) deletionExpired(rec *models.DomainRecord, now time.Time) bool {
	if rec.DeletionRequestedAt == nil || s.policy.DeletionTimeout <= 0 {
		return false
	}
	return now.Sub(*rec.DeletionRequestedAt) > s.policy.DeletionTimeout
}

// afterRace returns the winner's record when another writer moved rec first.
func (s *Service) afterRace(ctx context.Context, rec *models.DomainRecord, err error) (*models.DomainRecord, error) {
	if !dErrors.HasCode(err, dErrors.CodeInvalidState) {
		return nil, err
	}
	latest, lookupErr := s.current(ctx, rec.Domain)
	if lookupErr != nil || latest == nil {
		return nil, errors.Join(err, lookupErr)
	}
	s.logger.InfoContext(ctx, "reconcile lost a race, keeping concurrent result",
		"domain", rec.FullName(),
		"status", latest.Status,
	)
	return latest, nil
}

func (s *Service) logUnresolved(ctx context.Context, rec *models.DomainRecord, res verify.Result) {
	s.logger.DebugContext(ctx, "verification unresolved",
		"request_id", requestcontext.RequestID(ctx),
		"domain", rec.FullName(),
		"status", rec.Status,
		"reason", res.Reason,
		"error", res.Err,
	)
}

// DeleteDomain moves an active domain to deleting on behalf of its owner.
// The deletion transaction must already be visible on chain and must not
// break any rule a confirmation cannot repair. The deletion only completes
// once Reconcile verifies txHash.
func (s *Service) DeleteDomain(ctx context.Context, domain, address, txHash string) (*models.DomainRecord, error) {
	name, err := models.ParseName(domain)
	if err != nil {
		return nil, err
	}
	if err := models.ValidateAddress(address); err != nil {
		return nil, err
	}
	if err := models.ValidateTxHash(txHash); err != nil {
		return nil, err
	}
	ctx, span := s.tracer.Start(ctx, "domains.DeleteDomain")
	defer span.End()
	span.SetAttributes(attribute.String("domain", name), attribute.String("tx_hash", txHash))

	var out *models.DomainRecord
	err = s.withDomainLock(ctx, name, func(ctx context.Context) error {
		current, err := s.current(ctx, name)
		if err != nil {
			return err
		}
		if current == nil {
			return dErrors.Newf(dErrors.CodeNotFound, "%s is not registered", models.FullName(name))
		}
		if current.OwnerAddress != address {
			return dErrors.Newf(dErrors.CodeForbidden, "only the owner can delete %s", current.FullName())
		}
		if current.DeletionTxHash == txHash &&
			(current.Status == models.StatusDeleting || current.Status == models.StatusDeleted) {
			out = current
			return nil
		}
		if err := current.CanRequestDeletion(); err != nil {
			return err
		}

		res := s.verifier.PrecheckDeletion(ctx, txHash, name, current.OwnerAddress)
		s.observeVerification(models.IntentDelete, res)
		switch {
		case res.Permanent():
			return dErrors.Newf(dErrors.CodeVerificationFailed, "deletion transaction rejected: %s", res.Reason)
		case res.Reason == verify.ReasonNotFound || res.Reason == verify.ReasonGateway:
			return unresolvedError(res)
		}

		next := current.Clone()
		next.ApplyDeletionRequest(txHash, requestcontext.Now(ctx))
		if err := s.save(ctx, next, models.StatusActive); err != nil {
			return err
		}
		out = next
		return nil
	})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	return out, nil
}
