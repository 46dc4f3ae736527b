package service

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"ons/internal/domains/models"
	"ons/internal/domains/verify"
	dErrors "ons/pkg/domain-errors"
	"ons/pkg/platform/sentinel"
	"ons/pkg/requestcontext"
)

// reasonSuperseded marks a pending claim replaced by another owner's verified registration.
const reasonSuperseded = "superseded"

// RegisterDomain records a domain after its registration transaction verifies.
// Nothing is written unless verification succeeds.
func (s *Service) RegisterDomain(ctx context.Context, domain, address, txHash string) (*models.DomainRecord, error) {
	name, err := validateClaim(domain, address, txHash)
	if err != nil {
		return nil, err
	}
	ctx, span := s.tracer.Start(ctx, "domains.RegisterDomain")
	defer span.End()
	span.SetAttributes(attribute.String("domain", name), attribute.String("tx_hash", txHash))

	var out *models.DomainRecord
	err = s.withDomainLock(ctx, name, func(ctx context.Context) error {
		rec, err := s.register(ctx, name, address, txHash)
		out = rec
		return err
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, string(dErrors.CodeOf(err)))
		return nil, err
	}
	return out, nil
}

func (s *Service) register(ctx context.Context, name, address, txHash string) (*models.DomainRecord, error) {
	current, err := s.current(ctx, name)
	if err != nil {
		return nil, err
	}

	supersede := false
	if current != nil && current.IsLive() {
		switch {
		case current.OwnerAddress == address && current.TxHash == txHash && current.IsActive():
			return current, nil
		case current.OwnerAddress != address:
			if !s.claimIsDead(ctx, current) {
				return nil, dErrors.Newf(dErrors.CodeDomainTaken, "%s is already taken", current.FullName())
			}
			supersede = true
		case current.IsActive():
			return nil, dErrors.Newf(dErrors.CodeConflict, "%s is already registered to this address", current.FullName())
		case !current.IsPending():
			return nil, dErrors.Newf(dErrors.CodeInvalidState, "%s is %s", current.FullName(), current.Status)
		}
	}

	res := s.verifier.CheckRegistration(ctx, txHash, name, address)
	s.observeVerification(models.IntentRegister, res)
	switch res.Outcome {
	case verify.Verified:
	case verify.Unresolved:
		return nil, unresolvedError(res)
	default:
		return nil, dErrors.Newf(dErrors.CodeVerificationFailed, "registration transaction rejected: %s", res.Reason)
	}

	now := requestcontext.Now(ctx)
	if current != nil && current.IsPending() {
		if !supersede {
			next := current.Clone()
			next.ApplyActivation(txHash, now)
			if err := s.save(ctx, next, models.StatusPending); err != nil {
				return nil, err
			}
			s.markApplied(ctx, models.IntentRegister, txHash)
			return next, nil
		}
		loser := current.Clone()
		loser.ApplyRejection(reasonSuperseded, now)
		if err := s.save(ctx, loser, models.StatusPending); err != nil {
			return nil, err
		}
	}

	rec := models.NewActiveRecord(name, address, txHash, now)
	if err := s.create(ctx, rec); err != nil {
		return nil, err
	}
	s.markApplied(ctx, models.IntentRegister, txHash)
	return rec, nil
}

// claimIsDead reports whether a pending claim can no longer win its name:
// its transaction can never verify, or it never confirmed within PendingTimeout.
func (s *Service) claimIsDead(ctx context.Context, rec *models.DomainRecord) bool {
	if !rec.IsPending() {
		return false
	}
	if verify.IsPermanentReason(rec.Reason) {
		return true
	}
	res := s.verifier.CheckRegistration(ctx, rec.TxHash, rec.Domain, rec.OwnerAddress)
	s.observeVerification(models.IntentRegister, res)
	if res.Permanent() {
		return true
	}
	return res.Outcome == verify.Unresolved && res.Reason != verify.ReasonGateway &&
		s.pendingExpired(rec, requestcontext.Now(ctx))
}

// create inserts rec and tells a taken name apart from a reused transaction.
func (s *Service) create(ctx context.Context, rec *models.DomainRecord) error {
	err := s.store.Create(ctx, rec)
	if err == nil {
		s.created(ctx, rec)
		return nil
	}
	if !errors.Is(err, sentinel.ErrConflict) {
		return storeError(err, "failed to create domain")
	}
	if live, lookupErr := s.current(ctx, rec.Domain); lookupErr == nil && live != nil && live.IsLive() {
		return dErrors.Wrap(err, dErrors.CodeDomainTaken, rec.FullName()+" is already taken")
	}
	return dErrors.Wrap(err, dErrors.CodeConflict, "transaction was already used")
}

// AdmitPendingClaim records an unverified claim so the name is held while the
// transaction confirms. Reconcile later promotes or disqualifies it.
func (s *Service) AdmitPendingClaim(ctx context.Context, domain, address, txHash string) (*models.DomainRecord, error) {
	name, err := validateClaim(domain, address, txHash)
	if err != nil {
		return nil, err
	}
	ctx, span := s.tracer.Start(ctx, "domains.AdmitPendingClaim")
	defer span.End()
	span.SetAttributes(attribute.String("domain", name), attribute.String("tx_hash", txHash))

	var out *models.DomainRecord
	err = s.withDomainLock(ctx, name, func(ctx context.Context) error {
		rec, err := s.admit(ctx, name, address, txHash)
		out = rec
		return err
	})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	return out, nil
}

func (s *Service) admit(ctx context.Context, name, address, txHash string) (*models.DomainRecord, error) {
	current, err := s.current(ctx, name)
	if err != nil {
		return nil, err
	}

	if current != nil && current.IsLive() {
		switch {
		case current.OwnerAddress != address:
			return nil, dErrors.Newf(dErrors.CodeDomainTaken, "%s is already taken", current.FullName())
		case current.TxHash == txHash:
			return current, nil
		case !current.IsPending():
			return nil, dErrors.Newf(dErrors.CodeInvalidState, "%s is already %s", current.FullName(), current.Status)
		case current.Reason == "":
			return nil, dErrors.Newf(dErrors.CodeInvalidState, "%s already has a pending claim", current.FullName())
		}
		next := current.Clone()
		next.ReplaceClaim(txHash, requestcontext.Now(ctx))
		if err := s.save(ctx, next, models.StatusPending); err != nil {
			if dErrors.HasCode(err, dErrors.CodeConflict) {
				return nil, dErrors.Wrap(err, dErrors.CodeConflict, "transaction was already used")
			}
			return nil, err
		}
		s.logger.InfoContext(ctx, "pending claim replaced",
			"request_id", requestcontext.RequestID(ctx),
			"domain", next.FullName(),
			"tx_hash", txHash,
		)
		return next, nil
	}

	rec := models.NewPendingRecord(name, address, txHash, requestcontext.Now(ctx))
	if err := s.create(ctx, rec); err != nil {
		return nil, err
	}
	return rec, nil
}
