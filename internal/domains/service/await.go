package service

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"

	"ons/internal/chain"
	"ons/internal/domains/models"
	dErrors "ons/pkg/domain-errors"
	"ons/pkg/platform/sentinel"
)

const (
	awaitInitialInterval = time.Second
	awaitMaxInterval     = 15 * time.Second
)

var errStillPending = errors.New("transaction still pending")

// AwaitConfirmation polls the chain with exponential backoff until txHash is
// confirmed or failed. It gives up after the policy's await window and
// returns CodeTxPending, or CodeTimeout if ctx ends first.
func (s *Service) AwaitConfirmation(ctx context.Context, txHash string) (*chain.Transaction, error) {
	if err := models.ValidateTxHash(txHash); err != nil {
		return nil, err
	}
	ctx, span := s.tracer.Start(ctx, "domains.AwaitConfirmation")
	defer span.End()

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = s.awaitInterval
	b.MaxInterval = awaitMaxInterval
	b.MaxElapsedTime = s.policy.AwaitWindow

	poll := func() (*chain.Transaction, error) {
		if s.metrics != nil {
			s.metrics.IncrementAwaitPoll()
		}
		tx, err := s.gateway.GetTransaction(ctx, txHash)
		switch {
		case errors.Is(err, sentinel.ErrNotFound):
			return nil, errStillPending
		case err != nil:
			if chain.IsRetryable(err) {
				return nil, err
			}
			return nil, backoff.Permanent(err)
		case tx.IsConfirmed() || tx.IsFailed():
			return tx, nil
		default:
			return nil, errStillPending
		}
	}

	tx, err := backoff.RetryWithData(poll, backoff.WithContext(b, ctx))
	if err == nil {
		return tx, nil
	}
	span.RecordError(err)
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, dErrors.Wrap(ctxErr, dErrors.CodeTimeout, "stopped waiting for confirmation")
	}
	if errors.Is(err, errStillPending) {
		return nil, dErrors.New(dErrors.CodeTxPending, "transaction was not confirmed within the wait window")
	}
	return nil, gatewayError(err)
}

// AwaitReconciled waits for the transaction the domain's current state
// depends on, then reconciles it.
func (s *Service) AwaitReconciled(ctx context.Context, domain string) (*models.DomainRecord, error) {
	name, err := models.ParseName(domain)
	if err != nil {
		return nil, err
	}
	current, err := s.current(ctx, name)
	if err != nil {
		return nil, err
	}
	if current == nil {
		return nil, dErrors.Newf(dErrors.CodeNotFound, "%s is not registered", models.FullName(name))
	}

	var txHash string
	switch current.Status {
	case models.StatusPending:
		txHash = current.TxHash
	case models.StatusDeleting, models.StatusReview:
		txHash = current.DeletionTxHash
	default:
		return current, nil
	}
	if _, err := s.AwaitConfirmation(ctx, txHash); err != nil {
		return nil, err
	}
	return s.Reconcile(ctx, name)
}
