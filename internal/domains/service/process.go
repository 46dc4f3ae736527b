package service

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel/attribute"

	"ons/internal/chain"
	"ons/internal/domains/models"
	dErrors "ons/pkg/domain-errors"
	"ons/pkg/platform/sentinel"
	"ons/pkg/requestcontext"
)

// syncLimit caps how many recent transactions SyncAddress inspects.
const syncLimit = 50

// ProcessTransaction applies whatever protocol intent a transaction carries.
// It is the entry point for wallets reporting a sent transaction, and is safe
// to call repeatedly for the same hash.
func (s *Service) ProcessTransaction(ctx context.Context, txHash, address string) (*models.DomainRecord, error) {
	if err := models.ValidateTxHash(txHash); err != nil {
		return nil, err
	}
	if address != "" {
		if err := models.ValidateAddress(address); err != nil {
			return nil, err
		}
	}
	ctx, span := s.tracer.Start(ctx, "domains.ProcessTransaction")
	defer span.End()
	span.SetAttributes(attribute.String("tx_hash", txHash))

	rec, err := s.processTransaction(ctx, txHash, address)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	return rec, nil
}

func (s *Service) processTransaction(ctx context.Context, txHash, address string) (*models.DomainRecord, error) {
	tx, err := s.gateway.GetTransaction(ctx, txHash)
	if err != nil {
		return nil, gatewayError(err)
	}

	intent, raw, ok := models.ParseIntent(tx.Message)
	if !ok {
		return nil, dErrors.New(dErrors.CodeValidation, "transaction does not carry a domain intent")
	}
	name, err := models.ParseName(raw)
	if err != nil {
		return nil, err
	}
	if address != "" && tx.From != address {
		return nil, dErrors.New(dErrors.CodeValidation, "transaction was not sent by this address")
	}
	if tx.To != s.Protocol().MasterAddress {
		return nil, dErrors.New(dErrors.CodeValidation, "transaction was not sent to the registry address")
	}

	if s.alreadyApplied(ctx, intent, txHash) {
		current, err := s.current(ctx, name)
		if err != nil {
			return nil, err
		}
		if current != nil {
			return current, nil
		}
	}

	s.logger.InfoContext(ctx, "processing transaction",
		"request_id", requestcontext.RequestID(ctx),
		"tx_hash", txHash,
		"intent", intent,
		"domain", models.FullName(name),
		"tx_status", tx.Status,
	)

	if tx.IsFailed() {
		return nil, dErrors.New(dErrors.CodeVerificationFailed, "transaction failed on chain")
	}

	switch intent {
	case models.IntentRegister:
		if tx.IsConfirmed() {
			return s.RegisterDomain(ctx, name, tx.From, txHash)
		}
		return s.AdmitPendingClaim(ctx, name, tx.From, txHash)
	default:
		current, err := s.current(ctx, name)
		if err != nil {
			return nil, err
		}
		if current != nil && current.OwnerAddress != tx.From {
			return nil, dErrors.Newf(dErrors.CodeForbidden, "%s is not owned by the sender", current.FullName())
		}
		rec, err := s.DeleteDomain(ctx, name, tx.From, txHash)
		if err != nil {
			return nil, err
		}
		if tx.IsConfirmed() && rec.Status != models.StatusDeleted {
			return s.Reconcile(ctx, name)
		}
		return rec, nil
	}
}

// SyncAddress replays an address's recent protocol transactions, picking up
// registrations and deletions the wallet never reported.
func (s *Service) SyncAddress(ctx context.Context, address string) ([]*models.DomainRecord, error) {
	if err := models.ValidateAddress(address); err != nil {
		return nil, err
	}
	ctx, span := s.tracer.Start(ctx, "domains.SyncAddress")
	defer span.End()

	txs, err := s.gateway.ListTransactions(ctx, address, syncLimit)
	if err != nil {
		span.RecordError(err)
		return nil, gatewayError(err)
	}

	master := s.Protocol().MasterAddress
	seen := make(map[string]bool)
	records := make([]*models.DomainRecord, 0)
	for _, tx := range txs {
		if tx.To != master || tx.From != address {
			continue
		}
		if _, _, ok := models.ParseIntent(tx.Message); !ok {
			continue
		}
		rec, err := s.processTransaction(ctx, tx.Hash, address)
		if err != nil {
			s.logger.InfoContext(ctx, "skipping transaction during sync",
				"address", address,
				"tx_hash", tx.Hash,
				"code", dErrors.CodeOf(err),
				"error", err,
			)
			continue
		}
		if !seen[rec.ID.String()] {
			seen[rec.ID.String()] = true
			records = append(records, rec)
		}
	}
	span.SetAttributes(attribute.Int("records", len(records)))
	return records, nil
}

func gatewayError(err error) error {
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.New(dErrors.CodeTxPending, "transaction not found on chain yet")
	}
	if chain.IsGatewayError(err) {
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "chain gateway unavailable")
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "chain request cancelled")
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, "chain request failed")
}
