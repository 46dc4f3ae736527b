// Package verify decides whether a chain transaction satisfies a protocol claim.
//
// Verification is strict and re-derivable: anyone holding the transaction hash
// and the claimed parameters recomputes the same outcome. It never mutates the
// registry and never returns errors for rule failures.
package verify

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"

	"ons/internal/chain"
	"ons/internal/domains/models"
	"ons/pkg/platform/sentinel"
)

// TxFetcher is the slice of the chain gateway verification needs.
type TxFetcher interface {
	GetTransaction(ctx context.Context, hash string) (*chain.Transaction, error)
}

// Protocol holds the constants every claim is checked against.
type Protocol struct {
	MasterAddress   string
	RegistrationFee decimal.Decimal
	DeletionFee     decimal.Decimal
}

// Fee returns the minimum payment for an intent.
func (p Protocol) Fee(intent models.Intent) decimal.Decimal {
	if intent == models.IntentDelete {
		return p.DeletionFee
	}
	return p.RegistrationFee
}

// Outcome classifies a verification attempt.
type Outcome string

const (
	// Verified: confirmed and every rule holds.
	Verified Outcome = "verified"
	// Unresolved: not found, still pending, or the gateway failed. Retry later.
	Unresolved Outcome = "unresolved"
	// Invalid: confirmed but a rule fails. Permanent for this hash.
	Invalid Outcome = "invalid"
	// Failed: the chain reports the transaction failed. Permanent for this hash.
	Failed Outcome = "failed"
)

// Reasons attached to non-verified results.
const (
	ReasonNotFound       = "tx_not_found"
	ReasonPending        = "tx_pending"
	ReasonGateway        = "gateway_error"
	ReasonFailedOnChain  = "tx_failed"
	ReasonWrongRecipient = "wrong_recipient"
	ReasonWrongSender    = "wrong_sender"
	ReasonBelowFee       = "amount_below_fee"
	ReasonWrongMessage   = "message_mismatch"
)

// Result is the structured verdict for one claim.
type Result struct {
	Outcome     Outcome
	Reason      string
	Transaction *chain.Transaction
	// Err carries the gateway error behind an Unresolved outcome.
	Err error
}

func (r Result) Verified() bool { return r.Outcome == Verified }

// Permanent reports whether retrying this hash can never change the outcome.
func (r Result) Permanent() bool {
	return r.Outcome == Invalid || r.Outcome == Failed
}

// Verifier checks claims against chain state.
type Verifier struct {
	chain    TxFetcher
	protocol Protocol
}

func New(fetcher TxFetcher, protocol Protocol) *Verifier {
	return &Verifier{chain: fetcher, protocol: protocol}
}

func (v *Verifier) Protocol() Protocol { return v.protocol }

// CheckRegistration evaluates a register_domain claim by claimant.
func (v *Verifier) CheckRegistration(ctx context.Context, txHash, domain, claimant string) Result {
	return v.check(ctx, models.IntentRegister, txHash, domain, claimant)
}

// CheckDeletion evaluates a delete_domain claim by the owner.
func (v *Verifier) CheckDeletion(ctx context.Context, txHash, domain, owner string) Result {
	return v.check(ctx, models.IntentDelete, txHash, domain, owner)
}

// VerifyRegistration is the boolean form of CheckRegistration.
func (v *Verifier) VerifyRegistration(ctx context.Context, txHash, domain, claimant string) bool {
	return v.CheckRegistration(ctx, txHash, domain, claimant).Verified()
}

// VerifyDeletion is the boolean form of CheckDeletion.
func (v *Verifier) VerifyDeletion(ctx context.Context, txHash, domain, owner string) bool {
	return v.CheckDeletion(ctx, txHash, domain, owner).Verified()
}

func (v *Verifier) check(ctx context.Context, intent models.Intent, txHash, domain, sender string) Result {
	tx, err := v.chain.GetTransaction(ctx, txHash)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return Result{Outcome: Unresolved, Reason: ReasonNotFound}
		}
		return Result{Outcome: Unresolved, Reason: ReasonGateway, Err: err}
	}
	return Evaluate(tx, intent, domain, sender, v.protocol)
}

// PrecheckDeletion is CheckDeletion for a deletion that is about to be
// accepted optimistically. A transaction still pending on chain is already
// judged on sender, recipient, amount and message, since confirmation cannot
// repair any of those.
func (v *Verifier) PrecheckDeletion(ctx context.Context, txHash, domain, owner string) Result {
	res := v.CheckDeletion(ctx, txHash, domain, owner)
	if res.Outcome != Unresolved || res.Transaction == nil {
		return res
	}
	if reason := ruleViolation(res.Transaction, models.IntentDelete, domain, owner, v.protocol); reason != "" {
		res.Outcome, res.Reason = Invalid, reason
	}
	return res
}

// Evaluate applies the protocol rules to an already fetched transaction.
func Evaluate(tx *chain.Transaction, intent models.Intent, domain, sender string, p Protocol) Result {
	if tx == nil {
		return Result{Outcome: Unresolved, Reason: ReasonNotFound}
	}
	res := Result{Transaction: tx}
	switch tx.Status {
	case chain.StatusConfirmed:
	case chain.StatusFailed:
		res.Outcome, res.Reason = Failed, ReasonFailedOnChain
		return res
	default:
		res.Outcome, res.Reason = Unresolved, ReasonPending
		return res
	}

	if reason := ruleViolation(tx, intent, domain, sender, p); reason != "" {
		res.Outcome, res.Reason = Invalid, reason
		return res
	}
	res.Outcome = Verified
	return res
}

// ruleViolation returns the first rule tx breaks, ignoring its chain status.
func ruleViolation(tx *chain.Transaction, intent models.Intent, domain, sender string, p Protocol) string {
	switch {
	case tx.To != p.MasterAddress:
		return ReasonWrongRecipient
	case tx.From != sender:
		return ReasonWrongSender
	case tx.Amount.LessThan(p.Fee(intent)):
		return ReasonBelowFee
	case tx.Message != intent.Message(domain):
		return ReasonWrongMessage
	}
	return ""
}

// IsPermanentReason reports whether reason comes from an Invalid or Failed
// result, which no later check of the same hash can change.
func IsPermanentReason(reason string) bool {
	switch reason {
	case ReasonFailedOnChain, ReasonWrongRecipient, ReasonWrongSender, ReasonBelowFee, ReasonWrongMessage:
		return true
	}
	return false
}
