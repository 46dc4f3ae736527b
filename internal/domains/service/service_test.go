package service

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"ons/internal/chain"
	"ons/internal/domains/dedupe"
	"ons/internal/domains/events"
	"ons/internal/domains/models"
	"ons/internal/domains/service/mocks"
	"ons/internal/domains/store"
	"ons/internal/domains/verify"
	dErrors "ons/pkg/domain-errors"
	"ons/pkg/platform/sentinel"
	"ons/pkg/requestcontext"
)

const (
	master = "octMasterRegistry00000001"
	alice  = "octAlice000000000000001"
	bob    = "octBob00000000000000002"
)

var protocol = verify.Protocol{
	MasterAddress:   master,
	RegistrationFee: decimal.RequireFromString("0.5"),
	DeletionFee:     decimal.RequireFromString("0.1"),
}

type ServiceSuite struct {
	suite.Suite
	ctrl     *gomock.Controller
	gateway  *mocks.MockGateway
	notifier *mocks.MockNotifier
	store    *store.InMemory
	deduper  *dedupe.Memory
	service  *Service
	now      time.Time
	ctx      context.Context
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.gateway = mocks.NewMockGateway(s.ctrl)
	s.notifier = mocks.NewMockNotifier(s.ctrl)
	s.notifier.EXPECT().Publish(gomock.Any(), gomock.Any()).Return(nil).AnyTimes()
	s.store = store.NewInMemory()
	s.deduper = dedupe.NewMemory(100, time.Hour)
	s.newService(DefaultPolicy())
	s.now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s.ctx = requestcontext.WithTime(context.Background(), s.now)
}

func (s *ServiceSuite) newService(p Policy) {
	svc, err := New(s.store, s.gateway, protocol,
		WithNotifier(s.notifier),
		WithDeduper(s.deduper),
		WithPolicy(p),
	)
	s.Require().NoError(err)
	svc.awaitInterval = 5 * time.Millisecond
	s.service = svc
}

func tx(hash, from string, intent models.Intent, domain, amount string, status chain.TxStatus) *chain.Transaction {
	return &chain.Transaction{
		Hash:    hash,
		From:    from,
		To:      master,
		Amount:  decimal.RequireFromString(amount),
		Message: intent.Message(domain),
		Status:  status,
	}
}

func (s *ServiceSuite) onChain(t *chain.Transaction) {
	s.gateway.EXPECT().GetTransaction(gomock.Any(), t.Hash).Return(t, nil).AnyTimes()
}

func (s *ServiceSuite) notOnChain(hash string) {
	s.gateway.EXPECT().GetTransaction(gomock.Any(), hash).
		Return(nil, sentinel.ErrNotFound).AnyTimes()
}

func (s *ServiceSuite) seed(rec *models.DomainRecord) *models.DomainRecord {
	s.Require().NoError(s.store.Create(s.ctx, rec))
	return rec
}

func (s *ServiceSuite) requireCode(err error, code dErrors.Code) {
	s.Require().Error(err)
	s.Require().Truef(dErrors.HasCode(err, code), "expected %s, got %v", code, err)
}

func (s *ServiceSuite) TestNew_RequiresDependencies() {
	_, err := New(nil, s.gateway, protocol)
	s.Error(err)
	_, err = New(s.store, nil, protocol)
	s.Error(err)
}

func (s *ServiceSuite) TestRegisterDomain() {
	s.Run("valid payment activates and resolves", func() {
		s.onChain(tx("tx-reg-1", alice, models.IntentRegister, "alice", "0.5", chain.StatusConfirmed))

		rec, err := s.service.RegisterDomain(s.ctx, "Alice.oct", alice, "tx-reg-1")
		s.Require().NoError(err)
		s.Equal(models.StatusActive, rec.Status)
		s.Equal("alice", rec.Domain)
		s.Require().NotNil(rec.LastVerifiedAt)

		resolved, err := s.service.ResolveDomain(s.ctx, "alice.oct")
		s.Require().NoError(err)
		s.Equal(alice, resolved.OwnerAddress)
	})

	s.Run("resubmitting the same transaction is a no-op", func() {
		rec, err := s.service.RegisterDomain(s.ctx, "alice", alice, "tx-reg-1")
		s.Require().NoError(err)
		s.Equal(models.StatusActive, rec.Status)

		recs, err := s.service.DomainsByAddress(s.ctx, alice)
		s.Require().NoError(err)
		s.Len(recs, 1)
	})

	s.Run("another owner cannot take an active name", func() {
		_, err := s.service.RegisterDomain(s.ctx, "alice", bob, "tx-bob-1")
		s.requireCode(err, dErrors.CodeDomainTaken)
	})

	s.Run("invalid name is rejected before touching the chain", func() {
		_, err := s.service.RegisterDomain(s.ctx, "a", alice, "tx-x")
		s.requireCode(err, dErrors.CodeValidation)
	})
}

func (s *ServiceSuite) TestRegisterDomain_VerificationFailures() {
	tests := []struct {
		name string
		tx   *chain.Transaction
		code dErrors.Code
	}{
		{"amount below fee", tx("tx-low", alice, models.IntentRegister, "carol", "0.49", chain.StatusConfirmed), dErrors.CodeVerificationFailed},
		{"wrong message", tx("tx-msg", alice, models.IntentRegister, "other", "1", chain.StatusConfirmed), dErrors.CodeVerificationFailed},
		{"wrong sender", tx("tx-from", bob, models.IntentRegister, "carol", "1", chain.StatusConfirmed), dErrors.CodeVerificationFailed},
		{"failed on chain", tx("tx-failed", alice, models.IntentRegister, "carol", "1", chain.StatusFailed), dErrors.CodeVerificationFailed},
		{"still pending", tx("tx-pending", alice, models.IntentRegister, "carol", "1", chain.StatusPending), dErrors.CodeTxPending},
	}
	for _, tt := range tests {
		s.Run(tt.name, func() {
			s.onChain(tt.tx)
			_, err := s.service.RegisterDomain(s.ctx, "carol", alice, tt.tx.Hash)
			s.requireCode(err, tt.code)

			available, err := s.service.CheckAvailability(s.ctx, "carol")
			s.Require().NoError(err)
			s.True(available, "nothing must be written")
		})
	}

	s.Run("transaction not found is retryable", func() {
		s.notOnChain("tx-missing")
		_, err := s.service.RegisterDomain(s.ctx, "carol", alice, "tx-missing")
		s.requireCode(err, dErrors.CodeTxPending)
		s.True(dErrors.IsRetryable(err))
	})

	s.Run("gateway error is retryable and distinct", func() {
		s.gateway.EXPECT().GetTransaction(gomock.Any(), "tx-gw").
			Return(nil, &chain.GatewayError{Category: chain.ErrorTransport, Endpoint: "tx", Retryable: true}).AnyTimes()
		_, err := s.service.RegisterDomain(s.ctx, "carol", alice, "tx-gw")
		s.requireCode(err, dErrors.CodeUnavailable)
		s.True(dErrors.IsRetryable(err))
	})
}

func (s *ServiceSuite) TestRegisterDomain_PendingClaims() {
	s.Run("owner's own pending claim is promoted", func() {
		s.seed(models.NewPendingRecord("dave", alice, "tx-dave", s.now))
		s.onChain(tx("tx-dave", alice, models.IntentRegister, "dave", "0.5", chain.StatusConfirmed))

		rec, err := s.service.RegisterDomain(s.ctx, "dave", alice, "tx-dave")
		s.Require().NoError(err)
		s.Equal(models.StatusActive, rec.Status)
		recs, _ := s.service.DomainsByAddress(s.ctx, alice)
		s.Len(recs, 1)
	})

	s.Run("another owner's dead claim is superseded", func() {
		s.seed(models.NewPendingRecord("erin", bob, "tx-erin-bad", s.now))
		s.onChain(tx("tx-erin-bad", bob, models.IntentRegister, "erin", "0.1", chain.StatusConfirmed))
		s.onChain(tx("tx-erin-good", alice, models.IntentRegister, "erin", "0.5", chain.StatusConfirmed))

		rec, err := s.service.RegisterDomain(s.ctx, "erin", alice, "tx-erin-good")
		s.Require().NoError(err)
		s.Equal(alice, rec.OwnerAddress)

		bobs, _ := s.service.DomainsByAddress(s.ctx, bob)
		s.Require().Len(bobs, 1)
		s.Equal(models.StatusRejected, bobs[0].Status)
	})

	s.Run("another owner's live claim holds the name", func() {
		s.seed(models.NewPendingRecord("fred", bob, "tx-fred", s.now))
		s.notOnChain("tx-fred")

		_, err := s.service.RegisterDomain(s.ctx, "fred", alice, "tx-fred-alice")
		s.requireCode(err, dErrors.CodeDomainTaken)
	})
}

func (s *ServiceSuite) TestAdmitPendingClaim() {
	s.Run("holds the name without verification", func() {
		rec, err := s.service.AdmitPendingClaim(s.ctx, "gina", alice, "tx-gina")
		s.Require().NoError(err)
		s.Equal(models.StatusPending, rec.Status)

		available, err := s.service.CheckAvailability(s.ctx, "gina")
		s.Require().NoError(err)
		s.False(available)
		_, err = s.service.ResolveDomain(s.ctx, "gina")
		s.requireCode(err, dErrors.CodeNotFound)
	})

	s.Run("is idempotent on the same transaction", func() {
		rec, err := s.service.AdmitPendingClaim(s.ctx, "gina", alice, "tx-gina")
		s.Require().NoError(err)
		s.Equal("tx-gina", rec.TxHash)
	})

	s.Run("another owner gets domain taken", func() {
		_, err := s.service.AdmitPendingClaim(s.ctx, "gina", bob, "tx-gina-bob")
		s.requireCode(err, dErrors.CodeDomainTaken)
	})

	s.Run("a second transaction needs the first to have failed", func() {
		_, err := s.service.AdmitPendingClaim(s.ctx, "gina", alice, "tx-gina-2")
		s.requireCode(err, dErrors.CodeInvalidState)
	})

	s.Run("an invalid claim can be replaced", func() {
		s.onChain(tx("tx-gina", alice, models.IntentRegister, "gina", "0.1", chain.StatusConfirmed))
		rec, err := s.service.Reconcile(s.ctx, "gina")
		s.Require().NoError(err)
		s.Equal(models.StatusPending, rec.Status)
		s.Equal(verify.ReasonBelowFee, rec.Reason)

		rec, err = s.service.AdmitPendingClaim(s.ctx, "gina", alice, "tx-gina-2")
		s.Require().NoError(err)
		s.Equal("tx-gina-2", rec.TxHash)
		s.Empty(rec.Reason)
	})

	s.Run("a transaction used elsewhere conflicts", func() {
		_, err := s.service.AdmitPendingClaim(s.ctx, "hank", alice, "tx-gina-2")
		s.requireCode(err, dErrors.CodeConflict)
	})
}

func (s *ServiceSuite) TestReconcile_Pending() {
	s.Run("confirmed valid claim becomes active", func() {
		s.seed(models.NewPendingRecord("ivan", alice, "tx-ivan", s.now))
		s.onChain(tx("tx-ivan", alice, models.IntentRegister, "ivan", "0.5", chain.StatusConfirmed))

		rec, err := s.service.Reconcile(s.ctx, "ivan")
		s.Require().NoError(err)
		s.Equal(models.StatusActive, rec.Status)
	})

	s.Run("unresolved claim is untouched but stamped", func() {
		s.seed(models.NewPendingRecord("jane", alice, "tx-jane", s.now.Add(-10*time.Minute)))
		s.notOnChain("tx-jane")

		rec, err := s.service.Reconcile(s.ctx, "jane")
		s.Require().NoError(err)
		s.Equal(models.StatusPending, rec.Status)
		s.Require().NotNil(rec.LastVerifiedAt)
		s.True(rec.LastVerifiedAt.Equal(s.now))
	})

	s.Run("unknown domain is not found", func() {
		_, err := s.service.Reconcile(s.ctx, "nobody")
		s.requireCode(err, dErrors.CodeNotFound)
	})

	s.Run("settled records are stamped without a chain lookup", func() {
		s.activeDomain("jack", alice)
		later := s.now.Add(time.Minute)

		rec, err := s.service.Reconcile(requestcontext.WithTime(context.Background(), later), "jack")
		s.Require().NoError(err)
		s.Equal(models.StatusActive, rec.Status)
		s.Require().NotNil(rec.LastVerifiedAt)
		s.True(rec.LastVerifiedAt.Equal(later))

		stored, err := s.store.FindByDomain(s.ctx, "jack")
		s.Require().NoError(err)
		s.True(stored.LastVerifiedAt.Equal(later))
	})
}

func (s *ServiceSuite) TestReconcile_InvalidClaimIsNotRefetched() {
	s.gateway.EXPECT().GetTransaction(gomock.Any(), "tx-kim").
		Return(tx("tx-kim", alice, models.IntentRegister, "kim", "0.1", chain.StatusConfirmed), nil).
		Times(1)
	s.seed(models.NewPendingRecord("kim", alice, "tx-kim", s.now))

	rec, err := s.service.Reconcile(s.ctx, "kim")
	s.Require().NoError(err)
	s.Equal(verify.ReasonBelowFee, rec.Reason)

	sweeper := NewSweeper(s.service)
	for i := 1; i <= 5; i++ {
		at := requestcontext.WithTime(context.Background(), s.now.Add(time.Duration(i)*time.Minute))
		_, err := sweeper.SweepOnce(at)
		s.Require().NoError(err)
	}

	rec, err = s.service.Reconcile(requestcontext.WithTime(context.Background(), s.now.Add(10*time.Minute)), "kim")
	s.Require().NoError(err)
	s.Equal(models.StatusPending, rec.Status)
	s.Equal(verify.ReasonBelowFee, rec.Reason)
	s.True(rec.LastVerifiedAt.Equal(s.now.Add(10*time.Minute)), "attempts are still stamped")
}

func (s *ServiceSuite) TestPendingTimeout() {
	s.Run("an unconfirmed claim stops holding the name", func() {
		_, err := s.service.AdmitPendingClaim(s.ctx, "squat", bob, "tx-fake-squat")
		s.Require().NoError(err)
		s.notOnChain("tx-fake-squat")
		s.onChain(tx("tx-squat-alice", alice, models.IntentRegister, "squat", "0.5", chain.StatusConfirmed))

		_, err = s.service.RegisterDomain(s.ctx, "squat", alice, "tx-squat-alice")
		s.requireCode(err, dErrors.CodeDomainTaken)

		later := requestcontext.WithTime(context.Background(), s.now.Add(2*time.Hour))
		rec, err := s.service.RegisterDomain(later, "squat", alice, "tx-squat-alice")
		s.Require().NoError(err)
		s.Equal(alice, rec.OwnerAddress)
		s.Equal(models.StatusActive, rec.Status)

		bobs, _ := s.service.DomainsByAddress(s.ctx, bob)
		s.Require().Len(bobs, 1)
		s.Equal(models.StatusRejected, bobs[0].Status)
	})

	s.Run("reconcile rejects an expired claim", func() {
		s.seed(models.NewPendingRecord("stale", bob, "tx-stale", s.now.Add(-3*time.Hour)))
		s.notOnChain("tx-stale")

		rec, err := s.service.Reconcile(s.ctx, "stale")
		s.Require().NoError(err)
		s.Equal(models.StatusRejected, rec.Status)
		s.Equal(reasonPendingTimeout, rec.Reason)

		available, err := s.service.CheckAvailability(s.ctx, "stale")
		s.Require().NoError(err)
		s.True(available)
	})

	s.Run("a gateway outage never expires a claim", func() {
		s.seed(models.NewPendingRecord("quiet", bob, "tx-quiet", s.now.Add(-3*time.Hour)))
		s.gateway.EXPECT().GetTransaction(gomock.Any(), "tx-quiet").
			Return(nil, &chain.GatewayError{Category: chain.ErrorTransport, Endpoint: "tx", Retryable: true}).AnyTimes()

		rec, err := s.service.Reconcile(s.ctx, "quiet")
		s.Require().NoError(err)
		s.Equal(models.StatusPending, rec.Status)
	})
}

func (s *ServiceSuite) TestReconcile_InvalidClaimPolicies() {
	s.Run("keep pending records the reason", func() {
		s.seed(models.NewPendingRecord("kate", alice, "tx-kate", s.now))
		s.onChain(tx("tx-kate", alice, models.IntentRegister, "kate", "0.4", chain.StatusConfirmed))

		rec, err := s.service.Reconcile(s.ctx, "kate")
		s.Require().NoError(err)
		s.Equal(models.StatusPending, rec.Status)
		s.Equal(verify.ReasonBelowFee, rec.Reason)
	})

	s.Run("reject ends the claim and frees the name", func() {
		p := DefaultPolicy()
		p.InvalidClaim = RejectClaim
		s.newService(p)
		s.seed(models.NewPendingRecord("liam", alice, "tx-liam", s.now))
		s.onChain(tx("tx-liam", alice, models.IntentRegister, "liam", "0.5", chain.StatusFailed))

		rec, err := s.service.Reconcile(s.ctx, "liam")
		s.Require().NoError(err)
		s.Equal(models.StatusRejected, rec.Status)

		available, err := s.service.CheckAvailability(s.ctx, "liam")
		s.Require().NoError(err)
		s.True(available)
	})
}

func (s *ServiceSuite) activeDomain(name, owner string) {
	rec := models.NewActiveRecord(name, owner, "tx-reg-"+name, s.now.Add(-48*time.Hour))
	s.seed(rec)
}

// deletingDomain seeds a record whose deletion was accepted earlier.
func (s *ServiceSuite) deletingDomain(name, owner, deletionTx string) {
	rec := models.NewActiveRecord(name, owner, "tx-reg-"+name, s.now.Add(-48*time.Hour))
	rec.ApplyDeletionRequest(deletionTx, s.now)
	s.seed(rec)
}

func (s *ServiceSuite) stillResolves(name string) {
	rec, err := s.service.ResolveDomain(s.ctx, name)
	s.Require().NoError(err)
	s.Equal(models.StatusActive, rec.Status)
}

func (s *ServiceSuite) TestDeleteDomain() {
	s.activeDomain("mona", alice)

	s.Run("unknown domain is not found", func() {
		_, err := s.service.DeleteDomain(s.ctx, "nobody", alice, "tx-del")
		s.requireCode(err, dErrors.CodeNotFound)
	})

	s.Run("pending domain cannot be deleted", func() {
		s.seed(models.NewPendingRecord("nina", alice, "tx-nina", s.now))
		_, err := s.service.DeleteDomain(s.ctx, "nina", alice, "tx-del-nina")
		s.requireCode(err, dErrors.CodeInvalidState)
	})

	s.Run("only the owner can delete", func() {
		_, err := s.service.DeleteDomain(s.ctx, "mona", bob, "tx-del-mona")
		s.requireCode(err, dErrors.CodeForbidden)
		s.stillResolves("mona")
	})

	s.Run("an unknown deletion transaction writes nothing", func() {
		s.notOnChain("tx-del-bogus")
		_, err := s.service.DeleteDomain(s.ctx, "mona", alice, "tx-del-bogus")
		s.requireCode(err, dErrors.CodeTxPending)
		s.stillResolves("mona")
	})

	s.Run("a deletion sent by someone else writes nothing", func() {
		s.onChain(tx("tx-del-forged", bob, models.IntentDelete, "mona", "0.1", chain.StatusPending))
		_, err := s.service.DeleteDomain(s.ctx, "mona", alice, "tx-del-forged")
		s.requireCode(err, dErrors.CodeVerificationFailed)
		s.stillResolves("mona")
	})

	s.Run("active domain moves to deleting and stops resolving", func() {
		s.onChain(tx("tx-del-mona", alice, models.IntentDelete, "mona", "0.1", chain.StatusPending))
		rec, err := s.service.DeleteDomain(s.ctx, "mona", alice, "tx-del-mona")
		s.Require().NoError(err)
		s.Equal(models.StatusDeleting, rec.Status)
		s.Equal("tx-del-mona", rec.DeletionTxHash)
		s.Require().NotNil(rec.DeletionRequestedAt)

		_, err = s.service.ResolveDomain(s.ctx, "mona")
		s.requireCode(err, dErrors.CodeNotFound)
		available, _ := s.service.CheckAvailability(s.ctx, "mona")
		s.False(available)
	})

	s.Run("same deletion transaction is idempotent", func() {
		rec, err := s.service.DeleteDomain(s.ctx, "mona", alice, "tx-del-mona")
		s.Require().NoError(err)
		s.Equal(models.StatusDeleting, rec.Status)
	})

	s.Run("another deletion while deleting is invalid", func() {
		_, err := s.service.DeleteDomain(s.ctx, "mona", alice, "tx-del-other")
		s.requireCode(err, dErrors.CodeInvalidState)
	})
}

func (s *ServiceSuite) TestReconcile_Deletion() {
	s.Run("verified deletion frees the name for a new owner", func() {
		s.activeDomain("olga", alice)
		s.onChain(tx("tx-del-olga", alice, models.IntentDelete, "olga", "0.1", chain.StatusConfirmed))
		_, err := s.service.DeleteDomain(s.ctx, "olga", alice, "tx-del-olga")
		s.Require().NoError(err)

		rec, err := s.service.Reconcile(s.ctx, "olga")
		s.Require().NoError(err)
		s.Equal(models.StatusDeleted, rec.Status)

		s.onChain(tx("tx-olga-bob", bob, models.IntentRegister, "olga", "0.5", chain.StatusConfirmed))
		rec, err = s.service.RegisterDomain(s.ctx, "olga", bob, "tx-olga-bob")
		s.Require().NoError(err)
		s.Equal(bob, rec.OwnerAddress)
	})

	s.Run("confirmation alone is not enough", func() {
		s.deletingDomain("pete", alice, "tx-del-pete")
		s.onChain(tx("tx-del-pete", alice, models.IntentDelete, "pete", "0.01", chain.StatusConfirmed))

		rec, err := s.service.Reconcile(s.ctx, "pete")
		s.Require().NoError(err)
		s.Equal(models.StatusActive, rec.Status)
		s.Empty(rec.DeletionTxHash)
		s.Equal(verify.ReasonBelowFee, rec.Reason)
	})

	s.Run("unresolved deletion waits", func() {
		s.deletingDomain("quin", alice, "tx-del-quin")
		s.notOnChain("tx-del-quin")

		rec, err := s.service.Reconcile(s.ctx, "quin")
		s.Require().NoError(err)
		s.Equal(models.StatusDeleting, rec.Status)
	})

	s.Run("unresolved deletion past the timeout reverts", func() {
		later := requestcontext.WithTime(context.Background(), s.now.Add(2*time.Hour))
		rec, err := s.service.Reconcile(later, "quin")
		s.Require().NoError(err)
		s.Equal(models.StatusActive, rec.Status)
		s.Equal(reasonDeletionTimeout, rec.Reason)
	})

	s.Run("review policy parks failed deletions", func() {
		p := DefaultPolicy()
		p.DeletionFailure = ReviewDeletion
		s.newService(p)
		s.deletingDomain("rosa", alice, "tx-del-rosa")
		s.onChain(tx("tx-del-rosa", bob, models.IntentDelete, "rosa", "0.1", chain.StatusConfirmed))

		rec, err := s.service.Reconcile(s.ctx, "rosa")
		s.Require().NoError(err)
		s.Equal(models.StatusReview, rec.Status)
		s.Equal(verify.ReasonWrongSender, rec.Reason)

		rec, err = s.service.Reconcile(s.ctx, "rosa")
		s.Require().NoError(err)
		s.Equal(models.StatusReview, rec.Status, "review stays put until the deletion verifies")
	})
}

func (s *ServiceSuite) TestProcessTransaction() {
	s.Run("confirmed registration activates", func() {
		t := tx("tx-proc-1", alice, models.IntentRegister, "sara", "0.5", chain.StatusConfirmed)
		s.gateway.EXPECT().GetTransaction(gomock.Any(), t.Hash).Return(t, nil).Times(3)

		rec, err := s.service.ProcessTransaction(s.ctx, t.Hash, alice)
		s.Require().NoError(err)
		s.Equal(models.StatusActive, rec.Status)

		again, err := s.service.ProcessTransaction(s.ctx, t.Hash, alice)
		s.Require().NoError(err)
		s.Equal(rec.ID, again.ID)
	})

	s.Run("pending registration is admitted", func() {
		s.onChain(tx("tx-proc-2", alice, models.IntentRegister, "tina", "0.5", chain.StatusPending))
		rec, err := s.service.ProcessTransaction(s.ctx, "tx-proc-2", "")
		s.Require().NoError(err)
		s.Equal(models.StatusPending, rec.Status)
	})

	s.Run("confirmed deletion completes", func() {
		s.activeDomain("uma", alice)
		s.onChain(tx("tx-proc-3", alice, models.IntentDelete, "uma", "0.1", chain.StatusConfirmed))
		rec, err := s.service.ProcessTransaction(s.ctx, "tx-proc-3", alice)
		s.Require().NoError(err)
		s.Equal(models.StatusDeleted, rec.Status)
	})

	s.Run("a stranger's confirmed deletion leaves the domain alone", func() {
		s.activeDomain("vick", alice)
		s.onChain(tx("tx-grief", bob, models.IntentDelete, "vick", "0.1", chain.StatusConfirmed))

		_, err := s.service.ProcessTransaction(s.ctx, "tx-grief", "")
		s.requireCode(err, dErrors.CodeForbidden)
		s.stillResolves("vick")
	})

	s.Run("non-protocol message is rejected", func() {
		t := tx("tx-proc-4", alice, models.IntentRegister, "x", "1", chain.StatusConfirmed)
		t.Message = "hello"
		s.onChain(t)
		_, err := s.service.ProcessTransaction(s.ctx, t.Hash, "")
		s.requireCode(err, dErrors.CodeValidation)
	})

	s.Run("sender must match the reporting address", func() {
		s.onChain(tx("tx-proc-5", bob, models.IntentRegister, "vera", "1", chain.StatusConfirmed))
		_, err := s.service.ProcessTransaction(s.ctx, "tx-proc-5", alice)
		s.requireCode(err, dErrors.CodeValidation)
	})

	s.Run("unknown transaction is pending", func() {
		s.notOnChain("tx-proc-6")
		_, err := s.service.ProcessTransaction(s.ctx, "tx-proc-6", "")
		s.requireCode(err, dErrors.CodeTxPending)
	})
}

func (s *ServiceSuite) TestSyncAddress() {
	reg := tx("tx-sync-1", alice, models.IntentRegister, "wade", "0.5", chain.StatusConfirmed)
	transfer := tx("tx-sync-2", alice, models.IntentRegister, "xena", "0.5", chain.StatusConfirmed)
	transfer.To = bob
	chat := tx("tx-sync-3", alice, models.IntentRegister, "yuri", "0.5", chain.StatusConfirmed)
	chat.Message = "gm"
	s.gateway.EXPECT().ListTransactions(gomock.Any(), alice, syncLimit).
		Return([]chain.Transaction{*reg, *transfer, *chat}, nil)
	s.onChain(reg)

	recs, err := s.service.SyncAddress(s.ctx, alice)
	s.Require().NoError(err)
	s.Require().Len(recs, 1)
	s.Equal("wade", recs[0].Domain)
	s.Equal(models.StatusActive, recs[0].Status)
}

func (s *ServiceSuite) TestAwaitConfirmation() {
	s.Run("polls until confirmed", func() {
		pending := tx("tx-await", alice, models.IntentRegister, "zack", "0.5", chain.StatusPending)
		confirmed := tx("tx-await", alice, models.IntentRegister, "zack", "0.5", chain.StatusConfirmed)
		gomock.InOrder(
			s.gateway.EXPECT().GetTransaction(gomock.Any(), "tx-await").Return(nil, sentinel.ErrNotFound),
			s.gateway.EXPECT().GetTransaction(gomock.Any(), "tx-await").Return(pending, nil),
			s.gateway.EXPECT().GetTransaction(gomock.Any(), "tx-await").Return(confirmed, nil),
		)

		got, err := s.service.AwaitConfirmation(s.ctx, "tx-await")
		s.Require().NoError(err)
		s.True(got.IsConfirmed())
	})

	s.Run("gives up after the wait window", func() {
		p := DefaultPolicy()
		p.AwaitWindow = 50 * time.Millisecond
		s.newService(p)
		s.notOnChain("tx-never")

		_, err := s.service.AwaitConfirmation(s.ctx, "tx-never")
		s.requireCode(err, dErrors.CodeTxPending)
	})

	s.Run("stops when the context ends", func() {
		s.newService(DefaultPolicy())
		s.notOnChain("tx-cancel")
		ctx, cancel := context.WithTimeout(s.ctx, 30*time.Millisecond)
		defer cancel()

		_, err := s.service.AwaitConfirmation(ctx, "tx-cancel")
		s.requireCode(err, dErrors.CodeTimeout)
	})
}

func (s *ServiceSuite) TestAwaitReconciled() {
	s.seed(models.NewPendingRecord("abby", alice, "tx-abby", s.now))
	s.onChain(tx("tx-abby", alice, models.IntentRegister, "abby", "0.5", chain.StatusConfirmed))

	rec, err := s.service.AwaitReconciled(s.ctx, "abby")
	s.Require().NoError(err)
	s.Equal(models.StatusActive, rec.Status)
}

func (s *ServiceSuite) TestBalance() {
	s.gateway.EXPECT().GetBalance(gomock.Any(), alice).
		Return(&chain.Balance{Balance: decimal.RequireFromString("0.3"), BalanceRaw: "300000"}, nil)

	view, err := s.service.Balance(s.ctx, alice)
	s.Require().NoError(err)
	s.True(view.Balance.Equal(decimal.RequireFromString("0.3")))
	s.False(view.CanRegister, "0.3 is below the registration fee")
	s.True(view.CanDelete)

	_, err = s.service.Balance(s.ctx, "nope")
	s.requireCode(err, dErrors.CodeValidation)
}

func (s *ServiceSuite) TestStatsAndRecent() {
	s.activeDomain("beth", alice)
	s.activeDomain("cody", bob)
	s.seed(models.NewPendingRecord("dora", alice, "tx-dora", s.now))

	stats, err := s.service.Stats(s.ctx)
	s.Require().NoError(err)
	s.Equal(2, stats.TotalDomains)
	s.Equal(2, stats.TotalOwners)

	recent, err := s.service.RecentDomains(s.ctx, 0)
	s.Require().NoError(err)
	s.Len(recent, 2)
}

func (s *ServiceSuite) TestNotifications() {
	ctrl := gomock.NewController(s.T())
	notifier := mocks.NewMockNotifier(ctrl)
	svc, err := New(s.store, s.gateway, protocol, WithNotifier(notifier))
	s.Require().NoError(err)

	s.onChain(tx("tx-evt", alice, models.IntentRegister, "ella", "0.5", chain.StatusConfirmed))
	gomock.InOrder(
		notifier.EXPECT().Publish(gomock.Any(), eventOfType(events.DomainActivated)).Return(nil),
		notifier.EXPECT().Publish(gomock.Any(), eventOfType(events.StatsChanged)).Return(assertErr),
	)

	_, err = svc.RegisterDomain(s.ctx, "ella", alice, "tx-evt")
	s.Require().NoError(err, "notification failures never fail the operation")
}

var assertErr = dErrors.New(dErrors.CodeUnavailable, "broker down")

type eventOfType events.Type

func (t eventOfType) Matches(x any) bool {
	evt, ok := x.(events.Event)
	return ok && evt.Type == events.Type(t)
}

func (t eventOfType) String() string { return "event of type " + string(t) }

func (s *ServiceSuite) TestConcurrentRegistrations_OneWinner() {
	const contenders = 8
	owners := make([]string, contenders)
	for i := range owners {
		owners[i] = fmt.Sprintf("octOwner%015d", i)
		s.onChain(tx(fmt.Sprintf("tx-race-%d", i), owners[i], models.IntentRegister, "race", "0.5", chain.StatusConfirmed))
	}

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		wins    int
		taken   int
		unknown []error
	)
	for i := range owners {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.service.RegisterDomain(s.ctx, "race", owners[i], fmt.Sprintf("tx-race-%d", i))
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				wins++
			case dErrors.HasCode(err, dErrors.CodeDomainTaken):
				taken++
			default:
				unknown = append(unknown, err)
			}
		}()
	}
	wg.Wait()

	s.Empty(unknown)
	s.Equal(1, wins)
	s.Equal(contenders-1, taken)
	resolved, err := s.service.ResolveDomain(s.ctx, "race")
	s.Require().NoError(err)
	s.Contains(owners, resolved.OwnerAddress)
}
