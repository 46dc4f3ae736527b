package service

import (
	"context"
	"time"

	"go.uber.org/mock/gomock"

	"ons/internal/chain"
	"ons/internal/domains/models"
	"ons/internal/domains/service/mocks"
	"ons/pkg/platform/sentinel"
)

func (s *ServiceSuite) TestSweepOnce() {
	s.seed(models.NewPendingRecord("amy", alice, "tx-amy", s.now.Add(-time.Minute)))
	s.seed(models.NewPendingRecord("ben", bob, "tx-ben", s.now.Add(-time.Minute)))
	s.activeDomain("cat", alice)
	s.onChain(tx("tx-del-cat", alice, models.IntentDelete, "cat", "0.1", chain.StatusConfirmed))
	_, err := s.service.DeleteDomain(s.ctx, "cat", alice, "tx-del-cat")
	s.Require().NoError(err)
	s.activeDomain("dan", bob)

	s.onChain(tx("tx-amy", alice, models.IntentRegister, "amy", "0.5", chain.StatusConfirmed))
	s.notOnChain("tx-ben")

	sweeper := NewSweeper(s.service, WithSweepConcurrency(2), WithSweepBatch(10))
	res, err := sweeper.SweepOnce(s.ctx)
	s.Require().NoError(err)
	s.Equal(3, res.Visited, "active records are not swept")
	s.Equal(2, res.Transitions)
	s.Equal(0, res.Failures)

	amy, _ := s.service.ResolveDomain(s.ctx, "amy")
	s.Require().NotNil(amy)
	s.Equal(models.StatusActive, amy.Status)
	available, _ := s.service.CheckAvailability(s.ctx, "cat")
	s.True(available)
}

func (s *ServiceSuite) TestSweepOnce_StoreFailure() {
	ctrl := gomock.NewController(s.T())
	failing := mocks.NewMockStore(ctrl)
	failing.EXPECT().ListByStatus(gomock.Any(), 100, gomock.Any(), gomock.Any(), gomock.Any()).
		Return(nil, sentinel.ErrUnavailable)
	svc, err := New(failing, s.gateway, protocol)
	s.Require().NoError(err)

	_, err = NewSweeper(svc).SweepOnce(context.Background())
	s.Require().Error(err)
}

func (s *ServiceSuite) TestSweeper_RunStopsOnCancel() {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- NewSweeper(s.service, WithSweepInterval(10*time.Millisecond)).Run(ctx)
	}()
	time.Sleep(30 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		s.NoError(err)
	case <-time.After(time.Second):
		s.Fail("sweeper did not stop")
	}
}
