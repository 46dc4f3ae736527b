//go:build integration

package store_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"ons/internal/domains/models"
	"ons/internal/domains/store"
	"ons/pkg/platform/sentinel"
	"ons/pkg/testutil/containers"
)

const (
	alice = "oct1111111111111111111111111111111111111111111"
	bob   = "oct2222222222222222222222222222222222222222222"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *store.Postgres
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	mgr := containers.GetManager()
	s.postgres = mgr.GetPostgres(s.T())
	s.store = store.NewPostgres(s.postgres.DB)
	s.Require().NoError(s.store.Migrate(context.Background()))
}

func (s *PostgresStoreSuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateTables(context.Background(), "domains"))
}

// TestConcurrentLiveDomainUniqueness verifies the partial unique index lets exactly one
// live record per domain through, across connections.
func (s *PostgresStoreSuite) TestConcurrentLiveDomainUniqueness() {
	ctx := context.Background()
	const goroutines = 30
	now := time.Now().UTC()

	var wg sync.WaitGroup
	var successCount, conflictCount atomic.Int32
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			rec := models.NewPendingRecord("race", alice, fmt.Sprintf("0xrace%02d", i), now)
			err := s.store.Create(ctx, rec)
			switch {
			case err == nil:
				successCount.Add(1)
			case errors.Is(err, sentinel.ErrConflict):
				conflictCount.Add(1)
			}
		}(i)
	}
	wg.Wait()

	s.Equal(int32(1), successCount.Load(), "exactly one create should succeed")
	s.Equal(int32(goroutines-1), conflictCount.Load(), "all others should get conflict error")
}

// TestLifecycleRoundTrip verifies every column survives the trip through Postgres.
func (s *PostgresStoreSuite) TestLifecycleRoundTrip() {
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Microsecond)

	rec := models.NewPendingRecord("alice", alice, "0xabc", now)
	s.Require().NoError(s.store.Create(ctx, rec))

	rec.ApplyActivation("0xabc", now.Add(time.Minute))
	s.Require().NoError(s.store.Update(ctx, rec, models.StatusPending))

	rec.ApplyDeletionRequest("0xdef", now.Add(2*time.Minute))
	s.Require().NoError(s.store.Update(ctx, rec, models.StatusActive))

	found, err := s.store.FindByDomain(ctx, "alice")
	s.Require().NoError(err)
	s.Equal(models.StatusDeleting, found.Status)
	s.Equal("0xabc", found.TxHash)
	s.Equal("0xdef", found.DeletionTxHash)
	s.Require().NotNil(found.DeletionRequestedAt)
	s.True(found.DeletionRequestedAt.Equal(now.Add(2 * time.Minute)))
	s.True(found.CreatedAt.Equal(now))

	s.Run("stale compare-and-set loses", func() {
		stale := found.Clone()
		stale.ApplyRestore("deletion_failed", now)
		s.Require().NoError(s.store.Update(ctx, stale, models.StatusDeleting))

		found.ApplyDeleted(now)
		err := s.store.Update(ctx, found, models.StatusDeleting)
		s.Require().ErrorIs(err, sentinel.ErrInvalidState)
	})

	s.Run("unknown id is not found", func() {
		err := s.store.Update(ctx, models.NewPendingRecord("ghost", alice, "0xghost", now), models.StatusPending)
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
	})
}

// TestDeletedDomainCanBeRegisteredAgain verifies history rows do not hold the name.
func (s *PostgresStoreSuite) TestDeletedDomainCanBeRegisteredAgain() {
	ctx := context.Background()
	now := time.Now().UTC()

	rec := models.NewActiveRecord("alice", alice, "0xabc", now.Add(-time.Hour))
	s.Require().NoError(s.store.Create(ctx, rec))
	rec.ApplyDeletionRequest("0xdef", now)
	s.Require().NoError(s.store.Update(ctx, rec, models.StatusActive))
	rec.ApplyDeleted(now)
	s.Require().NoError(s.store.Update(ctx, rec, models.StatusDeleting))

	s.Require().NoError(s.store.Create(ctx, models.NewActiveRecord("alice", bob, "0x123", now)))

	resolved, err := s.store.Resolve(ctx, "alice")
	s.Require().NoError(err)
	s.Equal(bob, resolved.OwnerAddress)

	latest, err := s.store.FindByDomain(ctx, "alice")
	s.Require().NoError(err)
	s.Equal(bob, latest.OwnerAddress)

	s.Run("tx hash stays unique across history", func() {
		err := s.store.Create(ctx, models.NewPendingRecord("other", bob, "0xabc", now))
		s.Require().ErrorIs(err, sentinel.ErrConflict)
	})
}

// TestQueries verifies list ordering and stats aggregation in SQL.
func (s *PostgresStoreSuite) TestQueries() {
	ctx := context.Background()
	now := time.Now().UTC()

	s.Require().NoError(s.store.Create(ctx, models.NewActiveRecord("alpha", alice, "0x1", now.Add(-48*time.Hour))))
	s.Require().NoError(s.store.Create(ctx, models.NewActiveRecord("bravo", alice, "0x2", now.Add(-time.Hour))))
	s.Require().NoError(s.store.Create(ctx, models.NewPendingRecord("charlie", bob, "0x3", now)))

	recs, err := s.store.ListByAddress(ctx, alice)
	s.Require().NoError(err)
	s.Require().Len(recs, 2)
	s.Equal("bravo", recs[0].Domain)

	recent, err := s.store.Recent(ctx, 10)
	s.Require().NoError(err)
	s.Len(recent, 2)

	due, err := s.store.ListByStatus(ctx, 10, models.StatusPending, models.StatusDeleting)
	s.Require().NoError(err)
	s.Require().Len(due, 1)
	s.Equal("charlie", due[0].Domain)

	stats, err := s.store.Stats(ctx, now.Add(-models.RecentWindow))
	s.Require().NoError(err)
	s.Equal(2, stats.TotalDomains)
	s.Equal(1, stats.TotalOwners)
	s.Equal(1, stats.RecentRegistrations)
}
