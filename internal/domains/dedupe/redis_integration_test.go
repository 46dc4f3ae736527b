//go:build integration

package dedupe_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"ons/internal/domains/dedupe"
	"ons/pkg/testutil/containers"
)

type RedisDedupeSuite struct {
	suite.Suite
	redis *containers.RedisContainer
	store *dedupe.Redis
}

func TestRedisDedupeSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(RedisDedupeSuite))
}

func (s *RedisDedupeSuite) SetupSuite() {
	s.redis = containers.GetManager().GetRedis(s.T())
	s.store = dedupe.NewRedis(s.redis.Client, time.Second)
}

func (s *RedisDedupeSuite) SetupTest() {
	s.Require().NoError(s.redis.FlushAll(context.Background()))
}

func (s *RedisDedupeSuite) TestMarkAndSeen() {
	ctx := context.Background()

	seen, err := s.store.Seen(ctx, "register:0xabc")
	s.Require().NoError(err)
	s.False(seen)

	s.Require().NoError(s.store.Mark(ctx, "register:0xabc"))
	seen, err = s.store.Seen(ctx, "register:0xabc")
	s.Require().NoError(err)
	s.True(seen)

	other := dedupe.NewRedis(s.redis.Client, time.Second)
	seen, err = other.Seen(ctx, "register:0xabc")
	s.Require().NoError(err)
	s.True(seen, "a second instance sees the key")
}

func (s *RedisDedupeSuite) TestKeysExpire() {
	ctx := context.Background()
	s.Require().NoError(s.store.Mark(ctx, "delete:0xdef"))

	s.Eventually(func() bool {
		seen, err := s.store.Seen(ctx, "delete:0xdef")
		return err == nil && !seen
	}, 5*time.Second, 100*time.Millisecond)
}
