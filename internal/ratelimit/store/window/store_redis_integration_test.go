//go:build integration

package window_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"formgate/internal/ratelimit/models"
	"formgate/internal/ratelimit/service"
	"formgate/internal/ratelimit/store/window"
	"formgate/pkg/platform/sentinel"
	"formgate/pkg/testutil/containers"
)

type RedisStoreSuite struct {
	suite.Suite
	redis *containers.Redis
	store *window.RedisStore
}

func TestRedisStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(RedisStoreSuite))
}

func (s *RedisStoreSuite) SetupSuite() {
	s.redis = containers.StartRedis(s.T())
	s.store = window.NewRedisStore(s.redis.Client.Client)
}

func (s *RedisStoreSuite) SetupTest() {
	s.Require().NoError(s.redis.FlushAll(context.Background()))
}

func (s *RedisStoreSuite) TestRoundTripAtMillisecondPrecision() {
	ctx := context.Background()
	ts := []time.Time{time.UnixMilli(1_700_000_000_123), time.UnixMilli(1_700_000_001_456)}

	s.Require().NoError(s.store.Put(ctx, "ratelimit:ip:abc", ts, time.Minute))

	got, err := s.store.Get(ctx, "ratelimit:ip:abc")
	s.Require().NoError(err)
	s.Require().Len(got, 2)
	s.True(ts[0].Equal(got[0]))
	s.True(ts[1].Equal(got[1]))
}

func (s *RedisStoreSuite) TestAbsentKeyIsEmpty() {
	got, err := s.store.Get(context.Background(), "ratelimit:ip:missing")
	s.Require().NoError(err)
	s.Empty(got)
}

func (s *RedisStoreSuite) TestCorruptValueIsMalformed() {
	ctx := context.Background()
	s.Require().NoError(s.redis.Client.Set(ctx, "ratelimit:ip:bad", "not-json", time.Minute).Err())

	_, err := s.store.Get(ctx, "ratelimit:ip:bad")
	s.True(errors.Is(err, sentinel.ErrMalformed))
}

func (s *RedisStoreSuite) TestKeyCarriesWindowTTL() {
	ctx := context.Background()
	s.Require().NoError(s.store.Put(ctx, "ratelimit:ip:ttl", []time.Time{time.Now()}, time.Minute))

	ttl, err := s.redis.Client.TTL(ctx, "ratelimit:ip:ttl").Result()
	s.Require().NoError(err)
	s.Greater(ttl, 50*time.Second)
	s.LessOrEqual(ttl, time.Minute)
}

func (s *RedisStoreSuite) TestLimiterSharesStateThroughRedis() {
	ctx := context.Background()
	// Two limiter instances stand in for two server replicas.
	a := service.New(s.store)
	b := service.New(s.store)

	var last *models.Result
	var err error
	for i, limiter := range []*service.Service{a, b, a, b} {
		last, err = limiter.Check(ctx, "198.51.100.4", 3, time.Minute)
		s.Require().NoError(err)
		if i < 3 {
			s.True(last.Allowed, "request %d should be admitted", i+1)
		}
	}
	s.False(last.Allowed)
	s.False(last.Degraded)
}
