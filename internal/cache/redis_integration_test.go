//go:build integration

package cache_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"finflow/internal/cache"
	"finflow/pkg/platform/sentinel"
	"finflow/pkg/testutil/containers"
)

type RedisCacheIntegrationSuite struct {
	suite.Suite
	ctx   context.Context
	redis *containers.RedisContainer
	cache *cache.Redis
}

func TestRedisCacheIntegrationSuite(t *testing.T) {
	suite.Run(t, new(RedisCacheIntegrationSuite))
}

func (s *RedisCacheIntegrationSuite) SetupSuite() {
	s.ctx = context.Background()
	s.redis = containers.NewRedisContainer(s.T())
	s.cache = cache.NewRedis(s.redis.Client, time.Minute)
}

func (s *RedisCacheIntegrationSuite) SetupTest() {
	s.Require().NoError(s.redis.FlushAll(s.ctx))
}

func (s *RedisCacheIntegrationSuite) TestSetGetDelete() {
	s.Require().NoError(s.cache.Set(s.ctx, "applications:id:1", []byte(`{"a":1}`)))

	raw, err := s.cache.Get(s.ctx, "applications:id:1")
	s.Require().NoError(err)
	s.JSONEq(`{"a":1}`, string(raw))

	s.Require().NoError(s.cache.Delete(s.ctx, "applications:id:1"))
	_, err = s.cache.Get(s.ctx, "applications:id:1")
	s.Require().ErrorIs(err, sentinel.ErrNotFound)
}

func (s *RedisCacheIntegrationSuite) TestMissIsNotFound() {
	_, err := s.cache.Get(s.ctx, "missing")
	s.Require().ErrorIs(err, sentinel.ErrNotFound)
}

func (s *RedisCacheIntegrationSuite) TestPrefixDelete() {
	s.Require().NoError(s.cache.Set(s.ctx, "applications:id:1", []byte(`1`)))
	s.Require().NoError(s.cache.Set(s.ctx, "applications:user:2", []byte(`2`)))
	s.Require().NoError(s.cache.Set(s.ctx, "products:all", []byte(`3`)))

	s.Require().NoError(s.cache.Delete(s.ctx, "applications:*"))

	_, err := s.cache.Get(s.ctx, "applications:id:1")
	s.Require().ErrorIs(err, sentinel.ErrNotFound)
	_, err = s.cache.Get(s.ctx, "applications:user:2")
	s.Require().ErrorIs(err, sentinel.ErrNotFound)

	raw, err := s.cache.Get(s.ctx, "products:all")
	s.Require().NoError(err)
	s.Equal([]byte(`3`), raw)
}
