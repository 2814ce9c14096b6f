//go:build integration

package directory_test

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/suite"

	"chancery/internal/directory"
	id "chancery/pkg/domain"
	"chancery/pkg/testutil/containers"
)

type CachedDirectorySuite struct {
	suite.Suite
	redis *containers.RedisContainer
	inner *directory.InMemoryDirectory
	dir   *directory.CachedDirectory
}

func TestCachedDirectorySuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(CachedDirectorySuite))
}

func (s *CachedDirectorySuite) SetupSuite() {
	s.redis = containers.NewRedisContainer(s.T())
}

func (s *CachedDirectorySuite) TearDownSuite() {
	if s.redis != nil {
		_ = s.redis.Client.Close()
		_ = s.redis.Container.Terminate(context.Background())
	}
}

func (s *CachedDirectorySuite) SetupTest() {
	ctx := context.Background()
	err := s.redis.FlushAll(ctx)
	s.Require().NoError(err)

	s.inner = directory.NewInMemoryDirectory()
	s.dir = directory.NewCached(s.inner, s.redis.Client, slog.Default())
}

func activeKey(actorID id.ActorID) string {
	return "chancery:actor-active:" + actorID.String()
}

// TestMissFillsCache verifies that a lookup miss resolves through the inner
// directory and writes both active and inactive flags back with a TTL.
func (s *CachedDirectorySuite) TestMissFillsCache() {
	ctx := context.Background()
	active := id.ActorID(uuid.New())
	inactive := id.ActorID(uuid.New())
	s.inner.AddActive(active, inactive)
	s.inner.Deactivate(inactive)

	got, err := s.dir.ListActive(ctx, []id.ActorID{active, inactive})
	s.Require().NoError(err)
	s.Equal([]id.ActorID{active}, got)

	flag, err := s.redis.Client.Get(ctx, activeKey(active)).Result()
	s.Require().NoError(err)
	s.Equal("1", flag)

	flag, err = s.redis.Client.Get(ctx, activeKey(inactive)).Result()
	s.Require().NoError(err)
	s.Equal("0", flag)

	ttl, err := s.redis.Client.TTL(ctx, activeKey(active)).Result()
	s.Require().NoError(err)
	s.Positive(ttl)
}

// TestHitServedFromCache verifies that a cached active flag answers without
// consulting the inner directory. The actor is deliberately absent from the
// inner directory so a fallthrough would drop it.
func (s *CachedDirectorySuite) TestHitServedFromCache() {
	ctx := context.Background()
	actorID := id.ActorID(uuid.New())
	err := s.redis.Client.Set(ctx, activeKey(actorID), "1", time.Minute).Err()
	s.Require().NoError(err)

	got, err := s.dir.ListActive(ctx, []id.ActorID{actorID})
	s.Require().NoError(err)
	s.Equal([]id.ActorID{actorID}, got)
}

// TestCachedInactiveDropped verifies that a cached inactive flag keeps the
// actor out of the result even after reactivation, until the flag expires.
func (s *CachedDirectorySuite) TestCachedInactiveDropped() {
	ctx := context.Background()
	actorID := id.ActorID(uuid.New())
	s.inner.AddActive(actorID)
	err := s.redis.Client.Set(ctx, activeKey(actorID), "0", time.Minute).Err()
	s.Require().NoError(err)

	got, err := s.dir.ListActive(ctx, []id.ActorID{actorID})
	s.Require().NoError(err)
	s.Empty(got)
}

// TestRedisDownFallsBack verifies that a failing cache degrades to the inner
// directory instead of failing the lookup.
func (s *CachedDirectorySuite) TestRedisDownFallsBack() {
	ctx := context.Background()
	actorID := id.ActorID(uuid.New())
	s.inner.AddActive(actorID)

	dead := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
	})
	defer dead.Close()
	dir := directory.NewCached(s.inner, dead, slog.Default())

	got, err := dir.ListActive(ctx, []id.ActorID{actorID})
	s.Require().NoError(err)
	s.Equal([]id.ActorID{actorID}, got)
}
