package redis

import (
	"context"
	"time"

	"github.com/RichardKnop/mlserver"
	"github.com/RichardKnop/mlserver/adapter/embcache"
	"github.com/RichardKnop/mlserver/mlservertest"
)

func (s *RedisTestSuite) TestGetSet() {
	ctx, cancel := testContext()
	defer cancel()

	_, err := s.adapter.Get(ctx, "missing")
	s.ErrorIs(err, embcache.ErrKeyNotFound)

	err = s.adapter.Set(ctx, "key", []byte{1, 2, 3, 4})
	s.Require().NoError(err)

	data, err := s.adapter.Get(ctx, "key")
	s.Require().NoError(err)
	s.Equal([]byte{1, 2, 3, 4}, data)

	ttl, err := s.client.TTL(ctx, "emb:key").Result()
	s.Require().NoError(err)
	s.Greater(ttl, time.Duration(0))
	s.LessOrEqual(ttl, time.Minute)
}

func (s *RedisTestSuite) TestCachedEmbedder() {
	ctx, cancel := testContext()
	defer cancel()

	inner := &mlservertest.Embedder{
		Vectors: map[string]mlserver.Vector{
			"reference": {1, 0, 0},
			"candidate": {0.5, 0.5, 0},
		},
	}
	cached := embcache.New(inner, s.adapter, embcache.WithNamespace("all-MiniLM-L6-v2"))

	first, err := cached.EmbedContents(ctx, []string{"reference", "candidate"})
	s.Require().NoError(err)

	// A second embedder sharing the store is served from redis.
	other := embcache.New(&mlservertest.Embedder{}, s.adapter, embcache.WithNamespace("all-MiniLM-L6-v2"))
	second, err := other.EmbedContents(context.Background(), []string{"candidate", "reference"})
	s.Require().NoError(err)

	s.Equal(first[0], second[1])
	s.Equal(first[1], second[0])
	s.Equal(1, inner.Calls())
}
