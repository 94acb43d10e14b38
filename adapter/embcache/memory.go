package embcache

import (
	"context"
	"time"

	"github.com/patrickmn/go-cache"
)

// MemoryStore keeps embeddings in process with an expiry.
type MemoryStore struct {
	cache *cache.Cache
}

func NewMemoryStore(ttl time.Duration) *MemoryStore {
	cleanupInterval := ttl
	if cleanupInterval <= 0 {
		cleanupInterval = 10 * time.Minute
	}
	return &MemoryStore{
		cache: cache.New(ttl, cleanupInterval),
	}
}

func (s *MemoryStore) Get(ctx context.Context, key string) ([]byte, error) {
	value, ok := s.cache.Get(key)
	if !ok {
		return nil, ErrKeyNotFound
	}
	data, ok := value.([]byte)
	if !ok {
		return nil, ErrKeyNotFound
	}
	return data, nil
}

func (s *MemoryStore) Set(ctx context.Context, key string, value []byte) error {
	s.cache.SetDefault(key, value)
	return nil
}
