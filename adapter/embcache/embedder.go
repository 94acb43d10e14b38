package embcache

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"math"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/RichardKnop/mlserver"
)

// ErrKeyNotFound is returned by a Store on a cache miss.
var ErrKeyNotFound = errors.New("key not found")

type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
}

// CachedEmbedder caches embeddings per text and only sends misses to the inner embedder.
type CachedEmbedder struct {
	inner      mlserver.Embedder
	store      Store
	namespace  string
	cacheTotal *prometheus.CounterVec
	logger     *zap.Logger
}

type Option func(*CachedEmbedder)

// WithNamespace separates keys of different embedding models.
func WithNamespace(namespace string) Option {
	return func(c *CachedEmbedder) {
		c.namespace = namespace
	}
}

// WithCacheCounter sets a counter vec with label "result" ("hit"/"miss").
func WithCacheCounter(cacheTotal *prometheus.CounterVec) Option {
	return func(c *CachedEmbedder) {
		c.cacheTotal = cacheTotal
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(c *CachedEmbedder) {
		c.logger = logger
	}
}

func New(inner mlserver.Embedder, store Store, options ...Option) *CachedEmbedder {
	c := &CachedEmbedder{
		inner:  inner,
		store:  store,
		logger: zap.NewNop(),
	}

	for _, o := range options {
		o(c)
	}

	return c
}

func (c *CachedEmbedder) Name() string {
	return c.inner.Name()
}

func (c *CachedEmbedder) EmbedContents(ctx context.Context, contents []string) ([]mlserver.Vector, error) {
	vectors := make([]mlserver.Vector, len(contents))

	var (
		missed    []string
		missedIdx = map[string][]int{}
	)
	for i, content := range contents {
		if vec, ok := c.getFromCache(ctx, c.cacheKey(content)); ok {
			c.incCache("hit")
			vectors[i] = vec
			continue
		}
		c.incCache("miss")
		if _, seen := missedIdx[content]; !seen {
			missed = append(missed, content)
		}
		missedIdx[content] = append(missedIdx[content], i)
	}

	if len(missed) == 0 {
		return vectors, nil
	}

	embedded, err := c.inner.EmbedContents(ctx, missed)
	if err != nil {
		return nil, err
	}
	if len(embedded) != len(missed) {
		return nil, fmt.Errorf("embedded batch size mismatch")
	}

	for i, content := range missed {
		for _, idx := range missedIdx[content] {
			vectors[idx] = embedded[i]
		}
		c.putToCache(ctx, c.cacheKey(content), embedded[i])
	}

	return vectors, nil
}

func (c *CachedEmbedder) incCache(result string) {
	if c.cacheTotal != nil {
		c.cacheTotal.WithLabelValues(result).Inc()
	}
}

func (c *CachedEmbedder) cacheKey(text string) string {
	h := sha256.New()
	h.Write([]byte(c.namespace))
	h.Write([]byte{0})
	h.Write([]byte(text))
	return hex.EncodeToString(h.Sum(nil))
}

func (c *CachedEmbedder) getFromCache(ctx context.Context, key string) (mlserver.Vector, bool) {
	data, err := c.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, ErrKeyNotFound) {
			c.logger.Warn("failed to get cached embedding", zap.String("key", key), zap.Error(err))
		}
		return nil, false
	}
	if len(data) == 0 {
		return nil, false
	}

	vec, err := bytesToVector(data)
	if err != nil {
		c.logger.Warn("failed to parse cached embedding", zap.String("key", key), zap.Error(err))
		return nil, false
	}

	return vec, true
}

func (c *CachedEmbedder) putToCache(ctx context.Context, key string, vec mlserver.Vector) {
	if err := c.store.Set(ctx, key, vectorToBytes(vec)); err != nil {
		c.logger.Warn("failed to cache embedding", zap.String("key", key), zap.Error(err))
	}
}

func vectorToBytes(v mlserver.Vector) []byte {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

func bytesToVector(data []byte) (mlserver.Vector, error) {
	if len(data)%4 != 0 {
		return nil, fmt.Errorf("invalid embedding cache data: len=%d (not multiple of 4)", len(data))
	}
	vec := make(mlserver.Vector, len(data)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return vec, nil
}
