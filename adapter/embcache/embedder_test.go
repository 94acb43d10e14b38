package embcache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RichardKnop/mlserver"
	"github.com/RichardKnop/mlserver/mlservertest"
)

func newTestEmbedder() *mlservertest.Embedder {
	return &mlservertest.Embedder{
		Vectors: map[string]mlserver.Vector{
			"reference": {1, 0, 0},
			"near":      {0.9, 0.1, 0},
			"far":       {0, 0, 1},
		},
	}
}

func TestEmbedContents(t *testing.T) {
	t.Parallel()

	var (
		inner   = newTestEmbedder()
		counter = prometheus.NewCounterVec(prometheus.CounterOpts{Name: "test_cache_total"}, []string{"result"})
		c       = New(inner, NewMemoryStore(time.Minute), WithNamespace("model-a"), WithCacheCounter(counter))
		ctx     = context.Background()
	)

	vectors, err := c.EmbedContents(ctx, []string{"reference", "near", "reference"})
	require.NoError(t, err)
	assert.Equal(t, []mlserver.Vector{{1, 0, 0}, {0.9, 0.1, 0}, {1, 0, 0}}, vectors)
	assert.Equal(t, 1, inner.Calls())

	vectors, err = c.EmbedContents(ctx, []string{"near", "far", "reference"})
	require.NoError(t, err)
	assert.Equal(t, []mlserver.Vector{{0.9, 0.1, 0}, {0, 0, 1}, {1, 0, 0}}, vectors)
	assert.Equal(t, 2, inner.Calls())

	// Everything is cached now.
	_, err = c.EmbedContents(ctx, []string{"far", "near"})
	require.NoError(t, err)
	assert.Equal(t, 2, inner.Calls())

	assert.Equal(t, float64(4), testutil.ToFloat64(counter.WithLabelValues("hit")))
	assert.Equal(t, float64(4), testutil.ToFloat64(counter.WithLabelValues("miss")))
}

func TestEmbedContents_NamespacesDoNotShareKeys(t *testing.T) {
	t.Parallel()

	var (
		store = NewMemoryStore(time.Minute)
		a     = New(newTestEmbedder(), store, WithNamespace("model-a"))
		b     = New(newTestEmbedder(), store, WithNamespace("model-b"))
	)

	assert.NotEqual(t, a.cacheKey("reference"), b.cacheKey("reference"))
	assert.Equal(t, a.cacheKey("reference"), a.cacheKey("reference"))
}

func TestEmbedContents_InnerError(t *testing.T) {
	t.Parallel()

	inner := &mlservertest.Embedder{Err: errors.New("model unavailable")}
	c := New(inner, NewMemoryStore(time.Minute))

	_, err := c.EmbedContents(context.Background(), []string{"reference"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "model unavailable")
}

type failingStore struct{}

func (failingStore) Get(ctx context.Context, key string) ([]byte, error) {
	return nil, errors.New("connection refused")
}

func (failingStore) Set(ctx context.Context, key string, value []byte) error {
	return errors.New("connection refused")
}

func TestEmbedContents_StoreErrorsFallThrough(t *testing.T) {
	t.Parallel()

	inner := newTestEmbedder()
	c := New(inner, failingStore{})

	vectors, err := c.EmbedContents(context.Background(), []string{"far"})
	require.NoError(t, err)
	assert.Equal(t, []mlserver.Vector{{0, 0, 1}}, vectors)
}

func TestBytesToVector(t *testing.T) {
	t.Parallel()

	vec := mlserver.Vector{0.25, -1.5, 3}
	decoded, err := bytesToVector(vectorToBytes(vec))
	require.NoError(t, err)
	assert.Equal(t, vec, decoded)

	_, err = bytesToVector([]byte{1, 2, 3})
	assert.Error(t, err)
}
