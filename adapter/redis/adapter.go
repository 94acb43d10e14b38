package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/RichardKnop/mlserver/adapter/embcache"
)

// Adapter is a key value store for cached embeddings.
type Adapter struct {
	client    *redis.Client
	keyPrefix string
	ttl       time.Duration
	logger    *zap.Logger
}

type Option func(*Adapter)

const (
	defaultKeyPrefix = "emb:"
	defaultTTL       = 24 * time.Hour
)

func New(ctx context.Context, client *redis.Client, options ...Option) (*Adapter, error) {
	a := &Adapter{
		client:    client,
		keyPrefix: defaultKeyPrefix,
		ttl:       defaultTTL,
		logger:    zap.NewNop(),
	}

	for _, o := range options {
		o(a)
	}

	a.logger.Sugar().With(
		"prefix", a.keyPrefix,
		"ttl", a.ttl,
	).Info("init redis adapter")

	return a, a.init(ctx)
}

func WithKeyPrefix(prefix string) Option {
	return func(a *Adapter) {
		a.keyPrefix = prefix
	}
}

// WithTTL sets the key expiry. Zero keeps keys forever.
func WithTTL(ttl time.Duration) Option {
	return func(a *Adapter) {
		a.ttl = ttl
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(a *Adapter) {
		a.logger = logger
	}
}

const adapterName = "redis"

func (a *Adapter) Name() string {
	return adapterName
}

func (a *Adapter) init(ctx context.Context) error {
	result, err := a.client.Ping(ctx).Result()
	if err != nil {
		return fmt.Errorf("pinging redis: %w", err)
	}
	if result != "PONG" {
		return fmt.Errorf("unexpected redis ping response: %s", result)
	}
	return nil
}

func (a *Adapter) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := a.client.Get(ctx, a.keyPrefix+key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, embcache.ErrKeyNotFound
		}
		return nil, err
	}
	return data, nil
}

func (a *Adapter) Set(ctx context.Context, key string, value []byte) error {
	return a.client.Set(ctx, a.keyPrefix+key, value, a.ttl).Err()
}
