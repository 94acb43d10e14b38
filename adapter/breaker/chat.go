package breaker

import (
	"context"
	"errors"
	"time"

	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"

	"github.com/RichardKnop/mlserver"
	"github.com/RichardKnop/mlserver/internal/metrics"
)

// ChatModel stops calling a failing hosted model for a while instead of
// stacking up slow failing requests.
type ChatModel struct {
	inner  mlserver.ChatModel
	cb     *gobreaker.CircuitBreaker[string]
	logger *zap.Logger

	minRequests  uint32
	failureRatio float64
	openTimeout  time.Duration
	halfOpenMax  uint32
}

type Option func(*ChatModel)

// WithMinRequests sets how many requests the breaker sees before it may trip.
func WithMinRequests(n uint32) Option {
	return func(c *ChatModel) {
		c.minRequests = n
	}
}

func WithFailureRatio(ratio float64) Option {
	return func(c *ChatModel) {
		c.failureRatio = ratio
	}
}

func WithOpenTimeout(timeout time.Duration) Option {
	return func(c *ChatModel) {
		c.openTimeout = timeout
	}
}

func WithHalfOpenMaxRequests(n uint32) Option {
	return func(c *ChatModel) {
		c.halfOpenMax = n
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(c *ChatModel) {
		c.logger = logger
	}
}

const (
	defaultMinRequests  = 5
	defaultFailureRatio = 0.6
	defaultOpenTimeout  = 30 * time.Second
	defaultHalfOpenMax  = 1
)

func New(inner mlserver.ChatModel, options ...Option) *ChatModel {
	c := &ChatModel{
		inner:        inner,
		logger:       zap.NewNop(),
		minRequests:  defaultMinRequests,
		failureRatio: defaultFailureRatio,
		openTimeout:  defaultOpenTimeout,
		halfOpenMax:  defaultHalfOpenMax,
	}

	for _, o := range options {
		o(c)
	}

	name := inner.Name()
	settings := gobreaker.Settings{
		Name:        name,
		MaxRequests: c.halfOpenMax,
		Timeout:     c.openTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < c.minRequests {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return failureRatio >= c.failureRatio
		},
		IsSuccessful: isSuccessful,
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			c.logger.Warn("circuit breaker state change",
				zap.String("name", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
			metrics.CircuitBreakerState.WithLabelValues(name).Set(float64(to))
		},
	}
	c.cb = gobreaker.NewCircuitBreaker[string](settings)
	metrics.CircuitBreakerState.WithLabelValues(name).Set(float64(gobreaker.StateClosed))

	return c
}

func (c *ChatModel) Name() string {
	return c.inner.Name()
}

func (c *ChatModel) Complete(ctx context.Context, prompt string) (string, error) {
	return c.cb.Execute(func() (string, error) {
		return c.inner.Complete(ctx, prompt)
	})
}

// IsOpen reports whether err was returned without calling the model.
func IsOpen(err error) bool {
	return errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests)
}

// Callers giving up is not a model failure.
func isSuccessful(err error) bool {
	if err == nil {
		return true
	}
	return errors.Is(err, context.Canceled) || errors.Is(err, mlserver.ErrInvalidInput)
}
