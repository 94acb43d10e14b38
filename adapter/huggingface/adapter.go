package huggingface

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"go.uber.org/zap"
)

// Adapter calls the Hugging Face hosted inference API.
type Adapter struct {
	client  *retryablehttp.Client
	baseURL string
	model   string
	token   string
	logger  *zap.Logger
}

type Option func(*Adapter)

func WithBaseURL(baseURL string) Option {
	return func(a *Adapter) {
		a.baseURL = strings.TrimRight(baseURL, "/")
	}
}

func WithModel(model string) Option {
	return func(a *Adapter) {
		a.model = model
	}
}

func WithToken(token string) Option {
	return func(a *Adapter) {
		a.token = token
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(a *Adapter) {
		a.logger = logger
	}
}

const (
	DefaultBaseURL = "https://router.huggingface.co/hf-inference/models"
	DefaultModel   = "facebook/bart-large-cnn"

	DefaultRetryMax = 3
	DefaultTimeout  = 60 * time.Second
)

// NewClient returns a retrying HTTP client. Retries cover 429 and 5xx, which
// includes the 503 returned while a cold model is loading. A negative retryMax
// or a non positive timeout falls back to the defaults.
func NewClient(retryMax int, timeout time.Duration, logger *zap.Logger) *retryablehttp.Client {
	if retryMax < 0 {
		retryMax = DefaultRetryMax
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	client := retryablehttp.NewClient()
	client.RetryMax = retryMax
	client.HTTPClient.Timeout = timeout
	client.Logger = leveledLogger{logger.Sugar()}
	client.CheckRetry = retryPolicy
	client.ErrorHandler = retryablehttp.PassthroughErrorHandler
	return client
}

func New(client *retryablehttp.Client, options ...Option) *Adapter {
	a := &Adapter{
		client:  client,
		baseURL: DefaultBaseURL,
		model:   DefaultModel,
		logger:  zap.NewNop(),
	}

	for _, o := range options {
		o(a)
	}

	a.logger.Sugar().With(
		"base url", a.baseURL,
		"model", a.model,
		"token set", a.token != "",
	).Info("init huggingface adapter")

	return a
}

const adapterName = "huggingface"

func (a *Adapter) Name() string {
	return adapterName
}

func (a *Adapter) modelURL() string {
	return a.baseURL + "/" + a.model
}

func retryPolicy(ctx context.Context, resp *http.Response, err error) (bool, error) {
	// do not retry on context.Canceled or context.DeadlineExceeded
	if ctx.Err() != nil {
		return false, ctx.Err()
	}
	return retryablehttp.DefaultRetryPolicy(ctx, resp, err)
}

// leveledLogger routes retryablehttp logs through zap.
type leveledLogger struct {
	s *zap.SugaredLogger
}

func (l leveledLogger) Error(msg string, keysAndValues ...any) { l.s.Errorw(msg, keysAndValues...) }
func (l leveledLogger) Info(msg string, keysAndValues ...any)  { l.s.Infow(msg, keysAndValues...) }
func (l leveledLogger) Debug(msg string, keysAndValues ...any) { l.s.Debugw(msg, keysAndValues...) }
func (l leveledLogger) Warn(msg string, keysAndValues ...any)  { l.s.Warnw(msg, keysAndValues...) }
