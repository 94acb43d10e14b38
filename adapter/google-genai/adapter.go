package googlegenai

import (
	"go.uber.org/zap"
	"google.golang.org/genai"
)

type Adapter struct {
	client          *genai.Client
	embeddingModel  string
	generativeModel string
	maxTokens       int32
	temperature     *float32
	logger          *zap.Logger
}

type Option func(*Adapter)

func WithEmbeddingModel(model string) Option {
	return func(a *Adapter) {
		a.embeddingModel = model
	}
}

func WithGenerativeModel(model string) Option {
	return func(a *Adapter) {
		a.generativeModel = model
	}
}

func WithMaxTokens(maxTokens int) Option {
	return func(a *Adapter) {
		a.maxTokens = int32(maxTokens)
	}
}

func WithTemperature(temperature float32) Option {
	return func(a *Adapter) {
		a.temperature = genai.Ptr(temperature)
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(a *Adapter) {
		a.logger = logger
	}
}

const (
	DefaultGenerativeModel = "gemini-2.0-flash"
	DefaultEmbeddingModel  = "text-embedding-004"
)

// New wraps a genai client. The client reads its API key from GEMINI_API_KEY
// unless one is set in its config.
func New(client *genai.Client, options ...Option) *Adapter {
	a := &Adapter{
		client:          client,
		embeddingModel:  DefaultEmbeddingModel,
		generativeModel: DefaultGenerativeModel,
		logger:          zap.NewNop(),
	}

	for _, o := range options {
		o(a)
	}

	a.logger.Sugar().With(
		"embedding model", a.embeddingModel,
		"generative model", a.generativeModel,
	).Info("init google genai adapter")

	return a
}

const adapterName = "google-genai"

func (a *Adapter) Name() string {
	return adapterName
}
