package openai

import (
	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// Adapter talks to any OpenAI compatible API, by default the Hugging Face router.
type Adapter struct {
	client         *openai.Client
	provider       string
	chatModel      string
	embeddingModel openai.EmbeddingModel
	maxTokens      int
	temperature    float32
	logger         *zap.Logger
}

type Option func(*Adapter)

func WithChatModel(model string) Option {
	return func(a *Adapter) {
		a.chatModel = model
	}
}

func WithEmbeddingModel(model string) Option {
	return func(a *Adapter) {
		a.embeddingModel = openai.EmbeddingModel(model)
	}
}

func WithMaxTokens(maxTokens int) Option {
	return func(a *Adapter) {
		a.maxTokens = maxTokens
	}
}

func WithTemperature(temperature float32) Option {
	return func(a *Adapter) {
		a.temperature = temperature
	}
}

// WithProvider sets the provider label used in metrics.
func WithProvider(provider string) Option {
	return func(a *Adapter) {
		a.provider = provider
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(a *Adapter) {
		a.logger = logger
	}
}

const (
	DefaultBaseURL   = "https://router.huggingface.co/v1"
	DefaultChatModel = "meta-llama/Llama-3.1-8B-Instruct"

	defaultMaxTokens = 512
)

// NewClient creates a client for the given OpenAI compatible base URL.
func NewClient(apiKey, baseURL string) *openai.Client {
	clientCfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		clientCfg.BaseURL = baseURL
	}
	return openai.NewClientWithConfig(clientCfg)
}

func New(client *openai.Client, options ...Option) *Adapter {
	a := &Adapter{
		client:    client,
		provider:  adapterName,
		chatModel: DefaultChatModel,
		maxTokens: defaultMaxTokens,
		logger:    zap.NewNop(),
	}

	for _, o := range options {
		o(a)
	}

	a.logger.Sugar().With(
		"chat model", a.chatModel,
		"embedding model", a.embeddingModel,
		"max tokens", a.maxTokens,
	).Info("init openai adapter")

	return a
}

const adapterName = "openai"

func (a *Adapter) Name() string {
	return adapterName
}
