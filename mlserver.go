package mlserver

import (
	"context"
	"errors"

	"go.uber.org/zap"
)

var (
	// ErrInvalidInput marks caller errors (missing or malformed request fields).
	ErrInvalidInput = errors.New("invalid input")
	// ErrModelOutput marks model responses that could not be parsed or validated.
	ErrModelOutput = errors.New("invalid model output")
	// ErrNotConfigured is returned when an operation needs a port that was not wired.
	ErrNotConfigured = errors.New("not configured")
)

const DefaultSimilarityThreshold = 0.80

type mlServer struct {
	chat       ChatModel
	embedder   Embedder
	classifier ToxicityClassifier
	summarizer Summarizer
	truncator  Truncator
	questions  QuestionCollection

	summaryParams       SummaryParams
	similarityThreshold float64
	collectionLimit     int
	flagThresholds      FlagThresholds
	logger              *zap.Logger
}

type Option func(*mlServer)

func WithTruncator(truncator Truncator) Option {
	return func(s *mlServer) {
		s.truncator = truncator
	}
}

func WithQuestionCollection(questions QuestionCollection, limit int) Option {
	return func(s *mlServer) {
		s.questions = questions
		s.collectionLimit = limit
	}
}

func WithSimilarityThreshold(threshold float64) Option {
	return func(s *mlServer) {
		s.similarityThreshold = threshold
	}
}

func WithSummaryParams(params SummaryParams) Option {
	return func(s *mlServer) {
		s.summaryParams = params
	}
}

func WithFlagThresholds(thresholds FlagThresholds) Option {
	return func(s *mlServer) {
		s.flagThresholds = thresholds
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(s *mlServer) {
		s.logger = logger
	}
}

// New wires the model ports into a server. Any port may be nil, in which case
// the operations depending on it return ErrNotConfigured.
func New(chat ChatModel, embedder Embedder, classifier ToxicityClassifier, summarizer Summarizer, options ...Option) *mlServer {
	s := &mlServer{
		chat:                chat,
		embedder:            embedder,
		classifier:          classifier,
		summarizer:          summarizer,
		summaryParams:       DefaultSummaryParams(),
		similarityThreshold: DefaultSimilarityThreshold,
		flagThresholds:      DefaultFlagThresholds(),
		logger:              zap.NewNop(),
	}

	for _, o := range options {
		o(s)
	}

	return s
}

// CheckCollection pings the question collection when one is configured.
func (s *mlServer) CheckCollection(ctx context.Context) error {
	if s.questions == nil {
		return nil
	}
	return s.questions.Ping(ctx)
}

// Models lists the names of the wired model adapters, keyed by capability.
func (s *mlServer) Models() map[string]string {
	models := map[string]string{}
	if s.chat != nil {
		models["chat"] = s.chat.Name()
	}
	if s.embedder != nil {
		models["embedding"] = s.embedder.Name()
	}
	if s.classifier != nil {
		models["toxicity"] = s.classifier.Name()
	}
	if s.summarizer != nil {
		models["summarization"] = s.summarizer.Name()
	}
	return models
}
