package mlserver

import (
	"context"
)

// ChatModel sends a fully rendered prompt to a generative model and returns its raw text output.
type ChatModel interface {
	Name() string
	Complete(ctx context.Context, prompt string) (string, error)
}

// Embedder encodes sentences as vectors, one vector per input in the same order.
type Embedder interface {
	Name() string
	EmbedContents(ctx context.Context, contents []string) ([]Vector, error)
}

// ToxicityClassifier returns independent per-label probabilities keyed by the model's label names.
type ToxicityClassifier interface {
	Name() string
	Classify(ctx context.Context, text string) (map[string]float64, error)
}

// Summarizer runs sequence-to-sequence generation over already truncated input.
type Summarizer interface {
	Name() string
	Summarize(ctx context.Context, text string, params SummaryParams) (string, error)
}

// Truncator limits text to a number of model tokens.
type Truncator interface {
	Truncate(text string, maxTokens int) (string, error)
}

// QuestionCollection reads candidate sentences (question titles) from the document store.
type QuestionCollection interface {
	ListQuestions(ctx context.Context, limit int) ([]Candidate, error)
	Ping(ctx context.Context) error
}
