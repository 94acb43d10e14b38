package mlservertest

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/RichardKnop/mlserver"
)

// ChatModel returns Output (or Err) and records every prompt it received.
type ChatModel struct {
	Output string
	Err    error

	mu      sync.Mutex
	prompts []string
}

func (m *ChatModel) Name() string { return "fake-chat" }

func (m *ChatModel) Complete(ctx context.Context, prompt string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.prompts = append(m.prompts, prompt)
	return m.Output, m.Err
}

func (m *ChatModel) Prompts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.prompts...)
}

// Embedder looks vectors up by exact content. Unknown content is an error.
type Embedder struct {
	Vectors map[string]mlserver.Vector
	Err     error

	mu    sync.Mutex
	calls int
}

func (e *Embedder) Name() string { return "fake-embedder" }

func (e *Embedder) EmbedContents(ctx context.Context, contents []string) ([]mlserver.Vector, error) {
	e.mu.Lock()
	e.calls++
	e.mu.Unlock()

	if e.Err != nil {
		return nil, e.Err
	}
	vectors := make([]mlserver.Vector, 0, len(contents))
	for _, content := range contents {
		v, ok := e.Vectors[content]
		if !ok {
			return nil, fmt.Errorf("no vector for %q", content)
		}
		vectors = append(vectors, v)
	}
	return vectors, nil
}

func (e *Embedder) Calls() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.calls
}

type ToxicityClassifier struct {
	Labels map[string]float64
	Err    error
}

func (c *ToxicityClassifier) Name() string { return "fake-classifier" }

func (c *ToxicityClassifier) Classify(ctx context.Context, text string) (map[string]float64, error) {
	return c.Labels, c.Err
}

// Summarizer returns Summary and records the input and params of the last call.
type Summarizer struct {
	Summary string
	Err     error

	mu     sync.Mutex
	input  string
	params mlserver.SummaryParams
}

func (s *Summarizer) Name() string { return "fake-summarizer" }

func (s *Summarizer) Summarize(ctx context.Context, text string, params mlserver.SummaryParams) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.input = text
	s.params = params
	return s.Summary, s.Err
}

func (s *Summarizer) LastCall() (string, mlserver.SummaryParams) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.input, s.params
}

// WordTruncator treats every whitespace separated word as one token.
type WordTruncator struct{}

func (WordTruncator) Truncate(text string, maxTokens int) (string, error) {
	words := strings.Fields(text)
	if len(words) <= maxTokens {
		return text, nil
	}
	return strings.Join(words[:maxTokens], " "), nil
}

type QuestionCollection struct {
	Candidates []mlserver.Candidate
	Err        error

	mu        sync.Mutex
	lastLimit int
}

func (q *QuestionCollection) ListQuestions(ctx context.Context, limit int) ([]mlserver.Candidate, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.lastLimit = limit
	return q.Candidates, q.Err
}

func (q *QuestionCollection) Ping(ctx context.Context) error {
	return q.Err
}

func (q *QuestionCollection) LastLimit() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.lastLimit
}
