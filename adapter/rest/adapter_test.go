package rest

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RichardKnop/mlserver"
	"github.com/RichardKnop/mlserver/mlservertest"
)

var testVectors = map[string]mlserver.Vector{
	"How do I reverse a list?":    {1, 0, 0},
	"Reverse a slice in Go":       {0.9, 0.1, 0},
	"What is the capital of Peru": {0.5, 0.5, 0.7071},
}

type testDeps struct {
	chat       *mlservertest.ChatModel
	embedder   *mlservertest.Embedder
	classifier *mlservertest.ToxicityClassifier
	summarizer *mlservertest.Summarizer
	questions  *mlservertest.QuestionCollection
}

func newTestDeps() *testDeps {
	return &testDeps{
		chat:       &mlservertest.ChatModel{},
		embedder:   &mlservertest.Embedder{Vectors: testVectors},
		classifier: &mlservertest.ToxicityClassifier{},
		summarizer: &mlservertest.Summarizer{},
	}
}

func (d *testDeps) handler(options ...Option) http.Handler {
	serverOptions := []mlserver.Option{mlserver.WithTruncator(mlservertest.WordTruncator{})}
	if d.questions != nil {
		serverOptions = append(serverOptions, mlserver.WithQuestionCollection(d.questions, 100))
	}
	s := mlserver.New(d.chat, d.embedder, d.classifier, d.summarizer, serverOptions...)
	return New(s, options...).Handler()
}

func doRequest(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()

	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	body := map[string]any{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestInvalidRequests(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		Name     string
		Path     string
		Body     string
		Expected string
	}{
		{Name: "Ask empty object", Path: "/ask-bot", Body: `{}`, Expected: "Missing 'question' in request"},
		{Name: "Ask blank question", Path: "/ask-bot", Body: `{"question": "   "}`, Expected: "Missing 'question' in request"},
		{Name: "Ask invalid JSON", Path: "/ask-bot", Body: `question=hello`, Expected: "Missing 'question' in request"},
		{Name: "Ask no body", Path: "/ask-bot", Body: ``, Expected: "Missing 'question' in request"},
		{Name: "Ask JSON array", Path: "/ask-bot", Body: `["hello"]`, Expected: "Missing 'question' in request"},
		{Name: "Ask wrong type", Path: "/ask-bot", Body: `{"question": 42}`, Expected: "Invalid 'question' in request"},
		{Name: "Similarity threshold wrong type", Path: "/similarity", Body: `{"reference": "a", "candidates": ["b"], "threshold": "x"}`, Expected: "Invalid 'threshold' in request"},
		{Name: "Similarity candidate wrong type", Path: "/similarity", Body: `{"reference": "a", "candidates": ["b", 3]}`, Expected: "Invalid 'candidates' in request"},
		{Name: "Tags empty question", Path: "/generate-tags", Body: `{"question": ""}`, Expected: "Missing 'question' in request"},
		{Name: "Toxicity missing text", Path: "/toxic-analyze", Body: `{"question": "hi"}`, Expected: "Missing 'text' in request"},
		{Name: "Summarize missing text", Path: "/summarize", Body: `{}`, Expected: "Missing 'text' in request"},
		{Name: "Similarity missing reference", Path: "/similarity", Body: `{"candidates": ["a"]}`, Expected: "Missing 'reference' in request"},
		{Name: "Similarity threshold out of range", Path: "/similarity", Body: `{"reference": "a", "candidates": ["b"], "threshold": 1.5}`, Expected: "Invalid 'threshold' in request: must be between -1 and 1"},
	}

	for _, tc := range testCases {
		t.Run(tc.Name, func(t *testing.T) {
			t.Parallel()

			deps := newTestDeps()
			rec := doRequest(t, deps.handler(), http.MethodPost, tc.Path, tc.Body)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, tc.Expected, decodeBody(t, rec)["error"])
			assert.Empty(t, deps.chat.Prompts())
		})
	}
}

func TestAskBot(t *testing.T) {
	t.Parallel()

	deps := newTestDeps()
	deps.chat.Output = "  Use slices.Reverse.  \n"

	rec := doRequest(t, deps.handler(), http.MethodPost, "/ask-bot", `{"question": "How do I reverse a slice?"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, map[string]any{"answer": "Use slices.Reverse."}, decodeBody(t, rec))
	require.Len(t, deps.chat.Prompts(), 1)
	assert.Contains(t, deps.chat.Prompts()[0], "How do I reverse a slice?")
}

func TestAskBot_ModelError(t *testing.T) {
	t.Parallel()

	deps := newTestDeps()
	deps.chat.Err = errors.New("upstream timeout")

	rec := doRequest(t, deps.handler(), http.MethodPost, "/ask-bot", `{"question": "hi"}`)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, decodeBody(t, rec)["error"], "upstream timeout")
}

func TestGenerateTags(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		Name           string
		Output         string
		ExpectedStatus int
		ExpectedBody   map[string]any
		ExpectedError  string
	}{
		{
			Name:           "Normalized tags",
			Output:         `["Go", " Slices ", "REVERSE"]`,
			ExpectedStatus: http.StatusOK,
			ExpectedBody:   map[string]any{"tags": []any{"go", "slices", "reverse"}},
		},
		{
			Name:           "Empty list",
			Output:         `[]`,
			ExpectedStatus: http.StatusOK,
			ExpectedBody:   map[string]any{"tags": []any{}},
		},
		{
			Name:           "Not JSON",
			Output:         `Tags: go, slices`,
			ExpectedStatus: http.StatusInternalServerError,
			ExpectedError:  "model output is not valid JSON: Tags: go, slices",
		},
		{
			Name:           "Blank tag",
			Output:         `["go", " "]`,
			ExpectedStatus: http.StatusInternalServerError,
			ExpectedError:  `empty tag found in model output: ["go", " "]`,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.Name, func(t *testing.T) {
			t.Parallel()

			deps := newTestDeps()
			deps.chat.Output = tc.Output

			rec := doRequest(t, deps.handler(), http.MethodPost, "/generate-tags", `{"question": "How do I reverse a slice?"}`)

			assert.Equal(t, tc.ExpectedStatus, rec.Code)
			body := decodeBody(t, rec)
			if tc.ExpectedError != "" {
				assert.Contains(t, body["error"], tc.ExpectedError)
				return
			}
			assert.Equal(t, tc.ExpectedBody, body)
		})
	}
}

func TestToxicAnalyze(t *testing.T) {
	t.Parallel()

	deps := newTestDeps()
	deps.classifier.Labels = map[string]float64{
		"toxic":  0.25,
		"insult": 0.75,
	}

	rec := doRequest(t, deps.handler(), http.MethodPost, "/toxic-analyze", `{"text": "I hate you"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, true, body["flagged"])
	assert.Equal(t, map[string]any{
		"toxicity":        0.25,
		"severe_toxicity": 0.0,
		"obscene":         0.0,
		"identity_attack": 0.0,
		"insult":          0.75,
		"threat":          0.0,
		"sexual_explicit": 0.0,
	}, body["scores"])
}

func TestSummarize(t *testing.T) {
	t.Parallel()

	deps := newTestDeps()
	deps.summarizer.Summary = " A short summary. "

	rec := doRequest(t, deps.handler(), http.MethodPost, "/summarize", `{"text": "A long article about Go."}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, map[string]any{"summary": "A short summary."}, decodeBody(t, rec))

	input, params := deps.summarizer.LastCall()
	assert.Equal(t, "A long article about Go.", input)
	assert.Equal(t, mlserver.DefaultSummaryParams(), params)
}

func TestSimilarity(t *testing.T) {
	t.Parallel()

	deps := newTestDeps()

	rec := doRequest(t, deps.handler(), http.MethodPost, "/similarity", `{
		"reference": "How do I reverse a list?",
		"candidates": ["Reverse a slice in Go", "What is the capital of Peru"]
	}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, map[string]any{
		"reference": "How do I reverse a list?",
		"threshold": 0.8,
		"matches": []any{
			map[string]any{"sentence": "Reverse a slice in Go", "score": 0.9939},
		},
	}, decodeBody(t, rec))
}

func TestSimilarity_NoMatches(t *testing.T) {
	t.Parallel()

	deps := newTestDeps()

	rec := doRequest(t, deps.handler(), http.MethodPost, "/similarity", `{
		"reference": "How do I reverse a list?",
		"candidates": ["What is the capital of Peru"],
		"threshold": 0.95
	}`)

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, 0.95, body["threshold"])
	assert.Equal(t, []any{}, body["matches"])
}

func TestSimilarity_Collection(t *testing.T) {
	t.Parallel()

	deps := newTestDeps()
	deps.questions = &mlservertest.QuestionCollection{
		Candidates: []mlserver.Candidate{
			{ID: "65a1f0c2e4b0a1b2c3d4e5f6", Text: "How do I reverse a list?"},
			{ID: "65a1f0c2e4b0a1b2c3d4e5f7", Text: "Reverse a slice in Go"},
			{ID: "65a1f0c2e4b0a1b2c3d4e5f8", Text: "What is the capital of Peru"},
		},
	}

	rec := doRequest(t, deps.handler(), http.MethodPost, "/similarity", `{"reference": "How do I reverse a list?", "threshold": 0.4}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []any{
		map[string]any{"id": "65a1f0c2e4b0a1b2c3d4e5f7", "sentence": "Reverse a slice in Go", "score": 0.9939},
		map[string]any{"id": "65a1f0c2e4b0a1b2c3d4e5f8", "sentence": "What is the capital of Peru", "score": 0.5},
	}, decodeBody(t, rec)["matches"])
	assert.Equal(t, 100, deps.questions.LastLimit())
}

func TestSimilarity_NoCandidates(t *testing.T) {
	t.Parallel()

	deps := newTestDeps()

	rec := doRequest(t, deps.handler(), http.MethodPost, "/similarity", `{"reference": "How do I reverse a list?"}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decodeBody(t, rec)["error"], "missing candidates")
}

func TestHealthz(t *testing.T) {
	t.Parallel()

	deps := newTestDeps()

	rec := doRequest(t, deps.handler(), http.MethodGet, "/healthz", "")

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, map[string]any{
		"chat":          "fake-chat",
		"embedding":     "fake-embedder",
		"toxicity":      "fake-classifier",
		"summarization": "fake-summarizer",
	}, body["models"])
}

func TestHealthz_CollectionDown(t *testing.T) {
	t.Parallel()

	deps := newTestDeps()
	deps.questions = &mlservertest.QuestionCollection{Err: errors.New("server selection timeout")}

	rec := doRequest(t, deps.handler(), http.MethodGet, "/healthz", "")

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "degraded", body["status"])
	assert.Equal(t, "server selection timeout", body["collection"])
}

func TestNotFound(t *testing.T) {
	t.Parallel()

	rec := doRequest(t, newTestDeps().handler(), http.MethodPost, "/translate", `{}`)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "not found", decodeBody(t, rec)["error"])
}

func TestMethodNotAllowed(t *testing.T) {
	t.Parallel()

	rec := doRequest(t, newTestDeps().handler(), http.MethodGet, "/ask-bot", "")

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.Equal(t, "method not allowed", decodeBody(t, rec)["error"])
}

func TestMetricsEndpoint(t *testing.T) {
	t.Parallel()

	rec := doRequest(t, newTestDeps().handler(), http.MethodGet, "/metrics", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

type panickingChat struct{}

func (panickingChat) Name() string { return "panicking-chat" }

func (panickingChat) Complete(ctx context.Context, prompt string) (string, error) {
	panic("boom")
}

func TestRecoverer(t *testing.T) {
	t.Parallel()

	s := mlserver.New(panickingChat{}, nil, nil, nil)
	rec := doRequest(t, New(s).Handler(), http.MethodPost, "/ask-bot", `{"question": "hi"}`)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "internal error", decodeBody(t, rec)["error"])
}

func TestNotConfigured(t *testing.T) {
	t.Parallel()

	s := mlserver.New(nil, nil, nil, nil)
	rec := doRequest(t, New(s).Handler(), http.MethodPost, "/summarize", `{"text": "hello"}`)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, decodeBody(t, rec)["error"], "not configured")
}
