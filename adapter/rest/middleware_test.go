package rest

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofrs/uuid/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestRequestID(t *testing.T) {
	t.Parallel()

	h := newTestDeps().handler()

	rec := doRequest(t, h, http.MethodGet, "/healthz", "")
	id, err := uuid.FromString(rec.Header().Get(requestIDHeader))
	require.NoError(t, err)
	assert.Equal(t, byte(4), id.Version())

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(requestIDHeader, "caller-id-1")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, "caller-id-1", rec.Header().Get(requestIDHeader))
}

func TestRequestLogger(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zapcore.InfoLevel)
	h := newTestDeps().handler(WithLogger(zap.New(core)))

	req := httptest.NewRequest(http.MethodPost, "/summarize", strings.NewReader(`{}`))
	req.Header.Set(requestIDHeader, "req-42")
	h.ServeHTTP(httptest.NewRecorder(), req)

	entries := logs.FilterMessage("http_request").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "req-42", fields["request_id"])
	assert.Equal(t, "/summarize", fields["path"])
	assert.Equal(t, int64(http.StatusBadRequest), fields["status"])
}

func TestCORSPreflight(t *testing.T) {
	t.Parallel()

	h := newTestDeps().handler(WithAllowedOrigins([]string{"https://stackit.example"}))

	req := httptest.NewRequest(http.MethodOptions, "/similarity", nil)
	req.Header.Set("Origin", "https://stackit.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	req.Header.Set("Access-Control-Request-Headers", "Content-Type")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, "https://stackit.example", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Methods"), http.MethodPost)
}

func TestCORSDisallowedOrigin(t *testing.T) {
	t.Parallel()

	h := newTestDeps().handler(WithAllowedOrigins([]string{"https://stackit.example"}))

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("Origin", "https://evil.example")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestRateLimit(t *testing.T) {
	t.Parallel()

	deps := newTestDeps()
	deps.summarizer.Summary = "summary"
	h := deps.handler(WithRateLimit(0.001, 1))

	rec := doRequest(t, h, http.MethodPost, "/summarize", `{"text": "hello"}`)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(t, h, http.MethodPost, "/summarize", `{"text": "hello"}`)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "rate limit exceeded", decodeBody(t, rec)["error"])

	// Health checks are not limited.
	rec = doRequest(t, h, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}
