package classify

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/runnerr0/chronicle-index/internal/config"
)

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func reply(w http.ResponseWriter, content string) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"choices": []map[string]any{{"message": map[string]string{"role": "assistant", "content": content}}},
	})
}

func newTestClassifier(url string) *LLMClassifier {
	cfg := config.ClassifierConfig{Endpoint: url, Model: "llama3.2", APIKey: "secret", TimeoutSeconds: 2, MaxRetries: 2}
	return New(cfg, quietLogger()).WithRetry(RetryConfig{MaxRetries: 2, BaseDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond})
}

func TestClassify(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))

		var req chatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "llama3.2", req.Model)
		require.Len(t, req.Messages, 2)
		assert.Equal(t, "system", req.Messages[0].Role)
		assert.Contains(t, req.Messages[1].Content, "Title: Effective Go")
		assert.Contains(t, req.Messages[1].Content, "Go is a new language")

		reply(w, "  \"Programming\".\nBecause the page is about Go.")
	}))
	defer server.Close()

	topic, err := newTestClassifier(server.URL).Classify(context.Background(), "Effective Go", "Go is a new language")
	require.NoError(t, err)
	assert.Equal(t, "Programming", topic)
}

func TestClassify_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			http.Error(w, "model loading", http.StatusServiceUnavailable)
			return
		}
		reply(w, "News")
	}))
	defer server.Close()

	topic, err := newTestClassifier(server.URL).Classify(context.Background(), "t", "c")
	require.NoError(t, err)
	assert.Equal(t, "News", topic)
	assert.Equal(t, int32(3), calls.Load())
}

func TestClassify_GivesUpAfterMaxRetries(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "overloaded", http.StatusTooManyRequests)
	}))
	defer server.Close()

	_, err := newTestClassifier(server.URL).Classify(context.Background(), "t", "c")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "HTTP 429")
	assert.Equal(t, int32(3), calls.Load())
}

func TestClassify_ClientErrorsAreNotRetried(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "bad api key", http.StatusUnauthorized)
	}))
	defer server.Close()

	_, err := newTestClassifier(server.URL).Classify(context.Background(), "t", "c")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad api key")
	assert.Equal(t, int32(1), calls.Load())
}

func TestClassify_MalformedRepliesAreNotRetried(t *testing.T) {
	for name, body := range map[string]string{
		"bad json":   `{"choices": [`,
		"no choices": `{"choices": []}`,
	} {
		t.Run(name, func(t *testing.T) {
			var calls atomic.Int32
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				calls.Add(1)
				w.Header().Set("Content-Type", "application/json")
				io.WriteString(w, body)
			}))
			defer server.Close()

			_, err := newTestClassifier(server.URL).Classify(context.Background(), "t", "c")
			require.Error(t, err)
			assert.Equal(t, int32(1), calls.Load())
		})
	}
}

func TestClassify_RetriesTransportErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	_, err := newTestClassifier(url).Classify(context.Background(), "t", "c")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "after 2 retries")
}

func TestRetryable(t *testing.T) {
	assert.True(t, retryable(&statusError{code: http.StatusBadGateway}))
	assert.True(t, retryable(&statusError{code: http.StatusTooManyRequests}))
	assert.False(t, retryable(&statusError{code: http.StatusBadRequest}))
	assert.True(t, retryable(&transportError{err: io.ErrUnexpectedEOF}))
	assert.False(t, retryable(&transportError{err: context.DeadlineExceeded}))
	assert.False(t, retryable(io.ErrUnexpectedEOF))
}

func TestClassify_EmptyLabelIsError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reply(w, "  \n ")
	}))
	defer server.Close()

	_, err := newTestClassifier(server.URL).Classify(context.Background(), "t", "c")
	assert.Error(t, err)
}

func TestClassify_CancelledContext(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reply(w, "News")
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := newTestClassifier(server.URL).Classify(ctx, "t", "c")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNormalizeLabel(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"Programming", "Programming"},
		{"  Personal   Finance  ", "Personal Finance"},
		{"\n\n- \"Travel\".\nextra", "Travel"},
		{"Topic: Cooking", "Cooking"},
		{"**Science**", "Science"},
		{"“Health”", "Health"},
		{"", ""},
		{strings.Repeat("x", 60), strings.Repeat("x", MaxLabelLength)},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeLabel(tt.raw))
		})
	}
}
