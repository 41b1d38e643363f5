package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/futig/context-rag/internal/config"
	"github.com/futig/context-rag/internal/entity"
	pkgRetry "github.com/futig/context-rag/internal/pkg/retry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testConfig(url string) config.LLMConfig {
	return config.LLMConfig{
		HTTPClientConfig: config.HTTPClientConfig{
			RequestTimeout: 5 * time.Second,
			Token:          "test-token",
			Url:            url,
		},
		Model: "gpt-4o",
		Retry: pkgRetry.RetryConfig{
			Attempts: 3,
			Delay:    time.Millisecond,
			MaxDelay: 2 * time.Millisecond,
			Timeout:  5 * time.Second,
		},
	}
}

const completionBody = `{
	"id": "chatcmpl-1",
	"object": "chat.completion",
	"model": "gpt-4o",
	"choices": [{"index": 0, "message": {"role": "assistant", "content": "Acme Corp builds it."}, "finish_reason": "stop"}],
	"usage": {"prompt_tokens": 10, "completion_tokens": 5, "total_tokens": 15}
}`

func TestConnector_Complete(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(completionBody))
	}))
	defer srv.Close()

	c := NewConnector(testConfig(srv.URL), zap.NewNop())

	out, err := c.Complete(context.Background(), entity.GenerationRequest{
		SystemPrompt: "system",
		UserPrompt:   "user",
		MaxTokens:    150,
		Temperature:  0.1,
		JSON:         true,
	})
	require.NoError(t, err)
	assert.Equal(t, "Acme Corp builds it.", out)

	assert.Equal(t, "gpt-4o", got["model"])
	assert.EqualValues(t, 150, got["max_tokens"])
	messages, ok := got["messages"].([]any)
	require.True(t, ok)
	assert.Len(t, messages, 2)
	format, ok := got["response_format"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "json_object", format["type"])
}

func TestConnector_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"error": {"message": "overloaded", "type": "server_error"}}`))
			return
		}
		_, _ = w.Write([]byte(completionBody))
	}))
	defer srv.Close()

	c := NewConnector(testConfig(srv.URL), zap.NewNop())

	out, err := c.Complete(context.Background(), entity.GenerationRequest{UserPrompt: "q"})
	require.NoError(t, err)
	assert.Equal(t, "Acme Corp builds it.", out)
	assert.Equal(t, int32(2), calls.Load())
}

func TestConnector_DoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error": {"message": "bad key", "type": "invalid_request_error"}}`))
	}))
	defer srv.Close()

	c := NewConnector(testConfig(srv.URL), zap.NewNop())

	_, err := c.Complete(context.Background(), entity.GenerationRequest{UserPrompt: "q"})
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestMockConnector_Complete(t *testing.T) {
	m := NewMockConnector(zap.NewNop())

	out, err := m.Complete(context.Background(), entity.GenerationRequest{JSON: true})
	require.NoError(t, err)

	var parsed struct {
		Suggestions []string `json:"suggestions"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &parsed))
	assert.Len(t, parsed.Suggestions, 3)
}
