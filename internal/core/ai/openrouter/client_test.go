package openrouter

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"recipe-suggester/internal/core/ai/provider"
	"recipe-suggester/internal/infrastructure/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return NewClient(config.OpenRouterConfig{
		Enabled:   true,
		BaseURL:   srv.URL,
		APIKey:    "sk-test",
		Model:     "test/model",
		MaxTokens: 300,
		Timeout:   5 * time.Second,
	}, zaptest.NewLogger(t))
}

func userRequest(jsonMode bool) *provider.Request {
	return &provider.Request{
		Messages: []provider.Message{{Role: "user", Content: "describe phở"}},
		JSONMode: jsonMode,
	}
}

func TestGenerate_Success(t *testing.T) {
	var got chatRequest
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"1","model":"test/model","choices":[{"message":{"role":"assistant","content":" {\"description\":\"ok\"} "},"finish_reason":"stop"}],"usage":{"total_tokens":42}}`))
	})

	resp, err := client.Generate(context.Background(), userRequest(true))
	require.NoError(t, err)

	assert.Equal(t, `{"description":"ok"}`, resp.Content)
	assert.Equal(t, 42, resp.Usage.TotalTokens)
	assert.Equal(t, "test/model", got.Model)
	assert.Equal(t, 300, got.MaxTokens)
	require.NotNil(t, got.ResponseFormat)
	assert.Equal(t, "json_object", got.ResponseFormat.Type)
}

func TestGenerate_ContentFilter(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":""},"finish_reason":"content_filter","native_finish_reason":"SAFETY"}]}`))
	})

	_, err := client.Generate(context.Background(), userRequest(false))
	sb, ok := provider.AsSafetyBlock(err)
	require.True(t, ok)
	assert.Equal(t, "SAFETY", sb.Reason)
}

func TestGenerate_ModerationForbidden(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"error":{"message":"flagged","code":403,"metadata":{"reasons":["violence"]}}}`))
	})

	_, err := client.Generate(context.Background(), userRequest(false))
	sb, ok := provider.AsSafetyBlock(err)
	require.True(t, ok)
	assert.Equal(t, "violence", sb.Reason)
}

func TestGenerate_ServerError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":{"message":"upstream down"}}`))
	})

	_, err := client.Generate(context.Background(), userRequest(false))
	require.Error(t, err)
	_, ok := provider.AsSafetyBlock(err)
	assert.False(t, ok)
	assert.Contains(t, err.Error(), "upstream down")
}

func TestGenerate_NotConfigured(t *testing.T) {
	client := NewClient(config.OpenRouterConfig{Enabled: true}, nil)

	_, err := client.Generate(context.Background(), userRequest(false))
	assert.ErrorIs(t, err, provider.ErrNotConfigured)
}
