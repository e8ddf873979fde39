package ai

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Shubhojit-Official/Mailto/internal/logger"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, provider, baseURL string, timeout time.Duration) *Client {
	t.Helper()
	c, err := NewClient(Config{
		Provider: provider,
		APIKey:   "test-key",
		Model:    "test-model",
		BaseURL:  baseURL,
		Timeout:  timeout,
	}, logger.NewWithWriter(io.Discard))
	require.NoError(t, err)
	return c
}

func TestGeminiGenerate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/models/test-model:generateContent", r.URL.Path)
		assert.Equal(t, "test-key", r.URL.Query().Get("key"))

		var req geminiRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Len(t, req.Contents, 1)
		assert.Equal(t, "hello there", req.Contents[0].Parts[0].Text)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"  Hi "},{"text":"back  "}]}}]}`))
	}))
	defer srv.Close()

	c := newTestClient(t, ProviderGemini, srv.URL, time.Second)
	out, err := c.Generate(context.Background(), "hello there")
	require.NoError(t, err)
	assert.Equal(t, "Hi back", out)
}

func TestGeminiErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := newTestClient(t, ProviderGemini, srv.URL, time.Second)
	_, err := c.Generate(context.Background(), "hello")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
}

func TestGenerateEmptyAnswer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"   "}]}}]}`))
	}))
	defer srv.Close()

	c := newTestClient(t, ProviderGemini, srv.URL, time.Second)
	_, err := c.Generate(context.Background(), "hello")
	assert.ErrorIs(t, err, ErrEmptyResponse)
}

func TestGenerateTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	c := newTestClient(t, ProviderGemini, srv.URL, 50*time.Millisecond)
	_, err := c.Generate(context.Background(), "hello")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestOpenAIGenerate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "/chat/completions"))
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req struct {
			Model    string `json:"model"`
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "test-model", req.Model)
		require.Len(t, req.Messages, 1)
		assert.Equal(t, "user", req.Messages[0].Role)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"1","object":"chat.completion","choices":[{"index":0,"message":{"role":"assistant","content":"Subject: Hi\n\nBody"},"finish_reason":"stop"}]}`))
	}))
	defer srv.Close()

	c := newTestClient(t, ProviderOpenAI, srv.URL, time.Second)
	out, err := c.Generate(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, "Subject: Hi\n\nBody", out)
}

func TestNewClientValidation(t *testing.T) {
	log := logger.NewWithWriter(io.Discard)

	_, err := NewClient(Config{Provider: "deepseek", APIKey: "k"}, log)
	assert.Error(t, err)

	_, err = NewClient(Config{Provider: ProviderGemini}, log)
	assert.Error(t, err)

	c, err := NewClient(Config{APIKey: "k"}, log)
	require.NoError(t, err)
	assert.Equal(t, ProviderGemini, c.Provider())
	assert.Equal(t, "gemini-2.0-flash", c.Model())
}
