package profile

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Shubhojit-Official/Mailto/internal/logger"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const timelineJSON = `{"result":{"timeline":{"instructions":[
  {"type":"TimelineClearCache"},
  {"type":"TimelineAddEntries","entries":[
    {"content":{"itemContent":{"itemType":"TimelineTweet","tweet_results":{"result":{"legacy":{"full_text":"Went hiking again"}}}}}},
    {"content":{"itemContent":{"itemType":"TimelineTimelineCursor"}}},
    {"content":{"itemContent":{"itemType":"TimelineTweet","tweet_results":{"result":{"legacy":{"full_text":"  "}}}}}},
    {"content":{"itemContent":{"itemType":"TimelineTweet","tweet_results":{"result":{"legacy":{"full_text":"Shipping a new trail map"}}}}}},
    {"content":{"itemContent":{"itemType":"TimelineTweet","tweet_results":{"result":{"legacy":{"full_text":"Third post"}}}}}}
  ]}
]}}}`

func newProviderServer(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "secret", r.Header.Get("X-RapidAPI-Key"))
		assert.Equal(t, DefaultHost, r.Header.Get("X-RapidAPI-Host"))

		switch r.URL.Path {
		case "/user":
			if r.URL.Query().Get("username") != "alice" {
				_, _ = w.Write([]byte(`{"result":{"data":{"user":{}}}}`))
				return
			}
			_, _ = w.Write([]byte(`{"result":{"data":{"user":{"result":{"rest_id":"42"}}}}}`))
		case "/user-tweets":
			assert.Equal(t, "42", r.URL.Query().Get("user"))
			_, _ = w.Write([]byte(timelineJSON))
		default:
			http.NotFound(w, r)
		}
	}))
}

func newClient(baseURL, key string, timeout time.Duration) *TwitterClient {
	return NewTwitterClient(Config{APIKey: key, BaseURL: baseURL, Timeout: timeout}, logger.NewWithWriter(io.Discard))
}

func TestFetchRecentPosts(t *testing.T) {
	srv := newProviderServer(t)
	defer srv.Close()

	posts, err := newClient(srv.URL, "secret", time.Second).FetchRecentPosts(context.Background(), "alice", 12)
	require.NoError(t, err)
	assert.Equal(t, []string{"Went hiking again", "Shipping a new trail map", "Third post"}, posts)
}

func TestFetchRecentPostsHonoursCount(t *testing.T) {
	srv := newProviderServer(t)
	defer srv.Close()

	posts, err := newClient(srv.URL, "secret", time.Second).FetchRecentPosts(context.Background(), "alice", 2)
	require.NoError(t, err)
	assert.Len(t, posts, 2)
}

func TestFetchRecentPostsUnknownUser(t *testing.T) {
	srv := newProviderServer(t)
	defer srv.Close()

	_, err := newClient(srv.URL, "secret", time.Second).FetchRecentPosts(context.Background(), "nobody", 12)
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestFetchRecentPostsWithoutKey(t *testing.T) {
	_, err := newClient("http://127.0.0.1:1", "", time.Second).FetchRecentPosts(context.Background(), "alice", 12)
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestFetchRecentPostsTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	_, err := newClient(srv.URL, "secret", 50*time.Millisecond).FetchRecentPosts(context.Background(), "alice", 12)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestFetchRecentPostsUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := newClient(srv.URL, "secret", time.Second).FetchRecentPosts(context.Background(), "alice", 12)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
}

func TestUnknownHandlesDoNotOpenBreaker(t *testing.T) {
	srv := newProviderServer(t)
	defer srv.Close()
	c := newClient(srv.URL, "secret", time.Second)

	for i := 0; i < 10; i++ {
		_, err := c.FetchRecentPosts(context.Background(), "nobody", 12)
		require.ErrorIs(t, err, ErrUserNotFound)
	}

	posts, err := c.FetchRecentPosts(context.Background(), "alice", 12)
	require.NoError(t, err)
	assert.Len(t, posts, 3)
}

func TestProviderOutageOpensBreaker(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusBadGateway)
	}))
	defer srv.Close()
	c := newClient(srv.URL, "secret", time.Second)

	for i := 0; i < 6; i++ {
		_, err := c.FetchRecentPosts(context.Background(), "alice", 12)
		var se *StatusError
		require.ErrorAs(t, err, &se)
		assert.Equal(t, http.StatusBadGateway, se.Status)
	}

	_, err := c.FetchRecentPosts(context.Background(), "alice", 12)
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
}
