// Package profile fetches a recipient's recent public posts from the
// twitter241 RapidAPI provider.
package profile

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/Shubhojit-Official/Mailto/internal/breaker"
	"github.com/Shubhojit-Official/Mailto/internal/logger"

	"github.com/goccy/go-json"
	"github.com/sony/gobreaker"
)

const DefaultHost = "twitter241.p.rapidapi.com"

var (
	ErrNotConfigured = errors.New("profile provider is not configured")
	ErrUserNotFound  = errors.New("profile not found")
)

// StatusError is a non-2xx answer from the provider.
type StatusError struct {
	Path   string
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("profile API %s failed with status %d: %s", e.Path, e.Status, e.Body)
}

// isCallerFault reports lookups that failed because of the handle asked for,
// not because the provider is unhealthy.
func isCallerFault(err error) bool {
	if errors.Is(err, ErrUserNotFound) {
		return true
	}
	var se *StatusError
	return errors.As(err, &se) &&
		(se.Status == http.StatusBadRequest || se.Status == http.StatusUnprocessableEntity)
}

type Config struct {
	APIKey string
	Host   string
	// BaseURL overrides https://<Host>.
	BaseURL string
	Timeout time.Duration
}

type TwitterClient struct {
	apiKey     string
	host       string
	baseURL    string
	timeout    time.Duration
	httpClient *http.Client
	cb         *gobreaker.CircuitBreaker
	logger     *logger.Logger
}

func NewTwitterClient(cfg Config, logger *logger.Logger) *TwitterClient {
	host := cfg.Host
	if host == "" {
		host = DefaultHost
	}
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://" + host
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &TwitterClient{
		apiKey:     cfg.APIKey,
		host:       host,
		baseURL:    baseURL,
		timeout:    timeout,
		httpClient: &http.Client{},
		cb:         breaker.New("profile-twitter", logger, isCallerFault),
		logger:     logger,
	}
}

// FetchRecentPosts resolves handle to a user id and returns the text of up
// to count of its latest posts. Both lookups share one timeout.
func (c *TwitterClient) FetchRecentPosts(ctx context.Context, handle string, count int) ([]string, error) {
	if c.apiKey == "" {
		return nil, ErrNotConfigured
	}
	if count <= 0 {
		count = 12
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	out, err := c.cb.Execute(func() (interface{}, error) {
		userID, err := c.lookupUserID(ctx, handle)
		if err != nil {
			return nil, err
		}
		return c.userPosts(ctx, userID, count)
	})
	if err != nil {
		return nil, fmt.Errorf("fetch posts of %s: %w", handle, err)
	}
	posts := out.([]string)
	c.logger.Debugf("fetched %d posts for %s", len(posts), handle)
	return posts, nil
}

type userResponse struct {
	Result struct {
		Data struct {
			User struct {
				Result struct {
					RestID string `json:"rest_id"`
				} `json:"result"`
			} `json:"user"`
		} `json:"data"`
	} `json:"result"`
}

func (c *TwitterClient) lookupUserID(ctx context.Context, handle string) (string, error) {
	var resp userResponse
	if err := c.get(ctx, "/user", url.Values{"username": {handle}}, &resp); err != nil {
		return "", err
	}
	id := resp.Result.Data.User.Result.RestID
	if id == "" {
		return "", ErrUserNotFound
	}
	return id, nil
}

type timelineEntry struct {
	Content struct {
		ItemContent struct {
			ItemType     string `json:"itemType"`
			TweetResults struct {
				Result struct {
					Legacy struct {
						FullText string `json:"full_text"`
					} `json:"legacy"`
				} `json:"result"`
			} `json:"tweet_results"`
		} `json:"itemContent"`
	} `json:"content"`
}

type timelineResponse struct {
	Result struct {
		Timeline struct {
			Instructions []struct {
				Type    string          `json:"type"`
				Entries []timelineEntry `json:"entries"`
			} `json:"instructions"`
		} `json:"timeline"`
	} `json:"result"`
}

func (c *TwitterClient) userPosts(ctx context.Context, userID string, count int) ([]string, error) {
	var resp timelineResponse
	q := url.Values{"user": {userID}, "count": {strconv.Itoa(count)}}
	if err := c.get(ctx, "/user-tweets", q, &resp); err != nil {
		return nil, err
	}
	return extractPosts(&resp, count), nil
}

// extractPosts keeps tweet entries of the first TimelineAddEntries
// instruction, in timeline order.
func extractPosts(resp *timelineResponse, count int) []string {
	posts := []string{}
	for _, in := range resp.Result.Timeline.Instructions {
		if in.Type != "TimelineAddEntries" {
			continue
		}
		for _, e := range in.Entries {
			item := e.Content.ItemContent
			if item.ItemType != "TimelineTweet" {
				continue
			}
			text := strings.TrimSpace(item.TweetResults.Result.Legacy.FullText)
			if text == "" {
				continue
			}
			posts = append(posts, text)
			if len(posts) == count {
				return posts
			}
		}
		break
	}
	return posts
}

func (c *TwitterClient) get(ctx context.Context, path string, query url.Values, dst interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+query.Encode(), nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("X-RapidAPI-Key", c.apiKey)
	req.Header.Set("X-RapidAPI-Host", c.host)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return ErrUserNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return &StatusError{Path: path, Status: resp.StatusCode, Body: string(body)}
	}
	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", path, err)
	}
	return nil
}
