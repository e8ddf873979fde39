package ai

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Shubhojit-Official/Mailto/internal/breaker"
	"github.com/Shubhojit-Official/Mailto/internal/logger"

	"github.com/goccy/go-json"
	"github.com/sashabaranov/go-openai"
	"github.com/sony/gobreaker"
)

const (
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
)

var ErrEmptyResponse = errors.New("model returned no text")

type Config struct {
	Provider string
	APIKey   string
	Model    string
	// BaseURL overrides the provider endpoint.
	BaseURL string
	Timeout time.Duration
}

// Client generates text through the configured provider. Every call is
// bounded by Config.Timeout and guarded by a circuit breaker.
type Client struct {
	provider   string
	apiKey     string
	model      string
	baseURL    string
	timeout    time.Duration
	httpClient *http.Client
	openai     *openai.Client
	cb         *gobreaker.CircuitBreaker
	logger     *logger.Logger
}

func NewClient(cfg Config, logger *logger.Logger) (*Client, error) {
	provider := strings.ToLower(strings.TrimSpace(cfg.Provider))
	if provider == "" {
		provider = ProviderGemini
	}
	if provider != ProviderGemini && provider != ProviderOpenAI {
		return nil, fmt.Errorf("unsupported AI provider %q", cfg.Provider)
	}
	if cfg.APIKey == "" {
		return nil, errors.New("AI API key is required")
	}

	c := &Client{
		provider:   provider,
		apiKey:     cfg.APIKey,
		model:      cfg.Model,
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		timeout:    cfg.Timeout,
		httpClient: &http.Client{},
		cb:         breaker.New("ai-"+provider, logger, nil),
		logger:     logger,
	}
	if c.model == "" {
		c.model = defaultModel(provider)
	}
	if c.baseURL == "" {
		c.baseURL = defaultBaseURL(provider)
	}
	if c.timeout <= 0 {
		c.timeout = 30 * time.Second
	}

	if provider == ProviderOpenAI {
		oc := openai.DefaultConfig(cfg.APIKey)
		oc.BaseURL = c.baseURL
		oc.HTTPClient = c.httpClient
		c.openai = openai.NewClientWithConfig(oc)
	}
	return c, nil
}

func defaultBaseURL(provider string) string {
	if provider == ProviderGemini {
		return "https://generativelanguage.googleapis.com/v1beta"
	}
	return "https://api.openai.com/v1"
}

func defaultModel(provider string) string {
	if provider == ProviderGemini {
		return "gemini-2.0-flash"
	}
	return "gpt-4o-mini"
}

func (c *Client) Provider() string { return c.provider }

func (c *Client) Model() string { return c.model }

// Generate sends a single user prompt and returns the trimmed answer.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	out, err := c.cb.Execute(func() (interface{}, error) {
		if c.provider == ProviderGemini {
			return c.generateWithGemini(ctx, prompt)
		}
		return c.generateWithOpenAI(ctx, prompt)
	})
	if err != nil {
		c.logger.Error("AI request to", c.provider, "failed:", err)
		return "", fmt.Errorf("%s generate: %w", c.provider, err)
	}

	text := strings.TrimSpace(out.(string))
	if text == "" {
		return "", ErrEmptyResponse
	}
	c.logger.Debugf("AI %s/%s answered in %s", c.provider, c.model, time.Since(start))
	return text, nil
}

func (c *Client) generateWithOpenAI(ctx context.Context, prompt string) (string, error) {
	resp, err := c.openai.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("no choices returned from AI")
	}
	return resp.Choices[0].Message.Content, nil
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiRequest struct {
	Contents []geminiContent `json:"contents"`
}

type geminiCandidate struct {
	Content      geminiContent `json:"content"`
	FinishReason string        `json:"finishReason"`
}

type geminiResponse struct {
	Candidates []geminiCandidate `json:"candidates"`
}

func (c *Client) generateWithGemini(ctx context.Context, prompt string) (string, error) {
	jsonData, err := json.Marshal(geminiRequest{
		Contents: []geminiContent{
			{Role: "user", Parts: []geminiPart{{Text: prompt}}},
		},
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/models/%s:generateContent?key=%s", c.baseURL, url.PathEscape(c.model), url.QueryEscape(c.apiKey))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(jsonData))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("gemini API request failed with status %d: %s", resp.StatusCode, string(body))
	}

	var geminiResp geminiResponse
	if err := json.NewDecoder(resp.Body).Decode(&geminiResp); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}
	if len(geminiResp.Candidates) == 0 {
		return "", errors.New("no candidates returned from Gemini")
	}

	var sb strings.Builder
	for _, part := range geminiResp.Candidates[0].Content.Parts {
		sb.WriteString(part.Text)
	}
	return sb.String(), nil
}
