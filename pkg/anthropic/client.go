package anthropic

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/goldhabermd/clinic-api/pkg/circuitbreaker"
	apperrors "github.com/goldhabermd/clinic-api/pkg/errors"
	"github.com/goldhabermd/clinic-api/pkg/httpclient"
	"github.com/goldhabermd/clinic-api/pkg/logger"
	"github.com/goldhabermd/clinic-api/pkg/metrics"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

const (
	DefaultBaseURL   = "https://api.anthropic.com"
	DefaultModel     = "claude-3-5-sonnet-20241022"
	DefaultMaxTokens = 1024
	APIVersion       = "2023-06-01"

	messagesPath = "/v1/messages"
	// errorBodyLimit bounds how much of a failed response ends up in logs
	errorBodyLimit = 512
)

// ErrNotConfigured is returned when no API key is set
var ErrNotConfigured = errors.New("anthropic: api key not configured")

// Message is one turn of the conversation
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type messagesRequest struct {
	Model     string    `json:"model"`
	MaxTokens int       `json:"max_tokens"`
	System    string    `json:"system,omitempty"`
	Messages  []Message `json:"messages"`
}

type contentBlock struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

type messagesResponse struct {
	Content    []contentBlock `json:"content"`
	StopReason string         `json:"stop_reason"`
	Usage      struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

// Config configures the Messages API client
type Config struct {
	APIKey    string
	Model     string
	BaseURL   string
	MaxTokens int
}

// Client calls the Anthropic Messages API
type Client struct {
	apiKey     string
	model      string
	baseURL    string
	maxTokens  int
	httpClient httpclient.Client
	breaker    *gobreaker.CircuitBreaker
}

// NewClient creates a Messages API client. The HTTP client's timeout bounds
// every completion call.
func NewClient(cfg Config, httpClient httpclient.Client) *Client {
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = DefaultMaxTokens
	}

	return &Client{
		apiKey:     cfg.APIKey,
		model:      cfg.Model,
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		maxTokens:  cfg.MaxTokens,
		httpClient: httpClient,
		breaker:    circuitbreaker.NewCircuitBreaker(circuitbreaker.DefaultConfig("anthropic")),
	}
}

// Model returns the configured model name
func (c *Client) Model() string {
	return c.model
}

// Complete sends the system prompt and transcript and returns the text of the
// first text content block.
func (c *Client) Complete(ctx context.Context, system string, messages []Message) (string, error) {
	if c.apiKey == "" {
		return "", ErrNotConfigured
	}

	start := time.Now()
	text, err := circuitbreaker.Execute(c.breaker, func() (string, error) {
		return c.complete(ctx, system, messages)
	})
	duration := metrics.MeasureDuration(start)

	status := "success"
	if err != nil {
		status = "error"
	}
	metrics.LLMRequestDuration.WithLabelValues(c.model, status).Observe(duration)

	if err != nil {
		logger.LogAPICall(ctx, "anthropic", "messages", status, duration,
			zap.String("model", c.model),
			zap.Int("messages", len(messages)),
			zap.Error(err))
		return "", err
	}

	logger.LogAPICall(ctx, "anthropic", "messages", status, duration,
		zap.String("model", c.model),
		zap.Int("messages", len(messages)))
	return text, nil
}

func (c *Client) complete(ctx context.Context, system string, messages []Message) (string, error) {
	body, err := json.Marshal(messagesRequest{
		Model:     c.model,
		MaxTokens: c.maxTokens,
		System:    system,
		Messages:  messages,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+messagesPath, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("anthropic-version", APIVersion)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("anthropic request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet := string(respBody)
		if len(snippet) > errorBodyLimit {
			snippet = snippet[:errorBodyLimit]
		}
		return "", apperrors.UpstreamError("anthropic", fmt.Sprintf("status %d: %s", resp.StatusCode, snippet))
	}

	var parsed messagesResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", apperrors.UpstreamError("anthropic", "malformed response: "+err.Error())
	}

	for _, block := range parsed.Content {
		if block.Type == "text" {
			return block.Text, nil
		}
	}
	return "", apperrors.UpstreamError("anthropic", "response has no text content")
}
