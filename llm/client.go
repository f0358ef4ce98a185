// Package llm is the bridge to the external model's messages API. Requests
// carry the rolling conversation plus a system-level instruction string;
// failures are classified so callers can pick the right fallback reply.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/pkg/errors"
)

// Failure classes. Callers map each to a fixed user-visible fallback string
// rather than surfacing the error itself.
var (
	// ErrTimeout marks a request that exceeded the configured deadline.
	ErrTimeout = errors.New("model request timed out")
	// ErrRequest marks transport failures, non-2xx statuses, and malformed
	// response bodies.
	ErrRequest = errors.New("model request failed")
)

const (
	defaultBaseURL   = "https://api.anthropic.com/v1/messages"
	defaultMaxTokens = 1024
	defaultTimeout   = 30 * time.Second
	apiVersion       = "2023-06-01"
)

// Config holds model client configuration.
type Config struct {
	APIKey    string
	BaseURL   string // defaults to the hosted messages endpoint
	Model     string
	MaxTokens int
	Timeout   time.Duration
}

// Client talks to the external model over HTTP.
type Client struct {
	config     Config
	httpClient *http.Client
}

// NewClient creates a model client. The API key is required; everything else
// has defaults.
func NewClient(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("model API key required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = defaultMaxTokens
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	return &Client{
		config:     cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}, nil
}

type completionRequest struct {
	Model     string    `json:"model"`
	Messages  []Message `json:"messages"`
	System    string    `json:"system,omitempty"`
	MaxTokens int       `json:"max_tokens"`
}

type completionResponse struct {
	Content []struct {
		Text string `json:"text"`
	} `json:"content"`
}

// Complete sends the conversation plus system instructions and returns the
// generated text. Errors wrap ErrTimeout or ErrRequest so callers can branch
// with errors.Is.
func (c *Client) Complete(ctx context.Context, messages []Message, system string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()

	payload, err := json.Marshal(completionRequest{
		Model:     c.config.Model,
		Messages:  messages,
		System:    system,
		MaxTokens: c.config.MaxTokens,
	})
	if err != nil {
		return "", errors.Wrap(ErrRequest, err.Error())
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.BaseURL, bytes.NewReader(payload))
	if err != nil {
		return "", errors.Wrap(ErrRequest, err.Error())
	}
	req.Header.Set("x-api-key", c.config.APIKey)
	req.Header.Set("anthropic-version", apiVersion)
	req.Header.Set("Content-Type", "application/json")

	slog.Debug("llm: sending completion request",
		"model", c.config.Model,
		"messages", len(messages),
	)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			slog.Error("llm: request timed out", "timeout", c.config.Timeout)
			return "", fmt.Errorf("%w after %s", ErrTimeout, c.config.Timeout)
		}
		slog.Error("llm: request failed", "error", err)
		return "", errors.Wrap(ErrRequest, err.Error())
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		slog.Error("llm: non-200 response", "status", resp.StatusCode)
		return "", fmt.Errorf("%w: status %d", ErrRequest, resp.StatusCode)
	}

	var body completionResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", errors.Wrap(ErrRequest, err.Error())
	}
	// A response with no content blocks is treated the same as a malformed one.
	if len(body.Content) == 0 {
		return "", fmt.Errorf("%w: empty content", ErrRequest)
	}

	return body.Content[0].Text, nil
}
