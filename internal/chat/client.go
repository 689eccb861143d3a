package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// Client is an HTTP client for an OpenAI-compatible /chat/completions API.
type Client struct {
	logger     *slog.Logger
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
}

// NewClient creates a completion client for the given endpoint and model.
func NewClient(log *slog.Logger, baseURL, apiKey, model string, timeout time.Duration) *Client {
	if log == nil {
		log = slog.Default()
	}
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	baseURL = strings.TrimRight(baseURL, "/")
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		logger:     log.With(slog.String("service", "chat")),
		baseURL:    baseURL,
		apiKey:     apiKey,
		model:      model,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type completionRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature *float32  `json:"temperature,omitempty"`
	MaxTokens   *int      `json:"max_tokens,omitempty"`
}

type completionChoice struct {
	Message      Message `json:"message"`
	FinishReason string  `json:"finish_reason"`
}

type completionResponse struct {
	Model   string             `json:"model"`
	Choices []completionChoice `json:"choices"`
	Usage   Usage              `json:"usage"`
}

// Complete sends the message list and returns the first generated choice.
// A response without choices yields an empty Result and no error; callers
// decide how to degrade.
func (c *Client) Complete(ctx context.Context, req Request) (Result, error) {
	if len(req.Messages) == 0 {
		return Result{}, fmt.Errorf("messages is required")
	}

	body, err := json.Marshal(completionRequest{
		Model:       c.model,
		Messages:    req.Messages,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	})
	if err != nil {
		return Result{}, fmt.Errorf("marshal completion request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return Result{}, fmt.Errorf("build completion request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return Result{}, fmt.Errorf("completion call: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return Result{}, fmt.Errorf("read completion response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Result{}, fmt.Errorf("completion status %d: %s", resp.StatusCode, truncate(string(raw), 200))
	}

	var parsed completionResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return Result{}, fmt.Errorf("decode completion response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		c.logger.Warn("completion returned no choices", slog.String("model", c.model))
		return Result{Model: parsed.Model, Usage: parsed.Usage}, nil
	}

	choice := parsed.Choices[0]
	return Result{
		Message:      choice.Message,
		Model:        parsed.Model,
		FinishReason: choice.FinishReason,
		Usage:        parsed.Usage,
	}, nil
}

func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[:limit] + "..."
}
