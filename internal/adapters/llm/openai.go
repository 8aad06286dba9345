package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/varekai/opsmind/internal/core/domain"
)

// Client talks to an OpenAI-compatible chat completions endpoint. Works with
// OpenAI, Azure OpenAI, Together AI, and local Ollama's /v1 surface.
type Client struct {
	logger      *slog.Logger
	http        *http.Client
	baseURL     string
	apiKey      string
	model       string
	temperature float64
}

var _ domain.CompletionProvider = (*Client)(nil)

// Options tunes the client. Zero values fall back to sane defaults.
type Options struct {
	Model       string
	Temperature float64
	Timeout     time.Duration
}

// NewClient creates a completion client for baseURL. The API key is optional
// for local endpoints.
func NewClient(logger *slog.Logger, baseURL, apiKey string, opts Options) *Client {
	if opts.Model == "" {
		opts.Model = "gpt-4o-mini"
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 120 * time.Second
	}
	return &Client{
		logger:      logger,
		http:        &http.Client{Timeout: opts.Timeout},
		baseURL:     baseURL,
		apiKey:      apiKey,
		model:       opts.Model,
		temperature: opts.Temperature,
	}
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Complete sends the prompt as a single user message and returns the first
// choice's content.
func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	payload, err := json.Marshal(chatRequest{
		Model:       c.model,
		Messages:    []chatMessage{{Role: "user", Content: prompt}},
		Temperature: c.temperature,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	started := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("completion request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("completion endpoint returned status %d: %s", resp.StatusCode, string(body))
	}

	var parsed chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("completion response has no choices")
	}

	c.logger.Debug("completion returned",
		"model", c.model,
		"prompt_len", len(prompt),
		"duration", time.Since(started))

	return parsed.Choices[0].Message.Content, nil
}
