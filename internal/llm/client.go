// Package llm provides a chat-completions client for answer synthesis.
// It talks to an OpenAI-compatible endpoint via plain HTTP — no additional
// SDK dependencies are required. When the model, endpoint, or credential is
// missing the client reports itself unconfigured and callers fall back to a
// deterministic offline behaviour instead of failing.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Config holds the settings for constructing a Client.
type Config struct {
	// Model is the chat model name.
	Model string
	// APIURL is the chat-completions endpoint URL.
	APIURL string
	// APIKey is the Bearer token.
	APIKey string
}

// Client calls a chat-style language model. It is safe for concurrent use.
type Client struct {
	// cfg holds the model, endpoint, and credential.
	cfg Config
	// client is the shared HTTP client with a generous timeout — answer
	// synthesis over a large context block can take tens of seconds.
	client *http.Client
}

// New constructs a Client from the given config.
func New(cfg Config) *Client {
	return &Client{
		cfg:    cfg,
		client: &http.Client{Timeout: 40 * time.Second},
	}
}

// Configured reports whether the model, endpoint, and credential are all set.
// An unconfigured client must not be called — callers use the offline fallback.
func (c *Client) Configured() bool {
	return c.cfg.Model != "" && c.cfg.APIURL != "" && c.cfg.APIKey != ""
}

// chatMessage is one turn in the chat-completions request.
type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// chatRequest is the JSON body sent to the chat-completions endpoint.
type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

// chatResponse is the JSON body returned from the chat-completions endpoint.
type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Complete sends a system instruction plus user prompt and returns the first
// choice's message content. An unexpected response shape is an explicit
// protocol error — it is never coerced into an empty answer.
func (c *Client) Complete(ctx context.Context, system, user string) (string, error) {
	if !c.Configured() {
		return "", fmt.Errorf("llm: client is not configured")
	}

	payload, err := json.Marshal(chatRequest{
		Model: c.cfg.Model,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
	})
	if err != nil {
		return "", fmt.Errorf("llm: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.APIURL, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("llm: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("llm: request failed: %w", err)
	}
	defer resp.Body.Close()

	var result chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("llm: decode response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := fmt.Sprintf("HTTP %d", resp.StatusCode)
		if result.Error != nil {
			msg = result.Error.Message
		}
		return "", fmt.Errorf("llm: %s", msg)
	}

	if len(result.Choices) == 0 {
		return "", fmt.Errorf("llm: unexpected response shape: no choices")
	}

	return strings.TrimSpace(result.Choices[0].Message.Content), nil
}
