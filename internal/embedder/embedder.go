// Package embedder provides the rag.Embedder implementation for converting
// decision text into dense vector embeddings. The remote path talks to an
// OpenAI-compatible embeddings REST API via plain HTTP — no additional SDK
// dependencies are required. When no endpoint is configured a deterministic
// offline fallback keeps ingestion and search usable without credentials.
package embedder

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math/rand"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// maxAttempts bounds retries against the remote embeddings endpoint.
const maxAttempts = 3

// Config holds the settings for constructing a Client.
type Config struct {
	// Model is the embedding model name (e.g. "text-embedding-3-large").
	Model string
	// Dimension is the embedding vector length. Must be positive.
	Dimension int
	// APIURL is the embeddings endpoint URL. Empty disables remote calls.
	APIURL string
	// APIKey is the Bearer token. Empty disables remote calls.
	APIKey string
}

// Client implements rag.Embedder. It is safe for concurrent use.
type Client struct {
	cfg Config
	// client is the shared HTTP client with a sensible timeout.
	client *http.Client
}

// New constructs a Client from the given config.
func New(cfg Config) (*Client, error) {
	if cfg.Dimension <= 0 {
		return nil, fmt.Errorf("embedder: dimension must be positive, got %d", cfg.Dimension)
	}
	return &Client{
		cfg:    cfg,
		client: &http.Client{Timeout: 30 * time.Second},
	}, nil
}

// Remote reports whether the client will call the embeddings endpoint.
// When false every embedding comes from the deterministic local fallback.
func (c *Client) Remote() bool {
	return c.cfg.APIURL != "" && c.cfg.APIKey != ""
}

// EmbedDocument embeds chunk text for storage.
func (c *Client) EmbedDocument(ctx context.Context, text string) ([]float32, error) {
	return c.embed(ctx, text, "document")
}

// EmbedQuery embeds a user question for retrieval.
func (c *Client) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	return c.embed(ctx, text, "query")
}

func (c *Client) embed(ctx context.Context, text, usage string) ([]float32, error) {
	// Whitespace-only input never reaches the API: it embeds to the zero
	// vector so callers can ingest empty sections without special-casing.
	if strings.TrimSpace(text) == "" {
		return make([]float32, c.cfg.Dimension), nil
	}

	if !c.Remote() {
		return c.pseudoVector(text), nil
	}

	var vec []float32
	operation := func() error {
		var err error
		vec, err = c.callAPI(ctx, text, usage)
		return err
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(&backoff.ExponentialBackOff{
		InitialInterval:     1 * time.Second,
		MaxInterval:         8 * time.Second,
		Multiplier:          2,
		RandomizationFactor: 0.1,
		Clock:               backoff.SystemClock,
		Stop:                backoff.Stop,
	}, maxAttempts-1), ctx)

	if err := backoff.Retry(operation, policy); err != nil {
		return nil, fmt.Errorf("embedder: embedding failed after %d attempts: %w", maxAttempts, err)
	}
	return vec, nil
}

// embedRequest is the JSON body sent to the embeddings endpoint.
type embedRequest struct {
	Model string `json:"model"`
	Input string `json:"input"`
	Usage string `json:"usage,omitempty"`
}

// embedResponse is the JSON body returned from the embeddings endpoint.
type embedResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func (c *Client) callAPI(ctx context.Context, text, usage string) ([]float32, error) {
	payload, err := json.Marshal(embedRequest{
		Model: c.cfg.Model,
		Input: text,
		Usage: usage,
	})
	if err != nil {
		return nil, backoff.Permanent(fmt.Errorf("embedder: marshal request: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.APIURL, bytes.NewReader(payload))
	if err != nil {
		return nil, backoff.Permanent(fmt.Errorf("embedder: create request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("embedder: request failed: %w", err)
	}
	defer resp.Body.Close()

	var result embedResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("embedder: decode response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := fmt.Sprintf("HTTP %d", resp.StatusCode)
		if result.Error != nil {
			msg = result.Error.Message
		}
		err := fmt.Errorf("embedder: %s", msg)
		// Client errors other than rate limiting will not succeed on retry.
		if resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
			return nil, backoff.Permanent(err)
		}
		return nil, err
	}

	// A well-formed response carries exactly the vector we asked for at
	// data[0].embedding. Anything else is a protocol error, never coerced
	// into a zero vector.
	if len(result.Data) == 0 || len(result.Data[0].Embedding) == 0 {
		return nil, backoff.Permanent(fmt.Errorf("embedder: unexpected response shape: missing embedding data"))
	}
	vec := result.Data[0].Embedding
	if len(vec) != c.cfg.Dimension {
		return nil, backoff.Permanent(fmt.Errorf("embedder: expected %d dimensions, got %d", c.cfg.Dimension, len(vec)))
	}
	return vec, nil
}

// pseudoVector derives a deterministic vector from the text digest. The same
// text always maps to the same vector, so offline ingest-then-search remains
// self-consistent. Components are uniform in [-1, 1).
func (c *Client) pseudoVector(text string) []float32 {
	digest := sha256.Sum256([]byte(text))
	seed := int64(binary.BigEndian.Uint64(digest[:8]))
	rng := rand.New(rand.NewSource(seed))

	vec := make([]float32, c.cfg.Dimension)
	for i := range vec {
		vec[i] = float32(rng.Float64()*2 - 1)
	}
	return vec
}
