package server

import (
	"context"
	"fmt"
	"net/http"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresPinger probes the case database using the pool's native Ping.
// It satisfies the Pinger interface and is used by GET /api/ready.
type PostgresPinger struct {
	// pool is the pgx connection pool to probe.
	pool *pgxpool.Pool
}

// NewPostgresPinger constructs a PostgresPinger for the given pool.
func NewPostgresPinger(pool *pgxpool.Pool) *PostgresPinger {
	return &PostgresPinger{pool: pool}
}

// Name returns the dependency label used in readiness responses.
func (p *PostgresPinger) Name() string { return "postgres" }

// Ping checks database connectivity.
func (p *PostgresPinger) Ping(ctx context.Context) error {
	if err := p.pool.Ping(ctx); err != nil {
		return fmt.Errorf("ping failed: %w", err)
	}
	return nil
}

// HTTPPinger probes an HTTP dependency (the embeddings or chat endpoint) with
// a HEAD request. Any response, including 4xx, proves reachability — only
// transport failures count against readiness.
type HTTPPinger struct {
	// url is the endpoint to probe.
	url string
	// name identifies the dependency in readiness responses.
	name string
	// client issues the probe requests.
	client *http.Client
}

// NewHTTPPinger constructs an HTTPPinger for the given endpoint and label.
func NewHTTPPinger(url, name string) *HTTPPinger {
	return &HTTPPinger{
		url:    url,
		name:   name,
		client: &http.Client{Timeout: probeTimeout},
	}
}

// Name returns the dependency label used in readiness responses.
func (p *HTTPPinger) Name() string { return p.name }

// Ping issues a HEAD request against the endpoint.
func (p *HTTPPinger) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, p.url, nil)
	if err != nil {
		return fmt.Errorf("create probe request: %w", err)
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("unreachable: %w", err)
	}
	resp.Body.Close()
	return nil
}
