package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/legalaide/legalaide-go/internal/ingestion"
	"github.com/legalaide/legalaide-go/internal/rag"
)

// Config holds the HTTP server configuration.
type Config struct {
	// Host is the address to bind to (default: 127.0.0.1).
	Host string
	// Port is the TCP port to listen on (default: 8080).
	Port int
	// ReadTimeout is the maximum duration for reading the request.
	ReadTimeout time.Duration
	// WriteTimeout is the maximum duration for writing the response.
	WriteTimeout time.Duration
	// ShutdownTimeout is the maximum duration for a graceful shutdown.
	ShutdownTimeout time.Duration
	// Logger is the structured logger used by the server and its handlers.
	// If nil, [logging.New] is used.
	Logger *slog.Logger
	// Pingers is the ordered list of dependency probes run by GET /api/ready.
	// If empty, /api/ready returns 200 with no checks (liveness-only mode).
	Pingers []Pinger
	// RateLimit is the sustained request rate allowed per IP on rate-limited
	// endpoints (requests/second). Defaults to 10 if zero.
	RateLimit float64
	// RateBurst is the maximum instantaneous burst per IP. Defaults to 20 if zero.
	RateBurst int
	// APIKey is the Bearer token required on all protected /api/* routes.
	// If empty, authentication is disabled (development mode).
	APIKey string
	// Registry receives the server's Prometheus metrics. If nil a private
	// registry is created, which keeps unit tests hermetic.
	Registry *prometheus.Registry
}

// retriever is the interface the search and ask handlers call.
// *rag.Engine satisfies it; tests inject a fake.
type retriever interface {
	SearchChunks(ctx context.Context, question string, filters rag.SearchFilters, topK int) ([]rag.RankedChunk, error)
	AnswerQuestion(ctx context.Context, question string, filters rag.SearchFilters, topK int) (*rag.Answer, error)
}

// ingester is the interface the ingest and reindex handlers call.
// *ingestion.Pipeline satisfies it; tests inject a fake.
type ingester interface {
	IngestFile(ctx context.Context, path string) (*ingestion.IngestResult, error)
	ReindexFolder(ctx context.Context, dir string, dropExisting bool) (*ingestion.Report, error)
}

// caseReader is the interface the case handler calls.
// The rag.CaseStore implementation satisfies it.
type caseReader interface {
	FetchCase(ctx context.Context, caseID int64) (*rag.CaseRecord, error)
	FetchCaseChunks(ctx context.Context, caseID int64) ([]rag.ChunkRecord, error)
}

// Server is the HTTP server exposing the retrieval and ingestion API.
type Server struct {
	retriever  retriever
	ingester   ingester
	caseReader caseReader
	// cfg holds the resolved server configuration.
	cfg *Config
	// httpServer is the underlying net/http server.
	httpServer *http.Server
	// log is the structured logger for this server instance.
	log *slog.Logger
	// pingers is the ordered list of dependency probes for GET /api/ready.
	pingers []Pinger
	// metrics holds the server's Prometheus instruments.
	metrics *serverMetrics
	// stopRL stops the rate limiter's background eviction goroutine on shutdown.
	stopRL func()
}

// ingestRequest is the JSON body for POST /api/ingest.
type ingestRequest struct {
	// Path is the decision file to ingest.
	Path string `json:"path"`
}

// reindexRequest is the JSON body for POST /api/reindex.
type reindexRequest struct {
	// Folder is the directory to ingest recursively.
	Folder string `json:"folder"`
	// DropExisting removes all stored cases before reindexing.
	DropExisting bool `json:"drop_existing,omitempty"`
}

// searchFilters is the JSON shape of the optional query filters. Dates use
// the "2006-01-02" layout.
type searchFilters struct {
	Court      string `json:"court,omitempty"`
	DateFrom   string `json:"date_from,omitempty"`
	DateTo     string `json:"date_to,omitempty"`
	CaseNumber string `json:"case_number,omitempty"`
}

// searchRequest is the JSON body for POST /api/search.
type searchRequest struct {
	// Query is the natural language search text.
	Query string `json:"query"`
	// TopK caps the number of results (default 10).
	TopK int `json:"top_k,omitempty"`
	// Filters narrows the search.
	Filters searchFilters `json:"filters,omitempty"`
}

// searchResponse is the JSON response for POST /api/search.
type searchResponse struct {
	Query   string            `json:"query"`
	Results []rag.RankedChunk `json:"results"`
}

// askRequest is the JSON body for POST /api/ask.
type askRequest struct {
	// Question is the natural language question.
	Question string `json:"question"`
	// TopK caps the number of supporting chunks (default 10).
	TopK int `json:"top_k,omitempty"`
	// Filters narrows retrieval.
	Filters searchFilters `json:"filters,omitempty"`
}

// caseResponse is the JSON response for GET /api/case/{id}.
type caseResponse struct {
	Case   *rag.CaseRecord   `json:"case"`
	Chunks []rag.ChunkRecord `json:"chunks"`
}
