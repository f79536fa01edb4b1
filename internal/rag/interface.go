// Package rag defines the data model and interfaces for the retrieval side of
// legalaide: case/chunk records, filtered vector search, embedding, and
// diversity reranking. Concrete implementations (Postgres/pgvector, the HTTP
// embedding client) satisfy these interfaces so the engine and the ingestion
// pipeline never depend on a specific backend.
package rag

import (
	"context"
	"time"
)

// CaseMetadata holds the best-effort fields inferred for a decision at
// ingestion time. Any field may be empty.
type CaseMetadata struct {
	// CaseNumber is the G.R. docket number, or "".
	CaseNumber string
	// Title is the decision caption, or "".
	Title string
	// Court is the jurisdiction label.
	Court string
	// PromulgationDate is the decision date, or nil when unknown.
	PromulgationDate *time.Time
}

// ChunkDraft is one retrievable unit of a case's text before persistence.
// Drafts are immutable values — attach an embedding with [ChunkDraft.WithEmbedding]
// rather than mutating in place.
type ChunkDraft struct {
	// SectionLabel is the lower-cased heading this chunk belongs to.
	// Empty means unclassified/preamble.
	SectionLabel string
	// Index is the zero-based position of this chunk within its case.
	// Indices are contiguous and match source-text order.
	Index int
	// Text is the chunk body.
	Text string
	// TokenCount is the whitespace-approximated token count of Text.
	TokenCount int
	// Embedding is the fixed-dimension vector, nil until embedded.
	Embedding []float32
}

// WithEmbedding returns a copy of the draft carrying the given vector.
// The receiver is not modified.
func (d ChunkDraft) WithEmbedding(vec []float32) ChunkDraft {
	d.Embedding = vec
	return d
}

// SearchFilters narrows a similarity query. All filters are independently
// optional; a zero-value field imposes no constraint.
type SearchFilters struct {
	// Court filters on exact court label when non-empty.
	Court string
	// DateFrom is the inclusive lower bound on promulgation date.
	DateFrom *time.Time
	// DateTo is the inclusive upper bound on promulgation date.
	DateTo *time.Time
	// CaseNumber filters on exact docket number when non-empty.
	CaseNumber string
}

// RankedChunk is a chunk joined with its owning case's display fields plus
// the distance score from the similarity query. It exists only for the
// duration of a request.
type RankedChunk struct {
	// ChunkID identifies the chunk row.
	ChunkID int64 `json:"chunk_id"`
	// CaseID identifies the owning case.
	CaseID int64 `json:"case_id"`
	// SectionLabel is the chunk's heading tag ("" = unclassified).
	SectionLabel string `json:"section_label,omitempty"`
	// ChunkIndex is the chunk's position within its case.
	ChunkIndex int `json:"chunk_index"`
	// Text is the chunk body.
	Text string `json:"chunk_text"`
	// TokenCount is the stored token count.
	TokenCount int `json:"token_count"`
	// CaseNumber is the owning case's docket number.
	CaseNumber string `json:"case_number,omitempty"`
	// Title is the owning case's caption.
	Title string `json:"title,omitempty"`
	// Court is the owning case's jurisdiction label.
	Court string `json:"court,omitempty"`
	// PromulgationDate is the owning case's decision date.
	PromulgationDate *time.Time `json:"promulgation_date,omitempty"`
	// Distance is the similarity-search score; lower is closer.
	Distance float64 `json:"distance"`
}

// CaseRecord is a persisted case row.
type CaseRecord struct {
	ID               int64      `json:"id"`
	CaseNumber       string     `json:"case_number,omitempty"`
	Title            string     `json:"title,omitempty"`
	Court            string     `json:"court,omitempty"`
	PromulgationDate *time.Time `json:"promulgation_date,omitempty"`
	FullText         string     `json:"full_text"`
	SourceFile       string     `json:"source_file,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
}

// ChunkRecord is a persisted chunk row (without its embedding).
type ChunkRecord struct {
	ID           int64  `json:"id"`
	CaseID       int64  `json:"case_id"`
	SectionLabel string `json:"section_label,omitempty"`
	ChunkIndex   int    `json:"chunk_index"`
	Text         string `json:"chunk_text"`
	TokenCount   int    `json:"token_count"`
}

// Embedder converts text into fixed-dimension vectors. Document and query
// embeddings are separate operations so backends may tag usage differently.
// Implementations must be safe to call from multiple goroutines.
type Embedder interface {
	// EmbedDocument embeds chunk text for storage.
	EmbedDocument(ctx context.Context, text string) ([]float32, error)
	// EmbedQuery embeds a user question for retrieval.
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// CaseStore persists cases with their chunks and executes filtered
// similarity queries. Implementations must be safe for concurrent use.
type CaseStore interface {
	// SaveCaseWithChunks persists the case row and every chunk row in a
	// single transaction and returns the new case ID. On failure nothing
	// is persisted.
	SaveCaseWithChunks(ctx context.Context, meta CaseMetadata, fullText, sourceFile string, chunks []ChunkDraft) (int64, error)

	// Search returns up to limit chunks ordered by ascending distance to the
	// query vector, with filters applied before ranking.
	Search(ctx context.Context, queryVec []float32, filters SearchFilters, limit int) ([]RankedChunk, error)

	// FetchCase returns a single case row, or nil when not found.
	FetchCase(ctx context.Context, caseID int64) (*CaseRecord, error)

	// FetchCaseChunks returns a case's chunks ordered by chunk index ascending.
	FetchCaseChunks(ctx context.Context, caseID int64) ([]ChunkRecord, error)

	// DeleteAll removes every case and chunk.
	DeleteAll(ctx context.Context) error

	// Close releases the underlying connection pool.
	Close()
}
