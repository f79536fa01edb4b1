// Package store persists cases and their embedded chunks in PostgreSQL with
// the pgvector extension. It is the concrete rag.CaseStore used in production.
package store

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/legalaide/legalaide-go/internal/rag"
)

// Store implements rag.CaseStore on a pgx connection pool. It is safe for
// concurrent use.
type Store struct {
	pool *pgxpool.Pool
	// dimension is the embedding width the chunk table is declared with.
	dimension int
}

// New connects to databaseURL, verifies connectivity, and ensures the schema
// exists. The pgvector extension must be installable by the connecting role.
func New(ctx context.Context, databaseURL string, dimension int) (*Store, error) {
	if databaseURL == "" {
		return nil, fmt.Errorf("store: database URL must not be empty")
	}
	if dimension <= 0 {
		return nil, fmt.Errorf("store: embedding dimension must be positive, got %d", dimension)
	}

	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("store: create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("store: ping database: %w", err)
	}

	s := &Store{pool: pool, dimension: dimension}
	if err := s.ensureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

// Pool exposes the underlying connection pool for readiness probes.
func (s *Store) Pool() *pgxpool.Pool { return s.pool }

// Close releases the connection pool.
func (s *Store) Close() { s.pool.Close() }

func (s *Store) ensureSchema(ctx context.Context) error {
	statements := []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		`CREATE TABLE IF NOT EXISTS cases (
			id BIGSERIAL PRIMARY KEY,
			case_number TEXT,
			title TEXT,
			court TEXT,
			promulgation_date DATE,
			full_text TEXT NOT NULL,
			source_file TEXT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS case_chunks (
			id BIGSERIAL PRIMARY KEY,
			case_id BIGINT NOT NULL REFERENCES cases(id) ON DELETE CASCADE,
			section_label TEXT,
			chunk_index INT NOT NULL,
			chunk_text TEXT NOT NULL,
			token_count INT NOT NULL,
			embedding vector(%d)
		)`, s.dimension),
		`CREATE INDEX IF NOT EXISTS idx_case_chunks_case_id ON case_chunks(case_id)`,
		`CREATE INDEX IF NOT EXISTS idx_cases_case_number ON cases(case_number)`,
	}
	for _, stmt := range statements {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("store: ensure schema: %w", err)
		}
	}
	return nil
}

// SaveCaseWithChunks inserts the case row and all chunk rows in a single
// transaction. Either everything lands or nothing does.
func (s *Store) SaveCaseWithChunks(ctx context.Context, meta rag.CaseMetadata, fullText, sourceFile string, chunks []rag.ChunkDraft) (int64, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("store: begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var caseID int64
	err = tx.QueryRow(ctx,
		`INSERT INTO cases (case_number, title, court, promulgation_date, full_text, source_file)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id`,
		nullable(meta.CaseNumber), nullable(meta.Title), nullable(meta.Court),
		meta.PromulgationDate, fullText, nullable(sourceFile),
	).Scan(&caseID)
	if err != nil {
		return 0, fmt.Errorf("store: insert case: %w", err)
	}

	for _, chunk := range chunks {
		_, err = tx.Exec(ctx,
			`INSERT INTO case_chunks (case_id, section_label, chunk_index, chunk_text, token_count, embedding)
			 VALUES ($1, $2, $3, $4, $5, $6::vector)`,
			caseID, nullable(chunk.SectionLabel), chunk.Index, chunk.Text, chunk.TokenCount,
			formatVector(chunk.Embedding),
		)
		if err != nil {
			return 0, fmt.Errorf("store: insert chunk %d: %w", chunk.Index, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("store: commit case: %w", err)
	}
	return caseID, nil
}

// Search runs the filtered similarity query. Filters apply before ranking;
// results arrive ordered by ascending distance to the query vector.
func (s *Store) Search(ctx context.Context, queryVec []float32, filters rag.SearchFilters, limit int) ([]rag.RankedChunk, error) {
	if limit <= 0 {
		limit = 10
	}

	rows, err := s.pool.Query(ctx,
		`SELECT ch.id, ch.case_id, COALESCE(ch.section_label, ''), ch.chunk_index,
		        ch.chunk_text, ch.token_count,
		        COALESCE(c.case_number, ''), COALESCE(c.title, ''), COALESCE(c.court, ''),
		        c.promulgation_date,
		        ch.embedding <-> $1::vector AS distance
		   FROM case_chunks ch
		   JOIN cases c ON c.id = ch.case_id
		  WHERE ($2::text IS NULL OR c.court = $2)
		    AND ($3::date IS NULL OR c.promulgation_date >= $3)
		    AND ($4::date IS NULL OR c.promulgation_date <= $4)
		    AND ($5::text IS NULL OR c.case_number = $5)
		  ORDER BY distance ASC
		  LIMIT $6`,
		formatVector(queryVec),
		nullable(filters.Court), filters.DateFrom, filters.DateTo, nullable(filters.CaseNumber),
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("store: similarity query: %w", err)
	}
	defer rows.Close()

	var results []rag.RankedChunk
	for rows.Next() {
		var rc rag.RankedChunk
		var promulgated *time.Time
		if err := rows.Scan(
			&rc.ChunkID, &rc.CaseID, &rc.SectionLabel, &rc.ChunkIndex,
			&rc.Text, &rc.TokenCount,
			&rc.CaseNumber, &rc.Title, &rc.Court,
			&promulgated, &rc.Distance,
		); err != nil {
			return nil, fmt.Errorf("store: scan ranked chunk: %w", err)
		}
		rc.PromulgationDate = promulgated
		results = append(results, rc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: iterate ranked chunks: %w", err)
	}
	return results, nil
}

// FetchCase returns one case row, or nil when the ID is unknown.
func (s *Store) FetchCase(ctx context.Context, caseID int64) (*rag.CaseRecord, error) {
	var rec rag.CaseRecord
	err := s.pool.QueryRow(ctx,
		`SELECT id, COALESCE(case_number, ''), COALESCE(title, ''), COALESCE(court, ''),
		        promulgation_date, full_text, COALESCE(source_file, ''), created_at
		   FROM cases WHERE id = $1`,
		caseID,
	).Scan(&rec.ID, &rec.CaseNumber, &rec.Title, &rec.Court,
		&rec.PromulgationDate, &rec.FullText, &rec.SourceFile, &rec.CreatedAt)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store: fetch case %d: %w", caseID, err)
	}
	return &rec, nil
}

// FetchCaseChunks returns a case's chunks in chunk-index order.
func (s *Store) FetchCaseChunks(ctx context.Context, caseID int64) ([]rag.ChunkRecord, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, case_id, COALESCE(section_label, ''), chunk_index, chunk_text, token_count
		   FROM case_chunks WHERE case_id = $1 ORDER BY chunk_index ASC`,
		caseID,
	)
	if err != nil {
		return nil, fmt.Errorf("store: fetch chunks of case %d: %w", caseID, err)
	}
	defer rows.Close()

	var chunks []rag.ChunkRecord
	for rows.Next() {
		var ch rag.ChunkRecord
		if err := rows.Scan(&ch.ID, &ch.CaseID, &ch.SectionLabel, &ch.ChunkIndex, &ch.Text, &ch.TokenCount); err != nil {
			return nil, fmt.Errorf("store: scan chunk: %w", err)
		}
		chunks = append(chunks, ch)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: iterate chunks: %w", err)
	}
	return chunks, nil
}

// DeleteAll truncates both tables. Used by reindex --drop-existing.
func (s *Store) DeleteAll(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, `TRUNCATE case_chunks, cases RESTART IDENTITY`); err != nil {
		return fmt.Errorf("store: delete all: %w", err)
	}
	return nil
}

// nullable maps "" to a SQL NULL so empty metadata never stores empty strings.
func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// formatVector renders a []float32 as a pgvector literal, e.g. "[0.1,0.2]".
// The string form plus an explicit ::vector cast avoids a binary codec
// registration for the extension type.
func formatVector(vec []float32) string {
	var b strings.Builder
	b.WriteByte('[')
	for i, v := range vec {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.FormatFloat(float64(v), 'f', -1, 32))
	}
	b.WriteByte(']')
	return b.String()
}
