package ingestion

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/legalaide/legalaide-go/internal/logging"
	"github.com/legalaide/legalaide-go/internal/parsing"
	"github.com/legalaide/legalaide-go/internal/rag"
)

// TextExtractor reads a decision file into raw text. *extract.Extractor is
// the production implementation; tests inject fakes.
type TextExtractor interface {
	ExtractText(ctx context.Context, path string) (string, error)
}

// Pipeline runs the full ingest flow for one file at a time.
type Pipeline struct {
	extractor    TextExtractor
	embedder     rag.Embedder
	store        rag.CaseStore
	targetTokens int
	overlapRatio float64
}

// NewPipeline wires the pipeline stages together.
func NewPipeline(extractor TextExtractor, embedder rag.Embedder, store rag.CaseStore, targetTokens int, overlapRatio float64) (*Pipeline, error) {
	if extractor == nil || embedder == nil || store == nil {
		return nil, fmt.Errorf("ingestion: extractor, embedder, and store must all be set")
	}
	if targetTokens <= 0 {
		return nil, fmt.Errorf("ingestion: target token size must be positive, got %d", targetTokens)
	}
	if overlapRatio < 0 || overlapRatio >= 1 {
		return nil, fmt.Errorf("ingestion: overlap ratio must be in [0, 1), got %v", overlapRatio)
	}
	return &Pipeline{
		extractor:    extractor,
		embedder:     embedder,
		store:        store,
		targetTokens: targetTokens,
		overlapRatio: overlapRatio,
	}, nil
}

// IngestResult summarises one successfully ingested file.
type IngestResult struct {
	// CaseID is the persisted case row ID.
	CaseID int64 `json:"case_id"`
	// CaseNumber is the inferred docket number, or "".
	CaseNumber string `json:"case_number,omitempty"`
	// Title is the inferred caption, or "".
	Title string `json:"title,omitempty"`
	// Chunks is the number of chunks stored.
	Chunks int `json:"chunks"`
}

// IngestFile runs extract → clean → metadata → chunk → embed → store for a
// single file. An empty document still produces a case row with zero chunks;
// that is a successful ingest, not a failure.
func (p *Pipeline) IngestFile(ctx context.Context, path string) (*IngestResult, error) {
	log := logging.FromContext(ctx)

	raw, err := p.extractor.ExtractText(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("ingestion: extract %s: %w", path, err)
	}

	cleaned := parsing.Clean(raw)
	meta := parsing.ExtractMetadata(cleaned)

	drafts := ChunkText(cleaned, p.targetTokens, p.overlapRatio)
	embedded := make([]rag.ChunkDraft, 0, len(drafts))
	for _, draft := range drafts {
		vec, err := p.embedder.EmbedDocument(ctx, draft.Text)
		if err != nil {
			return nil, fmt.Errorf("ingestion: embed chunk %d of %s: %w", draft.Index, path, err)
		}
		embedded = append(embedded, draft.WithEmbedding(vec))
	}

	caseID, err := p.store.SaveCaseWithChunks(ctx, rag.CaseMetadata{
		CaseNumber:       meta.CaseNumber,
		Title:            meta.Title,
		Court:            meta.Court,
		PromulgationDate: meta.PromulgationDate,
	}, cleaned, filepath.Base(path), embedded)
	if err != nil {
		return nil, fmt.Errorf("ingestion: store %s: %w", path, err)
	}

	log.Info("ingested decision",
		slog.String("file", filepath.Base(path)),
		slog.Int64("case_id", caseID),
		slog.String("case_number", meta.CaseNumber),
		slog.Int("chunks", len(embedded)),
	)

	return &IngestResult{
		CaseID:     caseID,
		CaseNumber: meta.CaseNumber,
		Title:      meta.Title,
		Chunks:     len(embedded),
	}, nil
}

// Failure records one file that could not be ingested during a reindex.
type Failure struct {
	// File is the path that failed.
	File string `json:"file"`
	// Error is the failure message.
	Error string `json:"error"`
}

// Report summarises a folder reindex run.
type Report struct {
	// CasesIngested is the number of files stored successfully.
	CasesIngested int `json:"cases_ingested"`
	// ChunksIngested is the total chunk count across those cases.
	ChunksIngested int `json:"chunks_ingested"`
	// Failures lists the files that could not be ingested.
	Failures []Failure `json:"failures,omitempty"`
}

// ReindexFolder ingests every .pdf and .txt under dir, recursively, in sorted
// path order. A missing folder is fatal; per-file failures are accumulated
// into the report and do not stop the run. When dropExisting is set all
// previously stored cases are removed first.
func (p *Pipeline) ReindexFolder(ctx context.Context, dir string, dropExisting bool) (*Report, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("ingestion: folder %s: %w", dir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("ingestion: %s is not a directory", dir)
	}

	var files []string
	err = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		switch strings.ToLower(filepath.Ext(path)) {
		case ".pdf", ".txt":
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("ingestion: walk %s: %w", dir, err)
	}
	sort.Strings(files)

	log := logging.FromContext(ctx)
	if dropExisting {
		if err := p.store.DeleteAll(ctx); err != nil {
			return nil, fmt.Errorf("ingestion: drop existing cases: %w", err)
		}
		log.Warn("dropped all existing cases before reindex")
	}

	report := &Report{}
	for _, file := range files {
		result, err := p.IngestFile(ctx, file)
		if err != nil {
			log.Error("reindex: file failed",
				slog.String("file", file),
				slog.String("error", err.Error()),
			)
			report.Failures = append(report.Failures, Failure{File: file, Error: err.Error()})
			continue
		}
		report.CasesIngested++
		report.ChunksIngested += result.Chunks
	}

	log.Info("reindex complete",
		slog.Int("cases", report.CasesIngested),
		slog.Int("chunks", report.ChunksIngested),
		slog.Int("failures", len(report.Failures)),
	)
	return report, nil
}
