package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/legalaide/legalaide-go/internal/config"
	"github.com/legalaide/legalaide-go/internal/embedder"
	"github.com/legalaide/legalaide-go/internal/extract"
	"github.com/legalaide/legalaide-go/internal/ingestion"
	"github.com/legalaide/legalaide-go/internal/llm"
	"github.com/legalaide/legalaide-go/internal/rag"
	"github.com/legalaide/legalaide-go/internal/store"
)

// stack bundles the wired components shared by the subcommands.
type stack struct {
	settings config.Settings
	embedder *embedder.Client
	store    *store.Store
	engine   *rag.Engine
	pipeline *ingestion.Pipeline
	llm      *llm.Client
}

// close releases the stack's connections.
func (s *stack) close() {
	if s.store != nil {
		s.store.Close()
	}
}

// buildStack wires embedder, store, engine, and ingestion pipeline from the
// resolved settings. DATABASE_URL is required by every command that touches
// the corpus.
func buildStack(ctx context.Context, log *slog.Logger) (*stack, error) {
	settings := config.FromEnv()
	if settings.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is not set — point it at a Postgres database with the pgvector extension")
	}

	emb, err := embedder.New(embedder.Config{
		Model:     settings.EmbeddingModel,
		Dimension: settings.EmbeddingDim,
		APIURL:    settings.EmbeddingAPIURL,
		APIKey:    settings.EmbeddingAPIKey,
	})
	if err != nil {
		return nil, err
	}
	if !emb.Remote() {
		log.Warn("EMBEDDING_API_URL/EMBEDDING_API_KEY not set — using deterministic offline embeddings")
	}

	st, err := store.New(ctx, settings.DatabaseURL, settings.EmbeddingDim)
	if err != nil {
		return nil, err
	}

	llmClient := llm.New(llm.Config{
		Model:  settings.LLMModel,
		APIURL: settings.LLMAPIURL,
		APIKey: settings.LLMAPIKey,
	})
	if !llmClient.Configured() {
		log.Warn("LLM_MODEL/LLM_API_URL/LLM_API_KEY not set — ask returns retrieved context instead of a synthesized answer")
	}

	engine, err := rag.NewEngine(emb, st, llmClient)
	if err != nil {
		st.Close()
		return nil, err
	}

	// OCR is optional: without the binaries scanned PDFs degrade to their
	// (possibly empty) text layer.
	ocr, err := extract.NewOCRRunner(settings.PdftoppmCmd, settings.TesseractCmd)
	if err != nil {
		log.Warn("OCR unavailable, scanned PDFs will not be recognised", slog.String("reason", err.Error()))
		ocr = nil
	}

	pipeline, err := ingestion.NewPipeline(extract.New(ocr), emb, st, settings.ChunkTokenSize, settings.ChunkOverlapRatio)
	if err != nil {
		st.Close()
		return nil, err
	}

	return &stack{
		settings: settings,
		embedder: emb,
		store:    st,
		engine:   engine,
		pipeline: pipeline,
		llm:      llmClient,
	}, nil
}

// printJSON writes v to stdout as indented JSON.
func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
