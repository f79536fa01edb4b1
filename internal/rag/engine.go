package rag

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/legalaide/legalaide-go/internal/logging"
)

// oversampleFactor is how many more candidates than topK are requested from
// the store so the reranker has room to diversify.
const oversampleFactor = 2

// AnswerModel is the language-model dependency of the engine. *llm.Client
// satisfies it; tests inject a fake. An unconfigured model triggers the
// deterministic offline fallback instead of a call.
type AnswerModel interface {
	// Configured reports whether the model can be called.
	Configured() bool
	// Complete sends a system instruction plus user prompt and returns the answer.
	Complete(ctx context.Context, system, user string) (string, error)
}

// Answer is the result of a grounded question-answering request.
type Answer struct {
	// Question is the user's original question.
	Question string `json:"question"`
	// Answer is the synthesized (or fallback) response text.
	Answer string `json:"answer"`
	// SupportingChunks are the reranked chunks the answer is grounded on.
	SupportingChunks []RankedChunk `json:"supporting_chunks"`
	// CaseIDs is the sorted set of distinct case IDs among the supporting chunks.
	CaseIDs []int64 `json:"case_ids"`
}

// Engine coordinates query embedding, filtered vector search, diversity
// reranking, and answer synthesis.
type Engine struct {
	// embedder converts the question into a query vector.
	embedder Embedder
	// store executes the filtered similarity search.
	store CaseStore
	// model synthesizes the final answer from retrieved context.
	model AnswerModel
	// diversityWeight is the MMR λ passed to Rerank.
	diversityWeight float64
}

// NewEngine constructs an Engine. model may be nil, in which case answers
// always use the offline context fallback.
func NewEngine(embedder Embedder, store CaseStore, model AnswerModel) (*Engine, error) {
	if embedder == nil {
		return nil, fmt.Errorf("rag: embedder must not be nil")
	}
	if store == nil {
		return nil, fmt.Errorf("rag: store must not be nil")
	}
	return &Engine{
		embedder:        embedder,
		store:           store,
		model:           model,
		diversityWeight: defaultDiversityWeight,
	}, nil
}

// SearchChunks embeds the question, oversamples candidates from the store,
// and reranks them down to topK diverse results.
func (e *Engine) SearchChunks(ctx context.Context, question string, filters SearchFilters, topK int) ([]RankedChunk, error) {
	if topK <= 0 {
		topK = 10
	}

	queryVec, err := e.embedder.EmbedQuery(ctx, question)
	if err != nil {
		return nil, fmt.Errorf("rag: embedding query failed: %w", err)
	}

	candidates, err := e.store.Search(ctx, queryVec, filters, topK*oversampleFactor)
	if err != nil {
		return nil, fmt.Errorf("rag: vector search failed: %w", err)
	}

	return Rerank(candidates, e.diversityWeight, topK), nil
}

// AnswerQuestion retrieves supporting chunks and synthesizes a grounded
// answer. When no language model is configured the context block itself is
// returned so offline operation never fails.
func (e *Engine) AnswerQuestion(ctx context.Context, question string, filters SearchFilters, topK int) (*Answer, error) {
	chunks, err := e.SearchChunks(ctx, question, filters, topK)
	if err != nil {
		return nil, err
	}

	contextBlock := buildContextBlock(chunks)

	var answer string
	if e.model != nil && e.model.Configured() {
		prompt := buildPrompt(question, contextBlock)
		answer, err = e.model.Complete(ctx, systemInstruction, prompt)
		if err != nil {
			return nil, fmt.Errorf("rag: answer synthesis failed: %w", err)
		}
	} else {
		logging.FromContext(ctx).Warn("rag: language model not configured, returning context block",
			slog.Int("chunks", len(chunks)),
		)
		answer = contextBlock
	}

	return &Answer{
		Question:         question,
		Answer:           answer,
		SupportingChunks: chunks,
		CaseIDs:          distinctCaseIDs(chunks),
	}, nil
}

// systemInstruction is the fixed system message for answer synthesis.
const systemInstruction = "You are a legal assistant."

// buildContextBlock concatenates, per chunk in rerank order, a display header
// and the chunk text, blocks separated by blank lines.
func buildContextBlock(chunks []RankedChunk) string {
	blocks := make([]string, 0, len(chunks))
	for _, chunk := range chunks {
		title := chunk.Title
		if title == "" {
			title = "Unknown Title"
		}
		docket := chunk.CaseNumber
		if docket == "" {
			docket = "unknown docket"
		}
		blocks = append(blocks, fmt.Sprintf("%s (%s)\n%s", title, docket, strings.TrimSpace(chunk.Text)))
	}
	return strings.Join(blocks, "\n\n")
}

// buildPrompt assembles the fixed grounding template around the question and
// context block.
func buildPrompt(question, contextBlock string) string {
	return "You are a legal assistant specializing in Philippine Supreme Court jurisprudence.\n" +
		"Using ONLY the provided context, answer the question with citations to case titles " +
		"and G.R. numbers when available. Avoid fabricating cases or facts.\n\n" +
		"Question: " + question + "\n\n" +
		"Context:\n" + contextBlock + "\n\nAnswer:"
}

// distinctCaseIDs returns the sorted set of case IDs among chunks.
func distinctCaseIDs(chunks []RankedChunk) []int64 {
	set := make(map[int64]bool, len(chunks))
	for _, c := range chunks {
		set[c.CaseID] = true
	}
	ids := make([]int64, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
