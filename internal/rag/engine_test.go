package rag

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"
)

type fakeEmbedder struct {
	queries []string
	vec     []float32
	err     error
}

func (f *fakeEmbedder) EmbedDocument(_ context.Context, text string) ([]float32, error) {
	return f.vec, f.err
}

func (f *fakeEmbedder) EmbedQuery(_ context.Context, text string) ([]float32, error) {
	f.queries = append(f.queries, text)
	return f.vec, f.err
}

type fakeStore struct {
	results   []RankedChunk
	err       error
	lastLimit int
}

func (f *fakeStore) SaveCaseWithChunks(context.Context, CaseMetadata, string, string, []ChunkDraft) (int64, error) {
	return 0, errors.New("not implemented")
}

func (f *fakeStore) Search(_ context.Context, _ []float32, _ SearchFilters, limit int) ([]RankedChunk, error) {
	f.lastLimit = limit
	return f.results, f.err
}

func (f *fakeStore) FetchCase(context.Context, int64) (*CaseRecord, error) { return nil, nil }

func (f *fakeStore) FetchCaseChunks(context.Context, int64) ([]ChunkRecord, error) {
	return nil, nil
}

func (f *fakeStore) DeleteAll(context.Context) error { return nil }

func (f *fakeStore) Close() {}

type fakeModel struct {
	configured bool
	answer     string
	err        error
	lastPrompt string
}

func (f *fakeModel) Configured() bool { return f.configured }

func (f *fakeModel) Complete(_ context.Context, _, user string) (string, error) {
	f.lastPrompt = user
	return f.answer, f.err
}

func TestNewEngineValidates(t *testing.T) {
	t.Parallel()

	if _, err := NewEngine(nil, &fakeStore{}, nil); err == nil {
		t.Error("want error for nil embedder")
	}
	if _, err := NewEngine(&fakeEmbedder{}, nil, nil); err == nil {
		t.Error("want error for nil store")
	}
	if _, err := NewEngine(&fakeEmbedder{}, &fakeStore{}, nil); err != nil {
		t.Errorf("nil model should be allowed: %v", err)
	}
}

func TestSearchChunksOversamples(t *testing.T) {
	t.Parallel()

	store := &fakeStore{}
	engine, err := NewEngine(&fakeEmbedder{vec: []float32{0.1}}, store, nil)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}

	if _, err := engine.SearchChunks(context.Background(), "estafa elements", SearchFilters{}, 5); err != nil {
		t.Fatalf("SearchChunks: %v", err)
	}
	if store.lastLimit != 10 {
		t.Errorf("store limit = %d, want 10 (2x topK)", store.lastLimit)
	}
}

func TestSearchChunksDefaultTopK(t *testing.T) {
	t.Parallel()

	store := &fakeStore{}
	engine, _ := NewEngine(&fakeEmbedder{vec: []float32{0.1}}, store, nil)

	if _, err := engine.SearchChunks(context.Background(), "q", SearchFilters{}, 0); err != nil {
		t.Fatalf("SearchChunks: %v", err)
	}
	if store.lastLimit != 20 {
		t.Errorf("store limit = %d, want 20 for default topK 10", store.lastLimit)
	}
}

func TestSearchChunksEmbedError(t *testing.T) {
	t.Parallel()

	engine, _ := NewEngine(&fakeEmbedder{err: errors.New("boom")}, &fakeStore{}, nil)
	if _, err := engine.SearchChunks(context.Background(), "q", SearchFilters{}, 3); err == nil {
		t.Fatal("want error when query embedding fails")
	}
}

func TestAnswerQuestionWithModel(t *testing.T) {
	t.Parallel()

	store := &fakeStore{results: []RankedChunk{
		{ChunkID: 1, CaseID: 42, Title: "People v. Cruz", CaseNumber: "G.R. No. 1234", Text: "The accused was acquitted.", Distance: 0.1},
		{ChunkID: 2, CaseID: 42, Title: "People v. Cruz", CaseNumber: "G.R. No. 1234", Text: "Bail was granted pending appeal.", Distance: 0.2},
	}}
	model := &fakeModel{configured: true, answer: "The accused was acquitted."}
	engine, _ := NewEngine(&fakeEmbedder{vec: []float32{0.1}}, store, model)

	got, err := engine.AnswerQuestion(context.Background(), "What happened to the accused?", SearchFilters{}, 5)
	if err != nil {
		t.Fatalf("AnswerQuestion: %v", err)
	}
	if got.Answer != "The accused was acquitted." {
		t.Errorf("answer = %q", got.Answer)
	}
	if !reflect.DeepEqual(got.CaseIDs, []int64{42}) {
		t.Errorf("case IDs = %v, want [42]", got.CaseIDs)
	}
	if !strings.Contains(model.lastPrompt, "People v. Cruz (G.R. No. 1234)") {
		t.Errorf("prompt missing context header: %q", model.lastPrompt)
	}
	if !strings.Contains(model.lastPrompt, "What happened to the accused?") {
		t.Errorf("prompt missing question: %q", model.lastPrompt)
	}
}

func TestAnswerQuestionOfflineFallback(t *testing.T) {
	t.Parallel()

	store := &fakeStore{results: []RankedChunk{
		{ChunkID: 1, CaseID: 7, Text: "Costs against petitioner.", Distance: 0.1},
	}}
	engine, _ := NewEngine(&fakeEmbedder{vec: []float32{0.1}}, store, &fakeModel{configured: false})

	got, err := engine.AnswerQuestion(context.Background(), "who pays costs", SearchFilters{}, 3)
	if err != nil {
		t.Fatalf("AnswerQuestion: %v", err)
	}
	if !strings.Contains(got.Answer, "Costs against petitioner.") {
		t.Errorf("fallback answer should contain the context block, got %q", got.Answer)
	}
	if !strings.Contains(got.Answer, "Unknown Title") {
		t.Errorf("missing title placeholder: %q", got.Answer)
	}
}

func TestAnswerQuestionModelError(t *testing.T) {
	t.Parallel()

	store := &fakeStore{results: []RankedChunk{{ChunkID: 1, CaseID: 1, Text: "t", Distance: 0.1}}}
	engine, _ := NewEngine(&fakeEmbedder{vec: []float32{0.1}}, store, &fakeModel{configured: true, err: errors.New("rate limited")})

	if _, err := engine.AnswerQuestion(context.Background(), "q", SearchFilters{}, 3); err == nil {
		t.Fatal("want model error to surface")
	}
}

func TestDistinctCaseIDsSorted(t *testing.T) {
	t.Parallel()

	chunks := []RankedChunk{
		{ChunkID: 1, CaseID: 9},
		{ChunkID: 2, CaseID: 3},
		{ChunkID: 3, CaseID: 9},
		{ChunkID: 4, CaseID: 1},
	}
	got := distinctCaseIDs(chunks)
	if !reflect.DeepEqual(got, []int64{1, 3, 9}) {
		t.Errorf("distinctCaseIDs = %v, want [1 3 9]", got)
	}
}
