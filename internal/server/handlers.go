package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/legalaide/legalaide-go/internal/logging"
	"github.com/legalaide/legalaide-go/internal/rag"
)

// filterDateLayout is the wire format for the date-range filters.
const filterDateLayout = "2006-01-02"

// writeJSON encodes v as the response body with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// parseFilters converts the wire filter shape into rag.SearchFilters.
func parseFilters(f searchFilters) (rag.SearchFilters, error) {
	out := rag.SearchFilters{Court: f.Court, CaseNumber: f.CaseNumber}
	if f.DateFrom != "" {
		d, err := time.Parse(filterDateLayout, f.DateFrom)
		if err != nil {
			return out, err
		}
		out.DateFrom = &d
	}
	if f.DateTo != "" {
		d, err := time.Parse(filterDateLayout, f.DateTo)
		if err != nil {
			return out, err
		}
		out.DateTo = &d
	}
	return out, nil
}

// handleIngest handles POST /api/ingest.
func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	if s.ingester == nil {
		http.Error(w, "ingestion not configured", http.StatusNotImplemented)
		return
	}
	var req ingestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Path == "" {
		http.Error(w, "path is required", http.StatusBadRequest)
		return
	}

	result, err := s.ingester.IngestFile(r.Context(), req.Path)
	if err != nil {
		logging.FromContext(r.Context()).Error("ingest failed",
			slog.String("path", req.Path),
			slog.String("error", err.Error()),
		)
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// handleReindex handles POST /api/reindex.
func (s *Server) handleReindex(w http.ResponseWriter, r *http.Request) {
	if s.ingester == nil {
		http.Error(w, "ingestion not configured", http.StatusNotImplemented)
		return
	}
	var req reindexRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Folder == "" {
		http.Error(w, "folder is required", http.StatusBadRequest)
		return
	}

	report, err := s.ingester.ReindexFolder(r.Context(), req.Folder, req.DropExisting)
	if err != nil {
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// handleSearch handles POST /api/search.
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Query == "" {
		http.Error(w, "query is required", http.StatusBadRequest)
		return
	}
	filters, err := parseFilters(req.Filters)
	if err != nil {
		http.Error(w, "invalid date filter, want YYYY-MM-DD", http.StatusBadRequest)
		return
	}

	results, err := s.retriever.SearchChunks(r.Context(), req.Query, filters, req.TopK)
	if err != nil {
		logging.FromContext(r.Context()).Error("search failed", slog.String("error", err.Error()))
		http.Error(w, "search failed", http.StatusInternalServerError)
		return
	}
	if results == nil {
		results = []rag.RankedChunk{}
	}
	writeJSON(w, http.StatusOK, searchResponse{Query: req.Query, Results: results})
}

// handleAsk handles POST /api/ask.
func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	var req askRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Question == "" {
		http.Error(w, "question is required", http.StatusBadRequest)
		return
	}
	filters, err := parseFilters(req.Filters)
	if err != nil {
		http.Error(w, "invalid date filter, want YYYY-MM-DD", http.StatusBadRequest)
		return
	}

	answer, err := s.retriever.AnswerQuestion(r.Context(), req.Question, filters, req.TopK)
	if err != nil {
		logging.FromContext(r.Context()).Error("ask failed", slog.String("error", err.Error()))
		http.Error(w, "answer synthesis failed", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, answer)
}

// handleCase handles GET /api/case/{id}.
func (s *Server) handleCase(w http.ResponseWriter, r *http.Request) {
	if s.caseReader == nil {
		http.Error(w, "case store not configured", http.StatusNotImplemented)
		return
	}
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		http.Error(w, "invalid case id", http.StatusBadRequest)
		return
	}

	rec, err := s.caseReader.FetchCase(r.Context(), id)
	if err != nil {
		http.Error(w, "case lookup failed", http.StatusInternalServerError)
		return
	}
	if rec == nil {
		http.Error(w, "case not found", http.StatusNotFound)
		return
	}
	chunks, err := s.caseReader.FetchCaseChunks(r.Context(), id)
	if err != nil {
		http.Error(w, "chunk lookup failed", http.StatusInternalServerError)
		return
	}
	if chunks == nil {
		chunks = []rag.ChunkRecord{}
	}
	writeJSON(w, http.StatusOK, caseResponse{Case: rec, Chunks: chunks})
}

// handleHealth handles GET /api/health for liveness checks.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
