package config

import (
	"os"
	"strconv"
)

// Defaults applied when neither YAML nor env vars provide a value.
const (
	// DefaultEmbeddingDim is the embedding vector length (text-embedding-3-large).
	DefaultEmbeddingDim = 1536
	// DefaultEmbeddingModel is the embedding model requested from the remote API.
	DefaultEmbeddingModel = "text-embedding-3-large"
	// DefaultChunkTokenSize is the target token count per chunk.
	DefaultChunkTokenSize = 800
	// DefaultChunkOverlapRatio is the sliding-window overlap fraction.
	DefaultChunkOverlapRatio = 0.15
)

// Settings is the resolved runtime configuration consumed by components.
// It is built from environment variables after [Load] has layered in any
// YAML values, so a Settings value reflects the effective configuration.
type Settings struct {
	// DatabaseURL is the Postgres connection string.
	DatabaseURL string

	// EmbeddingModel is the embedding model name.
	EmbeddingModel string
	// EmbeddingDim is the fixed embedding vector length.
	EmbeddingDim int
	// EmbeddingAPIURL is the remote embeddings endpoint ("" = offline fallback).
	EmbeddingAPIURL string
	// EmbeddingAPIKey is the embeddings credential ("" = offline fallback).
	EmbeddingAPIKey string

	// LLMModel is the chat model name ("" = offline fallback).
	LLMModel string
	// LLMAPIURL is the chat-completions endpoint.
	LLMAPIURL string
	// LLMAPIKey is the LLM credential.
	LLMAPIKey string

	// ChunkTokenSize is the target token count per chunk.
	ChunkTokenSize int
	// ChunkOverlapRatio is the sliding-window overlap fraction.
	ChunkOverlapRatio float64

	// TesseractCmd overrides the tesseract binary path ("" = use PATH).
	TesseractCmd string
	// PdftoppmCmd overrides the pdftoppm binary path ("" = use PATH).
	PdftoppmCmd string

	// SyncDBPath is the SQLite sync-queue database path.
	SyncDBPath string
	// SyncDownloadDir is where fetched decision files land.
	SyncDownloadDir string
	// ElibraryBaseURL is the eLibrary base URL for the sync module.
	ElibraryBaseURL string
}

// FromEnv resolves Settings from the current environment, applying defaults
// for unset numeric values. Call [Load] first so YAML values are visible.
func FromEnv() Settings {
	return Settings{
		DatabaseURL:       os.Getenv("DATABASE_URL"),
		EmbeddingModel:    envOrDefault("EMBEDDING_MODEL", DefaultEmbeddingModel),
		EmbeddingDim:      envInt("EMBEDDING_DIM", DefaultEmbeddingDim),
		EmbeddingAPIURL:   os.Getenv("EMBEDDING_API_URL"),
		EmbeddingAPIKey:   os.Getenv("EMBEDDING_API_KEY"),
		LLMModel:          os.Getenv("LLM_MODEL"),
		LLMAPIURL:         os.Getenv("LLM_API_URL"),
		LLMAPIKey:         os.Getenv("LLM_API_KEY"),
		ChunkTokenSize:    envInt("CHUNK_TOKEN_SIZE", DefaultChunkTokenSize),
		ChunkOverlapRatio: envFloat("CHUNK_OVERLAP_RATIO", DefaultChunkOverlapRatio),
		TesseractCmd:      os.Getenv("TESSERACT_CMD"),
		PdftoppmCmd:       os.Getenv("PDFTOPPM_CMD"),
		SyncDBPath:        envOrDefault("SYNC_DB_PATH", "sync.db"),
		SyncDownloadDir:   envOrDefault("SYNC_DOWNLOAD_DIR", "downloads"),
		ElibraryBaseURL:   envOrDefault("ELIBRARY_BASE_URL", "https://elibrary.judiciary.gov.ph"),
	}
}

// envOrDefault returns the value of the named environment variable, or
// fallback if the variable is unset or empty.
func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// envInt returns the integer value of the named environment variable, or
// fallback if the variable is unset, empty, or not parseable.
func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

// envFloat returns the float value of the named environment variable, or
// fallback if the variable is unset, empty, or not parseable.
func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}
