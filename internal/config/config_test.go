package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
)

// writeConfig writes a YAML config file into a temp dir and returns its path.
func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "legalaide.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadAppliesYAMLValues(t *testing.T) {
	path := writeConfig(t, `
embedding:
  model: custom-embed
  dimension: 768
chunking:
  token_size: 400
  overlap_ratio: 0.2
`)
	t.Setenv("EMBEDDING_MODEL", "")
	os.Unsetenv("EMBEDDING_MODEL")
	t.Setenv("EMBEDDING_DIM", "")
	os.Unsetenv("EMBEDDING_DIM")
	t.Setenv("CHUNK_TOKEN_SIZE", "")
	os.Unsetenv("CHUNK_TOKEN_SIZE")
	t.Setenv("CHUNK_OVERLAP_RATIO", "")
	os.Unsetenv("CHUNK_OVERLAP_RATIO")

	loaded, err := Load(path, slog.Default())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded != path {
		t.Errorf("loaded path = %q, want %q", loaded, path)
	}

	if got := os.Getenv("EMBEDDING_MODEL"); got != "custom-embed" {
		t.Errorf("EMBEDDING_MODEL = %q, want custom-embed", got)
	}
	if got := os.Getenv("EMBEDDING_DIM"); got != "768" {
		t.Errorf("EMBEDDING_DIM = %q, want 768", got)
	}
	if got := os.Getenv("CHUNK_TOKEN_SIZE"); got != "400" {
		t.Errorf("CHUNK_TOKEN_SIZE = %q, want 400", got)
	}
	if got := os.Getenv("CHUNK_OVERLAP_RATIO"); got != "0.2" {
		t.Errorf("CHUNK_OVERLAP_RATIO = %q, want 0.2", got)
	}
}

func TestLoadEnvWinsOverYAML(t *testing.T) {
	path := writeConfig(t, `
embedding:
  model: yaml-model
`)
	t.Setenv("EMBEDDING_MODEL", "env-model")

	if _, err := Load(path, slog.Default()); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := os.Getenv("EMBEDDING_MODEL"); got != "env-model" {
		t.Errorf("EMBEDDING_MODEL = %q, want env-model (env must win)", got)
	}
}

func TestLoadMissingFileIsNotAnError(t *testing.T) {
	loaded, err := Load(filepath.Join(t.TempDir(), "nope.yaml"), slog.Default())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded != "" {
		t.Errorf("loaded = %q, want empty", loaded)
	}
}

func TestLoadMalformedYAML(t *testing.T) {
	path := writeConfig(t, "embedding: [not: a: map")
	if _, err := Load(path, slog.Default()); err == nil {
		t.Fatal("Load: want parse error for malformed YAML, got nil")
	}
}

func TestFromEnvDefaults(t *testing.T) {
	for _, key := range []string{
		"EMBEDDING_MODEL", "EMBEDDING_DIM", "CHUNK_TOKEN_SIZE", "CHUNK_OVERLAP_RATIO",
	} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}

	s := FromEnv()
	if s.EmbeddingModel != DefaultEmbeddingModel {
		t.Errorf("EmbeddingModel = %q, want %q", s.EmbeddingModel, DefaultEmbeddingModel)
	}
	if s.EmbeddingDim != DefaultEmbeddingDim {
		t.Errorf("EmbeddingDim = %d, want %d", s.EmbeddingDim, DefaultEmbeddingDim)
	}
	if s.ChunkTokenSize != DefaultChunkTokenSize {
		t.Errorf("ChunkTokenSize = %d, want %d", s.ChunkTokenSize, DefaultChunkTokenSize)
	}
	if s.ChunkOverlapRatio != DefaultChunkOverlapRatio {
		t.Errorf("ChunkOverlapRatio = %v, want %v", s.ChunkOverlapRatio, DefaultChunkOverlapRatio)
	}
}

func TestFromEnvBadNumbersFallBack(t *testing.T) {
	t.Setenv("EMBEDDING_DIM", "not-a-number")
	t.Setenv("CHUNK_OVERLAP_RATIO", "lots")

	s := FromEnv()
	if s.EmbeddingDim != DefaultEmbeddingDim {
		t.Errorf("EmbeddingDim = %d, want default %d", s.EmbeddingDim, DefaultEmbeddingDim)
	}
	if s.ChunkOverlapRatio != DefaultChunkOverlapRatio {
		t.Errorf("ChunkOverlapRatio = %v, want default %v", s.ChunkOverlapRatio, DefaultChunkOverlapRatio)
	}
}
