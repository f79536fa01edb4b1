// Package config provides YAML-based configuration for legalaide.
// Configuration is loaded with a layered precedence: defaults → YAML file → env vars.
// Environment variables always win, so existing workflows are unaffected.
//
// File search order:
//  1. --config CLI flag (explicit path)
//  2. LEGALAIDE_CONFIG environment variable
//  3. ~/.legalaide/config.yaml
//  4. ./legalaide.yaml
//
// If no file is found the system runs entirely from env vars (backwards compatible).
package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is the top-level YAML configuration structure.
// Field names use yaml tags that mirror the env var naming (lowercase, underscored).
type Config struct {
	// Database configures the Postgres/pgvector connection.
	Database DatabaseConfig `yaml:"database"`

	// Embedding configures the embedding provider.
	Embedding EmbeddingConfig `yaml:"embedding"`

	// LLM configures the answer-synthesis language model.
	LLM LLMConfig `yaml:"llm"`

	// Chunking configures the token-windowed chunker.
	Chunking ChunkingConfig `yaml:"chunking"`

	// OCR configures the scanned-document fallback path.
	OCR OCRConfig `yaml:"ocr"`

	// Server configures the HTTP server.
	Server ServerConfig `yaml:"server"`

	// Sync configures the eLibrary sync queue.
	Sync SyncConfig `yaml:"sync"`

	// Logging configures structured logging.
	Logging LoggingConfig `yaml:"logging"`
}

// DatabaseConfig holds Postgres connection settings.
type DatabaseConfig struct {
	// URL is the Postgres connection string. Prefer env var DATABASE_URL.
	URL string `yaml:"url"`
}

// EmbeddingConfig holds embedding provider settings.
type EmbeddingConfig struct {
	// Model is the embedding model name.
	Model string `yaml:"model"`
	// Dimension is the fixed embedding vector length.
	Dimension int `yaml:"dimension"`
	// APIURL is the remote embeddings endpoint. Empty enables the offline fallback.
	APIURL string `yaml:"api_url"`
	// APIKey is the embedding API key. Prefer env var EMBEDDING_API_KEY.
	APIKey string `yaml:"api_key"`
}

// LLMConfig holds language-model settings for answer synthesis.
type LLMConfig struct {
	// Model is the chat model name. Empty enables the offline fallback.
	Model string `yaml:"model"`
	// APIURL is the chat-completions endpoint.
	APIURL string `yaml:"api_url"`
	// APIKey is the LLM API key. Prefer env var LLM_API_KEY.
	APIKey string `yaml:"api_key"`
}

// ChunkingConfig holds chunker settings.
type ChunkingConfig struct {
	// TokenSize is the target token count per chunk.
	TokenSize int `yaml:"token_size"`
	// OverlapRatio is the sliding-window overlap fraction (0.0–1.0).
	OverlapRatio float64 `yaml:"overlap_ratio"`
}

// OCRConfig holds scanned-document extraction settings.
type OCRConfig struct {
	// TesseractCmd overrides the tesseract binary path.
	TesseractCmd string `yaml:"tesseract_cmd"`
	// PdftoppmCmd overrides the pdftoppm binary path.
	PdftoppmCmd string `yaml:"pdftoppm_cmd"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host is the bind address.
	Host string `yaml:"host"`
	// Port is the TCP port.
	Port int `yaml:"port"`
	// APIKey is the Bearer token for API authentication. Prefer env var LEGALAIDE_API_KEY.
	APIKey string `yaml:"api_key"`
}

// SyncConfig holds eLibrary sync settings.
type SyncConfig struct {
	// DBPath is the SQLite queue database path.
	DBPath string `yaml:"db_path"`
	// DownloadDir is where fetched decision files are stored.
	DownloadDir string `yaml:"download_dir"`
	// BaseURL is the eLibrary base URL.
	BaseURL string `yaml:"base_url"`
}

// LoggingConfig holds structured logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error.
	Level string `yaml:"level"`
	// Format is the log output format: json, text.
	Format string `yaml:"format"`
}

// envMapping maps YAML config fields to their corresponding env var names.
// Only non-empty YAML values are applied; env vars always take precedence.
var envMapping = []struct {
	envKey string
	value  func(*Config) string
}{
	{"DATABASE_URL", func(c *Config) string { return c.Database.URL }},
	{"EMBEDDING_MODEL", func(c *Config) string { return c.Embedding.Model }},
	{"EMBEDDING_DIM", func(c *Config) string { return intStr(c.Embedding.Dimension) }},
	{"EMBEDDING_API_URL", func(c *Config) string { return c.Embedding.APIURL }},
	{"EMBEDDING_API_KEY", func(c *Config) string { return c.Embedding.APIKey }},
	{"LLM_MODEL", func(c *Config) string { return c.LLM.Model }},
	{"LLM_API_URL", func(c *Config) string { return c.LLM.APIURL }},
	{"LLM_API_KEY", func(c *Config) string { return c.LLM.APIKey }},
	{"CHUNK_TOKEN_SIZE", func(c *Config) string { return intStr(c.Chunking.TokenSize) }},
	{"CHUNK_OVERLAP_RATIO", func(c *Config) string { return floatStr(c.Chunking.OverlapRatio) }},
	{"TESSERACT_CMD", func(c *Config) string { return c.OCR.TesseractCmd }},
	{"PDFTOPPM_CMD", func(c *Config) string { return c.OCR.PdftoppmCmd }},
	{"LEGALAIDE_HOST", func(c *Config) string { return c.Server.Host }},
	{"LEGALAIDE_PORT", func(c *Config) string { return intStr(c.Server.Port) }},
	{"LEGALAIDE_API_KEY", func(c *Config) string { return c.Server.APIKey }},
	{"SYNC_DB_PATH", func(c *Config) string { return c.Sync.DBPath }},
	{"SYNC_DOWNLOAD_DIR", func(c *Config) string { return c.Sync.DownloadDir }},
	{"ELIBRARY_BASE_URL", func(c *Config) string { return c.Sync.BaseURL }},
	{"LOG_LEVEL", func(c *Config) string { return c.Logging.Level }},
	{"LOG_FORMAT", func(c *Config) string { return c.Logging.Format }},
}

// Load reads a YAML config file and applies non-empty values as environment
// variables. Existing env vars are never overwritten (env always wins).
// Returns the path that was loaded, or empty string if no file was found.
func Load(explicitPath string, log *slog.Logger) (string, error) {
	path := resolveConfigPath(explicitPath)
	if path == "" {
		log.Debug("config: no YAML config file found, using env vars only")
		return "", nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("config: failed to read %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return "", fmt.Errorf("config: failed to parse %s: %w", path, err)
	}

	applied := 0
	for _, m := range envMapping {
		yamlVal := m.value(&cfg)
		if yamlVal == "" || yamlVal == "0" {
			continue
		}
		if os.Getenv(m.envKey) != "" {
			continue // env var already set — do not override
		}
		os.Setenv(m.envKey, yamlVal)
		applied++
	}

	log.Info("config: loaded YAML config",
		slog.String("path", path),
		slog.Int("keys_applied", applied),
	)

	return path, nil
}

// resolveConfigPath returns the first config file path that exists.
func resolveConfigPath(explicit string) string {
	if explicit != "" {
		if _, err := os.Stat(explicit); err == nil {
			return explicit
		}
		return ""
	}

	if envPath := os.Getenv("LEGALAIDE_CONFIG"); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}

	home, err := os.UserHomeDir()
	if err == nil {
		p := filepath.Join(home, ".legalaide", "config.yaml")
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}

	if _, err := os.Stat("legalaide.yaml"); err == nil {
		return "legalaide.yaml"
	}

	return ""
}

// intStr converts an int to string, returning "" for zero values.
func intStr(v int) string {
	if v == 0 {
		return ""
	}
	return fmt.Sprintf("%d", v)
}

// floatStr converts a float64 to string, returning "" for zero values.
func floatStr(v float64) string {
	if v == 0 {
		return ""
	}
	return strings.TrimRight(strings.TrimRight(fmt.Sprintf("%.4f", v), "0"), ".")
}
