// Package config loads the codeatlas configuration file.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/telliott/codeatlas/internal/chunk"
)

// Config holds process configuration. Chunking options are validated at
// load time; an invalid budget is fatal.
type Config struct {
	Chunking  chunk.Config    `yaml:"chunking"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Storage   StorageConfig   `yaml:"storage"`
	Indexing  IndexingConfig  `yaml:"indexing"`
	Logging   LoggingConfig   `yaml:"logging"`
}

type EmbeddingConfig struct {
	Provider  string `yaml:"provider"` // "voyage"
	Model     string `yaml:"model"`
	APIKeyEnv string `yaml:"api_key_env"`
}

type StorageConfig struct {
	QdrantURL  string `yaml:"qdrant_url"`
	RedisURL   string `yaml:"redis_url"`
	Collection string `yaml:"collection"`
}

type IndexingConfig struct {
	Include     []string `yaml:"include"`
	Exclude     []string `yaml:"exclude"`
	Concurrency int      `yaml:"concurrency"`
}

type LoggingConfig struct {
	Level       string `yaml:"level"` // error|warn|info|debug
	MetricsPath string `yaml:"metrics_path"`
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Chunking: chunk.DefaultConfig(),
		Embedding: EmbeddingConfig{
			Provider:  "voyage",
			Model:     "voyage-3",
			APIKeyEnv: "VOYAGE_API_KEY",
		},
		Storage: StorageConfig{
			QdrantURL:  "http://localhost:6333",
			RedisURL:   "redis://localhost:6379",
			Collection: "chunks",
		},
		Indexing: IndexingConfig{
			Concurrency: 4,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load reads config from path, falling back to defaults when the file
// does not exist. Partial files override only the keys they set.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	if err := cfg.Chunking.Validate(); err != nil {
		return nil, fmt.Errorf("%s: chunking: %w", path, err)
	}
	if cfg.Indexing.Concurrency < 1 {
		cfg.Indexing.Concurrency = 1
	}

	return cfg, nil
}
