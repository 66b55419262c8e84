package kgweave

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultModel is the embedding model registered when none is configured.
const DefaultModel = "all-MiniLM-L6-v2"

// Config holds all configuration for the import engine.
type Config struct {
	// DBPath is the full path to the SQLite database file. When empty it
	// defaults to <input>/unified.db at run time.
	DBPath string `json:"db_path" yaml:"db_path"`

	// EmbeddingsDir is created at connect time and handed to downstream
	// embedding jobs. Defaults to <input>/embeddings.
	EmbeddingsDir string `json:"embeddings_dir" yaml:"embeddings_dir"`

	// Model is the embedding model name to register. Its dimension sizes
	// the answer vector table.
	Model string `json:"model" yaml:"model"`
}

// DefaultConfig returns a Config with the default embedding model. Paths
// are resolved against the input directory when left empty.
func DefaultConfig() Config {
	return Config{Model: DefaultModel}
}

// LoadConfig reads a config file, overlaying it on DefaultConfig. The
// format is chosen by extension: .yaml/.yml is YAML, anything else JSON.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("reading config: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("%w: parsing %s: %v", ErrInvalidConfig, path, err)
		}
	default:
		if err := json.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("%w: parsing %s: %v", ErrInvalidConfig, path, err)
		}
	}

	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	return cfg, nil
}

// resolve fills empty paths from the input directory.
func (c *Config) resolve(inputDir string) {
	if c.DBPath == "" {
		c.DBPath = filepath.Join(inputDir, "unified.db")
	}
	if c.EmbeddingsDir == "" {
		c.EmbeddingsDir = filepath.Join(inputDir, "embeddings")
	}
	if c.Model == "" {
		c.Model = DefaultModel
	}
}
