// Package config defines the configuration for the ragchat service and
// loads it from a YAML file with environment variable overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Provider names accepted by the factories.
const (
	VectorDBProviderMemory = "memory"
	VectorDBProviderMilvus = "milvus"

	SplitterProviderSentence = "sentence"
	SplitterProviderToken    = "token"
)

// LLMConfig configures the chat completion endpoint. The endpoint must be
// OpenAI-compatible; LM Studio and Ollama both qualify.
type LLMConfig struct {
	BaseURL     string  `json:"base_url" yaml:"base_url"`
	APIKey      string  `json:"api_key" yaml:"api_key"`
	Model       string  `json:"model" yaml:"model"`
	Temperature float64 `json:"temperature" yaml:"temperature"`
	MaxTokens   int     `json:"max_tokens" yaml:"max_tokens"`
	TimeoutSec  int     `json:"timeout_sec" yaml:"timeout_sec"`
	MaxRetries  int     `json:"max_retries" yaml:"max_retries"`
}

// EmbeddingConfig configures the embedding endpoint and vector dimension.
type EmbeddingConfig struct {
	BaseURL    string `json:"base_url" yaml:"base_url"`
	APIKey     string `json:"api_key" yaml:"api_key"`
	Model      string `json:"model" yaml:"model"`
	Dimension  int    `json:"dimension" yaml:"dimension"`
	TimeoutSec int    `json:"timeout_sec" yaml:"timeout_sec"`
	MaxRetries int    `json:"max_retries" yaml:"max_retries"`
}

// VectorDBConfig selects and configures the vector store provider.
type VectorDBConfig struct {
	Provider   string `json:"provider" yaml:"provider"`
	Host       string `json:"host" yaml:"host"`
	Port       int    `json:"port" yaml:"port"`
	Collection string `json:"collection" yaml:"collection"`
	Database   string `json:"database" yaml:"database"`
	Username   string `json:"username" yaml:"username"`
	Password   string `json:"password" yaml:"password"`
	// PersistPath is where the memory provider snapshots its index.
	PersistPath string `json:"persist_path" yaml:"persist_path"`
}

// SplitterConfig configures the text chunker.
type SplitterConfig struct {
	Provider     string `json:"provider" yaml:"provider"`
	ChunkSize    int    `json:"chunk_size" yaml:"chunk_size"`
	ChunkOverlap int    `json:"chunk_overlap" yaml:"chunk_overlap"`
}

// RetrievalConfig controls similarity search behavior.
type RetrievalConfig struct {
	TopK      int     `json:"top_k" yaml:"top_k"`
	Threshold float64 `json:"threshold" yaml:"threshold"`
	// CacheSize and CacheTTLSec enable the retrieval result cache when
	// CacheSize > 0.
	CacheSize   int `json:"cache_size" yaml:"cache_size"`
	CacheTTLSec int `json:"cache_ttl_sec" yaml:"cache_ttl_sec"`
}

// MemoryConfig controls conversation memory and persistence.
type MemoryConfig struct {
	MaxTurns       int    `json:"max_turns" yaml:"max_turns"`
	Dir            string `json:"dir" yaml:"dir"`
	SessionTTLHour int    `json:"session_ttl_hour" yaml:"session_ttl_hour"`
}

// AgentConfig controls the query router.
type AgentConfig struct {
	// LLMClarifyCheck enables the LLM-assisted clarification decision when
	// none of the deterministic conditions fire.
	LLMClarifyCheck bool `json:"llm_clarify_check" yaml:"llm_clarify_check"`
	// IntentRouting enables intent classification before retrieval.
	IntentRouting bool `json:"intent_routing" yaml:"intent_routing"`
	MaxIterations int  `json:"max_iterations" yaml:"max_iterations"`
}

// SQLConfig configures the optional SQL agent.
type SQLConfig struct {
	Enable bool   `json:"enable" yaml:"enable"`
	DBPath string `json:"db_path" yaml:"db_path"`
}

// Config is the root configuration.
type Config struct {
	LLM       LLMConfig       `json:"llm" yaml:"llm"`
	Embedding EmbeddingConfig `json:"embedding" yaml:"embedding"`
	VectorDB  VectorDBConfig  `json:"vectordb" yaml:"vectordb"`
	Splitter  SplitterConfig  `json:"splitter" yaml:"splitter"`
	Retrieval RetrievalConfig `json:"retrieval" yaml:"retrieval"`
	Memory    MemoryConfig    `json:"memory" yaml:"memory"`
	Agent     AgentConfig     `json:"agent" yaml:"agent"`
	SQL       SQLConfig       `json:"sql" yaml:"sql"`
	// DocumentsPath is the default directory for --load-docs and watch mode.
	DocumentsPath string `json:"documents_path" yaml:"documents_path"`
}

// Default returns a configuration usable against a local LM Studio
// instance without any file or environment input.
func Default() *Config {
	return &Config{
		LLM: LLMConfig{
			BaseURL:     "http://localhost:1234/v1",
			APIKey:      "lm-studio",
			Model:       "local-model",
			Temperature: 0.7,
			MaxTokens:   2048,
			TimeoutSec:  60,
			MaxRetries:  3,
		},
		Embedding: EmbeddingConfig{
			BaseURL:    "http://localhost:1234/v1",
			APIKey:     "lm-studio",
			Model:      "text-embedding-nomic-embed-text-v1.5",
			Dimension:  384,
			TimeoutSec: 30,
			MaxRetries: 3,
		},
		VectorDB: VectorDBConfig{
			Provider:    VectorDBProviderMemory,
			Collection:  "documents",
			PersistPath: "data/index.json",
		},
		Splitter: SplitterConfig{
			Provider:     SplitterProviderSentence,
			ChunkSize:    1000,
			ChunkOverlap: 200,
		},
		Retrieval: RetrievalConfig{
			TopK:        5,
			Threshold:   0.7,
			CacheSize:   128,
			CacheTTLSec: 300,
		},
		Memory: MemoryConfig{
			MaxTurns:       20,
			Dir:            "data/conversations",
			SessionTTLHour: 24,
		},
		Agent: AgentConfig{
			MaxIterations: 3,
		},
		DocumentsPath: "documents",
	}
}

// Load reads the YAML file at path when it exists, applies environment
// overrides, validates, and returns the result. A missing file is not an
// error; defaults plus environment are used.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("read config failed, err: %w", err)
			}
		} else if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config failed, err: %w", err)
		}
	}
	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks field ranges and creates the directories the service
// needs at runtime.
func (c *Config) Validate() error {
	if c.LLM.BaseURL == "" {
		return fmt.Errorf("llm base_url is required")
	}
	if c.Embedding.BaseURL == "" {
		c.Embedding.BaseURL = c.LLM.BaseURL
	}
	if c.Embedding.Dimension <= 0 {
		return fmt.Errorf("embedding dimension must be positive, got %d", c.Embedding.Dimension)
	}
	if c.Splitter.ChunkSize <= 0 {
		return fmt.Errorf("splitter chunk_size must be positive, got %d", c.Splitter.ChunkSize)
	}
	if c.Splitter.ChunkOverlap < 0 || c.Splitter.ChunkOverlap >= c.Splitter.ChunkSize {
		return fmt.Errorf("splitter chunk_overlap must be in [0, chunk_size), got %d", c.Splitter.ChunkOverlap)
	}
	switch c.Splitter.Provider {
	case SplitterProviderSentence, SplitterProviderToken:
	default:
		return fmt.Errorf("unsupported splitter provider: %s", c.Splitter.Provider)
	}
	switch c.VectorDB.Provider {
	case VectorDBProviderMemory, VectorDBProviderMilvus:
	default:
		return fmt.Errorf("unsupported vectordb provider: %s", c.VectorDB.Provider)
	}
	if c.Retrieval.TopK <= 0 {
		return fmt.Errorf("retrieval top_k must be positive, got %d", c.Retrieval.TopK)
	}
	if c.Retrieval.Threshold < 0 || c.Retrieval.Threshold > 1 {
		return fmt.Errorf("retrieval threshold must be in [0, 1], got %v", c.Retrieval.Threshold)
	}
	if c.Memory.MaxTurns <= 0 {
		return fmt.Errorf("memory max_turns must be positive, got %d", c.Memory.MaxTurns)
	}
	for _, dir := range []string{c.Memory.Dir, c.DocumentsPath} {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %s failed, err: %w", dir, err)
		}
	}
	if c.VectorDB.Provider == VectorDBProviderMemory && c.VectorDB.PersistPath != "" {
		if err := os.MkdirAll(filepath.Dir(c.VectorDB.PersistPath), 0o755); err != nil {
			return fmt.Errorf("create index directory failed, err: %w", err)
		}
	}
	return nil
}
