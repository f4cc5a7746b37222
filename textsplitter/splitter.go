// Package textsplitter chunks document text for indexing.
package textsplitter

import (
	"fmt"

	"github.com/ragstack/ragchat/config"
)

// Splitter cuts text into chunks. Implementations never return empty
// chunks and always terminate, even on pathological input.
type Splitter interface {
	SplitText(text string) ([]string, error)
	GetProviderType() string
}

// NewSplitter builds the configured splitter.
func NewSplitter(cfg config.SplitterConfig) (Splitter, error) {
	if cfg.ChunkSize <= 0 {
		return nil, fmt.Errorf("chunk size must be positive, got %d", cfg.ChunkSize)
	}
	if cfg.ChunkOverlap < 0 || cfg.ChunkOverlap >= cfg.ChunkSize {
		return nil, fmt.Errorf("chunk overlap must be in [0, chunk size), got %d", cfg.ChunkOverlap)
	}
	switch cfg.Provider {
	case config.SplitterProviderSentence, "":
		return &SentenceSplitter{ChunkSize: cfg.ChunkSize, ChunkOverlap: cfg.ChunkOverlap}, nil
	case config.SplitterProviderToken:
		return newTokenSplitter(cfg.ChunkSize, cfg.ChunkOverlap)
	default:
		return nil, fmt.Errorf("unsupported splitter provider: %s", cfg.Provider)
	}
}
