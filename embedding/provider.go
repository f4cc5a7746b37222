// Package embedding wraps text embedding providers.
package embedding

import (
	"context"
	"fmt"

	"github.com/ragstack/ragchat/config"
)

// Provider turns text into embedding vectors.
type Provider interface {
	GetEmbedding(ctx context.Context, text string) ([]float32, error)
	GetEmbeddings(ctx context.Context, texts []string) ([][]float32, error)
	// Dimension is the vector length this provider produces.
	Dimension() int
	GetProviderType() string
}

// NewProvider builds a provider from configuration.
func NewProvider(cfg config.EmbeddingConfig) (Provider, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("embedding base_url is required")
	}
	if cfg.Model == "" {
		return nil, fmt.Errorf("embedding model is required")
	}
	if cfg.Dimension <= 0 {
		return nil, fmt.Errorf("embedding dimension must be positive, got %d", cfg.Dimension)
	}
	return newOpenAIProvider(cfg), nil
}
