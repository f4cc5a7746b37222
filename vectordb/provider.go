// Package vectordb abstracts the vector store behind a provider interface
// with a local in-memory implementation and a Milvus-backed one.
package vectordb

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/ragstack/ragchat/config"
	"github.com/ragstack/ragchat/schema"
)

// Provider stores documents with embeddings and answers k-NN queries.
// Scores in search results are cosine similarities; higher is more
// similar. Searches return at most TopK results ordered by score
// descending; the threshold in SearchOptions is applied by the caller,
// not the store.
type Provider interface {
	GetProviderType() string
	AddDocs(ctx context.Context, docs []schema.Document) error
	SearchDocs(ctx context.Context, vector []float32, opts schema.SearchOptions) ([]schema.SearchResult, error)
	ListDocs(ctx context.Context, limit int) ([]schema.Document, error)
	DeleteDocs(ctx context.Context, ids []string) error
	Count(ctx context.Context) (int, error)
	Reset(ctx context.Context) error
	Close() error
}

// NewProvider builds the configured provider.
func NewProvider(ctx context.Context, cfg config.VectorDBConfig, dim int, log *zap.Logger) (Provider, error) {
	switch cfg.Provider {
	case config.VectorDBProviderMemory:
		return NewMemoryProvider(cfg.PersistPath, log)
	case config.VectorDBProviderMilvus:
		return newMilvusProvider(ctx, cfg, dim)
	default:
		return nil, fmt.Errorf("unsupported vectordb provider: %s", cfg.Provider)
	}
}
