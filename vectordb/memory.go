package vectordb

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/ragstack/ragchat/schema"
)

// MemoryProvider is a brute-force cosine store. It is the default for
// local single-process use and snapshots itself to a JSON file after
// every mutation so document loads survive restarts.
type MemoryProvider struct {
	mu          sync.RWMutex
	docs        map[string]schema.Document
	persistPath string
	log         *zap.Logger
}

func NewMemoryProvider(persistPath string, log *zap.Logger) (*MemoryProvider, error) {
	p := &MemoryProvider{
		docs:        make(map[string]schema.Document),
		persistPath: persistPath,
		log:         zapOrNop(log),
	}
	if persistPath != "" {
		if err := p.load(); err != nil {
			return nil, err
		}
	}
	return p, nil
}

func zapOrNop(l *zap.Logger) *zap.Logger {
	if l == nil {
		return zap.NewNop()
	}
	return l
}

func (p *MemoryProvider) GetProviderType() string { return "memory" }

func (p *MemoryProvider) AddDocs(ctx context.Context, docs []schema.Document) error {
	if len(docs) == 0 {
		return fmt.Errorf("no documents to add")
	}
	p.mu.Lock()
	for _, d := range docs {
		if d.ID == "" {
			p.mu.Unlock()
			return fmt.Errorf("document without id")
		}
		p.docs[d.ID] = d
	}
	p.mu.Unlock()
	return p.persist()
}

func (p *MemoryProvider) SearchDocs(ctx context.Context, vector []float32, opts schema.SearchOptions) ([]schema.SearchResult, error) {
	if len(vector) == 0 {
		return nil, fmt.Errorf("empty query vector")
	}
	topK := opts.TopK
	if topK <= 0 {
		topK = 5
	}
	p.mu.RLock()
	results := make([]schema.SearchResult, 0, len(p.docs))
	for _, d := range p.docs {
		score := cosineSimilarity(vector, d.Vector)
		results = append(results, schema.SearchResult{Document: d, Score: score})
	}
	p.mu.RUnlock()
	sort.Slice(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	if len(results) > topK {
		results = results[:topK]
	}
	return results, nil
}

func (p *MemoryProvider) ListDocs(ctx context.Context, limit int) ([]schema.Document, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	docs := make([]schema.Document, 0, len(p.docs))
	for _, d := range p.docs {
		docs = append(docs, d)
	}
	// stable order for callers that render the list
	sort.Slice(docs, func(i, j int) bool {
		if !docs[i].CreatedAt.Equal(docs[j].CreatedAt) {
			return docs[i].CreatedAt.Before(docs[j].CreatedAt)
		}
		return docs[i].ID < docs[j].ID
	})
	if limit > 0 && len(docs) > limit {
		docs = docs[:limit]
	}
	return docs, nil
}

func (p *MemoryProvider) DeleteDocs(ctx context.Context, ids []string) error {
	p.mu.Lock()
	for _, id := range ids {
		delete(p.docs, id)
	}
	p.mu.Unlock()
	return p.persist()
}

func (p *MemoryProvider) Count(ctx context.Context) (int, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.docs), nil
}

func (p *MemoryProvider) Reset(ctx context.Context) error {
	p.mu.Lock()
	p.docs = make(map[string]schema.Document)
	p.mu.Unlock()
	return p.persist()
}

func (p *MemoryProvider) Close() error {
	return p.persist()
}

// cosineSimilarity maps the raw cosine from [-1, 1] into [0, 1] so scores
// compare cleanly against the similarity threshold. Mismatched or zero
// vectors score 0.
func cosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	cos := dot / (math.Sqrt(na) * math.Sqrt(nb))
	return (cos + 1) / 2
}

type snapshot struct {
	Documents []schema.Document `json:"documents"`
}

func (p *MemoryProvider) load() error {
	data, err := os.ReadFile(p.persistPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read index snapshot failed, err: %w", err)
	}
	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return fmt.Errorf("parse index snapshot failed, err: %w", err)
	}
	for _, d := range snap.Documents {
		p.docs[d.ID] = d
	}
	p.log.Info("index snapshot loaded", zap.Int("documents", len(p.docs)))
	return nil
}

func (p *MemoryProvider) persist() error {
	if p.persistPath == "" {
		return nil
	}
	p.mu.RLock()
	snap := snapshot{Documents: make([]schema.Document, 0, len(p.docs))}
	for _, d := range p.docs {
		snap.Documents = append(snap.Documents, d)
	}
	p.mu.RUnlock()
	sort.Slice(snap.Documents, func(i, j int) bool { return snap.Documents[i].ID < snap.Documents[j].ID })
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encode index snapshot failed, err: %w", err)
	}
	tmp := p.persistPath + ".tmp"
	if err := os.MkdirAll(filepath.Dir(p.persistPath), 0o755); err != nil {
		return fmt.Errorf("create index directory failed, err: %w", err)
	}
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write index snapshot failed, err: %w", err)
	}
	if err := os.Rename(tmp, p.persistPath); err != nil {
		return fmt.Errorf("replace index snapshot failed, err: %w", err)
	}
	return nil
}
