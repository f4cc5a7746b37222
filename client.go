// Package ragchat wires the document store, conversation memory, LLM
// gateway and query router into one client.
package ragchat

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ragstack/ragchat/agent"
	"github.com/ragstack/ragchat/cache"
	"github.com/ragstack/ragchat/config"
	"github.com/ragstack/ragchat/embedding"
	"github.com/ragstack/ragchat/extract"
	"github.com/ragstack/ragchat/llm"
	"github.com/ragstack/ragchat/memory"
	"github.com/ragstack/ragchat/metrics"
	"github.com/ragstack/ragchat/schema"
	"github.com/ragstack/ragchat/sqlagent"
	"github.com/ragstack/ragchat/textsplitter"
	"github.com/ragstack/ragchat/vectordb"
)

// Client is the top-level entry point used by the CLI and the MCP
// server.
type Client struct {
	cfg      *config.Config
	log      *zap.Logger
	llm      llm.Provider
	embedder embedding.Provider
	gateway  *llm.Gateway
	store    vectordb.Provider
	splitter textsplitter.Splitter
	sessions memory.Store
	router   *agent.Router
	results  *cache.ResultCache
	health   *llm.HealthChecker
	sql      *sqlagent.Agent

	// indexVersion invalidates the retrieval cache on every mutation.
	indexVersion atomic.Uint64
}

// NewClient builds every component from the configuration.
func NewClient(ctx context.Context, cfg *config.Config, log *zap.Logger) (*Client, error) {
	if log == nil {
		log = zap.NewNop()
	}
	llmProvider, err := llm.NewProvider(cfg.LLM)
	if err != nil {
		return nil, fmt.Errorf("create llm provider failed, err: %w", err)
	}
	embedder, err := embedding.NewProvider(cfg.Embedding)
	if err != nil {
		return nil, fmt.Errorf("create embedding provider failed, err: %w", err)
	}
	store, err := vectordb.NewProvider(ctx, cfg.VectorDB, cfg.Embedding.Dimension, log)
	if err != nil {
		return nil, fmt.Errorf("create vectordb provider failed, err: %w", err)
	}
	splitter, err := textsplitter.NewSplitter(cfg.Splitter)
	if err != nil {
		return nil, fmt.Errorf("create splitter failed, err: %w", err)
	}
	sessionTTL := time.Duration(cfg.Memory.SessionTTLHour) * time.Hour
	sessions, err := memory.NewFileStore(cfg.Memory.Dir, cfg.Memory.MaxTurns, sessionTTL, log)
	if err != nil {
		return nil, fmt.Errorf("create session store failed, err: %w", err)
	}

	c := &Client{
		cfg:      cfg,
		log:      log,
		llm:      llmProvider,
		embedder: embedder,
		gateway:  llm.NewGateway(llmProvider, embedder, cfg.Embedding.Dimension, log),
		store:    store,
		splitter: splitter,
		sessions: sessions,
		health:   llm.NewHealthChecker(cfg.LLM.BaseURL, cfg.LLM.APIKey, log),
	}
	if cfg.Retrieval.CacheSize > 0 {
		c.results = cache.New(cfg.Retrieval.CacheSize, time.Duration(cfg.Retrieval.CacheTTLSec)*time.Second)
	}

	var sqlAnswerer agent.SQLAnswerer
	if cfg.SQL.Enable {
		sqlAgent, err := sqlagent.New(cfg.SQL.DBPath, c.gateway, log)
		if err != nil {
			return nil, fmt.Errorf("create sql agent failed, err: %w", err)
		}
		c.sql = sqlAgent
		sqlAnswerer = sqlAgent
	}
	c.router = agent.NewRouter(c.gateway, c, sqlAnswerer, cfg.Retrieval.Threshold, cfg.Agent, log)
	sessions.Clean()
	return c, nil
}

// Close flushes the index snapshot and releases resources.
func (c *Client) Close() error {
	var firstErr error
	if c.sql != nil {
		if err := c.sql.Close(); err != nil {
			firstErr = err
		}
	}
	if err := c.store.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}

// AddDocuments chunks nothing; it indexes the given texts as-is, one
// document per text, with a fresh id each. Texts and metadatas must have
// equal length; metadatas may be nil.
func (c *Client) AddDocuments(ctx context.Context, texts []string, metadatas []map[string]interface{}) (int, error) {
	if len(texts) == 0 {
		return 0, fmt.Errorf("no texts to add")
	}
	if metadatas != nil && len(metadatas) != len(texts) {
		return 0, fmt.Errorf("texts and metadatas length mismatch: %d vs %d", len(texts), len(metadatas))
	}
	vectors, err := c.embedder.GetEmbeddings(ctx, texts)
	if err != nil {
		return 0, fmt.Errorf("embed documents failed, err: %w", err)
	}
	if len(vectors) != len(texts) {
		return 0, fmt.Errorf("embedding count mismatch: %d texts, %d vectors", len(texts), len(vectors))
	}
	now := time.Now().UTC()
	docs := make([]schema.Document, len(texts))
	for i, text := range texts {
		var meta map[string]interface{}
		if metadatas != nil {
			meta = metadatas[i]
		}
		docs[i] = schema.Document{
			ID:        uuid.NewString(),
			Content:   text,
			Metadata:  meta,
			Vector:    vectors[i],
			CreatedAt: now,
		}
	}
	if err := c.store.AddDocs(ctx, docs); err != nil {
		return 0, fmt.Errorf("store documents failed, err: %w", err)
	}
	c.bumpIndex()
	return len(docs), nil
}

// LoadFile extracts, chunks and indexes one file. Returns the number of
// chunks indexed.
func (c *Client) LoadFile(ctx context.Context, path string) (int, error) {
	if !extract.Supported(path) {
		return 0, fmt.Errorf("unsupported file type: %s", filepath.Ext(path))
	}
	text, err := extract.Text(path)
	if err != nil {
		return 0, fmt.Errorf("extract %s failed, err: %w", path, err)
	}
	chunks, err := c.splitter.SplitText(text)
	if err != nil {
		return 0, fmt.Errorf("split %s failed, err: %w", path, err)
	}
	if len(chunks) == 0 {
		return 0, fmt.Errorf("%s contains no indexable text", path)
	}
	source := filepath.Base(path)
	loadedAt := time.Now().UTC().Format(time.RFC3339)
	metadatas := make([]map[string]interface{}, len(chunks))
	for i, chunk := range chunks {
		metadatas[i] = map[string]interface{}{
			schema.MetaSource:     source,
			schema.MetaFileType:   strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), "."),
			schema.MetaChunkIndex: i,
			schema.MetaChunkSize:  len(chunk),
			schema.MetaLoadedAt:   loadedAt,
		}
	}
	return c.AddDocuments(ctx, chunks, metadatas)
}

// LoadDirectory indexes every supported file under dir. Individual file
// failures are logged and skipped; the walk itself failing is an error.
func (c *Client) LoadDirectory(ctx context.Context, dir string) (files, chunks int, err error) {
	walkErr := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !extract.Supported(path) {
			return nil
		}
		n, err := c.LoadFile(ctx, path)
		if err != nil {
			c.log.Warn("skipping file", zap.String("path", path), zap.Error(err))
			return nil
		}
		files++
		chunks += n
		return nil
	})
	if walkErr != nil {
		return files, chunks, fmt.Errorf("walk %s failed, err: %w", dir, walkErr)
	}
	c.log.Info("directory loaded", zap.String("dir", dir), zap.Int("files", files), zap.Int("chunks", chunks))
	return files, chunks, nil
}

// Retrieve implements agent.Retriever: embed the query and search,
// consulting the result cache first.
func (c *Client) Retrieve(ctx context.Context, query string) ([]schema.SearchResult, bool, error) {
	var key string
	if c.results != nil {
		key = cache.Key(query, c.indexVersion.Load())
		if results, ok := c.results.Get(key); ok {
			metrics.IncCache(true)
			return results, true, nil
		}
		metrics.IncCache(false)
	}
	vector, err := c.embedder.GetEmbedding(ctx, query)
	if err != nil {
		metrics.IncLLMFallback("embedding")
		return nil, false, fmt.Errorf("embed query failed, err: %w", err)
	}
	start := time.Now()
	results, err := c.store.SearchDocs(ctx, vector, schema.SearchOptions{
		TopK:      c.cfg.Retrieval.TopK,
		Threshold: c.cfg.Retrieval.Threshold,
	})
	if err != nil {
		return nil, false, fmt.Errorf("search failed, err: %w", err)
	}
	metrics.ObserveRetrieval(c.store.GetProviderType(), start, len(results))
	if c.results != nil {
		c.results.Set(key, results)
	}
	return results, false, nil
}

// SimilaritySearch is the public read path: empty slice on any failure.
func (c *Client) SimilaritySearch(ctx context.Context, query string, k int) []schema.SearchResult {
	if k <= 0 {
		k = c.cfg.Retrieval.TopK
	}
	vector, err := c.embedder.GetEmbedding(ctx, query)
	if err != nil {
		c.log.Warn("similarity search embed failed", zap.Error(err))
		return nil
	}
	results, err := c.store.SearchDocs(ctx, vector, schema.SearchOptions{TopK: k})
	if err != nil {
		c.log.Warn("similarity search failed", zap.Error(err))
		return nil
	}
	return results
}

// Chat runs one query through the router inside the given session and
// records both turns.
func (c *Client) Chat(ctx context.Context, sessionID, query string) (string, *agent.State, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return "", nil, fmt.Errorf("empty query")
	}
	session, err := c.sessions.GetOrCreate(sessionID)
	if err != nil {
		return "", nil, fmt.Errorf("open session failed, err: %w", err)
	}
	in := agent.Input{
		SessionID:     session.ID,
		Query:         query,
		Context:       session.ContextWindow(),
		FollowUp:      session.IsFollowUp(query),
		RecentQueries: session.RecentUserQueries(2),
	}
	state := c.router.Run(ctx, in)

	if _, err := c.sessions.AddTurn(session.ID, memory.RoleUser, query,
		map[string]interface{}{"intent": state.Intent}); err != nil {
		return "", nil, fmt.Errorf("record user turn failed, err: %w", err)
	}
	meta := map[string]interface{}{"clarified": state.NeedsClarification}
	if sources := state.Sources(); len(sources) > 0 {
		meta["sources"] = sources
	}
	if _, err := c.sessions.AddTurn(session.ID, memory.RoleAssistant, state.FinalResponse, meta); err != nil {
		return "", nil, fmt.Errorf("record assistant turn failed, err: %w", err)
	}
	return state.FinalResponse, state, nil
}

// CreateChunk indexes a single piece of text with a caller-chosen source
// label. Used by the MCP surface.
func (c *Client) CreateChunk(ctx context.Context, content, source string) (*schema.Document, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, fmt.Errorf("empty content")
	}
	if source == "" {
		source = "inline"
	}
	vector, err := c.embedder.GetEmbedding(ctx, content)
	if err != nil {
		return nil, fmt.Errorf("embed chunk failed, err: %w", err)
	}
	doc := schema.Document{
		ID:      uuid.NewString(),
		Content: content,
		Metadata: map[string]interface{}{
			schema.MetaSource:    source,
			schema.MetaChunkSize: len(content),
			schema.MetaLoadedAt:  time.Now().UTC().Format(time.RFC3339),
		},
		Vector:    vector,
		CreatedAt: time.Now().UTC(),
	}
	if err := c.store.AddDocs(ctx, []schema.Document{doc}); err != nil {
		return nil, fmt.Errorf("store chunk failed, err: %w", err)
	}
	c.bumpIndex()
	return &doc, nil
}

// ListChunks returns up to limit indexed documents.
func (c *Client) ListChunks(ctx context.Context, limit int) ([]schema.Document, error) {
	return c.store.ListDocs(ctx, limit)
}

// DeleteChunks removes documents by id.
func (c *Client) DeleteChunks(ctx context.Context, ids []string) error {
	if err := c.store.DeleteDocs(ctx, ids); err != nil {
		return err
	}
	c.bumpIndex()
	return nil
}

// ResetIndex drops every indexed document.
func (c *Client) ResetIndex(ctx context.Context) error {
	if err := c.store.Reset(ctx); err != nil {
		return err
	}
	c.bumpIndex()
	return nil
}

// IndexStats summarizes the document store.
type IndexStats struct {
	TotalChunks int            `json:"total_chunks"`
	BySource    map[string]int `json:"by_source"`
	ByFileType  map[string]int `json:"by_file_type"`
}

// Stats aggregates index contents by source and file type.
func (c *Client) Stats(ctx context.Context) (*IndexStats, error) {
	docs, err := c.store.ListDocs(ctx, 0)
	if err != nil {
		return nil, fmt.Errorf("list documents failed, err: %w", err)
	}
	stats := &IndexStats{
		TotalChunks: len(docs),
		BySource:    make(map[string]int),
		ByFileType:  make(map[string]int),
	}
	for _, d := range docs {
		stats.BySource[d.Source()]++
		if ft, ok := d.Metadata[schema.MetaFileType].(string); ok && ft != "" {
			stats.ByFileType[ft]++
		}
	}
	return stats, nil
}

// Sessions exposes the session store to the CLI and MCP surfaces.
func (c *Client) Sessions() memory.Store {
	return c.sessions
}

// Health exposes the model server probe.
func (c *Client) Health() *llm.HealthChecker {
	return c.health
}

// Config returns the active configuration.
func (c *Client) Config() *config.Config {
	return c.cfg
}

func (c *Client) bumpIndex() {
	c.indexVersion.Add(1)
}

// ExportSession writes a session to path as JSON.
func (c *Client) ExportSession(sessionID, path string) error {
	session, err := c.sessions.Get(sessionID)
	if err != nil {
		return err
	}
	data, err := session.Export()
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write export failed, err: %w", err)
	}
	return nil
}

// ImportSession loads a previously exported session from path.
func (c *Client) ImportSession(path string) (*memory.Session, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read import failed, err: %w", err)
	}
	session, err := memory.ImportSession(data)
	if err != nil {
		return nil, err
	}
	if err := c.sessions.Save(session); err != nil {
		return nil, err
	}
	return session, nil
}
