package ragchat

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/ragstack/ragchat/agent"
	"github.com/ragstack/ragchat/cache"
	"github.com/ragstack/ragchat/config"
	"github.com/ragstack/ragchat/llm"
	"github.com/ragstack/ragchat/memory"
	"github.com/ragstack/ragchat/textsplitter"
	"github.com/ragstack/ragchat/vectordb"
)

// keywordEmbedder maps texts onto axes by keyword so similarity behaves
// predictably without a model server.
type keywordEmbedder struct{}

func (keywordEmbedder) Dimension() int          { return 3 }
func (keywordEmbedder) GetProviderType() string { return "keyword" }

func (e keywordEmbedder) GetEmbedding(ctx context.Context, text string) ([]float32, error) {
	t := strings.ToLower(text)
	switch {
	case strings.Contains(t, "docker"):
		return []float32{1, 0, 0}, nil
	case strings.Contains(t, "kubernetes"):
		return []float32{0, 1, 0}, nil
	default:
		return []float32{0, 0, 1}, nil
	}
}

func (e keywordEmbedder) GetEmbeddings(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i], _ = e.GetEmbedding(ctx, t)
	}
	return out, nil
}

type cannedLLM struct{ answer string }

func (m cannedLLM) GetProviderType() string { return "canned" }

func (m cannedLLM) GenerateCompletion(ctx context.Context, systemPrompt, prompt string) (string, error) {
	return m.answer, nil
}

func (m cannedLLM) ChatCompletion(ctx context.Context, messages []llm.Message) (string, error) {
	return m.answer, nil
}

func newTestClient(t *testing.T, answer string) *Client {
	t.Helper()
	cfg := config.Default()
	cfg.Retrieval.Threshold = 0.7
	cfg.Memory.Dir = t.TempDir()
	store, err := vectordb.NewMemoryProvider("", nil)
	if err != nil {
		t.Fatalf("vector store: %v", err)
	}
	splitter, err := textsplitter.NewSplitter(cfg.Splitter)
	if err != nil {
		t.Fatalf("splitter: %v", err)
	}
	sessions, err := memory.NewFileStore(cfg.Memory.Dir, cfg.Memory.MaxTurns, 24*time.Hour, nil)
	if err != nil {
		t.Fatalf("sessions: %v", err)
	}
	provider := cannedLLM{answer: answer}
	embedder := keywordEmbedder{}
	c := &Client{
		cfg:      cfg,
		log:      zap.NewNop(),
		llm:      provider,
		embedder: embedder,
		gateway:  llm.NewGateway(provider, embedder, 3, nil),
		store:    store,
		splitter: splitter,
		sessions: sessions,
		results:  cache.New(16, time.Minute),
	}
	c.router = agent.NewRouter(c.gateway, c, nil, cfg.Retrieval.Threshold, cfg.Agent, nil)
	return c
}

func TestAddDocumentsValidation(t *testing.T) {
	c := newTestClient(t, "ok")
	ctx := context.Background()
	if _, err := c.AddDocuments(ctx, nil, nil); err == nil {
		t.Errorf("empty texts should fail")
	}
	if _, err := c.AddDocuments(ctx, []string{"a", "b"}, []map[string]interface{}{{}}); err == nil {
		t.Errorf("length mismatch should fail")
	}
	n, err := c.AddDocuments(ctx, []string{"about docker"}, nil)
	if err != nil || n != 1 {
		t.Errorf("AddDocuments = %d, %v", n, err)
	}
}

func TestLoadDirectoryAndStats(t *testing.T) {
	c := newTestClient(t, "ok")
	ctx := context.Background()
	dir := t.TempDir()
	writeFile(t, dir, "docker_basics.txt", "Docker runs containers. Images become containers at runtime.")
	writeFile(t, dir, "notes.md", "Kubernetes schedules pods across nodes.")
	writeFile(t, dir, "ignore.png", "binary")

	files, chunks, err := c.LoadDirectory(ctx, dir)
	if err != nil {
		t.Fatalf("load directory: %v", err)
	}
	if files != 2 || chunks < 2 {
		t.Errorf("files=%d chunks=%d", files, chunks)
	}
	stats, err := c.Stats(ctx)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.TotalChunks != chunks {
		t.Errorf("stats total = %d, want %d", stats.TotalChunks, chunks)
	}
	if stats.BySource["docker_basics.txt"] == 0 {
		t.Errorf("per-source stats missing: %+v", stats.BySource)
	}
	if stats.ByFileType["txt"] == 0 || stats.ByFileType["md"] == 0 {
		t.Errorf("per-type stats missing: %+v", stats.ByFileType)
	}
}

func TestChatRecordsTurnsAndCitesSources(t *testing.T) {
	c := newTestClient(t, "Containers are lightweight.")
	ctx := context.Background()
	dir := t.TempDir()
	writeFile(t, dir, "docker_basics.txt", "Docker docker docker. Containers everywhere.")
	if _, _, err := c.LoadDirectory(ctx, dir); err != nil {
		t.Fatalf("load: %v", err)
	}

	answer, state, err := c.Chat(ctx, "sess", "how does docker work")
	if err != nil {
		t.Fatalf("chat: %v", err)
	}
	if state.NeedsClarification {
		t.Fatalf("expected an answer, got clarification: %q", answer)
	}
	if !strings.Contains(answer, "Sources:") || !strings.Contains(answer, "docker_basics.txt") {
		t.Errorf("citations missing: %q", answer)
	}
	session, err := c.sessions.Get("sess")
	if err != nil {
		t.Fatalf("session: %v", err)
	}
	if len(session.Turns) != 2 {
		t.Fatalf("turns = %d, want 2", len(session.Turns))
	}
	if session.Turns[0].Role != memory.RoleUser || session.Turns[1].Role != memory.RoleAssistant {
		t.Errorf("turn roles wrong: %+v", session.Turns)
	}
}

func TestChatEmptyIndexClarifies(t *testing.T) {
	c := newTestClient(t, "should not matter")
	_, state, err := c.Chat(context.Background(), "sess", "how does docker work")
	if err != nil {
		t.Fatalf("chat: %v", err)
	}
	if !state.NeedsClarification {
		t.Errorf("empty index should clarify, got %q", state.FinalResponse)
	}
}

func TestChatRejectsEmptyQuery(t *testing.T) {
	c := newTestClient(t, "x")
	if _, _, err := c.Chat(context.Background(), "sess", "   "); err == nil {
		t.Errorf("blank query should fail")
	}
}

func TestRetrieveUsesCache(t *testing.T) {
	c := newTestClient(t, "ok")
	ctx := context.Background()
	if _, err := c.AddDocuments(ctx, []string{"docker content"}, nil); err != nil {
		t.Fatalf("add: %v", err)
	}
	if _, hit, err := c.Retrieve(ctx, "docker"); err != nil || hit {
		t.Fatalf("first retrieve should miss: hit=%v err=%v", hit, err)
	}
	if _, hit, err := c.Retrieve(ctx, "docker"); err != nil || !hit {
		t.Errorf("second retrieve should hit the cache: hit=%v err=%v", hit, err)
	}
	// a mutation invalidates cached results
	if _, err := c.AddDocuments(ctx, []string{"more docker"}, nil); err != nil {
		t.Fatalf("add: %v", err)
	}
	if _, hit, _ := c.Retrieve(ctx, "docker"); hit {
		t.Errorf("index mutation should invalidate the cache")
	}
}

func TestExportImportSession(t *testing.T) {
	c := newTestClient(t, "fine")
	ctx := context.Background()
	if _, _, err := c.Chat(ctx, "sess", "hello docker"); err != nil {
		t.Fatalf("chat: %v", err)
	}
	path := filepath.Join(t.TempDir(), "backup.json")
	if err := c.ExportSession("sess", path); err != nil {
		t.Fatalf("export: %v", err)
	}
	restored, err := c.ImportSession(path)
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if restored.ID != "sess" || len(restored.Turns) != 2 {
		t.Errorf("round trip lost data: %+v", restored)
	}
}

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}
