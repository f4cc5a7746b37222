package llm

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestHealthCheckerListModels(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/models" {
			http.NotFound(w, r)
			return
		}
		if got := r.Header.Get("Authorization"); got != "Bearer key" {
			t.Errorf("unexpected auth header: %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":[{"id":"qwen3-4b"},{"id":"nomic-embed"}]}`))
	}))
	defer srv.Close()

	h := NewHealthChecker(srv.URL+"/v1", "key", nil)
	models, err := h.ListModels(context.Background())
	if err != nil {
		t.Fatalf("ListModels: %v", err)
	}
	if len(models) != 2 || models[0] != "qwen3-4b" {
		t.Errorf("unexpected models: %v", models)
	}
	if !h.Ping(context.Background()) {
		t.Errorf("Ping should succeed")
	}
}

func TestHealthCheckerUnreachable(t *testing.T) {
	h := NewHealthChecker("http://127.0.0.1:1/v1", "", nil)
	if h.Ping(context.Background()) {
		t.Errorf("Ping against closed port should fail")
	}
}
