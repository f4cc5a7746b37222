package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ragstack/ragchat/common/httpx"
)

// HealthChecker probes the model server's /models endpoint. It is used by
// the CLI /info command and at startup to report reachability.
type HealthChecker struct {
	client  *httpx.Client
	baseURL string
	apiKey  string
}

func NewHealthChecker(baseURL, apiKey string, log *zap.Logger) *HealthChecker {
	return &HealthChecker{
		client: httpx.New(httpx.Options{
			Timeout: 5 * time.Second,
			Retry:   1,
		}, log),
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
	}
}

// ListModels returns the ids advertised by the server.
func (h *HealthChecker) ListModels(ctx context.Context) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.baseURL+"/models", nil)
	if err != nil {
		return nil, fmt.Errorf("build models request failed, err: %w", err)
	}
	if h.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+h.apiKey)
	}
	resp, err := h.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("models request failed, err: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("models request returned status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read models response failed, err: %w", err)
	}
	var parsed struct {
		Data []struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("parse models response failed, err: %w", err)
	}
	ids := make([]string, 0, len(parsed.Data))
	for _, m := range parsed.Data {
		ids = append(ids, m.ID)
	}
	return ids, nil
}

// Ping reports whether the server answered the models probe.
func (h *HealthChecker) Ping(ctx context.Context) bool {
	_, err := h.ListModels(ctx)
	return err == nil
}
