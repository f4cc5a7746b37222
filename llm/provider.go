// Package llm wraps chat completion providers behind a small interface and
// adds the failure-absorbing gateway used by the query router.
package llm

import (
	"context"
	"fmt"

	"github.com/ragstack/ragchat/config"
)

// Chat roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one chat turn sent to the model.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Provider generates chat completions. Implementations return errors; the
// Gateway converts them into safe fallback strings.
type Provider interface {
	// GenerateCompletion sends a single user prompt with an optional system
	// prompt and returns the raw model output.
	GenerateCompletion(ctx context.Context, systemPrompt, prompt string) (string, error)
	// ChatCompletion sends a full message list and returns the raw output.
	ChatCompletion(ctx context.Context, messages []Message) (string, error)
	GetProviderType() string
}

// NewProvider builds a provider from configuration.
func NewProvider(cfg config.LLMConfig) (Provider, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("llm base_url is required")
	}
	if cfg.Model == "" {
		return nil, fmt.Errorf("llm model is required")
	}
	return newOpenAIProvider(cfg), nil
}
