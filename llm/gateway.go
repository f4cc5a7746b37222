package llm

import (
	"context"

	"go.uber.org/zap"
)

// ErrorResponse is returned by the gateway whenever the underlying chat
// provider fails. Callers can rely on it being exactly this string.
const ErrorResponse = "I apologize, but I encountered an error processing your request."

// Embedder is the slice of the embedding provider the gateway needs.
type Embedder interface {
	GetEmbeddings(ctx context.Context, texts []string) ([][]float32, error)
}

// Gateway fronts the chat and embedding providers with a contract the
// agent depends on: calls never return an error. Chat failures produce
// ErrorResponse, embedding failures produce zero vectors of the configured
// dimension, and think-tag markup is stripped from every chat response.
type Gateway struct {
	provider Provider
	embedder Embedder
	dim      int
	log      *zap.Logger
}

// NewGateway wires a gateway. dim is the embedding dimension used for
// fallback vectors.
func NewGateway(provider Provider, embedder Embedder, dim int, log *zap.Logger) *Gateway {
	if log == nil {
		log = zap.NewNop()
	}
	return &Gateway{provider: provider, embedder: embedder, dim: dim, log: log}
}

// Complete sends a single prompt and returns the cleaned response, or
// ErrorResponse on failure.
func (g *Gateway) Complete(ctx context.Context, systemPrompt, prompt string) string {
	raw, err := g.provider.GenerateCompletion(ctx, systemPrompt, prompt)
	if err != nil {
		g.log.Warn("completion failed, returning fallback", zap.Error(err))
		return ErrorResponse
	}
	return CleanResponse(raw)
}

// Chat sends a message list and returns the cleaned response, or
// ErrorResponse on failure.
func (g *Gateway) Chat(ctx context.Context, messages []Message) string {
	raw, err := g.provider.ChatCompletion(ctx, messages)
	if err != nil {
		g.log.Warn("chat failed, returning fallback", zap.Error(err))
		return ErrorResponse
	}
	return CleanResponse(raw)
}

// Embed returns one vector per input text. On failure every vector is a
// zero vector of the gateway dimension, so downstream similarity math
// stays well defined.
func (g *Gateway) Embed(ctx context.Context, texts []string) [][]float32 {
	vectors, err := g.embedder.GetEmbeddings(ctx, texts)
	if err == nil && len(vectors) == len(texts) {
		return vectors
	}
	if err != nil {
		g.log.Warn("embedding failed, returning zero vectors",
			zap.Int("texts", len(texts)), zap.Error(err))
	} else {
		g.log.Warn("embedding count mismatch, returning zero vectors",
			zap.Int("texts", len(texts)), zap.Int("vectors", len(vectors)))
	}
	out := make([][]float32, len(texts))
	for i := range out {
		out[i] = make([]float32, g.dim)
	}
	return out
}

// EmbedOne embeds a single text.
func (g *Gateway) EmbedOne(ctx context.Context, text string) []float32 {
	return g.Embed(ctx, []string{text})[0]
}

// Dimension returns the embedding dimension the gateway falls back to.
func (g *Gateway) Dimension() int {
	return g.dim
}
