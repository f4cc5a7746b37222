package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ragstack/ragchat/llm"
)

// classifyIntent asks the model for a JSON classification and falls back
// to keyword rules when the model is unavailable or answers junk.
func (r *Router) classifyIntent(ctx context.Context, query string) string {
	raw := r.llm.Complete(ctx, "", fmt.Sprintf(intentPrompt, query))
	if raw != llm.ErrorResponse {
		if intent, ok := parseIntentJSON(raw); ok {
			return intent
		}
	}
	return ruleBasedIntent(query)
}

func parseIntentJSON(raw string) (string, bool) {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end <= start {
		return "", false
	}
	var parsed struct {
		Intent     string  `json:"intent"`
		Confidence float64 `json:"confidence"`
	}
	if err := json.Unmarshal([]byte(raw[start:end+1]), &parsed); err != nil {
		return "", false
	}
	switch parsed.Intent {
	case IntentRAG, IntentSQL, IntentGeneral, IntentClarification:
		return parsed.Intent, true
	}
	return "", false
}

var sqlKeywords = []string{
	"database", "sql", "table", "record", "records", "count", "total",
	"average", "sum", "how many", "top 10", "statistics",
}

var greetingWords = []string{
	"hello", "hi", "hey", "thanks", "thank you", "bye", "goodbye",
}

// ruleBasedIntent is the keyword fallback. It mirrors the LLM categories
// with coarse heuristics so routing still works fully offline.
func ruleBasedIntent(query string) string {
	q := strings.ToLower(strings.TrimSpace(query))
	if containsExplicitClarifyRequest(q) {
		return IntentClarification
	}
	for _, kw := range sqlKeywords {
		if strings.Contains(q, kw) {
			return IntentSQL
		}
	}
	for _, g := range greetingWords {
		if q == g || strings.HasPrefix(q, g+" ") || strings.HasPrefix(q, g+",") {
			return IntentGeneral
		}
	}
	return IntentRAG
}
