package agent

import (
	"context"
	"strings"

	"github.com/ragstack/ragchat/llm"
)

// Clarification trigger reasons, in evaluation order.
const (
	ReasonNoDocuments     = "no_documents"
	ReasonAmbiguousShort  = "ambiguous_short"
	ReasonLowRelevance    = "low_relevance"
	ReasonExplicitRequest = "explicit_request"
	ReasonLLMDecision     = "llm_decision"
)

// Single words that carry no searchable content on their own.
var ambiguousSingleWords = map[string]bool{
	"help": true, "info": true, "what": true, "how": true,
	"explain": true, "tell": true, "show": true,
}

// Phrases with which users explicitly ask for clarification.
var explicitClarifyPhrases = []string{
	"can you clarify",
	"what do you mean",
	"i don't understand",
	"be more specific",
	"explain better",
}

// decideClarification applies the deterministic conditions in order and
// short-circuits on the first match. The optional LLM check only runs
// when nothing fired and documents exist.
func (r *Router) decideClarification(ctx context.Context, state *State) {
	query := strings.ToLower(strings.TrimSpace(state.Query))

	switch {
	case len(state.SearchResults) == 0:
		state.NeedsClarification = true
		state.ClarifyReason = ReasonNoDocuments
	case isAmbiguousSingleWord(query) && state.Context == "":
		state.NeedsClarification = true
		state.ClarifyReason = ReasonAmbiguousShort
	case len(state.RelevantDocs) == 0:
		// results exist but none cleared the threshold
		state.NeedsClarification = true
		state.ClarifyReason = ReasonLowRelevance
	case containsExplicitClarifyRequest(query):
		state.NeedsClarification = true
		state.ClarifyReason = ReasonExplicitRequest
	}
	if state.NeedsClarification {
		return
	}

	if r.cfg.LLMClarifyCheck && len(state.RelevantDocs) > 0 {
		if r.llmSaysClarify(ctx, state) {
			state.NeedsClarification = true
			state.ClarifyReason = ReasonLLMDecision
		}
	}
}

func isAmbiguousSingleWord(query string) bool {
	fields := strings.Fields(query)
	return len(fields) == 1 && ambiguousSingleWords[fields[0]]
}

func containsExplicitClarifyRequest(query string) bool {
	for _, p := range explicitClarifyPhrases {
		if strings.Contains(query, p) {
			return true
		}
	}
	return false
}

func (r *Router) llmSaysClarify(ctx context.Context, state *State) bool {
	topics := strings.Join(state.Sources(), ", ")
	raw := r.llm.Complete(ctx, "", buildClarifyCheckPrompt(state.Query, topics))
	if raw == llm.ErrorResponse {
		// on gateway failure, answer rather than stall the user
		return false
	}
	for _, line := range strings.Split(raw, "\n") {
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		if strings.ToUpper(strings.TrimSpace(key)) == "NEEDS_CLARIFICATION" {
			return strings.Contains(strings.ToUpper(value), "YES")
		}
	}
	return false
}
