package agent

import (
	"context"
	"strings"

	"github.com/ragstack/ragchat/llm"
)

// defaultAnalysis is what a query falls back to when the model is
// unreachable or returns something unparseable: treat it as a clear
// general question and search with the raw query terms.
func defaultAnalysis(query string) Analysis {
	return Analysis{
		Intent:         "general_question",
		Clarity:        "CLEAR",
		ContextNeeded:  false,
		KeyTerms:       strings.Fields(query),
		SearchStrategy: "direct",
	}
}

// parseAnalysis reads the line-oriented key/value response. Unknown lines
// are ignored; missing fields keep the defaults.
func parseAnalysis(raw, query string) Analysis {
	a := defaultAnalysis(query)
	parsedAny := false
	for _, line := range strings.Split(raw, "\n") {
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		value = strings.TrimSpace(value)
		switch strings.ToUpper(strings.TrimSpace(key)) {
		case "INTENT":
			if value != "" {
				a.Intent = strings.ToLower(value)
				parsedAny = true
			}
		case "CLARITY":
			switch v := strings.ToUpper(value); v {
			case "CLEAR", "AMBIGUOUS", "CONTEXTUAL":
				a.Clarity = v
				parsedAny = true
			}
		case "CONTEXT_NEEDED":
			a.ContextNeeded = strings.Contains(strings.ToUpper(value), "YES")
			parsedAny = true
		case "KEY_TERMS":
			var terms []string
			for _, t := range strings.Split(value, ",") {
				if t = strings.TrimSpace(t); t != "" {
					terms = append(terms, t)
				}
			}
			if len(terms) > 0 {
				a.KeyTerms = terms
				parsedAny = true
			}
		case "SEARCH_STRATEGY":
			if value != "" {
				a.SearchStrategy = strings.ToLower(value)
				parsedAny = true
			}
		}
	}
	if !parsedAny {
		return defaultAnalysis(query)
	}
	return a
}

// analyzeQuery runs the analysis step. It cannot fail: a gateway
// fallback response yields the default analysis.
func (r *Router) analyzeQuery(ctx context.Context, state *State) {
	raw := r.llm.Complete(ctx, "", buildAnalysisPrompt(state.Query, state.Context))
	if raw == llm.ErrorResponse {
		state.Analysis = defaultAnalysis(state.Query)
		return
	}
	state.Analysis = parseAnalysis(raw, state.Query)
}
