// Package agent implements the query router: an explicit state machine
// that analyzes a query, retrieves documents, decides between answering
// and asking for clarification, and produces exactly one final response.
package agent

import (
	"github.com/ragstack/ragchat/clarify"
	"github.com/ragstack/ragchat/schema"
)

// Step names the stages of the pipeline.
type Step string

const (
	StepAnalyze  Step = "analyze_query"
	StepRetrieve Step = "retrieve_documents"
	StepDecide   Step = "decide_clarification"
	StepClarify  Step = "generate_clarification"
	StepRespond  Step = "generate_response"
	StepDone     Step = "done"
)

// Intents produced by the classifier.
const (
	IntentRAG           = "rag"
	IntentSQL           = "sql"
	IntentGeneral       = "general"
	IntentClarification = "clarification"
)

// Analysis is the structured view of a query. It always has usable
// values; parsing failures degrade to defaults rather than errors.
type Analysis struct {
	Intent         string
	Clarity        string // CLEAR, AMBIGUOUS or CONTEXTUAL
	ContextNeeded  bool
	KeyTerms       []string
	SearchStrategy string
}

// Input is what the router needs to handle one query.
type Input struct {
	SessionID string
	Query     string
	// Context is the rendered conversation window, empty for new sessions.
	Context string
	// FollowUp marks queries that depend on earlier turns.
	FollowUp bool
	// RecentQueries are the last user queries, oldest first, used to
	// augment retrieval for follow-ups.
	RecentQueries []string
}

// State threads through the pipeline for one query. FinalResponse is
// assigned exactly once, by the terminal step.
type State struct {
	Input

	Step      Step
	Intent    string
	Analysis  Analysis
	// SearchResults holds everything the store returned; RelevantDocs
	// only those at or above the similarity threshold.
	SearchResults []schema.SearchResult
	RelevantDocs  []schema.SearchResult
	CacheHit      bool

	NeedsClarification bool
	ClarifyReason      string
	ClarificationType  clarify.Type

	FinalResponse  string
	IterationCount int
}

// TopScore returns the best raw similarity score, or 0 with no results.
func (s *State) TopScore() float64 {
	best := 0.0
	for _, r := range s.SearchResults {
		if r.Score > best {
			best = r.Score
		}
	}
	return best
}

// Sources lists the distinct source names of the relevant documents.
func (s *State) Sources() []string {
	seen := make(map[string]bool)
	var sources []string
	for _, r := range s.RelevantDocs {
		src := r.Document.Source()
		if seen[src] {
			continue
		}
		seen[src] = true
		sources = append(sources, src)
	}
	return sources
}
