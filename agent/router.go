package agent

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ragstack/ragchat/clarify"
	"github.com/ragstack/ragchat/config"
	"github.com/ragstack/ragchat/llm"
	"github.com/ragstack/ragchat/metrics"
	"github.com/ragstack/ragchat/schema"
)

// Fixed user-facing messages for degraded terminal states.
const (
	// NoDocsResponse is returned when generation is reached without any
	// relevant documents.
	NoDocsResponse = "I couldn't find any relevant documents for your query. Could you try rephrasing your question or providing more specific details?"
	// LLMErrorResponse is returned when the model fails during answer
	// generation.
	LLMErrorResponse = "I encountered an error while processing your request. Please try asking your question again."
)

// How many excerpts feed the prompt and how many sources get cited.
const (
	maxContextDocs = 3
	maxSources     = 3
)

// LLM is the slice of the gateway the router uses.
type LLM interface {
	Complete(ctx context.Context, systemPrompt, prompt string) string
}

// Retriever runs a similarity search for a query. The boolean reports a
// cache hit. Failures surface as an error; the router degrades them to
// an empty result set.
type Retriever interface {
	Retrieve(ctx context.Context, query string) ([]schema.SearchResult, bool, error)
}

// SQLAnswerer handles structured-data questions. Optional.
type SQLAnswerer interface {
	Answer(ctx context.Context, question string) string
}

// Router drives one query through the pipeline.
type Router struct {
	llm       LLM
	retriever Retriever
	sql       SQLAnswerer
	threshold float64
	cfg       config.AgentConfig
	log       *zap.Logger
}

// NewRouter wires a router. sql may be nil, in which case SQL-intent
// queries fall through to retrieval.
func NewRouter(l LLM, retriever Retriever, sql SQLAnswerer, threshold float64, cfg config.AgentConfig, log *zap.Logger) *Router {
	if log == nil {
		log = zap.NewNop()
	}
	return &Router{llm: l, retriever: retriever, sql: sql, threshold: threshold, cfg: cfg, log: log}
}

// Run handles one query end to end and always produces a final response.
func (r *Router) Run(ctx context.Context, in Input) *State {
	start := time.Now()
	state := &State{Input: in, Step: StepAnalyze, Intent: IntentRAG}

	if r.cfg.IntentRouting {
		state.Intent = r.classifyIntent(ctx, in.Query)
	}
	switch state.Intent {
	case IntentGeneral:
		state.FinalResponse = r.generalResponse(ctx, state)
		state.Step = StepDone
	case IntentSQL:
		if r.sql != nil {
			state.FinalResponse = r.sql.Answer(ctx, in.Query)
			state.Step = StepDone
		}
	case IntentClarification:
		state.NeedsClarification = true
		state.ClarifyReason = ReasonExplicitRequest
		state.Step = StepClarify
	}

	for state.Step != StepDone {
		state.IterationCount++
		if state.IterationCount > r.maxIterations() {
			r.log.Error("router exceeded iteration budget", zap.String("session_id", in.SessionID))
			state.FinalResponse = LLMErrorResponse
			break
		}
		r.log.Debug("router step",
			zap.String("session_id", in.SessionID),
			zap.String("step", string(state.Step)),
			zap.Int("iteration", state.IterationCount))
		switch state.Step {
		case StepAnalyze:
			r.analyzeQuery(ctx, state)
			state.Step = StepRetrieve
		case StepRetrieve:
			r.retrieveDocuments(ctx, state)
			state.Step = StepDecide
		case StepDecide:
			r.decideClarification(ctx, state)
			if state.NeedsClarification {
				state.Step = StepClarify
			} else {
				state.Step = StepRespond
			}
		case StepClarify:
			r.generateClarification(state)
			state.Step = StepDone
		case StepRespond:
			r.generateResponse(ctx, state)
			state.Step = StepDone
		default:
			state.FinalResponse = LLMErrorResponse
			state.Step = StepDone
		}
	}

	metrics.QueryRecord{
		SessionID:     in.SessionID,
		Query:         in.Query,
		Intent:        state.Intent,
		Step:          string(state.Step),
		RawResults:    len(state.SearchResults),
		RelevantDocs:  len(state.RelevantDocs),
		TopScore:      state.TopScore(),
		Clarified:     state.NeedsClarification,
		ClarifyReason: state.ClarifyReason,
		CacheHit:      state.CacheHit,
	}.Log(r.log, start)
	return state
}

// maxIterations bounds the step loop. The pipeline is a DAG, so the
// bound only matters if a future change introduces a cycle.
func (r *Router) maxIterations() int {
	if r.cfg.MaxIterations > 0 {
		return r.cfg.MaxIterations + len(allSteps)
	}
	return len(allSteps) + 3
}

var allSteps = []Step{StepAnalyze, StepRetrieve, StepDecide, StepClarify, StepRespond}

// retrieveDocuments searches the store. Follow-up queries in a session
// with context get augmented with the analysis key terms, or failing
// that the last user queries. Failures degrade to empty results.
func (r *Router) retrieveDocuments(ctx context.Context, state *State) {
	query := state.Query
	if state.Context != "" && state.FollowUp {
		if len(state.Analysis.KeyTerms) > 0 {
			query = state.Query + " " + strings.Join(state.Analysis.KeyTerms, " ")
		} else if n := len(state.RecentQueries); n > 0 {
			recent := state.RecentQueries
			if n > 2 {
				recent = recent[n-2:]
			}
			query = strings.Join(recent, " ") + " " + state.Query
		}
	}
	results, cacheHit, err := r.retriever.Retrieve(ctx, query)
	if err != nil {
		r.log.Warn("retrieval failed", zap.String("session_id", state.SessionID), zap.Error(err))
		results = nil
	}
	state.SearchResults = results
	state.CacheHit = cacheHit
	for _, res := range results {
		if res.Score >= r.threshold {
			state.RelevantDocs = append(state.RelevantDocs, res)
		}
	}
}

// generateClarification is deterministic and never calls the model.
func (r *Router) generateClarification(state *State) {
	state.ClarificationType = clarify.SelectType(len(state.RelevantDocs), state.Analysis.Clarity)
	var topics []string
	if state.ClarificationType == clarify.TypeMultipleTopics {
		topics = clarify.TopicsFromSources(state.Sources(), maxSources)
	}
	state.FinalResponse = clarify.Generate(clarify.Input{
		Query:  state.Query,
		Type:   state.ClarificationType,
		Topics: topics,
	})
}

// generateResponse builds the answer from the relevant documents and
// appends the numbered source citations.
func (r *Router) generateResponse(ctx context.Context, state *State) {
	if len(state.RelevantDocs) == 0 {
		state.FinalResponse = NoDocsResponse
		return
	}
	answer := r.llm.Complete(ctx, systemPrompt, buildResponsePrompt(state.Query, state.Context, state.RelevantDocs))
	if answer == llm.ErrorResponse {
		state.FinalResponse = LLMErrorResponse
		return
	}
	state.FinalResponse = answer + formatSources(state.Sources())
}

// generalResponse answers chit-chat without touching the index.
func (r *Router) generalResponse(ctx context.Context, state *State) string {
	prompt := state.Query
	if state.Context != "" {
		prompt = "Conversation so far:\n" + state.Context + "\n\n" + state.Query
	}
	answer := r.llm.Complete(ctx, "You are a friendly assistant. Reply briefly.", prompt)
	if answer == llm.ErrorResponse {
		return LLMErrorResponse
	}
	return answer
}

// formatSources renders the citation appendix: up to maxSources distinct
// sources, numbered. Empty input yields no appendix.
func formatSources(sources []string) string {
	if len(sources) == 0 {
		return ""
	}
	if len(sources) > maxSources {
		sources = sources[:maxSources]
	}
	var b strings.Builder
	b.WriteString("\n\nSources:\n")
	for i, s := range sources {
		fmt.Fprintf(&b, "%d. %s\n", i+1, s)
	}
	return strings.TrimRight(b.String(), "\n")
}
