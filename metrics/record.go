package metrics

import (
	"time"

	"go.uber.org/zap"
)

// QueryRecord is the structured log line emitted once per handled query.
// It mirrors the prometheus series with enough detail for offline
// analysis of routing behavior.
type QueryRecord struct {
	SessionID     string  `json:"session_id"`
	Query         string  `json:"query"`
	Intent        string  `json:"intent,omitempty"`
	Step          string  `json:"terminal_step"`
	RawResults    int     `json:"raw_results"`
	RelevantDocs  int     `json:"relevant_docs"`
	TopScore      float64 `json:"top_score"`
	Clarified     bool    `json:"clarified"`
	ClarifyReason string  `json:"clarify_reason,omitempty"`
	CacheHit      bool    `json:"cache_hit"`
	DurationMs    int64   `json:"duration_ms"`
}

// Log emits the record at info level and feeds the prometheus series.
func (r QueryRecord) Log(log *zap.Logger, start time.Time) {
	r.DurationMs = time.Since(start).Milliseconds()
	if r.Clarified {
		IncRouterDecision("clarification")
		IncClarifyReason(r.ClarifyReason)
	} else {
		IncRouterDecision("response")
	}
	ObserveTopScore(r.TopScore)
	if log != nil {
		log.Info("query handled",
			zap.String("session_id", r.SessionID),
			zap.String("intent", r.Intent),
			zap.String("terminal_step", r.Step),
			zap.Int("raw_results", r.RawResults),
			zap.Int("relevant_docs", r.RelevantDocs),
			zap.Float64("top_score", r.TopScore),
			zap.Bool("clarified", r.Clarified),
			zap.String("clarify_reason", r.ClarifyReason),
			zap.Bool("cache_hit", r.CacheHit),
			zap.Int64("duration_ms", r.DurationMs),
		)
	}
}
