// Package metrics exposes prometheus collectors and per-query records for
// the query pipeline.
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	retrievalLatency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "ragchat_retrieval_latency_ms",
		Help:    "Latency of similarity searches in milliseconds",
		Buckets: []float64{10, 25, 50, 75, 100, 150, 200, 300, 500, 800, 1200},
	}, []string{"provider"})

	retrievalResults = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "ragchat_retrieval_results",
		Help:    "Number of results returned by a similarity search",
		Buckets: []float64{0, 1, 2, 5, 10, 20, 50},
	}, []string{"provider"})

	routerDecision = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ragchat_router_decision_total",
		Help: "Terminal router outcomes (response/clarification/error)",
	}, []string{"outcome"})

	clarifyReason = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ragchat_clarification_reason_total",
		Help: "Which condition triggered a clarification",
	}, []string{"reason"})

	llmFallback = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ragchat_llm_fallback_total",
		Help: "Gateway fallbacks by call type (chat/embedding)",
	}, []string{"call"})

	topScore = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "ragchat_retrieval_top1_score",
		Help:    "Top-1 similarity score distribution",
		Buckets: []float64{0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.85, 0.9, 0.95, 0.99, 1.0},
	})

	cacheHits = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ragchat_retrieval_cache_total",
		Help: "Retrieval cache hits and misses",
	}, []string{"result"})
)

func ensureRegistered() {
	once.Do(func() {
		prometheus.MustRegister(retrievalLatency, retrievalResults, routerDecision, clarifyReason, llmFallback, topScore, cacheHits)
	})
}

// ObserveRetrieval records latency and result size for one search.
func ObserveRetrieval(provider string, start time.Time, results int) {
	ensureRegistered()
	retrievalLatency.WithLabelValues(provider).Observe(float64(time.Since(start).Milliseconds()))
	retrievalResults.WithLabelValues(provider).Observe(float64(results))
}

// IncRouterDecision counts a terminal pipeline outcome.
func IncRouterDecision(outcome string) {
	ensureRegistered()
	routerDecision.WithLabelValues(outcome).Inc()
}

// IncClarifyReason counts which condition triggered a clarification.
func IncClarifyReason(reason string) {
	ensureRegistered()
	clarifyReason.WithLabelValues(reason).Inc()
}

// IncLLMFallback counts a gateway fallback by call type.
func IncLLMFallback(call string) {
	ensureRegistered()
	llmFallback.WithLabelValues(call).Inc()
}

// ObserveTopScore records the best similarity score of a search.
func ObserveTopScore(score float64) {
	ensureRegistered()
	if score >= 0 {
		topScore.Observe(score)
	}
}

// IncCache counts a retrieval cache hit or miss.
func IncCache(hit bool) {
	ensureRegistered()
	if hit {
		cacheHits.WithLabelValues("hit").Inc()
	} else {
		cacheHits.WithLabelValues("miss").Inc()
	}
}

// Collectors exposes the collectors for registration with a custom
// registry instead of the default one.
func Collectors() []prometheus.Collector {
	return []prometheus.Collector{
		retrievalLatency, retrievalResults, routerDecision, clarifyReason, llmFallback, topScore, cacheHits,
	}
}
