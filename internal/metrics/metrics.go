// Package metrics defines Prometheus metrics for doclens.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "doclens_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "doclens_http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	ErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "doclens_errors_total",
			Help: "Total errors by type",
		},
		[]string{"type"},
	)

	CacheHits = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "doclens_answer_cache_hits_total",
			Help: "Answer cache hits",
		},
	)

	CacheMisses = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "doclens_answer_cache_misses_total",
			Help: "Answer cache misses (including expiries)",
		},
	)

	CacheEvictions = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "doclens_answer_cache_evictions_total",
			Help: "Answer cache entries evicted for capacity or expiry",
		},
	)

	LLMCallDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "doclens_llm_call_duration_seconds",
			Help:    "LLM completion call duration in seconds",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
	)

	TranslationFallbacks = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "doclens_translation_fallbacks_total",
			Help: "Questions that fell back to plain search by reason",
		},
		[]string{"reason"},
	)

	ExpansionRetries = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "doclens_synonym_expansion_retries_total",
			Help: "Zero-result searches retried with synonym expansion",
		},
	)

	AggregationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "doclens_aggregations_total",
			Help: "Aggregations executed by type",
		},
		[]string{"type"},
	)
)

func init() {
	prometheus.MustRegister(
		RequestDuration, RequestsTotal, ErrorsTotal,
		CacheHits, CacheMisses, CacheEvictions,
		LLMCallDuration, TranslationFallbacks, ExpansionRetries,
		AggregationsTotal,
	)
}
