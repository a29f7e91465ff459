package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	pipelineRunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "queryviz_pipeline_runs_total",
			Help: "Total number of pipeline runs by outcome.",
		},
		[]string{"outcome"},
	)
	pipelineDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "queryviz_pipeline_duration_seconds",
			Help:    "End-to-end pipeline latency in seconds.",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
	)
	llmCallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "queryviz_llm_calls_total",
			Help: "Total number of LLM completion calls by purpose and outcome.",
		},
		[]string{"purpose", "outcome"},
	)
	sqlRepairsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "queryviz_sql_repairs_total",
			Help: "Total number of generated SQL statements changed by the repair pass.",
		},
	)
	renderFallbacksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "queryviz_render_fallbacks_total",
			Help: "Total number of chart renders that degraded, by fallback tier.",
		},
		[]string{"tier"},
	)
	truncatedResultsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "queryviz_truncated_results_total",
			Help: "Total number of query results truncated to the chart row cap.",
		},
	)
)

func init() {
	prometheus.MustRegister(
		pipelineRunsTotal,
		pipelineDurationSeconds,
		llmCallsTotal,
		sqlRepairsTotal,
		renderFallbacksTotal,
		truncatedResultsTotal,
	)
}

func ObservePipelineRun(outcome string, elapsed time.Duration) {
	pipelineRunsTotal.WithLabelValues(outcome).Inc()
	pipelineDurationSeconds.Observe(elapsed.Seconds())
}

func IncrementLLMCall(purpose string, failed bool) {
	outcome := "ok"
	if failed {
		outcome = "error"
	}
	llmCallsTotal.WithLabelValues(purpose, outcome).Inc()
}

func IncrementSQLRepair() {
	sqlRepairsTotal.Inc()
}

func IncrementRenderFallback(tier string) {
	renderFallbacksTotal.WithLabelValues(tier).Inc()
}

func IncrementTruncation() {
	truncatedResultsTotal.Inc()
}
