package explore

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics exposes Prometheus counters and histograms for exploration runs,
// namespaced "webexplorer". Thread-safe: each recorder is a Prometheus
// collector, safe for concurrent use across the parallel sessions
// cmd/explorer launches with errgroup.
type Metrics struct {
	pagesExplored *prometheus.CounterVec
	backtracks    *prometheus.CounterVec
	actionsRun    *prometheus.CounterVec
	llmTokens     *prometheus.CounterVec
	stageLatency  *prometheus.HistogramVec
}

// NewMetrics registers all exploration metrics with registry. Pass nil to
// use the default global registerer.
func NewMetrics(registry prometheus.Registerer) *Metrics {
	if registry == nil {
		registry = prometheus.DefaultRegisterer
	}
	factory := promauto.With(registry)

	return &Metrics{
		pagesExplored: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "webexplorer",
			Name:      "pages_explored_total",
			Help:      "Distinct normalized URLs observed, by session",
		}, []string{"session_id"}),

		backtracks: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "webexplorer",
			Name:      "backtracks_total",
			Help:      "BACKTRACK decisions taken, by session",
		}, []string{"session_id"}),

		actionsRun: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "webexplorer",
			Name:      "actions_executed_total",
			Help:      "Actions executed against the browser, by session and kind",
		}, []string{"session_id", "kind"}),

		llmTokens: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "webexplorer",
			Name:      "llm_tokens_total",
			Help:      "LLM tokens consumed, by session and direction",
		}, []string{"session_id", "direction"}),

		stageLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "webexplorer",
			Name:      "stage_latency_ms",
			Help:      "Stage execution duration in milliseconds",
			Buckets:   []float64{10, 50, 100, 500, 1000, 5000, 10000, 30000},
		}, []string{"stage", "status"}),
	}
}

// ObservePage records a newly-distinct page observation.
func (m *Metrics) ObservePage(sessionID string) {
	m.pagesExplored.WithLabelValues(sessionID).Inc()
}

// ObserveBacktrack records a BACKTRACK decision.
func (m *Metrics) ObserveBacktrack(sessionID string) {
	m.backtracks.WithLabelValues(sessionID).Inc()
}

// ObserveAction records one executed action of the given kind.
func (m *Metrics) ObserveAction(sessionID string, kind PendingActionKind) {
	m.actionsRun.WithLabelValues(sessionID, kind.String()).Inc()
}

// ObserveTokens records LLM token usage for a call.
func (m *Metrics) ObserveTokens(sessionID string, input, output int) {
	m.llmTokens.WithLabelValues(sessionID, "input").Add(float64(input))
	m.llmTokens.WithLabelValues(sessionID, "output").Add(float64(output))
}

// ObserveStage records a stage's execution duration.
func (m *Metrics) ObserveStage(stage string, status string, d time.Duration) {
	m.stageLatency.WithLabelValues(stage, status).Observe(float64(d.Milliseconds()))
}
