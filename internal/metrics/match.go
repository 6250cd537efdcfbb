package metrics

import "github.com/prometheus/client_golang/prometheus"

// Matching engine Prometheus metrics.
var (
	MatchTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "matchbot",
			Name:      "match_total",
			Help:      "Total number of match runs",
		},
		[]string{"entity_type", "outcome"},
	)

	MatchDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "matchbot",
			Name:      "match_duration_seconds",
			Help:      "Match run duration in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"entity_type"},
	)

	PrefilterCandidates = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "matchbot",
			Name:      "prefilter_candidates",
			Help:      "Candidate rows remaining after the prefilter cascade",
			Buckets:   []float64{1, 10, 50, 100, 500, 1000, 10000, 100000},
		},
		[]string{"entity_type"},
	)

	TicketsProcessedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "matchbot",
			Name:      "tickets_processed_total",
			Help:      "Total tickets processed by the batch runner",
		},
		[]string{"status"},
	)
)

var matchMetricsRegistered bool

// RegisterMatchMetrics registers matching metrics. Must be called once from main.
func RegisterMatchMetrics() {
	if matchMetricsRegistered {
		return
	}
	prometheus.MustRegister(MatchTotal)
	prometheus.MustRegister(MatchDuration)
	prometheus.MustRegister(PrefilterCandidates)
	prometheus.MustRegister(TicketsProcessedTotal)
	matchMetricsRegistered = true
}
