// Package metrics exports Prometheus metrics for consolidation runs:
//   - consolidation_records_total: counter of input records by outcome
//   - consolidation_resolutions_total: counter of name resolutions by strategy
//   - consolidation_fuzzy_skipped_total: names skipped by the fuzzy budget policy
//   - consolidation_groups_total: consolidated records emitted
//   - consolidation_run_duration_seconds: histogram of full-run latency
//
// All metrics are registered with the Prometheus default registry during
// package initialization and exposed by the serve command.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	RecordsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "consolidation_records_total",
			Help: "Source records processed, by outcome (merged, skipped_invalid)",
		},
		[]string{"outcome"},
	)

	ResolutionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "consolidation_resolutions_total",
			Help: "Name resolutions, by cascade strategy (exact, normalized, uppercase, fuzzy, unmatched)",
		},
		[]string{"strategy"},
	)

	FuzzySkippedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "consolidation_fuzzy_skipped_total",
			Help: "Unmatched names whose fuzzy resolution was skipped by the budget policy",
		},
	)

	GroupsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "consolidation_groups_total",
			Help: "Consolidated drug records emitted",
		},
	)

	RunDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "consolidation_run_duration_seconds",
			Help:    "Full consolidation run latency",
			Buckets: []float64{.1, .25, .5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		},
	)
)

func init() {
	prometheus.MustRegister(RecordsTotal)
	prometheus.MustRegister(ResolutionsTotal)
	prometheus.MustRegister(FuzzySkippedTotal)
	prometheus.MustRegister(GroupsTotal)
	prometheus.MustRegister(RunDuration)
}
