// Package metrics provides Prometheus metrics for the scheduling engine.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Outcome label values
const (
	OutcomeSuccess  = "success"
	OutcomeFailed   = "failed"
	OutcomeRejected = "rejected"
	OutcomeNoChange = "no_change"
	OutcomeRetried  = "retried"
)

var (
	// generationsTotal counts AI round trips.
	// Labels:
	//   - operation: generate, regenerate, chat
	//   - outcome: success, failed, rejected, no_change
	generationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "whatodo_generations_total",
			Help: "Total number of schedule generation and chat requests by outcome",
		},
		[]string{"operation", "outcome"},
	)

	// generationDuration is the latency of the AI call alone.
	generationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "whatodo_generation_duration_seconds",
			Help:    "Duration of AI completion calls in seconds",
			Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 30, 60, 120},
		},
		[]string{"operation", "model"},
	)

	// parseFailuresTotal counts model replies that could not be turned into a schedule.
	parseFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "whatodo_parse_failures_total",
			Help: "Total number of model replies rejected by the schedule parser",
		},
		[]string{"operation"},
	)

	// scheduleMutationsTotal counts structural edits applied to the live schedule.
	scheduleMutationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "whatodo_schedule_mutations_total",
			Help: "Total number of schedule store mutations by kind",
		},
		[]string{"kind"},
	)

	// calendarExportsTotal counts calendar sync attempts.
	calendarExportsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "whatodo_calendar_exports_total",
			Help: "Total number of calendar exports by outcome",
		},
		[]string{"outcome"},
	)

	// dlqPurgedTotal counts dead-lettered schedule events removed by the garbage collector.
	dlqPurgedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "whatodo_dlq_purged_total",
			Help: "Total number of dead-lettered schedule events purged",
		},
	)
)

func init() {
	prometheus.MustRegister(generationsTotal)
	prometheus.MustRegister(generationDuration)
	prometheus.MustRegister(parseFailuresTotal)
	prometheus.MustRegister(scheduleMutationsTotal)
	prometheus.MustRegister(calendarExportsTotal)
	prometheus.MustRegister(dlqPurgedTotal)
}

// RecordGeneration records the final outcome of a generate, regenerate, or chat request
func RecordGeneration(operation, outcome string) {
	generationsTotal.WithLabelValues(operation, outcome).Inc()
}

// RecordGenerationDuration records how long the AI call took
func RecordGenerationDuration(operation, model string, d time.Duration) {
	generationDuration.WithLabelValues(operation, model).Observe(d.Seconds())
}

// RecordParseFailure records a rejected model reply
func RecordParseFailure(operation string) {
	parseFailuresTotal.WithLabelValues(operation).Inc()
}

// RecordScheduleMutation records one schedule store mutation
func RecordScheduleMutation(kind string) {
	scheduleMutationsTotal.WithLabelValues(kind).Inc()
}

// RecordCalendarExport records one calendar export attempt
func RecordCalendarExport(outcome string) {
	calendarExportsTotal.WithLabelValues(outcome).Inc()
}

// RecordDLQPurged adds n purged dead letters
func RecordDLQPurged(n int) {
	dlqPurgedTotal.Add(float64(n))
}
