package breakdown

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	outcomeSuccess       = "success"
	outcomeBusy          = "busy"
	outcomeProviderError = "provider_error"
	outcomeDecodeError   = "decode_error"
	outcomeEmpty         = "empty"
)

var (
	breakdownsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "breakdowns_total",
			Help: "Total number of breakdown requests by outcome",
		},
		[]string{"outcome"},
	)

	breakdownDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "breakdown_duration_seconds",
			Help:    "Histogram of breakdown durations including the provider call",
			Buckets: []float64{0.25, 0.5, 1, 2.5, 5, 10, 20, 40, 80},
		},
		[]string{"outcome"},
	)

	breakdownTasks = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "breakdown_tasks",
			Help:    "Number of tasks accepted per successful breakdown",
			Buckets: prometheus.LinearBuckets(1, 1, DefaultMaxTasks),
		},
	)
)

func init() {
	prometheus.MustRegister(breakdownsTotal, breakdownDuration, breakdownTasks)
}

func observe(outcome string, start time.Time) {
	breakdownsTotal.WithLabelValues(outcome).Inc()
	if outcome != outcomeBusy {
		breakdownDuration.WithLabelValues(outcome).Observe(time.Since(start).Seconds())
	}
}
