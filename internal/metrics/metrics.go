package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	AttributionsWritten = promauto.NewCounter(prometheus.CounterOpts{
		Name: "relay_attributions_written_total",
		Help: "Total number of attribution writes accepted by the API.",
	})

	JobsPublished = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "relay_jobs_published_total",
		Help: "Total number of jobs placed on the work queue, labelled by type.",
	}, []string{"type"})

	PaymentsIgnored = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "relay_payments_ignored_total",
		Help: "Total number of payment notifications not eligible for a Purchase, labelled by status.",
	}, []string{"status"})

	Correlations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "relay_correlations_total",
		Help: "Total number of payment correlations, labelled by method.",
	}, []string{"method"})

	DispatchOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "relay_dispatch_outcomes_total",
		Help: "Total number of conversion dispatch outcomes, labelled by event name and status.",
	}, []string{"event_name", "status"})

	DispatchAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "relay_dispatch_attempts_total",
		Help: "Total number of HTTP attempts against the conversion API, labelled by result.",
	}, []string{"result"})

	DispatchDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "relay_dispatch_duration_ms",
		Help:    "Conversion dispatch latency in milliseconds, including retries.",
		Buckets: []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000},
	})
)
