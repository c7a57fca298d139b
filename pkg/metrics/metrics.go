// Package metrics holds the Prometheus collectors of the service. They are
// registered on the default registry and served on /metrics.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Job outcomes
const (
	OutcomeSuccess    = "success"
	OutcomeIncomplete = "incomplete"
	OutcomeFailed     = "failed"
	OutcomeSkipped    = "skipped"
)

var (
	// JobRuns counts job runs by job name and outcome.
	JobRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fleet_job_runs_total",
			Help: "Total number of job runs by job and outcome.",
		},
		[]string{"job", "outcome"},
	)

	JobDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "fleet_job_duration_seconds",
			Help:    "Duration of job runs.",
			Buckets: []float64{.1, .5, 1, 5, 15, 30, 60, 300, 600},
		},
		[]string{"job"},
	)

	// VehiclesReconciled counts per vehicle results: updated, unchanged,
	// skipped, failed.
	VehiclesReconciled = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fleet_vehicles_reconciled_total",
			Help: "Vehicles processed by the reconciliation job by result.",
		},
		[]string{"result"},
	)

	VehiclesEscalated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "fleet_vehicles_escalated_total",
			Help: "Vehicles moved from pending to overdue.",
		},
	)

	// Notifications counts notification attempts per kind and outcome
	// (delivered/failed).
	Notifications = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fleet_notifications_total",
			Help: "Notification attempts by kind and outcome.",
		},
		[]string{"kind", "outcome"},
	)

	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fleet_http_requests_total",
			Help: "HTTP requests by method, route and status code.",
		},
		[]string{"method", "route", "status"},
	)

	HTTPDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "fleet_http_request_duration_seconds",
			Help:    "Latency of HTTP requests.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
)

func init() {
	prometheus.MustRegister(
		JobRuns,
		JobDuration,
		VehiclesReconciled,
		VehiclesEscalated,
		Notifications,
		HTTPRequests,
		HTTPDuration,
	)
}

// ObserveJob records the outcome and duration of one job run.
func ObserveJob(job, outcome string, started time.Time) {
	JobRuns.WithLabelValues(job, outcome).Inc()
	JobDuration.WithLabelValues(job).Observe(time.Since(started).Seconds())
}

// ObserveNotification records one notification attempt.
func ObserveNotification(kind string, delivered bool) {
	outcome := "delivered"
	if !delivered {
		outcome = "failed"
	}
	Notifications.WithLabelValues(kind, outcome).Inc()
}
