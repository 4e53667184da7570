// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	SendStepsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "send_pipeline_steps_total",
			Help: "Send pipeline requests by step and outcome",
		},
		[]string{"step", "outcome"},
	)

	SpreadsheetsProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "send_spreadsheets_processed_total",
			Help: "Uploaded spreadsheets by format and result",
		},
		[]string{"format", "result"},
	)

	SpreadsheetRows = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "send_spreadsheet_rows",
			Help:    "Number of data rows in uploaded spreadsheets",
			Buckets: prometheus.ExponentialBuckets(1, 4, 10),
		},
	)

	PolicyDecisions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "send_policy_decisions_total",
			Help: "Policy evaluator outcomes",
		},
		[]string{"decision", "mode"},
	)

	JobsCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "send_jobs_created_total",
			Help: "Jobs committed to the backend",
		},
		[]string{"template_type"},
	)

	OneOffSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "send_one_off_notifications_total",
			Help: "Single notifications sent from the admin",
		},
		[]string{"template_type", "result"},
	)

	BackendRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "backend_request_duration_seconds",
			Help: "Duration of backend API calls in seconds",
		},
		[]string{"method", "status"},
	)

	BackendCacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "backend_cache_lookups_total",
			Help: "Backend metadata cache lookups by resource and result",
		},
		[]string{"resource", "result"},
	)
)
