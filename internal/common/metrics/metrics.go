// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ModerationVerdicts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "signalx_moderation_verdicts_total",
			Help: "Job safety verdicts by outcome and source",
		},
		[]string{"safe", "source"},
	)

	RiskEvaluations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "signalx_risk_evaluations_total",
			Help: "Supply/demand evaluations by tier and branch",
		},
		[]string{"tier", "estimated"},
	)

	AlertsDispatched = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "signalx_alerts_dispatched_total",
			Help: "Admin alerts by kind and result",
		},
		[]string{"kind", "result"},
	)

	EmailsSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "signalx_emails_sent_total",
			Help: "Email delivery attempts by provider and result",
		},
		[]string{"provider", "result"},
	)

	SMSSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "signalx_sms_sent_total",
			Help: "SMS delivery attempts by result",
		},
		[]string{"result"},
	)

	JobsPublished = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "signalx_jobs_published_total",
			Help: "Scheduled job postings made public by the publish sweep",
		},
	)

	LLMRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "signalx_llm_request_duration_seconds",
			Help:    "Language model request latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"provider", "result"},
	)

	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "signalx_http_requests_total",
			Help: "HTTP requests by route and status",
		},
		[]string{"route", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "signalx_http_request_duration_seconds",
			Help: "HTTP request latency by route",
		},
		[]string{"route"},
	)

	WorkerJobsCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_completed_total",
			Help: "Total number of jobs completed by worker",
		},
		[]string{"task_type"},
	)

	WorkerJobsFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_failed_total",
			Help: "Total number of jobs failed by worker",
		},
		[]string{"task_type", "error_code"},
	)

	WorkerJobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "worker_job_duration_seconds",
			Help: "Duration of job processing in seconds",
		},
		[]string{"task_type"},
	)
)

// Result maps an error to the "ok"/"error" label.
func Result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
