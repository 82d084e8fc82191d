package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "humanizer_http_requests_total",
			Help: "Total number of HTTP requests served",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "humanizer_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	HumanizeJobsStarted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "humanizer_jobs_started_total",
			Help: "Total number of humanize jobs started",
		},
	)

	HumanizeJobsFinished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "humanizer_jobs_finished_total",
			Help: "Total number of humanize jobs that reached a terminal state, by error code",
		},
		[]string{"state", "code"},
	)

	HumanizeJobDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "humanizer_job_duration_seconds",
			Help:    "Wall time from submit to terminal state",
			Buckets: []float64{1, 5, 10, 30, 60, 120, 300, 600},
		},
	)

	HumanizeJobsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "humanizer_jobs_active",
			Help: "Number of humanize jobs currently submitting or polling",
		},
	)

	HumanizePolls = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "humanizer_polls_total",
			Help: "Total number of document polls sent upstream",
		},
	)

	CreditOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "humanizer_credit_operations_total",
			Help: "Credit ledger operations by type and outcome",
		},
		[]string{"type", "outcome"},
	)

	WordsConsumed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "humanizer_words_consumed_total",
			Help: "Total number of words debited from users",
		},
	)

	CreditCacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "humanizer_credit_cache_lookups_total",
			Help: "Balance cache lookups by result",
		},
		[]string{"result"},
	)

	AuthAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "humanizer_auth_attempts_total",
			Help: "Sign-in and sign-up attempts by outcome",
		},
		[]string{"action", "outcome"},
	)

	BillingEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "humanizer_billing_events_total",
			Help: "Billing webhook events by type and outcome",
		},
		[]string{"event_type", "outcome"},
	)

	DetectRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "humanizer_detect_requests_total",
			Help: "AI detection requests by outcome",
		},
		[]string{"outcome"},
	)
)
