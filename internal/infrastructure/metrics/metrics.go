package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// Journal metrics
	EntriesCreated   *prometheus.CounterVec
	EntriesPosted    prometheus.Counter
	EntriesReversed  prometheus.Counter
	EntriesReturned  prometheus.Counter
	EntriesDeleted   prometheus.Counter
	JournalDuration  *prometheus.HistogramVec
	JournalErrors    *prometheus.CounterVec
	PostedAmount     prometheus.Histogram
	TransactionRetry prometheus.Counter

	// Chart metrics
	AccountOperations *prometheus.CounterVec
	BalanceDrift      *prometheus.GaugeVec

	// Period metrics
	PeriodTransitions *prometheus.CounterVec

	// Report metrics
	ReportDuration *prometheus.HistogramVec
	ReportCache    *prometheus.CounterVec

	// API metrics
	HTTPRequests         *prometheus.CounterVec
	HTTPDuration         *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge

	// Outbox metrics
	EventsPublished prometheus.Counter
	EventsFailed    prometheus.Counter

	// Rate limiting metrics
	RateLimitHits *prometheus.CounterVec
}

// New creates and registers all metrics with the default registerer
func New() *Metrics {
	return NewWithRegisterer(prometheus.DefaultRegisterer)
}

// NewWithRegisterer creates and registers all metrics with reg
func NewWithRegisterer(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		// Journal metrics
		EntriesCreated: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gojournal_entries_created_total",
				Help: "Total number of journal entries created, by related type",
			},
			[]string{"related_type"},
		),
		EntriesPosted: factory.NewCounter(prometheus.CounterOpts{
			Name: "gojournal_entries_posted_total",
			Help: "Total number of journal entries posted",
		}),
		EntriesReversed: factory.NewCounter(prometheus.CounterOpts{
			Name: "gojournal_entries_reversed_total",
			Help: "Total number of journal entries reversed",
		}),
		EntriesReturned: factory.NewCounter(prometheus.CounterOpts{
			Name: "gojournal_entries_returned_to_draft_total",
			Help: "Total number of journal entries returned to draft",
		}),
		EntriesDeleted: factory.NewCounter(prometheus.CounterOpts{
			Name: "gojournal_entries_deleted_total",
			Help: "Total number of draft entries deleted",
		}),
		JournalDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "gojournal_journal_operation_duration_seconds",
				Help:    "Duration of journal mutations",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		JournalErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gojournal_journal_errors_total",
				Help: "Total number of failed journal mutations by error kind",
			},
			[]string{"operation", "kind"},
		),
		PostedAmount: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "gojournal_posted_amount",
			Help:    "Total debit of posted entries",
			Buckets: []float64{1, 10, 100, 1000, 10000, 100000, 1000000},
		}),
		TransactionRetry: factory.NewCounter(prometheus.CounterOpts{
			Name: "gojournal_transaction_retries_total",
			Help: "Total number of transactions retried after deadlock or serialization failure",
		}),

		// Chart metrics
		AccountOperations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gojournal_account_operations_total",
				Help: "Total chart of accounts operations by type",
			},
			[]string{"operation"},
		),
		BalanceDrift: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "gojournal_account_balance_drift",
				Help: "Difference between recorded and derived balance found by reconciliation",
			},
			[]string{"account_code"},
		),

		// Period metrics
		PeriodTransitions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gojournal_period_transitions_total",
				Help: "Total period close and reopen operations",
			},
			[]string{"status"},
		),

		// Report metrics
		ReportDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "gojournal_report_duration_seconds",
				Help:    "Duration of report computations",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"report"},
		),
		ReportCache: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gojournal_report_cache_total",
				Help: "Report cache lookups by result",
			},
			[]string{"report", "result"},
		),

		// API metrics
		HTTPRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gojournal_http_requests_total",
				Help: "Total HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "gojournal_http_duration_seconds",
				Help:    "HTTP request duration",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "path"},
		),
		HTTPRequestsInFlight: factory.NewGauge(prometheus.GaugeOpts{
			Name: "gojournal_http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed",
		}),

		// Outbox metrics
		EventsPublished: factory.NewCounter(prometheus.CounterOpts{
			Name: "gojournal_outbox_events_published_total",
			Help: "Total outbox events published",
		}),
		EventsFailed: factory.NewCounter(prometheus.CounterOpts{
			Name: "gojournal_outbox_events_failed_total",
			Help: "Total outbox events that failed to publish",
		}),

		// Rate limiting metrics
		RateLimitHits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gojournal_rate_limit_hits_total",
				Help: "Total rate limit hits",
			},
			[]string{"path"},
		),
	}
}
