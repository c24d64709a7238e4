package usecase

import (
	"time"

	"github.com/iho/gojournal/internal/infrastructure/metrics"
)

type options struct {
	now         func() time.Time
	retrier     Retrier
	metrics     *metrics.Metrics
	invalidator ReportInvalidator
}

// Option configures a use case.
type Option func(*options)

// WithNow replaces the wall clock, for tests and replays.
func WithNow(now func() time.Time) Option {
	return func(o *options) {
		o.now = now
	}
}

// WithRetrier retries transactions that lose a deadlock or serialization race.
func WithRetrier(r Retrier) Option {
	return func(o *options) {
		o.retrier = r
	}
}

// WithMetrics records Prometheus metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(o *options) {
		o.metrics = m
	}
}

// WithReportInvalidator is notified after every committed mutation.
func WithReportInvalidator(inv ReportInvalidator) Option {
	return func(o *options) {
		o.invalidator = inv
	}
}

func buildOptions(opts []Option) options {
	o := options{
		now: func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
