package usecase

import "time"

const (
	// DefaultTransactionTimeout is the maximum duration for a database transaction
	// This prevents long-running transactions from blocking tables
	DefaultTransactionTimeout = 10 * time.Second

	// IdempotencyKeyTTL is how long idempotency keys are cached
	IdempotencyKeyTTL = 24 * time.Hour

	// DefaultReportCacheTTL bounds how long a computed report is served from cache
	DefaultReportCacheTTL = 5 * time.Minute

	// ReportGenerationKey is bumped whenever committed data changes report output
	ReportGenerationKey = "reports:generation"

	// DefaultListLimit and MaxListLimit bound list endpoints
	DefaultListLimit = 20
	MaxListLimit     = 100
)
