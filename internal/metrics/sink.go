package metrics

import (
	"strings"
	"time"
)

// Sink defines the interface for recording metrics.
// All methods are fire-and-forget: implementations MUST NOT block or propagate errors.
type Sink interface {
	// HTTP metrics
	RequestStarted()
	RequestCompleted(route, method, statusClass string, duration time.Duration)

	// Catalog metrics
	StoreOpCompleted(op string, duration time.Duration, err error)
	QueryResultSize(op string, n int)
	MutationOutcome(op, outcome string)

	// Batch metrics
	IngestCompleted(jobs, missingIndustries int, duration time.Duration, err error)
	ImportCompleted(driver string, jobs int, duration time.Duration, err error)

	// Resilience metrics
	BreakerStateChanged(key, state string)
	AnalyticsWriteFailed()
}

// StatusClass constants for RequestCompleted and StoreOpCompleted.
const (
	StatusClass2xx             = "2xx"
	StatusClass3xx             = "3xx"
	StatusClass4xx             = "4xx"
	StatusClass5xx             = "5xx"
	StatusClassOK              = "ok"
	StatusClassTimeout         = "timeout"
	StatusClassConnectionError = "connection_error"
	StatusClassOtherError      = "other_error"
)

// ClassifyStatus maps an HTTP status code to a status class.
func ClassifyStatus(statusCode int) string {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return StatusClass2xx
	case statusCode >= 300 && statusCode < 400:
		return StatusClass3xx
	case statusCode >= 400 && statusCode < 500:
		return StatusClass4xx
	case statusCode >= 500:
		return StatusClass5xx
	default:
		return StatusClassOtherError
	}
}

// ClassifyError maps a store error to a result class.
func ClassifyError(err error) string {
	if err == nil {
		return StatusClassOK
	}
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "timeout") || strings.Contains(msg, "deadline exceeded"):
		return StatusClassTimeout
	case strings.Contains(msg, "connection refused") || strings.Contains(msg, "no such host") ||
		strings.Contains(msg, "network is unreachable") || strings.Contains(msg, "dial") ||
		strings.Contains(msg, "server selection error"):
		return StatusClassConnectionError
	default:
		return StatusClassOtherError
	}
}
