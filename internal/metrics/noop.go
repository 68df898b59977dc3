package metrics

import "time"

// NoopSink is a no-op implementation of Sink.
// Used when metrics are disabled to avoid nil checks.
type NoopSink struct{}

// NewNoopSink returns a no-op metrics sink.
func NewNoopSink() *NoopSink {
	return &NoopSink{}
}

func (n *NoopSink) RequestStarted()                                                      {}
func (n *NoopSink) RequestCompleted(route, method, statusClass string, d time.Duration)  {}
func (n *NoopSink) StoreOpCompleted(op string, duration time.Duration, err error)        {}
func (n *NoopSink) QueryResultSize(op string, count int)                                 {}
func (n *NoopSink) MutationOutcome(op, outcome string)                                   {}
func (n *NoopSink) IngestCompleted(jobs, missing int, duration time.Duration, err error) {}
func (n *NoopSink) ImportCompleted(driver string, jobs int, d time.Duration, err error)  {}
func (n *NoopSink) BreakerStateChanged(key, state string)                                {}
func (n *NoopSink) AnalyticsWriteFailed()                                                {}
