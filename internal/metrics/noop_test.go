package metrics

import (
	"errors"
	"testing"
	"time"
)

func TestNoopSink_AllMethods(t *testing.T) {
	// Verify that calling all methods on NoopSink does not panic.
	s := NewNoopSink()

	s.RequestStarted()
	s.RequestCompleted("/jobs/:job_id", "GET", StatusClass2xx, 10*time.Millisecond)

	s.StoreOpCompleted("get", 5*time.Millisecond, nil)
	s.StoreOpCompleted("get", 5*time.Millisecond, errors.New("boom"))
	s.QueryResultSize("by_industry", 3)
	s.MutationOutcome("create", "created")

	s.IngestCompleted(100, 2, time.Second, nil)
	s.ImportCompleted("postgres", 100, time.Second, errors.New("locked"))

	s.BreakerStateChanged("store", "open")
	s.AnalyticsWriteFailed()
}

// Verify NoopSink implements Sink interface.
var _ Sink = (*NoopSink)(nil)
