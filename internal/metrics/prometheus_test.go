package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func newTestSink(t *testing.T) (*PrometheusSink, *prometheus.Registry) {
	t.Helper()
	reg := prometheus.NewRegistry()
	sink := NewPrometheusSink(reg)
	return sink, reg
}

func getCounterValue(t *testing.T, reg *prometheus.Registry, name string) float64 {
	t.Helper()
	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}
	for _, mf := range mfs {
		if mf.GetName() == name {
			for _, m := range mf.GetMetric() {
				if m.GetCounter() != nil {
					return m.GetCounter().GetValue()
				}
			}
		}
	}
	return 0
}

func getGaugeValue(t *testing.T, reg *prometheus.Registry, name string) float64 {
	t.Helper()
	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}
	for _, mf := range mfs {
		if mf.GetName() == name {
			for _, m := range mf.GetMetric() {
				if m.GetGauge() != nil {
					return m.GetGauge().GetValue()
				}
			}
		}
	}
	return 0
}

func getCounterVecValue(t *testing.T, reg *prometheus.Registry, name string, labels map[string]string) float64 {
	t.Helper()
	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}
	for _, mf := range mfs {
		if mf.GetName() == name {
			for _, m := range mf.GetMetric() {
				if matchLabels(m.GetLabel(), labels) {
					return m.GetCounter().GetValue()
				}
			}
		}
	}
	return 0
}

func matchLabels(pairs []*dto.LabelPair, want map[string]string) bool {
	if len(pairs) != len(want) {
		return false
	}
	for _, p := range pairs {
		if v, ok := want[p.GetName()]; !ok || v != p.GetValue() {
			return false
		}
	}
	return true
}

func getHistogramCount(t *testing.T, reg *prometheus.Registry, name string, labels map[string]string) uint64 {
	t.Helper()
	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}
	for _, mf := range mfs {
		if mf.GetName() == name {
			for _, m := range mf.GetMetric() {
				if matchLabels(m.GetLabel(), labels) {
					return m.GetHistogram().GetSampleCount()
				}
			}
		}
	}
	return 0
}

func getGaugeVecValue(t *testing.T, reg *prometheus.Registry, name string, labels map[string]string) float64 {
	t.Helper()
	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}
	for _, mf := range mfs {
		if mf.GetName() == name {
			for _, m := range mf.GetMetric() {
				if matchLabels(m.GetLabel(), labels) {
					return m.GetGauge().GetValue()
				}
			}
		}
	}
	return 0
}

func TestPrometheusSink_Registration(t *testing.T) {
	// Should not panic or error with a fresh registry.
	reg := prometheus.NewRegistry()
	sink := NewPrometheusSink(reg)
	if sink == nil {
		t.Fatal("NewPrometheusSink returned nil")
	}
}

func TestPrometheusSink_RequestsByRouteAndStatusClass(t *testing.T) {
	sink, reg := newTestSink(t)

	sink.RequestStarted()
	sink.RequestCompleted("/jobs/:job_id", "GET", StatusClass2xx, 10*time.Millisecond)
	sink.RequestStarted()
	sink.RequestCompleted("/jobs/:job_id", "GET", StatusClass4xx, 5*time.Millisecond)
	sink.RequestStarted()
	sink.RequestCompleted("/jobs/:job_id", "GET", StatusClass2xx, 7*time.Millisecond)

	ok := getCounterVecValue(t, reg, "careerhub_http_requests_total",
		map[string]string{"route": "/jobs/:job_id", "method": "GET", "status_class": "2xx"})
	if ok != 2 {
		t.Errorf("2xx requests = %v, want 2", ok)
	}

	notFound := getCounterVecValue(t, reg, "careerhub_http_requests_total",
		map[string]string{"route": "/jobs/:job_id", "method": "GET", "status_class": "4xx"})
	if notFound != 1 {
		t.Errorf("4xx requests = %v, want 1", notFound)
	}

	count := getHistogramCount(t, reg, "careerhub_http_request_duration_seconds",
		map[string]string{"route": "/jobs/:job_id", "method": "GET"})
	if count != 3 {
		t.Errorf("duration samples = %d, want 3", count)
	}
}

func TestPrometheusSink_RequestsInFlight(t *testing.T) {
	sink, reg := newTestSink(t)

	sink.RequestStarted()
	sink.RequestStarted()
	sink.RequestCompleted("/", "GET", StatusClass2xx, time.Millisecond)

	val := getGaugeValue(t, reg, "careerhub_http_requests_in_flight")
	if val != 1 {
		t.Errorf("requests_in_flight = %v, want 1", val)
	}
}

func TestPrometheusSink_StoreOpCompleted(t *testing.T) {
	sink, reg := newTestSink(t)

	sink.StoreOpCompleted("get", time.Millisecond, nil)
	sink.StoreOpCompleted("get", time.Millisecond, errors.New("context deadline exceeded"))
	sink.StoreOpCompleted("get", time.Millisecond, errors.New("dial tcp: connection refused"))

	for result, want := range map[string]float64{
		StatusClassOK:              1,
		StatusClassTimeout:         1,
		StatusClassConnectionError: 1,
		StatusClassOtherError:      0,
	} {
		got := getCounterVecValue(t, reg, "careerhub_store_operations_total",
			map[string]string{"op": "get", "result": result})
		if got != want {
			t.Errorf("result=%s = %v, want %v", result, got, want)
		}
	}
}

func TestPrometheusSink_MutationOutcome(t *testing.T) {
	sink, reg := newTestSink(t)

	sink.MutationOutcome("update", "updated")
	sink.MutationOutcome("update", "unchanged")
	sink.MutationOutcome("update", "updated")

	updated := getCounterVecValue(t, reg, "careerhub_mutation_outcomes_total",
		map[string]string{"op": "update", "outcome": "updated"})
	if updated != 2 {
		t.Errorf("outcome=updated = %v, want 2", updated)
	}
}

func TestPrometheusSink_IngestCompleted(t *testing.T) {
	sink, reg := newTestSink(t)

	sink.IngestCompleted(120, 3, time.Second, nil)
	sink.IngestCompleted(0, 0, time.Second, errors.New("bad date"))

	if v := getGaugeValue(t, reg, "careerhub_ingest_jobs"); v != 120 {
		t.Errorf("ingest_jobs = %v, want 120 (failed run must not reset it)", v)
	}
	if v := getGaugeValue(t, reg, "careerhub_ingest_missing_industries"); v != 3 {
		t.Errorf("ingest_missing_industries = %v, want 3", v)
	}
	if v := getCounterVecValue(t, reg, "careerhub_ingest_runs_total", map[string]string{"result": "error"}); v != 1 {
		t.Errorf("failed runs = %v, want 1", v)
	}
}

func TestPrometheusSink_ImportCompleted(t *testing.T) {
	sink, reg := newTestSink(t)

	sink.ImportCompleted("mongo", 50, time.Second, nil)

	if v := getGaugeVecValue(t, reg, "careerhub_import_jobs", map[string]string{"driver": "mongo"}); v != 50 {
		t.Errorf("import_jobs = %v, want 50", v)
	}
	if v := getCounterVecValue(t, reg, "careerhub_import_runs_total",
		map[string]string{"driver": "mongo", "result": "success"}); v != 1 {
		t.Errorf("import runs = %v, want 1", v)
	}
}

func TestPrometheusSink_BreakerState(t *testing.T) {
	sink, reg := newTestSink(t)

	sink.BreakerStateChanged("store", "open")
	if v := getGaugeVecValue(t, reg, "careerhub_circuit_breaker_state", map[string]string{"key": "store"}); v != 2 {
		t.Errorf("breaker state = %v, want 2 (open)", v)
	}

	sink.BreakerStateChanged("store", "closed")
	if v := getGaugeVecValue(t, reg, "careerhub_circuit_breaker_state", map[string]string{"key": "store"}); v != 0 {
		t.Errorf("breaker state = %v, want 0 (closed)", v)
	}
}

func TestPrometheusSink_AnalyticsWriteFailed(t *testing.T) {
	sink, reg := newTestSink(t)

	sink.AnalyticsWriteFailed()

	if v := getCounterValue(t, reg, "careerhub_analytics_write_errors_total"); v != 1 {
		t.Errorf("analytics_write_errors_total = %v, want 1", v)
	}
}

func TestPrometheusSink_DuplicateRegistration_NoPanic(t *testing.T) {
	// Second registration fails for every collector but must not panic.
	reg := prometheus.NewRegistry()

	if NewPrometheusSink(reg) == nil {
		t.Fatal("first NewPrometheusSink returned nil")
	}
	if NewPrometheusSink(reg) == nil {
		t.Fatal("second NewPrometheusSink returned nil")
	}
}

// Verify PrometheusSink implements Sink interface.
var _ Sink = (*PrometheusSink)(nil)
