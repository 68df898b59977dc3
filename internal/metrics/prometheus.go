package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
)

// PrometheusSink implements Sink using Prometheus client library.
// All methods are non-blocking and fire-and-forget.
// Registration errors are logged but never propagated.
type PrometheusSink struct {
	// HTTP metrics
	requestsTotal    *prometheus.CounterVec
	requestDuration  *prometheus.HistogramVec
	requestsInFlight prometheus.Gauge

	// Catalog metrics
	storeOpsTotal    *prometheus.CounterVec
	storeOpDuration  *prometheus.HistogramVec
	queryResultSize  *prometheus.HistogramVec
	mutationOutcomes *prometheus.CounterVec

	// Batch metrics
	ingestRunsTotal         *prometheus.CounterVec
	ingestJobs              prometheus.Gauge
	ingestMissingIndustries prometheus.Gauge
	ingestDuration          prometheus.Histogram
	importRunsTotal         *prometheus.CounterVec
	importJobs              *prometheus.GaugeVec

	// Resilience metrics
	breakerState         *prometheus.GaugeVec
	breakerTransitions   *prometheus.CounterVec
	analyticsErrorsTotal prometheus.Counter
}

// breakerStates maps a breaker state name to its gauge value.
var breakerStates = map[string]float64{
	"closed":    0,
	"half_open": 1,
	"open":      2,
}

// NewPrometheusSink creates a new Prometheus metrics sink.
// If registration fails, it logs a warning and returns a functional sink.
func NewPrometheusSink(reg prometheus.Registerer) *PrometheusSink {
	s := &PrometheusSink{}
	s.initHTTPMetrics(reg)
	s.initCatalogMetrics(reg)
	s.initBatchMetrics(reg)
	s.initResilienceMetrics(reg)
	return s
}

func (s *PrometheusSink) initHTTPMetrics(reg prometheus.Registerer) {
	s.requestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "careerhub_http_requests_total",
		Help: "Total number of HTTP requests served.",
	}, []string{"route", "method", "status_class"})

	s.requestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "careerhub_http_request_duration_seconds",
		Help:    "HTTP request latency in seconds.",
		Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
	}, []string{"route", "method"})

	s.requestsInFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "careerhub_http_requests_in_flight",
		Help: "Number of HTTP requests currently being served.",
	})

	s.register(reg, s.requestsTotal, "careerhub_http_requests_total")
	s.register(reg, s.requestDuration, "careerhub_http_request_duration_seconds")
	s.register(reg, s.requestsInFlight, "careerhub_http_requests_in_flight")
}

func (s *PrometheusSink) initCatalogMetrics(reg prometheus.Registerer) {
	s.storeOpsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "careerhub_store_operations_total",
		Help: "Total number of store operations by result class.",
	}, []string{"op", "result"})

	s.storeOpDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "careerhub_store_operation_duration_seconds",
		Help:    "Store operation latency in seconds.",
		Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 5},
	}, []string{"op"})

	s.queryResultSize = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "careerhub_query_result_size",
		Help:    "Number of documents returned per catalog query.",
		Buckets: []float64{0, 1, 5, 10, 50, 100, 500, 1000, 5000},
	}, []string{"op"})

	s.mutationOutcomes = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "careerhub_mutation_outcomes_total",
		Help: "Total number of catalog mutations by outcome.",
	}, []string{"op", "outcome"})

	s.register(reg, s.storeOpsTotal, "careerhub_store_operations_total")
	s.register(reg, s.storeOpDuration, "careerhub_store_operation_duration_seconds")
	s.register(reg, s.queryResultSize, "careerhub_query_result_size")
	s.register(reg, s.mutationOutcomes, "careerhub_mutation_outcomes_total")
}

func (s *PrometheusSink) initBatchMetrics(reg prometheus.Registerer) {
	s.ingestRunsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "careerhub_ingest_runs_total",
		Help: "Total number of ingestion runs by result.",
	}, []string{"result"})

	s.ingestJobs = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "careerhub_ingest_jobs",
		Help: "Job documents assembled by the last successful ingestion run.",
	})

	s.ingestMissingIndustries = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "careerhub_ingest_missing_industries",
		Help: "Unresolved industry references in the last successful ingestion run.",
	})

	s.ingestDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "careerhub_ingest_duration_seconds",
		Help:    "Duration of ingestion runs in seconds.",
		Buckets: []float64{0.1, 0.5, 1, 5, 10, 30, 60, 300},
	})

	s.importRunsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "careerhub_import_runs_total",
		Help: "Total number of bulk imports by store driver and result.",
	}, []string{"driver", "result"})

	s.importJobs = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "careerhub_import_jobs",
		Help: "Job documents loaded by the last successful import.",
	}, []string{"driver"})

	s.register(reg, s.ingestRunsTotal, "careerhub_ingest_runs_total")
	s.register(reg, s.ingestJobs, "careerhub_ingest_jobs")
	s.register(reg, s.ingestMissingIndustries, "careerhub_ingest_missing_industries")
	s.register(reg, s.ingestDuration, "careerhub_ingest_duration_seconds")
	s.register(reg, s.importRunsTotal, "careerhub_import_runs_total")
	s.register(reg, s.importJobs, "careerhub_import_jobs")
}

func (s *PrometheusSink) initResilienceMetrics(reg prometheus.Registerer) {
	s.breakerState = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "careerhub_circuit_breaker_state",
		Help: "Circuit breaker state (0=closed, 1=half_open, 2=open).",
	}, []string{"key"})

	s.breakerTransitions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "careerhub_circuit_breaker_transitions_total",
		Help: "Total number of circuit breaker state transitions.",
	}, []string{"key", "state"})

	s.analyticsErrorsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "careerhub_analytics_write_errors_total",
		Help: "Total number of failed lookup analytics writes.",
	})

	s.register(reg, s.breakerState, "careerhub_circuit_breaker_state")
	s.register(reg, s.breakerTransitions, "careerhub_circuit_breaker_transitions_total")
	s.register(reg, s.analyticsErrorsTotal, "careerhub_analytics_write_errors_total")
}

// register attempts to register a collector, logging any errors without propagating them.
func (s *PrometheusSink) register(reg prometheus.Registerer, c prometheus.Collector, name string) {
	if err := reg.Register(c); err != nil {
		log.Warn().Err(err).Str("metric", name).Msg("metrics: failed to register collector")
	}
}

func resultLabel(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}

// HTTP metrics implementation

func (s *PrometheusSink) RequestStarted() {
	s.requestsInFlight.Inc()
}

func (s *PrometheusSink) RequestCompleted(route, method, statusClass string, duration time.Duration) {
	s.requestsInFlight.Dec()
	s.requestsTotal.WithLabelValues(route, method, statusClass).Inc()
	s.requestDuration.WithLabelValues(route, method).Observe(duration.Seconds())
}

// Catalog metrics implementation

func (s *PrometheusSink) StoreOpCompleted(op string, duration time.Duration, err error) {
	s.storeOpsTotal.WithLabelValues(op, ClassifyError(err)).Inc()
	s.storeOpDuration.WithLabelValues(op).Observe(duration.Seconds())
}

func (s *PrometheusSink) QueryResultSize(op string, n int) {
	s.queryResultSize.WithLabelValues(op).Observe(float64(n))
}

func (s *PrometheusSink) MutationOutcome(op, outcome string) {
	s.mutationOutcomes.WithLabelValues(op, outcome).Inc()
}

// Batch metrics implementation

func (s *PrometheusSink) IngestCompleted(jobs, missingIndustries int, duration time.Duration, err error) {
	s.ingestRunsTotal.WithLabelValues(resultLabel(err)).Inc()
	s.ingestDuration.Observe(duration.Seconds())
	if err == nil {
		s.ingestJobs.Set(float64(jobs))
		s.ingestMissingIndustries.Set(float64(missingIndustries))
	}
}

func (s *PrometheusSink) ImportCompleted(driver string, jobs int, duration time.Duration, err error) {
	s.importRunsTotal.WithLabelValues(driver, resultLabel(err)).Inc()
	if err == nil {
		s.importJobs.WithLabelValues(driver).Set(float64(jobs))
	}
}

// Resilience metrics implementation

func (s *PrometheusSink) BreakerStateChanged(key, state string) {
	if v, ok := breakerStates[state]; ok {
		s.breakerState.WithLabelValues(key).Set(v)
	}
	s.breakerTransitions.WithLabelValues(key, state).Inc()
}

func (s *PrometheusSink) AnalyticsWriteFailed() {
	s.analyticsErrorsTotal.Inc()
}
