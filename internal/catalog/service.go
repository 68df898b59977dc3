// Package catalog answers the job catalog's queries and applies its
// mutations on top of a Store.
package catalog

import (
	"context"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
)

// breakerKey is the single circuit the service trips for its store.
const breakerKey = "store"

// MetricsSink records catalog metrics. All methods must be non-blocking.
type MetricsSink interface {
	StoreOpCompleted(op string, duration time.Duration, err error)
	QueryResultSize(op string, n int)
	MutationOutcome(op, outcome string)
}

// AnalyticsSink counts lookups per filter value. Recording is best effort
// and never affects the query result.
type AnalyticsSink interface {
	RecordLookup(ctx context.Context, kind, value string)
}

// Breaker fails store calls fast after repeated store faults.
type Breaker interface {
	Allow(key string) error
	RecordSuccess(key string)
	RecordFailure(key string)
}

// Mutation outcomes passed to MetricsSink.MutationOutcome.
const (
	OutcomeCreated   = "created"
	OutcomeUpdated   = "updated"
	OutcomeUnchanged = "unchanged"
	OutcomeDeleted   = "deleted"
	OutcomeNotFound  = "not_found"
	OutcomeRejected  = "rejected"
	OutcomeFailed    = "failed"
)

// Service is stateless apart from its injected collaborators and is safe
// for concurrent use.
type Service struct {
	store     Store
	breaker   Breaker       // optional, nil = disabled
	metrics   MetricsSink   // optional, nil = disabled
	analytics AnalyticsSink // optional, nil = disabled
	opTimeout time.Duration // 0 = caller's context only
	log       zerolog.Logger
	validate  *validator.Validate
}

func NewService(store Store) *Service {
	return &Service{
		store:    store,
		log:      zerolog.Nop(),
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (s *Service) WithBreaker(b Breaker) *Service {
	s.breaker = b
	return s
}

// WithMetrics attaches a metrics sink to the service.
func (s *Service) WithMetrics(sink MetricsSink) *Service {
	s.metrics = sink
	return s
}

func (s *Service) WithAnalytics(sink AnalyticsSink) *Service {
	s.analytics = sink
	return s
}

// WithOpTimeout bounds every store call.
func (s *Service) WithOpTimeout(d time.Duration) *Service {
	s.opTimeout = d
	return s
}

func (s *Service) WithLogger(l zerolog.Logger) *Service {
	s.log = l.With().Str("component", "catalog").Logger()
	return s
}

// Ping checks store connectivity, bypassing the breaker.
func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

// call runs one store operation behind the breaker and the op timeout.
// ErrNotFound passes through untouched; every other error becomes a store fault.
func (s *Service) call(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	if s.breaker != nil {
		if err := s.breaker.Allow(breakerKey); err != nil {
			s.log.Warn().Str("op", op).Msg("store circuit open, failing fast")
			return storeFault(op, err)
		}
	}

	if s.opTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opTimeout)
		defer cancel()
	}

	start := time.Now()
	err := fn(ctx)
	notFound := errors.Is(err, ErrNotFound)

	if s.metrics != nil {
		recorded := err
		if notFound {
			recorded = nil
		}
		s.metrics.StoreOpCompleted(op, time.Since(start), recorded)
	}

	if err != nil && !notFound {
		if s.breaker != nil {
			s.breaker.RecordFailure(breakerKey)
		}
		s.log.Error().Err(err).Str("op", op).Msg("store operation failed")
		return storeFault(op, err)
	}
	if s.breaker != nil {
		s.breaker.RecordSuccess(breakerKey)
	}
	return err
}

func (s *Service) observe(op string, n int) {
	if s.metrics != nil {
		s.metrics.QueryResultSize(op, n)
	}
}

func (s *Service) outcome(op, outcome string) {
	if s.metrics != nil {
		s.metrics.MutationOutcome(op, outcome)
	}
}

func (s *Service) recordLookup(ctx context.Context, kind, value string) {
	if s.analytics != nil {
		s.analytics.RecordLookup(ctx, kind, value)
	}
}
