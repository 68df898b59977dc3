// Package analytics counts catalog lookups per filter value in Redis.
package analytics

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const (
	defaultRetention    = 7 * 24 * time.Hour
	defaultWriteTimeout = 250 * time.Millisecond
	defaultMaxInFlight  = 64
)

// FailureRecorder is notified when a write fails.
type FailureRecorder interface {
	AnalyticsWriteFailed()
}

// RedisSink keeps one counter per lookup kind, value and hour. Writes are
// best effort and run off the caller's goroutine: failures are logged and
// counted, never returned. When maxInFlight writes are pending, further
// lookups are dropped.
type RedisSink struct {
	client       redis.Cmdable
	retention    time.Duration
	writeTimeout time.Duration
	now          func() time.Time
	failures     FailureRecorder
	log          zerolog.Logger

	slots chan struct{}
	wg    sync.WaitGroup
}

func NewRedisSink(client redis.Cmdable) *RedisSink {
	return &RedisSink{
		client:       client,
		retention:    defaultRetention,
		writeTimeout: defaultWriteTimeout,
		now:          time.Now,
		log:          zerolog.Nop(),
		slots:        make(chan struct{}, defaultMaxInFlight),
	}
}

func (s *RedisSink) WithRetention(d time.Duration) *RedisSink {
	if d > 0 {
		s.retention = d
	}
	return s
}

func (s *RedisSink) WithFailureRecorder(f FailureRecorder) *RedisSink {
	s.failures = f
	return s
}

func (s *RedisSink) WithLogger(l zerolog.Logger) *RedisSink {
	s.log = l.With().Str("component", "analytics").Logger()
	return s
}

// WithMaxInFlight bounds the number of pending writes. Must be called before
// the first RecordLookup.
func (s *RedisSink) WithMaxInFlight(n int) *RedisSink {
	if n > 0 {
		s.slots = make(chan struct{}, n)
	}
	return s
}

// RecordLookup schedules a counter increment and returns immediately.
func (s *RedisSink) RecordLookup(ctx context.Context, kind, value string) {
	select {
	case s.slots <- struct{}{}:
	default:
		s.log.Warn().Str("kind", kind).Msg("lookup analytics dropped, too many pending writes")
		s.failed()
		return
	}

	key := buildKey(kind, value, s.now())
	ctx = context.WithoutCancel(ctx)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer func() { <-s.slots }()
		s.write(ctx, kind, key)
	}()
}

// Wait blocks until every scheduled write has finished.
func (s *RedisSink) Wait() {
	s.wg.Wait()
}

func (s *RedisSink) write(ctx context.Context, kind, key string) {
	ctx, cancel := context.WithTimeout(ctx, s.writeTimeout)
	defer cancel()

	pipe := s.client.Pipeline()
	pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, s.retention)

	if _, err := pipe.Exec(ctx); err != nil {
		s.log.Warn().Err(err).Str("kind", kind).Msg("lookup analytics write failed")
		s.failed()
	}
}

func (s *RedisSink) failed() {
	if s.failures != nil {
		s.failures.AnalyticsWriteFailed()
	}
}

// buildKey folds case so "New York" and "new york" share a counter, matching
// how the lookup itself compares values.
func buildKey(kind, value string, t time.Time) string {
	return fmt.Sprintf("lookup:%s:%s:%s", kind, strings.ToLower(strings.TrimSpace(value)), hourBucket(t))
}

func hourBucket(t time.Time) string {
	return t.UTC().Format("2006010215")
}
