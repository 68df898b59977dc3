package analytics

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

func TestBuildKey(t *testing.T) {
	at := time.Date(2025, 3, 9, 14, 59, 59, 0, time.UTC)

	tests := []struct {
		name  string
		kind  string
		value string
		t     time.Time
		want  string
	}{
		{"plain", "industry", "Technology", at, "lookup:industry:technology:2025030914"},
		{"case folded", "location", "New York", at, "lookup:location:new york:2025030914"},
		{"trimmed", "skill", "  Python ", at, "lookup:skill:python:2025030914"},
		{"next hour", "skill", "python", at.Add(time.Second), "lookup:skill:python:2025030915"},
		{"non-utc input", "degree", "PhD", time.Date(2025, 3, 9, 16, 0, 0, 0, time.FixedZone("CET", 2*3600)), "lookup:degree:phd:2025030914"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := buildKey(tt.kind, tt.value, tt.t); got != tt.want {
				t.Errorf("buildKey() = %q, want %q", got, tt.want)
			}
		})
	}
}

type countingFailures struct {
	mu sync.Mutex
	n  int
}

func (c *countingFailures) AnalyticsWriteFailed() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.n++
}

func (c *countingFailures) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.n
}

func TestRecordLookup_UnreachableRedis_NeverFails(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1", // nothing listens here
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer client.Close()

	failures := &countingFailures{}
	sink := NewRedisSink(client).WithFailureRecorder(failures)

	ctx, cancel := context.WithCancel(context.Background())
	cancel() // an already-cancelled request context must not suppress the write attempt

	sink.RecordLookup(ctx, "industry", "Technology")
	sink.Wait()

	if got := failures.count(); got != 1 {
		t.Errorf("failures = %d, want 1", got)
	}
}

func TestRecordLookup_ReturnsBeforeWriteCompletes(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "10.255.255.1:6379", // unroutable
		DialTimeout: 500 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer client.Close()

	failures := &countingFailures{}
	sink := NewRedisSink(client).WithFailureRecorder(failures)

	start := time.Now()
	for i := 0; i < 10; i++ {
		sink.RecordLookup(context.Background(), "skill", "python")
	}
	if elapsed := time.Since(start); elapsed > 50*time.Millisecond {
		t.Errorf("RecordLookup blocked the caller for %v", elapsed)
	}

	sink.Wait()
	if got := failures.count(); got != 10 {
		t.Errorf("failures = %d, want 10", got)
	}
}

func TestRecordLookup_DropsWhenSaturated(t *testing.T) {
	failures := &countingFailures{}
	sink := NewRedisSink(nil).WithMaxInFlight(1).WithFailureRecorder(failures)

	sink.slots <- struct{}{} // one write already pending

	sink.RecordLookup(context.Background(), "location", "Berlin")

	if got := failures.count(); got != 1 {
		t.Errorf("failures = %d, want 1", got)
	}
	if len(sink.slots) != 1 {
		t.Errorf("pending = %d, want 1", len(sink.slots))
	}
	sink.Wait()
}

func TestWithRetention_IgnoresNonPositive(t *testing.T) {
	sink := NewRedisSink(nil).WithRetention(0)
	if sink.retention != defaultRetention {
		t.Errorf("retention = %v, want default %v", sink.retention, defaultRetention)
	}
	sink.WithRetention(time.Hour)
	if sink.retention != time.Hour {
		t.Errorf("retention = %v, want 1h", sink.retention)
	}
}
