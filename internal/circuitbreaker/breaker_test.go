package circuitbreaker

import (
	"sync"
	"testing"
	"time"

	"github.com/djlord-it/careerhub/internal/testutil"
)

const key = "store"

func newTestBreaker(threshold int, cooldown time.Duration) (*CircuitBreaker, *testutil.FakeClock) {
	clock := testutil.NewFakeClock(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))
	return New(threshold, cooldown).WithClock(clock.Now), clock
}

func trip(cb *CircuitBreaker, n int) {
	for i := 0; i < n; i++ {
		cb.RecordFailure(key)
	}
}

func TestAllow_UnknownKey_Allowed(t *testing.T) {
	cb := New(3, 5*time.Second)
	if err := cb.Allow(key); err != nil {
		t.Fatalf("expected nil, got %v", err)
	}
}

func TestAllow_BelowThreshold_Allowed(t *testing.T) {
	cb := New(3, 5*time.Second)
	trip(cb, 2)
	if err := cb.Allow(key); err != nil {
		t.Fatalf("expected nil, got %v", err)
	}
}

func TestAllow_AtThreshold_Open(t *testing.T) {
	cb := New(3, 5*time.Second)
	trip(cb, 3)
	if err := cb.Allow(key); err != ErrCircuitOpen {
		t.Fatalf("expected ErrCircuitOpen, got %v", err)
	}
	if got := cb.State(key); got != "open" {
		t.Errorf("State = %q, want open", got)
	}
}

func TestAllow_OpenAfterCooldown_HalfOpen(t *testing.T) {
	cb, clock := newTestBreaker(3, 30*time.Second)
	trip(cb, 3)

	clock.Advance(29 * time.Second)
	if err := cb.Allow(key); err == nil {
		t.Fatal("expected ErrCircuitOpen before cooldown elapsed")
	}

	clock.Advance(time.Second)
	if err := cb.Allow(key); err != nil {
		t.Fatalf("expected nil (probe allowed), got %v", err)
	}
	if err := cb.Allow(key); err == nil {
		t.Fatal("expected ErrCircuitOpen while half-open probe in flight")
	}
}

func TestRecordSuccess_ResetsToClosed(t *testing.T) {
	cb, clock := newTestBreaker(3, time.Second)
	trip(cb, 3)
	clock.Advance(time.Second)
	_ = cb.Allow(key)
	cb.RecordSuccess(key)
	if err := cb.Allow(key); err != nil {
		t.Fatalf("expected nil after reset, got %v", err)
	}
	// The failure count restarts from zero.
	trip(cb, 2)
	if err := cb.Allow(key); err != nil {
		t.Fatalf("expected nil below threshold after reset, got %v", err)
	}
}

func TestRecordFailure_HalfOpenReOpens(t *testing.T) {
	cb, clock := newTestBreaker(3, time.Second)
	trip(cb, 3)
	clock.Advance(time.Second)
	_ = cb.Allow(key)
	cb.RecordFailure(key)
	if err := cb.Allow(key); err == nil {
		t.Fatal("expected ErrCircuitOpen after probe failure re-open")
	}
	// The cooldown restarts from the failed probe.
	clock.Advance(time.Second)
	if err := cb.Allow(key); err != nil {
		t.Fatalf("expected probe after second cooldown, got %v", err)
	}
}

func TestRecordSuccess_ClosedState_NoOp(t *testing.T) {
	cb := New(3, 5*time.Second)
	cb.RecordSuccess(key)
	if err := cb.Allow(key); err != nil {
		t.Fatalf("expected nil, got %v", err)
	}
}

func TestIndependentKeys(t *testing.T) {
	cb := New(2, 5*time.Second)
	cb.RecordFailure("primary")
	cb.RecordFailure("primary")
	if err := cb.Allow("primary"); err == nil {
		t.Fatal("expected primary open")
	}
	if err := cb.Allow("replica"); err != nil {
		t.Fatalf("expected replica allowed, got %v", err)
	}
}

func TestOnStateChange_Transitions(t *testing.T) {
	var (
		mu          sync.Mutex
		transitions []string
	)
	cb, clock := newTestBreaker(2, time.Second)
	cb.OnStateChange(func(k, state string) {
		mu.Lock()
		defer mu.Unlock()
		transitions = append(transitions, k+":"+state)
	})

	trip(cb, 3) // third failure keeps it open, no second transition
	clock.Advance(time.Second)
	_ = cb.Allow(key)
	cb.RecordSuccess(key)
	cb.RecordSuccess(key)

	want := []string{"store:open", "store:half_open", "store:closed"}
	if len(transitions) != len(want) {
		t.Fatalf("transitions = %v, want %v", transitions, want)
	}
	for i := range want {
		if transitions[i] != want[i] {
			t.Errorf("transition %d = %q, want %q", i, transitions[i], want[i])
		}
	}
}

func TestOnStateChange_CallbackMayReenter(t *testing.T) {
	cb := New(1, time.Second)
	var seen string
	cb.OnStateChange(func(k, _ string) {
		seen = cb.State(k)
	})
	cb.RecordFailure(key)
	if seen != "open" {
		t.Errorf("state seen from callback = %q, want open", seen)
	}
}
