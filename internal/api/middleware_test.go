package api

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/djlord-it/careerhub/internal/metrics"
	"github.com/djlord-it/careerhub/internal/testutil"
)

type requestRecord struct {
	route, method, statusClass string
}

type recordingSink struct {
	*metrics.NoopSink
	mu       sync.Mutex
	started  int
	requests []requestRecord
}

func (s *recordingSink) RequestStarted() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.started++
}

func (s *recordingSink) RequestCompleted(route, method, statusClass string, _ time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests = append(s.requests, requestRecord{route, method, statusClass})
}

func TestRequestID_Propagated(t *testing.T) {
	r, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(requestIDHeader, "abc-123")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if got := w.Header().Get(requestIDHeader); got != "abc-123" {
		t.Errorf("X-Request-ID = %q, want abc-123", got)
	}
}

func TestRequestID_Generated(t *testing.T) {
	r, _ := newTestRouter(t)

	w := do(t, r, http.MethodGet, "/", "")
	if got := w.Header().Get(requestIDHeader); len(got) != 36 {
		t.Errorf("expected a generated uuid, got %q", got)
	}
}

func TestRecordMetrics(t *testing.T) {
	sink := &recordingSink{NoopSink: metrics.NewNoopSink()}
	h := NewHandler(newFaultyCatalog(nil))
	r := NewRouter(h, RouterOptions{Metrics: sink})

	do(t, r, http.MethodGet, "/jobs/count-by-industry", "")
	do(t, r, http.MethodGet, "/no/such/route", "")

	sink.mu.Lock()
	defer sink.mu.Unlock()
	if sink.started != 2 {
		t.Errorf("started = %d, want 2", sink.started)
	}
	want := []requestRecord{
		{"/jobs/count-by-industry", http.MethodGet, metrics.StatusClass2xx},
		{unmatchedRoute, http.MethodGet, metrics.StatusClass4xx},
	}
	if len(sink.requests) != len(want) {
		t.Fatalf("recorded %d requests, want %d", len(sink.requests), len(want))
	}
	for i := range want {
		if sink.requests[i] != want[i] {
			t.Errorf("request[%d] = %+v, want %+v", i, sink.requests[i], want[i])
		}
	}
}

func TestRateLimit(t *testing.T) {
	h := NewHandler(newFaultyCatalog(nil))
	r := NewRouter(h, RouterOptions{RateLimitRPS: 0.001, RateLimitBurst: 2})

	send := func(ip string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = ip + ":40000"
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	for i := 0; i < 2; i++ {
		if w := send("192.0.2.1"); w.Code != http.StatusOK {
			t.Fatalf("request %d: expected 200, got %d", i, w.Code)
		}
	}
	w := send("192.0.2.1")
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", w.Code)
	}
	if w.Header().Get("Retry-After") == "" {
		t.Error("missing Retry-After header")
	}
	if resp := decode[ErrorResponse](t, w); resp.Error != "rate limit exceeded" {
		t.Errorf("error = %q", resp.Error)
	}

	if w := send("192.0.2.2"); w.Code != http.StatusOK {
		t.Errorf("other client: expected 200, got %d", w.Code)
	}
}

func TestClientLimiters_SweepsIdle(t *testing.T) {
	clock := testutil.NewFakeClock(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))
	l := newClientLimiters(1, 1)
	l.now = clock.Now

	l.allow("a")
	l.allow("b")
	if len(l.limiters) != 2 {
		t.Fatalf("limiters = %d, want 2", len(l.limiters))
	}

	clock.Advance(l.idleTTL + time.Second)
	l.allow("b")
	if _, ok := l.limiters["a"]; ok {
		t.Error("idle limiter a was not swept")
	}
	if len(l.limiters) != 1 {
		t.Errorf("limiters = %d, want 1", len(l.limiters))
	}
}

func TestClientLimiters_Refills(t *testing.T) {
	clock := testutil.NewFakeClock(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))
	l := newClientLimiters(1, 1)
	l.now = clock.Now

	if !l.allow("a") {
		t.Fatal("first request should pass")
	}
	if l.allow("a") {
		t.Fatal("second request should be limited")
	}
	clock.Advance(time.Second)
	if !l.allow("a") {
		t.Error("request after refill should pass")
	}
}

func TestRecovery(t *testing.T) {
	var buf bytes.Buffer
	h := NewHandler(newFaultyCatalog(nil)).WithLogger(zerolog.New(&buf))
	r := NewRouter(h, RouterOptions{})
	r.GET("/boom", func(*gin.Context) { panic("kaboom") })

	req := httptest.NewRequest(http.MethodGet, "/boom", nil)
	req.Header.Set(requestIDHeader, "req-panic")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", w.Code)
	}
	resp := decode[ErrorResponse](t, w)
	if resp.Error != serverErrorMessage || resp.RequestID != "req-panic" {
		t.Errorf("unexpected body: %+v", resp)
	}
	if !strings.Contains(buf.String(), "kaboom") {
		t.Errorf("panic not logged: %s", buf.String())
	}
}

func TestAccessLog(t *testing.T) {
	var buf bytes.Buffer
	h := NewHandler(newFaultyCatalog(nil)).WithLogger(zerolog.New(&buf))
	r := NewRouter(h, RouterOptions{})

	do(t, r, http.MethodGet, "/jobs/abc", "")

	out := buf.String()
	for _, want := range []string{`"route":"/jobs/:job_id"`, `"status":404`, `"message":"request processed"`} {
		if !strings.Contains(out, want) {
			t.Errorf("access log missing %s: %s", want, out)
		}
	}
}

func TestCORS_AllowedOrigin(t *testing.T) {
	h := NewHandler(newFaultyCatalog(nil))
	r := NewRouter(h, RouterOptions{CORSAllowOrigins: []string{"https://app.example.com"}})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "https://app.example.com")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "https://app.example.com" {
		t.Errorf("Access-Control-Allow-Origin = %q", got)
	}

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusForbidden {
		t.Errorf("disallowed origin: expected 403, got %d", w.Code)
	}
}
