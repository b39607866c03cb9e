package api

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestRateLimiterAllow(t *testing.T) {
	rl := NewRateLimiter(RateLimiterConfig{RequestsPerMinute: 60, BurstSize: 3})
	defer rl.Close()

	for i := 0; i < 3; i++ {
		if !rl.Allow("192.0.2.1") {
			t.Fatalf("request %d denied within burst", i+1)
		}
	}
	if rl.Allow("192.0.2.1") {
		t.Error("request beyond burst allowed")
	}
	if !rl.Allow("192.0.2.2") {
		t.Error("other clients must have their own bucket")
	}
	if got := rl.Remaining("192.0.2.2"); got != 2 {
		t.Errorf("Remaining() = %d, want 2", got)
	}
}

func TestRateLimiterDefaultBurst(t *testing.T) {
	rl := NewRateLimiter(RateLimiterConfig{RequestsPerMinute: 60})
	defer rl.Close()
	if rl.config.BurstSize != 10 {
		t.Errorf("burst = %d, want 10", rl.config.BurstSize)
	}
	rl.Close() // idempotent
}

func TestRateLimiterMiddleware(t *testing.T) {
	rl := NewRateLimiter(RateLimiterConfig{RequestsPerMinute: 1, BurstSize: 1})
	defer rl.Close()
	handler := rl.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/parse?q=john", nil)
	req.RemoteAddr = "203.0.113.9:5555"

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("first request = %d", w.Code)
	}
	if w.Header().Get("X-RateLimit-Limit") != "1" || w.Header().Get("X-RateLimit-Remaining") != "0" {
		t.Errorf("headers = %v", w.Header())
	}

	w = httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("second request = %d, want 429", w.Code)
	}
	if w.Header().Get("Retry-After") == "" {
		t.Error("missing Retry-After")
	}
}

func TestServerRateLimited(t *testing.T) {
	cfg := DefaultConfig()
	cfg.RateLimitRequests = 1
	cfg.RateLimitBurst = 1
	s := newTestServer(t, cfg, false)
	h := s.Handler()

	if w, _ := do(t, h, http.MethodGet, "/health", nil); w.Code != http.StatusOK {
		t.Fatalf("first request = %d", w.Code)
	}
	w, env := do(t, h, http.MethodGet, "/health", nil)
	if w.Code != http.StatusTooManyRequests || env.Error == nil || env.Error.Code != "RATE_LIMIT_EXCEEDED" {
		t.Errorf("second request = %d %+v", w.Code, env.Error)
	}
}
