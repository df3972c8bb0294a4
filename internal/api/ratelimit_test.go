package api

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestIPRateLimiterAllow(t *testing.T) {
	rl := NewIPRateLimiter(RateLimitConfig{
		RequestsPerSecond: 1,
		Burst:             3,
		CleanupInterval:   time.Minute,
	})
	defer rl.Stop()

	for i := 0; i < 3; i++ {
		if !rl.Allow("10.0.0.1") {
			t.Fatalf("request %d within burst should be allowed", i+1)
		}
	}
	if rl.Allow("10.0.0.1") {
		t.Error("request past burst should be denied")
	}

	// Separate IPs get separate buckets.
	if !rl.Allow("10.0.0.2") {
		t.Error("fresh ip should be allowed")
	}

	stats := rl.Stats()
	if stats["rejected"] == 0 {
		t.Error("rejected counter should be nonzero")
	}
}

func TestIPRateLimiterMiddleware(t *testing.T) {
	rl := NewIPRateLimiter(RateLimitConfig{
		RequestsPerSecond: 1,
		Burst:             2,
		CleanupInterval:   time.Minute,
	})
	defer rl.Stop()

	handler := rl.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	do := func() int {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "10.0.0.9:1234"
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec.Code
	}

	if code := do(); code != http.StatusOK {
		t.Fatalf("first request: got %d", code)
	}
	if code := do(); code != http.StatusOK {
		t.Fatalf("second request: got %d", code)
	}
	if code := do(); code != http.StatusTooManyRequests {
		t.Fatalf("third request should be limited, got %d", code)
	}
}

func TestGetClientIP(t *testing.T) {
	tests := []struct {
		name       string
		forwarded  string
		realIP     string
		remoteAddr string
		want       string
	}{
		{"forwarded single", "203.0.113.7", "", "10.0.0.1:80", "203.0.113.7"},
		{"forwarded chain", "203.0.113.7, 10.0.0.2", "", "10.0.0.1:80", "203.0.113.7"},
		{"real ip", "", "203.0.113.8", "10.0.0.1:80", "203.0.113.8"},
		{"remote addr", "", "", "203.0.113.9:443", "203.0.113.9"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remoteAddr
			if tt.forwarded != "" {
				req.Header.Set("X-Forwarded-For", tt.forwarded)
			}
			if tt.realIP != "" {
				req.Header.Set("X-Real-IP", tt.realIP)
			}
			if got := GetClientIP(req); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestConnLimiter(t *testing.T) {
	cl := NewConnLimiter(2)

	if !cl.Allow("10.0.0.1") || !cl.Allow("10.0.0.1") {
		t.Fatal("connections within the cap should be allowed")
	}
	if cl.Allow("10.0.0.1") {
		t.Error("connection past the cap should be denied")
	}
	if !cl.Allow("10.0.0.2") {
		t.Error("other ips are not affected")
	}

	cl.Release("10.0.0.1")
	if !cl.Allow("10.0.0.1") {
		t.Error("released slot should be reusable")
	}
	if cl.Count("10.0.0.1") != 2 {
		t.Errorf("expected count 2, got %d", cl.Count("10.0.0.1"))
	}
}
