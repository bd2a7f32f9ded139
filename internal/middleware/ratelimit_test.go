package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestRateLimiter_Limit(t *testing.T) {
	rl := NewRateLimiter(2, time.Minute)
	defer rl.Stop()
	now := time.Date(2025, 3, 14, 10, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	handler := rl.Limit(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	var last *httptest.ResponseRecorder
	do := func(addr string) int {
		req := httptest.NewRequest("POST", "/api/login", nil)
		req.RemoteAddr = addr
		last = httptest.NewRecorder()
		handler.ServeHTTP(last, req)
		return last.Code
	}

	for i, want := range []int{200, 200, 429} {
		if got := do("203.0.113.5:1234"); got != want {
			t.Errorf("attempt %d: status = %d, want %d", i+1, got, want)
		}
		now = now.Add(15 * time.Second)
	}
	if ra := last.Header().Get("Retry-After"); ra != "30" {
		t.Errorf("Retry-After = %q, want 30", ra)
	}
	if got := do("203.0.113.6:1234"); got != http.StatusOK {
		t.Errorf("other ip status = %d, want 200", got)
	}

	now = now.Add(2 * time.Minute)
	if got := do("203.0.113.5:1234"); got != http.StatusOK {
		t.Errorf("after window status = %d, want 200", got)
	}

	now = now.Add(10 * time.Minute)
	rl.prune()
	if len(rl.attempts) != 0 {
		t.Errorf("attempts after prune = %d", len(rl.attempts))
	}
}

func TestRateLimiter_ClientIP(t *testing.T) {
	rl := NewRateLimiter(1, time.Minute, "10.0.0.0/8", "192.168.1.1", "bogus")
	defer rl.Stop()

	tests := []struct {
		name   string
		remote string
		xff    string
		xri    string
		want   string
	}{
		{"direct client ignores headers", "203.0.113.5:1", "198.51.100.1", "", "203.0.113.5"},
		{"trusted proxy uses xff", "10.1.2.3:1", "198.51.100.1, 10.0.0.2", "", "198.51.100.1"},
		{"bare ip proxy", "192.168.1.1:1", "198.51.100.7", "", "198.51.100.7"},
		{"x-real-ip fallback", "10.1.2.3:1", "", "198.51.100.9", "198.51.100.9"},
		{"no headers", "10.1.2.3:1", "", "", "10.1.2.3"},
		{"only proxies in xff", "10.1.2.3:1", "10.0.0.5, 192.168.1.1", "", "10.1.2.3"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/", nil)
			req.RemoteAddr = tt.remote
			if tt.xff != "" {
				req.Header.Set("X-Forwarded-For", tt.xff)
			}
			if tt.xri != "" {
				req.Header.Set("X-Real-IP", tt.xri)
			}
			if got := rl.clientIP(req); got != tt.want {
				t.Errorf("clientIP = %q, want %q", got, tt.want)
			}
		})
	}
}
