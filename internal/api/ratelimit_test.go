package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestRetryAfterSeconds(t *testing.T) {
	tests := []struct {
		name   string
		window time.Duration
		want   int
	}{
		{name: "zero", window: 0, want: 1},
		{name: "negative", window: -time.Second, want: 1},
		{name: "fractional_rounds_up", window: 1500 * time.Millisecond, want: 2},
		{name: "whole_second", window: time.Second, want: 1},
		{name: "minute", window: time.Minute, want: 60},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := retryAfterSeconds(tt.window); got != tt.want {
				t.Fatalf("retryAfterSeconds(%s) = %d, want %d", tt.window, got, tt.want)
			}
		})
	}
}

func TestRateLimiterSlidingWindow(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	rl := NewRateLimiter(2, time.Minute)
	rl.now = func() time.Time { return now }
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		d, err := rl.Allow(ctx, "ip:1")
		if err != nil || !d.Allowed {
			t.Fatalf("request %d: Allow() = %+v, %v; want allowed", i, d, err)
		}
	}

	now = now.Add(20 * time.Second)
	d, _ := rl.Allow(ctx, "ip:1")
	if d.Allowed {
		t.Fatal("third request inside the window was allowed")
	}
	if d.RetryAfter != 40*time.Second {
		t.Fatalf("RetryAfter = %s, want 40s", d.RetryAfter)
	}

	if d, _ := rl.Allow(ctx, "ip:2"); !d.Allowed {
		t.Fatal("other key was limited")
	}

	now = now.Add(41 * time.Second)
	if d, _ := rl.Allow(ctx, "ip:1"); !d.Allowed {
		t.Fatal("request after the window was limited")
	}
}

func TestRateLimitMiddlewareKeysByUser(t *testing.T) {
	ips, err := NewClientIPResolver(nil)
	if err != nil {
		t.Fatalf("NewClientIPResolver error: %v", err)
	}
	handler := RateLimitMiddleware(NewRateLimiter(1, time.Minute), ips)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	send := func(userID string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/users/me", nil)
		req.RemoteAddr = "203.0.113.7:4000"
		if userID != "" {
			req = req.WithContext(context.WithValue(req.Context(), userIDKey, userID))
		}
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		return rr
	}

	if rr := send("alice"); rr.Code != http.StatusOK {
		t.Fatalf("first request status = %d, want 200", rr.Code)
	}
	if rr := send("bob"); rr.Code != http.StatusOK {
		t.Fatalf("second user from same ip status = %d, want 200", rr.Code)
	}

	rr := send("alice")
	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("repeat request status = %d, want 429", rr.Code)
	}
	if rr.Header().Get("Retry-After") == "" {
		t.Fatal("missing Retry-After header")
	}
	if got := rr.Header().Get("X-RateLimit-Remaining"); got != "0" {
		t.Fatalf("X-RateLimit-Remaining = %q, want 0", got)
	}
}

type failingLimiter struct{}

func (failingLimiter) Allow(context.Context, string) (Decision, error) {
	return Decision{}, context.DeadlineExceeded
}

func TestRateLimitMiddlewareFailsOpen(t *testing.T) {
	ips, _ := NewClientIPResolver(nil)
	handler := RateLimitMiddleware(failingLimiter{}, ips)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
}
