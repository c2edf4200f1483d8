package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/httprate"
	"github.com/redis/go-redis/v9"
)

// Decision is the outcome of one rate limit check.
type Decision struct {
	Allowed    bool
	Limit      int
	Remaining  int
	RetryAfter time.Duration
}

type Limiter interface {
	Allow(ctx context.Context, key string) (Decision, error)
}

// RateLimiter implements a sliding window rate limiter held in process memory.
type RateLimiter struct {
	mu       sync.Mutex
	requests map[string][]time.Time
	limit    int
	window   time.Duration
	cleanup  time.Time
	now      func() time.Time
}

func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		requests: make(map[string][]time.Time),
		limit:    limit,
		window:   window,
		cleanup:  time.Now(),
		now:      time.Now,
	}
}

func (rl *RateLimiter) Allow(_ context.Context, key string) (Decision, error) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	windowStart := now.Add(-rl.window)

	if now.Sub(rl.cleanup) > time.Minute {
		for k, times := range rl.requests {
			filtered := filterTimes(times, windowStart)
			if len(filtered) == 0 {
				delete(rl.requests, k)
			} else {
				rl.requests[k] = filtered
			}
		}
		rl.cleanup = now
	}

	times := filterTimes(rl.requests[key], windowStart)

	if len(times) >= rl.limit {
		rl.requests[key] = times
		return Decision{
			Limit:      rl.limit,
			RetryAfter: times[0].Add(rl.window).Sub(now),
		}, nil
	}

	rl.requests[key] = append(times, now)
	return Decision{
		Allowed:   true,
		Limit:     rl.limit,
		Remaining: rl.limit - len(times) - 1,
	}, nil
}

func filterTimes(times []time.Time, cutoff time.Time) []time.Time {
	result := times[:0]
	for _, t := range times {
		if t.After(cutoff) {
			result = append(result, t)
		}
	}
	return result
}

// tokenBucketScript refills whole tokens per elapsed interval and takes one
// if available. Returns {allowed, tokens, retry_after_ms}.
var tokenBucketScript = redis.NewScript(`
local key = KEYS[1]
local now_ms = tonumber(ARGV[1])
local capacity = tonumber(ARGV[2])
local interval_ms = tonumber(ARGV[3])
local ttl_seconds = tonumber(ARGV[4])

local state = redis.call('HMGET', key, 'tokens', 'last_refill_ms')
local tokens = tonumber(state[1])
local last_refill = tonumber(state[2])

if tokens == nil or last_refill == nil then
	tokens = capacity
	last_refill = now_ms
end

if interval_ms > 0 then
	local elapsed = math.max(0, now_ms - last_refill)
	local intervals = math.floor(elapsed / interval_ms)
	if intervals > 0 then
		tokens = math.min(capacity, tokens + intervals)
		last_refill = last_refill + (intervals * interval_ms)
	end
end

local allowed = 0
local retry_after_ms = 0
if tokens > 0 then
	allowed = 1
	tokens = tokens - 1
else
	retry_after_ms = math.max(0, interval_ms - (now_ms - last_refill))
end

redis.call('HSET', key, 'tokens', tokens, 'last_refill_ms', last_refill)
redis.call('EXPIRE', key, ttl_seconds)

return { allowed, tokens, retry_after_ms }
`)

// RedisRateLimiter is a token bucket shared by every server instance. The
// bucket holds limit tokens and regains one every window/limit.
type RedisRateLimiter struct {
	client *redis.Client
	prefix string
	limit  int
	window time.Duration
	now    func() time.Time
}

func NewRedisRateLimiter(client *redis.Client, prefix string, limit int, window time.Duration) *RedisRateLimiter {
	return &RedisRateLimiter{
		client: client,
		prefix: prefix,
		limit:  limit,
		window: window,
		now:    time.Now,
	}
}

func (rl *RedisRateLimiter) Allow(ctx context.Context, key string) (Decision, error) {
	interval := rl.window / time.Duration(rl.limit)
	ttl := int64(rl.window/time.Second) + 1

	vals, err := tokenBucketScript.Run(ctx, rl.client, []string{rl.prefix + ":" + key},
		rl.now().UnixMilli(),
		rl.limit,
		interval.Milliseconds(),
		ttl,
	).Int64Slice()
	if err != nil {
		return Decision{}, fmt.Errorf("running token bucket script: %w", err)
	}
	if len(vals) != 3 {
		return Decision{}, fmt.Errorf("unexpected token bucket result %v", vals)
	}

	return Decision{
		Allowed:    vals[0] == 1,
		Limit:      rl.limit,
		Remaining:  int(vals[1]),
		RetryAfter: time.Duration(vals[2]) * time.Millisecond,
	}, nil
}

// RateLimits builds the per-route limiters. With a Redis client the buckets
// are shared across instances; otherwise each process keeps its own window.
type RateLimits struct {
	enabled bool
	redis   *redis.Client
	prefix  string
	ips     *ClientIPResolver
}

func NewRateLimits(enabled bool, client *redis.Client, prefix string, ips *ClientIPResolver) *RateLimits {
	return &RateLimits{enabled: enabled, redis: client, prefix: prefix, ips: ips}
}

// Route returns middleware limiting one route to limit requests per window.
func (l *RateLimits) Route(name string, limit int, window time.Duration) func(http.Handler) http.Handler {
	if !l.enabled {
		return passthrough
	}

	var limiter Limiter
	if l.redis != nil {
		limiter = NewRedisRateLimiter(l.redis, l.prefix+":"+name, limit, window)
	} else {
		limiter = NewRateLimiter(limit, window)
	}
	return RateLimitMiddleware(limiter, l.ips)
}

// Global is a coarse per-IP ceiling for the whole API.
func (l *RateLimits) Global(perMinute int) func(http.Handler) http.Handler {
	if !l.enabled || perMinute <= 0 {
		return passthrough
	}
	return httprate.Limit(perMinute, time.Minute,
		httprate.WithKeyFuncs(func(r *http.Request) (string, error) {
			return l.ips.Resolve(r), nil
		}),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			tooManyRequests(w, time.Minute)
		}),
	)
}

// RateLimitMiddleware keys by the authenticated user when there is one and by
// client IP otherwise. Limiter failures let the request through.
func RateLimitMiddleware(limiter Limiter, ips *ClientIPResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			decision, err := limiter.Allow(r.Context(), ips.LimitKey(r))
			if err != nil {
				slog.Warn("rate limiter unavailable", "error", err, "path", r.URL.Path)
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(decision.Limit))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(max(decision.Remaining, 0)))
			if !decision.Allowed {
				tooManyRequests(w, decision.RetryAfter)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func passthrough(next http.Handler) http.Handler {
	return next
}
