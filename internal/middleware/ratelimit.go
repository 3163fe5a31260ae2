package middleware

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"kairo-backend/internal/httpx"
)

// Limiter decides whether one more request under key fits the current window.
// retryAfter is only meaningful when allowed is false.
type Limiter interface {
	Allow(ctx context.Context, key string) (allowed bool, retryAfter time.Duration, err error)
}

type MemoryLimiter struct {
	limit   int
	window  time.Duration
	mu      sync.Mutex
	buckets map[string]*bucket
	now     func() time.Time
}

type bucket struct {
	count int
	reset time.Time
}

func NewRateLimiter(limit int, window time.Duration) *MemoryLimiter {
	return &MemoryLimiter{
		limit:   limit,
		window:  window,
		buckets: make(map[string]*bucket),
		now:     time.Now,
	}
}

func (rl *MemoryLimiter) Allow(_ context.Context, key string) (bool, time.Duration, error) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	b, ok := rl.buckets[key]
	if !ok || now.After(b.reset) {
		rl.buckets[key] = &bucket{count: 1, reset: now.Add(rl.window)}
		rl.sweep(now)
		return true, 0, nil
	}

	if b.count >= rl.limit {
		return false, b.reset.Sub(now), nil
	}

	b.count++
	return true, 0, nil
}

// sweep drops expired buckets so one-off clients do not accumulate.
func (rl *MemoryLimiter) sweep(now time.Time) {
	if len(rl.buckets) < 1024 {
		return
	}
	for k, b := range rl.buckets {
		if now.After(b.reset) {
			delete(rl.buckets, k)
		}
	}
}

// fixedWindow increments the counter and sets its expiry atomically on the
// first hit of a window.
var fixedWindow = redis.NewScript(`
local count = redis.call('INCR', KEYS[1])
if count == 1 then
  redis.call('PEXPIRE', KEYS[1], ARGV[1])
end
local ttl = redis.call('PTTL', KEYS[1])
return { count, ttl }
`)

// RedisLimiter shares its counters between API replicas.
type RedisLimiter struct {
	client redis.Scripter
	prefix string
	limit  int
	window time.Duration
}

func NewRedisLimiter(client redis.Scripter, prefix string, limit int, window time.Duration) *RedisLimiter {
	return &RedisLimiter{client: client, prefix: prefix, limit: limit, window: window}
}

func (rl *RedisLimiter) Allow(ctx context.Context, key string) (bool, time.Duration, error) {
	vals, err := fixedWindow.Run(ctx, rl.client, []string{rl.prefix + ":" + key}, rl.window.Milliseconds()).Int64Slice()
	if err != nil {
		return false, 0, err
	}
	if len(vals) != 2 {
		return true, 0, nil
	}
	if vals[0] > int64(rl.limit) {
		return false, time.Duration(vals[1]) * time.Millisecond, nil
	}
	return true, 0, nil
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// RateLimit keys requests on client IP and route. chi's RealIP middleware
// runs first, so RemoteAddr already reflects X-Forwarded-For. Limiter errors
// fail open.
func RateLimit(l Limiter, log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := clientIP(r) + ":" + r.Method + ":" + r.URL.Path
			allowed, retry, err := l.Allow(r.Context(), key)
			if err != nil {
				if log != nil {
					log.Warn("ratelimit allow: failed", slog.String("key", key), slog.String("error", err.Error()))
				}
				next.ServeHTTP(w, r)
				return
			}
			if !allowed {
				secs := int((retry + time.Second - 1) / time.Second)
				if secs < 1 {
					secs = 1
				}
				w.Header().Set("Retry-After", strconv.Itoa(secs))
				httpx.WriteError(w, http.StatusTooManyRequests, "rate limit exceeded", nil)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
