// Package ratelimit throttles form submissions per client (login,
// registration, share).
//
// Two Limiter implementations:
//   - RedisLimiter: fixed window counter in Redis (INCR + EXPIRE), shared by
//     every server instance. Used when REDIS_URL is set.
//   - MemoryLimiter: token bucket per key in process memory
//     (golang.org/x/time/rate). Used when there is no Redis.
//
// Either way the limiter FAILS OPEN: if Redis errors, the request is allowed
// and the error is logged. A broken cache must not lock people out of
// logging in.
package ratelimit

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
)

// Limiter decides whether one more request for key fits in the budget.
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// RedisLimiter allows Limit requests per Window for each key.
type RedisLimiter struct {
	rdb    redis.Cmdable
	prefix string
	limit  int
	window time.Duration
}

func NewRedisLimiter(rdb redis.Cmdable, limit int, window time.Duration) *RedisLimiter {
	return &RedisLimiter{rdb: rdb, prefix: "rl", limit: limit, window: window}
}

// Allow increments the counter for key. The first hit of a window sets the
// key's TTL, so the counter disappears (and the window resets) on its own.
func (l *RedisLimiter) Allow(ctx context.Context, key string) (bool, error) {
	k := fmt.Sprintf("%s:%s", l.prefix, key)

	cnt, err := l.rdb.Incr(ctx, k).Result()
	if err != nil {
		return true, fmt.Errorf("ratelimit: incr %s: %w", k, err)
	}
	if cnt == 1 {
		if err := l.rdb.Expire(ctx, k, l.window).Err(); err != nil {
			return true, fmt.Errorf("ratelimit: expire %s: %w", k, err)
		}
	}
	return cnt <= int64(l.limit), nil
}

// Middleware rejects requests over budget with a plain 429. Requests are
// keyed by name and client IP ("login:203.0.113.9").
//
// It reads r.RemoteAddr, so chi's RealIP middleware must run first when the
// app sits behind a proxy.
func Middleware(l Limiter, name string, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := name + ":" + clientIP(r)

			allowed, err := l.Allow(r.Context(), key)
			if err != nil {
				logger.WarnContext(r.Context(), "rate limiter unavailable, allowing request",
					slog.String("key", key),
					slog.String("error", err.Error()),
				)
			}
			if !allowed {
				rejected.WithLabelValues(name).Inc()
				w.Header().Set("Retry-After", "60")
				http.Error(w, "Too many requests. Please wait a minute and try again.", http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr // RealIP may have stored a bare IP
	}
	return host
}
