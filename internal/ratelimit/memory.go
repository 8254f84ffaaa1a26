package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// maxIdleKeys bounds the bucket map. Past it, buckets idle for longer than
// a full window are dropped on the next Allow.
const maxIdleKeys = 10_000

// MemoryLimiter keeps one token bucket per key. Each bucket holds limit
// tokens and refills one every window/limit, so a client can burst limit
// requests and then continue at the average rate.
type MemoryLimiter struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	limit   int
	window  time.Duration
	now     func() time.Time
}

type bucket struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

func NewMemoryLimiter(limit int, window time.Duration) *MemoryLimiter {
	return &MemoryLimiter{
		buckets: make(map[string]*bucket),
		limit:   limit,
		window:  window,
		now:     time.Now,
	}
}

// Allow never returns an error.
func (l *MemoryLimiter) Allow(_ context.Context, key string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	b, ok := l.buckets[key]
	if !ok {
		if len(l.buckets) >= maxIdleKeys {
			l.prune(now)
		}
		every := l.window / time.Duration(l.limit)
		b = &bucket{lim: rate.NewLimiter(rate.Every(every), l.limit)}
		l.buckets[key] = b
	}
	b.lastSeen = now
	return b.lim.AllowN(now, 1), nil
}

func (l *MemoryLimiter) prune(now time.Time) {
	for k, b := range l.buckets {
		if now.Sub(b.lastSeen) > l.window {
			delete(l.buckets, k)
		}
	}
}
