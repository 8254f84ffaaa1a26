package ratelimit

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return mr, rdb
}

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
})

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// =========================================================================
// REDIS LIMITER
// =========================================================================

func TestRedisLimiter_BlocksAfterLimit(t *testing.T) {
	_, rdb := newTestRedis(t)
	l := NewRedisLimiter(rdb, 3, time.Minute)
	ctx := context.Background()

	for i := 1; i <= 3; i++ {
		allowed, err := l.Allow(ctx, "login:1.2.3.4")
		require.NoError(t, err)
		assert.True(t, allowed, "request %d should be allowed", i)
	}

	allowed, err := l.Allow(ctx, "login:1.2.3.4")
	require.NoError(t, err)
	assert.False(t, allowed, "4th request should be blocked")

	// Other clients have their own counter.
	allowed, _ = l.Allow(ctx, "login:5.6.7.8")
	assert.True(t, allowed)
}

func TestRedisLimiter_WindowExpires(t *testing.T) {
	mr, rdb := newTestRedis(t)
	l := NewRedisLimiter(rdb, 1, time.Minute)
	ctx := context.Background()

	allowed, _ := l.Allow(ctx, "k")
	require.True(t, allowed)
	allowed, _ = l.Allow(ctx, "k")
	require.False(t, allowed)

	assert.Equal(t, time.Minute, mr.TTL("rl:k"))
	mr.FastForward(time.Minute + time.Second)

	allowed, _ = l.Allow(ctx, "k")
	assert.True(t, allowed, "a new window starts after the TTL")
}

func TestRedisLimiter_FailsOpen(t *testing.T) {
	mr, rdb := newTestRedis(t)
	l := NewRedisLimiter(rdb, 1, time.Minute)
	mr.Close()

	allowed, err := l.Allow(context.Background(), "k")
	assert.Error(t, err)
	assert.True(t, allowed)
}

// =========================================================================
// MEMORY LIMITER
// =========================================================================

func TestMemoryLimiter_BurstThenBlock(t *testing.T) {
	l := NewMemoryLimiter(2, time.Minute)
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }

	for i := 0; i < 2; i++ {
		allowed, _ := l.Allow(context.Background(), "k")
		assert.True(t, allowed)
	}
	allowed, _ := l.Allow(context.Background(), "k")
	assert.False(t, allowed)

	// One token refills every window/limit = 30s.
	now = now.Add(31 * time.Second)
	allowed, _ = l.Allow(context.Background(), "k")
	assert.True(t, allowed)
}

// =========================================================================
// MIDDLEWARE
// =========================================================================

func TestMiddleware_Returns429(t *testing.T) {
	_, rdb := newTestRedis(t)
	h := Middleware(NewRedisLimiter(rdb, 2, time.Minute), "share", discardLogger())(okHandler)

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodPost, "/blog/x/share", nil)
		req.RemoteAddr = "203.0.113.9:5555"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
	}

	assert.Equal(t, []int{200, 200, 429}, codes)
}

func TestMiddleware_FailsOpenWhenRedisDown(t *testing.T) {
	mr, rdb := newTestRedis(t)
	h := Middleware(NewRedisLimiter(rdb, 1, time.Minute), "login", discardLogger())(okHandler)
	mr.Close()

	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/accounts/login", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
	}
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "198.51.100.7:1234"
	assert.Equal(t, "198.51.100.7", clientIP(req))

	req.RemoteAddr = "198.51.100.7"
	assert.Equal(t, "198.51.100.7", clientIP(req))
}
