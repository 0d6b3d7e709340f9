package httpx

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })
}

func hit(h http.Handler, ip string) int {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/public/slots", nil)
	req.Header.Set("X-Forwarded-For", ip)
	rw := httptest.NewRecorder()
	h.ServeHTTP(rw, req)
	return rw.Code
}

func TestInMemoryRateLimiterWindow(t *testing.T) {
	rl := NewRateLimiter(2, time.Minute)
	now := time.Date(2024, 6, 3, 9, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }
	h := RateLimit(rl, nil, false)(okHandler())

	require.Equal(t, http.StatusOK, hit(h, "10.0.0.1"))
	require.Equal(t, http.StatusOK, hit(h, "10.0.0.1"))
	require.Equal(t, http.StatusTooManyRequests, hit(h, "10.0.0.1"))
	require.Equal(t, http.StatusOK, hit(h, "10.0.0.2"))

	now = now.Add(2 * time.Minute)
	require.Equal(t, http.StatusOK, hit(h, "10.0.0.1"))
}

func TestRedisRateLimiter(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	rl := NewRedisRateLimiter(rdb, 1, time.Minute, "bq")
	h := RateLimit(rl, nil, false)(okHandler())

	require.Equal(t, http.StatusOK, hit(h, "10.0.0.9"))
	require.Equal(t, http.StatusTooManyRequests, hit(h, "10.0.0.9"))
	require.True(t, mr.Exists("bq:10.0.0.9"))

	mr.FastForward(2 * time.Minute)
	require.Equal(t, http.StatusOK, hit(h, "10.0.0.9"))
}

type failingLimiter struct{}

func (failingLimiter) Allow(context.Context, string) (bool, error) {
	return false, errors.New("redis down")
}

func TestRateLimitFailOpen(t *testing.T) {
	require.Equal(t, http.StatusOK, hit(RateLimit(failingLimiter{}, nil, true)(okHandler()), "10.0.0.3"))
	require.Equal(t, http.StatusServiceUnavailable, hit(RateLimit(failingLimiter{}, nil, false)(okHandler()), "10.0.0.3"))
}
