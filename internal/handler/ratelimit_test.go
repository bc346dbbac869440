package handler

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRateLimiter_SameKeySameLimiter(t *testing.T) {
	l := NewRateLimiter(10, 1, time.Minute)
	assert.Same(t, l.get("k"), l.get("k"))
}

func TestRateLimiter_CleanupRemovesIdleEntries(t *testing.T) {
	now := time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)
	l := NewRateLimiter(10, 1, time.Minute)
	l.now = func() time.Time { return now }

	before := l.get("k")
	now = now.Add(2 * time.Minute)
	l.Cleanup()

	assert.NotSame(t, before, l.get("k"))
}

func TestRateLimiter_JanitorStopsWithContext(t *testing.T) {
	l := NewRateLimiter(10, 1, time.Nanosecond)
	ctx, cancel := context.WithCancel(context.Background())
	l.get("k")
	l.StartJanitor(ctx, time.Millisecond)

	assert.Eventually(t, func() bool {
		l.mu.Lock()
		defer l.mu.Unlock()
		return len(l.entries) == 0
	}, time.Second, time.Millisecond)
	cancel()
}

func TestRateKey(t *testing.T) {
	r := httptest.NewRequest("POST", "/slots/x/bookings", nil)
	r.RemoteAddr = "10.0.0.7:5123"
	assert.Equal(t, "ip:10.0.0.7", rateKey(r))

	r.Header.Set(UserIDHeader, "42")
	assert.Equal(t, "user:42", rateKey(r))
}
