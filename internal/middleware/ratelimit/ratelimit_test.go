package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func TestLimiterAllow(t *testing.T) {
	clock := &fakeClock{now: time.Date(2024, 8, 15, 12, 0, 0, 0, time.UTC)}
	rl := NewLimiter(Config{Requests: 2, Window: time.Minute, Now: clock.Now})
	defer rl.Stop()

	assert.True(t, rl.Allow("1.1.1.1"))
	assert.True(t, rl.Allow("1.1.1.1"))
	assert.False(t, rl.Allow("1.1.1.1"))
	assert.True(t, rl.Allow("2.2.2.2"), "clients are limited independently")

	clock.Advance(20 * time.Second)
	assert.False(t, rl.Allow("1.1.1.1"), "steady traffic does not extend the window")
	assert.Equal(t, 40*time.Second, rl.RetryAfter("1.1.1.1"))

	clock.Advance(40 * time.Second)
	assert.True(t, rl.Allow("1.1.1.1"))

	m := rl.GetMetrics()
	assert.Equal(t, int64(2), m.TotalHits)
	assert.Equal(t, int64(2), m.ClientCount)
}

func TestLimiterCleanup(t *testing.T) {
	clock := &fakeClock{now: time.Date(2024, 8, 15, 12, 0, 0, 0, time.UTC)}
	rl := NewLimiter(Config{Requests: 1, Window: time.Minute, Now: clock.Now})
	defer rl.Stop()

	rl.Allow("1.1.1.1")
	clock.Advance(90 * time.Second)
	rl.Allow("2.2.2.2")
	clock.Advance(40 * time.Second)

	rl.cleanupStaleEntries()
	assert.Equal(t, 1, rl.ActiveClients())
}

func TestLimiterMiddleware(t *testing.T) {
	rl := NewLimiter(Config{Requests: 1, Window: time.Minute})
	defer rl.Stop()

	h := rl.Middleware(
		func(r *http.Request) string { return "9.9.9.9" },
		nil,
	)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/admin/reload", nil))
	assert.Equal(t, http.StatusNoContent, rr.Code)

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/admin/reload", nil))
	assert.Equal(t, http.StatusTooManyRequests, rr.Code)
	assert.NotEmpty(t, rr.Header().Get("Retry-After"))
}
