package http

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRateLimiterDropsIdleClients(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	now := start
	rl := newRateLimiter(1, 1)
	rl.now = func() time.Time { return now }
	rl.lastSweep = start

	rl.limiter("10.0.0.1")
	rl.limiter("10.0.0.2")
	assert.Equal(t, 2, rl.size())

	now = start.Add(5 * time.Minute)
	rl.limiter("10.0.0.2")

	now = start.Add(11 * time.Minute)
	rl.limiter("10.0.0.3")
	assert.Equal(t, 2, rl.size())

	rl.mu.Lock()
	_, idle := rl.limiters["10.0.0.1"]
	_, active := rl.limiters["10.0.0.2"]
	rl.mu.Unlock()
	assert.False(t, idle)
	assert.True(t, active)
}

func TestRateLimiterKeepsBucketBetweenCalls(t *testing.T) {
	rl := newRateLimiter(0.001, 1)
	assert.True(t, rl.limiter("10.0.0.1").Allow())
	assert.False(t, rl.limiter("10.0.0.1").Allow())
	assert.True(t, rl.limiter("10.0.0.2").Allow())
}

func TestRateLimitAppliesToRoutesEndingInProbeNames(t *testing.T) {
	h := newHarness(t, "", Options{RateLimitRPS: 0.001, RateBurst: 1})

	assert.Equal(t, http.StatusOK, h.do(http.MethodGet, "/portfolio/readiness", "").Code)
	assert.Equal(t, http.StatusTooManyRequests, h.do(http.MethodGet, "/portfolio/liveness", "").Code)
}
