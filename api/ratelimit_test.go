package api

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLimiter() (*loginRateLimiter, *time.Time) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	rl := newLoginRateLimiter()
	rl.now = func() time.Time { return now }
	return rl, &now
}

func TestRateLimiterAllowsFreshSource(t *testing.T) {
	rl, _ := newTestLimiter()

	blocked, wait := rl.check("10.0.0.1")
	assert.False(t, blocked)
	assert.Zero(t, wait)
}

func TestRateLimiterLocksAfterLimit(t *testing.T) {
	rl, _ := newTestLimiter()

	for i := 0; i < loginFailureLimit-1; i++ {
		rl.recordFailure("10.0.0.1")
		blocked, _ := rl.check("10.0.0.1")
		require.False(t, blocked, "failure %d should not lock", i+1)
	}

	rl.recordFailure("10.0.0.1")
	blocked, wait := rl.check("10.0.0.1")
	assert.True(t, blocked)
	assert.Equal(t, loginBaseLockout, wait)
}

func TestRateLimiterBackoffDoublesAndCaps(t *testing.T) {
	rl, _ := newTestLimiter()

	for i := 0; i < loginFailureLimit+1; i++ {
		rl.recordFailure("10.0.0.1")
	}
	_, wait := rl.check("10.0.0.1")
	assert.Equal(t, 2*loginBaseLockout, wait)

	for i := 0; i < 20; i++ {
		rl.recordFailure("10.0.0.1")
	}
	_, wait = rl.check("10.0.0.1")
	assert.Equal(t, loginMaxLockout, wait)
}

func TestRateLimiterLockoutExpires(t *testing.T) {
	rl, now := newTestLimiter()

	for i := 0; i < loginFailureLimit; i++ {
		rl.recordFailure("10.0.0.1")
	}
	blocked, _ := rl.check("10.0.0.1")
	require.True(t, blocked)

	*now = now.Add(loginBaseLockout + time.Second)
	blocked, _ = rl.check("10.0.0.1")
	assert.False(t, blocked)
}

func TestRateLimiterSuccessClearsHistory(t *testing.T) {
	rl, _ := newTestLimiter()

	for i := 0; i < loginFailureLimit; i++ {
		rl.recordFailure("10.0.0.1")
	}
	rl.recordSuccess("10.0.0.1")

	blocked, _ := rl.check("10.0.0.1")
	assert.False(t, blocked)
}

func TestRateLimiterIsolatesSources(t *testing.T) {
	rl, _ := newTestLimiter()

	for i := 0; i < loginFailureLimit; i++ {
		rl.recordFailure("10.0.0.1")
	}
	blocked, _ := rl.check("10.0.0.2")
	assert.False(t, blocked)
}

func TestRateLimiterPrunesIdleRecords(t *testing.T) {
	rl, now := newTestLimiter()

	rl.recordFailure("10.0.0.1")
	*now = now.Add(loginRecordTTL + time.Minute)
	// Recording a fresh source prunes the idle one in passing.
	rl.recordFailure("10.0.0.2")

	rl.mu.Lock()
	_, stale := rl.sources["10.0.0.1"]
	_, fresh := rl.sources["10.0.0.2"]
	rl.mu.Unlock()
	assert.False(t, stale)
	assert.True(t, fresh)
}

func TestClientIP(t *testing.T) {
	r := httptest.NewRequest("POST", "/api/auth/login", nil)
	r.RemoteAddr = "203.0.113.7:51441"
	assert.Equal(t, "203.0.113.7", clientIP(r))

	r.RemoteAddr = "203.0.113.7"
	assert.Equal(t, "203.0.113.7", clientIP(r))
}
