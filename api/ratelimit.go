package api

import (
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"
)

const (
	// loginFailureLimit is how many consecutive failures a source gets
	// before lockouts begin.
	loginFailureLimit = 5
	// loginBaseLockout doubles with every failure past the limit.
	loginBaseLockout = time.Minute
	// loginMaxLockout caps the backoff.
	loginMaxLockout = 15 * time.Minute
	// loginRecordTTL is how long an idle failure record is kept.
	loginRecordTTL = time.Hour
)

// loginSource is the failure history for one source IP.
type loginSource struct {
	failures  int
	lastSeen  time.Time
	lockedTil time.Time
}

// loginRateLimiter applies exponential backoff to repeated login
// failures. A single shared password means there is no account to key
// on; the source address is the only stable handle an attacker
// presents, so the limiter is keyed per IP.
type loginRateLimiter struct {
	mu      sync.Mutex
	sources map[string]*loginSource
	now     func() time.Time
}

func newLoginRateLimiter() *loginRateLimiter {
	return &loginRateLimiter{
		sources: make(map[string]*loginSource),
		now:     time.Now,
	}
}

// check reports whether the source is locked out and, if so, for how
// much longer.
func (rl *loginRateLimiter) check(ip string) (bool, time.Duration) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	src := rl.sources[ip]
	if src == nil {
		return false, 0
	}
	now := rl.now()
	if now.Sub(src.lastSeen) > loginRecordTTL {
		delete(rl.sources, ip)
		return false, 0
	}
	if wait := src.lockedTil.Sub(now); wait > 0 {
		return true, wait
	}
	return false, 0
}

// recordFailure notes a failed attempt and, past the failure limit,
// locks the source out for loginBaseLockout << (failures - limit),
// capped at loginMaxLockout. Idle records are pruned here too: failed
// logins are rare enough to carry the scan, and without it one-shot
// sources would accrete for the process lifetime.
func (rl *loginRateLimiter) recordFailure(ip string) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	rl.pruneLocked()

	src := rl.sources[ip]
	if src == nil {
		src = &loginSource{}
		rl.sources[ip] = src
	}
	now := rl.now()
	src.failures++
	src.lastSeen = now

	over := src.failures - loginFailureLimit
	if over < 0 {
		return
	}
	lockout := loginMaxLockout
	if over < 8 && loginBaseLockout<<over < loginMaxLockout {
		lockout = loginBaseLockout << over
	}
	src.lockedTil = now.Add(lockout)
}

// recordSuccess forgets the source's history.
func (rl *loginRateLimiter) recordSuccess(ip string) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	delete(rl.sources, ip)
}

// pruneLocked drops idle records. Callers hold rl.mu.
func (rl *loginRateLimiter) pruneLocked() {
	cutoff := rl.now().Add(-loginRecordTTL)
	for ip, src := range rl.sources {
		if src.lastSeen.Before(cutoff) {
			delete(rl.sources, ip)
		}
	}
}

// clientIP is the request's source address without the port. Proxy
// headers are not consulted; put a trusted reverse proxy in front and
// preserve the source address there if needed.
func clientIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

func writeRateLimited(w http.ResponseWriter, wait time.Duration) {
	secs := int(wait.Seconds())
	if secs < 1 {
		secs = 1
	}
	w.Header().Set("Retry-After", strconv.Itoa(secs))
	writeError(w, http.StatusTooManyRequests, CodeUnauthorized, "too many failed login attempts; try again later")
}
