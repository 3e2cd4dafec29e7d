package authapi

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// loginLimiter throttles login attempts per identifier (normalized email).
// Entries are pruned lazily so the map cannot grow without bound under an
// enumeration attack.
type loginLimiter struct {
	mu       sync.Mutex
	limiters map[string]*limiterEntry

	limit rate.Limit
	burst int
}

type limiterEntry struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

const limiterIdleEviction = 30 * time.Minute

func newLoginLimiter(perMinute, burst int) *loginLimiter {
	if perMinute <= 0 {
		perMinute = 10
	}
	if burst <= 0 {
		burst = 5
	}
	return &loginLimiter{
		limiters: make(map[string]*limiterEntry),
		limit:    rate.Limit(float64(perMinute) / 60.0),
		burst:    burst,
	}
}

// allow reports whether an attempt for identifier may proceed now.
func (l *loginLimiter) allow(identifier string, now time.Time) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	e, ok := l.limiters[identifier]
	if !ok {
		e = &limiterEntry{lim: rate.NewLimiter(l.limit, l.burst)}
		l.limiters[identifier] = e
	}
	e.lastSeen = now

	if len(l.limiters) > 1024 {
		l.pruneLocked(now)
	}

	return e.lim.AllowN(now, 1)
}

func (l *loginLimiter) pruneLocked(now time.Time) {
	for id, e := range l.limiters {
		if now.Sub(e.lastSeen) > limiterIdleEviction {
			delete(l.limiters, id)
		}
	}
}

func writeRateLimited(w http.ResponseWriter, retryAfter time.Duration) {
	if retryAfter > 0 {
		w.Header().Set("Retry-After", strconv.FormatInt(int64(retryAfter.Seconds()), 10))
	}
	writeError(w, http.StatusTooManyRequests, "rate_limited", "too many attempts")
}
