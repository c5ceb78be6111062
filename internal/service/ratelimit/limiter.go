package ratelimit

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Limiter is a keyed token bucket. Each key starts full.
type Limiter struct {
	mu    sync.Mutex
	m     map[string]*rate.Limiter
	limit rate.Limit
	burst int
	off   bool
	now   func() time.Time
}

// New returns a limiter holding capacity tokens per key, refilled at
// refillPerSec. A non-positive capacity disables limiting.
func New(capacity, refillPerSec float64) *Limiter {
	burst := int(capacity)
	if burst < 1 {
		burst = 1
	}
	if refillPerSec < 0 {
		refillPerSec = 0
	}
	return &Limiter{
		m:     make(map[string]*rate.Limiter),
		limit: rate.Limit(refillPerSec),
		burst: burst,
		off:   capacity <= 0,
		now:   time.Now,
	}
}

// Allow returns true if one token can be consumed for key.
func (l *Limiter) Allow(key string) bool {
	if l.off {
		return true
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	lim, ok := l.m[key]
	if !ok {
		lim = rate.NewLimiter(l.limit, l.burst)
		l.m[key] = lim
	}
	return lim.AllowN(l.now(), 1)
}

// Forget drops the bucket of key, e.g. when a portfolio is deleted.
func (l *Limiter) Forget(key string) {
	l.mu.Lock()
	delete(l.m, key)
	l.mu.Unlock()
}
