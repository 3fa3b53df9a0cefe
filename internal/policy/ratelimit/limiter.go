// Package ratelimit implements a per-client token bucket limiter for the
// public API.
package ratelimit

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Config holds rate limiter configuration. Each client may issue Requests
// requests per Window, all of which may arrive as a burst.
type Config struct {
	Requests int
	Window   time.Duration
	// IdleTTL evicts buckets for clients not seen for this long. Zero means
	// ten windows.
	IdleTTL time.Duration
}

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// Limiter manages per-client rate limits.
type Limiter struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	limit   rate.Limit
	burst   int
	idleTTL time.Duration
	now     func() time.Time
	sweptAt time.Time
}

// New creates a new Limiter. A non-positive Requests or Window disables
// limiting.
func New(cfg Config) *Limiter {
	limit := rate.Inf
	burst := 1
	if cfg.Requests > 0 && cfg.Window > 0 {
		limit = rate.Every(cfg.Window / time.Duration(cfg.Requests))
		burst = cfg.Requests
	}
	ttl := cfg.IdleTTL
	if ttl <= 0 {
		ttl = 10 * cfg.Window
		if ttl <= 0 {
			ttl = time.Hour
		}
	}
	return &Limiter{
		buckets: make(map[string]*bucket),
		limit:   limit,
		burst:   burst,
		idleTTL: ttl,
		now:     time.Now,
	}
}

// Allow reports whether the client identified by key may proceed, consuming
// a token when it may.
func (l *Limiter) Allow(key string) bool {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	l.sweep(now)
	b, ok := l.buckets[key]
	if !ok {
		b = &bucket{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.buckets[key] = b
	}
	b.lastSeen = now
	return b.limiter.AllowN(now, 1)
}

// Len returns the number of tracked clients.
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.buckets)
}

// sweep drops idle buckets at most once per TTL. Caller holds mu.
func (l *Limiter) sweep(now time.Time) {
	if now.Sub(l.sweptAt) < l.idleTTL {
		return
	}
	l.sweptAt = now
	for key, b := range l.buckets {
		if now.Sub(b.lastSeen) >= l.idleTTL {
			delete(l.buckets, key)
		}
	}
}
