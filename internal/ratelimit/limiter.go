// Package ratelimit implements a token bucket rate limiter keyed by client address.
package ratelimit

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Config holds rate limiter configuration.
type Config struct {
	// Requests allowed per Window for each client.
	Requests int
	Window   time.Duration
}

// Limiter manages per-client token buckets.
type Limiter struct {
	mu      sync.Mutex
	clients map[string]*clientLimiter
	limit   rate.Limit
	burst   int
	now     func() time.Time
}

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// New creates a new Limiter. A non-positive request count or window
// disables limiting.
func New(cfg Config) *Limiter {
	limit := rate.Inf
	if cfg.Requests > 0 && cfg.Window > 0 {
		limit = rate.Limit(float64(cfg.Requests) / cfg.Window.Seconds())
	}
	burst := cfg.Requests
	if burst <= 0 {
		burst = 1
	}
	return &Limiter{
		clients: make(map[string]*clientLimiter),
		limit:   limit,
		burst:   burst,
		now:     time.Now,
	}
}

// Allow reports whether the client may proceed, consuming one token
// when it can.
func (l *Limiter) Allow(client string) bool {
	l.mu.Lock()
	c, ok := l.clients[client]
	if !ok {
		c = &clientLimiter{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.clients[client] = c
	}
	c.lastSeen = l.now()
	l.mu.Unlock()

	return c.limiter.Allow()
}

// Prune drops clients idle for at least maxIdle and reports how many
// were removed.
func (l *Limiter) Prune(maxIdle time.Duration) int {
	cutoff := l.now().Add(-maxIdle)

	l.mu.Lock()
	defer l.mu.Unlock()

	removed := 0
	for client, c := range l.clients {
		if c.lastSeen.Before(cutoff) {
			delete(l.clients, client)
			removed++
		}
	}
	return removed
}

// Len returns the number of tracked clients.
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.clients)
}
