package security

import (
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/tphakala/mediscan/internal/logger"
)

// Login limiter defaults.
const (
	DefaultLoginRatePerMinute = 10
	DefaultLoginBurst         = 5
	limiterIdleTimeout        = 30 * time.Minute
)

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// LoginLimiter applies a token bucket per client key, usually the remote IP.
type LoginLimiter struct {
	limit rate.Limit
	burst int

	mu      sync.Mutex
	clients map[string]*clientLimiter
	now     func() time.Time
}

// NewLoginLimiter allows perMinute attempts per client with the given burst.
// Non-positive values fall back to the defaults.
func NewLoginLimiter(perMinute float64, burst int) *LoginLimiter {
	if perMinute <= 0 {
		perMinute = DefaultLoginRatePerMinute
	}
	if burst <= 0 {
		burst = DefaultLoginBurst
	}
	return &LoginLimiter{
		limit:   rate.Limit(perMinute / 60),
		burst:   burst,
		clients: make(map[string]*clientLimiter),
		now:     time.Now,
	}
}

// Allow reports whether client may attempt a login now.
func (l *LoginLimiter) Allow(client string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	c, ok := l.clients[client]
	if !ok {
		c = &clientLimiter{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.clients[client] = c
	}
	c.lastSeen = now

	if !c.limiter.AllowN(now, 1) {
		GetLogger().Warn("login rate limit exceeded", logger.String("client", client))
		return false
	}
	return true
}

// Prune drops clients idle for longer than the idle timeout and returns how
// many were removed.
func (l *LoginLimiter) Prune() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := l.now().Add(-limiterIdleTimeout)
	removed := 0
	for key, c := range l.clients {
		if c.lastSeen.Before(cutoff) {
			delete(l.clients, key)
			removed++
		}
	}
	return removed
}

// Len returns the number of tracked clients.
func (l *LoginLimiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.clients)
}
