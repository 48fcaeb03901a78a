package server

import (
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Default limits for the /auth endpoints, per client IP.
const (
	DefaultAuthRate  = 1
	DefaultAuthBurst = 10

	limiterIdleTimeout = 10 * time.Minute
)

// clientLimiter keeps one token bucket per client IP.
type clientLimiter struct {
	mu       sync.Mutex
	limiters map[string]*clientBucket
	rate     rate.Limit
	burst    int
	now      func() time.Time
}

type clientBucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func newClientLimiter(perSecond float64, burst int) *clientLimiter {
	return &clientLimiter{
		limiters: make(map[string]*clientBucket),
		rate:     rate.Limit(perSecond),
		burst:    burst,
		now:      time.Now,
	}
}

// Allow reports whether a request from ip may proceed. Buckets idle for
// longer than limiterIdleTimeout are dropped on the way.
func (c *clientLimiter) Allow(ip string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	for key, b := range c.limiters {
		if now.Sub(b.lastSeen) > limiterIdleTimeout {
			delete(c.limiters, key)
		}
	}

	b, ok := c.limiters[ip]
	if !ok {
		b = &clientBucket{limiter: rate.NewLimiter(c.rate, c.burst)}
		c.limiters[ip] = b
	}
	b.lastSeen = now
	return b.limiter.AllowN(now, 1)
}

// rateLimit rejects requests over the per-IP limit with 429.
func (c *clientLimiter) rateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !c.Allow(clientIP(r)) {
			w.Header().Set("Retry-After", "1")
			writeDetail(w, http.StatusTooManyRequests, "Rate limit exceeded. Please try again later")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// clientIP returns the peer address of r. Proxy headers are ignored.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
