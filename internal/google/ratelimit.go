package google

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"
)

// RateLimitConfig holds rate limiting configuration for a service.
type RateLimitConfig struct {
	// RequestsPerSecond is the sustained rate limit.
	RequestsPerSecond float64
	// BurstSize is the maximum burst size.
	BurstSize int
}

// DefaultRateLimits are conservative per-user defaults, well below Google's
// published quotas.
var DefaultRateLimits = map[string]RateLimitConfig{
	"tasks":    {RequestsPerSecond: 5, BurstSize: 10},
	"calendar": {RequestsPerSecond: 5, BurstSize: 10},
}

// RateLimiter throttles outbound calls to one Google service. A nil
// *RateLimiter never blocks.
type RateLimiter struct {
	limiter *rate.Limiter
	service string
}

// NewRateLimiter creates a limiter using DefaultRateLimits for service.
func NewRateLimiter(service string) *RateLimiter {
	cfg, ok := DefaultRateLimits[service]
	if !ok {
		cfg = RateLimitConfig{RequestsPerSecond: 5, BurstSize: 10}
	}
	return NewRateLimiterWithConfig(service, cfg)
}

// NewRateLimiterWithConfig creates a limiter with a custom configuration.
func NewRateLimiterWithConfig(service string, cfg RateLimitConfig) *RateLimiter {
	return &RateLimiter{
		limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.BurstSize),
		service: service,
	}
}

// Wait blocks until a call may proceed or ctx is done. Failures wrap
// ErrThrottled.
func (r *RateLimiter) Wait(ctx context.Context) error {
	if r == nil {
		return nil
	}
	if err := r.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrThrottled, r.service, err)
	}
	return nil
}

// Service returns the service name the limiter belongs to.
func (r *RateLimiter) Service() string {
	if r == nil {
		return ""
	}
	return r.service
}
