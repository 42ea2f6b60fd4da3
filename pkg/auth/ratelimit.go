package auth

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrTooManyRequests is returned by a RateLimiter when a tenant has
// exhausted its request budget for the current window.
var ErrTooManyRequests = errors.New("rate limit exceeded")

// RateLimiter checks whether a request from an admitted identity should
// be allowed. Limits are applied per tenant so one tenant cannot starve
// another.
type RateLimiter interface {
	Allow(ctx context.Context, identity *Identity) error
}

// InProcessLimiter is a fixed-window rate limiter that tracks request
// counts per tenant in memory.
type InProcessLimiter struct {
	perTenant  map[string]int // tenant id -> requests per minute
	defaultRPM int
	mu         sync.Mutex
	counters   map[string]*counter
}

type counter struct {
	count    int
	windowAt time.Time
}

// NewInProcessLimiter creates a rate limiter. perTenant overrides the
// default requests-per-minute budget for individual tenants. A defaultRPM
// of 0 disables limiting for tenants without an override.
func NewInProcessLimiter(perTenant map[string]int, defaultRPM int) *InProcessLimiter {
	return &InProcessLimiter{
		perTenant:  perTenant,
		defaultRPM: defaultRPM,
		counters:   make(map[string]*counter),
	}
}

// Allow records a request for the identity's tenant and reports whether
// it fits in the current one-minute window.
func (l *InProcessLimiter) Allow(_ context.Context, identity *Identity) error {
	if identity == nil {
		return ErrTooManyRequests
	}

	rpm := l.defaultRPM
	if v, ok := l.perTenant[identity.TenantID]; ok {
		rpm = v
	}
	if rpm <= 0 {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	c, ok := l.counters[identity.TenantID]
	if !ok || now.Sub(c.windowAt) >= time.Minute {
		l.counters[identity.TenantID] = &counter{count: 1, windowAt: now}
		return nil
	}

	if c.count >= rpm {
		return ErrTooManyRequests
	}
	c.count++
	return nil
}
