package ratelimit

import (
	"context"
	"sync"

	"golang.org/x/time/rate"
)

// API represents the different upstream endpoints we call
type API string

const (
	// APIOptions represents the delayed-quotes options chain CDN
	APIOptions API = "options"
	// APISymbols represents the symbol directory page
	APISymbols API = "symbols"
)

// Limiter manages rate limits for different APIs.
// A nil *Limiter never blocks.
type Limiter struct {
	limiters map[API]*rate.Limiter
	mu       sync.RWMutex
}

// New creates a limiter. APIs with a missing or non-positive limit are not limited.
func New(limits map[API]rate.Limit) *Limiter {
	l := &Limiter{
		limiters: make(map[API]*rate.Limiter),
	}
	for api, limit := range limits {
		l.Set(api, limit)
	}
	return l
}

// Set replaces the limit for api. A non-positive limit removes it.
func (l *Limiter) Set(api API, limit rate.Limit) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if limit <= 0 {
		delete(l.limiters, api)
		return
	}
	l.limiters[api] = rate.NewLimiter(limit, 1)
}

// Wait blocks until the rate limiter permits an event for the given API
// It returns an error if the context is canceled before the event can proceed
func (l *Limiter) Wait(ctx context.Context, api API) error {
	if l == nil {
		return nil
	}

	l.mu.RLock()
	limiter, exists := l.limiters[api]
	l.mu.RUnlock()

	if !exists {
		// If no limiter exists for this API, allow the request without limiting
		return nil
	}

	return limiter.Wait(ctx)
}

// Allow reports whether an event for the given API may happen now
func (l *Limiter) Allow(api API) bool {
	if l == nil {
		return true
	}

	l.mu.RLock()
	limiter, exists := l.limiters[api]
	l.mu.RUnlock()

	if !exists {
		// If no limiter exists for this API, allow the request
		return true
	}

	return limiter.Allow()
}
