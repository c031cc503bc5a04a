package graph

import (
	"context"
	"sync"

	"golang.org/x/time/rate"
)

// Endpoint identifies a rate-limited backend endpoint.
type Endpoint string

// Known endpoints.
const (
	EndpointAction Endpoint = "action" // wbgetentities / wbsearchentities
	EndpointSPARQL Endpoint = "sparql" // query service
)

// Default rate limits per endpoint (requests per second).
var defaultRateLimits = map[Endpoint]rate.Limit{
	EndpointAction: 5,
	EndpointSPARQL: 2,
}

// RateLimiterMap holds one rate.Limiter per endpoint, created once at startup.
type RateLimiterMap struct {
	mu       sync.RWMutex
	limiters map[Endpoint]*rate.Limiter
}

// NewRateLimiterMap creates all endpoint rate limiters.
func NewRateLimiterMap() *RateLimiterMap {
	m := &RateLimiterMap{
		limiters: make(map[Endpoint]*rate.Limiter, len(defaultRateLimits)),
	}
	for ep, limit := range defaultRateLimits {
		m.limiters[ep] = rate.NewLimiter(limit, 1)
	}
	return m
}

// Wait blocks until the rate limiter for the given endpoint allows a
// request, or the context is canceled.
func (m *RateLimiterMap) Wait(ctx context.Context, ep Endpoint) error {
	m.mu.RLock()
	limiter, ok := m.limiters[ep]
	m.mu.RUnlock()
	if !ok {
		return nil
	}
	return limiter.Wait(ctx)
}
