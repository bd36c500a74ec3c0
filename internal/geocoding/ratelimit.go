package geocoding

import (
	"context"
	"fmt"

	"github.com/UnknownOlympus/mapa/internal/models"
	"golang.org/x/time/rate"
)

// RateLimitedProvider delays lookups of the wrapped provider to a fixed rate.
type RateLimitedProvider struct {
	next    Provider
	limiter *rate.Limiter
}

// NewLimiter allows perSecond lookups per second. Non-positive values disable limiting.
func NewLimiter(perSecond int) *rate.Limiter {
	if perSecond <= 0 {
		return rate.NewLimiter(rate.Inf, 0)
	}
	return rate.NewLimiter(rate.Limit(perSecond), perSecond)
}

// RateLimited wraps next so that every lookup waits for the limiter first.
func RateLimited(next Provider, limiter *rate.Limiter) *RateLimitedProvider {
	return &RateLimitedProvider{next: next, limiter: limiter}
}

// Geocode waits for the limiter and delegates to the wrapped provider.
func (rp *RateLimitedProvider) Geocode(ctx context.Context, query string) (*models.Coordinates, error) {
	if err := rp.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit exceeded: %w", err)
	}
	return rp.next.Geocode(ctx, query)
}

// Unwrap returns the wrapped provider.
func (rp *RateLimitedProvider) Unwrap() Provider {
	return rp.next
}
