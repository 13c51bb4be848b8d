package llm

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"
)

// RateLimitedGenerator paces calls to an underlying Generator with a token bucket.
// It bounds request rate; in-flight concurrency is bounded separately by callers.
type RateLimitedGenerator struct {
	next    Generator
	limiter *rate.Limiter
}

// NewRateLimitedGenerator wraps next so that at most rps requests per second
// are started, with bursts of up to burst. A non-positive rps disables limiting.
func NewRateLimitedGenerator(next Generator, rps float64, burst int) *RateLimitedGenerator {
	limit := rate.Inf
	if rps > 0 {
		limit = rate.Limit(rps)
	}
	if burst < 1 {
		burst = 1
	}
	return &RateLimitedGenerator{
		next:    next,
		limiter: rate.NewLimiter(limit, burst),
	}
}

// Generate waits for a token and then delegates to the wrapped Generator
func (g *RateLimitedGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	if err := g.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limiter wait failed: %w", err)
	}
	return g.next.Generate(ctx, prompt)
}
