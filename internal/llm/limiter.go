package llm

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"
)

// rateLimited throttles calls to an underlying provider
type rateLimited struct {
	next    Provider
	limiter *rate.Limiter
}

// RateLimited wraps p so that at most rps requests per second (with the
// given burst) reach it. Waiting honours context cancellation.
func RateLimited(p Provider, rps float64, burst int) Provider {
	if burst <= 0 {
		burst = 1
	}
	return &rateLimited{
		next:    p,
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
	}
}

func (r *rateLimited) Complete(ctx context.Context, prompt string, opts CompletionOpts) (string, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limit wait: %w", err)
	}
	return r.next.Complete(ctx, prompt, opts)
}

func (r *rateLimited) Name() string {
	return r.next.Name()
}
