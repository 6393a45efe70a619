package scanner

import (
	"context"

	"golang.org/x/time/rate"
)

// Limiter paces probe dispatch to a fixed number of requests per second
// across all workers. A nil *Limiter never waits.
type Limiter struct {
	rl *rate.Limiter
}

// NewLimiter returns a limiter allowing perSecond requests per second, or
// nil when perSecond is not positive.
func NewLimiter(perSecond float64) *Limiter {
	if perSecond <= 0 {
		return nil
	}
	burst := int(perSecond)
	if burst < 1 {
		burst = 1
	}
	return &Limiter{rl: rate.NewLimiter(rate.Limit(perSecond), burst)}
}

// Wait blocks until the next request may start or ctx is done.
func (l *Limiter) Wait(ctx context.Context) error {
	if l == nil {
		return nil
	}
	return l.rl.Wait(ctx)
}
