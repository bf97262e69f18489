package resources

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Throttle applies the budget's cooperative inter-block delay. It paces the
// scan loop to one block per delay interval rather than sleeping a fixed
// amount, so time spent carving counts against the interval.
type Throttle struct {
	limiter *rate.Limiter
}

// NewThrottle creates a throttle for the given inter-block delay.
// A zero delay yields a no-op throttle.
func NewThrottle(delay time.Duration) *Throttle {
	if delay <= 0 {
		return &Throttle{}
	}
	return &Throttle{limiter: rate.NewLimiter(rate.Every(delay), 1)}
}

// Wait blocks until the throttle allows the next block or the context is
// canceled. It returns an error only if the context is canceled while
// waiting.
func (t *Throttle) Wait(ctx context.Context) error {
	if t.limiter == nil {
		return nil
	}
	return t.limiter.Wait(ctx)
}
