package resilience

import (
	"context"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"
)

// Gate is the single admission point for one external client. Every
// request acquires a permit, which both waits on the rate limiter and
// holds one of a bounded number of in-flight slots until released.
type Gate struct {
	limiter *rate.Limiter
	slots   chan struct{}
}

// NewGate allows perSec requests per second (burst) with at most
// maxInFlight outstanding. perSec <= 0 disables rate limiting;
// maxInFlight <= 0 disables the concurrency bound.
func NewGate(perSec float64, burst, maxInFlight int) *Gate {
	g := &Gate{}
	if perSec > 0 {
		if burst < 1 {
			burst = 1
		}
		g.limiter = rate.NewLimiter(rate.Limit(perSec), burst)
	}
	if maxInFlight > 0 {
		g.slots = make(chan struct{}, maxInFlight)
	}
	return g
}

// Acquire blocks until a permit is available or ctx is done. The returned
// release func must be called exactly once when the request finishes.
func (g *Gate) Acquire(ctx context.Context) (release func(), err error) {
	if g.slots != nil {
		select {
		case g.slots <- struct{}{}:
		case <-ctx.Done():
			return nil, eris.Wrap(ctx.Err(), "gate: waiting for slot")
		}
	}
	if g.limiter != nil {
		if err := g.limiter.Wait(ctx); err != nil {
			g.free()
			return nil, eris.Wrap(err, "gate: waiting for rate limit")
		}
	}
	return g.free, nil
}

func (g *Gate) free() {
	if g.slots != nil {
		<-g.slots
	}
}

// Call wraps fn so that each invocation holds a gate permit.
func Call[T any](ctx context.Context, g *Gate, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	release, err := g.Acquire(ctx)
	if err != nil {
		return zero, err
	}
	defer release()
	return fn(ctx)
}
