// Package resilience guards calls to external services: retry with
// backoff, a shared rate/concurrency gate, and a circuit breaker that
// stops hammering a provider that keeps failing.
package resilience

import (
	"context"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// BreakerState is the state of a Breaker.
type BreakerState int

const (
	// BreakerClosed lets calls through.
	BreakerClosed BreakerState = iota
	// BreakerOpen rejects calls until the cooldown elapses.
	BreakerOpen
	// BreakerHalfOpen lets one trial request through to test recovery.
	BreakerHalfOpen
)

func (s BreakerState) String() string {
	switch s {
	case BreakerClosed:
		return "closed"
	case BreakerOpen:
		return "open"
	case BreakerHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// ErrBreakerOpen is returned for calls rejected by an open breaker.
var ErrBreakerOpen = eris.New("circuit breaker is open")

// BreakerConfig controls Breaker behavior.
type BreakerConfig struct {
	// Name identifies the guarded service in logs.
	Name string
	// Threshold is the number of consecutive failures that opens the
	// breaker. Default: 5.
	Threshold int
	// Cooldown is how long the breaker stays open. Default: 30s.
	Cooldown time.Duration
}

// NewBreakerConfig builds a BreakerConfig from configured values.
func NewBreakerConfig(name string, threshold, cooldownSecs int) BreakerConfig {
	cfg := BreakerConfig{Name: name, Threshold: 5, Cooldown: 30 * time.Second}
	if threshold > 0 {
		cfg.Threshold = threshold
	}
	if cooldownSecs > 0 {
		cfg.Cooldown = time.Duration(cooldownSecs) * time.Second
	}
	return cfg
}

// Breaker is a consecutive-failure circuit breaker, safe for concurrent use.
type Breaker struct {
	cfg      BreakerConfig
	mu       sync.Mutex
	state    BreakerState
	failures int
	openedAt time.Time
	probing  bool

	now func() time.Time
}

// NewBreaker creates a closed breaker.
func NewBreaker(cfg BreakerConfig) *Breaker {
	if cfg.Threshold <= 0 {
		cfg.Threshold = 5
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = 30 * time.Second
	}
	return &Breaker{cfg: cfg, now: time.Now}
}

// Execute runs fn unless the breaker is open. Cancellation of ctx is not
// counted as a failure of the service.
func (b *Breaker) Execute(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := b.allow(); err != nil {
		return err
	}
	err := fn(ctx)
	b.record(ctx, err)
	return err
}

// State returns the current state.
func (b *Breaker) State() BreakerState {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state == BreakerOpen && b.now().Sub(b.openedAt) >= b.cfg.Cooldown {
		return BreakerHalfOpen
	}
	return b.state
}

func (b *Breaker) allow() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case BreakerOpen:
		if b.now().Sub(b.openedAt) < b.cfg.Cooldown {
			return ErrBreakerOpen
		}
		b.setState(BreakerHalfOpen)
		b.probing = true
		return nil
	case BreakerHalfOpen:
		if b.probing {
			return ErrBreakerOpen
		}
		b.probing = true
		return nil
	default:
		return nil
	}
}

func (b *Breaker) record(ctx context.Context, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == BreakerHalfOpen {
		b.probing = false
	}

	if err == nil {
		b.failures = 0
		if b.state != BreakerClosed {
			b.setState(BreakerClosed)
		}
		return
	}
	if ctx.Err() != nil {
		return
	}

	b.failures++
	switch {
	case b.state == BreakerHalfOpen,
		b.state == BreakerClosed && b.failures >= b.cfg.Threshold:
		b.openedAt = b.now()
		b.setState(BreakerOpen)
	}
}

func (b *Breaker) setState(to BreakerState) {
	from := b.state
	b.state = to
	zap.L().Info("circuit breaker state change",
		zap.String("service", b.cfg.Name),
		zap.String("from", from.String()),
		zap.String("to", to.String()),
	)
}
