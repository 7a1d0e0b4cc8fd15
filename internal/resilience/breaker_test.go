package resilience

import (
	"context"
	"errors"
	"testing"
	"time"
)

func failN(t *testing.T, b *Breaker, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		_ = b.Execute(context.Background(), func(_ context.Context) error {
			return errors.New("fail")
		})
	}
}

func TestBreaker_ClosedPassesThrough(t *testing.T) {
	b := NewBreaker(BreakerConfig{Name: "test"})
	var calls int
	err := b.Execute(context.Background(), func(_ context.Context) error {
		calls++
		return nil
	})
	if err != nil || calls != 1 {
		t.Fatalf("expected one successful call, got calls=%d err=%v", calls, err)
	}
	if b.State() != BreakerClosed {
		t.Errorf("expected closed, got %s", b.State())
	}
}

func TestBreaker_OpensAfterThreshold(t *testing.T) {
	b := NewBreaker(BreakerConfig{Name: "test", Threshold: 3, Cooldown: time.Minute})
	failN(t, b, 3)

	if b.State() != BreakerOpen {
		t.Fatalf("expected open, got %s", b.State())
	}
	err := b.Execute(context.Background(), func(_ context.Context) error {
		t.Error("should not be called while open")
		return nil
	})
	if !errors.Is(err, ErrBreakerOpen) {
		t.Errorf("expected ErrBreakerOpen, got %v", err)
	}
}

func TestBreaker_SuccessResetsFailures(t *testing.T) {
	b := NewBreaker(BreakerConfig{Name: "test", Threshold: 3, Cooldown: time.Minute})
	failN(t, b, 2)
	_ = b.Execute(context.Background(), func(_ context.Context) error { return nil })
	failN(t, b, 2)

	if b.State() != BreakerClosed {
		t.Errorf("expected closed, got %s", b.State())
	}
}

func TestBreaker_HalfOpenTrial(t *testing.T) {
	now := time.Now()
	b := NewBreaker(BreakerConfig{Name: "test", Threshold: 1, Cooldown: 10 * time.Second})
	b.now = func() time.Time { return now }
	failN(t, b, 1)

	now = now.Add(11 * time.Second)
	if b.State() != BreakerHalfOpen {
		t.Fatalf("expected half-open, got %s", b.State())
	}

	if err := b.Execute(context.Background(), func(_ context.Context) error { return nil }); err != nil {
		t.Fatalf("trial request should pass: %v", err)
	}
	if b.State() != BreakerClosed {
		t.Errorf("expected closed after successful trial, got %s", b.State())
	}
}

func TestBreaker_FailedTrialReopens(t *testing.T) {
	now := time.Now()
	b := NewBreaker(BreakerConfig{Name: "test", Threshold: 1, Cooldown: 10 * time.Second})
	b.now = func() time.Time { return now }
	failN(t, b, 1)

	now = now.Add(11 * time.Second)
	failN(t, b, 1)
	if b.State() != BreakerOpen {
		t.Errorf("expected open after failed trial, got %s", b.State())
	}
}

func TestBreaker_CancellationNotCounted(t *testing.T) {
	b := NewBreaker(BreakerConfig{Name: "test", Threshold: 1})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_ = b.Execute(ctx, func(ctx context.Context) error { return ctx.Err() })
	if b.State() != BreakerClosed {
		t.Errorf("cancellation should not open the breaker, got %s", b.State())
	}
}

func TestNewBreakerConfig(t *testing.T) {
	cfg := NewBreakerConfig("gemini", 0, 0)
	if cfg.Threshold != 5 || cfg.Cooldown != 30*time.Second {
		t.Errorf("expected defaults, got %+v", cfg)
	}
	cfg = NewBreakerConfig("gemini", 2, 5)
	if cfg.Threshold != 2 || cfg.Cooldown != 5*time.Second {
		t.Errorf("unexpected config %+v", cfg)
	}
}

func TestBreakerState_String(t *testing.T) {
	if BreakerHalfOpen.String() != "half-open" || BreakerState(9).String() != "unknown" {
		t.Error("unexpected state names")
	}
}
