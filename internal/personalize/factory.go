package personalize

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/outreach-cli/internal/config"
	"github.com/sells-group/outreach-cli/internal/resilience"
	"github.com/sells-group/outreach-cli/pkg/anthropic"
	"github.com/sells-group/outreach-cli/pkg/gemini"
)

// Provider names accepted in personalize.provider.
const (
	ProviderGemini    = "gemini"
	ProviderAnthropic = "anthropic"
	ProviderStub      = "stub"
)

// NewClientFromConfig builds the configured provider's Client.
func NewClientFromConfig(ctx context.Context, cfg *config.Config) (Client, error) {
	gen := Generation{
		MaxTokens:   cfg.Personalize.MaxTokens,
		Temperature: cfg.Personalize.Temperature,
	}
	switch cfg.Personalize.Provider {
	case ProviderGemini:
		gc, err := gemini.NewClient(ctx, gemini.Config{APIKey: cfg.Gemini.Key})
		if err != nil {
			return nil, err
		}
		gen.Model = cfg.Gemini.Model
		return NewGeminiClient(gc, gen), nil
	case ProviderAnthropic:
		if cfg.Anthropic.Key == "" {
			return nil, eris.New("personalize: anthropic.key is required")
		}
		gen.Model = cfg.Anthropic.Model
		return NewAnthropicClient(anthropic.NewClient(cfg.Anthropic.Key), gen), nil
	case ProviderStub:
		return &StubClient{}, nil
	default:
		return nil, eris.Errorf("personalize: unknown provider %q", cfg.Personalize.Provider)
	}
}

// NewEngineFromConfig wires client with the gate, retry policy and breaker
// described by cfg.
func NewEngineFromConfig(client Client, cfg *config.Config) *Engine {
	p := cfg.Personalize
	return NewEngine(client, Options{
		Gate:    resilience.NewGate(p.RatePerSec, p.Burst, p.Concurrency),
		Retry:   resilience.NewRetryConfig(cfg.Retry.MaxAttempts, cfg.Retry.InitialBackoffMs, cfg.Retry.MaxBackoffMs),
		Breaker: resilience.NewBreaker(resilience.NewBreakerConfig("personalize."+p.Provider, p.BreakerThreshold, p.BreakerResetSecs)),
		Timeout: time.Duration(p.TimeoutSecs) * time.Second,
	})
}
