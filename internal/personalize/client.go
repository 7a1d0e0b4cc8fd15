package personalize

import (
	"context"
	"sync"

	"github.com/rotisserie/eris"

	"github.com/sells-group/outreach-cli/internal/resilience"
	"github.com/sells-group/outreach-cli/pkg/anthropic"
	"github.com/sells-group/outreach-cli/pkg/gemini"
)

// Client generates a raw opening line for a lead.
type Client interface {
	Personalize(ctx context.Context, lc LeadContext) (string, error)
}

// Generation settings shared by the model-backed clients.
type Generation struct {
	Model       string
	MaxTokens   int
	Temperature float64
}

// AnthropicClient generates lines with Claude.
type AnthropicClient struct {
	client anthropic.Client
	gen    Generation
}

// NewAnthropicClient creates an AnthropicClient.
func NewAnthropicClient(client anthropic.Client, gen Generation) *AnthropicClient {
	return &AnthropicClient{client: client, gen: gen}
}

// Personalize implements Client.
func (c *AnthropicClient) Personalize(ctx context.Context, lc LeadContext) (string, error) {
	temp := c.gen.Temperature
	resp, err := c.client.CreateMessage(ctx, anthropic.MessageRequest{
		Model:       c.gen.Model,
		MaxTokens:   int64(c.gen.MaxTokens),
		System:      systemPrompt,
		Messages:    []anthropic.Message{{Role: "user", Content: userPrompt(lc)}},
		Temperature: &temp,
	})
	if err != nil {
		return "", classify(err, anthropic.StatusCode(err))
	}
	resp.Usage.LogCost(c.gen.Model, lc.LeadID)
	return resp.Text(), nil
}

// GeminiClient generates lines with Gemini.
type GeminiClient struct {
	client gemini.Client
	gen    Generation
}

// NewGeminiClient creates a GeminiClient.
func NewGeminiClient(client gemini.Client, gen Generation) *GeminiClient {
	return &GeminiClient{client: client, gen: gen}
}

// Personalize implements Client.
func (c *GeminiClient) Personalize(ctx context.Context, lc LeadContext) (string, error) {
	temp := float32(c.gen.Temperature)
	resp, err := c.client.Generate(ctx, gemini.GenerateRequest{
		Model:       c.gen.Model,
		System:      systemPrompt,
		Prompt:      userPrompt(lc),
		MaxTokens:   int32(c.gen.MaxTokens),
		Temperature: &temp,
	})
	if err != nil {
		return "", classify(err, gemini.StatusCode(err))
	}
	resp.LogUsage(c.gen.Model, lc.LeadID)
	return resp.Text, nil
}

// classify marks retryable provider failures as transient.
func classify(err error, status int) error {
	if status != 0 {
		if resilience.IsTransientHTTPStatus(status) {
			return resilience.NewTransientError(err, status)
		}
		return err
	}
	if resilience.IsTransient(err) {
		return resilience.NewTransientError(err, 0)
	}
	return err
}

// StubClient returns canned lines without network access. Lines are
// handed out in order and repeat from the start; Err, when set, is
// returned for every call.
type StubClient struct {
	Lines []string
	Err   error

	mu    sync.Mutex
	calls int
}

// Personalize implements Client.
func (s *StubClient) Personalize(ctx context.Context, lc LeadContext) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.Err != nil {
		return "", s.Err
	}
	if len(s.Lines) == 0 {
		return "Took a look at " + lc.Company + "'s website and spotted a couple of quick wins.", nil
	}
	return s.Lines[(s.calls-1)%len(s.Lines)], nil
}

// Calls returns how many times Personalize ran.
func (s *StubClient) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

// ErrUnusableLine is returned when the model's output is empty or too short.
var ErrUnusableLine = eris.New("personalize: generated line unusable")
