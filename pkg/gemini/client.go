// Package gemini wraps the Google GenAI SDK for short text generation.
package gemini

import (
	"context"
	"errors"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"google.golang.org/genai"
)

// Client generates text with a Gemini model.
type Client interface {
	Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error)
}

// GenerateRequest is a single-turn prompt.
type GenerateRequest struct {
	Model       string
	System      string
	Prompt      string
	MaxTokens   int32
	Temperature *float32
}

// GenerateResponse holds the generated text and token usage.
type GenerateResponse struct {
	Text         string
	InputTokens  int32
	OutputTokens int32
}

// LogUsage logs token usage at debug level.
func (r *GenerateResponse) LogUsage(model, leadID string) {
	zap.L().Debug("gemini: usage",
		zap.String("model", model),
		zap.String("lead_id", leadID),
		zap.Int32("input_tokens", r.InputTokens),
		zap.Int32("output_tokens", r.OutputTokens),
	)
}

// Config configures the client.
type Config struct {
	APIKey string
	// BaseURL overrides the Gemini API base URL. Useful for proxies/testing.
	BaseURL string
}

type sdkClient struct {
	client *genai.Client
}

// NewClient creates a Gemini API client.
func NewClient(ctx context.Context, cfg Config) (Client, error) {
	key := strings.TrimSpace(cfg.APIKey)
	if key == "" {
		return nil, eris.New("gemini: api key is required")
	}
	cc := &genai.ClientConfig{
		APIKey:  key,
		Backend: genai.BackendGeminiAPI,
	}
	if u := strings.TrimSpace(cfg.BaseURL); u != "" {
		cc.HTTPOptions.BaseURL = u
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, eris.Wrap(err, "gemini: create client")
	}
	return &sdkClient{client: client}, nil
}

func (c *sdkClient) Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error) {
	gc := &genai.GenerateContentConfig{
		CandidateCount: 1,
	}
	if req.MaxTokens > 0 {
		gc.MaxOutputTokens = req.MaxTokens
	}
	if req.Temperature != nil {
		gc.Temperature = genai.Ptr(*req.Temperature)
	}
	if req.System != "" {
		gc.SystemInstruction = genai.NewContentFromText(req.System, genai.RoleUser)
	}

	resp, err := c.client.Models.GenerateContent(ctx, req.Model, genai.Text(req.Prompt), gc)
	if err != nil {
		return nil, eris.Wrap(err, "gemini: generate content")
	}

	out := &GenerateResponse{Text: resp.Text()}
	if resp.UsageMetadata != nil {
		out.InputTokens = resp.UsageMetadata.PromptTokenCount
		out.OutputTokens = resp.UsageMetadata.CandidatesTokenCount
	}
	return out, nil
}

// StatusCode returns the HTTP status of an API error, or 0 when err did not
// come from an API response.
func StatusCode(err error) int {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil {
		return apiErrPtr.Code
	}
	return 0
}
