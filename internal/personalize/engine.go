package personalize

import (
	"context"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/outreach-cli/internal/model"
	"github.com/sells-group/outreach-cli/internal/resilience"
)

// Engine wraps a Client with the shared rate gate, retries, a circuit
// breaker and a per-call timeout.
type Engine struct {
	client  Client
	gate    *resilience.Gate
	retry   resilience.RetryConfig
	breaker *resilience.Breaker
	timeout time.Duration
}

// Options configures an Engine. Nil Gate and Breaker get permissive
// defaults.
type Options struct {
	Gate    *resilience.Gate
	Retry   resilience.RetryConfig
	Breaker *resilience.Breaker
	Timeout time.Duration
}

// NewEngine creates an Engine around client.
func NewEngine(client Client, opts Options) *Engine {
	e := &Engine{
		client:  client,
		gate:    opts.Gate,
		retry:   opts.Retry,
		breaker: opts.Breaker,
		timeout: opts.Timeout,
	}
	if e.gate == nil {
		e.gate = resilience.NewGate(0, 0, 0)
	}
	if e.breaker == nil {
		e.breaker = resilience.NewBreaker(resilience.BreakerConfig{Name: "personalize"})
	}
	if e.timeout <= 0 {
		e.timeout = 30 * time.Second
	}
	return e
}

// Line generates and cleans an opening line for lc.
func (e *Engine) Line(ctx context.Context, lc LeadContext) (string, error) {
	retry := e.retry
	retry.OnRetry = resilience.LogRetries("personalize", lc.LeadID)

	var raw string
	err := e.breaker.Execute(ctx, func(ctx context.Context) error {
		var err error
		raw, err = resilience.DoVal(ctx, retry, func(ctx context.Context) (string, error) {
			return resilience.Call(ctx, e.gate, func(ctx context.Context) (string, error) {
				callCtx, cancel := context.WithTimeout(ctx, e.timeout)
				defer cancel()
				return e.client.Personalize(callCtx, lc)
			})
		})
		return err
	})
	if err != nil {
		return "", eris.Wrap(err, "personalize: generate line")
	}

	line, ok := CleanLine(raw)
	if !ok {
		return "", eris.Wrapf(ErrUnusableLine, "got %q", raw)
	}
	return line, nil
}

// Apply personalizes l's draft. On failure the draft is kept as the final
// email, the status columns record the fallback, and the error is returned.
func (e *Engine) Apply(ctx context.Context, l *model.Lead) error {
	line, err := e.Line(ctx, FromLead(l))
	if err != nil {
		reason := err.Error()
		if i := strings.IndexByte(reason, '\n'); i >= 0 {
			reason = reason[:i]
		}
		keepDraft(l, model.PersonalizationFallback)
		l.Set(model.FieldPersonalizationReason, reason)
		zap.L().Debug("personalize: using draft",
			zap.String("lead_id", l.ID()),
			zap.Error(err),
		)
		return err
	}

	l.Set(model.FieldFinalSubject, l.Get(model.FieldDraftSubject))
	l.Set(model.FieldFinalBody, ComposeBody(l.Get(model.FieldDraftBody), l.Get(model.FieldDraftOpener), line))
	l.Set(model.FieldPersonalizedLine, line)
	l.Set(model.FieldPersonalizationStatus, model.PersonalizationPersonalized)
	l.Set(model.FieldPersonalizationReason, "")
	return nil
}

// Passthrough copies the draft to the final columns without generation.
func Passthrough(l *model.Lead) {
	keepDraft(l, model.PersonalizationSkipped)
}

func keepDraft(l *model.Lead, status string) {
	l.Set(model.FieldFinalSubject, l.Get(model.FieldDraftSubject))
	l.Set(model.FieldFinalBody, l.Get(model.FieldDraftBody))
	l.Set(model.FieldPersonalizationStatus, status)
}

// ComposeBody swaps the draft's opener for line. When the opener is not
// found the line is prepended instead.
func ComposeBody(draft, opener, line string) string {
	if opener != "" && strings.Contains(draft, opener) {
		return strings.Replace(draft, opener, line, 1)
	}
	if draft == "" {
		return line
	}
	return line + "\n\n" + draft
}
