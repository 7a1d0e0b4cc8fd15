// Package pipeline chains the lead stages. Each stage reads one artifact
// and publishes the next, so any stage can be re-run from its input.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"strings"
	"sync"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/outreach-cli/internal/artifact"
	"github.com/sells-group/outreach-cli/internal/model"
	"github.com/sells-group/outreach-cli/internal/worker"
)

// StageName identifies a stage on the command line and in artifacts.
type StageName string

const (
	StageClean       StageName = "clean"
	StageScrape      StageName = "scrape"
	StageScore       StageName = "score"
	StageEmails      StageName = "emails"
	StagePersonalize StageName = "personalize"
	StageSequence    StageName = "sequence"
)

// Order is the full chain.
var Order = []StageName{
	StageClean, StageScrape, StageScore, StageEmails, StagePersonalize, StageSequence,
}

var suffixes = map[StageName]string{
	StageClean:       "_cleaned",
	StageScrape:      "_enriched",
	StageScore:       "_scored",
	StageEmails:      "_emails",
	StagePersonalize: "_personalized",
	StageSequence:    "_sequenced",
}

// Suffix is appended to an artifact stem for this stage's output.
func (n StageName) Suffix() string { return suffixes[n] }

// ParseStageName validates a stage name.
func ParseStageName(s string) (StageName, error) {
	n := StageName(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := suffixes[n]; !ok {
		names := make([]string, len(Order))
		for i, o := range Order {
			names[i] = string(o)
		}
		return "", eris.Errorf("pipeline: unknown stage %q (want one of %s)", s, strings.Join(names, ", "))
	}
	return n, nil
}

// Stage transforms a lead collection.
type Stage interface {
	Name() StageName
	// Run processes leads. Per-record problems land in Result.Failed; the
	// error is reserved for conditions that make the whole stage invalid.
	Run(ctx context.Context, leads []*model.Lead) (*Result, error)
}

// Validator is implemented by stages that can reject an artifact by its
// header alone.
type Validator interface {
	ValidateHeader(header []string) error
}

// Result is the outcome of one stage run.
type Result struct {
	Succeeded []*model.Lead
	Failed    []model.Failure
	// Degraded holds leads that are in Succeeded but carry a reason.
	Degraded []model.Failure
}

// Counts tallies failures and degradations by reason.
func (r *Result) Counts() map[model.Reason]int {
	out := make(map[model.Reason]int)
	for _, f := range r.Failed {
		out[f.Reason]++
	}
	for _, f := range r.Degraded {
		out[f.Reason]++
	}
	return out
}

// Total is the number of leads the stage accounted for.
func (r *Result) Total() int { return len(r.Succeeded) + len(r.Failed) }

// StopSignal asks running stages to stop handing out new records. Records
// already in flight finish and the stage returns ErrAborted.
type StopSignal struct {
	once sync.Once
	ch   chan struct{}
}

// NewStopSignal creates an unsignalled StopSignal.
func NewStopSignal() *StopSignal {
	return &StopSignal{ch: make(chan struct{})}
}

// Stop signals. Safe to call more than once.
func (s *StopSignal) Stop() {
	s.once.Do(func() { close(s.ch) })
}

// Done is closed once Stop is called. A nil StopSignal never fires.
func (s *StopSignal) Done() <-chan struct{} {
	if s == nil {
		return nil
	}
	return s.ch
}

// Stopped reports whether Stop was called.
func (s *StopSignal) Stopped() bool {
	select {
	case <-s.Done():
		return true
	default:
		return false
	}
}

// reject is returned by a record func to fail the record with a specific
// reason instead of PROCESSING_ERROR.
type reject struct {
	reason model.Reason
	detail string
}

func (r *reject) Error() string { return string(r.reason) + ": " + r.detail }

func rejectf(reason model.Reason, format string, args ...any) error {
	return &reject{reason: reason, detail: fmt.Sprintf(format, args...)}
}

// degrade describes a successful record that still carries a reason.
type degrade struct {
	reason model.Reason
	detail string
}

// recordFunc processes one lead in place.
type recordFunc func(ctx context.Context, l *model.Lead) (*degrade, error)

// requirements lists the columns a stage needs from upstream.
type requirements []string

// ValidateHeader rejects a header missing any required column.
func (r requirements) ValidateHeader(header []string) error {
	if missing := artifact.MissingColumns(header, r...); len(missing) > 0 {
		return eris.Wrapf(ErrArtifactMalformed, "missing required columns: %s", strings.Join(missing, ", "))
	}
	return nil
}

type outcome struct {
	lead    *model.Lead
	degrade *degrade
}

// process applies fn to a clone of each lead, one at a time or through a
// worker pool when workers > 0. Leads missing required fields fail
// MALFORMED without reaching fn. Output order follows input order.
func process(ctx context.Context, name StageName, leads []*model.Lead, req requirements, workers int, stop *StopSignal, fn recordFunc) (*Result, error) {
	if len(leads) == 0 {
		return nil, eris.Wrapf(ErrEmptyInput, "stage %s", name)
	}

	handle := func(ctx context.Context, l *model.Lead) (outcome, error) {
		if missing := l.MissingFields(req...); len(missing) > 0 {
			return outcome{}, rejectf(model.ReasonMalformed, "missing %s", strings.Join(missing, ", "))
		}
		work := l.Clone()
		d, err := fn(ctx, work)
		if err != nil {
			return outcome{}, err
		}
		return outcome{lead: work, degrade: d}, nil
	}

	var results []worker.Result[*model.Lead, outcome]
	var runErr error
	if workers > 0 {
		results, runErr = worker.ProcessAll(ctx, leads, handle, worker.Options{
			Workers: workers,
			Stop:    stop.Done(),
		})
	} else {
		results, runErr = processSerial(ctx, leads, handle, stop)
	}
	if runErr != nil {
		return nil, eris.Wrapf(ErrAborted, "stage %s: %v", name, runErr)
	}

	res := &Result{}
	for _, r := range results {
		if r.Err != nil {
			res.Failed = append(res.Failed, toFailure(name, r.Input, r.Err))
			continue
		}
		res.Succeeded = append(res.Succeeded, r.Output.lead)
		if d := r.Output.degrade; d != nil {
			res.Degraded = append(res.Degraded, model.Failure{
				Lead:   r.Output.lead,
				Stage:  string(name),
				Reason: d.reason,
				Detail: d.detail,
			})
		}
	}
	return res, nil
}

func processSerial(ctx context.Context, leads []*model.Lead, fn func(context.Context, *model.Lead) (outcome, error), stop *StopSignal) ([]worker.Result[*model.Lead, outcome], error) {
	out := make([]worker.Result[*model.Lead, outcome], len(leads))
	for i, l := range leads {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		if stop.Stopped() {
			return out, worker.ErrStopped
		}
		o, err := runSafely(ctx, l, fn)
		out[i] = worker.Result[*model.Lead, outcome]{Input: l, Output: o, Err: err, Done: true}
	}
	return out, nil
}

func runSafely(ctx context.Context, l *model.Lead, fn func(context.Context, *model.Lead) (outcome, error)) (o outcome, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &worker.PanicError{Value: r, Stack: string(debug.Stack())}
		}
	}()
	return fn(ctx, l)
}

func toFailure(name StageName, l *model.Lead, err error) model.Failure {
	f := model.Failure{Lead: l, Stage: string(name)}
	var rj *reject
	var pe *worker.PanicError
	switch {
	case errors.As(err, &rj):
		f.Reason = rj.reason
		f.Detail = rj.detail
	case errors.As(err, &pe):
		f.Reason = model.ReasonProcessingError
		f.Detail = pe.Error()
		zap.L().Error("pipeline: record panicked",
			zap.String("stage", string(name)),
			zap.String("lead_id", l.ID()),
			zap.String("stack", pe.Stack),
		)
	default:
		f.Reason = model.ReasonProcessingError
		f.Detail = firstLine(err.Error())
		zap.L().Warn("pipeline: record failed",
			zap.String("stage", string(name)),
			zap.String("lead_id", l.ID()),
			zap.Error(err),
		)
	}
	return f
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
