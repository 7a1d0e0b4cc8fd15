package pipeline

import (
	"context"

	"github.com/sells-group/outreach-cli/internal/model"
	"github.com/sells-group/outreach-cli/internal/personalize"
)

// PersonalizeStage finalizes each draft. With no engine it passes drafts
// through unchanged; with one it asks the model for an opening line and
// keeps the draft whenever that fails.
type PersonalizeStage struct {
	requirements
	engine  *personalize.Engine
	workers int
	stop    *StopSignal
}

// NewPassthroughStage creates a PersonalizeStage that makes no calls.
func NewPassthroughStage() *PersonalizeStage {
	return &PersonalizeStage{requirements: personalizeRequirements()}
}

// NewPersonalizeStage creates a live PersonalizeStage.
func NewPersonalizeStage(engine *personalize.Engine, workers int, stop *StopSignal) *PersonalizeStage {
	if workers < 1 {
		workers = 1
	}
	return &PersonalizeStage{
		requirements: personalizeRequirements(),
		engine:       engine,
		workers:      workers,
		stop:         stop,
	}
}

func personalizeRequirements() requirements {
	return requirements{model.FieldLeadID, model.FieldEmail, model.FieldDraftSubject, model.FieldDraftBody}
}

func (s *PersonalizeStage) Name() StageName { return StagePersonalize }

// Live reports whether the stage calls a model.
func (s *PersonalizeStage) Live() bool { return s.engine != nil }

// Run implements Stage.
func (s *PersonalizeStage) Run(ctx context.Context, leads []*model.Lead) (*Result, error) {
	if s.engine == nil {
		return process(ctx, StagePersonalize, leads, s.requirements, 0, s.stop, func(_ context.Context, l *model.Lead) (*degrade, error) {
			personalize.Passthrough(l)
			return nil, nil
		})
	}
	return process(ctx, StagePersonalize, leads, s.requirements, s.workers, s.stop, func(ctx context.Context, l *model.Lead) (*degrade, error) {
		if err := s.engine.Apply(ctx, l); err != nil {
			if ctx.Err() != nil {
				return nil, err
			}
			return &degrade{
				reason: model.ReasonPersonalizationFallback,
				detail: l.Get(model.FieldPersonalizationReason),
			}, nil
		}
		return nil, nil
	})
}
