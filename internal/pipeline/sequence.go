package pipeline

import (
	"context"

	"github.com/sells-group/outreach-cli/internal/model"
	"github.com/sells-group/outreach-cli/internal/sequence"
)

// SequenceStage schedules follow-ups for each finalized email.
type SequenceStage struct {
	requirements
	builder *sequence.Builder
}

// NewSequenceStage creates a SequenceStage.
func NewSequenceStage(b *sequence.Builder) *SequenceStage {
	return &SequenceStage{
		requirements: requirements{model.FieldLeadID, model.FieldFinalSubject, model.FieldFinalBody, model.FieldPriority},
		builder:      b,
	}
}

func (s *SequenceStage) Name() StageName { return StageSequence }

// Run implements Stage.
func (s *SequenceStage) Run(ctx context.Context, leads []*model.Lead) (*Result, error) {
	return process(ctx, StageSequence, leads, s.requirements, 0, nil, func(_ context.Context, l *model.Lead) (*degrade, error) {
		return nil, s.builder.Apply(l)
	})
}
