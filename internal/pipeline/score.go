package pipeline

import (
	"context"

	"github.com/sells-group/outreach-cli/internal/model"
	"github.com/sells-group/outreach-cli/internal/scorer"
)

// ScoreStage rates each lead's website opportunity. It is pure and
// deterministic; unavailable categories simply add no points.
type ScoreStage struct {
	requirements
	scorer *scorer.Scorer
}

// NewScoreStage creates a ScoreStage.
func NewScoreStage(s *scorer.Scorer) *ScoreStage {
	return &ScoreStage{
		requirements: requirements{model.FieldLeadID, model.FieldDomain, model.FieldEnrichStatus},
		scorer:       s,
	}
}

func (s *ScoreStage) Name() StageName { return StageScore }

// Run implements Stage.
func (s *ScoreStage) Run(ctx context.Context, leads []*model.Lead) (*Result, error) {
	return process(ctx, StageScore, leads, s.requirements, 0, nil, func(_ context.Context, l *model.Lead) (*degrade, error) {
		s.scorer.Apply(l)
		return nil, nil
	})
}
