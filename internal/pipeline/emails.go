package pipeline

import (
	"context"

	"github.com/sells-group/outreach-cli/internal/emailgen"
	"github.com/sells-group/outreach-cli/internal/model"
)

// EmailsStage drafts a first-touch email for every lead that clears the
// score threshold. Leads below it leave the pipeline here.
type EmailsStage struct {
	requirements
	gen *emailgen.Generator
}

// NewEmailsStage creates an EmailsStage.
func NewEmailsStage(gen *emailgen.Generator) *EmailsStage {
	return &EmailsStage{
		requirements: requirements{model.FieldLeadID, model.FieldDomain, model.FieldScore, model.FieldPriority},
		gen:          gen,
	}
}

func (s *EmailsStage) Name() StageName { return StageEmails }

// Run implements Stage.
func (s *EmailsStage) Run(ctx context.Context, leads []*model.Lead) (*Result, error) {
	return process(ctx, StageEmails, leads, s.requirements, 0, nil, func(_ context.Context, l *model.Lead) (*degrade, error) {
		score, err := emailgen.ScoreOf(l)
		if err != nil {
			return nil, rejectf(model.ReasonMalformed, "%s", err.Error())
		}
		if !s.gen.Eligible(score) {
			return nil, rejectf(model.ReasonBelowThreshold, "score %d is below %d", score, s.gen.Threshold())
		}
		return nil, s.gen.Apply(l)
	})
}
