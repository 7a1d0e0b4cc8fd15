package pipeline

import (
	"context"

	"github.com/sells-group/outreach-cli/internal/enrich"
	"github.com/sells-group/outreach-cli/internal/model"
)

// EnrichStage gathers website signals for each lead through a worker pool.
type EnrichStage struct {
	requirements
	client     enrich.Client
	categories []model.Category
	workers    int
	stop       *StopSignal
}

// NewEnrichStage creates an EnrichStage. Empty categories selects all.
func NewEnrichStage(client enrich.Client, categories []model.Category, workers int, stop *StopSignal) *EnrichStage {
	if len(categories) == 0 {
		categories = model.AllCategories
	}
	if workers < 1 {
		workers = 1
	}
	return &EnrichStage{
		requirements: requirements{model.FieldLeadID, model.FieldDomain},
		client:       client,
		categories:   categories,
		workers:      workers,
		stop:         stop,
	}
}

func (s *EnrichStage) Name() StageName { return StageScrape }

// Run implements Stage.
func (s *EnrichStage) Run(ctx context.Context, leads []*model.Lead) (*Result, error) {
	return process(ctx, StageScrape, leads, s.requirements, s.workers, s.stop, s.enrich)
}

func (s *EnrichStage) enrich(ctx context.Context, l *model.Lead) (*degrade, error) {
	res, err := s.client.Fetch(ctx, l.Domain(), s.categories)
	if err != nil {
		return nil, err
	}
	out := enrich.Apply(l, res, s.categories)
	if !out.Degraded() {
		return nil, nil
	}
	return &degrade{reason: model.ReasonEnrichmentPartial, detail: out.Detail()}, nil
}
