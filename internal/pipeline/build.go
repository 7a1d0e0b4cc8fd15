package pipeline

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/outreach-cli/internal/config"
	"github.com/sells-group/outreach-cli/internal/emailgen"
	"github.com/sells-group/outreach-cli/internal/enrich"
	"github.com/sells-group/outreach-cli/internal/personalize"
	"github.com/sells-group/outreach-cli/internal/scorer"
	"github.com/sells-group/outreach-cli/internal/sequence"
)

// Deps overrides the external clients used by BuildStages. Nil clients
// are built from config.
type Deps struct {
	Enricher     enrich.Client
	Personalizer personalize.Client
	// SkipAI selects the passthrough personalize stage.
	SkipAI bool
	Stop   *StopSignal
}

// BuildStages constructs the named stages from cfg. Clients are only
// created for stages that need them, so a missing API key fails only the
// runs that would use it.
func BuildStages(ctx context.Context, cfg *config.Config, deps Deps, names ...StageName) ([]Stage, error) {
	if len(names) == 0 {
		names = Order
	}

	out := make([]Stage, 0, len(names))
	for _, name := range names {
		var (
			st  Stage
			err error
		)
		switch name {
		case StageClean:
			st = NewCleanStage()
		case StageScrape:
			st, err = buildEnrich(cfg, deps)
		case StageScore:
			var s *scorer.Scorer
			if s, err = scorer.New(cfg.Score); err == nil {
				st = NewScoreStage(s)
			}
		case StageEmails:
			var g *emailgen.Generator
			if g, err = emailgen.New(cfg.Emails); err == nil {
				st = NewEmailsStage(g)
			}
		case StagePersonalize:
			st, err = buildPersonalize(ctx, cfg, deps)
		case StageSequence:
			var b *sequence.Builder
			if b, err = sequence.New(cfg.Sequence); err == nil {
				st = NewSequenceStage(b)
			}
		default:
			err = eris.Errorf("pipeline: unknown stage %q", name)
		}
		if err != nil {
			return nil, &FatalError{Stage: name, Err: err}
		}
		out = append(out, st)
	}
	return out, nil
}

func buildEnrich(cfg *config.Config, deps Deps) (Stage, error) {
	cats, err := enrich.CategoriesFromConfig(cfg)
	if err != nil {
		return nil, err
	}
	client := deps.Enricher
	if client == nil {
		client = enrich.NewClientFromConfig(cfg)
	}
	return NewEnrichStage(client, cats, cfg.Scrape.Concurrency, deps.Stop), nil
}

func buildPersonalize(ctx context.Context, cfg *config.Config, deps Deps) (Stage, error) {
	if deps.SkipAI {
		return NewPassthroughStage(), nil
	}
	client := deps.Personalizer
	if client == nil {
		if err := cfg.Validate("personalize"); err != nil {
			return nil, err
		}
		c, err := personalize.NewClientFromConfig(ctx, cfg)
		if err != nil {
			return nil, eris.Wrap(err, "pipeline: init personalization client")
		}
		client = c
	}
	engine := personalize.NewEngineFromConfig(client, cfg)
	return NewPersonalizeStage(engine, cfg.Personalize.Concurrency, deps.Stop), nil
}
