package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/outreach-cli/internal/emailgen"
	"github.com/sells-group/outreach-cli/internal/enrich"
	"github.com/sells-group/outreach-cli/internal/model"
	"github.com/sells-group/outreach-cli/internal/personalize"
	"github.com/sells-group/outreach-cli/internal/scorer"
	"github.com/sells-group/outreach-cli/internal/sequence"
)

func cleanedLead(id, domain string) *model.Lead {
	return newLead(
		model.FieldLeadID, id,
		model.FieldCompanyName, "Acme Plumbing",
		model.FieldContactName, "Jane Doe",
		model.FieldDomain, domain,
		model.FieldWebsite, "https://"+domain,
		model.FieldEmail, "jane@"+domain,
	)
}

func TestEnrichStage_StatusAndDegraded(t *testing.T) {
	stub := fastSiteStub()
	stub.Errors = map[string]error{"broken.com": errors.New("stub exploded")}

	s := NewEnrichStage(stub, []model.Category{model.CategorySecurity, model.CategoryPerformance, model.CategorySEO}, 2, nil)
	leads := []*model.Lead{cleanedLead("1", "acme.com"), cleanedLead("2", "broken.com"), newLead(model.FieldLeadID, "3")}
	res, err := s.Run(context.Background(), leads)
	require.NoError(t, err)

	require.Len(t, res.Succeeded, 1)
	l := res.Succeeded[0]
	assert.Equal(t, "true", l.Get(model.FieldHasSSL))
	assert.Equal(t, "800", l.Get(model.FieldLoadTimeMs))
	assert.Equal(t, model.EnrichPartial, l.Get(model.FieldEnrichStatus))
	assert.Equal(t, "seo", l.Get(model.FieldEnrichUnavailable))
	assert.Equal(t, "stub", l.Get(model.FieldEnrichSource))
	assert.Equal(t, "https://acme.com", l.Get(model.FieldFinalURL))
	assert.True(t, l.HasColumn(model.FieldSEOScore))
	assert.False(t, l.Has(model.FieldSEOScore))

	require.Len(t, res.Degraded, 1)
	assert.Equal(t, model.ReasonEnrichmentPartial, res.Degraded[0].Reason)
	assert.Equal(t, "unavailable: seo (seo: not provided by stub)", res.Degraded[0].Detail)

	require.Len(t, res.Failed, 2)
	assert.Equal(t, model.ReasonProcessingError, res.Failed[0].Reason)
	assert.Equal(t, model.ReasonMalformed, res.Failed[1].Reason)
}

func TestEnrichStage_CompleteAndUnavailable(t *testing.T) {
	s := NewEnrichStage(fastSiteStub(), []model.Category{model.CategorySecurity}, 1, nil)
	res, err := s.Run(context.Background(), []*model.Lead{cleanedLead("1", "acme.com")})
	require.NoError(t, err)
	assert.Equal(t, model.EnrichComplete, res.Succeeded[0].Get(model.FieldEnrichStatus))
	assert.Empty(t, res.Degraded)

	s = NewEnrichStage(&enrich.StubClient{}, nil, 1, nil)
	res, err = s.Run(context.Background(), []*model.Lead{cleanedLead("1", "acme.com")})
	require.NoError(t, err)
	require.Len(t, res.Succeeded, 1)
	assert.Equal(t, model.EnrichUnavailable, res.Succeeded[0].Get(model.FieldEnrichStatus))
	assert.Equal(t, "performance,security,seo,cms,mobile,business,accessibility",
		res.Succeeded[0].Get(model.FieldEnrichUnavailable))
}

func TestEnrichStage_RerunClearsStaleSignals(t *testing.T) {
	stub := &enrich.StubClient{Fixed: map[model.Category]enrich.Signals{
		model.CategoryPerformance: {model.FieldLoadTimeMs: "800"},
	}}
	prior := cleanedLead("1", "acme.com")
	prior.Set(model.FieldHasSSL, "true")
	prior.Set(model.FieldHasHSTS, "true")
	prior.Set(model.FieldLoadTimeP90Ms, "2400")

	s := NewEnrichStage(stub, []model.Category{model.CategorySecurity, model.CategoryPerformance}, 1, nil)
	res, err := s.Run(context.Background(), []*model.Lead{prior})
	require.NoError(t, err)
	require.Len(t, res.Succeeded, 1)
	l := res.Succeeded[0]

	assert.Equal(t, "security", l.Get(model.FieldEnrichUnavailable))
	assert.True(t, l.HasColumn(model.FieldHasSSL))
	assert.Empty(t, l.Get(model.FieldHasSSL))
	assert.Empty(t, l.Get(model.FieldHasHSTS))
	assert.Equal(t, "800", l.Get(model.FieldLoadTimeMs))
	assert.Empty(t, l.Get(model.FieldLoadTimeP90Ms))
	assert.Equal(t, "true", prior.Get(model.FieldHasSSL), "input lead is not modified")

	sc, err := scorer.New(scorer.DefaultConfig())
	require.NoError(t, err)
	scored, err := NewScoreStage(sc).Run(context.Background(), res.Succeeded)
	require.NoError(t, err)
	require.Len(t, scored.Succeeded, 1)
	assert.Equal(t, "32", scored.Succeeded[0].Get(model.FieldScore))
}

func TestScoreStage(t *testing.T) {
	sc, err := scorer.New(scorer.DefaultConfig())
	require.NoError(t, err)

	enriched := cleanedLead("1", "acme.com")
	enriched.Set(model.FieldHasSSL, "true")
	enriched.Set(model.FieldLoadTimeMs, "800")
	enriched.Set(model.FieldEnrichStatus, model.EnrichPartial)

	res, err := NewScoreStage(sc).Run(context.Background(), []*model.Lead{enriched, cleanedLead("2", "beta.com")})
	require.NoError(t, err)
	require.Len(t, res.Succeeded, 1)
	assert.Equal(t, "72", res.Succeeded[0].Get(model.FieldScore))
	assert.Equal(t, "warm", res.Succeeded[0].Get(model.FieldPriority))
	require.Len(t, res.Failed, 1)
	assert.Equal(t, model.ReasonMalformed, res.Failed[0].Reason)
	assert.Equal(t, "missing enrich_status", res.Failed[0].Detail)
}

func TestEmailsStage(t *testing.T) {
	gen, err := emailgen.New(testConfig().Emails)
	require.NoError(t, err)

	scored := func(id, score string) *model.Lead {
		l := cleanedLead(id, "acme"+id+".com")
		l.Set(model.FieldScore, score)
		l.Set(model.FieldPriority, "warm")
		return l
	}
	res, err := NewEmailsStage(gen).Run(context.Background(), []*model.Lead{
		scored("1", "72"), scored("2", "39"), scored("3", "n/a"), scored("4", "40"),
	})
	require.NoError(t, err)

	require.Len(t, res.Succeeded, 2)
	assert.Equal(t, "1", res.Succeeded[0].ID())
	assert.Equal(t, "4", res.Succeeded[1].ID())
	assert.NotEmpty(t, res.Succeeded[0].Get(model.FieldDraftBody))
	assert.Equal(t, emailgen.SourceProvided, res.Succeeded[0].Get(model.FieldEmailSource))

	require.Len(t, res.Failed, 2)
	assert.Equal(t, model.ReasonBelowThreshold, res.Failed[0].Reason)
	assert.Equal(t, "score 39 is below 40", res.Failed[0].Detail)
	assert.Equal(t, model.ReasonMalformed, res.Failed[1].Reason)
}

func draftedLead(id string) *model.Lead {
	l := cleanedLead(id, "acme"+id+".com")
	l.Set(model.FieldScore, "72")
	l.Set(model.FieldPriority, "warm")
	l.Set(model.FieldScoreIssues, "")
	l.Set(model.FieldDraftSubject, "Quick question about Acme Plumbing")
	l.Set(model.FieldDraftOpener, "Took a look at Acme Plumbing's website and had a few thoughts.")
	l.Set(model.FieldDraftBody, "Hi Jane,\n\nTook a look at Acme Plumbing's website and had a few thoughts.\n\nBest,\nSam")
	return l
}

func TestPersonalizeStage_Passthrough(t *testing.T) {
	s := NewPassthroughStage()
	assert.False(t, s.Live())

	res, err := s.Run(context.Background(), []*model.Lead{draftedLead("1")})
	require.NoError(t, err)
	l := res.Succeeded[0]
	assert.Equal(t, l.Get(model.FieldDraftBody), l.Get(model.FieldFinalBody))
	assert.Equal(t, l.Get(model.FieldDraftSubject), l.Get(model.FieldFinalSubject))
	assert.Equal(t, model.PersonalizationSkipped, l.Get(model.FieldPersonalizationStatus))
	assert.Empty(t, res.Degraded)
}

func TestPersonalizeStage_Live(t *testing.T) {
	stub := &personalize.StubClient{Lines: []string{"Your booking page took six seconds to load on my phone."}}
	engine := personalize.NewEngineFromConfig(stub, testConfig())
	s := NewPersonalizeStage(engine, 2, nil)
	assert.True(t, s.Live())

	res, err := s.Run(context.Background(), []*model.Lead{draftedLead("1"), draftedLead("2")})
	require.NoError(t, err)
	require.Len(t, res.Succeeded, 2)
	for _, l := range res.Succeeded {
		assert.Equal(t, model.PersonalizationPersonalized, l.Get(model.FieldPersonalizationStatus))
		assert.Contains(t, l.Get(model.FieldFinalBody), "six seconds")
		assert.NotContains(t, l.Get(model.FieldFinalBody), "had a few thoughts")
	}
	assert.Empty(t, res.Degraded)
	assert.Equal(t, 2, stub.Calls())
}

func TestPersonalizeStage_FallbackKeepsDraft(t *testing.T) {
	stub := &personalize.StubClient{Err: errors.New("model unavailable")}
	engine := personalize.NewEngineFromConfig(stub, testConfig())
	s := NewPersonalizeStage(engine, 2, nil)

	leads := []*model.Lead{draftedLead("1"), draftedLead("2"), draftedLead("3")}
	res, err := s.Run(context.Background(), leads)
	require.NoError(t, err)

	require.Len(t, res.Succeeded, 3)
	assert.Empty(t, res.Failed)
	require.Len(t, res.Degraded, 3)
	for i, l := range res.Succeeded {
		assert.Equal(t, leads[i].ID(), l.ID())
		assert.Equal(t, l.Get(model.FieldDraftBody), l.Get(model.FieldFinalBody))
		assert.Equal(t, model.PersonalizationFallback, l.Get(model.FieldPersonalizationStatus))
		assert.False(t, l.Has(model.FieldPersonalizedLine))
		assert.Equal(t, model.ReasonPersonalizationFallback, res.Degraded[i].Reason)
		assert.NotEmpty(t, res.Degraded[i].Detail)
	}
}

func TestSequenceStage(t *testing.T) {
	b, err := sequence.New(testConfig().Sequence)
	require.NoError(t, err)

	final := draftedLead("1")
	personalize.Passthrough(final)

	res, err := NewSequenceStage(b).Run(context.Background(), []*model.Lead{final, draftedLead("2")})
	require.NoError(t, err)
	require.Len(t, res.Succeeded, 1)
	l := res.Succeeded[0]
	assert.Equal(t, "1", l.Get(model.FieldSequenceStep))
	assert.Equal(t, "0,3,5,7", l.Get(model.FieldSequenceCadence))
	assert.Equal(t, "4", l.Get(model.StepField(2, "day")))

	require.Len(t, res.Failed, 1)
	assert.Equal(t, model.ReasonMalformed, res.Failed[0].Reason)
	assert.Equal(t, "missing final_subject, final_body", res.Failed[0].Detail)
}
