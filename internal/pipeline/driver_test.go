package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/outreach-cli/internal/artifact"
	"github.com/sells-group/outreach-cli/internal/model"
	"github.com/sells-group/outreach-cli/internal/personalize"
)

func rawRows() [][]string {
	return [][]string{
		{"name", "website", "email", "phone"},
		{"Acme Plumbing LLC", "acmeplumbing.com", "jane@acmeplumbing.com", "555-0100"},
		{"Broken Co", "broken.com", "not-an-email", ""},
		{"Bright Dental", "https://brightdental.com/", "", "555-0101"},
	}
}

func newTestDriver(t *testing.T, deps Deps) *Driver {
	t.Helper()
	if deps.Enricher == nil {
		deps.Enricher = fastSiteStub()
	}
	stages, err := BuildStages(context.Background(), testConfig(), deps)
	require.NoError(t, err)
	return NewDriver(artifact.NewStore(), stages, deps.Stop)
}

func TestOutputPath(t *testing.T) {
	tests := []struct {
		input string
		stage StageName
		want  string
	}{
		{"data/raw/leads.csv", StageClean, "data/raw/leads_cleaned.csv"},
		{"leads_cleaned.csv", StageScrape, "leads_enriched.csv"},
		{"leads_enriched.csv", StageScore, "leads_scored.csv"},
		{"leads_scored.csv", StageEmails, "leads_emails.csv"},
		{"leads_emails.csv", StagePersonalize, "leads_personalized.csv"},
		{"leads_personalized.csv", StageSequence, "leads_sequenced.csv"},
		{"export.xlsx", StageClean, "export_cleaned.csv"},
		{"leads_scored.csv", StageScore, "leads_scored.csv"},
		{"my_cleaned_list.csv", StageScrape, "my_cleaned_list_enriched.csv"},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, filepath.FromSlash(tt.want), OutputPath(filepath.FromSlash(tt.input), tt.stage))
		})
	}
}

func TestDriver_EndToEnd(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "raw.csv")
	writeCSV(t, input, rawRows())

	d := newTestDriver(t, Deps{SkipAI: true})
	assert.Equal(t, StateIdle, d.State())

	rep, err := d.RunAll(context.Background(), input, "")
	require.NoError(t, err)
	assert.Equal(t, StateCompleted, rep.State)
	assert.Equal(t, StateCompleted, d.State())
	assert.False(t, rep.Halted)
	assert.NotEmpty(t, rep.RunID)
	require.Len(t, rep.Stages, len(Order))

	clean := rep.Stages[0]
	assert.Equal(t, 2, clean.Succeeded)
	assert.Equal(t, 1, clean.Failed)
	assert.Equal(t, 1, clean.Reasons[model.ReasonInvalid])
	assert.Equal(t, filepath.Join(dir, "raw_cleaned_failed.csv"), clean.FailedPath)

	scrape := rep.Stages[1]
	assert.Equal(t, 2, scrape.Degraded)
	assert.Equal(t, 2, scrape.Reasons[model.ReasonEnrichmentPartial])

	last := rep.Last()
	assert.Equal(t, StageSequence, last.Stage)
	assert.Equal(t, filepath.Join(dir, "raw_sequenced.csv"), last.Output)
	assert.Equal(t, 2, last.Succeeded)

	failed := readCSV(t, filepath.Join(dir, "raw_cleaned_failed.csv"))
	require.Len(t, failed, 2)
	assert.Equal(t, []string{"INVALID"}, column(t, failed, model.FieldFailureReason))
	assert.Equal(t, []string{"Broken Co"}, column(t, failed, "name"))
	assert.Equal(t, []string{"clean"}, column(t, failed, model.FieldFailureStage))

	out := readCSV(t, last.Output)
	require.Len(t, out, 3)
	assert.Equal(t, []string{"name", "website", "email", "phone"}, out[0][:4])
	assert.Equal(t, []string{"Acme Plumbing LLC", "Bright Dental"}, column(t, out, "name"))
	assert.Equal(t, []string{"72", "72"}, column(t, out, model.FieldScore))
	assert.Equal(t, []string{"warm", "warm"}, column(t, out, model.FieldPriority))
	assert.Equal(t, column(t, out, model.FieldDraftBody), column(t, out, model.FieldFinalBody))
	assert.Equal(t, []string{"skipped", "skipped"}, column(t, out, model.FieldPersonalizationStatus))
	assert.Equal(t, []string{"1", "1"}, column(t, out, model.FieldSequenceStep))
	assert.Equal(t, []string{"4", "4"}, column(t, out, model.StepField(2, "day")))
	assert.Equal(t, []string{"provided", "guessed"}, column(t, out, model.FieldEmailSource))

	for _, name := range []string{"raw_cleaned.csv", "raw_enriched.csv", "raw_scored.csv", "raw_emails.csv", "raw_personalized.csv"} {
		assert.FileExists(t, filepath.Join(dir, name))
	}
	assert.NoFileExists(t, filepath.Join(dir, "raw_scored_failed.csv"))
}

func TestDriver_AlwaysFailingPersonalizer(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "raw.csv")
	writeCSV(t, input, rawRows())

	stub := &personalize.StubClient{Err: errors.New("quota exceeded")}
	d := newTestDriver(t, Deps{Personalizer: stub})

	final := filepath.Join(dir, "out", "campaign.csv")
	rep, err := d.RunAll(context.Background(), input, final)
	require.NoError(t, err)
	assert.Equal(t, StateCompleted, rep.State)
	assert.Equal(t, final, rep.Last().Output)

	p := rep.Stages[4]
	assert.Equal(t, StagePersonalize, p.Stage)
	assert.Equal(t, 2, p.Succeeded)
	assert.Equal(t, 2, p.Reasons[model.ReasonPersonalizationFallback])

	out := readCSV(t, final)
	assert.Equal(t, column(t, out, model.FieldDraftBody), column(t, out, model.FieldFinalBody))
	assert.Equal(t, []string{"fallback", "fallback"}, column(t, out, model.FieldPersonalizationStatus))
	assert.Equal(t, 2, stub.Calls())
}

func TestDriver_HaltsWhenNothingSurvives(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "raw.csv")
	writeCSV(t, input, [][]string{{"website"}, {"facebook.com/acme"}, {"gmail.com"}})

	rep, err := newTestDriver(t, Deps{SkipAI: true}).RunAll(context.Background(), input, "")
	require.NoError(t, err)
	assert.Equal(t, StateCompleted, rep.State)
	assert.True(t, rep.Halted)
	require.Len(t, rep.Stages, 1)
	assert.Equal(t, 2, rep.Stages[0].Failed)
	assert.NoFileExists(t, filepath.Join(dir, "raw_enriched.csv"))
}

func TestDriver_RunStage(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "raw.csv")
	writeCSV(t, input, rawRows())
	d := newTestDriver(t, Deps{SkipAI: true})

	rep, err := d.RunStage(context.Background(), StageClean, input, "")
	require.NoError(t, err)
	cleaned := rep.Last().Output
	assert.Equal(t, filepath.Join(dir, "raw_cleaned.csv"), cleaned)

	custom := filepath.Join(dir, "enriched-by-hand.csv")
	rep, err = d.RunStage(context.Background(), StageScrape, cleaned, custom)
	require.NoError(t, err)
	assert.Equal(t, custom, rep.Last().Output)
	assert.FileExists(t, custom)
}

func TestDriver_Idempotent(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "raw.csv")
	writeCSV(t, input, rawRows())
	d := newTestDriver(t, Deps{SkipAI: true})

	_, err := d.RunAll(context.Background(), input, "")
	require.NoError(t, err)
	first, err := os.ReadFile(filepath.Join(dir, "raw_sequenced.csv"))
	require.NoError(t, err)
	cleanedFirst, err := os.ReadFile(filepath.Join(dir, "raw_cleaned.csv"))
	require.NoError(t, err)

	_, err = d.RunAll(context.Background(), input, "")
	require.NoError(t, err)
	second, err := os.ReadFile(filepath.Join(dir, "raw_sequenced.csv"))
	require.NoError(t, err)
	cleanedSecond, err := os.ReadFile(filepath.Join(dir, "raw_cleaned.csv"))
	require.NoError(t, err)

	assert.Equal(t, string(cleanedFirst), string(cleanedSecond))
	assert.Equal(t, string(first), string(second))
}

func TestDriver_FatalErrors(t *testing.T) {
	dir := t.TempDir()
	d := newTestDriver(t, Deps{SkipAI: true})

	t.Run("not found", func(t *testing.T) {
		missing := filepath.Join(dir, "missing.csv")
		rep, err := d.RunStage(context.Background(), StageClean, missing, "")
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrArtifactNotFound)
		assert.Equal(t, StateFailed, rep.State)
		assert.Equal(t, StateFailed, d.State())

		var fe *FatalError
		require.ErrorAs(t, err, &fe)
		assert.Equal(t, StageClean, fe.Stage)
		assert.Equal(t, missing, fe.Path)
	})

	t.Run("ragged rows", func(t *testing.T) {
		path := filepath.Join(dir, "ragged.csv")
		require.NoError(t, os.WriteFile(path, []byte("website,name\nacme.com\n"), 0o644))
		_, err := d.RunStage(context.Background(), StageClean, path, "")
		assert.ErrorIs(t, err, ErrArtifactMalformed)
	})

	t.Run("missing upstream columns", func(t *testing.T) {
		path := filepath.Join(dir, "raw-for-score.csv")
		writeCSV(t, path, rawRows())
		_, err := d.RunStage(context.Background(), StageScore, path, "")
		assert.ErrorIs(t, err, ErrArtifactMalformed)
		assert.NoFileExists(t, OutputPath(path, StageScore))
	})

	t.Run("empty input", func(t *testing.T) {
		path := filepath.Join(dir, "empty.csv")
		writeCSV(t, path, [][]string{{"website", "name"}})
		_, err := d.RunStage(context.Background(), StageClean, path, "")
		assert.ErrorIs(t, err, ErrEmptyInput)
	})

	t.Run("stage not configured", func(t *testing.T) {
		only := NewDriver(artifact.NewStore(), []Stage{NewCleanStage()}, nil)
		_, err := only.RunStage(context.Background(), StageScore, filepath.Join(dir, "x.csv"), "")
		assert.Error(t, err)
	})
}

func TestDriver_StopBeforeStage(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "raw.csv")
	writeCSV(t, input, rawRows())

	stop := NewStopSignal()
	d := newTestDriver(t, Deps{SkipAI: true, Stop: stop})
	stop.Stop()

	rep, err := d.RunAll(context.Background(), input, "")
	assert.ErrorIs(t, err, ErrAborted)
	assert.Equal(t, StateFailed, rep.State)
	assert.NoFileExists(t, filepath.Join(dir, "raw_cleaned.csv"))
}

func TestDriver_CancelledDuringEnrich(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "raw.csv")
	writeCSV(t, input, rawRows())
	d := newTestDriver(t, Deps{SkipAI: true})

	_, err := d.RunStage(context.Background(), StageClean, input, "")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	cleaned := filepath.Join(dir, "raw_cleaned.csv")
	_, err = d.RunStage(ctx, StageScrape, cleaned, "")
	require.Error(t, err)
	assert.NoFileExists(t, filepath.Join(dir, "raw_enriched.csv"))
}

func TestBuildStages(t *testing.T) {
	stages, err := BuildStages(context.Background(), testConfig(), Deps{SkipAI: true})
	require.NoError(t, err)
	require.Len(t, stages, len(Order))
	for i, s := range stages {
		assert.Equal(t, Order[i], s.Name())
	}
	p, ok := stages[4].(*PersonalizeStage)
	require.True(t, ok)
	assert.False(t, p.Live())

	cfg := testConfig()
	cfg.Personalize.Provider = "gemini"
	_, err = BuildStages(context.Background(), cfg, Deps{}, StagePersonalize)
	var fe *FatalError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, StagePersonalize, fe.Stage)
	assert.Contains(t, err.Error(), "gemini.key is required")

	// Stages that need no model build without credentials.
	_, err = BuildStages(context.Background(), cfg, Deps{}, StageClean, StageScore)
	assert.NoError(t, err)

	cfg = testConfig()
	cfg.Scrape.Categories = []string{"weather"}
	_, err = BuildStages(context.Background(), cfg, Deps{}, StageScrape)
	assert.Error(t, err)
}
