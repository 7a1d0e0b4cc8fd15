package audit

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/outreach-cli/internal/model"
)

func enrichedLead(kv ...string) *model.Lead {
	l := model.NewLead()
	l.Set(model.FieldDomain, "acme.com")
	l.Set(model.FieldEnrichStatus, model.EnrichComplete)
	for i := 0; i+1 < len(kv); i += 2 {
		l.Set(kv[i], kv[i+1])
	}
	return l
}

func TestSummarize(t *testing.T) {
	leads := []*model.Lead{
		enrichedLead(model.FieldHasSSL, "true", model.FieldLoadTimeMs, "800", model.FieldSecurityScore, "60"),
		enrichedLead(model.FieldHasSSL, "false", model.FieldLoadTimeMs, "6000", model.FieldIsOutdatedCMS, "true",
			model.FieldSecurityScore, "20"),
		enrichedLead(model.FieldHasSSL, "true", model.FieldLoadTimeMs, "1500", model.FieldIsMobileFriendly, "true"),
		enrichedLead(model.FieldEnrichStatus, model.EnrichUnavailable),
	}

	s := Summarize(leads, newScorer(t))

	assert.Equal(t, 4, s.Total)
	assert.Equal(t, 3, s.Enriched)
	assert.Equal(t, 1, s.Unavailable)
	assert.Equal(t, 2, s.WithSSL)
	assert.Equal(t, 1, s.MobileFriendly)
	assert.Equal(t, 1, s.OutdatedCMS)
	assert.Equal(t, 2767, s.MeanLoadMs)
	assert.Equal(t, 1500, s.MedianLoadMs)
	assert.Equal(t, 40.0, s.AvgSecurity)
	// 72, 10, 40+24+5=69, 0
	assert.Equal(t, 37.8, s.AvgScore)
	assert.Equal(t, map[string]int{"warm": 2, "cold": 2}, s.ByPriority)

	require.NotEmpty(t, s.TopIssues)
	assert.Contains(t, s.TopIssues, IssueCount{Issue: "very_slow", Count: 1})
	assert.Contains(t, s.TopIssues, IssueCount{Issue: "old_cms", Count: 1})

	assert.False(t, leads[0].HasColumn(model.FieldScore), "input leads are not modified")
}

func TestSummarize_UsesExistingScores(t *testing.T) {
	l := enrichedLead(model.FieldHasSSL, "true", model.FieldScore, "91", model.FieldPriority, "hot",
		model.FieldScoreIssues, "no_meta")
	s := Summarize([]*model.Lead{l}, newScorer(t))
	assert.Equal(t, 91.0, s.AvgScore)
	assert.Equal(t, map[string]int{"hot": 1}, s.ByPriority)
	assert.Equal(t, []IssueCount{{Issue: "no_meta", Count: 1}}, s.TopIssues)
}

func TestSummarize_Empty(t *testing.T) {
	s := Summarize(nil, newScorer(t))
	assert.Equal(t, 0, s.Total)
	assert.Zero(t, s.AvgScore)
	assert.Zero(t, s.MedianLoadMs)
}

func TestFilterByScore(t *testing.T) {
	leads := []*model.Lead{
		enrichedLead(model.FieldLeadID, "a", model.FieldHasSSL, "true", model.FieldLoadTimeMs, "800"),
		enrichedLead(model.FieldLeadID, "b", model.FieldHasSSL, "false"),
		enrichedLead(model.FieldLeadID, "c", model.FieldScore, "65", model.FieldPriority, "warm"),
	}

	got := FilterByScore(leads, newScorer(t), 60, 100)
	require.Len(t, got, 2)
	assert.Equal(t, "a", got[0].ID())
	assert.Equal(t, "72", got[0].Get(model.FieldScore))
	assert.Equal(t, "c", got[1].ID())

	assert.Empty(t, FilterByScore(leads, newScorer(t), 95, 100))
}
