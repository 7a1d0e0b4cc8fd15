package pipeline

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sells-group/outreach-cli/internal/config"
	"github.com/sells-group/outreach-cli/internal/enrich"
	"github.com/sells-group/outreach-cli/internal/model"
	"github.com/sells-group/outreach-cli/internal/scorer"
)

func testConfig() *config.Config {
	return &config.Config{
		Scrape: config.ScrapeConfig{Concurrency: 2, TimeoutSecs: 5},
		Retry:  config.RetryConfig{MaxAttempts: 2, InitialBackoffMs: 1, MaxBackoffMs: 2},
		Score:  scorer.DefaultConfig(),
		Emails: config.EmailsConfig{Threshold: 40, MaxGuesses: 3, SenderName: "Sam"},
		Personalize: config.PersonalizeConfig{
			Provider:    "stub",
			Concurrency: 2,
			TimeoutSecs: 5,
			MaxTokens:   100,
			Temperature: 0.7,
		},
		Sequence: config.SequenceConfig{SenderName: "Sam"},
	}
}

// fastSiteStub reports an HTTPS site that loads in 800ms and nothing else.
func fastSiteStub() *enrich.StubClient {
	return &enrich.StubClient{Fixed: map[model.Category]enrich.Signals{
		model.CategorySecurity:    {model.FieldHasSSL: "true"},
		model.CategoryPerformance: {model.FieldLoadTimeMs: "800"},
	}}
}

func newLead(kv ...string) *model.Lead {
	l := model.NewLead()
	for i := 0; i+1 < len(kv); i += 2 {
		l.Set(kv[i], kv[i+1])
	}
	return l
}

func writeCSV(t *testing.T, path string, rows [][]string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	f, err := os.Create(path)
	require.NoError(t, err)
	w := csv.NewWriter(f)
	require.NoError(t, w.WriteAll(rows))
	require.NoError(t, f.Close())
}

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	return rows
}

// column returns the values of col in rows, skipping the header.
func column(t *testing.T, rows [][]string, col string) []string {
	t.Helper()
	require.NotEmpty(t, rows)
	idx := -1
	for i, h := range rows[0] {
		if h == col {
			idx = i
		}
	}
	require.GreaterOrEqual(t, idx, 0, "column %s not in header", col)
	out := make([]string, 0, len(rows)-1)
	for _, r := range rows[1:] {
		out = append(out, r[idx])
	}
	return out
}
