package enrich

import (
	"time"

	"github.com/sells-group/outreach-cli/internal/config"
	"github.com/sells-group/outreach-cli/internal/model"
	"github.com/sells-group/outreach-cli/internal/resilience"
	"github.com/sells-group/outreach-cli/internal/scrape"
	"github.com/sells-group/outreach-cli/pkg/jina"
)

// NewClientFromConfig builds the HTTP enrichment client described by cfg.
// The Jina reader is added as a fallback only when jina.key is set.
func NewClientFromConfig(cfg *config.Config) *HTTPClient {
	s := cfg.Scrape
	timeout := time.Duration(s.TimeoutSecs) * time.Second

	local := scrape.NewLocalFetcher(timeout,
		scrape.WithUserAgent(s.UserAgent),
		scrape.WithMaxBody(int64(s.MaxBodyKB)*1024),
	)

	var reader scrape.Fetcher
	if cfg.Jina.Key != "" {
		var opts []jina.Option
		if cfg.Jina.BaseURL != "" {
			opts = append(opts, jina.WithBaseURL(cfg.Jina.BaseURL))
		}
		reader = scrape.NewJinaFetcher(jina.NewClient(cfg.Jina.Key, opts...), timeout)
	}

	return NewHTTPClient(Options{
		Fetcher: scrape.NewChain(local, reader),
		Direct:  local,
		Gate:    resilience.NewGate(s.RatePerSec, s.Burst, s.Concurrency),
		Retry:   resilience.NewRetryConfig(cfg.Retry.MaxAttempts, cfg.Retry.InitialBackoffMs, cfg.Retry.MaxBackoffMs),
		Rounds:  s.MeasurementRounds,
		Timeout: timeout,
	})
}

// CategoriesFromConfig returns the categories named in scrape.categories.
func CategoriesFromConfig(cfg *config.Config) ([]model.Category, error) {
	return model.ParseCategories(cfg.Scrape.Categories)
}
