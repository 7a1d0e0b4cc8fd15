package enrich

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/outreach-cli/internal/model"
)

// StubClient returns the same signals for every domain. Categories missing
// from Fixed are reported unavailable. Used for offline runs and tests.
type StubClient struct {
	Fixed map[model.Category]Signals
	// Errors forces Fetch to fail for specific domains.
	Errors map[string]error
}

// Fetch implements Client.
func (s *StubClient) Fetch(ctx context.Context, domain string, categories []model.Category) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, eris.Wrap(err, "enrich: cancelled")
	}
	if err, ok := s.Errors[domain]; ok {
		return nil, err
	}
	if len(categories) == 0 {
		categories = model.AllCategories
	}

	res := newResult()
	res.Source = "stub"
	res.FinalURL = "https://" + domain
	for _, cat := range categories {
		sig, ok := s.Fixed[cat]
		if !ok {
			res.Unavailable[cat] = "not provided by stub"
			continue
		}
		cp := make(Signals, len(sig))
		for k, v := range sig {
			cp[k] = v
		}
		res.Categories[cat] = cp
	}
	return res, nil
}
