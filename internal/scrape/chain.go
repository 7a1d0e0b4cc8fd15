package scrape

import (
	"context"
	"errors"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// Chain tries fetchers in priority order. It moves on to the next fetcher
// only when the current one was blocked; any other error is returned as is
// because a different fetcher would not fix a dead or erroring site.
type Chain struct {
	fetchers []Fetcher
}

// NewChain creates a Chain. Nil fetchers are skipped.
func NewChain(fetchers ...Fetcher) *Chain {
	c := &Chain{}
	for _, f := range fetchers {
		if f != nil {
			c.fetchers = append(c.fetchers, f)
		}
	}
	return c
}

func (c *Chain) Name() string { return "chain" }

// Fetch returns the first unblocked page.
func (c *Chain) Fetch(ctx context.Context, url string) (*Page, error) {
	if len(c.fetchers) == 0 {
		return nil, eris.New("scrape: no fetchers configured")
	}

	var lastErr error
	for _, f := range c.fetchers {
		page, err := f.Fetch(ctx, url)
		if err == nil {
			return page, nil
		}
		lastErr = err

		var blocked *BlockedError
		if !errors.As(err, &blocked) {
			return nil, err
		}
		zap.L().Debug("scrape: fetcher blocked, trying next",
			zap.String("fetcher", f.Name()),
			zap.String("url", url),
			zap.String("block", string(blocked.Type)),
		)
	}
	return nil, lastErr
}
