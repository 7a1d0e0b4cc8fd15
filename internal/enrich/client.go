// Package enrich gathers website signals for a lead's domain. Signals are
// grouped into categories that succeed or fail independently: a failed
// check marks its category unavailable without affecting the others.
package enrich

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/outreach-cli/internal/model"
	"github.com/sells-group/outreach-cli/internal/resilience"
	"github.com/sells-group/outreach-cli/internal/scrape"
)

// Signals holds the column values produced by one category.
type Signals map[string]string

// Result is the outcome of enriching one domain.
type Result struct {
	// Categories holds every category that produced signals.
	Categories map[model.Category]Signals
	// Unavailable maps each missing category to the reason it is missing.
	Unavailable map[model.Category]string
	Source      string
	FinalURL    string
}

// Available reports whether c produced signals.
func (r *Result) Available(c model.Category) bool {
	_, ok := r.Categories[c]
	return ok
}

func newResult() *Result {
	return &Result{
		Categories:  make(map[model.Category]Signals),
		Unavailable: make(map[model.Category]string),
	}
}

// Client fetches website signals for a domain.
type Client interface {
	// Fetch enriches domain for the requested categories. A category absent
	// from Result.Categories is unavailable. The error is non-nil only when
	// ctx is done; site failures are reported per category.
	Fetch(ctx context.Context, domain string, categories []model.Category) (*Result, error)
}

// HTTPClient enriches domains by fetching them over HTTP.
type HTTPClient struct {
	fetcher scrape.Fetcher
	direct  scrape.Fetcher
	gate    *resilience.Gate
	retry   resilience.RetryConfig
	rounds  int
	timeout time.Duration
}

// Options configures an HTTPClient.
type Options struct {
	// Fetcher retrieves the homepage; usually a scrape.Chain with a
	// fallback reader.
	Fetcher scrape.Fetcher
	// Direct is used for timing rounds and path checks, which only make
	// sense against the site itself. Defaults to Fetcher.
	Direct scrape.Fetcher
	Gate   *resilience.Gate
	Retry  resilience.RetryConfig
	// Rounds is the number of load-time samples. Default: 3.
	Rounds int
	// Timeout bounds each individual request. Default: 10s.
	Timeout time.Duration
}

// NewHTTPClient creates an HTTPClient.
func NewHTTPClient(opts Options) *HTTPClient {
	c := &HTTPClient{
		fetcher: opts.Fetcher,
		direct:  opts.Direct,
		gate:    opts.Gate,
		retry:   opts.Retry,
		rounds:  opts.Rounds,
		timeout: opts.Timeout,
	}
	if c.direct == nil {
		c.direct = c.fetcher
	}
	if c.gate == nil {
		c.gate = resilience.NewGate(0, 0, 0)
	}
	if c.rounds <= 0 {
		c.rounds = 3
	}
	if c.timeout <= 0 {
		c.timeout = 10 * time.Second
	}
	return c
}

// Fetch implements Client.
func (c *HTTPClient) Fetch(ctx context.Context, domain string, categories []model.Category) (*Result, error) {
	res := newResult()
	if len(categories) == 0 {
		categories = model.AllCategories
	}

	page, err := c.homepage(ctx, domain)
	if err != nil {
		if ctx.Err() != nil {
			return nil, eris.Wrap(ctx.Err(), "enrich: cancelled")
		}
		reason := summarize(err)
		for _, cat := range categories {
			res.Unavailable[cat] = reason
		}
		zap.L().Debug("enrich: homepage unavailable", zap.String("domain", domain), zap.Error(err))
		return res, nil
	}
	res.Source = page.Source
	res.FinalURL = page.FinalURL

	doc, err := scrape.ParseHTML(page.Body)
	if err != nil {
		for _, cat := range categories {
			res.Unavailable[cat] = summarize(err)
		}
		return res, nil
	}

	// A failed check only marks its category unavailable. Only
	// cancellation is returned to the group, which stops the sibling checks.
	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	for _, cat := range categories {
		g.Go(func() error {
			sig, err := c.category(gctx, cat, page, doc)
			if err != nil && ctx.Err() != nil {
				return ctx.Err()
			}
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				res.Unavailable[cat] = summarize(err)
				return nil
			}
			res.Categories[cat] = sig
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, eris.Wrap(err, "enrich: cancelled")
	}
	return res, nil
}

func (c *HTTPClient) category(ctx context.Context, cat model.Category, page *scrape.Page, doc *scrape.Document) (Signals, error) {
	switch cat {
	case model.CategoryPerformance:
		return c.performance(ctx, page)
	case model.CategorySecurity:
		return security(page)
	case model.CategorySEO:
		return c.seo(ctx, page, doc)
	case model.CategoryCMS:
		return cms(doc), nil
	case model.CategoryMobile:
		return mobile(doc), nil
	case model.CategoryBusiness:
		return c.business(ctx, page, doc)
	case model.CategoryAccessibility:
		return accessibility(doc), nil
	default:
		return nil, eris.Errorf("enrich: unknown category %q", cat)
	}
}

// homepage tries https before http, as many small-business sites still
// serve plain http only.
func (c *HTTPClient) homepage(ctx context.Context, domain string) (*scrape.Page, error) {
	var lastErr error
	for _, scheme := range []string{"https", "http"} {
		page, err := c.get(ctx, c.fetcher, fmt.Sprintf("%s://%s", scheme, domain), domain)
		if err == nil {
			if page.StatusCode >= 400 {
				lastErr = eris.Errorf("enrich: homepage status %d", page.StatusCode)
				continue
			}
			return page, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			break
		}
	}
	return nil, lastErr
}

// get performs one gated, retried, timeout-bounded request.
func (c *HTTPClient) get(ctx context.Context, f scrape.Fetcher, url, domain string) (*scrape.Page, error) {
	cfg := c.retry
	cfg.OnRetry = resilience.LogRetries(f.Name(), domain)
	return resilience.DoVal(ctx, cfg, func(ctx context.Context) (*scrape.Page, error) {
		return resilience.Call(ctx, c.gate, func(ctx context.Context) (*scrape.Page, error) {
			reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
			defer cancel()
			return f.Fetch(reqCtx, url)
		})
	})
}

// pathExists reports whether path exists on the site. A 404 (or any 4xx) is a
// definite "no"; request errors leave the answer unknown.
func (c *HTTPClient) pathExists(ctx context.Context, page *scrape.Page, path string) (bool, error) {
	base := strings.TrimSuffix(siteRoot(page), "/")
	p, err := c.get(ctx, c.direct, base+path, base)
	if err != nil {
		return false, err
	}
	return p.StatusCode < 400, nil
}

func summarize(err error) string {
	msg := err.Error()
	if i := strings.IndexByte(msg, '\n'); i >= 0 {
		msg = msg[:i]
	}
	if len(msg) > 160 {
		msg = msg[:160]
	}
	return msg
}
