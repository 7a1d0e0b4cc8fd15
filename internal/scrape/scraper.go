// Package scrape fetches raw website responses for enrichment. A Chain
// tries a direct HTTP fetch first and falls back to a remote reader when
// the site blocks automated clients.
package scrape

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Page is one fetched URL.
type Page struct {
	URL        string
	FinalURL   string
	StatusCode int
	Header     http.Header
	Body       []byte
	Elapsed    time.Duration
	Source     string
}

// HTTPS reports whether the final URL after redirects uses TLS.
func (p *Page) HTTPS() bool {
	u := p.FinalURL
	if u == "" {
		u = p.URL
	}
	return strings.HasPrefix(strings.ToLower(u), "https://")
}

// Direct reports whether the page came from a direct request, so timing
// and response headers describe the site itself.
func (p *Page) Direct() bool {
	return p.Source == SourceLocal
}

// Fetcher retrieves a single URL.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (*Page, error)
	Name() string
}

// Source names recorded on fetched pages.
const (
	SourceLocal = "local_http"
	SourceJina  = "jina"
)

// BlockedError reports that a site served an anti-bot response.
type BlockedError struct {
	URL  string
	Type BlockType
}

func (e *BlockedError) Error() string {
	return fmt.Sprintf("scrape: %s blocked (%s)", e.URL, e.Type)
}
