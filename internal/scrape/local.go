package scrape

import (
	"context"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/outreach-cli/internal/resilience"
)

// LocalFetcher requests pages directly over net/http and measures the time
// to the full body.
type LocalFetcher struct {
	client    *http.Client
	userAgent string
	maxBody   int64
}

// LocalOption configures a LocalFetcher.
type LocalOption func(*LocalFetcher)

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) LocalOption {
	return func(l *LocalFetcher) {
		if ua != "" {
			l.userAgent = ua
		}
	}
}

// WithMaxBody caps how many body bytes are read.
func WithMaxBody(n int64) LocalOption {
	return func(l *LocalFetcher) {
		if n > 0 {
			l.maxBody = n
		}
	}
}

// WithHTTPClient replaces the HTTP client (for tests).
func WithHTTPClient(hc *http.Client) LocalOption {
	return func(l *LocalFetcher) { l.client = hc }
}

// NewLocalFetcher creates a LocalFetcher whose requests time out after
// timeout.
func NewLocalFetcher(timeout time.Duration, opts ...LocalOption) *LocalFetcher {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	l := &LocalFetcher{
		client: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				DialContext: (&net.Dialer{
					Timeout: timeout,
				}).DialContext,
				TLSHandshakeTimeout: timeout,
				MaxIdleConnsPerHost: 4,
				IdleConnTimeout:     30 * time.Second,
			},
		},
		userAgent: "Mozilla/5.0 (compatible; outreach-cli/1.0)",
		maxBody:   1 << 20,
	}
	for _, o := range opts {
		o(l)
	}
	return l
}

func (l *LocalFetcher) Name() string { return SourceLocal }

// Fetch requests url. Non-2xx responses are returned as errors (transient
// for 408/429/5xx) except 404, which yields the page so callers can test
// for optional paths.
func (l *LocalFetcher) Fetch(ctx context.Context, url string) (*Page, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, eris.Wrap(err, "local_http: create request")
	}
	req.Header.Set("User-Agent", l.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,*/*;q=0.8")

	start := time.Now()
	resp, err := l.client.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "local_http: fetch")
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, l.maxBody))
	elapsed := time.Since(start)
	if err != nil {
		return nil, eris.Wrap(err, "local_http: read body")
	}

	if bt := DetectBlock(resp.StatusCode, resp.Header, body); bt != BlockNone {
		return nil, &BlockedError{URL: url, Type: bt}
	}

	page := &Page{
		URL:        url,
		FinalURL:   resp.Request.URL.String(),
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       body,
		Elapsed:    elapsed,
		Source:     SourceLocal,
	}

	if resp.StatusCode == http.StatusNotFound || resp.StatusCode < 400 {
		return page, nil
	}
	return nil, resilience.StatusError("local_http", resp.StatusCode, string(body))
}
