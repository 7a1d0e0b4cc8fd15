package scrape

import (
	"context"
	"errors"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/outreach-cli/internal/resilience"
	"github.com/sells-group/outreach-cli/pkg/jina"
)

// JinaFetcher retrieves rendered HTML through the Jina reader. Timing and
// response headers are the reader's, not the site's, so pages from this
// fetcher report Direct() == false.
type JinaFetcher struct {
	client  jina.Client
	timeout time.Duration
}

// NewJinaFetcher wraps a Jina client.
func NewJinaFetcher(client jina.Client, timeout time.Duration) *JinaFetcher {
	return &JinaFetcher{client: client, timeout: timeout}
}

func (j *JinaFetcher) Name() string { return SourceJina }

// Fetch reads url as HTML.
func (j *JinaFetcher) Fetch(ctx context.Context, url string) (*Page, error) {
	start := time.Now()
	resp, err := j.client.Read(ctx, url, jina.WithFormat("html"), jina.WithTimeout(j.timeout))
	if err != nil {
		var apiErr *jina.APIError
		if errors.As(err, &apiErr) {
			return nil, resilience.StatusError("jina", apiErr.StatusCode, apiErr.Body)
		}
		return nil, eris.Wrap(err, "jina: fetch")
	}

	body := resp.Data.Body()
	if body == "" {
		return nil, eris.Errorf("jina: empty content for %s", url)
	}

	final := resp.Data.URL
	if final == "" {
		final = url
	}
	return &Page{
		URL:        url,
		FinalURL:   final,
		StatusCode: 200,
		Body:       []byte(body),
		Elapsed:    time.Since(start),
		Source:     SourceJina,
	}, nil
}
