package enrich

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/outreach-cli/internal/model"
	"github.com/sells-group/outreach-cli/internal/resilience"
	"github.com/sells-group/outreach-cli/internal/scrape"
	"github.com/sells-group/outreach-cli/pkg/jina"
)

const homepage = `<html lang="en"><head>
<title>Acme Plumbing</title>
<meta name="description" content="Plumbers">
<meta name="viewport" content="width=device-width">
<meta name="generator" content="WordPress 5.9">
<meta property="og:title" content="Acme">
<script src="https://code.jquery.com/jquery.min.js"></script>
</head><body><main>
<h1>Acme</h1>
<a href="/contact">Contact us</a>
<a href="https://www.facebook.com/acme">fb</a>
<p>Call (555) 555-0100</p>
<img src="x.png">
</main><footer>© 2018 Acme</footer></body></html>`

func fastRetry() resilience.RetryConfig {
	return resilience.RetryConfig{MaxAttempts: 2, InitialBackoff: time.Millisecond, MaxBackoff: 2 * time.Millisecond}
}

func newSite(t *testing.T, sitemapStatus int) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Strict-Transport-Security", "max-age=31536000")
		_, _ = w.Write([]byte(homepage))
	})
	mux.HandleFunc("/sitemap.xml", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(sitemapStatus)
	})
	srv := httptest.NewTLSServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func clientFor(srv *httptest.Server, extra ...scrape.Fetcher) *HTTPClient {
	local := scrape.NewLocalFetcher(2*time.Second, scrape.WithHTTPClient(srv.Client()))
	fetchers := append([]scrape.Fetcher{local}, extra...)
	return NewHTTPClient(Options{
		Fetcher: scrape.NewChain(fetchers...),
		Direct:  local,
		Retry:   fastRetry(),
		Rounds:  3,
		Timeout: 2 * time.Second,
	})
}

func hostOf(srv *httptest.Server) string {
	return strings.TrimPrefix(srv.URL, "https://")
}

func TestHTTPClient_AllCategories(t *testing.T) {
	srv := newSite(t, http.StatusOK)
	res, err := clientFor(srv).Fetch(context.Background(), hostOf(srv), nil)
	require.NoError(t, err)

	assert.Empty(t, res.Unavailable)
	assert.Equal(t, scrape.SourceLocal, res.Source)

	perf := res.Categories[model.CategoryPerformance]
	assert.Equal(t, "3", perf[model.FieldLoadTimeSamples])
	assert.NotEmpty(t, perf[model.FieldLoadTimeMs])
	assert.Equal(t, "A", perf[model.FieldPerformanceGrade])

	sec := res.Categories[model.CategorySecurity]
	assert.Equal(t, "true", sec[model.FieldHasSSL])
	assert.Equal(t, "true", sec[model.FieldHasHSTS])
	assert.Equal(t, "false", sec[model.FieldHasCSP])
	assert.Equal(t, "60", sec[model.FieldSecurityScore])

	seo := res.Categories[model.CategorySEO]
	assert.Equal(t, "Acme Plumbing", seo[model.FieldTitle])
	assert.Equal(t, "true", seo[model.FieldHasSitemap])
	assert.Equal(t, "false", seo[model.FieldHasRobotsTxt])
	// title 15 + meta 20 + og 15 + h1 15 + sitemap 10
	assert.Equal(t, "75", seo[model.FieldSEOScore])

	cms := res.Categories[model.CategoryCMS]
	assert.Equal(t, "wordpress", cms[model.FieldCMSDetected])
	assert.Equal(t, "5.9", cms[model.FieldCMSVersion])
	assert.Equal(t, "true", cms[model.FieldIsOutdatedCMS])
	assert.Equal(t, "jquery", cms[model.FieldTechnologies])

	assert.Equal(t, "true", res.Categories[model.CategoryMobile][model.FieldIsMobileFriendly])

	biz := res.Categories[model.CategoryBusiness]
	assert.Equal(t, "true", biz[model.FieldHasContactPage])
	assert.Equal(t, "true", biz[model.FieldHasPhoneNumber])
	assert.Equal(t, "facebook", biz[model.FieldSocialPlatforms])
	assert.Equal(t, "2018", biz[model.FieldCopyrightYear])

	acc := res.Categories[model.CategoryAccessibility]
	assert.Equal(t, "true", acc[model.FieldHasLangAttribute])
	assert.Equal(t, "1", acc[model.FieldImagesMissingAlt])
	assert.Equal(t, "60", acc[model.FieldAccessibilityScore])
}

func TestHTTPClient_CategoryFailureIsIsolated(t *testing.T) {
	srv := newSite(t, http.StatusInternalServerError)
	res, err := clientFor(srv).Fetch(context.Background(), hostOf(srv),
		[]model.Category{model.CategorySEO, model.CategorySecurity, model.CategoryMobile})
	require.NoError(t, err)

	assert.False(t, res.Available(model.CategorySEO))
	assert.Contains(t, res.Unavailable[model.CategorySEO], "sitemap")
	assert.True(t, res.Available(model.CategorySecurity))
	assert.True(t, res.Available(model.CategoryMobile))
	assert.Len(t, res.Categories, 2)
}

func TestHTTPClient_UnreachableDomain(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	host := strings.TrimPrefix(srv.URL, "http://")
	srv.Close()

	c := NewHTTPClient(Options{
		Fetcher: scrape.NewLocalFetcher(time.Second),
		Retry:   fastRetry(),
		Timeout: time.Second,
	})
	res, err := c.Fetch(context.Background(), host, []model.Category{model.CategorySEO, model.CategoryCMS})
	require.NoError(t, err)
	assert.Empty(t, res.Categories)
	assert.Len(t, res.Unavailable, 2)
}

func TestHTTPClient_HTTPFallback(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(homepage))
	}))
	defer srv.Close()

	c := NewHTTPClient(Options{
		Fetcher: scrape.NewLocalFetcher(time.Second),
		Retry:   fastRetry(),
		Rounds:  1,
	})
	res, err := c.Fetch(context.Background(), strings.TrimPrefix(srv.URL, "http://"), []model.Category{model.CategorySecurity})
	require.NoError(t, err)
	assert.Equal(t, "false", res.Categories[model.CategorySecurity][model.FieldHasSSL])
	assert.Equal(t, "0", res.Categories[model.CategorySecurity][model.FieldSecurityScore])
}

func TestHTTPClient_BlockedFallsBackToReader(t *testing.T) {
	site := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cf-Ray", "1")
		w.WriteHeader(http.StatusForbidden)
	}))
	defer site.Close()

	reader := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(jina.ReadResponse{Code: 200, Data: jina.ReadData{URL: "https://acme.com/", HTML: homepage}})
	}))
	defer reader.Close()

	jf := scrape.NewJinaFetcher(jina.NewClient("", jina.WithBaseURL(reader.URL)), time.Second)
	res, err := clientFor(site, jf).Fetch(context.Background(), hostOf(site), nil)
	require.NoError(t, err)

	assert.Equal(t, scrape.SourceJina, res.Source)
	assert.False(t, res.Available(model.CategoryPerformance))
	assert.False(t, res.Available(model.CategorySecurity))
	assert.True(t, res.Available(model.CategorySEO))
	assert.Equal(t, "false", res.Categories[model.CategorySEO][model.FieldHasSitemap])
	assert.True(t, res.Available(model.CategoryBusiness))
}

func TestHTTPClient_CancelledContext(t *testing.T) {
	srv := newSite(t, http.StatusOK)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := clientFor(srv).Fetch(ctx, hostOf(srv), nil)
	assert.Error(t, err)
}

func TestHTTPClient_CancelDuringChecks(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(homepage))
	})
	mux.HandleFunc("/sitemap.xml", func(w http.ResponseWriter, r *http.Request) {
		cancel()
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	})
	srv := httptest.NewTLSServer(mux)
	defer srv.Close()

	res, err := clientFor(srv).Fetch(ctx, hostOf(srv), []model.Category{model.CategorySEO, model.CategoryCMS})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, res)
}

func TestStubClient(t *testing.T) {
	stub := &StubClient{Fixed: map[model.Category]Signals{
		model.CategorySecurity: {model.FieldHasSSL: "true"},
	}}
	res, err := stub.Fetch(context.Background(), "acme.com", []model.Category{model.CategorySecurity, model.CategorySEO})
	require.NoError(t, err)
	assert.Equal(t, "true", res.Categories[model.CategorySecurity][model.FieldHasSSL])
	assert.Contains(t, res.Unavailable, model.CategorySEO)

	// Returned signals are copies.
	res.Categories[model.CategorySecurity][model.FieldHasSSL] = "false"
	assert.Equal(t, "true", stub.Fixed[model.CategorySecurity][model.FieldHasSSL])
}
