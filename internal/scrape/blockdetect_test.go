package scrape

import (
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDetectBlock(t *testing.T) {
	bigPage := "<html><body>" + strings.Repeat("<p>content</p>", 1000) +
		`<script src="https://www.google.com/recaptcha/api.js"></script></body></html>`

	tests := []struct {
		name   string
		status int
		header http.Header
		body   string
		want   BlockType
	}{
		{"cloudflare 403 ray", 403, http.Header{"Cf-Ray": {"abc123"}}, "", BlockCloudflare},
		{"cloudflare 503 server", 503, http.Header{"Server": {"cloudflare"}}, "", BlockCloudflare},
		{"sucuri", 403, http.Header{"X-Sucuri-Id": {"1"}}, "", BlockWAF},
		{"rate limited", 429, http.Header{}, "", BlockRateLimit},
		{"challenge page", 200, http.Header{}, "<html>Checking your browser before accessing</html>", BlockCloudflare},
		{"captcha interstitial", 200, http.Header{}, "<html>Please verify you are human. captcha</html>", BlockCaptcha},
		{"captcha on error", 403, http.Header{}, "<html>hcaptcha</html>", BlockCaptcha},
		{"js shell", 200, http.Header{}, "<html><noscript>Please enable JavaScript</noscript></html>", BlockJSShell},
		{"recaptcha widget on real page", 200, http.Header{}, bigPage, BlockNone},
		{"normal page", 200, http.Header{}, "<html><title>Acme</title></html>", BlockNone},
		{"plain 404", 404, http.Header{}, "not found", BlockNone},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DetectBlock(tt.status, tt.header, []byte(tt.body)))
		})
	}
}
