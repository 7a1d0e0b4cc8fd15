package scrape

import (
	"bytes"
	"net/http"
)

// BlockType describes the kind of block detected.
type BlockType string

const (
	BlockNone       BlockType = ""
	BlockCloudflare BlockType = "cloudflare"
	BlockCaptcha    BlockType = "captcha"
	BlockJSShell    BlockType = "js_shell"
	BlockRateLimit  BlockType = "rate_limit"
	BlockWAF        BlockType = "waf"
)

// challengeMaxBytes bounds the size of pages inspected for challenge
// markers. Real sites often embed a reCAPTCHA widget on a contact form, so
// markers only count on small interstitial pages.
const challengeMaxBytes = 8 * 1024

// DetectBlock inspects a response for signs of anti-bot protection.
func DetectBlock(status int, header http.Header, body []byte) BlockType {
	if status == http.StatusForbidden || status == http.StatusServiceUnavailable {
		if header.Get("Cf-Ray") != "" || header.Get("Cf-Cache-Status") != "" ||
			header.Get("Server") == "cloudflare" {
			return BlockCloudflare
		}
		if header.Get("X-Sucuri-Id") != "" || header.Get("X-Akamai-Transformed") != "" {
			return BlockWAF
		}
	}
	if status == http.StatusTooManyRequests {
		return BlockRateLimit
	}

	lower := bytes.ToLower(body)

	if bytes.Contains(lower, []byte("checking your browser")) ||
		bytes.Contains(lower, []byte("cf-browser-verification")) ||
		bytes.Contains(lower, []byte("cf-challenge")) {
		return BlockCloudflare
	}

	if len(body) >= challengeMaxBytes {
		return BlockNone
	}

	if bytes.Contains(lower, []byte("captcha")) &&
		(status >= 400 || bytes.Contains(lower, []byte("verify you are human"))) {
		return BlockCaptcha
	}

	if bytes.Contains(lower, []byte("<noscript")) && bytes.Contains(lower, []byte("enable javascript")) {
		return BlockJSShell
	}

	return BlockNone
}
