package enrich

import (
	"context"
	"net/url"
	"regexp"
	"slices"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/outreach-cli/internal/model"
	"github.com/sells-group/outreach-cli/internal/scrape"
)

// performance samples the homepage load time. The first sample is the
// homepage fetch itself; further rounds re-request the final URL.
func (c *HTTPClient) performance(ctx context.Context, page *scrape.Page) (Signals, error) {
	if !page.Direct() {
		return nil, eris.New("enrich: load time unknown for pages fetched via " + page.Source)
	}

	samples := []time.Duration{page.Elapsed}
	for i := 1; i < c.rounds; i++ {
		p, err := c.get(ctx, c.direct, page.FinalURL, page.FinalURL)
		if err != nil {
			if ctx.Err() != nil {
				return nil, err
			}
			// A failed extra round lowers confidence instead of
			// discarding the measurements already taken.
			continue
		}
		samples = append(samples, p.Elapsed)
	}

	st := summarizeSamples(samples)
	return Signals{
		model.FieldLoadTimeMs:         strconv.Itoa(st.MedianMs),
		model.FieldLoadTimeSamples:    strconv.Itoa(st.Count),
		model.FieldLoadTimeP90Ms:      strconv.Itoa(st.P90Ms),
		model.FieldLoadTimeConfidence: st.Confidence(c.rounds),
		model.FieldHTMLSizeBytes:      strconv.Itoa(len(page.Body)),
		model.FieldPerformanceGrade:   grade(st.MedianMs),
	}, nil
}

func grade(ms int) string {
	switch {
	case ms < 1000:
		return "A"
	case ms < 2000:
		return "B"
	case ms < 3000:
		return "C"
	case ms < 5000:
		return "D"
	default:
		return "F"
	}
}

func security(page *scrape.Page) (Signals, error) {
	if !page.Direct() {
		return nil, eris.New("enrich: response headers unknown for pages fetched via " + page.Source)
	}
	ssl := page.HTTPS()
	hsts := page.Header.Get("Strict-Transport-Security") != ""
	csp := page.Header.Get("Content-Security-Policy") != ""
	xfo := page.Header.Get("X-Frame-Options") != ""

	score := 0
	for _, p := range []struct {
		ok  bool
		pts int
	}{{ssl, 40}, {hsts, 20}, {csp, 20}, {xfo, 20}} {
		if p.ok {
			score += p.pts
		}
	}

	return Signals{
		model.FieldHasSSL:           strconv.FormatBool(ssl),
		model.FieldHasHSTS:          strconv.FormatBool(hsts),
		model.FieldHasCSP:           strconv.FormatBool(csp),
		model.FieldHasXFrameOptions: strconv.FormatBool(xfo),
		model.FieldSecurityScore:    strconv.Itoa(score),
	}, nil
}

func (c *HTTPClient) seo(ctx context.Context, page *scrape.Page, doc *scrape.Document) (Signals, error) {
	sitemap, robots := false, false
	if page.Direct() {
		var err error
		if sitemap, err = c.pathExists(ctx, page, "/sitemap.xml"); err != nil {
			return nil, eris.Wrap(err, "enrich: check sitemap")
		}
		if robots, err = c.pathExists(ctx, page, "/robots.txt"); err != nil {
			return nil, eris.Wrap(err, "enrich: check robots.txt")
		}
	}

	score := 0
	add := func(ok bool, pts int) {
		if ok {
			score += pts
		}
	}
	add(doc.Title != "", 15)
	add(doc.MetaDescription != "", 20)
	add(doc.OGTags > 0, 15)
	add(doc.H1Count == 1, 15)
	add(doc.HasCanonical, 10)
	add(doc.HasStructuredData, 10)
	add(sitemap, 10)
	add(robots, 5)

	return Signals{
		model.FieldTitle:             doc.Title,
		model.FieldMetaDescription:   doc.MetaDescription,
		model.FieldHasOGTags:         strconv.FormatBool(doc.OGTags > 0),
		model.FieldH1Count:           strconv.Itoa(doc.H1Count),
		model.FieldHasCanonical:      strconv.FormatBool(doc.HasCanonical),
		model.FieldHasStructuredData: strconv.FormatBool(doc.HasStructuredData),
		model.FieldHasSitemap:        strconv.FormatBool(sitemap),
		model.FieldHasRobotsTxt:      strconv.FormatBool(robots),
		model.FieldSEOScore:          strconv.Itoa(score),
	}, nil
}

func cms(doc *scrape.Document) Signals {
	name, version := DetectCMS(doc)
	outdated := IsOutdated(name, version)
	return Signals{
		model.FieldCMSDetected:   name,
		model.FieldCMSVersion:    version,
		model.FieldIsOutdatedCMS: strconv.FormatBool(outdated),
		model.FieldTechnologies:  strings.Join(DetectTechnologies(doc), ","),
	}
}

func mobile(doc *scrape.Document) Signals {
	return Signals{model.FieldIsMobileFriendly: strconv.FormatBool(doc.HasViewport)}
}

var (
	phoneRe     = regexp.MustCompile(`(?:\+?1[\s.-]?)?\(?\d{3}\)?[\s.-]\d{3}[\s.-]\d{4}`)
	emailRe     = regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`)
	copyrightRe = regexp.MustCompile(`(?i)(?:©|\(c\)|copyright)\s*(?:\d{4}\s*[-–]\s*)?((?:19|20)\d{2})`)
)

var socialHosts = map[string]string{
	"facebook.com":  "facebook",
	"instagram.com": "instagram",
	"linkedin.com":  "linkedin",
	"twitter.com":   "twitter",
	"x.com":         "twitter",
	"youtube.com":   "youtube",
	"tiktok.com":    "tiktok",
	"yelp.com":      "yelp",
	"pinterest.com": "pinterest",
}

func (c *HTTPClient) business(ctx context.Context, page *scrape.Page, doc *scrape.Document) (Signals, error) {
	contact := false
	phone := phoneRe.MatchString(doc.Text)
	email := emailRe.MatchString(doc.Text)
	social := make(map[string]bool)

	for _, link := range doc.Links {
		l := strings.ToLower(link)
		switch {
		case strings.HasPrefix(l, "tel:"):
			phone = true
		case strings.HasPrefix(l, "mailto:"):
			email = true
		case strings.Contains(l, "contact"):
			contact = true
		}
		if u, err := url.Parse(l); err == nil {
			host := strings.TrimPrefix(u.Hostname(), "www.")
			if p, ok := socialHosts[host]; ok {
				social[p] = true
			}
		}
	}

	if !contact && page.Direct() {
		ok, err := c.pathExists(ctx, page, "/contact")
		if err != nil {
			return nil, eris.Wrap(err, "enrich: check contact page")
		}
		contact = ok
	}

	platforms := make([]string, 0, len(social))
	for p := range social {
		platforms = append(platforms, p)
	}
	sort.Strings(platforms)

	year := ""
	if m := copyrightRe.FindAllStringSubmatch(doc.Text, -1); len(m) > 0 {
		year = m[len(m)-1][1]
	}

	score := 0
	for _, p := range []struct {
		ok  bool
		pts int
	}{{contact, 30}, {phone, 25}, {email, 15}, {len(platforms) > 0, 15}, {year != "", 15}} {
		if p.ok {
			score += p.pts
		}
	}

	return Signals{
		model.FieldHasContactPage:  strconv.FormatBool(contact),
		model.FieldHasPhoneNumber:  strconv.FormatBool(phone),
		model.FieldHasEmailOnSite:  strconv.FormatBool(email),
		model.FieldSocialPlatforms: strings.Join(platforms, ","),
		model.FieldCopyrightYear:   year,
		model.FieldBusinessScore:   strconv.Itoa(score),
	}, nil
}

func accessibility(doc *scrape.Document) Signals {
	score := 0
	if doc.Lang != "" {
		score += 30
	}
	if doc.Images == 0 {
		score += 40
	} else {
		score += 40 * (doc.Images - doc.ImagesMissingAlt) / doc.Images
	}
	if doc.Landmarks > 0 {
		score += 30
	}
	return Signals{
		model.FieldHasLangAttribute:   strconv.FormatBool(doc.Lang != ""),
		model.FieldImagesMissingAlt:   strconv.Itoa(doc.ImagesMissingAlt),
		model.FieldHasARIALandmarks:   strconv.FormatBool(doc.Landmarks > 0),
		model.FieldAccessibilityScore: strconv.Itoa(score),
	}
}

func siteRoot(page *scrape.Page) string {
	raw := page.FinalURL
	if raw == "" {
		raw = page.URL
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return raw
	}
	return u.Scheme + "://" + u.Host
}

// stats summarizes load-time samples in milliseconds.
type stats struct {
	Count    int
	MedianMs int
	P90Ms    int
	SpreadMs int
}

func summarizeSamples(samples []time.Duration) stats {
	ms := make([]int, len(samples))
	for i, s := range samples {
		ms[i] = int(s.Milliseconds())
	}
	slices.Sort(ms)

	st := stats{Count: len(ms)}
	if len(ms) == 0 {
		return st
	}
	mid := len(ms) / 2
	if len(ms)%2 == 1 {
		st.MedianMs = ms[mid]
	} else {
		st.MedianMs = (ms[mid-1] + ms[mid]) / 2
	}
	// Nearest-rank p90.
	rank := (90*len(ms) + 99) / 100
	st.P90Ms = ms[rank-1]
	st.SpreadMs = ms[len(ms)-1] - ms[0]
	return st
}

// Confidence rates the measurement: high when every planned round
// succeeded and samples agree within half the median.
func (s stats) Confidence(planned int) string {
	switch {
	case s.Count >= planned && s.Count >= 3 && s.SpreadMs*2 <= s.MedianMs:
		return "high"
	case s.Count >= 2:
		return "medium"
	default:
		return "low"
	}
}
