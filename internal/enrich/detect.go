package enrich

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/sells-group/outreach-cli/internal/scrape"
)

type marker struct {
	name    string
	needles []string
}

// cmsMarkers are checked in order; the first match wins.
var cmsMarkers = []marker{
	{"wordpress", []string{"/wp-content/", "/wp-includes/", "wp-json"}},
	{"wix", []string{"static.wixstatic.com", "wix.com", "_wixcssimports"}},
	{"squarespace", []string{"static1.squarespace.com", "squarespace.com"}},
	{"shopify", []string{"cdn.shopify.com", "shopify.theme"}},
	{"webflow", []string{"webflow.js", "data-wf-page", "data-wf-site"}},
	{"joomla", []string{"/media/jui/", "/components/com_", "joomla!"}},
	{"drupal", []string{"drupal.settings", "/sites/default/files/", "data-drupal-"}},
	{"godaddy", []string{"img1.wsimg.com", "godaddy website builder"}},
	{"weebly", []string{"editmysite.com", "weebly.com"}},
}

// minCurrent is the oldest version considered up to date, per CMS.
var minCurrent = map[string][]int{
	"wordpress": {6, 4},
	"joomla":    {5, 0},
	"drupal":    {10, 0},
}

var versionRe = regexp.MustCompile(`(\d+(?:\.\d+)*)`)

// DetectCMS identifies the site builder and, when the generator tag
// reveals it, its version.
func DetectCMS(doc *scrape.Document) (name, version string) {
	gen := strings.ToLower(doc.Generator)
	for _, m := range cmsMarkers {
		if strings.Contains(gen, m.name) {
			return m.name, versionRe.FindString(gen)
		}
	}
	for _, m := range cmsMarkers {
		for _, n := range m.needles {
			if strings.Contains(doc.Raw, n) {
				return m.name, ""
			}
		}
	}
	return "", ""
}

// IsOutdated reports whether version is older than the minimum current
// release of name. Unknown versions are not considered outdated.
func IsOutdated(name, version string) bool {
	floor, ok := minCurrent[name]
	if !ok || version == "" {
		return false
	}
	parts := strings.Split(version, ".")
	for i, want := range floor {
		got := 0
		if i < len(parts) {
			n, err := strconv.Atoi(parts[i])
			if err != nil {
				return false
			}
			got = n
		}
		if got != want {
			return got < want
		}
	}
	return false
}

var techMarkers = []marker{
	{"jquery", []string{"jquery"}},
	{"bootstrap", []string{"bootstrap.min", "bootstrap.css", "bootstrap.js"}},
	{"react", []string{"react.production", "data-reactroot", "__next"}},
	{"vue", []string{"vue.min.js", "vue.runtime", "data-v-"}},
	{"angular", []string{"ng-version", "angular.min.js"}},
	{"google_analytics", []string{"google-analytics.com", "gtag/js"}},
	{"google_tag_manager", []string{"googletagmanager.com/gtm"}},
	{"facebook_pixel", []string{"connect.facebook.net", "fbq("}},
	{"hotjar", []string{"static.hotjar.com"}},
	{"cloudflare", []string{"cdnjs.cloudflare.com", "cdn-cgi/"}},
	{"font_awesome", []string{"font-awesome", "fontawesome"}},
	{"google_fonts", []string{"fonts.googleapis.com"}},
	{"recaptcha", []string{"recaptcha"}},
}

// DetectTechnologies lists front-end libraries and trackers found on the
// page, in a fixed order.
func DetectTechnologies(doc *scrape.Document) []string {
	var found []string
	for _, m := range techMarkers {
		for _, n := range m.needles {
			if strings.Contains(doc.Raw, n) {
				found = append(found, m.name)
				break
			}
		}
	}
	return found
}
