// Package audit reports on websites outside the lead pipeline: a full
// check of one site, and summaries of an enriched or scored artifact.
package audit

import (
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/outreach-cli/internal/enrich"
	"github.com/sells-group/outreach-cli/internal/model"
	"github.com/sells-group/outreach-cli/internal/scorer"
)

// ErrInvalidDomain is returned when a domain argument has no usable host.
var ErrInvalidDomain = eris.New("audit: invalid domain")

// issueCategory files each score issue under the category that found it.
var issueCategory = map[scorer.Issue]model.Category{
	scorer.IssueSlow:          model.CategoryPerformance,
	scorer.IssueVerySlow:      model.CategoryPerformance,
	scorer.IssueNoSSL:         model.CategorySecurity,
	scorer.IssueNoMeta:        model.CategorySEO,
	scorer.IssueOldCMS:        model.CategoryCMS,
	scorer.IssueNoMobile:      model.CategoryMobile,
	scorer.IssueNoContactPage: model.CategoryBusiness,
}

var issueText = map[scorer.Issue]string{
	scorer.IssueSlow:          "Homepage is slow to load",
	scorer.IssueVerySlow:      "Homepage is very slow to load",
	scorer.IssueNoSSL:         "Site is not served over HTTPS",
	scorer.IssueNoMeta:        "No meta description",
	scorer.IssueOldCMS:        "CMS version is outdated",
	scorer.IssueNoMobile:      "Not mobile friendly",
	scorer.IssueNoContactPage: "No contact page found",
}

// IssueGroup lists the issues found by one category.
type IssueGroup struct {
	Category model.Category
	Issues   []string
}

// Report is the result of auditing one site.
type Report struct {
	Domain     string
	Lead       *model.Lead
	Score      scorer.Result
	Enrichment enrich.Outcome
	Elapsed    time.Duration
}

// IssueGroups returns the score issues grouped by category, in canonical
// category order. Categories without issues are omitted.
func (r *Report) IssueGroups() []IssueGroup {
	byCat := make(map[model.Category][]string)
	for _, is := range r.Score.Issues {
		cat, ok := issueCategory[is]
		if !ok {
			continue
		}
		text := issueText[is]
		if text == "" {
			text = string(is)
		}
		byCat[cat] = append(byCat[cat], text)
	}
	var out []IssueGroup
	for _, cat := range model.AllCategories {
		if issues := byCat[cat]; len(issues) > 0 {
			out = append(out, IssueGroup{Category: cat, Issues: issues})
		}
	}
	return out
}

// Flat returns every column of the audited lead, for JSON output.
func (r *Report) Flat() map[string]string {
	cols := r.Lead.Columns()
	out := make(map[string]string, len(cols))
	for _, c := range cols {
		out[c] = r.Lead.Get(c)
	}
	return out
}

// Auditor runs single-site audits.
type Auditor struct {
	client     enrich.Client
	scorer     *scorer.Scorer
	categories []model.Category
}

// New creates an Auditor. Empty categories selects all.
func New(client enrich.Client, sc *scorer.Scorer, categories []model.Category) *Auditor {
	if len(categories) == 0 {
		categories = model.AllCategories
	}
	return &Auditor{client: client, scorer: sc, categories: categories}
}

// Site enriches and scores one domain. Unreachable sites are still
// reported, with their categories unavailable.
func (a *Auditor) Site(ctx context.Context, raw string) (*Report, error) {
	domain, err := NormalizeDomain(raw)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	res, err := a.client.Fetch(ctx, domain, a.categories)
	if err != nil {
		return nil, eris.Wrapf(err, "audit: %s", domain)
	}

	l := model.NewLead()
	l.Set(model.FieldDomain, domain)
	l.Set(model.FieldWebsite, "https://"+domain)
	out := enrich.Apply(l, res, a.categories)
	sr := a.scorer.Apply(l)

	rep := &Report{
		Domain:     domain,
		Lead:       l,
		Score:      sr,
		Enrichment: out,
		Elapsed:    time.Since(start),
	}
	zap.L().Info("audit: complete",
		zap.String("domain", domain),
		zap.String("enrich_status", out.Status),
		zap.Int("score", sr.Score),
		zap.Int64("duration_ms", rep.Elapsed.Milliseconds()),
	)
	return rep, nil
}

// NormalizeDomain reduces a domain or URL argument to its host, keeping
// any port.
func NormalizeDomain(raw string) (string, error) {
	s := strings.ToLower(strings.TrimSpace(raw))
	if s == "" {
		return "", eris.Wrap(ErrInvalidDomain, "empty")
	}
	if !strings.Contains(s, "://") {
		s = "https://" + s
	}
	u, err := url.Parse(s)
	if err != nil {
		return "", eris.Wrapf(ErrInvalidDomain, "%q", raw)
	}
	if host := u.Hostname(); host == "" || !strings.Contains(host, ".") {
		return "", eris.Wrapf(ErrInvalidDomain, "%q", raw)
	}
	return u.Host, nil
}
