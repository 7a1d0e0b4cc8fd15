package enrich

import (
	"sort"
	"strings"

	"github.com/sells-group/outreach-cli/internal/model"
)

// Outcome summarizes how completely a lead was enriched.
type Outcome struct {
	Status      string
	Unavailable []string
	// Reasons holds "category: why" for each unavailable category that
	// reported a cause.
	Reasons []string
}

// Degraded reports whether any requested category is missing.
func (o Outcome) Degraded() bool { return len(o.Unavailable) > 0 }

// Detail describes the missing categories for a failure artifact.
func (o Outcome) Detail() string {
	if !o.Degraded() {
		return ""
	}
	detail := "unavailable: " + strings.Join(o.Unavailable, ",")
	if len(o.Reasons) > 0 {
		detail += " (" + strings.Join(o.Reasons, "; ") + ")"
	}
	return detail
}

// Apply writes res onto l for the requested categories. Every canonical
// column of a requested category is overwritten, so values from an earlier
// enrichment never survive: unavailable categories and signals the client
// did not return are null.
func Apply(l *model.Lead, res *Result, categories []model.Category) Outcome {
	if len(categories) == 0 {
		categories = model.AllCategories
	}

	var out Outcome
	for _, cat := range categories {
		if !res.Available(cat) {
			for _, f := range model.CategoryFields[cat] {
				l.Set(f, "")
			}
			out.Unavailable = append(out.Unavailable, string(cat))
			if why := res.Unavailable[cat]; why != "" {
				out.Reasons = append(out.Reasons, string(cat)+": "+why)
			}
			continue
		}

		sig := res.Categories[cat]
		for _, f := range model.CategoryFields[cat] {
			l.Set(f, sig[f])
		}
		// Signals outside the canonical columns are kept too.
		extra := make([]string, 0, len(sig))
		for k := range sig {
			if !l.HasColumn(k) {
				extra = append(extra, k)
			}
		}
		sort.Strings(extra)
		for _, k := range extra {
			l.Set(k, sig[k])
		}
	}

	out.Status = model.EnrichComplete
	switch {
	case len(out.Unavailable) == len(categories):
		out.Status = model.EnrichUnavailable
	case len(out.Unavailable) > 0:
		out.Status = model.EnrichPartial
	}
	l.Set(model.FieldEnrichStatus, out.Status)
	l.Set(model.FieldEnrichUnavailable, strings.Join(out.Unavailable, ","))
	l.Set(model.FieldEnrichSource, res.Source)
	l.Set(model.FieldFinalURL, res.FinalURL)
	return out
}
