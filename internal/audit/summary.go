package audit

import (
	"math"
	"slices"
	"sort"
	"strings"

	"github.com/sells-group/outreach-cli/internal/model"
	"github.com/sells-group/outreach-cli/internal/scorer"
)

// IssueCount is how many leads share an issue.
type IssueCount struct {
	Issue string `json:"issue"`
	Count int    `json:"count"`
}

// Summary aggregates an enriched or scored artifact.
type Summary struct {
	Total          int `json:"total"`
	Enriched       int `json:"enriched"`
	Unavailable    int `json:"unavailable"`
	WithSSL        int `json:"with_ssl"`
	MobileFriendly int `json:"mobile_friendly"`
	OutdatedCMS    int `json:"outdated_cms"`

	MeanLoadMs   int `json:"mean_load_ms"`
	MedianLoadMs int `json:"median_load_ms"`

	AvgScore         float64 `json:"avg_score"`
	AvgSEO           float64 `json:"avg_seo_score"`
	AvgSecurity      float64 `json:"avg_security_score"`
	AvgAccessibility float64 `json:"avg_accessibility_score"`
	AvgBusiness      float64 `json:"avg_business_score"`

	ByPriority map[string]int `json:"by_priority"`
	TopIssues  []IssueCount   `json:"top_issues"`
}

// Scored returns l when it already carries a score, otherwise a copy
// scored by sc.
func Scored(l *model.Lead, sc *scorer.Scorer) *model.Lead {
	if _, ok := l.Int(model.FieldScore); ok && l.Has(model.FieldPriority) {
		return l
	}
	c := l.Clone()
	sc.Apply(c)
	return c
}

// Summarize aggregates leads. Leads without a score are scored with sc
// first; the input is not modified.
func Summarize(leads []*model.Lead, sc *scorer.Scorer) Summary {
	s := Summary{
		Total:      len(leads),
		ByPriority: make(map[string]int),
	}

	var loads []int
	var scores, seo, security, access, business []int
	issues := make(map[string]int)

	for _, raw := range leads {
		l := Scored(raw, sc)

		switch l.Get(model.FieldEnrichStatus) {
		case model.EnrichComplete, model.EnrichPartial:
			s.Enriched++
		case model.EnrichUnavailable:
			s.Unavailable++
		}
		if v, _ := l.Bool(model.FieldHasSSL); v {
			s.WithSSL++
		}
		if v, _ := l.Bool(model.FieldIsMobileFriendly); v {
			s.MobileFriendly++
		}
		if v, _ := l.Bool(model.FieldIsOutdatedCMS); v {
			s.OutdatedCMS++
		}
		if ms, ok := l.Int(model.FieldLoadTimeMs); ok && ms > 0 {
			loads = append(loads, ms)
		}

		collect(l, model.FieldScore, &scores)
		collect(l, model.FieldSEOScore, &seo)
		collect(l, model.FieldSecurityScore, &security)
		collect(l, model.FieldAccessibilityScore, &access)
		collect(l, model.FieldBusinessScore, &business)

		s.ByPriority[strings.ToLower(l.Get(model.FieldPriority))]++
		for _, is := range strings.Split(l.Get(model.FieldScoreIssues), ",") {
			if is = strings.TrimSpace(is); is != "" {
				issues[is]++
			}
		}
	}

	s.MeanLoadMs = int(math.Round(mean(loads)))
	s.MedianLoadMs = median(loads)
	s.AvgScore = round1(mean(scores))
	s.AvgSEO = round1(mean(seo))
	s.AvgSecurity = round1(mean(security))
	s.AvgAccessibility = round1(mean(access))
	s.AvgBusiness = round1(mean(business))

	for is, n := range issues {
		s.TopIssues = append(s.TopIssues, IssueCount{Issue: is, Count: n})
	}
	sort.Slice(s.TopIssues, func(i, j int) bool {
		if s.TopIssues[i].Count != s.TopIssues[j].Count {
			return s.TopIssues[i].Count > s.TopIssues[j].Count
		}
		return s.TopIssues[i].Issue < s.TopIssues[j].Issue
	})
	return s
}

// FilterByScore returns the leads scoring within [lo, hi], scored and in
// input order.
func FilterByScore(leads []*model.Lead, sc *scorer.Scorer, lo, hi int) []*model.Lead {
	var out []*model.Lead
	for _, raw := range leads {
		l := Scored(raw, sc)
		n, _ := l.Int(model.FieldScore)
		if n >= lo && n <= hi {
			out = append(out, l)
		}
	}
	return out
}

func collect(l *model.Lead, col string, into *[]int) {
	if n, ok := l.Int(col); ok {
		*into = append(*into, n)
	}
}

func mean(xs []int) float64 {
	if len(xs) == 0 {
		return 0
	}
	sum := 0
	for _, x := range xs {
		sum += x
	}
	return float64(sum) / float64(len(xs))
}

func median(xs []int) int {
	if len(xs) == 0 {
		return 0
	}
	sorted := slices.Clone(xs)
	slices.Sort(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid]
	}
	return (sorted[mid-1] + sorted[mid]) / 2
}

func round1(f float64) float64 {
	return math.Round(f*10) / 10
}
