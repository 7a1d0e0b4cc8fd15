package scorer

import (
	"fmt"
	"strings"

	"github.com/sells-group/outreach-cli/internal/config"
	"github.com/sells-group/outreach-cli/internal/model"
)

// Issue names an opportunity found on a lead's website.
type Issue string

const (
	IssueNoSSL         Issue = "no_ssl"
	IssueSlow          Issue = "slow"
	IssueVerySlow      Issue = "very_slow"
	IssueNoContactPage Issue = "no_contact_page"
	IssueOldCMS        Issue = "old_cms"
	IssueNoMobile      Issue = "no_mobile"
	IssueNoMeta        Issue = "no_meta"
)

// Factor is one line of the score breakdown.
type Factor struct {
	Name   string
	Points int
}

// Result is the score of one lead.
type Result struct {
	Score    int
	Factors  []Factor
	Issues   []Issue
	Priority model.Priority
}

// Breakdown renders the factors as "name:+points;...".
func (r Result) Breakdown() string {
	parts := make([]string, len(r.Factors))
	for i, f := range r.Factors {
		parts[i] = fmt.Sprintf("%s:+%d", f.Name, f.Points)
	}
	return strings.Join(parts, ";")
}

// IssueList renders the issues comma-separated.
func (r Result) IssueList() string {
	parts := make([]string, len(r.Issues))
	for i, is := range r.Issues {
		parts[i] = string(is)
	}
	return strings.Join(parts, ",")
}

// Scorer applies a points table to enriched leads. It is pure: the same
// lead always yields the same Result.
type Scorer struct {
	cfg config.ScoreConfig
}

// New creates a Scorer after validating cfg.
func New(cfg config.ScoreConfig) (*Scorer, error) {
	if err := ValidateConfig(cfg); err != nil {
		return nil, err
	}
	return &Scorer{cfg: cfg}, nil
}

// Score computes the result for l. Attributes that are null contribute
// nothing and raise no issue.
func (s *Scorer) Score(l *model.Lead) Result {
	var r Result
	add := func(name string, pts int) {
		r.Factors = append(r.Factors, Factor{Name: name, Points: pts})
		r.Score += pts
	}

	if ssl, ok := l.Bool(model.FieldHasSSL); ok {
		if ssl {
			add("ssl", s.cfg.SSLPoints)
		} else {
			add("ssl", s.cfg.NoSSLPoints)
			r.Issues = append(r.Issues, IssueNoSSL)
		}
	}

	if ms, ok := l.Int(model.FieldLoadTimeMs); ok && ms >= 0 {
		add("load_time", s.loadTimePoints(ms))
		switch {
		case ms > s.cfg.VerySlowMs:
			r.Issues = append(r.Issues, IssueVerySlow)
		case ms > s.cfg.SlowMs:
			r.Issues = append(r.Issues, IssueSlow)
		}
	}

	if seoKnown(l) {
		pts := 0
		hasMeta := l.Has(model.FieldMetaDescription)
		if hasMeta {
			pts += s.cfg.MetaPoints
		}
		if og, _ := l.Bool(model.FieldHasOGTags); og {
			pts += s.cfg.OGPoints
		}
		if h1, ok := l.Int(model.FieldH1Count); ok && h1 == 1 {
			pts += s.cfg.H1Points
		}
		add("seo", pts)
		if !hasMeta {
			r.Issues = append(r.Issues, IssueNoMeta)
		}
	}

	if mobile, ok := l.Bool(model.FieldIsMobileFriendly); ok {
		if mobile {
			add("mobile", s.cfg.MobilePoints)
		} else {
			add("mobile", 0)
			r.Issues = append(r.Issues, IssueNoMobile)
		}
	}

	contact, contactOK := l.Bool(model.FieldHasContactPage)
	phone, phoneOK := l.Bool(model.FieldHasPhoneNumber)
	if contactOK || phoneOK {
		pts := 0
		if contact {
			pts += s.cfg.ContactPagePoints
		}
		if phone {
			pts += s.cfg.PhonePoints
		}
		add("business", pts)
		if contactOK && !contact {
			r.Issues = append(r.Issues, IssueNoContactPage)
		}
	}

	if s.oldCMS(l) {
		r.Issues = append(r.Issues, IssueOldCMS)
	}

	r.Score = min(max(r.Score, 0), 100)
	r.Priority = s.Tier(r.Score)
	return r
}

// Apply scores l and writes the score columns.
func (s *Scorer) Apply(l *model.Lead) Result {
	r := s.Score(l)
	l.SetInt(model.FieldScore, r.Score)
	l.Set(model.FieldScoreBreakdown, r.Breakdown())
	l.Set(model.FieldScoreIssues, r.IssueList())
	l.Set(model.FieldPriority, string(r.Priority))
	return r
}

// Tier maps a score to its priority.
func (s *Scorer) Tier(score int) model.Priority {
	switch {
	case score >= s.cfg.HotTier:
		return model.PriorityHot
	case score >= s.cfg.WarmTier:
		return model.PriorityWarm
	case score >= s.cfg.CoolTier:
		return model.PriorityCool
	default:
		return model.PriorityCold
	}
}

func (s *Scorer) loadTimePoints(ms int) int {
	for _, b := range s.cfg.LoadTimeBands {
		if ms <= b.MaxMs {
			return b.Points
		}
	}
	return 0
}

func (s *Scorer) oldCMS(l *model.Lead) bool {
	if outdated, _ := l.Bool(model.FieldIsOutdatedCMS); outdated {
		return true
	}
	cms := strings.ToLower(strings.TrimSpace(l.Get(model.FieldCMSDetected) + " " + l.Get(model.FieldCMSVersion)))
	if cms == "" {
		return false
	}
	for _, m := range s.cfg.OldCMSMarkers {
		if strings.Contains(cms, strings.ToLower(m)) {
			return true
		}
	}
	return false
}

// seoKnown reports whether the seo category was fetched for l.
func seoKnown(l *model.Lead) bool {
	return l.Has(model.FieldHasOGTags) || l.Has(model.FieldH1Count) || l.Has(model.FieldMetaDescription)
}
