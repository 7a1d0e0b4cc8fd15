package emailgen

import (
	"strings"
	"text/template"

	"github.com/rotisserie/eris"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/sells-group/outreach-cli/internal/config"
	"github.com/sells-group/outreach-cli/internal/model"
)

// Email sources.
const (
	SourceProvided = "provided"
	SourceGuessed  = "guessed"
)

const defaultSender = "[Your Name]"

// ErrNoAddress is returned when a lead has no email and none can be guessed.
var ErrNoAddress = eris.New("emailgen: no email address")

// Draft is a rendered first-touch email.
type Draft struct {
	Subject string
	Opener  string
	Body    string
}

// Generator fills in addresses and renders drafts.
type Generator struct {
	tmpl       *compiled
	threshold  int
	maxGuesses int
	sender     string
}

// New creates a Generator from cfg, loading cfg.TemplatesFile when set.
func New(cfg config.EmailsConfig) (*Generator, error) {
	pack := DefaultPack()
	if cfg.TemplatesFile != "" {
		p, err := LoadPack(cfg.TemplatesFile)
		if err != nil {
			return nil, err
		}
		pack = p
	}
	return NewWithPack(cfg, pack)
}

// NewWithPack creates a Generator with an explicit template pack.
func NewWithPack(cfg config.EmailsConfig, pack Pack) (*Generator, error) {
	c, err := pack.compile()
	if err != nil {
		return nil, err
	}
	g := &Generator{
		tmpl:       c,
		threshold:  cfg.Threshold,
		maxGuesses: cfg.MaxGuesses,
		sender:     cfg.SenderName,
	}
	if g.maxGuesses <= 0 {
		g.maxGuesses = 3
	}
	if g.sender == "" {
		g.sender = defaultSender
	}
	return g, nil
}

// Threshold is the minimum score a lead needs to receive a draft.
func (g *Generator) Threshold() int { return g.threshold }

// Eligible reports whether score clears the threshold.
func (g *Generator) Eligible(score int) bool { return score >= g.threshold }

// Apply fills the address columns and draft columns of l.
func (g *Generator) Apply(l *model.Lead) error {
	if err := g.resolveAddress(l); err != nil {
		return err
	}
	d, err := g.Render(l)
	if err != nil {
		return err
	}
	l.Set(model.FieldDraftSubject, d.Subject)
	l.Set(model.FieldDraftOpener, d.Opener)
	l.Set(model.FieldDraftBody, d.Body)
	return nil
}

func (g *Generator) resolveAddress(l *model.Lead) error {
	if email := strings.TrimSpace(l.Get(model.FieldEmail)); email != "" {
		l.Set(model.FieldEmailSource, SourceProvided)
		l.SetInt(model.FieldEmailConfidence, 100)
		return nil
	}

	first, last := NameParts(l.Get(model.FieldContactName), l.Get(model.FieldCompanyName))
	cands := Guess(l.Domain(), first, last)
	if len(cands) == 0 {
		return eris.Wrapf(ErrNoAddress, "domain %q", l.Domain())
	}
	if len(cands) > g.maxGuesses {
		cands = cands[:g.maxGuesses]
	}

	best := cands[0]
	alts := make([]string, 0, len(cands)-1)
	for _, c := range cands[1:] {
		alts = append(alts, c.Email)
	}
	l.Set(model.FieldEmail, best.Email)
	l.Set(model.FieldEmailSource, SourceGuessed)
	l.SetInt(model.FieldEmailConfidence, best.Confidence)
	l.Set(model.FieldEmailPattern, best.Pattern)
	l.Set(model.FieldEmailAlternates, strings.Join(alts, ";"))
	return nil
}

// Render builds the draft for l without modifying it.
func (g *Generator) Render(l *model.Lead) (Draft, error) {
	d := g.data(l)

	tier := d.Priority
	subj, ok := g.tmpl.subjects[tier]
	if !ok {
		subj = g.tmpl.subjects[string(model.PriorityCold)]
	}

	var (
		draft Draft
		err   error
	)
	if draft.Subject, err = render(subj, d); err != nil {
		return Draft{}, err
	}
	if draft.Opener, err = render(g.opener(d.Issues), d); err != nil {
		return Draft{}, err
	}
	d.Opener = draft.Opener
	if draft.Body, err = render(g.tmpl.body, d); err != nil {
		return Draft{}, err
	}
	return draft, nil
}

func (g *Generator) opener(issues []string) *template.Template {
	have := make(map[string]bool, len(issues))
	for _, is := range issues {
		have[is] = true
	}
	for _, is := range g.tmpl.issueOrder {
		if !have[is] {
			continue
		}
		if t, ok := g.tmpl.openers[is]; ok {
			return t
		}
	}
	return g.tmpl.openers[DefaultOpenerKey]
}

func (g *Generator) data(l *model.Lead) Data {
	score, _ := l.Int(model.FieldScore)
	var issues []string
	for _, is := range strings.Split(l.Get(model.FieldScoreIssues), ",") {
		if is = strings.TrimSpace(is); is != "" {
			issues = append(issues, is)
		}
	}
	website := l.Get(model.FieldWebsite)
	if website == "" {
		website = l.Domain()
	}
	return Data{
		CompanyName: l.Get(model.FieldCompanyName),
		ContactName: l.Get(model.FieldContactName),
		FirstName:   greetingName(l.Get(model.FieldContactName)),
		Website:     displayURL(website),
		Domain:      l.Domain(),
		CMS:         l.Get(model.FieldCMSDetected),
		Score:       score,
		Priority:    strings.ToLower(l.Get(model.FieldPriority)),
		Issues:      issues,
		SenderName:  g.sender,
	}
}

// displayURL drops the scheme so links read naturally in prose.
func displayURL(u string) string {
	u = strings.TrimPrefix(u, "https://")
	u = strings.TrimPrefix(u, "http://")
	return strings.TrimSuffix(u, "/")
}

// greetingName is the contact's first name as written, title cased.
// Unlike NameParts it keeps every letter, accents included.
func greetingName(contact string) string {
	fields := strings.Fields(contact)
	if len(fields) == 0 {
		return ""
	}
	first := strings.Trim(fields[0], `.,;:"'()`)
	return cases.Title(language.Und).String(first)
}

// ScoreOf returns l's score, or an error when it is missing.
func ScoreOf(l *model.Lead) (int, error) {
	n, ok := l.Int(model.FieldScore)
	if !ok {
		return 0, eris.Errorf("emailgen: score %q is not a number", l.Get(model.FieldScore))
	}
	return n, nil
}
