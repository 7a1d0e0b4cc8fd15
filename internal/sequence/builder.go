package sequence

import (
	"strings"
	"text/template"

	"github.com/rotisserie/eris"

	"github.com/sells-group/outreach-cli/internal/config"
	"github.com/sells-group/outreach-cli/internal/model"
)

// ChannelEmail is the only channel sequences use.
const ChannelEmail = "email"

const defaultSender = "[Your Name]"

// ErrNoFinalEmail is returned by Apply when the lead has no first-touch
// email to open the sequence with.
var ErrNoFinalEmail = eris.New("sequence: no final email")

// Data is what step templates can reference.
type Data struct {
	CompanyName string
	FirstName   string
	Website     string
	Domain      string
	Subject     string
	Opener      string
	Focus       string
	SenderName  string
}

type compiledStep struct {
	day     int
	subject *template.Template
	body    *template.Template
}

// Builder writes sequence columns onto leads. It makes no external calls
// and is deterministic.
type Builder struct {
	cadence Cadence
	steps   []compiledStep
	sender  string
}

// New creates a Builder from cfg, loading cfg.CadenceFile when set.
func New(cfg config.SequenceConfig) (*Builder, error) {
	c := DefaultCadence()
	if cfg.CadenceFile != "" {
		loaded, err := LoadCadence(cfg.CadenceFile)
		if err != nil {
			return nil, err
		}
		c = loaded
	}
	return NewWithCadence(c, cfg.SenderName)
}

// NewWithCadence creates a Builder for an explicit cadence.
func NewWithCadence(c Cadence, sender string) (*Builder, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	b := &Builder{cadence: c, sender: sender}
	if b.sender == "" {
		b.sender = defaultSender
	}
	for i, s := range c.Steps {
		subj, err := template.New("subject").Parse(s.Subject)
		if err != nil {
			return nil, eris.Wrapf(err, "sequence: parse step %d subject", i+1)
		}
		body, err := template.New("body").Parse(s.Body)
		if err != nil {
			return nil, eris.Wrapf(err, "sequence: parse step %d body", i+1)
		}
		b.steps = append(b.steps, compiledStep{day: s.Day, subject: subj, body: body})
	}
	return b, nil
}

// Cadence returns the policy the builder applies.
func (b *Builder) Cadence() Cadence { return b.cadence }

// StartOffset returns the delay in days for a priority tier. Unknown
// tiers start with the cold tier.
func (b *Builder) StartOffset(priority string) int {
	if off, ok := b.cadence.StartOffsets[strings.ToLower(priority)]; ok {
		return off
	}
	return b.cadence.StartOffsets[string(model.PriorityCold)]
}

// Apply writes the sequence columns onto l. Step 1 is the lead's final
// email and must be present; later steps are rendered from the cadence
// templates.
func (b *Builder) Apply(l *model.Lead) error {
	if missing := l.MissingFields(model.FieldFinalSubject, model.FieldFinalBody); len(missing) > 0 {
		return eris.Wrapf(ErrNoFinalEmail, "missing %s", strings.Join(missing, ", "))
	}
	start := b.StartOffset(l.Get(model.FieldPriority))
	d := b.data(l)

	l.SetInt(model.FieldSequenceStep, 1)
	l.SetInt(model.FieldSequenceDayOffset, start+b.steps[0].day)
	l.Set(model.FieldSequenceChannel, ChannelEmail)
	l.SetInt(model.FieldSequenceStartOffset, start)
	l.Set(model.FieldSequenceCadence, b.cadence.Days())

	for i, s := range b.steps[1:] {
		n := i + 2
		subj, err := render(s.subject, d)
		if err != nil {
			return err
		}
		body, err := render(s.body, d)
		if err != nil {
			return err
		}
		l.SetInt(model.StepField(n, "day"), start+s.day)
		l.Set(model.StepField(n, "subject"), subj)
		l.Set(model.StepField(n, "body"), body)
	}
	return nil
}

func (b *Builder) data(l *model.Lead) Data {
	website := l.Get(model.FieldWebsite)
	if website == "" {
		website = l.Domain()
	}
	website = strings.TrimSuffix(strings.TrimPrefix(strings.TrimPrefix(website, "https://"), "http://"), "/")

	opener := l.Get(model.FieldPersonalizedLine)
	if opener == "" {
		opener = l.Get(model.FieldDraftOpener)
	}

	first := ""
	if parts := strings.Fields(l.Get(model.FieldContactName)); len(parts) > 0 {
		first = parts[0]
	}

	return Data{
		CompanyName: l.Get(model.FieldCompanyName),
		FirstName:   first,
		Website:     website,
		Domain:      l.Domain(),
		Subject:     l.Get(model.FieldFinalSubject),
		Opener:      opener,
		Focus:       focus(l.Get(model.FieldScoreIssues)),
		SenderName:  b.sender,
	}
}

// focus names what the follow-up offers to improve, from the lead's issues.
func focus(issues string) string {
	var areas []string
	seen := map[string]bool{}
	for _, is := range strings.Split(issues, ",") {
		var area string
		switch strings.TrimSpace(is) {
		case "slow", "very_slow":
			area = "speed"
		case "no_ssl":
			area = "security"
		case "no_mobile":
			area = "mobile experience"
		case "no_meta":
			area = "search visibility"
		case "old_cms":
			area = "keeping the site up to date"
		case "no_contact_page":
			area = "turning visitors into inquiries"
		}
		if area != "" && !seen[area] {
			seen[area] = true
			areas = append(areas, area)
		}
	}
	switch len(areas) {
	case 0:
		return "speed and conversions"
	case 1:
		return areas[0]
	default:
		return strings.Join(areas[:len(areas)-1], ", ") + " and " + areas[len(areas)-1]
	}
}

func render(t *template.Template, d Data) (string, error) {
	var sb strings.Builder
	if err := t.Execute(&sb, d); err != nil {
		return "", eris.Wrapf(err, "sequence: render %s", t.Name())
	}
	return strings.TrimSpace(sb.String()), nil
}

// StepCount returns how many steps are scheduled per lead.
func (b *Builder) StepCount() int { return len(b.steps) }

// Preview renders step n (1-based) of l's sequence as it would be sent.
func Preview(l *model.Lead, n int) (subject, body string, err error) {
	if n == 1 {
		return l.Get(model.FieldFinalSubject), l.Get(model.FieldFinalBody), nil
	}
	subject = l.Get(model.StepField(n, "subject"))
	body = l.Get(model.StepField(n, "body"))
	if subject == "" && body == "" {
		return "", "", eris.Errorf("sequence: lead has no step %d", n)
	}
	return subject, body, nil
}
