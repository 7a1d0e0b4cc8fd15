package emailgen

import (
	"os"
	"strings"
	"text/template"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/outreach-cli/internal/model"
)

// DefaultOpenerKey selects the opener used when a lead has no known issue.
const DefaultOpenerKey = "default"

// Pack is the set of text templates a draft is rendered from. Templates
// use Go template syntax over Data.
type Pack struct {
	// Subjects by priority tier.
	Subjects map[string]string `yaml:"subjects"`
	// Openers by score issue, plus DefaultOpenerKey.
	Openers map[string]string `yaml:"openers"`
	// IssueOrder picks which issue's opener wins when a lead has several.
	IssueOrder []string `yaml:"issue_order"`
	Body       string   `yaml:"body"`
}

// Data is what templates can reference.
type Data struct {
	CompanyName string
	ContactName string
	FirstName   string
	Website     string
	Domain      string
	CMS         string
	Score       int
	Priority    string
	Issues      []string
	Opener      string
	SenderName  string
}

// DefaultPack returns the built-in templates.
func DefaultPack() Pack {
	return Pack{
		Subjects: map[string]string{
			string(model.PriorityHot):  "Quick question about {{.CompanyName}}'s website",
			string(model.PriorityWarm): "Quick question about {{.CompanyName}}",
			string(model.PriorityCool): "An idea for {{.CompanyName}}",
			string(model.PriorityCold): "An idea for {{.CompanyName}}",
		},
		Openers: map[string]string{
			"very_slow":       "Noticed {{.Website}} takes over five seconds to load, which can cost you visitors.",
			"slow":            "Noticed {{.Website}} takes a few seconds to load, which can cost you visitors.",
			"no_ssl":          "Noticed {{.Website}} isn't on HTTPS yet, so some browsers flag it as not secure.",
			"no_mobile":       "Pulled up {{.Website}} on my phone and it isn't quite set up for mobile visitors.",
			"old_cms":         "Saw {{.CompanyName}}'s site runs on an older {{if .CMS}}{{.CMS}} {{end}}version, and there are some easy wins there.",
			"no_contact_page": "Couldn't find a contact page on {{.Website}}, which might be costing you inquiries.",
			"no_meta":         "Your site has no search description, so Google picks its own snippet for {{.CompanyName}}.",
			DefaultOpenerKey:  "Took a look at {{.CompanyName}}'s website and had a few thoughts.",
		},
		IssueOrder: []string{"very_slow", "slow", "no_ssl", "no_mobile", "old_cms", "no_contact_page", "no_meta"},
		Body: `{{if .FirstName}}Hi {{.FirstName}},{{else}}Hi there,{{end}}

{{.Opener}}

I help businesses like yours improve their online presence: faster sites, better conversions, more leads.

Would you be open to a quick chat about what I found?

Best,
{{.SenderName}}`,
	}
}

// LoadPack reads a YAML template pack and layers it over DefaultPack, so a
// file only needs the templates it changes.
func LoadPack(path string) (Pack, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Pack{}, eris.Wrapf(err, "emailgen: read templates %s", path)
	}
	var override Pack
	if err := yaml.Unmarshal(data, &override); err != nil {
		return Pack{}, eris.Wrapf(err, "emailgen: parse templates %s", path)
	}

	p := DefaultPack()
	for k, v := range override.Subjects {
		p.Subjects[k] = v
	}
	for k, v := range override.Openers {
		p.Openers[k] = v
	}
	if len(override.IssueOrder) > 0 {
		p.IssueOrder = override.IssueOrder
	}
	if strings.TrimSpace(override.Body) != "" {
		p.Body = override.Body
	}
	return p, nil
}

// compiled holds parsed templates.
type compiled struct {
	subjects   map[string]*template.Template
	openers    map[string]*template.Template
	issueOrder []string
	body       *template.Template
}

func (p Pack) compile() (*compiled, error) {
	c := &compiled{
		subjects:   make(map[string]*template.Template, len(p.Subjects)),
		openers:    make(map[string]*template.Template, len(p.Openers)),
		issueOrder: p.IssueOrder,
	}
	for _, tier := range []model.Priority{model.PriorityHot, model.PriorityWarm, model.PriorityCool, model.PriorityCold} {
		if _, ok := p.Subjects[string(tier)]; !ok {
			return nil, eris.Errorf("emailgen: no subject template for tier %q", tier)
		}
	}
	if _, ok := p.Openers[DefaultOpenerKey]; !ok {
		return nil, eris.Errorf("emailgen: no %q opener template", DefaultOpenerKey)
	}

	for k, src := range p.Subjects {
		t, err := parse("subject."+k, src)
		if err != nil {
			return nil, err
		}
		c.subjects[k] = t
	}
	for k, src := range p.Openers {
		t, err := parse("opener."+k, src)
		if err != nil {
			return nil, err
		}
		c.openers[k] = t
	}
	body, err := parse("body", p.Body)
	if err != nil {
		return nil, err
	}
	c.body = body
	return c, nil
}

func parse(name, src string) (*template.Template, error) {
	t, err := template.New(name).Option("missingkey=error").Parse(src)
	if err != nil {
		return nil, eris.Wrapf(err, "emailgen: parse template %s", name)
	}
	return t, nil
}

func render(t *template.Template, d Data) (string, error) {
	var b strings.Builder
	if err := t.Execute(&b, d); err != nil {
		return "", eris.Wrapf(err, "emailgen: render %s", t.Name())
	}
	return strings.TrimSpace(b.String()), nil
}
