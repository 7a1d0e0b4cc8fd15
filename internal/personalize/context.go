// Package personalize writes an AI-generated opening line into each draft
// email. Generation is optional: any failure leaves the draft as written.
package personalize

import (
	"fmt"
	"strings"

	"github.com/sells-group/outreach-cli/internal/model"
)

// LeadContext is what the model sees about a lead.
type LeadContext struct {
	LeadID     string
	Company    string
	Website    string
	Title      string
	Issues     []string
	LoadTimeMs int
	CMS        string
}

var issueText = map[string]string{
	"no_ssl":          "website lacks HTTPS/SSL security",
	"slow":            "website loads slowly (over 3 seconds)",
	"very_slow":       "website loads very slowly (over 5 seconds)",
	"no_contact_page": "no contact page found",
	"old_cms":         "using outdated CMS version",
	"no_mobile":       "website is not mobile-friendly",
	"no_meta":         "missing meta description for SEO",
}

// FromLead builds the context for l.
func FromLead(l *model.Lead) LeadContext {
	lc := LeadContext{
		LeadID:  l.ID(),
		Company: l.Get(model.FieldCompanyName),
		Website: l.Get(model.FieldWebsite),
		Title:   l.Get(model.FieldTitle),
		CMS:     l.Get(model.FieldCMSDetected),
	}
	if lc.Company == "" {
		lc.Company = "Unknown Company"
	}
	if ms, ok := l.Int(model.FieldLoadTimeMs); ok {
		lc.LoadTimeMs = ms
	}
	for _, is := range strings.Split(l.Get(model.FieldScoreIssues), ",") {
		if is = strings.TrimSpace(is); is != "" {
			lc.Issues = append(lc.Issues, is)
		}
	}
	return lc
}

// Render formats the context as the user prompt body.
func (lc LeadContext) Render() string {
	parts := []string{"Company: " + lc.Company}
	if lc.Website != "" {
		parts = append(parts, "Website: "+lc.Website)
	}
	if lc.Title != "" {
		parts = append(parts, "Website title: "+lc.Title)
	}

	var issues []string
	for _, is := range lc.Issues {
		if txt, ok := issueText[is]; ok {
			issues = append(issues, txt)
		}
	}
	if len(issues) > 0 {
		parts = append(parts, "Technical issues: "+strings.Join(issues, ", "))
	}
	if lc.LoadTimeMs > 0 {
		parts = append(parts, fmt.Sprintf("Page load time: %.1f seconds", float64(lc.LoadTimeMs)/1000))
	}
	if lc.CMS != "" {
		parts = append(parts, "CMS: "+lc.CMS)
	}
	return strings.Join(parts, "\n")
}

const systemPrompt = `You write opening lines for cold emails to business owners.
Rules:
- ONE short line, under 20 words
- Reference something specific about their website
- Hint at an issue or opportunity without being negative
- Sound human, not salesy
- NO greetings (Hi, Hello, Hey)
- NO mentions of your services

Good examples:
- "Noticed your site takes a few seconds to load - that can cost you visitors."
- "Your plumbing business has great reviews, but your site might be missing out on mobile visitors."
- "Saw you're still on WordPress 4 - there are some easy wins for speed there."`

func userPrompt(lc LeadContext) string {
	return "Website info:\n" + lc.Render() + "\n\nWrite only the first line:"
}

var greetings = []string{"hi ", "hello ", "hey ", "dear "}

// CleanLine trims quotes and a leading greeting from a generated line. ok
// is false when what remains is too short to use.
func CleanLine(text string) (line string, ok bool) {
	line = strings.TrimSpace(text)
	if i := strings.IndexByte(line, '\n'); i >= 0 {
		line = strings.TrimSpace(line[:i])
	}
	line = strings.Trim(line, `"'`)
	lower := strings.ToLower(line)
	for _, g := range greetings {
		if strings.HasPrefix(lower, g) {
			line = strings.TrimSpace(line[len(g):])
			break
		}
	}
	if len(line) <= 10 {
		return "", false
	}
	return line, true
}
