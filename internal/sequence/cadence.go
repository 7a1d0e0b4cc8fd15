// Package sequence schedules the follow-up emails that trail each
// first-touch draft.
package sequence

import (
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/outreach-cli/internal/model"
)

// Step is one email in a cadence. Day counts from the start of the
// sequence. Step 1 sends the lead's final draft, so its templates are
// only used when the draft is missing.
type Step struct {
	Day     int    `yaml:"day"`
	Subject string `yaml:"subject"`
	Body    string `yaml:"body"`
}

// Cadence is the full follow-up policy.
type Cadence struct {
	Steps []Step `yaml:"steps"`
	// StartOffsets delays the whole sequence by priority tier, in days.
	StartOffsets map[string]int `yaml:"start_offsets"`
}

// DefaultCadence returns four emails on days 0, 3, 5 and 7.
func DefaultCadence() Cadence {
	return Cadence{
		Steps: []Step{
			{
				Day:     0,
				Subject: "Quick question about {{.CompanyName}}",
				Body: `{{.Opener}}

I help businesses like yours improve their online presence: faster sites, better conversions, more leads.

Would you be open to a quick chat about what I found?

Best,
{{.SenderName}}`,
			},
			{
				Day:     3,
				Subject: "Re: {{.Subject}}",
				Body: `Just wanted to follow up on my last note.

I put together a few specific suggestions for {{.Website}} that could help with {{.Focus}}.

Happy to share if you're interested, no strings attached.

{{.SenderName}}`,
			},
			{
				Day:     5,
				Subject: "Re: {{.Subject}}",
				Body: `I recently helped a similar business improve their site speed by 60%, and they saw a noticeable bump in inquiries within weeks.

I think there's similar potential for {{.CompanyName}}.

Worth a 10-minute call?

{{.SenderName}}`,
			},
			{
				Day:     7,
				Subject: "Re: {{.Subject}}",
				Body: `I'll keep this short. I've reached out a few times about {{.CompanyName}}'s website.

If now isn't the right time, no worries at all. Just let me know and I'll stop following up.

But if you've been meaning to reply, I'm here whenever you're ready.

{{.SenderName}}`,
			},
		},
		StartOffsets: map[string]int{
			string(model.PriorityHot):  0,
			string(model.PriorityWarm): 1,
			string(model.PriorityCool): 2,
			string(model.PriorityCold): 3,
		},
	}
}

// LoadCadence reads a YAML cadence. Start offsets missing from the file
// keep their defaults; steps, when present, replace the default steps.
func LoadCadence(path string) (Cadence, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Cadence{}, eris.Wrapf(err, "sequence: read cadence %s", path)
	}
	var file Cadence
	if err := yaml.Unmarshal(data, &file); err != nil {
		return Cadence{}, eris.Wrapf(err, "sequence: parse cadence %s", path)
	}

	c := DefaultCadence()
	if len(file.Steps) > 0 {
		c.Steps = file.Steps
	}
	for k, v := range file.StartOffsets {
		c.StartOffsets[strings.ToLower(k)] = v
	}
	return c, nil
}

// Validate checks that days start at 0 and strictly increase.
func (c Cadence) Validate() error {
	var errs []string
	if len(c.Steps) == 0 {
		errs = append(errs, "at least one step is required")
	}
	for i, s := range c.Steps {
		switch {
		case i == 0 && s.Day != 0:
			errs = append(errs, "step 1 must be on day 0")
		case i > 0 && s.Day <= c.Steps[i-1].Day:
			errs = append(errs, "step "+strconv.Itoa(i+1)+" day must be after step "+strconv.Itoa(i))
		}
		if strings.TrimSpace(s.Subject) == "" || strings.TrimSpace(s.Body) == "" {
			errs = append(errs, "step "+strconv.Itoa(i+1)+" needs a subject and a body")
		}
	}
	for tier, off := range c.StartOffsets {
		if off < 0 {
			errs = append(errs, "start offset for "+tier+" must be >= 0")
		}
	}
	if len(errs) > 0 {
		slices.Sort(errs)
		return eris.Errorf("sequence: invalid cadence: %s", strings.Join(errs, "; "))
	}
	return nil
}

// Days returns the step days joined with commas, e.g. "0,3,5,7".
func (c Cadence) Days() string {
	parts := make([]string, len(c.Steps))
	for i, s := range c.Steps {
		parts[i] = strconv.Itoa(s.Day)
	}
	return strings.Join(parts, ",")
}
