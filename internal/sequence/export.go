package sequence

import (
	"fmt"
	"io"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/outreach-cli/internal/model"
)

// InstantlyColumns is the upload format for Instantly campaigns.
var InstantlyColumns = []string{
	"email", "first_name", "company_name", "website", "first_line", "priority", "score", "domain",
}

// ToInstantly maps a sequenced lead to an Instantly upload row. first_line
// is the personalized line when there is one, otherwise the draft opener.
func ToInstantly(l *model.Lead) *model.Lead {
	first := ""
	if parts := strings.Fields(l.Get(model.FieldContactName)); len(parts) > 0 {
		first = parts[0]
	}
	line := l.Get(model.FieldPersonalizedLine)
	if line == "" {
		line = l.Get(model.FieldDraftOpener)
	}

	out := model.NewLead()
	out.Set("email", l.Get(model.FieldEmail))
	out.Set("first_name", first)
	out.Set("company_name", l.Get(model.FieldCompanyName))
	out.Set("website", l.Get(model.FieldWebsite))
	out.Set("first_line", line)
	out.Set("priority", l.Get(model.FieldPriority))
	out.Set("score", l.Get(model.FieldScore))
	out.Set("domain", l.Domain())
	return out
}

// WriteTemplates writes a plain-text reference of the cadence's steps.
func WriteTemplates(w io.Writer, c Cadence) error {
	rule := strings.Repeat("=", 50)
	var sb strings.Builder
	sb.WriteString("EMAIL SEQUENCE TEMPLATES\n")
	sb.WriteString(rule + "\n\n")
	for i, s := range c.Steps {
		fmt.Fprintf(&sb, "EMAIL %d\n", i+1)
		fmt.Fprintf(&sb, "Subject: %s\n", s.Subject)
		fmt.Fprintf(&sb, "Send after: Day %d\n", s.Day)
		sb.WriteString(strings.Repeat("-", 30) + "\n")
		sb.WriteString(s.Body)
		sb.WriteString("\n\n" + rule + "\n\n")
	}
	if _, err := io.WriteString(w, sb.String()); err != nil {
		return eris.Wrap(err, "sequence: write templates")
	}
	return nil
}
