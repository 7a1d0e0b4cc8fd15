package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/outreach-cli/internal/audit"
	"github.com/sells-group/outreach-cli/internal/enrich"
	"github.com/sells-group/outreach-cli/internal/model"
	"github.com/sells-group/outreach-cli/internal/scorer"
)

var (
	auditJSON    bool
	auditRounds  int
	auditOffline bool
)

var auditCmd = &cobra.Command{
	Use:   "audit <domain>",
	Short: "Audit one website and print its report",
	Long: `Fetches a single site with the same checks the scrape stage runs,
scores it, and prints the result. Nothing is written to disk.

Examples:
  outreach-cli audit acmeplumbing.com
  outreach-cli audit https://acmeplumbing.com --json --rounds 5`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if auditRounds > 0 {
			cfg.Scrape.MeasurementRounds = auditRounds
		}
		cats, err := enrich.CategoriesFromConfig(cfg)
		if err != nil {
			return err
		}
		sc, err := scorer.New(cfg.Score)
		if err != nil {
			return err
		}

		var client enrich.Client
		if auditOffline {
			client = offlineEnricher()
		} else {
			client = enrich.NewClientFromConfig(cfg)
		}

		rep, err := audit.New(client, sc, cats).Site(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if auditJSON {
			b, err := json.MarshalIndent(rep.Flat(), "", "  ")
			if err != nil {
				return eris.Wrap(err, "audit: encode report")
			}
			fmt.Fprintln(out, string(b))
			return nil
		}
		fmt.Fprintln(out, renderAudit(rep))
		return nil
	},
}

// renderAudit lays out a site report as an overview table followed by
// the issues found per category.
func renderAudit(rep *audit.Report) string {
	l := rep.Lead
	cms := orNA(strings.TrimSpace(l.Get(model.FieldCMSDetected) + " " + l.Get(model.FieldCMSVersion)))
	if v, _ := l.Bool(model.FieldIsOutdatedCMS); v {
		cms += " (outdated)"
	}
	load := "n/a"
	if l.Has(model.FieldLoadTimeMs) {
		load = l.Get(model.FieldLoadTimeMs) + " ms"
		if l.Has(model.FieldLoadTimeP90Ms) {
			load += " (p90 " + l.Get(model.FieldLoadTimeP90Ms) + " ms)"
		}
	}

	rows := [][]string{
		{"Domain", rep.Domain},
		{"Final URL", orNA(l.Get(model.FieldFinalURL))},
		{"Enrichment", rep.Enrichment.Status},
		{"Score", fmt.Sprintf("%d/100 (%s)", rep.Score.Score, rep.Score.Priority)},
		{"Performance", orNA(l.Get(model.FieldPerformanceGrade))},
		{"Load time", load},
		{"SSL", yesNo(l, model.FieldHasSSL)},
		{"Security headers", orNA(l.Get(model.FieldSecurityScore))},
		{"SEO", orNA(l.Get(model.FieldSEOScore))},
		{"Accessibility", orNA(l.Get(model.FieldAccessibilityScore))},
		{"Business", orNA(l.Get(model.FieldBusinessScore))},
		{"CMS", cms},
		{"Mobile friendly", yesNo(l, model.FieldIsMobileFriendly)},
		{"Technologies", orNA(l.Get(model.FieldTechnologies))},
	}
	if rep.Enrichment.Degraded() {
		rows = append(rows, []string{"Unavailable", strings.Join(rep.Enrichment.Unavailable, ", ")})
	}

	var sb strings.Builder
	sb.WriteString(renderTable([]string{"Check", "Result"}, rows, []columnAlignment{alignLeft, alignLeft}))
	sb.WriteString("\n")

	groups := rep.IssueGroups()
	if len(groups) == 0 {
		sb.WriteString("\nNo issues found.")
		return sb.String()
	}
	issues := make([][]string, 0, len(groups))
	for _, g := range groups {
		for _, is := range g.Issues {
			issues = append(issues, []string{string(g.Category), is})
		}
	}
	sb.WriteString("\n")
	sb.WriteString(renderTable([]string{"Category", "Issue"}, issues, []columnAlignment{alignLeft, alignLeft}))
	return sb.String()
}

func orNA(s string) string {
	if strings.TrimSpace(s) == "" {
		return "n/a"
	}
	return s
}

func yesNo(l *model.Lead, col string) string {
	v, ok := l.Bool(col)
	switch {
	case !ok:
		return "n/a"
	case v:
		return "yes"
	default:
		return "no"
	}
}

func init() {
	auditCmd.Flags().BoolVar(&auditJSON, "json", false, "print every collected column as JSON")
	auditCmd.Flags().IntVarP(&auditRounds, "rounds", "r", 0, "load-time samples (default scrape.measurement_rounds)")
	auditCmd.Flags().BoolVar(&auditOffline, "offline", false, "use the stub website client")
	rootCmd.AddCommand(auditCmd)
}
