package main

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/outreach-cli/internal/artifact"
	"github.com/sells-group/outreach-cli/internal/audit"
	"github.com/sells-group/outreach-cli/internal/model"
	"github.com/sells-group/outreach-cli/internal/scorer"
)

var (
	reportMinScore int
	reportMaxScore int
	reportOutput   string
	reportJSON     bool
)

var reportCmd = &cobra.Command{
	Use:   "report <enriched.csv>",
	Short: "Summarize an enriched or scored artifact",
	Long: `Prints aggregate website statistics for an enriched or scored
artifact. Unscored leads are scored on the fly. With --output, the leads
scoring within --min-score..--max-score are written to a new artifact.

Examples:
  outreach-cli report leads_enriched.csv
  outreach-cli report leads_scored.csv --min-score 60 -o hot_and_warm.csv`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if reportMinScore > reportMaxScore {
			return eris.Errorf("report: --min-score %d is above --max-score %d", reportMinScore, reportMaxScore)
		}
		ctx := cmd.Context()
		store := artifact.NewStore()

		tbl, err := store.Load(ctx, args[0])
		if err != nil {
			return err
		}
		if err := tbl.Require(model.FieldDomain); err != nil {
			return err
		}
		sc, err := scorer.New(cfg.Score)
		if err != nil {
			return err
		}

		sum := audit.Summarize(tbl.Leads, sc)
		out := cmd.OutOrStdout()
		if reportJSON {
			b, err := json.MarshalIndent(sum, "", "  ")
			if err != nil {
				return eris.Wrap(err, "report: encode summary")
			}
			fmt.Fprintln(out, string(b))
		} else {
			fmt.Fprintln(out, renderReport(sum))
		}

		if reportOutput == "" {
			return nil
		}
		kept := audit.FilterByScore(tbl.Leads, sc, reportMinScore, reportMaxScore)
		if err := store.Save(ctx, reportOutput, tbl.Header, kept); err != nil {
			return err
		}
		zap.L().Info("report: filtered export",
			zap.String("path", reportOutput),
			zap.Int("min_score", reportMinScore),
			zap.Int("max_score", reportMaxScore),
			zap.Int("kept", len(kept)),
			zap.Int("total", len(tbl.Leads)),
		)
		return nil
	},
}

// renderReport shows the summary as a statistics table plus the most
// common issues.
func renderReport(s audit.Summary) string {
	pct := func(n int) string {
		if s.Total == 0 {
			return "0"
		}
		return fmt.Sprintf("%d (%.1f%%)", n, float64(n)*100/float64(s.Total))
	}
	priorities := make([]string, 0, 4)
	for _, p := range []model.Priority{model.PriorityHot, model.PriorityWarm, model.PriorityCool, model.PriorityCold} {
		priorities = append(priorities, fmt.Sprintf("%s=%d", p, s.ByPriority[string(p)]))
	}

	rows := [][]string{
		{"Leads", strconv.Itoa(s.Total)},
		{"Enriched", pct(s.Enriched)},
		{"Site unavailable", pct(s.Unavailable)},
		{"With SSL", pct(s.WithSSL)},
		{"Mobile friendly", pct(s.MobileFriendly)},
		{"Outdated CMS", pct(s.OutdatedCMS)},
		{"Load time mean", fmt.Sprintf("%d ms", s.MeanLoadMs)},
		{"Load time median", fmt.Sprintf("%d ms", s.MedianLoadMs)},
		{"Avg score", fmt.Sprintf("%.1f", s.AvgScore)},
		{"Avg SEO", fmt.Sprintf("%.1f", s.AvgSEO)},
		{"Avg security", fmt.Sprintf("%.1f", s.AvgSecurity)},
		{"Avg accessibility", fmt.Sprintf("%.1f", s.AvgAccessibility)},
		{"Avg business", fmt.Sprintf("%.1f", s.AvgBusiness)},
		{"Priority", strings.Join(priorities, " ")},
	}
	var sb strings.Builder
	sb.WriteString(renderTable([]string{"Metric", "Value"}, rows, []columnAlignment{alignLeft, alignRight}))

	if len(s.TopIssues) > 0 {
		issues := make([][]string, 0, len(s.TopIssues))
		for _, ic := range s.TopIssues {
			issues = append(issues, []string{ic.Issue, strconv.Itoa(ic.Count)})
		}
		sb.WriteString("\n\n")
		sb.WriteString(renderTable([]string{"Issue", "Leads"}, issues, []columnAlignment{alignLeft, alignRight}))
	}
	return sb.String()
}

func init() {
	reportCmd.Flags().IntVar(&reportMinScore, "min-score", 0, "lowest score written with --output")
	reportCmd.Flags().IntVar(&reportMaxScore, "max-score", 100, "highest score written with --output")
	reportCmd.Flags().StringVarP(&reportOutput, "output", "o", "", "write leads within the score range to this artifact")
	reportCmd.Flags().BoolVar(&reportJSON, "json", false, "print the summary as JSON")
	rootCmd.AddCommand(reportCmd)
}
