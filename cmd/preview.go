package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sells-group/outreach-cli/internal/artifact"
	"github.com/sells-group/outreach-cli/internal/model"
	"github.com/sells-group/outreach-cli/internal/sequence"
)

var (
	previewCount int
	previewSteps int
)

var previewCmd = &cobra.Command{
	Use:   "preview <sequenced.csv>",
	Short: "Print the emails a sequenced artifact will send",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		tbl, err := artifact.NewStore().Load(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if err := tbl.Require(model.FieldEmail, model.FieldFinalSubject, model.FieldFinalBody); err != nil {
			return err
		}

		leads := tbl.Leads
		if previewCount > 0 && previewCount < len(leads) {
			leads = leads[:previewCount]
		}

		out := cmd.OutOrStdout()
		rows := make([][]string, 0, len(leads))
		for _, l := range leads {
			rows = append(rows, []string{
				l.Get(model.FieldCompanyName),
				l.Get(model.FieldEmail),
				l.Get(model.FieldScore),
				l.Get(model.FieldPriority),
				l.Get(model.FieldPersonalizationStatus),
			})
		}
		fmt.Fprintln(out, renderTable(
			[]string{"Company", "Email", "Score", "Priority", "Personalization"},
			rows,
			[]columnAlignment{alignLeft, alignLeft, alignRight, alignLeft, alignLeft},
		))

		for _, l := range leads {
			fmt.Fprintln(out)
			fmt.Fprintln(out, renderEmail(l, previewSteps))
		}
		return nil
	},
}

// renderEmail formats the first steps of l's sequence for reading.
func renderEmail(l *model.Lead, steps int) string {
	if steps < 1 {
		steps = 1
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "TO: %s\n", l.Get(model.FieldEmail))
	for n := 1; n <= steps; n++ {
		subject, body, err := sequence.Preview(l, n)
		if err != nil {
			break
		}
		day := l.Get(model.FieldSequenceDayOffset)
		if n > 1 {
			day = l.Get(model.StepField(n, "day"))
		}
		if day != "" {
			fmt.Fprintf(&sb, "\n--- step %d (day %s) ---\n", n, day)
		} else {
			fmt.Fprintf(&sb, "\n--- step %d ---\n", n)
		}
		fmt.Fprintf(&sb, "SUBJECT: %s\n\n%s\n", subject, body)
	}
	return sb.String()
}

func init() {
	previewCmd.Flags().IntVarP(&previewCount, "count", "n", 3, "number of leads to preview (0 for all)")
	previewCmd.Flags().IntVar(&previewSteps, "steps", 1, "number of sequence steps to show per lead")
	rootCmd.AddCommand(previewCmd)
}
