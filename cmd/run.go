package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/outreach-cli/internal/artifact"
	"github.com/sells-group/outreach-cli/internal/enrich"
	"github.com/sells-group/outreach-cli/internal/model"
	"github.com/sells-group/outreach-cli/internal/personalize"
	"github.com/sells-group/outreach-cli/internal/pipeline"
)

var (
	runStep    string
	runOutput  string
	runSkipAI  bool
	runOffline bool
)

var runCmd = &cobra.Command{
	Use:   "run <input>",
	Short: "Run the lead pipeline or a single stage",
	Long: `Runs every stage from a raw export, or one stage with --step.

Each stage writes <stem>_<stage>.csv next to its input, plus
<output>_failed.csv when records were rejected. Re-run any stage by
pointing it at the previous stage's artifact.

Examples:
  # Full pipeline without AI personalization
  outreach-cli run leads.csv --skip-ai

  # Re-score an enriched file
  outreach-cli run leads_enriched.csv --step score

  # Offline run with stubbed website and model clients
  outreach-cli run leads.csv --offline`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		input := args[0]

		var names []pipeline.StageName
		if runStep != "" {
			name, err := pipeline.ParseStageName(runStep)
			if err != nil {
				return err
			}
			names = append(names, name)
		}

		if err := cfg.Validate("run"); err != nil {
			return err
		}

		ctx, cancel := context.WithCancel(cmd.Context())
		defer cancel()
		stop := pipeline.NewStopSignal()
		release := handleSignals(stop, cancel)
		defer release()

		deps := pipeline.Deps{SkipAI: runSkipAI, Stop: stop}
		if runOffline {
			deps.Enricher = offlineEnricher()
			deps.Personalizer = &personalize.StubClient{}
		}

		stages, err := pipeline.BuildStages(ctx, cfg, deps, names...)
		if err != nil {
			return err
		}
		driver := pipeline.NewDriver(artifact.NewStore(), stages, stop)

		var rep *pipeline.Report
		if len(names) == 1 {
			rep, err = driver.RunStage(ctx, names[0], input, runOutput)
		} else {
			rep, err = driver.RunAll(ctx, input, runOutput)
		}
		if rep != nil && len(rep.Stages) > 0 {
			fmt.Fprintln(cmd.OutOrStdout(), renderSummary(rep))
		}
		if err != nil {
			return err
		}
		if rep.Halted {
			fmt.Fprintf(cmd.OutOrStdout(), "No records left after %s; stopped early.\n", rep.Last().Stage)
		}
		return nil
	},
}

// handleSignals stops handing out records on the first SIGINT/SIGTERM and
// cancels in-flight requests on the second.
func handleSignals(stop *pipeline.StopSignal, cancel context.CancelFunc) func() {
	ch := make(chan os.Signal, 2)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	done := make(chan struct{})

	go func() {
		count := 0
		for {
			select {
			case <-done:
				return
			case sig := <-ch:
				count++
				if count == 1 {
					zap.L().Warn("stopping after in-flight records finish; signal again to abort",
						zap.String("signal", sig.String()))
					stop.Stop()
					continue
				}
				zap.L().Warn("aborting in-flight requests", zap.String("signal", sig.String()))
				cancel()
				return
			}
		}
	}()

	return func() {
		signal.Stop(ch)
		close(done)
	}
}

// offlineEnricher reports the same middling website for every lead.
func offlineEnricher() enrich.Client {
	return &enrich.StubClient{Fixed: map[model.Category]enrich.Signals{
		model.CategoryPerformance: {
			model.FieldLoadTimeMs:       "2400",
			model.FieldPerformanceGrade: "C",
		},
		model.CategorySecurity: {
			model.FieldHasSSL:        "true",
			model.FieldSecurityScore: "40",
		},
		model.CategorySEO: {
			model.FieldMetaDescription: "",
			model.FieldHasOGTags:       "false",
			model.FieldH1Count:         "1",
		},
		model.CategoryMobile: {
			model.FieldIsMobileFriendly: "true",
		},
		model.CategoryBusiness: {
			model.FieldHasContactPage: "true",
			model.FieldHasPhoneNumber: "false",
		},
	}}
}

func init() {
	runCmd.Flags().StringVar(&runStep, "step", "", "run only this stage (clean|scrape|score|emails|personalize|sequence)")
	runCmd.Flags().StringVarP(&runOutput, "output", "o", "", "output artifact path (the final stage's in a full run)")
	runCmd.Flags().BoolVar(&runSkipAI, "skip-ai", false, "copy drafts to final emails without calling a model")
	runCmd.Flags().BoolVar(&runOffline, "offline", false, "use stub website and model clients")
	rootCmd.AddCommand(runCmd)
}
