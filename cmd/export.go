package main

import (
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/outreach-cli/internal/artifact"
	"github.com/sells-group/outreach-cli/internal/model"
	"github.com/sells-group/outreach-cli/internal/sequence"
)

var (
	exportOutput    string
	exportTemplates string
)

var exportCmd = &cobra.Command{
	Use:   "export <sequenced.csv>",
	Short: "Write an Instantly upload CSV and a template reference",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		store := artifact.NewStore()

		tbl, err := store.Load(ctx, args[0])
		if err != nil {
			return err
		}
		if err := tbl.Require(model.FieldEmail, model.FieldCompanyName, model.FieldDomain); err != nil {
			return err
		}

		output := exportOutput
		if output == "" {
			output = filepath.Join(filepath.Dir(args[0]), "instantly_upload.csv")
		}
		rows := make([]*model.Lead, 0, len(tbl.Leads))
		byPriority := make(map[string]int)
		for _, l := range tbl.Leads {
			rows = append(rows, sequence.ToInstantly(l))
			byPriority[l.Get(model.FieldPriority)]++
		}
		if err := store.Save(ctx, output, sequence.InstantlyColumns, rows); err != nil {
			return err
		}

		b, err := sequence.New(cfg.Sequence)
		if err != nil {
			return err
		}
		templates := exportTemplates
		if templates == "" {
			templates = filepath.Join(filepath.Dir(output), "email_templates.txt")
		}
		f, err := os.Create(templates)
		if err != nil {
			return eris.Wrapf(err, "export: create %s", templates)
		}
		if err := sequence.WriteTemplates(f, b.Cadence()); err != nil {
			_ = f.Close()
			return err
		}
		if err := f.Close(); err != nil {
			return eris.Wrapf(err, "export: close %s", templates)
		}

		zap.L().Info("export: complete",
			zap.String("path", output),
			zap.String("templates", templates),
			zap.Int("leads", len(rows)),
			zap.Int("hot", byPriority["hot"]),
			zap.Int("warm", byPriority["warm"]),
			zap.Int("cool", byPriority["cool"]),
			zap.Int("cold", byPriority["cold"]),
		)
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "upload CSV path (default instantly_upload.csv beside the input)")
	exportCmd.Flags().StringVar(&exportTemplates, "templates", "", "template reference path (default email_templates.txt beside the output)")
	rootCmd.AddCommand(exportCmd)
}
