package main

import (
	"errors"
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"github.com/quantfold/commentary-annotator/internal/cli"
	"github.com/quantfold/commentary-annotator/internal/common"
	"github.com/quantfold/commentary-annotator/internal/config"
	"github.com/quantfold/commentary-annotator/internal/model"
	"github.com/quantfold/commentary-annotator/internal/scheduler"
)

func statusCmd() *cobra.Command {
	var annotator string

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show annotation progress",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			cfg, err := config.FromViper()
			if err != nil {
				return err
			}

			store, err := cfg.OpenStore(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			var annotators []string
			if annotator != "" {
				annotators = []string{model.NormalizeAnnotator(annotator)}
			} else {
				annotators, err = store.Annotators(ctx)
				if err != nil {
					return err
				}
			}

			if len(annotators) == 0 {
				fmt.Println(cli.FormatInfo("No annotators yet."))
				return nil
			}

			sched := scheduler.New(store)

			tw := table.NewWriter()
			tw.SetStyle(table.StyleRounded)
			tw.AppendHeader(table.Row{"Annotator", "Completed", "Total", "Progress", "Next Task"})
			tw.SetColumnConfigs([]table.ColumnConfig{
				{Number: 2, Align: text.AlignRight},
				{Number: 3, Align: text.AlignRight},
				{Number: 4, Align: text.AlignRight},
			})

			for _, name := range annotators {
				a, err := sched.Progress(ctx, name)
				if errors.Is(err, common.ErrNotFound) {
					tw.AppendRow(table.Row{name, 0, 0, "0.0%", "— not started —"})
					continue
				}
				if err != nil {
					return fmt.Errorf("failed to compute progress for %s: %w", name, err)
				}

				next := a.TaskID
				if a.Done {
					next = "— all done —"
				}
				pct := "0.0%"
				if a.Total > 0 {
					pct = fmt.Sprintf("%.1f%%", float64(a.Completed)/float64(a.Total)*100)
				}

				tw.AppendRow(table.Row{name, a.Completed, a.Total, pct, next})
			}

			fmt.Println(tw.Render())
			return nil
		},
	}

	cmd.Flags().StringVar(&annotator, "annotator", "", "show a single annotator")

	return cmd
}
