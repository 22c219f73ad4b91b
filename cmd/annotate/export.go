package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/quantfold/commentary-annotator/internal/cli"
	"github.com/quantfold/commentary-annotator/internal/config"
	"github.com/quantfold/commentary-annotator/internal/model"
)

func exportCmd() *cobra.Command {
	var annotator string
	var out string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export an annotator's decisions as a single JSON file",
		Long: `Collect every decision record for an annotator into one JSON array,
written to {annotator}_decision.json unless --out is given.`,
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

			key := model.NormalizeAnnotator(annotator)
			records, err := store.ListDecisions(ctx, key)
			if err != nil {
				return err
			}

			if len(records) == 0 {
				fmt.Println(cli.FormatInfo(fmt.Sprintf("No decisions recorded for %s.", key)))
				return nil
			}

			data, err := json.MarshalIndent(records, "", "  ")
			if err != nil {
				return fmt.Errorf("failed to encode decisions: %w", err)
			}
			data = append(data, '\n')

			if out == "" {
				out = key + "_decision.json"
			}
			if out == "-" {
				_, err := os.Stdout.Write(data)
				return err
			}

			if err := os.WriteFile(out, data, 0o644); err != nil {
				return fmt.Errorf("failed to write export file: %w", err)
			}

			fmt.Println(cli.FormatSuccess(fmt.Sprintf("Exported %d decisions to %s", len(records), out)))
			return nil
		},
	}

	cmd.Flags().StringVar(&annotator, "annotator", "", "annotator name (required)")
	cmd.Flags().StringVar(&out, "out", "", "output path (- for stdout)")
	_ = cmd.MarkFlagRequired("annotator")

	return cmd
}
