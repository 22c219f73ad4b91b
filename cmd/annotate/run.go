package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/quantfold/commentary-annotator/internal/cli"
	"github.com/quantfold/commentary-annotator/internal/common"
	"github.com/quantfold/commentary-annotator/internal/config"
	"github.com/quantfold/commentary-annotator/internal/corpus"
	"github.com/quantfold/commentary-annotator/internal/model"
	"github.com/quantfold/commentary-annotator/internal/session"
	"github.com/quantfold/commentary-annotator/internal/tui"
)

func runCmd() *cobra.Command {
	var annotator string
	var useTUI bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Start an interactive annotation session",
		Long: `Start (or resume) an annotation session for the given annotator.

The first session for a new annotator fixes a private random order over the
corpus; every later session resumes from the first task without a recorded
decision.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			cfg, err := config.FromViper()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("tui") {
				if useTUI {
					cfg.UIMode = config.UITUI
				} else {
					cfg.UIMode = config.UIPlain
				}
			}

			corpusStore, err := corpus.Load(cfg.CorpusDir)
			if err != nil {
				if errors.Is(err, common.ErrCorpusEmpty) || errors.Is(err, common.ErrCorpusNotFound) {
					// Terminal "nothing to annotate" state, not a crash.
					fmt.Println(cli.FormatInfo("No commentaries to annotate."))
					return nil
				}
				return err
			}

			companies := loadCompanies(cfg.CompaniesPath)

			store, err := cfg.OpenStore(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			var prompter session.Prompter
			if cfg.UIMode == config.UITUI {
				prompter = tui.NewPrompter(companies)
			} else {
				prompter = cli.NewPrompter(nil, nil, companies)
			}

			driver, err := session.NewDriver(store, corpusStore, prompter, annotator)
			if err != nil {
				return err
			}

			return driver.Run(ctx)
		},
	}

	cmd.Flags().StringVar(&annotator, "annotator", "", "annotator name (required)")
	cmd.Flags().BoolVar(&useTUI, "tui", false, "use the full-screen annotation form")
	_ = cmd.MarkFlagRequired("annotator")

	return cmd
}

// loadCompanies loads the reference list, degrading to an empty list with a
// warning so a missing file does not block annotation.
func loadCompanies(path string) []model.Company {
	companies, err := corpus.LoadCompanies(path)
	if err != nil {
		common.LogWarn("company reference list unavailable, code validation disabled", common.Fields{
			"path":  path,
			"error": err.Error(),
		})
		return nil
	}
	return companies
}
