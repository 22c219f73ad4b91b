package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/quantfold/commentary-annotator/internal/cli"
	"github.com/quantfold/commentary-annotator/internal/common"
	"github.com/quantfold/commentary-annotator/internal/config"
	"github.com/quantfold/commentary-annotator/internal/storage"
)

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Copy file-store results into the SQLite backend",
		Long: `Copy every persisted order and decision record from the file store into
the SQLite database, so a deployment can switch storage.backend to "sqlite"
without losing progress. Orders already present in SQLite are kept; decision
records are copied over.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			cfg, err := config.FromViper()
			if err != nil {
				return err
			}

			src, err := storage.NewFileStore(cfg.ResultsDir)
			if err != nil {
				return err
			}

			dst, err := storage.NewSQLiteStore(cfg.DatabasePath)
			if err != nil {
				return err
			}
			defer func() { _ = dst.Close() }()
			if err := dst.Migrate(ctx); err != nil {
				return err
			}

			annotators, err := src.Annotators(ctx)
			if err != nil {
				return err
			}
			if len(annotators) == 0 {
				fmt.Println(cli.FormatInfo("Nothing to migrate."))
				return nil
			}

			copied := 0
			for _, name := range annotators {
				n, err := migrateAnnotator(ctx, src, dst, name)
				if err != nil {
					return fmt.Errorf("failed to migrate %s: %w", name, err)
				}
				copied += n
			}

			fmt.Println(cli.FormatSuccess(fmt.Sprintf(
				"Migrated %d decision records for %d annotators into %s",
				copied, len(annotators), cfg.DatabasePath)))
			return nil
		},
	}

	return cmd
}

func migrateAnnotator(ctx context.Context, src *storage.FileStore, dst *storage.SQLiteStore, annotator string) (int, error) {
	order, err := src.GetOrder(ctx, annotator)
	if err != nil && !errors.Is(err, common.ErrNotFound) {
		return 0, err
	}
	if err == nil {
		// CreateOrder is a no-op when the destination already has one.
		if _, err := dst.CreateOrder(ctx, annotator, order); err != nil {
			return 0, err
		}
	}

	records, err := src.ListDecisions(ctx, annotator)
	if err != nil {
		return 0, err
	}
	if len(records) == 0 {
		return 0, nil
	}

	bar := progressbar.NewOptions(len(records),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(40),
		progressbar.OptionSetDescription(fmt.Sprintf("Migrating %s...", annotator)),
	)

	copied := 0
	for _, record := range records {
		id, err := record.TaskID()
		if err != nil {
			common.LogWarn("skipping decision with unparsable identity", common.Fields{
				"annotator": annotator,
				"date":      record.Date,
				"error":     err.Error(),
			})
			continue
		}

		if err := dst.SaveDecision(ctx, annotator, id, record); err != nil {
			return copied, err
		}
		copied++

		if err := bar.Add(1); err != nil {
			slog.Warn("Failed to update progress bar", "error", err)
		}
	}

	fmt.Println()
	return copied, nil
}
