package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"trainer/internal/config"
	"trainer/pkg/dataset"
	"trainer/pkg/logger"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// downloadProgress adapts the fetcher's progress callback to a terminal
// progress bar, created lazily once the total size is known.
func downloadProgress() dataset.Progress {
	var bar *progressbar.ProgressBar

	return func(read, total int64) {
		if bar == nil {
			bar = progressbar.DefaultBytes(total, "downloading")
		}
		_ = bar.Set64(read)
	}
}

// ingestCommand constructs the 'ingest' subcommand: a one-shot local pipeline
// that fetches the housing archive and writes stratified train/test splits to
// disk, without touching PostgreSQL or the object store.
func ingestCommand(_ *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Downloads the dataset and writes train/test splits to disk",
		Run: func(cmd *cobra.Command, args []string) {
			ctx := context.Background()

			inputDir, _ := cmd.Flags().GetString("input")
			outputDir, _ := cmd.Flags().GetString("output")
			url, _ := cmd.Flags().GetString("url")
			testFraction, _ := cmd.Flags().GetFloat64("test-fraction")
			seed, _ := cmd.Flags().GetInt64("seed")

			path, err := dataset.NewFetcher(nil).EnsureFile(ctx, url, inputDir, "housing", downloadProgress())
			if err != nil {
				logger.Fatal(ctx, "could not fetch dataset", zap.Error(err))
			}
			logger.Info(ctx, "raw dataset ready", zap.String("path", path))

			f, err := os.Open(path)
			if err != nil {
				logger.Fatal(ctx, "could not open raw dataset", zap.Error(err))
			}
			table, err := dataset.ReadCSV(f)
			_ = f.Close()
			if err != nil {
				logger.Fatal(ctx, "could not parse raw dataset", zap.Error(err))
			}

			train, test, err := dataset.Split(table, dataset.SplitOptions{
				TestFraction: testFraction,
				Seed:         seed,
			})
			if err != nil {
				logger.Fatal(ctx, "could not split dataset", zap.Error(err))
			}
			logger.Info(ctx, "dataset split",
				zap.Int("rows", len(table)),
				zap.Int("trainRows", len(train)),
				zap.Int("testRows", len(test)))

			if err := os.MkdirAll(outputDir, 0o755); err != nil {
				logger.Fatal(ctx, "could not create output directory", zap.Error(err))
			}
			if err := writeSplit(filepath.Join(outputDir, "train.csv"), train); err != nil {
				logger.Fatal(ctx, "could not write train split", zap.Error(err))
			}
			if err := writeSplit(filepath.Join(outputDir, "test.csv"), test); err != nil {
				logger.Fatal(ctx, "could not write test split", zap.Error(err))
			}
			logger.Info(ctx, "splits written", zap.String("dir", outputDir))
		},
	}

	cmd.Flags().String("input", "data/raw", "Directory holding the raw CSV")
	cmd.Flags().String("output", "data/processed", "Directory for train.csv and test.csv")
	cmd.Flags().String("url", dataset.DefaultSourceURL, "Dataset archive URL")
	cmd.Flags().Float64("test-fraction", dataset.DefaultTestFraction, "Share of rows held out for the test split")
	cmd.Flags().Int64("seed", dataset.DefaultSeed, "Seed for the stratified shuffle")

	return cmd
}

func writeSplit(path string, table dataset.Table) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("could not create %s: %w", path, err)
	}
	if err := dataset.WriteCSV(f, table); err != nil {
		_ = f.Close()

		return fmt.Errorf("could not write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("could not close %s: %w", path, err)
	}

	return nil
}
