package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"
	"trainer/internal/config"
	"trainer/internal/training"
	"trainer/pkg/dataset"
	"trainer/pkg/logger"
	"trainer/pkg/model"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// trainCommand constructs the 'train' subcommand: one-shot local training on
// the split CSVs produced by 'ingest'. Held-out metrics go to stdout and the
// fitted model can optionally be written to an artifact file.
func trainCommand(_ *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "train",
		Short: "Trains a model on local splits and prints held-out metrics",
		Run: func(cmd *cobra.Command, args []string) {
			ctx := context.Background()

			dataDir, _ := cmd.Flags().GetString("data")
			kindName, _ := cmd.Flags().GetString("model")
			out, _ := cmd.Flags().GetString("out")
			normalize, _ := cmd.Flags().GetBool("normalize")
			searchName, _ := cmd.Flags().GetString("search")
			folds, _ := cmd.Flags().GetInt("folds")
			iterations, _ := cmd.Flags().GetInt("iterations")
			seed, _ := cmd.Flags().GetInt64("seed")

			var params model.Params
			params.NumTrees, _ = cmd.Flags().GetInt("trees")
			params.MaxDepth, _ = cmd.Flags().GetInt("max-depth")
			params.MaxFeatures, _ = cmd.Flags().GetInt("max-features")
			params.MinLeaf, _ = cmd.Flags().GetInt("min-leaf")

			kind := model.Kind(kindName)
			if !kind.Valid() {
				logger.Fatal(ctx, "unknown model kind", zap.String("model", kindName))
			}

			trainTable, err := readSplit(filepath.Join(dataDir, "train.csv"))
			if err != nil {
				logger.Fatal(ctx, "could not read train split", zap.Error(err))
			}
			testTable, err := readSplit(filepath.Join(dataDir, "test.csv"))
			if err != nil {
				logger.Fatal(ctx, "could not read test split", zap.Error(err))
			}

			start := time.Now()

			pre, err := model.FitPreprocessor(trainTable, normalize)
			if err != nil {
				logger.Fatal(ctx, "could not fit preprocessing", zap.Error(err))
			}
			X, err := pre.Transform(trainTable)
			if err != nil {
				logger.Fatal(ctx, "could not transform train split", zap.Error(err))
			}
			y := trainTable.Labels()

			switch searchName {
			case "grid":
				var cvRMSE float64
				params, cvRMSE, err = model.GridSearch(ctx, kind, X, y, params, model.DefaultGrid(kind), folds, seed)
				logger.Info(ctx, "grid search finished", zap.Float64("cvRMSE", cvRMSE))
			case "random":
				var cvRMSE float64
				params, cvRMSE, err = model.RandomSearch(ctx, kind, X, y, params,
					model.DefaultRanges(kind), iterations, folds, seed)
				logger.Info(ctx, "random search finished", zap.Float64("cvRMSE", cvRMSE))
			case "none":
			default:
				logger.Fatal(ctx, "unknown search strategy", zap.String("search", searchName))
			}
			if err != nil {
				logger.Fatal(ctx, "could not search hyperparameters", zap.Error(err))
			}

			reg, err := model.Fit(ctx, kind, X, y, params, seed)
			if err != nil {
				logger.Fatal(ctx, "could not fit model", zap.Error(err))
			}
			trainSeconds := time.Since(start).Seconds()

			testX, err := pre.Transform(testTable)
			if err != nil {
				logger.Fatal(ctx, "could not transform test split", zap.Error(err))
			}
			pred := model.PredictBatch(reg, testX)
			want := testTable.Labels()

			fmt.Printf("rmse: %.2f\n", model.RMSE(pred, want)) //nolint: forbidigo
			fmt.Printf("mae: %.2f\n", model.MAE(pred, want))   //nolint: forbidigo
			fmt.Printf("r2: %.4f\n", model.R2(pred, want))     //nolint: forbidigo
			fmt.Printf("train seconds: %.2f\n", trainSeconds)  //nolint: forbidigo

			if out == "" {
				return
			}
			artifact, err := model.NewArtifact(kind, params, pre, reg)
			if err != nil {
				logger.Fatal(ctx, "could not build artifact", zap.Error(err))
			}
			encoded, err := model.Encode(artifact)
			if err != nil {
				logger.Fatal(ctx, "could not encode artifact", zap.Error(err))
			}
			if err := os.WriteFile(out, encoded, 0o644); err != nil {
				logger.Fatal(ctx, "could not write artifact", zap.Error(err))
			}
			logger.Info(ctx, "artifact written", zap.String("path", out))
		},
	}

	cmd.Flags().String("data", "data/processed", "Directory holding train.csv and test.csv")
	cmd.Flags().String("model", string(model.KindForest), "Model kind: linear, tree or forest")
	cmd.Flags().String("out", "", "Artifact output path (skipped when empty)")
	cmd.Flags().Bool("normalize", true, "Standardize features before fitting")
	cmd.Flags().Int("trees", 100, "Number of trees in a forest")
	cmd.Flags().Int("max-depth", 5, "Maximum tree depth, 0 means unbounded")
	cmd.Flags().Int("max-features", 6, "Candidate features per split, 0 means all")
	cmd.Flags().Int("min-leaf", 1, "Minimum samples per leaf")
	cmd.Flags().String("search", "none", "Hyperparameter search: none, grid or random")
	cmd.Flags().Int("folds", model.DefaultFolds, "Cross validation folds for search")
	cmd.Flags().Int("iterations", model.DefaultSearchIterations, "Random search samples")
	cmd.Flags().Int64("seed", training.DefaultSeed, "Seed for bootstrap and feature sampling")

	return cmd
}

func readSplit(path string) (dataset.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("could not open %s: %w", path, err)
	}
	defer func() {
		_ = f.Close()
	}()

	table, err := dataset.ReadCSV(f)
	if err != nil {
		return nil, fmt.Errorf("could not parse %s: %w", path, err)
	}

	return table, nil
}
