package worker

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"
	"trainer/internal/training"
	"trainer/pkg/dataset"
	"trainer/pkg/domain"
	"trainer/pkg/logger"
	"trainer/pkg/metrics"
	"trainer/pkg/model"
	"trainer/pkg/objstore"
	"trainer/pkg/storage"

	"github.com/riverqueue/river"
	"go.uber.org/zap"
)

// trainTimeout caps one training attempt; cross-validated searches over the
// full table dominate.
const trainTimeout = 15 * time.Minute

// ingestWait is how long a training job snoozes while its dataset is still
// being ingested.
const ingestWait = 15 * time.Second

const artifactContentType = "application/json"

// TrainWorker is the river worker behind model training. One job loads the
// dataset's stored splits, fits the requested model (running the configured
// hyperparameter search first), evaluates it on the held-out split, uploads
// the encoded artifact, and marks the run COMPLETED with its metrics.
//
// A run whose dataset is still PENDING snoozes until ingestion finishes. A
// deleted run or dataset cancels the job; a failed dataset fails the run
// immediately since no retry can fix it.
type TrainWorker struct {
	river.WorkerDefaults[training.JobArgs]

	storage  storage.Storage
	objstore objstore.Store
	pipeline *metrics.Pipeline
}

// NewTrainWorker constructs a TrainWorker on top of the given storage, object
// store, and pipeline instruments.
func NewTrainWorker(st storage.Storage, store objstore.Store, pipeline *metrics.Pipeline) *TrainWorker {
	return &TrainWorker{
		storage:  st,
		objstore: store,
		pipeline: pipeline,
	}
}

// Timeout bounds a single training attempt.
func (w *TrainWorker) Timeout(*river.Job[training.JobArgs]) time.Duration {
	return trainTimeout
}

// Work executes a single training job.
func (w *TrainWorker) Work(ctx context.Context, job *river.Job[training.JobArgs]) error {
	ctx = logger.WithFields(ctx,
		zap.Int64("jobID", job.ID),
		zap.String("runID", job.Args.RunID))

	userID, raw, err := jobUUIDs(job.Args.UserID, job.Args.RunID)
	if err != nil {
		return river.JobCancel(err) //nolint: wrapcheck
	}
	runID := domain.RunID(raw)

	run, err := w.storage.RunByID(ctx, userID, runID)
	if err != nil {
		return fmt.Errorf("could not get run: %w", err)
	}
	if run == nil {
		logger.Info(ctx, "run is gone, canceling training")

		return river.JobCancel(errors.New("run deleted")) //nolint: wrapcheck
	}
	// A retried job can find the work already done (e.g. a crash after the
	// final update committed).
	if run.Status == domain.RunStatusCompleted {
		return nil
	}

	ds, err := w.storage.DatasetByID(ctx, userID, run.DatasetID)
	if err != nil {
		return fmt.Errorf("could not get dataset: %w", err)
	}
	switch {
	case ds == nil:
		return w.giveUp(ctx, run.ID, errors.New("dataset deleted"))
	case ds.Status == domain.DatasetStatusFailed:
		return w.giveUp(ctx, run.ID, errors.New("dataset ingestion failed"))
	case ds.Status == domain.DatasetStatusPending:
		logger.Info(ctx, "dataset still ingesting, snoozing", zap.Duration("for", ingestWait))

		return river.JobSnooze(ingestWait) //nolint: wrapcheck
	}

	w.pipeline.RunsStarted.Add(ctx, 1)

	runMetrics, artifactKey, err := w.train(ctx, run, ds)
	if err != nil {
		w.markFailed(ctx, run.ID, job.MaxAttempts, err)
		logger.Error(ctx, "training failed", zap.Error(err))

		return fmt.Errorf("could not train run: %w", err)
	}

	noErr := ""
	updated, err := w.storage.UpdateRunByID(ctx, run.ID, storage.RunUpdates{
		Status:      domain.RunStatusCompleted,
		Metrics:     runMetrics,
		ArtifactKey: &artifactKey,
		LastError:   &noErr,
	})
	if err != nil {
		return fmt.Errorf("could not update run: %w", err)
	}
	if updated == nil {
		// Deleted while training; drop the orphan artifact.
		_ = w.objstore.Delete(ctx, artifactKey)

		return river.JobCancel(errors.New("run deleted during training")) //nolint: wrapcheck
	}

	w.pipeline.RunsCompleted.Add(ctx, 1)
	w.pipeline.TrainingDuration.Record(ctx, runMetrics.TrainSeconds)
	logger.Info(ctx, "run trained",
		zap.Float64("rmse", runMetrics.RMSE),
		zap.Float64("mae", runMetrics.MAE),
		zap.Float64("r2", runMetrics.R2),
		zap.Float64("trainSeconds", runMetrics.TrainSeconds))

	return nil
}

// train fits and evaluates the run's model and uploads the artifact. It
// returns the held-out metrics and the artifact's object key.
func (w *TrainWorker) train(ctx context.Context,
	run *domain.Run,
	ds *domain.Dataset) (*domain.RunMetrics, string, error) {
	trainTable, err := w.loadSplit(ctx, ds.TrainKey)
	if err != nil {
		return nil, "", err
	}
	testTable, err := w.loadSplit(ctx, ds.TestKey)
	if err != nil {
		return nil, "", err
	}

	start := time.Now()

	pre, err := model.FitPreprocessor(trainTable, run.Params.Normalize)
	if err != nil {
		return nil, "", fmt.Errorf("could not fit preprocessing: %w", err)
	}
	X, err := pre.Transform(trainTable)
	if err != nil {
		return nil, "", fmt.Errorf("could not transform train split: %w", err)
	}
	y := trainTable.Labels()

	kind := model.Kind(run.Model)
	params, err := w.searchParams(ctx, kind, X, y, run.Params)
	if err != nil {
		return nil, "", err
	}

	reg, err := model.Fit(ctx, kind, X, y, params, run.Params.Seed)
	if err != nil {
		return nil, "", fmt.Errorf("could not fit model: %w", err)
	}
	trainSeconds := time.Since(start).Seconds()

	testX, err := pre.Transform(testTable)
	if err != nil {
		return nil, "", fmt.Errorf("could not transform test split: %w", err)
	}
	pred := model.PredictBatch(reg, testX)
	want := testTable.Labels()
	runMetrics := &domain.RunMetrics{
		RMSE:         model.RMSE(pred, want),
		MAE:          model.MAE(pred, want),
		R2:           model.R2(pred, want),
		TrainSeconds: trainSeconds,
	}

	artifact, err := model.NewArtifact(kind, params, pre, reg)
	if err != nil {
		return nil, "", fmt.Errorf("could not build artifact: %w", err)
	}
	encoded, err := model.Encode(artifact)
	if err != nil {
		return nil, "", fmt.Errorf("could not encode artifact: %w", err)
	}

	key := fmt.Sprintf("artifacts/%s.json", run.ID)
	if _, err := w.objstore.Put(ctx, key, artifactContentType,
		bytes.NewReader(encoded), int64(len(encoded))); err != nil {
		return nil, "", fmt.Errorf("could not store artifact %s: %w", key, err)
	}

	return runMetrics, key, nil
}

// searchParams resolves the final hyperparameters, cross-validating the run's
// search space when one was requested.
func (w *TrainWorker) searchParams(ctx context.Context,
	kind model.Kind,
	X [][]float64,
	y []float64,
	p domain.RunParams) (model.Params, error) {
	base := model.Params{
		NumTrees:    p.NumTrees,
		MaxDepth:    p.MaxDepth,
		MaxFeatures: p.MaxFeatures,
		MinLeaf:     p.MinLeaf,
	}

	var (
		best  model.Params
		score float64
		err   error
	)
	switch p.Search {
	case domain.SearchGrid:
		best, score, err = model.GridSearch(ctx, kind, X, y, base, model.DefaultGrid(kind), p.Folds, p.Seed)
	case domain.SearchRandom:
		best, score, err = model.RandomSearch(ctx, kind, X, y, base,
			model.DefaultRanges(kind), p.SearchIterations, p.Folds, p.Seed)
	default:
		return base, nil
	}
	if err != nil {
		return model.Params{}, fmt.Errorf("could not search hyperparameters: %w", err)
	}

	logger.Info(ctx, "hyperparameter search finished",
		zap.String("search", string(p.Search)),
		zap.Float64("cvRMSE", score),
		zap.Int("numTrees", best.NumTrees),
		zap.Int("maxDepth", best.MaxDepth),
		zap.Int("maxFeatures", best.MaxFeatures),
		zap.Int("minLeaf", best.MinLeaf))

	return best, nil
}

func (w *TrainWorker) loadSplit(ctx context.Context, key string) (dataset.Table, error) {
	rc, err := w.objstore.Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("could not fetch split %s: %w", key, err)
	}
	defer func() {
		_ = rc.Close()
	}()

	table, err := dataset.ReadCSV(rc)
	if err != nil {
		return nil, fmt.Errorf("could not parse split %s: %w", key, err)
	}

	return table, nil
}

// giveUp fails the run immediately (no attempts guard, retries cannot fix the
// cause) and cancels the job.
func (w *TrainWorker) giveUp(ctx context.Context, id domain.RunID, cause error) error {
	msg := cause.Error()
	if _, err := w.storage.UpdateRunByID(ctx, id, storage.RunUpdates{
		Status:    domain.RunStatusFailed,
		LastError: &msg,
	}); err != nil {
		return fmt.Errorf("could not record run failure: %w", err)
	}

	w.pipeline.RunsFailed.Add(ctx, 1)
	logger.Info(ctx, "run cannot be trained, canceling", zap.Error(cause))

	return river.JobCancel(cause) //nolint: wrapcheck
}

// markFailed records the attempt's error on the run row. The MaxAttempts
// guard keeps the status PENDING until river has used up every attempt. The
// update must go through even when the attempt died of the job context, so it
// runs without that cancellation.
func (w *TrainWorker) markFailed(ctx context.Context, id domain.RunID, maxAttempts int, cause error) {
	ctx = context.WithoutCancel(ctx)

	msg := cause.Error()
	updated, err := w.storage.UpdateRunByID(ctx, id, storage.RunUpdates{
		Status:      domain.RunStatusFailed,
		LastError:   &msg,
		MaxAttempts: maxAttempts,
	})
	if err != nil {
		logger.Error(ctx, "could not record training failure", zap.Error(err))

		return
	}

	if updated != nil && updated.Status == domain.RunStatusFailed {
		w.pipeline.RunsFailed.Add(ctx, 1)
	}
}
