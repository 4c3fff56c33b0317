package worker

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"
	"trainer/internal/ingest"
	"trainer/pkg/dataset"
	"trainer/pkg/domain"
	"trainer/pkg/logger"
	"trainer/pkg/metrics"
	"trainer/pkg/objstore"
	"trainer/pkg/storage"

	"github.com/riverqueue/river"
	"go.uber.org/zap"
)

// ingestTimeout caps one ingestion attempt; the archive download dominates.
const ingestTimeout = 5 * time.Minute

const csvContentType = "text/csv"

// IngestWorker is the river worker behind dataset ingestion. One job downloads
// the dataset's source archive, parses the housing table, splits it by income
// stratum, uploads both splits to object storage, and marks the dataset row
// COMPLETED with the resulting counts and keys.
//
// Failures are recorded on the dataset row on every attempt; the row only
// flips to FAILED once river has exhausted the job's attempts, so a transient
// download error leaves the dataset PENDING for the retry. A dataset deleted
// while the job waited (or ran) cancels the job.
type IngestWorker struct {
	river.WorkerDefaults[ingest.JobArgs]

	storage  storage.Storage
	objstore objstore.Store
	fetcher  *dataset.Fetcher
	pipeline *metrics.Pipeline
}

// NewIngestWorker constructs an IngestWorker on top of the given storage,
// object store, archive fetcher, and pipeline instruments.
func NewIngestWorker(st storage.Storage,
	store objstore.Store,
	fetcher *dataset.Fetcher,
	pipeline *metrics.Pipeline) *IngestWorker {
	return &IngestWorker{
		storage:  st,
		objstore: store,
		fetcher:  fetcher,
		pipeline: pipeline,
	}
}

// Timeout bounds a single ingestion attempt.
func (w *IngestWorker) Timeout(*river.Job[ingest.JobArgs]) time.Duration {
	return ingestTimeout
}

// Work executes a single ingestion job.
func (w *IngestWorker) Work(ctx context.Context, job *river.Job[ingest.JobArgs]) error {
	ctx = logger.WithFields(ctx,
		zap.Int64("jobID", job.ID),
		zap.String("datasetID", job.Args.DatasetID))

	userID, raw, err := jobUUIDs(job.Args.UserID, job.Args.DatasetID)
	if err != nil {
		return river.JobCancel(err) //nolint: wrapcheck
	}
	datasetID := domain.DatasetID(raw)

	ds, err := w.storage.DatasetByID(ctx, userID, datasetID)
	if err != nil {
		return fmt.Errorf("could not get dataset: %w", err)
	}
	if ds == nil {
		logger.Info(ctx, "dataset is gone, canceling ingestion")

		return river.JobCancel(errors.New("dataset deleted")) //nolint: wrapcheck
	}
	// A retried job can find the work already done (e.g. a crash after the
	// final update committed).
	if ds.Status == domain.DatasetStatusCompleted {
		return nil
	}

	if err := w.ingest(ctx, ds); err != nil {
		var cancel *river.JobCancelError
		if errors.As(err, &cancel) {
			return err
		}

		w.markFailed(ctx, ds.ID, job.MaxAttempts, err)
		logger.Error(ctx, "ingestion failed", zap.Error(err))

		return fmt.Errorf("could not ingest dataset: %w", err)
	}

	return nil
}

func (w *IngestWorker) ingest(ctx context.Context, ds *domain.Dataset) error {
	logger.Info(ctx, "downloading source archive", zap.String("url", ds.SourceURL))

	table, err := w.fetcher.FetchTable(ctx, ds.SourceURL, nil)
	if err != nil {
		return fmt.Errorf("could not fetch source table: %w", err)
	}

	train, test, err := dataset.Split(table, dataset.SplitOptions{
		TestFraction: ds.TestFraction,
		Seed:         ds.Seed,
	})
	if err != nil {
		return fmt.Errorf("could not split table: %w", err)
	}

	trainKey := fmt.Sprintf("datasets/%s/train.csv", ds.ID)
	testKey := fmt.Sprintf("datasets/%s/test.csv", ds.ID)
	if err := w.putSplit(ctx, trainKey, train); err != nil {
		return err
	}
	if err := w.putSplit(ctx, testKey, test); err != nil {
		return err
	}

	rows, trainRows, testRows := int64(len(table)), int64(len(train)), int64(len(test))
	noErr := ""
	updated, err := w.storage.UpdateDatasetByID(ctx, ds.ID, storage.DatasetUpdates{
		Status:    domain.DatasetStatusCompleted,
		Rows:      &rows,
		TrainRows: &trainRows,
		TestRows:  &testRows,
		TrainKey:  &trainKey,
		TestKey:   &testKey,
		LastError: &noErr,
	})
	if err != nil {
		return fmt.Errorf("could not update dataset: %w", err)
	}
	if updated == nil {
		// Deleted while we were downloading; drop the orphan splits.
		_ = w.objstore.Delete(ctx, trainKey)
		_ = w.objstore.Delete(ctx, testKey)

		return river.JobCancel(errors.New("dataset deleted during ingestion")) //nolint: wrapcheck
	}

	w.pipeline.RowsIngested.Add(ctx, rows)
	logger.Info(ctx, "dataset ingested",
		zap.Int64("rows", rows),
		zap.Int64("trainRows", trainRows),
		zap.Int64("testRows", testRows))

	return nil
}

func (w *IngestWorker) putSplit(ctx context.Context, key string, table dataset.Table) error {
	var buf bytes.Buffer
	if err := dataset.WriteCSV(&buf, table); err != nil {
		return fmt.Errorf("could not encode split %s: %w", key, err)
	}

	if _, err := w.objstore.Put(ctx, key, csvContentType, &buf, int64(buf.Len())); err != nil {
		return fmt.Errorf("could not store split %s: %w", key, err)
	}

	return nil
}

// markFailed records the attempt's error on the dataset row. The MaxAttempts
// guard keeps the status PENDING until river has used up every attempt. The
// update must go through even when the attempt died of the job context, so it
// runs without that cancellation.
func (w *IngestWorker) markFailed(ctx context.Context, id domain.DatasetID, maxAttempts int, cause error) {
	ctx = context.WithoutCancel(ctx)

	msg := cause.Error()
	updated, err := w.storage.UpdateDatasetByID(ctx, id, storage.DatasetUpdates{
		Status:      domain.DatasetStatusFailed,
		LastError:   &msg,
		MaxAttempts: maxAttempts,
	})
	if err != nil {
		logger.Error(ctx, "could not record ingestion failure", zap.Error(err))

		return
	}

	if updated != nil && updated.Status == domain.DatasetStatusFailed {
		w.pipeline.DatasetsFailed.Add(ctx, 1)
	}
}
