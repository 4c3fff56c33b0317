// Package worker runs the background pipeline: river workers that ingest
// dataset archives and train models, reporting progress back to the database
// and object storage.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"trainer/internal/config"
	"trainer/internal/ingest"
	"trainer/internal/training"
	"trainer/pkg/domain"
	"trainer/pkg/logger"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"
	"go.uber.org/zap/exp/zapslog"
)

// Start registers the ingest and training workers and starts the river client
// on the given pool. Queue sizes come from the config; the returned client
// must be stopped by the caller on shutdown.
func Start(ctx context.Context,
	cfg *config.Config,
	dbPool *pgxpool.Pool,
	ingestWorker *IngestWorker,
	trainWorker *TrainWorker) (*river.Client[pgx.Tx], error) {
	workers := river.NewWorkers()
	river.AddWorker(workers, ingestWorker)
	river.AddWorker(workers, trainWorker)

	riverClient, err := river.NewClient(riverpgxv5.New(dbPool), &river.Config{
		Queues: map[string]river.QueueConfig{
			ingest.Queue:   {MaxWorkers: cfg.Ingest.MaxWorkers},
			training.Queue: {MaxWorkers: cfg.Training.MaxWorkers},
		},
		Workers: workers,
		Logger:  slog.New(zapslog.NewHandler(logger.Get(ctx).Core())),
	})
	if err != nil {
		return nil, fmt.Errorf("could not create river queue client: %w", err)
	}

	if err := riverClient.Start(ctx); err != nil {
		return nil, fmt.Errorf("could not start river queue client: %w", err)
	}

	return riverClient, nil
}

// jobUUIDs parses the string IDs every job of this package carries. Malformed
// IDs can never become valid, so callers cancel the job on error.
func jobUUIDs(userID, entityID string) (domain.UserID, uuid.UUID, error) {
	uid, err := uuid.Parse(userID)
	if err != nil {
		return domain.UserID{}, uuid.UUID{}, fmt.Errorf("invalid user ID %q: %w", userID, err)
	}

	eid, err := uuid.Parse(entityID)
	if err != nil {
		return domain.UserID{}, uuid.UUID{}, fmt.Errorf("invalid entity ID %q: %w", entityID, err)
	}

	return domain.UserID(uid), eid, nil
}
