package postgres_test

import (
	"context"
	"testing"
	"time"

	"trainer/pkg/domain"
	"trainer/pkg/storage"
	"trainer/pkg/storage/postgres"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func newRun(userID domain.UserID, datasetID domain.DatasetID, kind domain.ModelKind) domain.Run {
	return domain.Run{
		UserID:    userID,
		DatasetID: datasetID,
		Model:     kind,
		Params: domain.RunParams{
			NumTrees:  100,
			MaxDepth:  5,
			MinLeaf:   1,
			Normalize: true,
			Seed:      42,
		},
		Status: domain.RunStatusPending,
	}
}

func storeParentDataset(t *testing.T, pgSQL *postgres.PgSQL, userID domain.UserID) domain.DatasetID {
	t.Helper()

	stored, err := pgSQL.StoreDatasets(context.Background(), newDataset(userID, "runs-parent-"+uuid.NewString()))
	require.NoError(t, err)
	require.Len(t, stored, 1)

	return stored[0].ID
}

func TestPgSQL_StoreRuns(t *testing.T) {
	t.Parallel()

	pgSQL, cleanup := setupTestDB(t)
	t.Cleanup(cleanup)

	ctx := context.Background()
	userID := domain.UserID(uuid.New())
	datasetID := storeParentDataset(t, pgSQL, userID)

	t.Run("store single run", func(t *testing.T) {
		t.Parallel()

		res, err := pgSQL.StoreRuns(ctx, newRun(userID, datasetID, domain.ModelForest))
		require.NoError(t, err)
		require.Len(t, res, 1)
		require.Equal(t, domain.ModelForest, res[0].Model)
		require.Equal(t, 100, res[0].Params.NumTrees)
		require.Nil(t, res[0].Metrics)
		require.False(t, res[0].CreatedAt.IsZero())
	})

	t.Run("store multiple runs", func(t *testing.T) {
		t.Parallel()

		res, err := pgSQL.StoreRuns(ctx,
			newRun(userID, datasetID, domain.ModelLinear),
			newRun(userID, datasetID, domain.ModelTree))
		require.NoError(t, err)
		require.Len(t, res, 2)
	})

	t.Run("store empty runs", func(t *testing.T) {
		t.Parallel()

		res, err := pgSQL.StoreRuns(ctx)
		require.NoError(t, err)
		require.Empty(t, res)
	})
}

func TestPgSQL_UpdateRunByID(t *testing.T) {
	t.Parallel()

	pgSQL, cleanup := setupTestDB(t)
	t.Cleanup(cleanup)
	ctx := context.Background()

	userID := domain.UserID(uuid.New())
	datasetID := storeParentDataset(t, pgSQL, userID)
	stored, err := pgSQL.StoreRuns(ctx, newRun(userID, datasetID, domain.ModelForest))
	require.NoError(t, err)
	id := stored[0].ID

	t.Run("complete with metrics and artifact", func(t *testing.T) {
		artifactKey := "runs/x/model.json"
		empty := ""

		updated, err := pgSQL.UpdateRunByID(ctx, id, storage.RunUpdates{
			Status: domain.RunStatusCompleted,
			Metrics: &domain.RunMetrics{
				RMSE:         49000.5,
				MAE:          31000.25,
				R2:           0.81,
				TrainSeconds: 12.5,
			},
			ArtifactKey: &artifactKey,
			LastError:   &empty,
		})
		require.NoError(t, err)
		require.NotNil(t, updated)
		require.Equal(t, domain.RunStatusCompleted, updated.Status)
		require.NotNil(t, updated.Metrics)
		require.InDelta(t, 49000.5, updated.Metrics.RMSE, 1e-9)
		require.InDelta(t, 0.81, updated.Metrics.R2, 1e-9)
		require.Equal(t, artifactKey, updated.ArtifactKey)
		require.EqualValues(t, 1, updated.Attempts)
		require.Empty(t, updated.LastError)
	})

	t.Run("unknown id returns nil", func(t *testing.T) {
		updated, err := pgSQL.UpdateRunByID(ctx, domain.RunID(uuid.New()), storage.RunUpdates{
			Status: domain.RunStatusCompleted,
		})
		require.NoError(t, err)
		require.Nil(t, updated)
	})
}

func TestPgSQL_UpdateRunByID_FailedGuard(t *testing.T) {
	t.Parallel()

	pgSQL, cleanup := setupTestDB(t)
	t.Cleanup(cleanup)
	ctx := context.Background()

	userID := domain.UserID(uuid.New())
	datasetID := storeParentDataset(t, pgSQL, userID)
	stored, err := pgSQL.StoreRuns(ctx, newRun(userID, datasetID, domain.ModelTree))
	require.NoError(t, err)
	id := stored[0].ID

	boom := "training blew up"

	// attempts=1 < MaxAttempts=3: stays pending for retry
	updated, err := pgSQL.UpdateRunByID(ctx, id, storage.RunUpdates{
		Status:      domain.RunStatusFailed,
		LastError:   &boom,
		MaxAttempts: 3,
	})
	require.NoError(t, err)
	require.NotNil(t, updated)
	require.Equal(t, domain.RunStatusPending, updated.Status)
	require.EqualValues(t, 1, updated.Attempts)
	require.Equal(t, boom, updated.LastError)

	// attempts=2 < MaxAttempts=3: still pending
	updated, err = pgSQL.UpdateRunByID(ctx, id, storage.RunUpdates{
		Status:      domain.RunStatusFailed,
		LastError:   &boom,
		MaxAttempts: 3,
	})
	require.NoError(t, err)
	require.Equal(t, domain.RunStatusPending, updated.Status)

	// attempts=3 reaches MaxAttempts: failed for good
	updated, err = pgSQL.UpdateRunByID(ctx, id, storage.RunUpdates{
		Status:      domain.RunStatusFailed,
		LastError:   &boom,
		MaxAttempts: 3,
	})
	require.NoError(t, err)
	require.Equal(t, domain.RunStatusFailed, updated.Status)
	require.EqualValues(t, 3, updated.Attempts)
}

func TestPgSQL_DeleteRun(t *testing.T) {
	t.Parallel()

	pgSQL, cleanup := setupTestDB(t)
	t.Cleanup(cleanup)
	ctx := context.Background()

	userID := domain.UserID(uuid.New())
	datasetID := storeParentDataset(t, pgSQL, userID)
	stored, err := pgSQL.StoreRuns(ctx, newRun(userID, datasetID, domain.ModelLinear))
	require.NoError(t, err)
	id := stored[0].ID

	deleted, err := pgSQL.DeleteRun(ctx, userID, id)
	require.NoError(t, err)
	require.NotNil(t, deleted)
	require.Equal(t, id, deleted.ID)

	got, err := pgSQL.RunByID(ctx, userID, id)
	require.NoError(t, err)
	require.Nil(t, got)

	deleted2, err := pgSQL.DeleteRun(ctx, userID, id)
	require.NoError(t, err)
	require.Nil(t, deleted2)
}

func TestPgSQL_UserRuns_PaginationAndFilter(t *testing.T) {
	t.Parallel()

	pgSQL, cleanup := setupTestDB(t)
	t.Cleanup(cleanup)
	ctx := context.Background()

	userID := domain.UserID(uuid.New())
	datasetID := storeParentDataset(t, pgSQL, userID)

	runs := make([]domain.Run, 0, 5)
	for range 5 {
		runs = append(runs, newRun(userID, datasetID, domain.ModelForest))
	}
	stored, err := pgSQL.StoreRuns(ctx, runs...)
	require.NoError(t, err)
	require.Len(t, stored, 5)

	now := time.Now().UTC()
	for i, r := range stored {
		created := now.Add(-time.Duration(4-i) * time.Minute)
		_, err := pgSQL.DB.ExecContext(ctx, "UPDATE runs SET created_at = $1 WHERE id = $2", created, uuid.UUID(r.ID))
		require.NoError(t, err)
	}

	// walk pages of 2 until exhausted
	p1, err := pgSQL.UserRuns(ctx, userID, "", time.Time{}, 2)
	require.NoError(t, err)
	require.Len(t, p1.Runs, 2)
	require.NotNil(t, p1.NextCursor)

	p2, err := pgSQL.UserRuns(ctx, userID, "", *p1.NextCursor, 2)
	require.NoError(t, err)
	require.Len(t, p2.Runs, 2)
	require.NotNil(t, p2.NextCursor)

	p3, err := pgSQL.UserRuns(ctx, userID, "", *p2.NextCursor, 2)
	require.NoError(t, err)
	require.Len(t, p3.Runs, 1)
	require.Nil(t, p3.NextCursor)

	// complete one run and filter by status
	_, err = pgSQL.UpdateRunByID(ctx, stored[0].ID, storage.RunUpdates{
		Status: domain.RunStatusCompleted,
	})
	require.NoError(t, err)

	completed, err := pgSQL.UserRuns(ctx, userID, domain.RunStatusCompleted, time.Time{}, 10)
	require.NoError(t, err)
	require.Len(t, completed.Runs, 1)
	require.Equal(t, stored[0].ID, completed.Runs[0].ID)

	pending, err := pgSQL.UserRuns(ctx, userID, domain.RunStatusPending, time.Time{}, 10)
	require.NoError(t, err)
	require.Len(t, pending.Runs, 4)
}

func TestPgSQL_RunByID(t *testing.T) {
	t.Parallel()

	pgSQL, cleanup := setupTestDB(t)
	t.Cleanup(cleanup)
	ctx := context.Background()

	userA := domain.UserID(uuid.New())
	userB := domain.UserID(uuid.New())
	datasetA := storeParentDataset(t, pgSQL, userA)
	datasetB := storeParentDataset(t, pgSQL, userB)

	storedA, err := pgSQL.StoreRuns(ctx, newRun(userA, datasetA, domain.ModelTree))
	require.NoError(t, err)
	storedB, err := pgSQL.StoreRuns(ctx, newRun(userB, datasetB, domain.ModelTree))
	require.NoError(t, err)

	got, err := pgSQL.RunByID(ctx, userA, storedA[0].ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Equal(t, storedA[0].ID, got.ID)

	// wrong user should not see other's run
	got2, err := pgSQL.RunByID(ctx, userA, storedB[0].ID)
	require.NoError(t, err)
	require.Nil(t, got2)
}

func TestPgSQL_PendingRunCountByDataset(t *testing.T) {
	t.Parallel()

	pgSQL, cleanup := setupTestDB(t)
	t.Cleanup(cleanup)
	ctx := context.Background()

	userID := domain.UserID(uuid.New())
	datasetID := storeParentDataset(t, pgSQL, userID)
	otherDataset := storeParentDataset(t, pgSQL, userID)

	stored, err := pgSQL.StoreRuns(ctx,
		newRun(userID, datasetID, domain.ModelForest),
		newRun(userID, datasetID, domain.ModelLinear),
		newRun(userID, otherDataset, domain.ModelLinear))
	require.NoError(t, err)
	require.Len(t, stored, 3)

	count, err := pgSQL.PendingRunCountByDataset(ctx, datasetID)
	require.NoError(t, err)
	require.EqualValues(t, 2, count)

	// completing a run drops it from the count
	_, err = pgSQL.UpdateRunByID(ctx, stored[0].ID, storage.RunUpdates{
		Status: domain.RunStatusCompleted,
	})
	require.NoError(t, err)

	count, err = pgSQL.PendingRunCountByDataset(ctx, datasetID)
	require.NoError(t, err)
	require.EqualValues(t, 1, count)

	// soft-deleted runs are excluded as well
	_, err = pgSQL.DeleteRun(ctx, userID, stored[1].ID)
	require.NoError(t, err)

	count, err = pgSQL.PendingRunCountByDataset(ctx, datasetID)
	require.NoError(t, err)
	require.EqualValues(t, 0, count)
}
