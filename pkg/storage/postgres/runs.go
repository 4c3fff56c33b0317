package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"trainer/pkg/domain"
	"trainer/pkg/storage"

	"github.com/doug-martin/goqu/v9"
	"github.com/google/uuid"
)

const (
	runsTable = "runs"
)

func (p *PgSQL) StoreRuns(ctx context.Context, runs ...domain.Run) ([]domain.Run, error) {
	if len(runs) == 0 {
		return nil, nil
	}

	pgRuns, err := domainRunsToPg(runs)
	if err != nil {
		return nil, err
	}

	var result []PgRun
	if err := p.Builder.Insert(runsTable).
		Rows(pgRuns).
		Returning(&PgRun{}).
		Executor().ScanStructsContext(ctx, &result); err != nil {
		return nil, fmt.Errorf("could not store runs into pg: %w", err)
	}

	return pgRunsToDomain(result)
}

// UpdateRunByID updates a single run with the provided fields and returns the
// updated row. Attempts is incremented by 1 and updated_at is set. When a Failed
// status arrives with MaxAttempts > 0, the status only flips to Failed once the
// incremented attempts reach MaxAttempts, so earlier errors keep the row Pending
// for the queue to retry.
func (p *PgSQL) UpdateRunByID(ctx context.Context,
	id domain.RunID,
	updates storage.RunUpdates) (*domain.Run, error) {
	rec := goqu.Record{
		"updated_at": goqu.L("CURRENT_TIMESTAMP"),
		"attempts":   goqu.L("attempts + 1"),
		"status":     string(updates.Status),
	}
	if updates.Status == domain.RunStatusFailed && updates.MaxAttempts > 0 {
		rec["status"] = goqu.L("CASE WHEN attempts + 1 >= ? THEN ? ELSE status END",
			updates.MaxAttempts, string(domain.RunStatusFailed))
	}
	if updates.Metrics != nil {
		b, err := json.Marshal(updates.Metrics)
		if err != nil {
			return nil, fmt.Errorf("could not marshal metrics: %w", err)
		}

		rec["metrics"] = b
	}
	if updates.ArtifactKey != nil {
		rec["artifact_key"] = *updates.ArtifactKey
	}
	if updates.LastError != nil {
		if *updates.LastError == "" {
			// set to NULL when empty string provided
			rec["last_error"] = goqu.L("NULL")
		} else {
			rec["last_error"] = *updates.LastError
		}
	}

	var row PgRun
	found, err := p.Builder.Update(runsTable).
		Set(rec).Where(
		goqu.I("id").Eq(uuid.UUID(id)),
		goqu.I("deleted_at").IsNull(),
	).Returning(&PgRun{}).Executor().ScanStructContext(ctx, &row)
	if err != nil {
		return nil, fmt.Errorf("could not update run by id in pg: %w", err)
	}
	if !found {
		return nil, nil
	}

	return row.ToDomain()
}

// DeleteRun performs a soft delete by setting deleted_at timestamp
// for a given run id and user, returning the deleted record.
func (p *PgSQL) DeleteRun(ctx context.Context, userID domain.UserID, id domain.RunID) (*domain.Run, error) {
	var row PgRun
	found, err := p.Builder.Update(runsTable).
		Set(goqu.Record{
			"deleted_at": goqu.L("CURRENT_TIMESTAMP"),
		}).Where(
		goqu.I("id").Eq(uuid.UUID(id)),
		goqu.I("user_id").Eq(uuid.UUID(userID)),
		goqu.I("deleted_at").IsNull(),
	).Returning(&PgRun{}).Executor().ScanStructContext(ctx, &row)
	if err != nil {
		return nil, fmt.Errorf("could not delete run in pg: %w", err)
	}
	if !found {
		return nil, nil
	}

	return row.ToDomain()
}

// UserRuns returns a list of runs for a user filtered by optional status and
// cursor and limited by limit. Results are ordered by created_at DESC, id DESC.
// Returns the next cursor for pagination when more rows remain.
func (p *PgSQL) UserRuns(ctx context.Context,
	userID domain.UserID,
	status domain.RunStatus,
	cursor time.Time,
	limit uint) (storage.RunPage, error) {
	w := []goqu.Expression{
		goqu.I("user_id").Eq(uuid.UUID(userID)),
		goqu.I("deleted_at").IsNull(),
	}
	if status != "" {
		w = append(w, goqu.I("status").Eq(string(status)))
	}
	if !cursor.IsZero() {
		w = append(w, goqu.I("created_at").Lt(cursor))
	}

	// fetch one extra to determine if there is a next page
	fetch := limit + 1
	ds := p.Builder.From(runsTable).
		Where(w...).
		Order(goqu.I("created_at").Desc(), goqu.I("id").Desc()).
		Limit(fetch)

	var rows []PgRun
	if err := ds.Executor().ScanStructsContext(ctx, &rows); err != nil {
		return storage.RunPage{}, fmt.Errorf("could not fetch user runs from pg: %w", err)
	}

	// if we fetched more than the limit, there is a next page
	var nextCursor *time.Time
	if uint(len(rows)) > limit {
		trimmed := rows[:limit]
		nextCursor = &trimmed[len(trimmed)-1].CreatedAt
		rows = trimmed
	}

	domainRows, err := pgRunsToDomain(rows)
	if err != nil {
		return storage.RunPage{}, err
	}

	return storage.RunPage{
		Runs:       domainRows,
		NextCursor: nextCursor,
	}, nil
}

// RunByID returns a run by its ID, excluding soft-deleted rows.
func (p *PgSQL) RunByID(ctx context.Context, userID domain.UserID, id domain.RunID) (*domain.Run, error) {
	var row PgRun
	found, err := p.Builder.From(runsTable).
		Where(
			goqu.I("id").Eq(uuid.UUID(id)),
			goqu.I("user_id").Eq(uuid.UUID(userID)),
			goqu.I("deleted_at").IsNull(),
		).
		Executor().ScanStructContext(ctx, &row)
	if err != nil {
		return nil, fmt.Errorf("could not fetch run by id: %w", err)
	}
	if !found {
		return nil, nil
	}

	return row.ToDomain()
}

// PendingRunCountByDataset counts live pending runs that train on the given
// dataset, across all users.
func (p *PgSQL) PendingRunCountByDataset(ctx context.Context, datasetID domain.DatasetID) (int64, error) {
	count, err := p.Builder.From(runsTable).
		Where(
			goqu.I("dataset_id").Eq(uuid.UUID(datasetID)),
			goqu.I("status").Eq(string(domain.RunStatusPending)),
			goqu.I("deleted_at").IsNull(),
		).
		CountContext(ctx)
	if err != nil {
		return 0, fmt.Errorf("could not count pending runs by dataset: %w", err)
	}

	return count, nil
}
