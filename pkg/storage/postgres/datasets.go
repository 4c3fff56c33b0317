package postgres

import (
	"context"
	"fmt"
	"time"

	"trainer/pkg/domain"
	"trainer/pkg/storage"

	"github.com/doug-martin/goqu/v9"
	"github.com/google/uuid"
)

const (
	datasetsTable = "datasets"
)

func (p *PgSQL) StoreDatasets(ctx context.Context, datasets ...domain.Dataset) ([]domain.Dataset, error) {
	if len(datasets) == 0 {
		return nil, nil
	}

	pgDatasets := domainDatasetsToPg(datasets)

	var result []PgDataset
	if err := p.Builder.Insert(datasetsTable).
		Rows(pgDatasets).
		Returning(&PgDataset{}).
		Executor().ScanStructsContext(ctx, &result); err != nil {
		return nil, fmt.Errorf("could not store datasets into pg: %w", err)
	}

	return pgDatasetsToDomain(result), nil
}

// UpdateDatasetByID updates a single dataset with the provided fields and returns the
// updated row. Attempts is incremented by 1 and updated_at is set. When a Failed
// status arrives with MaxAttempts > 0, the status only flips to Failed once the
// incremented attempts reach MaxAttempts, so earlier errors keep the row Pending
// for the queue to retry.
func (p *PgSQL) UpdateDatasetByID(ctx context.Context,
	id domain.DatasetID,
	updates storage.DatasetUpdates) (*domain.Dataset, error) {
	rec := goqu.Record{
		"updated_at": goqu.L("CURRENT_TIMESTAMP"),
		"attempts":   goqu.L("attempts + 1"),
		"status":     string(updates.Status),
	}
	if updates.Status == domain.DatasetStatusFailed && updates.MaxAttempts > 0 {
		rec["status"] = goqu.L("CASE WHEN attempts + 1 >= ? THEN ? ELSE status END",
			updates.MaxAttempts, string(domain.DatasetStatusFailed))
	}
	if updates.Rows != nil {
		rec["row_count"] = *updates.Rows
	}
	if updates.TrainRows != nil {
		rec["train_rows"] = *updates.TrainRows
	}
	if updates.TestRows != nil {
		rec["test_rows"] = *updates.TestRows
	}
	if updates.TrainKey != nil {
		rec["train_key"] = *updates.TrainKey
	}
	if updates.TestKey != nil {
		rec["test_key"] = *updates.TestKey
	}
	if updates.LastError != nil {
		if *updates.LastError == "" {
			// set to NULL when empty string provided
			rec["last_error"] = goqu.L("NULL")
		} else {
			rec["last_error"] = *updates.LastError
		}
	}

	var row PgDataset
	found, err := p.Builder.Update(datasetsTable).
		Set(rec).Where(
		goqu.I("id").Eq(uuid.UUID(id)),
		goqu.I("deleted_at").IsNull(),
	).Returning(&PgDataset{}).Executor().ScanStructContext(ctx, &row)
	if err != nil {
		return nil, fmt.Errorf("could not update dataset by id in pg: %w", err)
	}
	if !found {
		return nil, nil
	}

	return row.ToDomain(), nil
}

// DeleteDataset performs a soft delete by setting deleted_at timestamp
// for a given dataset id and user, returning the deleted record.
func (p *PgSQL) DeleteDataset(ctx context.Context,
	userID domain.UserID,
	id domain.DatasetID) (*domain.Dataset, error) {
	var row PgDataset
	found, err := p.Builder.Update(datasetsTable).
		Set(goqu.Record{
			"deleted_at": goqu.L("CURRENT_TIMESTAMP"),
		}).Where(
		goqu.I("id").Eq(uuid.UUID(id)),
		goqu.I("user_id").Eq(uuid.UUID(userID)),
		goqu.I("deleted_at").IsNull(),
	).Returning(&PgDataset{}).Executor().ScanStructContext(ctx, &row)
	if err != nil {
		return nil, fmt.Errorf("could not delete dataset in pg: %w", err)
	}
	if !found {
		return nil, nil
	}

	return row.ToDomain(), nil
}

// UserDatasets returns a list of datasets for a user filtered by optional status and
// cursor and limited by limit. Results are ordered by created_at DESC, id DESC.
// Returns the next cursor for pagination when more rows remain.
func (p *PgSQL) UserDatasets(ctx context.Context,
	userID domain.UserID,
	status domain.DatasetStatus,
	cursor time.Time,
	limit uint) (storage.DatasetPage, error) {
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
	ds := p.Builder.From(datasetsTable).
		Where(w...).
		Order(goqu.I("created_at").Desc(), goqu.I("id").Desc()).
		Limit(fetch)

	var rows []PgDataset
	if err := ds.Executor().ScanStructsContext(ctx, &rows); err != nil {
		return storage.DatasetPage{}, fmt.Errorf("could not fetch user datasets from pg: %w", err)
	}

	// if we fetched more than the limit, there is a next page
	var nextCursor *time.Time
	if uint(len(rows)) > limit {
		trimmed := rows[:limit]
		nextCursor = &trimmed[len(trimmed)-1].CreatedAt
		rows = trimmed
	}

	return storage.DatasetPage{
		Datasets:   pgDatasetsToDomain(rows),
		NextCursor: nextCursor,
	}, nil
}

// DatasetByID returns a dataset by its ID, excluding soft-deleted rows.
func (p *PgSQL) DatasetByID(ctx context.Context,
	userID domain.UserID,
	id domain.DatasetID) (*domain.Dataset, error) {
	var row PgDataset
	found, err := p.Builder.From(datasetsTable).
		Where(
			goqu.I("id").Eq(uuid.UUID(id)),
			goqu.I("user_id").Eq(uuid.UUID(userID)),
			goqu.I("deleted_at").IsNull(),
		).
		Executor().ScanStructContext(ctx, &row)
	if err != nil {
		return nil, fmt.Errorf("could not fetch dataset by id: %w", err)
	}
	if !found {
		return nil, nil
	}

	return row.ToDomain(), nil
}

// ActiveDatasetByName returns the newest live dataset of the user with the given
// name whose status is Pending or Completed, or nil when none exists.
func (p *PgSQL) ActiveDatasetByName(ctx context.Context,
	userID domain.UserID,
	name string) (*domain.Dataset, error) {
	var row PgDataset
	found, err := p.Builder.From(datasetsTable).
		Where(
			goqu.I("user_id").Eq(uuid.UUID(userID)),
			goqu.I("name").Eq(name),
			goqu.I("status").In(
				string(domain.DatasetStatusPending),
				string(domain.DatasetStatusCompleted),
			),
			goqu.I("deleted_at").IsNull(),
		).
		Order(goqu.I("created_at").Desc(), goqu.I("id").Desc()).
		Limit(1).
		Executor().ScanStructContext(ctx, &row)
	if err != nil {
		return nil, fmt.Errorf("could not fetch dataset by name: %w", err)
	}
	if !found {
		return nil, nil
	}

	return row.ToDomain(), nil
}
