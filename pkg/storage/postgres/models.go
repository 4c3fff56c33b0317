package postgres

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"trainer/pkg/domain"

	"github.com/google/uuid"
)

type PgDataset struct {
	ID     uuid.UUID `db:"id"      goqu:"skipinsert"`
	UserID uuid.UUID `db:"user_id"`

	Name         string  `db:"name"`
	SourceURL    string  `db:"source_url"`
	TestFraction float64 `db:"test_fraction"`
	Seed         int64   `db:"seed"`

	Status    string         `db:"status"`
	Rows      int64          `db:"row_count"  goqu:"skipinsert"`
	TrainRows int64          `db:"train_rows" goqu:"skipinsert"`
	TestRows  int64          `db:"test_rows"  goqu:"skipinsert"`
	TrainKey  sql.NullString `db:"train_key"  goqu:"skipinsert"`
	TestKey   sql.NullString `db:"test_key"   goqu:"skipinsert"`

	Attempts  uint           `db:"attempts"   goqu:"skipinsert"`
	LastError sql.NullString `db:"last_error" goqu:"skipinsert"`

	CreatedAt time.Time    `db:"created_at" goqu:"skipinsert"`
	UpdatedAt sql.NullTime `db:"updated_at" goqu:"skipinsert"`
	DeletedAt sql.NullTime `db:"deleted_at" goqu:"skipinsert"`
}

func (p *PgDataset) ToDomain() *domain.Dataset {
	return &domain.Dataset{
		ID:           domain.DatasetID(p.ID),
		UserID:       domain.UserID(p.UserID),
		Name:         p.Name,
		SourceURL:    p.SourceURL,
		TestFraction: p.TestFraction,
		Seed:         p.Seed,
		Status:       domain.DatasetStatus(p.Status),
		Rows:         p.Rows,
		TrainRows:    p.TrainRows,
		TestRows:     p.TestRows,
		TrainKey:     p.TrainKey.String,
		TestKey:      p.TestKey.String,
		Attempts:     p.Attempts,
		LastError:    p.LastError.String,
		CreatedAt:    p.CreatedAt,
		UpdatedAt:    p.UpdatedAt.Time,
		DeletedAt:    p.DeletedAt.Time,
	}
}

func (p *PgDataset) FromDomain(dataset domain.Dataset) {
	*p = PgDataset{
		ID:           uuid.UUID(dataset.ID),
		UserID:       uuid.UUID(dataset.UserID),
		Name:         dataset.Name,
		SourceURL:    dataset.SourceURL,
		TestFraction: dataset.TestFraction,
		Seed:         dataset.Seed,
		Status:       string(dataset.Status),
		Rows:         dataset.Rows,
		TrainRows:    dataset.TrainRows,
		TestRows:     dataset.TestRows,
		TrainKey: sql.NullString{
			String: dataset.TrainKey,
			Valid:  dataset.TrainKey != "",
		},
		TestKey: sql.NullString{
			String: dataset.TestKey,
			Valid:  dataset.TestKey != "",
		},
		Attempts: dataset.Attempts,
		LastError: sql.NullString{
			String: dataset.LastError,
			Valid:  dataset.LastError != "",
		},
		CreatedAt: dataset.CreatedAt,
		UpdatedAt: sql.NullTime{
			Time:  dataset.UpdatedAt,
			Valid: !dataset.UpdatedAt.IsZero(),
		},
		DeletedAt: sql.NullTime{
			Time:  dataset.DeletedAt,
			Valid: !dataset.DeletedAt.IsZero(),
		},
	}
}

func domainDatasetsToPg(datasets []domain.Dataset) []PgDataset {
	out := make([]PgDataset, len(datasets))
	for i := range out {
		out[i].FromDomain(datasets[i])
	}

	return out
}

func pgDatasetsToDomain(datasets []PgDataset) []domain.Dataset {
	out := make([]domain.Dataset, 0, len(datasets))
	for _, dataset := range datasets {
		out = append(out, *dataset.ToDomain())
	}

	return out
}

type PgRun struct {
	ID        uuid.UUID `db:"id" goqu:"skipinsert"`
	UserID    uuid.UUID `db:"user_id"`
	DatasetID uuid.UUID `db:"dataset_id"`

	Model  string          `db:"model"`
	Params json.RawMessage `db:"params"`

	Status      string          `db:"status"`
	Metrics     json.RawMessage `db:"metrics"      goqu:"skipinsert"`
	ArtifactKey sql.NullString  `db:"artifact_key" goqu:"skipinsert"`

	Attempts  uint           `db:"attempts"   goqu:"skipinsert"`
	LastError sql.NullString `db:"last_error" goqu:"skipinsert"`

	CreatedAt time.Time    `db:"created_at" goqu:"skipinsert"`
	UpdatedAt sql.NullTime `db:"updated_at" goqu:"skipinsert"`
	DeletedAt sql.NullTime `db:"deleted_at" goqu:"skipinsert"`
}

func (p *PgRun) ToDomain() (*domain.Run, error) {
	var params domain.RunParams
	if err := json.Unmarshal(p.Params, &params); err != nil {
		return nil, fmt.Errorf("could not unmarshal run params: %w", err)
	}

	var metrics *domain.RunMetrics
	if len(p.Metrics) > 0 {
		metrics = &domain.RunMetrics{}
		if err := json.Unmarshal(p.Metrics, metrics); err != nil {
			return nil, fmt.Errorf("could not unmarshal run metrics: %w", err)
		}
	}

	return &domain.Run{
		ID:          domain.RunID(p.ID),
		UserID:      domain.UserID(p.UserID),
		DatasetID:   domain.DatasetID(p.DatasetID),
		Model:       domain.ModelKind(p.Model),
		Params:      params,
		Status:      domain.RunStatus(p.Status),
		Metrics:     metrics,
		ArtifactKey: p.ArtifactKey.String,
		Attempts:    p.Attempts,
		LastError:   p.LastError.String,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt.Time,
		DeletedAt:   p.DeletedAt.Time,
	}, nil
}

func (p *PgRun) FromDomain(run domain.Run) error {
	params, err := json.Marshal(run.Params)
	if err != nil {
		return fmt.Errorf("could not marshal run params: %w", err)
	}

	var metrics json.RawMessage
	if run.Metrics != nil {
		metrics, err = json.Marshal(run.Metrics)
		if err != nil {
			return fmt.Errorf("could not marshal run metrics: %w", err)
		}
	}

	*p = PgRun{
		ID:        uuid.UUID(run.ID),
		UserID:    uuid.UUID(run.UserID),
		DatasetID: uuid.UUID(run.DatasetID),
		Model:     string(run.Model),
		Params:    params,
		Status:    string(run.Status),
		Metrics:   metrics,
		ArtifactKey: sql.NullString{
			String: run.ArtifactKey,
			Valid:  run.ArtifactKey != "",
		},
		Attempts: run.Attempts,
		LastError: sql.NullString{
			String: run.LastError,
			Valid:  run.LastError != "",
		},
		CreatedAt: run.CreatedAt,
		UpdatedAt: sql.NullTime{
			Time:  run.UpdatedAt,
			Valid: !run.UpdatedAt.IsZero(),
		},
		DeletedAt: sql.NullTime{
			Time:  run.DeletedAt,
			Valid: !run.DeletedAt.IsZero(),
		},
	}

	return nil
}

func domainRunsToPg(runs []domain.Run) ([]PgRun, error) {
	out := make([]PgRun, len(runs))
	for i := range out {
		if err := out[i].FromDomain(runs[i]); err != nil {
			return nil, err
		}
	}

	return out, nil
}

func pgRunsToDomain(runs []PgRun) ([]domain.Run, error) {
	out := make([]domain.Run, 0, len(runs))
	for _, run := range runs {
		d, err := run.ToDomain()
		if err != nil {
			return nil, err
		}

		out = append(out, *d)
	}

	return out, nil
}
