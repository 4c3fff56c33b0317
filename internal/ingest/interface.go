package ingest

import (
	"context"
	"trainer/pkg/domain"
)

//go:generate mockgen -package mockingest -source=interface.go -destination=mock/mockingest.go *
type Service interface {
	CreateDataset(ctx context.Context, userID domain.UserID, req CreateDatasetRequest) (*domain.Dataset, error)
	UserDatasets(ctx context.Context,
		userID domain.UserID,
		status domain.DatasetStatus,
		cursor string,
		limit uint) ([]domain.Dataset, string, error)
	Dataset(ctx context.Context, userID domain.UserID, datasetID domain.DatasetID) (*domain.Dataset, error)
	Delete(ctx context.Context, userID domain.UserID, datasetID domain.DatasetID) error
}
