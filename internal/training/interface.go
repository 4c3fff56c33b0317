package training

import (
	"context"
	"trainer/pkg/dataset"
	"trainer/pkg/domain"
)

//go:generate mockgen -package mocktraining -source=interface.go -destination=mock/mocktraining.go *
type Service interface {
	CreateRun(ctx context.Context, userID domain.UserID, req CreateRunRequest) (*domain.Run, error)
	UserRuns(ctx context.Context,
		userID domain.UserID,
		status domain.RunStatus,
		cursor string,
		limit uint) ([]domain.Run, string, error)
	Run(ctx context.Context, userID domain.UserID, runID domain.RunID) (*domain.Run, error)
	Delete(ctx context.Context, userID domain.UserID, runID domain.RunID) error
	Predict(ctx context.Context, userID domain.UserID, runID domain.RunID, rows []dataset.Row) ([]float64, error)
	ArtifactURL(ctx context.Context, userID domain.UserID, runID domain.RunID) (string, error)
}
