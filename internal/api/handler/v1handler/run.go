package v1handler

import (
	"math"
	"net/http"
	"time"

	"github.com/google/uuid"

	"trainer/internal/training"
	"trainer/pkg/dataset"
	"trainer/pkg/domain"
	"trainer/pkg/serrors"
)

// Run is the wire form of a training run.
type Run struct {
	ID        string             `json:"id"`
	DatasetID string             `json:"datasetId"`
	Model     string             `json:"model"`
	Params    domain.RunParams   `json:"params"`
	Status    string             `json:"status"`
	Metrics   *domain.RunMetrics `json:"metrics,omitempty"`
	Attempts  uint               `json:"attempts"`
	LastError string             `json:"lastError,omitempty"`
	CreatedAt time.Time          `json:"createdAt"`
	UpdatedAt time.Time          `json:"updatedAt"`
}

// RunList is one page of runs.
type RunList struct {
	Items      []Run  `json:"items"`
	NextCursor string `json:"nextCursor,omitempty"`
}

// CreateRunRequest is the payload of POST /runs.
type CreateRunRequest struct {
	DatasetID string           `json:"datasetId"`
	Model     string           `json:"model"`
	Params    domain.RunParams `json:"params"`
}

// PredictRow carries the features of one house. TotalBedrooms may be omitted;
// the stored preprocessing imputes it with the training median.
type PredictRow struct {
	Longitude        float64  `json:"longitude"`
	Latitude         float64  `json:"latitude"`
	HousingMedianAge float64  `json:"housingMedianAge"`
	TotalRooms       float64  `json:"totalRooms"`
	TotalBedrooms    *float64 `json:"totalBedrooms,omitempty"`
	Population       float64  `json:"population"`
	Households       float64  `json:"households"`
	MedianIncome     float64  `json:"medianIncome"`
	OceanProximity   string   `json:"oceanProximity"`
}

func (in PredictRow) toDomain() dataset.Row {
	bedrooms := math.NaN()
	if in.TotalBedrooms != nil {
		bedrooms = *in.TotalBedrooms
	}

	return dataset.Row{
		Longitude:        in.Longitude,
		Latitude:         in.Latitude,
		HousingMedianAge: in.HousingMedianAge,
		TotalRooms:       in.TotalRooms,
		TotalBedrooms:    bedrooms,
		Population:       in.Population,
		Households:       in.Households,
		MedianIncome:     in.MedianIncome,
		OceanProximity:   in.OceanProximity,
	}
}

// PredictRequest is the payload of POST /runs/{id}/predictions.
type PredictRequest struct {
	Rows []PredictRow `json:"rows"`
}

// PredictResponse carries one predicted median house value per request row.
type PredictResponse struct {
	Predictions []float64 `json:"predictions"`
}

// ArtifactResponse carries a short-lived presigned download link for the
// trained model artifact.
type ArtifactResponse struct {
	URL string `json:"url"`
}

func DomainRunToV1(in *domain.Run) *Run {
	return &Run{
		ID:        in.ID.String(),
		DatasetID: in.DatasetID.String(),
		Model:     string(in.Model),
		Params:    in.Params,
		Status:    string(in.Status),
		Metrics:   in.Metrics,
		Attempts:  in.Attempts,
		LastError: in.LastError,
		CreatedAt: in.CreatedAt,
		UpdatedAt: in.UpdatedAt,
	}
}

// CreateRun schedules a new training run from the request payload.
func (h *Handler) CreateRun(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req CreateRunRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(ctx, w, err)

		return
	}

	datasetID, err := uuid.Parse(req.DatasetID)
	if err != nil {
		writeError(ctx, w, serrors.Wrap(serrors.ErrBadRequest, err, "invalid dataset id"))

		return
	}

	run, err := h.deps.Training.CreateRun(ctx, GetUserIDFromContext(ctx), training.CreateRunRequest{
		DatasetID: domain.DatasetID(datasetID),
		Model:     domain.ModelKind(req.Model),
		Params:    req.Params,
	})
	if err != nil {
		writeError(ctx, w, err)

		return
	}

	writeJSON(ctx, w, http.StatusCreated, DomainRunToV1(run))
}

// ListRuns returns a paginated list of the user's training runs.
func (h *Handler) ListRuns(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	limit, err := parseLimit(r)
	if err != nil {
		writeError(ctx, w, err)

		return
	}

	q := r.URL.Query()
	runs, next, err := h.deps.Training.UserRuns(ctx,
		GetUserIDFromContext(ctx),
		domain.RunStatus(q.Get("status")),
		q.Get("cursor"),
		limit)
	if err != nil {
		writeError(ctx, w, err)

		return
	}

	items := make([]Run, 0, len(runs))
	for i := range runs {
		items = append(items, *DomainRunToV1(&runs[i]))
	}

	writeJSON(ctx, w, http.StatusOK, RunList{Items: items, NextCursor: next})
}

// GetRun returns details of a training run by ID.
func (h *Handler) GetRun(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := parseID(r)
	if err != nil {
		writeError(ctx, w, err)

		return
	}

	run, err := h.deps.Training.Run(ctx, GetUserIDFromContext(ctx), domain.RunID(id))
	if err != nil {
		writeError(ctx, w, err)

		return
	}

	writeJSON(ctx, w, http.StatusOK, DomainRunToV1(run))
}

// DeleteRun deletes a training run by ID.
func (h *Handler) DeleteRun(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := parseID(r)
	if err != nil {
		writeError(ctx, w, err)

		return
	}

	if err := h.deps.Training.Delete(ctx, GetUserIDFromContext(ctx), domain.RunID(id)); err != nil {
		writeError(ctx, w, err)

		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Predict evaluates the stored model of a completed run on the request rows.
func (h *Handler) Predict(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := parseID(r)
	if err != nil {
		writeError(ctx, w, err)

		return
	}

	var req PredictRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(ctx, w, err)

		return
	}

	rows := make([]dataset.Row, len(req.Rows))
	for i, row := range req.Rows {
		rows[i] = row.toDomain()
	}

	predictions, err := h.deps.Training.Predict(ctx, GetUserIDFromContext(ctx), domain.RunID(id), rows)
	if err != nil {
		writeError(ctx, w, err)

		return
	}

	writeJSON(ctx, w, http.StatusOK, PredictResponse{Predictions: predictions})
}

// GetArtifact returns a presigned download URL for the model of a completed
// run.
func (h *Handler) GetArtifact(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := parseID(r)
	if err != nil {
		writeError(ctx, w, err)

		return
	}

	u, err := h.deps.Training.ArtifactURL(ctx, GetUserIDFromContext(ctx), domain.RunID(id))
	if err != nil {
		writeError(ctx, w, err)

		return
	}

	writeJSON(ctx, w, http.StatusOK, ArtifactResponse{URL: u})
}
