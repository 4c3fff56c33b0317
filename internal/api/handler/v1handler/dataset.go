package v1handler

import (
	"net/http"
	"time"

	"trainer/internal/ingest"
	"trainer/pkg/domain"
)

// Dataset is the wire form of a dataset.
type Dataset struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	SourceURL    string    `json:"sourceUrl"`
	TestFraction float64   `json:"testFraction"`
	Seed         int64     `json:"seed"`
	Status       string    `json:"status"`
	Rows         int64     `json:"rows,omitempty"`
	TrainRows    int64     `json:"trainRows,omitempty"`
	TestRows     int64     `json:"testRows,omitempty"`
	Attempts     uint      `json:"attempts"`
	LastError    string    `json:"lastError,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// DatasetList is one page of datasets.
type DatasetList struct {
	Items      []Dataset `json:"items"`
	NextCursor string    `json:"nextCursor,omitempty"`
}

// CreateDatasetRequest is the payload of POST /datasets. Omitted fields select
// the documented defaults.
type CreateDatasetRequest struct {
	Name         string  `json:"name"`
	SourceURL    string  `json:"sourceUrl,omitempty"`
	TestFraction float64 `json:"testFraction,omitempty"`
	Seed         int64   `json:"seed,omitempty"`
}

func DomainDatasetToV1(in *domain.Dataset) *Dataset {
	return &Dataset{
		ID:           in.ID.String(),
		Name:         in.Name,
		SourceURL:    in.SourceURL,
		TestFraction: in.TestFraction,
		Seed:         in.Seed,
		Status:       string(in.Status),
		Rows:         in.Rows,
		TrainRows:    in.TrainRows,
		TestRows:     in.TestRows,
		Attempts:     in.Attempts,
		LastError:    in.LastError,
		CreatedAt:    in.CreatedAt,
		UpdatedAt:    in.UpdatedAt,
	}
}

// CreateDataset schedules a new dataset ingestion from the request payload.
func (h *Handler) CreateDataset(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req CreateDatasetRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(ctx, w, err)

		return
	}

	ds, err := h.deps.Ingest.CreateDataset(ctx, GetUserIDFromContext(ctx), ingest.CreateDatasetRequest{
		Name:         req.Name,
		SourceURL:    req.SourceURL,
		TestFraction: req.TestFraction,
		Seed:         req.Seed,
	})
	if err != nil {
		writeError(ctx, w, err)

		return
	}

	writeJSON(ctx, w, http.StatusCreated, DomainDatasetToV1(ds))
}

// ListDatasets returns a paginated list of the user's datasets.
func (h *Handler) ListDatasets(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	limit, err := parseLimit(r)
	if err != nil {
		writeError(ctx, w, err)

		return
	}

	q := r.URL.Query()
	datasets, next, err := h.deps.Ingest.UserDatasets(ctx,
		GetUserIDFromContext(ctx),
		domain.DatasetStatus(q.Get("status")),
		q.Get("cursor"),
		limit)
	if err != nil {
		writeError(ctx, w, err)

		return
	}

	items := make([]Dataset, 0, len(datasets))
	for i := range datasets {
		items = append(items, *DomainDatasetToV1(&datasets[i]))
	}

	writeJSON(ctx, w, http.StatusOK, DatasetList{Items: items, NextCursor: next})
}

// GetDataset returns details of a dataset by ID.
func (h *Handler) GetDataset(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := parseID(r)
	if err != nil {
		writeError(ctx, w, err)

		return
	}

	ds, err := h.deps.Ingest.Dataset(ctx, GetUserIDFromContext(ctx), domain.DatasetID(id))
	if err != nil {
		writeError(ctx, w, err)

		return
	}

	writeJSON(ctx, w, http.StatusOK, DomainDatasetToV1(ds))
}

// DeleteDataset deletes a dataset by ID.
func (h *Handler) DeleteDataset(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := parseID(r)
	if err != nil {
		writeError(ctx, w, err)

		return
	}

	if err := h.deps.Ingest.Delete(ctx, GetUserIDFromContext(ctx), domain.DatasetID(id)); err != nil {
		writeError(ctx, w, err)

		return
	}

	w.WriteHeader(http.StatusNoContent)
}
