// Package v1handler implements version 1 of the REST API: JSON over
// net/http, bearer JWT authentication and a uniform error envelope.
package v1handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"trainer/internal/ingest"
	"trainer/internal/training"
	"trainer/pkg/controller"
	"trainer/pkg/logger"
	"trainer/pkg/serrors"
)

// DefaultLimit is the page size used when a list request does not set one.
const DefaultLimit = 20

// maxLimit caps the page size of list requests.
const maxLimit = 100

// maxBodyBytes bounds request bodies; prediction batches dominate.
const maxBodyBytes = 1 << 20

// Deps carries the services the handlers delegate to.
type Deps struct {
	// Ingest serves the dataset lifecycle.
	Ingest ingest.Service
	// Training serves runs, predictions and artifact downloads.
	Training training.Service
}

type Handler struct {
	deps Deps
}

func New(deps Deps) *Handler {
	return &Handler{deps: deps}
}

// Routes returns the v1 route table with every endpoint behind the given
// authentication handler. Callers mount it under the /v1 prefix.
func (h *Handler) Routes(sec *SecHandler) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /datasets", h.CreateDataset)
	mux.HandleFunc("GET /datasets", h.ListDatasets)
	mux.HandleFunc("GET /datasets/{id}", h.GetDataset)
	mux.HandleFunc("DELETE /datasets/{id}", h.DeleteDataset)

	mux.HandleFunc("POST /runs", h.CreateRun)
	mux.HandleFunc("GET /runs", h.ListRuns)
	mux.HandleFunc("GET /runs/{id}", h.GetRun)
	mux.HandleFunc("DELETE /runs/{id}", h.DeleteRun)
	mux.HandleFunc("POST /runs/{id}/predictions", h.Predict)
	mux.HandleFunc("GET /runs/{id}/artifact", h.GetArtifact)

	// unmatched paths get the JSON envelope, not the mux default
	mux.HandleFunc("/", h.notFound)

	return sec.WithAuth(mux)
}

func (h *Handler) notFound(w http.ResponseWriter, r *http.Request) {
	writeError(r.Context(), w, serrors.KindOnly(serrors.ErrNotFound))
}

// ErrorResponse is the envelope of every error reply.
type ErrorResponse struct {
	Error ErrorBody `json:"error"`
	// RequestID echoes the request's correlation ID so a client report can be
	// matched against the logs.
	RequestID string `json:"requestId,omitempty"`
}

// ErrorBody names the failure: Code is the stable semantic kind, Message the
// human-readable detail.
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// kindOf extracts the semantic kind of err, falling back to internal.
func kindOf(err error) serrors.Kind {
	var sErr *serrors.Error
	if errors.As(err, &sErr) && sErr.Kind() != nil {
		return sErr.Kind()
	}

	var k serrors.Kind
	if errors.As(err, &k) {
		return k
	}

	return serrors.ErrInternal
}

func statusOf(k serrors.Kind) int {
	switch k {
	case serrors.ErrBadRequest:
		return http.StatusBadRequest
	case serrors.ErrUnauthorized:
		return http.StatusUnauthorized
	case serrors.ErrNotFound:
		return http.StatusNotFound
	case serrors.ErrConflict:
		return http.StatusConflict
	case serrors.ErrTimeout:
		return http.StatusGatewayTimeout
	case serrors.ErrUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func defaultMessage(k serrors.Kind) string {
	switch k {
	case serrors.ErrBadRequest:
		return "invalid request"
	case serrors.ErrUnauthorized:
		return "unauthorized"
	case serrors.ErrNotFound:
		return "resource not found"
	case serrors.ErrConflict:
		return "conflict with current state"
	case serrors.ErrTimeout:
		return "timed out"
	case serrors.ErrUnavailable:
		return "temporarily unavailable"
	default:
		return "internal error"
	}
}

// writeError renders err as the JSON error envelope. Internal failures keep
// their detail in the logs only.
func writeError(ctx context.Context, w http.ResponseWriter, err error) {
	k := kindOf(err)
	status := statusOf(k)
	if status >= http.StatusInternalServerError {
		logger.Error(ctx, "request failed", zap.Error(err))
	} else {
		logger.Info(ctx, "request rejected", zap.Error(err))
	}

	msg := defaultMessage(k)
	var sErr *serrors.Error
	if k != serrors.ErrInternal && errors.As(err, &sErr) && sErr.Message() != "" {
		msg = sErr.Message()
	}

	writeJSON(ctx, w, status, ErrorResponse{
		Error:     ErrorBody{Code: k.Error(), Message: msg},
		RequestID: controller.GetRequestID(ctx),
	})
}

func writeJSON(ctx context.Context, w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error(ctx, "could not write response", zap.Error(err))
	}
}

// decodeJSON parses the request body into v, rejecting unknown fields so
// misspelled hyperparameters fail loudly instead of silently defaulting.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return serrors.Wrap(serrors.ErrBadRequest, err, "invalid request body")
	}

	return nil
}

// parseID reads the {id} path value as a UUID.
func parseID(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		return uuid.UUID{}, serrors.Wrap(serrors.ErrBadRequest, err, "invalid id")
	}

	return id, nil
}

// parseLimit reads the limit query parameter, applying the default and cap.
func parseLimit(r *http.Request) (uint, error) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return DefaultLimit, nil
	}

	limit, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || limit == 0 {
		return 0, serrors.With(serrors.ErrBadRequest, "limit must be a positive integer")
	}
	if limit > maxLimit {
		return 0, serrors.With(serrors.ErrBadRequest, "limit exceeds %d", maxLimit)
	}

	return uint(limit), nil
}
