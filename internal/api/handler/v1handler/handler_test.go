package v1handler_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"trainer/internal/api/handler/v1handler"
	mockingest "trainer/internal/ingest/mock"
	mocktraining "trainer/internal/training/mock"
	"trainer/pkg/domain"
	"trainer/pkg/logger"
	"trainer/pkg/serrors"
)

func TestMain(m *testing.M) {
	// Initialize logger to avoid nil pointer deref during tests
	logger.Setup(logger.DevelopmentEnvironment)
	m.Run()
}

// testAPI bundles the route table with mocked services and a valid token.
type testAPI struct {
	ingest   *mockingest.MockService
	training *mocktraining.MockService
	handler  http.Handler
	token    string
	userID   domain.UserID
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()

	ctrl := gomock.NewController(t)
	mi := mockingest.NewMockService(ctrl)
	mt := mocktraining.NewMockService(ctrl)

	priv, pubPEM := genRSAKeys(t)
	sec := newSecHandlerForTest(t, pubPEM)

	uid := uuid.New()
	now := time.Now()

	return &testAPI{
		ingest:   mi,
		training: mt,
		handler:  v1handler.New(v1handler.Deps{Ingest: mi, Training: mt}).Routes(sec),
		token:    signJWTRS256(t, priv, uid.String(), now, now.Add(time.Hour)),
		userID:   domain.UserID(uid),
	}
}

// do runs one authenticated request against the route table.
func (a *testAPI) do(t *testing.T, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var rd io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, target, rd)
	req.Header.Set("Authorization", "Bearer "+a.token)
	rec := httptest.NewRecorder()
	a.handler.ServeHTTP(rec, req)

	return rec
}

func decodeErrorBody(t *testing.T, rec *httptest.ResponseRecorder) v1handler.ErrorResponse {
	t.Helper()

	var body v1handler.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))

	return body
}

func TestErrorEnvelope_KindMapping(t *testing.T) {
	cases := []struct {
		name        string
		err         error
		wantStatus  int
		wantCode    string
		wantMessage string
	}{
		{
			name:        "plain error is internal",
			err:         errors.New("boom"),
			wantStatus:  http.StatusInternalServerError,
			wantCode:    serrors.ErrInternal.Error(),
			wantMessage: "internal error",
		},
		{
			name:        "kind sentinel direct",
			err:         serrors.ErrNotFound,
			wantStatus:  http.StatusNotFound,
			wantCode:    serrors.ErrNotFound.Error(),
			wantMessage: "resource not found",
		},
		{
			name:        "semantic with message",
			err:         serrors.With(serrors.ErrBadRequest, "invalid payload: missing name"),
			wantStatus:  http.StatusBadRequest,
			wantCode:    serrors.ErrBadRequest.Error(),
			wantMessage: "invalid payload: missing name",
		},
		{
			name:        "semantic wrap keeps message not cause",
			err:         serrors.Wrap(serrors.ErrConflict, errors.New("duplicate key"), "dataset already exists"),
			wantStatus:  http.StatusConflict,
			wantCode:    serrors.ErrConflict.Error(),
			wantMessage: "dataset already exists",
		},
		{
			name:        "internal kind never leaks its message",
			err:         serrors.Wrap(serrors.ErrInternal, errors.New("pq: ssl off"), "stored artifact is not usable"),
			wantStatus:  http.StatusInternalServerError,
			wantCode:    serrors.ErrInternal.Error(),
			wantMessage: "internal error",
		},
		{
			name:        "wrapped semantic error",
			err:         serrors.With(serrors.ErrUnavailable, "object storage is down"),
			wantStatus:  http.StatusServiceUnavailable,
			wantCode:    serrors.ErrUnavailable.Error(),
			wantMessage: "object storage is down",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			api := newTestAPI(t)
			id := uuid.New()
			api.ingest.EXPECT().
				Dataset(gomock.Any(), api.userID, domain.DatasetID(id)).
				Return(nil, tc.err)

			rec := api.do(t, http.MethodGet, "/datasets/"+id.String(), nil)

			require.Equal(t, tc.wantStatus, rec.Code)
			require.Equal(t, "application/json", rec.Header().Get("Content-Type"))
			body := decodeErrorBody(t, rec)
			require.Equal(t, tc.wantCode, body.Error.Code)
			require.Equal(t, tc.wantMessage, body.Error.Message)
		})
	}
}

func TestRoutes_UnknownPathGetsEnvelope(t *testing.T) {
	api := newTestAPI(t)

	rec := api.do(t, http.MethodGet, "/nope", nil)

	require.Equal(t, http.StatusNotFound, rec.Code)
	body := decodeErrorBody(t, rec)
	require.Equal(t, serrors.ErrNotFound.Error(), body.Error.Code)
}

func TestRoutes_RejectsUnauthenticated(t *testing.T) {
	api := newTestAPI(t)

	req := httptest.NewRequest(http.MethodGet, "/datasets", nil)
	rec := httptest.NewRecorder()
	api.handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
	body := decodeErrorBody(t, rec)
	require.Equal(t, serrors.ErrUnauthorized.Error(), body.Error.Code)
}

func TestParseLimit_Bounds(t *testing.T) {
	cases := []struct {
		name  string
		limit string
	}{
		{name: "not a number", limit: "ten"},
		{name: "zero", limit: "0"},
		{name: "negative", limit: "-5"},
		{name: "over the cap", limit: "101"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			api := newTestAPI(t)

			rec := api.do(t, http.MethodGet, "/datasets?limit="+tc.limit, nil)

			require.Equal(t, http.StatusBadRequest, rec.Code)
			body := decodeErrorBody(t, rec)
			require.Equal(t, serrors.ErrBadRequest.Error(), body.Error.Code)
		})
	}
}
