package controller_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"trainer/pkg/controller"

	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func TestWithMetrics_RecordsDuration(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	hist, err := mp.Meter("test").Float64Histogram("http.duration")
	require.NoError(t, err)

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	req := httptest.NewRequest(http.MethodGet, "/missing", nil)
	rec := httptest.NewRecorder()
	controller.WithMetrics(hist, next).ServeHTTP(rec, req)
	require.Equal(t, http.StatusNotFound, rec.Result().StatusCode)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(req.Context(), &rm))
	require.Len(t, rm.ScopeMetrics, 1)
	require.Len(t, rm.ScopeMetrics[0].Metrics, 1)

	data, ok := rm.ScopeMetrics[0].Metrics[0].Data.(metricdata.Histogram[float64])
	require.True(t, ok)
	require.Len(t, data.DataPoints, 1)

	point := data.DataPoints[0]
	require.EqualValues(t, 1, point.Count)

	method, ok := point.Attributes.Value(attribute.Key("method"))
	require.True(t, ok)
	require.Equal(t, http.MethodGet, method.AsString())

	status, ok := point.Attributes.Value(attribute.Key("status"))
	require.True(t, ok)
	require.EqualValues(t, http.StatusNotFound, status.AsInt64())
}
