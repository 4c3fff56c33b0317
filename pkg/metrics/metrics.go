// Package metrics defines the OpenTelemetry instruments recorded by the
// training pipeline, plus shared histogram bucket layouts.
package metrics

import (
	"fmt"

	"go.opentelemetry.io/otel/metric"
)

// DefaultBuckets provides a common set of histogram buckets in seconds that can
// be reused across the application for latency metrics.
var DefaultBuckets = []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10} //nolint: gochecknoglobals

// TrainingBuckets covers the seconds-to-minutes range of a model fit, which is
// far slower than a request round trip.
var TrainingBuckets = []float64{.5, 1, 2.5, 5, 10, 30, 60, 120, 300, 600} //nolint: gochecknoglobals

// Pipeline holds the instruments recorded by the ingestion and training
// workers.
type Pipeline struct {
	RunsStarted      metric.Int64Counter
	RunsCompleted    metric.Int64Counter
	RunsFailed       metric.Int64Counter
	TrainingDuration metric.Float64Histogram
	RowsIngested     metric.Int64Counter
	DatasetsFailed   metric.Int64Counter
}

// NewPipeline registers the pipeline instruments on the given provider.
func NewPipeline(mp metric.MeterProvider) (*Pipeline, error) {
	meter := mp.Meter("trainer/pipeline")

	runsStarted, err := meter.Int64Counter("runs.started",
		metric.WithDescription("Training runs picked up by a worker"),
		metric.WithUnit("{run}"))
	if err != nil {
		return nil, fmt.Errorf("could not create runs.started counter: %w", err)
	}

	runsCompleted, err := meter.Int64Counter("runs.completed",
		metric.WithDescription("Training runs that finished with an artifact"),
		metric.WithUnit("{run}"))
	if err != nil {
		return nil, fmt.Errorf("could not create runs.completed counter: %w", err)
	}

	runsFailed, err := meter.Int64Counter("runs.failed",
		metric.WithDescription("Training runs that exhausted their attempts"),
		metric.WithUnit("{run}"))
	if err != nil {
		return nil, fmt.Errorf("could not create runs.failed counter: %w", err)
	}

	trainingDuration, err := meter.Float64Histogram("training.duration",
		metric.WithDescription("Wall-clock time spent fitting and evaluating a model"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(TrainingBuckets...))
	if err != nil {
		return nil, fmt.Errorf("could not create training.duration histogram: %w", err)
	}

	rowsIngested, err := meter.Int64Counter("datasets.rows_ingested",
		metric.WithDescription("Rows written to split objects during ingestion"),
		metric.WithUnit("{row}"))
	if err != nil {
		return nil, fmt.Errorf("could not create datasets.rows_ingested counter: %w", err)
	}

	datasetsFailed, err := meter.Int64Counter("datasets.failed",
		metric.WithDescription("Dataset ingestions that exhausted their attempts"),
		metric.WithUnit("{dataset}"))
	if err != nil {
		return nil, fmt.Errorf("could not create datasets.failed counter: %w", err)
	}

	return &Pipeline{
		RunsStarted:      runsStarted,
		RunsCompleted:    runsCompleted,
		RunsFailed:       runsFailed,
		TrainingDuration: trainingDuration,
		RowsIngested:     rowsIngested,
		DatasetsFailed:   datasetsFailed,
	}, nil
}

// NewRequestDuration registers the HTTP request duration histogram recorded
// by the API middleware.
func NewRequestDuration(mp metric.MeterProvider) (metric.Float64Histogram, error) {
	meter := mp.Meter("trainer/api")

	hist, err := meter.Float64Histogram("http.request.duration",
		metric.WithDescription("Wall-clock time spent serving an HTTP request"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(DefaultBuckets...))
	if err != nil {
		return nil, fmt.Errorf("could not create http.request.duration histogram: %w", err)
	}

	return hist, nil
}
