package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"trainer/internal/api"
	"trainer/internal/api/handler/v1handler"
	"trainer/internal/config"
	"trainer/internal/ingest"
	"trainer/internal/tracing"
	"trainer/internal/training"
	"trainer/internal/worker"
	"trainer/pkg/dataset"
	"trainer/pkg/logger"
	"trainer/pkg/metrics"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.uber.org/zap"
)

func setupServer(ctx context.Context, deps api.Deps, opts api.Options) func(ctx context.Context) {
	server, err := api.NewServer(ctx, deps, opts)
	if err != nil {
		logger.Fatal(ctx, "could not create webserver", zap.Error(err))
	}

	go func() {
		logger.Info(ctx, "starting webserver...")
		if err := server.ListenAndServe(); err != nil {
			if !errors.Is(err, http.ErrServerClosed) {
				logger.Error(ctx, "could not start webserver", zap.Error(err))
			}
		}
	}()

	return func(ctx context.Context) {
		logger.Info(ctx, "stopping webserver...")
		if err := server.Shutdown(ctx); err != nil {
			logger.Error(ctx, "could not stop webserver", zap.Error(err))
		}
	}
}

func serveCommand(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Starts API server and background workers",
		Run: func(cmd *cobra.Command, args []string) {
			ctx, _ := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)

			shutdownTracing, err := tracing.Setup(ctx)
			if err != nil {
				logger.Fatal(ctx, "could not set up tracing", zap.Error(err))
			}

			strg, closeStrg := getPostgres(ctx, cfg)
			defer closeStrg()

			store := getObjstore(ctx, cfg)

			exp, err := otelprom.New(otelprom.WithRegisterer(prometheus.DefaultRegisterer))
			if err != nil {
				logger.Fatal(ctx, "could not create metrics exporter", zap.Error(err))
			}
			meterProvider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(exp))

			pipeline, err := metrics.NewPipeline(meterProvider)
			if err != nil {
				logger.Fatal(ctx, "could not create pipeline metrics", zap.Error(err))
			}

			riverClient, err := worker.Start(ctx, cfg, strg.Pool,
				worker.NewIngestWorker(strg, store, dataset.NewFetcher(nil), pipeline),
				worker.NewTrainWorker(strg, store, pipeline),
			)
			if err != nil {
				logger.Fatal(ctx, "could not start workers", zap.Error(err))
			}

			stopWebserver := setupServer(ctx, api.Deps{
				Deps: v1handler.Deps{
					Ingest:   ingest.New(strg, ingest.NewOptions(cfg)),
					Training: training.New(strg, store, training.NewOptions(cfg)),
				},
				DBPool:        strg.Pool,
				RiverClient:   riverClient,
				MeterProvider: meterProvider,
			}, api.NewOptions(cfg))

			// wait for interrupt
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.GracefulShutdownTimeout)
			defer cancel()

			// Stop accepting requests first so nothing new is queued, then
			// drain the workers before the deferred pool close.
			stopWebserver(shutdownCtx)
			if err := riverClient.Stop(shutdownCtx); err != nil {
				logger.Error(ctx, "could not stop workers", zap.Error(err))
			}
			if err := shutdownTracing(shutdownCtx); err != nil {
				logger.Warn(ctx, "could not flush traces", zap.Error(err))
			}
		},
	}

	return cmd
}
