package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kirillkom/knowledge-retriever/internal/bootstrap"
	"github.com/kirillkom/knowledge-retriever/internal/config"
	"github.com/kirillkom/knowledge-retriever/internal/observability/logging"
	"github.com/kirillkom/knowledge-retriever/internal/observability/metrics"
)

func main() {
	cfg := config.Load()
	logging.Init("retriever-worker", cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.NewWorker(ctx, cfg)
	if err != nil {
		slog.Error("bootstrap failed", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	workerMetrics := metrics.NewWorkerMetrics("retriever-worker")
	metricsServer := &http.Server{
		Addr:        ":" + cfg.WorkerMetricsPort,
		Handler:     workerMetrics.Handler(),
		ReadTimeout: 10 * time.Second,
	}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("metrics server failed", "error", err)
		}
	}()

	slog.Info("corpus ingest started", "path", cfg.CorpusPath)
	workerMetrics.StartDocument()
	start := time.Now()
	report, err := app.IngestUC.Run(ctx)
	workerMetrics.FinishDocument("retriever-worker", time.Since(start), err)
	workerMetrics.RecordReindex("retriever-worker", err)
	if err != nil {
		slog.Error("corpus ingest failed", "error", err)
		os.Exit(1)
	}
	workerMetrics.ObserveIndexedChunks("retriever-worker", report.Chunks)

	slog.Info("corpus ingest finished",
		"loaded", report.Loaded,
		"ingested", report.Ingested,
		"failed", report.Failed,
		"chunks", report.Chunks,
	)

	// Stay up briefly so the final run can be scraped, then exit on signal
	// or after the grace period.
	grace := time.NewTimer(30 * time.Second)
	defer grace.Stop()
	select {
	case <-ctx.Done():
	case <-grace.C:
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = metricsServer.Shutdown(shutdownCtx)
}
