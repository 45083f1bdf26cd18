package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpadapter "github.com/kirillkom/knowledge-retriever/internal/adapters/http"
	"github.com/kirillkom/knowledge-retriever/internal/bootstrap"
	"github.com/kirillkom/knowledge-retriever/internal/config"
	"github.com/kirillkom/knowledge-retriever/internal/observability/logging"
	"github.com/kirillkom/knowledge-retriever/internal/observability/metrics"
)

func main() {
	cfg := config.Load()
	logging.Init("retriever-api", cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg)
	if err != nil {
		slog.Error("bootstrap failed", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	// Reindex events from the ingest worker rebuild the in-process lexical
	// index; the subscription blocks until shutdown.
	go func() {
		if err := app.Queue.SubscribeReindex(ctx, app.ReindexUC.Reindex); err != nil {
			slog.Error("reindex subscription failed", "error", err)
		}
	}()

	serverMetrics := metrics.NewHTTPServerMetrics("retriever-api")
	app.RetrieveUC.OnSourceFailure(func(source string) {
		serverMetrics.RecordSourceFailure("retriever-api", source)
	})
	router := httpadapter.NewRouter(
		app.RetrieveUC,
		app.ReindexUC,
		app.Limiter,
		serverMetrics,
		"retriever-api",
		cfg.RequestTimeout,
		cfg.MaxInFlight,
		cfg.QueueWait,
	).Handler()

	server := &http.Server{
		Addr:         ":" + cfg.APIPort,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("api listening", "port", cfg.APIPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("api server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("api shutdown error", "error", err)
	}
}
