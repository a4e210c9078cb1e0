package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/verolabz/doctweak/internal/bootstrap"
	"github.com/verolabz/doctweak/internal/config"
	"github.com/verolabz/doctweak/internal/observability/logging"
)

func main() {
	cfg := config.Load()
	logger := logging.NewJSONLogger("worker", cfg.LogLevel)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("bootstrap_failed", slog.Any("error", err))
		os.Exit(1)
	}
	defer app.Close()

	metricsServer := &http.Server{
		Addr:    ":" + cfg.WorkerMetricsPort,
		Handler: app.WorkerMetrics.Handler(),
	}
	go func() {
		logger.Info("worker_metrics_listening", slog.String("port", cfg.WorkerMetricsPort))
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("worker_metrics_failed", slog.Any("error", err))
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsServer.Shutdown(shutdownCtx)
	}()

	logger.Info("worker_subscribed", slog.String("subject", cfg.NATSSubject))
	err = app.Queue.SubscribeEnhancementRequested(ctx, func(handlerCtx context.Context, sessionID string) error {
		app.WorkerMetrics.StartSession()
		defer app.WorkerMetrics.FinishSession()

		processCtx, cancel := context.WithTimeout(handlerCtx, 5*time.Minute)
		defer cancel()
		return app.EnhanceUC.ProcessByID(processCtx, sessionID)
	})
	if err != nil {
		logger.Error("worker_subscribe_failed", slog.Any("error", err))
		os.Exit(1)
	}
}
