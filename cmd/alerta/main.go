package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	httpadapter "github.com/mfigueredo/clima-alerta/internal/adapter/http"
	kafkaadapter "github.com/mfigueredo/clima-alerta/internal/adapter/kafka"
	"github.com/mfigueredo/clima-alerta/internal/adapter/owm"
	"github.com/mfigueredo/clima-alerta/internal/adapter/postgres"
	"github.com/mfigueredo/clima-alerta/internal/config"
	"github.com/mfigueredo/clima-alerta/internal/model"
	"github.com/mfigueredo/clima-alerta/internal/observability"
	"github.com/mfigueredo/clima-alerta/internal/runner"
	"github.com/mfigueredo/clima-alerta/internal/trainer"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	storage, err := postgres.Connect(cfg.DatabaseURL, logger)
	if err != nil {
		logger.Error("database connection failed", "error", err)
		os.Exit(1)
	}
	defer storage.Close()

	if err := storage.CreateTables(ctx); err != nil {
		logger.Error("schema setup failed", "error", err)
		os.Exit(1)
	}

	collector := owm.NewClient(cfg.WeatherAPIKey, cfg.Latitude, cfg.Longitude, cfg.WeatherTimeout, logger)
	notifier := kafkaadapter.NewNotifier(cfg.KafkaBrokers, cfg.KafkaAlertTopic, logger, metrics)
	feedback := kafkaadapter.NewFeedbackConsumer(cfg.KafkaBrokers, cfg.KafkaFeedbackTopic, cfg.KafkaGroupID, storage, logger, metrics)

	modelStore := model.NewStore(cfg.ModelPath, logger)
	retrainer := trainer.New(storage, modelStore, logger, metrics)

	r := runner.New(
		collector, storage, notifier, modelStore, retrainer,
		cfg.Thresholds,
		cfg.MainInterval, cfg.ForecastInterval, cfg.RetrainInterval,
		logger, metrics,
	)

	srv := httpadapter.NewServer(cfg.HTTPAddr, r, storage, logger)

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	// Start feedback consumer.
	go func() {
		if err := feedback.Run(ctx); err != nil {
			logger.Error("feedback consumer error", "error", err)
		}
	}()

	// Start the job scheduler.
	go func() {
		if err := r.Run(ctx); err != nil {
			logger.Error("runner error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if err := feedback.Close(); err != nil {
		logger.Error("feedback consumer close error", "error", err)
	}
	if err := notifier.Close(); err != nil {
		logger.Error("kafka writer close error", "error", err)
	}

	logger.Info("shutdown complete")
}
