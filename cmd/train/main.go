// Command train runs one retraining pass outside the scheduler: it loads the
// labeled feedback history from the database, fits a fresh classifier, and
// replaces the model artifact on disk.
//
// Usage:
//
//	go run ./cmd/train -model data/risk-model.json
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/mfigueredo/clima-alerta/internal/adapter/postgres"
	"github.com/mfigueredo/clima-alerta/internal/config"
	"github.com/mfigueredo/clima-alerta/internal/model"
	"github.com/mfigueredo/clima-alerta/internal/observability"
	"github.com/mfigueredo/clima-alerta/internal/trainer"
)

func main() {
	if err := run(); err != nil {
		slog.Error("training run failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	modelPath := flag.String("model", "", "output path for the model artifact (defaults to MODEL_PATH)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if *modelPath == "" {
		*modelPath = cfg.ModelPath
	}

	logger := observability.NewLogger(cfg.LogLevel, "text")
	metrics := observability.NewMetrics()

	storage, err := postgres.Connect(cfg.DatabaseURL, logger)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer storage.Close()

	store := model.NewStore(*modelPath, logger)
	t := trainer.New(storage, store, logger, metrics)

	result, err := t.TrainAndPersist(context.Background())
	if err != nil {
		return err
	}
	if result.Skipped {
		logger.Warn("training skipped", "rows", result.Rows, "required", trainer.MinTrainingRows)
		return nil
	}

	logger.Info("model artifact written",
		"path", *modelPath,
		"version", result.Version,
		"rows", result.Rows,
		"risk_f1", result.Report.Risk.F1,
	)
	return nil
}
