// Command seed populates the database with a synthetic labeled history so a
// fresh environment can exercise the retraining path before real feedback
// accumulates. Generated readings straddle the configured thresholds and each
// alert receives a label consistent with its conditions.
//
// Usage:
//
//	go run ./cmd/seed -rows 60 -seed 7
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/mfigueredo/clima-alerta/internal/adapter/postgres"
	"github.com/mfigueredo/clima-alerta/internal/config"
	"github.com/mfigueredo/clima-alerta/internal/domain"
	"github.com/mfigueredo/clima-alerta/internal/observability"
)

func main() {
	if err := run(); err != nil {
		slog.Error("seeding failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	rows := flag.Int("rows", 60, "number of labeled rows to generate")
	seed := flag.Int64("seed", 7, "random seed for reproducible data")
	flag.Parse()

	if *rows <= 0 {
		return fmt.Errorf("-rows must be positive, got %d", *rows)
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := observability.NewLogger(cfg.LogLevel, "text")

	storage, err := postgres.Connect(cfg.DatabaseURL, logger)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer storage.Close()

	ctx := context.Background()
	if err := storage.CreateTables(ctx); err != nil {
		return err
	}

	// Fixed clock so reruns with the same seed produce identical history.
	start := time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC)
	domain.SetClock(clockwork.NewFakeClockAt(start))
	defer domain.SetClock(nil)

	rng := rand.New(rand.NewSource(*seed))
	inserted := 0

	for i := 0; i < *rows; i++ {
		reading, label := syntheticReading(rng, cfg.Thresholds, start.Add(time.Duration(i)*30*time.Minute))

		readingID, err := storage.InsertReading(ctx, reading)
		if err != nil {
			return err
		}

		kind := domain.KindThreshold
		if !cfg.Thresholds.Breached(reading) {
			kind = domain.KindModel
		}
		alertID, err := storage.InsertAlert(ctx, kind, "seeded alert", readingID)
		if err != nil {
			return err
		}

		if err := storage.InsertFeedback(ctx, alertID, label); err != nil {
			return err
		}
		inserted++
	}

	logger.Info("synthetic history seeded", "rows", inserted, "seed", *seed)
	return nil
}

// syntheticReading generates one reading and its feedback label. Roughly half
// the rows sit clearly inside normal conditions and are labeled good; the
// rest breach at least one threshold and are labeled bad.
func syntheticReading(rng *rand.Rand, t domain.Thresholds, ts time.Time) (domain.Reading, string) {
	risky := rng.Intn(2) == 1

	var reading domain.Reading
	reading.Timestamp = ts
	reading.Condition = "seeded"
	reading.WindKMH = rng.Float64() * 30

	if risky {
		switch rng.Intn(3) {
		case 0:
			reading.Temperature = t.TempMax + 1 + rng.Float64()*8
			reading.Humidity = 40 + rng.Float64()*30
			reading.RainMM = rng.Float64() * 5
		case 1:
			reading.Temperature = 15 + rng.Float64()*10
			reading.Humidity = t.HumidityMax + rng.Float64()*(100-t.HumidityMax)
			reading.RainMM = rng.Float64() * 5
		default:
			reading.Temperature = 15 + rng.Float64()*10
			reading.Humidity = 40 + rng.Float64()*30
			reading.RainMM = t.RainLimitMM + 1 + rng.Float64()*20
		}
		return reading, domain.LabelBad
	}

	reading.Temperature = t.TempMin + 5 + rng.Float64()*(t.TempMax-t.TempMin-10)
	reading.Humidity = 30 + rng.Float64()*40
	reading.RainMM = rng.Float64() * (t.RainLimitMM / 4)
	return reading, domain.LabelGood
}
