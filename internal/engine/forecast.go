package engine

import (
	"context"
	"fmt"

	"github.com/mfigueredo/clima-alerta/internal/domain"
)

// forecastHorizonDays bounds how far ahead the advisory scan looks.
const forecastHorizonDays = 2

// EvaluateForecast scans the first two daily forecast entries and emits an
// advisory for each whose expected rain reaches the configured rain limit.
// The model path is not involved and nothing is persisted.
//
// A delivery failure ends the scan; remaining days are not inspected.
func (e *Engine) EvaluateForecast(ctx context.Context, days []domain.ForecastDay) error {
	e.logger.Info("analyzing extended forecast", "days", len(days))

	horizon := days
	if len(horizon) > forecastHorizonDays {
		horizon = horizon[:forecastHorizonDays]
	}

	for _, day := range horizon {
		if day.RainMM < e.thresholds.RainLimitMM {
			continue
		}

		e.logger.Warn("significant rain in forecast",
			"date", day.Date.Format("2006-01-02"),
			"rain_mm", day.RainMM,
			"condition", day.Condition,
		)

		if err := e.notifier.DeliverForecastAdvisory(ctx, day.Date, day.RainMM, day.Condition); err != nil {
			e.logger.Error("forecast advisory delivery failed", "error", err)
			return fmt.Errorf("deliver forecast advisory: %w", err)
		}
		e.metrics.ForecastAdvisories.Inc()
	}
	return nil
}
