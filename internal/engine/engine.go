// Package engine implements the hybrid risk decision engine: static
// threshold rules fused with the classifier's risk probability into a single
// alert/no-alert decision, plus the rule-only forecast evaluator.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/mfigueredo/clima-alerta/internal/domain"
	"github.com/mfigueredo/clima-alerta/internal/observability"
)

const component = "decision_engine"

// Storage persists readings and alerts. An alert row is only ever written
// after its reading row.
type Storage interface {
	InsertReading(ctx context.Context, r domain.Reading) (int64, error)
	InsertAlert(ctx context.Context, kind domain.AlertKind, message string, readingID int64) (int64, error)
}

// Notifier delivers human-facing messages and carries the error channel.
type Notifier interface {
	DeliverAlert(ctx context.Context, message string, alertID int64) error
	DeliverForecastAdvisory(ctx context.Context, date time.Time, rainMM float64, condition string) error
	DeliverError(ctx context.Context, component, errText string) error
}

// Engine evaluates one reading per call against a threshold snapshot and,
// when a model is loaded, the predictor bound at construction. Construct a
// fresh Engine per cycle so each cycle binds to one model artifact.
type Engine struct {
	storage    Storage
	notifier   Notifier
	predictor  domain.RiskPredictor
	thresholds domain.Thresholds
	logger     *slog.Logger
	metrics    *observability.Metrics
}

// New creates an Engine. predictor may be nil for rule-only evaluation.
func New(storage Storage, notifier Notifier, predictor domain.RiskPredictor, thresholds domain.Thresholds, logger *slog.Logger, metrics *observability.Metrics) *Engine {
	return &Engine{
		storage:    storage,
		notifier:   notifier,
		predictor:  predictor,
		thresholds: thresholds,
		logger:     logger,
		metrics:    metrics,
	}
}

// Evaluate runs the hybrid analysis for one reading. On an alerting outcome
// it persists the reading, then the alert, then requests delivery; an
// earlier failure in that sequence prevents every later step. Failures are
// logged, reported on the notifier error channel, and returned; they never
// panic the calling cycle.
func (e *Engine) Evaluate(ctx context.Context, reading domain.Reading) (domain.Decision, error) {
	if err := reading.Validate(); err != nil {
		return e.reportFailure(ctx, domain.Decision{}, fmt.Errorf("validate reading: %w", err))
	}

	ruleFired := e.thresholds.Breached(reading)

	var prob float64
	modelFired := false
	modelConsulted := false
	if e.predictor != nil && e.predictor.Ready() {
		if pred, ok := e.predictor.Predict(reading.Temperature, reading.Humidity, reading.RainMM); ok {
			modelConsulted = true
			prob = pred.RiskProbability
			modelFired = prob >= e.thresholds.ModelThreshold()
			e.metrics.ModelProbability.Observe(prob)
		}
	}

	decision := domain.Decision{
		Outcome:        fuse(ruleFired, modelFired),
		Probability:    prob,
		ModelConsulted: modelConsulted,
		EvaluatedAt:    domain.Timestamp(),
	}
	e.metrics.EvaluationsTotal.WithLabelValues(string(decision.Outcome)).Inc()

	if !decision.Outcome.Alerting() {
		e.logger.Info("conditions normal, no alert required",
			"temperature", reading.Temperature,
			"humidity", reading.Humidity,
			"rain_mm", reading.RainMM,
			"model_consulted", modelConsulted,
		)
		return decision, nil
	}

	decision.Message = composeAlertMessage(reading, ruleFired, modelFired, modelConsulted, prob)

	readingID, err := e.storage.InsertReading(ctx, reading)
	if err != nil {
		e.metrics.StorageErrors.Inc()
		return e.reportFailure(ctx, decision, fmt.Errorf("persist reading: %w", err))
	}

	alertID, err := e.storage.InsertAlert(ctx, decision.Outcome.Kind(), decision.Message, readingID)
	if err != nil {
		e.metrics.StorageErrors.Inc()
		return e.reportFailure(ctx, decision, fmt.Errorf("persist alert: %w", err))
	}
	decision.AlertID = alertID
	e.metrics.AlertsTotal.WithLabelValues(string(decision.Outcome.Kind())).Inc()

	if err := e.notifier.DeliverAlert(ctx, decision.Message, alertID); err != nil {
		return e.reportFailure(ctx, decision, fmt.Errorf("deliver alert: %w", err))
	}

	e.logger.Warn("risk alert raised",
		"kind", decision.Outcome.Kind(),
		"outcome", decision.Outcome,
		"alert_id", alertID,
		"reading_id", readingID,
		"risk_probability", prob,
	)
	return decision, nil
}

// fuse combines the two signals into the final outcome.
func fuse(ruleFired, modelFired bool) domain.Outcome {
	switch {
	case ruleFired && modelFired:
		return domain.OutcomeBoth
	case ruleFired:
		return domain.OutcomeThreshold
	case modelFired:
		return domain.OutcomeModel
	default:
		return domain.OutcomeNoAlert
	}
}

// reportFailure logs the evaluation failure and surfaces it on the notifier
// error channel. Delivery of the error report is best effort.
func (e *Engine) reportFailure(ctx context.Context, decision domain.Decision, err error) (domain.Decision, error) {
	e.logger.Error("hybrid evaluation failed", "error", err)
	e.metrics.EvaluationErrors.Inc()
	if derr := e.notifier.DeliverError(ctx, component, err.Error()); derr != nil {
		e.logger.Error("error report delivery failed", "error", derr)
	}
	return decision, err
}
