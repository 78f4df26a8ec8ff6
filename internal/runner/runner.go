// Package runner schedules the three periodic jobs: the main evaluation
// cycle, the forecast advisory scan, and the feedback-driven retrain.
package runner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/mfigueredo/clima-alerta/internal/domain"
	"github.com/mfigueredo/clima-alerta/internal/engine"
	"github.com/mfigueredo/clima-alerta/internal/model"
	"github.com/mfigueredo/clima-alerta/internal/observability"
	"github.com/mfigueredo/clima-alerta/internal/trainer"
)

// Collector fetches weather observations from the external provider.
type Collector interface {
	Current(ctx context.Context) (domain.Reading, error)
	Forecast(ctx context.Context) ([]domain.ForecastDay, error)
}

// Retrainer runs one retraining attempt.
type Retrainer interface {
	TrainAndPersist(ctx context.Context) (trainer.Result, error)
}

// Runner owns the job schedule. Each main cycle loads the current model
// artifact and builds a fresh engine around it, so a retrain published
// mid-cycle is picked up on the next tick without coordination.
type Runner struct {
	collector  Collector
	storage    engine.Storage
	notifier   engine.Notifier
	modelStore *model.Store
	retrainer  Retrainer
	thresholds domain.Thresholds
	logger     *slog.Logger
	metrics    *observability.Metrics
	clock      clockwork.Clock

	mainInterval     time.Duration
	forecastInterval time.Duration
	retrainInterval  time.Duration

	ready atomic.Bool
}

// New creates a Runner.
func New(
	collector Collector,
	storage engine.Storage,
	notifier engine.Notifier,
	modelStore *model.Store,
	retrainer Retrainer,
	thresholds domain.Thresholds,
	mainInterval, forecastInterval, retrainInterval time.Duration,
	logger *slog.Logger,
	metrics *observability.Metrics,
) *Runner {
	return &Runner{
		collector:        collector,
		storage:          storage,
		notifier:         notifier,
		modelStore:       modelStore,
		retrainer:        retrainer,
		thresholds:       thresholds,
		mainInterval:     mainInterval,
		forecastInterval: forecastInterval,
		retrainInterval:  retrainInterval,
		logger:           logger,
		metrics:          metrics,
		clock:            clockwork.NewRealClock(),
	}
}

// setClock replaces the scheduler clock; used by tests.
func (r *Runner) setClock(c clockwork.Clock) { r.clock = c }

// Run executes the first evaluation cycle immediately, then ticks all three
// jobs until the context is cancelled.
func (r *Runner) Run(ctx context.Context) error {
	r.logger.Info("runner starting",
		"main_interval", r.mainInterval,
		"forecast_interval", r.forecastInterval,
		"retrain_interval", r.retrainInterval,
	)

	r.runJob(ctx, "evaluation", r.evaluationCycle)

	var wg sync.WaitGroup
	jobs := []struct {
		name     string
		interval time.Duration
		fn       func(context.Context) error
	}{
		{"evaluation", r.mainInterval, r.evaluationCycle},
		{"forecast", r.forecastInterval, r.forecastCycle},
		{"retrain", r.retrainInterval, r.retrainCycle},
	}
	for _, job := range jobs {
		job := job
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.tickLoop(ctx, job.name, job.interval, job.fn)
		}()
	}
	wg.Wait()

	r.logger.Info("runner stopped")
	return nil
}

// CheckReadiness reports ready once an evaluation cycle has completed
// without error.
func (r *Runner) CheckReadiness(_ context.Context) error {
	if !r.ready.Load() {
		return errors.New("no evaluation cycle has completed yet")
	}
	return nil
}

func (r *Runner) tickLoop(ctx context.Context, name string, interval time.Duration, fn func(context.Context) error) {
	ticker := r.clock.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			r.runJob(ctx, name, fn)
		}
	}
}

// runJob runs one job invocation with panic containment. A panicking or
// failing job never takes the scheduler down.
func (r *Runner) runJob(ctx context.Context, name string, fn func(context.Context) error) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("job panicked", "job", name, "panic", rec)
		}
	}()

	if err := fn(ctx); err != nil && ctx.Err() == nil {
		r.logger.Error("job failed", "job", name, "error", err)
	}
}

// evaluationCycle fetches current conditions and runs the hybrid analysis.
// The model artifact is reloaded here so each cycle binds one snapshot.
func (r *Runner) evaluationCycle(ctx context.Context) error {
	eng := r.buildEngine(ctx)

	reading, err := r.collector.Current(ctx)
	if err != nil {
		r.reportError(ctx, "collector", err)
		return fmt.Errorf("fetch current conditions: %w", err)
	}

	// Evaluate reports its own failures on the notifier error channel.
	if _, err := eng.Evaluate(ctx, reading); err != nil {
		return err
	}

	r.ready.Store(true)
	return nil
}

// forecastCycle scans the short-horizon forecast for heavy-rain advisories.
// The forecast path never consults the model.
func (r *Runner) forecastCycle(ctx context.Context) error {
	eng := engine.New(r.storage, r.notifier, nil, r.thresholds, r.logger, r.metrics)

	days, err := r.collector.Forecast(ctx)
	if err != nil {
		r.reportError(ctx, "collector", err)
		return fmt.Errorf("fetch forecast: %w", err)
	}

	return eng.EvaluateForecast(ctx, days)
}

// retrainCycle runs one retraining attempt from accumulated feedback.
func (r *Runner) retrainCycle(ctx context.Context) error {
	result, err := r.retrainer.TrainAndPersist(ctx)
	if err != nil {
		r.reportError(ctx, "trainer", err)
		return err
	}
	if result.Skipped {
		return nil
	}

	r.logger.Info("new model will be used from the next evaluation cycle",
		"version", result.Version,
		"rows", result.Rows,
	)
	return nil
}

// buildEngine loads the current artifact and constructs the cycle's engine.
// An absent artifact degrades to rule-only evaluation; it is not an error.
// An unreadable artifact degrades the same way so threshold alerting keeps
// running: the failure is logged and reported, never allowed to kill the
// cycle.
func (r *Runner) buildEngine(ctx context.Context) *engine.Engine {
	artifact, err := r.modelStore.LoadLatest()
	if err != nil {
		r.logger.Error("model artifact unreadable, degrading to rule-only evaluation", "error", err)
		r.reportError(ctx, "model_store", err)
	}

	var predictor domain.RiskPredictor
	if artifact != nil {
		predictor = model.NewPredictor(artifact, r.logger)
		r.metrics.ModelLoaded.Set(1)
	} else {
		r.metrics.ModelLoaded.Set(0)
	}

	return engine.New(r.storage, r.notifier, predictor, r.thresholds, r.logger, r.metrics)
}

func (r *Runner) reportError(ctx context.Context, component string, err error) {
	if derr := r.notifier.DeliverError(ctx, component, err.Error()); derr != nil {
		r.logger.Error("error report delivery failed", "error", derr)
	}
}
