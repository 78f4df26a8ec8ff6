// Package trainer implements the feedback-driven retraining loop: it builds
// a labeled dataset from historical feedback, fits a fresh classifier,
// evaluates it on a held-out split, and replaces the canonical model
// artifact.
package trainer

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"github.com/mfigueredo/clima-alerta/internal/domain"
	"github.com/mfigueredo/clima-alerta/internal/model"
	"github.com/mfigueredo/clima-alerta/internal/observability"
)

const (
	// MinTrainingRows is the hard gate below which no retrain happens and
	// the previously persisted artifact remains authoritative.
	MinTrainingRows = 20

	testFraction = 0.25
	randomSeed   = 42
	treeCount    = 100
)

// TrainingSource supplies the joined Feedback → Alert → Reading rows.
type TrainingSource interface {
	LabeledTrainingRows(ctx context.Context) ([]domain.TrainingRow, error)
}

// ArtifactStore persists the trained model.
type ArtifactStore interface {
	Save(a *model.Artifact) error
}

// Trainer orchestrates one train-evaluate-persist run per invocation.
type Trainer struct {
	source  TrainingSource
	store   ArtifactStore
	logger  *slog.Logger
	metrics *observability.Metrics
}

// New creates a Trainer.
func New(source TrainingSource, store ArtifactStore, logger *slog.Logger, metrics *observability.Metrics) *Trainer {
	return &Trainer{source: source, store: store, logger: logger, metrics: metrics}
}

// Result describes one retraining attempt.
type Result struct {
	Skipped bool // true when the dataset was below the minimum size
	Rows    int  // valid labeled rows found
	Version string
	Report  Report
}

// TrainAndPersist runs the full retraining flow. A too-small dataset is not
// an error: the run is skipped with a warning. The new model is persisted
// whenever training succeeds, regardless of the held-out metrics; those are
// logged and exported as diagnostics only.
func (t *Trainer) TrainAndPersist(ctx context.Context) (Result, error) {
	start := time.Now()

	rows, err := t.source.LabeledTrainingRows(ctx)
	if err != nil {
		t.metrics.TrainingRuns.WithLabelValues("failed").Inc()
		return Result{}, fmt.Errorf("load training rows: %w", err)
	}

	features, labels := buildDataset(rows)
	t.metrics.TrainingRows.Set(float64(len(features)))
	t.logger.Info("training dataset assembled", "valid_rows", len(features), "raw_rows", len(rows))

	if len(features) < MinTrainingRows {
		t.logger.Warn("not enough labeled data to retrain, keeping current model",
			"rows", len(features),
			"required", MinTrainingRows,
		)
		t.metrics.TrainingRuns.WithLabelValues("skipped").Inc()
		return Result{Skipped: true, Rows: len(features)}, nil
	}

	trainX, trainY, testX, testY := stratifiedSplit(features, labels, testFraction, randomSeed)

	forest, err := model.Train(trainX, trainY, model.TrainParams{
		Trees:           treeCount,
		Seed:            randomSeed,
		BalancedWeights: true,
	})
	if err != nil {
		t.metrics.TrainingRuns.WithLabelValues("failed").Inc()
		return Result{Rows: len(features)}, fmt.Errorf("fit classifier: %w", err)
	}

	report := evaluateHoldout(forest, testX, testY)
	t.logReport(report)
	t.metrics.HeldOutF1.WithLabelValues("normal").Set(report.Normal.F1)
	t.metrics.HeldOutF1.WithLabelValues("risk").Set(report.Risk.F1)

	artifact := model.NewArtifact(forest, len(features))
	if err := t.store.Save(artifact); err != nil {
		t.metrics.TrainingRuns.WithLabelValues("failed").Inc()
		return Result{Rows: len(features)}, fmt.Errorf("persist model artifact: %w", err)
	}

	t.metrics.TrainingRuns.WithLabelValues("trained").Inc()
	t.metrics.TrainingDuration.Observe(time.Since(start).Seconds())
	t.logger.Info("model retrained and persisted",
		"version", artifact.Version,
		"rows", len(features),
		"held_out", len(testY),
	)

	return Result{Rows: len(features), Version: artifact.Version, Report: report}, nil
}

// buildDataset converts storage rows into feature/label slices, excluding
// rows with any NULL feature or an unrecognized label.
func buildDataset(rows []domain.TrainingRow) ([][]float64, []int) {
	features := make([][]float64, 0, len(rows))
	labels := make([]int, 0, len(rows))
	for _, row := range rows {
		class, ok := domain.LabelClass(row.Label)
		if !ok {
			continue
		}
		if row.Temperature == nil || row.Humidity == nil || row.RainMM == nil {
			continue
		}
		features = append(features, []float64{*row.Temperature, *row.Humidity, *row.RainMM})
		labels = append(labels, class)
	}
	return features, labels
}

// stratifiedSplit reserves testFraction of each class for evaluation,
// shuffled with a fixed seed for reproducibility.
func stratifiedSplit(features [][]float64, labels []int, fraction float64, seed int64) (trainX [][]float64, trainY []int, testX [][]float64, testY []int) {
	rng := rand.New(rand.NewSource(seed))

	for class := 0; class <= 1; class++ {
		var idx []int
		for i, y := range labels {
			if y == class {
				idx = append(idx, i)
			}
		}
		rng.Shuffle(len(idx), func(a, b int) { idx[a], idx[b] = idx[b], idx[a] })

		nTest := int(float64(len(idx))*fraction + 0.5)
		for pos, i := range idx {
			if pos < nTest {
				testX = append(testX, features[i])
				testY = append(testY, labels[i])
			} else {
				trainX = append(trainX, features[i])
				trainY = append(trainY, labels[i])
			}
		}
	}
	return trainX, trainY, testX, testY
}

func (t *Trainer) logReport(r Report) {
	t.logger.Info("held-out classification report",
		"accuracy", r.Accuracy,
		"normal_precision", r.Normal.Precision,
		"normal_recall", r.Normal.Recall,
		"normal_f1", r.Normal.F1,
		"normal_support", r.Normal.Support,
		"risk_precision", r.Risk.Precision,
		"risk_recall", r.Risk.Recall,
		"risk_f1", r.Risk.F1,
		"risk_support", r.Risk.Support,
	)
}
