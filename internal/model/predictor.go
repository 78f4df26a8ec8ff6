package model

import (
	"log/slog"

	"github.com/mfigueredo/clima-alerta/internal/domain"
)

// Predictor serves predictions from one artifact snapshot. It binds to the
// artifact it was constructed with for its whole lifetime; a retrain only
// affects predictors constructed afterwards. Implements domain.RiskPredictor.
type Predictor struct {
	artifact *Artifact
	logger   *slog.Logger
}

// NewPredictor wraps an artifact. A nil artifact is valid and yields a
// predictor that fails soft on every call.
func NewPredictor(artifact *Artifact, logger *slog.Logger) *Predictor {
	if artifact != nil {
		logger.Info("predictor initialized", "model_version", artifact.Version)
	} else {
		logger.Warn("predictor initialized without a model, model path disabled")
	}
	return &Predictor{artifact: artifact, logger: logger}
}

// Ready reports whether a model is loaded.
func (p *Predictor) Ready() bool { return p.artifact != nil }

// Predict scores the feature triple. Returns ok=false when no model is
// loaded or scoring fails; callers skip the model path in that case.
func (p *Predictor) Predict(temperature, humidity, rainMM float64) (domain.Prediction, bool) {
	if p.artifact == nil {
		return domain.Prediction{}, false
	}

	class, prob, err := p.artifact.Forest.Predict([]float64{temperature, humidity, rainMM})
	if err != nil {
		p.logger.Error("prediction failed", "model_version", p.artifact.Version, "error", err)
		return domain.Prediction{}, false
	}

	// Averaged leaf distributions already land in [0,1]; clamp anyway so the
	// probability contract holds even if an artifact was hand-edited.
	if prob < 0 {
		prob = 0
	} else if prob > 1 {
		prob = 1
	}

	p.logger.Debug("prediction",
		"model_version", p.artifact.Version,
		"class", class,
		"risk_probability", prob,
	)
	return domain.Prediction{Class: class, RiskProbability: prob}, true
}

// Version returns the loaded artifact's version, or "" without a model.
func (p *Predictor) Version() string {
	if p.artifact == nil {
		return ""
	}
	return p.artifact.Version
}
