package model

import (
	"time"

	"github.com/google/uuid"

	"github.com/mfigueredo/clima-alerta/internal/domain"
)

// FeatureNames is the classifier's feature contract, in order.
var FeatureNames = []string{"temperature", "humidity", "rain_mm"}

// Artifact is the serialized model plus its contract metadata. Artifacts are
// replaced wholesale on retrain and never partially updated; the Version
// identifies which model a given cycle was served by.
type Artifact struct {
	Version      string    `json:"version"`
	TrainedAt    time.Time `json:"trained_at"`
	FeatureNames []string  `json:"feature_names"`
	TrainingRows int       `json:"training_rows"`
	Forest       *Forest   `json:"forest"`
}

// NewArtifact wraps a freshly trained forest with version metadata.
func NewArtifact(f *Forest, trainingRows int) *Artifact {
	return &Artifact{
		Version:      uuid.NewString(),
		TrainedAt:    domain.Timestamp(),
		FeatureNames: FeatureNames,
		TrainingRows: trainingRows,
		Forest:       f,
	}
}
