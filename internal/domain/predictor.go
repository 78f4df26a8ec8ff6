package domain

// Prediction is a classifier verdict for one reading.
type Prediction struct {
	Class           int     // 1 = risk, 0 = normal
	RiskProbability float64 // probability mass on the risk class, in [0,1]
}

// RiskPredictor wraps a trained classifier. Implementations fail soft: when
// no model is loaded, Ready reports false and Predict returns ok=false, and
// callers must treat that as "skip the model path", not as an error.
type RiskPredictor interface {
	// Ready reports whether a model is loaded.
	Ready() bool

	// Predict scores the feature triple (temperature, humidity, rain).
	Predict(temperature, humidity, rainMM float64) (Prediction, bool)
}
