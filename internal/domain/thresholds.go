package domain

// DefaultModelProbThreshold is the model-path firing threshold used when the
// configuration does not supply one.
const DefaultModelProbThreshold = 0.75

// Thresholds is the static rule configuration for one evaluation. It is
// supplied externally and treated as an immutable snapshot; all bounds are
// inclusive.
type Thresholds struct {
	TempMax            float64 // alert when temperature >= TempMax
	TempMin            float64 // alert when temperature <= TempMin
	HumidityMax        float64 // alert when humidity >= HumidityMax
	RainLimitMM        float64 // alert when rain >= RainLimitMM
	ModelProbThreshold float64 // model path fires when probability >= this
}

// Breached evaluates the rule disjunction: any single breached bound
// triggers, with no weighting.
func (t Thresholds) Breached(r Reading) bool {
	return r.Temperature >= t.TempMax ||
		r.Temperature <= t.TempMin ||
		r.Humidity >= t.HumidityMax ||
		r.RainMM >= t.RainLimitMM
}

// ModelThreshold returns the configured model probability threshold, falling
// back to the default when unset.
func (t Thresholds) ModelThreshold() float64 {
	if t.ModelProbThreshold <= 0 {
		return DefaultModelProbThreshold
	}
	return t.ModelProbThreshold
}
