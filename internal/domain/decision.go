package domain

import "time"

// Outcome is the ternary-plus-both result of one hybrid evaluation.
type Outcome string

const (
	OutcomeNoAlert   Outcome = "no_alert"
	OutcomeThreshold Outcome = "alert_threshold"
	OutcomeModel     Outcome = "alert_model"
	OutcomeBoth      Outcome = "alert_both"
)

// Alerting reports whether the outcome requires persistence and delivery.
func (o Outcome) Alerting() bool { return o != OutcomeNoAlert && o != "" }

// Kind maps an alerting outcome to the alert kind persisted with it.
// Threshold takes label priority when both paths fire.
func (o Outcome) Kind() AlertKind {
	if o == OutcomeModel {
		return KindModel
	}
	return KindThreshold
}

// Decision is the full result of evaluating one reading: the fused outcome,
// the model's risk probability when a model was consulted, and the composed
// alert message for alerting outcomes.
type Decision struct {
	Outcome        Outcome
	Probability    float64 // positive-class probability, 0 when no model ran
	ModelConsulted bool
	Message        string
	AlertID        int64 // set once the alert row is persisted
	EvaluatedAt    time.Time
}
