// Package domain models the environmental risk decision data.
//
// # Entities
//
// A Reading is one timestamped measurement of local conditions (temperature,
// humidity, rain, wind, condition text), produced by the collector adapter.
// When an evaluation decides to alert, the Reading is persisted together with
// an Alert referencing it, and the alert message is delivered with the alert
// id attached so a human can later answer the feedback prompt. Feedback rows
// reference exactly one Alert and carry one of two labels:
//
//	"bien" → the alert assessed the situation correctly → class 0
//	"mal"  → risk was missed or mis-assessed            → class 1
//
// That label mapping is the sole supervision signal for retraining. The
// strings are data contract values shared with the front end and the
// feedback topic, so they are kept verbatim rather than translated.
//
// # Decision outcomes
//
// An evaluation produces one of four outcomes: no alert, alert by threshold,
// alert by model, or alert by both. When both paths fire the persisted alert
// kind is "risk_threshold"; "risk_model" is recorded only when the model
// fired alone.
//
// # Thresholds
//
// Threshold bounds are inclusive (>= / <=) and are treated as an immutable
// snapshot for the duration of one evaluation. The model probability
// threshold defaults to 0.75.
package domain
