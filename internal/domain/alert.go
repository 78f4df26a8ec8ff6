package domain

import "time"

// AlertKind records which decision path produced an alert.
type AlertKind string

const (
	// KindThreshold is recorded whenever the rule path fired, including when
	// the model fired as well: the threshold path has label priority.
	KindThreshold AlertKind = "risk_threshold"
	// KindModel is recorded only when the model fired and the rules did not.
	KindModel AlertKind = "risk_model"
)

// Alert is a persisted record of a positive risk decision. It references the
// Reading that triggered it and is never mutated after creation.
type Alert struct {
	ID        int64     `db:"id" json:"id"`
	Timestamp time.Time `db:"timestamp" json:"timestamp"`
	Kind      AlertKind `db:"kind" json:"kind"`
	Message   string    `db:"message" json:"message"`
	ReadingID int64     `db:"reading_id" json:"reading_id"`
}
