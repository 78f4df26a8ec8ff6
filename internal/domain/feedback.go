package domain

import "time"

// Feedback labels. These strings travel on the feedback topic and in the
// database; "mal" means the system missed or mis-assessed risk.
const (
	LabelGood = "bien"
	LabelBad  = "mal"
)

// Feedback is a human-supplied correctness label on a past Alert. It may
// arrive arbitrarily late, or never.
type Feedback struct {
	ID        int64     `db:"id" json:"id"`
	Timestamp time.Time `db:"timestamp" json:"timestamp"`
	AlertID   int64     `db:"alert_id" json:"alert_id"`
	Label     string    `db:"label" json:"label"`
}

// ValidLabel reports whether s is one of the two recognized feedback labels.
func ValidLabel(s string) bool {
	return s == LabelGood || s == LabelBad
}

// LabelClass maps a feedback label to its training class: "mal" → 1 (risk),
// "bien" → 0 (normal). The second return is false for unrecognized labels,
// which are excluded from training.
func LabelClass(label string) (int, bool) {
	switch label {
	case LabelBad:
		return 1, true
	case LabelGood:
		return 0, true
	default:
		return 0, false
	}
}

// TrainingRow is one joined Feedback → Alert → Reading row as returned by
// storage. Feature fields are pointers so NULLs survive the scan; rows with
// any nil feature are excluded from training.
type TrainingRow struct {
	Temperature *float64 `db:"temperature"`
	Humidity    *float64 `db:"humidity"`
	RainMM      *float64 `db:"rain_mm"`
	Label       string   `db:"label"`
}
