package domain

import "time"

// StatusSummary is the operator-facing system status: how many readings the
// store holds and when the latest one arrived.
type StatusSummary struct {
	TotalReadings int64      `json:"total_readings"`
	LastReadingAt *time.Time `json:"last_reading_at,omitempty"`
}
